package commands

import (
	"encoding/json"
	"fmt"

	"ddfeed/internal/extract"

	"github.com/spf13/cobra"
)

func init() {
	cursorCmd.AddCommand(cursorDefaultCmd)
	cursorCmd.AddCommand(cursorDecodeCmd)
	rootCmd.AddCommand(cursorCmd)
}

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Inspects feed selection tokens.",
}

func printSelection(selection extract.Selection) {
	serialized, err := json.MarshalIndent(selection, "", "  ")
	if err != nil {
		fatal("failed to serialize selection", err)
	}
	fmt.Println(string(serialized))
}

var cursorDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Prints the token of the general feed and what it selects.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(extract.DefaultToken())
		printSelection(extract.DefaultSelection())
	},
}

var cursorDecodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Decodes a selection token.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		selection, err := extract.DecodeSelection(extract.SectionToken(args[0]))
		if err != nil {
			fatal("failed to decode token", err)
		}
		printSelection(selection)
	},
}
