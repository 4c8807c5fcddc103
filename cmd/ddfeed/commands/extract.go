package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"ddfeed/internal/document"
	"ddfeed/internal/extract"

	"github.com/spf13/cobra"
)

var (
	extractSection string
	extractFuzzy   bool
	extractLabel   string
	extractJson    bool
	extractShow    int
)

func init() {
	extractCmd.Flags().StringVar(&extractSection, "section", "", "Also look for the token of the section with this title.")
	extractCmd.Flags().BoolVar(&extractFuzzy, "fuzzy", false, "Match section titles by similarity instead of by substring.")
	extractCmd.Flags().StringVar(&extractLabel, "label", "feed", "The source label given to the records.")
	extractCmd.Flags().BoolVar(&extractJson, "json", false, "Print the records as json instead of a table.")
	extractCmd.Flags().IntVar(&extractShow, "show", 0, "The amount of records to print, all of them when <= 0.")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <file.json> [--section <title>] [--label <label>] [--json]",
	Short: "Extracts the store records of a saved feed document.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			fatal("failed to read config", err)
		}

		contents, err := os.ReadFile(args[0])
		if err != nil {
			fatal("failed to read document", err)
		}
		doc, err := document.Parse(contents)
		if err != nil {
			fatal("failed to parse document", err)
		}

		if extractSection != "" {
			match := extract.TitleContains(extractSection)
			if extractFuzzy {
				match = extract.TitleSimilar(extractSection, cfg.FuzzyThreshold)
			}
			token, found := extract.FindToken(doc, match)
			if found {
				fmt.Printf("Section %q has token: %s\n", extractSection, token)
			} else {
				fmt.Printf("Section %q not found.\n", extractSection)
			}
		}

		records := extract.ExtractRecords(doc, extractLabel)
		if extractJson {
			serialized, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				fatal("failed to serialize records", err)
			}
			fmt.Println(string(serialized))
			return
		}
		renderRecords(os.Stdout, records, extractShow)
	},
}
