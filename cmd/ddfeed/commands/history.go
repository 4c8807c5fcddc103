package commands

import (
	"errors"
	"os"

	"ddfeed/internal/store"

	"github.com/spf13/cobra"
)

const defaultHistoryDb = "ddfeed.db"

var (
	historyDb    string
	historyLimit int
)

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDb, "db", "", "The sqlite database runs were recorded in.")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "The amount of runs to list, all of them when <= 0.")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(cmd *cobra.Command) store.Store {
	path := historyDb
	if !cmd.Flags().Changed("db") {
		cfg, err := loadConfig(configPath)
		if err != nil {
			fatal("failed to read config", err)
		}
		path = cfg.Db
	}
	if path == "" {
		path = defaultHistoryDb
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fatal("history database does not exist", err)
	}

	history, err := store.Open(path)
	if err != nil {
		fatal("failed to open history", err)
	}
	return history
}

var historyCmd = &cobra.Command{
	Use:   "history [--db <path/to/history.db>] [--limit <n>]",
	Short: "Lists recorded runs, most recent first.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		history := openHistory(cmd)
		defer history.Close()

		runs, err := history.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			fatal("failed to list runs", err)
		}
		renderRuns(os.Stdout, runs)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Prints the records of a recorded run.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		history := openHistory(cmd)
		defer history.Close()

		run, err := history.GetRun(cmd.Context(), args[0])
		if err != nil {
			fatal("failed to get run", err)
		}
		renderRuns(os.Stdout, []store.Run{run})

		records, err := history.RunRecords(cmd.Context(), run.Id)
		if err != nil {
			fatal("failed to get records", err)
		}
		renderRecords(os.Stdout, records, 0)
	},
}
