package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ddfeed/internal/components/telemetry"
	"ddfeed/internal/extract"
	"ddfeed/internal/flow"
	"ddfeed/internal/output"
	"ddfeed/internal/scrapers/doordash"
	"ddfeed/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runOut        string
	runDb         string
	runSection    string
	runFuzzy      bool
	runDumpHttp   string
	runOnboarding bool
	runShow       int
)

func init() {
	runCmd.Flags().StringVar(&runOut, "out", "", "The directory to write the feeds and records to.")
	runCmd.Flags().StringVar(&runDb, "db", "", "The sqlite database to record the run in, runs are not recorded when empty.")
	runCmd.Flags().StringVar(&runSection, "section", "", "The title of the home page section to extract.")
	runCmd.Flags().BoolVar(&runFuzzy, "fuzzy", false, "Match section titles by similarity instead of by substring.")
	runCmd.Flags().StringVar(&runDumpHttp, "dump-http", "", "A directory to write every http exchange to.")
	runCmd.Flags().BoolVar(&runOnboarding, "onboarding", false, "Make the calls the app makes after creating a guest.")
	runCmd.Flags().IntVar(&runShow, "show", 10, "The amount of records to print, all of them when <= 0.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [address] [--out <dir>] [--db <path/to/history.db>] [--section <title>] [--fuzzy]",
	Short: "Runs a guest session near the address and extracts the stores of a home page section.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			fatal("failed to read config", err)
		}
		cfg = applyRunFlags(cmd, cfg)

		query := cfg.AddressQuery
		if len(args) == 1 {
			query = args[0]
		}
		if query == "" {
			fatal("no address given", errors.New("pass an address or set address_query in the config"))
		}

		tel := telemetry.SlogAPI{}

		clientOpts := cfg.clientOptions()
		if runDumpHttp != "" {
			dump, err := output.NewHttpDump(runDumpHttp, tel)
			if err != nil {
				fatal("failed to create http dump directory", err)
			}
			clientOpts.Output = dump
			slog.Info("dumping http exchanges", "dir", dump.Dir())
		}
		client, err := doordash.NewClient(clientOpts, tel)
		if err != nil {
			fatal("failed to create doordash client", err)
		}

		dir, err := output.NewDirectory(cfg.OutputDir)
		if err != nil {
			fatal("failed to create output directory", err)
		}

		match := extract.TitleContains(cfg.SectionTitle)
		if runFuzzy {
			match = extract.TitleSimilar(cfg.SectionTitle, cfg.FuzzyThreshold)
		}

		f := flow.New(client, flow.Options{
			SectionTitle:      cfg.SectionTitle,
			Match:             match,
			Onboarding:        cfg.Onboarding,
			LenientSetDefault: cfg.LenientSetDefault,
			Sink:              dir,
		}, tel)

		slog.Info("running guest session", "address", query, "section", cfg.SectionTitle)

		startedAt := time.Now()
		result, runErr := f.Run(cmd.Context(), query)

		renderSteps(os.Stdout, result.Steps)
		if runErr == nil {
			if result.SectionFound {
				fmt.Printf("Found %d stores in %q.\n", len(result.Records), result.Label)
			} else {
				fmt.Printf("Section %q not found, found %d stores in the general feed.\n", cfg.SectionTitle, len(result.Records))
			}
			renderRecords(os.Stdout, result.Records, runShow)
		}

		if cfg.Db != "" {
			err := recordRun(cmd.Context(), cfg.Db, query, startedAt, result, runErr)
			if err != nil {
				slog.Warn("failed to record run", "db", cfg.Db, "err", err)
			}
		}

		if runErr != nil {
			fatal("guest session failed", runErr)
		}
	},
}

func applyRunFlags(cmd *cobra.Command, cfg Config) Config {
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = runOut
	}
	if cmd.Flags().Changed("db") {
		cfg.Db = runDb
	}
	if cmd.Flags().Changed("section") {
		cfg.SectionTitle = runSection
	}
	if cmd.Flags().Changed("onboarding") {
		cfg.Onboarding = runOnboarding
	}
	return cfg.withDefaults()
}

func recordRun(ctx context.Context, path, query string, startedAt time.Time, result flow.Result, runErr error) error {
	history, err := store.Open(path)
	if err != nil {
		return err
	}
	defer history.Close()

	run := store.Run{
		Id:           uuid.NewString(),
		StartedAt:    startedAt,
		AddressQuery: query,
		Label:        result.Label,
		SectionFound: result.SectionFound,
		Token:        string(result.Token),
		Status:       store.StatusSuccess,
	}
	if runErr != nil {
		run.Status = store.StatusAborted
		run.Error = runErr.Error()
	}
	var abort *flow.SequenceAbort
	if errors.As(runErr, &abort) {
		run.AbortedStep = abort.Step
		run.Error = abort.Err.Error()
	}

	err = history.SaveRun(ctx, run, result.Records)
	if err != nil {
		return err
	}
	slog.Info("recorded run", "id", run.Id, "db", path)
	return nil
}
