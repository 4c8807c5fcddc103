package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"ddfeed/internal/components/serviceutil"
	"ddfeed/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	otlp       telemetry.Telemetry
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "The config file to read, ddfeed.json5 is searched upwards from the cwd by default.")
}

var rootCmd = &cobra.Command{
	Use:   "ddfeed",
	Short: "ddfeed is a CLI for running doordash guest sessions and extracting feed sections.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		var err error
		otlp, err = telemetry.SetupFromEnv(cmd.Context(), "ddfeed")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownTelemetry()
	},
}

// shutdownTelemetry flushes and stops the otlp providers, calling it again
// does nothing.
func shutdownTelemetry() {
	err := otlp.Shutdown(context.Background())
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
	otlp = telemetry.Telemetry{}
}

// fatal exits with status 1 after flushing telemetry, os.Exit skips
// PersistentPostRun.
func fatal(message string, err error) {
	shutdownTelemetry()
	serviceutil.Fatal(message, err)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
