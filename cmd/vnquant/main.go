package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "vnquant"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Vietnamese equity ingestion, indicator, scoring and signal pipeline",
		Version: version,
		Long: `vnquant ingests daily OHLCV and foreign-flow data for a curated Vietnamese
equity universe, computes technical indicators, scores the result against a
weighted rule set, and emits trading signals for successive runs to compare.`,
	}

	rootCmd.PersistentFlags().String("config", "", "path to YAML settings file")
	rootCmd.PersistentFlags().String("universe", "config/universe.json", "path to the universe JSON file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full orchestrator pass (ingest + analyze) over the universe",
		RunE:  runOrchestratorPass,
	}
	runCmd.Flags().String("target-end", "", "target end date YYYY-MM-DD (defaults to today)")

	ingestCmd := &cobra.Command{
		Use:   "ingest [symbol]",
		Short: "Ingest bars for a single symbol without running analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngestOne,
	}
	ingestCmd.Flags().String("target-end", "", "target end date YYYY-MM-DD (defaults to today)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only status/health/metrics HTTP surface",
		RunE:  runServe,
	}

	rootCmd.AddCommand(runCmd, ingestCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
