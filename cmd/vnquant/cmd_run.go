package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func parseTargetEnd(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func runOrchestratorPass(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	universePath, _ := cmd.Flags().GetString("universe")
	targetEndRaw, _ := cmd.Flags().GetString("target-end")

	targetEnd, err := parseTargetEnd(targetEndRaw)
	if err != nil {
		return fmt.Errorf("parse --target-end: %w", err)
	}

	a, err := buildApp(configPath, universePath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	orch := a.orchestratorEngine()
	report, err := orch.Run(ctx, targetEnd)
	if err != nil {
		return fmt.Errorf("orchestrator run failed: %w", err)
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("run complete")

	for _, s := range report.Symbols {
		if s.Err != "" {
			log.Warn().Str("symbol", s.Symbol).Str("error", s.Err).Msg("symbol failed")
		}
	}
	return nil
}
