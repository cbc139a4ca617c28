package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runIngestOne(cmd *cobra.Command, args []string) error {
	symbol := args[0]
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := a.ingestEngine().Ingest(ctx, symbol, targetEnd)
	if err != nil {
		return fmt.Errorf("ingest %s failed: %w", symbol, err)
	}

	log.Info().Str("symbol", symbol).Int("fetched", res.Fetched).Int("stored", res.Stored).
		Time("new_last_date", res.NewLastDate).Msg("ingest complete")
	return nil
}
