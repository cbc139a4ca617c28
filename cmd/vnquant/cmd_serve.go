package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hoangnph/vnquant/internal/httpapi"
)

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	universePath, _ := cmd.Flags().GetString("universe")

	a, err := buildApp(configPath, universePath)
	if err != nil {
		return err
	}

	cfg := httpapi.DefaultConfig()
	// The report store starts empty and nothing in this process fills it,
	// so /status has no run report to serve.
	srv, err := httpapi.NewServer(cfg, log.Logger, a.metrics, a.breakers, httpapi.NewReportStore())
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
