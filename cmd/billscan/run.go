package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/peterbourgon/ff/v4"

	"github.com/ArionMiles/billscan/internal/daemon"
	"github.com/ArionMiles/billscan/pkg/client"
	"github.com/ArionMiles/billscan/pkg/config"
)

func newRunCommand(parent *ff.FlagSet, configPath *string, logger *slog.Logger) *ff.Command {
	fs := ff.NewFlagSet("run").SetParent(parent)

	return &ff.Command{
		Name:      "run",
		Usage:     "billscan run",
		ShortHelp: "run the configured reader and writer until interrupted",
		LongHelp: "Reads BILLSCAN_READER, BILLSCAN_WRITER, BILLSCAN_READER_CONFIG and " +
			"BILLSCAN_WRITER_CONFIG from the environment or the --config file.",
		Flags: fs,
		Exec: func(ctx context.Context, _ []string) error {
			return runDaemon(ctx, *configPath, logger)
		},
	}
}

// runDaemon loads the configuration and blocks until the daemon stops.
func runDaemon(ctx context.Context, configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry, err := newRegistry()
	if err != nil {
		return fmt.Errorf("registering plugins: %w", err)
	}

	scopes, err := registry.GetAllScopes(cfg.ReaderPlugin, cfg.WriterPlugin)
	if err != nil {
		return err
	}

	var httpClient *http.Client
	if len(scopes) > 0 {
		logger.Info("loading oauth client", "scopes", scopes)
		httpClient, err = client.New(client.Options{
			SecretFile: cfg.ClientSecretFile,
			TokenFile:  cfg.TokenFile,
			Scopes:     scopes,
		})
		if err != nil {
			return fmt.Errorf("creating oauth client: %w", err)
		}
	}

	return daemon.New(registry, httpClient, logger).Run(ctx, cfg)
}
