package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/peterbourgon/ff/v4"

	"github.com/ArionMiles/billscan/internal/plugins"
	"github.com/ArionMiles/billscan/pkg/client"
	"github.com/ArionMiles/billscan/pkg/config"
)

func newSetupCommand(parent *ff.FlagSet, configPath *string, logger *slog.Logger) *ff.Command {
	fs := ff.NewFlagSet("setup").SetParent(parent)
	force := fs.BoolLong("force", "re-authenticate even if a token exists")

	return &ff.Command{
		Name:      "setup",
		Usage:     "billscan setup [--force]",
		ShortHelp: "authorize Google Sheets access for the sheets writer",
		Flags:     fs,
		Exec: func(ctx context.Context, _ []string) error {
			return runSetup(ctx, *configPath, *force, logger)
		},
	}
}

// runSetup handles the OAuth setup flow.
func runSetup(ctx context.Context, configPath string, force bool, logger *slog.Logger) error {
	fmt.Println("=== billscan setup ===")
	fmt.Println()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.ClientSecretFile); os.IsNotExist(err) {
		return fmt.Errorf("credentials file not found: %s\n\nTo get your credentials:\n"+
			"1. Go to https://console.cloud.google.com/apis/credentials\n"+
			"2. Create an OAuth 2.0 Client ID (Desktop application)\n"+
			"3. Download the JSON file and save it as '%s'", cfg.ClientSecretFile, cfg.ClientSecretFile)
	}

	registry, err := newRegistry()
	if err != nil {
		return fmt.Errorf("registering plugins: %w", err)
	}
	scopes, err := setupScopes(registry, cfg)
	if err != nil {
		return err
	}

	if force {
		fmt.Println("Forcing re-authentication...")
		fmt.Println()
	}
	fmt.Println("Requested scopes:")
	for _, scope := range scopes {
		fmt.Printf("  - %s\n", scope)
	}
	fmt.Println()

	err = client.Authorize(ctx, client.Options{
		SecretFile: cfg.ClientSecretFile,
		TokenFile:  cfg.TokenFile,
		Scopes:     scopes,
	}, force)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	logger.Debug("oauth setup finished", "token_file", cfg.TokenFile)

	fmt.Println()
	fmt.Println("=== Setup Complete ===")
	fmt.Printf("Token saved to: %s\n", cfg.TokenFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Check the configuration with 'billscan status'")
	fmt.Println("  2. Run 'billscan run'")
	return nil
}

// setupScopes returns the scopes of the configured plugins, or of every
// plugin needing Google access when the configured ones need none.
func setupScopes(registry *plugins.Registry, cfg config.Config) ([]string, error) {
	scopes, err := registry.GetAllScopes(cfg.ReaderPlugin, cfg.WriterPlugin)
	if err != nil {
		return nil, err
	}
	if len(scopes) > 0 {
		return scopes, nil
	}

	seen := make(map[string]struct{})
	for _, p := range registry.ListReaders() {
		for _, scope := range p.RequiredScopes() {
			seen[scope] = struct{}{}
		}
	}
	for _, p := range registry.ListWriters() {
		for _, scope := range p.RequiredScopes() {
			seen[scope] = struct{}{}
		}
	}
	for scope := range seen {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes, nil
}
