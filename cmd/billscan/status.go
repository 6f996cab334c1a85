package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/peterbourgon/ff/v4"

	"github.com/ArionMiles/billscan/internal/plugins"
	"github.com/ArionMiles/billscan/pkg/client"
	"github.com/ArionMiles/billscan/pkg/config"
)

var errNotReady = errors.New("configuration issues detected")

func newStatusCommand(parent *ff.FlagSet, configPath *string) *ff.Command {
	fs := ff.NewFlagSet("status").SetParent(parent)

	return &ff.Command{
		Name:      "status",
		Usage:     "billscan status",
		ShortHelp: "check configuration, plugins and authentication",
		Flags:     fs,
		Exec: func(_ context.Context, _ []string) error {
			return runStatus(os.Stdout, *configPath)
		},
	}
}

// statusReport collects check results and remembers whether any failed.
type statusReport struct {
	out     io.Writer
	allGood bool
}

func (s *statusReport) ok(label, format string, args ...any) {
	fmt.Fprintf(s.out, "%s: %s %s\n", label, color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func (s *statusReport) fail(label, format string, args ...any) {
	s.allGood = false
	fmt.Fprintf(s.out, "%s: %s %s\n", label, color.RedString("✗"), fmt.Sprintf(format, args...))
}

// runStatus checks the configuration and authentication status.
func runStatus(out io.Writer, configPath string) error {
	fmt.Fprintln(out, "=== billscan status ===")
	fmt.Fprintln(out)

	report := &statusReport{out: out, allGood: true}

	cfg, err := config.Load(configPath)
	if err != nil {
		report.fail("Config", "%v", err)
		return finish(report)
	}
	if configPath != "" {
		report.ok("Config", "loaded %s", configPath)
	} else {
		report.ok("Config", "environment only")
	}

	registry, err := newRegistry()
	if err != nil {
		return fmt.Errorf("registering plugins: %w", err)
	}

	var scopes []string
	if reader, err := registry.GetReader(cfg.ReaderPlugin); err != nil {
		report.fail("Reader", "%v", err)
	} else {
		report.ok("Reader", "%s (%s)", reader.Name(), reader.Description())
		checkPluginConfig(report, "Reader config", reader.ConfigSchema(), cfg.ReaderConfig)
		scopes = append(scopes, reader.RequiredScopes()...)
	}

	if writer, err := registry.GetWriter(cfg.WriterPlugin); err != nil {
		report.fail("Writer", "%v", err)
	} else {
		report.ok("Writer", "%s (%s)", writer.Name(), writer.Description())
		checkPluginConfig(report, "Writer config", writer.ConfigSchema(), cfg.WriterConfig)
		scopes = append(scopes, writer.RequiredScopes()...)
	}

	if len(scopes) > 0 {
		checkOAuth(report, cfg)
	}

	printAvailablePlugins(out, registry)
	return finish(report)
}

// checkPluginConfig validates the config against the plugin's schema.
func checkPluginConfig(report *statusReport, label string, schema map[string]any, raw json.RawMessage) {
	if err := plugins.ValidateConfig(schema, raw); err != nil {
		report.fail(label, "%v", err)
		return
	}
	report.ok(label, "valid")
}

func checkOAuth(report *statusReport, cfg config.Config) {
	if _, err := os.Stat(cfg.ClientSecretFile); err != nil {
		report.fail("Credentials file", "%s not found", cfg.ClientSecretFile)
	} else {
		report.ok("Credentials file", "%s", cfg.ClientSecretFile)
	}

	token, err := client.TokenFromFile(cfg.TokenFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		report.fail("OAuth token", "%s not found (run 'billscan setup')", cfg.TokenFile)
	case err != nil:
		report.fail("OAuth token", "%v", err)
	case !token.Expiry.IsZero() && token.Expiry.Before(time.Now()):
		fmt.Fprintf(report.out, "OAuth token: %s expired (will refresh on next run)\n", color.YellowString("⚠"))
	default:
		report.ok("OAuth token", "valid")
	}
}

func printAvailablePlugins(out io.Writer, registry *plugins.Registry) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Available readers:")
	for _, p := range registry.ListReaders() {
		fmt.Fprintf(out, "  %-10s %s\n", p.Name(), p.Description())
	}
	fmt.Fprintln(out, "Available writers:")
	for _, p := range registry.ListWriters() {
		fmt.Fprintf(out, "  %-10s %s\n", p.Name(), p.Description())
	}
}

func finish(report *statusReport) error {
	fmt.Fprintln(report.out)
	if !report.allGood {
		_, _ = color.New(color.FgRed).Fprintln(report.out, "Fix the issues above, then run 'billscan status' again.")
		return errNotReady
	}
	fmt.Fprintf(report.out, "Status: %s\n", color.GreenString("✓ Ready to run"))
	return nil
}
