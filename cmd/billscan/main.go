// Command billscan extracts bill fields from OCR text and feeds them to storage backends.
package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/ArionMiles/billscan/internal/plugins"
	"github.com/ArionMiles/billscan/pkg/logging"
	gmailplugin "github.com/ArionMiles/billscan/pkg/plugins/readers/gmail"
	inboxplugin "github.com/ArionMiles/billscan/pkg/plugins/readers/inbox"
	mboxplugin "github.com/ArionMiles/billscan/pkg/plugins/readers/mbox"
	boltplugin "github.com/ArionMiles/billscan/pkg/plugins/writers/bolt"
	csvplugin "github.com/ArionMiles/billscan/pkg/plugins/writers/csv"
	jsonplugin "github.com/ArionMiles/billscan/pkg/plugins/writers/json"
	postgresplugin "github.com/ArionMiles/billscan/pkg/plugins/writers/postgres"
	sheetsplugin "github.com/ArionMiles/billscan/pkg/plugins/writers/sheets"
	xlsxplugin "github.com/ArionMiles/billscan/pkg/plugins/writers/xlsx"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const envPrefix = "BILLSCAN"

func main() {
	// Check for version flag before parsing subcommands
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	logger := logging.Setup(logging.DefaultConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger)
	if err := root.ParseAndRun(ctx, os.Args[1:], ff.WithEnvVarPrefix(envPrefix)); err != nil {
		if errors.Is(err, ff.ErrHelp) || errors.Is(err, ff.ErrNoExec) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
			if errors.Is(err, ff.ErrHelp) {
				return
			}
			os.Exit(2)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger) *ff.Command {
	rootFlags := ff.NewFlagSet("billscan")
	configPath := rootFlags.StringLong("config", "", "optional JSON or YAML config file, overlaid by BILLSCAN_* environment variables")

	return &ff.Command{
		Name:      "billscan",
		Usage:     "billscan [--config FILE] <subcommand> [flags]",
		ShortHelp: "extract invoice fields from OCR text",
		Flags:     rootFlags,
		Subcommands: []*ff.Command{
			newExtractCommand(rootFlags),
			newRunCommand(rootFlags, configPath, logger),
			newSetupCommand(rootFlags, configPath, logger),
			newStatusCommand(rootFlags, configPath),
		},
	}
}

// newRegistry registers every built-in reader and writer.
func newRegistry() (*plugins.Registry, error) {
	registry := plugins.NewRegistry()

	readers := []plugins.ReaderPlugin{
		&inboxplugin.Plugin{},
		&mboxplugin.Plugin{},
		&gmailplugin.Plugin{},
	}
	for _, p := range readers {
		if err := registry.RegisterReader(p); err != nil {
			return nil, err
		}
	}

	writers := []plugins.WriterPlugin{
		&jsonplugin.Plugin{},
		&csvplugin.Plugin{},
		&postgresplugin.Plugin{},
		&sheetsplugin.Plugin{},
		&boltplugin.Plugin{},
		&xlsxplugin.Plugin{},
	}
	for _, p := range writers {
		if err := registry.RegisterWriter(p); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
