// Package daemon provides the core daemon runner for billscan.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/billscan/internal/plugins"
	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/config"
)

// channelSize bounds the bill and acknowledgment channels.
const channelSize = 100

// Runner wires one reader plugin to one writer plugin.
type Runner struct {
	registry   *plugins.Registry
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new daemon runner. httpClient may be nil when no plugin
// needs Google APIs.
func New(registry *plugins.Registry, httpClient *http.Client, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		registry:   registry,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Run blocks until the reader is exhausted and the writer has stored what it
// received, or until ctx is canceled. Cancellation is not an error.
func (r *Runner) Run(ctx context.Context, cfg config.Config) error {
	if cfg.ReaderPlugin == "" {
		return errors.New("BILLSCAN_READER is required")
	}
	if cfg.WriterPlugin == "" {
		return errors.New("BILLSCAN_WRITER is required")
	}

	readerConfig, err := cfg.ReaderConfigWithLocale()
	if err != nil {
		return err
	}

	r.logger.Info("starting billscan daemon",
		"reader", cfg.ReaderPlugin,
		"writer", cfg.WriterPlugin,
	)

	reader, err := r.registry.CreateReader(
		cfg.ReaderPlugin,
		r.httpClient,
		readerConfig,
		r.logger,
	)
	if err != nil {
		return fmt.Errorf("creating reader: %w", err)
	}

	writer, err := r.registry.CreateWriter(
		cfg.WriterPlugin,
		r.httpClient,
		cfg.WriterConfig,
		r.logger,
	)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bills := make(chan *api.Bill, channelSize)
	ackChan := make(chan string, channelSize)

	// The writer is the only sender on ackChan, so it is closed once Write returns.
	writerDone := make(chan error, 1)
	go func() {
		err := writer.Write(ctx, bills, ackChan)
		close(ackChan)
		if err != nil && !errors.Is(err, context.Canceled) {
			// Unblock a reader waiting to send.
			cancel()
		}
		writerDone <- err
	}()

	r.logger.Info("daemon started")
	readErr := reader.Read(ctx, bills, ackChan)
	writeErr := <-writerDone

	var errs []error
	if writeErr != nil && !errors.Is(writeErr, context.Canceled) {
		r.logger.Error("writer error", "error", writeErr)
		errs = append(errs, fmt.Errorf("writer: %w", writeErr))
	}
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		r.logger.Error("reader error", "error", readErr)
		errs = append(errs, fmt.Errorf("reader: %w", readErr))
	}

	r.logger.Info("daemon stopped")
	return errors.Join(errs...)
}
