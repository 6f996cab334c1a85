// Package csv implements a Writer that appends bills to a CSV file.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/writer/buffered"
)

// Headers is the first row of every CSV file this writer creates.
var Headers = []string{"ID", "Date", "Provider", "Title", "Amount", "Category", "Strategy", "Source", "SourceRef"}

// Writer appends bills to a CSV file with buffered batching.
type Writer struct {
	filePath     string
	decimalComma bool
	file         *os.File
	writer       *csv.Writer
	mu           sync.Mutex
	buffered     *buffered.Writer
	logger       *slog.Logger
}

// Config holds configuration for the CSV writer.
type Config struct {
	FilePath string
	// Delimiter separates fields. Defaults to ','.
	Delimiter rune
	// DecimalComma writes amounts as "45,50", the form French spreadsheets
	// read as numbers. It needs a delimiter other than ','.
	DecimalComma  bool
	BatchSize     int
	FlushInterval int // seconds
}

// New opens (or creates) the CSV file. An existing file must start with
// Headers in the same delimiter, otherwise bills would land under the
// wrong columns.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, errors.New("csv file path is required")
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.DecimalComma && cfg.Delimiter == ',' {
		return nil, errors.New("decimal comma needs a delimiter other than ','")
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}

	w := &Writer{
		filePath:     cfg.FilePath,
		decimalComma: cfg.DecimalComma,
		file:         file,
		writer:       csv.NewWriter(file),
		logger:       logger,
	}
	w.writer.Comma = cfg.Delimiter

	if err := w.prepare(cfg.Delimiter); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (close error: %w)", err, closeErr)
		}
		return nil, err
	}

	bufCfg := buffered.ConfigFromSeconds(cfg.BatchSize, cfg.FlushInterval)
	w.buffered = buffered.New(w.flushBatch, bufCfg, logger.With("component", "csv_buffer"))

	logger.Info("csv writer initialized", "file", cfg.FilePath, "delimiter", string(cfg.Delimiter))
	return w, nil
}

// prepare writes Headers into an empty file, or checks them in an existing one.
func (w *Writer) prepare(delimiter rune) error {
	stat, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}

	if stat.Size() == 0 {
		if err := w.writer.Write(Headers); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
		w.writer.Flush()
		if err := w.writer.Error(); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
		return nil
	}

	r := csv.NewReader(io.NewSectionReader(w.file, 0, stat.Size()))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	got, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading csv headers: %w", err)
	}
	if !slices.Equal(got, Headers) {
		return fmt.Errorf("%s has columns %q, want %q", w.filePath, got, Headers)
	}
	return nil
}

// Write consumes bills from the input channel and appends them to the file.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Bill, ackChan chan<- string) error {
	defer w.Close()
	return w.buffered.Write(ctx, in, ackChan)
}

func (w *Writer) record(b *api.Bill) []string {
	amount := b.AmountString()
	if w.decimalComma {
		amount = strings.Replace(amount, ".", ",", 1)
	}
	return []string{
		b.ID,
		b.DateString(),
		b.Provider,
		b.Title,
		amount,
		b.Category,
		b.AmountStrategy,
		b.Source,
		b.SourceRef,
	}
}

func (w *Writer) flushBatch(bills []*api.Bill) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, b := range bills {
		if err := w.writer.Write(w.record(b)); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	w.logger.Debug("wrote bills to csv", "count", len(bills))
	return nil
}

// Close flushes and closes the CSV file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing csv file: %w", err)
	}

	w.logger.Info("csv writer closed", "file", w.filePath)
	return nil
}
