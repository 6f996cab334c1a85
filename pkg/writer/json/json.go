// Package json implements a Writer that writes bills to a JSON file.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/writer/buffered"
)

// Writer writes bills to a JSON file with buffered batching.
// The file always holds a single JSON array of every bill written so far.
type Writer struct {
	filePath string
	bills    []*api.Bill
	// seen holds source keys of stored bills when SkipSeen is set.
	seen     map[string]bool
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the JSON writer.
type Config struct {
	// FilePath is the path to the JSON output file.
	FilePath string
	// BatchSize is the number of bills to buffer before writing.
	BatchSize int
	// FlushInterval is the interval between automatic flushes (seconds).
	FlushInterval int
	// SkipSeen drops bills whose source and source ref are already in the
	// file, such as an inbox scan re-read after a restart.
	SkipSeen bool
}

// New creates a new JSON writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, errors.New("json file path is required")
	}

	w := &Writer{
		filePath: cfg.FilePath,
		bills:    make([]*api.Bill, 0),
		logger:   logger,
	}

	if err := w.loadExisting(); err != nil {
		logger.Warn("could not load existing bills", "error", err)
	}
	if cfg.SkipSeen {
		w.seen = make(map[string]bool, len(w.bills))
		for _, b := range w.bills {
			w.seen[sourceKey(b)] = true
		}
	}

	bufCfg := buffered.ConfigFromSeconds(cfg.BatchSize, cfg.FlushInterval)
	w.buffered = buffered.New(w.flushBatch, bufCfg, logger.With("component", "json_buffer"))

	logger.Info("json writer initialized", "file", cfg.FilePath, "existing_count", len(w.bills))
	return w, nil
}

// loadExisting loads existing bills from the JSON file if it exists.
func (w *Writer) loadExisting() error {
	data, err := os.ReadFile(w.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, &w.bills)
}

// Write consumes bills from the input channel and writes them to JSON.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Bill, ackChan chan<- string) error {
	return w.buffered.Write(ctx, in, ackChan)
}

// flushBatch appends a batch of bills and rewrites the JSON file.
func (w *Writer) flushBatch(bills []*api.Bill) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	added := 0
	for _, b := range bills {
		if w.seen != nil {
			key := sourceKey(b)
			if w.seen[key] {
				w.logger.Info("skipping bill already stored", "source", b.Source, "source_ref", b.SourceRef)
				continue
			}
			w.seen[key] = true
		}
		w.bills = append(w.bills, b)
		added++
	}
	if added == 0 {
		return nil
	}

	// JSON doesn't support appending
	data, err := json.MarshalIndent(w.bills, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}

	if err := os.WriteFile(w.filePath, data, 0o600); err != nil {
		return fmt.Errorf("writing json file: %w", err)
	}

	w.logger.Debug("wrote bills to json",
		"batch_count", added,
		"total_count", len(w.bills),
	)
	return nil
}

func sourceKey(b *api.Bill) string {
	return b.Source + "\x00" + b.SourceRef
}

// BillCount returns the total number of bills written.
func (w *Writer) BillCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bills)
}
