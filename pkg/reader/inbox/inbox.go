// Package inbox implements a Reader that picks up OCR text dumps from a directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/extract"
	"github.com/ArionMiles/billscan/pkg/logging"
)

// SourceName identifies bills produced by this reader.
const SourceName = "inbox"

// Reader turns every *.txt file of a directory into a bill.
// Files are moved to the processed directory once the writer acknowledges them.
type Reader struct {
	dir          string
	processedDir string
	interval     time.Duration
	once         bool
	categories   api.Categories
	extractor    *extract.Extractor
	logger       *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// Config holds configuration for the inbox reader.
type Config struct {
	// Dir is scanned for *.txt files.
	Dir string
	// ProcessedDir receives acknowledged files. Defaults to Dir/processed.
	ProcessedDir string
	// Interval between scans. Defaults to 10 seconds.
	Interval time.Duration
	// Once scans a single time, waits for acknowledgments and returns.
	Once bool
	// Categories maps providers to categories.
	Categories api.Categories
	// Extractor defaults to extract.New().
	Extractor *extract.Extractor
}

// New creates a new inbox reader.
func New(cfg Config, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("inbox directory is required")
	}

	processed := cfg.ProcessedDir
	if processed == "" {
		processed = filepath.Join(cfg.Dir, "processed")
	}
	if err := os.MkdirAll(processed, 0o755); err != nil {
		return nil, fmt.Errorf("creating processed directory: %w", err)
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 10 * time.Second
	}

	extractor := cfg.Extractor
	if extractor == nil {
		extractor = extract.New()
	}

	return &Reader{
		dir:          cfg.Dir,
		processedDir: processed,
		interval:     interval,
		once:         cfg.Once,
		categories:   cfg.Categories,
		extractor:    extractor,
		logger:       logger,
		pending:      make(map[string]struct{}),
	}, nil
}

// Read scans the directory and sends one bill per new file to out.
// In once mode it closes out after the first scan and returns when the
// acknowledgment channel is closed; otherwise it rescans until ctx is canceled.
func (r *Reader) Read(ctx context.Context, out chan<- *api.Bill, ackChan <-chan string) error {
	acksDone := make(chan struct{})
	go func() {
		defer close(acksDone)
		r.handleAcknowledgments(ctx, ackChan)
	}()

	if r.once {
		r.scan(ctx, out)
		close(out)

		select {
		case <-acksDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	defer close(out)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.scan(ctx, out)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("inbox reader stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			r.scan(ctx, out)
		}
	}
}

func (r *Reader) handleAcknowledgments(ctx context.Context, ackChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-ackChan:
			if !ok {
				r.logger.Info("acknowledgment channel closed")
				return
			}
			r.markProcessed(path)
		}
	}
}

// markProcessed moves an acknowledged file out of the inbox. A file that
// cannot be moved stays claimed so its stored bill is not emitted again.
func (r *Reader) markProcessed(path string) {
	dest := filepath.Join(r.processedDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		r.logger.Error("failed to move processed file, it will not be read again until restart",
			"path", path, "dest", dest, "error", err)
		return
	}
	r.logger.Debug("moved processed file", "path", path, "dest", dest)
	r.release(path)
}

func (r *Reader) scan(ctx context.Context, out chan<- *api.Bill) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.logger.Error("failed to list inbox", "dir", r.dir, "error", err)
		return
	}

	var sent int
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		if !r.claim(path) {
			continue
		}

		if err := r.processFile(ctx, path, out); err != nil {
			r.release(path)
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("failed to process file", "path", path, "error", err)
			continue
		}
		sent++
	}

	r.logger.Info("inbox scan complete", "dir", r.dir, "bills", sent)
}

func (r *Reader) processFile(ctx context.Context, path string, out chan<- *api.Bill) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	res := r.extractor.ExtractText(string(data))
	bill := api.NewBill(res, SourceName, path, r.categories)

	r.logger.Debug("extracted bill", logging.Bill(bill))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- bill:
	}
	return nil
}

// claim reports whether path was not already sent and still awaits an acknowledgment.
func (r *Reader) claim(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[path]; ok {
		return false
	}
	r.pending[path] = struct{}{}
	return true
}

func (r *Reader) release(path string) {
	r.mu.Lock()
	delete(r.pending, path)
	r.mu.Unlock()
}
