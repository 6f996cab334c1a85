// Package buffered provides a buffered writer base for batch writes.
package buffered

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ArionMiles/billscan/pkg/api"
)

// DefaultBatchSize is the default number of bills to buffer before flushing.
const DefaultBatchSize = 10

// DefaultFlushInterval is the default interval between automatic flushes.
const DefaultFlushInterval = 30 * time.Second

// Flusher is called when the buffer needs to be flushed.
type Flusher func(bills []*api.Bill) error

// Config holds configuration for buffered writing.
type Config struct {
	// BatchSize is the number of bills to buffer before flushing.
	// Defaults to DefaultBatchSize.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	// Defaults to DefaultFlushInterval.
	FlushInterval time.Duration
}

// ConfigFromSeconds builds a Config from plugin settings expressed in seconds.
func ConfigFromSeconds(batchSize, flushIntervalSeconds int) Config {
	return Config{
		BatchSize:     batchSize,
		FlushInterval: time.Duration(flushIntervalSeconds) * time.Second,
	}
}

// Writer buffers bills and flushes them in batches.
// After a successful flush the SourceRef of every flushed bill is sent on the
// acknowledgment channel.
type Writer struct {
	buffer  []*api.Bill
	mu      sync.Mutex
	flusher Flusher
	config  Config
	logger  *slog.Logger
	ackChan chan<- string
}

// New creates a new buffered writer with the given flusher function.
func New(flusher Flusher, cfg Config, logger *slog.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		buffer:  make([]*api.Bill, 0, cfg.BatchSize),
		flusher: flusher,
		config:  cfg,
		logger:  logger,
	}
}

// Write consumes bills from the input channel and buffers them for batch writes.
// It returns when in is closed (after a final flush) or ctx is canceled.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Bill, ackChan chan<- string) error {
	w.ackChan = ackChan

	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	w.logger.Info("buffered writer started",
		"batch_size", w.config.BatchSize,
		"flush_interval", w.config.FlushInterval,
	)

	for {
		select {
		case <-ctx.Done():
			return w.handleShutdown()
		case <-ticker.C:
			w.handleTimerFlush(ctx)
		case bill, ok := <-in:
			if done, err := w.handleBill(ctx, bill, ok); done {
				return err
			}
		}
	}
}

func (w *Writer) handleShutdown() error {
	w.logger.Info("buffered writer stopping, flushing remaining buffer")
	// The reader has stopped listening; acks would block.
	w.ackChan = nil
	if err := w.flush(context.Background()); err != nil {
		w.logger.Error("failed to flush on shutdown", "error", err)
	}
	return context.Canceled
}

func (w *Writer) handleTimerFlush(ctx context.Context) {
	if err := w.flush(ctx); err != nil {
		w.logger.Error("failed to flush on interval", "error", err)
	}
}

func (w *Writer) handleBill(ctx context.Context, bill *api.Bill, ok bool) (bool, error) {
	if !ok {
		w.logger.Info("input channel closed, flushing remaining buffer")
		if err := w.flush(ctx); err != nil {
			w.logger.Error("failed to flush on close", "error", err)
			return true, err
		}
		return true, nil
	}

	w.mu.Lock()
	w.buffer = append(w.buffer, bill)
	shouldFlush := len(w.buffer) >= w.config.BatchSize
	w.mu.Unlock()

	if shouldFlush {
		if err := w.flush(ctx); err != nil {
			w.logger.Error("failed to flush on batch size", "error", err)
		}
	}
	return false, nil
}

// flush writes all buffered bills using the flusher function, then acknowledges them.
func (w *Writer) flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}

	// Copy buffer and reset
	toFlush := make([]*api.Bill, len(w.buffer))
	copy(toFlush, w.buffer)
	w.buffer = w.buffer[:0]
	w.mu.Unlock()

	w.logger.Debug("flushing buffer", "count", len(toFlush))

	if err := w.flusher(toFlush); err != nil {
		return err
	}

	w.logger.Info("flushed bills", "count", len(toFlush))
	w.acknowledge(ctx, toFlush)
	return nil
}

func (w *Writer) acknowledge(ctx context.Context, bills []*api.Bill) {
	if w.ackChan == nil {
		return
	}
	for _, b := range bills {
		select {
		case <-ctx.Done():
			return
		case w.ackChan <- b.SourceRef:
		}
	}
}

// BufferLen returns the current number of buffered bills.
func (w *Writer) BufferLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}
