// Package bolt implements a Writer that stores bills in an embedded bbolt database.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/writer/buffered"
)

const (
	billsBucket = "bills"
	refsBucket  = "source_refs"
)

// ErrNotFound is returned by Get for unknown bill IDs.
var ErrNotFound = errors.New("bill not found")

// Writer stores bills keyed by ID. A bill whose SourceRef was stored before
// replaces the earlier record and keeps its ID.
type Writer struct {
	db       *bbolt.DB
	path     string
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the bolt writer.
type Config struct {
	// Path of the database file.
	Path string
	// BatchSize is the number of bills to buffer before writing.
	BatchSize int
	// FlushInterval is the interval between automatic flushes (seconds).
	FlushInterval int
}

// New opens (or creates) the database file.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("bolt database path is required")
	}

	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{billsBucket, refsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	w := &Writer{
		db:     db,
		path:   cfg.Path,
		logger: logger,
	}

	bufCfg := buffered.ConfigFromSeconds(cfg.BatchSize, cfg.FlushInterval)
	w.buffered = buffered.New(w.flushBatch, bufCfg, logger.With("component", "bolt_buffer"))

	logger.Info("bolt writer initialized", "path", cfg.Path)
	return w, nil
}

// Write consumes bills from the input channel and stores them.
// The database is closed when Write returns.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Bill, ackChan chan<- string) error {
	defer w.Close()
	return w.buffered.Write(ctx, in, ackChan)
}

// flushBatch stores a batch in a single transaction.
func (w *Writer) flushBatch(bills []*api.Bill) error {
	err := w.db.Update(func(tx *bbolt.Tx) error {
		records := tx.Bucket([]byte(billsBucket))
		refs := tx.Bucket([]byte(refsBucket))

		for _, b := range bills {
			record := *b
			if b.SourceRef != "" {
				if prev := refs.Get([]byte(b.SourceRef)); prev != nil {
					record.ID = string(prev)
				}
			}

			data, err := json.Marshal(&record)
			if err != nil {
				return fmt.Errorf("marshaling bill: %w", err)
			}
			if err := records.Put([]byte(record.ID), data); err != nil {
				return fmt.Errorf("storing bill %s: %w", record.ID, err)
			}
			if b.SourceRef != "" {
				if err := refs.Put([]byte(b.SourceRef), []byte(record.ID)); err != nil {
					return fmt.Errorf("indexing bill %s: %w", record.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.logger.Debug("wrote bills to bolt", "count", len(bills))
	return nil
}

// Get returns a stored bill by ID.
func (w *Writer) Get(id string) (*api.Bill, error) {
	var bill *api.Bill
	err := w.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(billsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &bill)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// List returns every stored bill in ID order.
func (w *Writer) List() ([]*api.Bill, error) {
	bills := make([]*api.Bill, 0)
	err := w.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(billsBucket)).ForEach(func(_, v []byte) error {
			var bill api.Bill
			if err := json.Unmarshal(v, &bill); err != nil {
				return fmt.Errorf("unmarshaling bill: %w", err)
			}
			bills = append(bills, &bill)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("closing boltdb: %w", err)
	}
	w.logger.Info("bolt writer closed", "path", w.path)
	return nil
}
