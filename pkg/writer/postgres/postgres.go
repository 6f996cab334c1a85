// Package postgres provides a PostgreSQL writer for bill storage.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/writer/buffered"
)

//go:embed 001_create_bills.sql
var migrationSQL string

const upsertBill = `
	INSERT INTO bills (
		id, source_ref, source, provider, title, amount, bill_date,
		category, amount_strategy, raw_text, extracted_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (source_ref) DO UPDATE SET
		source = EXCLUDED.source,
		provider = EXCLUDED.provider,
		title = EXCLUDED.title,
		amount = EXCLUDED.amount,
		bill_date = EXCLUDED.bill_date,
		category = EXCLUDED.category,
		amount_strategy = EXCLUDED.amount_strategy,
		raw_text = EXCLUDED.raw_text,
		extracted_at = EXCLUDED.extracted_at,
		updated_at = NOW()
	RETURNING id::text
`

// Config holds the PostgreSQL writer configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	// ConnString overrides the individual connection fields when set.
	ConnString string

	// BatchSize is the number of bills to buffer before writing.
	BatchSize int
	// FlushInterval is the time between automatic flushes.
	FlushInterval time.Duration

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
	// Attempts is the number of tries per batch. Defaults to 3.
	Attempts uint
	// RetryDelay is the initial delay between tries. Defaults to 1 second.
	RetryDelay time.Duration
}

// Writer writes bills to a PostgreSQL database.
type Writer struct {
	pool       *pgxpool.Pool
	logger     *slog.Logger
	buffered   *buffered.Writer
	attempts   uint
	retryDelay time.Duration
}

// New creates a new PostgreSQL writer and applies the schema migration.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Set defaults
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	connStr := cfg.ConnString
	if connStr == "" {
		connStr = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"port", poolConfig.ConnConfig.Port,
		"database", poolConfig.ConnConfig.Database,
	)

	w := &Writer{
		pool:       pool,
		logger:     logger,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
	}

	if err := w.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	w.buffered = buffered.New(
		w.flushBatch,
		buffered.Config{BatchSize: cfg.BatchSize, FlushInterval: cfg.FlushInterval},
		logger.With("component", "postgres_buffer"),
	)

	return w, nil
}

func (w *Writer) runMigrations(ctx context.Context) error {
	w.logger.Info("running database migrations")

	if _, err := w.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}

	w.logger.Info("migrations completed successfully")
	return nil
}

// Write consumes bills from the channel and writes them to PostgreSQL.
// The pool is closed when Write returns.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Bill, ackChan chan<- string) error {
	defer w.Close()
	return w.buffered.Write(ctx, in, ackChan)
}

// flushBatch writes one batch, retrying transient failures.
func (w *Writer) flushBatch(bills []*api.Bill) error {
	// buffered.Writer handles cancellation; a started batch is allowed to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := retry.Do(
		func() error { return w.writeBatch(ctx, bills) },
		retry.Context(ctx),
		retry.Attempts(w.attempts),
		retry.Delay(w.retryDelay),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			w.logger.Warn("batch write failed, retrying", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("writing batch to postgres: %w", err)
	}

	w.logger.Info("wrote bill batch", "count", len(bills))
	return nil
}

// writeBatch upserts bills in a single transaction, keyed on source_ref.
func (w *Writer) writeBatch(ctx context.Context, bills []*api.Bill) error {
	if len(bills) == 0 {
		return nil
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, b := range bills {
		batch.Queue(upsertBill,
			b.ID,
			b.SourceRef,
			b.Source,
			b.Provider,
			b.Title,
			b.Amount,
			b.Date,
			b.Category,
			b.AmountStrategy,
			b.RawText,
			b.ExtractedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range bills {
		var id string
		if err := results.QueryRow().Scan(&id); err != nil {
			results.Close()
			return fmt.Errorf("upserting bill %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (w *Writer) Close() {
	if w.pool != nil {
		w.pool.Close()
		w.logger.Info("closed PostgreSQL connection pool")
	}
}
