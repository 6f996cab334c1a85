// Package sheets implements a Writer that appends bills to a Google Sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/writer/buffered"
)

// Headers is the first row written to a newly created spreadsheet.
var Headers = []any{"Date", "Provider", "Title", "Amount", "Category", "Strategy", "Source", "Reference"}

// Writer writes bills to a Google Sheet with buffered batching.
type Writer struct {
	client      *sheets.Service
	spreadsheet *sheets.Spreadsheet
	sheetName   string
	retryDelay  time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
	buffered    *buffered.Writer
}

// Config holds configuration for the Sheets writer.
type Config struct {
	// SheetTitle is the title for a new spreadsheet (if SheetID is empty).
	SheetTitle string
	// SheetID is the ID of an existing spreadsheet to use.
	SheetID string
	// SheetName is the name of the sheet within the spreadsheet.
	SheetName string
	// BatchSize is the number of bills to buffer before writing.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	FlushInterval time.Duration
	// RetryDelay is the wait after a rate-limited append. Defaults to 60 seconds.
	RetryDelay time.Duration
	// RequestsPerMinute caps append calls. Defaults to DefaultRequestsPerMinute.
	RequestsPerMinute int
}

// DefaultRequestsPerMinute stays under the per-user Sheets write quota.
const DefaultRequestsPerMinute = 60

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// New creates a new Sheets writer. Extra options are passed to the Sheets
// service after the HTTP client.
func New(httpClient *http.Client, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 60 * time.Second
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	client, err := sheets.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	w := &Writer{
		client:     client,
		sheetName:  cfg.SheetName,
		retryDelay: cfg.RetryDelay,
		limiter:    newLimiter(cfg.RequestsPerMinute),
		logger:     logger,
	}

	spreadsheet, err := w.initSpreadsheet(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing spreadsheet: %w", err)
	}
	w.spreadsheet = spreadsheet

	w.buffered = buffered.New(
		w.flushBatch,
		buffered.Config{BatchSize: cfg.BatchSize, FlushInterval: cfg.FlushInterval},
		logger.With("component", "sheets_buffer"),
	)

	logger.Info("sheets writer initialized", "spreadsheet_id", spreadsheet.SpreadsheetId)
	return w, nil
}

func (w *Writer) initSpreadsheet(ctx context.Context, cfg Config) (*sheets.Spreadsheet, error) {
	// Try to get existing spreadsheet
	if cfg.SheetID != "" {
		spreadsheet, err := w.client.Spreadsheets.Get(cfg.SheetID).Context(ctx).Do()
		if err == nil {
			w.logger.Info("using existing spreadsheet", "title", spreadsheet.Properties.Title, "id", cfg.SheetID)
			return spreadsheet, nil
		}
		w.logger.Warn("failed to get spreadsheet, will create new one", "id", cfg.SheetID, "error", err)
	}

	spreadsheet, err := w.client.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title: cfg.SheetTitle,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: cfg.SheetName}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet", "title", cfg.SheetTitle, "id", spreadsheet.SpreadsheetId)

	if err := w.writeHeaders(ctx, spreadsheet.SpreadsheetId); err != nil {
		return nil, fmt.Errorf("writing headers: %w", err)
	}

	return spreadsheet, nil
}

func (w *Writer) writeHeaders(ctx context.Context, spreadsheetID string) error {
	headerRange := fmt.Sprintf("%s!A1:H1", w.sheetName)
	headerReq := sheets.ValueRange{
		Values: [][]any{Headers},
	}

	_, err := w.client.Spreadsheets.Values.Update(spreadsheetID, headerRange, &headerReq).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("updating headers: %w", err)
	}

	w.logger.Info("wrote headers to spreadsheet")
	return nil
}

// Write consumes bills from the input channel and writes them to Google Sheets.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Bill, ackChan chan<- string) error {
	w.logger.Info("sheets writer started")
	return w.buffered.Write(ctx, in, ackChan)
}

// row renders a bill as spreadsheet cells. Dates use the sheet-friendly
// ISO layout and amounts stay numeric.
func row(b *api.Bill) []any {
	var amount any = ""
	if b.Amount.Valid {
		amount = b.Amount.Decimal.InexactFloat64()
	}
	return []any{
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

// flushBatch writes a batch of bills to Google Sheets in a single API call.
func (w *Writer) flushBatch(bills []*api.Bill) error {
	if len(bills) == 0 {
		return nil
	}

	values := make([][]any, 0, len(bills))
	for _, b := range bills {
		values = append(values, row(b))
	}

	writeRange := fmt.Sprintf("%s!A2:H2", w.sheetName)
	writeReq := sheets.ValueRange{
		Values: values,
	}

	// buffered.Writer handles cancellation at a higher level
	ctx := context.Background()

	err := retry.Do(
		func() error {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
			_, err := w.client.Spreadsheets.Values.Append(w.spreadsheet.SpreadsheetId, writeRange, &writeReq).
				ValueInputOption("USER_ENTERED").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				w.logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(3),
		retry.Delay(w.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("appending batch to sheet: %w", err)
	}

	w.logger.Info("wrote bill batch",
		"count", len(bills),
		"first_provider", bills[0].Provider,
	)

	return nil
}

// SpreadsheetID returns the ID of the spreadsheet being written to.
func (w *Writer) SpreadsheetID() string {
	if w.spreadsheet == nil {
		return ""
	}
	return w.spreadsheet.SpreadsheetId
}

// BufferLen returns the current number of buffered bills.
func (w *Writer) BufferLen() int {
	if w.buffered == nil {
		return 0
	}
	return w.buffered.BufferLen()
}
