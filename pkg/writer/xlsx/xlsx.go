// Package xlsx implements a Writer that keeps bills in an Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/writer/buffered"
)

// DefaultSheet is the worksheet bills are appended to.
const DefaultSheet = "Bills"

// Headers is the first row of the bills worksheet.
var Headers = []any{"ID", "Date", "Provider", "Title", "Amount", "Category", "Strategy", "Source", "SourceRef"}

// Writer appends bills to a worksheet and saves the workbook after every batch.
type Writer struct {
	filePath string
	sheet    string
	file     *excelize.File
	nextRow  int
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the XLSX writer.
type Config struct {
	// FilePath is the workbook to create or extend.
	FilePath string
	// Sheet is the worksheet name. Defaults to DefaultSheet.
	Sheet string
	// BatchSize is the number of bills to buffer before saving.
	BatchSize int
	// FlushInterval is the interval between automatic flushes.
	FlushInterval int // seconds
}

// New opens the workbook at cfg.FilePath, creating it when missing.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, errors.New("xlsx file path is required")
	}
	if cfg.Sheet == "" {
		cfg.Sheet = DefaultSheet
	}

	f, err := openWorkbook(cfg.FilePath)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		filePath: cfg.FilePath,
		sheet:    cfg.Sheet,
		file:     f,
		logger:   logger,
	}
	created, err := w.prepareSheet()
	if err == nil && created {
		err = f.SaveAs(cfg.FilePath)
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	bufCfg := buffered.ConfigFromSeconds(cfg.BatchSize, cfg.FlushInterval)
	w.buffered = buffered.New(w.flushBatch, bufCfg, logger.With("component", "xlsx_buffer"))

	logger.Info("xlsx writer initialized", "file", cfg.FilePath, "sheet", cfg.Sheet, "next_row", w.nextRow)
	return w, nil
}

func openWorkbook(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	return excelize.NewFile(), nil
}

// prepareSheet makes sure the worksheet exists with headers and finds the
// first empty row. It reports whether headers were written.
func (w *Writer) prepareSheet() (bool, error) {
	index, err := w.file.GetSheetIndex(w.sheet)
	if err != nil {
		return false, fmt.Errorf("looking up sheet: %w", err)
	}

	if index == -1 {
		// A fresh workbook has a single default sheet; reuse it.
		if sheets := w.file.GetSheetList(); len(sheets) == 1 && isEmpty(w.file, sheets[0]) {
			if err := w.file.SetSheetName(sheets[0], w.sheet); err != nil {
				return false, fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := w.file.NewSheet(w.sheet); err != nil {
			return false, fmt.Errorf("creating sheet: %w", err)
		}
		if index, err = w.file.GetSheetIndex(w.sheet); err != nil {
			return false, fmt.Errorf("looking up sheet: %w", err)
		}
		w.file.SetActiveSheet(index)
	}

	rows, err := w.file.GetRows(w.sheet)
	if err != nil {
		return false, fmt.Errorf("reading sheet: %w", err)
	}
	if len(rows) == 0 {
		if err := w.file.SetSheetRow(w.sheet, "A1", &Headers); err != nil {
			return false, fmt.Errorf("writing headers: %w", err)
		}
		_ = w.file.SetColWidth(w.sheet, "B", "B", 12)
		_ = w.file.SetColWidth(w.sheet, "C", "D", 28)
		_ = w.file.SetColWidth(w.sheet, "I", "I", 48)
		w.nextRow = 2
		return true, nil
	}
	w.nextRow = len(rows) + 1
	return false, nil
}

func isEmpty(f *excelize.File, sheet string) bool {
	rows, err := f.GetRows(sheet)
	return err == nil && len(rows) == 0
}

// Write consumes bills from the input channel and saves them to the workbook.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Bill, ackChan chan<- string) error {
	defer w.Close()
	return w.buffered.Write(ctx, in, ackChan)
}

// row renders a bill as worksheet cells. Amounts stay numeric.
func row(b *api.Bill) []any {
	var amount any = ""
	if b.Amount.Valid {
		amount = b.Amount.Decimal.InexactFloat64()
	}
	return []any{
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
		cell, err := excelize.CoordinatesToCellName(1, w.nextRow)
		if err != nil {
			return err
		}
		values := row(b)
		if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", w.nextRow, err)
		}
		w.nextRow++
	}

	if err := w.file.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}

	w.logger.Debug("wrote bills to xlsx", "count", len(bills), "next_row", w.nextRow)
	return nil
}

// Close releases the workbook.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing workbook: %w", err)
	}
	w.logger.Info("xlsx writer closed", "file", w.filePath)
	return nil
}
