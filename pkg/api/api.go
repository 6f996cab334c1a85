// Package api defines the core interfaces and data structures for billscan.
package api

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Result is the set of fields recovered from one invoice document.
// Every field is a suggestion: the caller lets the user edit it before
// anything is persisted upstream.
type Result struct {
	// Amount is the inferred total. Valid only when a candidate was found;
	// it is then strictly positive with two fractional digits.
	Amount decimal.NullDecimal `json:"amount"`
	// Date is the first date found in the document, at midnight UTC.
	Date *time.Time `json:"date,omitempty"`
	// Provider is the guessed issuer name, empty when none was inferred.
	Provider string `json:"provider"`
	// Title is always set, falling back to a date-based default.
	Title string `json:"title"`
	// AmountStrategy names the cascade step that produced Amount.
	AmountStrategy string `json:"amount_strategy,omitempty"`
	// Document is the raw input, kept for audit display.
	Document Document `json:"document"`
}

// Bill is an extraction result promoted to a record that writers persist.
type Bill struct {
	ID             string              `json:"id"`
	Provider       string              `json:"provider"`
	Title          string              `json:"title"`
	Amount         decimal.NullDecimal `json:"amount"`
	Date           *time.Time          `json:"date,omitempty"`
	Category       string              `json:"category"`
	AmountStrategy string              `json:"amount_strategy,omitempty"`
	Source         string              `json:"source"`
	RawText        string              `json:"raw_text"`
	ExtractedAt    time.Time           `json:"extracted_at"`
	// SourceRef identifies the item in its source (file path, message id).
	// Writers echo it on the ack channel once the bill is stored.
	SourceRef string `json:"source_ref"`
}

// NewBill builds a bill from an extraction result.
func NewBill(res Result, source, sourceRef string, categories Categories) *Bill {
	return &Bill{
		ID:             uuid.NewString(),
		Provider:       res.Provider,
		Title:          res.Title,
		Amount:         res.Amount,
		Date:           res.Date,
		Category:       categories.Lookup(res.Provider),
		AmountStrategy: res.AmountStrategy,
		Source:         source,
		RawText:        res.Document.Text(),
		ExtractedAt:    time.Now().UTC(),
		SourceRef:      sourceRef,
	}
}

// AmountString formats the amount with two decimals, or "" when unknown.
func (b *Bill) AmountString() string {
	if !b.Amount.Valid {
		return ""
	}
	return b.Amount.Decimal.StringFixed(2)
}

// DateString formats the date as YYYY-MM-DD, or "" when unknown.
func (b *Bill) DateString() string {
	if b.Date == nil {
		return ""
	}
	return b.Date.Format(time.DateOnly)
}

// Reader reads OCR text from a source and sends extracted bills to the provided channel.
// Implementations close the channel when done or on error.
// The ackChan carries SourceRefs of bills that were stored successfully.
type Reader interface {
	Read(ctx context.Context, out chan<- *Bill, ackChan <-chan string) error
}

// Writer consumes bills from a channel and writes them to a destination.
// SourceRefs of successfully written bills are sent to the ackChan.
type Writer interface {
	Write(ctx context.Context, in <-chan *Bill, ackChan chan<- string) error
}

// Categories maps provider names to the category their bills belong to.
type Categories map[string]string

// Lookup returns the category for a provider, matching names case-insensitively.
// Returns an empty string if the provider is unknown.
func (c Categories) Lookup(provider string) string {
	if provider == "" {
		return ""
	}
	if category, ok := c[provider]; ok {
		return category
	}
	for name, category := range c {
		if strings.EqualFold(name, provider) {
			return category
		}
	}
	return ""
}
