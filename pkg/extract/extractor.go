package extract

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/billscan/pkg/api"
)

// Extractor runs the amount, date and provider heuristics over one document
// and merges their findings. It holds no mutable state and is safe for
// concurrent use.
type Extractor struct {
	amounts   *AmountExtractor
	dates     *DateExtractor
	providers *ProviderTitleExtractor

	// Now supplies today's date for the fallback title.
	Now func() time.Time
}

// New returns an Extractor for French documents.
func New() *Extractor {
	return NewWithLocale(French)
}

// NewWithLocale returns an Extractor using the given vocabulary.
func NewWithLocale(locale Locale) *Extractor {
	return &Extractor{
		amounts:   NewAmountExtractor(locale),
		dates:     NewDateExtractor(locale),
		providers: NewProviderTitleExtractor(locale),
		Now:       time.Now,
	}
}

// ForLocale returns an Extractor for a built-in locale name.
// An empty name selects French.
func ForLocale(name string) (*Extractor, error) {
	if name == "" {
		return New(), nil
	}
	locale, ok := LookupLocale(name)
	if !ok {
		return nil, fmt.Errorf("unknown locale %q", name)
	}
	return NewWithLocale(locale), nil
}

// Extract never fails; fields it cannot find are left empty.
func (e *Extractor) Extract(doc api.Document) api.Result {
	res := api.Result{Document: doc}

	if amount, strategy, ok := e.amounts.Extract(doc); ok {
		res.Amount = decimal.NewNullDecimal(amount)
		res.AmountStrategy = strategy
	}

	titleDate := e.today()
	if date, ok := e.dates.Extract(doc); ok {
		res.Date = &date
		titleDate = date
	}

	res.Provider = e.providers.Provider(doc)
	res.Title = e.providers.Title(res.Provider, titleDate)
	return res
}

// ExtractText splits text into lines and extracts from them.
func (e *Extractor) ExtractText(text string) api.Result {
	return e.Extract(api.ParseDocument(text))
}

func (e *Extractor) today() time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now()
}
