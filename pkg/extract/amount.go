package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/billscan/pkg/api"
)

// Strategy names reported in api.Result.AmountStrategy.
const (
	StrategyBalanceDue = "balance-due"
	StrategyAmountDue  = "montant"
	StrategyTotalTTC   = "total-ttc"
	StrategyBareTotal  = "bare-total"
	StrategyGlobal     = "global"
)

// amountStrategy collects candidate amounts from a document. An empty result
// hands over to the next strategy.
type amountStrategy struct {
	name    string
	collect func(doc api.Document) []decimal.Decimal
}

// AmountExtractor picks the invoice total with an ordered cascade of
// label-anchored strategies, falling back to the whole document.
type AmountExtractor struct {
	locale     Locale
	numbers    NumberParser
	strategies []amountStrategy
}

// NewAmountExtractor builds the cascade for a locale.
func NewAmountExtractor(locale Locale) *AmountExtractor {
	a := &AmountExtractor{locale: locale}
	a.strategies = []amountStrategy{
		{StrategyBalanceDue, a.balanceDue},
		{StrategyAmountDue, a.amountDue},
		{StrategyTotalTTC, a.totalTTC},
		{StrategyBareTotal, a.bareTotal},
		{StrategyGlobal, a.global},
	}
	return a
}

// Extract returns the best amount and the strategy that found it.
// The first strategy with any candidate wins; later ones are not consulted.
func (a *AmountExtractor) Extract(doc api.Document) (decimal.Decimal, string, bool) {
	for _, s := range a.strategies {
		if candidates := s.collect(doc); len(candidates) > 0 {
			return decimal.Max(candidates[0], candidates[1:]...), s.name, true
		}
	}
	return decimal.Decimal{}, "", false
}

func (a *AmountExtractor) balanceDue(doc api.Document) []decimal.Decimal {
	return a.anchored(doc, 3, func(upper string) bool {
		for _, pair := range a.locale.BalanceDue {
			if strings.Contains(upper, pair[0]) && strings.Contains(upper, pair[1]) {
				return true
			}
		}
		return false
	})
}

func (a *AmountExtractor) amountDue(doc api.Document) []decimal.Decimal {
	return a.anchored(doc, 2, func(upper string) bool {
		return strings.Contains(upper, a.locale.Amount) &&
			(strings.Contains(upper, ":") || strings.Contains(upper, a.locale.Pay))
	})
}

func (a *AmountExtractor) totalTTC(doc api.Document) []decimal.Decimal {
	return a.anchored(doc, 2, func(upper string) bool {
		return strings.Contains(upper, a.locale.Total) && strings.Contains(upper, a.locale.TaxIncluded)
	})
}

// bareTotal looks below a line reading exactly "Total", skipping lines that
// carry weights or quantities.
func (a *AmountExtractor) bareTotal(doc api.Document) []decimal.Decimal {
	var out []decimal.Decimal
	for i, line := range doc {
		if !strings.EqualFold(strings.TrimSpace(line), a.locale.Total) {
			continue
		}
		for _, next := range doc.Window(i+1, 5) {
			if containsAny(upperTrim(next), a.locale.TotalExclusions) {
				continue
			}
			if n, ok := a.numbers.Parse(next); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

func (a *AmountExtractor) global(doc api.Document) []decimal.Decimal {
	var out []decimal.Decimal
	for _, line := range doc {
		if containsAny(upperTrim(line), a.locale.GlobalExclusions) {
			continue
		}
		if n, ok := a.numbers.Parse(line); ok {
			out = append(out, n)
		}
	}
	return out
}

// anchored gathers numbers from every anchor line and the `after` lines that follow it.
func (a *AmountExtractor) anchored(doc api.Document, after int, isAnchor func(upper string) bool) []decimal.Decimal {
	var out []decimal.Decimal
	for i, line := range doc {
		if !isAnchor(upperTrim(line)) {
			continue
		}
		out = append(out, a.numbers.ParseAll(doc.Window(i, after+1))...)
	}
	return out
}

func upperTrim(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
