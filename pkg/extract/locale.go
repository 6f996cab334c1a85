// Package extract recovers a total amount, a date and a provider name from
// the noisy OCR text of a photographed invoice.
//
// Nothing here fails: every heuristic degrades to "field not found".
package extract

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Locale carries the language-specific vocabulary the extractors rely on.
// Keywords are matched against upper-cased lines, month names against
// lower-cased, accent-folded text.
type Locale struct {
	Name string

	// Months maps folded month names to their month.
	Months map[string]time.Month

	// BalanceDue lists keyword pairs that mark a balance-due line.
	BalanceDue [][2]string
	// Amount is the "amount" label; it anchors when followed by ":" or Pay.
	Amount string
	// Pay is the "to pay" keyword shared by several anchors.
	Pay string
	// Total and TaxIncluded form the "total incl. tax" anchor.
	Total       string
	TaxIncluded string

	// TotalExclusions skip lines below a bare total label.
	TotalExclusions []string
	// GlobalExclusions skip lines during the whole-document fallback.
	GlobalExclusions []string

	// DateLabel prefixes a labelled numeric date ("date").
	DateLabel string
	// Boilerplate words never name a provider.
	Boilerplate []string

	// TitlePrefix precedes the provider in generated titles.
	TitlePrefix string
	// DateTitlePrefix precedes the date when no provider is known.
	DateTitlePrefix string
	// DateLayout formats dates in titles.
	DateLayout string
}

// French is the vocabulary of French invoices and receipts.
var French = Locale{
	Name: "fr",
	Months: map[string]time.Month{
		"janvier":   time.January,
		"fevrier":   time.February,
		"mars":      time.March,
		"avril":     time.April,
		"mai":       time.May,
		"juin":      time.June,
		"juillet":   time.July,
		"aout":      time.August,
		"septembre": time.September,
		"octobre":   time.October,
		"novembre":  time.November,
		"decembre":  time.December,
	},
	BalanceDue:  [][2]string{{"SOLDE", "PAYER"}, {"RESTE", "PAYER"}},
	Amount:      "MONTANT",
	Pay:         "PAYER",
	Total:       "TOTAL",
	TaxIncluded: "TTC",
	// The bare-total list lacks PRIX UNIT and /TONNE: unit-price lines under
	// a bare "Total" are still read.
	TotalExclusions:  []string{"KG", "TN", "QUANTITE", "POIDS", "UNITE", "UNIT."},
	GlobalExclusions: []string{"KG", "TN", "QUANTITE", "POIDS", "UNITE", "UNIT.", "PRIX UNIT", "/TONNE"},
	DateLabel:        "date",
	Boilerplate:      []string{"facture", "invoice", "bill", "devis", "quote"},
	TitlePrefix:      "Facture",
	DateTitlePrefix:  "Facture du",
	DateLayout:       "02/01/2006",
}

var locales = map[string]Locale{
	French.Name: French,
}

// LookupLocale returns the built-in locale with the given name.
func LookupLocale(name string) (Locale, bool) {
	l, ok := locales[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// fold lower-cases s and strips combining marks, so "Décembre" becomes "decembre".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
