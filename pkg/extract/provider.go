package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ArionMiles/billscan/pkg/api"
)

const (
	providerScanLines = 5
	providerMaxLines  = 2
)

// Lines carrying these are dates or amounts, not names.
// EUR counts unless letters surround it, so "45,00EUR" is rejected and
// "EUROPCAR" is not.
var currencyToken = regexp.MustCompile(`(?:^|\PL)EUR(?:$|\PL)`)

// ProviderTitleExtractor guesses the issuer of an invoice from its leading
// lines and builds a display title.
type ProviderTitleExtractor struct {
	locale Locale
}

// NewProviderTitleExtractor returns an extractor for a locale.
func NewProviderTitleExtractor(locale Locale) *ProviderTitleExtractor {
	return &ProviderTitleExtractor{locale: locale}
}

// Provider joins the first eligible lines among the top of the document.
// It returns "" when none qualifies.
func (p *ProviderTitleExtractor) Provider(doc api.Document) string {
	var names []string
	for _, line := range doc.Window(0, providerScanLines) {
		line = strings.TrimSpace(line)
		if !p.eligible(line) {
			continue
		}
		names = append(names, line)
		if len(names) == providerMaxLines {
			break
		}
	}
	return strings.Join(names, " ")
}

// Title names the bill after its provider, or after its date when the
// provider is unknown.
func (p *ProviderTitleExtractor) Title(provider string, date time.Time) string {
	if provider != "" {
		return p.locale.TitlePrefix + " " + provider
	}
	return p.locale.DateTitlePrefix + " " + date.Format(p.locale.DateLayout)
}

func (p *ProviderTitleExtractor) eligible(line string) bool {
	if utf8.RuneCountInString(line) < 2 {
		return false
	}
	if strings.ContainsAny(line, "/€") || currencyToken.MatchString(line) {
		return false
	}
	lower := strings.ToLower(line)
	for _, word := range p.locale.Boilerplate {
		if lower == word || strings.HasPrefix(lower, word+" ") {
			return false
		}
	}
	return true
}
