package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Number shapes found on invoice lines. A line may match several of them
// (and a shape may match a suffix of another one's match); all matches are
// collected and the largest value wins.
var numberPatterns = []*regexp.Regexp{
	// "1 860,81"
	regexp.MustCompile(`-?\d[ \x{00A0}\x{202F}]\d{3},\d{2}`),
	// "12 345 678,90", "1 860.81"
	regexp.MustCompile(`-?\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+[,.]\d{2}`),
	// "79,00"
	regexp.MustCompile(`-?\d+,\d{2}`),
	// "1860.81"
	regexp.MustCompile(`-?\d+\.\d{2}`),
}

var groupSeparators = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".")

// NumberParser extracts monetary numbers from single lines of text.
type NumberParser struct{}

// Parse returns the largest strictly positive number on the line, rounded to
// two fractional digits. ok is false when the line holds no usable number.
func (NumberParser) Parse(line string) (value decimal.Decimal, ok bool) {
	for _, re := range numberPatterns {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			match := line[loc[0]:loc[1]]
			if strings.HasPrefix(match, "-") && !isSign(line, loc[0]) {
				match = match[1:]
			}
			n, err := decimal.NewFromString(groupSeparators.Replace(match))
			if err != nil || !n.IsPositive() {
				continue
			}
			if !ok || n.GreaterThan(value) {
				value, ok = n, true
			}
		}
	}
	if !ok {
		return decimal.Decimal{}, false
	}
	return value.Round(2), true
}

// isSign reports whether the dash at i stands alone before its number, as
// opposed to a leader ("TOTAL-----45,00") or a joint ("CB-45,00").
func isSign(line string, i int) bool {
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(line[:i])
	return unicode.IsSpace(prev) || prev == ':' || prev == '('
}

// ParseAll collects the number of every line that has one.
func (p NumberParser) ParseAll(lines []string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, line := range lines {
		if n, ok := p.Parse(line); ok {
			out = append(out, n)
		}
	}
	return out
}
