package extract

import (
	"regexp"
	"strconv"
	"time"

	"github.com/ArionMiles/billscan/pkg/api"
)

var (
	// "12 janvier 2026", "1er mars 2026"; applied to folded text. OCR often
	// glues the date to its label ("du12 janvier 2026"), so the day is not
	// anchored.
	spelledDate = regexp.MustCompile(`(\d{1,2})(?:er)?\s+([a-z]+)\s+(\d{4})\b`)
	// "05/03/2026", "5-3-2026", "Le05/03/2026"; day first.
	numericDate = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
)

// dateMatcher finds a date on one line.
type dateMatcher func(line string) (time.Time, bool)

// DateExtractor returns the first date in document order.
type DateExtractor struct {
	locale   Locale
	matchers []dateMatcher
}

// NewDateExtractor builds the per-line patterns for a locale.
func NewDateExtractor(locale Locale) *DateExtractor {
	d := &DateExtractor{locale: locale}
	labelled := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(locale.DateLabel) +
		`\s*:\s*(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)

	d.matchers = []dateMatcher{
		d.spelled,
		func(line string) (time.Time, bool) { return numeric(numericDate, line) },
		func(line string) (time.Time, bool) { return numeric(labelled, line) },
	}
	return d
}

// Extract scans lines top to bottom; on each line the patterns are tried in
// order and the first hit ends the scan.
func (d *DateExtractor) Extract(doc api.Document) (time.Time, bool) {
	for _, line := range doc {
		for _, match := range d.matchers {
			if t, ok := match(line); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func (d *DateExtractor) spelled(line string) (time.Time, bool) {
	for _, m := range spelledDate.FindAllStringSubmatch(fold(line), -1) {
		month, ok := d.locale.Months[m[2]]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if t, ok := calendarDate(year, month, day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func numeric(re *regexp.Regexp, line string) (time.Time, bool) {
	for _, m := range re.FindAllStringSubmatch(line, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := calendarDate(year, time.Month(month), day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// calendarDate rejects combinations time.Date would normalize, like 31/02.
func calendarDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
