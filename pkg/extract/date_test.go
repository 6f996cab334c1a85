package extract

import (
	"testing"
	"time"

	"github.com/ArionMiles/billscan/pkg/api"
)

func TestDateExtractor(t *testing.T) {
	tests := []struct {
		name string
		doc  api.Document
		want time.Time
	}{
		{"labelled numeric", api.Document{"Date : 05/03/2026"}, day(2026, time.March, 5)},
		{"label without space", api.Document{"DATE:7/8/2026"}, day(2026, time.August, 7)},
		{"french month", api.Document{"Facture du 12 janvier 2026"}, day(2026, time.January, 12)},
		{"accented month", api.Document{"Paris, le 12 février 2026"}, day(2026, time.February, 12)},
		{"unaccented month", api.Document{"12 fevrier 2026"}, day(2026, time.February, 12)},
		{"upper case month", api.Document{"31 DÉCEMBRE 2025"}, day(2025, time.December, 31)},
		{"ordinal day", api.Document{"Le 1er mars 2026"}, day(2026, time.March, 1)},
		{"hyphens", api.Document{"5-3-2026"}, day(2026, time.March, 5)},
		{"mixed separators", api.Document{"05/03-2026"}, day(2026, time.March, 5)},
		{"day first", api.Document{"12/01/2026"}, day(2026, time.January, 12)},
		{"glued label", api.Document{"Le05/03/2026"}, day(2026, time.March, 5)},
		{"glued date label", api.Document{"Date05/03/2026"}, day(2026, time.March, 5)},
		{"glued spelled date", api.Document{"du12 janvier 2026"}, day(2026, time.January, 12)},
		{"day taken from a longer digit run", api.Document{"N123/05/2026"}, day(2026, time.May, 23)},
		{"future dates accepted", api.Document{"01/01/2099"}, day(2099, time.January, 1)},
		{
			"first line wins",
			api.Document{"ACME", "Ticket 01/02/2026", "Facture du 12 janvier 2026"},
			day(2026, time.February, 1),
		},
		{
			"spelled pattern tried first on a line",
			api.Document{"Livré le 03/04/2026, facture du 1 mai 2026"},
			day(2026, time.May, 1),
		},
		{
			"invalid date skipped for a later one",
			api.Document{"31/02/2026", "Échéance 28/02/2026"},
			day(2026, time.February, 28),
		},
	}

	d := NewDateExtractor(French)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := d.Extract(tc.doc)
			if !ok {
				t.Fatal("ok: got false, want true")
			}
			if !got.Equal(tc.want) {
				t.Errorf("date: got %v, want %v", got.Format(time.DateOnly), tc.want.Format(time.DateOnly))
			}
		})
	}
}

func TestDateExtractorNone(t *testing.T) {
	tests := []struct {
		name string
		doc  api.Document
	}{
		{"empty", api.Document{}},
		{"no date", api.Document{"ACME", "Total 12,00"}},
		{"invalid calendar date", api.Document{"31/02/2026"}},
		{"month out of range", api.Document{"12/13/2026"}},
		{"unknown month word", api.Document{"12 mois 2026"}},
		{"two digit year", api.Document{"05/03/26"}},
	}

	d := NewDateExtractor(French)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got, ok := d.Extract(tc.doc); ok {
				t.Errorf("date: got %v, want none", got)
			}
		})
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
