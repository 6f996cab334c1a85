package extract

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ArionMiles/billscan/pkg/api"
)

const receipt = `FACTURE
ACME Corp
Zone Industrielle
Date: 01/01/2026
Désignation Qté Prix
Gravier 2 KG 3,50
Sable 19,99
Total
5 KG
23,40`

func fixedNow() time.Time {
	return time.Date(2026, time.October, 19, 15, 4, 5, 0, time.UTC)
}

func TestExtractorExtractText(t *testing.T) {
	e := New()
	e.Now = fixedNow

	res := e.ExtractText(receipt)

	if got := res.Amount.Decimal.StringFixed(2); !res.Amount.Valid || got != "23.40" {
		t.Errorf("amount: got %v (valid %v), want 23.40", got, res.Amount.Valid)
	}
	if res.AmountStrategy != StrategyBareTotal {
		t.Errorf("strategy: got %q, want %q", res.AmountStrategy, StrategyBareTotal)
	}
	if res.Date == nil || !res.Date.Equal(day(2026, time.January, 1)) {
		t.Errorf("date: got %v, want 2026-01-01", res.Date)
	}
	if res.Provider != "ACME Corp Zone Industrielle" {
		t.Errorf("provider: got %q, want %q", res.Provider, "ACME Corp Zone Industrielle")
	}
	if res.Title != "Facture ACME Corp Zone Industrielle" {
		t.Errorf("title: got %q, want %q", res.Title, "Facture ACME Corp Zone Industrielle")
	}
	if len(res.Document) != 10 {
		t.Errorf("document: got %d lines, want 10", len(res.Document))
	}
}

func TestExtractorEmptyDocument(t *testing.T) {
	e := New()
	e.Now = fixedNow

	for _, doc := range []api.Document{nil, {}, api.ParseDocument("")} {
		res := e.Extract(doc)
		if res.Amount.Valid {
			t.Errorf("amount: got %v, want none", res.Amount.Decimal)
		}
		if res.AmountStrategy != "" {
			t.Errorf("strategy: got %q, want empty", res.AmountStrategy)
		}
		if res.Date != nil {
			t.Errorf("date: got %v, want none", res.Date)
		}
		if res.Provider != "" {
			t.Errorf("provider: got %q, want empty", res.Provider)
		}
		if res.Title != "Facture du 19/10/2026" {
			t.Errorf("title: got %q, want %q", res.Title, "Facture du 19/10/2026")
		}
	}
}

func TestExtractorTitleFallsBackToExtractedDate(t *testing.T) {
	e := New()
	e.Now = fixedNow

	res := e.Extract(api.Document{"Facture du 12 janvier 2026", "12/01/2026", "Montant : 79,00 €"})
	if res.Provider != "" {
		t.Errorf("provider: got %q, want empty", res.Provider)
	}
	if res.Title != "Facture du 12/01/2026" {
		t.Errorf("title: got %q, want %q", res.Title, "Facture du 12/01/2026")
	}
	if res.AmountStrategy != StrategyAmountDue {
		t.Errorf("strategy: got %q, want %q", res.AmountStrategy, StrategyAmountDue)
	}
}

func TestExtractorIdempotent(t *testing.T) {
	e := New()
	e.Now = fixedNow
	doc := api.ParseDocument(receipt)

	first := e.Extract(doc)
	second := e.Extract(doc)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n first: %+v\nsecond: %+v", first, second)
	}
}

func TestExtractorConcurrentUse(t *testing.T) {
	e := New()
	e.Now = fixedNow
	want := e.ExtractText(receipt)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := e.ExtractText(receipt); !reflect.DeepEqual(got, want) {
				t.Errorf("concurrent result differs: got %+v", got)
			}
		}()
	}
	wg.Wait()
}

func TestLookupLocale(t *testing.T) {
	if l, ok := LookupLocale(" FR "); !ok || l.Name != "fr" {
		t.Errorf("locale: got %q (ok %v), want fr", l.Name, ok)
	}
	if _, ok := LookupLocale("xx"); ok {
		t.Error("locale xx: got ok, want missing")
	}
}

func TestForLocale(t *testing.T) {
	for _, name := range []string{"", "fr", "Fr"} {
		if _, err := ForLocale(name); err != nil {
			t.Errorf("ForLocale(%q): %v", name, err)
		}
	}
	if _, err := ForLocale("de"); err == nil {
		t.Error("ForLocale(de): got nil error, want unknown locale")
	}
}
