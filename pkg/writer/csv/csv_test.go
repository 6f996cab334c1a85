package csv

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/billscan/pkg/api"
)

func write(t *testing.T, cfg Config, bills ...*api.Bill) {
	t.Helper()

	cfg.BatchSize = 10
	w, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := make(chan *api.Bill, len(bills))
	for _, b := range bills {
		in <- b
	}
	close(in)

	ackChan := make(chan string, len(bills))
	if err := w.Write(context.Background(), in, ackChan); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(ackChan) != len(bills) {
		t.Errorf("acks: got %d, want %d", len(ackChan), len(bills))
	}
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.csv")
	date := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)

	write(t, Config{FilePath: path}, &api.Bill{
		ID:             "1",
		Provider:       "EDF",
		Title:          "Facture EDF",
		Amount:         decimal.NewNullDecimal(decimal.RequireFromString("45.5")),
		Date:           &date,
		Category:       "Energie",
		AmountStrategy: "balance-due",
		Source:         "inbox",
		SourceRef:      "/in/edf.txt",
	})
	write(t, Config{FilePath: path}, &api.Bill{ID: "2", Title: "Facture du 19/10/2026", Source: "mbox", SourceRef: "m#1"})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}

	want := [][]string{
		Headers,
		{"1", "2026-01-12", "EDF", "Facture EDF", "45.50", "Energie", "balance-due", "inbox", "/in/edf.txt"},
		{"2", "", "", "Facture du 19/10/2026", "", "", "", "mbox", "m#1"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records:\n got %q\nwant %q", records, want)
	}
}

func TestWriteFrench(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factures.csv")
	cfg := Config{FilePath: path, Delimiter: ';', DecimalComma: true}

	write(t, cfg, &api.Bill{ID: "1", Title: "Carrefour", Amount: decimal.NewNullDecimal(decimal.RequireFromString("1234.5"))})
	write(t, cfg, &api.Bill{ID: "2", Title: "Boulangerie; Dupont", Amount: decimal.NewNullDecimal(decimal.RequireFromString("3"))})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := strings.Join(Headers, ";") + "\n" +
		"1;;;Carrefour;1234,50;;;;\n" +
		"2;;;\"Boulangerie; Dupont\";3,00;;;;\n"
	if string(data) != want {
		t.Errorf("output:\n got %q\nwant %q", data, want)
	}
}

func TestNewRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.csv")
	if err := os.WriteFile(path, []byte("Date,Montant\n2026-01-12,45.50\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{FilePath: path}, nil); err == nil {
		t.Error("New: got nil error for a file with other columns")
	}

	comma := filepath.Join(t.TempDir(), "bills.csv")
	write(t, Config{FilePath: comma})
	if _, err := New(Config{FilePath: comma, Delimiter: ';'}, nil); err == nil {
		t.Error("New: got nil error for a comma file opened with ';'")
	}
}

func TestNewConfig(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("New without path: got nil error")
	}
	path := filepath.Join(t.TempDir(), "bills.csv")
	if _, err := New(Config{FilePath: path, DecimalComma: true}, nil); err == nil {
		t.Error("New with decimal comma and ',' delimiter: got nil error")
	}
}
