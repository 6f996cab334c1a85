package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/billscan/pkg/api"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := parseLogLevel(tc.in); got != tc.want {
				t.Errorf("level: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg := DefaultConfig()
	if cfg.Level != slog.LevelDebug {
		t.Errorf("level: got %v, want debug", cfg.Level)
	}
	if !cfg.JSON {
		t.Error("json: got false, want true")
	}

	if cfg.MaxText != DefaultMaxText {
		t.Errorf("max text: got %d, want %d", cfg.MaxText, DefaultMaxText)
	}

	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_MAX_TEXT", "0")
	cfg = DefaultConfig()
	if cfg.JSON {
		t.Error("json: got true for text format")
	}
	if cfg.MaxText != 0 {
		t.Errorf("max text: got %d, want 0", cfg.MaxText)
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup(Config{Level: slog.LevelWarn, JSON: true, Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", "source_ref", "edf.txt")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "dropped") {
		t.Errorf("info record written below warn level: %s", out)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(out), &record); err != nil {
		t.Fatalf("output is not one JSON record: %v (%s)", err, out)
	}
	if record["msg"] != "kept" || record["source_ref"] != "edf.txt" {
		t.Errorf("record: got %v", record)
	}
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("output is not one JSON record: %v (%s)", err, buf.String())
	}
	return record
}

func TestSetupTruncatesText(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup(Config{Level: slog.LevelInfo, JSON: true, MaxText: 10, Output: &buf})

	logger.Info("no amount", "text", "ÉLECTRICITÉ DE FRANCE\nSOLDE A PAYER", "path", "/très/long/chemin/edf.txt")

	record := decodeRecord(t, &buf)
	if record["text"] != "ÉLECTRICIT…" {
		t.Errorf("text: got %q, want %q", record["text"], "ÉLECTRICIT…")
	}
	if record["path"] != "/très/long/chemin/edf.txt" {
		t.Errorf("path: got %q, want it untouched", record["path"])
	}
}

func TestBill(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup(Config{Level: slog.LevelInfo, JSON: true, Output: &buf})

	date := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	logger.Info("extracted bill", Bill(&api.Bill{
		SourceRef:      "edf.txt",
		Amount:         decimal.NewNullDecimal(decimal.RequireFromString("45.5")),
		AmountStrategy: "balance-due",
		Date:           &date,
		Provider:       "EDF",
	}))

	bill, ok := decodeRecord(t, &buf)["bill"].(map[string]any)
	if !ok {
		t.Fatalf("bill group missing: %s", buf.String())
	}
	want := map[string]any{
		"source_ref": "edf.txt",
		"amount":     "45.50",
		"strategy":   "balance-due",
		"date":       "2026-03-05",
		"provider":   "EDF",
	}
	if len(bill) != len(want) {
		t.Errorf("bill: got %v, want %v", bill, want)
	}
	for k, v := range want {
		if bill[k] != v {
			t.Errorf("bill[%s]: got %v, want %v", k, bill[k], v)
		}
	}

	buf.Reset()
	logger.Info("extracted bill", Bill(&api.Bill{SourceRef: "blank.txt"}))
	bill, _ = decodeRecord(t, &buf)["bill"].(map[string]any)
	if len(bill) != 1 || bill["source_ref"] != "blank.txt" {
		t.Errorf("empty bill: got %v, want source_ref only", bill)
	}
}
