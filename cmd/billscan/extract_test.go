package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const edfReceipt = "EDF\nDate : 05/03/2026\nSOLDE A PAYER 12,00 €\n45,50 €"

func TestRunExtractText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edf.txt")
	if err := os.WriteFile(path, []byte(edfReceipt), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runExtract(&out, strings.NewReader(""), "fr", false, []string{path}); err != nil {
		t.Fatalf("runExtract: %v", err)
	}

	for _, want := range []string{
		"title:    Facture EDF",
		"provider: EDF",
		"amount:   45.50 (balance-due)",
		"date:     2026-03-05",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunExtractJSONFromStdin(t *testing.T) {
	var out bytes.Buffer
	stdin := strings.NewReader("Facture du 05/03/2026\n\nMONTANT A PAYER\n23,40")
	if err := runExtract(&out, stdin, "fr", true, []string{"-"}); err != nil {
		t.Fatalf("runExtract: %v", err)
	}

	var got struct {
		File     string `json:"file"`
		Amount   string `json:"amount"`
		Strategy string `json:"amount_strategy"`
		Provider string `json:"provider"`
		Date     string `json:"date"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decoding %q: %v", out.String(), err)
	}
	if got.File != "-" || got.Amount != "23.4" || got.Strategy != "montant" || got.Date != "2026-03-05" {
		t.Errorf("result: got %+v", got)
	}
}

func TestRunExtractErrors(t *testing.T) {
	var out bytes.Buffer
	if err := runExtract(&out, nil, "fr", false, nil); err == nil {
		t.Error("no files: got nil error")
	}
	if err := runExtract(&out, nil, "xx", false, []string{"-"}); err == nil {
		t.Error("unknown locale: got nil error")
	}
	if err := runExtract(&out, nil, "fr", false, []string{filepath.Join(t.TempDir(), "absent.txt")}); err == nil {
		t.Error("missing file: got nil error")
	}
}
