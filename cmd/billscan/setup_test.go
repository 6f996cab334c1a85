package main

import (
	"reflect"
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/billscan/pkg/config"
)

func TestSetupScopes(t *testing.T) {
	registry, err := newRegistry()
	if err != nil {
		t.Fatalf("newRegistry: %v", err)
	}

	tests := []struct {
		name   string
		reader string
		writer string
		want   []string
	}{
		{"sheets writer", "inbox", "sheets", []string{sheetsapi.SpreadsheetsScope}},
		{"gmail reader", "gmail", "json", []string{gmailapi.GmailModifyScope}},
		{"local plugins ask for everything", "inbox", "csv", []string{gmailapi.GmailModifyScope, sheetsapi.SpreadsheetsScope}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := setupScopes(registry, config.Config{ReaderPlugin: tc.reader, WriterPlugin: tc.writer})
			if err != nil {
				t.Fatalf("setupScopes: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("scopes: got %v, want %v", got, tc.want)
			}
		})
	}

	if _, err := setupScopes(registry, config.Config{ReaderPlugin: "fax", WriterPlugin: "csv"}); err == nil {
		t.Error("unknown reader: got nil error")
	}
}
