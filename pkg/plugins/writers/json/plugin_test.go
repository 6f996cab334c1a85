package json

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/ArionMiles/billscan/internal/plugins"
)

func TestNewWriterConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bills.json")

	p := &Plugin{}
	if _, err := p.NewWriter(nil, json.RawMessage(`{"filePath": "`+out+`", "batchSize": 5}`), nil); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := p.NewWriter(nil, json.RawMessage(`{"batchSize": 5}`), nil); err == nil {
		t.Error("NewWriter without filePath: got nil error")
	}
	if len(p.RequiredScopes()) != 0 {
		t.Errorf("scopes: got %v, want none", p.RequiredScopes())
	}
}

func TestConfigSchema(t *testing.T) {
	p := &Plugin{}
	if err := plugins.ValidateConfig(p.ConfigSchema(), json.RawMessage(`{"filePath": "bills.json", "skipSeen": true}`)); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := plugins.ValidateConfig(p.ConfigSchema(), json.RawMessage(`{"filePath": "bills.json", "batchSize": 0}`)); err == nil {
		t.Error("zero batch size accepted")
	}
}
