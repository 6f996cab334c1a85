// Package csv registers the CSV file writer.
package csv

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/ArionMiles/billscan/pkg/api"
	csvwriter "github.com/ArionMiles/billscan/pkg/writer/csv"
)

// Plugin is the "csv" writer plugin.
type Plugin struct{}

func (p *Plugin) Name() string { return "csv" }

func (p *Plugin) Description() string {
	return "Append bills to a CSV file, optionally in French spreadsheet format"
}

func (p *Plugin) RequiredScopes() []string { return nil }

func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filePath": map[string]any{
				"type":        "string",
				"description": "Path to the output CSV file",
				"default":     "bills.csv",
			},
			"delimiter": map[string]any{
				"type":        "string",
				"description": "Field separator; French spreadsheets expect \";\"",
				"enum":        []string{",", ";", "\t"},
				"default":     ",",
			},
			"decimalComma": map[string]any{
				"type":        "boolean",
				"description": "Write amounts as 45,50 instead of 45.50 (needs a delimiter other than \",\")",
				"default":     false,
			},
			"batchSize": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": 10,
			},
			"flushInterval": map[string]any{
				"type":        "integer",
				"description": "Seconds between automatic flushes",
				"minimum":     1,
				"default":     30,
			},
		},
		"required": []string{"filePath"},
	}
}

// Config is the JSON config of the csv plugin.
type Config struct {
	FilePath      string `json:"filePath"`
	Delimiter     string `json:"delimiter,omitempty"`
	DecimalComma  bool   `json:"decimalComma,omitempty"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"`
}

func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling csv config: %w", err)
	}
	if cfg.FilePath == "" {
		return nil, errors.New("filePath is required")
	}

	var delimiter rune
	if cfg.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(cfg.Delimiter)
		if size != len(cfg.Delimiter) {
			return nil, fmt.Errorf("delimiter %q must be a single character", cfg.Delimiter)
		}
		delimiter = r
	}

	return csvwriter.New(csvwriter.Config{
		FilePath:      cfg.FilePath,
		Delimiter:     delimiter,
		DecimalComma:  cfg.DecimalComma,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger)
}
