// Package xlsx provides a plugin wrapper for the Excel workbook writer.
package xlsx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/billscan/pkg/api"
	xlsxwriter "github.com/ArionMiles/billscan/pkg/writer/xlsx"
)

// Plugin implements the WriterPlugin interface for XLSX workbooks.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "xlsx"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Append bills to an Excel workbook"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
func (p *Plugin) RequiredScopes() []string {
	return []string{}
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filePath": map[string]any{
				"type":        "string",
				"description": "Path to the output workbook",
				"default":     "bills.xlsx",
			},
			"sheet": map[string]any{
				"type":        "string",
				"description": "Worksheet name",
				"default":     xlsxwriter.DefaultSheet,
			},
			"batchSize": map[string]any{
				"type":        "integer",
				"description": "Number of bills to buffer before saving (default: 10)",
				"default":     10,
			},
			"flushInterval": map[string]any{
				"type":        "integer",
				"description": "Interval in seconds between automatic flushes (default: 30)",
				"default":     30,
			},
		},
		"required": []string{"filePath"},
	}
}

// Config represents the XLSX writer configuration.
type Config struct {
	FilePath      string `json:"filePath"`
	Sheet         string `json:"sheet,omitempty"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"` // in seconds
}

// NewWriter creates a new XLSX writer instance.
func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling xlsx config: %w", err)
	}
	if cfg.FilePath == "" {
		return nil, errors.New("filePath is required")
	}

	return xlsxwriter.New(xlsxwriter.Config(cfg), logger)
}
