// Package inbox provides a plugin wrapper for the OCR inbox reader.
package inbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/extract"
	inboxreader "github.com/ArionMiles/billscan/pkg/reader/inbox"
)

// Plugin implements the ReaderPlugin interface for a directory of OCR text files.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return inboxreader.SourceName
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Extract bills from OCR text files dropped into a directory"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
// The inbox reader only touches the local filesystem.
func (p *Plugin) RequiredScopes() []string {
	return []string{}
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dir": map[string]any{
				"type":        "string",
				"description": "Directory scanned for *.txt files",
			},
			"processedDir": map[string]any{
				"type":        "string",
				"description": "Where stored files are moved (default: <dir>/processed)",
			},
			"interval": map[string]any{
				"type":        "integer",
				"description": "Seconds between scans (default: 10)",
				"default":     10,
			},
			"once": map[string]any{
				"type":        "boolean",
				"description": "Scan a single time and exit once every bill is stored",
				"default":     false,
			},
			"categories": map[string]any{
				"type":                 "object",
				"description":          "Provider name to category mapping",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"locale": map[string]any{
				"type":        "string",
				"description": "Invoice vocabulary",
				"default":     "fr",
				"enum":        []string{"fr"},
			},
		},
		"required": []string{"dir"},
	}
}

// Config represents the inbox reader configuration.
type Config struct {
	Dir          string         `json:"dir"`
	ProcessedDir string         `json:"processedDir,omitempty"`
	Interval     int            `json:"interval,omitempty"` // in seconds
	Once         bool           `json:"once,omitempty"`
	Categories   api.Categories `json:"categories,omitempty"`
	Locale       string         `json:"locale,omitempty"`
}

// NewReader creates a new inbox reader instance.
// Note: httpClient is ignored.
func (p *Plugin) NewReader(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling inbox config: %w", err)
	}
	if cfg.Dir == "" {
		return nil, errors.New("dir is required")
	}

	extractor, err := extract.ForLocale(cfg.Locale)
	if err != nil {
		return nil, err
	}

	return inboxreader.New(inboxreader.Config{
		Dir:          cfg.Dir,
		ProcessedDir: cfg.ProcessedDir,
		Interval:     time.Duration(cfg.Interval) * time.Second,
		Once:         cfg.Once,
		Categories:   cfg.Categories,
		Extractor:    extractor,
	}, logger)
}
