// Package mbox provides a plugin wrapper for the mbox archive reader.
package mbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/extract"
	mboxreader "github.com/ArionMiles/billscan/pkg/reader/mbox"
)

// Plugin implements the ReaderPlugin interface for mbox archives.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return mboxreader.SourceName
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Extract bills from OCR text mailed into an mbox archive"
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
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the mbox file",
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
		"required": []string{"path"},
	}
}

// Config represents the mbox reader configuration.
type Config struct {
	Path       string         `json:"path"`
	Categories api.Categories `json:"categories,omitempty"`
	Locale     string         `json:"locale,omitempty"`
}

// NewReader creates a new mbox reader instance.
func (p *Plugin) NewReader(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling mbox config: %w", err)
	}
	if cfg.Path == "" {
		return nil, errors.New("path is required")
	}

	extractor, err := extract.ForLocale(cfg.Locale)
	if err != nil {
		return nil, err
	}

	return mboxreader.New(mboxreader.Config{
		Path:       cfg.Path,
		Categories: cfg.Categories,
		Extractor:  extractor,
	}, logger)
}
