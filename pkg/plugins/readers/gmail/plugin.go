// Package gmail provides a plugin wrapper for the Gmail reader.
package gmail

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/ArionMiles/billscan/pkg/api"
	"github.com/ArionMiles/billscan/pkg/extract"
	gmailreader "github.com/ArionMiles/billscan/pkg/reader/gmail"
)

// Plugin implements the ReaderPlugin interface for Gmail.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return gmailreader.SourceName
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Extract bills from OCR text mailed to a Gmail inbox"
}

// RequiredScopes returns the OAuth scopes needed by this plugin.
// Modify covers reading messages and removing the UNREAD label.
func (p *Plugin) RequiredScopes() []string {
	return []string{
		gmailapi.GmailModifyScope,
	}
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Gmail search query selecting bill messages",
				"default":     gmailreader.DefaultQuery,
			},
			"interval": map[string]any{
				"type":        "integer",
				"description": "Seconds between searches (default: 10)",
				"default":     10,
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
	}
}

// Config represents the Gmail reader configuration.
type Config struct {
	Query      string         `json:"query,omitempty"`
	Interval   int            `json:"interval,omitempty"` // in seconds
	Categories api.Categories `json:"categories,omitempty"`
	Locale     string         `json:"locale,omitempty"`
}

// NewReader creates a new Gmail reader instance.
func (p *Plugin) NewReader(httpClient *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling gmail config: %w", err)
	}
	if httpClient == nil {
		return nil, errors.New("gmail reader needs an authorized http client, run `billscan setup`")
	}

	extractor, err := extract.ForLocale(cfg.Locale)
	if err != nil {
		return nil, err
	}

	return gmailreader.New(httpClient, gmailreader.Config{
		Query:      cfg.Query,
		Interval:   time.Duration(cfg.Interval) * time.Second,
		Categories: cfg.Categories,
		Extractor:  extractor,
	}, logger)
}
