// Package bolt provides a plugin wrapper for the embedded bbolt writer.
package bolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/billscan/pkg/api"
	boltwriter "github.com/ArionMiles/billscan/pkg/writer/bolt"
)

// Plugin implements the WriterPlugin interface for a local bbolt database.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "bolt"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Store bills in an embedded key/value database"
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
				"description": "Path to the database file",
				"default":     "data/bills.db",
			},
			"batchSize": map[string]any{
				"type":        "integer",
				"description": "Number of bills to buffer before writing (default: 10)",
				"default":     10,
			},
			"flushInterval": map[string]any{
				"type":        "integer",
				"description": "Interval in seconds between automatic flushes (default: 30)",
				"default":     30,
			},
		},
		"required": []string{"path"},
	}
}

// Config represents the bolt writer configuration.
type Config struct {
	Path          string `json:"path"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"` // in seconds
}

// NewWriter opens the database and returns a writer for it.
func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling bolt config: %w", err)
	}
	if cfg.Path == "" {
		return nil, errors.New("path is required")
	}

	return boltwriter.New(boltwriter.Config(cfg), logger)
}
