// Package json registers the JSON file writer.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ArionMiles/billscan/pkg/api"
	jsonwriter "github.com/ArionMiles/billscan/pkg/writer/json"
)

// Plugin is the "json" writer plugin.
type Plugin struct{}

func (p *Plugin) Name() string { return "json" }

func (p *Plugin) Description() string {
	return "Keep every bill in one JSON array file"
}

func (p *Plugin) RequiredScopes() []string { return nil }

func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filePath": map[string]any{
				"type":        "string",
				"description": "Path to the output JSON file",
				"default":     "bills.json",
			},
			"skipSeen": map[string]any{
				"type":        "boolean",
				"description": "Drop bills whose source file or message is already in the output",
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

// Config is the JSON config of the json plugin.
type Config struct {
	FilePath      string `json:"filePath"`
	SkipSeen      bool   `json:"skipSeen,omitempty"`
	BatchSize     int    `json:"batchSize,omitempty"`
	FlushInterval int    `json:"flushInterval,omitempty"`
}

func (p *Plugin) NewWriter(_ *http.Client, configData json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling json writer config: %w", err)
	}
	if cfg.FilePath == "" {
		return nil, errors.New("filePath is required")
	}

	return jsonwriter.New(jsonwriter.Config{
		FilePath:      cfg.FilePath,
		SkipSeen:      cfg.SkipSeen,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger)
}
