// Package plugins holds the registry of bill readers (OCR text sources) and
// bill writers (stores).
package plugins

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/ArionMiles/billscan/pkg/api"
)

// Plugin is the part shared by readers and writers.
type Plugin interface {
	// Name is the key used in config files ("inbox", "sheets", ...).
	Name() string
	Description() string
	// RequiredScopes lists the OAuth scopes the plugin needs, if any.
	RequiredScopes() []string
	// ConfigSchema is the JSON schema a plugin config must satisfy. Nil
	// accepts any config.
	ConfigSchema() map[string]any
}

// ReaderPlugin builds readers that turn OCR text into bills.
type ReaderPlugin interface {
	Plugin
	NewReader(httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Reader, error)
}

// WriterPlugin builds writers that store bills.
type WriterPlugin interface {
	Plugin
	NewWriter(httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Writer, error)
}

// catalog indexes one kind of plugin by name.
type catalog[P Plugin] struct {
	kind    string
	entries map[string]P
}

func newCatalog[P Plugin](kind string) catalog[P] {
	return catalog[P]{kind: kind, entries: make(map[string]P)}
}

func (c catalog[P]) add(p P) error {
	name := p.Name()
	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("%s plugin %q already registered", c.kind, name)
	}
	c.entries[name] = p
	return nil
}

func (c catalog[P]) get(name string) (P, error) {
	p, exists := c.entries[name]
	if !exists {
		return p, fmt.Errorf("%s plugin %q not found", c.kind, name)
	}
	return p, nil
}

func (c catalog[P]) list() []P {
	out := make([]P, 0, len(c.entries))
	for _, p := range c.entries {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b P) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// prepare looks up name, checks config against its schema and scopes the
// logger to the plugin.
func (c catalog[P]) prepare(name string, config json.RawMessage, logger *slog.Logger) (P, *slog.Logger, error) {
	p, err := c.get(name)
	if err != nil {
		return p, nil, err
	}
	if err := ValidateConfig(p.ConfigSchema(), config); err != nil {
		return p, nil, fmt.Errorf("%s %q: %w", c.kind, name, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return p, logger.With(c.kind, name), nil
}

// Registry manages the available reader and writer plugins.
type Registry struct {
	readers catalog[ReaderPlugin]
	writers catalog[WriterPlugin]
}

func NewRegistry() *Registry {
	return &Registry{
		readers: newCatalog[ReaderPlugin]("reader"),
		writers: newCatalog[WriterPlugin]("writer"),
	}
}

func (r *Registry) RegisterReader(plugin ReaderPlugin) error { return r.readers.add(plugin) }

func (r *Registry) RegisterWriter(plugin WriterPlugin) error { return r.writers.add(plugin) }

func (r *Registry) GetReader(name string) (ReaderPlugin, error) { return r.readers.get(name) }

func (r *Registry) GetWriter(name string) (WriterPlugin, error) { return r.writers.get(name) }

// ListReaders returns all registered reader plugins sorted by name.
func (r *Registry) ListReaders() []ReaderPlugin { return r.readers.list() }

// ListWriters returns all registered writer plugins sorted by name.
func (r *Registry) ListWriters() []WriterPlugin { return r.writers.list() }

// GetAllScopes returns the OAuth scopes a reader/writer pair needs, sorted
// and free of duplicates. Both plugins must be registered.
func (r *Registry) GetAllScopes(readerName, writerName string) ([]string, error) {
	reader, err := r.readers.get(readerName)
	if err != nil {
		return nil, err
	}
	writer, err := r.writers.get(writerName)
	if err != nil {
		return nil, err
	}

	scopes := slices.Concat(reader.RequiredScopes(), writer.RequiredScopes())
	slices.Sort(scopes)
	return slices.Compact(scopes), nil
}

// CreateReader validates config against the plugin schema and creates a
// reader whose logs carry reader=<name>.
func (r *Registry) CreateReader(name string, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Reader, error) {
	plugin, logger, err := r.readers.prepare(name, config, logger)
	if err != nil {
		return nil, err
	}
	return plugin.NewReader(httpClient, config, logger)
}

// CreateWriter validates config against the plugin schema and creates a
// writer whose logs carry writer=<name>.
func (r *Registry) CreateWriter(name string, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.Writer, error) {
	plugin, logger, err := r.writers.prepare(name, config, logger)
	if err != nil {
		return nil, err
	}
	return plugin.NewWriter(httpClient, config, logger)
}
