// Package config loads billscan settings from an optional JSON or YAML file and the environment.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// ClientSecretFile is the default path to the Google OAuth credentials JSON file.
	ClientSecretFile = "data/client_secret.json"
	// TokenFile is the default path of the saved OAuth token.
	TokenFile = "data/token.json"

	DefaultReader = "inbox"
	DefaultWriter = "json"
	DefaultLocale = "fr"
)

const (
	readerConfigKey = "BILLSCAN_READER_CONFIG"
	writerConfigKey = "BILLSCAN_WRITER_CONFIG"
)

// Config holds the application configuration.
type Config struct {
	// ReaderPlugin is the name of the reader plugin to use.
	// Environment variable: BILLSCAN_READER
	ReaderPlugin string `koanf:"BILLSCAN_READER"`

	// WriterPlugin is the name of the writer plugin to use.
	// Environment variable: BILLSCAN_WRITER
	WriterPlugin string `koanf:"BILLSCAN_WRITER"`

	// ReaderConfig is the JSON configuration for the reader plugin.
	// Environment variable: BILLSCAN_READER_CONFIG (raw JSON), or an object in the config file.
	ReaderConfig json.RawMessage `koanf:"-"`

	// WriterConfig is the JSON configuration for the writer plugin.
	// Environment variable: BILLSCAN_WRITER_CONFIG (raw JSON), or an object in the config file.
	WriterConfig json.RawMessage `koanf:"-"`

	// Locale selects the invoice vocabulary when the reader config names none.
	// Environment variable: BILLSCAN_LOCALE
	Locale string `koanf:"BILLSCAN_LOCALE"`

	// ClientSecretFile is the Google OAuth client secret, needed by the sheets writer.
	// Environment variable: BILLSCAN_CLIENT_SECRET
	ClientSecretFile string `koanf:"BILLSCAN_CLIENT_SECRET"`

	// TokenFile stores the OAuth token.
	// Environment variable: BILLSCAN_TOKEN_FILE
	TokenFile string `koanf:"BILLSCAN_TOKEN_FILE"`
}

// Load reads the JSON or YAML file at path, when path is not empty, then overlays
// environment variables. Unset values fall back to defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	var err error
	if cfg.ReaderConfig, err = rawConfig(k, readerConfigKey); err != nil {
		return Config{}, err
	}
	if cfg.WriterConfig, err = rawConfig(k, writerConfigKey); err != nil {
		return Config{}, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

// rawConfig returns a plugin config as JSON. Environment variables carry it
// as a string, config files as a nested object.
func rawConfig(k *koanf.Koanf, key string) (json.RawMessage, error) {
	switch v := k.Get(key).(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("%s is not valid JSON", key)
		}
		return json.RawMessage(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", key, err)
		}
		return data, nil
	}
}

func (c *Config) applyDefaults() {
	if c.ReaderPlugin == "" {
		c.ReaderPlugin = DefaultReader
	}
	if c.WriterPlugin == "" {
		c.WriterPlugin = DefaultWriter
	}
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	if c.ClientSecretFile == "" {
		c.ClientSecretFile = ClientSecretFile
	}
	if c.TokenFile == "" {
		c.TokenFile = TokenFile
	}
	if len(c.ReaderConfig) == 0 {
		c.ReaderConfig = json.RawMessage(`{}`)
	}
	if len(c.WriterConfig) == 0 {
		c.WriterConfig = json.RawMessage(`{}`)
	}
}

// ReaderConfigWithLocale returns the reader config with a "locale" key added
// when the reader config is an object that does not set one.
func (c Config) ReaderConfigWithLocale() (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(c.ReaderConfig, &obj); err != nil {
		return nil, fmt.Errorf("parsing reader config: %w", err)
	}
	if obj == nil {
		obj = make(map[string]json.RawMessage)
	}
	if _, ok := obj["locale"]; ok || c.Locale == "" {
		return c.ReaderConfig, nil
	}

	locale, err := json.Marshal(c.Locale)
	if err != nil {
		return nil, err
	}
	obj["locale"] = locale
	return json.Marshal(obj)
}
