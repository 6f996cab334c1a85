package config

import (
	"path/filepath"
	"strings"

	kJson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// yamlParser lets koanf read YAML config files.
type yamlParser struct{}

func (yamlParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]any)
	}
	return out, nil
}

func (yamlParser) Marshal(m map[string]any) ([]byte, error) {
	return yaml.Marshal(m)
}

// parserFor picks the config file parser from the file extension.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlParser{}
	default:
		return kJson.Parser()
	}
}
