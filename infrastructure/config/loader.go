package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	domainconfig "constellations/domain/config"

	"gopkg.in/yaml.v3"
)

// LoadLayoutConfig reads a YAML layout file and overlays it on the defaults.
// Keys missing from the file keep their default value. An empty path returns
// the defaults.
func LoadLayoutConfig(path string) (*domainconfig.LayoutConfig, error) {
	if path == "" {
		return domainconfig.DefaultLayoutConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout config: %w", err)
	}
	return ParseLayoutConfig(data)
}

// ParseLayoutConfig overlays YAML bytes on the defaults and validates the
// result. Unknown keys are rejected so typos do not pass silently.
func ParseLayoutConfig(data []byte) (*domainconfig.LayoutConfig, error) {
	cfg := domainconfig.DefaultLayoutConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse layout config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MarshalLayoutConfig renders cfg as YAML, for writing a starter file.
func MarshalLayoutConfig(cfg *domainconfig.LayoutConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}
