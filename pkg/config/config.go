// Package config loads midiroll settings from YAML
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/james-see/midiroll/pkg/pianoroll"
)

// QuantizeConfig controls MIDI to piano-roll conversion
type QuantizeConfig struct {
	Div   int   `yaml:"div"`
	Pedal *bool `yaml:"pedal,omitempty"`
}

// DatasetConfig controls dataset builds
type DatasetConfig struct {
	Extensions []string `yaml:"extensions"`
	Recursive  bool     `yaml:"recursive"`
	MinSteps   int      `yaml:"min_steps,omitempty"`
	MaxSteps   int      `yaml:"max_steps,omitempty"`
	Sidecar    string   `yaml:"sidecar,omitempty"` // sidecar metadata extension, e.g. ".yaml"
}

// ServerConfig controls the API server
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the main configuration structure
type Config struct {
	Quantize QuantizeConfig `yaml:"quantize"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	pedal := true
	return &Config{
		Quantize: QuantizeConfig{
			Div:   pianoroll.DefaultDiv,
			Pedal: &pedal,
		},
		Dataset: DatasetConfig{
			Extensions: []string{".mid"},
		},
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the config from path, or returns defaults if it does not exist.
// Missing fields keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("malformed config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for values the converters cannot use
func (c *Config) Validate() error {
	if c.Quantize.Div <= 0 {
		return fmt.Errorf("quantize.div must be positive, got %d", c.Quantize.Div)
	}
	if len(c.Dataset.Extensions) == 0 {
		return errors.New("dataset.extensions must not be empty")
	}
	if c.Dataset.MaxSteps > 0 && c.Dataset.MaxSteps < c.Dataset.MinSteps {
		return fmt.Errorf("dataset.max_steps %d is below min_steps %d", c.Dataset.MaxSteps, c.Dataset.MinSteps)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Options returns the quantization options described by the config
func (c *Config) Options() pianoroll.Options {
	opts := pianoroll.Options{Div: c.Quantize.Div, Pedal: true}
	if c.Quantize.Pedal != nil {
		opts.Pedal = *c.Quantize.Pedal
	}
	return opts
}

// Save writes the config to path as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
