package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/pdfpipe/pipe"
)

// Config is the optional YAML configuration file. Command-line flags
// override it.
type Config struct {
	XRefFormat       string `yaml:"xref_format"`
	CompressionLevel int    `yaml:"compression_level"`
	BufferSize       int    `yaml:"buffer_size"`
	LogLevel         string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		XRefFormat:       "auto",
		CompressionLevel: -1,
		BufferSize:       32 * 1024,
		LogLevel:         "warn",
	}
}

// LoadFile reads path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if _, err := pipe.ParseFormat(c.XRefFormat); err != nil {
		errs = append(errs, fmt.Errorf("xref_format: %w", err))
	}
	if c.CompressionLevel < -1 || c.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("compression_level must be between -1 and 9, got %d", c.CompressionLevel))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize))
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

func (c *Config) format() pipe.Format {
	f, _ := pipe.ParseFormat(c.XRefFormat)
	return f
}
