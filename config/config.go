// Package config loads the compiler configuration: the pass sequence and the
// pass options.
//
// A configuration is read from YAML, overridden from WGSLCORE_* environment
// variables and checked against a CUE schema before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/wgslcore/ir/transform"
	"github.com/gogpu/wgslcore/pipeline"
)

// Config is the compiler configuration.
type Config struct {
	// Passes lists the transforms to run, in order.
	Passes     []string   `yaml:"passes"`
	Polyfill   Polyfill   `yaml:"polyfill"`
	PixelLocal PixelLocal `yaml:"pixel_local"`
	// Workers bounds the number of modules compiled concurrently.
	Workers  int    `yaml:"workers"`
	LogLevel string `yaml:"log_level"`
}

// Polyfill selects the builtin polyfills.
type Polyfill struct {
	ClampInt           bool `yaml:"clamp_int"`
	CountLeadingZeros  bool `yaml:"count_leading_zeros"`
	CountTrailingZeros bool `yaml:"count_trailing_zeros"`
	ExtractBits        bool `yaml:"extract_bits"`
	InsertBits         bool `yaml:"insert_bits"`
	Saturate           bool `yaml:"saturate"`
}

// PixelLocal configures the pixel_local lowering.
type PixelLocal struct {
	// Attachments maps pixel-local member indices to attachment indices.
	Attachments map[int]int `yaml:"attachments"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Passes: []string{"var_for_dynamic_index", "std140", "builtin_polyfill"},
		Polyfill: Polyfill{
			ClampInt:    true,
			ExtractBits: true,
			InsertBits:  true,
			Saturate:    true,
		},
		PixelLocal: PixelLocal{Attachments: map[int]int{}},
		Workers:    4,
		LogLevel:   "info",
	}
}

// Parse decodes a YAML configuration. Keys absent from data keep their
// default values; unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.PixelLocal.Attachments == nil {
		cfg.PixelLocal.Attachments = map[int]int{}
	}
	return cfg, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve returns the effective configuration: the file at path, or the
// defaults when path is empty, with environment overrides applied and the
// result validated.
func Resolve(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level returns the configured log level. Unknown names map to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// PipelineOptions returns the pass options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Polyfill: transform.BuiltinPolyfill{
			ClampInt:           c.Polyfill.ClampInt,
			CountLeadingZeros:  c.Polyfill.CountLeadingZeros,
			CountTrailingZeros: c.Polyfill.CountTrailingZeros,
			ExtractBits:        c.Polyfill.ExtractBits,
			InsertBits:         c.Polyfill.InsertBits,
			Saturate:           c.Polyfill.Saturate,
		},
		PixelLocal: transform.PixelLocal{Attachments: c.PixelLocal.Attachments},
	}
}

// Pipeline builds the configured passes.
func (c *Config) Pipeline() ([]pipeline.Pass, error) {
	return pipeline.Build(c.Passes, c.PipelineOptions())
}
