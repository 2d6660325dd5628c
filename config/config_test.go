package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	passes, err := cfg.Pipeline()
	require.NoError(t, err)
	require.Len(t, passes, 3)
	assert.Equal(t, "var_for_dynamic_index", passes[0].Name)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
passes: [std140, builtin_polyfill, pixel_local]
polyfill:
  count_leading_zeros: true
pixel_local:
  attachments: {0: 2, 1: 3}
workers: 8
log_level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"std140", "builtin_polyfill", "pixel_local"}, cfg.Passes)
	assert.True(t, cfg.Polyfill.CountLeadingZeros)
	assert.True(t, cfg.Polyfill.ClampInt, "unset keys keep their defaults")
	assert.Equal(t, map[int]int{0: 2, 1: 3}, cfg.PixelLocal.Attachments)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	require.NoError(t, Validate(cfg))

	opts := cfg.PipelineOptions()
	assert.True(t, opts.Polyfill.CountLeadingZeros)
	assert.Equal(t, 3, opts.PixelLocal.Attachments[1])
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("passes: [std140]\nworker: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field worker not found")
}

func TestValidateReportsProblems(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
		want string
	}{
		{"unknown pass", func(c *Config) { c.Passes = []string{"std140", "inline"} }, "passes.1"},
		{"duplicate pass", func(c *Config) { c.Passes = []string{"std140", "std140"} }, `"std140" is listed more than once`},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative attachment", func(c *Config) { c.PixelLocal.Attachments = map[int]int{0: -1} }, "attachments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			err := Validate(cfg)
			var cerr *Error
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Contains(t, cerr.Error(), tt.want)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPasses, " pixel_local, ,std140 ")
	t.Setenv(EnvWorkers, "2")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvPolyfills, "saturate,count_trailing_zeros")

	cfg := Default()
	ApplyEnv(cfg)
	assert.Equal(t, []string{"pixel_local", "std140"}, cfg.Passes)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
	assert.Equal(t, Polyfill{Saturate: true, CountTrailingZeros: true}, cfg.Polyfill)
}

func TestApplyEnvSeesLaterChanges(t *testing.T) {
	t.Setenv(EnvWorkers, "2")
	cfg := Default()
	ApplyEnv(cfg)
	require.Equal(t, 2, cfg.Workers)

	t.Setenv(EnvWorkers, "7")
	cfg = Default()
	ApplyEnv(cfg)
	assert.Equal(t, 7, cfg.Workers)
}

func TestApplyEnvUnsetLeavesConfig(t *testing.T) {
	for _, name := range []string{EnvPasses, EnvWorkers, EnvLogLevel, EnvPolyfills} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	cfg := Default()
	ApplyEnv(cfg)
	assert.Equal(t, Default(), cfg)
}

func TestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wgslc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("passes: [std140]\nworkers: 1\n"), 0o644))
	t.Setenv(EnvWorkers, "3")

	cfg, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"std140"}, cfg.Passes)
	assert.Equal(t, 3, cfg.Workers)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("passes: [nope]\n"), 0o644))
	_, err = Resolve(bad)
	var cerr *Error
	assert.True(t, errors.As(err, &cerr))
}
