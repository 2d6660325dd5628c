package config

import (
	"strings"

	"github.com/xyproto/env/v2"
)

// Environment variables read by ApplyEnv.
const (
	EnvPasses   = "WGSLCORE_PASSES"
	EnvWorkers  = "WGSLCORE_WORKERS"
	EnvLogLevel = "WGSLCORE_LOG_LEVEL"
	// EnvPolyfills is a comma separated list of polyfill names that replaces
	// the polyfill selection, e.g. "clamp_int,saturate".
	EnvPolyfills = "WGSLCORE_POLYFILLS"
)

// ApplyEnv overrides fields of c from the environment. Unset variables
// leave the field alone.
func ApplyEnv(c *Config) {
	// env caches the environment on first use; reread it so later calls see
	// variables set since.
	env.Load()
	if env.Has(EnvPasses) {
		c.Passes = splitList(env.Str(EnvPasses))
	}
	c.Workers = env.Int(EnvWorkers, c.Workers)
	c.LogLevel = env.Str(EnvLogLevel, c.LogLevel)
	if env.Has(EnvPolyfills) {
		c.Polyfill = Polyfill{}
		for _, name := range splitList(env.Str(EnvPolyfills)) {
			switch name {
			case "clamp_int":
				c.Polyfill.ClampInt = true
			case "count_leading_zeros":
				c.Polyfill.CountLeadingZeros = true
			case "count_trailing_zeros":
				c.Polyfill.CountTrailingZeros = true
			case "extract_bits":
				c.Polyfill.ExtractBits = true
			case "insert_bits":
				c.Polyfill.InsertBits = true
			case "saturate":
				c.Polyfill.Saturate = true
			}
		}
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
