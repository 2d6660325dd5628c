package config

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/gogpu/wgslcore/pipeline"
)

const schemaTemplate = `
#Pass: %s

#Config: {
	passes: [...#Pass]
	polyfill: {
		clamp_int:            bool
		count_leading_zeros:  bool
		count_trailing_zeros: bool
		extract_bits:         bool
		insert_bits:          bool
		saturate:             bool
	}
	pixel_local: attachments: [=~"^[0-9]+$"]: int & >=0
	workers:   int & >=1 & <=256
	log_level: "debug" | "info" | "warn" | "error"
}
`

// schemaSource returns the CUE schema with the registered pass names.
func schemaSource() string {
	names := pipeline.Names()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return fmt.Sprintf(schemaTemplate, strings.Join(quoted, " | "))
}

// Error lists the schema violations of a configuration.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid configuration:\n  " + strings.Join(e.Problems, "\n  ")
}

// view is the shape of Config the schema sees.
type view struct {
	Passes   []string `json:"passes"`
	Polyfill struct {
		ClampInt           bool `json:"clamp_int"`
		CountLeadingZeros  bool `json:"count_leading_zeros"`
		CountTrailingZeros bool `json:"count_trailing_zeros"`
		ExtractBits        bool `json:"extract_bits"`
		InsertBits         bool `json:"insert_bits"`
		Saturate           bool `json:"saturate"`
	} `json:"polyfill"`
	PixelLocal struct {
		Attachments map[string]int `json:"attachments"`
	} `json:"pixel_local"`
	Workers  int    `json:"workers"`
	LogLevel string `json:"log_level"`
}

func newView(c *Config) view {
	var v view
	v.Passes = append([]string{}, c.Passes...)
	v.Polyfill.ClampInt = c.Polyfill.ClampInt
	v.Polyfill.CountLeadingZeros = c.Polyfill.CountLeadingZeros
	v.Polyfill.CountTrailingZeros = c.Polyfill.CountTrailingZeros
	v.Polyfill.ExtractBits = c.Polyfill.ExtractBits
	v.Polyfill.InsertBits = c.Polyfill.InsertBits
	v.Polyfill.Saturate = c.Polyfill.Saturate
	v.PixelLocal.Attachments = make(map[string]int, len(c.PixelLocal.Attachments))
	for k, a := range c.PixelLocal.Attachments {
		// Negative member indices fail the label pattern.
		v.PixelLocal.Attachments[strconv.Itoa(k)] = a
	}
	v.Workers = c.Workers
	v.LogLevel = c.LogLevel
	return v
}

// Validate checks c against the configuration schema.
func Validate(c *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource(), cue.Filename("config.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling configuration schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	val := def.Unify(ctx.Encode(newView(c)))

	var problems []string
	if err := val.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
	}
	seen := make(map[string]bool)
	for _, p := range c.Passes {
		if seen[p] {
			problems = append(problems, fmt.Sprintf("passes: %q is listed more than once", p))
		}
		seen[p] = true
	}
	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}
