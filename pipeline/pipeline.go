// Package pipeline runs IR transforms in a fixed order.
//
// Every pass receives a module that passes ir.Validate and must hand over a
// module that still passes it. The Engine checks this after each executed
// pass; a failed checkpoint aborts the run with a *diag.InternalError naming
// the pass, since the program being compiled cannot cause it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/ir"
)

// Pass is one named transform.
type Pass struct {
	Name string
	// ShouldRun reports whether the pass has anything to do on the module.
	// A nil ShouldRun always runs the pass.
	ShouldRun func(*ir.Module) bool
	Run       func(*ir.Module) error
}

// PassResult records what happened to one pass.
type PassResult struct {
	Name     string
	Skipped  bool
	Duration time.Duration
}

// Report lists the passes of a run in execution order.
type Report struct {
	Passes []PassResult
}

// Ran returns the names of the passes that executed.
func (r *Report) Ran() []string {
	var out []string
	for _, p := range r.Passes {
		if !p.Skipped {
			out = append(out, p.Name)
		}
	}
	return out
}

// Engine runs Passes in order.
type Engine struct {
	Passes []Pass
	// Logger receives pass progress. Nil discards it.
	Logger *slog.Logger
}

// New returns an engine running passes.
func New(logger *slog.Logger, passes ...Pass) *Engine {
	return &Engine{Passes: passes, Logger: logger}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Run applies the passes to m. The module is validated before the first
// pass and after every pass that runs. ctx is only consulted between
// passes.
//
// The returned report covers the passes attempted so far, also on error.
func (e *Engine) Run(ctx context.Context, m *ir.Module) (*Report, error) {
	log := e.logger()
	rep := &Report{}
	if err := ir.Validate(m); err != nil {
		return rep, checkpointError("input", "module is invalid before the first pass", err)
	}
	for _, p := range e.Passes {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if p.ShouldRun != nil && !p.ShouldRun(m) {
			log.Debug("pass skipped", "pass", p.Name)
			rep.Passes = append(rep.Passes, PassResult{Name: p.Name, Skipped: true})
			continue
		}

		log.Debug("pass started", "pass", p.Name)
		start := time.Now()
		err := p.Run(m)
		elapsed := time.Since(start)
		rep.Passes = append(rep.Passes, PassResult{Name: p.Name, Duration: elapsed})
		if err != nil {
			log.Error("pass failed", "pass", p.Name, "duration", elapsed, "error", err)
			var ie *diag.InternalError
			if errors.As(err, &ie) {
				return rep, err
			}
			return rep, fmt.Errorf("%s: %w", p.Name, err)
		}
		if err := ir.Validate(m); err != nil {
			log.Error("checkpoint failed", "pass", p.Name, "error", err)
			return rep, checkpointError(p.Name, "module is invalid after "+p.Name, err)
		}
		log.Info("pass finished", "pass", p.Name, "duration", elapsed)
	}
	return rep, nil
}

func checkpointError(pass, what string, err error) *diag.InternalError {
	ie := diag.WrapInternal(pass, err)
	ie.Message = what + ": " + ie.Message
	return ie
}
