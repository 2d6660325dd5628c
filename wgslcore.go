// Package wgslcore is the front-end core of a WGSL shader compiler.
//
// It takes WGSL source through parsing, dependency analysis, semantic
// resolution and validation, lowers the result to an SSA-style IR and runs a
// configurable sequence of IR transforms on it. The transformed IR is handed
// to backends as a read-only structure; its text form is available through
// ir.Disassemble.
//
// Example usage:
//
//	res, err := wgslcore.Compile(ctx, source, wgslcore.DefaultOptions())
//	if err != nil {
//	    fmt.Print(res.Diagnostics.FormatAll(source))
//	    log.Fatal(err)
//	}
//	fmt.Print(res.Text)
//
// The individual stages are available as Parse, Resolve and Lower.
package wgslcore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/config"
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/irgen"
	"github.com/gogpu/wgslcore/pipeline"
	"github.com/gogpu/wgslcore/resolver"
	"github.com/gogpu/wgslcore/wgsl"
)

// CompileOptions configures compilation.
type CompileOptions struct {
	// Passes are the IR transforms to run after lowering, in order.
	Passes []pipeline.Pass
	// Logger receives pipeline progress. Nil discards it.
	Logger *slog.Logger
}

// DefaultOptions returns the options of the built-in configuration.
func DefaultOptions() CompileOptions {
	opts, err := OptionsFromConfig(config.Default())
	if err != nil {
		// The default configuration only names registered passes.
		panic(err)
	}
	return opts
}

// OptionsFromConfig returns the options described by cfg.
func OptionsFromConfig(cfg *config.Config) (CompileOptions, error) {
	passes, err := cfg.Pipeline()
	if err != nil {
		return CompileOptions{}, err
	}
	return CompileOptions{Passes: passes}, nil
}

// Result holds every stage's output of a compilation. Stages after a
// failure are nil.
type Result struct {
	AST   *ast.Module
	Graph *resolver.DependencyGraph
	Info  *resolver.Info
	IR    *ir.Module
	// Text is the disassembled IR after all passes.
	Text string
	// Diagnostics collects the warnings and errors of every stage.
	Diagnostics diag.List
	Report      *pipeline.Report
}

// Compile runs the whole pipeline on source.
//
// User errors in the program are returned as the diag.List of
// Result.Diagnostics. Failures inside the compiler are *diag.InternalError.
// The returned Result is never nil.
func Compile(ctx context.Context, source string, opts CompileOptions) (*Result, error) {
	res := &Result{}

	mod, diags := Parse(source)
	res.AST = mod
	res.Diagnostics.Append(diags)
	if diags.ContainsErrors() {
		return res, res.Diagnostics.Err()
	}

	graph, info, diags := Resolve(mod)
	res.Graph, res.Info = graph, info
	res.Diagnostics.Append(diags)
	if diags.ContainsErrors() {
		return res, res.Diagnostics.Err()
	}

	m, err := Lower(mod, info)
	if err != nil {
		return res, err
	}
	res.IR = m

	engine := pipeline.New(opts.Logger, opts.Passes...)
	rep, err := engine.Run(ctx, m)
	res.Report = rep
	if err != nil {
		return res, err
	}
	res.Text = ir.Disassemble(m)
	return res, nil
}

// Parse parses WGSL source into an AST.
func Parse(source string) (*ast.Module, diag.List) {
	return wgsl.Parse(source)
}

// Resolve builds the dependency graph of mod, resolves it and validates
// the result. Later steps are skipped once one reports errors.
func Resolve(mod *ast.Module) (*resolver.DependencyGraph, *resolver.Info, diag.List) {
	var all diag.List
	graph, diags := resolver.Build(mod)
	all.Append(diags)
	if diags.ContainsErrors() {
		return graph, nil, all
	}
	info, diags := resolver.Resolve(mod, graph)
	all.Append(diags)
	if diags.ContainsErrors() {
		return graph, info, all
	}
	all.Append(resolver.Validate(mod, info))
	return graph, info, all
}

// Lower converts a resolved module to IR and validates it.
func Lower(mod *ast.Module, info *resolver.Info) (*ir.Module, error) {
	m, err := irgen.Generate(mod, info)
	if err != nil {
		return nil, fmt.Errorf("lowering error: %w", err)
	}
	if err := ir.Validate(m); err != nil {
		return nil, diag.WrapInternal("irgen", err)
	}
	return m, nil
}
