// Package batch compiles many independent shader modules concurrently.
//
// Every input gets its own compilation: its own type manager, symbol table,
// IR module and pass instances. Nothing mutable is shared between inputs,
// so the worker pool is the only coordination point.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/google/uuid"

	"github.com/gogpu/wgslcore"
)

// Input is one module to compile.
type Input struct {
	// Name identifies the input in logs and outputs, typically a file path.
	Name   string
	Source string
}

// Output is the compilation of one Input.
type Output struct {
	Name string
	// Session identifies this compilation in logs.
	Session uuid.UUID
	Result  *wgslcore.Result
	Err     error
}

// Compiler compiles batches of inputs.
type Compiler struct {
	// Workers bounds the number of concurrent compilations. Values below one
	// mean one.
	Workers int
	Options wgslcore.CompileOptions
	Logger  *slog.Logger
}

// Compile compiles every input and returns the outputs in input order.
// Inputs not started when ctx is canceled fail with ctx's error.
func (c *Compiler) Compile(ctx context.Context, inputs []Input) []Output {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := max(c.Workers, 1)
	pool := worker.NewDynamicWorkerPool(workers, len(inputs)+1, 1*time.Second)

	out := make([]Output, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		session, err := uuid.NewV7()
		if err != nil {
			session = uuid.New()
		}
		out[i] = Output{Name: in.Name, Session: session}
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				out[i].Result, out[i].Err = c.compileOne(ctx, logger, in, session)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return out
}

func (c *Compiler) compileOne(ctx context.Context, logger *slog.Logger, in Input, session uuid.UUID) (*wgslcore.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.With("session", session.String(), "file", in.Name)
	opts := c.Options
	opts.Logger = log
	start := time.Now()
	res, err := wgslcore.Compile(ctx, in.Source, opts)
	if err != nil {
		log.Warn("compilation failed", "duration", time.Since(start), "error", err)
		return res, err
	}
	log.Info("compiled", "duration", time.Since(start))
	return res, nil
}
