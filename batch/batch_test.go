package batch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore"
)

func shader(i int) string {
	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read_write> out : array<u32, 4>;

@compute @workgroup_size(1)
fn main() {
  out[0] = %du;
}
`, i)
}

func TestCompilePreservesInputOrder(t *testing.T) {
	var inputs []Input
	for i := range 16 {
		inputs = append(inputs, Input{Name: fmt.Sprintf("s%d.wgsl", i), Source: shader(i)})
	}
	c := &Compiler{Workers: 4, Options: wgslcore.DefaultOptions()}
	outs := c.Compile(context.Background(), inputs)

	require.Len(t, outs, len(inputs))
	sessions := make(map[uuid.UUID]bool)
	for i, out := range outs {
		require.NoError(t, out.Err, out.Name)
		assert.Equal(t, inputs[i].Name, out.Name)
		assert.Contains(t, out.Result.Text, fmt.Sprintf("store %%3, %du", i))
		assert.Equal(t, uuid.Version(7), out.Session.Version())
		sessions[out.Session] = true
	}
	assert.Len(t, sessions, len(inputs), "every compilation has its own session")
}

func TestCompileReportsPerInputErrors(t *testing.T) {
	inputs := []Input{
		{Name: "ok.wgsl", Source: shader(1)},
		{Name: "bad.wgsl", Source: "fn f() -> u32 { return nope; }"},
	}
	outs := (&Compiler{Workers: 2}).Compile(context.Background(), inputs)
	assert.NoError(t, outs[0].Err)
	assert.ErrorContains(t, outs[1].Err, "unknown identifier: 'nope'")
	assert.True(t, outs[1].Result.Diagnostics.ContainsErrors())
}

func TestCompileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outs := (&Compiler{}).Compile(ctx, []Input{{Name: "a", Source: shader(0)}})
	assert.ErrorIs(t, outs[0].Err, context.Canceled)
	assert.Nil(t, outs[0].Result)
}

// syncBuffer is a bytes.Buffer safe for the concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCompileLogsSessions(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	outs := (&Compiler{Workers: 2, Options: wgslcore.DefaultOptions(), Logger: logger}).
		Compile(context.Background(), []Input{{Name: "a.wgsl", Source: shader(0)}})
	require.NoError(t, outs[0].Err)

	logs := buf.String()
	assert.Contains(t, logs, "session="+outs[0].Session.String())
	assert.Contains(t, logs, "file=a.wgsl")
	assert.Contains(t, logs, `msg="pass finished"`)
	assert.Contains(t, logs, "msg=compiled")
}
