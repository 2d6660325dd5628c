package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/irgen"
	"github.com/gogpu/wgslcore/resolver"
	"github.com/gogpu/wgslcore/wgsl"
)

func generate(t *testing.T, source string) *ir.Module {
	t.Helper()
	mod, errs := wgsl.Parse(source)
	require.False(t, errs.ContainsErrors(), "parse errors:\n%s", errs.FormatAll(source))
	graph, errs := resolver.Build(mod)
	require.False(t, errs.ContainsErrors(), "dependency errors:\n%s", errs.FormatAll(source))
	info, errs := resolver.Resolve(mod, graph)
	require.False(t, errs.ContainsErrors(), "resolve errors:\n%s", errs.FormatAll(source))
	errs = resolver.Validate(mod, info)
	require.False(t, errs.ContainsErrors(), "validation errors:\n%s", errs.FormatAll(source))
	m, err := irgen.Generate(mod, info)
	require.NoError(t, err)
	return m
}

const atomicSource = `
@group(0) @binding(0) var<storage, read_write> a : atomic<vec2<u32>>;

@compute @workgroup_size(1)
fn main() {
  let v = atomicLoad(&a);
  atomicStore(&a, v);
  atomicStoreMax(&a, vec2u(1u, 2u));
}
`

func TestEngineRunsPassesInOrder(t *testing.T) {
	m := generate(t, atomicSource)
	before := ir.Disassemble(m)

	passes, err := Build([]string{"atomic_vec2u_to_u64", "pixel_local", "atomic_u64_to_vec2u"}, Options{})
	require.NoError(t, err)
	rep, err := New(nil, passes...).Run(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, rep.Passes, 3)
	assert.Equal(t, "atomic_vec2u_to_u64", rep.Passes[0].Name)
	assert.False(t, rep.Passes[0].Skipped)
	assert.True(t, rep.Passes[1].Skipped, "no pixel_local variable")
	assert.Equal(t, []string{"atomic_vec2u_to_u64", "atomic_u64_to_vec2u"}, rep.Ran())
	assert.Equal(t, before, ir.Disassemble(m))
}

func TestEngineCheckpointNamesThePass(t *testing.T) {
	m := generate(t, atomicSource)
	breaker := Pass{
		Name: "breaker",
		Run: func(m *ir.Module) error {
			// A function without a terminator.
			ir.NewBuilder(m).Function("broken", nil, ir.StageNone)
			return nil
		},
	}
	var after bool
	never := Pass{Name: "never", Run: func(*ir.Module) error { after = true; return nil }}

	rep, err := New(nil, breaker, never).Run(context.Background(), m)
	require.Error(t, err)
	var ie *diag.InternalError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "breaker", ie.Transform)
	assert.Contains(t, ie.Error(), "module is invalid after breaker")
	assert.False(t, after, "no pass runs after a failed checkpoint")
	assert.Len(t, rep.Passes, 1)
}

func TestEngineRejectsInvalidInput(t *testing.T) {
	m := ir.NewModule(generate(t, atomicSource).Types)
	ir.NewBuilder(m).Function("broken", nil, ir.StageNone)

	_, err := New(nil).Run(context.Background(), m)
	var ie *diag.InternalError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "input", ie.Transform)
}

func TestEnginePassErrors(t *testing.T) {
	m := generate(t, atomicSource)
	userErr := errors.New("attachment collision")
	_, err := New(nil, Pass{Name: "p", Run: func(*ir.Module) error { return userErr }}).Run(context.Background(), m)
	require.ErrorIs(t, err, userErr)
	assert.Equal(t, "p: attachment collision", err.Error())

	internal := diag.NewInternalError("q", "broken invariant")
	_, err = New(nil, Pass{Name: "q", Run: func(*ir.Module) error { return internal }}).Run(context.Background(), m)
	assert.Same(t, internal, err)
}

func TestEngineStopsWhenCanceled(t *testing.T) {
	m := generate(t, atomicSource)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	rep, err := New(nil, Pass{Name: "p", Run: func(*ir.Module) error { ran = true; return nil }}).Run(ctx, m)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
	assert.Empty(t, rep.Passes)
}

func TestEngineLogsPasses(t *testing.T) {
	m := generate(t, atomicSource)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	passes, err := Build([]string{"pixel_local", "var_for_dynamic_index"}, Options{})
	require.NoError(t, err)
	_, err = New(logger, passes...).Run(context.Background(), m)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="pass skipped" pass=pixel_local`)
	assert.Contains(t, out, `msg="pass finished" pass=var_for_dynamic_index`)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{
		"atomic_u64_to_vec2u",
		"atomic_vec2u_to_u64",
		"builtin_polyfill",
		"pixel_local",
		"std140",
		"var_for_dynamic_index",
	}, Names())
	for _, n := range Names() {
		p, ok := Lookup(n, Options{})
		require.True(t, ok, n)
		assert.Equal(t, n, p.Name)
		assert.NotNil(t, p.Run)
		assert.NotEmpty(t, Describe(n))
	}

	_, ok := Lookup("dce", Options{})
	assert.False(t, ok)
	_, err := Build([]string{"std140", "dce"}, Options{})
	assert.EqualError(t, err, `unknown pass "dce"`)
}

func TestPolyfillPassSkippedWhenDisabled(t *testing.T) {
	m := generate(t, `
fn f(x: i32) -> i32 {
  return clamp(x, 0, 3);
}
`)
	p, _ := Lookup("builtin_polyfill", Options{})
	rep, err := New(nil, p).Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, rep.Passes[0].Skipped)
}
