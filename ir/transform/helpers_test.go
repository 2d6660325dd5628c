package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

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
	require.NoError(t, ir.Validate(m))
	return m
}

// apply runs pass on m and checks that the result is still valid IR.
func apply(t *testing.T, m *ir.Module, pass func(*ir.Module) error) {
	t.Helper()
	require.NoError(t, pass(m))
	require.NoError(t, ir.Validate(m), "after transform:\n%s", ir.Disassemble(m))
}

func disasm(m *ir.Module) string {
	return "\n" + ir.Disassemble(m)
}
