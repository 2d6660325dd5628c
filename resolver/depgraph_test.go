package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/wgsl"
)

func parse(t *testing.T, source string) *ast.Module {
	t.Helper()
	mod, errs := wgsl.Parse(source)
	require.False(t, errs.ContainsErrors(), "parse errors:\n%s", errs.FormatAll(source))
	return mod
}

func build(t *testing.T, source string) (*ast.Module, *DependencyGraph, diag.List) {
	t.Helper()
	mod := parse(t, source)
	graph, errs := Build(mod)
	return mod, graph, errs
}

// messages renders diagnostics as "line: severity: message".
func messages(l diag.List) []string {
	out := make([]string, len(l))
	for i, d := range l {
		out[i] = d.Range.String() + " " + d.Severity.String() + ": " + d.Message
	}
	return out
}

func declNames(decls []ast.Decl) []string {
	var out []string
	for _, d := range decls {
		if name := ast.DeclName(d); name != nil {
			out = append(out, name.Name)
		} else {
			out = append(out, ast.KindOf(d))
		}
	}
	return out
}

func TestBuildOrdersDependenciesFirst(t *testing.T) {
	_, graph, errs := build(t, `
fn main() { helper(); }
fn helper() -> f32 { return K; }
const K = 1.0;
`)
	require.Empty(t, errs)
	assert.Equal(t, []string{"K", "helper", "main"}, declNames(graph.OrderedGlobals))
}

func TestBuildKeepsDeclarationOrderWhenIndependent(t *testing.T) {
	_, graph, errs := build(t, `
enable f16;
struct S { a: f16 }
alias T = S;
var<private> v: T;
const c = 1;
`)
	require.Empty(t, errs)
	assert.Equal(t, []string{"enable", "S", "T", "v", "c"}, declNames(graph.OrderedGlobals))
}

func TestBuildEveryGlobalAppearsOnce(t *testing.T) {
	mod, graph, errs := build(t, `
fn a() -> i32 { return b() + C; }
fn b() -> i32 { return C; }
const C = 3;
fn d() { _ = a(); _ = b(); }
`)
	require.Empty(t, errs)
	require.Len(t, graph.OrderedGlobals, len(mod.Decls))
	pos := make(map[string]int)
	for i, name := range declNames(graph.OrderedGlobals) {
		_, dup := pos[name]
		require.False(t, dup, "duplicate %s", name)
		pos[name] = i
	}
	assert.Less(t, pos["C"], pos["b"])
	assert.Less(t, pos["b"], pos["a"])
	assert.Less(t, pos["a"], pos["d"])
}

func TestBuildCycle(t *testing.T) {
	_, _, errs := build(t, `fn a() { b(); }
fn b() { c(); }
fn c() { d(); }
fn d() { b(); }
`)
	require.True(t, errs.ContainsErrors())
	assert.Equal(t, []string{
		"2:1 error: cyclic dependency found: 'b' -> 'c' -> 'd' -> 'b'",
		"2:10 note: function 'b' calls function 'c' here",
		"3:10 note: function 'c' calls function 'd' here",
		"4:10 note: function 'd' calls function 'b' here",
	}, messages(errs))
}

func TestBuildSelfReference(t *testing.T) {
	_, _, errs := build(t, `const A = A;`)
	assert.Equal(t, []string{
		"1:1 error: cyclic dependency found: 'A' -> 'A'",
		"1:11 note: const 'A' references const 'A' here",
	}, messages(errs))
}

func TestBuildTypeCycle(t *testing.T) {
	_, _, errs := build(t, `alias A = B;
alias B = A;
`)
	require.True(t, errs.ContainsErrors())
	assert.Equal(t, "cyclic dependency found: 'A' -> 'B' -> 'A'", errs[0].Message)
}

func TestBuildRedeclaration(t *testing.T) {
	_, _, errs := build(t, `const X = 1;
var<private> X: i32;
`)
	assert.Equal(t, []string{
		"2:14 error: redeclaration of 'X'",
		"1:7 note: 'X' previously declared here",
	}, messages(errs))
}

func TestBuildLocalRedeclaration(t *testing.T) {
	_, _, errs := build(t, `fn f() {
  let a = 1;
  let a = 2;
}`)
	require.Len(t, errs.Errors(), 1)
	assert.Equal(t, "redeclaration of 'a'", errs[0].Message)
}

func TestBuildUnknownNames(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`fn f() { let x = y; }`, "unknown identifier: 'y'"},
		{`var<private> v: T;`, "unknown type: 'T'"},
		{`fn f() { g(); }`, "unknown function: 'g'"},
		{`fn f() { var x = x; }`, "unknown identifier: 'x'"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, _, errs := build(t, tt.source)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.want, errs[0].Message)
		})
	}
}

func TestBuildShadowing(t *testing.T) {
	mod, graph, errs := build(t, `const x = 1;
fn f(x: i32) {
  let y = x;
  {
    var x = 2.0;
  }
}
fn g(a: i32) {
  {
    let a = 1;
  }
}
`)
	require.Empty(t, errs)

	global := mod.Decls[0].(*ast.Const)
	f := mod.Decls[1].(*ast.Function)
	param := f.Params[0]
	assert.Same(t, global, graph.Shadows[param])

	letY := f.Body.Stmts[0].(*ast.DeclStmt).Decl.(*ast.Let)
	assert.Same(t, param, graph.Resolved(letY.Init.(*ast.Ident)))

	inner := f.Body.Stmts[1].(*ast.Block).Stmts[0].(*ast.DeclStmt).Decl.(*ast.Var)
	assert.Same(t, param, graph.Shadows[inner])

	g := mod.Decls[2].(*ast.Function)
	letA := g.Body.Stmts[0].(*ast.Block).Stmts[0].(*ast.DeclStmt).Decl.(*ast.Let)
	assert.Same(t, g.Params[0], graph.Shadows[letA])
}

func TestBuildLocalConflictsWithParameter(t *testing.T) {
	_, graph, errs := build(t, `fn f(a: i32) {
  let a = 1;
}`)
	require.Len(t, errs.Errors(), 1)
	assert.Equal(t, "redeclaration of 'a'", errs[0].Message)
	assert.Empty(t, graph.Shadows)
}

func TestBuildResolvesBuiltinsAndEnumerants(t *testing.T) {
	mod, graph, errs := build(t, `
@group(0) @binding(0) var<storage, read_write> buf: array<atomic<u32>>;
fn f(p: ptr<function, i32>) -> f32 { return sin(1.0); }
`)
	require.Empty(t, errs)
	buf := mod.Decls[0].(*ast.Var)
	assert.Equal(t, ResolvedBuiltinType, graph.ResolvedSymbols[buf.Type].Kind)

	f := mod.Decls[1].(*ast.Function)
	ptr := f.Params[0].Type
	assert.Equal(t, ResolvedIdent{Kind: ResolvedEnumerant, Name: "function"},
		graph.ResolvedSymbols[ptr.Template[0].(*ast.Ident)])

	call := f.Body.Stmts[0].(*ast.Return).Value.(*ast.Call)
	assert.Equal(t, ResolvedIdent{Kind: ResolvedBuiltinFunction, Name: "sin"}, graph.ResolvedSymbols[call.Target])
}

func TestBuildUserDeclarationShadowsBuiltin(t *testing.T) {
	mod, graph, errs := build(t, `
fn min(a: i32, b: i32) -> i32 { return a; }
fn f() -> i32 { return min(1, 2); }
`)
	require.Empty(t, errs)
	f := mod.Decls[1].(*ast.Function)
	call := f.Body.Stmts[0].(*ast.Return).Value.(*ast.Call)
	assert.Same(t, mod.Decls[0], graph.Resolved(call.Target))
	assert.Equal(t, []string{"min", "f"}, declNames(graph.OrderedGlobals))
}
