package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/diag"
)

func resolve(t *testing.T, source string) (*ast.Module, *Info, diag.List) {
	t.Helper()
	mod, graph, errs := build(t, source)
	require.Empty(t, errs, "dependency errors:\n%s", errs.FormatAll(source))
	info, errs := Resolve(mod, graph)
	return mod, info, errs
}

func resolveOK(t *testing.T, source string) (*ast.Module, *Info) {
	t.Helper()
	mod, info, errs := resolve(t, source)
	require.False(t, errs.ContainsErrors(), "resolve errors:\n%s", errs.FormatAll(source))
	return mod, info
}

func texts(l diag.List) []string {
	out := make([]string, len(l))
	for i, d := range l {
		out[i] = d.Severity.String() + ": " + d.Message
	}
	return out
}

func localDecl(fn *ast.Function, i int) ast.Variable {
	return fn.Body.Stmts[i].(*ast.DeclStmt).Decl
}

func TestResolveEvaluationStages(t *testing.T) {
	mod, info := resolveOK(t, `
const c = 2;
override o: i32 = 3;
fn f(p: i32) {
  let a = c * 2;
  let b = o + 1;
  let d = p + 1;
}
`)
	assert.Equal(t, "2", info.Decls[mod.Decls[0].(*ast.Const)].Value.String())
	assert.Equal(t, "abstract-int", info.Decls[mod.Decls[0].(*ast.Const)].Type.String())

	f := mod.Decls[2].(*ast.Function)
	stages := []Stage{Const, Override, Runtime}
	for i, want := range stages {
		let := localDecl(f, i).(*ast.Let)
		assert.Equal(t, want, info.Exprs[let.Init].Stage, let.Name.Name)
		assert.Equal(t, "i32", info.Decls[let].Type.String(), let.Name.Name)
	}
	a := localDecl(f, 0).(*ast.Let)
	require.NotNil(t, info.Exprs[a.Init].Value)
	assert.Equal(t, "4i", info.Exprs[a.Init].Value.String())
}

func TestResolveMaterialization(t *testing.T) {
	mod, info := resolveOK(t, `
const a = 1;
const b = 1.5;
var<private> v = 1;
var<private> w = b;
const e = a + b;
`)
	want := []string{"abstract-int", "abstract-float", "i32", "f32", "abstract-float"}
	for i, ty := range want {
		d := mod.Decls[i]
		assert.Equal(t, ty, info.Decls[d].Type.String(), ast.DeclName(d).Name)
	}
	assert.Equal(t, "2.5", info.Decls[mod.Decls[4]].Value.String())
}

func TestResolveTypeAsValue(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"scalar", `fn f() { let x = f32; }`, []string{
			"error: cannot use type 'f32' as value",
			"note: are you missing '()'?",
		}},
		{"struct", `struct S { a: i32 }
fn f() { let x = S; }`, []string{
			"error: cannot use type 'S' as value",
			"note: are you missing '()'?",
		}},
		{"generator", `fn f() { let x = vec2; }`, []string{
			"error: cannot use type 'vec2' as value",
			"note: are you missing '()'?",
		}},
		{"not constructible", `fn f() { let x = sampler; }`, []string{
			"error: cannot use type 'sampler' as value",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, errs := resolve(t, tt.source)
			assert.Equal(t, tt.want, texts(errs))
		})
	}
}

func TestResolveMissingParentheses(t *testing.T) {
	_, _, errs := resolve(t, `
fn g() {}
fn f() {
  let x = g;
  let y = max;
}
`)
	assert.Equal(t, []string{
		"error: missing '(' for function call",
		"error: missing '(' for builtin call",
	}, texts(errs))
}

func TestResolveModuleScopeVarReference(t *testing.T) {
	_, _, errs := resolve(t, `
var<private> v: i32;
const c = v;
`)
	require.True(t, errs.ContainsErrors())
	assert.Equal(t, "error: var 'v' cannot be referenced at module-scope", texts(errs)[0])
	assert.Equal(t, "note: var 'v' declared here", texts(errs)[1])
}

func TestResolveConstErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`const a = 2147483647i + 1;`, "'2147483647 + 1' cannot be represented as 'i32'"},
		{`const a = 1 / 0;`, "integer division by zero is invalid"},
		{`const a = 5 % 0;`, "integer modulo by zero is invalid"},
		{`const_assert 1 > 2;`, "const assertion failed"},
		{`const a: array<i32, 0> = array<i32, 0>();`, "array count (0) must be greater than 0"},
		{`fn f(p: i32) { const c = p; }`, "const initializer requires a const-expression, but expression is a runtime-expression"},
		{`override o = 1; const c = o;`, "const initializer requires a const-expression, but expression is an override-expression"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, _, errs := resolve(t, tt.source)
			require.True(t, errs.ContainsErrors())
			assert.Contains(t, texts(errs), "error: "+tt.want)
		})
	}
}

func TestResolveExpressionErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`fn f() { let v = vec4f(); let x = v.xg; }`, "invalid mixing of vector swizzle characters rgba with xyzw"},
		{`fn f() { let v = vec2f(); let x = v.z; }`, "invalid vector swizzle member"},
		{`fn f() { let a = array<i32, 3>(); let x = a[3]; }`, "index 3 out of bounds [0..2]"},
		{`fn f() { let a = array<i32, 3>(); let x = a[1.0]; }`, "index must be of type 'i32' or 'u32', found: 'abstract-float'"},
		{`fn f(a: f32, b: i32) { let x = a + b; }`, "no matching overload for 'operator + (f32, i32)'"},
		{`struct S { a: i32 } fn f(s: S) { let x = s.b; }`, "struct member b not found"},
		{`fn f(a: f32) { let x = a[0]; }`, "cannot index type 'f32'"},
		{`fn f() { let x = 1h; }`, "f16 literal used without 'f16' extension enabled"},
		{`var<private> x: f16;`, "f16 type used without 'f16' extension enabled"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, _, errs := resolve(t, tt.source)
			assert.Contains(t, texts(errs), "error: "+tt.want)
		})
	}
}

func TestResolveStatementErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`fn f() -> i32 { return 1.5; }`, "return statement type must match its function return type, returned 'abstract-float', expected 'i32'"},
		{`fn f() -> i32 { if true { return 1; } }`, "missing return at end of function"},
		{`fn f() { break; }`, "break statement must be in a loop or switch case"},
		{`fn f() { continue; }`, "continue statement must be in a loop"},
		{`fn f(x: i32) { switch x { case 1: {} } }`, "switch statement must have exactly one default clause"},
		{`fn f() { var<private> x: i32; }`, "function-scope 'var' declaration must use 'function' address space"},
		{`fn f() { let x = 1; x = 2; }`, "cannot assign to value of type 'i32'"},
		{`fn f() { var x = 1.0; x++; }`, "increment statement can only be applied to an integer scalar"},
		{`fn f() { if 1 {} }`, "if condition must be bool, got abstract-int"},
		{`fn f() { vec2f(); }`, "value constructor evaluated but not used"},
		{`fn f() { abs(1); }`, "ignoring return value of builtin 'abs'"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, _, errs := resolve(t, tt.source)
			assert.Contains(t, texts(errs), "error: "+tt.want)
		})
	}
}

func TestResolveLoopControlIsValid(t *testing.T) {
	resolveOK(t, `
fn f(n: i32) -> i32 {
  var total = 0;
  for (var i = 0; i < n; i++) {
    if i == 3 { continue; }
    total += i;
  }
  loop {
    total -= 1;
    if total < 0 { break; }
    continuing { break if total == 0; }
  }
  switch n {
    case 1, 2: { break; }
    default: {}
  }
  return total;
}
`)
}

func TestResolveUsedGlobalsThroughCallees(t *testing.T) {
	mod, info := resolveOK(t, `
var<private> g: i32;
var<private> h: i32;
fn helper() -> i32 { return g; }
@compute @workgroup_size(1) fn main() {
  h = helper();
}
`)
	main := mod.Decls[3].(*ast.Function)
	fi := info.Functions[main]
	require.NotNil(t, fi)
	assert.Equal(t, "compute", fi.Stage)
	assert.Equal(t, [3]uint32{1, 1, 1}, fi.WorkgroupSize)
	assert.Equal(t, []*ast.Function{mod.Decls[2].(*ast.Function)}, fi.Callees)
	names := make([]string, 0, len(fi.UsedGlobals))
	for _, v := range fi.UsedGlobals {
		names = append(names, v.Name.Name)
	}
	assert.ElementsMatch(t, []string{"g", "h"}, names)
}

func TestResolveCallKinds(t *testing.T) {
	mod, info := resolveOK(t, `
struct S { a: f32 }
fn g(x: f32) -> f32 { return x; }
fn f() {
  let a = g(1.0);
  let b = S(2.0);
  let c = i32(1.5);
  let d = bitcast<u32>(1i);
  let e = max(1, 2u);
}
`)
	f := mod.Decls[2].(*ast.Function)
	want := []CallKind{CallFunction, CallConstructor, CallConversion, CallBitcast, CallBuiltin}
	for i, kind := range want {
		let := localDecl(f, i).(*ast.Let)
		ci := info.Calls[let.Init.(*ast.Call)]
		require.NotNil(t, ci, let.Name.Name)
		assert.Equal(t, kind, ci.Kind, let.Name.Name)
	}
	e := localDecl(f, 4).(*ast.Let)
	assert.Equal(t, "u32", info.Decls[e].Type.String())
}

func TestResolveFrexpResultStruct(t *testing.T) {
	mod, info := resolveOK(t, `
fn f(v: vec2<f32>) {
  let r = frexp(v);
  let e = r.exp;
}
`)
	f := mod.Decls[0].(*ast.Function)
	r := localDecl(f, 0).(*ast.Let)
	assert.Equal(t, "__frexp_result_vec2_f32", info.Decls[r].Type.String())
	e := localDecl(f, 1).(*ast.Let)
	assert.Equal(t, "vec2<i32>", info.Decls[e].Type.String())
}

func TestSwizzle(t *testing.T) {
	idx, err := Swizzle("zyx", 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 1, 0}, idx)

	idx, err = Swizzle("rgba", 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3}, idx)

	_, err = Swizzle("w", 3)
	assert.EqualError(t, err, "invalid vector swizzle member")
	_, err = Swizzle("xyzwx", 4)
	assert.EqualError(t, err, "invalid vector swizzle size")
	_, err = Swizzle("xq", 4)
	assert.EqualError(t, err, "invalid vector swizzle character")
}
