package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore/ir"
)

func TestVarForDynamicIndexArrayOfMatrices(t *testing.T) {
	m := generate(t, `
fn f(arr: array<mat4x4<f32>, 4>, i: i32) -> f32 {
  return arr[i][2].y;
}
`)
	apply(t, m, VarForDynamicIndex)
	want := `
%f = func(%arr:array<mat4x4<f32>, 4>, %i:i32):f32 {
  $B1: {
    %4:ptr<function, array<mat4x4<f32>, 4>, read_write> = var, %arr
    %5:ptr<function, vec4<f32>, read_write> = access %4, %i, 2i
    %6:f32 = load_vector_element %5, 1u
    ret %6
  }
}
`
	assert.Equal(t, want, disasm(m))

	vars := 0
	for _, inst := range m.Instructions() {
		if _, ok := inst.(*ir.Var); ok {
			vars++
		}
	}
	assert.Equal(t, 1, vars)
}

func TestVarForDynamicIndexSharesPrefixAndLocal(t *testing.T) {
	m := generate(t, `
struct S {
  a : f32,
  arr : array<vec4f, 4>,
}

fn g(s: S, i: i32, j: i32) -> f32 {
  return s.arr[i].x + s.arr[j].y;
}
`)
	apply(t, m, VarForDynamicIndex)
	want := `
S = struct @align(16) {
  a:f32 @offset(0)
  arr:array<vec4<f32>, 4> @offset(16)
}

%g = func(%s:S, %i:i32, %j:i32):f32 {
  $B1: {
    %5:array<vec4<f32>, 4> = access %s, 1u
    %6:ptr<function, array<vec4<f32>, 4>, read_write> = var, %5
    %7:ptr<function, vec4<f32>, read_write> = access %6, %i
    %8:f32 = load_vector_element %7, 0u
    %9:ptr<function, vec4<f32>, read_write> = access %6, %j
    %10:f32 = load_vector_element %9, 1u
    %11:f32 = add %8, %10
    ret %11
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestVarForDynamicIndexLeavesPointersAndVectors(t *testing.T) {
	src := `
var<private> arr : array<vec4f, 4>;

fn h(v: vec4f, i: i32) -> f32 {
  return arr[i].x + v[i];
}
`
	m := generate(t, src)
	before := disasm(m)
	apply(t, m, VarForDynamicIndex)
	assert.Equal(t, before, disasm(m))
}

func TestVarForDynamicIndexIsIdempotent(t *testing.T) {
	sources := []string{
		`
fn f(arr: array<mat4x4<f32>, 4>, i: i32) -> f32 {
  return arr[i][2].y;
}
`,
		`
struct S {
  m : mat3x3<f32>,
  n : array<array<i32, 3>, 2>,
}

fn g(s: S, i: u32, j: u32) -> i32 {
  let col = s.m[i];
  if (col.x > 0.0) {
    return s.n[i][j];
  }
  return s.n[1][j];
}
`,
	}
	for _, src := range sources {
		m := generate(t, src)
		apply(t, m, VarForDynamicIndex)
		once := disasm(m)
		apply(t, m, VarForDynamicIndex)
		require.Equal(t, once, disasm(m))

		for _, inst := range m.Instructions() {
			acc, ok := inst.(*ir.Access)
			if !ok {
				continue
			}
			if ir.LoadedType(acc.Object().Type()) != nil {
				continue
			}
			for _, idx := range acc.Indices() {
				_, isConst := ir.ConstIndex(idx)
				assert.True(t, isConst, "value access with a dynamic index remains:\n%s", once)
			}
		}
	}
}
