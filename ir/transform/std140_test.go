package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const std140Structs = `
U = struct @align(8) {
  a:f32 @offset(0)
  m:mat2x2<f32> @offset(8)
}

U_std140 = struct @align(8) {
  a:f32 @offset(0)
  m_col0:vec2<f32> @offset(8)
  m_col1:vec2<f32> @offset(16)
}

$B1: {  # root
  %u:ptr<uniform, U_std140, read> = var @binding_point(0, 0)
}
`

func TestStd140MatrixLoads(t *testing.T) {
	m := generate(t, `
struct U {
  a : f32,
  m : mat2x2<f32>,
}

@group(0) @binding(0) var<uniform> u : U;

fn f() -> vec2f {
  let m = u.m;
  return m[0] + u.m[1];
}
`)
	apply(t, m, Std140)
	want := std140Structs + `
%f = func():vec2<f32> {
  $B2: {
    %3:ptr<uniform, vec2<f32>, read> = access %u, 1u
    %4:vec2<f32> = load %3
    %5:ptr<uniform, vec2<f32>, read> = access %u, 2u
    %6:vec2<f32> = load %5
    %7:mat2x2<f32> = construct %4, %6
    %m:mat2x2<f32> = let %7
    %9:vec2<f32> = access %m, 0i
    %10:ptr<uniform, vec2<f32>, read> = access %u, 1u
    %11:vec2<f32> = load %10
    %12:ptr<uniform, vec2<f32>, read> = access %u, 2u
    %13:vec2<f32> = load %12
    %14:mat2x2<f32> = construct %11, %13
    %15:vec2<f32> = access %14, 1i
    %16:vec2<f32> = add %9, %15
    ret %16
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestStd140StructLoadUsesConverter(t *testing.T) {
	m := generate(t, `
struct U {
  a : f32,
  m : mat2x2<f32>,
}

@group(0) @binding(0) var<uniform> u : U;

fn g() -> f32 {
  let x = u;
  return x.a;
}
`)
	apply(t, m, Std140)
	want := std140Structs + `
%g = func():f32 {
  $B2: {
    %3:U_std140 = load %u
    %4:U = call %convert_U, %3
    %x:U = let %4
    %6:f32 = access %x, 0u
    ret %6
  }
}
%convert_U = func(%val:U_std140):U {
  $B3: {
    %9:f32 = access %val, 0u
    %10:vec2<f32> = access %val, 1u
    %11:vec2<f32> = access %val, 2u
    %12:mat2x2<f32> = construct %10, %11
    %13:U = construct %9, %12
    ret %13
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestStd140VectorElements(t *testing.T) {
	m := generate(t, `
struct U {
  v : vec4f,
  m : mat2x2<f32>,
}

@group(0) @binding(0) var<uniform> u : U;

fn h() -> f32 {
  return u.v.y + u.m[1].x;
}
`)
	apply(t, m, Std140)
	want := `
U = struct @align(16) {
  v:vec4<f32> @offset(0)
  m:mat2x2<f32> @offset(16)
}

U_std140 = struct @align(16) {
  v:vec4<f32> @offset(0)
  m_col0:vec2<f32> @offset(16)
  m_col1:vec2<f32> @offset(24)
}

$B1: {  # root
  %u:ptr<uniform, U_std140, read> = var @binding_point(0, 0)
}

%h = func():f32 {
  $B2: {
    %3:ptr<uniform, vec4<f32>, read> = access %u, 0u
    %4:f32 = load_vector_element %3, 1u
    %5:ptr<uniform, vec2<f32>, read> = access %u, 1u
    %6:vec2<f32> = load %5
    %7:ptr<uniform, vec2<f32>, read> = access %u, 2u
    %8:vec2<f32> = load %7
    %9:mat2x2<f32> = construct %6, %8
    %10:f32 = access %9, 1i, 0u
    %11:f32 = add %4, %10
    ret %11
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestStd140LeavesOtherBuffersAlone(t *testing.T) {
	src := `
struct S {
  m : mat2x2<f32>,
}

struct W {
  m : mat4x4<f32>,
}

@group(0) @binding(0) var<storage, read> s : S;
@group(0) @binding(1) var<uniform> w : W;

fn k() -> f32 {
  return s.m[0].x + w.m[1].y;
}
`
	m := generate(t, src)
	before := disasm(m)
	apply(t, m, Std140)
	assert.Equal(t, before, disasm(m))
}
