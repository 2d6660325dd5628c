package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelLocalSingleMember(t *testing.T) {
	m := generate(t, `
enable chromium_experimental_pixel_local;

struct PixelLocal {
  a : u32,
}

var<pixel_local> P : PixelLocal;

@fragment fn F() {
  P.a += 42;
}
`)
	apply(t, m, PixelLocal{}.Run)
	want := `
PixelLocal = struct @align(4) {
  a:u32 @offset(0), @color(0)
}

F_res = struct @align(4) {
  output_0:u32 @offset(0), @location(0)
}

$B1: {  # root
  %P:ptr<private, PixelLocal, read_write> = var
}

%F_inner = func():void {
  $B2: {
    %3:ptr<private, u32, read_write> = access %P, 0u
    %4:u32 = load %3
    %5:u32 = add %4, 42u
    store %3, %5
    ret
  }
}
%F = @fragment func(%pixel_local:PixelLocal):F_res {
  $B3: {
    store %P, %pixel_local
    %8:void = call %F_inner
    %9:ptr<private, u32, read_write> = access %P, 0u
    %10:u32 = load %9
    %11:F_res = construct %10
    ret %11
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestPixelLocalWithReturnValueAndAttachments(t *testing.T) {
	m := generate(t, `
enable chromium_experimental_pixel_local;

struct PixelLocal {
  a : u32,
  b : i32,
  c : f32,
}

var<pixel_local> P : PixelLocal;

@fragment fn F() -> @location(0) vec4f {
  P.b = 1;
  return vec4f(P.c, 0.0, 0.0, 1.0);
}
`)
	apply(t, m, PixelLocal{Attachments: map[int]int{0: 1, 1: 2, 2: 3}}.Run)
	want := `
PixelLocal = struct @align(4) {
  a:u32 @offset(0), @color(1)
  b:i32 @offset(4), @color(2)
  c:f32 @offset(8), @color(3)
}

F_res = struct @align(16) {
  output_0:vec4<f32> @offset(0), @location(0)
  output_1:u32 @offset(16), @location(1)
  output_2:i32 @offset(20), @location(2)
  output_3:f32 @offset(24), @location(3)
}

$B1: {  # root
  %P:ptr<private, PixelLocal, read_write> = var
}

%F_inner = func():vec4<f32> {
  $B2: {
    %3:ptr<private, i32, read_write> = access %P, 1u
    store %3, 1i
    %4:ptr<private, f32, read_write> = access %P, 2u
    %5:f32 = load %4
    %6:vec4<f32> = construct %5, 0.0f, 0.0f, 1.0f
    ret %6
  }
}
%F = @fragment func(%pixel_local:PixelLocal):F_res {
  $B3: {
    store %P, %pixel_local
    %9:vec4<f32> = call %F_inner
    %10:ptr<private, u32, read_write> = access %P, 0u
    %11:u32 = load %10
    %12:ptr<private, i32, read_write> = access %P, 1u
    %13:i32 = load %12
    %14:ptr<private, f32, read_write> = access %P, 2u
    %15:f32 = load %14
    %16:F_res = construct %9, %11, %13, %15
    ret %16
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestPixelLocalForwardsBuiltinParams(t *testing.T) {
	m := generate(t, `
enable chromium_experimental_pixel_local;

struct PixelLocal {
  a : u32,
}

var<pixel_local> P : PixelLocal;

@fragment fn F(@builtin(position) pos : vec4f) {
  P.a += u32(pos.x);
}
`)
	apply(t, m, PixelLocal{}.Run)
	want := `
PixelLocal = struct @align(4) {
  a:u32 @offset(0), @color(0)
}

F_res = struct @align(4) {
  output_0:u32 @offset(0), @location(0)
}

$B1: {  # root
  %P:ptr<private, PixelLocal, read_write> = var
}

%F_inner = func(%pos:vec4<f32>):void {
  $B2: {
    %4:ptr<private, u32, read_write> = access %P, 0u
    %5:f32 = access %pos, 0u
    %6:u32 = convert %5
    %7:u32 = load %4
    %8:u32 = add %7, %6
    store %4, %8
    ret
  }
}
%F = @fragment func(%pixel_local:PixelLocal, %pos_1:vec4<f32> [@position]):F_res {  # %pos_1: 'pos'
  $B3: {
    store %P, %pixel_local
    %12:void = call %F_inner, %pos_1
    %13:ptr<private, u32, read_write> = access %P, 0u
    %14:u32 = load %13
    %15:F_res = construct %14
    ret %15
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestPixelLocalFlattensStructOutputs(t *testing.T) {
	m := generate(t, `
enable chromium_experimental_pixel_local;

struct PixelLocal {
  a : u32,
}

var<pixel_local> P : PixelLocal;

struct Out {
  @location(0) x : vec4f,
  @location(1) y : vec4f,
}

@fragment fn F() -> Out {
  P.a = 2u;
  var o : Out;
  return o;
}
`)
	apply(t, m, PixelLocal{Attachments: map[int]int{0: 2}}.Run)
	want := `
PixelLocal = struct @align(4) {
  a:u32 @offset(0), @color(2)
}

Out = struct @align(16) {
  x:vec4<f32> @offset(0), @location(0)
  y:vec4<f32> @offset(16), @location(1)
}

F_res = struct @align(16) {
  output_0:vec4<f32> @offset(0), @location(0)
  output_1:vec4<f32> @offset(16), @location(1)
  output_2:u32 @offset(32), @location(2)
}

$B1: {  # root
  %P:ptr<private, PixelLocal, read_write> = var
}

%F_inner = func():Out {
  $B2: {
    %3:ptr<private, u32, read_write> = access %P, 0u
    store %3, 2u
    %o:ptr<function, Out, read_write> = var
    %5:Out = load %o
    ret %5
  }
}
%F = @fragment func(%pixel_local:PixelLocal):F_res {
  $B3: {
    store %P, %pixel_local
    %8:Out = call %F_inner
    %9:vec4<f32> = access %8, 0u
    %10:vec4<f32> = access %8, 1u
    %11:ptr<private, u32, read_write> = access %P, 0u
    %12:u32 = load %11
    %13:F_res = construct %9, %10, %12
    ret %13
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestPixelLocalThroughHelperFunction(t *testing.T) {
	m := generate(t, `
enable chromium_experimental_pixel_local;

struct PixelLocal {
  a : u32,
}

var<pixel_local> P : PixelLocal;

fn bump() {
  P.a += 1u;
}

@fragment fn F() {
  bump();
}

@fragment fn G() -> @location(0) vec4f {
  return vec4f();
}
`)
	apply(t, m, PixelLocal{}.Run)
	require.NotNil(t, m.Function("F_inner"))
	require.NotNil(t, m.Function("F"))
	assert.True(t, m.Function("F").IsEntryPoint())
	assert.False(t, m.Function("F_inner").IsEntryPoint())
	assert.NotNil(t, m.Function("G"), "entry points that never touch pixel_local are kept")
	assert.Nil(t, m.Function("G_inner"))
}

func TestPixelLocalLocationCollision(t *testing.T) {
	m := generate(t, `
enable chromium_experimental_pixel_local;

struct PixelLocal {
  a : u32,
}

var<pixel_local> P : PixelLocal;

@fragment fn F() -> @location(0) vec4f {
  P.a = 1u;
  return vec4f();
}
`)
	err := PixelLocal{}.Run(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides with an existing output at @location(0)")
}

func TestPixelLocalWithoutVariableIsNoOp(t *testing.T) {
	m := generate(t, `
@fragment fn F() -> @location(0) vec4f {
  return vec4f(1.0);
}
`)
	before := disasm(m)
	apply(t, m, PixelLocal{}.Run)
	assert.Equal(t, before, disasm(m))
	assert.Len(t, m.EntryPoints(), 1)
}
