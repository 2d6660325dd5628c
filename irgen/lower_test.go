package irgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore/ir"
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

	m, err := Generate(mod, info)
	require.NoError(t, err)
	require.NoError(t, ir.Validate(m))
	return m
}

func disasm(m *ir.Module) string {
	return "\n" + ir.Disassemble(m)
}

func TestGeneratePixelLocalCompoundAssign(t *testing.T) {
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
	want := `
PixelLocal = struct @align(4) {
  a:u32 @offset(0)
}

$B1: {  # root
  %P:ptr<pixel_local, PixelLocal, read_write> = var
}

%F = @fragment func():void {
  $B2: {
    %3:ptr<pixel_local, u32, read_write> = access %P, 0u
    %4:u32 = load %3
    %5:u32 = add %4, 42u
    store %3, %5
    ret
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestGenerateAtomicBuiltins(t *testing.T) {
	m := generate(t, `
@group(0) @binding(0) var<storage, read_write> a : atomic<vec2<u32>>;

@compute @workgroup_size(1)
fn main() {
  let v = atomicLoad(&a);
  atomicStore(&a, v);
  atomicStoreMax(&a, vec2u(1u, 2u));
}
`)
	want := `
$B1: {  # root
  %a:ptr<storage, atomic<vec2<u32>>, read_write> = var @binding_point(0, 0)
}

%main = @compute @workgroup_size(1u, 1u, 1u) func():void {
  $B2: {
    %3:vec2<u32> = atomicLoad %a
    %v:vec2<u32> = let %3
    %5:void = atomicStore %a, %v
    %6:void = atomicStoreMax %a, vec2<u32>(1u, 2u)
    ret
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestGenerateMergesAccessChains(t *testing.T) {
	m := generate(t, `
fn f(arr: array<mat4x4<f32>, 4>, i: i32) -> f32 {
  return arr[i][2].y;
}
`)
	want := `
%f = func(%arr:array<mat4x4<f32>, 4>, %i:i32):f32 {
  $B1: {
    %4:f32 = access %arr, %i, 2i, 1u
    ret %4
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestGenerateVectorElementReferences(t *testing.T) {
	m := generate(t, `
var<private> v : vec4f;

fn h() {
  v.y = 2.0;
  v.x += v.z;
}
`)
	want := `
$B1: {  # root
  %v:ptr<private, vec4<f32>, read_write> = var
}

%h = func():void {
  $B2: {
    store_vector_element %v, 1u, 2.0f
    %3:f32 = load_vector_element %v, 2u
    %4:f32 = load_vector_element %v, 0u
    %5:f32 = add %4, %3
    store_vector_element %v, 0u, %5
    ret
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestGenerateForLoop(t *testing.T) {
	m := generate(t, `
fn f(n: i32) -> i32 {
  var s = 0;
  for (var i = 0; i < n; i++) {
    if (i == 3) {
      continue;
    }
    s += i;
  }
  return s;
}
`)
	want := `
%f = func(%n:i32):i32 {
  $B1: {
    %s:ptr<function, i32, read_write> = var, 0i
    loop [i: $B2, b: $B3, c: $B4] {  # loop_1
      $B2: {  # initializer
        %i:ptr<function, i32, read_write> = var, 0i
        next_iteration  # -> $B3
      }
      $B3: {  # body
        %5:i32 = load %i
        %6:bool = lt %5, %n
        if %6 [t: $B5, f: $B6] {  # if_1
          $B5: {  # true
            exit_if  # if_1
          }
          $B6: {  # false
            exit_loop  # loop_1
          }
        }
        %7:i32 = load %i
        %8:bool = eq %7, 3i
        if %8 [t: $B7] {  # if_2
          $B7: {  # true
            continue  # -> $B4
          }
        }
        %9:i32 = load %i
        %10:i32 = load %s
        %11:i32 = add %10, %9
        store %s, %11
        continue  # -> $B4
      }
      $B4: {  # continuing
        %12:i32 = load %i
        %13:i32 = add %12, 1i
        store %i, %13
        next_iteration  # -> $B3
      }
    }
    %14:i32 = load %s
    ret %14
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestGenerateShortCircuit(t *testing.T) {
	m := generate(t, `
fn g(a: bool, b: bool) -> bool {
  return a && b;
}
`)
	want := `
%g = func(%a:bool, %b:bool):bool {
  $B1: {
    %4:bool = if %a [t: $B2, f: $B3] {  # if_1
      $B2: {  # true
        exit_if %b  # if_1
      }
      $B3: {  # false
        exit_if false  # if_1
      }
    }
    ret %4
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestGenerateSwitch(t *testing.T) {
	m := generate(t, `
fn s(x: i32) -> i32 {
  switch x {
    case 1, 2: {
      return 10;
    }
    default: {
      break;
    }
  }
  return 0;
}
`)
	want := `
%s = func(%x:i32):i32 {
  $B1: {
    switch %x [c: (1i 2i, $B2), c: (default, $B3)] {  # switch_1
      $B2: {  # case
        ret 10i
      }
      $B3: {  # case
        exit_switch  # switch_1
      }
    }
    ret 0i
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestGenerateCallsAndConstants(t *testing.T) {
	m := generate(t, `
const scale = 2.0;

fn helper(x: f32) -> f32 {
  return x * scale;
}

@fragment fn main(@builtin(position) pos : vec4f) -> @location(0) vec4f {
  let c = helper(pos.x);
  return vec4f(c, pos.yz, 1.0);
}
`)
	want := `
%helper = func(%x:f32):f32 {
  $B1: {
    %3:f32 = mul %x, 2.0f
    ret %3
  }
}
%main = @fragment func(%pos:vec4<f32> [@position]):vec4<f32> [@location(0)] {
  $B2: {
    %6:f32 = access %pos, 0u
    %7:f32 = call %helper, %6
    %c:f32 = let %7
    %9:vec2<f32> = swizzle %pos, yz
    %10:vec4<f32> = construct %c, %9, 1.0f
    ret %10
  }
}
`
	assert.Equal(t, want, disasm(m))
}
