package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gogpu/wgslcore/types"
)

func disasm(m *Module) string {
	return "\n" + Disassemble(m)
}

func TestDisassembleStructsRootAndFunctions(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	s, err := tm.Struct("S", []types.MemberDesc{
		{Name: "a", Type: tm.U32()},
		{Name: "b", Type: tm.Vec(tm.F32(), 4), Attrs: types.IOAttributes{Location: types.U32Ptr(1)}},
	})
	assert.NoError(t, err)

	var buf *Var
	b.Append(m.Root, func() {
		buf = b.Var("buf", tm.Ptr(types.SpaceStorage, s, types.ReadWrite))
		buf.BindingPoint = &BindingPoint{Group: 0, Binding: 2}
	})

	helper := b.Function("helper", tm.U32(), StageNone)
	x := b.FunctionParam("x", tm.U32())
	helper.SetParams(x)
	b.Append(helper.Block, func() {
		sum := b.Binary(BinaryAdd, tm.U32(), x, 1)
		b.Return(helper, sum.Result())
	})

	main := b.Function("main", nil, StageCompute)
	main.WorkgroupSize = &[3]uint32{8, 1, 1}
	b.Append(main.Block, func() {
		p := b.Access(tm.Ptr(types.SpaceStorage, tm.U32(), types.ReadWrite), buf.Result(), 0)
		v := b.Load(p.Result())
		call := b.CallFunc(helper, v.Result())
		b.Store(p.Result(), call.Result())
		b.Return(main)
	})

	want := `
S = struct @align(16) {
  a:u32 @offset(0)
  b:vec4<f32> @offset(16), @location(1)
}

$B1: {  # root
  %buf:ptr<storage, S, read_write> = var @binding_point(0, 2)
}

%helper = func(%x:u32):u32 {
  $B2: {
    %4:u32 = add %x, 1u
    ret %4
  }
}
%main = @compute @workgroup_size(8u, 1u, 1u) func():void {
  $B3: {
    %6:ptr<storage, u32, read_write> = access %buf, 0u
    %7:u32 = load %6
    %8:u32 = call %helper, %7
    store %6, %8
    ret
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestDisassembleLazyIDs(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	main := b.Function("main", nil, StageNone)
	later := b.Function("later", nil, StageNone)
	b.Append(main.Block, func() {
		b.CallFunc(later)
		b.Return(main)
	})
	b.Append(later.Block, func() { b.Return(later) })
	_ = tm

	want := `
%main = func():void {
  $B1: {
    %2:void = call %later
    ret
  }
}
%later = func():void {
  $B2: {
    ret
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestDisassembleDuplicateNames(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	inner := b.Function("f", nil, StageNone)
	p := b.FunctionParam("pos", tm.Vec(tm.F32(), 4))
	inner.SetParams(p)
	b.Append(inner.Block, func() { b.Return(inner) })

	outer := b.Function("f", nil, StageFragment)
	q := b.FunctionParam("pos", tm.Vec(tm.F32(), 4))
	q.Attrs.Builtin = types.BuiltinPosition
	outer.SetParams(q)
	b.Append(outer.Block, func() {
		b.CallFunc(inner, q)
		b.Return(outer)
	})

	want := `
%f = func(%pos:vec4<f32>):void {
  $B1: {
    ret
  }
}
%f_1 = @fragment func(%pos_1:vec4<f32> [@position]):void {  # %f_1: 'f', %pos_1: 'pos'
  $B2: {
    %5:void = call %f, %pos_1
    ret
  }
}
`
	assert.Equal(t, want, disasm(m))
}

func TestDisassembleControlFlow(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	fn := b.Function("f", tm.I32(), StageNone)
	c := b.FunctionParam("c", tm.Bool())
	n := b.FunctionParam("n", tm.I32())
	fn.SetParams(c, n)
	b.Append(fn.Block, func() {
		i := b.If(c)
		r := i.AddResult(tm.I32())
		b.Append(i.True, func() { b.ExitIf(i, b.I32(1)) })
		b.Append(i.False, func() { b.ExitIf(i, b.I32(2)) })

		l := b.Loop()
		b.Append(l.Body, func() {
			done := b.Binary(BinaryGreaterThan, tm.Bool(), r, n)
			iff := b.If(done.Result())
			b.Append(iff.True, func() { b.ExitLoop(l) })
			b.Continue(l)
		})
		b.Append(l.Continuing, func() { b.BreakIf(l, c) })

		sw := b.Switch(n)
		b.Append(b.Case(sw, CaseSelector{b.I32(1)}, CaseSelector{b.I32(2)}), func() { b.ExitSwitch(sw) })
		b.Append(b.Case(sw, CaseSelector{}), func() { b.ExitSwitch(sw) })
		b.Return(fn, r)
	})

	want := `
%f = func(%c:bool, %n:i32):i32 {
  $B1: {
    %4:i32 = if %c [t: $B2, f: $B3] {  # if_1
      $B2: {  # true
        exit_if 1i  # if_1
      }
      $B3: {  # false
        exit_if 2i  # if_1
      }
    }
    loop [b: $B4, c: $B5] {  # loop_1
      $B4: {  # body
        %5:bool = gt %4, %n
        if %5 [t: $B6] {  # if_2
          $B6: {  # true
            exit_loop  # loop_1
          }
        }
        continue  # -> $B5
      }
      $B5: {  # continuing
        break_if %c  # -> [t: exit_loop loop_1, f: $B4]
      }
    }
    switch %n [c: (1i 2i, $B7), c: (default, $B8)] {  # switch_1
      $B7: {  # case
        exit_switch  # switch_1
      }
      $B8: {  # case
        exit_switch  # switch_1
      }
    }
    ret %4
  }
}
`
	assert.Equal(t, want, disasm(m))
}
