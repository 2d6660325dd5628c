package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/types"
)

func newTestModule() (*Module, *Builder) {
	m := NewModule(types.NewManager())
	return m, NewBuilder(m)
}

func TestSetOperandMaintainsUsages(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	fn := b.Function("f", nil, StageNone)
	var a, c *Let
	var add *Binary
	b.Append(fn.Block, func() {
		a = b.Let("a", b.I32(1))
		c = b.Let("c", b.I32(2))
		add = b.Binary(BinaryAdd, tm.I32(), a.Result(), a.Result())
		b.Return(fn)
	})

	assert.Equal(t, []Usage{{add, 0}, {add, 1}}, a.Result().Usages())

	add.SetOperand(1, c.Result())
	assert.Equal(t, []Usage{{add, 0}}, a.Result().Usages())
	assert.Equal(t, []Usage{{add, 1}}, c.Result().Usages())

	add.SetOperands(c.Result(), b.I32(3))
	assert.False(t, a.Result().IsUsed())
	assert.Equal(t, []Usage{{add, 0}}, c.Result().Usages())
}

func TestReplaceAllUsesWith(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	fn := b.Function("f", tm.I32(), StageNone)
	var x, y *Let
	var ret *Return
	var neg *Unary
	b.Append(fn.Block, func() {
		x = b.Let("x", b.I32(1))
		y = b.Let("y", b.I32(2))
		neg = b.Unary(UnaryNegation, tm.I32(), x.Result())
		ret = b.Return(fn, x.Result())
	})

	x.Result().ReplaceAllUsesWith(y.Result())
	assert.False(t, x.Result().IsUsed())
	assert.Same(t, y.Result(), neg.Operand(0))
	assert.Same(t, y.Result(), ret.Value())
	assert.Len(t, y.Result().Usages(), 2)
	assert.NoError(t, Validate(m))
}

func TestDestroyUsedInstructionPanics(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	fn := b.Function("f", tm.I32(), StageNone)
	var x *Let
	b.Append(fn.Block, func() {
		x = b.Let("x", b.I32(1))
		b.Return(fn, x.Result())
	})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		ice, ok := r.(*diag.InternalError)
		require.True(t, ok)
		assert.Contains(t, ice.Message, "destroying 'let' whose result is still used")
	}()
	x.Destroy()
}

func TestDestroyReleasesOperands(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	fn := b.Function("f", nil, StageNone)
	var x *Let
	var neg *Unary
	b.Append(fn.Block, func() {
		x = b.Let("x", b.I32(1))
		neg = b.Unary(UnaryNegation, tm.I32(), x.Result())
		b.Return(fn)
	})

	neg.Destroy()
	assert.False(t, neg.Alive())
	assert.Nil(t, neg.Block())
	assert.False(t, x.Result().IsUsed())
	assert.Equal(t, 2, fn.Block.Len())
	assert.NoError(t, Validate(m))
}

func TestFunctionCallers(t *testing.T) {
	m, b := newTestModule()
	callee := b.Function("g", nil, StageNone)
	b.Append(callee.Block, func() { b.Return(callee) })
	caller := b.Function("f", nil, StageNone)
	var call *UserCall
	b.Append(caller.Block, func() {
		call = b.CallFunc(callee)
		b.Return(caller)
	})

	assert.Equal(t, []*UserCall{call}, callee.Callers())
	assert.Same(t, callee, m.Function("g"))
	assert.Same(t, caller, call.Block().Function())
}

func TestConstantString(t *testing.T) {
	m, b := newTestModule()
	tm := m.Types
	tests := []struct {
		c    *Constant
		want string
	}{
		{b.U32(42), "42u"},
		{b.I32(-1), "-1i"},
		{b.F32(1), "1.0f"},
		{b.F32(0.5), "0.5f"},
		{b.F16(2), "2.0h"},
		{b.Bool(true), "true"},
		{b.Composite(tm.Vec(tm.U32(), 2), b.U32(1), b.U32(2)), "vec2<u32>(1u, 2u)"},
		{b.Splat(tm.Vec(tm.F32(), 4), b.F32(1)), "vec4<f32>(1.0f)"},
		{b.Zero(tm.Vec(tm.I32(), 3)), "vec3<i32>(0i)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.String())
	}
}
