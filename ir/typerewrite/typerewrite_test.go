package typerewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/types"
)

// widen maps atomic<vec2<u32>> to atomic<u64> and back.
var widen = Rule{
	Name:   "widen",
	Suffix: "wide",
	Forward: func(tm *types.Manager, t types.Type) (types.Type, bool) {
		a, ok := t.(*types.Atomic)
		if !ok || a.Elem != types.Type(tm.Vec(tm.U32(), 2)) {
			return nil, false
		}
		return tm.Atomic(tm.U64()), true
	},
	Backward: func(tm *types.Manager, t types.Type) (types.Type, bool) {
		a, ok := t.(*types.Atomic)
		if !ok || a.Elem != types.Type(tm.U64()) {
			return nil, false
		}
		return tm.Atomic(tm.Vec(tm.U32(), 2)), true
	},
}

func newRewriter(t *testing.T) *Rewriter {
	t.Helper()
	return New(ir.NewModule(types.NewManager()), widen, nil)
}

func TestRewriteTypeKeepsIdentityWithoutLeaves(t *testing.T) {
	rw := newRewriter(t)
	tm := rw.Types
	s, err := tm.Struct("S", []types.MemberDesc{
		{Name: "a", Type: tm.F32()},
		{Name: "b", Type: tm.Array(tm.Atomic(tm.U32()), 4)},
		{Name: "c", Type: tm.Vec(tm.U32(), 2)},
	})
	require.NoError(t, err)

	for _, dir := range []Direction{Forward, Backward} {
		assert.Same(t, s, rw.RewriteType(s, dir), dir.String())
	}
	assert.Len(t, tm.Structs(), 1, "no struct is minted")
}

func TestRewriteTypeStructMember(t *testing.T) {
	rw := newRewriter(t)
	tm := rw.Types
	leaf := tm.Atomic(tm.Vec(tm.U32(), 2))
	arr := tm.Array(tm.I32(), 4)
	s, err := tm.Struct("S", []types.MemberDesc{
		{Name: "a", Type: tm.F32()},
		{Name: "x", Type: leaf},
		{Name: "b", Type: arr},
	})
	require.NoError(t, err)
	s.SetFlag(types.FlagBlock)

	got, ok := rw.RewriteType(s, Forward).(*types.Struct)
	require.True(t, ok)
	assert.NotSame(t, s, got)
	assert.Equal(t, "S_wide", got.Name)
	require.Len(t, got.Members, 3)
	assert.Same(t, tm.F32(), got.Members[0].Type)
	assert.Same(t, rw.RewriteType(leaf, Forward), got.Members[1].Type)
	assert.Same(t, arr, got.Members[2].Type)
	assert.True(t, got.HasFlag(types.FlagBlock))

	assert.Same(t, got, rw.RewriteType(s, Forward), "memoized")
	assert.Same(t, s, rw.RewriteType(got, Backward), "backward returns the original struct")
}

func TestRewriteTypeComposites(t *testing.T) {
	rw := newRewriter(t)
	tm := rw.Types
	leaf := tm.Atomic(tm.Vec(tm.U32(), 2))
	wide := tm.Atomic(tm.U64())

	assert.Same(t, wide, rw.RewriteType(leaf, Forward))
	assert.Same(t, tm.Array(wide, 8), rw.RewriteType(tm.Array(leaf, 8), Forward))

	rt := rw.RewriteType(tm.RuntimeArray(leaf), Forward)
	require.IsType(t, &types.Array{}, rt)
	assert.True(t, rt.(*types.Array).IsRuntimeSized())

	p := rw.RewriteType(tm.Ptr(types.SpaceStorage, leaf, types.ReadWrite), Forward)
	assert.Same(t, tm.Ptr(types.SpaceStorage, wide, types.ReadWrite), p)

	assert.Same(t, leaf, rw.RewriteType(wide, Backward))
}

func TestRewriteTypeSelfReference(t *testing.T) {
	rw := newRewriter(t)
	tm := rw.Types
	node, err := tm.DeclareStruct("Node")
	require.NoError(t, err)
	tm.DefineStruct(node, []types.MemberDesc{
		{Name: "v", Type: tm.U32()},
		{Name: "next", Type: tm.Ptr(types.SpacePrivate, node, types.ReadWrite)},
	})
	assert.Same(t, node, rw.RewriteType(node, Forward))
}

func TestProcessPropagatesThroughUses(t *testing.T) {
	m := ir.NewModule(types.NewManager())
	tm := m.Types
	b := ir.NewBuilder(m)
	leaf := tm.Atomic(tm.Vec(tm.U32(), 2))
	s, err := tm.Struct("Buf", []types.MemberDesc{
		{Name: "n", Type: tm.U32()},
		{Name: "x", Type: leaf},
	})
	require.NoError(t, err)

	var buf *ir.Var
	b.Append(m.Root, func() {
		buf = b.Var("buf", tm.Ptr(types.SpaceStorage, s, types.ReadWrite))
	})
	fn := b.Function("main", nil, ir.StageCompute)
	var n *ir.Access
	var x *ir.Let
	var call *ir.BuiltinCall
	b.Append(fn.Block, func() {
		n = b.Access(tm.Ptr(types.SpaceStorage, tm.U32(), types.ReadWrite), buf.Result(), 0)
		b.Load(n.Result())
		p := b.Access(tm.Ptr(types.SpaceStorage, leaf, types.ReadWrite), buf.Result(), 1)
		x = b.Let("x", p.Result())
		call = b.Call(tm.Vec(tm.U32(), 2), "atomicLoad", x.Result())
		b.Return(fn)
	})

	calls := 0
	policy := Policy{
		"atomicLoad": func(rw *Rewriter, c *ir.BuiltinCall, dir Direction) error {
			calls++
			assert.Same(t, call, c)
			assert.Equal(t, Forward, dir)
			rw.SetType(c.Result(), rw.Types.U64())
			return nil
		},
	}
	require.NoError(t, Run(m, widen, policy, Forward))

	want := tm.Ptr(types.SpaceStorage, tm.Atomic(tm.U64()), types.ReadWrite)
	assert.Equal(t, "ptr<storage, Buf_wide, read_write>", buf.Result().Type().String())
	assert.Equal(t, "ptr<storage, u32, read_write>", n.Result().Type().String())
	assert.Same(t, want, x.Result().Type())
	assert.Same(t, tm.U64(), call.Result().Type())
	assert.Equal(t, 1, calls)
}

func TestProcessRetypesParamsAndReturns(t *testing.T) {
	m := ir.NewModule(types.NewManager())
	tm := m.Types
	b := ir.NewBuilder(m)
	leafPtr := tm.Ptr(types.SpaceWorkgroup, tm.Atomic(tm.Vec(tm.U32(), 2)), types.ReadWrite)

	callee := b.Function("get", leafPtr, ir.StageNone)
	p := b.FunctionParam("p", leafPtr)
	callee.SetParams(p)
	b.Append(callee.Block, func() { b.Return(callee, p) })

	caller := b.Function("main", nil, ir.StageNone)
	q := b.FunctionParam("q", leafPtr)
	caller.SetParams(q)
	var uc *ir.UserCall
	b.Append(caller.Block, func() {
		uc = b.CallFunc(callee, q)
		b.Return(caller)
	})

	require.NoError(t, Run(m, widen, nil, Forward))
	wide := tm.Ptr(types.SpaceWorkgroup, tm.Atomic(tm.U64()), types.ReadWrite)
	assert.Same(t, wide, p.Type())
	assert.Same(t, wide, q.Type())
	assert.Same(t, wide, callee.ReturnType)
	assert.Same(t, wide, uc.Result().Type())
	assert.Same(t, tm.Void(), caller.ReturnType)
}
