package accesschain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/types"
)

type fixture struct {
	m  *ir.Module
	b  *ir.Builder
	tm *types.Manager
	s  *types.Struct
	fn *ir.Function
	i  *ir.FunctionParam
	v  *ir.Var
}

// newFixture declares
//
//	struct S { a: f32, m: mat2x4<f32>, arr: array<vec4<f32>, 4> }
//	var<private> v: S;
//	fn f(i: i32)
func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := ir.NewModule(types.NewManager())
	b := ir.NewBuilder(m)
	tm := m.Types
	s, err := tm.Struct("S", []types.MemberDesc{
		{Name: "a", Type: tm.F32()},
		{Name: "m", Type: tm.Mat(tm.F32(), 2, 4)},
		{Name: "arr", Type: tm.Array(tm.Vec(tm.F32(), 4), 4)},
	})
	require.NoError(t, err)
	f := &fixture{m: m, b: b, tm: tm, s: s}
	b.Append(m.Root, func() {
		f.v = b.Var("v", tm.Ptr(types.SpacePrivate, s, types.ReadWrite))
	})
	f.fn = b.Function("f", nil, ir.StageNone)
	f.i = b.FunctionParam("i", tm.I32())
	f.fn.SetParams(f.i)
	return f
}

func (f *fixture) ptr(t types.Type) *types.Pointer {
	return f.tm.Ptr(types.SpacePrivate, t, types.ReadWrite)
}

func kinds(c *Chain) []StepKind {
	out := make([]StepKind, len(c.Steps))
	for i, s := range c.Steps {
		out[i] = s.Kind
	}
	return out
}

func TestAnalyzeClassifiesSteps(t *testing.T) {
	f := newFixture(t)
	vec4 := f.tm.Vec(f.tm.F32(), 4)
	var leaf *ir.LoadVectorElement
	var acc *ir.Access
	f.b.Append(f.fn.Block, func() {
		acc = f.b.Access(f.ptr(vec4), f.v.Result(), 2, f.i)
		leaf = f.b.LoadVectorElement(acc.Result(), 3)
		f.b.Return(f.fn)
	})

	c, ok := Analyze(leaf.Result(), Options{})
	require.True(t, ok)
	assert.Same(t, f.v.Result(), c.Root)
	assert.Same(t, f.s, c.RootType)
	assert.Equal(t, []StepKind{Member, DynamicIndex, ConstIndex}, kinds(c))
	assert.Equal(t, uint32(2), c.Steps[0].Index)
	assert.Equal(t, 0, c.Steps[1].Slot)
	assert.Equal(t, -1, c.Steps[2].Slot)
	assert.Equal(t, []ir.Value{f.i}, c.Dynamic)
	assert.Equal(t, 1, c.FirstDynamic())
	assert.Equal(t, "vec4<f32>", c.TypeAt(1).String())
	assert.Equal(t, "f32", c.TypeAt(2).String())
	assert.Same(t, f.s, c.TypeAt(-1))
	assert.Equal(t, []ir.Instruction{leaf, acc}, c.Through)
	assert.Len(t, c.Indices(0, 3), 3)
	assert.Equal(t, -1, c.DecomposedAt)
}

func TestAnalyzeThroughLoadsLetsAndSwizzles(t *testing.T) {
	f := newFixture(t)
	mat := f.tm.Mat(f.tm.F32(), 2, 4)
	vec2 := f.tm.Vec(f.tm.F32(), 2)
	var leaf *ir.Swizzle
	f.b.Append(f.fn.Block, func() {
		p := f.b.Access(f.ptr(mat), f.v.Result(), 1)
		l := f.b.Let("p", p.Result())
		ld := f.b.Load(l.Result())
		col := f.b.Access(f.tm.Vec(f.tm.F32(), 4), ld.Result(), f.i)
		leaf = f.b.Swizzle(vec2, col.Result(), []uint32{2, 0})
		f.b.Return(f.fn)
	})

	c, ok := Analyze(leaf.Result(), Options{})
	require.True(t, ok)
	assert.Same(t, f.v.Result(), c.Root)
	assert.Equal(t, []StepKind{Member, DynamicIndex, Swizzle}, kinds(c))
	assert.Equal(t, []uint32{2, 0}, c.Steps[2].Indices)
	assert.Same(t, vec2, c.TypeAt(2))
	assert.Len(t, c.Through, 5)
	// The swizzle step has no index operand.
	assert.Len(t, c.Indices(0, 3), 2)
}

func TestAnalyzeShallow(t *testing.T) {
	f := newFixture(t)
	vec4 := f.tm.Vec(f.tm.F32(), 4)
	arr := f.tm.Array(vec4, 4)
	var outer *ir.Access
	var inner *ir.Access
	f.b.Append(f.fn.Block, func() {
		inner = f.b.Access(f.ptr(arr), f.v.Result(), 2)
		outer = f.b.Access(f.ptr(vec4), inner.Result(), f.i)
		f.b.Return(f.fn)
	})

	c, ok := Analyze(outer.Result(), Options{Shallow: true})
	require.True(t, ok)
	assert.Same(t, inner.Result(), c.Root)
	assert.Same(t, arr, c.RootType)
	assert.Equal(t, []StepKind{DynamicIndex}, kinds(c))

	deep, ok := Analyze(outer.Result(), Options{})
	require.True(t, ok)
	assert.Same(t, f.v.Result(), deep.Root)
	assert.Equal(t, []StepKind{Member, DynamicIndex}, kinds(deep))
}

func TestAnalyzeRootFilter(t *testing.T) {
	f := newFixture(t)
	var ld *ir.Load
	f.b.Append(f.fn.Block, func() {
		p := f.b.Access(f.ptr(f.tm.F32()), f.v.Result(), 0)
		ld = f.b.Load(p.Result())
		f.b.Return(f.fn)
	})

	_, ok := Analyze(ld.Result(), Options{Root: func(v ir.Value) bool { return v == ir.Value(f.i) }})
	assert.False(t, ok)
	_, ok = Analyze(f.i, Options{})
	assert.False(t, ok, "a parameter is not the result of a chain instruction")
}

func TestAnalyzeDecomposedMarker(t *testing.T) {
	f := newFixture(t)
	mat := f.tm.Mat(f.tm.F32(), 2, 4)
	vec4 := f.tm.Vec(f.tm.F32(), 4)
	isMatrixMember := func(parent types.Type, s Step) bool {
		_, isMat := s.Type.(*types.Matrix)
		return parent == types.Type(f.s) && s.Kind == Member && isMat
	}

	var whole, part *ir.Load
	var elem *ir.LoadVectorElement
	f.b.Append(f.fn.Block, func() {
		pm := f.b.Access(f.ptr(mat), f.v.Result(), 1)
		whole = f.b.Load(pm.Result())
		pc := f.b.Access(f.ptr(vec4), f.v.Result(), 1, f.i)
		part = f.b.Load(pc.Result())
		pa := f.b.Access(f.ptr(vec4), f.v.Result(), 2, 0)
		elem = f.b.LoadVectorElement(pa.Result(), 1)
		f.b.Return(f.fn)
	})

	opts := Options{Decomposed: isMatrixMember}
	c, ok := Analyze(whole.Result(), opts)
	require.True(t, ok)
	assert.Equal(t, 0, c.DecomposedAt)
	assert.Same(t, mat, c.DecomposedType)
	assert.True(t, c.WholeDecomposed())

	c, ok = Analyze(part.Result(), opts)
	require.True(t, ok)
	assert.Equal(t, 0, c.DecomposedAt)
	assert.False(t, c.WholeDecomposed())

	c, ok = Analyze(elem.Result(), opts)
	require.True(t, ok)
	assert.Equal(t, -1, c.DecomposedAt)
	assert.False(t, c.WholeDecomposed())
}

func TestAnalyzeStopsScanningAtVectors(t *testing.T) {
	f := newFixture(t)
	vec4 := f.tm.Vec(f.tm.F32(), 4)
	var calls []types.Type
	record := func(parent types.Type, _ Step) bool {
		calls = append(calls, parent)
		return false
	}
	var leaf *ir.LoadVectorElement
	f.b.Append(f.fn.Block, func() {
		p := f.b.Access(f.ptr(vec4), f.v.Result(), 2, f.i)
		leaf = f.b.LoadVectorElement(p.Result(), 0)
		f.b.Return(f.fn)
	})

	_, ok := Analyze(leaf.Result(), Options{Decomposed: record})
	require.True(t, ok)
	// The struct and the array are scanned, the vector is not.
	require.Len(t, calls, 2)
	assert.Same(t, f.s, calls[0])
	assert.Equal(t, "array<vec4<f32>, 4>", calls[1].String())
}
