package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterning(t *testing.T) {
	m := NewManager()

	assert.Same(t, m.F32(), m.F32())
	assert.Same(t, m.Vec(m.F32(), 3), m.Vec(m.F32(), 3))
	assert.NotSame(t, m.Vec(m.F32(), 3), m.Vec(m.F32(), 4))
	assert.Same(t, m.Mat(m.F32(), 3, 2), m.Mat(m.F32(), 3, 2))
	assert.Same(t, m.Array(m.U32(), 4), m.Array(m.U32(), 4))
	assert.NotSame(t, m.Array(m.U32(), 4), m.RuntimeArray(m.U32()))
	assert.Same(t, m.Ptr(SpaceStorage, m.I32(), AccessUndefined), m.Ptr(SpaceStorage, m.I32(), Read))
	assert.Same(t, m.Atomic(m.Vec(m.U32(), 2)), m.Atomic(m.Vec(m.U32(), 2)))
	assert.Same(t, m.Mat(m.F32(), 3, 2).ColumnType, m.Vec(m.F32(), 2))
}

func TestTypeNames(t *testing.T) {
	m := NewManager()
	s, err := m.Struct("S", []MemberDesc{{Name: "a", Type: m.F32()}})
	require.NoError(t, err)

	tests := []struct {
		typ  Type
		want string
	}{
		{m.Bool(), "bool"},
		{m.Vec(m.F16(), 2), "vec2<f16>"},
		{m.Mat(m.F32(), 4, 3), "mat4x3<f32>"},
		{m.Array(s, 8), "array<S, 8>"},
		{m.RuntimeArray(m.U32()), "array<u32>"},
		{m.Ptr(SpaceFunction, m.I32(), AccessUndefined), "ptr<function, i32, read_write>"},
		{m.Ptr(SpaceUniform, s, AccessUndefined), "ptr<uniform, S, read>"},
		{m.Ref(SpacePrivate, m.F32(), ReadWrite), "ref<private, f32, read_write>"},
		{m.Atomic(m.U64()), "atomic<u64>"},
		{m.Sampler(true), "sampler_comparison"},
		{m.Texture(Texture{Kind: TextureSampled, Dim: Dim2D, Sampled: m.F32()}), "texture_2d<f32>"},
		{m.Texture(Texture{Kind: TextureStorage, Dim: Dim2D, Format: "r32uint", Access: Write}), "texture_storage_2d<r32uint, write>"},
		{m.Void(), "void"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestLayout(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name  string
		typ   Type
		size  uint32
		align uint32
	}{
		{"f32", m.F32(), 4, 4},
		{"f16", m.F16(), 2, 2},
		{"u64", m.U64(), 8, 8},
		{"vec2f", m.Vec(m.F32(), 2), 8, 8},
		{"vec3f", m.Vec(m.F32(), 3), 12, 16},
		{"vec4f", m.Vec(m.F32(), 4), 16, 16},
		{"vec3h", m.Vec(m.F16(), 3), 6, 8},
		{"mat3x2f", m.Mat(m.F32(), 3, 2), 24, 8},
		{"mat2x3f", m.Mat(m.F32(), 2, 3), 32, 16},
		{"mat4x4f", m.Mat(m.F32(), 4, 4), 64, 16},
		{"array<vec3f, 4>", m.Array(m.Vec(m.F32(), 3), 4), 64, 16},
		{"atomic<vec2u>", m.Atomic(m.Vec(m.U32(), 2)), 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.size, tt.typ.Size(), "size")
			assert.Equal(t, tt.align, tt.typ.Align(), "align")
		})
	}
}

func TestStructLayout(t *testing.T) {
	m := NewManager()
	s, err := m.Struct("Params", []MemberDesc{
		{Name: "a", Type: m.F32()},
		{Name: "b", Type: m.Vec(m.F32(), 3)},
		{Name: "c", Type: m.F32()},
		{Name: "d", Type: m.Mat(m.F32(), 3, 2), Align: 32},
		{Name: "e", Type: m.U32(), Size: 12},
	})
	require.NoError(t, err)

	offsets := make([]uint32, len(s.Members))
	for i, mem := range s.Members {
		offsets[i] = mem.Offset
		assert.Equal(t, uint32(i), mem.Index)
	}
	assert.Equal(t, []uint32{0, 16, 28, 32, 56}, offsets)
	assert.Equal(t, uint32(32), s.Align())
	assert.Equal(t, uint32(68), s.SizeNoPadding())
	assert.Equal(t, uint32(96), s.Size())
}

func TestStructNamesAreUnique(t *testing.T) {
	m := NewManager()
	_, err := m.Struct("S", nil)
	require.NoError(t, err)

	_, err = m.Struct("S", nil)
	assert.Error(t, err)

	minted := m.MintStruct("S", nil)
	assert.Equal(t, "S_1", minted.Name)
	assert.Equal(t, "S_2", m.UniqueStructName("S"))

	names := []string{}
	for _, st := range m.Structs() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"S", "S_1"}, names)
}

func TestStructMemberString(t *testing.T) {
	m := NewManager()
	s, err := m.Struct("Out", []MemberDesc{
		{Name: "pos", Type: m.Vec(m.F32(), 4), Attrs: IOAttributes{Builtin: BuiltinPosition}},
		{Name: "color", Type: m.U32(), Attrs: IOAttributes{Location: U32Ptr(1), Interpolate: &Interpolation{Type: "flat"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pos:vec4<f32> @offset(0), @builtin(position)", s.Members[0].String())
	assert.Equal(t, "color:u32 @offset(16), @location(1), @interpolate(flat)", s.Members[1].String())
}

func TestMaterialize(t *testing.T) {
	m := NewManager()
	assert.Same(t, m.I32(), m.Materialize(m.AbstractInt()))
	assert.Same(t, m.F32(), m.Materialize(m.AbstractFloat()))
	assert.Same(t, m.Vec(m.F32(), 3), m.Materialize(m.Vec(m.AbstractFloat(), 3)))
	assert.Same(t, m.Array(m.I32(), 2), m.Materialize(m.Array(m.AbstractInt(), 2)))
	assert.Same(t, m.U32(), m.Materialize(m.U32()))
}

func TestConversionRank(t *testing.T) {
	m := NewManager()
	assert.Equal(t, 0, ConversionRank(m.U32(), m.U32()))
	assert.Equal(t, 3, ConversionRank(m.AbstractInt(), m.I32()))
	assert.Equal(t, 4, ConversionRank(m.AbstractInt(), m.U32()))
	assert.Equal(t, 1, ConversionRank(m.AbstractFloat(), m.F32()))
	assert.Equal(t, -1, ConversionRank(m.AbstractFloat(), m.I32()))
	assert.Equal(t, -1, ConversionRank(m.I32(), m.U32()))
	assert.Equal(t, 6, ConversionRank(m.Vec(m.AbstractInt(), 2), m.Vec(m.F32(), 2)))
	assert.Equal(t, -1, ConversionRank(m.Vec(m.AbstractInt(), 2), m.Vec(m.F32(), 3)))
}

func TestPredicates(t *testing.T) {
	m := NewManager()
	s, err := m.Struct("A", []MemberDesc{{Name: "x", Type: m.Atomic(m.U32())}})
	require.NoError(t, err)

	assert.True(t, IsIntegerScalarOrVector(m.Vec(m.U32(), 2)))
	assert.True(t, IsSignedIntegerScalarOrVector(m.I32()))
	assert.False(t, IsSignedIntegerScalarOrVector(m.Vec(m.U32(), 2)))
	assert.True(t, IsFloatScalarOrVector(m.Vec(m.F16(), 4)))
	assert.True(t, IsAbstract(m.Mat(m.AbstractFloat(), 2, 2)))
	assert.True(t, ContainsAtomic(m.Array(s, 2)))
	assert.False(t, IsConstructible(s))
	assert.False(t, IsConstructible(m.RuntimeArray(m.F32())))
	assert.True(t, IsConstructible(m.Array(m.F32(), 2)))
	assert.False(t, IsHostShareable(m.Bool()))
	assert.True(t, IsHostShareable(s))
	assert.Same(t, m.F32(), DeepestElement(m.Array(m.Mat(m.F32(), 2, 2), 3)))
	assert.Same(t, m.Vec(m.F32(), 2), ElementAt(m.Mat(m.F32(), 3, 2), 1))
	assert.Nil(t, ElementAt(m.Vec(m.F32(), 2), 2))
	assert.True(t, MatrixNeedsDecomposition(m.Mat(m.F32(), 3, 2)))
	assert.False(t, MatrixNeedsDecomposition(m.Mat(m.F32(), 2, 3)))
	assert.True(t, MatrixNeedsDecomposition(m.Mat(m.F16(), 2, 4)))
}

func TestParseEnumerants(t *testing.T) {
	space, ok := ParseAddressSpace("pixel_local")
	require.True(t, ok)
	assert.Equal(t, SpacePixelLocal, space)

	_, ok = ParseAddressSpace("handle")
	assert.False(t, ok)

	access, ok := ParseAccess("read_write")
	require.True(t, ok)
	assert.Equal(t, ReadWrite, access)
}
