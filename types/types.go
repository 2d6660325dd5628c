// Package types defines the semantic types shared by the resolver and the IR.
//
// Types are interned by a Manager: two structurally equal types obtained from
// the same Manager are the same pointer, so identity comparison (==) on Type
// values implies structural equality. Structs are nominal; a transform that
// needs a structurally different struct mints a new one with a fresh name.
package types

import (
	"fmt"
	"strings"
)

// Type is a semantic type. The set of implementations is closed.
type Type interface {
	// String returns the WGSL spelling of the type.
	String() string
	// Size returns the size in bytes when stored in memory.
	Size() uint32
	// Align returns the required alignment in bytes.
	Align() uint32
	isType()
}

// ScalarKind enumerates scalar types.
type ScalarKind uint8

const (
	Bool ScalarKind = iota
	I32
	U32
	F32
	F16
	I64
	U64
	AbstractInt
	AbstractFloat
)

var scalarNames = [...]string{
	Bool:          "bool",
	I32:           "i32",
	U32:           "u32",
	F32:           "f32",
	F16:           "f16",
	I64:           "i64",
	U64:           "u64",
	AbstractInt:   "abstract-int",
	AbstractFloat: "abstract-float",
}

func (k ScalarKind) String() string {
	if int(k) < len(scalarNames) {
		return scalarNames[k]
	}
	return fmt.Sprintf("scalar(%d)", uint8(k))
}

// Scalar is a bool, integer or floating point type.
type Scalar struct {
	Kind ScalarKind
}

func (t *Scalar) String() string { return t.Kind.String() }

func (t *Scalar) Size() uint32 {
	switch t.Kind {
	case F16:
		return 2
	case I64, U64, AbstractInt, AbstractFloat:
		return 8
	default:
		return 4
	}
}

func (t *Scalar) Align() uint32 { return t.Size() }
func (t *Scalar) isType()       {}

// Vector is a vector of 2, 3 or 4 scalars.
type Vector struct {
	Elem  Type
	Width uint32
}

func (t *Vector) String() string {
	return fmt.Sprintf("vec%d<%s>", t.Width, t.Elem)
}

func (t *Vector) Size() uint32 { return t.Elem.Size() * t.Width }

func (t *Vector) Align() uint32 {
	if t.Width == 2 {
		return t.Elem.Size() * 2
	}
	return t.Elem.Size() * 4
}

func (t *Vector) isType() {}

// Matrix is a column-major matrix of floating point values.
type Matrix struct {
	Columns    uint32
	Rows       uint32
	ColumnType *Vector
}

func (t *Matrix) String() string {
	return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, t.ColumnType.Elem)
}

// ColumnStride returns the byte distance between consecutive columns.
func (t *Matrix) ColumnStride() uint32 {
	return RoundUp(t.ColumnType.Align(), t.ColumnType.Size())
}

func (t *Matrix) Size() uint32  { return t.Columns * t.ColumnStride() }
func (t *Matrix) Align() uint32 { return t.ColumnType.Align() }
func (t *Matrix) isType()       {}

// Elem returns the scalar element type.
func (t *Matrix) Elem() Type { return t.ColumnType.Elem }

// Array is a fixed-size or runtime-sized array. Count is zero for
// runtime-sized arrays.
type Array struct {
	Elem  Type
	Count uint32
}

func (t *Array) String() string {
	if t.Count == 0 {
		return fmt.Sprintf("array<%s>", t.Elem)
	}
	return fmt.Sprintf("array<%s, %d>", t.Elem, t.Count)
}

// IsRuntimeSized reports whether the array has no fixed element count.
func (t *Array) IsRuntimeSized() bool { return t.Count == 0 }

// Stride returns the byte distance between consecutive elements.
func (t *Array) Stride() uint32 { return RoundUp(t.Elem.Align(), t.Elem.Size()) }

func (t *Array) Size() uint32 {
	if t.Count == 0 {
		return t.Stride()
	}
	return t.Count * t.Stride()
}

func (t *Array) Align() uint32 { return t.Elem.Align() }
func (t *Array) isType()       {}

// AddressSpace is the memory region a variable lives in.
type AddressSpace uint8

const (
	SpaceUndefined AddressSpace = iota
	SpaceFunction
	SpacePrivate
	SpaceWorkgroup
	SpaceUniform
	SpaceStorage
	SpaceHandle
	SpacePixelLocal
	SpacePushConstant
)

var spaceNames = [...]string{
	SpaceUndefined:    "undefined",
	SpaceFunction:     "function",
	SpacePrivate:      "private",
	SpaceWorkgroup:    "workgroup",
	SpaceUniform:      "uniform",
	SpaceStorage:      "storage",
	SpaceHandle:       "handle",
	SpacePixelLocal:   "pixel_local",
	SpacePushConstant: "push_constant",
}

func (s AddressSpace) String() string {
	if int(s) < len(spaceNames) {
		return spaceNames[s]
	}
	return "undefined"
}

// ParseAddressSpace maps a WGSL enumerant to an AddressSpace.
func ParseAddressSpace(name string) (AddressSpace, bool) {
	for i, n := range spaceNames {
		if n == name && AddressSpace(i) != SpaceUndefined && AddressSpace(i) != SpaceHandle {
			return AddressSpace(i), true
		}
	}
	return SpaceUndefined, false
}

// Access is the access mode of a memory view.
type Access uint8

const (
	AccessUndefined Access = iota
	Read
	Write
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	case ReadWrite:
		return "read_write"
	default:
		return "undefined"
	}
}

// ParseAccess maps a WGSL enumerant to an Access.
func ParseAccess(name string) (Access, bool) {
	switch name {
	case "read":
		return Read, true
	case "write":
		return Write, true
	case "read_write":
		return ReadWrite, true
	}
	return AccessUndefined, false
}

// DefaultAccess returns the access mode a variable in space has when the
// source does not spell one out.
func DefaultAccess(space AddressSpace) Access {
	switch space {
	case SpaceStorage, SpaceUniform, SpaceHandle:
		return Read
	default:
		return ReadWrite
	}
}

// Pointer is a pointer to memory holding a value of type Store.
type Pointer struct {
	Space  AddressSpace
	Store  Type
	Access Access
}

func (t *Pointer) String() string {
	return fmt.Sprintf("ptr<%s, %s, %s>", t.Space, t.Store, t.Access)
}

func (t *Pointer) Size() uint32  { return 0 }
func (t *Pointer) Align() uint32 { return 0 }
func (t *Pointer) isType()       {}

// Reference is the type of a memory view produced by naming a variable.
// References only exist during resolution; the IR uses pointers.
type Reference struct {
	Space  AddressSpace
	Store  Type
	Access Access
}

func (t *Reference) String() string {
	return fmt.Sprintf("ref<%s, %s, %s>", t.Space, t.Store, t.Access)
}

func (t *Reference) Size() uint32  { return 0 }
func (t *Reference) Align() uint32 { return 0 }
func (t *Reference) isType()       {}

// Atomic wraps an integer type (or a vec2<u32>, for 64-bit emulation).
type Atomic struct {
	Elem Type
}

func (t *Atomic) String() string { return fmt.Sprintf("atomic<%s>", t.Elem) }
func (t *Atomic) Size() uint32   { return t.Elem.Size() }
func (t *Atomic) Align() uint32  { return t.Elem.Align() }
func (t *Atomic) isType()        {}

// Sampler is a sampler or comparison sampler.
type Sampler struct {
	Comparison bool
}

func (t *Sampler) String() string {
	if t.Comparison {
		return "sampler_comparison"
	}
	return "sampler"
}

func (t *Sampler) Size() uint32  { return 0 }
func (t *Sampler) Align() uint32 { return 0 }
func (t *Sampler) isType()       {}

// TextureKind distinguishes the texture families.
type TextureKind uint8

const (
	TextureSampled TextureKind = iota
	TextureMultisampled
	TextureDepth
	TextureDepthMultisampled
	TextureStorage
)

// TextureDimension is the dimensionality of a texture.
type TextureDimension uint8

const (
	Dim1D TextureDimension = iota
	Dim2D
	Dim2DArray
	Dim3D
	DimCube
	DimCubeArray
)

var dimNames = [...]string{"1d", "2d", "2d_array", "3d", "cube", "cube_array"}

func (d TextureDimension) String() string {
	if int(d) < len(dimNames) {
		return dimNames[d]
	}
	return "unknown"
}

// Texture is a texture handle type.
type Texture struct {
	Kind TextureKind
	Dim  TextureDimension
	// Sampled is the sampled component type for sampled and multisampled
	// textures.
	Sampled Type
	// Format and Access describe storage textures.
	Format string
	Access Access
}

func (t *Texture) String() string {
	switch t.Kind {
	case TextureSampled:
		return fmt.Sprintf("texture_%s<%s>", t.Dim, t.Sampled)
	case TextureMultisampled:
		return fmt.Sprintf("texture_multisampled_%s<%s>", t.Dim, t.Sampled)
	case TextureDepth:
		return fmt.Sprintf("texture_depth_%s", t.Dim)
	case TextureDepthMultisampled:
		return fmt.Sprintf("texture_depth_multisampled_%s", t.Dim)
	default:
		return fmt.Sprintf("texture_storage_%s<%s, %s>", t.Dim, t.Format, t.Access)
	}
}

func (t *Texture) Size() uint32  { return 0 }
func (t *Texture) Align() uint32 { return 0 }
func (t *Texture) isType()       {}

// Void is the result type of instructions and functions that produce no
// value.
type Void struct{}

func (t *Void) String() string { return "void" }
func (t *Void) Size() uint32   { return 0 }
func (t *Void) Align() uint32  { return 0 }
func (t *Void) isType()        {}

// StructFlags are properties attached to a struct after creation.
type StructFlags uint8

const (
	// FlagBlock marks a struct used as the store type of a buffer.
	FlagBlock StructFlags = 1 << iota
)

// Struct is a nominal structure type.
type Struct struct {
	Name    string
	Members []*StructMember
	Flags   StructFlags

	align uint32
	size  uint32
	// sizeNoPadding is the offset just past the last member.
	sizeNoPadding uint32
}

func (t *Struct) String() string { return t.Name }
func (t *Struct) Size() uint32   { return t.size }
func (t *Struct) Align() uint32  { return t.align }
func (t *Struct) isType()        {}

// SizeNoPadding returns the offset just past the end of the last member.
func (t *Struct) SizeNoPadding() uint32 { return t.sizeNoPadding }

// Member returns the member called name.
func (t *Struct) Member(name string) (*StructMember, bool) {
	for _, m := range t.Members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// HasFlag reports whether f is set.
func (t *Struct) HasFlag(f StructFlags) bool { return t.Flags&f != 0 }

// SetFlag sets f.
func (t *Struct) SetFlag(f StructFlags) { t.Flags |= f }

// BuiltinValue names a pipeline builtin.
type BuiltinValue string

const (
	BuiltinNone                 BuiltinValue = ""
	BuiltinPosition             BuiltinValue = "position"
	BuiltinFrontFacing          BuiltinValue = "front_facing"
	BuiltinFragDepth            BuiltinValue = "frag_depth"
	BuiltinSampleIndex          BuiltinValue = "sample_index"
	BuiltinSampleMask           BuiltinValue = "sample_mask"
	BuiltinVertexIndex          BuiltinValue = "vertex_index"
	BuiltinInstanceIndex        BuiltinValue = "instance_index"
	BuiltinLocalInvocationID    BuiltinValue = "local_invocation_id"
	BuiltinLocalInvocationIndex BuiltinValue = "local_invocation_index"
	BuiltinGlobalInvocationID   BuiltinValue = "global_invocation_id"
	BuiltinWorkgroupID          BuiltinValue = "workgroup_id"
	BuiltinNumWorkgroups        BuiltinValue = "num_workgroups"
)

// Builtins lists every builtin value with the type it must be declared with.
var Builtins = map[BuiltinValue]string{
	BuiltinPosition:             "vec4<f32>",
	BuiltinFrontFacing:          "bool",
	BuiltinFragDepth:            "f32",
	BuiltinSampleIndex:          "u32",
	BuiltinSampleMask:           "u32",
	BuiltinVertexIndex:          "u32",
	BuiltinInstanceIndex:        "u32",
	BuiltinLocalInvocationID:    "vec3<u32>",
	BuiltinLocalInvocationIndex: "u32",
	BuiltinGlobalInvocationID:   "vec3<u32>",
	BuiltinWorkgroupID:          "vec3<u32>",
	BuiltinNumWorkgroups:        "vec3<u32>",
}

// Interpolation is an @interpolate attribute.
type Interpolation struct {
	Type     string
	Sampling string
}

// IOAttributes are the shader interface attributes of a struct member,
// function parameter or return value.
type IOAttributes struct {
	Location    *uint32
	Builtin     BuiltinValue
	Interpolate *Interpolation
	Invariant   bool
	// Color is the framebuffer attachment index of a pixel-local member.
	Color    *uint32
	BlendSrc *uint32
}

// IsEmpty reports whether no attribute is set.
func (a IOAttributes) IsEmpty() bool {
	return a.Location == nil && a.Builtin == BuiltinNone && a.Interpolate == nil &&
		!a.Invariant && a.Color == nil && a.BlendSrc == nil
}

// Strings renders the attributes in a fixed order.
func (a IOAttributes) Strings() []string {
	var out []string
	if a.Location != nil {
		out = append(out, fmt.Sprintf("@location(%d)", *a.Location))
	}
	if a.BlendSrc != nil {
		out = append(out, fmt.Sprintf("@blend_src(%d)", *a.BlendSrc))
	}
	if a.Color != nil {
		out = append(out, fmt.Sprintf("@color(%d)", *a.Color))
	}
	if a.Interpolate != nil {
		if a.Interpolate.Sampling != "" {
			out = append(out, fmt.Sprintf("@interpolate(%s, %s)", a.Interpolate.Type, a.Interpolate.Sampling))
		} else {
			out = append(out, fmt.Sprintf("@interpolate(%s)", a.Interpolate.Type))
		}
	}
	if a.Invariant {
		out = append(out, "@invariant")
	}
	if a.Builtin != BuiltinNone {
		out = append(out, fmt.Sprintf("@builtin(%s)", a.Builtin))
	}
	return out
}

// StructMember is one field of a Struct.
type StructMember struct {
	Name   string
	Type   Type
	Index  uint32
	Offset uint32
	Align  uint32
	Size   uint32
	Attrs  IOAttributes
}

func (m *StructMember) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%s @offset(%d)", m.Name, m.Type, m.Offset)
	for _, a := range m.Attrs.Strings() {
		sb.WriteString(", ")
		sb.WriteString(a)
	}
	return sb.String()
}

// U32Ptr returns a pointer to v, for optional attribute fields.
func U32Ptr(v uint32) *uint32 { return &v }

// RoundUp rounds n up to a multiple of align.
func RoundUp(align, n uint32) uint32 {
	if align == 0 {
		return n
	}
	return (n + align - 1) / align * align
}
