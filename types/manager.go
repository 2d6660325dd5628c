package types

import (
	"fmt"
	"strconv"
)

// Manager interns types. Structurally equal requests return the same
// instance. A Manager belongs to one compilation and is not safe for
// concurrent use.
type Manager struct {
	cache   map[string]Type
	structs []*Struct
	names   map[string]*Struct
	void    *Void
}

// NewManager creates an empty type manager.
func NewManager() *Manager {
	return &Manager{
		cache: make(map[string]Type, 32),
		names: make(map[string]*Struct),
		void:  &Void{},
	}
}

// getOrCreate returns the cached type for key or stores the result of create.
func (m *Manager) getOrCreate(key string, create func() Type) Type {
	if t, ok := m.cache[key]; ok {
		return t
	}
	t := create()
	m.cache[key] = t
	return t
}

// Scalar returns the scalar type of kind k.
func (m *Manager) Scalar(k ScalarKind) *Scalar {
	return m.getOrCreate("scalar:"+strconv.Itoa(int(k)), func() Type {
		return &Scalar{Kind: k}
	}).(*Scalar)
}

func (m *Manager) Bool() *Scalar          { return m.Scalar(Bool) }
func (m *Manager) I32() *Scalar           { return m.Scalar(I32) }
func (m *Manager) U32() *Scalar           { return m.Scalar(U32) }
func (m *Manager) F32() *Scalar           { return m.Scalar(F32) }
func (m *Manager) F16() *Scalar           { return m.Scalar(F16) }
func (m *Manager) I64() *Scalar           { return m.Scalar(I64) }
func (m *Manager) U64() *Scalar           { return m.Scalar(U64) }
func (m *Manager) AbstractInt() *Scalar   { return m.Scalar(AbstractInt) }
func (m *Manager) AbstractFloat() *Scalar { return m.Scalar(AbstractFloat) }

// Void returns the void type.
func (m *Manager) Void() *Void { return m.void }

// Vec returns vecN<elem>.
func (m *Manager) Vec(elem Type, width uint32) *Vector {
	key := "vec:" + strconv.FormatUint(uint64(width), 10) + ":" + elem.String()
	return m.getOrCreate(key, func() Type {
		return &Vector{Elem: elem, Width: width}
	}).(*Vector)
}

// Mat returns matCxR<elem>.
func (m *Manager) Mat(elem Type, columns, rows uint32) *Matrix {
	key := "mat:" + strconv.FormatUint(uint64(columns), 10) + "x" +
		strconv.FormatUint(uint64(rows), 10) + ":" + elem.String()
	return m.getOrCreate(key, func() Type {
		return &Matrix{Columns: columns, Rows: rows, ColumnType: m.Vec(elem, rows)}
	}).(*Matrix)
}

// Array returns array<elem, count>. A count of zero yields a runtime-sized
// array.
func (m *Manager) Array(elem Type, count uint32) *Array {
	key := "array:" + strconv.FormatUint(uint64(count), 10) + ":" + elem.String()
	return m.getOrCreate(key, func() Type {
		return &Array{Elem: elem, Count: count}
	}).(*Array)
}

// RuntimeArray returns array<elem>.
func (m *Manager) RuntimeArray(elem Type) *Array {
	return m.Array(elem, 0)
}

// Ptr returns ptr<space, store, access>. An undefined access selects the
// default access of the address space.
func (m *Manager) Ptr(space AddressSpace, store Type, access Access) *Pointer {
	if access == AccessUndefined {
		access = DefaultAccess(space)
	}
	key := "ptr:" + space.String() + ":" + store.String() + ":" + access.String()
	return m.getOrCreate(key, func() Type {
		return &Pointer{Space: space, Store: store, Access: access}
	}).(*Pointer)
}

// Ref returns ref<space, store, access>.
func (m *Manager) Ref(space AddressSpace, store Type, access Access) *Reference {
	if access == AccessUndefined {
		access = DefaultAccess(space)
	}
	key := "ref:" + space.String() + ":" + store.String() + ":" + access.String()
	return m.getOrCreate(key, func() Type {
		return &Reference{Space: space, Store: store, Access: access}
	}).(*Reference)
}

// Atomic returns atomic<elem>.
func (m *Manager) Atomic(elem Type) *Atomic {
	return m.getOrCreate("atomic:"+elem.String(), func() Type {
		return &Atomic{Elem: elem}
	}).(*Atomic)
}

// Sampler returns sampler or sampler_comparison.
func (m *Manager) Sampler(comparison bool) *Sampler {
	return m.getOrCreate("sampler:"+strconv.FormatBool(comparison), func() Type {
		return &Sampler{Comparison: comparison}
	}).(*Sampler)
}

// Texture returns the texture type described by t.
func (m *Manager) Texture(t Texture) *Texture {
	key := "texture:" + t.String()
	return m.getOrCreate(key, func() Type {
		c := t
		return &c
	}).(*Texture)
}

// MemberDesc describes a struct member before layout.
type MemberDesc struct {
	Name string
	Type Type
	// Align and Size override the natural layout when non-zero.
	Align uint32
	Size  uint32
	Attrs IOAttributes
}

// Struct creates a struct type called name. Struct names are unique per
// Manager.
func (m *Manager) Struct(name string, members []MemberDesc) (*Struct, error) {
	s, err := m.DeclareStruct(name)
	if err != nil {
		return nil, err
	}
	m.DefineStruct(s, members)
	return s, nil
}

// DeclareStruct registers an empty struct called name. Its members are
// supplied later with DefineStruct.
func (m *Manager) DeclareStruct(name string) (*Struct, error) {
	if _, exists := m.names[name]; exists {
		return nil, fmt.Errorf("struct %q already declared", name)
	}
	s := &Struct{Name: name}
	m.names[name] = s
	m.structs = append(m.structs, s)
	return s, nil
}

// DefineStruct sets the members of s and computes its layout.
func (m *Manager) DefineStruct(s *Struct, members []MemberDesc) {
	s.Members = make([]*StructMember, len(members))
	var offset, maxAlign uint32 = 0, 1
	for i, desc := range members {
		align := desc.Align
		if align == 0 {
			align = desc.Type.Align()
		}
		size := desc.Size
		if size == 0 {
			size = desc.Type.Size()
		}
		if align == 0 {
			align = 1
		}
		offset = RoundUp(align, offset)
		s.Members[i] = &StructMember{
			Name:   desc.Name,
			Type:   desc.Type,
			Index:  uint32(i),
			Offset: offset,
			Align:  align,
			Size:   size,
			Attrs:  desc.Attrs,
		}
		offset += size
		if align > maxAlign {
			maxAlign = align
		}
	}
	s.align = maxAlign
	s.sizeNoPadding = offset
	s.size = RoundUp(maxAlign, offset)
}

// MintStruct creates a struct whose name is base, or base with the first free
// numeric suffix when base is taken.
func (m *Manager) MintStruct(base string, members []MemberDesc) *Struct {
	name := m.UniqueStructName(base)
	s, _ := m.Struct(name, members)
	return s
}

// UniqueStructName returns base or base_N, whichever is unused.
func (m *Manager) UniqueStructName(base string) string {
	if _, taken := m.names[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if _, taken := m.names[candidate]; !taken {
			return candidate
		}
	}
}

// LookupStruct returns the struct called name.
func (m *Manager) LookupStruct(name string) (*Struct, bool) {
	s, ok := m.names[name]
	return s, ok
}

// Structs returns every struct in creation order.
func (m *Manager) Structs() []*Struct {
	return m.structs
}

// Count returns the number of interned non-struct types.
func (m *Manager) Count() int {
	return len(m.cache)
}

// Materialize converts abstract numeric types (also inside vectors,
// matrices and arrays) to their default concrete types: abstract-int to i32
// and abstract-float to f32.
func (m *Manager) Materialize(t Type) Type {
	switch t := t.(type) {
	case *Scalar:
		switch t.Kind {
		case AbstractInt:
			return m.I32()
		case AbstractFloat:
			return m.F32()
		}
	case *Vector:
		if el := m.Materialize(t.Elem); el != t.Elem {
			return m.Vec(el, t.Width)
		}
	case *Matrix:
		if el := m.Materialize(t.Elem()); el != t.Elem() {
			return m.Mat(el, t.Columns, t.Rows)
		}
	case *Array:
		if el := m.Materialize(t.Elem); el != t.Elem {
			return m.Array(el, t.Count)
		}
	}
	return t
}

// WithElement returns t with its deepest scalar element replaced by el,
// keeping vector width, matrix shape and array count.
func (m *Manager) WithElement(t Type, el Type) Type {
	switch t := t.(type) {
	case *Vector:
		return m.Vec(el, t.Width)
	case *Matrix:
		return m.Mat(el, t.Columns, t.Rows)
	case *Array:
		return m.Array(m.WithElement(t.Elem, el), t.Count)
	default:
		return el
	}
}

// MatchWidth returns el when match is a scalar, otherwise vecN<el> with the
// width of the vector match.
func (m *Manager) MatchWidth(el Type, match Type) Type {
	if v, ok := match.(*Vector); ok {
		return m.Vec(el, v.Width)
	}
	return el
}
