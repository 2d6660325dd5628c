package types

func scalarKind(t Type) (ScalarKind, bool) {
	if s, ok := t.(*Scalar); ok {
		return s.Kind, true
	}
	return 0, false
}

// IsScalar reports whether t is a scalar type.
func IsScalar(t Type) bool {
	_, ok := t.(*Scalar)
	return ok
}

// IsBool reports whether t is bool.
func IsBool(t Type) bool {
	k, ok := scalarKind(t)
	return ok && k == Bool
}

// IsInteger reports whether t is an integer scalar.
func IsInteger(t Type) bool {
	k, ok := scalarKind(t)
	return ok && (k == I32 || k == U32 || k == I64 || k == U64 || k == AbstractInt)
}

// IsSignedInteger reports whether t is a signed integer scalar.
func IsSignedInteger(t Type) bool {
	k, ok := scalarKind(t)
	return ok && (k == I32 || k == I64 || k == AbstractInt)
}

// IsUnsignedInteger reports whether t is an unsigned integer scalar.
func IsUnsignedInteger(t Type) bool {
	k, ok := scalarKind(t)
	return ok && (k == U32 || k == U64)
}

// IsFloat reports whether t is a floating point scalar.
func IsFloat(t Type) bool {
	k, ok := scalarKind(t)
	return ok && (k == F32 || k == F16 || k == AbstractFloat)
}

// IsNumeric reports whether t is an integer or floating point scalar.
func IsNumeric(t Type) bool {
	return IsInteger(t) || IsFloat(t)
}

// IsAbstract reports whether t is, or is composed of, an abstract numeric
// type.
func IsAbstract(t Type) bool {
	switch t := t.(type) {
	case *Scalar:
		return t.Kind == AbstractInt || t.Kind == AbstractFloat
	case *Vector:
		return IsAbstract(t.Elem)
	case *Matrix:
		return IsAbstract(t.Elem())
	case *Array:
		return IsAbstract(t.Elem)
	}
	return false
}

// ElementOrSelf returns the element type of a vector, or t itself.
func ElementOrSelf(t Type) Type {
	if v, ok := t.(*Vector); ok {
		return v.Elem
	}
	return t
}

// IsIntegerScalarOrVector reports whether t is an integer scalar or vector.
func IsIntegerScalarOrVector(t Type) bool { return IsInteger(ElementOrSelf(t)) }

// IsSignedIntegerScalarOrVector reports whether t is a signed integer scalar or vector.
func IsSignedIntegerScalarOrVector(t Type) bool { return IsSignedInteger(ElementOrSelf(t)) }

// IsUnsignedIntegerScalarOrVector reports whether t is an unsigned integer scalar or vector.
func IsUnsignedIntegerScalarOrVector(t Type) bool { return IsUnsignedInteger(ElementOrSelf(t)) }

// IsFloatScalarOrVector reports whether t is a float scalar or vector.
func IsFloatScalarOrVector(t Type) bool { return IsFloat(ElementOrSelf(t)) }

// IsBoolScalarOrVector reports whether t is a bool scalar or vector.
func IsBoolScalarOrVector(t Type) bool { return IsBool(ElementOrSelf(t)) }

// IsNumericScalarOrVector reports whether t is a numeric scalar or vector.
func IsNumericScalarOrVector(t Type) bool { return IsNumeric(ElementOrSelf(t)) }

// DeepestElement returns the scalar at the bottom of vectors, matrices and
// arrays.
func DeepestElement(t Type) Type {
	for {
		switch tt := t.(type) {
		case *Vector:
			t = tt.Elem
		case *Matrix:
			t = tt.Elem()
		case *Array:
			t = tt.Elem
		default:
			return t
		}
	}
}

// ElementAt returns the type selected by indexing t with index i: the
// element of a vector or array, the column of a matrix or the member of a
// struct. It returns nil when t cannot be indexed or i is out of range.
func ElementAt(t Type, i uint32) Type {
	switch t := t.(type) {
	case *Vector:
		if i < t.Width {
			return t.Elem
		}
	case *Matrix:
		if i < t.Columns {
			return t.ColumnType
		}
	case *Array:
		if t.Count == 0 || i < t.Count {
			return t.Elem
		}
	case *Struct:
		if int(i) < len(t.Members) {
			return t.Members[i].Type
		}
	}
	return nil
}

// IsIndexable reports whether t can be indexed with a runtime index.
func IsIndexable(t Type) bool {
	switch t.(type) {
	case *Vector, *Matrix, *Array:
		return true
	}
	return false
}

// ElemCount returns the number of elements of a composite, or 1.
func ElemCount(t Type) uint32 {
	switch t := t.(type) {
	case *Vector:
		return t.Width
	case *Matrix:
		return t.Columns
	case *Array:
		return t.Count
	case *Struct:
		return uint32(len(t.Members))
	}
	return 1
}

// IsConstructible reports whether values of t can be built with a value
// constructor.
func IsConstructible(t Type) bool {
	switch t := t.(type) {
	case *Scalar, *Vector, *Matrix:
		return true
	case *Array:
		return t.Count != 0 && IsConstructible(t.Elem)
	case *Struct:
		for _, m := range t.Members {
			if !IsConstructible(m.Type) {
				return false
			}
		}
		return true
	}
	return false
}

// IsHostShareable reports whether t may be stored in uniform or storage
// buffers.
func IsHostShareable(t Type) bool {
	switch t := t.(type) {
	case *Scalar:
		return t.Kind != Bool && t.Kind != AbstractInt && t.Kind != AbstractFloat
	case *Vector:
		return IsHostShareable(t.Elem)
	case *Matrix:
		return true
	case *Atomic:
		return true
	case *Array:
		return IsHostShareable(t.Elem)
	case *Struct:
		for _, m := range t.Members {
			if !IsHostShareable(m.Type) {
				return false
			}
		}
		return true
	}
	return false
}

// ContainsAtomic reports whether t is or contains an atomic.
func ContainsAtomic(t Type) bool {
	switch t := t.(type) {
	case *Atomic:
		return true
	case *Array:
		return ContainsAtomic(t.Elem)
	case *Struct:
		for _, m := range t.Members {
			if ContainsAtomic(m.Type) {
				return true
			}
		}
	}
	return false
}

// UnwrapRef returns the store type of a reference, or t.
func UnwrapRef(t Type) Type {
	if r, ok := t.(*Reference); ok {
		return r.Store
	}
	return t
}

// UnwrapPtr returns the store type of a pointer, or t.
func UnwrapPtr(t Type) Type {
	if p, ok := t.(*Pointer); ok {
		return p.Store
	}
	return t
}

// ConversionRank returns the cost of automatically converting from to to,
// or -1 when no automatic conversion exists. Identical types cost 0.
func ConversionRank(from, to Type) int {
	if from == to {
		return 0
	}
	switch f := from.(type) {
	case *Scalar:
		t, ok := to.(*Scalar)
		if !ok {
			return -1
		}
		switch f.Kind {
		case AbstractInt:
			switch t.Kind {
			case I32:
				return 3
			case U32:
				return 4
			case AbstractFloat:
				return 5
			case F32:
				return 6
			case F16:
				return 7
			}
		case AbstractFloat:
			switch t.Kind {
			case F32:
				return 1
			case F16:
				return 2
			}
		}
	case *Vector:
		if t, ok := to.(*Vector); ok && t.Width == f.Width {
			return ConversionRank(f.Elem, t.Elem)
		}
	case *Matrix:
		if t, ok := to.(*Matrix); ok && t.Columns == f.Columns && t.Rows == f.Rows {
			return ConversionRank(f.Elem(), t.Elem())
		}
	case *Array:
		if t, ok := to.(*Array); ok && t.Count == f.Count {
			return ConversionRank(f.Elem, t.Elem)
		}
	}
	return -1
}

// MatrixNeedsDecomposition reports whether m's column stride differs from
// the 16-byte stride required by std140-style uniform layouts.
func MatrixNeedsDecomposition(m *Matrix) bool {
	return m.ColumnStride()%16 != 0
}
