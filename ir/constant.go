package ir

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/wgslcore/types"
)

// Constant is a constant value of a concrete type. Scalars carry their
// payload in I, F or B depending on the type; composites carry one element
// per component in Elems.
type Constant struct {
	valueBase
	typ   types.Type
	I     int64
	F     float64
	B     bool
	Elems []*Constant
}

// Type returns the constant's type.
func (c *Constant) Type() types.Type { return c.typ }

// Index returns element i of a composite constant. Splats built with
// Builder.Splat store every element explicitly.
func (c *Constant) Index(i int) *Constant {
	if i < 0 || i >= len(c.Elems) {
		return nil
	}
	return c.Elems[i]
}

// AllEqual reports whether every element of a composite prints the same.
func (c *Constant) AllEqual() bool {
	if len(c.Elems) < 2 {
		return false
	}
	first := c.Elems[0].String()
	for _, e := range c.Elems[1:] {
		if e.String() != first {
			return false
		}
	}
	return true
}

// Equal reports whether c and o have the same type and value.
func (c *Constant) Equal(o *Constant) bool {
	return c.typ == o.typ && c.String() == o.String()
}

// String renders the constant the way the disassembler prints it.
func (c *Constant) String() string {
	if s, ok := c.typ.(*types.Scalar); ok {
		return scalarString(s, c)
	}
	var sb strings.Builder
	sb.WriteString(c.typ.String())
	sb.WriteByte('(')
	if c.AllEqual() {
		sb.WriteString(c.Elems[0].String())
	} else {
		for i, e := range c.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.String())
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

func scalarString(s *types.Scalar, c *Constant) string {
	switch s.Kind {
	case types.Bool:
		return strconv.FormatBool(c.B)
	case types.I32:
		return strconv.FormatInt(c.I, 10) + "i"
	case types.U32:
		return strconv.FormatInt(c.I, 10) + "u"
	case types.I64:
		return strconv.FormatInt(c.I, 10) + "l"
	case types.U64:
		return strconv.FormatUint(uint64(c.I), 10) + "ul"
	case types.AbstractInt:
		return strconv.FormatInt(c.I, 10)
	case types.F32:
		return formatFloat(c.F) + "f"
	case types.F16:
		return formatFloat(c.F) + "h"
	default:
		return formatFloat(c.F)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// ConstIndex returns the value of an integer scalar constant.
func ConstIndex(v Value) (uint32, bool) {
	c, ok := v.(*Constant)
	if !ok || !types.IsInteger(c.typ) {
		return 0, false
	}
	return uint32(c.I), true
}
