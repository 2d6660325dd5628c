package resolver

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/types"
)

// Value is a folded constant. Scalars carry their payload in B, I or F
// according to Type; vectors, matrices, arrays and structs carry Elems.
type Value struct {
	Type  types.Type
	B     bool
	I     int64
	F     float64
	Elems []*Value
}

// errNotFoldable reports an operation the folder does not evaluate. The
// expression keeps its stage but has no value.
var errNotFoldable = errors.New("not foldable")

// IntValue returns an integer constant of type t.
func IntValue(t types.Type, i int64) *Value { return &Value{Type: t, I: i} }

// FloatValue returns a floating point constant of type t.
func FloatValue(t types.Type, f float64) *Value { return &Value{Type: t, F: f} }

// BoolValue returns a bool constant.
func BoolValue(t types.Type, b bool) *Value { return &Value{Type: t, B: b} }

// CompositeValue returns a composite constant.
func CompositeValue(t types.Type, elems []*Value) *Value {
	return &Value{Type: t, Elems: elems}
}

// ZeroValue returns the zero value of t, or nil when t has none.
func ZeroValue(t types.Type) *Value {
	switch t := t.(type) {
	case *types.Scalar:
		return &Value{Type: t}
	case *types.Vector:
		elems := make([]*Value, t.Width)
		for i := range elems {
			elems[i] = ZeroValue(t.Elem)
		}
		return CompositeValue(t, elems)
	case *types.Matrix:
		elems := make([]*Value, t.Columns)
		for i := range elems {
			elems[i] = ZeroValue(t.ColumnType)
		}
		return CompositeValue(t, elems)
	case *types.Array:
		if t.Count == 0 {
			return nil
		}
		elems := make([]*Value, t.Count)
		for i := range elems {
			elems[i] = ZeroValue(t.Elem)
			if elems[i] == nil {
				return nil
			}
		}
		return CompositeValue(t, elems)
	case *types.Struct:
		elems := make([]*Value, len(t.Members))
		for i, m := range t.Members {
			elems[i] = ZeroValue(m.Type)
			if elems[i] == nil {
				return nil
			}
		}
		return CompositeValue(t, elems)
	}
	return nil
}

// IsScalar reports whether v holds a scalar.
func (v *Value) IsScalar() bool { return v.Elems == nil }

// Index returns the i'th element of a composite.
func (v *Value) Index(i int) *Value {
	if i < 0 || i >= len(v.Elems) {
		return nil
	}
	return v.Elems[i]
}

// AsInt returns the integer payload of a scalar, converting floats and
// bools.
func (v *Value) AsInt() int64 {
	switch {
	case types.IsFloat(v.Type):
		return int64(v.F)
	case types.IsBool(v.Type):
		if v.B {
			return 1
		}
		return 0
	}
	return v.I
}

// AsFloat returns the payload of a numeric scalar as a float64.
func (v *Value) AsFloat() float64 {
	if types.IsFloat(v.Type) {
		return v.F
	}
	if types.IsBool(v.Type) {
		if v.B {
			return 1
		}
		return 0
	}
	if k, ok := v.Type.(*types.Scalar); ok && k.Kind == types.U64 {
		return float64(uint64(v.I))
	}
	return float64(v.I)
}

// AllZero reports whether every scalar of v is zero or false.
func (v *Value) AllZero() bool {
	if v.IsScalar() {
		return !v.B && v.I == 0 && v.F == 0
	}
	for _, e := range v.Elems {
		if !e.AllZero() {
			return false
		}
	}
	return true
}

// Equal reports whether v and o hold the same type and payload.
func (v *Value) Equal(o *Value) bool {
	if v.Type != o.Type || len(v.Elems) != len(o.Elems) {
		return false
	}
	if v.IsScalar() {
		return v.B == o.B && v.I == o.I && v.F == o.F
	}
	for i := range v.Elems {
		if !v.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

func (v *Value) String() string {
	if !v.IsScalar() {
		s := v.Type.String() + "("
		for i, e := range v.Elems {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	}
	sc, _ := v.Type.(*types.Scalar)
	if sc == nil {
		return "?"
	}
	switch sc.Kind {
	case types.Bool:
		return strconv.FormatBool(v.B)
	case types.I32:
		return strconv.FormatInt(v.I, 10) + "i"
	case types.U32:
		return strconv.FormatInt(v.I, 10) + "u"
	case types.U64:
		return strconv.FormatUint(uint64(v.I), 10)
	case types.I64, types.AbstractInt:
		return strconv.FormatInt(v.I, 10)
	case types.F32:
		return formatFloat(v.F) + "f"
	case types.F16:
		return formatFloat(v.F) + "h"
	default:
		return formatFloat(v.F)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'n' || c == 'I' {
			return s
		}
	}
	return s + ".0"
}

// representable checks that a scalar payload fits its type.
func representable(v *Value) error {
	sc, ok := v.Type.(*types.Scalar)
	if !ok {
		return nil
	}
	switch sc.Kind {
	case types.I32:
		if v.I < math.MinInt32 || v.I > math.MaxInt32 {
			return fmt.Errorf("value %d cannot be represented as 'i32'", v.I)
		}
	case types.U32:
		if v.I < 0 || v.I > math.MaxUint32 {
			return fmt.Errorf("value %d cannot be represented as 'u32'", v.I)
		}
	case types.F32:
		if math.IsInf(v.F, 0) || math.Abs(v.F) > math.MaxFloat32 {
			return fmt.Errorf("value %s cannot be represented as 'f32'", formatFloat(v.F))
		}
	case types.F16:
		if math.IsInf(v.F, 0) || math.Abs(v.F) > 65504 {
			return fmt.Errorf("value %s cannot be represented as 'f16'", formatFloat(v.F))
		}
	case types.AbstractFloat:
		if math.IsInf(v.F, 0) || math.IsNaN(v.F) {
			return fmt.Errorf("value %s cannot be represented as 'abstract-float'", formatFloat(v.F))
		}
	}
	return nil
}

// Convert converts v to type to. Abstract values are materialized with a
// representability check; explicit conversions (T(x)) follow the WGSL
// value conversion rules instead.
func Convert(m *types.Manager, v *Value, to types.Type, explicit bool) (*Value, error) {
	if v == nil {
		return nil, errNotFoldable
	}
	if v.Type == to {
		return v, nil
	}
	if !v.IsScalar() {
		elems := make([]*Value, len(v.Elems))
		for i, e := range v.Elems {
			var elTo types.Type
			switch t := to.(type) {
			case *types.Vector:
				elTo = t.Elem
			case *types.Matrix:
				elTo = t.ColumnType
			case *types.Array:
				elTo = t.Elem
			default:
				return nil, errNotFoldable
			}
			c, err := Convert(m, e, elTo, explicit)
			if err != nil {
				return nil, err
			}
			elems[i] = c
		}
		return CompositeValue(to, elems), nil
	}

	sc, ok := to.(*types.Scalar)
	if !ok {
		return nil, errNotFoldable
	}
	out := &Value{Type: to}
	switch {
	case sc.Kind == types.Bool:
		out.B = !v.AllZero()
		return out, nil
	case types.IsFloat(to):
		out.F = v.AsFloat()
		if sc.Kind == types.F32 {
			out.F = float64(float32(out.F))
		}
	case types.IsFloat(v.Type):
		f := math.Trunc(v.F)
		if !explicit && f != v.F {
			return nil, fmt.Errorf("value %s cannot be represented as '%s'", formatFloat(v.F), to)
		}
		if explicit {
			f = clampToInt(f, sc.Kind)
		}
		out.I = int64(f)
	default:
		out.I = v.AsInt()
		if explicit {
			out.I = wrapInt(out.I, sc.Kind)
		}
	}
	if err := representable(out); err != nil {
		return nil, err
	}
	return out, nil
}

func clampToInt(f float64, k types.ScalarKind) float64 {
	switch k {
	case types.I32:
		return math.Max(math.MinInt32, math.Min(math.MaxInt32, f))
	case types.U32:
		return math.Max(0, math.Min(math.MaxUint32, f))
	}
	return f
}

// wrapInt reinterprets the low bits of i as an integer of kind k.
func wrapInt(i int64, k types.ScalarKind) int64 {
	switch k {
	case types.I32:
		return int64(int32(i))
	case types.U32:
		return int64(uint32(i))
	}
	return i
}

// Bitcast reinterprets the bits of a 32-bit scalar or vector.
func Bitcast(v *Value, to types.Type) (*Value, error) {
	if !v.IsScalar() {
		vt, ok := to.(*types.Vector)
		if !ok || uint32(len(v.Elems)) != vt.Width {
			return nil, errNotFoldable
		}
		elems := make([]*Value, len(v.Elems))
		for i, e := range v.Elems {
			c, err := Bitcast(e, vt.Elem)
			if err != nil {
				return nil, err
			}
			elems[i] = c
		}
		return CompositeValue(to, elems), nil
	}
	var raw uint32
	switch k := v.Type.(*types.Scalar).Kind; k {
	case types.F32:
		raw = math.Float32bits(float32(v.F))
	case types.I32, types.U32:
		raw = uint32(v.I)
	default:
		return nil, errNotFoldable
	}
	sc, ok := to.(*types.Scalar)
	if !ok {
		return nil, errNotFoldable
	}
	switch sc.Kind {
	case types.F32:
		return FloatValue(to, float64(math.Float32frombits(raw))), nil
	case types.I32:
		return IntValue(to, int64(int32(raw))), nil
	case types.U32:
		return IntValue(to, int64(raw)), nil
	}
	return nil, errNotFoldable
}

// foldUnary evaluates op on v, producing a value of type result.
func foldUnary(op ast.UnaryOp, v *Value, result types.Type) (*Value, error) {
	if !v.IsScalar() {
		elems := make([]*Value, len(v.Elems))
		for i, e := range v.Elems {
			r, err := foldUnary(op, e, types.ElementAt(result, uint32(i)))
			if err != nil {
				return nil, err
			}
			elems[i] = r
		}
		return CompositeValue(result, elems), nil
	}
	out := &Value{Type: result}
	switch op {
	case ast.Negate:
		if types.IsFloat(v.Type) {
			out.F = -v.F
		} else {
			if v.I == math.MinInt64 {
				return nil, fmt.Errorf("'-%d' cannot be represented as '%s'", v.I, result)
			}
			out.I = -v.I
		}
	case ast.Not:
		out.B = !v.B
	case ast.Complement:
		out.I = wrapInt(^v.I, result.(*types.Scalar).Kind)
	default:
		return nil, errNotFoldable
	}
	return out, representable(out)
}

// foldBinary evaluates l op r. Mixed scalar and vector operands are
// broadcast; result is the type of the expression.
func foldBinary(op ast.BinaryOp, l, r *Value, result types.Type) (*Value, error) {
	if !l.IsScalar() || !r.IsScalar() {
		if _, isMat := l.Type.(*types.Matrix); isMat {
			return nil, errNotFoldable
		}
		if _, isMat := r.Type.(*types.Matrix); isMat {
			return nil, errNotFoldable
		}
		n := len(l.Elems)
		if n == 0 {
			n = len(r.Elems)
		}
		elems := make([]*Value, n)
		for i := range elems {
			le, re := l, r
			if !l.IsScalar() {
				le = l.Elems[i]
			}
			if !r.IsScalar() {
				re = r.Elems[i]
			}
			v, err := foldBinary(op, le, re, types.ElementAt(result, uint32(i)))
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return CompositeValue(result, elems), nil
	}

	out := &Value{Type: result}
	if op.IsComparison() {
		c := compare(l, r)
		switch op {
		case ast.Equal:
			out.B = c == 0
		case ast.NotEqual:
			out.B = c != 0
		case ast.LessThan:
			out.B = c < 0
		case ast.GreaterThan:
			out.B = c > 0
		case ast.LessThanEqual:
			out.B = c <= 0
		case ast.GreaterThanEqual:
			out.B = c >= 0
		}
		return out, nil
	}
	if types.IsBool(l.Type) {
		switch op {
		case ast.LogicalAnd, ast.And:
			out.B = l.B && r.B
		case ast.LogicalOr, ast.Or:
			out.B = l.B || r.B
		case ast.Xor:
			out.B = l.B != r.B
		default:
			return nil, errNotFoldable
		}
		return out, nil
	}
	if types.IsFloat(l.Type) {
		return foldFloat(op, l.F, r.F, out)
	}
	return foldInt(op, l.I, r.I, out)
}

func compare(l, r *Value) int {
	switch {
	case types.IsBool(l.Type):
		if l.B == r.B {
			return 0
		}
		if !l.B {
			return -1
		}
		return 1
	case types.IsFloat(l.Type):
		switch {
		case l.F < r.F:
			return -1
		case l.F > r.F:
			return 1
		case l.F == r.F:
			return 0
		}
		// NaN compares unequal to everything.
		return 2
	default:
		switch {
		case l.I < r.I:
			return -1
		case l.I > r.I:
			return 1
		}
		return 0
	}
}

func foldFloat(op ast.BinaryOp, a, b float64, out *Value) (*Value, error) {
	switch op {
	case ast.Add:
		out.F = a + b
	case ast.Subtract:
		out.F = a - b
	case ast.Multiply:
		out.F = a * b
	case ast.Divide:
		out.F = a / b
	case ast.Modulo:
		out.F = math.Mod(a, b)
	default:
		return nil, errNotFoldable
	}
	if sc := out.Type.(*types.Scalar); sc.Kind == types.F32 {
		out.F = float64(float32(out.F))
	}
	if err := representable(out); err != nil {
		return nil, fmt.Errorf("'%s %s %s' cannot be represented as '%s'",
			formatFloat(a), op, formatFloat(b), out.Type)
	}
	return out, nil
}

func foldInt(op ast.BinaryOp, a, b int64, out *Value) (*Value, error) {
	kind := out.Type.(*types.Scalar).Kind
	overflow := func() error {
		return fmt.Errorf("'%d %s %d' cannot be represented as '%s'", a, op, b, out.Type)
	}
	var ok = true
	switch op {
	case ast.Add:
		out.I, ok = addInt64(a, b)
	case ast.Subtract:
		out.I, ok = addInt64(a, -b)
		if b == math.MinInt64 {
			ok = false
		}
	case ast.Multiply:
		out.I, ok = mulInt64(a, b)
	case ast.Divide:
		if b == 0 {
			return nil, errors.New("integer division by zero is invalid")
		}
		out.I = a / b
	case ast.Modulo:
		if b == 0 {
			return nil, errors.New("integer modulo by zero is invalid")
		}
		out.I = a % b
	case ast.And:
		out.I = a & b
	case ast.Or:
		out.I = a | b
	case ast.Xor:
		out.I = a ^ b
	case ast.ShiftLeft, ast.ShiftRight:
		width := int64(32)
		if kind == types.AbstractInt || kind == types.I64 || kind == types.U64 {
			width = 64
		}
		if b < 0 || b >= width {
			return nil, fmt.Errorf("shift value must be less than the bit width of the lhs, which is %d", width)
		}
		if op == ast.ShiftLeft {
			out.I = wrapInt(a<<uint(b), kind)
			if kind == types.AbstractInt && out.I>>uint(b) != a {
				return nil, overflow()
			}
		} else if kind == types.U32 {
			out.I = int64(uint32(a) >> uint(b))
		} else {
			out.I = a >> uint(b)
		}
		return out, nil
	default:
		return nil, errNotFoldable
	}
	if !ok {
		return nil, overflow()
	}
	if representable(out) != nil {
		return nil, overflow()
	}
	return out, nil
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	sameSign := (a >= 0) == (b >= 0)
	return s, !sameSign || (s >= 0) == (a >= 0)
}

func mulInt64(a, b int64) (int64, bool) {
	hi, lo := bits.Mul64(uint64(abs64(a)), uint64(abs64(b)))
	if hi != 0 || lo > math.MaxInt64 {
		neg := (a < 0) != (b < 0)
		if neg && hi == 0 && lo == 1<<63 {
			return math.MinInt64, true
		}
		return 0, false
	}
	r := int64(lo)
	if (a < 0) != (b < 0) {
		r = -r
	}
	return r, true
}

func abs64(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

// foldBuiltin evaluates the builtins the folder supports.
func foldBuiltin(name string, args []*Value, result types.Type) (*Value, error) {
	for _, a := range args {
		if a == nil {
			return nil, errNotFoldable
		}
	}
	if len(args) > 0 && !args[0].IsScalar() && name != "select" {
		n := len(args[0].Elems)
		elems := make([]*Value, n)
		for i := 0; i < n; i++ {
			sub := make([]*Value, len(args))
			for j, a := range args {
				if a.IsScalar() {
					sub[j] = a
				} else {
					sub[j] = a.Elems[i]
				}
			}
			v, err := foldBuiltin(name, sub, types.ElementAt(result, uint32(i)))
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return CompositeValue(result, elems), nil
	}

	switch name {
	case "abs":
		v := *args[0]
		v.Type = result
		if types.IsFloat(v.Type) {
			v.F = math.Abs(v.F)
		} else if v.I < 0 {
			v.I = wrapInt(-v.I, result.(*types.Scalar).Kind)
		}
		return &v, nil
	case "min", "max":
		a, b := args[0], args[1]
		pick := a
		c := compare(a, b)
		if (name == "min" && c > 0) || (name == "max" && c < 0) {
			pick = b
		}
		v := *pick
		v.Type = result
		return &v, nil
	case "clamp":
		lo, err := foldBuiltin("max", []*Value{args[0], args[1]}, result)
		if err != nil {
			return nil, err
		}
		return foldBuiltin("min", []*Value{lo, args[2]}, result)
	case "select":
		f, t, cond := args[0], args[1], args[2]
		if cond.IsScalar() {
			pick := f
			if cond.B {
				pick = t
			}
			v := *pick
			v.Type = result
			return &v, nil
		}
		elems := make([]*Value, len(cond.Elems))
		for i, c := range cond.Elems {
			fe, te := f, t
			if !f.IsScalar() {
				fe = f.Elems[i]
			}
			if !t.IsScalar() {
				te = t.Elems[i]
			}
			v, err := foldBuiltin("select", []*Value{fe, te, c}, types.ElementAt(result, uint32(i)))
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return CompositeValue(result, elems), nil
	}
	if fn, ok := floatFolds[name]; ok && len(args) == 1 && types.IsFloat(args[0].Type) {
		out := FloatValue(result, fn(args[0].F))
		if sc, ok := result.(*types.Scalar); ok && sc.Kind == types.F32 {
			out.F = float64(float32(out.F))
		}
		if math.IsNaN(out.F) {
			return nil, fmt.Errorf("%s(%s) has no representable result", name, formatFloat(args[0].F))
		}
		return out, representable(out)
	}
	return nil, errNotFoldable
}

// floatFolds are the componentwise float builtins with a single argument.
var floatFolds = map[string]func(float64) float64{
	"ceil":        math.Ceil,
	"floor":       math.Floor,
	"trunc":       math.Trunc,
	"round":       math.RoundToEven,
	"sqrt":        math.Sqrt,
	"sin":         math.Sin,
	"cos":         math.Cos,
	"tan":         math.Tan,
	"exp":         math.Exp,
	"exp2":        math.Exp2,
	"log":         math.Log,
	"log2":        math.Log2,
	"fract":       func(f float64) float64 { return f - math.Floor(f) },
	"saturate":    func(f float64) float64 { return math.Max(0, math.Min(1, f)) },
	"degrees":     func(f float64) float64 { return f * 180 / math.Pi },
	"radians":     func(f float64) float64 { return f * math.Pi / 180 },
	"inverseSqrt": func(f float64) float64 { return 1 / math.Sqrt(f) },
}
