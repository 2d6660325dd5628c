package ir

import (
	"github.com/gogpu/wgslcore/types"
)

// Var declares a variable. Its result is a pointer; operand 0 is the
// optional initializer.
type Var struct {
	instBase
	BindingPoint *BindingPoint
	Attrs        types.IOAttributes
}

func (*Var) Name() string { return "var" }

// Initializer returns the initializer, or nil.
func (v *Var) Initializer() Value { return v.Operand(0) }

// SetInitializer sets the initializer.
func (v *Var) SetInitializer(init Value) {
	if len(v.operands) == 0 {
		v.appendOperand(init)
		return
	}
	v.SetOperand(0, init)
}

// Pointer returns the result's pointer type.
func (v *Var) Pointer() *types.Pointer {
	p, _ := v.Result().Type().(*types.Pointer)
	return p
}

// Override declares a pipeline-overridable constant.
type Override struct {
	instBase
	ID *uint16
}

func (*Override) Name() string { return "override" }

// Let binds a name to a value.
type Let struct{ instBase }

func (*Let) Name() string { return "let" }

// Value returns the bound value.
func (l *Let) Value() Value { return l.Operand(0) }

// Load reads through a pointer.
type Load struct{ instBase }

func (*Load) Name() string { return "load" }

// From returns the pointer operand.
func (l *Load) From() Value { return l.Operand(0) }

// Store writes a value through a pointer.
type Store struct{ instBase }

func (*Store) Name() string { return "store" }

// To returns the pointer operand.
func (s *Store) To() Value { return s.Operand(0) }

// From returns the stored value.
func (s *Store) From() Value { return s.Operand(1) }

// LoadVectorElement reads one element of a vector through a pointer.
type LoadVectorElement struct{ instBase }

func (*LoadVectorElement) Name() string { return "load_vector_element" }

// From returns the vector pointer.
func (l *LoadVectorElement) From() Value { return l.Operand(0) }

// Index returns the element index.
func (l *LoadVectorElement) Index() Value { return l.Operand(1) }

// StoreVectorElement writes one element of a vector through a pointer.
type StoreVectorElement struct{ instBase }

func (*StoreVectorElement) Name() string { return "store_vector_element" }

// To returns the vector pointer.
func (s *StoreVectorElement) To() Value { return s.Operand(0) }

// Index returns the element index.
func (s *StoreVectorElement) Index() Value { return s.Operand(1) }

// Value returns the stored element.
func (s *StoreVectorElement) Value() Value { return s.Operand(2) }

// Access indexes into a composite value or through a pointer. Operand 0 is
// the object; the rest are indices.
type Access struct{ instBase }

func (*Access) Name() string { return "access" }

// Object returns the indexed object.
func (a *Access) Object() Value { return a.Operand(0) }

// Indices returns the index operands.
func (a *Access) Indices() []Value { return a.operands[1:] }

// Swizzle selects vector components.
type Swizzle struct {
	instBase
	Indices []uint32
}

func (*Swizzle) Name() string { return "swizzle" }

// Object returns the swizzled vector.
func (s *Swizzle) Object() Value { return s.Operand(0) }

// Construct builds a composite, or a splat when given one scalar.
type Construct struct{ instBase }

func (*Construct) Name() string { return "construct" }

// Convert is a value conversion between numeric types.
type Convert struct{ instBase }

func (*Convert) Name() string { return "convert" }

// Bitcast reinterprets the bits of a value.
type Bitcast struct{ instBase }

func (*Bitcast) Name() string { return "bitcast" }

// Value returns the reinterpreted value.
func (b *Bitcast) Value() Value { return b.Operand(0) }

// UnaryOp is the operator of a Unary instruction.
type UnaryOp uint8

const (
	UnaryComplement UnaryOp = iota
	UnaryNegation
	UnaryNot
	UnaryAddressOf
	UnaryIndirection
)

var unaryNames = [...]string{
	UnaryComplement:  "complement",
	UnaryNegation:    "negation",
	UnaryNot:         "not",
	UnaryAddressOf:   "ref-to-ptr",
	UnaryIndirection: "ptr-to-ref",
}

func (op UnaryOp) String() string { return unaryNames[op] }

// Unary applies a unary operator.
type Unary struct {
	instBase
	Op UnaryOp
}

func (u *Unary) Name() string { return u.Op.String() }

// BinaryOp is the operator of a Binary instruction.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota
	BinarySubtract
	BinaryMultiply
	BinaryDivide
	BinaryModulo
	BinaryAnd
	BinaryOr
	BinaryXor
	BinaryEqual
	BinaryNotEqual
	BinaryLessThan
	BinaryGreaterThan
	BinaryLessThanEqual
	BinaryGreaterThanEqual
	BinaryShiftLeft
	BinaryShiftRight
	BinaryLogicalAnd
	BinaryLogicalOr
)

var binaryNames = [...]string{
	BinaryAdd:              "add",
	BinarySubtract:         "sub",
	BinaryMultiply:         "mul",
	BinaryDivide:           "div",
	BinaryModulo:           "mod",
	BinaryAnd:              "and",
	BinaryOr:               "or",
	BinaryXor:              "xor",
	BinaryEqual:            "eq",
	BinaryNotEqual:         "neq",
	BinaryLessThan:         "lt",
	BinaryGreaterThan:      "gt",
	BinaryLessThanEqual:    "lte",
	BinaryGreaterThanEqual: "gte",
	BinaryShiftLeft:        "shl",
	BinaryShiftRight:       "shr",
	BinaryLogicalAnd:       "logical-and",
	BinaryLogicalOr:        "logical-or",
}

func (op BinaryOp) String() string { return binaryNames[op] }

// IsComparison reports whether op yields a bool.
func (op BinaryOp) IsComparison() bool {
	return op >= BinaryEqual && op <= BinaryGreaterThanEqual
}

// Binary applies a binary operator.
type Binary struct {
	instBase
	Op BinaryOp
}

func (b *Binary) Name() string { return b.Op.String() }

// LHS returns the left operand.
func (b *Binary) LHS() Value { return b.Operand(0) }

// RHS returns the right operand.
func (b *Binary) RHS() Value { return b.Operand(1) }

// BuiltinCall calls a builtin function.
type BuiltinCall struct {
	instBase
	Func string
}

func (c *BuiltinCall) Name() string { return c.Func }

// Args returns the call arguments.
func (c *BuiltinCall) Args() []Value { return c.operands }

// UserCall calls a Function. Operand 0 is the callee.
type UserCall struct{ instBase }

func (*UserCall) Name() string { return "call" }

// Target returns the called function.
func (c *UserCall) Target() *Function {
	f, _ := c.Operand(0).(*Function)
	return f
}

// Args returns the call arguments.
func (c *UserCall) Args() []Value { return c.operands[1:] }

// Discard demotes the invocation to a helper invocation.
type Discard struct{ instBase }

func (*Discard) Name() string { return "discard" }

var (
	_ Instruction = (*Var)(nil)
	_ Instruction = (*Override)(nil)
	_ Instruction = (*Let)(nil)
	_ Instruction = (*Load)(nil)
	_ Instruction = (*Store)(nil)
	_ Instruction = (*LoadVectorElement)(nil)
	_ Instruction = (*StoreVectorElement)(nil)
	_ Instruction = (*Access)(nil)
	_ Instruction = (*Swizzle)(nil)
	_ Instruction = (*Construct)(nil)
	_ Instruction = (*Convert)(nil)
	_ Instruction = (*Bitcast)(nil)
	_ Instruction = (*Unary)(nil)
	_ Instruction = (*Binary)(nil)
	_ Instruction = (*BuiltinCall)(nil)
	_ Instruction = (*UserCall)(nil)
	_ Instruction = (*Discard)(nil)
)
