package ast

import "github.com/gogpu/wgslcore/symbol"

// Expr is an expression. Type references are expressions too.
type Expr interface {
	Node
	exprNode()
}

// Ident is an identifier, optionally with template arguments
// (vec3<f32>, array<T, 4>, ptr<function, i32>).
type Ident struct {
	Base
	Symbol   symbol.Symbol
	Name     string
	Template []Expr
}

// IntLiteral is an integer literal. Suffix is 'i', 'u' or 0 for an abstract
// integer.
type IntLiteral struct {
	Base
	Value  int64
	Suffix byte
}

// FloatLiteral is a floating point literal. Suffix is 'f', 'h' or 0 for an
// abstract float.
type FloatLiteral struct {
	Base
	Value  float64
	Suffix byte
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Base
	Value bool
}

// UnaryOp enumerates prefix operators.
type UnaryOp uint8

const (
	Negate UnaryOp = iota
	Not
	Complement
	AddressOf
	Indirection
)

func (op UnaryOp) String() string {
	switch op {
	case Negate:
		return "-"
	case Not:
		return "!"
	case Complement:
		return "~"
	case AddressOf:
		return "&"
	default:
		return "*"
	}
}

// Unary is a prefix operator applied to X.
type Unary struct {
	Base
	Op UnaryOp
	X  Expr
}

// BinaryOp enumerates infix operators.
type BinaryOp uint8

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
	Modulo
	And
	Or
	Xor
	ShiftLeft
	ShiftRight
	Equal
	NotEqual
	LessThan
	GreaterThan
	LessThanEqual
	GreaterThanEqual
	LogicalAnd
	LogicalOr
)

var binaryOpNames = [...]string{
	Add:              "+",
	Subtract:         "-",
	Multiply:         "*",
	Divide:           "/",
	Modulo:           "%",
	And:              "&",
	Or:               "|",
	Xor:              "^",
	ShiftLeft:        "<<",
	ShiftRight:       ">>",
	Equal:            "==",
	NotEqual:         "!=",
	LessThan:         "<",
	GreaterThan:      ">",
	LessThanEqual:    "<=",
	GreaterThanEqual: ">=",
	LogicalAnd:       "&&",
	LogicalOr:        "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports whether op yields a bool from two operands of the
// same type.
func (op BinaryOp) IsComparison() bool {
	return op >= Equal && op <= GreaterThanEqual
}

// IsLogical reports whether op is a short-circuiting operator.
func (op BinaryOp) IsLogical() bool {
	return op == LogicalAnd || op == LogicalOr
}

// IsShift reports whether op is a shift.
func (op BinaryOp) IsShift() bool {
	return op == ShiftLeft || op == ShiftRight
}

// Binary is L op R.
type Binary struct {
	Base
	Op BinaryOp
	L  Expr
	R  Expr
}

// Call is a function call, builtin call or value constructor. Target may
// name a function or a type.
type Call struct {
	Base
	Target *Ident
	Args   []Expr
}

// Index is X[Index].
type Index struct {
	Base
	X     Expr
	Index Expr
}

// Member is X.Member: a struct member access or a vector swizzle.
type Member struct {
	Base
	X      Expr
	Member *Ident
}

func (*Ident) exprNode()        {}
func (*IntLiteral) exprNode()   {}
func (*FloatLiteral) exprNode() {}
func (*BoolLiteral) exprNode()  {}
func (*Unary) exprNode()        {}
func (*Binary) exprNode()       {}
func (*Call) exprNode()         {}
func (*Index) exprNode()        {}
func (*Member) exprNode()       {}
