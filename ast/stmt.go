package ast

// Stmt is a statement inside a function body.
type Stmt interface {
	Node
	stmtNode()
}

// Block is a brace-delimited statement list introducing a scope.
type Block struct {
	Base
	Stmts []Stmt
}

// DeclStmt declares a local var, let or const.
type DeclStmt struct {
	Base
	Decl Variable
}

// Assign is lhs = rhs.
type Assign struct {
	Base
	LHS Expr
	RHS Expr
}

// CompoundAssign is lhs op= rhs.
type CompoundAssign struct {
	Base
	LHS Expr
	Op  BinaryOp
	RHS Expr
}

// IncDec is lhs++ or lhs--.
type IncDec struct {
	Base
	LHS       Expr
	Increment bool
}

// PhonyAssign is _ = rhs.
type PhonyAssign struct {
	Base
	RHS Expr
}

// Return returns from the enclosing function. Value is nil for void returns.
type Return struct {
	Base
	Value Expr
}

// If is an if statement. Else is nil, an *If or a *Block.
type If struct {
	Base
	Cond Expr
	Body *Block
	Else Stmt
}

// Loop is loop { body continuing { ... } }.
type Loop struct {
	Base
	Body       *Block
	Continuing *Block
}

// For is for (init; cond; update) { body }.
type For struct {
	Base
	Init   Stmt
	Cond   Expr
	Update Stmt
	Body   *Block
}

// While is while cond { body }.
type While struct {
	Base
	Cond Expr
	Body *Block
}

// CaseSelector is one selector of a case clause. Expr is nil for default.
type CaseSelector struct {
	Expr Expr
}

// IsDefault reports whether the selector is the default selector.
func (s CaseSelector) IsDefault() bool { return s.Expr == nil }

// CaseClause is a case or default clause of a switch.
type CaseClause struct {
	Base
	Selectors []CaseSelector
	Body      *Block
}

// HasDefault reports whether the clause contains the default selector.
func (c *CaseClause) HasDefault() bool {
	for _, s := range c.Selectors {
		if s.IsDefault() {
			return true
		}
	}
	return false
}

// Switch is a switch statement.
type Switch struct {
	Base
	Selector Expr
	Clauses  []*CaseClause
}

// Break exits the innermost loop or switch.
type Break struct {
	Base
}

// BreakIf is break if cond; at the end of a continuing block.
type BreakIf struct {
	Base
	Cond Expr
}

// Continue starts the next loop iteration.
type Continue struct {
	Base
}

// Discard demotes the fragment invocation to a helper.
type Discard struct {
	Base
}

// CallStmt is a function call whose result is ignored.
type CallStmt struct {
	Base
	Call *Call
}

func (*Block) stmtNode()          {}
func (*DeclStmt) stmtNode()       {}
func (*Assign) stmtNode()         {}
func (*CompoundAssign) stmtNode() {}
func (*IncDec) stmtNode()         {}
func (*PhonyAssign) stmtNode()    {}
func (*Return) stmtNode()         {}
func (*If) stmtNode()             {}
func (*Loop) stmtNode()           {}
func (*For) stmtNode()            {}
func (*While) stmtNode()          {}
func (*Switch) stmtNode()         {}
func (*Break) stmtNode()          {}
func (*BreakIf) stmtNode()        {}
func (*Continue) stmtNode()       {}
func (*Discard) stmtNode()        {}
func (*CallStmt) stmtNode()       {}
func (*ConstAssert) stmtNode()    {}
