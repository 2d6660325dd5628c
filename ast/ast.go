// Package ast defines the abstract syntax tree produced by the WGSL parser.
//
// Every node category is a closed set of variants: Decl, Stmt and Expr are
// sealed interfaces and traversals switch over the concrete node types.
// Types are spelled as expressions: a type reference is an *Ident, possibly
// with template arguments, and only resolution decides whether an
// identifier names a type or a value.
package ast

import (
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/symbol"
)

// MaxDepth bounds the nesting of expressions and statements accepted by the
// parser and the recursive passes over the tree.
const MaxDepth = 256

// NodeID identifies a node within its Module. IDs are assigned in creation
// order and never reused.
type NodeID uint32

// Node is implemented by every syntax tree node.
type Node interface {
	ID() NodeID
	Range() diag.Range
}

// Base carries the identity and source range shared by all nodes.
type Base struct {
	NodeID NodeID
	Source diag.Range
}

func (b *Base) ID() NodeID        { return b.NodeID }
func (b *Base) Range() diag.Range { return b.Source }

// Module is a parsed WGSL translation unit. It owns every node reachable
// from Decls.
type Module struct {
	// Decls holds the module-scope declarations in source order.
	Decls     []Decl
	Symbols   *symbol.Table
	NodeCount int
}

// Functions returns the function declarations in source order.
func (m *Module) Functions() []*Function {
	var out []*Function
	for _, d := range m.Decls {
		if f, ok := d.(*Function); ok {
			out = append(out, f)
		}
	}
	return out
}

// Attribute is an @name(args...) decoration.
type Attribute struct {
	Base
	Name string
	Args []Expr
}

// FindAttribute returns the first attribute called name.
func FindAttribute(attrs []*Attribute, name string) *Attribute {
	for _, a := range attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Variable is implemented by every named value declaration: module-scope
// and local var, let, const and override declarations and function
// parameters.
type Variable interface {
	Node
	VarName() *Ident
	// VarType returns the declared type, or nil when inferred.
	VarType() *Ident
	// Initializer returns the initializer expression, or nil.
	Initializer() Expr
	variable()
}
