package ast

// Decl is a module-scope declaration.
type Decl interface {
	Node
	declNode()
}

// Enable is an enable directive: enable f16, chromium_experimental_pixel_local;
type Enable struct {
	Base
	Extensions []string
}

// Requires is a requires directive naming language features.
type Requires struct {
	Base
	Features []string
}

// Alias declares a type alias.
type Alias struct {
	Base
	Name *Ident
	Type *Ident
}

// StructMember is a member of a struct declaration.
type StructMember struct {
	Base
	Name  *Ident
	Type  *Ident
	Attrs []*Attribute
}

// Struct declares a structure type.
type Struct struct {
	Base
	Name    *Ident
	Members []*StructMember
	Attrs   []*Attribute
}

// Var declares a variable at module or function scope.
type Var struct {
	Base
	Name *Ident
	// AddressSpace and Access are the template enumerants of var<...>;
	// empty when omitted.
	AddressSpace string
	Access       string
	Type         *Ident
	Init         Expr
	Attrs        []*Attribute
}

// Const declares a constant-expression value.
type Const struct {
	Base
	Name *Ident
	Type *Ident
	Init Expr
}

// Override declares a pipeline-overridable constant.
type Override struct {
	Base
	Name  *Ident
	Type  *Ident
	Init  Expr
	Attrs []*Attribute
}

// Let declares an immutable function-scope value.
type Let struct {
	Base
	Name *Ident
	Type *Ident
	Init Expr
}

// Param is a function parameter.
type Param struct {
	Base
	Name  *Ident
	Type  *Ident
	Attrs []*Attribute
}

// Function declares a function.
type Function struct {
	Base
	Name        *Ident
	Params      []*Param
	ReturnType  *Ident
	ReturnAttrs []*Attribute
	Body        *Block
	Attrs       []*Attribute
}

// Stage returns the pipeline stage attribute name ("vertex", "fragment",
// "compute"), or "" for ordinary functions.
func (f *Function) Stage() string {
	for _, a := range f.Attrs {
		switch a.Name {
		case "vertex", "fragment", "compute":
			return a.Name
		}
	}
	return ""
}

// ConstAssert is a const_assert at module or function scope.
type ConstAssert struct {
	Base
	Cond Expr
}

func (*Enable) declNode()      {}
func (*Requires) declNode()    {}
func (*Alias) declNode()       {}
func (*Struct) declNode()      {}
func (*Var) declNode()         {}
func (*Const) declNode()       {}
func (*Override) declNode()    {}
func (*Function) declNode()    {}
func (*ConstAssert) declNode() {}

func (v *Var) VarName() *Ident   { return v.Name }
func (v *Var) VarType() *Ident   { return v.Type }
func (v *Var) Initializer() Expr { return v.Init }
func (*Var) variable()           {}

func (c *Const) VarName() *Ident   { return c.Name }
func (c *Const) VarType() *Ident   { return c.Type }
func (c *Const) Initializer() Expr { return c.Init }
func (*Const) variable()           {}

func (o *Override) VarName() *Ident   { return o.Name }
func (o *Override) VarType() *Ident   { return o.Type }
func (o *Override) Initializer() Expr { return o.Init }
func (*Override) variable()           {}

func (l *Let) VarName() *Ident   { return l.Name }
func (l *Let) VarType() *Ident   { return l.Type }
func (l *Let) Initializer() Expr { return l.Init }
func (*Let) variable()           {}

func (p *Param) VarName() *Ident { return p.Name }
func (p *Param) VarType() *Ident { return p.Type }
func (*Param) Initializer() Expr { return nil }
func (*Param) variable()         {}

// DeclName returns the declared name of d, or nil for directives and
// assertions.
func DeclName(d Decl) *Ident {
	switch d := d.(type) {
	case *Alias:
		return d.Name
	case *Struct:
		return d.Name
	case *Var:
		return d.Name
	case *Const:
		return d.Name
	case *Override:
		return d.Name
	case *Function:
		return d.Name
	}
	return nil
}

// KindOf returns the keyword used in diagnostics for a declaration.
func KindOf(n Node) string {
	switch n.(type) {
	case *Alias:
		return "alias"
	case *Struct:
		return "struct"
	case *Var:
		return "var"
	case *Const:
		return "const"
	case *Override:
		return "override"
	case *Let:
		return "let"
	case *Param:
		return "parameter"
	case *Function:
		return "function"
	case *Enable:
		return "enable"
	case *Requires:
		return "requires"
	case *ConstAssert:
		return "const_assert"
	}
	return "declaration"
}
