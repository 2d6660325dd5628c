package resolver

import (
	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/types"
)

// Stage is the earliest point at which the value of an expression is
// known. Stages are ordered: Const < Override < Runtime.
type Stage uint8

const (
	Const Stage = iota
	Override
	Runtime
)

func (s Stage) String() string {
	switch s {
	case Const:
		return "const"
	case Override:
		return "override"
	default:
		return "runtime"
	}
}

func maxStage(a, b Stage) Stage {
	if a > b {
		return a
	}
	return b
}

// ExprInfo is the semantic information of one expression.
type ExprInfo struct {
	// Type is the expression type. Expressions naming memory have a
	// *types.Reference type; the Load Rule applies where a value is needed.
	Type  types.Type
	Stage Stage
	// Value is the folded value of a const-stage expression, when the
	// folder supports the operation.
	Value *Value
}

// BindingPoint is the @group/@binding pair of a resource variable.
type BindingPoint struct {
	Group   uint32
	Binding uint32
}

// DeclInfo is the semantic information of a variable-like declaration:
// module-scope and local var, let, const, override and parameters.
type DeclInfo struct {
	Type   types.Type
	Space  types.AddressSpace
	Access types.Access
	Stage  Stage
	// Value is the folded initializer of a const declaration.
	Value   *Value
	Binding *BindingPoint
	// Attrs holds the IO attributes of an entry point parameter.
	Attrs types.IOAttributes
	// OverrideID is the @id of an override, or -1.
	OverrideID int64
}

// FunctionInfo is the semantic information of a function.
type FunctionInfo struct {
	Decl        *ast.Function
	Params      []types.Type
	ParamAttrs  []types.IOAttributes
	Return      types.Type
	ReturnAttrs types.IOAttributes
	// Stage is "vertex", "fragment", "compute" or "".
	Stage         string
	WorkgroupSize [3]uint32
	// UsedGlobals lists the module-scope vars referenced by the function or
	// any function it calls, in first-use order.
	UsedGlobals []*ast.Var
	Callees     []*ast.Function
}

func (f *FunctionInfo) addGlobal(v *ast.Var) {
	for _, g := range f.UsedGlobals {
		if g == v {
			return
		}
	}
	f.UsedGlobals = append(f.UsedGlobals, v)
}

func (f *FunctionInfo) addCallee(fn *ast.Function, callee *FunctionInfo) {
	for _, c := range f.Callees {
		if c == fn {
			return
		}
	}
	f.Callees = append(f.Callees, fn)
	if callee != nil {
		for _, g := range callee.UsedGlobals {
			f.addGlobal(g)
		}
	}
}

// CallKind classifies a call expression.
type CallKind uint8

const (
	CallFunction CallKind = iota
	CallBuiltin
	// CallConstructor builds a value of the target type from its
	// components, or the zero value when there are no arguments.
	CallConstructor
	// CallConversion converts a scalar, vector or matrix to another
	// element type.
	CallConversion
	CallBitcast
)

// CallInfo is the target of one call expression.
type CallInfo struct {
	Kind     CallKind
	Function *ast.Function
	Builtin  string
	// Type is the result type.
	Type types.Type
}

// Info holds everything the resolver learned about a module.
type Info struct {
	Types *types.Manager
	Graph *DependencyGraph

	Exprs     map[ast.Expr]*ExprInfo
	Decls     map[ast.Node]*DeclInfo
	Structs   map[*ast.Struct]*types.Struct
	Aliases   map[*ast.Alias]types.Type
	Functions map[*ast.Function]*FunctionInfo
	Calls     map[*ast.Call]*CallInfo
	// TypeRefs records the type named by each type reference.
	TypeRefs map[*ast.Ident]types.Type
	Enables  map[string]bool
}

func newInfo(graph *DependencyGraph) *Info {
	return &Info{
		Types:     types.NewManager(),
		Graph:     graph,
		Exprs:     make(map[ast.Expr]*ExprInfo),
		Decls:     make(map[ast.Node]*DeclInfo),
		Structs:   make(map[*ast.Struct]*types.Struct),
		Aliases:   make(map[*ast.Alias]types.Type),
		Functions: make(map[*ast.Function]*FunctionInfo),
		Calls:     make(map[*ast.Call]*CallInfo),
		TypeRefs:  make(map[*ast.Ident]types.Type),
		Enables:   make(map[string]bool),
	}
}

// TypeOf returns the type of e, or nil when e was not resolved.
func (in *Info) TypeOf(e ast.Expr) types.Type {
	if ei := in.Exprs[e]; ei != nil {
		return ei.Type
	}
	return nil
}

// ValueTypeOf returns the type of e after the Load Rule.
func (in *Info) ValueTypeOf(e ast.Expr) types.Type {
	return types.UnwrapRef(in.TypeOf(e))
}
