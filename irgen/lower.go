// Package irgen lowers a resolved WGSL module to IR.
//
// Expressions naming memory lower to pointers; the Load Rule turns them into
// load (or load_vector_element for a vector component) where a value is
// needed. Chains of index and member expressions merge into one access
// instruction. Const-expressions become constants.
package irgen

import (
	"fmt"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/resolver"
	"github.com/gogpu/wgslcore/types"
)

// Lowerer converts a resolved AST module to IR.
type Lowerer struct {
	ast    *ast.Module
	info   *resolver.Info
	module *ir.Module
	b      *ir.Builder
	tm     *types.Manager

	// values maps declarations to their IR value: the pointer of a var, the
	// result of a let or override, or a parameter.
	values    map[ast.Node]ir.Value
	functions map[*ast.Function]*ir.Function

	// Current function context
	currentFunc *ir.Function
	block       *ir.Block
	targets     []target

	errors diag.List
}

// target is an enclosing construct a break or continue statement can leave.
type target struct {
	loop *ir.Loop
	sw   *ir.Switch
	// continuing is false when the loop has no continuing statements, so
	// continue jumps straight to the next iteration.
	continuing bool
}

// Generate lowers mod, which must have resolved without errors, to IR. The
// IR module shares info's type manager.
func Generate(mod *ast.Module, info *resolver.Info) (*ir.Module, error) {
	if mod == nil || info == nil {
		return nil, diag.NewInternalError("irgen", "module has not been resolved")
	}
	m := ir.NewModule(info.Types)
	l := &Lowerer{
		ast:       mod,
		info:      info,
		module:    m,
		b:         ir.NewBuilder(m),
		tm:        info.Types,
		values:    make(map[ast.Node]ir.Value, 32),
		functions: make(map[*ast.Function]*ir.Function, len(info.Functions)),
	}

	for _, d := range l.globals() {
		var err error
		switch d := d.(type) {
		case *ast.Var:
			err = l.lowerGlobalVar(d)
		case *ast.Override:
			err = l.lowerOverride(d)
		case *ast.Function:
			err = l.lowerFunction(d)
		}
		if err != nil {
			l.errors.AddError(d.Range(), "%v", err)
		}
	}

	if err := l.errors.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// globals returns the declarations in dependency order, falling back to
// source order when no graph is available.
func (l *Lowerer) globals() []ast.Decl {
	if l.info.Graph != nil && len(l.info.Graph.OrderedGlobals) > 0 {
		return l.info.Graph.OrderedGlobals
	}
	return l.ast.Decls
}

func (l *Lowerer) lowerGlobalVar(v *ast.Var) error {
	di := l.info.Decls[v]
	if di == nil || di.Type == nil {
		return fmt.Errorf("global var %s: unresolved", v.Name.Name)
	}
	access := di.Access
	if access == types.AccessUndefined {
		access = types.DefaultAccess(di.Space)
	}
	var init ir.Value
	if v.Init != nil {
		c, err := l.constExpr(v.Init)
		if err != nil {
			return fmt.Errorf("global var %s: %w", v.Name.Name, err)
		}
		init = c
	}
	l.b.SetBlock(l.module.Root)
	defer l.b.SetBlock(nil)
	inst := l.b.Var(v.Name.Name, l.tm.Ptr(di.Space, di.Type, access))
	if init != nil {
		inst.SetInitializer(init)
	}
	if di.Binding != nil {
		inst.BindingPoint = &ir.BindingPoint{Group: di.Binding.Group, Binding: di.Binding.Binding}
	}
	l.values[v] = inst.Result()
	return nil
}

func (l *Lowerer) lowerOverride(o *ast.Override) error {
	di := l.info.Decls[o]
	if di == nil || di.Type == nil {
		return fmt.Errorf("override %s: unresolved", o.Name.Name)
	}
	var init ir.Value
	if o.Init != nil {
		c, err := l.constExpr(o.Init)
		if err != nil {
			return fmt.Errorf("override %s: %w", o.Name.Name, err)
		}
		init = c
	}
	l.b.SetBlock(l.module.Root)
	defer l.b.SetBlock(nil)
	inst := l.b.Override(o.Name.Name, di.Type, init)
	if di.OverrideID >= 0 {
		id := uint16(di.OverrideID)
		inst.ID = &id
	}
	l.values[o] = inst.Result()
	return nil
}

// constExpr lowers an initializer that must fold to a constant.
func (l *Lowerer) constExpr(e ast.Expr) (*ir.Constant, error) {
	ei := l.info.Exprs[e]
	if ei == nil || ei.Value == nil {
		return nil, fmt.Errorf("initializer is not a constant expression")
	}
	return l.constant(ei.Value)
}

func stageOf(name string) ir.Stage {
	switch name {
	case "vertex":
		return ir.StageVertex
	case "fragment":
		return ir.StageFragment
	case "compute":
		return ir.StageCompute
	}
	return ir.StageNone
}

func (l *Lowerer) lowerFunction(f *ast.Function) error {
	fi := l.info.Functions[f]
	if fi == nil {
		return fmt.Errorf("function %s: unresolved", f.Name.Name)
	}
	fn := l.b.Function(f.Name.Name, fi.Return, stageOf(fi.Stage))
	l.functions[f] = fn
	if fn.Stage == ir.StageCompute {
		wg := fi.WorkgroupSize
		fn.WorkgroupSize = &wg
	}
	fn.ReturnAttrs = fi.ReturnAttrs

	params := make([]*ir.FunctionParam, len(f.Params))
	for i, p := range f.Params {
		param := l.b.FunctionParam(p.Name.Name, fi.Params[i])
		param.Attrs = fi.ParamAttrs[i]
		params[i] = param
		l.values[p] = param
	}
	fn.SetParams(params...)

	l.currentFunc = fn
	l.block = fn.Block
	l.targets = l.targets[:0]
	l.b.SetBlock(fn.Block)
	defer func() {
		l.currentFunc = nil
		l.block = nil
		l.b.SetBlock(nil)
	}()

	if err := l.lowerBlock(f.Body); err != nil {
		return fmt.Errorf("function %s body: %w", f.Name.Name, err)
	}
	if !l.terminated() {
		if _, void := fn.ReturnType.(*types.Void); void {
			l.b.Return(fn)
		} else {
			l.b.Unreachable()
		}
	}
	return nil
}

// setBlock moves the insertion point to block and returns the previous one.
func (l *Lowerer) setBlock(block *ir.Block) *ir.Block {
	prev := l.block
	l.block = block
	l.b.SetBlock(block)
	return prev
}

// terminated reports whether the current block already ends in a
// terminator; statements after it are unreachable.
func (l *Lowerer) terminated() bool {
	return l.block.Terminator() != nil
}

// constant converts a folded value, materializing abstract types.
func (l *Lowerer) constant(v *resolver.Value) (*ir.Constant, error) {
	if types.IsAbstract(v.Type) {
		mv, err := resolver.Convert(l.tm, v, l.tm.Materialize(v.Type), false)
		if err != nil {
			return nil, fmt.Errorf("materializing %s: %w", v, err)
		}
		v = mv
	}
	return l.constantOf(v), nil
}

func (l *Lowerer) constantOf(v *resolver.Value) *ir.Constant {
	if v.IsScalar() {
		switch {
		case types.IsBool(v.Type):
			return l.b.Bool(v.B)
		case types.IsFloat(v.Type):
			return l.b.Float(v.Type, v.F)
		default:
			return l.b.Int(v.Type, v.I)
		}
	}
	elems := make([]*ir.Constant, len(v.Elems))
	for i, e := range v.Elems {
		elems[i] = l.constantOf(e)
	}
	return l.b.Composite(v.Type, elems...)
}
