package irgen

import (
	"fmt"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/resolver"
	"github.com/gogpu/wgslcore/types"
)

// ref is a memory location: a pointer, plus the component index when the
// location is a single component of the vector behind the pointer.
type ref struct {
	ptr  ir.Value
	elem ir.Value
}

var binaryOps = map[ast.BinaryOp]ir.BinaryOp{
	ast.Add:              ir.BinaryAdd,
	ast.Subtract:         ir.BinarySubtract,
	ast.Multiply:         ir.BinaryMultiply,
	ast.Divide:           ir.BinaryDivide,
	ast.Modulo:           ir.BinaryModulo,
	ast.And:              ir.BinaryAnd,
	ast.Or:               ir.BinaryOr,
	ast.Xor:              ir.BinaryXor,
	ast.ShiftLeft:        ir.BinaryShiftLeft,
	ast.ShiftRight:       ir.BinaryShiftRight,
	ast.Equal:            ir.BinaryEqual,
	ast.NotEqual:         ir.BinaryNotEqual,
	ast.LessThan:         ir.BinaryLessThan,
	ast.GreaterThan:      ir.BinaryGreaterThan,
	ast.LessThanEqual:    ir.BinaryLessThanEqual,
	ast.GreaterThanEqual: ir.BinaryGreaterThanEqual,
}

func (l *Lowerer) exprInfo(e ast.Expr) (*resolver.ExprInfo, error) {
	ei := l.info.Exprs[e]
	if ei == nil || ei.Type == nil {
		return nil, fmt.Errorf("unresolved expression %T", e)
	}
	return ei, nil
}

// lowerValue lowers e where a value is needed, applying the Load Rule.
func (l *Lowerer) lowerValue(e ast.Expr) (ir.Value, error) {
	ei, err := l.exprInfo(e)
	if err != nil {
		return nil, err
	}
	if _, isRef := ei.Type.(*types.Reference); !isRef {
		return l.lowerExpression(e)
	}
	r, err := l.lowerRef(e)
	if err != nil {
		return nil, err
	}
	if r.elem != nil {
		return l.b.LoadVectorElement(r.ptr, r.elem).Result(), nil
	}
	return l.b.Load(r.ptr).Result(), nil
}

// lowerRef lowers an expression of reference type to the location it names.
func (l *Lowerer) lowerRef(e ast.Expr) (ref, error) {
	switch e := e.(type) {
	case *ast.Ident:
		decl := l.info.Graph.Resolved(e)
		v, ok := l.values[decl]
		if !ok {
			return ref{}, fmt.Errorf("'%s' does not name a variable", e.Name)
		}
		return ref{ptr: v}, nil
	case *ast.Unary:
		if e.Op != ast.Indirection {
			break
		}
		p, err := l.lowerValue(e.X)
		if err != nil {
			return ref{}, err
		}
		return ref{ptr: p}, nil
	case *ast.Index, *ast.Member:
		return l.lowerAccessRef(e)
	}
	return ref{}, fmt.Errorf("expression %T is not a reference", e)
}

// lowerExpression lowers an expression that does not name memory.
func (l *Lowerer) lowerExpression(e ast.Expr) (ir.Value, error) {
	ei, err := l.exprInfo(e)
	if err != nil {
		return nil, err
	}
	if ei.Stage == resolver.Const && ei.Value != nil {
		return l.constant(ei.Value)
	}

	switch e := e.(type) {
	case *ast.Ident:
		decl := l.info.Graph.Resolved(e)
		if v, ok := l.values[decl]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("'%s' has no value", e.Name)
	case *ast.Unary:
		return l.lowerUnary(e, ei.Type)
	case *ast.Binary:
		return l.lowerBinary(e, ei.Type)
	case *ast.Call:
		return l.lowerCall(e)
	case *ast.Index:
		return l.lowerAccessValue(e)
	case *ast.Member:
		if idx := l.multiSwizzle(e); idx != nil {
			obj, err := l.lowerValue(e.X)
			if err != nil {
				return nil, err
			}
			return l.b.Swizzle(ei.Type, obj, idx).Result(), nil
		}
		return l.lowerAccessValue(e)
	}
	return nil, fmt.Errorf("cannot lower expression %T", e)
}

func (l *Lowerer) lowerUnary(e *ast.Unary, t types.Type) (ir.Value, error) {
	if e.Op == ast.AddressOf {
		r, err := l.lowerRef(e.X)
		if err != nil {
			return nil, err
		}
		if r.elem != nil {
			return nil, fmt.Errorf("cannot take the address of a vector component")
		}
		return r.ptr, nil
	}
	x, err := l.lowerValue(e.X)
	if err != nil {
		return nil, err
	}
	var op ir.UnaryOp
	switch e.Op {
	case ast.Negate:
		op = ir.UnaryNegation
	case ast.Not:
		op = ir.UnaryNot
	case ast.Complement:
		op = ir.UnaryComplement
	default:
		return nil, fmt.Errorf("unexpected unary operator %s", e.Op)
	}
	return l.b.Unary(op, t, x).Result(), nil
}

func (l *Lowerer) lowerBinary(e *ast.Binary, t types.Type) (ir.Value, error) {
	if e.Op.IsLogical() {
		return l.lowerShortCircuit(e)
	}
	lhs, err := l.lowerValue(e.L)
	if err != nil {
		return nil, err
	}
	rhs, err := l.lowerValue(e.R)
	if err != nil {
		return nil, err
	}
	return l.b.Binary(binaryOps[e.Op], t, lhs, rhs).Result(), nil
}

// lowerShortCircuit lowers a && b to if a { b } else { false } and a || b
// to if a { true } else { b }.
func (l *Lowerer) lowerShortCircuit(e *ast.Binary) (ir.Value, error) {
	lhs, err := l.lowerValue(e.L)
	if err != nil {
		return nil, err
	}
	i := l.b.If(lhs)
	res := i.AddResult(l.tm.Bool())

	evaluated, constant := i.True, i.False
	if e.Op == ast.LogicalOr {
		evaluated, constant = i.False, i.True
	}
	prev := l.setBlock(evaluated)
	rhs, err := l.lowerValue(e.R)
	if err != nil {
		l.setBlock(prev)
		return nil, err
	}
	l.b.ExitIf(i, rhs)
	l.setBlock(constant)
	l.b.ExitIf(i, l.b.Bool(e.Op == ast.LogicalOr))
	l.setBlock(prev)
	return res, nil
}

func (l *Lowerer) lowerCall(e *ast.Call) (ir.Value, error) {
	ci := l.info.Calls[e]
	if ci == nil {
		return nil, fmt.Errorf("unresolved call to '%s'", e.Target.Name)
	}
	args := make([]ir.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := l.lowerValue(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch ci.Kind {
	case resolver.CallFunction:
		fn := l.functions[ci.Function]
		if fn == nil {
			return nil, fmt.Errorf("call to '%s' before its declaration was lowered", e.Target.Name)
		}
		return l.b.CallFunc(fn, args...).Result(), nil
	case resolver.CallBuiltin:
		return l.b.Call(ci.Type, ci.Builtin, anys(args)...).Result(), nil
	case resolver.CallConstructor:
		switch {
		case len(args) == 0:
			return l.b.Zero(ci.Type), nil
		case len(args) == 1 && args[0].Type() == ci.Type:
			return args[0], nil
		}
		return l.b.Construct(ci.Type, args...).Result(), nil
	case resolver.CallConversion, resolver.CallBitcast:
		if len(args) != 1 {
			return nil, fmt.Errorf("'%s' expects one argument", e.Target.Name)
		}
		if args[0].Type() == ci.Type {
			return args[0], nil
		}
		if ci.Kind == resolver.CallBitcast {
			return l.b.Bitcast(ci.Type, args[0]).Result(), nil
		}
		return l.b.Convert(ci.Type, args[0]).Result(), nil
	}
	return nil, fmt.Errorf("unknown call kind %d", ci.Kind)
}

func anys(vs []ir.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// multiSwizzle returns the component indices of a swizzle selecting more
// than one component, or nil.
func (l *Lowerer) multiSwizzle(e *ast.Member) []uint32 {
	vec, ok := l.info.ValueTypeOf(e.X).(*types.Vector)
	if !ok {
		if p, isPtr := l.info.TypeOf(e.X).(*types.Pointer); isPtr {
			vec, ok = p.Store.(*types.Vector)
		}
	}
	if !ok || len(e.Member.Name) < 2 {
		return nil
	}
	idx, err := resolver.Swizzle(e.Member.Name, vec.Width)
	if err != nil {
		return nil
	}
	return idx
}

// chain splits an index/member expression into its root object and the
// selectors applied to it, innermost first. A multi-component swizzle ends
// the chain: it yields a new value.
func (l *Lowerer) chain(e ast.Expr) (ast.Expr, []ast.Expr) {
	var steps []ast.Expr
	cur := e
loop:
	for {
		switch c := cur.(type) {
		case *ast.Index:
			steps = append(steps, c)
			cur = c.X
		case *ast.Member:
			if l.multiSwizzle(c) != nil {
				break loop
			}
			steps = append(steps, c)
			cur = c.X
		default:
			break loop
		}
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return cur, steps
}

// selector lowers one chain step to an index operand. storeType is the type
// the step applies to.
func (l *Lowerer) selector(step ast.Expr, storeType types.Type) (ir.Value, error) {
	switch s := step.(type) {
	case *ast.Index:
		ei, err := l.exprInfo(s.Index)
		if err != nil {
			return nil, err
		}
		if ei.Stage == resolver.Const && ei.Value != nil {
			return l.constant(ei.Value)
		}
		return l.lowerValue(s.Index)
	case *ast.Member:
		switch t := storeType.(type) {
		case *types.Struct:
			m, ok := t.Member(s.Member.Name)
			if !ok {
				return nil, fmt.Errorf("struct member %s not found", s.Member.Name)
			}
			return l.b.U32(m.Index), nil
		case *types.Vector:
			idx, err := resolver.Swizzle(s.Member.Name, t.Width)
			if err != nil {
				return nil, err
			}
			return l.b.U32(idx[0]), nil
		}
	}
	return nil, fmt.Errorf("cannot select from '%s'", storeType)
}

// lowerAccessRef lowers a chain rooted at memory to a pointer, or to a
// vector pointer and component index when the chain ends on a component.
func (l *Lowerer) lowerAccessRef(e ast.Expr) (ref, error) {
	root, steps := l.chain(e)
	var base ir.Value
	rootInfo, err := l.exprInfo(root)
	if err != nil {
		return ref{}, err
	}
	if _, isRef := rootInfo.Type.(*types.Reference); isRef {
		r, err := l.lowerRef(root)
		if err != nil {
			return ref{}, err
		}
		if r.elem != nil {
			return ref{}, fmt.Errorf("cannot select from a vector component")
		}
		base = r.ptr
	} else if base, err = l.lowerValue(root); err != nil {
		return ref{}, err
	}
	ptr, ok := base.Type().(*types.Pointer)
	if !ok {
		return ref{}, fmt.Errorf("access chain root is not a pointer")
	}

	cur := ptr.Store
	var indices []ir.Value
	for i, step := range steps {
		idx, err := l.selector(step, cur)
		if err != nil {
			return ref{}, err
		}
		if _, isVec := cur.(*types.Vector); isVec && i == len(steps)-1 {
			return l.finishRef(base, indices, idx)
		}
		indices = append(indices, idx)
		cur = l.stepType(cur, step)
	}
	return l.finishRef(base, indices, nil)
}

func (l *Lowerer) finishRef(base ir.Value, indices []ir.Value, elem ir.Value) (ref, error) {
	if len(indices) == 0 {
		return ref{ptr: base, elem: elem}, nil
	}
	t, err := ir.IndexedType(l.tm, base.Type(), indices)
	if err != nil {
		return ref{}, err
	}
	return ref{ptr: l.b.Access(t, base, anys(indices)...).Result(), elem: elem}, nil
}

// lowerAccessValue lowers a chain applied to a value.
func (l *Lowerer) lowerAccessValue(e ast.Expr) (ir.Value, error) {
	root, steps := l.chain(e)
	base, err := l.lowerValue(root)
	if err != nil {
		return nil, err
	}
	cur := base.Type()
	indices := make([]ir.Value, 0, len(steps))
	for _, step := range steps {
		idx, err := l.selector(step, cur)
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
		cur = l.stepType(cur, step)
	}
	if len(indices) == 0 {
		return base, nil
	}
	t, err := ir.IndexedType(l.tm, base.Type(), indices)
	if err != nil {
		return nil, err
	}
	return l.b.Access(t, base, anys(indices)...).Result(), nil
}

// stepType is the type selected by step from t.
func (l *Lowerer) stepType(t types.Type, step ast.Expr) types.Type {
	if m, ok := step.(*ast.Member); ok {
		if s, isStruct := t.(*types.Struct); isStruct {
			if member, found := s.Member(m.Member.Name); found {
				return member.Type
			}
		}
	}
	return types.ElementAt(t, 0)
}
