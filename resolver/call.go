package resolver

import (
	"strings"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/types"
)

func (r *resolver) call(c *ast.Call) *ExprInfo {
	res, ok := r.graph.ResolvedSymbols[c.Target]
	if !ok {
		return nil
	}
	args := make([]*ExprInfo, len(c.Args))
	failed := false
	for i, a := range c.Args {
		if args[i] = r.expr(a); args[i] == nil {
			failed = true
		}
	}

	switch res.Kind {
	case ResolvedBuiltinFunction:
		if failed {
			return nil
		}
		if res.Name == "bitcast" {
			return r.bitcast(c, args)
		}
		return r.builtinCall(c, res.Name, args)
	case ResolvedBuiltinType:
		if failed {
			return nil
		}
		return r.builtinConstructor(c, res.Name, args)
	case ResolvedDecl:
		switch d := res.Node.(type) {
		case *ast.Function:
			return r.userCall(c, d, args, failed)
		case *ast.Struct, *ast.Alias:
			t := r.typeRef(c.Target)
			if t == nil || failed {
				return nil
			}
			return r.construct(c, t, args)
		default:
			r.errorf(c.Target.Range(), "cannot call %s '%s'", ast.KindOf(d), c.Target.Name)
			if v, ok := d.(ast.Variable); ok {
				r.errs.AddNote(v.VarName().Range(), "%s '%s' declared here", ast.KindOf(d), c.Target.Name)
			}
		}
	default:
		r.errorf(c.Target.Range(), "cannot call '%s'", c.Target.Name)
	}
	return nil
}

func (r *resolver) userCall(c *ast.Call, fn *ast.Function, args []*ExprInfo, failed bool) *ExprInfo {
	fi := r.info.Functions[fn]
	if fi == nil {
		return nil
	}
	name := fn.Name.Name
	if fi.Stage != "" {
		r.errorf(c.Range(), "entry point functions cannot be the target of a function call")
		return nil
	}
	switch {
	case len(args) < len(fi.Params):
		r.errorf(c.Range(), "too few arguments in call to '%s', expected %d, got %d", name, len(fi.Params), len(args))
		return nil
	case len(args) > len(fi.Params):
		r.errorf(c.Range(), "too many arguments in call to '%s', expected %d, got %d", name, len(fi.Params), len(args))
		return nil
	}
	if failed {
		return nil
	}
	for i, a := range args {
		if !r.convert(c.Args[i], a, fi.Params[i]) {
			r.errorf(c.Args[i].Range(), "type mismatch for argument %d in call to '%s', expected '%s', got '%s'",
				i+1, name, typeName(fi.Params[i]), typeName(a.Type))
			return nil
		}
	}
	r.info.Calls[c] = &CallInfo{Kind: CallFunction, Function: fn, Type: fi.Return}
	if r.fn != nil {
		r.fn.addCallee(fn, fi)
	}
	return &ExprInfo{Type: fi.Return, Stage: Runtime}
}

// commonType returns the type every one of ts converts to automatically,
// or nil.
func commonType(ts []types.Type) types.Type {
	var out types.Type
	for _, t := range ts {
		switch {
		case out == nil:
			out = t
		case t == out, types.ConversionRank(t, out) >= 0:
		case types.ConversionRank(out, t) >= 0:
			out = t
		default:
			return nil
		}
	}
	return out
}

func (r *resolver) argTypes(args []*ExprInfo) []types.Type {
	ts := make([]types.Type, len(args))
	for i, a := range args {
		ts[i] = types.UnwrapRef(a.Type)
	}
	return ts
}

func typeList(ts []types.Type) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = typeName(t)
	}
	return strings.Join(names, ", ")
}

// builtinConstructor handles calls whose target is a predeclared type,
// including the inferred forms vec3(...), mat2x2(...) and array(...).
func (r *resolver) builtinConstructor(c *ast.Call, name string, args []*ExprInfo) *ExprInfo {
	_, generator := typeGenerators[name]
	if !generator || len(c.Target.Template) > 0 {
		t := r.typeRef(c.Target)
		if t == nil {
			return nil
		}
		return r.construct(c, t, args)
	}

	var t types.Type
	switch {
	case name == "array":
		el := commonType(r.argTypes(args))
		if el == nil {
			r.errorf(c.Range(), "cannot infer common array element type from constructor arguments")
			return nil
		}
		t = r.tm.Array(el, uint32(len(args)))
	case strings.HasPrefix(name, "vec"):
		width := uint32(name[3] - '0')
		if len(args) == 0 {
			t = r.tm.Vec(r.tm.AbstractInt(), width)
			break
		}
		els := make([]types.Type, len(args))
		for i, at := range r.argTypes(args) {
			els[i] = elementType(at)
		}
		el := commonType(els)
		if el == nil || !types.IsScalar(el) {
			r.errorf(c.Range(), "no matching constructor for %s(%s)", name, typeList(r.argTypes(args)))
			return nil
		}
		t = r.tm.Vec(el, width)
	case strings.HasPrefix(name, "mat"):
		cols, rows := uint32(name[3]-'0'), uint32(name[5]-'0')
		els := make([]types.Type, len(args))
		for i, at := range r.argTypes(args) {
			els[i] = elementType(at)
		}
		el := commonType(els)
		if el == r.tm.AbstractInt() {
			el = r.tm.AbstractFloat()
		}
		if el == nil || !types.IsFloat(el) {
			r.errorf(c.Range(), "no matching constructor for %s(%s)", name, typeList(r.argTypes(args)))
			return nil
		}
		t = r.tm.Mat(el, cols, rows)
	default:
		r.errorf(c.Range(), "no matching constructor for %s(%s)", name, typeList(r.argTypes(args)))
		return nil
	}
	return r.construct(c, t, args)
}

// construct type-checks a value constructor or conversion of type t.
//
//nolint:gocyclo // one case per constructible type
func (r *resolver) construct(c *ast.Call, t types.Type, args []*ExprInfo) *ExprInfo {
	ci := &CallInfo{Kind: CallConstructor, Type: t}
	mismatch := func() *ExprInfo {
		r.errorf(c.Range(), "no matching constructor for %s(%s)", t, typeList(r.argTypes(args)))
		return nil
	}
	if !types.IsConstructible(t) {
		r.errorf(c.Range(), "type '%s' is not constructible", t)
		return nil
	}
	out := &ExprInfo{Type: t, Stage: Const}
	for _, a := range args {
		out.Stage = maxStage(out.Stage, a.Stage)
	}
	if len(args) == 0 {
		r.info.Calls[c] = ci
		out.Value = ZeroValue(t)
		return out
	}

	// conversion handles T(e) where e has the same shape as T.
	conversion := func() bool {
		at := types.UnwrapRef(args[0].Type)
		if !sameShape(at, t) {
			return false
		}
		if r.convert(c.Args[0], args[0], t) {
			return true
		}
		if types.IsAbstract(elementType(at)) {
			r.convert(c.Args[0], args[0], r.tm.Materialize(at))
		}
		ci.Kind = CallConversion
		return true
	}

	switch tt := t.(type) {
	case *types.Scalar:
		if len(args) != 1 || !conversion() {
			return mismatch()
		}
	case *types.Vector:
		if len(args) == 1 {
			at := types.UnwrapRef(args[0].Type)
			if types.IsScalar(at) {
				if !r.convert(c.Args[0], args[0], tt.Elem) {
					return mismatch()
				}
				break
			}
			if !conversion() {
				return mismatch()
			}
			break
		}
		width := uint32(0)
		for i, a := range args {
			at := types.UnwrapRef(a.Type)
			switch at := at.(type) {
			case *types.Scalar:
				width++
			case *types.Vector:
				width += at.Width
			default:
				return mismatch()
			}
			if !r.convert(c.Args[i], a, r.tm.WithElement(at, tt.Elem)) {
				return mismatch()
			}
		}
		if width != tt.Width {
			return mismatch()
		}
	case *types.Matrix:
		switch {
		case len(args) == 1:
			if !conversion() {
				return mismatch()
			}
		case uint32(len(args)) == tt.Columns:
			for i, a := range args {
				if !r.convert(c.Args[i], a, tt.ColumnType) {
					return mismatch()
				}
			}
		case uint32(len(args)) == tt.Columns*tt.Rows:
			for i, a := range args {
				if !r.convert(c.Args[i], a, tt.Elem()) {
					return mismatch()
				}
			}
		default:
			return mismatch()
		}
	case *types.Array:
		if uint32(len(args)) != tt.Count {
			return mismatch()
		}
		for i, a := range args {
			if !r.convert(c.Args[i], a, tt.Elem) {
				return mismatch()
			}
		}
	case *types.Struct:
		if len(args) != len(tt.Members) {
			return mismatch()
		}
		for i, a := range args {
			if !r.convert(c.Args[i], a, tt.Members[i].Type) {
				return mismatch()
			}
		}
	default:
		return mismatch()
	}

	r.info.Calls[c] = ci
	if out.Stage == Const {
		out.Value = r.foldConstructor(c, ci, t, args)
	}
	return out
}

func sameShape(a, b types.Type) bool {
	switch a := a.(type) {
	case *types.Scalar:
		return types.IsScalar(b)
	case *types.Vector:
		bv, ok := b.(*types.Vector)
		return ok && bv.Width == a.Width
	case *types.Matrix:
		bm, ok := b.(*types.Matrix)
		return ok && bm.Columns == a.Columns && bm.Rows == a.Rows
	}
	return false
}

func (r *resolver) foldConstructor(c *ast.Call, ci *CallInfo, t types.Type, args []*ExprInfo) *Value {
	vals := make([]*Value, len(args))
	for i, a := range args {
		if a.Value == nil {
			return nil
		}
		vals[i] = a.Value
	}
	if ci.Kind == CallConversion {
		v, err := Convert(r.tm, vals[0], t, true)
		if r.foldError(c, err) {
			return nil
		}
		return v
	}
	switch tt := t.(type) {
	case *types.Scalar:
		return vals[0]
	case *types.Vector:
		if len(vals) == 1 && vals[0].IsScalar() {
			elems := make([]*Value, tt.Width)
			for i := range elems {
				elems[i] = vals[0]
			}
			return CompositeValue(t, elems)
		}
		var elems []*Value
		for _, v := range vals {
			if v.IsScalar() {
				elems = append(elems, v)
			} else {
				elems = append(elems, v.Elems...)
			}
		}
		return CompositeValue(t, elems)
	case *types.Matrix:
		if len(vals) == 1 {
			return vals[0]
		}
		if uint32(len(vals)) == tt.Columns {
			return CompositeValue(t, vals)
		}
		cols := make([]*Value, tt.Columns)
		for i := range cols {
			cols[i] = CompositeValue(tt.ColumnType, vals[uint32(i)*tt.Rows:uint32(i+1)*tt.Rows])
		}
		return CompositeValue(t, cols)
	}
	return CompositeValue(t, vals)
}

func (r *resolver) bitcast(c *ast.Call, args []*ExprInfo) *ExprInfo {
	t := r.templateType(c.Target, 0, 1)
	if t == nil {
		return nil
	}
	if len(args) != 1 {
		r.errorf(c.Range(), "no matching call to 'bitcast<%s>(%s)'", t, typeList(r.argTypes(args)))
		return nil
	}
	at := types.UnwrapRef(args[0].Type)
	if types.IsAbstract(elementType(at)) {
		at = r.tm.Materialize(at)
		r.convert(c.Args[0], args[0], at)
	}
	if !types.IsNumericScalarOrVector(t) || !types.IsNumericScalarOrVector(at) || t.Size() != at.Size() {
		r.errorf(c.Range(), "no matching call to 'bitcast<%s>(%s)'", t, typeName(at))
		return nil
	}
	r.info.Calls[c] = &CallInfo{Kind: CallBitcast, Builtin: "bitcast", Type: t}
	out := &ExprInfo{Type: t, Stage: args[0].Stage}
	if out.Stage == Const && args[0].Value != nil {
		v, err := Bitcast(args[0].Value, t)
		if r.foldError(c, err) {
			return nil
		}
		out.Value = v
	}
	return out
}
