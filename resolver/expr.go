package resolver

import (
	"errors"
	"strings"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/types"
)

// expr resolves e and records the result. It returns nil after reporting an
// error; callers skip checks that depend on a nil operand.
func (r *resolver) expr(e ast.Expr) *ExprInfo {
	if e == nil {
		return nil
	}
	if ei, ok := r.info.Exprs[e]; ok {
		return ei
	}
	var ei *ExprInfo
	switch e := e.(type) {
	case *ast.IntLiteral:
		ei = r.intLiteral(e)
	case *ast.FloatLiteral:
		ei = r.floatLiteral(e)
	case *ast.BoolLiteral:
		ei = &ExprInfo{Type: r.tm.Bool(), Stage: Const, Value: BoolValue(r.tm.Bool(), e.Value)}
	case *ast.Ident:
		ei = r.ident(e)
	case *ast.Unary:
		ei = r.unary(e)
	case *ast.Binary:
		ei = r.binary(e)
	case *ast.Call:
		ei = r.call(e)
	case *ast.Index:
		ei = r.index(e)
	case *ast.Member:
		ei = r.member(e)
	}
	if ei != nil {
		r.info.Exprs[e] = ei
	}
	return ei
}

func (r *resolver) intLiteral(e *ast.IntLiteral) *ExprInfo {
	var t types.Type
	switch e.Suffix {
	case 'i':
		t = r.tm.I32()
	case 'u':
		t = r.tm.U32()
	default:
		t = r.tm.AbstractInt()
	}
	v := IntValue(t, e.Value)
	if err := representable(v); err != nil {
		r.errorf(e.Range(), "%s", err)
		return nil
	}
	return &ExprInfo{Type: t, Stage: Const, Value: v}
}

func (r *resolver) floatLiteral(e *ast.FloatLiteral) *ExprInfo {
	var t types.Type
	switch e.Suffix {
	case 'f':
		t = r.tm.F32()
	case 'h':
		if !r.info.Enables["f16"] {
			r.errorf(e.Range(), "f16 literal used without 'f16' extension enabled")
			return nil
		}
		t = r.tm.F16()
	default:
		t = r.tm.AbstractFloat()
	}
	v := FloatValue(t, e.Value)
	if e.Suffix == 'f' {
		v.F = float64(float32(v.F))
	}
	if err := representable(v); err != nil {
		r.errorf(e.Range(), "%s", err)
		return nil
	}
	return &ExprInfo{Type: t, Stage: Const, Value: v}
}

// typeGenerators are the builtin types that need template arguments.
var typeGenerators = toSet("vec2", "vec3", "vec4", "array", "atomic", "ptr",
	"mat2x2", "mat2x3", "mat2x4", "mat3x2", "mat3x3", "mat3x4", "mat4x2", "mat4x3", "mat4x4")

func (r *resolver) ident(id *ast.Ident) *ExprInfo {
	res, ok := r.graph.ResolvedSymbols[id]
	if !ok {
		return nil
	}
	switch res.Kind {
	case ResolvedBuiltinType:
		r.typeAsValue(id)
		return nil
	case ResolvedBuiltinFunction:
		r.errorf(id.Range(), "missing '(' for builtin call")
		return nil
	case ResolvedEnumerant:
		r.errorf(id.Range(), "cannot use enumerant '%s' as value", id.Name)
		return nil
	}

	switch d := res.Node.(type) {
	case *ast.Struct, *ast.Alias:
		r.typeAsValue(id)
	case *ast.Function:
		r.errorf(id.Range(), "missing '(' for function call")
	case *ast.Var:
		di := r.info.Decls[d]
		if di == nil || di.Type == nil {
			return nil
		}
		if di.Space != types.SpaceFunction {
			if r.fn == nil {
				r.errorf(id.Range(), "var '%s' cannot be referenced at module-scope", id.Name)
				r.errs.AddNote(d.Name.Range(), "var '%s' declared here", id.Name)
				return nil
			}
			r.fn.addGlobal(d)
		}
		return &ExprInfo{Type: r.tm.Ref(di.Space, di.Type, di.Access), Stage: Runtime}
	case *ast.Const:
		di := r.info.Decls[d]
		if di == nil || di.Type == nil {
			return nil
		}
		return &ExprInfo{Type: di.Type, Stage: Const, Value: di.Value}
	case *ast.Override:
		di := r.info.Decls[d]
		if di == nil || di.Type == nil {
			return nil
		}
		return &ExprInfo{Type: di.Type, Stage: Override}
	case *ast.Let, *ast.Param:
		di := r.info.Decls[d]
		if di == nil || di.Type == nil {
			return nil
		}
		return &ExprInfo{Type: di.Type, Stage: Runtime}
	}
	return nil
}

// typeAsValue reports a type name used where a value is expected.
func (r *resolver) typeAsValue(id *ast.Ident) {
	name := id.Name
	constructible := true
	if _, generator := typeGenerators[id.Name]; !generator || len(id.Template) > 0 {
		var t types.Type
		if res := r.graph.ResolvedSymbols[id]; res.Kind == ResolvedBuiltinType {
			t = r.builtinType(id, res.Name)
		} else {
			t = r.typeRefInner(id)
		}
		if t == nil {
			return
		}
		name = t.String()
		constructible = types.IsConstructible(t)
	}
	r.errorf(id.Range(), "cannot use type '%s' as value", name)
	if constructible {
		r.errs.AddNote(id.Range(), "are you missing '()'?")
	}
}

func (r *resolver) unary(e *ast.Unary) *ExprInfo {
	x := r.expr(e.X)
	if x == nil {
		return nil
	}
	switch e.Op {
	case ast.AddressOf:
		ref, ok := x.Type.(*types.Reference)
		if !ok {
			r.errorf(e.Range(), "cannot take the address of expression")
			return nil
		}
		if isVectorComponent(r.info, e.X) {
			r.errorf(e.Range(), "cannot take the address of a vector component")
			return nil
		}
		if ref.Space == types.SpaceHandle {
			r.errorf(e.Range(), "cannot take the address of expression in handle address space")
			return nil
		}
		return &ExprInfo{Type: r.tm.Ptr(ref.Space, ref.Store, ref.Access), Stage: Runtime}
	case ast.Indirection:
		ptr, ok := x.Type.(*types.Pointer)
		if !ok {
			r.errorf(e.Range(), "cannot dereference expression of type '%s'", typeName(x.Type))
			return nil
		}
		return &ExprInfo{Type: r.tm.Ref(ptr.Space, ptr.Store, ptr.Access), Stage: Runtime}
	}

	t := types.UnwrapRef(x.Type)
	ok := false
	switch e.Op {
	case ast.Negate:
		ok = types.IsNumericScalarOrVector(t) && !types.IsUnsignedIntegerScalarOrVector(t)
	case ast.Not:
		ok = types.IsBoolScalarOrVector(t)
	case ast.Complement:
		ok = types.IsIntegerScalarOrVector(t)
	}
	if !ok {
		r.errorf(e.Range(), "no matching overload for 'operator %s (%s)'", e.Op, typeName(t))
		return nil
	}
	out := &ExprInfo{Type: t, Stage: x.Stage}
	if x.Stage == Const && x.Value != nil {
		v, err := foldUnary(e.Op, x.Value, t)
		if r.foldError(e, err) {
			return nil
		}
		out.Value = v
	}
	return out
}

// isVectorComponent reports whether e selects a single component of a
// vector reference.
func isVectorComponent(info *Info, e ast.Expr) bool {
	var base ast.Expr
	switch e := e.(type) {
	case *ast.Index:
		base = e.X
	case *ast.Member:
		base = e.X
	default:
		return false
	}
	_, isVec := types.UnwrapPtr(types.UnwrapRef(info.TypeOf(base))).(*types.Vector)
	return isVec
}

// foldError reports a folding failure. It returns true when the
// expression is invalid; unsupported operations are not errors.
func (r *resolver) foldError(e ast.Expr, err error) bool {
	if err == nil || errors.Is(err, errNotFoldable) {
		return false
	}
	r.errorf(e.Range(), "%s", err)
	return true
}

//nolint:gocyclo // operator table
func (r *resolver) binary(e *ast.Binary) *ExprInfo {
	l, rr := r.expr(e.L), r.expr(e.R)
	if l == nil || rr == nil {
		return nil
	}
	lt, rt := types.UnwrapRef(l.Type), types.UnwrapRef(rr.Type)
	fail := func() *ExprInfo {
		r.errorf(e.Range(), "no matching overload for 'operator %s (%s, %s)'", e.Op, typeName(lt), typeName(rt))
		return nil
	}

	if e.Op.IsShift() {
		if !types.IsIntegerScalarOrVector(lt) {
			return fail()
		}
		want := r.tm.MatchWidth(r.tm.U32(), lt)
		if types.IsAbstract(lt) && types.IsAbstract(rt) {
			want = rt
		}
		if !r.convert(e.R, rr, want) {
			return fail()
		}
		return r.foldBinaryExpr(e, l, rr, lt)
	}

	// Unify the element types of abstract operands with the other side.
	le, re := elementType(lt), elementType(rt)
	if le != re {
		switch {
		case types.ConversionRank(le, re) >= 0:
			lt = r.tm.WithElement(lt, re)
			r.convert(e.L, l, lt)
		case types.ConversionRank(re, le) >= 0:
			rt = r.tm.WithElement(rt, le)
			r.convert(e.R, rr, rt)
		default:
			return fail()
		}
	}

	var result types.Type
	switch {
	case e.Op.IsLogical():
		if !types.IsBool(lt) || lt != rt {
			return fail()
		}
		result = lt
	case e.Op.IsComparison():
		if lt != rt || !types.IsNumericScalarOrVector(lt) && !types.IsBoolScalarOrVector(lt) {
			return fail()
		}
		if types.IsBoolScalarOrVector(lt) && e.Op != ast.Equal && e.Op != ast.NotEqual {
			return fail()
		}
		result = r.tm.MatchWidth(r.tm.Bool(), lt)
	case e.Op == ast.And || e.Op == ast.Or || e.Op == ast.Xor:
		if lt != rt {
			return fail()
		}
		if !types.IsIntegerScalarOrVector(lt) && !(e.Op != ast.Xor && types.IsBoolScalarOrVector(lt)) {
			return fail()
		}
		result = lt
	default:
		result = r.arithmeticResult(e.Op, lt, rt)
		if result == nil {
			return fail()
		}
	}
	return r.foldBinaryExpr(e, l, rr, result)
}

func (r *resolver) foldBinaryExpr(e *ast.Binary, l, rr *ExprInfo, result types.Type) *ExprInfo {
	out := &ExprInfo{Type: result, Stage: maxStage(l.Stage, rr.Stage)}
	if out.Stage == Const && l.Value != nil && rr.Value != nil {
		v, err := foldBinary(e.Op, l.Value, rr.Value, result)
		if r.foldError(e, err) {
			return nil
		}
		out.Value = v
	}
	return out
}

// elementType returns the scalar element of a scalar, vector or matrix.
func elementType(t types.Type) types.Type {
	switch t := t.(type) {
	case *types.Vector:
		return t.Elem
	case *types.Matrix:
		return t.Elem()
	}
	return t
}

// arithmeticResult returns the result type of l op r for + - * / %, or nil.
func (r *resolver) arithmeticResult(op ast.BinaryOp, lt, rt types.Type) types.Type {
	if elementType(lt) != elementType(rt) || !types.IsNumeric(elementType(lt)) {
		return nil
	}
	lm, lIsMat := lt.(*types.Matrix)
	rm, rIsMat := rt.(*types.Matrix)
	lv, lIsVec := lt.(*types.Vector)
	rv, rIsVec := rt.(*types.Vector)
	switch {
	case !lIsMat && !rIsMat:
		switch {
		case lt == rt:
			return lt
		case lIsVec && types.IsScalar(rt):
			return lt
		case rIsVec && types.IsScalar(lt):
			return rt
		}
	case op == ast.Add || op == ast.Subtract:
		if lt == rt {
			return lt
		}
	case op != ast.Multiply:
	case lIsMat && rIsMat:
		if lm.Columns == rm.Rows {
			return r.tm.Mat(lm.Elem(), rm.Columns, lm.Rows)
		}
	case lIsMat && types.IsScalar(rt):
		return lt
	case rIsMat && types.IsScalar(lt):
		return rt
	case lIsMat && rIsVec:
		if rv.Width == lm.Columns {
			return r.tm.Vec(lm.Elem(), lm.Rows)
		}
	case rIsMat && lIsVec:
		if lv.Width == rm.Rows {
			return r.tm.Vec(rm.Elem(), rm.Columns)
		}
	}
	return nil
}

func (r *resolver) index(e *ast.Index) *ExprInfo {
	x := r.expr(e.X)
	idx := r.expr(e.Index)
	if x == nil || idx == nil {
		return nil
	}
	it := types.UnwrapRef(idx.Type)
	if types.IsAbstract(it) && types.IsInteger(it) {
		r.convert(e.Index, idx, r.tm.I32())
		it = r.tm.I32()
	}
	if it != r.tm.I32() && it != r.tm.U32() {
		r.errorf(e.Index.Range(), "index must be of type 'i32' or 'u32', found: '%s'", typeName(it))
		return nil
	}

	ref, isRef := x.Type.(*types.Reference)
	base := x.Type
	if isRef {
		base = ref.Store
	} else if p, ok := x.Type.(*types.Pointer); ok {
		ref, isRef = r.tm.Ref(p.Space, p.Store, p.Access), true
		base = p.Store
	}
	if !types.IsIndexable(base) {
		r.errorf(e.Range(), "cannot index type '%s'", typeName(base))
		return nil
	}
	elem := types.ElementAt(base, 0)
	if count := types.ElemCount(base); idx.Value != nil && count > 0 {
		if i := idx.Value.I; i < 0 || i >= int64(count) {
			r.errorf(e.Index.Range(), "index %d out of bounds [0..%d]", i, count-1)
			return nil
		}
	}
	if isRef {
		return &ExprInfo{Type: r.tm.Ref(ref.Space, elem, ref.Access), Stage: Runtime}
	}
	out := &ExprInfo{Type: elem, Stage: maxStage(x.Stage, idx.Stage)}
	if out.Stage == Const && x.Value != nil && idx.Value != nil {
		out.Value = x.Value.Index(int(idx.Value.I))
	}
	return out
}

func (r *resolver) member(e *ast.Member) *ExprInfo {
	x := r.expr(e.X)
	if x == nil {
		return nil
	}
	ref, isRef := x.Type.(*types.Reference)
	base := x.Type
	if isRef {
		base = ref.Store
	} else if p, ok := x.Type.(*types.Pointer); ok {
		ref, isRef = r.tm.Ref(p.Space, p.Store, p.Access), true
		base = p.Store
	}
	name := e.Member.Name

	switch bt := base.(type) {
	case *types.Struct:
		m, ok := bt.Member(name)
		if !ok {
			r.errorf(e.Member.Range(), "struct member %s not found", name)
			return nil
		}
		if isRef {
			return &ExprInfo{Type: r.tm.Ref(ref.Space, m.Type, ref.Access), Stage: Runtime}
		}
		out := &ExprInfo{Type: m.Type, Stage: x.Stage}
		if x.Value != nil {
			out.Value = x.Value.Index(int(m.Index))
		}
		return out
	case *types.Vector:
		idx, err := Swizzle(name, bt.Width)
		if err != nil {
			r.errorf(e.Member.Range(), "%s", err)
			return nil
		}
		if len(idx) == 1 {
			if isRef {
				return &ExprInfo{Type: r.tm.Ref(ref.Space, bt.Elem, ref.Access), Stage: Runtime}
			}
			out := &ExprInfo{Type: bt.Elem, Stage: x.Stage}
			if x.Value != nil {
				out.Value = x.Value.Index(int(idx[0]))
			}
			return out
		}
		t := r.tm.Vec(bt.Elem, uint32(len(idx)))
		out := &ExprInfo{Type: t, Stage: x.Stage}
		if x.Value != nil {
			elems := make([]*Value, len(idx))
			for i, c := range idx {
				elems[i] = x.Value.Index(int(c))
			}
			out.Value = CompositeValue(t, elems)
		}
		return out
	}
	r.errorf(e.Range(), "invalid member accessor expression. Expected vector or struct, got '%s'", typeName(base))
	return nil
}

// Swizzle returns the component indices selected by a vector swizzle on a
// vector of the given width.
func Swizzle(name string, width uint32) ([]uint32, error) {
	if len(name) == 0 || len(name) > 4 {
		return nil, errors.New("invalid vector swizzle size")
	}
	const xyzw, rgba = "xyzw", "rgba"
	set := ""
	out := make([]uint32, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		var s string
		switch {
		case strings.IndexByte(xyzw, c) >= 0:
			s = xyzw
		case strings.IndexByte(rgba, c) >= 0:
			s = rgba
		default:
			return nil, errors.New("invalid vector swizzle character")
		}
		if set != "" && set != s {
			return nil, errors.New("invalid mixing of vector swizzle characters rgba with xyzw")
		}
		set = s
		n := uint32(strings.IndexByte(s, c))
		if n >= width {
			return nil, errors.New("invalid vector swizzle member")
		}
		out[i] = n
	}
	return out, nil
}

// convert applies the automatic conversion of e to want, updating the
// recorded type and value. It reports false when no conversion exists.
func (r *resolver) convert(e ast.Expr, ei *ExprInfo, want types.Type) bool {
	if ei == nil || want == nil {
		return true
	}
	have := types.UnwrapRef(ei.Type)
	if have == want {
		return true
	}
	if types.ConversionRank(have, want) < 0 {
		return false
	}
	r.retype(e, ei, want)
	return true
}

// retype materializes an abstract expression as want. Folded values are
// converted; otherwise the operands are retyped so that lowering never
// sees an abstract type.
func (r *resolver) retype(e ast.Expr, ei *ExprInfo, want types.Type) {
	ei.Type = want
	if ei.Value != nil {
		v, err := Convert(r.tm, ei.Value, want, false)
		if err != nil {
			if !errors.Is(err, errNotFoldable) {
				r.errorf(e.Range(), "%s", err)
			}
			ei.Value = nil
		} else {
			ei.Value = v
			return
		}
	}
	el := types.DeepestElement(want)
	child := func(c ast.Expr) {
		if ci := r.info.Exprs[c]; ci != nil && types.IsAbstract(types.DeepestElement(ci.Type)) {
			r.retype(c, ci, r.tm.WithElement(ci.Type, el))
		}
	}
	switch e := e.(type) {
	case *ast.Unary:
		child(e.X)
	case *ast.Binary:
		child(e.L)
		if !e.Op.IsShift() {
			child(e.R)
		}
	case *ast.Call:
		for _, a := range e.Args {
			child(a)
		}
		if ci := r.info.Calls[e]; ci != nil {
			ci.Type = want
		}
	case *ast.Index:
		if xi := r.info.Exprs[e.X]; xi != nil && types.IsAbstract(types.DeepestElement(xi.Type)) {
			r.retype(e.X, xi, r.tm.WithElement(xi.Type, el))
		}
	}
}
