// Package resolver turns a parsed module into a semantically checked one.
//
// Build resolves identifiers and orders the module-scope declarations,
// Resolve assigns a type, an evaluation stage and (for constant
// expressions) a folded value to every expression, and Validate checks the
// rules that need the whole module: entry point interfaces, address space
// usage and buffer layouts.
package resolver

import (
	"strconv"
	"strings"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/types"
)

var knownExtensions = toSet(
	"f16",
	"chromium_experimental_pixel_local",
	"chromium_experimental_push_constant",
	"chromium_internal_relaxed_uniform_layout",
	"chromium_experimental_dual_source_blending",
)

var knownFeatures = toSet(
	"readonly_and_readwrite_storage_textures",
	"packed_4x8_integer_dot_product",
	"unrestricted_pointer_parameters",
	"pointer_composite_access",
)

// Resolve assigns semantic information to every declaration and expression
// of mod. graph must come from a successful Build of the same module.
// Resolution continues past errors so that one run reports as many
// problems as possible.
func Resolve(mod *ast.Module, graph *DependencyGraph) (*Info, diag.List) {
	r := &resolver{
		mod:   mod,
		graph: graph,
		info:  newInfo(graph),
	}
	r.tm = r.info.Types
	for _, d := range graph.OrderedGlobals {
		r.decl(d)
	}
	return r.info, r.errs
}

type resolver struct {
	mod   *ast.Module
	graph *DependencyGraph
	info  *Info
	tm    *types.Manager
	errs  diag.List

	// fn is the function being resolved, nil at module scope.
	fn          *FunctionInfo
	loopDepth   int
	switchDepth int
	continuing  bool
}

func (r *resolver) errorf(rng diag.Range, format string, args ...any) {
	r.errs.AddError(rng, format, args...)
}

func (r *resolver) decl(d ast.Decl) {
	switch d := d.(type) {
	case *ast.Enable:
		for _, ext := range d.Extensions {
			if _, ok := knownExtensions[ext]; !ok {
				r.errorf(d.Range(), "unknown extension: '%s'", ext)
				continue
			}
			r.info.Enables[ext] = true
		}
	case *ast.Requires:
		for _, f := range d.Features {
			if _, ok := knownFeatures[f]; !ok {
				r.errorf(d.Range(), "unknown language feature: '%s'", f)
			}
		}
	case *ast.Alias:
		if t := r.typeRef(d.Type); t != nil {
			r.info.Aliases[d] = t
		}
	case *ast.Struct:
		r.structDecl(d)
	case *ast.Var:
		r.globalVar(d)
	case *ast.Const:
		r.constDecl(d)
	case *ast.Override:
		r.overrideDecl(d)
	case *ast.Function:
		r.function(d)
	case *ast.ConstAssert:
		r.constAssert(d)
	}
}

func (r *resolver) structDecl(d *ast.Struct) {
	if len(d.Members) == 0 {
		r.errorf(d.Range(), "structures must have at least one member")
	}
	seen := make(map[string]bool, len(d.Members))
	members := make([]types.MemberDesc, 0, len(d.Members))
	ok := true
	for _, m := range d.Members {
		if seen[m.Name.Name] {
			r.errorf(m.Name.Range(), "redefinition of '%s'", m.Name.Name)
			ok = false
			continue
		}
		seen[m.Name.Name] = true
		t := r.typeRef(m.Type)
		if t == nil {
			ok = false
			continue
		}
		desc := types.MemberDesc{Name: m.Name.Name, Type: t, Attrs: r.ioAttributes(m.Attrs)}
		for _, a := range m.Attrs {
			switch a.Name {
			case "align":
				v, good := r.attrUint(a)
				if good && (v == 0 || v&(v-1) != 0) {
					r.errorf(a.Range(), "@align value must be a positive, power-of-two integer")
					good = false
				}
				if good {
					desc.Align = v
				}
			case "size":
				v, good := r.attrUint(a)
				if good && v < t.Size() {
					r.errorf(a.Range(), "@size must be at least as big as the type's size (%d)", t.Size())
					good = false
				}
				if good {
					desc.Size = v
				}
			}
		}
		members = append(members, desc)
	}
	if !ok {
		return
	}
	s, err := r.tm.Struct(d.Name.Name, members)
	if err != nil {
		r.errorf(d.Name.Range(), "%s", err)
		return
	}
	r.info.Structs[d] = s
}

func (r *resolver) globalVar(d *ast.Var) {
	info := &DeclInfo{Stage: Runtime, OverrideID: -1}
	r.info.Decls[d] = info

	var store types.Type
	if d.Type != nil {
		store = r.typeRef(d.Type)
	}
	if d.Init != nil {
		store = r.initializer(d.Init, store)
		if ei := r.info.Exprs[d.Init]; ei != nil && ei.Stage == Runtime {
			r.errorf(d.Init.Range(), "module-scope 'var' initializer must be a constant or override-expression")
		}
	}
	if store == nil {
		if d.Type == nil && d.Init == nil {
			r.errorf(d.Range(), "var declaration requires a type or initializer")
		}
		return
	}
	info.Type = store

	switch {
	case d.AddressSpace == "":
		if isHandleType(store) {
			info.Space = types.SpaceHandle
		} else {
			r.errorf(d.Name.Range(), "module-scope 'var' declarations that are not of texture or sampler types must provide an address space")
			return
		}
	default:
		space, ok := types.ParseAddressSpace(d.AddressSpace)
		if !ok {
			r.errorf(d.Range(), "unresolved address space '%s'", d.AddressSpace)
			return
		}
		if space == types.SpaceFunction {
			r.errorf(d.Range(), "module-scope 'var' must not use address space 'function'")
			return
		}
		info.Space = space
	}

	info.Access = types.DefaultAccess(info.Space)
	if d.Access != "" {
		acc, ok := types.ParseAccess(d.Access)
		if !ok {
			r.errorf(d.Range(), "unresolved access '%s'", d.Access)
			return
		}
		if info.Space != types.SpaceStorage {
			r.errorf(d.Range(), "only variables in <storage> address space may specify an access mode")
		}
		info.Access = acc
	}

	if d.Init != nil && info.Space != types.SpacePrivate {
		r.errorf(d.Range(), "var of address space '%s' cannot have an initializer. var initializers are only supported for the address spaces 'private' and 'function'", info.Space)
	}

	group := ast.FindAttribute(d.Attrs, "group")
	binding := ast.FindAttribute(d.Attrs, "binding")
	if group != nil && binding != nil {
		g, ok1 := r.attrUint(group)
		b, ok2 := r.attrUint(binding)
		if ok1 && ok2 {
			info.Binding = &BindingPoint{Group: g, Binding: b}
		}
	}
}

func isHandleType(t types.Type) bool {
	switch t.(type) {
	case *types.Sampler, *types.Texture:
		return true
	}
	return false
}

// initializer resolves the initializer of a var, let, const or override
// and returns the declared type: declared when given, otherwise the
// materialized type of the initializer. Const declarations pass keep=true to
// retain abstract types.
func (r *resolver) initializerKeep(init ast.Expr, declared types.Type, keep bool) types.Type {
	ei := r.expr(init)
	if ei == nil {
		return declared
	}
	have := types.UnwrapRef(ei.Type)
	if _, isVoid := have.(*types.Void); isVoid {
		r.errorf(init.Range(), "value of type 'void' cannot be used as an initializer")
		return nil
	}
	if declared == nil {
		if keep {
			return have
		}
		want := r.tm.Materialize(have)
		r.convert(init, ei, want)
		return want
	}
	if !r.convert(init, ei, declared) {
		r.errorf(init.Range(), "cannot initialize %s with value of type '%s'", typeName(declared), typeName(have))
	}
	return declared
}

func (r *resolver) initializer(init ast.Expr, declared types.Type) types.Type {
	return r.initializerKeep(init, declared, false)
}

func (r *resolver) constDecl(d *ast.Const) {
	info := &DeclInfo{Stage: Const, OverrideID: -1}
	r.info.Decls[d] = info
	if d.Init == nil {
		r.errorf(d.Range(), "'const' declaration must have an initializer")
		return
	}
	var declared types.Type
	if d.Type != nil {
		if declared = r.typeRef(d.Type); declared == nil {
			return
		}
	}
	t := r.initializerKeep(d.Init, declared, true)
	if t == nil {
		return
	}
	info.Type = t
	ei := r.info.Exprs[d.Init]
	if ei == nil {
		return
	}
	if ei.Stage != Const {
		r.errorf(d.Init.Range(), "const initializer requires a const-expression, but expression is a%s %s-expression",
			article(ei.Stage), ei.Stage)
		return
	}
	info.Value = ei.Value
}

func article(s Stage) string {
	if s == Override {
		return "n"
	}
	return ""
}

func (r *resolver) overrideDecl(d *ast.Override) {
	info := &DeclInfo{Stage: Override, OverrideID: -1}
	r.info.Decls[d] = info
	var t types.Type
	if d.Type != nil {
		t = r.typeRef(d.Type)
	}
	if d.Init != nil {
		t = r.initializer(d.Init, t)
		if ei := r.info.Exprs[d.Init]; ei != nil && ei.Stage == Runtime {
			r.errorf(d.Init.Range(), "override initializer must be an override-expression")
		}
	}
	if t == nil {
		if d.Type == nil && d.Init == nil {
			r.errorf(d.Range(), "override declaration requires a type or initializer")
		}
		return
	}
	if !types.IsScalar(t) || types.IsAbstract(t) {
		r.errorf(d.Range(), "override declaration must be of a concrete scalar type, got '%s'", typeName(t))
		return
	}
	info.Type = t
	if a := ast.FindAttribute(d.Attrs, "id"); a != nil {
		if v, ok := r.attrUint(a); ok {
			if v > 65535 {
				r.errorf(a.Range(), "@id value must be between 0 and 65535")
			}
			info.OverrideID = int64(v)
		}
	}
}

func (r *resolver) constAssert(d *ast.ConstAssert) {
	ei := r.expr(d.Cond)
	if ei == nil {
		return
	}
	if !types.IsBool(types.UnwrapRef(ei.Type)) {
		r.errorf(d.Cond.Range(), "const assertion condition must be a bool, got '%s'", typeName(ei.Type))
		return
	}
	if ei.Stage != Const {
		r.errorf(d.Cond.Range(), "const assertion requires a const-expression, but expression is a%s %s-expression",
			article(ei.Stage), ei.Stage)
		return
	}
	if ei.Value != nil && !ei.Value.B {
		r.errorf(d.Range(), "const assertion failed")
	}
}

func (r *resolver) function(d *ast.Function) {
	fi := &FunctionInfo{Decl: d, Stage: d.Stage()}
	r.info.Functions[d] = fi

	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if seen[p.Name.Name] {
			r.errorf(p.Name.Range(), "redefinition of parameter '%s'", p.Name.Name)
		}
		seen[p.Name.Name] = true
		t := r.typeRef(p.Type)
		attrs := r.ioAttributes(p.Attrs)
		fi.Params = append(fi.Params, t)
		fi.ParamAttrs = append(fi.ParamAttrs, attrs)
		r.info.Decls[p] = &DeclInfo{Type: t, Stage: Runtime, Attrs: attrs, OverrideID: -1}
	}
	if d.ReturnType != nil {
		fi.Return = r.typeRef(d.ReturnType)
		fi.ReturnAttrs = r.ioAttributes(d.ReturnAttrs)
	} else {
		fi.Return = r.tm.Void()
	}

	if fi.Stage == "compute" {
		r.workgroupSize(d, fi)
	}

	if d.Body == nil {
		return
	}
	r.fn = fi
	r.block(d.Body)
	r.fn = nil

	if _, isVoid := fi.Return.(*types.Void); !isVoid && fi.Return != nil && !terminates(d.Body) {
		r.errorf(d.Body.Range(), "missing return at end of function")
	}
}

func (r *resolver) workgroupSize(d *ast.Function, fi *FunctionInfo) {
	a := ast.FindAttribute(d.Attrs, "workgroup_size")
	if a == nil {
		return
	}
	fi.WorkgroupSize = [3]uint32{1, 1, 1}
	if len(a.Args) == 0 || len(a.Args) > 3 {
		r.errorf(a.Range(), "@workgroup_size requires 1 to 3 arguments")
		return
	}
	for i, arg := range a.Args {
		ei := r.expr(arg)
		if ei == nil {
			continue
		}
		t := types.UnwrapRef(ei.Type)
		if !types.IsInteger(t) {
			r.errorf(arg.Range(), "workgroup_size argument must be either a literal, constant, or overridable of type abstract-int, i32 or u32")
			continue
		}
		if ei.Stage == Runtime {
			r.errorf(arg.Range(), "workgroup_size argument must be a constant or override-expression")
			continue
		}
		if ei.Value == nil {
			continue
		}
		if ei.Value.I < 1 {
			r.errorf(arg.Range(), "workgroup_size argument must be at least 1")
			continue
		}
		fi.WorkgroupSize[i] = uint32(ei.Value.I)
	}
}

// terminates reports whether control cannot fall off the end of s.
func terminates(s ast.Stmt) bool {
	switch s := s.(type) {
	case *ast.Return, *ast.Discard:
		return true
	case *ast.Block:
		for _, st := range s.Stmts {
			if terminates(st) {
				return true
			}
		}
	case *ast.If:
		return s.Else != nil && terminates(s.Body) && terminates(s.Else)
	case *ast.Loop:
		return !containsBreak(s.Body)
	case *ast.Switch:
		for _, c := range s.Clauses {
			if !terminates(c.Body) {
				return false
			}
		}
		return len(s.Clauses) > 0
	}
	return false
}

// containsBreak reports whether a break inside body exits the loop that
// owns body.
func containsBreak(body *ast.Block) bool {
	found := false
	var visit func(s ast.Stmt)
	visit = func(s ast.Stmt) {
		switch s := s.(type) {
		case *ast.Break:
			found = true
		case *ast.Block:
			for _, st := range s.Stmts {
				visit(st)
			}
		case *ast.If:
			visit(s.Body)
			if s.Else != nil {
				visit(s.Else)
			}
		}
	}
	visit(body)
	return found
}

// typeRef resolves a type reference, returning nil on error.
func (r *resolver) typeRef(id *ast.Ident) types.Type {
	if id == nil {
		return nil
	}
	t := r.typeRefInner(id)
	if t != nil {
		r.info.TypeRefs[id] = t
	}
	return t
}

func (r *resolver) typeRefInner(id *ast.Ident) types.Type {
	res, ok := r.graph.ResolvedSymbols[id]
	if !ok {
		return nil
	}
	switch res.Kind {
	case ResolvedDecl:
		var t types.Type
		switch d := res.Node.(type) {
		case *ast.Struct:
			if s := r.info.Structs[d]; s != nil {
				t = s
			}
		case *ast.Alias:
			t = r.info.Aliases[d]
		case *ast.Function:
			r.errorf(id.Range(), "cannot use function '%s' as type", id.Name)
			return nil
		default:
			r.errorf(id.Range(), "cannot use %s '%s' as type", ast.KindOf(d), id.Name)
			return nil
		}
		if t != nil && len(id.Template) > 0 {
			r.errorf(id.Range(), "type '%s' does not take template arguments", id.Name)
			return nil
		}
		return t
	case ResolvedBuiltinType:
		return r.builtinType(id, res.Name)
	case ResolvedBuiltinFunction:
		r.errorf(id.Range(), "cannot use builtin function '%s' as type", id.Name)
	default:
		r.errorf(id.Range(), "cannot use '%s' as type", id.Name)
	}
	return nil
}

var shorthandElem = map[byte]types.ScalarKind{'f': types.F32, 'i': types.I32, 'u': types.U32, 'h': types.F16}

// builtinType builds a predeclared type. A generator without template
// arguments (vec3, array) is an error here; constructor calls handle the
// inferred forms themselves.
//
//nolint:gocyclo // one case per type generator
func (r *resolver) builtinType(id *ast.Ident, name string) types.Type {
	noTemplate := func() bool {
		if len(id.Template) > 0 {
			r.errorf(id.Range(), "type '%s' does not take template arguments", name)
			return false
		}
		return true
	}
	switch name {
	case "bool":
		return r.scalarType(id, types.Bool, noTemplate)
	case "i32":
		return r.scalarType(id, types.I32, noTemplate)
	case "u32":
		return r.scalarType(id, types.U32, noTemplate)
	case "f32":
		return r.scalarType(id, types.F32, noTemplate)
	case "f16":
		return r.scalarType(id, types.F16, noTemplate)
	case "sampler", "sampler_comparison":
		if !noTemplate() {
			return nil
		}
		return r.tm.Sampler(name == "sampler_comparison")
	case "array":
		return r.arrayType(id)
	case "atomic":
		el := r.templateType(id, 0, 1)
		if el == nil {
			return nil
		}
		switch {
		case el == r.tm.I32(), el == r.tm.U32(), el == r.tm.U64(), el == r.tm.Vec(r.tm.U32(), 2):
			return r.tm.Atomic(el)
		}
		r.errorf(id.Range(), "atomic only supports i32 or u32 types")
		return nil
	case "ptr":
		return r.pointerType(id)
	}

	switch {
	case strings.HasPrefix(name, "vec"):
		width := uint32(name[3] - '0')
		if len(name) == 5 {
			if !noTemplate() {
				return nil
			}
			return r.tm.Vec(r.shorthand(id, name[4]), width)
		}
		if len(id.Template) == 0 {
			r.errorf(id.Range(), "missing vector element type")
			return nil
		}
		el := r.templateType(id, 0, 1)
		if el == nil {
			return nil
		}
		if !types.IsScalar(el) {
			r.errorf(id.Template[0].Range(), "vector element type must be a scalar, got '%s'", typeName(el))
			return nil
		}
		return r.tm.Vec(el, width)
	case strings.HasPrefix(name, "mat"):
		cols, rows := uint32(name[3]-'0'), uint32(name[5]-'0')
		if len(name) == 7 {
			if !noTemplate() {
				return nil
			}
			return r.tm.Mat(r.shorthand(id, name[6]), cols, rows)
		}
		if len(id.Template) == 0 {
			r.errorf(id.Range(), "missing matrix element type")
			return nil
		}
		el := r.templateType(id, 0, 1)
		if el == nil {
			return nil
		}
		if !types.IsFloat(el) {
			r.errorf(id.Template[0].Range(), "matrix element type must be 'f32' or 'f16'")
			return nil
		}
		return r.tm.Mat(el, cols, rows)
	case strings.HasPrefix(name, "texture_"):
		return r.textureType(id, name)
	}
	r.errorf(id.Range(), "unsupported type '%s'", name)
	return nil
}

func (r *resolver) scalarType(id *ast.Ident, k types.ScalarKind, noTemplate func() bool) types.Type {
	if !noTemplate() {
		return nil
	}
	if k == types.F16 && !r.info.Enables["f16"] {
		r.errorf(id.Range(), "f16 type used without 'f16' extension enabled")
		return nil
	}
	return r.tm.Scalar(k)
}

func (r *resolver) shorthand(id *ast.Ident, suffix byte) types.Type {
	k := shorthandElem[suffix]
	if k == types.F16 && !r.info.Enables["f16"] {
		r.errorf(id.Range(), "f16 type used without 'f16' extension enabled")
	}
	return r.tm.Scalar(k)
}

// templateType resolves template argument i of id as a type, checking the
// argument count against want.
func (r *resolver) templateType(id *ast.Ident, i, want int) types.Type {
	if len(id.Template) != want {
		r.errorf(id.Range(), "'%s' requires %d template argument%s", id.Name, want, plural(want))
		return nil
	}
	arg, ok := id.Template[i].(*ast.Ident)
	if !ok {
		r.errorf(id.Template[i].Range(), "expected type, got expression")
		return nil
	}
	return r.typeRef(arg)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func (r *resolver) arrayType(id *ast.Ident) types.Type {
	if len(id.Template) == 0 {
		r.errorf(id.Range(), "missing array element type")
		return nil
	}
	if len(id.Template) > 2 {
		r.errorf(id.Range(), "'array' requires 1 or 2 template arguments")
		return nil
	}
	elID, ok := id.Template[0].(*ast.Ident)
	if !ok {
		r.errorf(id.Template[0].Range(), "expected type, got expression")
		return nil
	}
	el := r.typeRef(elID)
	if el == nil {
		return nil
	}
	if len(id.Template) == 1 {
		return r.tm.RuntimeArray(el)
	}
	count, ok := r.arrayCount(id.Template[1])
	if !ok {
		return nil
	}
	return r.tm.Array(el, count)
}

func (r *resolver) arrayCount(e ast.Expr) (uint32, bool) {
	ei := r.expr(e)
	if ei == nil {
		return 0, false
	}
	t := types.UnwrapRef(ei.Type)
	if !types.IsInteger(t) {
		r.errorf(e.Range(), "array count must evaluate to a constant integer expression, but is type '%s'", typeName(t))
		return 0, false
	}
	v := ei.Value
	if ei.Stage == Override {
		v = r.overrideDefault(e)
	}
	if ei.Stage == Runtime || v == nil {
		r.errorf(e.Range(), "array count must evaluate to a constant integer expression or override variable")
		return 0, false
	}
	if v.I < 1 {
		r.errorf(e.Range(), "array count (%d) must be greater than 0", v.I)
		return 0, false
	}
	if types.IsAbstract(t) {
		r.convert(e, ei, r.tm.I32())
	}
	return uint32(v.I), true
}

// overrideDefault returns the initializer value of an override named by e.
func (r *resolver) overrideDefault(e ast.Expr) *Value {
	id, ok := e.(*ast.Ident)
	if !ok {
		return nil
	}
	if o, ok := r.graph.Resolved(id).(*ast.Override); ok && o.Init != nil {
		if ei := r.info.Exprs[o.Init]; ei != nil {
			return ei.Value
		}
	}
	return nil
}

func (r *resolver) pointerType(id *ast.Ident) types.Type {
	if len(id.Template) < 2 || len(id.Template) > 3 {
		r.errorf(id.Range(), "'ptr' requires 2 or 3 template arguments")
		return nil
	}
	space, ok := types.ParseAddressSpace(r.enumerant(id.Template[0]))
	if !ok {
		r.errorf(id.Template[0].Range(), "unresolved address space")
		return nil
	}
	storeID, ok := id.Template[1].(*ast.Ident)
	if !ok {
		r.errorf(id.Template[1].Range(), "expected type, got expression")
		return nil
	}
	store := r.typeRef(storeID)
	if store == nil {
		return nil
	}
	access := types.DefaultAccess(space)
	if len(id.Template) == 3 {
		a, ok := types.ParseAccess(r.enumerant(id.Template[2]))
		if !ok {
			r.errorf(id.Template[2].Range(), "unresolved access")
			return nil
		}
		access = a
	}
	return r.tm.Ptr(space, store, access)
}

func (r *resolver) enumerant(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		if res := r.graph.ResolvedSymbols[id]; res.Kind == ResolvedEnumerant {
			return res.Name
		}
	}
	return ""
}

var textureDims = map[string]types.TextureDimension{
	"1d": types.Dim1D, "2d": types.Dim2D, "2d_array": types.Dim2DArray,
	"3d": types.Dim3D, "cube": types.DimCube, "cube_array": types.DimCubeArray,
}

func (r *resolver) textureType(id *ast.Ident, name string) types.Type {
	rest := strings.TrimPrefix(name, "texture_")
	tex := types.Texture{}
	switch {
	case rest == "external":
		tex.Kind, tex.Dim = types.TextureSampled, types.Dim2D
		tex.Sampled = r.tm.F32()
		return r.tm.Texture(tex)
	case strings.HasPrefix(rest, "storage_"):
		tex.Kind, tex.Dim = types.TextureStorage, textureDims[strings.TrimPrefix(rest, "storage_")]
		if len(id.Template) != 2 {
			r.errorf(id.Range(), "'%s' requires 2 template arguments", name)
			return nil
		}
		tex.Format = r.enumerant(id.Template[0])
		acc, ok := types.ParseAccess(r.enumerant(id.Template[1]))
		if tex.Format == "" || !ok {
			r.errorf(id.Range(), "invalid storage texture format or access")
			return nil
		}
		tex.Access = acc
		return r.tm.Texture(tex)
	case strings.HasPrefix(rest, "depth_multisampled_"):
		tex.Kind, tex.Dim = types.TextureDepthMultisampled, textureDims[strings.TrimPrefix(rest, "depth_multisampled_")]
		return r.tm.Texture(tex)
	case strings.HasPrefix(rest, "depth_"):
		tex.Kind, tex.Dim = types.TextureDepth, textureDims[strings.TrimPrefix(rest, "depth_")]
		return r.tm.Texture(tex)
	case strings.HasPrefix(rest, "multisampled_"):
		tex.Kind, tex.Dim = types.TextureMultisampled, textureDims[strings.TrimPrefix(rest, "multisampled_")]
	default:
		tex.Kind, tex.Dim = types.TextureSampled, textureDims[rest]
	}
	el := r.templateType(id, 0, 1)
	if el == nil {
		return nil
	}
	if el != r.tm.F32() && el != r.tm.I32() && el != r.tm.U32() {
		r.errorf(id.Template[0].Range(), "texture sampled type must be f32, i32 or u32")
		return nil
	}
	tex.Sampled = el
	return r.tm.Texture(tex)
}

// attrUint evaluates the single argument of an attribute as a
// non-negative constant integer.
func (r *resolver) attrUint(a *ast.Attribute) (uint32, bool) {
	if len(a.Args) != 1 {
		r.errorf(a.Range(), "@%s requires 1 argument", a.Name)
		return 0, false
	}
	ei := r.expr(a.Args[0])
	if ei == nil {
		return 0, false
	}
	if !types.IsInteger(types.UnwrapRef(ei.Type)) {
		r.errorf(a.Range(), "@%s must be an i32 or u32 value", a.Name)
		return 0, false
	}
	if ei.Stage != Const || ei.Value == nil {
		r.errorf(a.Range(), "@%s must be a constant expression", a.Name)
		return 0, false
	}
	if ei.Value.I < 0 {
		r.errorf(a.Range(), "@%s value must be non-negative", a.Name)
		return 0, false
	}
	return uint32(ei.Value.I), true
}

// ioAttributes collects the shader interface attributes of a parameter,
// return value or struct member.
func (r *resolver) ioAttributes(attrs []*ast.Attribute) types.IOAttributes {
	var io types.IOAttributes
	for _, a := range attrs {
		switch a.Name {
		case "location":
			if v, ok := r.attrUint(a); ok {
				io.Location = types.U32Ptr(v)
			}
		case "color":
			if v, ok := r.attrUint(a); ok {
				io.Color = types.U32Ptr(v)
			}
		case "blend_src":
			if v, ok := r.attrUint(a); ok {
				io.BlendSrc = types.U32Ptr(v)
			}
		case "invariant":
			io.Invariant = true
		case "builtin":
			name := attrName(a, 0)
			if _, ok := types.Builtins[types.BuiltinValue(name)]; !ok {
				r.errorf(a.Range(), "unknown builtin value '%s'", name)
				continue
			}
			io.Builtin = types.BuiltinValue(name)
		case "interpolate":
			interp := &types.Interpolation{Type: attrName(a, 0), Sampling: attrName(a, 1)}
			switch interp.Type {
			case "perspective", "linear", "flat":
			default:
				r.errorf(a.Range(), "invalid interpolation type '%s'", interp.Type)
				continue
			}
			io.Interpolate = interp
		}
	}
	return io
}

func attrName(a *ast.Attribute, i int) string {
	if i >= len(a.Args) {
		return ""
	}
	if id, ok := a.Args[i].(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// typeName spells a type for diagnostics. References are shown by their
// store type, as the Load Rule would see them.
func typeName(t types.Type) string {
	if t == nil {
		return "<error>"
	}
	return types.UnwrapRef(t).String()
}

func itoa(i int) string { return strconv.Itoa(i) }
