package resolver

import (
	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/types"
)

// Validate checks the rules that depend on the whole resolved module:
// entry point interfaces, resource bindings, address space restrictions
// and buffer layouts.
func Validate(mod *ast.Module, info *Info) diag.List {
	v := &validator{mod: mod, info: info}
	for _, d := range mod.Decls {
		switch d := d.(type) {
		case *ast.Var:
			v.globalVar(d)
		case *ast.Struct:
			v.structDecl(d)
		}
	}
	v.overrideIDs()
	for _, fn := range mod.Functions() {
		if fn.Stage() != "" {
			v.entryPoint(fn)
		}
	}
	return v.errs
}

type validator struct {
	mod  *ast.Module
	info *Info
	errs diag.List
}

func (v *validator) structDecl(d *ast.Struct) {
	s := v.info.Structs[d]
	if s == nil {
		return
	}
	for i, m := range s.Members {
		if a, ok := m.Type.(*types.Array); ok && a.IsRuntimeSized() && i != len(s.Members)-1 {
			v.errs.AddError(d.Members[i].Range(), "runtime arrays may only appear as the last member of a struct")
		}
	}
}

func isResourceSpace(s types.AddressSpace) bool {
	return s == types.SpaceUniform || s == types.SpaceStorage || s == types.SpaceHandle
}

func (v *validator) globalVar(d *ast.Var) {
	di := v.info.Decls[d]
	if di == nil || di.Type == nil {
		return
	}
	rng := d.Name.Range()
	hasBinding := ast.FindAttribute(d.Attrs, "group") != nil || ast.FindAttribute(d.Attrs, "binding") != nil
	switch {
	case isResourceSpace(di.Space) && di.Binding == nil:
		v.errs.AddError(rng, "resource variables require @group and @binding attributes")
	case !isResourceSpace(di.Space) && hasBinding:
		v.errs.AddError(rng, "non-resource variables must not have @group or @binding attributes")
	}

	if a, ok := di.Type.(*types.Array); ok && a.IsRuntimeSized() && di.Space != types.SpaceStorage {
		v.errs.AddError(rng, "runtime-sized arrays can only be used in the <storage> address space")
	}

	switch di.Space {
	case types.SpaceUniform, types.SpaceStorage, types.SpacePushConstant:
		if !types.IsHostShareable(di.Type) {
			v.errs.AddError(rng, "Type '%s' cannot be used in address space '%s' as it is non-host-shareable", di.Type, di.Space)
			return
		}
	}
	if types.ContainsAtomic(di.Type) {
		switch {
		case di.Space != types.SpaceStorage && di.Space != types.SpaceWorkgroup:
			v.errs.AddError(rng, "atomic variables must have <storage> or <workgroup> address space")
		case di.Space == types.SpaceStorage && di.Access != types.ReadWrite:
			v.errs.AddError(rng, "atomic variables in <storage> address space must have read_write access mode")
		}
	}

	switch di.Space {
	case types.SpaceUniform:
		if !v.info.Enables["chromium_internal_relaxed_uniform_layout"] {
			v.uniformLayout(rng, di.Type)
		}
	case types.SpacePixelLocal:
		v.pixelLocal(rng, di.Type)
	case types.SpacePushConstant:
		if !v.info.Enables["chromium_experimental_push_constant"] {
			v.errs.AddError(rng, "use of variable address space 'push_constant' requires enabling extension 'chromium_experimental_push_constant'")
		}
	}
}

func (v *validator) pixelLocal(rng diag.Range, t types.Type) {
	if !v.info.Enables["chromium_experimental_pixel_local"] {
		v.errs.AddError(rng, "'pixel_local' address space requires the 'chromium_experimental_pixel_local' extension enabled")
		return
	}
	s, ok := t.(*types.Struct)
	if !ok {
		v.errs.AddError(rng, "'pixel_local' variable only supports struct storage types")
		return
	}
	for _, m := range s.Members {
		if m.Type != v.info.Types.I32() && m.Type != v.info.Types.U32() && m.Type != v.info.Types.F32() {
			v.errs.AddError(rng, "struct members used in the 'pixel_local' address space can only be of the type 'i32', 'u32' or 'f32'")
			return
		}
	}
}

// uniformLayout applies the extra alignment rules of the uniform address
// space: nested structs and array elements start on 16-byte boundaries.
func (v *validator) uniformLayout(rng diag.Range, t types.Type) {
	switch t := t.(type) {
	case *types.Struct:
		for i, m := range t.Members {
			switch mt := m.Type.(type) {
			case *types.Struct:
				if m.Offset%16 != 0 {
					v.errs.AddError(rng, "the offset of a struct member of type '%s' in address space 'uniform' must be a multiple of 16 bytes, but '%s' is currently at offset %d. Consider setting @align(16) on this member",
						mt, m.Name, m.Offset)
				}
			case *types.Array:
				if m.Offset%16 != 0 {
					v.errs.AddError(rng, "the offset of a struct member of type '%s' in address space 'uniform' must be a multiple of 16 bytes, but '%s' is currently at offset %d. Consider setting @align(16) on this member",
						mt, m.Name, m.Offset)
				}
			}
			if i > 0 {
				if _, ok := t.Members[i-1].Type.(*types.Struct); ok {
					if gap := m.Offset - t.Members[i-1].Offset; gap%16 != 0 {
						v.errs.AddError(rng, "uniform storage requires that the number of bytes between the start of the previous member of type struct and the current member be a multiple of 16 bytes, but there are currently %d bytes between '%s' and '%s'. Consider setting @align(16) on this member",
							gap, t.Members[i-1].Name, m.Name)
					}
				}
			}
			v.uniformLayout(rng, m.Type)
		}
	case *types.Array:
		if t.Stride()%16 != 0 {
			v.errs.AddError(rng, "'%s' cannot be used in address space 'uniform' as the element stride of the array (%d) is not a multiple of 16 bytes", t, t.Stride())
			return
		}
		v.uniformLayout(rng, t.Elem)
	}
}

func (v *validator) overrideIDs() {
	seen := make(map[int64]*ast.Override)
	for _, d := range v.mod.Decls {
		o, ok := d.(*ast.Override)
		if !ok {
			continue
		}
		di := v.info.Decls[o]
		if di == nil || di.OverrideID < 0 {
			continue
		}
		if prev := seen[di.OverrideID]; prev != nil {
			v.errs.AddError(o.Name.Range(), "@id values must be unique")
			v.errs.AddNote(prev.Name.Range(), "a override with an ID of %d was previously declared here:", di.OverrideID)
			continue
		}
		seen[di.OverrideID] = o
	}
}

// ioVar is one flattened entry point input or output.
type ioVar struct {
	name  string
	t     types.Type
	attrs types.IOAttributes
	rng   diag.Range
}

func (v *validator) entryPoint(fn *ast.Function) {
	fi := v.info.Functions[fn]
	if fi == nil {
		return
	}
	stage := fi.Stage
	wg := ast.FindAttribute(fn.Attrs, "workgroup_size")
	switch {
	case stage == "compute" && wg == nil:
		v.errs.AddError(fn.Name.Range(), "a compute shader must include 'workgroup_size' in its attributes")
	case stage != "compute" && wg != nil:
		v.errs.AddError(wg.Range(), "@workgroup_size is only valid for compute stages")
	}

	var inputs []ioVar
	for i, p := range fn.Params {
		inputs = v.flatten(inputs, p.Name.Name, fi.Params[i], fi.ParamAttrs[i], p.Range())
	}
	var outputs []ioVar
	if _, isVoid := fi.Return.(*types.Void); fi.Return != nil && !isVoid {
		rng := fn.Name.Range()
		if fn.ReturnType != nil {
			rng = fn.ReturnType.Range()
		}
		outputs = v.flatten(outputs, "return value", fi.Return, fi.ReturnAttrs, rng)
	}
	v.checkIO(stage, "input", inputs)
	v.checkIO(stage, "output", outputs)

	if stage == "vertex" {
		found := false
		for _, o := range outputs {
			if o.attrs.Builtin == types.BuiltinPosition {
				found = true
			}
		}
		if !found {
			v.errs.AddError(fn.Name.Range(), "a vertex shader must include the 'position' builtin in its return type")
		}
	}

	v.entryPointGlobals(fn, fi)
}

func (v *validator) flatten(out []ioVar, name string, t types.Type, attrs types.IOAttributes, rng diag.Range) []ioVar {
	if t == nil {
		return out
	}
	s, ok := t.(*types.Struct)
	if !ok {
		return append(out, ioVar{name: name, t: t, attrs: attrs, rng: rng})
	}
	if !attrs.IsEmpty() {
		v.errs.AddError(rng, "entry point IO attributes must not be used on structure %s", name)
	}
	for _, m := range s.Members {
		if _, nested := m.Type.(*types.Struct); nested {
			v.errs.AddError(rng, "nested structures cannot be used for entry point IO")
			continue
		}
		out = append(out, ioVar{name: m.Name, t: m.Type, attrs: m.Attrs, rng: rng})
	}
	return out
}

// builtinUse lists the stages and directions in which each builtin value
// may appear.
var builtinUse = map[types.BuiltinValue][]string{
	types.BuiltinPosition:             {"vertex output", "fragment input"},
	types.BuiltinFrontFacing:          {"fragment input"},
	types.BuiltinFragDepth:            {"fragment output"},
	types.BuiltinSampleIndex:          {"fragment input"},
	types.BuiltinSampleMask:           {"fragment input", "fragment output"},
	types.BuiltinVertexIndex:          {"vertex input"},
	types.BuiltinInstanceIndex:        {"vertex input"},
	types.BuiltinLocalInvocationID:    {"compute input"},
	types.BuiltinLocalInvocationIndex: {"compute input"},
	types.BuiltinGlobalInvocationID:   {"compute input"},
	types.BuiltinWorkgroupID:          {"compute input"},
	types.BuiltinNumWorkgroups:        {"compute input"},
}

func (v *validator) checkIO(stage, dir string, vars []ioVar) {
	locations := make(map[uint32]bool)
	colors := make(map[uint32]bool)
	builtins := make(map[types.BuiltinValue]bool)
	use := stage + " " + dir
	for _, io := range vars {
		a := io.attrs
		switch {
		case a.Builtin != types.BuiltinNone:
			allowed := false
			for _, u := range builtinUse[a.Builtin] {
				allowed = allowed || u == use
			}
			if !allowed {
				v.errs.AddError(io.rng, "@builtin(%s) cannot be used for %s shader %s", a.Builtin, stage, dir)
				continue
			}
			if want := types.Builtins[a.Builtin]; io.t.String() != want {
				v.errs.AddError(io.rng, "store type of @builtin(%s) must be '%s'", a.Builtin, want)
			}
			if builtins[a.Builtin] {
				v.errs.AddError(io.rng, "@builtin(%s) appears multiple times as pipeline %s", a.Builtin, dir)
			}
			builtins[a.Builtin] = true
		case a.Location != nil:
			if stage == "compute" {
				v.errs.AddError(io.rng, "@location cannot be used by compute shaders")
				continue
			}
			if !types.IsNumericScalarOrVector(io.t) {
				v.errs.AddError(io.rng, "cannot apply @location to declaration of type '%s'", io.t)
				continue
			}
			if locations[*a.Location] {
				v.errs.AddError(io.rng, "@location(%d) appears multiple times", *a.Location)
			}
			locations[*a.Location] = true
			integral := types.IsIntegerScalarOrVector(io.t)
			pipelineIO := (stage == "vertex" && dir == "output") || (stage == "fragment" && dir == "input")
			if integral && pipelineIO && (a.Interpolate == nil || a.Interpolate.Type != "flat") {
				v.errs.AddError(io.rng, "integral user-defined %s %ss must have a flat interpolation attribute", stage, dir)
			}
		case a.Color != nil:
			if use != "fragment input" {
				v.errs.AddError(io.rng, "@color can only be used for fragment shader inputs")
				continue
			}
			if colors[*a.Color] {
				v.errs.AddError(io.rng, "@color(%d) appears multiple times", *a.Color)
			}
			colors[*a.Color] = true
		default:
			v.errs.AddError(io.rng, "missing entry point IO attribute on %s", io.name)
			continue
		}
		if a.Invariant && a.Builtin != types.BuiltinPosition {
			v.errs.AddError(io.rng, "invariant attribute must only be applied to a position builtin")
		}
		if a.Interpolate != nil && a.Location == nil {
			v.errs.AddError(io.rng, "interpolate attribute must only be used with @location")
		}
	}
}

// entryPointGlobals checks the module-scope variables an entry point uses,
// directly or through the functions it calls.
func (v *validator) entryPointGlobals(fn *ast.Function, fi *FunctionInfo) {
	type binding struct{ group, binding uint32 }
	bindings := make(map[binding]*ast.Var)
	var pixelLocal *ast.Var
	for _, g := range fi.UsedGlobals {
		di := v.info.Decls[g]
		if di == nil {
			continue
		}
		rng := fn.Name.Range()
		switch di.Space {
		case types.SpaceWorkgroup:
			if fi.Stage != "compute" {
				v.errs.AddError(rng, "var with 'workgroup' address space cannot be used by %s pipeline stage", fi.Stage)
			}
		case types.SpacePixelLocal:
			if fi.Stage != "fragment" {
				v.errs.AddError(rng, "var with 'pixel_local' address space cannot be used by %s pipeline stage", fi.Stage)
			} else if pixelLocal != nil && pixelLocal != g {
				v.errs.AddError(rng, "entry point '%s' uses two different 'pixel_local' variables.", fn.Name.Name)
			}
			pixelLocal = g
		case types.SpaceStorage:
			if fi.Stage == "vertex" && di.Access == types.ReadWrite {
				v.errs.AddWarning(g.Name.Range(), "storage buffers used by vertex shaders should be read-only")
			}
		}
		if di.Binding == nil {
			continue
		}
		key := binding{di.Binding.Group, di.Binding.Binding}
		if prev := bindings[key]; prev != nil && prev != g {
			v.errs.AddError(rng, "entry point '%s' references multiple variables that use the same resource binding @group(%d), @binding(%d)",
				fn.Name.Name, key.group, key.binding)
			v.errs.AddNote(prev.Name.Range(), "first resource binding usage declared here")
			continue
		}
		bindings[key] = g
	}
}
