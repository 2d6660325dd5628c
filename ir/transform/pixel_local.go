package transform

import (
	"fmt"

	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/ir/typerewrite"
	"github.com/gogpu/wgslcore/types"
)

// PixelLocal lowers the pixel_local address space for targets that
// expose pixel-local storage as framebuffer attachments read on entry and
// written on exit.
//
// The pixel_local variable moves to the private address space. Every
// fragment entry point F that uses it becomes the ordinary function
// F_inner, and a new entry point F takes the pixel-local structure as an
// extra parameter whose members carry @color(N), copies it into the
// variable, calls F_inner and returns the structure F_res: the original
// outputs followed by the final pixel-local members at @location(N).
type PixelLocal struct {
	// Attachments maps member indices of the pixel-local structure to
	// attachment indices. Members without an entry use their own index.
	Attachments map[int]int
}

func (p PixelLocal) attachment(member int) uint32 {
	if a, ok := p.Attachments[member]; ok {
		return uint32(a)
	}
	return uint32(member)
}

// pixelLocalRule moves pointers from pixel_local to private.
var pixelLocalRule = typerewrite.Rule{
	Name: "pixel_local",
	Forward: func(tm *types.Manager, t types.Type) (types.Type, bool) {
		if p, ok := t.(*types.Pointer); ok && p.Space == types.SpacePixelLocal {
			return tm.Ptr(types.SpacePrivate, p.Store, p.Access), true
		}
		return nil, false
	},
}

// Run applies the transform to m.
func (p PixelLocal) Run(m *ir.Module) error {
	var plv *ir.Var
	for _, inst := range m.Root.Instructions() {
		if v, ok := inst.(*ir.Var); ok && v.Pointer() != nil && v.Pointer().Space == types.SpacePixelLocal {
			plv = v
			break
		}
	}
	if plv == nil {
		return nil
	}
	st, ok := plv.Pointer().Store.(*types.Struct)
	if !ok {
		return fmt.Errorf("pixel_local variable must have a structure type, got '%s'", plv.Pointer().Store)
	}
	for i, mem := range st.Members {
		a := p.attachment(i)
		mem.Attrs.Color = &a
	}

	users := usingFunctions(plv.Result())
	if err := typerewrite.Run(m, pixelLocalRule, nil, typerewrite.Forward); err != nil {
		return err
	}
	for _, f := range m.EntryPoints() {
		if f.Stage != ir.StageFragment || !users[f] {
			continue
		}
		if err := p.split(m, f, plv, st); err != nil {
			return err
		}
	}
	return nil
}

// usingFunctions returns the functions that use v, directly or through a
// call.
func usingFunctions(v ir.Value) map[*ir.Function]bool {
	users := make(map[*ir.Function]bool)
	var work []*ir.Function
	for _, u := range v.Usages() {
		if blk := u.Instruction.Block(); blk != nil {
			if f := blk.Function(); f != nil && !users[f] {
				users[f] = true
				work = append(work, f)
			}
		}
	}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		for _, c := range f.Callers() {
			if caller := c.Block().Function(); caller != nil && !users[caller] {
				users[caller] = true
				work = append(work, caller)
			}
		}
	}
	return users
}

func (p PixelLocal) split(m *ir.Module, f *ir.Function, plv *ir.Var, st *types.Struct) error {
	tm := m.Types
	b := ir.NewBuilder(m)
	name := m.NameOf(f)

	// Outputs of the original entry point come first.
	var members []types.MemberDesc
	used := make(map[uint32]bool)
	addOutput := func(t types.Type, attrs types.IOAttributes) {
		if attrs.Location != nil {
			used[*attrs.Location] = true
		}
		members = append(members, types.MemberDesc{
			Name:  fmt.Sprintf("output_%d", len(members)),
			Type:  t,
			Attrs: attrs,
		})
	}
	switch rt := f.ReturnType.(type) {
	case *types.Void:
	case *types.Struct:
		for _, mem := range rt.Members {
			addOutput(mem.Type, mem.Attrs)
		}
	default:
		addOutput(rt, f.ReturnAttrs)
	}
	for i, mem := range st.Members {
		loc := p.attachment(i)
		if used[loc] {
			return fmt.Errorf("entry point '%s': pixel_local member '%s' at attachment %d collides with an existing output at @location(%d)",
				name, mem.Name, loc, loc)
		}
		addOutput(mem.Type, types.IOAttributes{Location: &loc})
	}
	res := tm.MintStruct(name+"_res", members)

	// The original function keeps its body and loses its entry point
	// interface.
	stage := f.Stage
	m.SetName(f, name+"_inner")
	f.Stage = ir.StageNone
	f.WorkgroupSize = nil
	f.ReturnAttrs = types.IOAttributes{}
	params := []*ir.FunctionParam{b.FunctionParam("pixel_local", st)}
	var args []ir.Value
	for _, param := range f.Params() {
		np := b.FunctionParam(m.NameOf(param), param.Type())
		np.Attrs = param.Attrs
		param.Attrs = types.IOAttributes{}
		params = append(params, np)
		args = append(args, np)
	}

	w := b.Function(name, res, stage)
	m.RemoveFunction(w)
	m.InsertFunctionAfter(f, w)
	w.SetParams(params...)
	b.Append(w.Block, func() {
		b.Store(plv.Result(), params[0])
		call := b.CallFunc(f, args...)
		var outs []ir.Value
		switch rt := f.ReturnType.(type) {
		case *types.Void:
		case *types.Struct:
			for j, mem := range rt.Members {
				outs = append(outs, b.Access(mem.Type, call.Result(), uint32(j)).Result())
			}
		default:
			outs = append(outs, call.Result())
		}
		for i, mem := range st.Members {
			ptr := b.Access(tm.Ptr(types.SpacePrivate, mem.Type, types.ReadWrite), plv.Result(), uint32(i))
			outs = append(outs, b.Load(ptr.Result()).Result())
		}
		b.Return(w, b.Construct(res, outs...).Result())
	})
	return nil
}
