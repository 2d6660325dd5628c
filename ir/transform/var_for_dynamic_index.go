package transform

import (
	"strconv"
	"strings"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/ir/accesschain"
	"github.com/gogpu/wgslcore/types"
)

const varForDynamicIndexName = "var_for_dynamic_index"

// VarForDynamicIndex copies composite values that are dynamically indexed
// into function-scope variables, so that the dynamic index is applied to a
// pointer rather than to a value. Accesses whose object is already a
// pointer are left alone, as are dynamic indices into vectors.
//
// For an access with its first dynamic array or matrix index at step k,
// the constant steps before k are extracted once per object and path, the
// extracted value is copied into a variable once per value, and the
// remaining steps are applied to the variable followed by a load.
func VarForDynamicIndex(m *ir.Module) error {
	d := &dynamicIndexer{
		m:        m,
		b:        ir.NewBuilder(m),
		prefixes: make(map[prefixKey]ir.Value),
		locals:   make(map[ir.Value]*ir.Var),
	}
	for _, inst := range m.Instructions() {
		acc, ok := inst.(*ir.Access)
		if !ok || !acc.Alive() {
			continue
		}
		if err := d.rewrite(acc); err != nil {
			return err
		}
	}
	return nil
}

type prefixKey struct {
	object ir.Value
	path   string
}

type dynamicIndexer struct {
	m        *ir.Module
	b        *ir.Builder
	prefixes map[prefixKey]ir.Value
	locals   map[ir.Value]*ir.Var
}

// firstDynamic returns the first step that dynamically indexes an array or
// a matrix, or -1.
func firstDynamic(c *accesschain.Chain) int {
	for i, s := range c.Steps {
		if s.Kind != accesschain.DynamicIndex {
			continue
		}
		switch c.TypeAt(i - 1).(type) {
		case *types.Array, *types.Matrix:
			return i
		}
	}
	return -1
}

func (d *dynamicIndexer) rewrite(acc *ir.Access) error {
	if _, isPtr := acc.Object().Type().(*types.Pointer); isPtr {
		return nil
	}
	c, ok := accesschain.Analyze(acc.Result(), accesschain.Options{Shallow: true})
	if !ok {
		return nil
	}
	k := firstDynamic(c)
	if k < 0 {
		return nil
	}
	fn := acc.Block().Function()
	if fn == nil {
		return diag.NewInternalError(varForDynamicIndexName, "dynamic index outside of a function")
	}

	source := c.Root
	if k > 0 {
		source = d.prefix(fn, c, k)
	}
	local := d.local(fn, source)

	suffix := c.Steps[k:]
	indices := c.Indices(k, len(c.Steps))
	var elem ir.Value
	if _, isVec := c.TypeAt(len(c.Steps) - 2).(*types.Vector); isVec && len(suffix) > 1 {
		elem = indices[len(indices)-1]
		indices = indices[:len(indices)-1]
	}

	tm := d.m.Types
	var loaded ir.Value
	var err error
	d.b.InsertBefore(acc, func() {
		ptr := local.Result()
		if len(indices) > 0 {
			var t types.Type
			if t, err = ir.IndexedType(tm, ptr.Type(), indices); err != nil {
				return
			}
			ptr = d.b.Access(t, ptr, anys(indices)...).Result()
		}
		if elem != nil {
			loaded = d.b.LoadVectorElement(ptr, elem).Result()
		} else {
			loaded = d.b.Load(ptr).Result()
		}
	})
	if err != nil {
		return diag.WrapInternal(varForDynamicIndexName, err)
	}
	acc.Result().ReplaceAllUsesWith(loaded)
	acc.Destroy()
	return nil
}

// prefix returns the value of the constant steps [0, k) applied to the
// chain's root.
func (d *dynamicIndexer) prefix(fn *ir.Function, c *accesschain.Chain, k int) ir.Value {
	var path strings.Builder
	for _, s := range c.Steps[:k] {
		path.WriteString(strconv.FormatUint(uint64(s.Index), 10))
		path.WriteByte('.')
	}
	key := prefixKey{object: c.Root, path: path.String()}
	if v, ok := d.prefixes[key]; ok {
		return v
	}
	var v ir.Value
	d.after(fn, c.Root, func() {
		v = d.b.Access(c.TypeAt(k-1), c.Root, anys(c.Indices(0, k))...).Result()
	})
	d.prefixes[key] = v
	return v
}

// local returns the variable holding a copy of source.
func (d *dynamicIndexer) local(fn *ir.Function, source ir.Value) *ir.Var {
	if v, ok := d.locals[source]; ok {
		return v
	}
	var v *ir.Var
	d.after(fn, source, func() {
		v = d.b.Var("", d.m.Types.Ptr(types.SpaceFunction, source.Type(), types.ReadWrite))
		v.SetInitializer(source)
	})
	d.locals[source] = v
	return v
}

// after runs build with instructions inserted right after the definition
// of v, or at the start of fn when v is not defined by an instruction of
// fn.
func (d *dynamicIndexer) after(fn *ir.Function, v ir.Value, build func()) {
	if r, ok := v.(*ir.InstructionResult); ok {
		if blk := r.Instruction().Block(); blk != nil && blk.Function() == fn {
			d.b.InsertAfter(r.Instruction(), build)
			return
		}
	}
	d.b.Prepend(fn.Block, build)
}

func anys(vs []ir.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
