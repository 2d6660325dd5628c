package transform

import (
	"slices"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/ir/typerewrite"
	"github.com/gogpu/wgslcore/types"
)

const (
	atomicToU64Name   = "atomic_vec2u_to_u64"
	atomicToVec2uName = "atomic_u64_to_vec2u"
)

// atomicRule maps atomic<vec2<u32>> to atomic<u64>.
var atomicRule = typerewrite.Rule{
	Name:   "atomic_vec2u_u64",
	Suffix: "atomic",
	Forward: func(tm *types.Manager, t types.Type) (types.Type, bool) {
		if a, ok := t.(*types.Atomic); ok && a.Elem == types.Type(tm.Vec(tm.U32(), 2)) {
			return tm.Atomic(tm.U64()), true
		}
		return nil, false
	},
	Backward: func(tm *types.Manager, t types.Type) (types.Type, bool) {
		if a, ok := t.(*types.Atomic); ok && a.Elem == types.Type(tm.U64()) {
			return tm.Atomic(tm.Vec(tm.U32(), 2)), true
		}
		return nil, false
	},
}

// atomicPolicy lists how each atomic builtin changes when its pointer
// operand is retyped.
var atomicPolicy = typerewrite.Policy{
	"atomicLoad":                atomicLoad,
	"atomicStore":               atomicStore,
	"atomicStoreMax":            atomicSwap("atomicMax", typerewrite.Forward),
	"atomicStoreMin":            atomicSwap("atomicMin", typerewrite.Forward),
	"atomicMax":                 atomicSwap("atomicStoreMax", typerewrite.Backward),
	"atomicMin":                 atomicSwap("atomicStoreMin", typerewrite.Backward),
	"atomicAdd":                 atomicUnsupported,
	"atomicSub":                 atomicUnsupported,
	"atomicAnd":                 atomicUnsupported,
	"atomicOr":                  atomicUnsupported,
	"atomicXor":                 atomicUnsupported,
	"atomicExchange":            atomicUnsupported,
	"atomicCompareExchangeWeak": atomicUnsupported,
}

// AtomicVec2uToU64 widens atomic<vec2<u32>> to atomic<u64>. Loads and
// stores bitcast between the two representations, and atomicStoreMax and
// atomicStoreMin become atomicMax and atomicMin with a discarded result.
func AtomicVec2uToU64(m *ir.Module) error {
	return widenAtomics(m, typerewrite.Forward)
}

// AtomicU64ToVec2u is the inverse of AtomicVec2uToU64. An atomicMax or
// atomicMin whose result is used cannot be expressed on atomic<vec2<u32>>
// and is rejected.
func AtomicU64ToVec2u(m *ir.Module) error {
	return widenAtomics(m, typerewrite.Backward)
}

func widenAtomics(m *ir.Module, dir typerewrite.Direction) error {
	if err := typerewrite.Run(m, atomicRule, atomicPolicy, dir); err != nil {
		return err
	}
	foldBitcasts(m)
	return nil
}

func atomicPassName(dir typerewrite.Direction) string {
	if dir == typerewrite.Backward {
		return atomicToVec2uName
	}
	return atomicToU64Name
}

// atomicElem returns the element type of the atomic behind the call's
// pointer operand.
func atomicElem(call *ir.BuiltinCall, dir typerewrite.Direction) (types.Type, error) {
	if a, ok := ir.LoadedType(call.Operand(0).Type()).(*types.Atomic); ok {
		return a.Elem, nil
	}
	return nil, diag.NewInternalError(atomicPassName(dir), "'%s' does not operate on an atomic pointer", call.Func)
}

func atomicLoad(rw *typerewrite.Rewriter, call *ir.BuiltinCall, dir typerewrite.Direction) error {
	el, err := atomicElem(call, dir)
	if err != nil {
		return err
	}
	res := call.Result()
	old := res.Type()
	if old == el {
		return nil
	}
	uses := slices.Clone(res.Usages())
	res.SetType(el)
	var cast *ir.Bitcast
	rw.Builder.InsertAfter(call, func() {
		cast = rw.Builder.Bitcast(old, res)
	})
	for _, u := range uses {
		if u.Instruction != cast {
			u.Instruction.SetOperand(u.Operand, cast.Result())
		}
	}
	return nil
}

func atomicStore(rw *typerewrite.Rewriter, call *ir.BuiltinCall, dir typerewrite.Direction) error {
	el, err := atomicElem(call, dir)
	if err != nil {
		return err
	}
	bitcastOperand(rw.Builder, call, 1, el)
	return nil
}

// atomicSwap replaces the call with the builtin to, valid only when the
// module is rewritten in direction want.
func atomicSwap(to string, want typerewrite.Direction) typerewrite.Handler {
	return func(rw *typerewrite.Rewriter, call *ir.BuiltinCall, dir typerewrite.Direction) error {
		if dir != want {
			return atomicUnsupported(rw, call, dir)
		}
		el, err := atomicElem(call, dir)
		if err != nil {
			return err
		}
		res := call.Result()
		if dir == typerewrite.Backward && res.IsUsed() {
			return diag.NewInternalError(atomicPassName(dir),
				"the result of '%s' is used and cannot be preserved on atomic<vec2<u32>>", call.Func).
				WithType(res.Type())
		}
		bitcastOperand(rw.Builder, call, 1, el)

		var ret types.Type = rw.Types.Void()
		if dir == typerewrite.Forward {
			ret = el
		}
		args := make([]any, len(call.Args()))
		for i, a := range call.Args() {
			args[i] = a
		}
		rw.Builder.InsertBefore(call, func() {
			rw.Builder.Call(ret, to, args...)
		})
		call.Destroy()
		return nil
	}
}

func atomicUnsupported(rw *typerewrite.Rewriter, call *ir.BuiltinCall, dir typerewrite.Direction) error {
	return diag.NewInternalError(atomicPassName(dir), "no rewrite for '%s' on a retyped atomic", call.Func).
		WithType(call.Operand(0).Type())
}

// bitcastOperand reinterprets operand i of inst as type to, inserting the
// bitcast right before inst.
func bitcastOperand(b *ir.Builder, inst ir.Instruction, i int, to types.Type) {
	v := inst.Operand(i)
	if v == nil || v.Type() == to {
		return
	}
	var cast *ir.Bitcast
	b.InsertBefore(inst, func() {
		cast = b.Bitcast(to, v)
	})
	inst.SetOperand(i, cast.Result())
}

// foldBitcasts removes bitcast(bitcast(x)) pairs that round-trip x to its
// own type.
func foldBitcasts(m *ir.Module) {
	for _, inst := range m.Instructions() {
		outer, ok := inst.(*ir.Bitcast)
		if !ok || !outer.Alive() {
			continue
		}
		r, ok := outer.Value().(*ir.InstructionResult)
		if !ok {
			continue
		}
		inner, ok := r.Instruction().(*ir.Bitcast)
		if !ok || inner.Value().Type() != outer.Result().Type() {
			continue
		}
		outer.Result().ReplaceAllUsesWith(inner.Value())
		outer.Destroy()
		if !inner.Result().IsUsed() {
			inner.Destroy()
		}
	}
}
