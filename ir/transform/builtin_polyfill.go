package transform

import (
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/types"
)

// BuiltinPolyfill replaces builtin calls that some targets lack, or
// implement with different edge-case behavior, by equivalent instruction
// sequences. Each field enables one polyfill.
type BuiltinPolyfill struct {
	// ClampInt lowers integer clamp(e, low, high) to min(max(e, low), high).
	ClampInt bool
	// CountLeadingZeros and CountTrailingZeros lower the bit counts to a
	// binary search with select.
	CountLeadingZeros  bool
	CountTrailingZeros bool
	// ExtractBits and InsertBits clamp the offset and count operands so
	// that offset+count never exceeds 32.
	ExtractBits bool
	InsertBits  bool
	// Saturate lowers saturate(x) to clamp(x, 0, 1).
	Saturate bool
}

// Enabled reports whether any polyfill is switched on.
func (p BuiltinPolyfill) Enabled() bool {
	return p.ClampInt || p.CountLeadingZeros || p.CountTrailingZeros ||
		p.ExtractBits || p.InsertBits || p.Saturate
}

// Run applies the enabled polyfills to m.
func (p BuiltinPolyfill) Run(m *ir.Module) error {
	pf := &polyfiller{b: ir.NewBuilder(m), tm: m.Types}
	for _, inst := range m.Instructions() {
		call, ok := inst.(*ir.BuiltinCall)
		if !ok || !call.Alive() {
			continue
		}
		t := call.Result().Type()
		var build func() ir.Value
		switch call.Func {
		case "clamp":
			if p.ClampInt && types.IsIntegerScalarOrVector(t) {
				build = func() ir.Value { return pf.clampInt(call) }
			}
		case "saturate":
			if p.Saturate {
				build = func() ir.Value { return pf.saturate(call) }
			}
		case "countLeadingZeros":
			if p.CountLeadingZeros {
				build = func() ir.Value { return pf.countLeadingZeros(call) }
			}
		case "countTrailingZeros":
			if p.CountTrailingZeros {
				build = func() ir.Value { return pf.countTrailingZeros(call) }
			}
		case "extractBits":
			if p.ExtractBits {
				pf.b.InsertBefore(call, func() { pf.clampBitRange(call, 1) })
			}
		case "insertBits":
			if p.InsertBits {
				pf.b.InsertBefore(call, func() { pf.clampBitRange(call, 2) })
			}
		}
		if build == nil {
			continue
		}
		var v ir.Value
		pf.b.InsertBefore(call, func() { v = build() })
		call.Result().ReplaceAllUsesWith(v)
		call.Destroy()
	}
	return nil
}

type polyfiller struct {
	b  *ir.Builder
	tm *types.Manager
}

// splat returns the integer constant v of t, repeated for vectors.
func (pf *polyfiller) splat(t types.Type, v int64) *ir.Constant {
	el := types.ElementOrSelf(t)
	var c *ir.Constant
	if types.IsFloat(el) {
		c = pf.b.Float(el, float64(v))
	} else {
		c = pf.b.Int(el, v)
	}
	if _, isVec := t.(*types.Vector); isVec {
		return pf.b.Splat(t, c)
	}
	return c
}

func (pf *polyfiller) clampInt(call *ir.BuiltinCall) ir.Value {
	t := call.Result().Type()
	args := call.Args()
	lo := pf.b.Call(t, "max", args[0], args[1])
	return pf.b.Call(t, "min", lo.Result(), args[2]).Result()
}

func (pf *polyfiller) saturate(call *ir.BuiltinCall) ir.Value {
	t := call.Result().Type()
	return pf.b.Call(t, "clamp", call.Args()[0], pf.splat(t, 0), pf.splat(t, 1)).Result()
}

// unsigned returns x as an unsigned value and a function that converts
// results back to x's type.
func (pf *polyfiller) unsigned(x ir.Value) (ir.Value, types.Type, func(ir.Value) ir.Value) {
	t := x.Type()
	ut := pf.tm.MatchWidth(pf.tm.U32(), t)
	if !types.IsSignedIntegerScalarOrVector(t) {
		return x, ut, func(v ir.Value) ir.Value { return v }
	}
	back := func(v ir.Value) ir.Value { return pf.b.Bitcast(t, v).Result() }
	return pf.b.Bitcast(ut, x).Result(), ut, back
}

// pick returns select(0, n, cond) of type t.
func (pf *polyfiller) pick(t types.Type, n int64, cond ir.Value) ir.Value {
	return pf.b.Call(t, "select", pf.splat(t, 0), pf.splat(t, n), cond).Result()
}

// sum returns (bits[0] | bits[1] | ...) + last.
func (pf *polyfiller) sum(t types.Type, bits []ir.Value, last ir.Value) ir.Value {
	acc := bits[0]
	for _, b := range bits[1:] {
		acc = pf.b.Binary(ir.BinaryOr, t, acc, b).Result()
	}
	return pf.b.Binary(ir.BinaryAdd, t, acc, last).Result()
}

func (pf *polyfiller) countLeadingZeros(call *ir.BuiltinCall) ir.Value {
	x, ut, back := pf.unsigned(call.Args()[0])
	bt := pf.tm.MatchWidth(pf.tm.Bool(), ut)
	steps := []struct{ shift, bound int64 }{
		{16, 0x0000ffff},
		{8, 0x00ffffff},
		{4, 0x0fffffff},
		{2, 0x3fffffff},
	}
	var bits []ir.Value
	for _, s := range steps {
		cond := pf.b.Binary(ir.BinaryLessThanEqual, bt, x, pf.splat(ut, s.bound))
		n := pf.pick(ut, s.shift, cond.Result())
		x = pf.b.Binary(ir.BinaryShiftLeft, ut, x, n).Result()
		bits = append(bits, n)
	}
	cond := pf.b.Binary(ir.BinaryLessThanEqual, bt, x, pf.splat(ut, 0x7fffffff))
	bits = append(bits, pf.pick(ut, 1, cond.Result()))
	zero := pf.b.Binary(ir.BinaryEqual, bt, x, pf.splat(ut, 0))
	return back(pf.sum(ut, bits, pf.pick(ut, 1, zero.Result())))
}

func (pf *polyfiller) countTrailingZeros(call *ir.BuiltinCall) ir.Value {
	x, ut, back := pf.unsigned(call.Args()[0])
	bt := pf.tm.MatchWidth(pf.tm.Bool(), ut)
	steps := []struct{ shift, mask int64 }{
		{16, 0x0000ffff},
		{8, 0x000000ff},
		{4, 0x0000000f},
		{2, 0x00000003},
	}
	var bits []ir.Value
	for _, s := range steps {
		masked := pf.b.Binary(ir.BinaryAnd, ut, x, pf.splat(ut, s.mask))
		cond := pf.b.Binary(ir.BinaryEqual, bt, masked.Result(), pf.splat(ut, 0))
		n := pf.pick(ut, s.shift, cond.Result())
		x = pf.b.Binary(ir.BinaryShiftRight, ut, x, n).Result()
		bits = append(bits, n)
	}
	masked := pf.b.Binary(ir.BinaryAnd, ut, x, pf.splat(ut, 1))
	cond := pf.b.Binary(ir.BinaryEqual, bt, masked.Result(), pf.splat(ut, 0))
	bits = append(bits, pf.pick(ut, 1, cond.Result()))
	zero := pf.b.Binary(ir.BinaryEqual, bt, x, pf.splat(ut, 0))
	return back(pf.sum(ut, bits, pf.pick(ut, 1, zero.Result())))
}

// clampBitRange rewrites the offset and count operands at first and
// first+1 to min(offset, 32) and min(count, 32 - offset).
func (pf *polyfiller) clampBitRange(call *ir.BuiltinCall, first int) {
	u32 := pf.tm.U32()
	offset := pf.b.Call(u32, "min", call.Operand(first), pf.b.U32(32)).Result()
	room := pf.b.Binary(ir.BinarySubtract, u32, pf.b.U32(32), offset).Result()
	count := pf.b.Call(u32, "min", call.Operand(first+1), room).Result()
	call.SetOperand(first, offset)
	call.SetOperand(first+1, count)
}
