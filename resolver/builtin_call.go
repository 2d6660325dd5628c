package resolver

import (
	"strings"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/types"
)

var floatBuiltins = toSet(
	"acos", "acosh", "asin", "asinh", "atan", "atanh", "ceil", "cos", "cosh", "degrees",
	"exp", "exp2", "floor", "fract", "inverseSqrt", "log", "log2", "quantizeToF16",
	"radians", "round", "saturate", "sin", "sinh", "sqrt", "tan", "tanh", "trunc",
)

var derivativeBuiltins = toSet(
	"dpdx", "dpdxCoarse", "dpdxFine", "dpdy", "dpdyCoarse", "dpdyFine",
	"fwidth", "fwidthCoarse", "fwidthFine",
)

var integerBuiltins = toSet(
	"countLeadingZeros", "countOneBits", "countTrailingZeros",
	"firstLeadingBit", "firstTrailingBit", "reverseBits",
)

var atomicBuiltins = toSet(
	"atomicLoad", "atomicStore", "atomicAdd", "atomicSub", "atomicMax", "atomicMin",
	"atomicAnd", "atomicOr", "atomicXor", "atomicExchange", "atomicCompareExchangeWeak",
	"atomicStoreMax", "atomicStoreMin",
)

// foldableBuiltins keep abstract arguments abstract when every argument is
// a constant, so that the folder sees the exact values.
var foldableBuiltins = toSet("abs", "min", "max", "clamp", "select",
	"ceil", "floor", "trunc", "round", "sqrt", "sin", "cos", "tan", "exp", "exp2",
	"log", "log2", "fract", "saturate", "degrees", "radians", "inverseSqrt")

// IsRuntimeBuiltin reports whether calls to the builtin are never constant.
func IsRuntimeBuiltin(name string) bool {
	if _, ok := derivativeBuiltins[name]; ok {
		return true
	}
	if _, ok := atomicBuiltins[name]; ok {
		return true
	}
	switch name {
	case "arrayLength", "workgroupUniformLoad", "storageBarrier", "workgroupBarrier", "textureBarrier":
		return true
	}
	return strings.HasPrefix(name, "texture")
}

type builtinCheck struct {
	r    *resolver
	c    *ast.Call
	name string
	args []*ExprInfo
	// keep is set when abstract arguments may stay abstract.
	keep bool
}

func (b *builtinCheck) argType(i int) types.Type { return types.UnwrapRef(b.args[i].Type) }

// unify converts the arguments at idx to their common type. Float builtins
// promote abstract integers to abstract floats.
func (b *builtinCheck) unify(float bool, idx ...int) types.Type {
	ts := make([]types.Type, len(idx))
	for i, j := range idx {
		ts[i] = b.argType(j)
	}
	t := commonType(ts)
	if t == nil {
		return nil
	}
	if float && types.DeepestElement(t) == b.r.tm.AbstractInt() {
		t = b.r.tm.WithElement(t, b.r.tm.AbstractFloat())
	}
	if !b.keep {
		t = b.r.tm.Materialize(t)
	}
	for _, j := range idx {
		if !b.r.convert(b.c.Args[j], b.args[j], t) {
			return nil
		}
	}
	return t
}

// want converts argument i to t.
func (b *builtinCheck) want(i int, t types.Type) bool {
	return b.r.convert(b.c.Args[i], b.args[i], t)
}

// materializeRest gives every still-abstract argument its default type.
func (b *builtinCheck) materializeRest() {
	for i, a := range b.args {
		if t := types.UnwrapRef(a.Type); types.IsAbstract(types.DeepestElement(t)) {
			b.r.convert(b.c.Args[i], a, b.r.tm.Materialize(t))
		}
	}
}

func (r *resolver) builtinCall(c *ast.Call, name string, args []*ExprInfo) *ExprInfo {
	b := &builtinCheck{r: r, c: c, name: name, args: args}
	stage := Const
	for _, a := range args {
		stage = maxStage(stage, a.Stage)
	}
	if _, ok := foldableBuiltins[name]; ok && stage == Const {
		b.keep = true
	}
	if IsRuntimeBuiltin(name) {
		stage = Runtime
	}
	if _, ok := derivativeBuiltins[name]; ok && r.fn != nil && r.fn.Stage != "" && r.fn.Stage != "fragment" {
		r.errorf(c.Range(), "built-in cannot be used by %s pipeline stage", r.fn.Stage)
		return nil
	}

	result := b.signature()
	if result == nil {
		r.errorf(c.Range(), "no matching call to '%s(%s)'", name, typeList(r.argTypes(args)))
		return nil
	}
	if !b.keep {
		b.materializeRest()
	}
	r.info.Calls[c] = &CallInfo{Kind: CallBuiltin, Builtin: name, Type: result}
	out := &ExprInfo{Type: result, Stage: stage}
	if stage == Const {
		vals := make([]*Value, len(args))
		for i, a := range args {
			vals[i] = a.Value
		}
		v, err := foldBuiltin(name, vals, result)
		if r.foldError(c, err) {
			return nil
		}
		out.Value = v
	}
	return out
}

// signature returns the result type of the call, or nil when no overload
// matches. Arguments are converted to the parameter types as a side
// effect.
//
//nolint:gocyclo,funlen // builtin table
func (b *builtinCheck) signature() types.Type {
	r, tm, n := b.r, b.r.tm, len(b.args)
	arity := func(want int) bool { return n == want }

	if _, ok := floatBuiltins[b.name]; ok {
		if !arity(1) {
			return nil
		}
		if t := b.unify(true, 0); t != nil && types.IsFloatScalarOrVector(t) {
			return t
		}
		return nil
	}
	if _, ok := derivativeBuiltins[b.name]; ok {
		if !arity(1) {
			return nil
		}
		if t := b.unify(true, 0); t != nil && types.ElementOrSelf(t) == tm.F32() {
			return t
		}
		return nil
	}
	if _, ok := integerBuiltins[b.name]; ok {
		if !arity(1) {
			return nil
		}
		if t := b.unify(false, 0); t != nil && types.IsIntegerScalarOrVector(t) {
			return t
		}
		return nil
	}
	if _, ok := atomicBuiltins[b.name]; ok {
		return b.atomic()
	}
	if strings.HasPrefix(b.name, "texture") {
		return b.texture()
	}

	switch b.name {
	case "abs":
		if arity(1) {
			if t := b.unify(false, 0); t != nil && types.IsNumericScalarOrVector(t) {
				return t
			}
		}
	case "sign":
		if arity(1) {
			if t := b.unify(false, 0); t != nil && types.IsNumericScalarOrVector(t) && !types.IsUnsignedIntegerScalarOrVector(t) {
				return t
			}
		}
	case "min", "max", "clamp":
		want := 2
		if b.name == "clamp" {
			want = 3
		}
		if arity(want) {
			idx := []int{0, 1, 2}[:want]
			if t := b.unify(false, idx...); t != nil && types.IsNumericScalarOrVector(t) {
				return t
			}
		}
	case "atan2", "pow", "step", "reflect":
		if arity(2) {
			if t := b.unify(true, 0, 1); t != nil && types.IsFloatScalarOrVector(t) {
				if _, isVec := t.(*types.Vector); b.name == "reflect" && !isVec {
					return nil
				}
				return t
			}
		}
	case "fma", "smoothstep", "faceForward":
		if arity(3) {
			if t := b.unify(true, 0, 1, 2); t != nil && types.IsFloatScalarOrVector(t) {
				return t
			}
		}
	case "mix":
		if !arity(3) {
			return nil
		}
		t := b.unify(true, 0, 1)
		if t == nil || !types.IsFloatScalarOrVector(t) {
			return nil
		}
		if b.want(2, t) || b.want(2, elementType(t)) {
			return t
		}
	case "refract":
		if !arity(3) {
			return nil
		}
		t := b.unify(true, 0, 1)
		if _, isVec := t.(*types.Vector); isVec && types.IsFloatScalarOrVector(t) && b.want(2, elementType(t)) {
			return t
		}
	case "dot":
		if arity(2) {
			if t, ok := b.unify(false, 0, 1).(*types.Vector); ok && types.IsNumeric(t.Elem) {
				return t.Elem
			}
		}
	case "cross":
		if arity(2) {
			if t, ok := b.unify(true, 0, 1).(*types.Vector); ok && t.Width == 3 && types.IsFloat(t.Elem) {
				return t
			}
		}
	case "length", "normalize":
		if arity(1) {
			t := b.unify(true, 0)
			if t == nil || !types.IsFloatScalarOrVector(t) {
				return nil
			}
			if b.name == "length" {
				return elementType(t)
			}
			if _, isVec := t.(*types.Vector); isVec {
				return t
			}
		}
	case "distance":
		if arity(2) {
			if t := b.unify(true, 0, 1); t != nil && types.IsFloatScalarOrVector(t) {
				return elementType(t)
			}
		}
	case "determinant":
		if arity(1) {
			if m, ok := b.unify(true, 0).(*types.Matrix); ok && m.Columns == m.Rows {
				return m.Elem()
			}
		}
	case "transpose":
		if arity(1) {
			if m, ok := b.unify(true, 0).(*types.Matrix); ok {
				return tm.Mat(m.Elem(), m.Rows, m.Columns)
			}
		}
	case "all", "any":
		if arity(1) && types.IsBoolScalarOrVector(b.argType(0)) {
			return tm.Bool()
		}
	case "select":
		if !arity(3) {
			return nil
		}
		t := b.unify(false, 0, 1)
		if t == nil {
			return nil
		}
		cond := b.argType(2)
		if cond == tm.Bool() || cond == tm.MatchWidth(tm.Bool(), t) {
			return t
		}
	case "extractBits", "insertBits":
		want := 3
		if b.name == "insertBits" {
			want = 4
		}
		if !arity(want) {
			return nil
		}
		idx := []int{0}
		if want == 4 {
			idx = append(idx, 1)
		}
		t := b.unify(false, idx...)
		if t == nil || !types.IsIntegerScalarOrVector(t) {
			return nil
		}
		if b.want(want-2, tm.U32()) && b.want(want-1, tm.U32()) {
			return t
		}
	case "ldexp":
		if !arity(2) {
			return nil
		}
		t := b.unify(true, 0)
		if t == nil || !types.IsFloatScalarOrVector(t) {
			return nil
		}
		if b.want(1, tm.MatchWidth(tm.I32(), t)) {
			return t
		}
	case "frexp", "modf":
		if !arity(1) {
			return nil
		}
		b.keep = false
		t := b.unify(true, 0)
		if t == nil || !types.IsFloatScalarOrVector(t) {
			return nil
		}
		return r.resultStruct(b.name, t)
	case "pack4x8snorm", "pack4x8unorm":
		if arity(1) && b.want(0, tm.Vec(tm.F32(), 4)) {
			return tm.U32()
		}
	case "pack2x16snorm", "pack2x16unorm", "pack2x16float":
		if arity(1) && b.want(0, tm.Vec(tm.F32(), 2)) {
			return tm.U32()
		}
	case "unpack4x8snorm", "unpack4x8unorm":
		if arity(1) && b.want(0, tm.U32()) {
			return tm.Vec(tm.F32(), 4)
		}
	case "unpack2x16snorm", "unpack2x16unorm", "unpack2x16float":
		if arity(1) && b.want(0, tm.U32()) {
			return tm.Vec(tm.F32(), 2)
		}
	case "storageBarrier", "workgroupBarrier":
		if arity(0) {
			return tm.Void()
		}
	case "workgroupUniformLoad":
		if p, ok := b.pointerArg(0); ok && arity(1) && p.Space == types.SpaceWorkgroup {
			return p.Store
		}
	case "arrayLength":
		if p, ok := b.pointerArg(0); ok && arity(1) && p.Space == types.SpaceStorage {
			if a, ok := p.Store.(*types.Array); ok && a.IsRuntimeSized() {
				return tm.U32()
			}
		}
	}
	return nil
}

func (b *builtinCheck) pointerArg(i int) (*types.Pointer, bool) {
	if i >= len(b.args) {
		return nil, false
	}
	p, ok := b.args[i].Type.(*types.Pointer)
	return p, ok
}

// resultStruct returns the predeclared result structure of frexp and modf
// for argument type t.
func (r *resolver) resultStruct(fn string, t types.Type) types.Type {
	name := "__" + fn + "_result_"
	if v, ok := t.(*types.Vector); ok {
		name += "vec" + itoa(int(v.Width)) + "_"
	}
	name += elementType(t).String()
	second := types.MemberDesc{Name: "whole", Type: t}
	if fn == "frexp" {
		second = types.MemberDesc{Name: "exp", Type: r.tm.MatchWidth(r.tm.I32(), t)}
	}
	return r.builtinStruct(name, types.MemberDesc{Name: "fract", Type: t}, second)
}

func (r *resolver) builtinStruct(name string, members ...types.MemberDesc) *types.Struct {
	if s, ok := r.tm.LookupStruct(name); ok {
		return s
	}
	s, err := r.tm.Struct(name, members)
	if err != nil {
		return nil
	}
	return s
}

func (b *builtinCheck) atomic() types.Type {
	tm := b.r.tm
	p, ok := b.pointerArg(0)
	if !ok {
		return nil
	}
	at, ok := p.Store.(*types.Atomic)
	if !ok || (p.Space != types.SpaceStorage && p.Space != types.SpaceWorkgroup) {
		return nil
	}
	el := at.Elem
	switch b.name {
	case "atomicLoad":
		if len(b.args) == 1 {
			return el
		}
	case "atomicStore", "atomicStoreMax", "atomicStoreMin":
		if len(b.args) == 2 && b.want(1, el) {
			return tm.Void()
		}
	case "atomicCompareExchangeWeak":
		if len(b.args) == 3 && b.want(1, el) && b.want(2, el) {
			return b.r.builtinStruct("__atomic_compare_exchange_result_"+el.String(),
				types.MemberDesc{Name: "old_value", Type: el},
				types.MemberDesc{Name: "exchanged", Type: tm.Bool()})
		}
	default:
		if len(b.args) == 2 && b.want(1, el) {
			return el
		}
	}
	return nil
}

func (b *builtinCheck) texture() types.Type {
	tm := b.r.tm
	if b.name == "textureBarrier" {
		if len(b.args) == 0 {
			return tm.Void()
		}
		return nil
	}
	var tex *types.Texture
	for _, a := range b.args {
		if t, ok := types.UnwrapRef(a.Type).(*types.Texture); ok {
			tex = t
			break
		}
	}
	if tex == nil {
		return nil
	}
	depth := tex.Kind == types.TextureDepth || tex.Kind == types.TextureDepthMultisampled
	texel := tm.Vec(tm.F32(), 4)
	switch {
	case tex.Kind == types.TextureStorage:
		texel = tm.Vec(storageChannel(tm, tex.Format), 4)
	case tex.Sampled != nil:
		texel = tm.Vec(tex.Sampled, 4)
	}

	switch b.name {
	case "textureDimensions":
		switch tex.Dim {
		case types.Dim1D:
			return tm.U32()
		case types.Dim3D:
			return tm.Vec(tm.U32(), 3)
		}
		return tm.Vec(tm.U32(), 2)
	case "textureNumLayers", "textureNumLevels", "textureNumSamples":
		return tm.U32()
	case "textureSample", "textureSampleBias", "textureSampleGrad", "textureSampleLevel", "textureLoad":
		if depth {
			return tm.F32()
		}
		return texel
	case "textureSampleBaseClampToEdge":
		return tm.Vec(tm.F32(), 4)
	case "textureSampleCompare", "textureSampleCompareLevel":
		if depth {
			return tm.F32()
		}
	case "textureGather":
		if depth {
			return tm.Vec(tm.F32(), 4)
		}
		return texel
	case "textureGatherCompare":
		if depth {
			return tm.Vec(tm.F32(), 4)
		}
	case "textureStore":
		if tex.Kind == types.TextureStorage {
			return tm.Void()
		}
	}
	return nil
}

func storageChannel(tm *types.Manager, format string) types.Type {
	switch {
	case strings.HasSuffix(format, "uint"):
		return tm.U32()
	case strings.HasSuffix(format, "sint"):
		return tm.I32()
	}
	return tm.F32()
}
