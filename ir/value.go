package ir

import (
	"slices"

	"github.com/gogpu/wgslcore/types"
)

// Value is anything an instruction can use as an operand.
type Value interface {
	// Type returns the value's type. Functions have no type.
	Type() types.Type
	// Usages lists every operand slot that references the value.
	Usages() []Usage
	// IsUsed reports whether any instruction references the value.
	IsUsed() bool
	// ReplaceAllUsesWith redirects every usage to v.
	ReplaceAllUsesWith(v Value)

	addUsage(u Usage)
	removeUsage(u Usage)
}

// Usage is one operand slot referencing a value.
type Usage struct {
	Instruction Instruction
	Operand     int
}

type valueBase struct {
	usages []Usage
}

func (b *valueBase) Usages() []Usage { return b.usages }

func (b *valueBase) IsUsed() bool { return len(b.usages) > 0 }

func (b *valueBase) ReplaceAllUsesWith(v Value) {
	for _, u := range slices.Clone(b.usages) {
		u.Instruction.SetOperand(u.Operand, v)
	}
}

func (b *valueBase) addUsage(u Usage) {
	b.usages = append(b.usages, u)
}

func (b *valueBase) removeUsage(u Usage) {
	for i, have := range b.usages {
		if have == u {
			b.usages = slices.Delete(b.usages, i, i+1)
			return
		}
	}
}

// InstructionResult is a value produced by an instruction.
type InstructionResult struct {
	valueBase
	typ  types.Type
	inst Instruction
}

// Type returns the result type.
func (r *InstructionResult) Type() types.Type { return r.typ }

// SetType changes the result type. Only type-rewriting transforms use it.
func (r *InstructionResult) SetType(t types.Type) { r.typ = t }

// Instruction returns the instruction that produces r.
func (r *InstructionResult) Instruction() Instruction { return r.inst }

// BindingPoint is a resource's @group/@binding pair.
type BindingPoint struct {
	Group   uint32
	Binding uint32
}

// FunctionParam is a parameter of a Function.
type FunctionParam struct {
	valueBase
	typ          types.Type
	fn           *Function
	Attrs        types.IOAttributes
	BindingPoint *BindingPoint
}

// Type returns the parameter type.
func (p *FunctionParam) Type() types.Type { return p.typ }

// SetType changes the parameter type.
func (p *FunctionParam) SetType(t types.Type) { p.typ = t }

// Function returns the function p belongs to, if any.
func (p *FunctionParam) Function() *Function { return p.fn }

// Index returns p's position in its function's parameter list, or -1.
func (p *FunctionParam) Index() int {
	if p.fn == nil {
		return -1
	}
	return slices.Index(p.fn.params, p)
}

// Stage is the pipeline stage of an entry point.
type Stage uint8

const (
	StageNone Stage = iota
	StageVertex
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return ""
}

// Function is a function definition. It is a value so that call
// instructions can reference it as an operand.
type Function struct {
	valueBase
	Stage         Stage
	WorkgroupSize *[3]uint32
	ReturnType    types.Type
	ReturnAttrs   types.IOAttributes
	Block         *Block

	params []*FunctionParam
}

// Type returns nil: functions are not first-class values.
func (f *Function) Type() types.Type { return nil }

// Params returns the parameters in order.
func (f *Function) Params() []*FunctionParam { return f.params }

// SetParams replaces the parameter list.
func (f *Function) SetParams(params ...*FunctionParam) {
	for _, p := range f.params {
		p.fn = nil
	}
	f.params = params
	for _, p := range params {
		p.fn = f
	}
}

// AppendParam adds a parameter at the end of the list.
func (f *Function) AppendParam(p *FunctionParam) {
	p.fn = f
	f.params = append(f.params, p)
}

// PrependParam adds a parameter at the front of the list.
func (f *Function) PrependParam(p *FunctionParam) {
	p.fn = f
	f.params = slices.Insert(f.params, 0, p)
}

// IsEntryPoint reports whether f is a pipeline entry point.
func (f *Function) IsEntryPoint() bool { return f.Stage != StageNone }

// Callers returns the call instructions that target f.
func (f *Function) Callers() []*UserCall {
	var out []*UserCall
	for _, u := range f.usages {
		if c, ok := u.Instruction.(*UserCall); ok && u.Operand == 0 {
			out = append(out, c)
		}
	}
	return out
}
