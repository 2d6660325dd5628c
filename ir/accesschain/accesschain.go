// Package accesschain reconstructs the chain of index, member and swizzle
// steps that connects a value to the root object it was read from.
//
// Analyze walks from the leaf toward the root through access, swizzle,
// load, load_vector_element and let instructions. The steps are collected
// leaf-to-root and returned root-to-leaf, with types computed forward from
// the root so that constant indices into structures are classified as
// member steps.
package accesschain

import (
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/types"
)

// StepKind classifies one step of a chain.
type StepKind uint8

const (
	ConstIndex StepKind = iota
	DynamicIndex
	Member
	Swizzle
)

func (k StepKind) String() string {
	switch k {
	case ConstIndex:
		return "const"
	case DynamicIndex:
		return "dynamic"
	case Member:
		return "member"
	default:
		return "swizzle"
	}
}

// Step is one selector of a chain.
type Step struct {
	Kind StepKind
	// Index is the constant index or member index.
	Index uint32
	// Value is the index operand of index and member steps.
	Value ir.Value
	// Slot numbers the dynamic indices of the chain root-to-leaf, starting
	// at 0. It is -1 for other steps.
	Slot int
	// Indices are the components of a multi-component swizzle.
	Indices []uint32
	// Type is the value type reached after the step.
	Type types.Type
}

// Chain is the result of Analyze.
type Chain struct {
	// Root is the value the chain starts from: a var result, a parameter,
	// or any other value the walk could not see through.
	Root ir.Value
	// RootType is the store type of a pointer root, otherwise the root's
	// type.
	RootType types.Type
	// Leaf is the analyzed value.
	Leaf  ir.Value
	Steps []Step
	// Dynamic holds the dynamic index values, indexed by Step.Slot.
	Dynamic []ir.Value
	// DecomposedAt is the index of the step reaching a decomposed object,
	// or -1.
	DecomposedAt   int
	DecomposedType types.Type
	// Through lists the instructions the walk passed, leaf first.
	Through []ir.Instruction
}

// Options control Analyze.
type Options struct {
	// Root reports whether a root is of interest. A nil Root accepts every
	// root.
	Root func(ir.Value) bool
	// Decomposed reports whether step, applied to a value of type parent,
	// reaches an object that an earlier transform decomposed.
	Decomposed func(parent types.Type, step Step) bool
	// Shallow limits the walk to the leaf instruction's own indices.
	Shallow bool
}

// rawStep is a step as collected leaf-to-root, before classification.
type rawStep struct {
	index   ir.Value
	swizzle []uint32
	typ     types.Type
}

// Analyze returns the chain ending at v. It reports false when the root is
// rejected by opts.Root, or when v is not the result of an access, swizzle,
// load, load_vector_element or let.
func Analyze(v ir.Value, opts Options) (*Chain, bool) {
	c := &Chain{Leaf: v, DecomposedAt: -1}
	var raw []rawStep

	cur := v
walk:
	for {
		res, ok := cur.(*ir.InstructionResult)
		if !ok {
			break
		}
		switch inst := res.Instruction().(type) {
		case *ir.Access:
			idx := inst.Indices()
			for i := len(idx) - 1; i >= 0; i-- {
				raw = append(raw, rawStep{index: idx[i]})
			}
			c.Through = append(c.Through, inst)
			cur = inst.Object()
		case *ir.LoadVectorElement:
			raw = append(raw, rawStep{index: inst.Index()})
			c.Through = append(c.Through, inst)
			cur = inst.From()
		case *ir.Swizzle:
			raw = append(raw, rawStep{swizzle: inst.Indices, typ: inst.Result().Type()})
			c.Through = append(c.Through, inst)
			cur = inst.Object()
		case *ir.Load:
			c.Through = append(c.Through, inst)
			cur = inst.From()
		case *ir.Let:
			c.Through = append(c.Through, inst)
			cur = inst.Value()
		default:
			break walk
		}
		if opts.Shallow {
			break
		}
	}
	if len(c.Through) == 0 {
		return nil, false
	}
	if opts.Root != nil && !opts.Root(cur) {
		return nil, false
	}
	c.Root = cur
	c.RootType = types.UnwrapPtr(cur.Type())

	// Reverse to root-to-leaf order and classify against the forward types.
	c.Steps = make([]Step, 0, len(raw))
	t := c.RootType
	scanning := opts.Decomposed != nil
	for i := len(raw) - 1; i >= 0; i-- {
		r := raw[i]
		parent := t
		var s Step
		switch {
		case r.swizzle != nil:
			s = Step{Kind: Swizzle, Indices: r.swizzle, Slot: -1, Type: r.typ}
		default:
			s = Step{Value: r.index, Slot: -1}
			idx, isConst := ir.ConstIndex(r.index)
			_, isStruct := t.(*types.Struct)
			switch {
			case isStruct:
				s.Kind, s.Index = Member, idx
			case isConst:
				s.Kind, s.Index = ConstIndex, idx
			default:
				s.Kind = DynamicIndex
				s.Slot = len(c.Dynamic)
				c.Dynamic = append(c.Dynamic, r.index)
			}
			s.Type = types.ElementAt(t, idx)
		}
		c.Steps = append(c.Steps, s)
		t = s.Type

		if !scanning {
			continue
		}
		if _, isVec := parent.(*types.Vector); isVec {
			scanning = false
			continue
		}
		if c.DecomposedAt < 0 && opts.Decomposed(parent, s) {
			c.DecomposedAt = len(c.Steps) - 1
			c.DecomposedType = s.Type
		}
	}
	return c, true
}

// FirstDynamic returns the index of the first dynamic index step, or -1.
func (c *Chain) FirstDynamic() int {
	for i, s := range c.Steps {
		if s.Kind == DynamicIndex {
			return i
		}
	}
	return -1
}

// TypeAt returns the type reached after step i; TypeAt(-1) is the root type.
func (c *Chain) TypeAt(i int) types.Type {
	if i < 0 {
		return c.RootType
	}
	return c.Steps[i].Type
}

// Indices returns the index operands of steps [from, to). Swizzle steps
// have no operand and are skipped.
func (c *Chain) Indices(from, to int) []ir.Value {
	var out []ir.Value
	for _, s := range c.Steps[from:to] {
		if s.Kind != Swizzle {
			out = append(out, s.Value)
		}
	}
	return out
}

// WholeDecomposed reports whether the chain ends at the decomposed object
// itself rather than inside it.
func (c *Chain) WholeDecomposed() bool {
	return c.DecomposedAt >= 0 && c.DecomposedAt == len(c.Steps)-1
}
