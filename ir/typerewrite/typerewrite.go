// Package typerewrite rewrites every occurrence of a leaf type throughout a
// module and propagates the new types through the instructions that use
// the rewritten values.
//
// A Rule names the leaf mapping in both directions. RewriteType applies it
// structurally: arrays, pointers and references are rebuilt around a
// rewritten element, and structs are re-minted only when one of their
// members changed. Process then retypes module-scope variables, function
// parameters and return types, and walks the uses of every retyped value
// until the types reach a fixed point. Builtin calls consuming a retyped
// value are delegated to a Policy, which decides how the call must change.
package typerewrite

import (
	"slices"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/types"
)

// Direction selects which half of a Rule is applied.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction { return 1 - d }

// LeafFunc maps a leaf type. It reports false when t is not a leaf it
// handles.
type LeafFunc func(tm *types.Manager, t types.Type) (types.Type, bool)

// Rule is a bidirectional leaf mapping.
type Rule struct {
	Name string
	// Suffix is appended to the names of structs minted by the rule.
	Suffix   string
	Forward  LeafFunc
	Backward LeafFunc
}

func (r Rule) leaf(dir Direction) LeafFunc {
	if dir == Backward {
		return r.Backward
	}
	return r.Forward
}

// Handler rewrites a builtin call with at least one retyped operand. It is
// invoked once per call.
type Handler func(rw *Rewriter, call *ir.BuiltinCall, dir Direction) error

// Policy maps builtin function names to their handlers.
type Policy map[string]Handler

// Rewriter applies a Rule to one module.
type Rewriter struct {
	Module  *ir.Module
	Types   *types.Manager
	Builder *ir.Builder
	Rule    Rule
	Policy  Policy

	memo [2]map[types.Type]types.Type
	// origin maps a minted struct back to the struct it was minted from,
	// keyed by the direction that undoes the mint.
	origin  [2]map[*types.Struct]*types.Struct
	queue   []ir.Value
	handled map[ir.Instruction]bool
}

// New returns a Rewriter for m.
func New(m *ir.Module, rule Rule, policy Policy) *Rewriter {
	rw := &Rewriter{
		Module:  m,
		Types:   m.Types,
		Builder: ir.NewBuilder(m),
		Rule:    rule,
		Policy:  policy,
		handled: make(map[ir.Instruction]bool),
	}
	for d := range rw.memo {
		rw.memo[d] = make(map[types.Type]types.Type)
		rw.origin[d] = make(map[*types.Struct]*types.Struct)
	}
	return rw
}

// RewriteType returns t with every leaf rewritten in direction dir. Types
// without a leaf are returned unchanged, with the same identity.
func (rw *Rewriter) RewriteType(t types.Type, dir Direction) types.Type {
	if t == nil {
		return nil
	}
	memo := rw.memo[dir]
	if out, ok := memo[t]; ok {
		return out
	}
	if fn := rw.Rule.leaf(dir); fn != nil {
		if out, ok := fn(rw.Types, t); ok {
			memo[t] = out
			return out
		}
	}

	// The in-progress entry stops recursion through self-referencing types.
	memo[t] = t
	out := t
	switch tt := t.(type) {
	case *types.Array:
		if el := rw.RewriteType(tt.Elem, dir); el != tt.Elem {
			if tt.IsRuntimeSized() {
				out = rw.Types.RuntimeArray(el)
			} else {
				out = rw.Types.Array(el, tt.Count)
			}
		}
	case *types.Pointer:
		if st := rw.RewriteType(tt.Store, dir); st != tt.Store {
			out = rw.Types.Ptr(tt.Space, st, tt.Access)
		}
	case *types.Reference:
		if st := rw.RewriteType(tt.Store, dir); st != tt.Store {
			out = rw.Types.Ref(tt.Space, st, tt.Access)
		}
	case *types.Struct:
		out = rw.rewriteStruct(tt, dir)
	}
	memo[t] = out
	return out
}

func (rw *Rewriter) rewriteStruct(s *types.Struct, dir Direction) types.Type {
	if orig, ok := rw.origin[dir][s]; ok {
		return orig
	}
	changed := false
	members := make([]types.MemberDesc, len(s.Members))
	for i, m := range s.Members {
		mt := rw.RewriteType(m.Type, dir)
		if mt != m.Type {
			changed = true
		}
		desc := types.MemberDesc{Name: m.Name, Type: mt, Attrs: m.Attrs}
		// Explicit @align and @size survive; natural ones follow the new type.
		if m.Align != m.Type.Align() {
			desc.Align = m.Align
		}
		if m.Size != m.Type.Size() {
			desc.Size = m.Size
		}
		members[i] = desc
	}
	if !changed {
		return s
	}
	name := s.Name
	if rw.Rule.Suffix != "" {
		name += "_" + rw.Rule.Suffix
	}
	minted := rw.Types.MintStruct(name, members)
	minted.Flags = s.Flags
	rw.origin[dir.Reverse()][minted] = s
	return minted
}

// Process rewrites the module in direction dir.
func (rw *Rewriter) Process(dir Direction) error {
	m := rw.Module
	for _, inst := range m.Instructions() {
		if v, ok := inst.(*ir.Var); ok {
			rw.retype(v.Result(), dir)
		}
	}
	for _, f := range m.Functions {
		for _, p := range f.Params() {
			if t := rw.RewriteType(p.Type(), dir); t != p.Type() {
				p.SetType(t)
				rw.push(p)
			}
		}
		f.ReturnType = rw.RewriteType(f.ReturnType, dir)
	}
	return rw.drain(dir)
}

func (rw *Rewriter) retype(r *ir.InstructionResult, dir Direction) {
	if r == nil {
		return
	}
	rw.SetType(r, rw.RewriteType(r.Type(), dir))
}

// SetType gives r the type t and schedules its uses for propagation when
// the type changed. Policy handlers use it for the results they retype.
func (rw *Rewriter) SetType(r *ir.InstructionResult, t types.Type) {
	if t == nil || r.Type() == t {
		return
	}
	r.SetType(t)
	rw.push(r)
}

func (rw *Rewriter) push(v ir.Value) {
	rw.queue = append(rw.queue, v)
}

func (rw *Rewriter) drain(dir Direction) error {
	for len(rw.queue) > 0 {
		v := rw.queue[0]
		rw.queue = rw.queue[1:]
		for _, u := range slices.Clone(v.Usages()) {
			if !u.Instruction.Alive() {
				continue
			}
			if err := rw.propagate(u.Instruction, dir); err != nil {
				return err
			}
		}
	}
	return nil
}

// propagate re-derives the result type of inst from its operands.
func (rw *Rewriter) propagate(inst ir.Instruction, dir Direction) error {
	switch inst := inst.(type) {
	case *ir.BuiltinCall:
		if rw.handled[inst] {
			return nil
		}
		rw.handled[inst] = true
		if h, ok := rw.Policy[inst.Func]; ok {
			return h(rw, inst, dir)
		}
		rw.retype(inst.Result(), dir)
	case *ir.Access:
		t, err := ir.IndexedType(rw.Types, inst.Object().Type(), inst.Indices())
		if err != nil {
			return diag.WrapInternal("typerewrite", err)
		}
		rw.SetType(inst.Result(), t)
	case *ir.Load:
		rw.SetType(inst.Result(), ir.LoadedType(inst.From().Type()))
	case *ir.LoadVectorElement:
		if v, ok := ir.LoadedType(inst.From().Type()).(*types.Vector); ok {
			rw.SetType(inst.Result(), v.Elem)
		}
	case *ir.Let:
		rw.SetType(inst.Result(), inst.Value().Type())
	case *ir.Swizzle:
		if v, ok := inst.Object().Type().(*types.Vector); ok {
			rw.SetType(inst.Result(), rw.Types.Vec(v.Elem, uint32(len(inst.Indices))))
		}
	case *ir.UserCall:
		if f := inst.Target(); f != nil {
			rw.SetType(inst.Result(), f.ReturnType)
		}
	case *ir.Unary:
		switch inst.Op {
		case ir.UnaryAddressOf, ir.UnaryIndirection:
			rw.retype(inst.Result(), dir)
		}
	}
	return nil
}

// Run rewrites m with rule and policy in direction dir.
func Run(m *ir.Module, rule Rule, policy Policy, dir Direction) error {
	return New(m, rule, policy).Process(dir)
}
