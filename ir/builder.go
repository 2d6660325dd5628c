package ir

import (
	"math"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/types"
)

// Builder creates instructions and inserts them at its current insertion
// point. Outside of Append, Prepend, InsertBefore and InsertAfter the
// created instructions stay detached.
type Builder struct {
	Module *Module
	insert func(Instruction)
}

// NewBuilder returns a builder for m.
func NewBuilder(m *Module) *Builder {
	return &Builder{Module: m}
}

func (b *Builder) with(insert func(Instruction), fn func()) {
	prev := b.insert
	b.insert = insert
	defer func() { b.insert = prev }()
	fn()
}

// Append runs fn with instructions appended to block.
func (b *Builder) Append(block *Block, fn func()) {
	b.with(block.Append, fn)
}

// SetBlock appends every instruction created from now on to block, until
// the next SetBlock. A nil block detaches the builder.
func (b *Builder) SetBlock(block *Block) {
	if block == nil {
		b.insert = nil
		return
	}
	b.insert = block.Append
}

// Prepend runs fn with instructions inserted at the front of block, in
// creation order.
func (b *Builder) Prepend(block *Block, fn func()) {
	front := block.Front()
	if front == nil {
		b.Append(block, fn)
		return
	}
	b.InsertBefore(front, fn)
}

// InsertBefore runs fn with instructions inserted before at.
func (b *Builder) InsertBefore(at Instruction, fn func()) {
	block := at.Block()
	b.with(func(inst Instruction) { block.InsertBefore(at, inst) }, fn)
}

// InsertAfter runs fn with instructions inserted after at, in creation
// order.
func (b *Builder) InsertAfter(at Instruction, fn func()) {
	block := at.Block()
	last := at
	b.with(func(inst Instruction) {
		block.InsertAfter(last, inst)
		last = inst
	}, fn)
}

func (b *Builder) place(inst Instruction) {
	if b.insert != nil {
		b.insert(inst)
	}
}

// Value converts Go integers, floats and bools to constants; Values pass
// through unchanged. Plain ints become u32 constants.
func (b *Builder) Value(v any) Value {
	switch v := v.(type) {
	case Value:
		return v
	case int:
		return b.U32(uint32(v))
	case uint32:
		return b.U32(v)
	case int32:
		return b.I32(v)
	case float32:
		return b.F32(v)
	case bool:
		return b.Bool(v)
	}
	panic(diag.NewInternalError("ir", "cannot convert %T to a value", v))
}

func (b *Builder) values(vs []any) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = b.Value(v)
	}
	return out
}

// Function creates a function called name and adds it to the module.
func (b *Builder) Function(name string, ret types.Type, stage Stage) *Function {
	if ret == nil {
		ret = b.Module.Types.Void()
	}
	f := &Function{Stage: stage, ReturnType: ret}
	f.Block = &Block{owner: f}
	b.Module.SetName(f, name)
	b.Module.AddFunction(f)
	return f
}

// FunctionParam creates a detached parameter.
func (b *Builder) FunctionParam(name string, t types.Type) *FunctionParam {
	p := &FunctionParam{typ: t}
	b.Module.SetName(p, name)
	return p
}

// Var declares a variable of pointer type t.
func (b *Builder) Var(name string, t *types.Pointer) *Var {
	v := &Var{}
	v.init(v)
	r := v.addResult(t)
	b.Module.SetName(r, name)
	b.place(v)
	return v
}

// Override declares a pipeline-overridable constant.
func (b *Builder) Override(name string, t types.Type, init Value) *Override {
	o := &Override{}
	if init != nil {
		o.init(o, init)
	} else {
		o.init(o)
	}
	r := o.addResult(t)
	b.Module.SetName(r, name)
	b.place(o)
	return o
}

// Let binds value to name.
func (b *Builder) Let(name string, value Value) *Let {
	l := &Let{}
	l.init(l, value)
	r := l.addResult(value.Type())
	b.Module.SetName(r, name)
	b.place(l)
	return l
}

// Load reads through the pointer from.
func (b *Builder) Load(from Value) *Load {
	l := &Load{}
	l.init(l, from)
	l.addResult(LoadedType(from.Type()))
	b.place(l)
	return l
}

// Store writes from through the pointer to.
func (b *Builder) Store(to Value, from any) *Store {
	s := &Store{}
	s.init(s, to, b.Value(from))
	b.place(s)
	return s
}

// LoadVectorElement reads element index of the vector behind from.
func (b *Builder) LoadVectorElement(from Value, index any) *LoadVectorElement {
	l := &LoadVectorElement{}
	l.init(l, from, b.Value(index))
	var el types.Type
	if v, ok := LoadedType(from.Type()).(*types.Vector); ok {
		el = v.Elem
	}
	l.addResult(el)
	b.place(l)
	return l
}

// StoreVectorElement writes value to element index of the vector behind to.
func (b *Builder) StoreVectorElement(to Value, index any, value any) *StoreVectorElement {
	s := &StoreVectorElement{}
	s.init(s, to, b.Value(index), b.Value(value))
	b.place(s)
	return s
}

// Access indexes object. Indices may be Values or Go integers.
func (b *Builder) Access(t types.Type, object Value, indices ...any) *Access {
	a := &Access{}
	a.init(a, append([]Value{object}, b.values(indices)...)...)
	a.addResult(t)
	b.place(a)
	return a
}

// Swizzle selects the components indices of object.
func (b *Builder) Swizzle(t types.Type, object Value, indices []uint32) *Swizzle {
	s := &Swizzle{Indices: indices}
	s.init(s, object)
	s.addResult(t)
	b.place(s)
	return s
}

// Construct builds a value of type t from args.
func (b *Builder) Construct(t types.Type, args ...Value) *Construct {
	c := &Construct{}
	c.init(c, args...)
	c.addResult(t)
	b.place(c)
	return c
}

// Convert converts v to t.
func (b *Builder) Convert(t types.Type, v Value) *Convert {
	c := &Convert{}
	c.init(c, v)
	c.addResult(t)
	b.place(c)
	return c
}

// Bitcast reinterprets v as t.
func (b *Builder) Bitcast(t types.Type, v Value) *Bitcast {
	c := &Bitcast{}
	c.init(c, v)
	c.addResult(t)
	b.place(c)
	return c
}

// Unary applies op to x.
func (b *Builder) Unary(op UnaryOp, t types.Type, x Value) *Unary {
	u := &Unary{Op: op}
	u.init(u, x)
	u.addResult(t)
	b.place(u)
	return u
}

// Binary applies op to lhs and rhs.
func (b *Builder) Binary(op BinaryOp, t types.Type, lhs, rhs any) *Binary {
	bin := &Binary{Op: op}
	bin.init(bin, b.Value(lhs), b.Value(rhs))
	bin.addResult(t)
	b.place(bin)
	return bin
}

// Call calls the builtin fn.
func (b *Builder) Call(t types.Type, fn string, args ...any) *BuiltinCall {
	c := &BuiltinCall{Func: fn}
	c.init(c, b.values(args)...)
	c.addResult(t)
	b.place(c)
	return c
}

// CallFunc calls the user function fn.
func (b *Builder) CallFunc(fn *Function, args ...Value) *UserCall {
	c := &UserCall{}
	c.init(c, append([]Value{fn}, args...)...)
	c.addResult(fn.ReturnType)
	b.place(c)
	return c
}

// Discard demotes the invocation to a helper invocation.
func (b *Builder) Discard() *Discard {
	d := &Discard{}
	d.init(d)
	b.place(d)
	return d
}

// Return leaves fn, returning value when given.
func (b *Builder) Return(fn *Function, value ...Value) *Return {
	r := &Return{Func: fn}
	r.init(r, value...)
	b.place(r)
	return r
}

// Unreachable marks unreachable code.
func (b *Builder) Unreachable() *Unreachable {
	u := &Unreachable{}
	u.init(u)
	b.place(u)
	return u
}

// If branches on cond. Results are added with AddResult.
func (b *Builder) If(cond Value) *If {
	i := &If{}
	i.init(i, cond)
	i.True = &Block{parent: i}
	i.False = &Block{parent: i}
	b.place(i)
	return i
}

// Loop creates a loop with empty initializer, body and continuing blocks.
func (b *Builder) Loop() *Loop {
	l := &Loop{}
	l.init(l)
	l.Initializer = &Block{parent: l}
	l.Body = &Block{parent: l}
	l.Continuing = &Block{parent: l}
	b.place(l)
	return l
}

// Switch branches on cond. Cases are added with Case.
func (b *Builder) Switch(cond Value) *Switch {
	s := &Switch{}
	s.init(s, cond)
	b.place(s)
	return s
}

// Case adds a case to s and returns its block.
func (b *Builder) Case(s *Switch, selectors ...CaseSelector) *Block {
	blk := &Block{parent: s}
	s.Cases = append(s.Cases, Case{Selectors: selectors, Block: blk})
	return blk
}

// ExitIf leaves i with args as its results.
func (b *Builder) ExitIf(i *If, args ...Value) *ExitIf {
	e := &ExitIf{If: i}
	e.init(e, args...)
	b.place(e)
	return e
}

// ExitLoop leaves l.
func (b *Builder) ExitLoop(l *Loop, args ...Value) *ExitLoop {
	e := &ExitLoop{Loop: l}
	e.init(e, args...)
	b.place(e)
	return e
}

// ExitSwitch leaves s.
func (b *Builder) ExitSwitch(s *Switch, args ...Value) *ExitSwitch {
	e := &ExitSwitch{Switch: s}
	e.init(e, args...)
	b.place(e)
	return e
}

// Continue jumps to l's continuing block.
func (b *Builder) Continue(l *Loop) *Continue {
	c := &Continue{Loop: l}
	c.init(c)
	b.place(c)
	return c
}

// NextIteration jumps to the start of l's body.
func (b *Builder) NextIteration(l *Loop) *NextIteration {
	n := &NextIteration{Loop: l}
	n.init(n)
	b.place(n)
	return n
}

// BreakIf exits l when cond holds.
func (b *Builder) BreakIf(l *Loop, cond Value) *BreakIf {
	br := &BreakIf{Loop: l}
	br.init(br, cond)
	b.place(br)
	return br
}

// U32 returns a u32 constant.
func (b *Builder) U32(v uint32) *Constant {
	return &Constant{typ: b.Module.Types.U32(), I: int64(v)}
}

// I32 returns an i32 constant.
func (b *Builder) I32(v int32) *Constant {
	return &Constant{typ: b.Module.Types.I32(), I: int64(v)}
}

// F32 returns an f32 constant.
func (b *Builder) F32(v float32) *Constant {
	return &Constant{typ: b.Module.Types.F32(), F: float64(v)}
}

// F16 returns an f16 constant.
func (b *Builder) F16(v float32) *Constant {
	return &Constant{typ: b.Module.Types.F16(), F: float64(v)}
}

// Bool returns a bool constant.
func (b *Builder) Bool(v bool) *Constant {
	return &Constant{typ: b.Module.Types.Bool(), B: v}
}

// Int returns an integer constant of scalar type t.
func (b *Builder) Int(t types.Type, v int64) *Constant {
	return &Constant{typ: t, I: v}
}

// Float returns a float constant of scalar type t.
func (b *Builder) Float(t types.Type, v float64) *Constant {
	return &Constant{typ: t, F: v}
}

// Composite returns a composite constant of type t.
func (b *Builder) Composite(t types.Type, elems ...*Constant) *Constant {
	return &Constant{typ: t, Elems: elems}
}

// Splat returns a composite of type t with every element equal to el.
func (b *Builder) Splat(t types.Type, el *Constant) *Constant {
	n := types.ElemCount(t)
	elems := make([]*Constant, n)
	for i := range elems {
		elems[i] = el
	}
	return &Constant{typ: t, Elems: elems}
}

// Zero returns the zero value of t.
func (b *Builder) Zero(t types.Type) *Constant {
	switch tt := t.(type) {
	case *types.Scalar:
		return &Constant{typ: t}
	case *types.Vector:
		return b.Splat(t, b.Zero(tt.Elem))
	case *types.Matrix:
		return b.Splat(t, b.Zero(tt.ColumnType))
	case *types.Array:
		return b.Splat(t, b.Zero(tt.Elem))
	case *types.Struct:
		elems := make([]*Constant, len(tt.Members))
		for i, m := range tt.Members {
			elems[i] = b.Zero(m.Type)
		}
		return &Constant{typ: t, Elems: elems}
	}
	panic(diag.NewInternalError("ir", "no zero value for '%s'", t))
}

// MaxInt returns the largest value of the integer scalar t.
func MaxInt(t types.Type) int64 {
	if types.IsSignedInteger(t) {
		return math.MaxInt32
	}
	return math.MaxUint32
}
