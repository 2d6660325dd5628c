package ir

// If branches on a bool condition. Its results are the values passed to
// the ExitIf terminators of its blocks.
type If struct {
	instBase
	True  *Block
	False *Block
}

func (*If) Name() string { return "if" }

// Condition returns the branch condition.
func (i *If) Condition() Value { return i.Operand(0) }

// Blocks returns the true and false blocks.
func (i *If) Blocks() []*Block { return []*Block{i.True, i.False} }

// Loop is a structured loop. The initializer runs once, then the body; the
// continuing block runs after every body iteration that reaches Continue.
type Loop struct {
	instBase
	Initializer *Block
	Body        *Block
	Continuing  *Block
}

func (*Loop) Name() string { return "loop" }

// Blocks returns the initializer, body and continuing blocks.
func (l *Loop) Blocks() []*Block { return []*Block{l.Initializer, l.Body, l.Continuing} }

// CaseSelector is one selector of a switch case. A nil Value is the
// default selector.
type CaseSelector struct {
	Value *Constant
}

// IsDefault reports whether s is the default selector.
func (s CaseSelector) IsDefault() bool { return s.Value == nil }

// Case is a switch case.
type Case struct {
	Selectors []CaseSelector
	Block     *Block
}

// Switch branches on an integer selector.
type Switch struct {
	instBase
	Cases []Case
}

func (*Switch) Name() string { return "switch" }

// Condition returns the selector value.
func (s *Switch) Condition() Value { return s.Operand(0) }

// Blocks returns the case blocks in order.
func (s *Switch) Blocks() []*Block {
	out := make([]*Block, len(s.Cases))
	for i, c := range s.Cases {
		out[i] = c.Block
	}
	return out
}

type terminatorBase struct{ instBase }

func (terminatorBase) terminator() {}

// Return leaves the function, optionally with a value.
type Return struct {
	terminatorBase
	Func *Function
}

func (*Return) Name() string { return "ret" }

// Value returns the returned value, or nil.
func (r *Return) Value() Value { return r.Operand(0) }

// ExitIf leaves an if, passing its results.
type ExitIf struct {
	terminatorBase
	If *If
}

func (*ExitIf) Name() string { return "exit_if" }

// ExitLoop leaves a loop, passing its results.
type ExitLoop struct {
	terminatorBase
	Loop *Loop
}

func (*ExitLoop) Name() string { return "exit_loop" }

// ExitSwitch leaves a switch, passing its results.
type ExitSwitch struct {
	terminatorBase
	Switch *Switch
}

func (*ExitSwitch) Name() string { return "exit_switch" }

// Continue jumps from a loop body to the continuing block.
type Continue struct {
	terminatorBase
	Loop *Loop
}

func (*Continue) Name() string { return "continue" }

// NextIteration jumps to the start of the loop body.
type NextIteration struct {
	terminatorBase
	Loop *Loop
}

func (*NextIteration) Name() string { return "next_iteration" }

// BreakIf ends a continuing block: it exits the loop when the condition
// holds and starts the next iteration otherwise.
type BreakIf struct {
	terminatorBase
	Loop *Loop
}

func (*BreakIf) Name() string { return "break_if" }

// Condition returns the exit condition.
func (b *BreakIf) Condition() Value { return b.Operand(0) }

// Unreachable marks a point control flow never reaches.
type Unreachable struct{ terminatorBase }

func (*Unreachable) Name() string { return "unreachable" }

var (
	_ Control    = (*If)(nil)
	_ Control    = (*Loop)(nil)
	_ Control    = (*Switch)(nil)
	_ Terminator = (*Return)(nil)
	_ Terminator = (*ExitIf)(nil)
	_ Terminator = (*ExitLoop)(nil)
	_ Terminator = (*ExitSwitch)(nil)
	_ Terminator = (*Continue)(nil)
	_ Terminator = (*NextIteration)(nil)
	_ Terminator = (*BreakIf)(nil)
	_ Terminator = (*Unreachable)(nil)
)
