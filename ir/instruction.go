package ir

import (
	"slices"

	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/types"
)

// Instruction is a node in a block. The set of instructions is closed.
type Instruction interface {
	// Operands returns the operand list. Do not modify it directly.
	Operands() []Value
	// Operand returns operand i, or nil when out of range.
	Operand(i int) Value
	// SetOperand replaces operand i and updates both use-lists.
	SetOperand(i int, v Value)
	// SetOperands replaces the whole operand list.
	SetOperands(vs ...Value)
	// Results returns the values produced by the instruction.
	Results() []*InstructionResult
	// Result returns the first result, or nil.
	Result() *InstructionResult
	// Block returns the block holding the instruction, or nil when detached.
	Block() *Block
	// Alive reports whether the instruction has not been destroyed.
	Alive() bool
	// Destroy detaches the instruction and releases its operands. The
	// instruction's results must be unused.
	Destroy()
	// Name is the mnemonic used by the disassembler.
	Name() string

	base() *instBase
}

// Terminator is an instruction that ends a block.
type Terminator interface {
	Instruction
	terminator()
}

// Control is an instruction that owns nested blocks.
type Control interface {
	Instruction
	Blocks() []*Block
}

type instBase struct {
	self     Instruction
	block    *Block
	operands []Value
	results  []*InstructionResult
	dead     bool
}

func (b *instBase) base() *instBase { return b }

func (b *instBase) Operands() []Value { return b.operands }

func (b *instBase) Operand(i int) Value {
	if i < 0 || i >= len(b.operands) {
		return nil
	}
	return b.operands[i]
}

func (b *instBase) SetOperand(i int, v Value) {
	if old := b.operands[i]; old != nil {
		old.removeUsage(Usage{b.self, i})
	}
	b.operands[i] = v
	if v != nil {
		v.addUsage(Usage{b.self, i})
	}
}

func (b *instBase) SetOperands(vs ...Value) {
	for i, old := range b.operands {
		if old != nil {
			old.removeUsage(Usage{b.self, i})
		}
	}
	b.operands = make([]Value, len(vs))
	for i, v := range vs {
		b.operands[i] = v
		if v != nil {
			v.addUsage(Usage{b.self, i})
		}
	}
}

func (b *instBase) appendOperand(v Value) {
	b.operands = append(b.operands, nil)
	b.SetOperand(len(b.operands)-1, v)
}

func (b *instBase) Results() []*InstructionResult { return b.results }

func (b *instBase) Result() *InstructionResult {
	if len(b.results) == 0 {
		return nil
	}
	return b.results[0]
}

func (b *instBase) Block() *Block { return b.block }

func (b *instBase) Alive() bool { return !b.dead }

func (b *instBase) Destroy() {
	if b.dead {
		return
	}
	for _, r := range b.results {
		if r.IsUsed() {
			panic(diag.NewInternalError("ir", "destroying '%s' whose result is still used", b.self.Name()))
		}
	}
	if c, ok := b.self.(Control); ok {
		for _, blk := range c.Blocks() {
			blk.destroyAll()
		}
	}
	if b.block != nil {
		b.block.Remove(b.self)
	}
	b.SetOperands()
	b.dead = true
}

func (b *instBase) addResult(t types.Type) *InstructionResult {
	r := &InstructionResult{typ: t, inst: b.self}
	b.results = append(b.results, r)
	return r
}

// AddResult appends a result of type t. Control instructions use it when
// their blocks yield values.
func (b *instBase) AddResult(t types.Type) *InstructionResult {
	return b.addResult(t)
}

func (b *instBase) init(self Instruction, operands ...Value) {
	b.self = self
	b.SetOperands(operands...)
}

// Snapshot returns a copy of the operand list.
func Snapshot(inst Instruction) []Value {
	return slices.Clone(inst.Operands())
}
