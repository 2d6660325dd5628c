package ir

import (
	"slices"

	"github.com/gogpu/wgslcore/diag"
)

// Block is an ordered list of instructions.
type Block struct {
	insts  []Instruction
	parent Control
	owner  *Function
}

// NewBlock returns an empty detached block.
func NewBlock() *Block { return &Block{} }

// Parent returns the control instruction that owns b, or nil for function
// bodies and the root block.
func (b *Block) Parent() Control { return b.parent }

// Instructions returns a snapshot of the block's instructions.
func (b *Block) Instructions() []Instruction { return slices.Clone(b.insts) }

// Len returns the number of instructions.
func (b *Block) Len() int { return len(b.insts) }

// IsEmpty reports whether b holds no instructions.
func (b *Block) IsEmpty() bool { return b == nil || len(b.insts) == 0 }

// Front returns the first instruction, or nil.
func (b *Block) Front() Instruction {
	if len(b.insts) == 0 {
		return nil
	}
	return b.insts[0]
}

// Back returns the last instruction, or nil.
func (b *Block) Back() Instruction {
	if len(b.insts) == 0 {
		return nil
	}
	return b.insts[len(b.insts)-1]
}

// Terminator returns the block's terminator, or nil when the last
// instruction is not one.
func (b *Block) Terminator() Terminator {
	t, _ := b.Back().(Terminator)
	return t
}

// Append adds inst at the end of b.
func (b *Block) Append(inst Instruction) {
	b.adopt(inst)
	b.insts = append(b.insts, inst)
}

// Prepend adds inst at the front of b.
func (b *Block) Prepend(inst Instruction) {
	b.adopt(inst)
	b.insts = slices.Insert(b.insts, 0, inst)
}

// InsertBefore inserts inst immediately before the existing instruction at.
func (b *Block) InsertBefore(at, inst Instruction) {
	i := b.indexOf(at)
	b.adopt(inst)
	b.insts = slices.Insert(b.insts, i, inst)
}

// InsertAfter inserts inst immediately after the existing instruction at.
func (b *Block) InsertAfter(at, inst Instruction) {
	i := b.indexOf(at)
	b.adopt(inst)
	b.insts = slices.Insert(b.insts, i+1, inst)
}

// Remove detaches inst from b without destroying it.
func (b *Block) Remove(inst Instruction) {
	i := b.indexOf(inst)
	b.insts = slices.Delete(b.insts, i, i+1)
	inst.base().block = nil
}

// Replace puts with in place of old, detaching old.
func (b *Block) Replace(old, with Instruction) {
	i := b.indexOf(old)
	b.adopt(with)
	b.insts[i] = with
	old.base().block = nil
}

// Contains reports whether inst is directly in b.
func (b *Block) Contains(inst Instruction) bool {
	return slices.Contains(b.insts, inst)
}

func (b *Block) indexOf(inst Instruction) int {
	i := slices.Index(b.insts, inst)
	if i < 0 {
		panic(diag.NewInternalError("ir", "'%s' is not in the block", inst.Name()))
	}
	return i
}

func (b *Block) adopt(inst Instruction) {
	ib := inst.base()
	if ib.block != nil {
		panic(diag.NewInternalError("ir", "'%s' is already in a block", inst.Name()))
	}
	if ib.dead {
		panic(diag.NewInternalError("ir", "inserting destroyed '%s'", inst.Name()))
	}
	ib.block = b
}

// destroyAll destroys b's instructions from last to first, so that uses
// inside the block are released before their definitions.
func (b *Block) destroyAll() {
	if b == nil {
		return
	}
	for i := len(b.insts) - 1; i >= 0; i-- {
		inst := b.insts[i]
		for _, r := range inst.Results() {
			for _, u := range slices.Clone(r.Usages()) {
				u.Instruction.SetOperand(u.Operand, nil)
			}
		}
		inst.Destroy()
	}
}

// Function returns the function whose body contains b, or nil for the
// root block.
func (b *Block) Function() *Function {
	for blk := b; blk != nil; {
		if blk.parent == nil {
			return blk.owner
		}
		blk = blk.parent.Block()
	}
	return nil
}
