// Package ir defines the value graph that transforms operate on.
//
// The IR is an SSA-style graph of values and instructions:
//   - Values: constants, instruction results, function parameters and
//     functions. Every value keeps a list of the instruction operands that
//     reference it.
//   - Instructions: ordered inside blocks. Control instructions (if, loop,
//     switch) own nested blocks; every block ends with a terminator.
//   - Module: the root block of module-scope variables plus the functions.
//
// # Ownership
//
// A Module owns every value and instruction reachable from its blocks.
// References between instructions are non-owning: operands point at values,
// and values point back at their users through Usage records. Operands are
// only changed through Instruction.SetOperand and Instruction.SetOperands so
// that both directions stay consistent.
//
// # Mutation
//
// Transforms collect work first (Module.Instructions returns a snapshot) and
// mutate afterwards. Destroying an instruction whose results are still used
// is an internal error.
//
// # Text form
//
// Disassemble renders a module as text. Value ids (%N) and block ids ($BN)
// are assigned lazily in emission order, so two structurally identical
// modules print identically.
package ir
