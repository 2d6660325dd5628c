package ir

import (
	"slices"

	"github.com/gogpu/wgslcore/symbol"
	"github.com/gogpu/wgslcore/types"
)

// Module is a program in IR form.
type Module struct {
	// Types interns the types of every value in the module.
	Types *types.Manager
	// Symbols holds the names given to values.
	Symbols *symbol.Table
	// Root holds module-scope variables and overrides.
	Root *Block
	// Functions in declaration order.
	Functions []*Function

	names map[Value]symbol.Symbol
}

// NewModule creates an empty module using tm for its types.
func NewModule(tm *types.Manager) *Module {
	if tm == nil {
		tm = types.NewManager()
	}
	return &Module{
		Types:   tm,
		Symbols: symbol.NewTable(),
		Root:    NewBlock(),
		names:   make(map[Value]symbol.Symbol),
	}
}

// SetName names v. Instruction results are named through their
// instruction's result.
func (m *Module) SetName(v Value, name string) {
	if name == "" {
		delete(m.names, v)
		return
	}
	m.names[v] = m.Symbols.Register(name)
}

// NameOf returns v's name, or "".
func (m *Module) NameOf(v Value) string {
	s, ok := m.names[v]
	if !ok {
		return ""
	}
	return m.Symbols.NameFor(s)
}

// Function returns the function called name, or nil.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if m.NameOf(f) == name {
			return f
		}
	}
	return nil
}

// AddFunction appends f to the module.
func (m *Module) AddFunction(f *Function) {
	m.Functions = append(m.Functions, f)
}

// InsertFunctionAfter places f right after existing, or at the end when
// existing is not in the module.
func (m *Module) InsertFunctionAfter(existing, f *Function) {
	i := slices.Index(m.Functions, existing)
	if i < 0 {
		m.AddFunction(f)
		return
	}
	m.Functions = slices.Insert(m.Functions, i+1, f)
}

// RemoveFunction removes f from the module.
func (m *Module) RemoveFunction(f *Function) {
	if i := slices.Index(m.Functions, f); i >= 0 {
		m.Functions = slices.Delete(m.Functions, i, i+1)
	}
}

// Instructions returns a snapshot of every live instruction: the root block
// first, then each function, nested blocks after the instruction that owns
// them.
func (m *Module) Instructions() []Instruction {
	var out []Instruction
	var walk func(b *Block)
	walk = func(b *Block) {
		if b == nil {
			return
		}
		for _, inst := range b.insts {
			if !inst.Alive() {
				continue
			}
			out = append(out, inst)
			if c, ok := inst.(Control); ok {
				for _, nested := range c.Blocks() {
					walk(nested)
				}
			}
		}
	}
	walk(m.Root)
	for _, f := range m.Functions {
		walk(f.Block)
	}
	return out
}

// EntryPoints returns the functions with a pipeline stage.
func (m *Module) EntryPoints() []*Function {
	var out []*Function
	for _, f := range m.Functions {
		if f.IsEntryPoint() {
			out = append(out, f)
		}
	}
	return out
}
