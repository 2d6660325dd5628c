// Package symbol interns identifiers for a single compilation unit.
package symbol

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/text/unicode/norm"
)

var nextTableID atomic.Uint32

// Symbol is an interned identifier. Symbols are only comparable with symbols
// of the same Table; the zero Symbol is invalid.
type Symbol struct {
	id    uint32
	table uint32
}

// ID returns the symbol's unique id within its table.
func (s Symbol) ID() uint32 { return s.id }

// IsValid reports whether s was produced by a Table.
func (s Symbol) IsValid() bool { return s.table != 0 }

// Equal reports whether s and o are the same symbol of the same table.
func (s Symbol) Equal(o Symbol) bool {
	return s.table == o.table && s.id == o.id
}

// Table maps names to symbols. It is not safe for concurrent use; each
// compilation owns its own table.
type Table struct {
	id     uint32
	names  []string
	byName map[string]Symbol
	// next suffix to try per base name when minting unique names
	suffix map[string]int
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{
		id:     nextTableID.Add(1),
		names:  []string{""}, // id 0 is reserved
		byName: make(map[string]Symbol),
		suffix: make(map[string]int),
	}
}

// Register returns the symbol for name, creating it if needed.
func (t *Table) Register(name string) Symbol {
	name = norm.NFC.String(name)
	if s, ok := t.byName[name]; ok {
		return s
	}
	return t.add(name)
}

// Get returns the symbol for name without creating one.
func (t *Table) Get(name string) (Symbol, bool) {
	s, ok := t.byName[norm.NFC.String(name)]
	return s, ok
}

// New mints a fresh symbol. Its name is name when unused, otherwise name
// with the first free numeric suffix (name_1, name_2, ...).
func (t *Table) New(name string) Symbol {
	name = norm.NFC.String(name)
	if name == "" {
		name = "sym"
	}
	if _, taken := t.byName[name]; !taken {
		return t.add(name)
	}
	i := t.suffix[name]
	for {
		i++
		candidate := name + "_" + strconv.Itoa(i)
		if _, taken := t.byName[candidate]; !taken {
			t.suffix[name] = i
			return t.add(candidate)
		}
	}
}

// NameFor returns the display name of s. Symbols of other tables yield "".
func (t *Table) NameFor(s Symbol) string {
	if s.table != t.id || int(s.id) >= len(t.names) {
		return ""
	}
	return t.names[s.id]
}

// Owns reports whether s was created by this table.
func (t *Table) Owns(s Symbol) bool {
	return s.table == t.id && s.id != 0 && int(s.id) < len(t.names)
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	return len(t.names) - 1
}

// Clone returns an independent table holding the same names. Symbols of the
// original table are not valid in the clone.
func (t *Table) Clone() *Table {
	c := NewTable()
	for _, name := range t.names[1:] {
		c.add(name)
	}
	for k, v := range t.suffix {
		c.suffix[k] = v
	}
	return c
}

func (t *Table) add(name string) Symbol {
	s := Symbol{id: uint32(len(t.names)), table: t.id}
	t.names = append(t.names, name)
	t.byName[name] = s
	return s
}
