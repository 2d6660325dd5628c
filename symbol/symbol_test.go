package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterInterns(t *testing.T) {
	tab := NewTable()
	a := tab.Register("color")
	b := tab.Register("color")
	c := tab.Register("depth")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "color", tab.NameFor(a))
	assert.Equal(t, 2, tab.Len())
}

func TestGet(t *testing.T) {
	tab := NewTable()
	_, ok := tab.Get("x")
	assert.False(t, ok)

	x := tab.Register("x")
	got, ok := tab.Get("x")
	require.True(t, ok)
	assert.True(t, got.Equal(x))
}

func TestNewMintsUniqueNames(t *testing.T) {
	tab := NewTable()
	tab.Register("tmp")
	tab.Register("tmp_2")

	first := tab.New("tmp")
	second := tab.New("tmp")
	fresh := tab.New("other")

	assert.Equal(t, "tmp_1", tab.NameFor(first))
	assert.Equal(t, "tmp_3", tab.NameFor(second))
	assert.Equal(t, "other", tab.NameFor(fresh))
}

func TestSymbolsFromDifferentTables(t *testing.T) {
	t1 := NewTable()
	t2 := NewTable()
	a := t1.Register("x")
	b := t2.Register("x")

	assert.Equal(t, a.ID(), b.ID())
	assert.False(t, a.Equal(b))
	assert.Empty(t, t2.NameFor(a))
	assert.False(t, t2.Owns(a))
	assert.True(t, t1.Owns(a))
	assert.False(t, Symbol{}.IsValid())
}

func TestNFCNormalization(t *testing.T) {
	tab := NewTable()
	composed := tab.Register("caf\u00e9")
	decomposed := tab.Register("cafe\u0301")
	assert.True(t, composed.Equal(decomposed))
	assert.Equal(t, "caf\u00e9", tab.NameFor(decomposed))
}

func TestClone(t *testing.T) {
	tab := NewTable()
	tab.Register("a")
	tab.New("a")

	c := tab.Clone()
	assert.Equal(t, tab.Len(), c.Len())
	_, ok := c.Get("a_1")
	assert.True(t, ok)
	assert.Equal(t, "a_2", c.NameFor(c.New("a")))
	assert.Equal(t, 2, tab.Len(), "clone must not write through")
}
