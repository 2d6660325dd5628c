package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rng(line, col, endCol int) Range {
	return Range{
		Start: Position{Line: line, Column: col},
		End:   Position{Line: line, Column: endCol},
	}
}

func TestListAccumulates(t *testing.T) {
	var l List
	l.AddWarning(rng(1, 1, 2), "unused variable 'x'")
	assert.False(t, l.ContainsErrors())
	assert.NoError(t, l.Err())

	l.AddError(rng(2, 5, 6), "unknown identifier: '%s'", "y")
	l.AddNote(rng(1, 1, 2), "declared here")

	require.Len(t, l, 3)
	assert.True(t, l.ContainsErrors())
	assert.Len(t, l.Errors(), 1)
	assert.Equal(t, "2:5 error: unknown identifier: 'y'", l.Errors()[0].String())
	assert.Error(t, l.Err())
}

func TestListErrorMessage(t *testing.T) {
	var l List
	assert.Equal(t, "no errors", l.Error())

	l.AddError(rng(1, 1, 1), "first")
	assert.Equal(t, "1:1 error: first", l.Error())

	l.AddError(rng(3, 1, 1), "second")
	assert.Equal(t, "1:1 error: first (and 1 more errors)", l.Error())
}

func TestWithSource(t *testing.T) {
	var l List
	l.AddError(rng(4, 2, 3), "bad")
	named := l.WithSource("shader.wgsl")
	assert.Equal(t, "shader.wgsl:4:2 error: bad", named[0].String())
	assert.Empty(t, l[0].Source, "original list must not change")
}

func TestFormatWithContext(t *testing.T) {
	source := "fn main() {\n  let x = y;\n}"
	d := Diagnostic{Severity: Error, Message: "unknown identifier: 'y'", Range: rng(2, 11, 12)}

	got := d.FormatWithContext(source)
	want := "error: unknown identifier: 'y'\n" +
		"  --> line 2:11\n" +
		"   |\n" +
		"  2|   let x = y;\n" +
		"   |           ^\n"
	assert.Equal(t, want, got)
}

func TestFormatWithContextNoSource(t *testing.T) {
	d := Diagnostic{Severity: Warning, Message: "careful"}
	assert.Equal(t, "warning: careful", d.FormatWithContext(""))
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("use list out of sync")
	err := WrapInternal("std140", cause).WithNode("%3 = access %buffer, 0u")

	var ie *InternalError
	require.True(t, errors.As(fmt.Errorf("pipeline: %w", err), &ie))
	assert.Equal(t, "std140", ie.Transform)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "diag_test.go", ie.File)
	assert.Contains(t, err.Error(), "internal compiler error in std140")
	assert.Contains(t, err.Error(), "node: %3 = access %buffer, 0u")
	assert.Equal(t, Internal, ie.Diagnostic().Severity)
}
