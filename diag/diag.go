// Package diag provides source ranges and the diagnostics shared by every
// phase of the compiler: parsing, dependency analysis, resolution,
// validation and the IR transforms.
package diag

import (
	"fmt"
	"strings"
)

// Position is a location in source text. Line and Column are 1-based.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Range is a half-open span of source text.
type Range struct {
	Start Position
	End   Position
}

// IsValid reports whether the range points into real source text.
func (r Range) IsValid() bool {
	return r.Start.Line > 0
}

func (r Range) String() string {
	if !r.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d", r.Start.Line, r.Start.Column)
}

// Severity orders diagnostics from informational to fatal.
type Severity uint8

const (
	Note Severity = iota
	Warning
	Error
	// Internal marks a defect in the compiler itself rather than in the
	// program being compiled.
	Internal
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Internal:
		return "internal compiler error"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// Diagnostic is a single message attached to a source range.
type Diagnostic struct {
	Severity Severity
	Message  string
	Range    Range
	// Source names the file or buffer the range refers to.
	Source string
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.Source != "" {
		sb.WriteString(d.Source)
		sb.WriteByte(':')
	}
	if d.Range.IsValid() {
		fmt.Fprintf(&sb, "%d:%d ", d.Range.Start.Line, d.Range.Start.Column)
	} else if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// FormatWithContext returns the diagnostic with the offending source line
// and a caret under the start of the range.
func (d Diagnostic) FormatWithContext(source string) string {
	if source == "" || !d.Range.IsValid() {
		return d.String()
	}

	lines := strings.Split(source, "\n")
	lineNum := d.Range.Start.Line
	if lineNum > len(lines) {
		return d.String()
	}

	line := lines[lineNum-1]
	col := d.Range.Start.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	width := 1
	if d.Range.End.Line == lineNum && d.Range.End.Column > col {
		width = d.Range.End.Column - col
	}
	if col-1+width > len(line) && len(line) >= col {
		width = len(line) - col + 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", d.Severity, d.Message)
	if d.Source != "" {
		fmt.Fprintf(&sb, "  --> %s:%d:%d\n", d.Source, lineNum, col)
	} else {
		fmt.Fprintf(&sb, "  --> line %d:%d\n", lineNum, col)
	}
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s%s\n", strings.Repeat(" ", col-1), strings.Repeat("^", width))

	return sb.String()
}

// List accumulates diagnostics in the order they were reported.
type List []Diagnostic

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

// AddError appends an error diagnostic.
func (l *List) AddError(r Range, format string, args ...any) {
	l.Add(Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), Range: r})
}

// AddWarning appends a warning diagnostic.
func (l *List) AddWarning(r Range, format string, args ...any) {
	l.Add(Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), Range: r})
}

// AddNote appends a note. Notes follow the diagnostic they explain.
func (l *List) AddNote(r Range, format string, args ...any) {
	l.Add(Diagnostic{Severity: Note, Message: fmt.Sprintf(format, args...), Range: r})
}

// Append adds every diagnostic of other to the list.
func (l *List) Append(other List) {
	*l = append(*l, other...)
}

// ContainsErrors reports whether any diagnostic is an error or worse.
func (l List) ContainsErrors() bool {
	for _, d := range l {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// Errors returns only the error diagnostics.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.Severity >= Error {
			out = append(out, d)
		}
	}
	return out
}

// WithSource returns a copy of the list with Source set on every diagnostic
// that does not already name one.
func (l List) WithSource(name string) List {
	out := make(List, len(l))
	for i, d := range l {
		if d.Source == "" {
			d.Source = name
		}
		out[i] = d
	}
	return out
}

// Error implements the error interface so a list can be returned directly.
func (l List) Error() string {
	errs := l.Errors()
	switch len(errs) {
	case 0:
		return "no errors"
	case 1:
		return errs[0].String()
	default:
		return fmt.Sprintf("%s (and %d more errors)", errs[0].String(), len(errs)-1)
	}
}

// String renders every diagnostic, one per line.
func (l List) String() string {
	var sb strings.Builder
	for _, d := range l {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatAll renders every diagnostic with source context.
func (l List) FormatAll(source string) string {
	var sb strings.Builder
	for i, d := range l {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.FormatWithContext(source))
	}
	return sb.String()
}

// Err returns the list as an error when it contains errors, nil otherwise.
func (l List) Err() error {
	if l.ContainsErrors() {
		return l
	}
	return nil
}
