package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/wgslcore/types"
)

// Disassemble renders m as text.
func Disassemble(m *Module) string {
	d := newDisassembler(m)
	d.module()
	return d.sb.String()
}

type disassembler struct {
	m      *Module
	sb     strings.Builder
	indent int

	ids       map[Value]string
	taken     map[string]bool
	blockIDs  map[*Block]string
	ctrlNames map[Instruction]string
	ctrlCount map[string]int
}

func newDisassembler(m *Module) *disassembler {
	return &disassembler{
		m:         m,
		ids:       make(map[Value]string),
		taken:     make(map[string]bool),
		blockIDs:  make(map[*Block]string),
		ctrlNames: make(map[Instruction]string),
		ctrlCount: make(map[string]int),
	}
}

func (d *disassembler) line(format string, args ...any) {
	d.sb.WriteString(strings.Repeat(" ", d.indent))
	fmt.Fprintf(&d.sb, format, args...)
	d.sb.WriteByte('\n')
}

func (d *disassembler) module() {
	for _, s := range d.m.Types.Structs() {
		d.structDecl(s)
	}
	if !d.m.Root.IsEmpty() {
		d.block(d.m.Root, "root")
		d.sb.WriteByte('\n')
	}
	for _, f := range d.m.Functions {
		d.function(f)
	}
}

func (d *disassembler) structDecl(s *types.Struct) {
	header := fmt.Sprintf("%s = struct @align(%d)", s.Name, s.Align())
	if s.HasFlag(types.FlagBlock) {
		header += ", @block"
	}
	d.line("%s {", header)
	d.indent += 2
	for _, m := range s.Members {
		d.line("%s", m)
	}
	d.indent -= 2
	d.line("}")
	d.sb.WriteByte('\n')
}

// id returns the textual id of v, assigning one on first use. Named values
// keep their name, suffixed when it is already taken; every value consumes
// a number either way.
func (d *disassembler) id(v Value) string {
	if id, ok := d.ids[v]; ok {
		return id
	}
	n := len(d.ids) + 1
	id := strconv.Itoa(n)
	if name := d.m.NameOf(v); name != "" {
		id = name
		for i := 1; d.taken[id]; i++ {
			id = name + "_" + strconv.Itoa(i)
		}
	}
	d.taken[id] = true
	d.ids[v] = id
	return id
}

func (d *disassembler) blockID(b *Block) string {
	if id, ok := d.blockIDs[b]; ok {
		return id
	}
	id := "$B" + strconv.Itoa(len(d.blockIDs)+1)
	d.blockIDs[b] = id
	return id
}

func (d *disassembler) ctrlName(inst Instruction) string {
	if n, ok := d.ctrlNames[inst]; ok {
		return n
	}
	d.ctrlCount[inst.Name()]++
	n := inst.Name() + "_" + strconv.Itoa(d.ctrlCount[inst.Name()])
	d.ctrlNames[inst] = n
	return n
}

// nameComment returns "  # %id: 'name'" entries for named values whose id
// differs from their name.
func (d *disassembler) nameComment(vs ...Value) string {
	var parts []string
	for _, v := range vs {
		name := d.m.NameOf(v)
		if name != "" && d.id(v) != name {
			parts = append(parts, fmt.Sprintf("%%%s: '%s'", d.id(v), name))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "  # " + strings.Join(parts, ", ")
}

func (d *disassembler) value(v Value) string {
	switch v := v.(type) {
	case nil:
		return "undef"
	case *Constant:
		return v.String()
	default:
		return "%" + d.id(v)
	}
}

func (d *disassembler) valueList(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = d.value(v)
	}
	return strings.Join(parts, ", ")
}

func attributeList(a types.IOAttributes, binding *BindingPoint) []string {
	var out []string
	if a.Invariant {
		out = append(out, "@invariant")
	}
	if a.Location != nil {
		out = append(out, fmt.Sprintf("@location(%d)", *a.Location))
	}
	if a.Interpolate != nil {
		if a.Interpolate.Sampling != "" {
			out = append(out, fmt.Sprintf("@interpolate(%s, %s)", a.Interpolate.Type, a.Interpolate.Sampling))
		} else {
			out = append(out, fmt.Sprintf("@interpolate(%s)", a.Interpolate.Type))
		}
	}
	if a.Color != nil {
		out = append(out, fmt.Sprintf("@color(%d)", *a.Color))
	}
	if a.BlendSrc != nil {
		out = append(out, fmt.Sprintf("@blend_src(%d)", *a.BlendSrc))
	}
	if binding != nil {
		out = append(out, fmt.Sprintf("@binding_point(%d, %d)", binding.Group, binding.Binding))
	}
	if a.Builtin != types.BuiltinNone {
		out = append(out, "@"+string(a.Builtin))
	}
	return out
}

func bracketed(attrs []string) string {
	if len(attrs) == 0 {
		return ""
	}
	return " [" + strings.Join(attrs, ", ") + "]"
}

func (d *disassembler) function(f *Function) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%%%s =", d.id(f))
	if f.Stage != StageNone {
		fmt.Fprintf(&sb, " @%s", f.Stage)
	}
	if f.WorkgroupSize != nil {
		w := f.WorkgroupSize
		fmt.Fprintf(&sb, " @workgroup_size(%du, %du, %du)", w[0], w[1], w[2])
	}
	sb.WriteString(" func(")
	named := []Value{f}
	for i, p := range f.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%%%s:%s%s", d.id(p), p.typ, bracketed(attributeList(p.Attrs, p.BindingPoint)))
		named = append(named, p)
	}
	fmt.Fprintf(&sb, "):%s%s {", f.ReturnType, bracketed(attributeList(f.ReturnAttrs, nil)))
	sb.WriteString(d.nameComment(named...))
	d.line("%s", sb.String())
	d.indent += 2
	d.block(f.Block, "")
	d.indent -= 2
	d.line("}")
}

func (d *disassembler) block(b *Block, comment string) {
	header := d.blockID(b) + ": {"
	if comment != "" {
		header += "  # " + comment
	}
	d.line("%s", header)
	d.indent += 2
	for _, inst := range b.insts {
		d.instruction(inst)
	}
	d.indent -= 2
	d.line("}")
}

func (d *disassembler) results(inst Instruction) string {
	rs := inst.Results()
	if len(rs) == 0 {
		return ""
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("%%%s:%s", d.id(r), r.Type())
	}
	return strings.Join(parts, ", ") + " = "
}

func (d *disassembler) resultComment(inst Instruction) string {
	vs := make([]Value, len(inst.Results()))
	for i, r := range inst.Results() {
		vs[i] = r
	}
	return d.nameComment(vs...)
}

func (d *disassembler) instruction(inst Instruction) {
	switch inst := inst.(type) {
	case *If:
		d.ifInst(inst)
		return
	case *Loop:
		d.loopInst(inst)
		return
	case *Switch:
		d.switchInst(inst)
		return
	}

	lhs := d.results(inst)
	var rhs string
	switch inst := inst.(type) {
	case *Var:
		rhs = "var"
		if init := inst.Initializer(); init != nil {
			rhs += ", " + d.value(init)
		}
		if inst.BindingPoint != nil {
			rhs += fmt.Sprintf(" @binding_point(%d, %d)", inst.BindingPoint.Group, inst.BindingPoint.Binding)
		}
		if attrs := attributeList(inst.Attrs, nil); len(attrs) > 0 {
			rhs += " " + strings.Join(attrs, " ")
		}
	case *Override:
		rhs = "override"
		if len(inst.operands) > 0 {
			rhs += ", " + d.value(inst.operands[0])
		}
		if inst.ID != nil {
			rhs += fmt.Sprintf(" @id(%d)", *inst.ID)
		}
	case *Swizzle:
		rhs = "swizzle " + d.value(inst.Object()) + ", " + swizzleString(inst.Indices)
	case *ExitIf:
		rhs = d.operandsText(inst) + "  # " + d.ctrlName(inst.If)
	case *ExitLoop:
		rhs = d.operandsText(inst) + "  # " + d.ctrlName(inst.Loop)
	case *ExitSwitch:
		rhs = d.operandsText(inst) + "  # " + d.ctrlName(inst.Switch)
	case *Continue:
		rhs = "continue  # -> " + d.blockID(inst.Loop.Continuing)
	case *NextIteration:
		rhs = "next_iteration  # -> " + d.blockID(inst.Loop.Body)
	case *BreakIf:
		rhs = fmt.Sprintf("break_if %s  # -> [t: exit_loop %s, f: %s]",
			d.value(inst.Condition()), d.ctrlName(inst.Loop), d.blockID(inst.Loop.Body))
	default:
		rhs = d.operandsText(inst)
	}
	d.line("%s%s%s", lhs, rhs, d.resultComment(inst))
}

func (d *disassembler) operandsText(inst Instruction) string {
	if len(inst.Operands()) == 0 {
		return inst.Name()
	}
	return inst.Name() + " " + d.valueList(inst.Operands())
}

func swizzleString(indices []uint32) string {
	const xyzw = "xyzw"
	var sb strings.Builder
	for _, i := range indices {
		if i < 4 {
			sb.WriteByte(xyzw[i])
		}
	}
	return sb.String()
}

func (d *disassembler) ifInst(i *If) {
	targets := "t: " + d.blockID(i.True)
	hasFalse := !i.False.IsEmpty()
	if hasFalse {
		targets += ", f: " + d.blockID(i.False)
	}
	d.line("%sif %s [%s] {  # %s%s", d.results(i), d.value(i.Condition()), targets, d.ctrlName(i), d.resultComment(i))
	d.indent += 2
	d.block(i.True, "true")
	if hasFalse {
		d.block(i.False, "false")
	}
	d.indent -= 2
	d.line("}")
}

func (d *disassembler) loopInst(l *Loop) {
	var targets []string
	if !l.Initializer.IsEmpty() {
		targets = append(targets, "i: "+d.blockID(l.Initializer))
	}
	targets = append(targets, "b: "+d.blockID(l.Body))
	if !l.Continuing.IsEmpty() {
		targets = append(targets, "c: "+d.blockID(l.Continuing))
	}
	d.line("%sloop [%s] {  # %s%s", d.results(l), strings.Join(targets, ", "), d.ctrlName(l), d.resultComment(l))
	d.indent += 2
	if !l.Initializer.IsEmpty() {
		d.block(l.Initializer, "initializer")
	}
	d.block(l.Body, "body")
	if !l.Continuing.IsEmpty() {
		d.block(l.Continuing, "continuing")
	}
	d.indent -= 2
	d.line("}")
}

func (d *disassembler) switchInst(s *Switch) {
	cases := make([]string, len(s.Cases))
	for i, c := range s.Cases {
		sels := make([]string, len(c.Selectors))
		for j, sel := range c.Selectors {
			if sel.IsDefault() {
				sels[j] = "default"
			} else {
				sels[j] = sel.Value.String()
			}
		}
		cases[i] = fmt.Sprintf("c: (%s, %s)", strings.Join(sels, " "), d.blockID(c.Block))
	}
	d.line("%sswitch %s [%s] {  # %s%s", d.results(s), d.value(s.Condition()), strings.Join(cases, ", "), d.ctrlName(s), d.resultComment(s))
	d.indent += 2
	for _, c := range s.Cases {
		d.block(c.Block, "case")
	}
	d.indent -= 2
	d.line("}")
}
