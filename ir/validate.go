package ir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/wgslcore/types"
)

// ValidationError is one broken IR invariant.
type ValidationError struct {
	Message string
	// Optional context
	Function    string
	Instruction string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	switch {
	case e.Function != "" && e.Instruction != "":
		return fmt.Sprintf("in function %s, instruction '%s': %s", e.Function, e.Instruction, e.Message)
	case e.Function != "":
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	case e.Instruction != "":
		return fmt.Sprintf("instruction '%s': %s", e.Instruction, e.Message)
	}
	return e.Message
}

// ValidationErrors lists every failure found by Validate.
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// validator checks a module's structural invariants.
type validator struct {
	module *Module
	errors []ValidationError
	// current function name, "" in the root block
	function string
	seen     map[Instruction]bool
}

// Validate checks m for correctness. It returns a *ValidationErrors listing
// every failure, or nil.
func Validate(m *Module) error {
	if m == nil {
		return &ValidationErrors{Errors: []ValidationError{{Message: "module is nil"}}}
	}
	v := &validator{module: m, seen: make(map[Instruction]bool)}
	v.validateRoot()
	for _, f := range m.Functions {
		v.validateFunction(f)
	}
	if len(v.errors) > 0 {
		return &ValidationErrors{Errors: v.errors}
	}
	return nil
}

func (v *validator) addError(inst Instruction, format string, args ...any) {
	e := ValidationError{Message: fmt.Sprintf(format, args...), Function: v.function}
	if inst != nil {
		e.Instruction = inst.Name()
	}
	v.errors = append(v.errors, e)
}

func (v *validator) validateRoot() {
	for _, inst := range v.module.Root.insts {
		switch inst.(type) {
		case *Var, *Override:
		default:
			v.addError(inst, "root block: invalid instruction")
			continue
		}
		v.validateInstruction(v.module.Root, inst)
	}
}

func (v *validator) validateFunction(f *Function) {
	v.function = v.module.NameOf(f)
	defer func() { v.function = "" }()

	for _, p := range f.params {
		if p.fn != f {
			v.addError(nil, "parameter %s does not belong to the function", v.module.NameOf(p))
		}
	}
	if f.Block == nil {
		v.addError(nil, "function has no body")
		return
	}
	v.validateBlock(f.Block)
	if f.IsEntryPoint() {
		v.validateEntryPoint(f)
	}
}

func (v *validator) validateBlock(b *Block) {
	if b.IsEmpty() || b.Terminator() == nil {
		v.addError(nil, "block does not end in a terminator")
	}
	for i, inst := range b.insts {
		if _, ok := inst.(Terminator); ok && i != len(b.insts)-1 {
			v.addError(inst, "terminator which isn't the final instruction")
		}
		v.validateInstruction(b, inst)
	}
}

func (v *validator) validateInstruction(b *Block, inst Instruction) {
	if v.seen[inst] {
		v.addError(inst, "instruction appears more than once")
		return
	}
	v.seen[inst] = true
	if !inst.Alive() {
		v.addError(inst, "destroyed instruction found in block")
		return
	}
	if inst.Block() != b {
		v.addError(inst, "instruction's block does not match the block holding it")
	}
	v.validateOperands(inst)
	v.validateResults(inst)

	tm := v.module.Types
	switch inst := inst.(type) {
	case *Var:
		p, ok := inst.Result().Type().(*types.Pointer)
		if !ok {
			v.addError(inst, "result type must be a pointer")
			break
		}
		if init := inst.Initializer(); init != nil && init.Type() != p.Store {
			v.addError(inst, "initializer type '%s' does not match store type '%s'", init.Type(), p.Store)
		}
	case *Let:
		if inst.Value() != nil && inst.Result().Type() != inst.Value().Type() {
			v.addError(inst, "result type '%s' does not match value type '%s'", inst.Result().Type(), inst.Value().Type())
		}
	case *Load:
		want := LoadedType(inst.From().Type())
		if want == nil {
			v.addError(inst, "loaded value is not a pointer")
		} else if inst.Result().Type() != want {
			v.addError(inst, "result type '%s' does not match source store type '%s'", inst.Result().Type(), want)
		}
	case *Store:
		want := LoadedType(inst.To().Type())
		switch {
		case want == nil:
			v.addError(inst, "store target is not a pointer")
		case inst.From().Type() != want:
			v.addError(inst, "value type '%s' does not match store type '%s'", inst.From().Type(), want)
		}
	case *LoadVectorElement:
		vec, ok := LoadedType(inst.From().Type()).(*types.Vector)
		if !ok {
			v.addError(inst, "source is not a pointer to a vector")
		} else if inst.Result().Type() != vec.Elem {
			v.addError(inst, "result type '%s' does not match element type '%s'", inst.Result().Type(), vec.Elem)
		}
	case *StoreVectorElement:
		vec, ok := LoadedType(inst.To().Type()).(*types.Vector)
		if !ok {
			v.addError(inst, "target is not a pointer to a vector")
		} else if inst.Value().Type() != vec.Elem {
			v.addError(inst, "value type '%s' does not match element type '%s'", inst.Value().Type(), vec.Elem)
		}
	case *Access:
		want, err := IndexedType(tm, inst.Object().Type(), inst.Indices())
		if err != nil {
			v.addError(inst, "%v", err)
		} else if inst.Result().Type() != want {
			v.addError(inst, "result type '%s' does not match indexed type '%s'", inst.Result().Type(), want)
		}
	case *Swizzle:
		vec, ok := inst.Object().Type().(*types.Vector)
		switch {
		case !ok:
			v.addError(inst, "swizzle of a non-vector")
		case len(inst.Indices) == 0 || len(inst.Indices) > 4:
			v.addError(inst, "invalid number of swizzle indices")
		case slices.ContainsFunc(inst.Indices, func(i uint32) bool { return i >= vec.Width }):
			v.addError(inst, "swizzle index out of bounds")
		}
	case *UserCall:
		v.validateCall(inst)
	case *Return:
		v.validateReturn(inst)
	case *ExitIf:
		if inst.If == nil || len(inst.Operands()) != len(inst.If.Results()) {
			v.addError(inst, "args count does not match if results")
		}
	case *BreakIf:
		if inst.Condition() == nil || !types.IsBool(inst.Condition().Type()) {
			v.addError(inst, "condition must be bool")
		}
	case *If:
		if inst.Condition() == nil || !types.IsBool(inst.Condition().Type()) {
			v.addError(inst, "condition must be bool")
		}
		v.validateBlock(inst.True)
		if !inst.False.IsEmpty() || len(inst.Results()) > 0 {
			v.validateBlock(inst.False)
		}
	case *Loop:
		if !inst.Initializer.IsEmpty() {
			v.validateBlock(inst.Initializer)
		}
		v.validateBlock(inst.Body)
		if !inst.Continuing.IsEmpty() {
			v.validateBlock(inst.Continuing)
		}
	case *Switch:
		defaults := 0
		for _, c := range inst.Cases {
			for _, s := range c.Selectors {
				if s.IsDefault() {
					defaults++
				}
			}
			v.validateBlock(c.Block)
		}
		if defaults != 1 {
			v.addError(inst, "switch must have exactly one default selector")
		}
	}
}

// validateOperands checks that every operand is alive and that use-lists
// mirror the operand lists.
func (v *validator) validateOperands(inst Instruction) {
	for i, op := range inst.Operands() {
		if op == nil {
			if !allowsNilOperand(inst) {
				v.addError(inst, "operand %d is undefined", i)
			}
			continue
		}
		if r, ok := op.(*InstructionResult); ok && !r.inst.Alive() {
			v.addError(inst, "operand %d is the result of a destroyed instruction", i)
		}
		if !slices.Contains(op.Usages(), Usage{inst, i}) {
			v.addError(inst, "operand %d missing usage", i)
		}
	}
}

func allowsNilOperand(inst Instruction) bool {
	_, ok := inst.(*ExitIf)
	return ok
}

func (v *validator) validateResults(inst Instruction) {
	for _, r := range inst.Results() {
		if r.inst != inst {
			v.addError(inst, "result does not point back at its instruction")
		}
		if r.Type() == nil {
			v.addError(inst, "result has no type")
		}
		for _, u := range r.Usages() {
			if !u.Instruction.Alive() {
				v.addError(inst, "result used by destroyed '%s'", u.Instruction.Name())
				continue
			}
			if u.Instruction.Operand(u.Operand) != Value(r) {
				v.addError(inst, "result usage does not match operand %d of '%s'", u.Operand, u.Instruction.Name())
			}
		}
	}
}

func (v *validator) validateCall(c *UserCall) {
	fn := c.Target()
	if fn == nil {
		v.addError(c, "call target is not a function")
		return
	}
	if fn.IsEntryPoint() {
		v.addError(c, "call target must not have a pipeline stage")
	}
	args := c.Args()
	params := fn.Params()
	if len(args) != len(params) {
		v.addError(c, "function has %d parameters, but call provides %d arguments", len(params), len(args))
		return
	}
	for i, arg := range args {
		if arg != nil && arg.Type() != params[i].Type() {
			v.addError(c, "argument %d of type '%s' does not match parameter type '%s'", i, arg.Type(), params[i].Type())
		}
	}
	if c.Result().Type() != fn.ReturnType {
		v.addError(c, "result type '%s' does not match function return type '%s'", c.Result().Type(), fn.ReturnType)
	}
}

func (v *validator) validateReturn(r *Return) {
	fn := r.Func
	if fn == nil {
		v.addError(r, "undefined function")
		return
	}
	_, void := fn.ReturnType.(*types.Void)
	switch {
	case void && r.Value() != nil:
		v.addError(r, "unexpected return value")
	case !void && r.Value() == nil:
		v.addError(r, "expected return value")
	case !void && r.Value().Type() != fn.ReturnType:
		v.addError(r, "return value type '%s' does not match function return type '%s'", r.Value().Type(), fn.ReturnType)
	}
}

func (v *validator) validateEntryPoint(f *Function) {
	for _, p := range f.params {
		if _, ok := p.Type().(*types.Pointer); ok {
			v.addError(nil, "entry point parameter %s must not be a pointer", v.module.NameOf(p))
			continue
		}
		if !hasIO(p.Type(), p.Attrs) {
			v.addError(nil, "entry point parameter %s is missing an IO attribute", v.module.NameOf(p))
		}
	}
	if _, void := f.ReturnType.(*types.Void); !void && !hasIO(f.ReturnType, f.ReturnAttrs) {
		v.addError(nil, "entry point return value is missing an IO attribute")
	}
	if f.Stage == StageCompute && f.WorkgroupSize == nil {
		v.addError(nil, "compute entry point requires a workgroup size")
	}
}

func hasIO(t types.Type, attrs types.IOAttributes) bool {
	if !attrs.IsEmpty() {
		return true
	}
	s, ok := t.(*types.Struct)
	if !ok || len(s.Members) == 0 {
		return false
	}
	for _, m := range s.Members {
		if m.Attrs.IsEmpty() {
			return false
		}
	}
	return true
}
