package irgen

import (
	"fmt"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/ir"
	"github.com/gogpu/wgslcore/types"
)

// lowerBlock lowers the statements of b into the current block. Statements
// after a terminator are unreachable and dropped.
func (l *Lowerer) lowerBlock(b *ast.Block) error {
	if b == nil {
		return nil
	}
	for _, s := range b.Stmts {
		if l.terminated() {
			return nil
		}
		if err := l.lowerStatement(s); err != nil {
			return err
		}
	}
	return nil
}

//nolint:gocyclo // one case per statement kind
func (l *Lowerer) lowerStatement(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.Block:
		return l.lowerBlock(s)
	case *ast.DeclStmt:
		return l.lowerLocal(s.Decl)
	case *ast.Assign:
		return l.lowerAssign(s)
	case *ast.CompoundAssign:
		return l.lowerCompound(s.LHS, binaryOps[s.Op], s.RHS)
	case *ast.IncDec:
		op := ir.BinarySubtract
		if s.Increment {
			op = ir.BinaryAdd
		}
		return l.lowerCompound(s.LHS, op, nil)
	case *ast.PhonyAssign:
		_, err := l.lowerValue(s.RHS)
		return err
	case *ast.Return:
		if s.Value == nil {
			l.b.Return(l.currentFunc)
			return nil
		}
		v, err := l.lowerValue(s.Value)
		if err != nil {
			return err
		}
		l.b.Return(l.currentFunc, v)
		return nil
	case *ast.If:
		return l.lowerIf(s)
	case *ast.Loop:
		return l.lowerLoop(s)
	case *ast.For:
		return l.lowerFor(s)
	case *ast.While:
		return l.lowerWhile(s)
	case *ast.Switch:
		return l.lowerSwitch(s)
	case *ast.Break:
		t, err := l.innermost(false)
		if err != nil {
			return err
		}
		if t.sw != nil {
			l.b.ExitSwitch(t.sw)
		} else {
			l.b.ExitLoop(t.loop)
		}
		return nil
	case *ast.Continue:
		t, err := l.innermost(true)
		if err != nil {
			return err
		}
		l.continueTo(t)
		return nil
	case *ast.BreakIf:
		t, err := l.innermost(true)
		if err != nil {
			return err
		}
		cond, err := l.lowerValue(s.Cond)
		if err != nil {
			return err
		}
		l.b.BreakIf(t.loop, cond)
		return nil
	case *ast.Discard:
		l.b.Discard()
		return nil
	case *ast.CallStmt:
		_, err := l.lowerCall(s.Call)
		return err
	case *ast.ConstAssert:
		return nil
	}
	return fmt.Errorf("unsupported statement type: %T", s)
}

func (l *Lowerer) lowerLocal(v ast.Variable) error {
	switch d := v.(type) {
	case *ast.Var:
		di := l.info.Decls[d]
		if di == nil || di.Type == nil {
			return fmt.Errorf("local var %s: unresolved", d.Name.Name)
		}
		var init ir.Value
		if d.Init != nil {
			var err error
			if init, err = l.lowerValue(d.Init); err != nil {
				return fmt.Errorf("local var %s: %w", d.Name.Name, err)
			}
		}
		inst := l.b.Var(d.Name.Name, l.tm.Ptr(types.SpaceFunction, di.Type, types.ReadWrite))
		if init != nil {
			inst.SetInitializer(init)
		}
		l.values[d] = inst.Result()
	case *ast.Let:
		val, err := l.lowerValue(d.Init)
		if err != nil {
			return fmt.Errorf("let %s: %w", d.Name.Name, err)
		}
		l.values[d] = l.b.Let(d.Name.Name, val).Result()
	case *ast.Const:
		// Uses fold to the constant value.
	}
	return nil
}

func (l *Lowerer) lowerAssign(s *ast.Assign) error {
	dst, err := l.lowerRef(s.LHS)
	if err != nil {
		return err
	}
	v, err := l.lowerValue(s.RHS)
	if err != nil {
		return err
	}
	l.store(dst, v)
	return nil
}

// lowerCompound lowers lhs op= rhs. A nil rhs is the constant one of
// increment and decrement.
func (l *Lowerer) lowerCompound(lhs ast.Expr, op ir.BinaryOp, rhs ast.Expr) error {
	dst, err := l.lowerRef(lhs)
	if err != nil {
		return err
	}
	t := l.info.ValueTypeOf(lhs)
	var operand ir.Value
	if rhs != nil {
		if operand, err = l.lowerValue(rhs); err != nil {
			return err
		}
	} else {
		operand = l.b.Int(t, 1)
	}
	cur := l.load(dst)
	res := l.b.Binary(op, t, cur, operand)
	l.store(dst, res.Result())
	return nil
}

func (l *Lowerer) load(r ref) ir.Value {
	if r.elem != nil {
		return l.b.LoadVectorElement(r.ptr, r.elem).Result()
	}
	return l.b.Load(r.ptr).Result()
}

func (l *Lowerer) store(r ref, v ir.Value) {
	if r.elem != nil {
		l.b.StoreVectorElement(r.ptr, r.elem, v)
		return
	}
	l.b.Store(r.ptr, v)
}

func (l *Lowerer) lowerIf(s *ast.If) error {
	cond, err := l.lowerValue(s.Cond)
	if err != nil {
		return err
	}
	i := l.b.If(cond)
	prev := l.setBlock(i.True)
	defer l.setBlock(prev)

	if err := l.lowerBlock(s.Body); err != nil {
		return err
	}
	if !l.terminated() {
		l.b.ExitIf(i)
	}
	if s.Else == nil {
		return nil
	}
	l.setBlock(i.False)
	if err := l.lowerStatement(s.Else); err != nil {
		return err
	}
	if !l.terminated() {
		l.b.ExitIf(i)
	}
	return nil
}

func (l *Lowerer) lowerLoop(s *ast.Loop) error {
	loop := l.b.Loop()
	continuing := s.Continuing != nil && len(s.Continuing.Stmts) > 0
	return l.withLoop(loop, continuing,
		func() error { return l.lowerBlock(s.Body) },
		func() error { return l.lowerBlock(s.Continuing) })
}

func (l *Lowerer) lowerFor(s *ast.For) error {
	loop := l.b.Loop()
	if s.Init != nil {
		prev := l.setBlock(loop.Initializer)
		err := l.lowerStatement(s.Init)
		if err == nil {
			l.b.NextIteration(loop)
		}
		l.setBlock(prev)
		if err != nil {
			return err
		}
	}
	return l.withLoop(loop, s.Update != nil,
		func() error {
			if err := l.exitUnless(loop, s.Cond); err != nil {
				return err
			}
			return l.lowerBlock(s.Body)
		},
		func() error { return l.lowerStatement(s.Update) })
}

func (l *Lowerer) lowerWhile(s *ast.While) error {
	loop := l.b.Loop()
	return l.withLoop(loop, false,
		func() error {
			if err := l.exitUnless(loop, s.Cond); err != nil {
				return err
			}
			return l.lowerBlock(s.Body)
		}, nil)
}

// withLoop lowers body into the loop body and cont into the continuing
// block, with loop as the innermost break and continue target. Blocks left
// open are terminated.
func (l *Lowerer) withLoop(loop *ir.Loop, continuing bool, body, cont func() error) error {
	t := target{loop: loop, continuing: continuing}
	l.targets = append(l.targets, t)
	prev := l.setBlock(loop.Body)
	defer func() {
		l.targets = l.targets[:len(l.targets)-1]
		l.setBlock(prev)
	}()

	if err := body(); err != nil {
		return err
	}
	if !l.terminated() {
		l.continueTo(t)
	}
	if !continuing {
		return nil
	}
	l.setBlock(loop.Continuing)
	if err := cont(); err != nil {
		return err
	}
	if !l.terminated() {
		l.b.NextIteration(loop)
	}
	return nil
}

// exitUnless emits the loop condition check of for and while loops:
// if cond { exit_if } else { exit_loop }.
func (l *Lowerer) exitUnless(loop *ir.Loop, cond ast.Expr) error {
	if cond == nil {
		return nil
	}
	c, err := l.lowerValue(cond)
	if err != nil {
		return err
	}
	i := l.b.If(c)
	prev := l.setBlock(i.True)
	l.b.ExitIf(i)
	l.setBlock(i.False)
	l.b.ExitLoop(loop)
	l.setBlock(prev)
	return nil
}

func (l *Lowerer) continueTo(t target) {
	if t.continuing {
		l.b.Continue(t.loop)
	} else {
		l.b.NextIteration(t.loop)
	}
}

// innermost returns the innermost enclosing loop, or loop or switch when
// loopOnly is false.
func (l *Lowerer) innermost(loopOnly bool) (target, error) {
	for i := len(l.targets) - 1; i >= 0; i-- {
		t := l.targets[i]
		if t.loop != nil || !loopOnly {
			return t, nil
		}
	}
	return target{}, fmt.Errorf("statement is not inside a loop")
}

func (l *Lowerer) lowerSwitch(s *ast.Switch) error {
	sel, err := l.lowerValue(s.Selector)
	if err != nil {
		return err
	}
	sw := l.b.Switch(sel)
	l.targets = append(l.targets, target{sw: sw})
	prev := l.block
	defer func() {
		l.targets = l.targets[:len(l.targets)-1]
		l.setBlock(prev)
	}()

	for _, c := range s.Clauses {
		selectors := make([]ir.CaseSelector, 0, len(c.Selectors))
		for _, cs := range c.Selectors {
			if cs.IsDefault() {
				selectors = append(selectors, ir.CaseSelector{})
				continue
			}
			v, err := l.constExpr(cs.Expr)
			if err != nil {
				return fmt.Errorf("switch case selector: %w", err)
			}
			selectors = append(selectors, ir.CaseSelector{Value: v})
		}
		l.setBlock(l.b.Case(sw, selectors...))
		if err := l.lowerBlock(c.Body); err != nil {
			return err
		}
		if !l.terminated() {
			l.b.ExitSwitch(sw)
		}
	}
	return nil
}
