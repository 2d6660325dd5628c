package resolver

import (
	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/types"
)

func (r *resolver) block(b *ast.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		r.stmt(s)
	}
}

//nolint:gocyclo // one case per statement kind
func (r *resolver) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.Block:
		r.block(s)
	case *ast.DeclStmt:
		r.localDecl(s.Decl)
	case *ast.Assign:
		r.assign(s.LHS, s.RHS)
	case *ast.CompoundAssign:
		r.compoundAssign(s)
	case *ast.IncDec:
		lhs := r.expr(s.LHS)
		if lhs == nil {
			return
		}
		ref, ok := r.storable(s.LHS, lhs)
		if !ok {
			return
		}
		if !types.IsInteger(ref.Store) || types.IsAbstract(ref.Store) {
			r.errorf(s.Range(), "%s statement can only be applied to an integer scalar", incDecName(s))
		}
	case *ast.PhonyAssign:
		rhs := r.expr(s.RHS)
		if rhs == nil {
			return
		}
		t := types.UnwrapRef(rhs.Type)
		if _, isVoid := t.(*types.Void); isVoid {
			r.errorf(s.RHS.Range(), "cannot assign void value to phony assignment")
			return
		}
		r.convert(s.RHS, rhs, r.tm.Materialize(t))
	case *ast.Return:
		r.returnStmt(s)
	case *ast.If:
		r.condition(s.Cond, "if")
		r.block(s.Body)
		if s.Else != nil {
			r.stmt(s.Else)
		}
	case *ast.Loop:
		saved := r.continuing
		r.continuing = false
		r.loopDepth++
		r.block(s.Body)
		if s.Continuing != nil {
			r.continuing = true
			r.block(s.Continuing)
		}
		r.loopDepth--
		r.continuing = saved
	case *ast.For:
		if s.Init != nil {
			r.stmt(s.Init)
		}
		if s.Cond != nil {
			r.condition(s.Cond, "for-loop")
		}
		saved := r.continuing
		r.continuing = false
		r.loopDepth++
		if s.Update != nil {
			r.stmt(s.Update)
		}
		r.block(s.Body)
		r.loopDepth--
		r.continuing = saved
	case *ast.While:
		r.condition(s.Cond, "while")
		saved := r.continuing
		r.continuing = false
		r.loopDepth++
		r.block(s.Body)
		r.loopDepth--
		r.continuing = saved
	case *ast.Switch:
		r.switchStmt(s)
	case *ast.Break:
		switch {
		case r.loopDepth == 0 && r.switchDepth == 0:
			r.errorf(s.Range(), "break statement must be in a loop or switch case")
		case r.continuing:
			r.errorf(s.Range(), "`break` must not be used to exit from a continuing block. Use `break if` instead.")
		}
	case *ast.BreakIf:
		if !r.continuing {
			r.errorf(s.Range(), "break-if must be the last statement in a continuing block")
		}
		r.condition(s.Cond, "break-if")
	case *ast.Continue:
		switch {
		case r.loopDepth == 0:
			r.errorf(s.Range(), "continue statement must be in a loop")
		case r.continuing:
			r.errorf(s.Range(), "continuing blocks must not contain a continue statement")
		}
	case *ast.Discard:
		if r.fn != nil && r.fn.Stage != "" && r.fn.Stage != "fragment" {
			r.errorf(s.Range(), "discard statement cannot be used in %s pipeline stage", r.fn.Stage)
		}
	case *ast.CallStmt:
		r.callStmt(s)
	case *ast.ConstAssert:
		r.constAssert(s)
	}
}

func incDecName(s *ast.IncDec) string {
	if s.Increment {
		return "increment"
	}
	return "decrement"
}

func (r *resolver) localDecl(v ast.Variable) {
	switch d := v.(type) {
	case *ast.Var:
		info := &DeclInfo{Space: types.SpaceFunction, Access: types.ReadWrite, Stage: Runtime, OverrideID: -1}
		r.info.Decls[d] = info
		if d.AddressSpace != "" && d.AddressSpace != "function" {
			r.errorf(d.Range(), "function-scope 'var' declaration must use 'function' address space")
			return
		}
		if d.Access != "" {
			r.errorf(d.Range(), "only variables in <storage> address space may specify an access mode")
		}
		var store types.Type
		if d.Type != nil {
			if store = r.typeRef(d.Type); store == nil {
				return
			}
		}
		if d.Init != nil {
			store = r.initializer(d.Init, store)
		}
		if store == nil {
			if d.Type == nil && d.Init == nil {
				r.errorf(d.Range(), "var declaration requires a type or initializer")
			}
			return
		}
		if !types.IsConstructible(store) {
			r.errorf(d.Range(), "function-scope 'var' must have a constructible type")
			return
		}
		info.Type = store
	case *ast.Let:
		info := &DeclInfo{Stage: Runtime, OverrideID: -1}
		r.info.Decls[d] = info
		var declared types.Type
		if d.Type != nil {
			if declared = r.typeRef(d.Type); declared == nil {
				return
			}
		}
		if d.Init == nil {
			r.errorf(d.Range(), "'let' declaration must have an initializer")
			return
		}
		t := r.initializer(d.Init, declared)
		if t == nil {
			return
		}
		if !types.IsConstructible(t) {
			if _, isPtr := t.(*types.Pointer); !isPtr {
				r.errorf(d.Range(), "type '%s' cannot be used in a let declaration", typeName(t))
				return
			}
		}
		info.Type = t
	case *ast.Const:
		r.constDecl(d)
	}
}

// storable checks that e names writable memory.
func (r *resolver) storable(e ast.Expr, ei *ExprInfo) (*types.Reference, bool) {
	ref, ok := ei.Type.(*types.Reference)
	if !ok {
		r.errorf(e.Range(), "cannot assign to value of type '%s'", typeName(ei.Type))
		return nil, false
	}
	if ref.Access == types.Read {
		r.errorf(e.Range(), "cannot store into a read-only type '%s'", ref)
		return nil, false
	}
	return ref, true
}

func (r *resolver) assign(lhsExpr, rhsExpr ast.Expr) {
	rhs := r.expr(rhsExpr)
	lhs := r.expr(lhsExpr)
	if lhs == nil || rhs == nil {
		return
	}
	ref, ok := r.storable(lhsExpr, lhs)
	if !ok {
		return
	}
	if !types.IsConstructible(ref.Store) {
		r.errorf(lhsExpr.Range(), "storage type of assignment must be constructible")
		return
	}
	if !r.convert(rhsExpr, rhs, ref.Store) {
		r.errorf(rhsExpr.Range(), "cannot assign '%s' to '%s'", typeName(rhs.Type), typeName(ref.Store))
	}
}

func (r *resolver) compoundAssign(s *ast.CompoundAssign) {
	lhs := r.expr(s.LHS)
	if lhs == nil {
		return
	}
	ref, ok := r.storable(s.LHS, lhs)
	if !ok {
		return
	}
	// Type the operation as the binary expression it abbreviates.
	op := &ast.Binary{Base: ast.Base{NodeID: s.NodeID, Source: s.Source}, Op: s.Op, L: s.LHS, R: s.RHS}
	res := r.expr(op)
	if res == nil {
		return
	}
	if types.UnwrapRef(res.Type) != ref.Store {
		r.errorf(s.Range(), "cannot assign '%s' to '%s'", typeName(res.Type), typeName(ref.Store))
	}
}

func (r *resolver) returnStmt(s *ast.Return) {
	if r.fn == nil {
		return
	}
	want := r.fn.Return
	if want == nil {
		return
	}
	_, wantVoid := want.(*types.Void)
	if s.Value == nil {
		if !wantVoid {
			r.errorf(s.Range(), "return statement type must match its function return type, returned 'void', expected '%s'", want)
		}
		return
	}
	ei := r.expr(s.Value)
	if ei == nil {
		return
	}
	if !r.convert(s.Value, ei, want) {
		r.errorf(s.Range(), "return statement type must match its function return type, returned '%s', expected '%s'",
			typeName(ei.Type), want)
	}
}

func (r *resolver) condition(e ast.Expr, what string) {
	ei := r.expr(e)
	if ei == nil {
		return
	}
	if t := types.UnwrapRef(ei.Type); !types.IsBool(t) {
		r.errorf(e.Range(), "%s condition must be bool, got %s", what, typeName(t))
	}
}

func (r *resolver) switchStmt(s *ast.Switch) {
	sel := r.expr(s.Selector)
	var selType types.Type
	if sel != nil {
		selType = types.UnwrapRef(sel.Type)
		if !types.IsInteger(selType) || !types.IsScalar(selType) {
			r.errorf(s.Selector.Range(), "switch statement selector expression must be of a scalar integer type")
			selType = nil
		}
	}

	// The selector and the case values share one type: the common type of
	// all of them, materialized.
	var exprs []ast.Expr
	var infos []*ExprInfo
	defaults := 0
	for _, c := range s.Clauses {
		for _, cs := range c.Selectors {
			if cs.IsDefault() {
				defaults++
				if defaults > 1 {
					r.errorf(c.Range(), "switch statement must have exactly one default clause")
				}
				continue
			}
			ei := r.expr(cs.Expr)
			if ei == nil {
				continue
			}
			if ei.Stage != Const || ei.Value == nil {
				r.errorf(cs.Expr.Range(), "case selector must be a constant expression")
				continue
			}
			exprs = append(exprs, cs.Expr)
			infos = append(infos, ei)
		}
	}
	if defaults == 0 {
		r.errorf(s.Range(), "switch statement must have exactly one default clause")
	}
	if selType != nil {
		ts := []types.Type{selType}
		for _, ei := range infos {
			ts = append(ts, types.UnwrapRef(ei.Type))
		}
		common := commonType(ts)
		if common == nil {
			r.errorf(s.Range(), "the case selector values must have the same type as the selector expression")
		} else {
			common = r.tm.Materialize(common)
			r.convert(s.Selector, sel, common)
			seen := make(map[int64]bool, len(infos))
			for i, ei := range infos {
				r.convert(exprs[i], ei, common)
				if ei.Value == nil {
					continue
				}
				if seen[ei.Value.I] {
					r.errorf(exprs[i].Range(), "duplicate switch case '%s'", ei.Value)
				}
				seen[ei.Value.I] = true
			}
		}
	}

	saved := r.continuing
	r.continuing = false
	r.switchDepth++
	for _, c := range s.Clauses {
		r.block(c.Body)
	}
	r.switchDepth--
	r.continuing = saved
}

func (r *resolver) callStmt(s *ast.CallStmt) {
	ei := r.expr(s.Call)
	if ei == nil {
		return
	}
	ci := r.info.Calls[s.Call]
	if ci == nil {
		return
	}
	switch ci.Kind {
	case CallConstructor, CallConversion, CallBitcast:
		r.errorf(s.Range(), "value constructor evaluated but not used")
	case CallBuiltin:
		if _, isVoid := ci.Type.(*types.Void); !isVoid {
			if _, atomic := atomicBuiltins[ci.Builtin]; !atomic {
				r.errorf(s.Range(), "ignoring return value of builtin '%s'", ci.Builtin)
			}
		}
	}
}
