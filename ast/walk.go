package ast

// Children returns the direct children of n in source order. Nil children
// are omitted.
//
//nolint:gocyclo // one case per node kind
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		switch c := c.(type) {
		case nil:
		case *Ident:
			if c != nil {
				out = append(out, c)
			}
		case *Block:
			if c != nil {
				out = append(out, c)
			}
		case *Call:
			if c != nil {
				out = append(out, c)
			}
		default:
			out = append(out, c)
		}
	}
	addExprs := func(es []Expr) {
		for _, e := range es {
			add(e)
		}
	}
	addAttrs := func(as []*Attribute) {
		for _, a := range as {
			out = append(out, a)
		}
	}

	switch n := n.(type) {
	case *Attribute:
		addExprs(n.Args)
	case *Alias:
		add(n.Name)
		add(n.Type)
	case *Struct:
		addAttrs(n.Attrs)
		add(n.Name)
		for _, m := range n.Members {
			out = append(out, m)
		}
	case *StructMember:
		addAttrs(n.Attrs)
		add(n.Name)
		add(n.Type)
	case *Var:
		addAttrs(n.Attrs)
		add(n.Name)
		add(n.Type)
		add(n.Init)
	case *Const:
		add(n.Name)
		add(n.Type)
		add(n.Init)
	case *Override:
		addAttrs(n.Attrs)
		add(n.Name)
		add(n.Type)
		add(n.Init)
	case *Let:
		add(n.Name)
		add(n.Type)
		add(n.Init)
	case *Param:
		addAttrs(n.Attrs)
		add(n.Name)
		add(n.Type)
	case *Function:
		addAttrs(n.Attrs)
		add(n.Name)
		for _, p := range n.Params {
			out = append(out, p)
		}
		addAttrs(n.ReturnAttrs)
		add(n.ReturnType)
		add(n.Body)
	case *ConstAssert:
		add(n.Cond)
	case *Enable, *Requires:

	case *Block:
		for _, s := range n.Stmts {
			add(s)
		}
	case *DeclStmt:
		add(n.Decl)
	case *Assign:
		add(n.LHS)
		add(n.RHS)
	case *CompoundAssign:
		add(n.LHS)
		add(n.RHS)
	case *IncDec:
		add(n.LHS)
	case *PhonyAssign:
		add(n.RHS)
	case *Return:
		add(n.Value)
	case *If:
		add(n.Cond)
		add(n.Body)
		add(n.Else)
	case *Loop:
		add(n.Body)
		add(n.Continuing)
	case *For:
		add(n.Init)
		add(n.Cond)
		add(n.Update)
		add(n.Body)
	case *While:
		add(n.Cond)
		add(n.Body)
	case *Switch:
		add(n.Selector)
		for _, c := range n.Clauses {
			out = append(out, c)
		}
	case *CaseClause:
		for _, s := range n.Selectors {
			add(s.Expr)
		}
		add(n.Body)
	case *BreakIf:
		add(n.Cond)
	case *CallStmt:
		add(n.Call)
	case *Break, *Continue, *Discard:

	case *Ident:
		addExprs(n.Template)
	case *Unary:
		add(n.X)
	case *Binary:
		add(n.L)
		add(n.R)
	case *Call:
		add(n.Target)
		addExprs(n.Args)
	case *Index:
		add(n.X)
		add(n.Index)
	case *Member:
		add(n.X)
		add(n.Member)
	case *IntLiteral, *FloatLiteral, *BoolLiteral:
	}
	return out
}

// Inspect traverses the tree rooted at root in depth-first pre-order. If f
// returns false the children of the node are skipped. The traversal uses an
// explicit stack, so arbitrarily deep trees do not grow the goroutine stack.
func Inspect(root Node, f func(Node) bool) {
	if root == nil {
		return
	}
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f(n) {
			continue
		}
		kids := Children(n)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// InspectModule runs Inspect over every declaration of m.
func InspectModule(m *Module, f func(Node) bool) {
	for _, d := range m.Decls {
		Inspect(d, f)
	}
}
