package resolver

import (
	"strings"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/symbol"
)

// ResolvedKind says what an identifier resolved to.
type ResolvedKind uint8

const (
	// ResolvedDecl is a user declaration: alias, struct, function, module
	// or local variable, or parameter.
	ResolvedDecl ResolvedKind = iota
	ResolvedBuiltinType
	ResolvedBuiltinFunction
	ResolvedEnumerant
)

// ResolvedIdent is the target of one identifier use.
type ResolvedIdent struct {
	Kind ResolvedKind
	// Node is the declaration when Kind is ResolvedDecl.
	Node ast.Node
	// Name is the builtin or enumerant name for the other kinds.
	Name string
}

// DependencyGraph is the result of Build.
type DependencyGraph struct {
	// OrderedGlobals lists the module-scope declarations so that every
	// declaration follows the declarations it uses. enable and requires
	// directives come first.
	OrderedGlobals []ast.Decl
	// ResolvedSymbols maps every identifier use to its target.
	ResolvedSymbols map[*ast.Ident]ResolvedIdent
	// Shadows maps a parameter or local declaration to the outer
	// declaration of the same name it hides.
	Shadows map[ast.Node]ast.Node
}

// Resolved returns the declaration an identifier resolved to, or nil when it
// resolved to a builtin or was not resolved.
func (g *DependencyGraph) Resolved(id *ast.Ident) ast.Node {
	r, ok := g.ResolvedSymbols[id]
	if !ok || r.Kind != ResolvedDecl {
		return nil
	}
	return r.Node
}

// global is a module-scope declaration and the globals it depends on.
type global struct {
	decl ast.Decl
	deps []*global
}

type edge struct {
	from, to *global
}

// depInfo records where a dependency edge came from.
type depInfo struct {
	source diag.Range
	action string
}

// Build resolves every identifier of mod to its declaration, records
// shadowing and sorts the module-scope declarations into dependency order.
// Redeclarations and dependency cycles are errors; unknown identifiers are
// reported and resolution carries on, but no ordering is produced when any
// error was found.
func Build(mod *ast.Module) (*DependencyGraph, diag.List) {
	a := &analysis{
		symbols: mod.Symbols,
		globals: make(map[symbol.Symbol]*global),
		edges:   make(map[edge]depInfo),
		graph: &DependencyGraph{
			ResolvedSymbols: make(map[*ast.Ident]ResolvedIdent),
			Shadows:         make(map[ast.Node]ast.Node),
		},
	}
	a.gatherGlobals(mod)
	a.determineDependencies()
	a.sortGlobals()
	a.graph.OrderedGlobals = directivesFirst(a.sorted)
	return a.graph, a.errs
}

type analysis struct {
	symbols *symbol.Table
	errs    diag.List
	graph   *DependencyGraph

	globals map[symbol.Symbol]*global
	order   []*global
	edges   map[edge]depInfo

	sorted    []ast.Decl
	sortedSet map[ast.Decl]bool
}

func (a *analysis) gatherGlobals(mod *ast.Module) {
	for _, d := range mod.Decls {
		g := &global{decl: d}
		if name := ast.DeclName(d); name != nil {
			// The first declaration wins; later ones are reported as
			// redeclarations by the scanner.
			if _, exists := a.globals[name.Symbol]; !exists {
				a.globals[name.Symbol] = g
			}
		}
		a.order = append(a.order, g)
	}
}

func (a *analysis) determineDependencies() {
	s := &scanner{a: a}
	s.push()
	for sym, g := range a.globals {
		s.scopes[0][sym] = g.decl
	}
	for _, g := range a.order {
		s.scan(g)
	}
}

// sortGlobals performs a depth-first post-order walk of the dependency
// edges from every global in declaration order.
func (a *analysis) sortGlobals() {
	if a.errs.ContainsErrors() {
		return
	}
	a.sortedSet = make(map[ast.Decl]bool, len(a.order))
	add := func(d ast.Decl) {
		if !a.sortedSet[d] {
			a.sortedSet[d] = true
			a.sorted = append(a.sorted, d)
		}
	}

	for _, root := range a.order {
		var stack []*global
		onStack := make(map[*global]bool)
		enter := func(g *global) bool {
			if onStack[g] {
				a.cyclicDependencyFound(g, stack)
				return false
			}
			if a.sortedSet[g.decl] {
				return false
			}
			stack = append(stack, g)
			onStack[g] = true
			return true
		}
		exit := func(g *global) {
			add(g.decl)
			stack = stack[:len(stack)-1]
			delete(onStack, g)
		}
		traverseDependencies(root, enter, exit)
		add(root.decl)
	}
}

// traverseDependencies walks the dependencies of root with an explicit
// stack. exit is only called for globals that enter accepted.
func traverseDependencies(root *global, enter func(*global) bool, exit func(*global)) {
	type entry struct {
		g      *global
		depIdx int
	}
	if !enter(root) {
		return
	}
	stack := []entry{{g: root}}
	for {
		top := &stack[len(stack)-1]
		if top.depIdx < len(top.g.deps) {
			dep := top.g.deps[top.depIdx]
			if enter(dep) {
				stack = append(stack, entry{g: dep})
			} else {
				top.depIdx++
			}
			continue
		}
		exit(top.g)
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return
		}
		stack[len(stack)-1].depIdx++
	}
}

func (a *analysis) cyclicDependencyFound(root *global, stack []*global) {
	start := -1
	var msg strings.Builder
	msg.WriteString("cyclic dependency found: ")
	for i, g := range stack {
		if start < 0 && g == root {
			start = i
		}
		if start >= 0 {
			msg.WriteString("'" + a.nameOf(g) + "' -> ")
		}
	}
	msg.WriteString("'" + a.nameOf(root) + "'")
	a.errs.AddError(root.decl.Range(), "%s", msg.String())

	if start < 0 {
		return
	}
	for i := start; i < len(stack); i++ {
		from := stack[i]
		to := stack[start]
		if i+1 < len(stack) {
			to = stack[i+1]
		}
		info := a.edges[edge{from, to}]
		a.errs.AddNote(info.source, "%s '%s' %s %s '%s' here",
			ast.KindOf(from.decl), a.nameOf(from), info.action,
			ast.KindOf(to.decl), a.nameOf(to))
	}
}

func (a *analysis) nameOf(g *global) string {
	if name := ast.DeclName(g.decl); name != nil {
		return name.Name
	}
	return ast.KindOf(g.decl)
}

// directivesFirst moves enable and requires directives to the front,
// keeping the relative order of everything else.
func directivesFirst(sorted []ast.Decl) []ast.Decl {
	if sorted == nil {
		return nil
	}
	out := make([]ast.Decl, 0, len(sorted))
	for _, d := range sorted {
		switch d.(type) {
		case *ast.Enable, *ast.Requires:
			out = append(out, d)
		}
	}
	for _, d := range sorted {
		switch d.(type) {
		case *ast.Enable, *ast.Requires:
		default:
			out = append(out, d)
		}
	}
	return out
}

// scanner walks declarations with a scope stack, resolving identifiers and
// recording global-to-global edges.
type scanner struct {
	a       *analysis
	scopes  []map[symbol.Symbol]ast.Node
	current *global
}

func (s *scanner) push() { s.scopes = append(s.scopes, make(map[symbol.Symbol]ast.Node)) }
func (s *scanner) pop()  { s.scopes = s.scopes[:len(s.scopes)-1] }

func (s *scanner) lookup(sym symbol.Symbol) ast.Node {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if n, ok := s.scopes[i][sym]; ok {
			return n
		}
	}
	return nil
}

// lookupOuter finds sym in any scope but the innermost.
func (s *scanner) lookupOuter(sym symbol.Symbol) ast.Node {
	for i := len(s.scopes) - 2; i >= 0; i-- {
		if n, ok := s.scopes[i][sym]; ok {
			return n
		}
	}
	return nil
}

// declare adds name to the innermost scope. A name already declared in the
// same scope by a different node is a redeclaration.
func (s *scanner) declare(name *ast.Ident, node ast.Node) {
	top := s.scopes[len(s.scopes)-1]
	if old, ok := top[name.Symbol]; ok && old != node {
		s.a.errs.AddError(name.Range(), "redeclaration of '%s'", name.Name)
		s.a.errs.AddNote(declRange(old), "'%s' previously declared here", name.Name)
		return
	}
	top[name.Symbol] = node
}

// declareLocal declares a parameter or local, recording any shadowed outer
// declaration.
func (s *scanner) declareLocal(name *ast.Ident, node ast.Node) {
	if outer := s.lookupOuter(name.Symbol); outer != nil {
		if _, sameScope := s.scopes[len(s.scopes)-1][name.Symbol]; !sameScope {
			s.a.graph.Shadows[node] = outer
		}
	}
	s.declare(name, node)
}

// declRange returns the range of the name of a declaration.
func declRange(n ast.Node) diag.Range {
	switch n := n.(type) {
	case ast.Decl:
		if name := ast.DeclName(n); name != nil {
			return name.Range()
		}
	case ast.Variable:
		return n.VarName().Range()
	}
	return n.Range()
}

func (s *scanner) scan(g *global) {
	s.current = g
	defer func() { s.current = nil }()

	switch d := g.decl.(type) {
	case *ast.Struct:
		s.declare(d.Name, d)
		for _, m := range d.Members {
			s.traverseAttributes(m.Attrs)
			s.traverseType(m.Type)
		}
	case *ast.Alias:
		s.declare(d.Name, d)
		s.traverseType(d.Type)
	case *ast.Function:
		s.declare(d.Name, d)
		s.traverseAttributes(d.Attrs)
		s.traverseFunction(d)
	case *ast.Var:
		s.declare(d.Name, d)
		s.traverseAttributes(d.Attrs)
		s.traverseType(d.Type)
		s.traverseExpression(d.Init)
	case *ast.Const:
		s.declare(d.Name, d)
		s.traverseType(d.Type)
		s.traverseExpression(d.Init)
	case *ast.Override:
		s.declare(d.Name, d)
		s.traverseAttributes(d.Attrs)
		s.traverseType(d.Type)
		s.traverseExpression(d.Init)
	case *ast.ConstAssert:
		s.traverseExpression(d.Cond)
	case *ast.Enable, *ast.Requires:
	}
}

func (s *scanner) traverseFunction(fn *ast.Function) {
	// Parameter types resolve before the parameters are declared, so a
	// parameter may share the name of its type.
	for _, p := range fn.Params {
		s.traverseAttributes(p.Attrs)
		s.traverseType(p.Type)
	}
	s.traverseAttributes(fn.ReturnAttrs)
	s.traverseType(fn.ReturnType)

	s.push()
	defer s.pop()
	for _, p := range fn.Params {
		s.declareLocal(p.Name, p)
	}
	// Parameters and the outermost locals share one scope.
	if fn.Body != nil {
		s.traverseStatements(fn.Body.Stmts)
	}
}

func (s *scanner) traverseStatements(stmts []ast.Stmt) {
	for _, st := range stmts {
		s.traverseStatement(st)
	}
}

//nolint:gocyclo // one case per statement kind
func (s *scanner) traverseStatement(stmt ast.Stmt) {
	switch st := stmt.(type) {
	case nil:
	case *ast.Block:
		if st == nil {
			return
		}
		s.push()
		s.traverseStatements(st.Stmts)
		s.pop()
	case *ast.Assign:
		s.traverseExpression(st.LHS)
		s.traverseExpression(st.RHS)
	case *ast.CompoundAssign:
		s.traverseExpression(st.LHS)
		s.traverseExpression(st.RHS)
	case *ast.IncDec:
		s.traverseExpression(st.LHS)
	case *ast.PhonyAssign:
		s.traverseExpression(st.RHS)
	case *ast.CallStmt:
		s.traverseExpression(st.Call)
	case *ast.Return:
		s.traverseExpression(st.Value)
	case *ast.If:
		s.traverseExpression(st.Cond)
		s.traverseStatement(st.Body)
		s.traverseStatement(st.Else)
	case *ast.For:
		s.push()
		s.traverseStatement(st.Init)
		s.traverseExpression(st.Cond)
		s.traverseStatement(st.Update)
		s.traverseStatement(st.Body)
		s.pop()
	case *ast.While:
		s.traverseExpression(st.Cond)
		s.traverseStatement(st.Body)
	case *ast.Loop:
		// The continuing block sees the declarations of the body.
		s.push()
		if st.Body != nil {
			s.traverseStatements(st.Body.Stmts)
		}
		s.traverseStatement(st.Continuing)
		s.pop()
	case *ast.Switch:
		s.traverseExpression(st.Selector)
		for _, c := range st.Clauses {
			for _, sel := range c.Selectors {
				s.traverseExpression(sel.Expr)
			}
			s.traverseStatement(c.Body)
		}
	case *ast.BreakIf:
		s.traverseExpression(st.Cond)
	case *ast.ConstAssert:
		s.traverseExpression(st.Cond)
	case *ast.DeclStmt:
		v := st.Decl
		s.traverseType(v.VarType())
		s.traverseExpression(v.Initializer())
		s.declareLocal(v.VarName(), v)
	case *ast.Break, *ast.Continue, *ast.Discard:
	}
}

func (s *scanner) traverseAttributes(attrs []*ast.Attribute) {
	for _, attr := range attrs {
		if _, named := attributesWithNames[attr.Name]; named {
			continue
		}
		for _, arg := range attr.Args {
			s.traverseExpression(arg)
		}
	}
}

// traverseExpression resolves every identifier in root. The walk uses an
// explicit stack.
func (s *scanner) traverseExpression(root ast.Expr) {
	if root == nil {
		return
	}
	stack := []ast.Expr{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch e := e.(type) {
		case *ast.Ident:
			s.addDependency(e, "identifier", "references")
			s.traverseTemplate(e)
		case *ast.Call:
			if e == nil {
				continue
			}
			s.addDependency(e.Target, "function", "calls")
			s.traverseTemplate(e.Target)
			for i := len(e.Args) - 1; i >= 0; i-- {
				stack = append(stack, e.Args[i])
			}
		case *ast.Member:
			stack = append(stack, e.X)
		case *ast.Index:
			stack = append(stack, e.Index, e.X)
		case *ast.Unary:
			stack = append(stack, e.X)
		case *ast.Binary:
			stack = append(stack, e.R, e.L)
		case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral:
		}
	}
}

// traverseType resolves a type reference and its template arguments.
func (s *scanner) traverseType(id *ast.Ident) {
	if id == nil {
		return
	}
	s.addDependency(id, "type", "references")
	s.traverseTemplate(id)
}

func (s *scanner) traverseTemplate(id *ast.Ident) {
	if len(id.Template) == 0 {
		return
	}
	// Templates of user declarations are rejected by the resolver; their
	// arguments are still resolved.
	generator := ""
	if r, ok := s.a.graph.ResolvedSymbols[id]; ok && r.Kind != ResolvedDecl {
		generator = r.Name
	}
	for i, arg := range id.Template {
		kind := templateArgKind(generator, i)
		argID, isIdent := arg.(*ast.Ident)
		switch {
		case kind == templateEnum && isIdent && len(argID.Template) == 0 && IsEnumerant(argID.Name) &&
			s.lookup(argID.Symbol) == nil:
			s.a.graph.ResolvedSymbols[argID] = ResolvedIdent{Kind: ResolvedEnumerant, Name: argID.Name}
		case kind == templateType && isIdent:
			s.traverseType(argID)
		default:
			s.traverseExpression(arg)
		}
	}
}

// addDependency resolves from and, when it names a global while a global is
// being scanned, records a dependency edge.
func (s *scanner) addDependency(from *ast.Ident, use, action string) {
	resolved := s.lookup(from.Symbol)
	if resolved == nil {
		switch {
		case IsBuiltinType(from.Name):
			s.a.graph.ResolvedSymbols[from] = ResolvedIdent{Kind: ResolvedBuiltinType, Name: from.Name}
		case IsBuiltinFunction(from.Name):
			s.a.graph.ResolvedSymbols[from] = ResolvedIdent{Kind: ResolvedBuiltinFunction, Name: from.Name}
		default:
			s.a.errs.AddError(from.Range(), "unknown %s: '%s'", use, from.Name)
		}
		return
	}

	if g, ok := s.a.globals[from.Symbol]; ok && s.current != nil && g.decl == resolved {
		e := edge{from: s.current, to: g}
		if _, seen := s.a.edges[e]; !seen {
			s.a.edges[e] = depInfo{source: from.Range(), action: action}
			s.current.deps = append(s.current.deps, g)
		}
	}
	s.a.graph.ResolvedSymbols[from] = ResolvedIdent{Kind: ResolvedDecl, Node: resolved}
}
