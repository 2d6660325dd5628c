package wgsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/symbol"
)

// Parser parses WGSL tokens into an AST.
type Parser struct {
	tokens  []Token
	current int
	errors  diag.List
	symbols *symbol.Table
	nextID  ast.NodeID
	depth   int
}

// ParseError represents a parsing error.
type ParseError struct {
	Message string
	Token   Token
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Token.Line, e.Token.Column, e.Message)
}

// Parse tokenizes and parses source. The module is nil when the source
// could not be tokenized; otherwise it holds every declaration that parsed
// successfully, and the list holds the errors of the rest.
func Parse(source string) (*ast.Module, diag.List) {
	tokens, errs := NewLexer(source).Tokenize()
	if errs.ContainsErrors() {
		return nil, errs
	}
	return NewParser(tokens).Parse()
}

// NewParser creates a new parser for the given tokens.
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:  discoverTemplates(tokens),
		current: 0,
		symbols: symbol.NewTable(),
	}
}

// Parse parses the tokens and returns a Module AST.
func (p *Parser) Parse() (*ast.Module, diag.List) {
	module := &ast.Module{Symbols: p.symbols}

	for !p.isAtEnd() {
		from := p.current
		decl, err := p.declaration()
		if err != nil {
			p.errors.AddError(err.Token.Range(), "%s", err.Message)
			p.synchronize(from)
			continue
		}
		if decl != nil {
			module.Decls = append(module.Decls, decl)
		}
	}

	module.NodeCount = int(p.nextID)
	return module, p.errors
}

// declaration parses a top-level declaration.
func (p *Parser) declaration() (ast.Decl, *ParseError) {
	start := p.peek()
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}

	switch {
	case p.check(TokenFn):
		return p.functionDecl(start, attrs)
	case p.check(TokenStruct):
		return p.structDecl(start, attrs)
	case p.check(TokenVar):
		v, err := p.varDecl(start, attrs)
		if err != nil {
			return nil, err
		}
		return v, p.expectErr(TokenSemicolon)
	case p.check(TokenOverride):
		return p.overrideDecl(start, attrs)
	}

	if len(attrs) > 0 {
		return nil, p.errorf(p.peek(), "unexpected attributes before %s", describe(p.peek()))
	}

	switch {
	case p.check(TokenConst):
		c, err := p.constDecl()
		if err != nil {
			return nil, err
		}
		return c, p.expectErr(TokenSemicolon)
	case p.check(TokenLet):
		return nil, p.errorf(p.peek(), "module-scope 'let' is invalid, use 'const'")
	case p.check(TokenAlias):
		return p.aliasDecl()
	case p.check(TokenEnable):
		return p.enableDirective()
	case p.check(TokenRequires):
		return p.requiresDirective()
	case p.check(TokenDiagnostic):
		return nil, p.diagnosticDirective()
	case p.check(TokenConstAssert):
		return p.constAssert()
	case p.match(TokenSemicolon):
		return nil, nil
	case p.check(TokenEOF):
		return nil, nil
	default:
		tok := p.peek()
		return nil, p.errorf(tok, "unexpected %s, expected declaration", describe(tok))
	}
}

// enableDirective parses enable ext[, ext]*;
func (p *Parser) enableDirective() (*ast.Enable, *ParseError) {
	start := p.advance()
	names, err := p.nameList("extension")
	if err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.Enable{Base: p.base(start), Extensions: names}, nil
}

// requiresDirective parses requires feature[, feature]*;
func (p *Parser) requiresDirective() (*ast.Requires, *ParseError) {
	start := p.advance()
	names, err := p.nameList("language feature")
	if err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.Requires{Base: p.base(start), Features: names}, nil
}

// diagnosticDirective skips diagnostic(severity, rule);
// Diagnostic filtering is not modelled.
func (p *Parser) diagnosticDirective() *ParseError {
	p.advance()
	if err := p.expectErr(TokenLeftParen); err != nil {
		return err
	}
	for !p.check(TokenRightParen) && !p.isAtEnd() {
		p.advance()
	}
	if err := p.expectErr(TokenRightParen); err != nil {
		return err
	}
	return p.expectErr(TokenSemicolon)
}

func (p *Parser) nameList(what string) ([]string, *ParseError) {
	var names []string
	for {
		if !p.check(TokenIdent) {
			return nil, p.errorf(p.peek(), "expected %s name, got %s", what, describe(p.peek()))
		}
		names = append(names, p.advance().Lexeme)
		if !p.match(TokenComma) || p.check(TokenSemicolon) {
			break
		}
	}
	return names, nil
}

// constAssert parses const_assert expr; at module or function scope.
func (p *Parser) constAssert() (*ast.ConstAssert, *ParseError) {
	start := p.advance()
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.ConstAssert{Base: p.base(start), Cond: cond}, nil
}

// attributes parses a list of attributes (@location(0), @vertex, etc.)
func (p *Parser) attributes() ([]*ast.Attribute, *ParseError) {
	var attrs []*ast.Attribute

	for p.check(TokenAt) {
		start := p.advance() // consume @

		// diagnostic and const are keywords but valid attribute names.
		if !p.check(TokenIdent) && !p.check(TokenDiagnostic) && !p.check(TokenConst) {
			return nil, p.errorf(p.peek(), "expected attribute name, got %s", describe(p.peek()))
		}
		name := p.advance()

		var args []ast.Expr
		if p.match(TokenLeftParen) {
			for !p.check(TokenRightParen) && !p.isAtEnd() {
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(TokenComma) {
					break
				}
			}
			if err := p.expectErr(TokenRightParen); err != nil {
				return nil, err
			}
		}
		attrs = append(attrs, &ast.Attribute{Base: p.base(start), Name: name.Lexeme, Args: args})
	}

	return attrs, nil
}

// functionDecl parses a function declaration.
func (p *Parser) functionDecl(start Token, attrs []*ast.Attribute) (*ast.Function, *ParseError) {
	p.advance() // consume 'fn'

	if !p.check(TokenIdent) {
		return nil, p.errorf(p.peek(), "expected function name, got %s", describe(p.peek()))
	}
	name := p.ident(p.advance())

	if err := p.expectErr(TokenLeftParen); err != nil {
		return nil, err
	}

	params := make([]*ast.Param, 0, 4) // most functions have few params
	for !p.check(TokenRightParen) && !p.isAtEnd() {
		param, err := p.parameter()
		if err != nil {
			return nil, err
		}
		params = append(params, param)

		if !p.match(TokenComma) {
			break
		}
	}

	if err := p.expectErr(TokenRightParen); err != nil {
		return nil, err
	}

	// Return type (optional)
	var returnType *ast.Ident
	var returnAttrs []*ast.Attribute
	if p.match(TokenArrow) {
		ra, err := p.attributes()
		if err != nil {
			return nil, err
		}
		returnAttrs = ra
		rt, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		returnType = rt
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.Function{
		Base:        p.base(start),
		Name:        name,
		Params:      params,
		ReturnType:  returnType,
		ReturnAttrs: returnAttrs,
		Body:        body,
		Attrs:       attrs,
	}, nil
}

// parameter parses a function parameter.
func (p *Parser) parameter() (*ast.Param, *ParseError) {
	start := p.peek()
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}

	if !p.check(TokenIdent) {
		return nil, p.errorf(p.peek(), "expected parameter name, got %s", describe(p.peek()))
	}
	name := p.ident(p.advance())

	if err := p.expectErr(TokenColon); err != nil {
		return nil, err
	}

	paramType, err := p.typeSpec()
	if err != nil {
		return nil, err
	}

	return &ast.Param{Base: p.base(start), Name: name, Type: paramType, Attrs: attrs}, nil
}

// structDecl parses a struct declaration.
func (p *Parser) structDecl(start Token, attrs []*ast.Attribute) (*ast.Struct, *ParseError) {
	p.advance() // consume 'struct'

	if !p.check(TokenIdent) {
		return nil, p.errorf(p.peek(), "expected struct name, got %s", describe(p.peek()))
	}
	name := p.ident(p.advance())

	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, err
	}

	members := make([]*ast.StructMember, 0, 4) // most structs have a few members
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		member, err := p.structMember()
		if err != nil {
			return nil, err
		}
		members = append(members, member)

		if !p.match(TokenComma) && !p.check(TokenRightBrace) {
			return nil, p.errorf(p.peek(), "expected ',' or '}' after struct member, got %s", describe(p.peek()))
		}
	}

	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, err
	}
	p.match(TokenSemicolon)

	return &ast.Struct{Base: p.base(start), Name: name, Members: members, Attrs: attrs}, nil
}

// structMember parses a struct member.
func (p *Parser) structMember() (*ast.StructMember, *ParseError) {
	start := p.peek()
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}

	if !p.check(TokenIdent) {
		return nil, p.errorf(p.peek(), "expected member name, got %s", describe(p.peek()))
	}
	name := p.ident(p.advance())

	if err := p.expectErr(TokenColon); err != nil {
		return nil, err
	}

	memberType, err := p.typeSpec()
	if err != nil {
		return nil, err
	}

	return &ast.StructMember{Base: p.base(start), Name: name, Type: memberType, Attrs: attrs}, nil
}

// varDecl parses a variable declaration without its terminating ';'.
func (p *Parser) varDecl(start Token, attrs []*ast.Attribute) (*ast.Var, *ParseError) {
	p.advance() // consume 'var'

	// Optional address space and access mode: var<storage, read_write>
	var addressSpace, accessMode string
	if p.match(TokenTemplateStart) {
		if !p.check(TokenIdent) {
			return nil, p.errorf(p.peek(), "expected address space, got %s", describe(p.peek()))
		}
		addressSpace = p.advance().Lexeme
		if p.match(TokenComma) && p.check(TokenIdent) {
			accessMode = p.advance().Lexeme
			p.match(TokenComma)
		}
		if err := p.expectErr(TokenTemplateEnd); err != nil {
			return nil, err
		}
	}

	if !p.check(TokenIdent) {
		return nil, p.errorf(p.peek(), "expected variable name, got %s", describe(p.peek()))
	}
	name := p.ident(p.advance())

	var varType *ast.Ident
	if p.match(TokenColon) {
		t, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		varType = t
	}

	var init ast.Expr
	if p.match(TokenEqual) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		init = e
	}

	return &ast.Var{
		Base:         p.base(start),
		Name:         name,
		AddressSpace: addressSpace,
		Access:       accessMode,
		Type:         varType,
		Init:         init,
		Attrs:        attrs,
	}, nil
}

// typedInit parses name [: type] = init shared by const, let and override.
func (p *Parser) typedInit(keyword string, initRequired bool) (*ast.Ident, *ast.Ident, ast.Expr, *ParseError) {
	if !p.check(TokenIdent) {
		return nil, nil, nil, p.errorf(p.peek(), "expected %s name, got %s", keyword, describe(p.peek()))
	}
	name := p.ident(p.advance())

	var typ *ast.Ident
	if p.match(TokenColon) {
		t, err := p.typeSpec()
		if err != nil {
			return nil, nil, nil, err
		}
		typ = t
	}

	if !initRequired && !p.check(TokenEqual) {
		return name, typ, nil, nil
	}
	if !p.match(TokenEqual) {
		return nil, nil, nil, p.errorf(p.peek(), "expected '=' for %s initializer, got %s", keyword, describe(p.peek()))
	}
	init, err := p.expression()
	if err != nil {
		return nil, nil, nil, err
	}
	return name, typ, init, nil
}

// constDecl parses a const declaration without its terminating ';'.
func (p *Parser) constDecl() (*ast.Const, *ParseError) {
	start := p.advance() // consume 'const'
	name, typ, init, err := p.typedInit("const", true)
	if err != nil {
		return nil, err
	}
	return &ast.Const{Base: p.base(start), Name: name, Type: typ, Init: init}, nil
}

// letDecl parses a let declaration without its terminating ';'.
func (p *Parser) letDecl() (*ast.Let, *ParseError) {
	start := p.advance() // consume 'let'
	name, typ, init, err := p.typedInit("let", true)
	if err != nil {
		return nil, err
	}
	return &ast.Let{Base: p.base(start), Name: name, Type: typ, Init: init}, nil
}

// overrideDecl parses an override declaration.
func (p *Parser) overrideDecl(start Token, attrs []*ast.Attribute) (*ast.Override, *ParseError) {
	p.advance() // consume 'override'
	name, typ, init, err := p.typedInit("override", false)
	if err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.Override{Base: p.base(start), Name: name, Type: typ, Init: init, Attrs: attrs}, nil
}

// aliasDecl parses a type alias declaration.
func (p *Parser) aliasDecl() (*ast.Alias, *ParseError) {
	start := p.advance() // consume 'alias'

	if !p.check(TokenIdent) {
		return nil, p.errorf(p.peek(), "expected alias name, got %s", describe(p.peek()))
	}
	name := p.ident(p.advance())

	if err := p.expectErr(TokenEqual); err != nil {
		return nil, err
	}

	aliasType, err := p.typeSpec()
	if err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}

	return &ast.Alias{Base: p.base(start), Name: name, Type: aliasType}, nil
}

// typeSpec parses a type specifier: an identifier with optional template
// arguments.
func (p *Parser) typeSpec() (*ast.Ident, *ParseError) {
	if !p.check(TokenIdent) {
		return nil, p.errorf(p.peek(), "expected type, got %s", describe(p.peek()))
	}
	return p.templatedIdent(p.advance())
}

// templatedIdent builds an identifier from tok and parses its template
// list when one follows.
func (p *Parser) templatedIdent(tok Token) (*ast.Ident, *ParseError) {
	id := p.ident(tok)
	if !p.match(TokenTemplateStart) {
		return id, nil
	}
	for !p.check(TokenTemplateEnd) && !p.isAtEnd() {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		id.Template = append(id.Template, arg)
		if !p.match(TokenComma) {
			break
		}
	}
	if err := p.expectErr(TokenTemplateEnd); err != nil {
		return nil, err
	}
	id.Source.End = p.previous().End()
	return id, nil
}

// block parses a block statement.
func (p *Parser) block() (*ast.Block, *ParseError) {
	start := p.peek()
	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, err
	}

	stmts := make([]ast.Stmt, 0, 4) // most blocks have a few statements
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, err
	}

	return &ast.Block{Base: p.base(start), Stmts: stmts}, nil
}

// statement parses a statement.
//
//nolint:gocyclo // one case per statement keyword
func (p *Parser) statement() (ast.Stmt, *ParseError) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	// Statement attributes such as @diagnostic are accepted and dropped.
	if p.check(TokenAt) {
		if _, err := p.attributes(); err != nil {
			return nil, err
		}
	}

	switch {
	case p.match(TokenSemicolon):
		return nil, nil
	case p.check(TokenReturn):
		return p.returnStmt()
	case p.check(TokenIf):
		return p.ifStmt()
	case p.check(TokenFor):
		return p.forStmt()
	case p.check(TokenWhile):
		return p.whileStmt()
	case p.check(TokenLoop):
		return p.loopStmt()
	case p.check(TokenBreak):
		return p.breakStmt()
	case p.check(TokenContinue):
		return p.keywordStmt(func(b ast.Base) ast.Stmt { return &ast.Continue{Base: b} })
	case p.check(TokenDiscard):
		return p.keywordStmt(func(b ast.Base) ast.Stmt { return &ast.Discard{Base: b} })
	case p.check(TokenSwitch):
		return p.switchStmt()
	case p.check(TokenConstAssert):
		return p.constAssert()
	case p.check(TokenLeftBrace):
		return p.block()
	case p.check(TokenContinuing):
		return nil, p.errorf(p.peek(), "'continuing' must be the last statement of a loop body")
	}

	stmt, err := p.simpleStatement()
	if err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}
	return stmt, nil
}

// simpleStatement parses the statements allowed in for-loop headers:
// declarations, assignments, increments and calls. The terminating ';' is
// left for the caller.
func (p *Parser) simpleStatement() (ast.Stmt, *ParseError) {
	start := p.peek()

	var decl ast.Variable
	var err *ParseError
	switch {
	case p.check(TokenVar):
		decl, err = p.varDecl(start, nil)
	case p.check(TokenLet):
		decl, err = p.letDecl()
	case p.check(TokenConst):
		decl, err = p.constDecl()
	default:
		return p.exprOrAssignStmt()
	}
	if err != nil {
		return nil, err
	}
	return &ast.DeclStmt{Base: p.base(start), Decl: decl}, nil
}

// returnStmt parses a return statement.
func (p *Parser) returnStmt() (*ast.Return, *ParseError) {
	start := p.advance() // consume 'return'

	var value ast.Expr
	if !p.check(TokenSemicolon) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		value = e
	}

	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}

	return &ast.Return{Base: p.base(start), Value: value}, nil
}

// ifStmt parses an if statement.
func (p *Parser) ifStmt() (*ast.If, *ParseError) {
	start := p.advance() // consume 'if'

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	var elseStmt ast.Stmt
	if p.match(TokenElse) {
		if p.check(TokenIf) {
			elseStmt, err = p.ifStmt()
		} else {
			elseStmt, err = p.block()
		}
		if err != nil {
			return nil, err
		}
	}

	return &ast.If{Base: p.base(start), Cond: cond, Body: body, Else: elseStmt}, nil
}

// forStmt parses a for statement.
func (p *Parser) forStmt() (*ast.For, *ParseError) {
	start := p.advance() // consume 'for'

	if err := p.expectErr(TokenLeftParen); err != nil {
		return nil, err
	}

	var init ast.Stmt
	if !p.check(TokenSemicolon) {
		s, err := p.simpleStatement()
		if err != nil {
			return nil, err
		}
		init = s
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}

	var cond ast.Expr
	if !p.check(TokenSemicolon) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		cond = e
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}

	var update ast.Stmt
	if !p.check(TokenRightParen) {
		s, err := p.exprOrAssignStmt()
		if err != nil {
			return nil, err
		}
		update = s
	}

	if err := p.expectErr(TokenRightParen); err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.For{Base: p.base(start), Init: init, Cond: cond, Update: update, Body: body}, nil
}

// whileStmt parses a while statement.
func (p *Parser) whileStmt() (*ast.While, *ParseError) {
	start := p.advance() // consume 'while'

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.While{Base: p.base(start), Cond: cond, Body: body}, nil
}

// loopStmt parses a loop statement with its optional continuing block.
func (p *Parser) loopStmt() (*ast.Loop, *ParseError) {
	start := p.advance() // consume 'loop'

	bodyStart := p.peek()
	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, err
	}

	var stmts []ast.Stmt
	var continuing *ast.Block
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		if p.check(TokenContinuing) {
			p.advance()
			c, err := p.block()
			if err != nil {
				return nil, err
			}
			continuing = c
			if !p.check(TokenRightBrace) {
				return nil, p.errorf(p.peek(), "expected '}' after continuing block, got %s", describe(p.peek()))
			}
			break
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, err
	}

	body := &ast.Block{Base: p.base(bodyStart), Stmts: stmts}
	return &ast.Loop{Base: p.base(start), Body: body, Continuing: continuing}, nil
}

// switchStmt parses a switch statement.
func (p *Parser) switchStmt() (*ast.Switch, *ParseError) {
	start := p.advance() // consume 'switch'

	selector, err := p.expression()
	if err != nil {
		return nil, err
	}

	if _, err := p.attributes(); err != nil {
		return nil, err
	}
	if err := p.expectErr(TokenLeftBrace); err != nil {
		return nil, err
	}

	var clauses []*ast.CaseClause
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		clause, err := p.switchCaseClause()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	if err := p.expectErr(TokenRightBrace); err != nil {
		return nil, err
	}

	return &ast.Switch{Base: p.base(start), Selector: selector, Clauses: clauses}, nil
}

// switchCaseClause parses a case or default clause in a switch statement.
func (p *Parser) switchCaseClause() (*ast.CaseClause, *ParseError) {
	start := p.peek()
	var selectors []ast.CaseSelector

	switch {
	case p.match(TokenDefault):
		selectors = append(selectors, ast.CaseSelector{})
	case p.match(TokenCase):
		// case 1u, default, 3u:
		for !p.check(TokenColon) && !p.check(TokenLeftBrace) && !p.isAtEnd() {
			if p.match(TokenDefault) {
				selectors = append(selectors, ast.CaseSelector{})
			} else {
				expr, err := p.expression()
				if err != nil {
					return nil, err
				}
				selectors = append(selectors, ast.CaseSelector{Expr: expr})
			}
			if !p.match(TokenComma) {
				break
			}
		}
		if len(selectors) == 0 {
			return nil, p.errorf(p.peek(), "expected case selector, got %s", describe(p.peek()))
		}
	default:
		return nil, p.errorf(start, "expected 'case' or 'default', got %s", describe(start))
	}

	p.match(TokenColon)

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.CaseClause{Base: p.base(start), Selectors: selectors, Body: body}, nil
}

// breakStmt parses break; and break if cond;
func (p *Parser) breakStmt() (ast.Stmt, *ParseError) {
	start := p.advance() // consume 'break'
	if p.match(TokenIf) {
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expectErr(TokenSemicolon); err != nil {
			return nil, err
		}
		return &ast.BreakIf{Base: p.base(start), Cond: cond}, nil
	}
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}
	return &ast.Break{Base: p.base(start)}, nil
}

// keywordStmt parses a statement made of a single keyword.
func (p *Parser) keywordStmt(build func(ast.Base) ast.Stmt) (ast.Stmt, *ParseError) {
	start := p.advance()
	if err := p.expectErr(TokenSemicolon); err != nil {
		return nil, err
	}
	return build(p.base(start)), nil
}

// exprOrAssignStmt parses an assignment, increment, phony assignment or
// call statement. The terminating ';' is left for the caller.
func (p *Parser) exprOrAssignStmt() (ast.Stmt, *ParseError) {
	start := p.peek()

	if start.Kind == TokenIdent && start.Lexeme == "_" && p.peekAt(1).Kind == TokenEqual {
		p.advance()
		p.advance()
		rhs, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &ast.PhonyAssign{Base: p.base(start), RHS: rhs}, nil
	}

	expr, err := p.unary()
	if err != nil {
		return nil, err
	}

	switch {
	case p.match(TokenPlusPlus):
		return &ast.IncDec{Base: p.base(start), LHS: expr, Increment: true}, nil
	case p.match(TokenMinusMinus):
		return &ast.IncDec{Base: p.base(start), LHS: expr}, nil
	case p.match(TokenEqual):
		rhs, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Base: p.base(start), LHS: expr, RHS: rhs}, nil
	case p.isAssignOp(p.peek().Kind):
		op := compoundOps[p.advance().Kind]
		rhs, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &ast.CompoundAssign{Base: p.base(start), LHS: expr, Op: op, RHS: rhs}, nil
	}

	if call, ok := expr.(*ast.Call); ok {
		return &ast.CallStmt{Base: p.base(start), Call: call}, nil
	}
	return nil, p.errorf(p.peek(), "expected assignment or function call, got %s", describe(p.peek()))
}

var compoundOps = map[TokenKind]ast.BinaryOp{
	TokenPlusEqual:           ast.Add,
	TokenMinusEqual:          ast.Subtract,
	TokenStarEqual:           ast.Multiply,
	TokenSlashEqual:          ast.Divide,
	TokenPercentEqual:        ast.Modulo,
	TokenAmpEqual:            ast.And,
	TokenPipeEqual:           ast.Or,
	TokenCaretEqual:          ast.Xor,
	TokenLessLessEqual:       ast.ShiftLeft,
	TokenGreaterGreaterEqual: ast.ShiftRight,
}

// expression parses an expression.
func (p *Parser) expression() (ast.Expr, *ParseError) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.logicalOr()
}

// binaryLevel parses a left-associative chain of the operators in ops,
// with next parsing the operands.
func (p *Parser) binaryLevel(ops map[TokenKind]ast.BinaryOp, next func() (ast.Expr, *ParseError)) (ast.Expr, *ParseError) {
	start := p.peek()
	left, err := next()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := ops[p.peek().Kind]
		if !ok || p.isAtEnd() {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Base: p.base(start), Op: op, L: left, R: right}
	}
}

var (
	logicalOrOps      = map[TokenKind]ast.BinaryOp{TokenPipePipe: ast.LogicalOr}
	logicalAndOps     = map[TokenKind]ast.BinaryOp{TokenAmpAmp: ast.LogicalAnd}
	bitwiseOrOps      = map[TokenKind]ast.BinaryOp{TokenPipe: ast.Or}
	bitwiseXorOps     = map[TokenKind]ast.BinaryOp{TokenCaret: ast.Xor}
	bitwiseAndOps     = map[TokenKind]ast.BinaryOp{TokenAmpersand: ast.And}
	equalityOps       = map[TokenKind]ast.BinaryOp{TokenEqualEqual: ast.Equal, TokenBangEqual: ast.NotEqual}
	shiftOps          = map[TokenKind]ast.BinaryOp{TokenLessLess: ast.ShiftLeft, TokenGreaterGreater: ast.ShiftRight}
	additiveOps       = map[TokenKind]ast.BinaryOp{TokenPlus: ast.Add, TokenMinus: ast.Subtract}
	multiplicativeOps = map[TokenKind]ast.BinaryOp{TokenStar: ast.Multiply, TokenSlash: ast.Divide, TokenPercent: ast.Modulo}
	comparisonOps     = map[TokenKind]ast.BinaryOp{
		TokenLess:         ast.LessThan,
		TokenGreater:      ast.GreaterThan,
		TokenLessEqual:    ast.LessThanEqual,
		TokenGreaterEqual: ast.GreaterThanEqual,
	}
)

// logicalOr parses || expressions.
func (p *Parser) logicalOr() (ast.Expr, *ParseError) {
	return p.binaryLevel(logicalOrOps, p.logicalAnd)
}

// logicalAnd parses && expressions.
func (p *Parser) logicalAnd() (ast.Expr, *ParseError) {
	return p.binaryLevel(logicalAndOps, p.bitwiseOr)
}

// bitwiseOr parses | expressions.
func (p *Parser) bitwiseOr() (ast.Expr, *ParseError) {
	return p.binaryLevel(bitwiseOrOps, p.bitwiseXor)
}

// bitwiseXor parses ^ expressions.
func (p *Parser) bitwiseXor() (ast.Expr, *ParseError) {
	return p.binaryLevel(bitwiseXorOps, p.bitwiseAnd)
}

// bitwiseAnd parses & expressions.
func (p *Parser) bitwiseAnd() (ast.Expr, *ParseError) {
	return p.binaryLevel(bitwiseAndOps, p.equality)
}

// equality parses == and != expressions.
func (p *Parser) equality() (ast.Expr, *ParseError) {
	return p.binaryLevel(equalityOps, p.comparison)
}

// comparison parses <, >, <=, >= expressions.
func (p *Parser) comparison() (ast.Expr, *ParseError) {
	return p.binaryLevel(comparisonOps, p.shift)
}

// shift parses << and >> expressions.
func (p *Parser) shift() (ast.Expr, *ParseError) {
	return p.binaryLevel(shiftOps, p.additive)
}

// additive parses + and - expressions.
func (p *Parser) additive() (ast.Expr, *ParseError) {
	return p.binaryLevel(additiveOps, p.multiplicative)
}

// multiplicative parses *, /, % expressions.
func (p *Parser) multiplicative() (ast.Expr, *ParseError) {
	return p.binaryLevel(multiplicativeOps, p.unary)
}

var unaryOps = map[TokenKind]ast.UnaryOp{
	TokenMinus:     ast.Negate,
	TokenBang:      ast.Not,
	TokenTilde:     ast.Complement,
	TokenAmpersand: ast.AddressOf,
	TokenStar:      ast.Indirection,
}

// unary parses unary expressions.
func (p *Parser) unary() (ast.Expr, *ParseError) {
	op, ok := unaryOps[p.peek().Kind]
	if !ok {
		return p.postfix()
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	start := p.advance()
	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{Base: p.base(start), Op: op, X: operand}, nil
}

// postfix parses indexing and member access.
func (p *Parser) postfix() (ast.Expr, *ParseError) {
	start := p.peek()
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.match(TokenLeftBracket):
			index, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.expectErr(TokenRightBracket); err != nil {
				return nil, err
			}
			expr = &ast.Index{Base: p.base(start), X: expr, Index: index}
		case p.match(TokenDot):
			if !p.check(TokenIdent) {
				return nil, p.errorf(p.peek(), "expected member name, got %s", describe(p.peek()))
			}
			member := p.ident(p.advance())
			expr = &ast.Member{Base: p.base(start), X: expr, Member: member}
		default:
			return expr, nil
		}
	}
}

// primary parses literals, identifiers, calls and parenthesized
// expressions.
func (p *Parser) primary() (ast.Expr, *ParseError) {
	tok := p.peek()

	switch tok.Kind {
	case TokenIntLiteral:
		p.advance()
		return p.intLiteral(tok)

	case TokenFloatLiteral:
		p.advance()
		return p.floatLiteral(tok)

	case TokenTrue, TokenFalse:
		p.advance()
		return &ast.BoolLiteral{Base: p.base(tok), Value: tok.Kind == TokenTrue}, nil

	case TokenIdent:
		p.advance()
		id, err := p.templatedIdent(tok)
		if err != nil {
			return nil, err
		}
		if !p.match(TokenLeftParen) {
			return id, nil
		}
		args := make([]ast.Expr, 0, 4)
		for !p.check(TokenRightParen) && !p.isAtEnd() {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(TokenComma) {
				break
			}
		}
		if err := p.expectErr(TokenRightParen); err != nil {
			return nil, err
		}
		return &ast.Call{Base: p.base(tok), Target: id, Args: args}, nil

	case TokenLeftParen:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expectErr(TokenRightParen); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.errorf(tok, "unexpected %s in expression", describe(tok))
	}
}

func (p *Parser) intLiteral(tok Token) (ast.Expr, *ParseError) {
	text := tok.Lexeme
	var suffix byte
	if n := len(text); n > 0 && (text[n-1] == 'i' || text[n-1] == 'u') {
		suffix = text[n-1]
		text = text[:n-1]
	}

	var v uint64
	var err error
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		v, err = strconv.ParseUint(text[2:], 16, 64)
	} else {
		if len(text) > 1 && text[0] == '0' {
			return nil, p.errorf(tok, "integer literal '%s' has a leading zero", tok.Lexeme)
		}
		v, err = strconv.ParseUint(text, 10, 64)
	}
	if err != nil || v > 1<<63-1 {
		return nil, p.errorf(tok, "integer literal '%s' cannot be represented", tok.Lexeme)
	}
	return &ast.IntLiteral{Base: p.base(tok), Value: int64(v), Suffix: suffix}, nil
}

func (p *Parser) floatLiteral(tok Token) (ast.Expr, *ParseError) {
	text := tok.Lexeme
	hex := strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")
	// A hex literal's trailing 'f' is a digit unless an exponent precedes it.
	var suffix byte
	if n := len(text); n > 0 && (text[n-1] == 'f' || text[n-1] == 'h') && (!hex || strings.ContainsAny(text, "pP")) {
		suffix = text[n-1]
		text = text[:n-1]
	}
	if hex && !strings.ContainsAny(text, "pP") {
		text += "p0"
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf(tok, "float literal '%s' cannot be represented", tok.Lexeme)
	}
	return &ast.FloatLiteral{Base: p.base(tok), Value: v, Suffix: suffix}, nil
}

// Helper methods

// base returns the node identity for a node spanning from start to the
// last consumed token.
func (p *Parser) base(start Token) ast.Base {
	p.nextID++
	end := start.End()
	if p.current > 0 {
		if prev := p.previous(); prev.Offset >= start.Offset {
			end = prev.End()
		}
	}
	return ast.Base{NodeID: p.nextID, Source: diag.Range{Start: start.Start(), End: end}}
}

func (p *Parser) ident(tok Token) *ast.Ident {
	p.nextID++
	return &ast.Ident{
		Base:   ast.Base{NodeID: p.nextID, Source: tok.Range()},
		Symbol: p.symbols.Register(tok.Lexeme),
		Name:   tok.Lexeme,
	}
}

func (p *Parser) enter() *ParseError {
	p.depth++
	if p.depth > ast.MaxDepth {
		return p.errorf(p.peek(), "nesting depth exceeds the limit of %d", ast.MaxDepth)
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

func (p *Parser) errorf(tok Token, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Token: tok}
}

func describe(tok Token) string {
	switch tok.Kind {
	case TokenIdent:
		return fmt.Sprintf("identifier '%s'", tok.Lexeme)
	case TokenIntLiteral, TokenFloatLiteral:
		return fmt.Sprintf("%s '%s'", tok.Kind, tok.Lexeme)
	case TokenError:
		return fmt.Sprintf("invalid character '%s'", tok.Lexeme)
	}
	return tok.Kind.String()
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) peekAt(n int) Token {
	if p.current+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+n]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEOF
}

func (p *Parser) check(kind TokenKind) bool {
	if p.isAtEnd() {
		return kind == TokenEOF
	}
	return p.peek().Kind == kind
}

func (p *Parser) match(kind TokenKind) bool {
	if p.check(kind) && kind != TokenEOF {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectErr(kind TokenKind) *ParseError {
	if p.match(kind) {
		return nil
	}
	return p.errorf(p.peek(), "expected %s, got %s", kind, describe(p.peek()))
}

// synchronize skips to the next module-scope declaration after an error in
// the declaration that started at token index from. Braces are balanced
// from the start of the failed declaration so local declarations inside a
// function body are not mistaken for module-scope ones.
func (p *Parser) synchronize(from int) {
	errAt := p.current
	depth := 0
	i := from
	for ; i < len(p.tokens)-1; i++ {
		switch p.tokens[i].Kind {
		case TokenLeftBrace:
			depth++
		case TokenRightBrace:
			if depth > 0 {
				depth--
			}
		}
		if i >= errAt && depth == 0 && isDeclStart(p.tokens[i+1].Kind) {
			break
		}
	}
	p.current = i + 1
	if p.current >= len(p.tokens) {
		p.current = len(p.tokens) - 1
	}
}

func isDeclStart(kind TokenKind) bool {
	switch kind {
	case TokenFn, TokenStruct, TokenVar, TokenConst, TokenOverride, TokenAlias,
		TokenEnable, TokenRequires, TokenConstAssert, TokenAt, TokenEOF:
		return true
	}
	return false
}

func (p *Parser) isAssignOp(kind TokenKind) bool {
	_, ok := compoundOps[kind]
	return ok
}
