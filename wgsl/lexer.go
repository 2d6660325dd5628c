package wgsl

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gogpu/wgslcore/diag"
)

// Lexer tokenizes WGSL source code.
//
// Lexing never stops at an error: invalid input is reported and skipped,
// and the token stream always ends with TokenEOF.
type Lexer struct {
	source string
	pos    int
	line   int
	column int

	// start of the token being scanned
	start     int
	startLine int
	startCol  int

	tokens []Token
	errs   diag.List
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string) *Lexer {
	return &Lexer{
		source: source,
		line:   1,
		column: 1,
		tokens: make([]Token, 0, max(len(source)/6, 16)),
	}
}

// Tokenize returns all tokens from the source together with the lexical
// errors found along the way.
func (l *Lexer) Tokenize() ([]Token, diag.List) {
	for {
		l.skipBlankspaceAndComments()
		if l.isAtEnd() {
			break
		}
		l.mark()
		r := l.peek()
		switch {
		case isDigit(r) || r == '.' && isDigit(l.peekAt(1)):
			l.number()
		case isIdentStart(r):
			l.identifier()
		default:
			l.punctuation()
		}
	}
	l.mark()
	l.emit(TokenEOF)
	return l.tokens, l.errs
}

// punctuators lists every operator and separator, longest first so that
// the first match is the longest one.
var punctuators = []struct {
	text string
	kind TokenKind
}{
	{"<<=", TokenLessLessEqual},
	{">>=", TokenGreaterGreaterEqual},
	{"->", TokenArrow},
	{"++", TokenPlusPlus},
	{"--", TokenMinusMinus},
	{"==", TokenEqualEqual},
	{"!=", TokenBangEqual},
	{"<=", TokenLessEqual},
	{">=", TokenGreaterEqual},
	{"&&", TokenAmpAmp},
	{"||", TokenPipePipe},
	{"<<", TokenLessLess},
	{">>", TokenGreaterGreater},
	{"+=", TokenPlusEqual},
	{"-=", TokenMinusEqual},
	{"*=", TokenStarEqual},
	{"/=", TokenSlashEqual},
	{"%=", TokenPercentEqual},
	{"&=", TokenAmpEqual},
	{"|=", TokenPipeEqual},
	{"^=", TokenCaretEqual},
	{"(", TokenLeftParen},
	{")", TokenRightParen},
	{"{", TokenLeftBrace},
	{"}", TokenRightBrace},
	{"[", TokenLeftBracket},
	{"]", TokenRightBracket},
	{",", TokenComma},
	{".", TokenDot},
	{":", TokenColon},
	{";", TokenSemicolon},
	{"@", TokenAt},
	{"~", TokenTilde},
	{"+", TokenPlus},
	{"-", TokenMinus},
	{"*", TokenStar},
	{"/", TokenSlash},
	{"%", TokenPercent},
	{"&", TokenAmpersand},
	{"|", TokenPipe},
	{"^", TokenCaret},
	{"=", TokenEqual},
	{"!", TokenBang},
	{"<", TokenLess},
	{">", TokenGreater},
}

func (l *Lexer) punctuation() {
	rest := l.source[l.pos:]
	for _, p := range punctuators {
		if strings.HasPrefix(rest, p.text) {
			l.skip(len(p.text))
			l.emit(p.kind)
			return
		}
	}
	r := l.advance()
	l.emit(TokenError)
	l.errs.AddError(l.tokenRange(), "invalid character '%c'", r)
}

// skipBlankspaceAndComments consumes blankspace, line comments and
// (nested) block comments.
func (l *Lexer) skipBlankspaceAndComments() {
	for !l.isAtEnd() {
		switch r := l.peek(); {
		case isLineBreak(r):
			l.newline()
		case isBlankspace(r):
			l.advance()
		case strings.HasPrefix(l.source[l.pos:], "//"):
			for !l.isAtEnd() && !isLineBreak(l.peek()) {
				l.advance()
			}
		case strings.HasPrefix(l.source[l.pos:], "/*"):
			l.blockComment()
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	l.mark()
	l.skip(2)
	for depth := 1; depth > 0; {
		switch {
		case l.isAtEnd():
			l.errs.AddError(diag.Range{
				Start: l.startPosition(),
				End:   diag.Position{Line: l.startLine, Column: l.startCol + 2, Offset: l.start + 2},
			}, "unterminated block comment")
			return
		case strings.HasPrefix(l.source[l.pos:], "/*"):
			l.skip(2)
			depth++
		case strings.HasPrefix(l.source[l.pos:], "*/"):
			l.skip(2)
			depth--
		case isLineBreak(l.peek()):
			l.newline()
		default:
			l.advance()
		}
	}
}

// number scans a decimal or hexadecimal literal. Integer literals may carry
// an 'i' or 'u' suffix and float literals an 'f' or 'h' suffix. A hex
// literal only becomes a float through a '.' or a 'p' exponent, since 'f'
// is a hex digit.
func (l *Lexer) number() {
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.skip(2)
		l.scanNumber(isHexDigit, 'p', 'P')
		return
	}
	l.scanNumber(isDigit, 'e', 'E')
}

func (l *Lexer) scanNumber(digit func(rune) bool, exp, expUpper rune) {
	float := false
	for digit(l.peek()) {
		l.advance()
	}
	// "1.x" is a member access on an integer, not a float.
	if l.peek() == '.' && !isIdentStart(l.peekAt(1)) {
		float = true
		l.advance()
		for digit(l.peek()) {
			l.advance()
		}
	}
	if r := l.peek(); r == exp || r == expUpper {
		float = true
		l.advance()
		if r := l.peek(); r == '+' || r == '-' {
			l.advance()
		}
		if !isDigit(l.peek()) {
			l.emit(TokenError)
			l.errs.AddError(l.tokenRange(), "exponent of '%s' has no digits", l.tokens[len(l.tokens)-1].Lexeme)
			return
		}
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	switch r := l.peek(); {
	case (r == 'f' || r == 'h') && (float || exp == 'e'):
		l.advance()
		l.emit(TokenFloatLiteral)
		return
	case (r == 'i' || r == 'u') && !float:
		l.advance()
		l.emit(TokenIntLiteral)
		return
	}
	if float {
		l.emit(TokenFloatLiteral)
	} else {
		l.emit(TokenIntLiteral)
	}
}

func (l *Lexer) identifier() {
	for isIdentContinue(l.peek()) {
		l.advance()
	}
	text := l.source[l.start:l.pos]
	if kind, ok := keywords[text]; ok {
		l.emit(kind)
		return
	}
	l.emit(TokenIdent)
	if strings.HasPrefix(text, "__") {
		l.errs.AddError(l.tokenRange(), "identifier '%s' must not start with two underscores", text)
	}
}

var keywords = map[string]TokenKind{
	"alias":        TokenAlias,
	"break":        TokenBreak,
	"case":         TokenCase,
	"const":        TokenConst,
	"const_assert": TokenConstAssert,
	"continue":     TokenContinue,
	"continuing":   TokenContinuing,
	"default":      TokenDefault,
	"diagnostic":   TokenDiagnostic,
	"discard":      TokenDiscard,
	"else":         TokenElse,
	"enable":       TokenEnable,
	"false":        TokenFalse,
	"fn":           TokenFn,
	"for":          TokenFor,
	"if":           TokenIf,
	"let":          TokenLet,
	"loop":         TokenLoop,
	"override":     TokenOverride,
	"requires":     TokenRequires,
	"return":       TokenReturn,
	"struct":       TokenStruct,
	"switch":       TokenSwitch,
	"true":         TokenTrue,
	"var":          TokenVar,
	"while":        TokenWhile,
}

// mark records the current position as the start of the next token.
func (l *Lexer) mark() {
	l.start, l.startLine, l.startCol = l.pos, l.line, l.column
}

func (l *Lexer) startPosition() diag.Position {
	return diag.Position{Line: l.startLine, Column: l.startCol, Offset: l.start}
}

func (l *Lexer) emit(kind TokenKind) {
	l.tokens = append(l.tokens, Token{
		Kind:   kind,
		Lexeme: l.source[l.start:l.pos],
		Line:   l.startLine,
		Column: l.startCol,
		Offset: l.start,
	})
}

func (l *Lexer) tokenRange() diag.Range {
	return l.tokens[len(l.tokens)-1].Range()
}

// newline consumes one line break. "\r\n" counts as a single break.
func (l *Lexer) newline() {
	if l.advance() == '\r' && l.peek() == '\n' {
		l.pos++
	}
	l.line++
	l.column = 1
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	l.column++
	return r
}

// skip consumes n bytes of ASCII text.
func (l *Lexer) skip(n int) {
	l.pos += n
	l.column += n
}

func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

// peekAt returns the rune n runes ahead, or 0 past the end.
func (l *Lexer) peekAt(n int) rune {
	pos := l.pos
	for ; n > 0 && pos < len(l.source); n-- {
		_, size := utf8.DecodeRuneInString(l.source[pos:])
		pos += size
	}
	if pos >= len(l.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[pos:])
	return r
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// isIdentStart approximates XID_Start plus '_'.
func isIdentStart(r rune) bool {
	return r == '_' || unicode.In(r, unicode.L, unicode.Nl, unicode.Other_ID_Start)
}

// isIdentContinue approximates XID_Continue.
func isIdentContinue(r rune) bool {
	return isIdentStart(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc, unicode.Other_ID_Continue)
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\v', '\f', '\r', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func isBlankspace(r rune) bool {
	switch r {
	case ' ', '\t', '\u200e', '\u200f':
		return true
	}
	return isLineBreak(r)
}
