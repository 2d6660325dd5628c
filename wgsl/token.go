package wgsl

import "github.com/gogpu/wgslcore/diag"

// TokenKind represents the type of token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenError

	// Literals
	TokenIdent
	TokenIntLiteral
	TokenFloatLiteral

	// Operators
	TokenPlus                // +
	TokenMinus               // -
	TokenStar                // *
	TokenSlash               // /
	TokenPercent             // %
	TokenAmpersand           // &
	TokenPipe                // |
	TokenCaret               // ^
	TokenTilde               // ~
	TokenBang                // !
	TokenEqual               // =
	TokenLess                // <
	TokenGreater             // >
	TokenDot                 // .
	TokenComma               // ,
	TokenColon               // :
	TokenSemicolon           // ;
	TokenAt                  // @
	TokenArrow               // ->
	TokenPlusPlus            // ++
	TokenMinusMinus          // --
	TokenEqualEqual          // ==
	TokenBangEqual           // !=
	TokenLessEqual           // <=
	TokenGreaterEqual        // >=
	TokenAmpAmp              // &&
	TokenPipePipe            // ||
	TokenLessLess            // <<
	TokenGreaterGreater      // >>
	TokenPlusEqual           // +=
	TokenMinusEqual          // -=
	TokenStarEqual           // *=
	TokenSlashEqual          // /=
	TokenPercentEqual        // %=
	TokenAmpEqual            // &=
	TokenPipeEqual           // |=
	TokenCaretEqual          // ^=
	TokenLessLessEqual       // <<=
	TokenGreaterGreaterEqual // >>=

	// TokenTemplateStart and TokenTemplateEnd replace the '<' and '>' that
	// delimit a template list once discoverTemplates has run.
	TokenTemplateStart
	TokenTemplateEnd

	// Delimiters
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]

	// Keywords
	TokenAlias
	TokenBreak
	TokenCase
	TokenConst
	TokenConstAssert
	TokenContinue
	TokenContinuing
	TokenDefault
	TokenDiagnostic
	TokenDiscard
	TokenElse
	TokenEnable
	TokenFalse
	TokenFn
	TokenFor
	TokenIf
	TokenLet
	TokenLoop
	TokenOverride
	TokenRequires
	TokenReturn
	TokenStruct
	TokenSwitch
	TokenTrue
	TokenVar
	TokenWhile
)

var tokenNames = [...]string{
	TokenEOF:                 "end of file",
	TokenError:               "invalid token",
	TokenIdent:               "identifier",
	TokenIntLiteral:          "integer literal",
	TokenFloatLiteral:        "float literal",
	TokenPlus:                "'+'",
	TokenMinus:               "'-'",
	TokenStar:                "'*'",
	TokenSlash:               "'/'",
	TokenPercent:             "'%'",
	TokenAmpersand:           "'&'",
	TokenPipe:                "'|'",
	TokenCaret:               "'^'",
	TokenTilde:               "'~'",
	TokenBang:                "'!'",
	TokenEqual:               "'='",
	TokenLess:                "'<'",
	TokenGreater:             "'>'",
	TokenDot:                 "'.'",
	TokenComma:               "','",
	TokenColon:               "':'",
	TokenSemicolon:           "';'",
	TokenAt:                  "'@'",
	TokenArrow:               "'->'",
	TokenPlusPlus:            "'++'",
	TokenMinusMinus:          "'--'",
	TokenEqualEqual:          "'=='",
	TokenBangEqual:           "'!='",
	TokenLessEqual:           "'<='",
	TokenGreaterEqual:        "'>='",
	TokenAmpAmp:              "'&&'",
	TokenPipePipe:            "'||'",
	TokenLessLess:            "'<<'",
	TokenGreaterGreater:      "'>>'",
	TokenPlusEqual:           "'+='",
	TokenMinusEqual:          "'-='",
	TokenStarEqual:           "'*='",
	TokenSlashEqual:          "'/='",
	TokenPercentEqual:        "'%='",
	TokenAmpEqual:            "'&='",
	TokenPipeEqual:           "'|='",
	TokenCaretEqual:          "'^='",
	TokenLessLessEqual:       "'<<='",
	TokenGreaterGreaterEqual: "'>>='",
	TokenTemplateStart:       "'<'",
	TokenTemplateEnd:         "'>'",
	TokenLeftParen:           "'('",
	TokenRightParen:          "')'",
	TokenLeftBrace:           "'{'",
	TokenRightBrace:          "'}'",
	TokenLeftBracket:         "'['",
	TokenRightBracket:        "']'",
	TokenAlias:               "'alias'",
	TokenBreak:               "'break'",
	TokenCase:                "'case'",
	TokenConst:               "'const'",
	TokenConstAssert:         "'const_assert'",
	TokenContinue:            "'continue'",
	TokenContinuing:          "'continuing'",
	TokenDefault:             "'default'",
	TokenDiagnostic:          "'diagnostic'",
	TokenDiscard:             "'discard'",
	TokenElse:                "'else'",
	TokenEnable:              "'enable'",
	TokenFalse:               "'false'",
	TokenFn:                  "'fn'",
	TokenFor:                 "'for'",
	TokenIf:                  "'if'",
	TokenLet:                 "'let'",
	TokenLoop:                "'loop'",
	TokenOverride:            "'override'",
	TokenRequires:            "'requires'",
	TokenReturn:              "'return'",
	TokenStruct:              "'struct'",
	TokenSwitch:              "'switch'",
	TokenTrue:                "'true'",
	TokenVar:                 "'var'",
	TokenWhile:               "'while'",
}

// String returns the string representation of the token kind.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) && tokenNames[k] != "" {
		return tokenNames[k]
	}
	return "unknown token"
}

// Token represents a lexical token.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Line   int
	Column int
	Offset int
}

// Start returns the position of the first character of the token.
func (t Token) Start() diag.Position {
	return diag.Position{Line: t.Line, Column: t.Column, Offset: t.Offset}
}

// End returns the position just past the last character of the token.
func (t Token) End() diag.Position {
	return diag.Position{Line: t.Line, Column: t.Column + len(t.Lexeme), Offset: t.Offset + len(t.Lexeme)}
}

// Range returns the source range covered by the token.
func (t Token) Range() diag.Range {
	return diag.Range{Start: t.Start(), End: t.End()}
}
