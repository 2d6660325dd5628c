package wgsl

import "slices"

// discoverTemplates finds the '<' '>' pairs that delimit template lists
// and retags them as TokenTemplateStart and TokenTemplateEnd. A '>' that
// is the first character of '>>', '>=' or '>>=' is split off its token.
//
// The scan is the template-list discovery of the WGSL grammar: a '<'
// directly after an identifier or 'var' opens a candidate list, and the candidate is
// accepted when a '>' is found at the same bracket depth before any token
// that cannot appear in a template argument.
func discoverTemplates(toks []Token) []Token {
	type pending struct {
		pos   int
		depth int
	}
	var stack []pending
	depth := 0

	popAtDepth := func() {
		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
	}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.Kind {
		case TokenIdent, TokenVar:
			if i+1 < len(toks) && toks[i+1].Kind == TokenLess {
				stack = append(stack, pending{pos: i + 1, depth: depth})
				i++
			}
		case TokenGreater, TokenGreaterGreater, TokenGreaterEqual, TokenGreaterGreaterEqual:
			n := len(stack)
			if n == 0 || stack[n-1].depth != depth {
				continue
			}
			toks[stack[n-1].pos].Kind = TokenTemplateStart
			stack = stack[:n-1]
			if t.Kind != TokenGreater {
				toks = slices.Insert(toks, i+1, splitGreater(t))
			}
			toks[i] = Token{Kind: TokenTemplateEnd, Lexeme: ">", Line: t.Line, Column: t.Column, Offset: t.Offset}
		case TokenLeftParen, TokenLeftBracket:
			depth++
		case TokenRightParen, TokenRightBracket:
			popAtDepth()
			if depth > 0 {
				depth--
			}
		case TokenAmpAmp, TokenPipePipe:
			popAtDepth()
		case TokenEqual, TokenSemicolon, TokenLeftBrace, TokenColon,
			TokenPlusEqual, TokenMinusEqual, TokenStarEqual, TokenSlashEqual,
			TokenPercentEqual, TokenAmpEqual, TokenPipeEqual, TokenCaretEqual,
			TokenLessLessEqual:
			depth = 0
			stack = stack[:0]
		}
	}
	return toks
}

// splitGreater returns the remainder of a token that starts with '>'.
func splitGreater(t Token) Token {
	rest := Token{Lexeme: t.Lexeme[1:], Line: t.Line, Column: t.Column + 1, Offset: t.Offset + 1}
	switch t.Kind {
	case TokenGreaterGreater:
		rest.Kind = TokenGreater
	case TokenGreaterEqual:
		rest.Kind = TokenEqual
	case TokenGreaterGreaterEqual:
		rest.Kind = TokenGreaterEqual
	}
	return rest
}
