package lexer

import (
	"fmt"

	"github.com/skiff-lang/skiff/internal/position"
)

// TokenKind represents the type of a token.
type TokenKind int

// String returns a string representation of the token kind.
func (tk TokenKind) String() string {
	if name, ok := tokenNames[tk]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tk))
}

// Token kinds for the Skiff language.
const (
	// Special tokens
	TokenEOF TokenKind = iota
	TokenError
	TokenNewline
	TokenWhitespace
	TokenComment

	// Words and literals
	TokenBareWord
	TokenInt
	TokenFloat
	TokenDuration
	TokenFilesize
	TokenSingleString
	TokenDoubleString
	TokenInterpString
	TokenVariable
	TokenFlag

	// Keywords
	TokenLet
	TokenMut
	TokenDef
	TokenAlias
	TokenIf
	TokenElse
	TokenFor
	TokenIn
	TokenWhile
	TokenTrue
	TokenFalse
	TokenNull

	// Word operators
	TokenAnd
	TokenOr
	TokenNot
	TokenMod

	// Symbol operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenEq
	TokenNotEq
	TokenLess
	TokenLessEq
	TokenGreater
	TokenGreaterEq
	TokenAssign
	TokenDotDot

	// Structure
	TokenPipe
	TokenSemicolon
	TokenComma
	TokenColon
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket

	// Redirections
	TokenRedirectOut
	TokenRedirectErr
	TokenRedirectBoth
	TokenRedirectOutAppend
	TokenRedirectErrAppend
)

// tokenNames provides string representations for token kinds.
var tokenNames = map[TokenKind]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "NEWLINE",
	TokenWhitespace: "WHITESPACE",
	TokenComment:    "COMMENT",

	TokenBareWord:     "BARE_WORD",
	TokenInt:          "INT",
	TokenFloat:        "FLOAT",
	TokenDuration:     "DURATION",
	TokenFilesize:     "FILESIZE",
	TokenSingleString: "SINGLE_STRING",
	TokenDoubleString: "DOUBLE_STRING",
	TokenInterpString: "INTERP_STRING",
	TokenVariable:     "VARIABLE",
	TokenFlag:         "FLAG",

	TokenLet:   "LET",
	TokenMut:   "MUT",
	TokenDef:   "DEF",
	TokenAlias: "ALIAS",
	TokenIf:    "IF",
	TokenElse:  "ELSE",
	TokenFor:   "FOR",
	TokenIn:    "IN",
	TokenWhile: "WHILE",
	TokenTrue:  "TRUE",
	TokenFalse: "FALSE",
	TokenNull:  "NULL",

	TokenAnd: "AND",
	TokenOr:  "OR",
	TokenNot: "NOT",
	TokenMod: "MOD",

	TokenPlus:      "PLUS",
	TokenMinus:     "MINUS",
	TokenStar:      "STAR",
	TokenSlash:     "SLASH",
	TokenEq:        "EQ",
	TokenNotEq:     "NOT_EQ",
	TokenLess:      "LESS",
	TokenLessEq:    "LESS_EQ",
	TokenGreater:   "GREATER",
	TokenGreaterEq: "GREATER_EQ",
	TokenAssign:    "ASSIGN",
	TokenDotDot:    "DOT_DOT",

	TokenPipe:      "PIPE",
	TokenSemicolon: "SEMICOLON",
	TokenComma:     "COMMA",
	TokenColon:     "COLON",
	TokenLParen:    "LPAREN",
	TokenRParen:    "RPAREN",
	TokenLBrace:    "LBRACE",
	TokenRBrace:    "RBRACE",
	TokenLBracket:  "LBRACKET",
	TokenRBracket:  "RBRACKET",

	TokenRedirectOut:       "REDIRECT_OUT",
	TokenRedirectErr:       "REDIRECT_ERR",
	TokenRedirectBoth:      "REDIRECT_BOTH",
	TokenRedirectOutAppend: "REDIRECT_OUT_APPEND",
	TokenRedirectErrAppend: "REDIRECT_ERR_APPEND",
}

// keywords maps bare words to their keyword token kinds. Only words made
// of plain letters are looked up, so file names like `letters.txt` stay
// bare words.
var keywords = map[string]TokenKind{
	"let":   TokenLet,
	"mut":   TokenMut,
	"def":   TokenDef,
	"alias": TokenAlias,
	"if":    TokenIf,
	"else":  TokenElse,
	"for":   TokenFor,
	"in":    TokenIn,
	"while": TokenWhile,
	"true":  TokenTrue,
	"false": TokenFalse,
	"null":  TokenNull,
	"and":   TokenAnd,
	"or":    TokenOr,
	"not":   TokenNot,
	"mod":   TokenMod,
}

// Token is a lexical token. It carries no literal text; the text is
// recovered by slicing the source buffer with the span.
type Token struct {
	Kind TokenKind
	Span position.Span

	// Parts holds the embedded expression regions of an interpolated
	// string, as absolute sub-spans of Span. Empty for all other kinds.
	Parts []position.Span
}

// Text returns the source text covered by the token.
func (t Token) Text(src []byte) string {
	if !t.Span.IsValid() || t.Span.End > len(src) {
		return ""
	}
	return string(src[t.Span.Start:t.Span.End])
}

// IsTrivia returns true for tokens the parser filters out of its
// working view. Newlines are not trivia: they terminate pipelines.
func (t Token) IsTrivia() bool {
	return t.Kind == TokenWhitespace || t.Kind == TokenComment
}

// String returns a string representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("{%s %s}", t.Kind, t.Span)
}
