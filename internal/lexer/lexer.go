// Package lexer implements the Skiff lexical analyzer. It turns raw
// UTF-8 script text into a complete, span-annotated token stream. The
// lexer is total: malformed input produces error tokens and
// diagnostics, never a failure, and every byte of the input is covered
// by some token so spans can reconstruct the source.
package lexer

import (
	"unicode/utf8"

	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/position"
)

// Lexer scans one region of a source buffer. Positions are always
// absolute offsets into the full buffer, so tokens produced while
// re-lexing an interpolation sub-region line up with the outer parse.
type Lexer struct {
	src   []byte
	pos   int // current byte offset, absolute
	end   int // end of the region being scanned, absolute
	diags *diagnostics.Collector
}

// Tokenize scans the whole buffer and returns the token stream,
// terminated by an EOF token. It never fails.
func Tokenize(src []byte, diags *diagnostics.Collector) []Token {
	return TokenizeRegion(src, 0, len(src), diags)
}

// TokenizeRegion scans src[start:end), keeping all spans absolute.
// The parser uses it to re-lex the embedded expression regions of
// interpolated strings.
func TokenizeRegion(src []byte, start, end int, diags *diagnostics.Collector) []Token {
	l := &Lexer{src: src, pos: start, end: end, diags: diags}

	var tokens []Token
	for {
		tok := l.next()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens
		}
	}
}

func (l *Lexer) ch() byte {
	if l.pos >= l.end {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek() byte {
	if l.pos+1 >= l.end {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= l.end {
		return 0
	}
	return l.src[l.pos+n]
}

// next returns the next token, including trivia.
func (l *Lexer) next() Token {
	if l.pos >= l.end {
		return Token{Kind: TokenEOF, Span: position.NewSpan(l.end, l.end)}
	}

	start := l.pos
	ch := l.ch()

	switch {
	case ch == ' ' || ch == '\t' || ch == '\r':
		for l.pos < l.end && (l.ch() == ' ' || l.ch() == '\t' || l.ch() == '\r') {
			l.pos++
		}
		return l.token(TokenWhitespace, start)

	case ch == '\n':
		l.pos++
		return l.token(TokenNewline, start)

	case ch == '#':
		for l.pos < l.end && l.ch() != '\n' {
			l.pos++
		}
		return l.token(TokenComment, start)

	case ch == '|':
		l.pos++
		return l.token(TokenPipe, start)
	case ch == ';':
		l.pos++
		return l.token(TokenSemicolon, start)
	case ch == ',':
		l.pos++
		return l.token(TokenComma, start)
	case ch == ':':
		l.pos++
		return l.token(TokenColon, start)
	case ch == '(':
		l.pos++
		return l.token(TokenLParen, start)
	case ch == ')':
		l.pos++
		return l.token(TokenRParen, start)
	case ch == '{':
		l.pos++
		return l.token(TokenLBrace, start)
	case ch == '}':
		l.pos++
		return l.token(TokenRBrace, start)
	case ch == '[':
		l.pos++
		return l.token(TokenLBracket, start)
	case ch == ']':
		l.pos++
		return l.token(TokenRBracket, start)

	case ch == '=':
		if l.peek() == '=' {
			l.pos += 2
			return l.token(TokenEq, start)
		}
		l.pos++
		return l.token(TokenAssign, start)

	case ch == '!':
		if l.peek() == '=' {
			l.pos += 2
			return l.token(TokenNotEq, start)
		}
		return l.invalidCharacter(start)

	case ch == '<':
		if l.peek() == '=' {
			l.pos += 2
			return l.token(TokenLessEq, start)
		}
		l.pos++
		return l.token(TokenLess, start)

	case ch == '>':
		if l.peek() == '=' {
			l.pos += 2
			return l.token(TokenGreaterEq, start)
		}
		l.pos++
		return l.token(TokenGreater, start)

	case ch == '+':
		l.pos++
		return l.token(TokenPlus, start)

	case ch == '*':
		l.pos++
		return l.token(TokenStar, start)

	case ch == '/':
		l.pos++
		return l.token(TokenSlash, start)

	case ch == '-':
		if isDigit(l.peek()) {
			return l.readNumber(start)
		}
		if l.peek() == '-' || isLetter(l.peek()) {
			return l.readFlag(start)
		}
		l.pos++
		return l.token(TokenMinus, start)

	case ch == '$':
		if l.peek() == '"' {
			return l.readInterpString(start)
		}
		if isLetter(l.peek()) || l.peek() == '_' {
			return l.readVariable(start)
		}
		return l.invalidCharacter(start)

	case ch == '\'':
		return l.readSingleString(start)

	case ch == '"':
		return l.readDoubleString(start)

	case ch == '.':
		if l.peek() == '.' {
			l.pos += 2
			return l.token(TokenDotDot, start)
		}
		return l.readBareWord(start)

	case isDigit(ch):
		return l.readNumber(start)

	case ch == 'o' || ch == 'e':
		if kind, width, ok := l.matchRedirect(); ok {
			l.pos += width
			return l.token(kind, start)
		}
		return l.readBareWord(start)

	case isLetter(ch) || ch == '_' || ch == '~':
		return l.readBareWord(start)

	default:
		return l.invalidCharacter(start)
	}
}

func (l *Lexer) token(kind TokenKind, start int) Token {
	return Token{Kind: kind, Span: position.NewSpan(start, l.pos)}
}

// invalidCharacter consumes one rune and produces an error token.
func (l *Lexer) invalidCharacter(start int) Token {
	r, size := utf8.DecodeRune(l.src[l.pos:l.end])
	if size < 1 {
		size = 1
	}
	l.pos += size
	tok := l.token(TokenError, start)
	l.diags.Error(tok.Span, diagnostics.CodeInvalidCharacter, "invalid character %q", r)
	return tok
}

// matchRedirect checks for the redirection markers o>, o>>, e>, e>>
// and o+e> at the current position without consuming input.
func (l *Lexer) matchRedirect() (TokenKind, int, bool) {
	switch {
	case l.ch() == 'o' && l.peek() == '>' && l.peekAt(2) == '>':
		return TokenRedirectOutAppend, 3, true
	case l.ch() == 'o' && l.peek() == '>':
		return TokenRedirectOut, 2, true
	case l.ch() == 'e' && l.peek() == '>' && l.peekAt(2) == '>':
		return TokenRedirectErrAppend, 3, true
	case l.ch() == 'e' && l.peek() == '>':
		return TokenRedirectErr, 2, true
	case l.ch() == 'o' && l.peek() == '+' && l.peekAt(2) == 'e' && l.peekAt(3) == '>':
		return TokenRedirectBoth, 4, true
	}
	return TokenEOF, 0, false
}

// readBareWord reads a bare word and classifies keywords. Bare words
// are deliberately permissive so paths and globs lex as single tokens;
// the parser decides what a word means from context.
func (l *Lexer) readBareWord(start int) Token {
	plainLetters := true
	for l.pos < l.end {
		ch := l.ch()
		if isWordChar(ch) {
			if !isLetter(ch) {
				plainLetters = false
			}
			l.pos++
			continue
		}
		if ch >= 0x80 {
			r, size := utf8.DecodeRune(l.src[l.pos:l.end])
			if size > 0 && r != utf8.RuneError {
				plainLetters = false
				l.pos += size
				continue
			}
		}
		break
	}

	tok := l.token(TokenBareWord, start)
	if plainLetters {
		if kind, ok := keywords[tok.Text(l.src)]; ok {
			tok.Kind = kind
		}
	}
	return tok
}

// readFlag reads --name or -n style flags, span inclusive of dashes.
func (l *Lexer) readFlag(start int) Token {
	l.pos++ // first dash
	if l.ch() == '-' {
		l.pos++
	}
	for l.pos < l.end && (isLetter(l.ch()) || isDigit(l.ch()) || l.ch() == '-' || l.ch() == '_') {
		l.pos++
	}
	return l.token(TokenFlag, start)
}

// readVariable reads a $name reference, span inclusive of the sigil.
func (l *Lexer) readVariable(start int) Token {
	l.pos++ // '$'
	for l.pos < l.end && (isLetter(l.ch()) || isDigit(l.ch()) || l.ch() == '_') {
		l.pos++
	}
	return l.token(TokenVariable, start)
}

// durationUnits and filesizeUnits are the recognized literal suffixes.
var durationUnits = map[string]bool{
	"ns": true, "us": true, "ms": true, "sec": true,
	"min": true, "hr": true, "day": true, "wk": true,
}

var filesizeUnits = map[string]bool{
	"b": true, "kb": true, "mb": true, "gb": true, "tb": true, "pb": true,
	"kib": true, "mib": true, "gib": true, "tib": true,
}

// readNumber reads int, float, duration, and filesize literals. A
// trailing run of word characters that is not a known unit makes the
// whole literal a malformed-number error token.
func (l *Lexer) readNumber(start int) Token {
	if l.ch() == '-' {
		l.pos++
	}
	for l.pos < l.end && (isDigit(l.ch()) || l.ch() == '_') {
		l.pos++
	}

	isFloat := false
	if l.ch() == '.' && isDigit(l.peek()) {
		isFloat = true
		l.pos++
		for l.pos < l.end && isDigit(l.ch()) {
			l.pos++
		}
	}

	// A second fraction, as in 1.2.3, is malformed. A following `..`
	// is a range operator and ends the literal.
	if l.ch() == '.' && isDigit(l.peek()) {
		for l.pos < l.end && (isDigit(l.ch()) || l.ch() == '.') && !(l.ch() == '.' && l.peek() == '.') {
			l.pos++
		}
		tok := l.token(TokenError, start)
		l.diags.Error(tok.Span, diagnostics.CodeMalformedNumber, "malformed number %q", tok.Text(l.src))
		return tok
	}

	unitStart := l.pos
	for l.pos < l.end && isLetter(l.ch()) {
		l.pos++
	}
	unit := string(l.src[unitStart:l.pos])

	// A following `..` is the range operator, not part of the literal.
	ended := !isWordChar(l.ch()) || (l.ch() == '.' && l.peek() == '.')

	if unit == "" && ended {
		if isFloat {
			return l.token(TokenFloat, start)
		}
		return l.token(TokenInt, start)
	}

	if ended {
		if durationUnits[unit] {
			return l.token(TokenDuration, start)
		}
		if filesizeUnits[unit] {
			return l.token(TokenFilesize, start)
		}
	}

	// Unknown unit or digits glued to word characters.
	for l.pos < l.end && isWordChar(l.ch()) && !(l.ch() == '.' && l.peek() == '.') {
		l.pos++
	}
	tok := l.token(TokenError, start)
	l.diags.Error(tok.Span, diagnostics.CodeMalformedNumber, "malformed number %q", tok.Text(l.src))
	return tok
}

// readSingleString reads a 'literal' string with no escape handling.
func (l *Lexer) readSingleString(start int) Token {
	l.pos++ // opening quote
	for l.pos < l.end {
		if l.ch() == '\'' {
			l.pos++
			return l.token(TokenSingleString, start)
		}
		l.pos++
	}
	tok := l.token(TokenError, start)
	l.diags.Error(tok.Span, diagnostics.CodeUnterminatedString, "unterminated string literal")
	return tok
}

// validEscapes is the set of characters allowed after a backslash in
// double-quoted and interpolated strings.
var validEscapes = map[byte]bool{
	'n': true, 't': true, 'r': true, '\\': true, '"': true, '\'': true,
	'(': true, ')': true, '$': true, 'e': true, '0': true,
}

// readDoubleString reads a "quoted" string with escape sequences.
func (l *Lexer) readDoubleString(start int) Token {
	l.pos++ // opening quote
	for l.pos < l.end {
		switch l.ch() {
		case '"':
			l.pos++
			return l.token(TokenDoubleString, start)
		case '\\':
			l.checkEscape()
		default:
			l.pos++
		}
	}
	tok := l.token(TokenError, start)
	l.diags.Error(tok.Span, diagnostics.CodeUnterminatedString, "unterminated string literal")
	return tok
}

// checkEscape consumes a backslash escape, diagnosing unknown ones.
func (l *Lexer) checkEscape() {
	escStart := l.pos
	l.pos++ // backslash
	if l.pos >= l.end {
		return
	}
	if !validEscapes[l.ch()] {
		l.diags.Error(position.NewSpan(escStart, l.pos+1),
			diagnostics.CodeInvalidEscape, "invalid escape sequence %q", "\\"+string(l.ch()))
	}
	l.pos++
}

// readInterpString reads a $"..." interpolated string as one token,
// recording the absolute sub-spans of embedded (expr) regions so the
// parser can re-lex them later.
func (l *Lexer) readInterpString(start int) Token {
	l.pos += 2 // '$' and opening quote

	var parts []position.Span
	for l.pos < l.end {
		switch l.ch() {
		case '"':
			l.pos++
			tok := l.token(TokenInterpString, start)
			tok.Parts = parts
			return tok
		case '\\':
			l.checkEscape()
		case '(':
			exprStart := l.pos + 1
			depth := 1
			l.pos++
			for l.pos < l.end && depth > 0 {
				switch l.ch() {
				case '(':
					depth++
				case ')':
					depth--
				case '"':
					// The closing quote ends the whole literal even
					// inside an unbalanced expression region.
					depth = 0
					continue
				}
				if depth > 0 {
					l.pos++
				}
			}
			if l.pos >= l.end || l.ch() != ')' {
				tok := l.token(TokenError, start)
				tok.Parts = parts
				l.diags.Error(tok.Span, diagnostics.CodeUnterminatedInterp,
					"unterminated expression in string interpolation")
				return tok
			}
			parts = append(parts, position.NewSpan(exprStart, l.pos))
			l.pos++ // closing paren
		default:
			l.pos++
		}
	}

	tok := l.token(TokenError, start)
	tok.Parts = parts
	l.diags.Error(tok.Span, diagnostics.CodeUnterminatedInterp, "unterminated string interpolation")
	return tok
}

// isLetter checks if character is an ASCII letter.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// isDigit checks if character is an ASCII digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isWordChar checks if character can continue a bare word.
func isWordChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) ||
		ch == '_' || ch == '-' || ch == '.' || ch == '/' ||
		ch == '~' || ch == '*' || ch == '?' || ch == '@'
}
