package parser

import (
	"strings"

	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/lexer"
	"github.com/skiff-lang/skiff/internal/position"
	"github.com/skiff-lang/skiff/internal/syntax"
)

// Binding powers, weakest first. Unary prefix binds tighter than any
// infix operator.
type precedence int

const (
	precLowest precedence = iota
	precAssign
	precOr
	precAnd
	precComparison
	precRange
	precSum
	precProduct
	precPrefix
)

var infixPrecedence = map[lexer.TokenKind]precedence{
	lexer.TokenAssign:    precAssign,
	lexer.TokenOr:        precOr,
	lexer.TokenAnd:       precAnd,
	lexer.TokenEq:        precComparison,
	lexer.TokenNotEq:     precComparison,
	lexer.TokenLess:      precComparison,
	lexer.TokenLessEq:    precComparison,
	lexer.TokenGreater:   precComparison,
	lexer.TokenGreaterEq: precComparison,
	lexer.TokenDotDot:    precRange,
	lexer.TokenPlus:      precSum,
	lexer.TokenMinus:     precSum,
	lexer.TokenStar:      precProduct,
	lexer.TokenSlash:     precProduct,
	lexer.TokenMod:       precProduct,
}

// parseExpression is the precedence climbing loop. Operators at the
// same level associate left, except assignment which associates right.
func (p *Parser) parseExpression(min precedence) syntax.NodeID {
	left := p.parsePrefix()
	for {
		prec, ok := infixPrecedence[p.cur().Kind]
		if !ok || prec <= min {
			break
		}
		left = p.parseInfix(left, prec)
	}
	return left
}

func (p *Parser) parseInfix(left syntax.NodeID, prec precedence) syntax.NodeID {
	opTok := p.advance()
	p.skipNewlines()

	rightMin := prec
	if opTok.Kind == lexer.TokenAssign {
		rightMin = prec - 1 // right associative
	}
	right := p.parseExpression(rightMin)

	span := p.arena.Get(left).Span.Union(p.arena.Get(right).Span)
	kind := syntax.KindBinary
	if opTok.Kind == lexer.TokenDotDot {
		kind = syntax.KindRange
	}
	return p.push(kind, span, opTok.Text(p.src), left, right)
}

func (p *Parser) parsePrefix() syntax.NodeID {
	switch p.cur().Kind {
	case lexer.TokenMinus, lexer.TokenNot:
		opTok := p.advance()
		operand := p.parseExpression(precPrefix)
		span := opTok.Span.Union(p.arena.Get(operand).Span)
		return p.push(syntax.KindUnary, span, opTok.Text(p.src), operand)
	default:
		return p.parsePrimary()
	}
}

// parsePrimary parses one operand. Bare words in expression position
// read as unquoted strings, matching argument position.
func (p *Parser) parsePrimary() syntax.NodeID {
	tok := p.cur()
	switch tok.Kind {
	case lexer.TokenInt:
		p.advance()
		return p.push(syntax.KindInt, tok.Span, tok.Text(p.src))
	case lexer.TokenFloat:
		p.advance()
		return p.push(syntax.KindFloat, tok.Span, tok.Text(p.src))
	case lexer.TokenDuration:
		p.advance()
		return p.push(syntax.KindDuration, tok.Span, tok.Text(p.src))
	case lexer.TokenFilesize:
		p.advance()
		return p.push(syntax.KindFilesize, tok.Span, tok.Text(p.src))
	case lexer.TokenTrue, lexer.TokenFalse:
		p.advance()
		return p.push(syntax.KindBool, tok.Span, tok.Text(p.src))
	case lexer.TokenNull:
		p.advance()
		return p.push(syntax.KindNull, tok.Span, "")
	case lexer.TokenBareWord:
		p.advance()
		return p.push(syntax.KindString, tok.Span, tok.Text(p.src))
	case lexer.TokenSingleString, lexer.TokenDoubleString:
		p.advance()
		return p.push(syntax.KindString, tok.Span, stringContent(tok, p.src))
	case lexer.TokenInterpString:
		p.advance()
		return p.parseInterpolation(tok)
	case lexer.TokenVariable:
		p.advance()
		return p.parseVariable(tok)
	case lexer.TokenLParen:
		return p.parseSubexpression()
	case lexer.TokenLBracket:
		return p.parseListOrTable()
	case lexer.TokenLBrace:
		return p.parseRecordOrClosure()
	case lexer.TokenError:
		// Already diagnosed by the lexer; keep a placeholder so the
		// tree still covers the bytes.
		p.advance()
		return p.push(syntax.KindError, tok.Span, "")
	default:
		p.advance()
		return p.errorNode(tok.Span, diagnostics.CodeUnexpectedToken,
			"unexpected token %s", tok.Kind)
	}
}

// parseVariable resolves a $name reference against the current scope
// chain. Unknown names are diagnosed by the resolver and stay
// unresolved in the tree.
func (p *Parser) parseVariable(tok lexer.Token) syntax.NodeID {
	name := strings.TrimPrefix(tok.Text(p.src), "$")
	node := p.push(syntax.KindVariable, tok.Span, name)
	p.table.ResolveVariable(name, node, tok.Span)
	return node
}

// parseSubexpression parses a parenthesized pipeline. Newlines inside
// the parentheses are soft.
func (p *Parser) parseSubexpression() syntax.NodeID {
	openTok := p.advance() // '('
	p.skipNewlines()

	inner := p.parsePipeline()
	p.skipNewlines()

	end := p.cur().Span
	if p.at(lexer.TokenRParen) {
		p.advance()
		// Re-span the inner node to cover the parentheses so the
		// parent's coverage includes the delimiters.
		node := p.arena.Get(inner)
		node.Span = openTok.Span.Union(end)
		return inner
	}
	p.diags.Error(openTok.Span, diagnostics.CodeMissingDelimiter,
		"parenthesized expression is missing its closing parenthesis")
	return inner
}

// parseListOrTable parses a bracketed literal. A table is a list whose
// first element is a header row followed by a semicolon; the first
// element is parsed speculatively and rolled back when the semicolon
// reveals a table.
func (p *Parser) parseListOrTable() syntax.NodeID {
	openTok := p.advance() // '['
	p.skipNewlines()

	if !p.at(lexer.TokenRBracket) {
		rbp := p.getRollbackPoint()
		first := p.parseArgExpression()
		if p.arena.Get(first).Kind == syntax.KindList && p.at(lexer.TokenSemicolon) {
			p.rollback(rbp)
			return p.parseTable(openTok)
		}
		return p.parseListRest(openTok, first)
	}
	return p.parseListRest(openTok, syntax.InvalidNodeID)
}

// parseListRest consumes the remaining elements of a list literal.
// Commas between elements are optional and newlines are soft. When the
// closing bracket never appears the list is diagnosed once and closed
// synthetically at the offending token.
func (p *Parser) parseListRest(openTok lexer.Token, first syntax.NodeID) syntax.NodeID {
	var elems []syntax.NodeID
	if first != syntax.InvalidNodeID {
		elems = append(elems, first)
	}
	for {
		if p.at(lexer.TokenComma) {
			p.advance()
		}
		p.skipNewlines()
		switch p.cur().Kind {
		case lexer.TokenRBracket:
			closeTok := p.advance()
			return p.push(syntax.KindList, openTok.Span.Union(closeTok.Span), "", elems...)
		case lexer.TokenEOF, lexer.TokenSemicolon, lexer.TokenRBrace, lexer.TokenPipe:
			closer := p.errorNode(p.cur().Span, diagnostics.CodeMissingDelimiter,
				"list is missing its closing bracket")
			elems = append(elems, closer)
			span := openTok.Span.Union(p.cur().Span)
			return p.push(syntax.KindList, span, "", elems...)
		}
		elems = append(elems, p.parseArgExpression())
	}
}

// parseTable parses `[[col col]; [v v], [v v]]`. The header row holds
// column names; each following row is a bracketed value list.
func (p *Parser) parseTable(openTok lexer.Token) syntax.NodeID {
	header := p.parseTableHeader()
	if p.at(lexer.TokenSemicolon) {
		p.advance()
	}
	p.skipNewlines()

	rows := []syntax.NodeID{header}
	for {
		if p.at(lexer.TokenComma) {
			p.advance()
		}
		p.skipNewlines()
		switch p.cur().Kind {
		case lexer.TokenRBracket:
			closeTok := p.advance()
			return p.push(syntax.KindTable, openTok.Span.Union(closeTok.Span), "", rows...)
		case lexer.TokenEOF, lexer.TokenSemicolon, lexer.TokenRBrace, lexer.TokenPipe:
			closer := p.errorNode(p.cur().Span, diagnostics.CodeMissingDelimiter,
				"table is missing its closing bracket")
			rows = append(rows, closer)
			span := openTok.Span.Union(p.cur().Span)
			return p.push(syntax.KindTable, span, "", rows...)
		case lexer.TokenLBracket:
			rows = append(rows, p.parseTableRow())
		default:
			tok := p.advance()
			rows = append(rows, p.errorNode(tok.Span, diagnostics.CodeUnexpectedToken,
				"expected a table row, got %s", tok.Kind))
		}
	}
}

// parseTableHeader parses the column name row.
func (p *Parser) parseTableHeader() syntax.NodeID {
	openTok := p.advance() // '['
	var cols []syntax.NodeID
	for {
		if p.at(lexer.TokenComma) {
			p.advance()
		}
		p.skipNewlines()
		switch p.cur().Kind {
		case lexer.TokenRBracket:
			closeTok := p.advance()
			return p.push(syntax.KindTableRow, openTok.Span.Union(closeTok.Span), "", cols...)
		case lexer.TokenBareWord:
			tok := p.advance()
			cols = append(cols, p.push(syntax.KindName, tok.Span, tok.Text(p.src)))
		case lexer.TokenSingleString, lexer.TokenDoubleString:
			tok := p.advance()
			cols = append(cols, p.push(syntax.KindName, tok.Span, stringContent(tok, p.src)))
		default:
			tok := p.cur()
			cols = append(cols, p.errorNode(tok.Span, diagnostics.CodeUnexpectedToken,
				"expected a column name, got %s", tok.Kind))
			for !p.at(lexer.TokenRBracket) && !p.at(lexer.TokenRBrace) &&
				!p.at(lexer.TokenSemicolon) && !p.at(lexer.TokenEOF) {
				p.advance()
			}
			end := p.cur().Span
			if p.at(lexer.TokenRBracket) {
				p.advance()
			}
			return p.push(syntax.KindTableRow, openTok.Span.Union(end), "", cols...)
		}
	}
}

// parseTableRow parses one bracketed value row.
func (p *Parser) parseTableRow() syntax.NodeID {
	openTok := p.advance() // '['
	var cells []syntax.NodeID
	for {
		if p.at(lexer.TokenComma) {
			p.advance()
		}
		p.skipNewlines()
		switch p.cur().Kind {
		case lexer.TokenRBracket:
			closeTok := p.advance()
			return p.push(syntax.KindTableRow, openTok.Span.Union(closeTok.Span), "", cells...)
		case lexer.TokenEOF, lexer.TokenSemicolon, lexer.TokenRBrace, lexer.TokenPipe:
			cells = append(cells, p.errorNode(p.cur().Span, diagnostics.CodeMissingDelimiter,
				"table row is missing its closing bracket"))
			span := openTok.Span.Union(p.cur().Span)
			return p.push(syntax.KindTableRow, span, "", cells...)
		}
		cells = append(cells, p.parseArgExpression())
	}
}

// parseRecordOrClosure disambiguates `{key: value}` records from
// `{|params| body}` and `{ body }` closures by looking at the first
// tokens after the brace.
func (p *Parser) parseRecordOrClosure() syntax.NodeID {
	if p.startsRecord() {
		return p.parseRecord()
	}
	return p.parseClosure()
}

// startsRecord reports whether the brace opens a record: an empty
// `{}`, or a field key immediately followed by a colon.
func (p *Parser) startsRecord() bool {
	i := p.pos + 1 // past '{'
	for i < len(p.tokens) && p.tokens[i].Kind == lexer.TokenNewline {
		i++
	}
	if i >= len(p.tokens) {
		return false
	}
	switch p.tokens[i].Kind {
	case lexer.TokenRBrace:
		return true
	case lexer.TokenBareWord, lexer.TokenSingleString, lexer.TokenDoubleString:
		return i+1 < len(p.tokens) && p.tokens[i+1].Kind == lexer.TokenColon
	}
	return false
}

// parseRecord parses `{key: value, key: value}`. Field separators are
// commas or newlines.
func (p *Parser) parseRecord() syntax.NodeID {
	openTok := p.advance() // '{'
	var fields []syntax.NodeID
	for {
		if p.at(lexer.TokenComma) {
			p.advance()
		}
		p.skipNewlines()
		switch p.cur().Kind {
		case lexer.TokenRBrace:
			closeTok := p.advance()
			return p.push(syntax.KindRecord, openTok.Span.Union(closeTok.Span), "", fields...)
		case lexer.TokenEOF:
			closer := p.errorNode(p.cur().Span, diagnostics.CodeMissingDelimiter,
				"record is missing its closing brace")
			fields = append(fields, closer)
			span := openTok.Span.Union(p.cur().Span)
			return p.push(syntax.KindRecord, span, "", fields...)
		}
		fields = append(fields, p.parseRecordField())
	}
}

func (p *Parser) parseRecordField() syntax.NodeID {
	keyTok := p.cur()
	var key syntax.NodeID
	switch keyTok.Kind {
	case lexer.TokenBareWord:
		p.advance()
		key = p.push(syntax.KindName, keyTok.Span, keyTok.Text(p.src))
	case lexer.TokenSingleString, lexer.TokenDoubleString:
		p.advance()
		key = p.push(syntax.KindName, keyTok.Span, stringContent(keyTok, p.src))
	default:
		p.advance()
		return p.errorNode(keyTok.Span, diagnostics.CodeUnexpectedToken,
			"expected a record key, got %s", keyTok.Kind)
	}

	if _, ok := p.expect(lexer.TokenColon); !ok {
		return p.push(syntax.KindRecordField, keyTok.Span, "", key)
	}
	p.skipNewlines()

	value := p.parseExpression(precLowest)
	span := keyTok.Span.Union(p.arena.Get(value).Span)
	return p.push(syntax.KindRecordField, span, "", key, value)
}

// parseClosure parses `{|params| statements}` and `{ statements }`.
// Parameters bind as variables in the closure's own frame.
func (p *Parser) parseClosure() syntax.NodeID {
	openTok := p.advance() // '{'

	p.table.EnterFrame()
	defer p.table.ExitFrame()

	var children []syntax.NodeID
	if p.at(lexer.TokenPipe) {
		params := p.parseClosureParams()
		children = append(children, params)
	}
	p.prescan(p.pos, true)

	p.skipSeparators()
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		children = append(children, p.parseStatementChecked())
		p.skipSeparators()
	}

	end := p.cur().Span
	if p.at(lexer.TokenRBrace) {
		p.advance()
	} else {
		p.diags.Error(openTok.Span, diagnostics.CodeUnterminatedBlock,
			"closure is missing its closing brace")
	}

	return p.push(syntax.KindClosure, openTok.Span.Union(end), "", children...)
}

// parseClosureParams parses the `|a, b|` parameter list, declaring
// each name in the enclosing (closure) frame.
func (p *Parser) parseClosureParams() syntax.NodeID {
	openTok := p.advance() // '|'
	var params []syntax.NodeID
	for !p.at(lexer.TokenPipe) && !p.at(lexer.TokenEOF) && !p.at(lexer.TokenRBrace) {
		if p.at(lexer.TokenComma) {
			p.advance()
			continue
		}
		tok := p.cur()
		if tok.Kind != lexer.TokenBareWord {
			p.advance()
			params = append(params, p.errorNode(tok.Span, diagnostics.CodeUnexpectedToken,
				"expected a parameter name, got %s", tok.Kind))
			continue
		}
		p.advance()
		name := tok.Text(p.src)
		node := p.push(syntax.KindParam, tok.Span, name)
		id := p.table.DeclareVariable(name, tok.Span)
		p.table.VarResolution[node] = id
		params = append(params, node)
	}

	end := p.cur().Span
	if p.at(lexer.TokenPipe) {
		p.advance()
	} else {
		p.diags.Error(openTok.Span, diagnostics.CodeMissingDelimiter,
			"parameter list is missing its closing pipe")
	}
	return p.push(syntax.KindParams, openTok.Span.Union(end), "", params...)
}

// parseInterpolation builds the tree for an interpolated string. Each
// embedded expression region is re-lexed at its absolute offset and
// parsed with the surrounding scope, so interpolation spans and
// resolution behave exactly like top-level code.
func (p *Parser) parseInterpolation(tok lexer.Token) syntax.NodeID {
	var children []syntax.NodeID

	contentStart := tok.Span.Start + 2 // past $"
	contentEnd := tok.Span.End
	if contentEnd > contentStart && p.src[contentEnd-1] == '"' {
		contentEnd--
	}

	cursor := contentStart
	for _, part := range tok.Parts {
		// Literal text up to the opening paren.
		textEnd := part.Start - 1
		if textEnd > cursor {
			children = append(children, p.push(syntax.KindInterpText,
				position.NewSpan(cursor, textEnd), string(p.src[cursor:textEnd])))
		}
		children = append(children, p.parseInterpPart(part))
		cursor = part.End
		if cursor < len(p.src) && p.src[cursor] == ')' {
			cursor++
		}
	}
	if contentEnd > cursor {
		children = append(children, p.push(syntax.KindInterpText,
			position.NewSpan(cursor, contentEnd), string(p.src[cursor:contentEnd])))
	}

	return p.push(syntax.KindStringInterp, tok.Span, "", children...)
}

// parseInterpPart parses one embedded expression with a sub-parser
// sharing this parser's arena, scope table, and diagnostics.
func (p *Parser) parseInterpPart(part position.Span) syntax.NodeID {
	sub := &Parser{
		src:    p.src,
		tokens: filterTrivia(lexer.TokenizeRegion(p.src, part.Start, part.End, p.diags)),
		arena:  p.arena,
		table:  p.table,
		diags:  p.diags,
	}
	expr := sub.parsePipeline()
	return p.push(syntax.KindInterpExpr, part, "", expr)
}

// stringContent strips the surrounding quotes from a string token.
// Escape sequences stay raw: decoding them is evaluation's job.
func stringContent(tok lexer.Token, src []byte) string {
	text := tok.Text(src)
	if len(text) >= 2 {
		last := text[len(text)-1]
		if (last == '\'' || last == '"') && (text[0] == '\'' || text[0] == '"') {
			return text[1 : len(text)-1]
		}
	}
	if len(text) >= 1 && (text[0] == '\'' || text[0] == '"') {
		return text[1:] // unterminated
	}
	return text
}
