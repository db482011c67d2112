package parser

import (
	"strings"

	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/lexer"
	"github.com/skiff-lang/skiff/internal/position"
	"github.com/skiff-lang/skiff/internal/resolver"
	"github.com/skiff-lang/skiff/internal/syntax"
)

// prescan walks the tokens of the block starting at index from,
// registering every def and alias declared at the block's own depth
// before any statement is parsed. This is what makes forward and
// mutual command references resolve: by the time a call site parses,
// every sibling declaration is already in the frame. Nested blocks are
// skipped; they pre-scan themselves on entry.
//
// bounded marks a braced block, where a depth-0 '}' ends the scan. The
// root scan is unbounded: a stray '}' at the top level is the
// statement parser's problem and must not hide later declarations.
//
// The walk is shallow and silent about malformed declarations. The
// statement parser visits the same tokens afterwards and owns the
// diagnostics.
func (p *Parser) prescan(from int, bounded bool) {
	depth := 0
	atStart := true
	for i := from; i < len(p.tokens); {
		tok := p.tokens[i]
		switch tok.Kind {
		case lexer.TokenEOF:
			return
		case lexer.TokenLBrace, lexer.TokenLBracket, lexer.TokenLParen:
			depth++
			atStart = false
			i++
		case lexer.TokenRBrace:
			if depth == 0 {
				if bounded {
					return // end of this block
				}
				atStart = false
				i++
				continue
			}
			depth--
			atStart = false
			i++
		case lexer.TokenRBracket, lexer.TokenRParen:
			if depth > 0 {
				depth--
			}
			atStart = false
			i++
		case lexer.TokenNewline, lexer.TokenSemicolon:
			if depth == 0 {
				atStart = true
			}
			i++
		case lexer.TokenDef:
			if depth == 0 && atStart {
				i = p.prescanDef(i)
			} else {
				i++
			}
			atStart = false
		case lexer.TokenAlias:
			if depth == 0 && atStart {
				i = p.prescanAlias(i)
			} else {
				i++
			}
			atStart = false
		default:
			atStart = false
			i++
		}
	}
}

// prescanDef registers one `def name [sig]` header and returns the
// index just past the signature.
func (p *Parser) prescanDef(i int) int {
	i++ // past def
	if i >= len(p.tokens) {
		return i
	}
	nameTok := p.tokens[i]
	switch nameTok.Kind {
	case lexer.TokenBareWord, lexer.TokenSingleString, lexer.TokenDoubleString:
	default:
		return i
	}
	name := commandName(nameTok, p.src)
	i++

	sig := &resolver.Signature{}
	if i < len(p.tokens) && p.tokens[i].Kind == lexer.TokenLBracket {
		sig, i = p.scanSignature(i)
	}
	p.table.DeclareCommand(name, resolver.DeclCommand, sig, nameTok.Span)
	return i
}

// prescanAlias registers one `alias name =` header.
func (p *Parser) prescanAlias(i int) int {
	i++ // past alias
	if i >= len(p.tokens) || p.tokens[i].Kind != lexer.TokenBareWord {
		return i
	}
	nameTok := p.tokens[i]
	i++
	if i >= len(p.tokens) || p.tokens[i].Kind != lexer.TokenAssign {
		return i
	}
	p.table.DeclareCommand(nameTok.Text(p.src), resolver.DeclAlias, nil, nameTok.Span)
	return i + 1
}

// scanSignature reads a bracketed signature starting at the '[' token
// and returns the parsed signature plus the index just past the
// closing bracket. Unknown tokens are skipped; the statement parser
// diagnoses them later.
func (p *Parser) scanSignature(i int) (*resolver.Signature, int) {
	sig := &resolver.Signature{}
	i++ // past '['
	for i < len(p.tokens) {
		tok := p.tokens[i]
		switch tok.Kind {
		case lexer.TokenRBracket:
			return sig, i + 1
		case lexer.TokenEOF, lexer.TokenLBrace:
			return sig, i // unterminated; stop before the body
		case lexer.TokenDotDot:
			if i+1 < len(p.tokens) && p.tokens[i+1].Kind == lexer.TokenBareWord {
				word := p.tokens[i+1].Text(p.src)
				if strings.HasPrefix(word, ".") {
					sig.Params = append(sig.Params, resolver.Param{
						Name:   strings.TrimPrefix(word, "."),
						IsRest: true,
					})
					i += 2
					continue
				}
			}
			i++
		case lexer.TokenBareWord:
			param := resolver.Param{Name: tok.Text(p.src)}
			if strings.HasSuffix(param.Name, "?") {
				param.Name = strings.TrimSuffix(param.Name, "?")
				param.HasDefault = true
			}
			i = p.scanParamTail(i+1, &param)
			sig.Params = append(sig.Params, param)
		case lexer.TokenFlag:
			param := resolver.Param{
				Name:   strings.TrimLeft(tok.Text(p.src), "-"),
				IsFlag: true,
			}
			i++
			// shorthand: (-v)
			if i+2 < len(p.tokens) && p.tokens[i].Kind == lexer.TokenLParen &&
				p.tokens[i+1].Kind == lexer.TokenFlag &&
				p.tokens[i+2].Kind == lexer.TokenRParen {
				param.Shorthand = strings.TrimLeft(p.tokens[i+1].Text(p.src), "-")
				i += 3
			}
			i = p.scanParamTail(i, &param)
			sig.Params = append(sig.Params, param)
		default:
			i++
		}
	}
	return sig, i
}

// scanParamTail consumes an optional `: type` annotation and `=
// default` initializer after a parameter name.
func (p *Parser) scanParamTail(i int, param *resolver.Param) int {
	if i+1 < len(p.tokens) && p.tokens[i].Kind == lexer.TokenColon &&
		p.tokens[i+1].Kind == lexer.TokenBareWord {
		param.TakesValue = true
		i += 2
	}
	if i < len(p.tokens) && p.tokens[i].Kind == lexer.TokenAssign {
		param.HasDefault = true
		i = skipDefaultTokens(p.tokens, i+1)
	}
	return i
}

// skipDefaultTokens skips a default value expression up to the next
// separator at the signature's own depth.
func skipDefaultTokens(tokens []lexer.Token, i int) int {
	depth := 0
	for i < len(tokens) {
		switch tokens[i].Kind {
		case lexer.TokenLBracket, lexer.TokenLParen, lexer.TokenLBrace:
			depth++
		case lexer.TokenRBracket, lexer.TokenRParen, lexer.TokenRBrace:
			if depth == 0 {
				return i
			}
			depth--
		case lexer.TokenComma, lexer.TokenNewline:
			if depth == 0 {
				return i
			}
		case lexer.TokenEOF:
			return i
		}
		i++
	}
	return i
}

// parseSignatureNode parses the bracketed signature of a def into
// Param tree nodes, returning the Params node and the resolver view of
// the parameters for binding inside the body. A missing or malformed
// signature is diagnosed here, not in the pre-scanner, so each problem
// reports exactly once.
func (p *Parser) parseSignatureNode() (syntax.NodeID, []resolver.Param) {
	p.skipNewlines()
	if !p.at(lexer.TokenLBracket) {
		here := p.cur().Span.Start
		p.diags.Error(p.cur().Span, diagnostics.CodeMalformedSignature,
			"expected a [signature] after the command name")
		return p.push(syntax.KindParams, position.NewSpan(here, here), ""), nil
	}
	openTok := p.advance()

	var nodes []syntax.NodeID
	var params []resolver.Param
	for {
		if p.at(lexer.TokenComma) {
			p.advance()
		}
		p.skipNewlines()
		tok := p.cur()
		switch tok.Kind {
		case lexer.TokenRBracket:
			closeTok := p.advance()
			span := openTok.Span.Union(closeTok.Span)
			return p.push(syntax.KindParams, span, "", nodes...), params
		case lexer.TokenEOF, lexer.TokenLBrace:
			p.diags.Error(openTok.Span, diagnostics.CodeMalformedSignature,
				"signature is missing its closing bracket")
			span := openTok.Span.Union(tok.Span)
			return p.push(syntax.KindParams, span, "", nodes...), params
		case lexer.TokenDotDot:
			node, param, ok := p.parseRestParam()
			if ok {
				nodes = append(nodes, node)
				params = append(params, param)
			}
		case lexer.TokenBareWord:
			node, param := p.parsePositionalParam()
			nodes = append(nodes, node)
			params = append(params, param)
		case lexer.TokenFlag:
			node, param := p.parseFlagParam()
			nodes = append(nodes, node)
			params = append(params, param)
		default:
			p.advance()
			nodes = append(nodes, p.errorNode(tok.Span, diagnostics.CodeMalformedSignature,
				"unexpected %s in signature", tok.Kind))
		}
	}
}

func (p *Parser) parseRestParam() (syntax.NodeID, resolver.Param, bool) {
	dotsTok := p.advance()
	if p.at(lexer.TokenBareWord) && strings.HasPrefix(p.cur().Text(p.src), ".") {
		nameTok := p.advance()
		name := strings.TrimPrefix(nameTok.Text(p.src), ".")
		param := resolver.Param{Name: name, IsRest: true}
		span := dotsTok.Span.Union(nameTok.Span)
		return p.push(syntax.KindParam, span, name), param, true
	}
	node := p.errorNode(dotsTok.Span, diagnostics.CodeMalformedSignature,
		"expected a rest parameter name after ...")
	return node, resolver.Param{}, false
}

func (p *Parser) parsePositionalParam() (syntax.NodeID, resolver.Param) {
	nameTok := p.advance()
	param := resolver.Param{Name: nameTok.Text(p.src)}
	if strings.HasSuffix(param.Name, "?") {
		param.Name = strings.TrimSuffix(param.Name, "?")
		param.HasDefault = true
	}
	end := p.parseParamTail(&param)
	span := nameTok.Span
	if end.IsValid() {
		span = span.Union(end)
	}
	return p.push(syntax.KindParam, span, param.Name), param
}

func (p *Parser) parseFlagParam() (syntax.NodeID, resolver.Param) {
	flagTok := p.advance()
	param := resolver.Param{
		Name:   strings.TrimLeft(flagTok.Text(p.src), "-"),
		IsFlag: true,
	}
	span := flagTok.Span

	if p.at(lexer.TokenLParen) && p.peek().Kind == lexer.TokenFlag {
		p.advance()
		shortTok := p.advance()
		param.Shorthand = strings.TrimLeft(shortTok.Text(p.src), "-")
		if closeTok, ok := p.expect(lexer.TokenRParen); ok {
			span = span.Union(closeTok.Span)
		}
	}
	if end := p.parseParamTail(&param); end.IsValid() {
		span = span.Union(end)
	}
	return p.push(syntax.KindParam, span, param.Name), param
}

// parseParamTail consumes `: type` and `= default` suffixes, returning
// the span end of whatever it consumed.
func (p *Parser) parseParamTail(param *resolver.Param) position.Span {
	end := position.Span{Start: -1, End: -1}
	if p.at(lexer.TokenColon) && p.peek().Kind == lexer.TokenBareWord {
		p.advance()
		typeTok := p.advance()
		param.TakesValue = true
		end = typeTok.Span
	}
	if p.at(lexer.TokenAssign) {
		p.advance()
		param.HasDefault = true
		idx := skipDefaultTokens(p.tokens, p.pos)
		if idx > p.pos {
			end = p.tokens[idx-1].Span
		}
		p.pos = idx
	}
	return end
}
