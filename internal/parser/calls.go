package parser

import (
	"strings"

	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/lexer"
	"github.com/skiff-lang/skiff/internal/resolver"
	"github.com/skiff-lang/skiff/internal/syntax"
)

// parsePipeline parses one or more stages separated by pipes. A single
// stage stays bare; two or more are wrapped in a Pipeline node.
func (p *Parser) parsePipeline() syntax.NodeID {
	stages := []syntax.NodeID{p.parseStage()}
	for p.at(lexer.TokenPipe) {
		p.advance()
		p.skipNewlines()
		stages = append(stages, p.parseStage())
	}
	if len(stages) == 1 {
		return stages[0]
	}
	span := p.arena.Get(stages[0]).Span.Union(p.arena.Get(stages[len(stages)-1]).Span)
	return p.push(syntax.KindPipeline, span, "", stages...)
}

// parseStage parses one pipeline stage: a command call when the stage
// opens with a bare word, otherwise an expression. Redirections attach
// as suffixes.
func (p *Parser) parseStage() syntax.NodeID {
	var stage syntax.NodeID
	if p.at(lexer.TokenBareWord) {
		stage = p.parseCall()
	} else {
		stage = p.parseExpression(precLowest)
	}
	for isRedirect(p.cur().Kind) {
		stage = p.parseRedirection(stage)
	}
	return stage
}

func isRedirect(kind lexer.TokenKind) bool {
	switch kind {
	case lexer.TokenRedirectOut, lexer.TokenRedirectErr, lexer.TokenRedirectBoth,
		lexer.TokenRedirectOutAppend, lexer.TokenRedirectErrAppend:
		return true
	}
	return false
}

// parseRedirection wraps a stage with its redirection target, keeping
// the operator text on the node.
func (p *Parser) parseRedirection(stage syntax.NodeID) syntax.NodeID {
	opTok := p.advance()
	target := p.parseArgExpression()
	span := p.arena.Get(stage).Span.Union(p.arena.Get(target).Span)
	return p.push(syntax.KindRedirection, span, opTok.Text(p.src), stage, target)
}

// parseCall parses a command invocation. The head resolves against the
// scope table; a known signature bounds how many positionals the call
// may consume, while unknown commands take everything up to the next
// stage boundary.
func (p *Parser) parseCall() syntax.NodeID {
	head := p.advance()
	name := head.Text(p.src)
	nameNode := p.push(syntax.KindName, head.Span, name)

	var sig *resolver.Signature
	if id, ok := p.table.ResolveCommand(name, nameNode); ok {
		sig = p.table.Decl(id).Signature
	} else {
		p.diags.Error(head.Span, diagnostics.CodeUnknownCommand,
			"unknown command %q", name)
	}

	maxPositional := -1 // unbounded
	if sig != nil && !sig.HasRest() {
		_, maxPositional = sig.PositionalArity()
	}

	children := []syntax.NodeID{nameNode}
	positionals := 0
	for !p.atStageBoundary() {
		if p.at(lexer.TokenFlag) {
			children = append(children, p.parseFlagArg(sig))
			continue
		}
		if maxPositional >= 0 && positionals >= maxPositional {
			break
		}
		arg := p.parseArgExpression()
		span := p.arena.Get(arg).Span
		children = append(children, p.push(syntax.KindPositionalArg, span, "", arg))
		positionals++
	}

	span := head.Span
	if len(children) > 1 {
		span = span.Union(p.arena.Get(children[len(children)-1]).Span)
	}
	return p.push(syntax.KindCall, span, name, children...)
}

// atStageBoundary reports whether the current token ends a call's
// argument list.
func (p *Parser) atStageBoundary() bool {
	switch p.cur().Kind {
	case lexer.TokenEOF, lexer.TokenNewline, lexer.TokenSemicolon, lexer.TokenPipe,
		lexer.TokenRBrace, lexer.TokenRBracket, lexer.TokenRParen, lexer.TokenComma:
		return true
	}
	return isRedirect(p.cur().Kind)
}

// parseFlagArg parses `--flag`, `-f`, `--flag value`, and
// `--flag=value`. Whether a bare following token is the flag's value
// comes from the signature; without one, only the explicit `=` form
// binds a value.
func (p *Parser) parseFlagArg(sig *resolver.Signature) syntax.NodeID {
	tok := p.advance()
	name := strings.TrimLeft(tok.Text(p.src), "-")

	takesValue := false
	if sig != nil {
		if param, ok := sig.Flag(name); ok {
			takesValue = param.TakesValue
			name = param.Name
		}
	}

	if p.at(lexer.TokenAssign) {
		p.advance()
		value := p.parseArgExpression()
		span := tok.Span.Union(p.arena.Get(value).Span)
		return p.push(syntax.KindNamedArg, span, name, value)
	}
	if takesValue && !p.atStageBoundary() && !p.at(lexer.TokenFlag) {
		value := p.parseArgExpression()
		span := tok.Span.Union(p.arena.Get(value).Span)
		return p.push(syntax.KindNamedArg, span, name, value)
	}
	return p.push(syntax.KindFlagArg, tok.Span, name)
}

// parseArgExpression parses one argument-position expression. Full
// infix expressions are allowed, which is what lets filters like
// `where size > 10kb` take their condition as a single argument.
// Adjacent words without an operator between them stay separate
// arguments.
func (p *Parser) parseArgExpression() syntax.NodeID {
	return p.parseExpression(precLowest)
}
