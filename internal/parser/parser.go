// Package parser implements the Skiff recursive descent parser. It
// consumes the token stream, drives the declaration pre-scanner on
// every block entry, and resolves bindings as it goes, producing a
// flat node arena plus diagnostics. The parse entry point is total: it
// always terminates and always returns a usable tree, recovering from
// malformed input with error placeholder nodes.
package parser

import (
	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/lexer"
	"github.com/skiff-lang/skiff/internal/position"
	"github.com/skiff-lang/skiff/internal/resolver"
	"github.com/skiff-lang/skiff/internal/syntax"
)

// Result is the immutable output of one parse invocation.
type Result struct {
	Arena *syntax.Arena
	Root  syntax.NodeID

	// Bindings holds scope frames, declarations, and per-node
	// resolution results.
	Bindings *resolver.Table

	// Diags collects every diagnostic from lexing, parsing, and
	// resolution, in report order.
	Diags *diagnostics.Collector

	// Source is the buffer all spans index into.
	Source *position.SourceFile
}

// Option configures a parse invocation.
type Option func(*config)

type config struct {
	name string
	seed *resolver.Seed
}

// WithSeed supplies prior top-level declarations for REPL-style
// incremental reuse. The seed is read, never mutated.
func WithSeed(seed *resolver.Seed) Option {
	return func(c *config) { c.seed = seed }
}

// WithName sets the source name used in rendered diagnostics.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// Parse runs the full lex, pre-scan, parse, and resolve pipeline over
// one source buffer. It never fails: malformed input surfaces only
// through the result's diagnostics.
func Parse(src []byte, opts ...Option) *Result {
	cfg := config{name: "<input>"}
	for _, opt := range opts {
		opt(&cfg)
	}

	diags := diagnostics.NewCollector()
	tokens := filterTrivia(lexer.Tokenize(src, diags))

	p := &Parser{
		src:    src,
		tokens: tokens,
		arena:  syntax.NewArena(),
		table:  resolver.NewTable(diags, cfg.seed),
		diags:  diags,
	}
	root := p.parseProgram()

	return &Result{
		Arena:    p.arena,
		Root:     root,
		Bindings: p.table,
		Diags:    diags,
		Source:   position.NewSourceFile(cfg.name, src),
	}
}

// filterTrivia drops whitespace and comment tokens from the parser's
// working view. Newlines stay: they terminate pipelines.
func filterTrivia(tokens []lexer.Token) []lexer.Token {
	out := tokens[:0:0]
	for _, tok := range tokens {
		if !tok.IsTrivia() {
			out = append(out, tok)
		}
	}
	return out
}

// Parser carries the explicit threaded state of one invocation: token
// cursor, arena, scope table, and diagnostics sink. There is no global
// state, so independent parses can run concurrently.
type Parser struct {
	src    []byte
	tokens []lexer.Token
	pos    int

	arena *syntax.Arena
	table *resolver.Table
	diags *diagnostics.Collector
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) at(kind lexer.TokenKind) bool {
	return p.cur().Kind == kind
}

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// expect consumes a token of the given kind or records an
// unexpected-token diagnostic and leaves the cursor in place.
func (p *Parser) expect(kind lexer.TokenKind) (lexer.Token, bool) {
	if p.at(kind) {
		return p.advance(), true
	}
	p.diags.Error(p.cur().Span, diagnostics.CodeUnexpectedToken,
		"expected %s, got %s", kind, p.cur().Kind)
	return p.cur(), false
}

func (p *Parser) skipNewlines() {
	for p.at(lexer.TokenNewline) {
		p.advance()
	}
}

func (p *Parser) skipSeparators() {
	for p.at(lexer.TokenNewline) || p.at(lexer.TokenSemicolon) {
		p.advance()
	}
}

// push appends a node and returns its id.
func (p *Parser) push(kind syntax.NodeKind, span position.Span, literal string, children ...syntax.NodeID) syntax.NodeID {
	return p.arena.Push(syntax.Node{Kind: kind, Span: span, Children: children, Literal: literal})
}

// errorNode records a diagnostic and pushes an Error placeholder so
// the arena's coverage invariant holds through recovery.
func (p *Parser) errorNode(span position.Span, code, format string, args ...any) syntax.NodeID {
	p.diags.Error(span, code, format, args...)
	return p.push(syntax.KindError, span, "")
}

// syncToStatementBoundary skips forward to the next token that can
// begin or separate a statement, so one malformed construct cannot
// poison the rest of the parse.
func (p *Parser) syncToStatementBoundary() {
	for {
		switch p.cur().Kind {
		case lexer.TokenEOF, lexer.TokenNewline, lexer.TokenSemicolon,
			lexer.TokenPipe, lexer.TokenRBrace:
			return
		}
		p.advance()
	}
}

// rollbackPoint captures parser, arena, scope, and diagnostic state
// for speculative parsing.
type rollbackPoint struct {
	pos   int
	nodes int
	diags int
	table resolver.Mark
}

func (p *Parser) getRollbackPoint() rollbackPoint {
	return rollbackPoint{
		pos:   p.pos,
		nodes: p.arena.Len(),
		diags: p.diags.Count(),
		table: p.table.GetMark(),
	}
}

func (p *Parser) rollback(rbp rollbackPoint) {
	p.pos = rbp.pos
	p.arena.Truncate(rbp.nodes)
	p.diags.Truncate(rbp.diags)
	p.table.Rollback(rbp.table)
	p.table.PurgeNodesFrom(syntax.NodeID(rbp.nodes))
}

// ====== Program and statements ======

// parseProgram parses the top-level block. Top-level declarations land
// in the root frame so hosts can snapshot them afterwards.
func (p *Parser) parseProgram() syntax.NodeID {
	p.prescan(p.pos, false)

	var stmts []syntax.NodeID
	p.skipSeparators()
	for !p.at(lexer.TokenEOF) {
		stmts = append(stmts, p.parseStatementChecked())
		p.skipSeparators()
	}
	return p.push(syntax.KindBlock, position.NewSpan(0, len(p.src)), "", stmts...)
}

// parseStatementChecked guarantees forward progress even when a
// statement parser cannot consume anything.
func (p *Parser) parseStatementChecked() syntax.NodeID {
	before := p.pos
	stmt := p.parseStatement()
	if p.pos == before && !p.at(lexer.TokenEOF) {
		tok := p.advance()
		return p.errorNode(tok.Span, diagnostics.CodeUnexpectedToken,
			"unexpected token %s", tok.Kind)
	}
	return stmt
}

func (p *Parser) parseStatement() syntax.NodeID {
	switch p.cur().Kind {
	case lexer.TokenLet, lexer.TokenMut:
		return p.parseLet()
	case lexer.TokenDef:
		return p.parseDef()
	case lexer.TokenAlias:
		return p.parseAlias()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenWhile:
		return p.parseWhile()
	default:
		return p.parsePipeline()
	}
}

// parseLet parses `let name = <pipeline>` and `mut name = <pipeline>`.
// The binding becomes visible only after its initializer, so
// `let x = $x` resolves the reference against an outer scope.
func (p *Parser) parseLet() syntax.NodeID {
	letTok := p.advance()
	kind := syntax.KindLet
	if letTok.Kind == lexer.TokenMut {
		kind = syntax.KindMut
	}

	nameTok, ok := p.expect(lexer.TokenBareWord)
	if !ok {
		p.syncToStatementBoundary()
		return p.push(syntax.KindError, letTok.Span.Union(p.cur().Span), "")
	}
	nameNode := p.push(syntax.KindName, nameTok.Span, nameTok.Text(p.src))

	if _, ok := p.expect(lexer.TokenAssign); !ok {
		p.syncToStatementBoundary()
		return p.push(kind, letTok.Span.Union(nameTok.Span), "", nameNode)
	}
	p.skipNewlines()

	init := p.parsePipeline()

	id := p.table.DeclareVariable(nameTok.Text(p.src), nameTok.Span)
	p.table.VarResolution[nameNode] = id

	span := letTok.Span.Union(p.arena.Get(init).Span)
	return p.push(kind, span, "", nameNode, init)
}

// parseDef parses `def name [signature] { body }`. The pre-scanner has
// already registered the command, so the declaration here only binds
// the name node and builds the tree.
func (p *Parser) parseDef() syntax.NodeID {
	defTok := p.advance()

	nameTok := p.cur()
	if nameTok.Kind != lexer.TokenBareWord && nameTok.Kind != lexer.TokenSingleString &&
		nameTok.Kind != lexer.TokenDoubleString {
		p.diags.Error(nameTok.Span, diagnostics.CodeUnexpectedToken,
			"expected a command name after def, got %s", nameTok.Kind)
		p.syncToStatementBoundary()
		return p.push(syntax.KindError, defTok.Span.Union(nameTok.Span), "")
	}
	p.advance()
	name := commandName(nameTok, p.src)
	nameNode := p.push(syntax.KindName, nameTok.Span, name)
	p.table.ResolveCommand(name, nameNode)

	paramsNode, params := p.parseSignatureNode()

	p.skipNewlines()
	if !p.at(lexer.TokenLBrace) {
		p.diags.Error(p.cur().Span, diagnostics.CodeUnexpectedToken,
			"expected a block for the body of def %s", name)
		p.syncToStatementBoundary()
		span := defTok.Span.Union(p.arena.Get(paramsNode).Span)
		return p.push(syntax.KindDef, span, name, nameNode, paramsNode)
	}

	var names []string
	for _, param := range params {
		names = append(names, param.Name)
	}
	body := p.parseBlockBody(names)

	span := defTok.Span.Union(p.arena.Get(body).Span)
	return p.push(syntax.KindDef, span, name, nameNode, paramsNode, body)
}

// parseAlias parses `alias name = <pipeline>`.
func (p *Parser) parseAlias() syntax.NodeID {
	aliasTok := p.advance()

	nameTok, ok := p.expect(lexer.TokenBareWord)
	if !ok {
		p.syncToStatementBoundary()
		return p.push(syntax.KindError, aliasTok.Span.Union(p.cur().Span), "")
	}
	name := nameTok.Text(p.src)
	nameNode := p.push(syntax.KindName, nameTok.Span, name)
	p.table.ResolveCommand(name, nameNode)

	if _, ok := p.expect(lexer.TokenAssign); !ok {
		p.syncToStatementBoundary()
		return p.push(syntax.KindAlias, aliasTok.Span.Union(nameTok.Span), name, nameNode)
	}
	p.skipNewlines()

	target := p.parsePipeline()
	span := aliasTok.Span.Union(p.arena.Get(target).Span)
	return p.push(syntax.KindAlias, span, name, nameNode, target)
}

// parseIf parses `if cond { } else if cond { } else { }` chains.
func (p *Parser) parseIf() syntax.NodeID {
	ifTok := p.advance()

	cond := p.parseExpression(precLowest)
	p.skipNewlines()

	var thenNode syntax.NodeID
	if p.at(lexer.TokenLBrace) {
		thenNode = p.parseBlockBody(nil)
	} else {
		thenNode = p.errorNode(p.cur().Span, diagnostics.CodeUnexpectedToken,
			"expected a block after if condition")
		p.syncToStatementBoundary()
	}

	children := []syntax.NodeID{cond, thenNode}
	end := p.arena.Get(thenNode).Span

	if p.at(lexer.TokenElse) {
		p.advance()
		p.skipNewlines()
		var elseNode syntax.NodeID
		switch {
		case p.at(lexer.TokenIf):
			elseNode = p.parseIf()
		case p.at(lexer.TokenLBrace):
			elseNode = p.parseBlockBody(nil)
		default:
			elseNode = p.errorNode(p.cur().Span, diagnostics.CodeUnexpectedToken,
				"expected a block or if after else")
			p.syncToStatementBoundary()
		}
		children = append(children, elseNode)
		end = p.arena.Get(elseNode).Span
	}

	return p.push(syntax.KindIf, ifTok.Span.Union(end), "", children...)
}

// parseFor parses `for name in iterable { body }`, binding the loop
// variable inside the body frame.
func (p *Parser) parseFor() syntax.NodeID {
	forTok := p.advance()

	nameTok, ok := p.expect(lexer.TokenBareWord)
	if !ok {
		p.syncToStatementBoundary()
		return p.push(syntax.KindError, forTok.Span.Union(p.cur().Span), "")
	}
	nameNode := p.push(syntax.KindName, nameTok.Span, nameTok.Text(p.src))

	if _, ok := p.expect(lexer.TokenIn); !ok {
		p.syncToStatementBoundary()
		return p.push(syntax.KindFor, forTok.Span.Union(nameTok.Span), "", nameNode)
	}

	iterable := p.parseExpression(precLowest)
	p.skipNewlines()

	var body syntax.NodeID
	if p.at(lexer.TokenLBrace) {
		body = p.parseBlockBody([]string{nameTok.Text(p.src)})
	} else {
		body = p.errorNode(p.cur().Span, diagnostics.CodeUnexpectedToken,
			"expected a block for the for body")
		p.syncToStatementBoundary()
	}

	span := forTok.Span.Union(p.arena.Get(body).Span)
	return p.push(syntax.KindFor, span, "", nameNode, iterable, body)
}

// parseWhile parses `while cond { body }`.
func (p *Parser) parseWhile() syntax.NodeID {
	whileTok := p.advance()

	cond := p.parseExpression(precLowest)
	p.skipNewlines()

	var body syntax.NodeID
	if p.at(lexer.TokenLBrace) {
		body = p.parseBlockBody(nil)
	} else {
		body = p.errorNode(p.cur().Span, diagnostics.CodeUnexpectedToken,
			"expected a block for the while body")
		p.syncToStatementBoundary()
	}

	span := whileTok.Span.Union(p.arena.Get(body).Span)
	return p.push(syntax.KindWhile, span, "", cond, body)
}

// parseBlockBody parses a braced block: enter a fresh scope frame,
// bind any pre-declared names (loop variables, parameters), pre-scan
// for command declarations, then parse statements until the closing
// brace. An unterminated block is diagnosed and synthetically closed.
func (p *Parser) parseBlockBody(preDeclare []string) syntax.NodeID {
	openTok := p.advance() // '{'

	p.table.EnterFrame()
	defer p.table.ExitFrame()

	for _, name := range preDeclare {
		p.table.DeclareVariable(name, openTok.Span)
	}
	p.prescan(p.pos, true)

	var stmts []syntax.NodeID
	p.skipSeparators()
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		stmts = append(stmts, p.parseStatementChecked())
		p.skipSeparators()
	}

	end := p.cur().Span
	if p.at(lexer.TokenRBrace) {
		p.advance()
	} else {
		p.diags.Error(openTok.Span, diagnostics.CodeUnterminatedBlock,
			"block is missing its closing brace")
	}

	return p.push(syntax.KindBlock, openTok.Span.Union(end), "", stmts...)
}

// commandName returns the declared name for a def/alias name token,
// stripping quotes from quoted names.
func commandName(tok lexer.Token, src []byte) string {
	text := tok.Text(src)
	if tok.Kind == lexer.TokenSingleString || tok.Kind == lexer.TokenDoubleString {
		if len(text) >= 2 {
			return text[1 : len(text)-1]
		}
	}
	return text
}
