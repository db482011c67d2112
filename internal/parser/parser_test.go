package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/position"
	"github.com/skiff-lang/skiff/internal/resolver"
	"github.com/skiff-lang/skiff/internal/syntax"
)

func parseInput(t *testing.T, input string) *Result {
	t.Helper()
	return Parse([]byte(input), WithName("test.sk"))
}

func rootChildren(res *Result) []syntax.NodeID {
	return res.Arena.Get(res.Root).Children
}

func nodesOfKind(res *Result, kind syntax.NodeKind) []syntax.NodeID {
	var out []syntax.NodeID
	for i := 0; i < res.Arena.Len(); i++ {
		if res.Arena.Get(syntax.NodeID(i)).Kind == kind {
			out = append(out, syntax.NodeID(i))
		}
	}
	return out
}

// exprString renders an expression subtree as a prefix s-expression
// for compact structural assertions.
func exprString(res *Result, id syntax.NodeID) string {
	n := res.Arena.Get(id)
	switch n.Kind {
	case syntax.KindBinary, syntax.KindRange, syntax.KindUnary:
		op := n.Literal
		if n.Kind == syntax.KindRange {
			op = ".."
		}
		parts := []string{op}
		for _, c := range n.Children {
			parts = append(parts, exprString(res, c))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case syntax.KindVariable:
		return "$" + n.Literal
	case syntax.KindNull:
		return "null"
	default:
		if n.Literal != "" {
			return n.Literal
		}
		return n.Kind.String()
	}
}

func TestParserNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"   \n\n",
		"???",
		")",
		"}}}}",
		"| | |",
		"let",
		"let x",
		"let x =",
		"def",
		"def f",
		"def f [",
		"def f [] {",
		"alias",
		"if",
		"for x",
		"while",
		"{",
		"[",
		"(",
		"$\"unterminated (1 + ",
		"echo 'open string",
		"1 +",
		"echo [1, {a: ", // nested unterminated literals
	}
	for i, input := range inputs {
		res := parseInput(t, input)
		root := res.Arena.Get(res.Root)
		if root.Kind != syntax.KindBlock {
			t.Fatalf("inputs[%d] %q - root kind wrong. expected=%s, got=%s",
				i, input, syntax.KindBlock, root.Kind)
		}
		extent := position.NewSpan(0, len(input))
		if err := res.Arena.CheckCoverage(res.Root, extent); err != nil {
			t.Fatalf("inputs[%d] %q - coverage violated: %v", i, input, err)
		}
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"1 * 2 + 3", "(+ (* 1 2) 3)"},
		{"1 + 2 - 3", "(- (+ 1 2) 3)"},
		{"10 / 2 mod 3", "(mod (/ 10 2) 3)"},
		{"1 + 2 == 3 and true", "(and (== (+ 1 2) 3) true)"},
		{"true or false and true", "(or true (and false true))"},
		{"not true and false", "(and (not true) false)"},
		{"1 < 2 or 2 < 3", "(or (< 1 2) (< 2 3))"},
		{"1..5 + 1", "(.. 1 (+ 5 1))"},
		{"1 + 2..5", "(.. (+ 1 2) 5)"},
		{"10mb / 2", "(/ 10mb 2)"},
		{"1sec + 500ms", "(+ 1sec 500ms)"},
	}
	for i, tt := range tests {
		res := parseInput(t, tt.input)
		if res.Diags.Len() != 0 {
			t.Fatalf("tests[%d] %q - unexpected diagnostics: %v",
				i, tt.input, res.Diags.All())
		}
		stmts := rootChildren(res)
		if len(stmts) != 1 {
			t.Fatalf("tests[%d] %q - statement count wrong. expected=1, got=%d",
				i, tt.input, len(stmts))
		}
		if got := exprString(res, stmts[0]); got != tt.expected {
			t.Fatalf("tests[%d] %q - shape wrong. expected=%s, got=%s",
				i, tt.input, tt.expected, got)
		}
	}
}

func TestPipelineStages(t *testing.T) {
	res := parseInput(t, "ls | where size > 10kb | length")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	stmts := rootChildren(res)
	if len(stmts) != 1 {
		t.Fatalf("statement count wrong. expected=1, got=%d", len(stmts))
	}
	pipeline := res.Arena.Get(stmts[0])
	if pipeline.Kind != syntax.KindPipeline {
		t.Fatalf("kind wrong. expected=%s, got=%s", syntax.KindPipeline, pipeline.Kind)
	}
	if len(pipeline.Children) != 3 {
		t.Fatalf("stage count wrong. expected=3, got=%d", len(pipeline.Children))
	}
	names := []string{"ls", "where", "length"}
	for i, stage := range pipeline.Children {
		call := res.Arena.Get(stage)
		if call.Kind != syntax.KindCall {
			t.Fatalf("stage %d kind wrong. expected=%s, got=%s", i, syntax.KindCall, call.Kind)
		}
		if call.Literal != names[i] {
			t.Fatalf("stage %d name wrong. expected=%s, got=%s", i, names[i], call.Literal)
		}
	}

	// The where condition is one positional holding the comparison.
	where := res.Arena.Get(pipeline.Children[1])
	if len(where.Children) != 2 {
		t.Fatalf("where children wrong. expected=2, got=%d", len(where.Children))
	}
	arg := res.Arena.Get(where.Children[1])
	if arg.Kind != syntax.KindPositionalArg {
		t.Fatalf("arg kind wrong. expected=%s, got=%s", syntax.KindPositionalArg, arg.Kind)
	}
	if got := exprString(res, arg.Children[0]); got != "(> size 10kb)" {
		t.Fatalf("condition shape wrong. expected=(> size 10kb), got=%s", got)
	}
}

func TestCallFlags(t *testing.T) {
	res := parseInput(t, "ls --all -l /tmp")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	call := res.Arena.Get(rootChildren(res)[0])
	if call.Kind != syntax.KindCall {
		t.Fatalf("kind wrong. expected=%s, got=%s", syntax.KindCall, call.Kind)
	}
	if len(call.Children) != 4 {
		t.Fatalf("children count wrong. expected=4, got=%d", len(call.Children))
	}
	all := res.Arena.Get(call.Children[1])
	if all.Kind != syntax.KindFlagArg || all.Literal != "all" {
		t.Fatalf("flag wrong. expected=FlagArg all, got=%s %s", all.Kind, all.Literal)
	}
	// Shorthand -l resolves to its long name via the signature.
	long := res.Arena.Get(call.Children[2])
	if long.Kind != syntax.KindFlagArg || long.Literal != "long" {
		t.Fatalf("shorthand wrong. expected=FlagArg long, got=%s %s", long.Kind, long.Literal)
	}
	pos := res.Arena.Get(call.Children[3])
	if pos.Kind != syntax.KindPositionalArg {
		t.Fatalf("positional wrong. expected=%s, got=%s", syntax.KindPositionalArg, pos.Kind)
	}
}

func TestFlagWithValue(t *testing.T) {
	res := parseInput(t, "def serve [--port: int] { echo $port }; serve --port 8080")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	var named *syntax.Node
	for _, id := range nodesOfKind(res, syntax.KindNamedArg) {
		named = res.Arena.Get(id)
	}
	if named == nil {
		t.Fatalf("no named argument parsed")
	}
	if named.Literal != "port" {
		t.Fatalf("named arg wrong. expected=port, got=%s", named.Literal)
	}
	value := res.Arena.Get(named.Children[0])
	if value.Kind != syntax.KindInt || value.Literal != "8080" {
		t.Fatalf("value wrong. expected=Int 8080, got=%s %s", value.Kind, value.Literal)
	}
}

func TestForwardAndMutualCommandReferences(t *testing.T) {
	tests := []string{
		"def f [] { g }; def g [] { 1 }",
		"def a [] { b }; def b [] { a }",
		"helper 1; def helper [n] { echo $n }",
	}
	for i, input := range tests {
		res := parseInput(t, input)
		if res.Diags.Len() != 0 {
			t.Fatalf("tests[%d] %q - unexpected diagnostics: %v", i, input, res.Diags.All())
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	res := parseInput(t, "frobnicate 1 2")
	diags := res.Diags.All()
	if len(diags) != 1 {
		t.Fatalf("diagnostic count wrong. expected=1, got=%d: %v", len(diags), diags)
	}
	if diags[0].Code != diagnostics.CodeUnknownCommand {
		t.Fatalf("code wrong. expected=%s, got=%s", diagnostics.CodeUnknownCommand, diags[0].Code)
	}
}

func TestUnknownVariableExactlyOneDiagnostic(t *testing.T) {
	res := parseInput(t, "echo $undefined_var")
	diags := res.Diags.All()
	if len(diags) != 1 {
		t.Fatalf("diagnostic count wrong. expected=1, got=%d: %v", len(diags), diags)
	}
	if diags[0].Code != diagnostics.CodeUnknownVariable {
		t.Fatalf("code wrong. expected=%s, got=%s", diagnostics.CodeUnknownVariable, diags[0].Code)
	}
	// The reference stays in the tree, unresolved.
	vars := nodesOfKind(res, syntax.KindVariable)
	if len(vars) != 1 {
		t.Fatalf("variable node count wrong. expected=1, got=%d", len(vars))
	}
	if _, ok := res.Bindings.VarResolution[vars[0]]; ok {
		t.Fatalf("unknown variable should stay unresolved")
	}
}

func TestVariableVisibleOnlyAfterIntroduction(t *testing.T) {
	res := parseInput(t, "let x = $x")
	diags := res.Diags.All()
	if len(diags) != 1 || diags[0].Code != diagnostics.CodeUnknownVariable {
		t.Fatalf("initializer must not see its own binding, got %v", diags)
	}

	res = parseInput(t, "let y = 1; let z = $y")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
}

func TestShadowingResolvesInnermost(t *testing.T) {
	input := "let x = 1; { let x = 2; $x }; $x"
	res := parseInput(t, input)
	if res.Diags.Len() != 0 {
		t.Fatalf("shadowing must be silent, got %v", res.Diags.All())
	}

	vars := nodesOfKind(res, syntax.KindVariable)
	if len(vars) != 2 {
		t.Fatalf("variable node count wrong. expected=2, got=%d", len(vars))
	}

	// First reference is inside the closure: resolves to the inner x.
	innerDecl := res.Bindings.Decl(res.Bindings.VarResolution[vars[0]])
	if got := innerDecl.Span; got != position.NewSpan(17, 18) {
		t.Fatalf("inner resolution wrong. expected span 17..18, got=%s", got)
	}
	// Second reference follows the closure: the outer x is restored.
	outerDecl := res.Bindings.Decl(res.Bindings.VarResolution[vars[1]])
	if got := outerDecl.Span; got != position.NewSpan(4, 5) {
		t.Fatalf("outer resolution wrong. expected span 4..5, got=%s", got)
	}
}

func TestDuplicateDefLastWins(t *testing.T) {
	res := parseInput(t, "def f [] { 1 }; def f [a] { 2 }; f 5")
	diags := res.Diags.All()
	if len(diags) != 1 {
		t.Fatalf("diagnostic count wrong. expected=1, got=%d: %v", len(diags), diags)
	}
	if diags[0].Code != diagnostics.CodeDuplicateDeclaration {
		t.Fatalf("code wrong. expected=%s, got=%s",
			diagnostics.CodeDuplicateDeclaration, diags[0].Code)
	}
	// The call parses against the later signature, which takes one
	// positional.
	var call *syntax.Node
	for _, id := range nodesOfKind(res, syntax.KindCall) {
		if n := res.Arena.Get(id); n.Literal == "f" {
			call = n
		}
	}
	if call == nil {
		t.Fatalf("call to f not parsed")
	}
	if len(call.Children) != 2 {
		t.Fatalf("call children wrong. expected=2, got=%d", len(call.Children))
	}
}

func TestListRecoveryResumesAtBoundary(t *testing.T) {
	res := parseInput(t, "echo [1, 2; print 3")
	diags := res.Diags.All()
	if len(diags) != 1 {
		t.Fatalf("diagnostic count wrong. expected=1, got=%d: %v", len(diags), diags)
	}
	if diags[0].Code != diagnostics.CodeMissingDelimiter {
		t.Fatalf("code wrong. expected=%s, got=%s", diagnostics.CodeMissingDelimiter, diags[0].Code)
	}

	lists := nodesOfKind(res, syntax.KindList)
	if len(lists) != 1 {
		t.Fatalf("list count wrong. expected=1, got=%d", len(lists))
	}
	list := res.Arena.Get(lists[0])
	if len(list.Children) != 3 {
		t.Fatalf("list children wrong. expected=3, got=%d", len(list.Children))
	}
	if res.Arena.Get(list.Children[2]).Kind != syntax.KindError {
		t.Fatalf("list should close with an error placeholder")
	}

	// The sibling statement after the semicolon parses normally.
	found := false
	for _, id := range nodesOfKind(res, syntax.KindCall) {
		if res.Arena.Get(id).Literal == "print" {
			found = true
		}
	}
	if !found {
		t.Fatalf("statement after recovery point was not parsed")
	}
}

func TestUnterminatedBlock(t *testing.T) {
	res := parseInput(t, "def f [] { echo hi")
	diags := res.Diags.All()
	if len(diags) != 1 || diags[0].Code != diagnostics.CodeUnterminatedBlock {
		t.Fatalf("expected one unterminated-block diagnostic, got %v", diags)
	}
	if len(nodesOfKind(res, syntax.KindDef)) != 1 {
		t.Fatalf("def should still produce a tree")
	}
}

func TestTableLiteral(t *testing.T) {
	res := parseInput(t, "[[name size]; [vim 10kb], [emacs 20mb]]")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	tables := nodesOfKind(res, syntax.KindTable)
	if len(tables) != 1 {
		t.Fatalf("table count wrong. expected=1, got=%d", len(tables))
	}
	table := res.Arena.Get(tables[0])
	if len(table.Children) != 3 {
		t.Fatalf("row count wrong. expected=3, got=%d", len(table.Children))
	}
	header := res.Arena.Get(table.Children[0])
	if header.Kind != syntax.KindTableRow || len(header.Children) != 2 {
		t.Fatalf("header wrong. got kind=%s children=%d", header.Kind, len(header.Children))
	}
	if res.Arena.Get(header.Children[0]).Literal != "name" {
		t.Fatalf("column name wrong. expected=name, got=%s",
			res.Arena.Get(header.Children[0]).Literal)
	}
}

func TestRecordAndClosureDisambiguation(t *testing.T) {
	res := parseInput(t, "{name: skiff, version: 2}")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	if len(nodesOfKind(res, syntax.KindRecord)) != 1 {
		t.Fatalf("record literal not recognized")
	}
	fields := nodesOfKind(res, syntax.KindRecordField)
	if len(fields) != 2 {
		t.Fatalf("field count wrong. expected=2, got=%d", len(fields))
	}

	res = parseInput(t, "{ echo hi }")
	if len(nodesOfKind(res, syntax.KindClosure)) != 1 {
		t.Fatalf("bare block should parse as a closure")
	}

	res = parseInput(t, "each {|x| echo $x }")
	if res.Diags.Len() != 0 {
		t.Fatalf("closure params must bind, got %v", res.Diags.All())
	}
	if len(nodesOfKind(res, syntax.KindParams)) != 1 {
		t.Fatalf("closure parameter list not parsed")
	}
}

func TestInterpolation(t *testing.T) {
	res := parseInput(t, `echo $"sum (1 + 2)!"`)
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	interps := nodesOfKind(res, syntax.KindStringInterp)
	if len(interps) != 1 {
		t.Fatalf("interpolation count wrong. expected=1, got=%d", len(interps))
	}
	interp := res.Arena.Get(interps[0])
	kinds := []syntax.NodeKind{syntax.KindInterpText, syntax.KindInterpExpr, syntax.KindInterpText}
	if len(interp.Children) != len(kinds) {
		t.Fatalf("children count wrong. expected=%d, got=%d", len(kinds), len(interp.Children))
	}
	for i, id := range interp.Children {
		if got := res.Arena.Get(id).Kind; got != kinds[i] {
			t.Fatalf("child %d kind wrong. expected=%s, got=%s", i, kinds[i], got)
		}
	}

	// Embedded spans stay absolute into the outer buffer.
	expr := res.Arena.Get(interp.Children[1])
	if got := string(res.Source.Slice(expr.Span)); got != "1 + 2" {
		t.Fatalf("embedded span wrong. expected=%q, got=%q", "1 + 2", got)
	}
	if got := exprString(res, expr.Children[0]); got != "(+ 1 2)" {
		t.Fatalf("embedded shape wrong. expected=(+ 1 2), got=%s", got)
	}
}

func TestInterpolationResolvesScope(t *testing.T) {
	res := parseInput(t, `let n = 3; echo $"got ($n)"`)
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}

	res = parseInput(t, `echo $"got ($nope)"`)
	diags := res.Diags.All()
	if len(diags) != 1 || diags[0].Code != diagnostics.CodeUnknownVariable {
		t.Fatalf("expected one unknown-variable diagnostic, got %v", diags)
	}
}

func TestRedirections(t *testing.T) {
	res := parseInput(t, "ls o> out.txt e>> err.log")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	outer := res.Arena.Get(rootChildren(res)[0])
	if outer.Kind != syntax.KindRedirection || outer.Literal != "e>>" {
		t.Fatalf("outer redirection wrong. got kind=%s op=%s", outer.Kind, outer.Literal)
	}
	inner := res.Arena.Get(outer.Children[0])
	if inner.Kind != syntax.KindRedirection || inner.Literal != "o>" {
		t.Fatalf("inner redirection wrong. got kind=%s op=%s", inner.Kind, inner.Literal)
	}
	if res.Arena.Get(inner.Children[0]).Kind != syntax.KindCall {
		t.Fatalf("redirected stage should be the call")
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		input string
		kind  syntax.NodeKind
	}{
		{"if 1 < 2 { echo yes } else { echo no }", syntax.KindIf},
		{"if true { echo a } else if false { echo b } else { echo c }", syntax.KindIf},
		{"for i in 1..3 { echo $i }", syntax.KindFor},
		{"while true { print tick }", syntax.KindWhile},
	}
	for i, tt := range tests {
		res := parseInput(t, tt.input)
		if res.Diags.Len() != 0 {
			t.Fatalf("tests[%d] %q - unexpected diagnostics: %v", i, tt.input, res.Diags.All())
		}
		stmt := res.Arena.Get(rootChildren(res)[0])
		if stmt.Kind != tt.kind {
			t.Fatalf("tests[%d] %q - kind wrong. expected=%s, got=%s",
				i, tt.input, tt.kind, stmt.Kind)
		}
	}
}

func TestDefSignature(t *testing.T) {
	res := parseInput(t, "def greet [who, --loud(-l), ...rest] { echo $who $rest }")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	decl, ok := res.Bindings.LookupCommand("greet")
	if !ok {
		t.Fatalf("greet not declared")
	}
	params := decl.Signature.Params
	if len(params) != 3 {
		t.Fatalf("param count wrong. expected=3, got=%d", len(params))
	}
	if params[0].Name != "who" || params[0].IsFlag || params[0].IsRest {
		t.Fatalf("positional wrong: %+v", params[0])
	}
	if params[1].Name != "loud" || !params[1].IsFlag || params[1].Shorthand != "l" {
		t.Fatalf("flag wrong: %+v", params[1])
	}
	if params[2].Name != "rest" || !params[2].IsRest {
		t.Fatalf("rest wrong: %+v", params[2])
	}
}

func TestAlias(t *testing.T) {
	res := parseInput(t, "alias ll = ls --all\nll")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	decl, ok := res.Bindings.LookupCommand("ll")
	if !ok || decl.Kind != resolver.DeclAlias {
		t.Fatalf("alias not declared, got %+v ok=%v", decl, ok)
	}
}

func TestSeedDeclarationsVisible(t *testing.T) {
	seed := &resolver.Seed{Decls: []resolver.Declaration{
		{
			Name: "greet",
			Kind: resolver.DeclCommand,
			Signature: &resolver.Signature{
				Params: []resolver.Param{{Name: "who"}},
			},
		},
		{Name: "session_count", Kind: resolver.DeclVariable},
	}}
	res := Parse([]byte("greet world; echo $session_count"), WithSeed(seed))
	if res.Diags.Len() != 0 {
		t.Fatalf("seeded declarations must resolve, got %v", res.Diags.All())
	}
}

func TestTopLevelExport(t *testing.T) {
	res := parseInput(t, "def hi [] { echo hi }; let version = 1")
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	top := res.Bindings.TopLevel()
	if len(top) != 2 {
		t.Fatalf("top-level count wrong. expected=2, got=%d: %+v", len(top), top)
	}
	if top[0].Name != "hi" || top[0].Kind != resolver.DeclCommand {
		t.Fatalf("first export wrong: %+v", top[0])
	}
	if top[1].Name != "version" || top[1].Kind != resolver.DeclVariable {
		t.Fatalf("second export wrong: %+v", top[1])
	}
}

func TestDeterminism(t *testing.T) {
	input := `
def stats [path, --top: int] {
	open $path | lines | sort-by length --reverse | first 10
}
let data = [[name size]; [a 1kb], [b 2kb]]
stats ./access.log --top 5
echo $"done ($data | length)"
broken [1, 2
`
	var dumps, reports []string
	for i := 0; i < 3; i++ {
		res := parseInput(t, input)
		dumps = append(dumps, res.Arena.Dump([]byte(input)))
		var lines []string
		for _, d := range res.Diags.All() {
			lines = append(lines, fmt.Sprintf("%s %s %s", d.Span, d.Code, d.Message))
		}
		reports = append(reports, strings.Join(lines, "\n"))
	}
	for i := 1; i < len(dumps); i++ {
		if dumps[i] != dumps[0] {
			t.Fatalf("run %d produced a different tree", i)
		}
		if reports[i] != reports[0] {
			t.Fatalf("run %d produced different diagnostics", i)
		}
	}
}

func TestStrayCloseBraceDoesNotHideDeclarations(t *testing.T) {
	res := parseInput(t, "}\ndef f [] { 1 }\nf")
	diags := res.Diags.All()
	if len(diags) != 1 {
		t.Fatalf("diagnostic count wrong. expected=1, got=%d: %v", len(diags), diags)
	}
	if diags[0].Code != diagnostics.CodeUnexpectedToken {
		t.Fatalf("code wrong. expected=%s, got=%s", diagnostics.CodeUnexpectedToken, diags[0].Code)
	}
	// The def after the stray brace still pre-scans, so the call
	// resolves instead of reporting unknown-command.
	if _, ok := res.Bindings.LookupCommand("f"); !ok {
		t.Fatalf("declaration after stray brace was not registered")
	}
}

func TestTableHeaderRecovery(t *testing.T) {
	res := parseInput(t, "[[1 2]; [3 4]]")
	diags := res.Diags.All()
	if len(diags) != 1 {
		t.Fatalf("diagnostic count wrong. expected=1, got=%d: %v", len(diags), diags)
	}
	if diags[0].Code != diagnostics.CodeUnexpectedToken {
		t.Fatalf("code wrong. expected=%s, got=%s", diagnostics.CodeUnexpectedToken, diags[0].Code)
	}
	tables := nodesOfKind(res, syntax.KindTable)
	if len(tables) != 1 {
		t.Fatalf("table count wrong. expected=1, got=%d", len(tables))
	}
	table := res.Arena.Get(tables[0])
	if len(table.Children) != 2 {
		t.Fatalf("row count wrong. expected=2, got=%d", len(table.Children))
	}
	row := res.Arena.Get(table.Children[1])
	if row.Kind != syntax.KindTableRow || len(row.Children) != 2 {
		t.Fatalf("data row wrong. got kind=%s children=%d", row.Kind, len(row.Children))
	}
}

func TestStatementSpansNest(t *testing.T) {
	input := "let x = 1\nif $x < 2 { echo [1 2 3] | length }\n"
	res := parseInput(t, input)
	if res.Diags.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diags.All())
	}
	if err := res.Arena.CheckCoverage(res.Root, position.NewSpan(0, len(input))); err != nil {
		t.Fatalf("coverage violated: %v", err)
	}
}
