// Package diagnostics accumulates structured errors and warnings from
// every stage of the Skiff front end. All user-facing problems flow
// through a Collector and never halt the pipeline; the parse entry
// point always returns a tree alongside the collected diagnostics.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/skiff-lang/skiff/internal/position"
)

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Stable diagnostic codes, usable by hosts for filtering and testing.
const (
	// Lexical
	CodeUnterminatedString = "unterminated-string"
	CodeUnterminatedInterp = "unterminated-interpolation"
	CodeMalformedNumber    = "malformed-number"
	CodeInvalidEscape      = "invalid-escape"
	CodeInvalidCharacter   = "invalid-character"

	// Syntax
	CodeUnexpectedToken    = "unexpected-token"
	CodeMissingDelimiter   = "missing-delimiter"
	CodeMalformedSignature = "malformed-signature"
	CodeUnterminatedBlock  = "unterminated-block"

	// Resolution
	CodeUnknownCommand       = "unknown-command"
	CodeUnknownVariable      = "unknown-variable"
	CodeDuplicateDeclaration = "duplicate-declaration"
)

// Diagnostic is one reported problem with a stable code and source span.
type Diagnostic struct {
	Span     position.Span
	Code     string
	Message  string
	Severity Severity
}

// String returns "severity[code] span: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s[%s] %s: %s", d.Severity, d.Code, d.Span, d.Message)
}

// Collector is an ordered, append-only diagnostics sink. Each parse
// invocation owns exactly one collector; it is not safe for concurrent
// use, matching the single-threaded pipeline.
type Collector struct {
	diagnostics []Diagnostic
	errorCount  int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Error records an error-severity diagnostic.
func (c *Collector) Error(span position.Span, code, format string, args ...any) {
	c.add(Diagnostic{
		Span:     span,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

// Warning records a warning-severity diagnostic.
func (c *Collector) Warning(span position.Span, code, format string, args ...any) {
	c.add(Diagnostic{
		Span:     span,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	})
}

func (c *Collector) add(d Diagnostic) {
	if d.Severity == SeverityError {
		c.errorCount++
	}
	c.diagnostics = append(c.diagnostics, d)
}

// All returns the diagnostics in the order they were reported.
func (c *Collector) All() []Diagnostic {
	return c.diagnostics
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int {
	return len(c.diagnostics)
}

// HasErrors returns true if any error-severity diagnostic was reported.
func (c *Collector) HasErrors() bool {
	return c.errorCount > 0
}

// Count returns the number of diagnostics reported so far; it doubles
// as a rollback mark for speculative parsing.
func (c *Collector) Count() int {
	return len(c.diagnostics)
}

// Truncate discards diagnostics reported after the given mark. Used by
// the parser when rolling back a speculative parse.
func (c *Collector) Truncate(mark int) {
	if mark < 0 || mark >= len(c.diagnostics) {
		return
	}
	for _, d := range c.diagnostics[mark:] {
		if d.Severity == SeverityError {
			c.errorCount--
		}
	}
	c.diagnostics = c.diagnostics[:mark]
}

// Render formats every diagnostic with its source line and a caret
// underline, the way the CLI presents them.
func (c *Collector) Render(sf *position.SourceFile) string {
	var sb strings.Builder
	for _, d := range c.diagnostics {
		loc := sf.LocationFor(d.Span.Start)
		fmt.Fprintf(&sb, "%s:%s: %s[%s]: %s\n", sf.Name, loc, d.Severity, d.Code, d.Message)
		sb.WriteString(sf.Underline(d.Span))
		sb.WriteByte('\n')
	}
	return sb.String()
}
