// Package position provides byte-offset source spans for the Skiff
// front end. Every token, syntax node, and diagnostic carries a Span
// into the original source buffer; line/column information is derived
// on demand for rendering, never stored on the nodes themselves.
package position

import (
	"fmt"
	"sort"
	"strings"
)

// Span represents a half-open byte range [Start, End) in the source buffer.
// Spans are never mutated after creation.
type Span struct {
	Start int
	End   int
}

// NewSpan creates a span covering [start, end).
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// IsValid returns true if the span is well formed.
func (s Span) IsValid() bool {
	return s.Start >= 0 && s.Start <= s.End
}

// Len returns the length of the span in bytes.
func (s Span) Len() int {
	if !s.IsValid() {
		return 0
	}
	return s.End - s.Start
}

// Contains returns true if the byte offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return s.Start <= offset && offset < s.End
}

// Union returns a span that encompasses both this span and other.
func (s Span) Union(other Span) Span {
	if !s.IsValid() {
		return other
	}
	if !other.IsValid() {
		return s
	}
	start := s.Start
	if other.Start < start {
		start = other.Start
	}
	end := s.End
	if other.End > end {
		end = other.End
	}
	return Span{Start: start, End: end}
}

// String returns a string representation of the span.
func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Location is a resolved human-readable position, derived from an offset.
type Location struct {
	Line   int // 1-based line number
	Column int // 1-based column number, in bytes
}

// String returns "line:column".
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// SourceFile holds one source buffer and answers offset queries against it.
type SourceFile struct {
	Name       string
	Content    []byte
	lineStarts []int // byte offset of the first character of each line
}

// NewSourceFile creates a source file and indexes its line starts.
func NewSourceFile(name string, content []byte) *SourceFile {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &SourceFile{
		Name:       name,
		Content:    content,
		lineStarts: starts,
	}
}

// LocationFor converts a byte offset into a line/column location.
func (sf *SourceFile) LocationFor(offset int) Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(sf.Content) {
		offset = len(sf.Content)
	}
	line := sort.Search(len(sf.lineStarts), func(i int) bool {
		return sf.lineStarts[i] > offset
	})
	return Location{
		Line:   line,
		Column: offset - sf.lineStarts[line-1] + 1,
	}
}

// Slice returns the source text covered by the span.
func (sf *SourceFile) Slice(span Span) []byte {
	if !span.IsValid() || span.Start > len(sf.Content) {
		return nil
	}
	end := span.End
	if end > len(sf.Content) {
		end = len(sf.Content)
	}
	return sf.Content[span.Start:end]
}

// Line returns the text of the given 1-based line without its newline.
func (sf *SourceFile) Line(line int) string {
	if line < 1 || line > len(sf.lineStarts) {
		return ""
	}
	start := sf.lineStarts[line-1]
	end := len(sf.Content)
	if line < len(sf.lineStarts) {
		end = sf.lineStarts[line] - 1
	}
	return string(sf.Content[start:end])
}

// Underline renders the line containing the span with a caret marker
// beneath the spanned region, for terminal diagnostics.
func (sf *SourceFile) Underline(span Span) string {
	loc := sf.LocationFor(span.Start)
	line := sf.Line(loc.Line)

	width := span.Len()
	endLoc := sf.LocationFor(span.End)
	if endLoc.Line != loc.Line || width < 1 {
		width = 1
	}

	var sb strings.Builder
	sb.WriteString(line)
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat(" ", loc.Column-1))
	sb.WriteString(strings.Repeat("^", width))
	return sb.String()
}
