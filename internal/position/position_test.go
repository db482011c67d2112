package position

import "testing"

func TestSpanBasics(t *testing.T) {
	s := NewSpan(3, 8)

	if !s.IsValid() {
		t.Fatalf("span %v should be valid", s)
	}
	if s.Len() != 5 {
		t.Errorf("length wrong. expected=5, got=%d", s.Len())
	}
	if !s.Contains(3) || s.Contains(8) {
		t.Errorf("half-open containment wrong for %v", s)
	}
	if s.String() != "3..8" {
		t.Errorf("string wrong. got=%q", s.String())
	}
}

func TestSpanUnion(t *testing.T) {
	tests := []struct {
		a, b, expected Span
	}{
		{NewSpan(0, 4), NewSpan(2, 9), NewSpan(0, 9)},
		{NewSpan(5, 6), NewSpan(1, 2), NewSpan(1, 6)},
		{Span{Start: 3, End: 1}, NewSpan(4, 7), NewSpan(4, 7)},
	}

	for i, tt := range tests {
		got := tt.a.Union(tt.b)
		if got != tt.expected {
			t.Errorf("tests[%d] - union wrong. expected=%v, got=%v", i, tt.expected, got)
		}
	}
}

func TestLocationFor(t *testing.T) {
	sf := NewSourceFile("test.sk", []byte("let x = 1\nlet y = 2\n"))

	tests := []struct {
		offset   int
		expected Location
	}{
		{0, Location{Line: 1, Column: 1}},
		{4, Location{Line: 1, Column: 5}},
		{10, Location{Line: 2, Column: 1}},
		{18, Location{Line: 2, Column: 9}},
		{20, Location{Line: 3, Column: 1}},
	}

	for i, tt := range tests {
		got := sf.LocationFor(tt.offset)
		if got != tt.expected {
			t.Errorf("tests[%d] - location wrong. expected=%v, got=%v", i, tt.expected, got)
		}
	}
}

func TestSliceAndLine(t *testing.T) {
	sf := NewSourceFile("test.sk", []byte("echo hi\necho bye"))

	if got := string(sf.Slice(NewSpan(5, 7))); got != "hi" {
		t.Errorf("slice wrong. expected=%q, got=%q", "hi", got)
	}
	if got := sf.Line(2); got != "echo bye" {
		t.Errorf("line wrong. expected=%q, got=%q", "echo bye", got)
	}
	if got := sf.Line(3); got != "" {
		t.Errorf("out of range line should be empty, got=%q", got)
	}
}

func TestUnderline(t *testing.T) {
	sf := NewSourceFile("test.sk", []byte("echo $missing\n"))

	got := sf.Underline(NewSpan(5, 13))
	expected := "echo $missing\n     ^^^^^^^^"
	if got != expected {
		t.Errorf("underline wrong.\nexpected:\n%s\ngot:\n%s", expected, got)
	}
}
