package syntax

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skiff-lang/skiff/internal/position"
)

// Arena is the append-only ordered store of nodes for one parse. It is
// privately owned by the parser while parsing and immutable once the
// parse call returns.
type Arena struct {
	nodes []Node
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Push appends a node and returns its id.
func (a *Arena) Push(n Node) NodeID {
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// Get returns the node for id. A dangling id is an internal defect of
// the front end, not a user error, and fails loudly.
func (a *Arena) Get(id NodeID) *Node {
	if id < 0 || int(id) >= len(a.nodes) {
		panic(fmt.Sprintf("internal error: dangling NodeID %d (arena size %d)", id, len(a.nodes)))
	}
	return &a.nodes[id]
}

// Len returns the number of nodes; it doubles as a rollback mark.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Truncate discards nodes appended after the given mark. Used when a
// speculative parse is rolled back.
func (a *Arena) Truncate(mark int) {
	if mark >= 0 && mark < len(a.nodes) {
		a.nodes = a.nodes[:mark]
	}
}

// Dump renders the arena one node per line for snapshot-style tests
// and the CLI: "idx: Kind (start to end) \"text\"".
func (a *Arena) Dump(src []byte) string {
	var sb strings.Builder
	for idx, n := range a.nodes {
		fmt.Fprintf(&sb, "%d: %s (%d to %d)", idx, n.Kind, n.Span.Start, n.Span.End)
		if leafKinds[n.Kind] && n.Span.IsValid() && n.Span.End <= len(src) {
			fmt.Fprintf(&sb, " %q", string(src[n.Span.Start:n.Span.End]))
		}
		if len(n.Children) > 0 {
			fmt.Fprintf(&sb, " children=%v", n.Children)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// CheckCoverage validates the full-coverage invariant: inside every
// node, child spans are ordered and non-overlapping and stay within
// the parent span, and the root block's statements cover the entire
// non-trivia extent of the input. A non-nil return is an internal
// defect of the front end.
func (a *Arena) CheckCoverage(root NodeID, extent position.Span) error {
	if len(a.nodes) == 0 {
		return fmt.Errorf("empty arena")
	}

	for id := range a.nodes {
		n := &a.nodes[id]
		if !n.Span.IsValid() {
			return fmt.Errorf("node %d (%s) has invalid span %v", id, n.Kind, n.Span)
		}
		children := append([]NodeID(nil), n.Children...)
		sort.Slice(children, func(i, j int) bool {
			return a.Get(children[i]).Span.Start < a.Get(children[j]).Span.Start
		})
		prevEnd := n.Span.Start
		for _, c := range children {
			if c < 0 || int(c) >= len(a.nodes) {
				return fmt.Errorf("node %d (%s) has dangling child %d", id, n.Kind, c)
			}
			cs := a.Get(c).Span
			if cs.Start < n.Span.Start || cs.End > n.Span.End {
				return fmt.Errorf("child %d span %v escapes parent %d span %v", c, cs, id, n.Span)
			}
			if cs.Start < prevEnd {
				return fmt.Errorf("child %d span %v overlaps sibling in parent %d", c, cs, id)
			}
			prevEnd = cs.End
		}
	}

	rootNode := a.Get(root)
	if rootNode.Span.Start > extent.Start || rootNode.Span.End < extent.End {
		return fmt.Errorf("root span %v does not cover input extent %v", rootNode.Span, extent)
	}
	return nil
}
