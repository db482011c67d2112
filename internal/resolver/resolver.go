package resolver

import (
	"github.com/skiff-lang/skiff/internal/diagnostics"
	"github.com/skiff-lang/skiff/internal/position"
	"github.com/skiff-lang/skiff/internal/syntax"
)

// Table owns all scope frames and declarations for one parse, plus the
// per-node resolution results. It is created fresh per invocation;
// nothing in it is shared across parses except the read-only seed it
// was initialized from.
type Table struct {
	frames []Frame
	stack  []FrameID
	decls  []Declaration

	// CommandResolution and VarResolution map referencing nodes to the
	// declaration they resolved to. A node absent from its map is
	// unresolved.
	CommandResolution map[syntax.NodeID]DeclID
	VarResolution     map[syntax.NodeID]DeclID

	diags *diagnostics.Collector
}

// NewTable creates a table with a root frame holding the builtin
// commands plus the seed declarations, if any.
func NewTable(diags *diagnostics.Collector, seed *Seed) *Table {
	t := &Table{
		CommandResolution: make(map[syntax.NodeID]DeclID),
		VarResolution:     make(map[syntax.NodeID]DeclID),
		diags:             diags,
	}
	t.frames = append(t.frames, Frame{
		Parent: InvalidFrameID,
		decls:  make(map[string]DeclID),
		vars:   make(map[string]DeclID),
	})
	t.stack = append(t.stack, 0)

	for _, d := range Builtins() {
		t.bind(d)
	}
	if seed != nil {
		for _, d := range seed.Decls {
			t.bind(d)
		}
	}
	return t
}

// bind inserts a declaration into the current frame without duplicate
// diagnostics; used for builtins and seeds, where later entries
// silently replace earlier ones.
func (t *Table) bind(d Declaration) DeclID {
	id := DeclID(len(t.decls))
	t.decls = append(t.decls, d)
	frame := &t.frames[t.current()]
	if d.Kind == DeclVariable {
		frame.vars[d.Name] = id
	} else {
		frame.decls[d.Name] = id
	}
	return id
}

func (t *Table) current() FrameID {
	return t.stack[len(t.stack)-1]
}

// EnterFrame pushes a new frame as a child of the current one.
func (t *Table) EnterFrame() FrameID {
	id := FrameID(len(t.frames))
	t.frames = append(t.frames, Frame{
		Parent: t.current(),
		decls:  make(map[string]DeclID),
		vars:   make(map[string]DeclID),
	})
	t.stack = append(t.stack, id)
	return id
}

// ExitFrame pops the current frame. The root frame is never popped.
func (t *Table) ExitFrame() {
	if len(t.stack) > 1 {
		t.stack = t.stack[:len(t.stack)-1]
	}
}

// Decl returns the declaration for id.
func (t *Table) Decl(id DeclID) *Declaration {
	return &t.decls[id]
}

// DeclareCommand registers a command or alias in the current frame.
// Redeclaring a name already bound in the identical frame records a
// duplicate-declaration diagnostic; the later signature wins.
func (t *Table) DeclareCommand(name string, kind DeclKind, sig *Signature, span position.Span) DeclID {
	frame := &t.frames[t.current()]
	if prev, exists := frame.decls[name]; exists {
		t.diags.Error(span, diagnostics.CodeDuplicateDeclaration,
			"%s %q is already declared in this scope", t.decls[prev].Kind, name)
	}
	id := DeclID(len(t.decls))
	t.decls = append(t.decls, Declaration{Name: name, Kind: kind, Signature: sig, Span: span})
	frame.decls[name] = id
	return id
}

// DeclareVariable registers a variable binding in the current frame,
// visible to statements after its introduction point. Shadowing a
// parent binding is legal and silent; redeclaring within the identical
// frame is a duplicate-declaration diagnostic, last binding wins.
func (t *Table) DeclareVariable(name string, span position.Span) DeclID {
	frame := &t.frames[t.current()]
	if _, exists := frame.vars[name]; exists {
		t.diags.Error(span, diagnostics.CodeDuplicateDeclaration,
			"variable %q is already declared in this scope", name)
	}
	id := DeclID(len(t.decls))
	t.decls = append(t.decls, Declaration{Name: name, Kind: DeclVariable, Span: span})
	frame.vars[name] = id
	return id
}

// ResolveCommand walks the frame chain innermost-first for a command
// or alias and records the result against the referencing node. The
// caller decides how to diagnose a miss.
func (t *Table) ResolveCommand(name string, node syntax.NodeID) (DeclID, bool) {
	for f := t.current(); f != InvalidFrameID; f = t.frames[f].Parent {
		if id, ok := t.frames[f].decls[name]; ok {
			t.CommandResolution[node] = id
			return id, true
		}
	}
	return 0, false
}

// LookupCommand resolves a command name without recording anything.
func (t *Table) LookupCommand(name string) (*Declaration, bool) {
	for f := t.current(); f != InvalidFrameID; f = t.frames[f].Parent {
		if id, ok := t.frames[f].decls[name]; ok {
			return &t.decls[id], true
		}
	}
	return nil, false
}

// ResolveVariable walks the frame chain innermost-first; the first
// matching binding wins. On a miss it records an unknown-variable
// diagnostic and leaves the node unresolved.
func (t *Table) ResolveVariable(name string, node syntax.NodeID, span position.Span) (DeclID, bool) {
	for f := t.current(); f != InvalidFrameID; f = t.frames[f].Parent {
		if id, ok := t.frames[f].vars[name]; ok {
			t.VarResolution[node] = id
			return id, true
		}
	}
	t.diags.Error(span, diagnostics.CodeUnknownVariable, "unknown variable $%s", name)
	return 0, false
}

// TopLevel returns the declarations bound in the root frame during
// this parse, excluding builtins and seeded entries. REPL-style hosts
// accumulate these into the next seed.
func (t *Table) TopLevel() []Declaration {
	var out []Declaration
	root := t.frames[0]
	for _, id := range sortedValues(root.decls) {
		if d := t.decls[id]; d.Span.IsValid() && d.Span.Len() > 0 {
			out = append(out, d)
		}
	}
	for _, id := range sortedValues(root.vars) {
		if d := t.decls[id]; d.Span.IsValid() && d.Span.Len() > 0 {
			out = append(out, d)
		}
	}
	return out
}

// sortedValues returns map values ordered by declaration id, keeping
// TopLevel deterministic.
func sortedValues(m map[string]DeclID) []DeclID {
	out := make([]DeclID, 0, len(m))
	for _, id := range m {
		out = append(out, id)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Mark captures the table state for speculative parsing.
type Mark struct {
	frames int
	stack  int
	decls  int
}

// GetMark returns a rollback mark for the current table state.
func (t *Table) GetMark() Mark {
	return Mark{frames: len(t.frames), stack: len(t.stack), decls: len(t.decls)}
}

// Rollback restores the table to a previous mark. Frames created after
// the mark disappear entirely; name bindings added to surviving frames
// by discarded declarations are unbound.
func (t *Table) Rollback(m Mark) {
	t.frames = t.frames[:m.frames]
	t.stack = t.stack[:m.stack]
	t.decls = t.decls[:m.decls]
	for i := range t.frames {
		for name, id := range t.frames[i].decls {
			if int(id) >= m.decls {
				delete(t.frames[i].decls, name)
			}
		}
		for name, id := range t.frames[i].vars {
			if int(id) >= m.decls {
				delete(t.frames[i].vars, name)
			}
		}
	}
	for node, id := range t.CommandResolution {
		if int(id) >= m.decls {
			delete(t.CommandResolution, node)
		}
	}
	for node, id := range t.VarResolution {
		if int(id) >= m.decls {
			delete(t.VarResolution, node)
		}
	}
}

// PurgeNodesFrom drops resolution entries for nodes at or after the
// given id. The parser calls it when truncating the arena so the maps
// never hold dangling NodeIDs.
func (t *Table) PurgeNodesFrom(first syntax.NodeID) {
	for node := range t.CommandResolution {
		if node >= first {
			delete(t.CommandResolution, node)
		}
	}
	for node := range t.VarResolution {
		if node >= first {
			delete(t.VarResolution, node)
		}
	}
}
