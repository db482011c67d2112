// Package resolver tracks lexical scopes and name bindings for the
// Skiff front end. Scope frames live in their own arena and link to
// their parents by index, never by pointer, so the frame graph is
// always a tree. Resolution results are recorded in tables keyed by
// NodeID instead of being written into the syntax nodes.
package resolver

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/skiff-lang/skiff/internal/position"
)

// DeclKind distinguishes the namespaces a name can be bound in.
type DeclKind int

const (
	DeclCommand DeclKind = iota
	DeclAlias
	DeclVariable
)

// String returns the string representation of the declaration kind.
func (k DeclKind) String() string {
	switch k {
	case DeclCommand:
		return "command"
	case DeclAlias:
		return "alias"
	case DeclVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// MarshalYAML encodes the kind as its name so snapshots stay readable
// and stable if the enum is ever reordered.
func (k DeclKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// UnmarshalYAML decodes a kind name.
func (k *DeclKind) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	switch name {
	case "command":
		*k = DeclCommand
	case "alias":
		*k = DeclAlias
	case "variable":
		*k = DeclVariable
	default:
		return fmt.Errorf("unknown declaration kind %q", name)
	}
	return nil
}

// Param is one entry of a command signature.
type Param struct {
	Name       string `yaml:"name"`
	IsFlag     bool   `yaml:"is_flag,omitempty"`
	Shorthand  string `yaml:"shorthand,omitempty"`
	TakesValue bool   `yaml:"takes_value,omitempty"`
	HasDefault bool   `yaml:"has_default,omitempty"`
	IsRest     bool   `yaml:"is_rest,omitempty"`
}

// Signature describes the argument shape of a command, known before
// any call to it is parsed.
type Signature struct {
	Params []Param `yaml:"params"`
}

// PositionalArity returns (required, total) positional parameter
// counts, excluding a rest parameter.
func (s *Signature) PositionalArity() (int, int) {
	required, total := 0, 0
	for _, p := range s.Params {
		if p.IsFlag || p.IsRest {
			continue
		}
		total++
		if !p.HasDefault {
			required++
		}
	}
	return required, total
}

// HasRest returns true if the signature accepts unbounded trailing
// positional arguments.
func (s *Signature) HasRest() bool {
	for _, p := range s.Params {
		if p.IsRest {
			return true
		}
	}
	return false
}

// Flag looks up a flag parameter by its long name (without dashes) or
// shorthand.
func (s *Signature) Flag(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.IsFlag && (p.Name == name || p.Shorthand == name) {
			return p, true
		}
	}
	return Param{}, false
}

// Declaration is a named command, alias, or variable binding.
type Declaration struct {
	Name      string     `yaml:"name"`
	Kind      DeclKind   `yaml:"kind"`
	Signature *Signature `yaml:"signature,omitempty"`

	// Span of the declaring name in this parse; zero for seeded decls.
	Span position.Span `yaml:"-"`
}

// DeclID indexes the declaration arena of one Table.
type DeclID int

// FrameID indexes the frame arena of one Table.
type FrameID int

// InvalidFrameID marks the missing parent of the root frame.
const InvalidFrameID FrameID = -1

// Frame is one lexical scope: a block, closure, or loop body. Child
// frames shadow parent bindings without mutating them.
type Frame struct {
	Parent FrameID
	decls  map[string]DeclID // commands and aliases, visible block-wide
	vars   map[string]DeclID // variables, visible after introduction
}

// Seed is a caller-supplied, read-only set of prior top-level
// declarations used for REPL-style incremental reuse. The core copies
// from it and never mutates it.
type Seed struct {
	Decls []Declaration
}
