// Package snapshot persists top-level declarations between parses so
// hosts (most notably the REPL) can carry defs, aliases, and variables
// from one invocation into the seed scope of the next. Snapshots are
// YAML documents carrying a semver format version; loading rejects
// files written by an incompatible format.
package snapshot

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/skiff-lang/skiff/internal/resolver"
)

// FormatVersion is the snapshot format written by this build.
const FormatVersion = "1.0.0"

// compatible is the range of formats this build can read. Any 1.x
// snapshot loads; a major bump means the layout changed.
var compatible = mustConstraint("^1")

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic("internal error: bad snapshot constraint: " + err.Error())
	}
	return c
}

// Snapshot is the on-disk document.
type Snapshot struct {
	Format string                 `yaml:"format"`
	Decls  []resolver.Declaration `yaml:"declarations"`
}

// New wraps declarations in a snapshot stamped with the current
// format version.
func New(decls []resolver.Declaration) *Snapshot {
	return &Snapshot{Format: FormatVersion, Decls: decls}
}

// Seed converts the snapshot into a parser seed.
func (s *Snapshot) Seed() *resolver.Seed {
	return &resolver.Seed{Decls: s.Decls}
}

// Encode serializes the snapshot to YAML.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot document and validates its format version
// against the compatible range.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if s.Format == "" {
		return nil, fmt.Errorf("snapshot has no format version")
	}
	v, err := semver.NewVersion(s.Format)
	if err != nil {
		return nil, fmt.Errorf("snapshot format %q: %w", s.Format, err)
	}
	if !compatible.Check(v) {
		return nil, fmt.Errorf("snapshot format %s is not compatible with %s readers",
			s.Format, FormatVersion)
	}
	return &s, nil
}

// Save writes declarations to path as a snapshot.
func Save(path string, decls []resolver.Declaration) error {
	data, err := New(decls).Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot from path and returns it as a seed. A missing
// file is not an error: it yields an empty seed, so fresh REPL
// sessions and first runs need no special casing.
func Load(path string) (*resolver.Seed, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &resolver.Seed{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s.Seed(), nil
}
