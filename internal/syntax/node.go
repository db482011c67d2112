// Package syntax defines the span-annotated node arena produced by the
// parser. Nodes reference each other only through NodeID indices into
// one append-only arena, never through pointers, so the tree is
// trivially shareable and cannot form ownership cycles.
package syntax

import (
	"fmt"

	"github.com/skiff-lang/skiff/internal/position"
)

// NodeID is an opaque index into a node arena.
type NodeID int

// InvalidNodeID marks an absent node reference.
const InvalidNodeID NodeID = -1

// NodeKind is the closed set of syntactic forms.
type NodeKind int

const (
	// Structure
	KindBlock NodeKind = iota
	KindPipeline
	KindCall
	KindPositionalArg
	KindNamedArg
	KindFlagArg
	KindRedirection
	KindClosure
	KindParams
	KindParam

	// Literals
	KindList
	KindRecord
	KindRecordField
	KindTable
	KindTableRow
	KindString
	KindStringInterp
	KindInterpText
	KindInterpExpr
	KindInt
	KindFloat
	KindDuration
	KindFilesize
	KindBool
	KindNull

	// Expressions
	KindBinary
	KindUnary
	KindRange
	KindName
	KindVariable

	// Declarations and statements
	KindLet
	KindMut
	KindDef
	KindAlias
	KindIf
	KindFor
	KindWhile

	// Recovery placeholder
	KindError
)

var kindNames = map[NodeKind]string{
	KindBlock:         "Block",
	KindPipeline:      "Pipeline",
	KindCall:          "Call",
	KindPositionalArg: "PositionalArg",
	KindNamedArg:      "NamedArg",
	KindFlagArg:       "FlagArg",
	KindRedirection:   "Redirection",
	KindClosure:       "Closure",
	KindParams:        "Params",
	KindParam:         "Param",
	KindList:          "List",
	KindRecord:        "Record",
	KindRecordField:   "RecordField",
	KindTable:         "Table",
	KindTableRow:      "TableRow",
	KindString:        "String",
	KindStringInterp:  "StringInterp",
	KindInterpText:    "InterpText",
	KindInterpExpr:    "InterpExpr",
	KindInt:           "Int",
	KindFloat:         "Float",
	KindDuration:      "Duration",
	KindFilesize:      "Filesize",
	KindBool:          "Bool",
	KindNull:          "Null",
	KindBinary:        "Binary",
	KindUnary:         "Unary",
	KindRange:         "Range",
	KindName:          "Name",
	KindVariable:      "Variable",
	KindLet:           "Let",
	KindMut:           "Mut",
	KindDef:           "Def",
	KindAlias:         "Alias",
	KindIf:            "If",
	KindFor:           "For",
	KindWhile:         "While",
	KindError:         "Error",
}

// String returns a string representation of the node kind.
func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// Node is one syntax tree node. Literal carries the decoded payload for
// leaf kinds (operator text, decoded string content, names); everything
// else is recovered from the span.
type Node struct {
	Kind     NodeKind
	Span     position.Span
	Children []NodeID
	Literal  string
}

// leafKinds have their source text useful in dumps.
var leafKinds = map[NodeKind]bool{
	KindName: true, KindVariable: true, KindString: true,
	KindInt: true, KindFloat: true, KindDuration: true,
	KindFilesize: true, KindBool: true, KindInterpText: true,
}
