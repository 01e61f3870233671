package hir

import (
	"blood/internal/def"
	"blood/internal/source"
	"blood/internal/types"
)

// PatternKind enumerates the resolved pattern grammar fed to exhaustiveness
// checking (§4.3.5) and to MIR's decision-tree lowering.
type PatternKind uint8

const (
	PkInvalid PatternKind = iota
	PkWildcard
	PkBinding // binds a LocalID, optionally with a nested sub-pattern (`x @ pat`)
	PkIntLit
	PkFloatLit
	PkStringLit
	PkCharLit
	PkBoolLit
	PkTuple
	PkArray
	PkRef
	PkOr
	PkStruct  // Def is the struct's def.DefID
	PkVariant // Def is the enum's def.DefID, VariantIdx selects the arm
)

// Pattern is a resolved pattern node. Patterns form a tree via value
// slices rather than an arena, since a pattern tree is built once per match
// arm and walked structurally by exhaustiveness checking — it never needs
// random-access indexing the way expressions and statements do.
type Pattern struct {
	Kind PatternKind
	Span source.Span
	Type types.TypeID

	Local  LocalID // PkBinding
	Name   string  // PkBinding: the surface spelling, kept for MIR local naming
	SubPat *Pattern

	IntVal    uint64 // PkIntLit
	FloatVal  float64
	StrVal    string
	CharVal   rune
	BoolVal   bool
	Negative  bool

	Elems []Pattern // PkTuple / PkArray / PkOr (alternatives)
	Rest  bool      // PkArray: trailing `..`

	Def        def.DefID // PkStruct / PkVariant
	VariantIdx int       // PkVariant: index into the enum's Definition.Variants
	Fields     []FieldPattern
	HasRestField bool
	Positional []Pattern // PkVariant tuple-payload form
}

// FieldPattern is one resolved `label: pat` entry of a struct pattern.
type FieldPattern struct {
	Index   int // resolved field index
	Pattern Pattern
}
