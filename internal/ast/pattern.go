package ast

import "blood/internal/source"

// PatternKind enumerates the surface pattern grammar used in let-bindings,
// match arms, and function parameters.
type PatternKind uint8

const (
	PatInvalid PatternKind = iota
	PatWildcard // _
	PatBinding  // name, or name @ subpattern
	PatIntLit
	PatFloatLit
	PatStringLit
	PatCharLit
	PatBoolLit
	PatTuple
	PatArray
	PatStruct  // Path { field: pat, ... }
	PatVariant // Path::Variant(pat, ...) or Path::Variant { field: pat }
	PatOr      // pat | pat
	PatRef     // &pat
)

// FieldPattern is one `label: pattern` entry of a struct pattern. A field
// pattern with an empty Pattern binds a local of the same name as Label
// (field-shorthand).
type FieldPattern struct {
	Label   string
	Pattern PatternID
}

// Pattern is one node of the surface pattern grammar.
type Pattern struct {
	Kind PatternKind
	Span source.Span

	// PatBinding
	Name    string
	Mutable bool
	SubPat  PatternID // NoPatternID unless this is an `@` binding

	// Literal patterns
	IntVal   uint64
	FloatVal float64
	StrVal   string
	CharVal  rune
	BoolVal  bool
	Negative bool // leading `-` on a numeric literal pattern

	// PatTuple / PatArray
	Elems []PatternID
	Rest  bool // `..` present among Elems (array patterns only)

	// PatStruct / PatVariant
	Path        []string
	Variant     string // "" for PatStruct
	Fields      []FieldPattern
	Positional  []PatternID // PatVariant tuple-form arguments
	HasRestField bool       // `..` present in a struct/variant field list

	// PatOr
	Alts []PatternID

	// PatRef
	Inner PatternID
}

// Patterns manages Pattern allocation.
type Patterns struct {
	Arena *Arena[Pattern]
}

func NewPatterns() *Patterns { return &Patterns{Arena: NewArena[Pattern](64)} }

func (p *Patterns) New(pat Pattern) PatternID { return PatternID(p.Arena.Allocate(pat)) }

func (p *Patterns) Get(id PatternID) *Pattern { return p.Arena.Get(uint32(id)) }
