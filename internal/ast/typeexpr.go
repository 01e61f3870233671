package ast

import "blood/internal/source"

// TypeExprKind enumerates the surface type grammar.
type TypeExprKind uint8

const (
	TyInfer TypeExprKind = iota // `_`
	TyNamed                     // Path<Args...>
	TyTuple
	TyArrayFixed // [T; N]
	TySlice      // [T]
	TyRef        // &T / &mut T
	TyPtr        // *T
	TyFn         // fn(Params) -> Ret / EffectRow
	TyRecord     // { label: T, ... | rho }
	TyLinear     // linear T
	TyAffine     // affine T
	TyNever      // never
	TyUnit       // ()
)

// EffectRowExpr is the surface syntax for an effect row: a finite set of
// named effects plus an optional open tail variable.
type EffectRowExpr struct {
	Effects []string // effect definition names, as written
	TailVar string   // "" if the row is closed
	Span    source.Span
}

// TypeExpr is one node of the surface type grammar.
type TypeExpr struct {
	Kind TypeExprKind

	// TyNamed
	Path     []string
	Args     []TypeID

	// TyTuple
	Elems []TypeID

	// TyArrayFixed / TySlice
	Elem TypeID
	Size ExprID // length expression for [T; N]

	// TyRef
	Mutable bool

	// TyFn
	Params     []TypeID
	Ret        TypeID
	EffectRow  *EffectRowExpr

	// TyRecord
	Fields  []TypeField
	RowVar  string // "" if closed

	// TyLinear / TyAffine
	Inner TypeID

	Span source.Span
}

// TypeField is one `label: Type` entry of a record type.
type TypeField struct {
	Label string
	Type  TypeID
}

// Types manages TypeExpr allocation.
type Types struct {
	Arena *Arena[TypeExpr]
}

func NewTypes() *Types { return &Types{Arena: NewArena[TypeExpr](64)} }

func (t *Types) New(te TypeExpr) TypeID {
	return TypeID(t.Arena.Allocate(te))
}

func (t *Types) Get(id TypeID) *TypeExpr { return t.Arena.Get(uint32(id)) }
