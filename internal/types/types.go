// Package types implements Blood's semantic type representation (§3.6)
// and effect rows (§3.7): a dense TypeID space with a Kind-tagged Type
// descriptor and a hash-keyed interner for structural deduplication of
// ground (variable-free) types.
//
// Because Blood has let-polymorphism, types may contain Var(TypeVarID)
// nodes and Forall binders. Those are allocated into the same dense arena
// as ground types but are deliberately NOT deduplicated by the structural
// key (two distinct fresh variables must stay distinct types), so
// Interner.New bypasses the dedup table whenever the descriptor mentions a
// Var.
package types

import (
	"fmt"

	"fortio.org/safecast"

	"blood/internal/def"
)

// TypeID uniquely identifies a type inside an Interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// TypeVarID identifies a unification variable, scoped to one inference run.
type TypeVarID uint32

// NoTypeVarID marks the absence of a type variable.
const NoTypeVarID TypeVarID = 0

// Kind enumerates every type constructor in the grammar (§3.6).
type Kind uint8

const (
	KindInvalid Kind = iota
	KindError        // the "error" type: unifies with anything (error recovery)
	KindNever        // subtype of all types; unifies with anything
	KindUnit
	KindBool
	KindStr
	KindInt   // signed integer; Width selects i8/i16/i32/i64/i128/isize
	KindUint  // unsigned integer
	KindFloat // f32/f64
	KindTuple
	KindArrayFixed // [T; N]
	KindSlice      // [T]
	KindRef        // &T / &mut T
	KindPtr        // *T / *mut T
	KindNamed      // Named(DefId, [Type])
	KindRecord     // Record({(Label, Type)...}, Option<RowVar>)
	KindFn         // Fn(params, ret, effect row)
	KindForall     // Forall([TypeVar], body)
	KindVar        // Var(TypeVarId)
	KindLinear     // Linear(T)
	KindAffine     // Affine(T)
)

func (k Kind) String() string {
	names := [...]string{
		"invalid", "error", "never", "unit", "bool", "str", "int", "uint",
		"float", "tuple", "array", "slice", "ref", "ptr", "named", "record",
		"fn", "forall", "var", "linear", "affine",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Width selects the bit width of an integer or float primitive. WidthSize
// marks a pointer-sized integer (`usize`/`isize`).
type Width uint8

const (
	WidthAny  Width = 0
	Width8    Width = 8
	Width16   Width = 16
	Width32   Width = 32
	Width64   Width = 64
	Width128  Width = 128
	WidthSize Width = 255
)

// RecordField is one `(Label, Type)` entry of a record type.
type RecordField struct {
	Label string
	Type  TypeID
}

// Type is a tagged-variant descriptor for one node of the semantic type
// grammar. Only the fields relevant to Kind are populated, following the
// same tagged-union discipline as internal/ast's surface nodes (§9: "use a
// tagged variant with exhaustive matching, not open-class polymorphism").
type Type struct {
	Kind Kind

	Width Width // KindInt / KindUint / KindFloat

	Elem    TypeID // KindArrayFixed / KindSlice / KindRef / KindPtr / KindLinear / KindAffine
	Count   uint32 // KindArrayFixed
	Mutable bool   // KindRef / KindPtr

	Def  def.DefID // KindNamed
	Args []TypeID  // KindNamed / KindForall (instantiation site carries none; see Forall below)

	Fields []RecordField // KindRecord
	RowVar TypeVarID     // KindRecord; NoTypeVarID if closed

	Params []TypeID  // KindFn
	Ret    TypeID    // KindFn
	Effect EffectRow // KindFn

	ForallVars []TypeVarID // KindForall
	Body       TypeID      // KindForall

	Var TypeVarID // KindVar
}

// Interner allocates and structurally deduplicates ground types. Variable-
// mentioning types (Var, Forall, and anything nesting them) are allocated
// but never deduplicated, since two occurrences of `Var(7)` in different
// expressions must remain distinguishable from two fresh, coincidentally
// equal-shaped variables elsewhere.
type Interner struct {
	types []Type
	index map[string]TypeID

	Builtins Builtins
}

// Builtins caches TypeIDs for every primitive, since inference consults
// them constantly.
type Builtins struct {
	Error   TypeID
	Never   TypeID
	Unit    TypeID
	Bool    TypeID
	Str     TypeID
	Int     TypeID // isize
	I8      TypeID
	I16     TypeID
	I32     TypeID
	I64     TypeID
	I128    TypeID
	Uint    TypeID // usize
	U8      TypeID
	U16     TypeID
	U32     TypeID
	U64     TypeID
	U128    TypeID
	F32     TypeID
	F64     TypeID
}

// NewInterner constructs an Interner seeded with every built-in primitive.
func NewInterner() *Interner {
	in := &Interner{index: make(map[string]TypeID, 64)}
	in.types = append(in.types, Type{}) // reserve 0 as NoTypeID's sentinel

	mk := func(t Type) TypeID { return in.intern(t) }
	in.Builtins = Builtins{
		Error: mk(Type{Kind: KindError}),
		Never: mk(Type{Kind: KindNever}),
		Unit:  mk(Type{Kind: KindUnit}),
		Bool:  mk(Type{Kind: KindBool}),
		Str:   mk(Type{Kind: KindStr}),
		Int:   mk(Type{Kind: KindInt, Width: WidthSize}),
		I8:    mk(Type{Kind: KindInt, Width: Width8}),
		I16:   mk(Type{Kind: KindInt, Width: Width16}),
		I32:   mk(Type{Kind: KindInt, Width: Width32}),
		I64:   mk(Type{Kind: KindInt, Width: Width64}),
		I128:  mk(Type{Kind: KindInt, Width: Width128}),
		Uint:  mk(Type{Kind: KindUint, Width: WidthSize}),
		U8:    mk(Type{Kind: KindUint, Width: Width8}),
		U16:   mk(Type{Kind: KindUint, Width: Width16}),
		U32:   mk(Type{Kind: KindUint, Width: Width32}),
		U64:   mk(Type{Kind: KindUint, Width: Width64}),
		U128:  mk(Type{Kind: KindUint, Width: Width128}),
		F32:   mk(Type{Kind: KindFloat, Width: Width32}),
		F64:   mk(Type{Kind: KindFloat, Width: Width64}),
	}
	return in
}

// Get returns the descriptor for id. Panics on an out-of-range id, matching
// the arena-access contract used throughout the core (a bad TypeID is an
// internal invariant violation, not a recoverable error).
func (in *Interner) Get(id TypeID) Type {
	return in.types[id]
}

// New allocates (and, for ground types, deduplicates) a Type and returns
// its TypeID.
func (in *Interner) New(t Type) TypeID {
	if mentionsVar(in, t) {
		return in.alloc(t)
	}
	return in.intern(t)
}

func (in *Interner) intern(t Type) TypeID {
	key := structuralKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	id := in.alloc(t)
	in.index[key] = id
	return id
}

func (in *Interner) alloc(t Type) TypeID {
	in.types = append(in.types, t)
	n, err := safecast.Conv[uint32](len(in.types) - 1)
	if err != nil {
		panic(fmt.Errorf("types: interner overflow: %w", err))
	}
	return TypeID(n)
}

func mentionsVar(in *Interner, t Type) bool {
	switch t.Kind {
	case KindVar, KindForall:
		return true
	case KindArrayFixed, KindSlice, KindRef, KindPtr, KindLinear, KindAffine:
		return t.Elem != NoTypeID && mentionsVar(in, in.Get(t.Elem))
	case KindTuple, KindNamed:
		for _, a := range t.Args {
			if mentionsVar(in, in.Get(a)) {
				return true
			}
		}
		return false
	case KindRecord:
		if t.RowVar != NoTypeVarID {
			return true
		}
		for _, f := range t.Fields {
			if mentionsVar(in, in.Get(f.Type)) {
				return true
			}
		}
		return false
	case KindFn:
		if len(t.Effect.Tail) > 0 {
			// an open tail is not itself a Var in the type grammar, but still
			// makes the Fn type non-ground for dedup purposes.
			return true
		}
		for _, p := range t.Params {
			if mentionsVar(in, in.Get(p)) {
				return true
			}
		}
		return t.Ret != NoTypeID && mentionsVar(in, in.Get(t.Ret))
	default:
		return false
	}
}

// structuralKey produces a stable string key for ground-type deduplication.
// It deliberately ignores Var/Forall/open-row content since mentionsVar
// already routed those away from interning.
func structuralKey(t Type) string {
	key := fmt.Sprintf("%d|%d|%d|%v|%v|%d", t.Kind, t.Width, t.Count, t.Mutable, t.Args, t.Def)
	switch t.Kind {
	case KindArrayFixed, KindSlice, KindRef, KindPtr, KindLinear, KindAffine:
		key += fmt.Sprintf("|e%d", t.Elem)
	case KindRecord:
		key += "|r"
		for _, f := range t.Fields {
			key += fmt.Sprintf("|%s:%d", f.Label, f.Type)
		}
	case KindFn:
		key += fmt.Sprintf("|p%v|ret%d", t.Params, t.Ret)
		for _, e := range t.Effect.Effects {
			key += fmt.Sprintf("|eff%d", e)
		}
	}
	return key
}
