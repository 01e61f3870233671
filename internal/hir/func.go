package hir

import (
	"blood/internal/def"
	"blood/internal/source"
	"blood/internal/types"
)

// FuncFlags records modifiers that change how inference, dispatch, or MIR
// lowering treat a function.
type FuncFlags uint32

const (
	FuncEntrypoint FuncFlags = 1 << iota
	FuncPublic
	FuncIntrinsic // body supplied by the runtime ABI (internal/abi), not lowered
	FuncOverload  // participates in a multiple-dispatch candidate set
)

func (f FuncFlags) Has(flag FuncFlags) bool { return f&flag != 0 }

// TypeParam is a resolved generic type parameter, carrying its trait
// bounds as already-resolved type constructors rather than surface names.
type TypeParam struct {
	Name   string
	Var    types.TypeVarID
	Bounds []def.DefID // trait definitions this parameter must satisfy
}

// Param is a resolved function parameter.
type Param struct {
	Name   string
	Local  LocalID
	Type   types.TypeID
	Linear Linearity
	Span   source.Span
}

// Func is one lowered, resolved function body.
type Func struct {
	ID     FuncID
	Def    def.DefID
	Name   string
	Span   source.Span
	Flags  FuncFlags

	TypeParams []TypeParam
	Params     []Param
	Ret        types.TypeID
	Effect     types.EffectRow
	// EffectDeclared distinguishes an explicitly written row (closed or
	// open) from the default open fresh row inference assigns (§4.3.3).
	EffectDeclared bool

	Requires []ExprID
	Ensures  []ExprID

	Body ExprID // NoExprID for intrinsics

	NumLocals int // total LocalIDs allocated (params + lets + closure captures)
}

func (f *Func) IsGeneric() bool { return len(f.TypeParams) > 0 }
