package hir

import (
	"blood/internal/def"
	"blood/internal/source"
	"blood/internal/types"
)

// installPrelude seeds the definition table with the minimal prelude
// signature (§1): Option and Result for `?` desugaring and exhaustiveness,
// Range/RangeInclusive as the lowering target of range expressions, and
// the Iterator trait the `for` loop drives. These are ordinary definitions
// with ordinary DefIDs; user code may shadow their names but the desugared
// forms always refer to the prelude DefIDs captured in Module.Prelude.
func (l *lowerer) installPrelude() {
	tin := l.tin
	noSpan := source.Span{}

	optionT := l.supply.Fresh()
	optionDef := l.newDef("Option", def.KindEnum, noSpan)
	l.m.Enums = append(l.m.Enums, EnumDecl{
		Def:        optionDef,
		Name:       "Option",
		TypeParams: []types.TypeVarID{optionT},
		Variants: []VariantDecl{
			{Name: "Some", Payload: []types.TypeID{tin.New(types.Type{Kind: types.KindVar, Var: optionT})}},
			{Name: "None"},
		},
	})

	resultT := l.supply.Fresh()
	resultE := l.supply.Fresh()
	resultDef := l.newDef("Result", def.KindEnum, noSpan)
	l.m.Enums = append(l.m.Enums, EnumDecl{
		Def:        resultDef,
		Name:       "Result",
		TypeParams: []types.TypeVarID{resultT, resultE},
		Variants: []VariantDecl{
			{Name: "Ok", Payload: []types.TypeID{tin.New(types.Type{Kind: types.KindVar, Var: resultT})}},
			{Name: "Err", Payload: []types.TypeID{tin.New(types.Type{Kind: types.KindVar, Var: resultE})}},
		},
	})

	rangeT := l.supply.Fresh()
	rangeDef := l.newDef("Range", def.KindStruct, noSpan)
	rangeElem := tin.New(types.Type{Kind: types.KindVar, Var: rangeT})
	l.m.Structs = append(l.m.Structs, StructDecl{
		Def:        rangeDef,
		Name:       "Range",
		TypeParams: []types.TypeVarID{rangeT},
		Fields: []FieldDecl{
			{Name: "start", Type: rangeElem},
			{Name: "end", Type: rangeElem},
		},
	})

	rangeIncT := l.supply.Fresh()
	rangeIncDef := l.newDef("RangeInclusive", def.KindStruct, noSpan)
	rangeIncElem := tin.New(types.Type{Kind: types.KindVar, Var: rangeIncT})
	l.m.Structs = append(l.m.Structs, StructDecl{
		Def:        rangeIncDef,
		Name:       "RangeInclusive",
		TypeParams: []types.TypeVarID{rangeIncT},
		Fields: []FieldDecl{
			{Name: "start", Type: rangeIncElem},
			{Name: "end", Type: rangeIncElem},
		},
	})

	// Iterator's `next` returns Option<Item>; the Item position is a type
	// variable discharged per-impl during trait solving.
	iterItem := l.supply.Fresh()
	iterDef := l.newDef("Iterator", def.KindTrait, noSpan)
	itemVar := tin.New(types.Type{Kind: types.KindVar, Var: iterItem})
	selfVar := tin.New(types.Type{Kind: types.KindVar, Var: l.supply.Fresh()})
	l.m.Traits = append(l.m.Traits, TraitDecl{
		Def:  iterDef,
		Name: "Iterator",
		Methods: []TraitMethod{
			{
				Name:   "next",
				Params: []types.TypeID{tin.New(types.Type{Kind: types.KindRef, Elem: selfVar, Mutable: true})},
				Ret:    tin.New(types.Type{Kind: types.KindNamed, Def: optionDef, Args: []types.TypeID{itemVar}}),
			},
		},
	})

	for _, d := range []def.DefID{optionDef, resultDef, rangeDef, rangeIncDef, iterDef} {
		l.globals[l.m.Defs.Get(d).Name] = d
	}
	l.variants["Some"] = variantRef{enum: optionDef, idx: 0}
	l.variants["None"] = variantRef{enum: optionDef, idx: 1}
	l.variants["Ok"] = variantRef{enum: resultDef, idx: 0}
	l.variants["Err"] = variantRef{enum: resultDef, idx: 1}

	l.m.Prelude = Prelude{
		Option: optionDef, SomeIdx: 0, NoneIdx: 1,
		Result: resultDef, OkIdx: 0, ErrIdx: 1,
		Range:          rangeDef,
		RangeInclusive: rangeIncDef,
		Iterator:       iterDef,
	}
}
