package hir

import (
	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/source"
	"blood/internal/types"
)

// EffectOp is one resolved operation signature inside an effect definition.
type EffectOp struct {
	Name          string
	Params        []Param
	RetType       types.TypeID
	NonResumptive bool
}

// EffectDecl is a resolved algebraic effect definition.
type EffectDecl struct {
	Def def.DefID
	Name string
	Ops []EffectOp
}

// StructDecl is a resolved struct/record type definition. TypeParams hold
// the KindVar type variables the field types refer to; instantiating the
// struct at `Named(def, args)` substitutes them positionally.
type StructDecl struct {
	Def        def.DefID
	Name       string
	TypeParams []types.TypeVarID
	Fields     []FieldDecl
}

// FieldIndex returns the position of the named field, or -1.
func (s *StructDecl) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FieldDecl is one resolved struct field.
type FieldDecl struct {
	Name string
	Type types.TypeID
}

// EnumDecl is a resolved sum-type definition. TypeParams work as on
// StructDecl.
type EnumDecl struct {
	Def        def.DefID
	Name       string
	TypeParams []types.TypeVarID
	Variants   []VariantDecl
}

// VariantIndex returns the position of the named variant, or -1.
func (e *EnumDecl) VariantIndex(name string) int {
	for i, v := range e.Variants {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// VariantDecl is one resolved enum variant.
type VariantDecl struct {
	Name    string
	Fields  []FieldDecl     // struct-like payload
	Payload []types.TypeID  // tuple-like payload
}

// HandlerClause implements one operation of the handled effect.
type HandlerClause struct {
	OpName  string
	OpIndex int // index into the effect's Ops; -1 if unresolved
	Params  []Param
	Body    ExprID
	Span    source.Span
}

// HandlerDecl is a resolved handler definition, bound to the effect it
// handles.
type HandlerDecl struct {
	Def     def.DefID
	Name    string
	Effect  def.DefID // the handled effect definition
	Clauses []HandlerClause
}

// TraitMethod is one method signature of a trait, with an optional default
// body.
type TraitMethod struct {
	Name   string
	Params []types.TypeID
	Ret    types.TypeID
	Body   ExprID // NoExprID for a signature-only declaration
}

// TraitDecl is a resolved trait definition.
type TraitDecl struct {
	Def     def.DefID
	Name    string
	Supers  []def.DefID
	Methods []TraitMethod
}

// ImplDecl records one resolved `impl` head for trait solving (§4.3.5).
// Method bodies are lowered into Module.Funcs like free functions; the
// ImplDecl keeps only the constraint-solving view.
type ImplDecl struct {
	Def     def.DefID
	Trait   def.DefID // NoDefID for an inherent impl
	SelfTy  types.TypeID
	Methods []def.DefID // DefIDs of the lowered method bodies
	Wheres  []TraitObligation
}

// TraitObligation is one `T: Trait` requirement carried by an impl's where
// clause or a trait's super-trait list.
type TraitObligation struct {
	Type  types.TypeID
	Trait def.DefID
}

// ConstDecl is a resolved `const` or `static` item.
type ConstDecl struct {
	Def      def.DefID
	Name     string
	Type     types.TypeID
	Value    ExprID
	IsStatic bool
}

// Prelude records the DefIDs of the minimal prelude signature (§1) that
// desugaring targets: `?` expands against Result, `for` against Iterator,
// range expressions against the Range structs.
type Prelude struct {
	Option  def.DefID
	SomeIdx int
	NoneIdx int

	Result def.DefID
	OkIdx  int
	ErrIdx int

	Range          def.DefID
	RangeInclusive def.DefID

	Iterator def.DefID // trait with `next`
}

// Module is the lowered, resolved form of one source file: every item's
// DefID has been assigned, every name reference resolved, and every sugar
// form rewritten to its core equivalent. Scoped to single-file
// compilation (§6.1: multi-file linking is a Non-goal of the core).
type Module struct {
	SourceFile ast.FileID

	Defs *def.Table

	Funcs    []*Func
	Structs  []StructDecl
	Enums    []EnumDecl
	Effects  []EffectDecl
	Handlers []HandlerDecl
	Traits   []TraitDecl
	Impls    []ImplDecl
	Consts   []ConstDecl

	// Overloads groups function DefIDs by declared name; a call through a
	// bare name carries the whole set as its dispatch candidates (§4.3.4).
	Overloads map[string][]def.DefID

	Prelude Prelude

	Exprs *Exprs
	Stmts *Stmts

	byDef map[def.DefID]int // index into Funcs
}

func NewModule(file ast.FileID, defs *def.Table) *Module {
	return &Module{
		SourceFile: file,
		Defs:       defs,
		Overloads:  make(map[string][]def.DefID, 32),
		Exprs:      NewExprs(),
		Stmts:      NewStmts(),
		byDef:      make(map[def.DefID]int, 32),
	}
}

func (m *Module) addFunc(f *Func) {
	f.ID = FuncID(len(m.Funcs) + 1)
	m.Funcs = append(m.Funcs, f)
	if f.Def != def.NoDefID {
		m.byDef[f.Def] = len(m.Funcs) - 1
	}
}

// FindFunc returns the function declared with the given name, or nil.
func (m *Module) FindFunc(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FuncByDef returns the function lowered for a definition, or nil.
func (m *Module) FuncByDef(id def.DefID) *Func {
	if i, ok := m.byDef[id]; ok {
		return m.Funcs[i]
	}
	return nil
}

// StructByDef returns the struct declaration for a definition, or nil.
func (m *Module) StructByDef(id def.DefID) *StructDecl {
	for i := range m.Structs {
		if m.Structs[i].Def == id {
			return &m.Structs[i]
		}
	}
	return nil
}

// EnumByDef returns the enum declaration for a definition, or nil.
func (m *Module) EnumByDef(id def.DefID) *EnumDecl {
	for i := range m.Enums {
		if m.Enums[i].Def == id {
			return &m.Enums[i]
		}
	}
	return nil
}

// EffectByDef returns the effect declaration for a definition, or nil.
func (m *Module) EffectByDef(id def.DefID) *EffectDecl {
	for i := range m.Effects {
		if m.Effects[i].Def == id {
			return &m.Effects[i]
		}
	}
	return nil
}

// HandlerByDef returns the handler declaration for a definition, or nil.
func (m *Module) HandlerByDef(id def.DefID) *HandlerDecl {
	for i := range m.Handlers {
		if m.Handlers[i].Def == id {
			return &m.Handlers[i]
		}
	}
	return nil
}

// TraitByDef returns the trait declaration for a definition, or nil.
func (m *Module) TraitByDef(id def.DefID) *TraitDecl {
	for i := range m.Traits {
		if m.Traits[i].Def == id {
			return &m.Traits[i]
		}
	}
	return nil
}
