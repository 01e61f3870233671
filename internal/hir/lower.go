package hir

import (
	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/types"
)

// LowerInput bundles the parser's arenas for one file. Lowering reads them
// and never writes back; the AST is not retained past this pass (§3.9).
type LowerInput struct {
	File  ast.FileID
	Files *ast.Files
	Items *ast.Items
	Stmts *ast.Stmts
	Exprs *ast.Exprs
	Pats  *ast.Patterns
	Types *ast.Types
}

// Lower resolves and desugars a parsed file into an HIR Module. It runs in
// two passes, collect then lower: the collection pass assigns a def.DefID
// to every top-level item (so forward references and mutual recursion
// resolve regardless of declaration order), then the lowering pass walks
// each function body, resolving names against a scope stack and desugaring
// sugar forms to their core equivalents (§3.5).
//
// Lower does not run type inference; every Expr's Type field is left as
// types.NoTypeID for internal/infer to fill in. Type annotations that do
// appear in signatures are resolved eagerly so the definition table carries
// complete signatures into dispatch-candidate collection.
func Lower(in LowerInput, defs *def.Table, syms *source.Interner, tin *types.Interner, supply *types.VarSupply, bag *diag.Bag) *Module {
	m := NewModule(in.File, defs)
	l := &lowerer{
		in:       in,
		syms:     syms,
		tin:      tin,
		supply:   supply,
		bag:      bag,
		m:        m,
		globals:  make(map[string]def.DefID, 64),
		variants: make(map[string]variantRef, 16),
		itemDefs: make(map[ast.ItemID]def.DefID, 64),
	}
	l.installPrelude()

	file := in.Files.Get(in.File)
	if file == nil {
		return m
	}
	l.collect(*file)
	l.lowerAll(*file)
	return m
}

type variantRef struct {
	enum def.DefID
	idx  int
}

type scope struct {
	vars   map[string]LocalID
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]LocalID, 8), parent: parent}
}

func (s *scope) lookup(name string) (LocalID, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if id, ok := cur.vars[name]; ok {
			return id, true
		}
	}
	return NoLocalID, false
}

func (s *scope) bind(name string, id LocalID) { s.vars[name] = id }

// captureRec tracks, for one closure currently being lowered, which locals
// were bound inside it and which outer locals it touched.
type captureRec struct {
	bound    map[LocalID]bool
	capSet   map[LocalID]bool
	captures []LocalID
}

type lowerer struct {
	in LowerInput

	syms   *source.Interner
	tin    *types.Interner
	supply *types.VarSupply
	bag    *diag.Bag
	m      *Module

	globals  map[string]def.DefID
	variants map[string]variantRef // bare variant name -> enum/index
	itemDefs map[ast.ItemID]def.DefID

	// Per-function state, reset by lowerFnLike.
	nextLocal  LocalID
	scope      *scope
	typeParams map[string]types.TypeID
	rowVars    map[string]types.TypeVarID
	closures   []*captureRec
}

func (l *lowerer) freshLocal() LocalID {
	id := l.nextLocal
	l.nextLocal++
	return id
}

func (l *lowerer) bindLocal(name string, id LocalID) {
	l.scope.bind(name, id)
	if n := len(l.closures); n > 0 {
		l.closures[n-1].bound[id] = true
	}
}

// noteLocalUse records a capture in every closure the reference escapes
// from: walking from the innermost closure outward, stop at the first one
// that bound the local itself.
func (l *lowerer) noteLocalUse(id LocalID) {
	for i := len(l.closures) - 1; i >= 0; i-- {
		rec := l.closures[i]
		if rec.bound[id] {
			return
		}
		if !rec.capSet[id] {
			rec.capSet[id] = true
			rec.captures = append(rec.captures, id)
		}
	}
}

func (l *lowerer) newDef(name string, kind def.Kind, span source.Span) def.DefID {
	return l.m.Defs.New(def.Definition{
		Name: name,
		Sym:  l.syms.Intern(name),
		Kind: kind,
		Span: span,
	})
}

// collect assigns a DefID to every top-level item before any body is
// lowered, so a function may call another declared later in the file
// (§3.3: depth-first, source-order assignment).
func (l *lowerer) collect(file ast.File) {
	for _, itemID := range file.Items {
		item := l.in.Items.Get(itemID)
		var kind def.Kind
		switch item.Kind {
		case ast.ItFn:
			kind = def.KindFn
		case ast.ItStruct:
			kind = def.KindStruct
		case ast.ItEnum:
			kind = def.KindEnum
		case ast.ItTrait:
			kind = def.KindTrait
		case ast.ItImpl:
			kind = def.KindImpl
		case ast.ItEffect:
			kind = def.KindEffect
		case ast.ItHandler:
			kind = def.KindHandler
		case ast.ItConst:
			kind = def.KindConst
		case ast.ItStatic:
			kind = def.KindStatic
		default:
			continue
		}
		id := l.newDef(item.Name, kind, item.Span)
		l.itemDefs[itemID] = id
		if item.Name == "" {
			continue
		}
		if kind == def.KindFn {
			// Same-named functions form a dispatch candidate set, not a
			// duplicate-definition error (§4.3.4).
			l.m.Overloads[item.Name] = append(l.m.Overloads[item.Name], id)
			if _, taken := l.globals[item.Name]; !taken {
				l.globals[item.Name] = id
			}
			continue
		}
		if prev, taken := l.globals[item.Name]; taken {
			l.bag.Add(diag.New(diag.ResDuplicateDef, diag.SevError, item.Span,
				"the name `"+item.Name+"` is defined more than once").
				WithLabel(l.m.Defs.Get(prev).Span, "previous definition here"))
			continue
		}
		l.globals[item.Name] = id
	}

	// Second sweep: enum variants become resolvable by bare name once every
	// enum has a DefID.
	for _, itemID := range file.Items {
		item := l.in.Items.Get(itemID)
		if item.Kind != ast.ItEnum {
			continue
		}
		enumDef := l.itemDefs[itemID]
		for i, v := range item.Variants {
			if _, taken := l.variants[v.Name]; !taken {
				l.variants[v.Name] = variantRef{enum: enumDef, idx: i}
			}
		}
	}
}

// lowerAll runs two sweeps: type-introducing items first (structs, enums,
// effects, traits), then value-level items (functions, handlers, impls,
// consts). Bodies may therefore reference a struct or effect declared
// later in the file; DefIDs were already assigned by collect, and the
// second sweep needs the first sweep's field/op tables for resolution.
func (l *lowerer) lowerAll(file ast.File) {
	for _, itemID := range file.Items {
		item := l.in.Items.Get(itemID)
		defID := l.itemDefs[itemID]
		switch item.Kind {
		case ast.ItStruct:
			l.m.Structs = append(l.m.Structs, l.lowerStruct(item, defID))
		case ast.ItEnum:
			l.m.Enums = append(l.m.Enums, l.lowerEnum(item, defID))
		case ast.ItEffect:
			l.m.Effects = append(l.m.Effects, l.lowerEffect(item, defID))
		case ast.ItTrait:
			l.m.Traits = append(l.m.Traits, l.lowerTrait(item, defID))
		}
	}
	for _, itemID := range file.Items {
		item := l.in.Items.Get(itemID)
		defID := l.itemDefs[itemID]
		switch item.Kind {
		case ast.ItFn:
			fn := l.lowerFnLike(item.Name, item.FnSig, item.FnBody, item.Span, defID, nil)
			l.m.addFunc(fn)
		case ast.ItHandler:
			l.m.Handlers = append(l.m.Handlers, l.lowerHandler(item, defID))
		case ast.ItImpl:
			l.m.Impls = append(l.m.Impls, l.lowerImpl(item, defID))
		case ast.ItConst, ast.ItStatic:
			l.m.Consts = append(l.m.Consts, l.lowerConst(item, defID))
		}
	}
}

// lowerFnLike lowers the shared shape of an ItFn declaration and an impl
// block's method: a name, a signature, and a body. Local numbering restarts
// per function; LocalIDs are function-scoped (§3.5). outerTypeParams carries
// an enclosing impl block's type parameters into the method's signature
// scope; nil for a free function.
func (l *lowerer) lowerFnLike(name string, sig ast.FnSig, body ast.ExprID, span source.Span, defID def.DefID, outerTypeParams map[string]types.TypeID) *Func {
	l.nextLocal = 1
	l.scope = newScope(nil)
	l.typeParams = make(map[string]types.TypeID, 4)
	for n, ty := range outerTypeParams {
		l.typeParams[n] = ty
	}
	l.rowVars = make(map[string]types.TypeVarID, 2)
	l.closures = nil

	fn := &Func{Def: defID, Name: name, Span: span}
	if name == "main" {
		fn.Flags |= FuncEntrypoint
	}
	if len(l.m.Overloads[name]) > 1 {
		fn.Flags |= FuncOverload
	}

	for _, tp := range sig.TypeParams {
		v := l.supply.Fresh()
		l.typeParams[tp.Name] = l.tin.New(types.Type{Kind: types.KindVar, Var: v})
		hp := TypeParam{Name: tp.Name, Var: v}
		for _, b := range tp.Bounds {
			if traitDef, ok := l.resolvePathDef(b.Path); ok {
				hp.Bounds = append(hp.Bounds, traitDef)
			}
		}
		fn.TypeParams = append(fn.TypeParams, hp)
	}

	for _, p := range sig.Params {
		local := l.freshLocal()
		l.bindLocal(p.Name, local)
		fn.Params = append(fn.Params, Param{
			Name:   p.Name,
			Local:  local,
			Type:   l.lowerTypeAnnot(p.Type),
			Linear: Linearity(p.Linearity),
			Span:   p.Span,
		})
	}

	if sig.Ret.IsValid() {
		fn.Ret = l.lowerType(sig.Ret)
	} else {
		fn.Ret = l.tin.Builtins.Unit
	}
	fn.Effect, fn.EffectDeclared = l.lowerEffectRow(sig.EffectRow)

	for _, clause := range sig.Requires {
		fn.Requires = append(fn.Requires, l.lowerExpr(clause.Expr))
	}
	for _, clause := range sig.Ensures {
		fn.Ensures = append(fn.Ensures, l.lowerExpr(clause.Expr))
	}

	if body.IsValid() {
		fn.Body = l.lowerExpr(body)
	}
	fn.NumLocals = int(l.nextLocal) - 1
	return fn
}

func (l *lowerer) lowerStruct(item *ast.Item, defID def.DefID) StructDecl {
	sd := StructDecl{Def: defID, Name: item.Name}
	l.typeParams = make(map[string]types.TypeID, 4)
	l.rowVars = make(map[string]types.TypeVarID, 2)
	for _, tp := range item.TypeParams {
		v := l.supply.Fresh()
		l.typeParams[tp.Name] = l.tin.New(types.Type{Kind: types.KindVar, Var: v})
		sd.TypeParams = append(sd.TypeParams, v)
	}
	for _, f := range item.Fields {
		sd.Fields = append(sd.Fields, FieldDecl{Name: f.Name, Type: l.lowerTypeAnnot(f.Type)})
	}
	return sd
}

func (l *lowerer) lowerEnum(item *ast.Item, defID def.DefID) EnumDecl {
	ed := EnumDecl{Def: defID, Name: item.Name}
	l.typeParams = make(map[string]types.TypeID, 4)
	l.rowVars = make(map[string]types.TypeVarID, 2)
	for _, tp := range item.TypeParams {
		v := l.supply.Fresh()
		l.typeParams[tp.Name] = l.tin.New(types.Type{Kind: types.KindVar, Var: v})
		ed.TypeParams = append(ed.TypeParams, v)
	}
	for _, v := range item.Variants {
		vd := VariantDecl{Name: v.Name}
		for _, f := range v.Fields {
			ty := l.lowerTypeAnnot(f.Type)
			if v.IsStruct {
				vd.Fields = append(vd.Fields, FieldDecl{Name: f.Name, Type: ty})
			} else {
				vd.Payload = append(vd.Payload, ty)
			}
		}
		ed.Variants = append(ed.Variants, vd)
	}
	return ed
}

func (l *lowerer) lowerEffect(item *ast.Item, defID def.DefID) EffectDecl {
	ed := EffectDecl{Def: defID, Name: item.Name}
	for _, op := range item.Ops {
		l.nextLocal = 1
		l.scope = newScope(nil)
		l.typeParams = make(map[string]types.TypeID, 2)
		l.rowVars = make(map[string]types.TypeVarID, 2)
		eop := EffectOp{Name: op.Name, NonResumptive: op.NonResumptive}
		for _, p := range op.Sig.Params {
			eop.Params = append(eop.Params, Param{
				Name: p.Name,
				Type: l.lowerTypeAnnot(p.Type),
				Span: p.Span,
			})
		}
		if op.Sig.Ret.IsValid() {
			eop.RetType = l.lowerType(op.Sig.Ret)
		} else {
			eop.RetType = l.tin.Builtins.Unit
		}
		ed.Ops = append(ed.Ops, eop)
	}
	return ed
}

func (l *lowerer) lowerHandler(item *ast.Item, defID def.DefID) HandlerDecl {
	hd := HandlerDecl{Def: defID, Name: item.Name}
	effDef, ok := l.resolvePathDef(item.HandledEffect)
	if !ok || l.m.Defs.Get(effDef).Kind != def.KindEffect {
		l.bag.Add(diag.New(diag.ResUnresolvedName, diag.SevError, item.Span,
			"handler `"+item.Name+"` does not name an effect in scope"))
		effDef = def.NoDefID
	}
	hd.Effect = effDef

	for _, clause := range item.Clauses {
		l.nextLocal = 1
		l.scope = newScope(nil)
		l.typeParams = make(map[string]types.TypeID, 2)
		l.rowVars = make(map[string]types.TypeVarID, 2)
		l.closures = nil

		hc := HandlerClause{OpName: clause.OpName, OpIndex: -1, Span: clause.Span}
		if eff := l.m.EffectByDef(effDef); eff != nil {
			for i, op := range eff.Ops {
				if op.Name == clause.OpName {
					hc.OpIndex = i
					break
				}
			}
			if hc.OpIndex < 0 {
				l.bag.Add(diag.New(diag.ResUnresolvedName, diag.SevError, clause.Span,
					"effect `"+eff.Name+"` has no operation `"+clause.OpName+"`"))
			}
		}
		for _, p := range clause.Params {
			local := l.freshLocal()
			l.bindLocal(p.Name, local)
			hc.Params = append(hc.Params, Param{
				Name:  p.Name,
				Local: local,
				Type:  l.lowerTypeAnnot(p.Type),
				Span:  p.Span,
			})
		}
		hc.Body = l.lowerExpr(clause.Body)
		hd.Clauses = append(hd.Clauses, hc)
	}
	return hd
}

func (l *lowerer) lowerTrait(item *ast.Item, defID def.DefID) TraitDecl {
	td := TraitDecl{Def: defID, Name: item.Name}
	for _, sup := range item.SuperTraits {
		if supDef, ok := l.resolvePathDef(sup.Path); ok {
			td.Supers = append(td.Supers, supDef)
		}
	}
	for i := range item.Methods {
		method := &item.Methods[i]
		l.nextLocal = 1
		l.scope = newScope(nil)
		l.typeParams = make(map[string]types.TypeID, 2)
		l.rowVars = make(map[string]types.TypeVarID, 2)
		l.closures = nil

		tm := TraitMethod{Name: method.Name}
		for _, p := range method.FnSig.Params {
			local := l.freshLocal()
			l.bindLocal(p.Name, local)
			tm.Params = append(tm.Params, l.lowerTypeAnnot(p.Type))
		}
		if method.FnSig.Ret.IsValid() {
			tm.Ret = l.lowerType(method.FnSig.Ret)
		} else {
			tm.Ret = l.tin.Builtins.Unit
		}
		if method.FnBody.IsValid() {
			tm.Body = l.lowerExpr(method.FnBody)
		}
		td.Methods = append(td.Methods, tm)
	}
	return td
}

func (l *lowerer) lowerImpl(item *ast.Item, defID def.DefID) ImplDecl {
	id := ImplDecl{Def: defID}
	l.typeParams = make(map[string]types.TypeID, 4)
	l.rowVars = make(map[string]types.TypeVarID, 2)
	for _, tp := range item.TypeParams {
		v := l.supply.Fresh()
		l.typeParams[tp.Name] = l.tin.New(types.Type{Kind: types.KindVar, Var: v})
		for _, b := range tp.Bounds {
			if traitDef, ok := l.resolvePathDef(b.Path); ok {
				id.Wheres = append(id.Wheres, TraitObligation{Type: l.typeParams[tp.Name], Trait: traitDef})
			}
		}
	}
	if item.TraitRef != nil {
		if traitDef, ok := l.resolvePathDef(item.TraitRef.Path); ok {
			id.Trait = traitDef
		} else {
			l.bag.Add(diag.New(diag.ResUnresolvedName, diag.SevError, item.Span,
				"cannot resolve trait `"+pathText(item.TraitRef.Path)+"`"))
		}
	}
	implTypeParams := l.typeParams
	id.SelfTy = l.lowerTypeAnnot(item.SelfType)

	for _, method := range item.ImplItems {
		methodDef := l.newDef(method.Name, def.KindFn, method.Span)
		l.m.Overloads[method.Name] = append(l.m.Overloads[method.Name], methodDef)
		fn := l.lowerFnLike(method.Name, method.Sig, method.Body, method.Span, methodDef, implTypeParams)
		l.m.addFunc(fn)
		id.Methods = append(id.Methods, methodDef)
	}
	return id
}

func (l *lowerer) lowerConst(item *ast.Item, defID def.DefID) ConstDecl {
	l.nextLocal = 1
	l.scope = newScope(nil)
	l.typeParams = make(map[string]types.TypeID, 1)
	l.rowVars = make(map[string]types.TypeVarID, 1)
	l.closures = nil
	cd := ConstDecl{
		Def:      defID,
		Name:     item.Name,
		Type:     l.lowerTypeAnnot(item.ValueType),
		IsStatic: item.Kind == ast.ItStatic,
	}
	if item.Value.IsValid() {
		cd.Value = l.lowerExpr(item.Value)
	}
	return cd
}
