package hir

import (
	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/types"
)

// lowerExpr resolves and desugars one surface expression (§4.4 item 3).
// Every sugar form is rewritten here: compound assignment becomes a read
// and an assign over a shared place node, `?` becomes a match over Result,
// ranges become prelude struct literals, and method calls flatten to plain
// calls whose candidate set multiple dispatch narrows later.
func (l *lowerer) lowerExpr(id ast.ExprID) ExprID {
	e := l.in.Exprs.Get(id)
	if e == nil {
		return NoExprID
	}
	switch e.Kind {
	case ast.ExIntLit:
		return l.m.Exprs.New(Expr{Kind: EkIntLit, Span: e.Span, IntVal: e.IntVal, IntSuffix: e.IntSuffix})
	case ast.ExFloatLit:
		return l.m.Exprs.New(Expr{Kind: EkFloatLit, Span: e.Span, FloatVal: e.FloatVal})
	case ast.ExStringLit:
		return l.m.Exprs.New(Expr{Kind: EkStringLit, Span: e.Span, StrVal: e.StrVal})
	case ast.ExCharLit:
		return l.m.Exprs.New(Expr{Kind: EkCharLit, Span: e.Span, CharVal: e.CharVal})
	case ast.ExBoolLit:
		return l.m.Exprs.New(Expr{Kind: EkBoolLit, Span: e.Span, BoolVal: e.BoolVal})

	case ast.ExIdent:
		return l.lowerIdent(e.Name, e.Span)
	case ast.ExPath:
		return l.lowerPath(e.Path, e.Span)

	case ast.ExUnary:
		operand := l.lowerExpr(e.RHS)
		return l.m.Exprs.New(Expr{Kind: EkUnary, Span: e.Span, UnOp: e.UnOp, RHS: operand})
	case ast.ExBinary:
		lhs := l.lowerExpr(e.LHS)
		rhs := l.lowerExpr(e.RHS)
		return l.m.Exprs.New(Expr{Kind: EkBinary, Span: e.Span, BinOp: e.BinOp, LHS: lhs, RHS: rhs})
	case ast.ExCast:
		operand := l.lowerExpr(e.LHS)
		return l.m.Exprs.New(Expr{Kind: EkCast, Span: e.Span, Value: operand, CastTo: l.lowerType(e.CastType)})

	case ast.ExCall:
		return l.lowerCall(e)
	case ast.ExMethodCall:
		// `a.f(b)` is uniform function-call syntax: it lowers to `f(a, b)`
		// and resolves through the same dispatch machinery as a free call.
		recv := l.lowerExpr(e.Base)
		args := make([]ExprID, 0, len(e.Args)+1)
		args = append(args, recv)
		for _, a := range e.Args {
			args = append(args, l.lowerExpr(a))
		}
		return l.m.Exprs.New(Expr{
			Kind:     EkCall,
			Span:     e.Span,
			Args:     args,
			Dispatch: l.dispatchSet(e.Method, e.Span),
		})

	case ast.ExField:
		base := l.lowerExpr(e.Base)
		return l.m.Exprs.New(Expr{Kind: EkField, Span: e.Span, Base: base, Field: e.Field, FieldIdx: -1})
	case ast.ExIndex:
		base := l.lowerExpr(e.Base)
		idx := l.lowerExpr(e.Index)
		return l.m.Exprs.New(Expr{Kind: EkIndex, Span: e.Span, Base: base, Index: idx})

	case ast.ExIf:
		cond := l.lowerExpr(e.Cond)
		then := l.lowerExpr(e.Then)
		var els ExprID
		if e.Else.IsValid() {
			els = l.lowerExpr(e.Else) // else-if chains nest naturally
		}
		return l.m.Exprs.New(Expr{Kind: EkIf, Span: e.Span, Cond: cond, Then: then, Else: els})

	case ast.ExMatch:
		scrut := l.lowerExpr(e.Scrutinee)
		arms := make([]MatchArm, 0, len(e.Arms))
		for _, arm := range e.Arms {
			l.scope = newScope(l.scope)
			pat := l.lowerPattern(arm.Pattern)
			var guard ExprID
			if arm.Guard.IsValid() {
				guard = l.lowerExpr(arm.Guard)
			}
			body := l.lowerExpr(arm.Body)
			l.scope = l.scope.parent
			arms = append(arms, MatchArm{Pattern: pat, Guard: guard, Body: body, Span: arm.Span})
		}
		return l.m.Exprs.New(Expr{Kind: EkMatch, Span: e.Span, Scrutinee: scrut, Arms: arms})

	case ast.ExBlock:
		return l.lowerBlock(e)

	case ast.ExClosure:
		return l.lowerClosure(e)

	case ast.ExTuple:
		elems := make([]ExprID, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = l.lowerExpr(el)
		}
		if len(elems) == 0 {
			return l.m.Exprs.New(Expr{Kind: EkUnitLit, Span: e.Span})
		}
		return l.m.Exprs.New(Expr{Kind: EkTupleLit, Span: e.Span, Elems: elems})
	case ast.ExArrayLit:
		elems := make([]ExprID, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = l.lowerExpr(el)
		}
		return l.m.Exprs.New(Expr{Kind: EkArrayLit, Span: e.Span, Elems: elems})

	case ast.ExStructLit:
		return l.lowerStructLit(e)

	case ast.ExAssign:
		target := l.lowerExpr(e.Target)
		value := l.lowerExpr(e.Value)
		return l.m.Exprs.New(Expr{Kind: EkAssign, Span: e.Span, Target: target, Value: value})

	case ast.ExCompoundAssign:
		// `a += b` becomes `a = a + b`. The target place is lowered ONCE and
		// the same node id appears as both the binary's left operand and the
		// assignment target, giving MIR its read-once evaluation handle.
		target := l.lowerExpr(e.Target)
		rhs := l.lowerExpr(e.Value)
		sum := l.m.Exprs.New(Expr{Kind: EkBinary, Span: e.Span, BinOp: e.CompoundOp, LHS: target, RHS: rhs})
		return l.m.Exprs.New(Expr{Kind: EkAssign, Span: e.Span, Target: target, Value: sum})

	case ast.ExRange:
		return l.lowerRange(e)

	case ast.ExQuestion:
		return l.lowerQuestion(e)

	case ast.ExReturn:
		var v ExprID
		if e.Value.IsValid() {
			v = l.lowerExpr(e.Value)
		}
		return l.m.Exprs.New(Expr{Kind: EkReturn, Span: e.Span, Value: v})
	case ast.ExBreak:
		var v ExprID
		if e.Value.IsValid() {
			v = l.lowerExpr(e.Value)
		}
		return l.m.Exprs.New(Expr{Kind: EkBreak, Span: e.Span, Value: v})
	case ast.ExContinue:
		return l.m.Exprs.New(Expr{Kind: EkContinue, Span: e.Span})

	case ast.ExWhile:
		cond := l.lowerExpr(e.Cond)
		body := l.lowerExpr(e.LoopBody)
		return l.m.Exprs.New(Expr{Kind: EkWhile, Span: e.Span, Cond: cond, LoopBody: body})
	case ast.ExLoop:
		body := l.lowerExpr(e.LoopBody)
		return l.m.Exprs.New(Expr{Kind: EkLoop, Span: e.Span, LoopBody: body})
	case ast.ExFor:
		iter := l.lowerExpr(e.ForIter)
		l.scope = newScope(l.scope)
		loopVar := l.freshLocal()
		l.bindLocal(e.ForVar, loopVar)
		body := l.lowerExpr(e.ForBody)
		l.scope = l.scope.parent
		return l.m.Exprs.New(Expr{Kind: EkFor, Span: e.Span, ForVar: loopVar, ForIter: iter, ForBody: body})

	case ast.ExPerform:
		return l.lowerPerform(e)
	case ast.ExHandle:
		return l.lowerHandle(e)
	case ast.ExResume:
		var v ExprID
		if e.ResumeValue.IsValid() {
			v = l.lowerExpr(e.ResumeValue)
		}
		return l.m.Exprs.New(Expr{Kind: EkResume, Span: e.Span, ResumeValue: v})

	case ast.ExUnchecked:
		body := l.lowerExpr(e.UncheckedBody)
		return l.m.Exprs.New(Expr{Kind: EkUnchecked, Span: e.Span, UncheckedChecks: e.UncheckedAttr.Checks, UncheckedBody: body})

	default:
		return l.m.Exprs.New(Expr{Kind: EkInvalid, Span: e.Span})
	}
}

func (l *lowerer) lowerIdent(name string, sp source.Span) ExprID {
	l.syms.Intern(name)
	if local, ok := l.scope.lookup(name); ok {
		l.noteLocalUse(local)
		return l.m.Exprs.New(Expr{Kind: EkLocalRef, Span: sp, Local: local})
	}
	if v, ok := l.variants[name]; ok {
		return l.m.Exprs.New(Expr{Kind: EkVariantRef, Span: sp, Def: v.enum, VariantIdx: v.idx})
	}
	if d, ok := l.globals[name]; ok {
		return l.m.Exprs.New(Expr{Kind: EkDefRef, Span: sp, Def: d})
	}
	l.bag.Add(diag.Error(diag.ResUnresolvedName, sp,
		"cannot find `"+name+"` in this scope"))
	return l.m.Exprs.New(Expr{Kind: EkDefRef, Span: sp, Def: def.NoDefID})
}

func (l *lowerer) lowerPath(path []string, sp source.Span) ExprID {
	if len(path) == 2 {
		// `Enum::Variant` resolves against the enum's own variant list, so a
		// shadowed bare variant name stays reachable.
		if enumDef, ok := l.globals[path[0]]; ok && l.m.Defs.Get(enumDef).Kind == def.KindEnum {
			if ed := l.m.EnumByDef(enumDef); ed != nil {
				if idx := ed.VariantIndex(path[1]); idx >= 0 {
					return l.m.Exprs.New(Expr{Kind: EkVariantRef, Span: sp, Def: enumDef, VariantIdx: idx})
				}
				l.bag.Add(diag.Error(diag.ResUnresolvedName, sp,
					"enum `"+path[0]+"` has no variant `"+path[1]+"`"))
				return l.m.Exprs.New(Expr{Kind: EkDefRef, Span: sp, Def: def.NoDefID})
			}
		}
	}
	if d, ok := l.resolvePathDef(path); ok {
		return l.m.Exprs.New(Expr{Kind: EkDefRef, Span: sp, Def: d})
	}
	l.bag.Add(diag.Error(diag.ResUnresolvedName, sp,
		"cannot find `"+pathText(path)+"` in this scope"))
	return l.m.Exprs.New(Expr{Kind: EkDefRef, Span: sp, Def: def.NoDefID})
}

// dispatchSet gathers every in-scope function definition with the given
// name (§4.3.4 step 1). Resolution to a single candidate happens during
// inference, where argument types are known.
func (l *lowerer) dispatchSet(name string, sp source.Span) []def.DefID {
	l.syms.Intern(name)
	set := l.m.Overloads[name]
	if len(set) == 0 {
		l.bag.Add(diag.Error(diag.ResUnresolvedName, sp,
			"cannot find function `"+name+"` in this scope"))
		return nil
	}
	return set
}

func (l *lowerer) lowerCall(e *ast.Expr) ExprID {
	callee := l.in.Exprs.Get(e.Callee)
	args := make([]ExprID, len(e.Args))
	for i, a := range e.Args {
		args[i] = l.lowerExpr(a)
	}

	// A call through a bare name that is not a local carries the full
	// overload set; anything else (locals holding closures, path
	// references, arbitrary callee expressions) lowers its callee normally.
	if callee != nil && callee.Kind == ast.ExIdent {
		if _, isLocal := l.scope.lookup(callee.Name); !isLocal {
			if v, ok := l.variants[callee.Name]; ok {
				ctor := l.m.Exprs.New(Expr{Kind: EkVariantRef, Span: callee.Span, Def: v.enum, VariantIdx: v.idx})
				return l.m.Exprs.New(Expr{Kind: EkCall, Span: e.Span, Callee: ctor, Args: args})
			}
			if set := l.m.Overloads[callee.Name]; len(set) > 0 {
				return l.m.Exprs.New(Expr{Kind: EkCall, Span: e.Span, Args: args, Dispatch: set})
			}
		}
	}
	return l.m.Exprs.New(Expr{Kind: EkCall, Span: e.Span, Callee: l.lowerExpr(e.Callee), Args: args})
}

func (l *lowerer) lowerBlock(e *ast.Expr) ExprID {
	l.scope = newScope(l.scope)
	stmts := make([]StmtID, 0, len(e.Stmts))
	for _, sid := range e.Stmts {
		if lowered := l.lowerStmt(sid); lowered.IsValid() {
			stmts = append(stmts, lowered)
		}
	}
	var tail ExprID
	if e.Tail.IsValid() {
		tail = l.lowerExpr(e.Tail)
	}
	l.scope = l.scope.parent
	return l.m.Exprs.New(Expr{Kind: EkBlock, Span: e.Span, Stmts: stmts, Tail: tail})
}

func (l *lowerer) lowerStmt(id ast.StmtID) StmtID {
	s := l.in.Stmts.Get(id)
	if s == nil {
		return NoStmtID
	}
	switch s.Kind {
	case ast.StLet:
		var init ExprID
		if s.Init.IsValid() {
			init = l.lowerExpr(s.Init)
		}
		// The initializer is lowered before the pattern binds, so
		// `let x = x` refers to the outer x.
		pat := l.lowerPattern(s.Pattern)
		st := Stmt{
			Kind:    SkLet,
			Span:    s.Span,
			Pattern: &pat,
			Linear:  Linearity(s.Linearity),
			Init:    init,
		}
		if pat.Kind == PkBinding && pat.SubPat == nil {
			st.Local = pat.Local
		}
		if s.TypeAnnot.IsValid() {
			st.Pattern.Type = l.lowerType(s.TypeAnnot)
		}
		return l.m.Stmts.New(st)
	case ast.StExpr:
		return l.m.Stmts.New(Stmt{Kind: SkExpr, Span: s.Span, Expr: l.lowerExpr(s.Expr)})
	case ast.StItem:
		l.bag.Add(diag.Error(diag.SynUnexpectedToken, s.Span,
			"items may only be declared at the top level"))
		return NoStmtID
	default:
		return NoStmtID
	}
}

func (l *lowerer) lowerClosure(e *ast.Expr) ExprID {
	l.scope = newScope(l.scope)
	rec := &captureRec{bound: make(map[LocalID]bool, 8), capSet: make(map[LocalID]bool, 4)}
	l.closures = append(l.closures, rec)

	params := make([]ClosureParam, len(e.Params))
	for i, p := range e.Params {
		local := l.freshLocal()
		l.bindLocal(p.Name, local)
		params[i] = ClosureParam{Local: local, Type: l.lowerTypeAnnot(p.Type)}
	}
	var ret types.TypeID
	if e.Ret.IsValid() {
		ret = l.lowerType(e.Ret)
	}
	body := l.lowerExpr(e.Body)

	l.closures = l.closures[:len(l.closures)-1]
	l.scope = l.scope.parent
	return l.m.Exprs.New(Expr{
		Kind:     EkClosure,
		Span:     e.Span,
		Params:   params,
		Ret:      ret,
		Body:     body,
		Captures: rec.captures,
	})
}

func (l *lowerer) lowerStructLit(e *ast.Expr) ExprID {
	sd, ok := l.globals[e.TypePath]
	var decl *StructDecl
	if ok {
		decl = l.m.StructByDef(sd)
	}
	if decl == nil {
		l.bag.Add(diag.Error(diag.ResUnresolvedName, e.Span,
			"cannot find struct `"+e.TypePath+"` in this scope"))
		sd = def.NoDefID
	}
	fields := make([]StructLitField, 0, len(e.Fields))
	for _, f := range e.Fields {
		idx := -1
		if decl != nil {
			idx = decl.FieldIndex(f.Label)
			if idx < 0 {
				l.bag.Add(diag.Error(diag.ResUnresolvedField, e.Span,
					"struct `"+e.TypePath+"` has no field `"+f.Label+"`"))
			}
		}
		fields = append(fields, StructLitField{Index: idx, Value: l.lowerExpr(f.Value)})
	}
	return l.m.Exprs.New(Expr{Kind: EkStructLit, Span: e.Span, StructDef: sd, Fields: fields})
}

// lowerRange desugars `a..b` / `a..=b` into the prelude Range structs, the
// shape the Iterator impls and MIR both consume.
func (l *lowerer) lowerRange(e *ast.Expr) ExprID {
	structDef := l.m.Prelude.Range
	if e.RangeInclusive {
		structDef = l.m.Prelude.RangeInclusive
	}
	fields := []StructLitField{
		{Index: 0, Value: l.lowerExpr(e.RangeLo)},
	}
	if e.RangeHi.IsValid() {
		fields = append(fields, StructLitField{Index: 1, Value: l.lowerExpr(e.RangeHi)})
	}
	return l.m.Exprs.New(Expr{Kind: EkStructLit, Span: e.Span, StructDef: structDef, Fields: fields})
}

// lowerQuestion desugars `expr?` into
//
//	match expr { Ok(v) => v, Err(e) => return Err(e) }
//
// per §4.4 item 3, referring to the prelude Result by DefID so the
// expansion survives shadowing.
func (l *lowerer) lowerQuestion(e *ast.Expr) ExprID {
	scrut := l.lowerExpr(e.Base)
	p := l.m.Prelude

	okLocal := l.freshLocal()
	okArm := MatchArm{
		Pattern: Pattern{
			Kind:       PkVariant,
			Span:       e.Span,
			Def:        p.Result,
			VariantIdx: p.OkIdx,
			Positional: []Pattern{{Kind: PkBinding, Span: e.Span, Local: okLocal}},
		},
		Body: l.m.Exprs.New(Expr{Kind: EkLocalRef, Span: e.Span, Local: okLocal}),
		Span: e.Span,
	}

	errLocal := l.freshLocal()
	errCtor := l.m.Exprs.New(Expr{Kind: EkVariantRef, Span: e.Span, Def: p.Result, VariantIdx: p.ErrIdx})
	errRef := l.m.Exprs.New(Expr{Kind: EkLocalRef, Span: e.Span, Local: errLocal})
	rewrap := l.m.Exprs.New(Expr{Kind: EkCall, Span: e.Span, Callee: errCtor, Args: []ExprID{errRef}})
	errArm := MatchArm{
		Pattern: Pattern{
			Kind:       PkVariant,
			Span:       e.Span,
			Def:        p.Result,
			VariantIdx: p.ErrIdx,
			Positional: []Pattern{{Kind: PkBinding, Span: e.Span, Local: errLocal}},
		},
		Body: l.m.Exprs.New(Expr{Kind: EkReturn, Span: e.Span, Value: rewrap}),
		Span: e.Span,
	}

	return l.m.Exprs.New(Expr{Kind: EkMatch, Span: e.Span, Scrutinee: scrut, Arms: []MatchArm{okArm, errArm}})
}

func (l *lowerer) lowerPerform(e *ast.Expr) ExprID {
	args := make([]ExprID, len(e.Args))
	for i, a := range e.Args {
		args[i] = l.lowerExpr(a)
	}
	effDef, ok := l.globals[e.EffectName]
	opIdx := -1
	if !ok || l.m.Defs.Get(effDef).Kind != def.KindEffect {
		l.bag.Add(diag.Error(diag.ResUnresolvedName, e.Span,
			"cannot find effect `"+e.EffectName+"` in this scope"))
		effDef = def.NoDefID
	} else if eff := l.m.EffectByDef(effDef); eff != nil {
		for i, op := range eff.Ops {
			if op.Name == e.OpName {
				opIdx = i
				break
			}
		}
		if opIdx < 0 {
			l.bag.Add(diag.Error(diag.ResUnresolvedName, e.Span,
				"effect `"+e.EffectName+"` has no operation `"+e.OpName+"`"))
		}
	}
	l.syms.Intern(e.OpName)
	return l.m.Exprs.New(Expr{
		Kind:        EkPerform,
		Span:        e.Span,
		Effect:      effDef,
		Op:          e.OpName,
		OpIndex:     opIdx,
		PerformArgs: args,
	})
}

func (l *lowerer) lowerHandle(e *ast.Expr) ExprID {
	handlerDef, ok := l.resolvePathDef(e.HandlerPath)
	if !ok || l.m.Defs.Get(handlerDef).Kind != def.KindHandler {
		l.bag.Add(diag.Error(diag.ResUnresolvedName, e.Span,
			"cannot find handler `"+pathText(e.HandlerPath)+"` in this scope"))
		handlerDef = def.NoDefID
	}
	args := make([]ExprID, len(e.HandleArgs))
	for i, a := range e.HandleArgs {
		args[i] = l.lowerExpr(a)
	}
	body := l.lowerExpr(e.HandleBody)
	return l.m.Exprs.New(Expr{
		Kind:        EkHandle,
		Span:        e.Span,
		Handler:     handlerDef,
		HandlerArgs: args,
		HandleBody:  body,
	})
}
