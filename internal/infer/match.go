package infer

import (
	"blood/internal/diag"
	"blood/internal/hir"
	"blood/internal/types"
)

// checkMatch types a match expression: the scrutinee synthesizes, each
// arm's pattern checks against the scrutinee type (binding its captures),
// guards check against bool, and every body checks against the match's
// result type. Arm usage residues fork per arm and merge at the end
// (§4.3.8); exhaustiveness runs once types are known (§4.3.6).
func (c *Checker) checkMatch(e *hir.Expr, result types.TypeID) {
	scrutTy := c.synth(e.Scrutinee)

	base := c.usage.snapshot()
	outs := make([]usageMap, 0, len(e.Arms))
	for i := range e.Arms {
		arm := &e.Arms[i]
		c.usage.restore(base)
		c.checkPattern(&arm.Pattern, scrutTy, hir.LetUnrestricted)
		if arm.Guard.IsValid() {
			c.check(arm.Guard, c.tin.Builtins.Bool)
		}
		c.check(arm.Body, result)
		outs = append(outs, c.usage.snapshot())
	}
	if len(outs) > 0 {
		c.usage.mergeBranches(e.Span, outs...)
	}

	c.checkExhaustive(e, scrutTy)
	e.Type = result
}

// checkPattern verifies a pattern against the type it matches and types
// every binding it introduces. letLin is the let-binding qualifier for the
// top-level binding of a `let` statement; nested bindings always derive
// their discipline from their type.
func (c *Checker) checkPattern(p *hir.Pattern, ty types.TypeID, letLin hir.Linearity) {
	if p == nil {
		return
	}
	p.Type = ty
	b := c.tin.Builtins
	switch p.Kind {
	case hir.PkWildcard:
		// Matches anything; an affine/linear scrutinee dropped through a
		// wildcard is checked by scope-exit rules, not here.
	case hir.PkBinding:
		c.locals[p.Local] = ty
		c.usage.declare(p.Local, letLin, p.Span)
		if p.SubPat != nil {
			c.checkPattern(p.SubPat, ty, hir.LetUnrestricted)
		}
	case hir.PkIntLit:
		c.Unify(c.tin.New(types.Type{Kind: types.KindInt, Width: types.WidthAny}), ty, p.Span)
	case hir.PkFloatLit:
		c.Unify(b.F64, ty, p.Span)
	case hir.PkStringLit:
		c.Unify(b.Str, ty, p.Span)
	case hir.PkCharLit:
		c.Unify(b.U32, ty, p.Span)
	case hir.PkBoolLit:
		c.Unify(b.Bool, ty, p.Span)
	case hir.PkTuple:
		elems := make([]types.TypeID, len(p.Elems))
		for i := range elems {
			elems[i] = c.freshVar()
		}
		c.Unify(c.tin.New(types.Type{Kind: types.KindTuple, Args: elems}), ty, p.Span)
		for i := range p.Elems {
			c.checkPattern(&p.Elems[i], elems[i], hir.LetUnrestricted)
		}
	case hir.PkArray:
		elem := c.freshVar()
		c.Unify(c.tin.New(types.Type{Kind: types.KindSlice, Elem: elem}), ty, p.Span)
		for i := range p.Elems {
			c.checkPattern(&p.Elems[i], elem, hir.LetUnrestricted)
		}
	case hir.PkRef:
		inner := c.freshVar()
		c.Unify(c.tin.New(types.Type{Kind: types.KindRef, Elem: inner}), ty, p.Span)
		if len(p.Elems) == 1 {
			c.checkPattern(&p.Elems[0], inner, hir.LetUnrestricted)
		}
	case hir.PkOr:
		for i := range p.Elems {
			c.checkPattern(&p.Elems[i], ty, letLin)
		}
	case hir.PkStruct:
		c.checkStructPattern(p, ty)
	case hir.PkVariant:
		c.checkVariantPattern(p, ty)
	}
}

func (c *Checker) checkStructPattern(p *hir.Pattern, ty types.TypeID) {
	sd := c.m.StructByDef(p.Def)
	if sd == nil {
		return
	}
	args := make([]types.TypeID, len(sd.TypeParams))
	env := make(map[types.TypeVarID]types.TypeID, len(sd.TypeParams))
	for i, v := range sd.TypeParams {
		args[i] = c.freshVar()
		env[v] = args[i]
	}
	c.Unify(c.tin.New(types.Type{Kind: types.KindNamed, Def: p.Def, Args: args}), ty, p.Span)
	for i := range p.Fields {
		f := &p.Fields[i]
		fieldTy := c.errType()
		if f.Index >= 0 && f.Index < len(sd.Fields) {
			fieldTy = c.substituteVars(sd.Fields[f.Index].Type, env)
		}
		c.checkPattern(&f.Pattern, fieldTy, hir.LetUnrestricted)
	}
}

func (c *Checker) checkVariantPattern(p *hir.Pattern, ty types.TypeID) {
	ed := c.m.EnumByDef(p.Def)
	if ed == nil || p.VariantIdx < 0 || p.VariantIdx >= len(ed.Variants) {
		return
	}
	args := make([]types.TypeID, len(ed.TypeParams))
	env := make(map[types.TypeVarID]types.TypeID, len(ed.TypeParams))
	for i, v := range ed.TypeParams {
		args[i] = c.freshVar()
		env[v] = args[i]
	}
	c.Unify(c.tin.New(types.Type{Kind: types.KindNamed, Def: p.Def, Args: args}), ty, p.Span)

	variant := &ed.Variants[p.VariantIdx]
	if len(p.Positional) > 0 && len(p.Positional) != len(variant.Payload) {
		c.bag.Add(diag.Error(diag.TypeArityMismatch, p.Span,
			"variant `"+variant.Name+"` has "+itoa(len(variant.Payload))+" fields"))
	}
	for i := range p.Positional {
		payloadTy := c.errType()
		if i < len(variant.Payload) {
			payloadTy = c.substituteVars(variant.Payload[i], env)
		}
		c.checkPattern(&p.Positional[i], payloadTy, hir.LetUnrestricted)
	}
	for i := range p.Fields {
		f := &p.Fields[i]
		fieldTy := c.errType()
		if f.Index >= 0 && f.Index < len(variant.Fields) {
			fieldTy = c.substituteVars(variant.Fields[f.Index].Type, env)
		}
		c.checkPattern(&f.Pattern, fieldTy, hir.LetUnrestricted)
	}
}
