package hir

import (
	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/diag"
)

// lowerPattern resolves a surface pattern: constructor paths become
// DefID/variant-index pairs, binding names become fresh LocalIDs in the
// current scope. Or-pattern alternatives share the scope, so a local bound
// in one alternative is visible to the arm body regardless of which
// alternative matched (inference checks the alternatives bind compatible
// sets).
func (l *lowerer) lowerPattern(id ast.PatternID) Pattern {
	p := l.in.Pats.Get(id)
	if p == nil {
		return Pattern{Kind: PkInvalid}
	}
	switch p.Kind {
	case ast.PatWildcard:
		return Pattern{Kind: PkWildcard, Span: p.Span}
	case ast.PatBinding:
		// A binding whose name collides with an in-scope enum variant is a
		// constructor pattern, not a capture: `None => ...` must not bind a
		// local called None.
		if v, ok := l.variants[p.Name]; ok && !p.SubPat.IsValid() {
			return Pattern{Kind: PkVariant, Span: p.Span, Def: v.enum, VariantIdx: v.idx}
		}
		local := l.freshLocal()
		l.bindLocal(p.Name, local)
		out := Pattern{Kind: PkBinding, Span: p.Span, Local: local, Name: p.Name}
		if p.SubPat.IsValid() {
			sub := l.lowerPattern(p.SubPat)
			out.SubPat = &sub
		}
		return out
	case ast.PatIntLit:
		return Pattern{Kind: PkIntLit, Span: p.Span, IntVal: p.IntVal, Negative: p.Negative}
	case ast.PatFloatLit:
		return Pattern{Kind: PkFloatLit, Span: p.Span, FloatVal: p.FloatVal, Negative: p.Negative}
	case ast.PatStringLit:
		return Pattern{Kind: PkStringLit, Span: p.Span, StrVal: p.StrVal}
	case ast.PatCharLit:
		return Pattern{Kind: PkCharLit, Span: p.Span, CharVal: p.CharVal}
	case ast.PatBoolLit:
		return Pattern{Kind: PkBoolLit, Span: p.Span, BoolVal: p.BoolVal}
	case ast.PatTuple:
		elems := make([]Pattern, len(p.Elems))
		for i, e := range p.Elems {
			elems[i] = l.lowerPattern(e)
		}
		return Pattern{Kind: PkTuple, Span: p.Span, Elems: elems}
	case ast.PatArray:
		elems := make([]Pattern, len(p.Elems))
		for i, e := range p.Elems {
			elems[i] = l.lowerPattern(e)
		}
		return Pattern{Kind: PkArray, Span: p.Span, Elems: elems, Rest: p.Rest}
	case ast.PatRef:
		inner := l.lowerPattern(p.Inner)
		return Pattern{Kind: PkRef, Span: p.Span, Elems: []Pattern{inner}}
	case ast.PatOr:
		alts := make([]Pattern, len(p.Alts))
		for i, a := range p.Alts {
			alts[i] = l.lowerPattern(a)
		}
		return Pattern{Kind: PkOr, Span: p.Span, Elems: alts}
	case ast.PatStruct:
		return l.lowerStructPattern(p)
	case ast.PatVariant:
		return l.lowerVariantPattern(p)
	default:
		return Pattern{Kind: PkInvalid, Span: p.Span}
	}
}

func (l *lowerer) lowerStructPattern(p *ast.Pattern) Pattern {
	out := Pattern{Kind: PkStruct, Span: p.Span, HasRestField: p.HasRestField}
	structDef, ok := l.resolvePathDef(p.Path)
	var decl *StructDecl
	if ok {
		decl = l.m.StructByDef(structDef)
	}
	if decl == nil {
		l.bag.Add(diag.Error(diag.ResUnresolvedName, p.Span,
			"cannot find struct `"+pathText(p.Path)+"` in this scope"))
		structDef = def.NoDefID
	}
	out.Def = structDef
	for _, f := range p.Fields {
		idx := -1
		if decl != nil {
			idx = decl.FieldIndex(f.Label)
			if idx < 0 {
				l.bag.Add(diag.Error(diag.ResUnresolvedField, p.Span,
					"struct `"+pathText(p.Path)+"` has no field `"+f.Label+"`"))
			}
		}
		var fp Pattern
		if f.Pattern.IsValid() {
			fp = l.lowerPattern(f.Pattern)
		} else {
			// Field shorthand: `{ x }` binds a local named after the label.
			local := l.freshLocal()
			l.bindLocal(f.Label, local)
			fp = Pattern{Kind: PkBinding, Span: p.Span, Local: local, Name: f.Label}
		}
		out.Fields = append(out.Fields, FieldPattern{Index: idx, Pattern: fp})
	}
	return out
}

func (l *lowerer) lowerVariantPattern(p *ast.Pattern) Pattern {
	out := Pattern{Kind: PkVariant, Span: p.Span, VariantIdx: -1, HasRestField: p.HasRestField}

	var enumDef def.DefID
	var enumDecl *EnumDecl
	if len(p.Path) > 0 {
		if d, ok := l.resolvePathDef(p.Path); ok && l.m.Defs.Get(d).Kind == def.KindEnum {
			enumDef = d
			enumDecl = l.m.EnumByDef(d)
		}
	} else if v, ok := l.variants[p.Variant]; ok {
		// Bare constructor form, e.g. `Some(x)`.
		enumDef = v.enum
		enumDecl = l.m.EnumByDef(v.enum)
	}
	if enumDecl == nil {
		l.bag.Add(diag.Error(diag.ResUnresolvedName, p.Span,
			"cannot resolve variant `"+p.Variant+"` to an enum in scope"))
		return out
	}
	out.Def = enumDef
	out.VariantIdx = enumDecl.VariantIndex(p.Variant)
	if out.VariantIdx < 0 {
		l.bag.Add(diag.Error(diag.ResUnresolvedName, p.Span,
			"enum `"+enumDecl.Name+"` has no variant `"+p.Variant+"`"))
		return out
	}

	variant := &enumDecl.Variants[out.VariantIdx]
	for _, sub := range p.Positional {
		out.Positional = append(out.Positional, l.lowerPattern(sub))
	}
	if len(p.Positional) > 0 && len(out.Positional) != len(variant.Payload) {
		l.bag.Add(diag.Error(diag.TypeArityMismatch, p.Span,
			"variant `"+variant.Name+"` pattern has the wrong number of fields"))
	}
	for _, f := range p.Fields {
		idx := -1
		for i, fd := range variant.Fields {
			if fd.Name == f.Label {
				idx = i
				break
			}
		}
		if idx < 0 {
			l.bag.Add(diag.Error(diag.ResUnresolvedField, p.Span,
				"variant `"+variant.Name+"` has no field `"+f.Label+"`"))
		}
		var fp Pattern
		if f.Pattern.IsValid() {
			fp = l.lowerPattern(f.Pattern)
		} else {
			local := l.freshLocal()
			l.bindLocal(f.Label, local)
			fp = Pattern{Kind: PkBinding, Span: p.Span, Local: local, Name: f.Label}
		}
		out.Fields = append(out.Fields, FieldPattern{Index: idx, Pattern: fp})
	}
	return out
}
