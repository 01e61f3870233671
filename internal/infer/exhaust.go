package infer

import (
	"strings"

	"blood/internal/diag"
	"blood/internal/hir"
	"blood/internal/types"
)

// checkExhaustive verifies a match covers its scrutinee's shape (§4.3.6).
// Guarded arms contribute nothing (§4.2: a guard may fail at runtime);
// if a residual space survives all arms, the diagnostic carries a concrete
// witness pattern for it.
func (c *Checker) checkExhaustive(e *hir.Expr, scrutTy types.TypeID) {
	pats := make([]*hir.Pattern, 0, len(e.Arms))
	for i := range e.Arms {
		if e.Arms[i].Guard.IsValid() {
			continue
		}
		pats = append(pats, &e.Arms[i].Pattern)
	}
	if witness, missing := c.missingWitness(scrutTy, pats); missing {
		c.bag.Add(diag.Error(diag.MatchNonExhaustive, e.Span,
			"non-exhaustive match: pattern `"+witness+"` not covered"))
	}
}

// flattenAlts expands or-patterns into their alternatives.
func flattenAlts(pats []*hir.Pattern) []*hir.Pattern {
	out := make([]*hir.Pattern, 0, len(pats))
	for _, p := range pats {
		if p.Kind == hir.PkOr {
			for i := range p.Elems {
				out = append(out, &p.Elems[i])
			}
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesAny(pats []*hir.Pattern) bool {
	for _, p := range pats {
		switch p.Kind {
		case hir.PkWildcard:
			return true
		case hir.PkBinding:
			if p.SubPat == nil {
				return true
			}
		}
	}
	return false
}

// missingWitness walks the algebraic shape of ty against the unguarded
// patterns, narrowing by constructor, and reconstructs a concrete missing
// pattern on the way out.
func (c *Checker) missingWitness(ty types.TypeID, pats []*hir.Pattern) (string, bool) {
	pats = flattenAlts(pats)
	if matchesAny(pats) {
		return "", false
	}
	ty = c.subst.Resolve(c.tin, ty)
	t := c.tin.Get(ty)

	switch t.Kind {
	case types.KindBool:
		haveTrue, haveFalse := false, false
		for _, p := range pats {
			if p.Kind == hir.PkBoolLit {
				if p.BoolVal {
					haveTrue = true
				} else {
					haveFalse = true
				}
			}
		}
		switch {
		case !haveTrue:
			return "true", true
		case !haveFalse:
			return "false", true
		default:
			return "", false
		}

	case types.KindNamed:
		if ed := c.m.EnumByDef(t.Def); ed != nil {
			return c.missingEnumWitness(ed, t, pats)
		}
		if sd := c.m.StructByDef(t.Def); sd != nil {
			return c.missingStructWitness(sd, pats)
		}
		return "", false

	case types.KindTuple:
		return c.missingTupleWitness(t.Args, pats)

	case types.KindUnit, types.KindNever, types.KindError, types.KindVar:
		// Unit is matched by anything shaped like it; never/error/unsolved
		// types have no enumerable shape worth diagnosing.
		return "", false

	default:
		// Infinite domains (integers, strings, floats) need a wildcard.
		return "_", true
	}
}

func (c *Checker) missingEnumWitness(ed *hir.EnumDecl, t types.Type, pats []*hir.Pattern) (string, bool) {
	env := c.namedEnv(ed.TypeParams, t.Args)
	for vi := range ed.Variants {
		variant := &ed.Variants[vi]
		var covering []*hir.Pattern
		for _, p := range pats {
			if p.Kind == hir.PkVariant && p.VariantIdx == vi {
				covering = append(covering, p)
			}
		}
		if len(covering) == 0 {
			return witnessForVariant(variant), true
		}
		// Narrow each payload column by the sub-patterns of the covering
		// arms.
		for col := range variant.Payload {
			colTy := c.substituteVars(variant.Payload[col], env)
			subs := make([]*hir.Pattern, 0, len(covering))
			for _, p := range covering {
				if col < len(p.Positional) {
					subs = append(subs, &p.Positional[col])
				} else {
					return "", false // arity error already reported
				}
			}
			if w, missing := c.missingWitness(colTy, subs); missing {
				parts := make([]string, len(variant.Payload))
				for i := range parts {
					parts[i] = "_"
				}
				parts[col] = w
				return variant.Name + "(" + strings.Join(parts, ", ") + ")", true
			}
		}
	}
	return "", false
}

func (c *Checker) missingStructWitness(sd *hir.StructDecl, pats []*hir.Pattern) (string, bool) {
	for fi := range sd.Fields {
		subs := make([]*hir.Pattern, 0, len(pats))
		sawField := false
		for _, p := range pats {
			if p.Kind != hir.PkStruct {
				continue
			}
			covered := false
			for i := range p.Fields {
				if p.Fields[i].Index == fi {
					subs = append(subs, &p.Fields[i].Pattern)
					covered = true
					sawField = true
					break
				}
			}
			if !covered {
				// An omitted field (rest-pattern shorthand) matches anything.
				subs = append(subs, &hir.Pattern{Kind: hir.PkWildcard})
			}
		}
		if !sawField {
			continue
		}
		if w, missing := c.missingWitness(sd.Fields[fi].Type, subs); missing {
			return sd.Name + " { " + sd.Fields[fi].Name + ": " + w + ", .. }", true
		}
	}
	return "", false
}

func (c *Checker) missingTupleWitness(elems []types.TypeID, pats []*hir.Pattern) (string, bool) {
	for col, colTy := range elems {
		subs := make([]*hir.Pattern, 0, len(pats))
		for _, p := range pats {
			if p.Kind == hir.PkTuple && col < len(p.Elems) {
				subs = append(subs, &p.Elems[col])
			}
		}
		if len(subs) == 0 {
			return "_", true
		}
		if w, missing := c.missingWitness(colTy, subs); missing {
			parts := make([]string, len(elems))
			for i := range parts {
				parts[i] = "_"
			}
			parts[col] = w
			return "(" + strings.Join(parts, ", ") + ")", true
		}
	}
	return "", false
}

func witnessForVariant(v *hir.VariantDecl) string {
	switch {
	case len(v.Payload) > 0:
		parts := make([]string, len(v.Payload))
		for i := range parts {
			parts[i] = "_"
		}
		return v.Name + "(" + strings.Join(parts, ", ") + ")"
	case len(v.Fields) > 0:
		return v.Name + " { .. }"
	default:
		return v.Name
	}
}
