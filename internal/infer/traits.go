package infer

import (
	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/hir"
	"blood/internal/source"
	"blood/internal/types"
)

// traitSolver discharges `T : Trait` obligations (§4.3.5) by searching the
// module's impl heads, recursively solving super-trait and where-clause
// obligations, and caching solved goals by their canonicalized key.
type traitSolver struct {
	c     *Checker
	cache map[string]bool
	depth int
}

const maxObligationDepth = 32

func newTraitSolver(c *Checker) *traitSolver {
	return &traitSolver{c: c, cache: make(map[string]bool, 32)}
}

// require records and immediately solves one obligation, diagnosing at sp
// when it cannot be discharged.
func (ts *traitSolver) require(ty types.TypeID, trait def.DefID, sp source.Span) {
	if trait == def.NoDefID {
		return
	}
	ty = ts.c.subst.Resolve(ts.c.tin, ty)
	t := ts.c.tin.Get(ty)
	// Unsolved type variables and the error type defer judgement; a fully
	// generic value satisfies any bound its caller will have to prove.
	if t.Kind == types.KindVar || t.Kind == types.KindError {
		return
	}
	if !ts.solve(ty, trait) {
		traitName := ts.c.m.Defs.Get(trait).Name
		ts.c.bag.Add(diag.Error(diag.TraitObligationUnsolved, sp,
			"the trait bound `"+types.Label(ts.c.tin, ty)+": "+traitName+"` is not satisfied"))
	}
}

func (ts *traitSolver) solve(ty types.TypeID, trait def.DefID) bool {
	key := ts.goalKey(ty, trait)
	if hit, ok := ts.cache[key]; ok {
		return hit
	}
	if ts.depth >= maxObligationDepth {
		return false
	}
	ts.depth++
	// Coinductive default: a goal encountered while proving itself holds,
	// which lets `impl Show for List<T> where T: Show` style recursion
	// terminate.
	ts.cache[key] = true
	ok := ts.solveUncached(ty, trait)
	ts.cache[key] = ok
	ts.depth--
	return ok
}

func (ts *traitSolver) solveUncached(ty types.TypeID, trait def.DefID) bool {
	// Built-in structural dispensations: ranges iterate.
	if ts.builtinImpl(ty, trait) {
		return true
	}
	for i := range ts.c.m.Impls {
		impl := &ts.c.m.Impls[i]
		if impl.Trait != trait {
			continue
		}
		scratch := ts.c.subst.Clone()
		if !ts.c.trialUnify(scratch, ty, impl.SelfTy) {
			continue
		}
		if !ts.whereClausesHold(impl, scratch) {
			continue
		}
		// Matching head found; super-traits of the solved trait must hold
		// for the same self type.
		if td := ts.c.m.TraitByDef(trait); td != nil {
			ok := true
			for _, sup := range td.Supers {
				ok = ok && ts.solve(ty, sup)
			}
			if !ok {
				continue
			}
		}
		return true
	}
	return false
}

func (ts *traitSolver) whereClausesHold(impl *hir.ImplDecl, scratch *Subst) bool {
	for _, w := range impl.Wheres {
		bound := scratch.Resolve(ts.c.tin, w.Type)
		if ts.c.tin.Get(bound).Kind == types.KindVar {
			// The head match left this parameter unconstrained; treat as
			// satisfiable and let the use site constrain it further.
			continue
		}
		if !ts.solve(bound, w.Trait) {
			return false
		}
	}
	return true
}

func (ts *traitSolver) builtinImpl(ty types.TypeID, trait def.DefID) bool {
	if trait != ts.c.m.Prelude.Iterator {
		return false
	}
	t := ts.c.tin.Get(ty)
	switch t.Kind {
	case types.KindNamed:
		return t.Def == ts.c.m.Prelude.Range || t.Def == ts.c.m.Prelude.RangeInclusive
	case types.KindSlice, types.KindArrayFixed:
		return true
	default:
		return false
	}
}

// goalKey canonicalizes a goal for the obligation cache: the trait plus
// the deeply resolved self type's label, which is stable for equal types
// by interning.
func (ts *traitSolver) goalKey(ty types.TypeID, trait def.DefID) string {
	resolved := ts.c.subst.ResolveDeep(ts.c.tin, ty)
	return itoa(int(trait)) + "|" + types.Label(ts.c.tin, resolved)
}
