package infer

import (
	"strconv"

	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/types"
)

// Unify makes actual and expected equal under the current substitution,
// emitting a diagnostic at sp on conflict and returning false. The error
// type and never unify with anything (§3.6 invariants); Linear(T) narrows
// one-way into Affine(T).
func (c *Checker) Unify(actual, expected types.TypeID, sp source.Span) bool {
	return c.unify(c.subst, actual, expected, sp, true)
}

// trialUnify runs unification against a scratch substitution without
// reporting, used by dispatch scoring (§4.3.4).
func (c *Checker) trialUnify(scratch *Subst, actual, expected types.TypeID) bool {
	return c.unify(scratch, actual, expected, source.Span{}, false)
}

func (c *Checker) unify(s *Subst, a, b types.TypeID, sp source.Span, report bool) bool {
	a = s.Resolve(c.tin, a)
	b = s.Resolve(c.tin, b)
	if a == b {
		return true
	}
	ta := c.tin.Get(a)
	tb := c.tin.Get(b)

	// Error recovery: the error type absorbs any constraint silently.
	if ta.Kind == types.KindError || tb.Kind == types.KindError {
		return true
	}
	// never is the subtype of all types.
	if ta.Kind == types.KindNever || tb.Kind == types.KindNever {
		return true
	}

	if ta.Kind == types.KindVar {
		return c.bindVar(s, ta.Var, b, sp, report)
	}
	if tb.Kind == types.KindVar {
		return c.bindVar(s, tb.Var, a, sp, report)
	}

	// Ownership narrowing: a linear actual satisfies an affine expectation;
	// the reverse does not hold (§3.6).
	if ta.Kind == types.KindLinear && tb.Kind == types.KindAffine {
		return c.unify(s, ta.Elem, tb.Elem, sp, report)
	}
	// A freshly constructed unqualified value may take on an ownership
	// qualifier at its binding or call site; a qualified value never sheds
	// one silently.
	if (tb.Kind == types.KindLinear || tb.Kind == types.KindAffine) &&
		ta.Kind != types.KindLinear && ta.Kind != types.KindAffine {
		return c.unify(s, a, tb.Elem, sp, report)
	}

	// An unsuffixed integer literal (any-width int) adapts to whatever
	// integer type context demands, signed or unsigned.
	if ta.Kind == types.KindInt && ta.Width == types.WidthAny && tb.Kind == types.KindUint {
		return true
	}
	if tb.Kind == types.KindInt && tb.Width == types.WidthAny && ta.Kind == types.KindUint {
		return true
	}

	if ta.Kind != tb.Kind {
		return c.mismatch(a, b, sp, report)
	}

	switch ta.Kind {
	case types.KindUnit, types.KindBool, types.KindStr:
		return true
	case types.KindInt, types.KindUint, types.KindFloat:
		if ta.Width == tb.Width || ta.Width == types.WidthAny || tb.Width == types.WidthAny {
			return true
		}
		return c.mismatch(a, b, sp, report)
	case types.KindTuple:
		if len(ta.Args) != len(tb.Args) {
			return c.arityMismatch(a, b, sp, report)
		}
		ok := true
		for i := range ta.Args {
			ok = c.unify(s, ta.Args[i], tb.Args[i], sp, report) && ok
		}
		return ok
	case types.KindArrayFixed:
		if ta.Count != tb.Count {
			return c.mismatch(a, b, sp, report)
		}
		return c.unify(s, ta.Elem, tb.Elem, sp, report)
	case types.KindSlice:
		return c.unify(s, ta.Elem, tb.Elem, sp, report)
	case types.KindRef, types.KindPtr:
		if ta.Mutable != tb.Mutable {
			return c.mismatch(a, b, sp, report)
		}
		return c.unify(s, ta.Elem, tb.Elem, sp, report)
	case types.KindLinear, types.KindAffine:
		return c.unify(s, ta.Elem, tb.Elem, sp, report)
	case types.KindNamed:
		if ta.Def != tb.Def {
			return c.mismatch(a, b, sp, report)
		}
		if len(ta.Args) != len(tb.Args) {
			return c.arityMismatch(a, b, sp, report)
		}
		ok := true
		for i := range ta.Args {
			ok = c.unify(s, ta.Args[i], tb.Args[i], sp, report) && ok
		}
		return ok
	case types.KindFn:
		if len(ta.Params) != len(tb.Params) {
			return c.arityMismatch(a, b, sp, report)
		}
		ok := true
		for i := range ta.Params {
			ok = c.unify(s, ta.Params[i], tb.Params[i], sp, report) && ok
		}
		ok = c.unify(s, ta.Ret, tb.Ret, sp, report) && ok
		return c.unifyRows(s, ta.Effect, tb.Effect, sp, report) && ok
	case types.KindRecord:
		return c.unifyRecords(s, ta, tb, sp, report)
	case types.KindForall:
		// Polytypes are instantiated before they reach unification; two
		// Foralls meeting here is an internal invariant violation.
		return c.mismatch(a, b, sp, report)
	default:
		return c.mismatch(a, b, sp, report)
	}
}

func (c *Checker) bindVar(s *Subst, v types.TypeVarID, t types.TypeID, sp source.Span, report bool) bool {
	t = s.Resolve(c.tin, t)
	tt := c.tin.Get(t)
	if tt.Kind == types.KindVar && tt.Var == v {
		return true
	}
	if s.occurs(c.tin, v, t) {
		if report {
			c.bag.Add(diag.Error(diag.TypeInfiniteType, sp,
				"cannot construct the infinite type `'"+itoa(int(v))+" = "+types.Label(c.tin, t)+"`"))
		}
		return false
	}
	s.bindType(v, t)
	return true
}

// unifyRecords implements row-polymorphic record unification (§4.3.2):
// unify types at common labels, bind each side's row variable to the other
// side's disjoint remainder plus a fresh shared tail, and reject a closed
// side left with uncovered labels.
func (c *Checker) unifyRecords(s *Subst, ta, tb types.Type, sp source.Span, report bool) bool {
	aFields, aTail := s.ResolveRecord(c.tin, ta)
	bFields, bTail := s.ResolveRecord(c.tin, tb)

	byLabel := make(map[string]types.TypeID, len(aFields))
	for _, f := range aFields {
		byLabel[f.Label] = f.Type
	}

	ok := true
	var onlyB []types.RecordField
	for _, f := range bFields {
		if at, shared := byLabel[f.Label]; shared {
			ok = c.unify(s, at, f.Type, sp, report) && ok
			delete(byLabel, f.Label)
		} else {
			onlyB = append(onlyB, f)
		}
	}
	var onlyA []types.RecordField
	for _, f := range aFields {
		if _, still := byLabel[f.Label]; still {
			onlyA = append(onlyA, f)
		}
	}

	switch {
	case len(onlyA) == 0 && len(onlyB) == 0:
		// Same label sets; tie the tails together if both are open.
		if aTail != types.NoTypeVarID && bTail != types.NoTypeVarID && aTail != bTail {
			s.records[aTail] = recordRest{tail: bTail}
		}
		return ok
	case len(onlyB) > 0 && aTail == types.NoTypeVarID,
		len(onlyA) > 0 && bTail == types.NoTypeVarID:
		if report {
			c.bag.Add(diag.Error(diag.TypeRowConflict, sp,
				"record types do not agree: closed row is missing fields the other side requires"))
		}
		return false
	default:
		fresh := types.NoTypeVarID
		if aTail != types.NoTypeVarID && bTail != types.NoTypeVarID {
			fresh = c.supply.Fresh()
		}
		if aTail != types.NoTypeVarID {
			s.records[aTail] = recordRest{fields: onlyB, tail: fresh}
		}
		if bTail != types.NoTypeVarID {
			s.records[bTail] = recordRest{fields: onlyA, tail: fresh}
		}
		return ok
	}
}

// unifyRows implements effect-row unification (§4.3.2): effects present on
// both sides cancel; a leftover on one side flows into the other side's
// tail; a closed side with leftovers on the other is a conflict.
func (c *Checker) unifyRows(s *Subst, ra, rb types.EffectRow, sp source.Span, report bool) bool {
	ra = s.ResolveRow(ra)
	rb = s.ResolveRow(rb)

	onlyA := rowDifference(ra, rb)
	onlyB := rowDifference(rb, ra)
	aTail, aOpen := ra.TailVar()
	bTail, bOpen := rb.TailVar()

	switch {
	case len(onlyA) == 0 && len(onlyB) == 0:
		if aOpen && bOpen && aTail != bTail {
			s.rows[aTail] = types.EffectRow{Tail: []types.TypeVarID{bTail}}
		}
		return true
	case len(onlyB) > 0 && !aOpen, len(onlyA) > 0 && !bOpen:
		if report {
			c.bag.Add(diag.Error(diag.EffectMismatch, sp,
				"effect rows do not agree: "+c.rowText(ra)+" vs "+c.rowText(rb)))
		}
		return false
	default:
		var fresh []types.TypeVarID
		if aOpen && bOpen {
			fresh = []types.TypeVarID{c.supply.Fresh()}
		}
		if aOpen {
			s.rows[aTail] = types.EffectRow{Effects: onlyB, Tail: fresh}
		}
		if bOpen {
			s.rows[bTail] = types.EffectRow{Effects: onlyA, Tail: fresh}
		}
		return true
	}
}

func rowDifference(a, b types.EffectRow) []def.DefID {
	var out []def.DefID
	for _, e := range a.Effects {
		if !b.Contains(e) {
			out = append(out, e)
		}
	}
	return out
}

func (c *Checker) rowText(r types.EffectRow) string {
	out := "{"
	for i, e := range r.Effects {
		if i > 0 {
			out += ", "
		}
		out += c.m.Defs.Get(e).Name
	}
	if _, open := r.TailVar(); open {
		if len(r.Effects) > 0 {
			out += " | "
		}
		out += ".."
	}
	return out + "}"
}

func itoa(n int) string { return strconv.Itoa(n) }
