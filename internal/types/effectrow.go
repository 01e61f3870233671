package types

import "blood/internal/def"

// EffectRow is the semantic counterpart of ast.EffectRowExpr (§3.7):
// a set of effect definitions plus an optional open tail variable. A row
// with a nil Tail is closed — no operation outside Effects may be
// performed by an expression of that row.
type EffectRow struct {
	Effects []def.DefID
	Tail    []TypeVarID // len 0 = closed; len 1 = the row's tail variable
}

// ClosedRow returns the empty, closed effect row (`/ {}`), the row of a
// pure expression.
func ClosedRow() EffectRow {
	return EffectRow{}
}

// IsClosed reports whether r has no open tail.
func (r EffectRow) IsClosed() bool { return len(r.Tail) == 0 }

// TailVar returns r's tail variable and true if r is open.
func (r EffectRow) TailVar() (TypeVarID, bool) {
	if len(r.Tail) == 0 {
		return NoTypeVarID, false
	}
	return r.Tail[0], true
}

// Contains reports whether d appears in r's explicit effect set (not
// counting anything that might be hiding behind an open tail).
func (r EffectRow) Contains(d def.DefID) bool {
	for _, e := range r.Effects {
		if e == d {
			return true
		}
	}
	return false
}

// Union returns the row containing every effect of a and b. The result is
// open iff either input is open; when both are open with distinct tail
// variables, the caller (unification) is responsible for unifying the
// tails — Union itself just keeps a's tail, matching how unification
// always resolves one row variable's tail to equal the other's.
func Union(a, b EffectRow) EffectRow {
	seen := make(map[def.DefID]bool, len(a.Effects)+len(b.Effects))
	out := EffectRow{}
	for _, e := range a.Effects {
		if !seen[e] {
			seen[e] = true
			out.Effects = append(out.Effects, e)
		}
	}
	for _, e := range b.Effects {
		if !seen[e] {
			seen[e] = true
			out.Effects = append(out.Effects, e)
		}
	}
	switch {
	case len(a.Tail) > 0:
		out.Tail = a.Tail
	case len(b.Tail) > 0:
		out.Tail = b.Tail
	}
	return out
}

// Without returns r with d removed from its explicit effect set, used when
// lowering a `handle` expression: the handled effect is removed from the
// row observed outside the handler.
func Without(r EffectRow, d def.DefID) EffectRow {
	out := EffectRow{Tail: r.Tail}
	for _, e := range r.Effects {
		if e != d {
			out.Effects = append(out.Effects, e)
		}
	}
	return out
}
