// Package infer implements Blood's bidirectional type-and-effect checker
// (§4.3): Algorithm-W style unification over a union-find substitution,
// row polymorphism for records and effect rows, multiple dispatch over
// argument types, trait-obligation solving, pattern exhaustiveness with
// witness construction, closure capture classification, and linear/affine
// usage checking.
//
// A Checker is threaded through per-function walks, diagnostics accumulate
// into a diag.Bag, and unresolvable constraints substitute the error type
// so checking always runs to completion (§7).
package infer

import (
	"blood/internal/types"
)

// recordRest is the remainder a record row variable was solved to: extra
// fields plus an optional new tail.
type recordRest struct {
	fields []types.RecordField
	tail   types.TypeVarID
}

// Subst is the union-find-backed substitution map (§4.3.1). Three binder
// spaces share the TypeVarID supply: ordinary type variables, effect-row
// tails, and record-row tails; a given variable only ever appears in one
// space.
type Subst struct {
	types   map[types.TypeVarID]types.TypeID
	rows    map[types.TypeVarID]types.EffectRow
	records map[types.TypeVarID]recordRest
}

// NewSubst creates an empty substitution.
func NewSubst() *Subst {
	return &Subst{
		types:   make(map[types.TypeVarID]types.TypeID, 64),
		rows:    make(map[types.TypeVarID]types.EffectRow, 16),
		records: make(map[types.TypeVarID]recordRest, 8),
	}
}

// Clone copies the substitution for trial unification (dispatch scoring
// runs candidate unifications against a scratch copy and discards it).
func (s *Subst) Clone() *Subst {
	out := NewSubst()
	for k, v := range s.types {
		out.types[k] = v
	}
	for k, v := range s.rows {
		out.rows[k] = v
	}
	for k, v := range s.records {
		out.records[k] = v
	}
	return out
}

func (s *Subst) bindType(v types.TypeVarID, t types.TypeID) { s.types[v] = t }

// Resolve walks binder chains with path compression (§4.3.2) until it
// reaches a non-variable type or an unbound variable.
func (s *Subst) Resolve(tin *types.Interner, id types.TypeID) types.TypeID {
	if id == types.NoTypeID {
		return id
	}
	t := tin.Get(id)
	if t.Kind != types.KindVar {
		return id
	}
	bound, ok := s.types[t.Var]
	if !ok {
		return id
	}
	rep := s.Resolve(tin, bound)
	if rep != bound {
		s.types[t.Var] = rep
	}
	return rep
}

// ResolveDeep resolves id and, when the representative is a constructor,
// rebuilds it with deeply resolved children. Used when a final type is
// written into a type slot or compared structurally.
func (s *Subst) ResolveDeep(tin *types.Interner, id types.TypeID) types.TypeID {
	id = s.Resolve(tin, id)
	if id == types.NoTypeID {
		return id
	}
	t := tin.Get(id)
	switch t.Kind {
	case types.KindTuple, types.KindNamed:
		if len(t.Args) == 0 {
			return id
		}
		args := make([]types.TypeID, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = s.ResolveDeep(tin, a)
			changed = changed || args[i] != a
		}
		if !changed {
			return id
		}
		nt := t
		nt.Args = args
		return tin.New(nt)
	case types.KindArrayFixed, types.KindSlice, types.KindRef, types.KindPtr, types.KindLinear, types.KindAffine:
		elem := s.ResolveDeep(tin, t.Elem)
		if elem == t.Elem {
			return id
		}
		nt := t
		nt.Elem = elem
		return tin.New(nt)
	case types.KindRecord:
		fields, tail := s.ResolveRecord(tin, t)
		nt := t
		nt.Fields = fields
		nt.RowVar = tail
		for i := range nt.Fields {
			nt.Fields[i].Type = s.ResolveDeep(tin, nt.Fields[i].Type)
		}
		return tin.New(nt)
	case types.KindFn:
		nt := t
		nt.Params = make([]types.TypeID, len(t.Params))
		for i, p := range t.Params {
			nt.Params[i] = s.ResolveDeep(tin, p)
		}
		nt.Ret = s.ResolveDeep(tin, t.Ret)
		nt.Effect = s.ResolveRow(t.Effect)
		return tin.New(nt)
	default:
		return id
	}
}

// ResolveRow flattens an effect row through its solved tails: the explicit
// set plus everything any bound tail contributed, ending in the first
// unbound tail (if any).
func (s *Subst) ResolveRow(row types.EffectRow) types.EffectRow {
	out := types.EffectRow{}
	seen := make(map[uint32]bool, len(row.Effects))
	var walk func(r types.EffectRow)
	walk = func(r types.EffectRow) {
		for _, e := range r.Effects {
			if !seen[uint32(e)] {
				seen[uint32(e)] = true
				out.Effects = append(out.Effects, e)
			}
		}
		if tv, ok := r.TailVar(); ok {
			if bound, has := s.rows[tv]; has {
				walk(bound)
			} else if len(out.Tail) == 0 {
				out.Tail = []types.TypeVarID{tv}
			}
		}
	}
	walk(row)
	return out
}

// ResolveRecord flattens a record's field list through solved row tails.
func (s *Subst) ResolveRecord(tin *types.Interner, t types.Type) ([]types.RecordField, types.TypeVarID) {
	fields := append([]types.RecordField(nil), t.Fields...)
	tail := t.RowVar
	for tail != types.NoTypeVarID {
		rest, ok := s.records[tail]
		if !ok {
			break
		}
		fields = append(fields, rest.fields...)
		tail = rest.tail
	}
	return fields, tail
}

// occurs reports whether v appears in t (after resolution), the check that
// rejects infinite types (§4.3.2).
func (s *Subst) occurs(tin *types.Interner, v types.TypeVarID, id types.TypeID) bool {
	id = s.Resolve(tin, id)
	if id == types.NoTypeID {
		return false
	}
	t := tin.Get(id)
	switch t.Kind {
	case types.KindVar:
		return t.Var == v
	case types.KindTuple, types.KindNamed:
		for _, a := range t.Args {
			if s.occurs(tin, v, a) {
				return true
			}
		}
		return false
	case types.KindArrayFixed, types.KindSlice, types.KindRef, types.KindPtr, types.KindLinear, types.KindAffine:
		return s.occurs(tin, v, t.Elem)
	case types.KindRecord:
		for _, f := range t.Fields {
			if s.occurs(tin, v, f.Type) {
				return true
			}
		}
		return t.RowVar == v
	case types.KindFn:
		for _, p := range t.Params {
			if s.occurs(tin, v, p) {
				return true
			}
		}
		return s.occurs(tin, v, t.Ret)
	case types.KindForall:
		return s.occurs(tin, v, t.Body)
	default:
		return false
	}
}
