package infer

import (
	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/hir"
	"blood/internal/types"
)

// resolveDispatch narrows a call's candidate set to one definition
// (§4.3.4): synthesize the argument types, trial-unify each candidate's
// instantiated parameter list against them, score by how many parameter
// positions unified concretely, and keep the unique most-specific winner.
// The winner's DefID is recorded on the call node so MIR lowering emits a
// direct call; the return type comes from the winner's signature alone
// (type stability — never from runtime values).
func (c *Checker) resolveDispatch(e *hir.Expr) types.TypeID {
	argTys := make([]types.TypeID, len(e.Args))
	for i, a := range e.Args {
		argTys[i] = c.synth(a)
	}

	type candidate struct {
		id     def.DefID
		fn     *hir.Func
		params []types.TypeID
		ret    types.TypeID
		row    types.EffectRow
		score  int
	}
	var viable []candidate

	for _, cid := range e.Dispatch {
		fn := c.m.FuncByDef(cid)
		if fn == nil || len(fn.Params) != len(argTys) {
			continue
		}
		params, ret, row := c.instantiateSignature(fn)
		scratch := c.subst.Clone()
		ok := true
		score := 0
		for i := range argTys {
			if !c.trialUnify(scratch, argTys[i], params[i]) {
				ok = false
				break
			}
			if c.isConcrete(scratch, params[i]) {
				score++
			}
		}
		if ok {
			viable = append(viable, candidate{id: cid, fn: fn, params: params, ret: ret, row: row, score: score})
		}
	}

	name := "<fn>"
	if len(e.Dispatch) > 0 {
		name = c.m.Defs.Get(e.Dispatch[0]).Name
	}

	switch len(viable) {
	case 0:
		c.bag.Add(diag.Error(diag.DispatchNoMatch, e.Span,
			"no overload of `"+name+"` matches these argument types").
			WithLabel(e.Span, c.argListText(argTys)))
		return c.errType()
	case 1:
		return c.commitDispatch(e, viable[0].id, viable[0].params, viable[0].ret, viable[0].row, argTys)
	}

	// Most-specific selection: a unique candidate whose parameter list is
	// at least as specific as every rival's and strictly more specific
	// than at least one position of each.
	best := -1
	for i := range viable {
		dominant := true
		for j := range viable {
			if i == j {
				continue
			}
			if !c.moreSpecificParams(viable[i].params, viable[j].params) {
				dominant = false
				break
			}
		}
		if dominant {
			best = i
			break
		}
	}
	if best < 0 {
		// Same score everywhere: fall back to the highest concrete score if
		// unique, otherwise report the ambiguity.
		top, topAt, unique := -1, -1, false
		for i, v := range viable {
			switch {
			case v.score > top:
				top, topAt, unique = v.score, i, true
			case v.score == top:
				unique = false
			}
		}
		if !unique {
			d := diag.Error(diag.DispatchAmbiguous, e.Span,
				"ambiguous call: multiple overloads of `"+name+"` match equally well")
			for _, v := range viable {
				d.WithLabel(v.fn.Span, "candidate defined here")
			}
			c.bag.Add(d)
			return c.errType()
		}
		best = topAt
	}
	v := viable[best]
	return c.commitDispatch(e, v.id, v.params, v.ret, v.row, argTys)
}

func (c *Checker) commitDispatch(e *hir.Expr, id def.DefID, params []types.TypeID, ret types.TypeID, row types.EffectRow, argTys []types.TypeID) types.TypeID {
	e.Def = id
	for i := range argTys {
		if i < len(params) {
			c.Unify(argTys[i], params[i], c.m.Exprs.Get(e.Args[i]).Span)
		}
	}
	fn := c.m.FuncByDef(id)
	if fn != nil && fn.EffectDeclared {
		c.ambient.addRow(c.subst.ResolveRow(row))
	} else if fn != nil {
		// Undeclared rows come from the syntactic pre-pass summary.
		c.ambient.addRow(c.effectSummary(id))
	}
	return ret
}

// isConcrete reports whether a parameter type resolved to something other
// than a bare variable under the trial substitution; concrete positions
// are what the match score counts.
func (c *Checker) isConcrete(s *Subst, t types.TypeID) bool {
	t = s.Resolve(c.tin, t)
	return c.tin.Get(t).Kind != types.KindVar
}

// moreSpecificParams reports whether every position of a is at least as
// specific as b's and at least one is strictly more specific (the pairwise
// specificity order of §4.3.4 step 3).
func (c *Checker) moreSpecificParams(a, b []types.TypeID) bool {
	if len(a) != len(b) {
		return false
	}
	strict := false
	for i := range a {
		cmp := c.compareSpecificity(a[i], b[i])
		if cmp < 0 {
			return false
		}
		if cmp > 0 {
			strict = true
		}
	}
	return strict
}

// compareSpecificity orders two parameter types: +1 when a is strictly
// more specific than b, -1 for the reverse, 0 for incomparable/equal.
// Concrete beats variable; never beats every other concrete type; equal
// constructors recurse on their arguments.
func (c *Checker) compareSpecificity(a, b types.TypeID) int {
	a = c.subst.Resolve(c.tin, a)
	b = c.subst.Resolve(c.tin, b)
	ta := c.tin.Get(a)
	tb := c.tin.Get(b)

	aVar := ta.Kind == types.KindVar
	bVar := tb.Kind == types.KindVar
	switch {
	case aVar && bVar:
		return 0
	case aVar:
		return -1
	case bVar:
		return 1
	}
	if ta.Kind == types.KindNever && tb.Kind != types.KindNever {
		return 1
	}
	if tb.Kind == types.KindNever && ta.Kind != types.KindNever {
		return -1
	}
	if ta.Kind != tb.Kind {
		return 0
	}
	switch ta.Kind {
	case types.KindNamed:
		if ta.Def != tb.Def || len(ta.Args) != len(tb.Args) {
			return 0
		}
		return c.compareSpecificityList(ta.Args, tb.Args)
	case types.KindTuple:
		if len(ta.Args) != len(tb.Args) {
			return 0
		}
		return c.compareSpecificityList(ta.Args, tb.Args)
	case types.KindRef, types.KindPtr, types.KindSlice, types.KindArrayFixed, types.KindLinear, types.KindAffine:
		return c.compareSpecificity(ta.Elem, tb.Elem)
	default:
		return 0
	}
}

func (c *Checker) compareSpecificityList(a, b []types.TypeID) int {
	sign := 0
	for i := range a {
		cmp := c.compareSpecificity(a[i], b[i])
		switch {
		case cmp == 0:
			continue
		case sign == 0:
			sign = cmp
		case sign != cmp:
			return 0
		}
	}
	return sign
}

func (c *Checker) argListText(argTys []types.TypeID) string {
	out := "arguments: ("
	for i, t := range argTys {
		if i > 0 {
			out += ", "
		}
		out += types.Label(c.tin, c.subst.ResolveDeep(c.tin, t))
	}
	return out + ")"
}
