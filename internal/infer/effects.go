package infer

import (
	"blood/internal/def"
	"blood/internal/hir"
	"blood/internal/types"
)

// effectSummary computes the syntactic effect row of a function that
// declared no row: the union of its performs and its callees' summaries,
// minus whatever its handle scopes discharge. Summaries are memoized and
// cycles resolve to the part of the row already discovered, which is the
// standard least-fixed-point reading of a recursive effect equation.
//
// Type-driven effect accumulation (§4.3.3) still runs during checking;
// this pre-pass only exists so a call to a not-yet-checked function sees
// its transitive effects regardless of declaration order (§5 guarantees
// source-order checking, so forward calls would otherwise lose rows).
func (c *Checker) effectSummary(id def.DefID) types.EffectRow {
	if c.summaries == nil {
		c.summaries = make(map[def.DefID]types.EffectRow, 16)
		c.summarizing = make(map[def.DefID]bool, 8)
	}
	if row, done := c.summaries[id]; done {
		return row
	}
	if c.summarizing[id] {
		return types.EffectRow{}
	}
	fn := c.m.FuncByDef(id)
	if fn == nil {
		return types.EffectRow{}
	}
	if fn.EffectDeclared {
		c.summaries[id] = fn.Effect
		return fn.Effect
	}
	c.summarizing[id] = true
	acc := &rowScope{}
	c.summarizeExpr(fn.Body, acc)
	delete(c.summarizing, id)
	row := types.EffectRow{Effects: acc.effects}
	c.summaries[id] = row
	return row
}

func (c *Checker) summarizeExpr(id hir.ExprID, acc *rowScope) {
	if !id.IsValid() {
		return
	}
	e := c.m.Exprs.Get(id)
	switch e.Kind {
	case hir.EkPerform:
		acc.add(e.Effect)
	case hir.EkHandle:
		var handled def.DefID
		if h := c.m.HandlerByDef(e.Handler); h != nil {
			handled = h.Effect
		}
		inner := &rowScope{}
		c.summarizeExpr(e.HandleBody, inner)
		for _, eff := range inner.effects {
			if eff != handled {
				acc.add(eff)
			}
		}
		for _, a := range e.HandlerArgs {
			c.summarizeExpr(a, acc)
		}
		return
	case hir.EkCall:
		// A direct overload-set call contributes every candidate's summary;
		// after dispatch resolution only the winner matters, but the
		// pre-pass runs before types narrow the set, and a superset row is
		// the sound direction.
		for _, cand := range e.Dispatch {
			acc.addRow(c.effectSummary(cand))
		}
	}

	c.summarizeExpr(e.LHS, acc)
	c.summarizeExpr(e.RHS, acc)
	c.summarizeExpr(e.Callee, acc)
	for _, a := range e.Args {
		c.summarizeExpr(a, acc)
	}
	c.summarizeExpr(e.Base, acc)
	c.summarizeExpr(e.Index, acc)
	c.summarizeExpr(e.Cond, acc)
	c.summarizeExpr(e.Then, acc)
	c.summarizeExpr(e.Else, acc)
	c.summarizeExpr(e.Scrutinee, acc)
	for i := range e.Arms {
		c.summarizeExpr(e.Arms[i].Guard, acc)
		c.summarizeExpr(e.Arms[i].Body, acc)
	}
	for _, s := range e.Stmts {
		st := c.m.Stmts.Get(s)
		c.summarizeExpr(st.Init, acc)
		c.summarizeExpr(st.Expr, acc)
	}
	c.summarizeExpr(e.Tail, acc)
	c.summarizeExpr(e.Body, acc)
	for _, el := range e.Elems {
		c.summarizeExpr(el, acc)
	}
	for _, f := range e.Fields {
		c.summarizeExpr(f.Value, acc)
	}
	c.summarizeExpr(e.Target, acc)
	c.summarizeExpr(e.Value, acc)
	c.summarizeExpr(e.ForIter, acc)
	c.summarizeExpr(e.ForBody, acc)
	c.summarizeExpr(e.LoopBody, acc)
	for _, a := range e.PerformArgs {
		c.summarizeExpr(a, acc)
	}
	c.summarizeExpr(e.ResumeValue, acc)
	c.summarizeExpr(e.UncheckedBody, acc)
}
