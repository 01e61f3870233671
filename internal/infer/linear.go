package infer

import (
	"blood/internal/diag"
	"blood/internal/hir"
	"blood/internal/source"
	"blood/internal/types"
)

// discipline is the usage class a local's type (or let qualifier) imposes
// (§4.3.8).
type discipline uint8

const (
	dUnrestricted discipline = iota
	dLinear
	dAffine
)

// localUse is the per-local usage record. Usage ∈ {Unrestricted, Linear,
// Affine, Used} from the spec maps to (discipline, used) here; a consumed
// linear/affine local has used=true.
type localUse struct {
	declared hir.Linearity
	span     source.Span
	depth    int // loop depth at declaration
	used     bool
	usedAt   source.Span
}

type usageMap map[hir.LocalID]localUse

// usageCtx tracks consumption of linear and affine locals through one
// function body (§4.3.8). Branches fork the map and must rejoin with
// equivalent residues; scope exits flag unconsumed linears.
type usageCtx struct {
	c      *Checker
	states usageMap
}

func newUsageCtx(c *Checker) *usageCtx {
	return &usageCtx{c: c, states: make(usageMap, 16)}
}

func (u *usageCtx) declareParam(p hir.Param) {
	u.declare(p.Local, p.Linear, p.Span)
}

func (u *usageCtx) declare(local hir.LocalID, lin hir.Linearity, sp source.Span) {
	if local == hir.NoLocalID {
		return
	}
	u.states[local] = localUse{declared: lin, span: sp, depth: u.c.inLoop}
}

// disciplineOf derives the usage class lazily: an explicit `linear`/
// `affine` let qualifier wins, otherwise the local's resolved type decides.
func (u *usageCtx) disciplineOf(local hir.LocalID, rec localUse) discipline {
	switch rec.declared {
	case hir.LetLinear:
		return dLinear
	case hir.LetAffine:
		return dAffine
	}
	ty, ok := u.c.locals[local]
	if !ok {
		return dUnrestricted
	}
	ty = u.c.subst.Resolve(u.c.tin, ty)
	switch u.c.tin.Get(ty).Kind {
	case types.KindLinear:
		return dLinear
	case types.KindAffine:
		return dAffine
	default:
		return dUnrestricted
	}
}

// use records a consumption of the local at sp, diagnosing re-use of an
// already consumed linear/affine value and consumption inside a loop of a
// value declared outside it (which would consume it once per iteration).
func (u *usageCtx) use(local hir.LocalID, sp source.Span) {
	rec, ok := u.states[local]
	if !ok {
		return
	}
	d := u.disciplineOf(local, rec)
	if d == dUnrestricted {
		return
	}
	if rec.used {
		code := diag.LinearUseAfterConsume
		msg := "linear value used more than once"
		if d == dAffine {
			code = diag.AffineReuse
			msg = "affine value used more than once"
		}
		u.c.bag.Add(diag.Error(code, sp, msg).
			WithLabel(rec.usedAt, "first consumed here").
			WithLabel(rec.span, "declared here"))
		return
	}
	if u.c.inLoop > rec.depth {
		u.c.bag.Add(diag.Error(diag.LinearUseAfterConsume, sp,
			"value with restricted usage is consumed inside a loop but declared outside it"))
	}
	rec.used = true
	rec.usedAt = sp
	u.states[local] = rec
}

func (u *usageCtx) snapshot() usageMap {
	out := make(usageMap, len(u.states))
	for k, v := range u.states {
		out[k] = v
	}
	return out
}

func (u *usageCtx) restore(m usageMap) {
	u.states = make(usageMap, len(m))
	for k, v := range m {
		u.states[k] = v
	}
}

// mergeBranches joins the usage maps of sibling branches: every branch must
// agree on whether each restricted local was consumed (§4.3.8: equivalent
// usage residues). After diagnosis the pessimistic join (consumed anywhere
// = consumed) keeps later diagnostics sensible.
func (u *usageCtx) mergeBranches(sp source.Span, branches ...usageMap) {
	if len(branches) == 0 {
		return
	}
	merged := make(usageMap, len(branches[0]))
	for local, first := range branches[0] {
		d := u.disciplineOf(local, first)
		agreed := first
		for _, other := range branches[1:] {
			rec, ok := other[local]
			if !ok {
				continue
			}
			if d != dUnrestricted && rec.used != agreed.used {
				u.c.bag.Add(diag.Error(diag.LinearBranchMismatch, sp,
					"branches disagree on whether this linear value is consumed").
					WithLabel(first.span, "declared here"))
			}
			if rec.used {
				agreed = rec
			}
		}
		merged[local] = agreed
	}
	u.states = merged
}

// enterBlock snapshots which locals existed before a block, so exitBlock
// can run end-of-scope checks on exactly the block's own bindings.
func (u *usageCtx) enterBlock() map[hir.LocalID]bool {
	existing := make(map[hir.LocalID]bool, len(u.states))
	for l := range u.states {
		existing[l] = true
	}
	return existing
}

// exitBlock enforces consumption on locals that go out of scope: a linear
// local must have been consumed ("must be consumed exactly once"); affine
// locals may be dropped silently.
func (u *usageCtx) exitBlock(before map[hir.LocalID]bool, sp source.Span) {
	for local, rec := range u.states {
		if before[local] {
			continue
		}
		if u.disciplineOf(local, rec) == dLinear && !rec.used {
			u.c.bag.Add(diag.Error(diag.LinearNotConsumed, rec.span,
				"linear value must be consumed before its scope ends"))
		}
		delete(u.states, local)
	}
}

// finishScope runs the function-exit check over everything still tracked
// (parameters and top-level lets).
func (u *usageCtx) finishScope(sp source.Span) {
	for local, rec := range u.states {
		if u.disciplineOf(local, rec) == dLinear && !rec.used {
			at := rec.span
			if at == (source.Span{}) {
				at = sp
			}
			u.c.bag.Add(diag.Error(diag.LinearNotConsumed, at,
				"linear value must be consumed before the function returns"))
		}
	}
}
