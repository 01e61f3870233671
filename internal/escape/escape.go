// Package escape implements the escape analysis pass (§4.6): a worklist
// fixed point over each MIR body's assignments and terminators computing,
// per local, where a pointer to it may travel — NoEscape ⊏ ArgEscape ⊏
// GlobalEscape — and from that a memory tier and a stack-promotability
// verdict.
//
// The pass mutates the MIR in place (tier annotations on the local table,
// §3.9); no separate result structure exists to drift out of sync.
package escape

import (
	"blood/internal/hir"
	"blood/internal/mir"
	"blood/internal/types"
)

// Analyze runs escape analysis over every body in the module.
func Analyze(m *mir.Module, h *hir.Module, tin *types.Interner) {
	for _, b := range m.Bodies {
		analyzeBody(b, h, tin)
	}
}

type analysis struct {
	body *mir.Body
	h    *hir.Module
	tin  *types.Interner

	state []mir.EscapeState
	// captures maps a closure temp local to the capture operand locals
	// feeding it, so an escaping closure drags its captures with it.
	captures map[mir.LocalID][]mir.LocalID
	effect   []bool // effect-captured set
	// addrTaken marks locals some Ref/AddressOf rvalue points at. A Copy
	// local is only promotable while no escaping pointer pins it: the
	// bits can be copied freely, the storage cannot.
	addrTaken []bool
	changed   bool
}

func analyzeBody(b *mir.Body, h *hir.Module, tin *types.Interner) {
	a := &analysis{
		body:      b,
		h:         h,
		tin:       tin,
		state:     make([]mir.EscapeState, len(b.Locals)),
		captures:  make(map[mir.LocalID][]mir.LocalID, 4),
		effect:    make([]bool, len(b.Locals)),
		addrTaken: make([]bool, len(b.Locals)),
	}

	// Step 1: the return place escapes to the caller.
	if len(a.state) > 0 {
		a.state[mir.ReturnLocal] = mir.ArgEscape
	}

	// Step 2: collect closure-capture relationships.
	for bi := range b.Blocks {
		for si := range b.Blocks[bi].Stmts {
			s := &b.Blocks[bi].Stmts[si]
			if s.Kind != mir.StmtAssign || s.RValue.Kind != mir.RValueAggregate || s.RValue.Agg != mir.AggClosure {
				continue
			}
			var feeds []mir.LocalID
			for _, op := range s.RValue.Operands {
				if op.Kind != mir.OperandConst && op.Place.Local != mir.NoLocalID {
					feeds = append(feeds, op.Place.Local)
				}
			}
			if s.Place.Local != mir.NoLocalID {
				a.captures[s.Place.Local] = feeds
			}
		}
	}

	// Step 3: iterate to fixed point.
	for {
		a.changed = false
		for bi := range b.Blocks {
			blk := &b.Blocks[bi]
			for si := range blk.Stmts {
				if blk.Stmts[si].Kind == mir.StmtAssign {
					a.propagateAssign(&blk.Stmts[si])
				}
			}
			a.propagateTerm(&blk.Term)
		}
		a.propagateClosures()
		if !a.changed {
			break
		}
	}

	// Step 4: tiers and stack promotion.
	a.finalize()
}

func (a *analysis) raise(l mir.LocalID, to mir.EscapeState) {
	if l == mir.NoLocalID || int(l) >= len(a.state) {
		return
	}
	joined := a.state[l].Join(to)
	if joined != a.state[l] {
		a.state[l] = joined
		a.changed = true
	}
}

func (a *analysis) markEffect(l mir.LocalID) {
	if l == mir.NoLocalID || int(l) >= len(a.effect) || a.effect[l] {
		return
	}
	a.effect[l] = true
	a.changed = true
}

// placeState reads the escape state of a place's root, forcing
// GlobalEscape on any deref projection: data reached through a pointer may
// live anywhere (§4.6 step 3).
func (a *analysis) placeState(p mir.Place) mir.EscapeState {
	for _, pr := range p.Proj {
		if pr.Kind == mir.ProjDeref {
			return mir.GlobalEscape
		}
	}
	if p.Local == mir.NoLocalID || int(p.Local) >= len(a.state) {
		return mir.NoEscape
	}
	return a.state[p.Local]
}

// propagateAssign flows the destination's escape state into the operands
// of the right-hand side: Ref/AddressOf taints the referent, value moves
// taint their sources.
func (a *analysis) propagateAssign(s *mir.Statement) {
	dst := a.placeState(s.Place)
	rv := &s.RValue
	switch rv.Kind {
	case mir.RValueRef, mir.RValueAddressOf:
		if rv.Place.Local != mir.NoLocalID && int(rv.Place.Local) < len(a.addrTaken) {
			a.addrTaken[rv.Place.Local] = true
		}
		a.raise(rv.Place.Local, dst)
		// Taking the address through a deref chain pins the referent
		// globally regardless of the destination.
		for _, pr := range rv.Place.Proj {
			if pr.Kind == mir.ProjDeref {
				a.raise(rv.Place.Local, mir.GlobalEscape)
			}
		}
	case mir.RValueUse, mir.RValueCast:
		a.raiseOperand(rv.Use, dst)
	case mir.RValueBinaryOp:
		a.raiseOperand(rv.LHS, dst)
		a.raiseOperand(rv.RHS, dst)
	case mir.RValueUnaryOp:
		a.raiseOperand(rv.LHS, dst)
	case mir.RValueAggregate:
		for _, op := range rv.Operands {
			a.raiseOperand(op, dst)
		}
	}
}

func (a *analysis) raiseOperand(op mir.Operand, to mir.EscapeState) {
	if op.Kind == mir.OperandConst {
		return
	}
	a.raise(op.Place.Local, to)
}

func (a *analysis) propagateTerm(t *mir.Terminator) {
	switch t.Kind {
	case mir.TermCall:
		// Arguments may be retained by the callee up to ArgEscape (§4.6).
		for _, arg := range t.Args {
			a.raiseOperand(arg, mir.ArgEscape)
		}
	case mir.TermPerform:
		// Effect arguments escape at ArgEscape and join the
		// effect-captured set: a multi-shot handler may observe them after
		// the current activation would have died.
		for _, arg := range t.Args {
			a.raiseOperand(arg, mir.ArgEscape)
			if arg.Kind != mir.OperandConst {
				a.markEffect(arg.Place.Local)
			}
		}
	case mir.TermResume:
		if t.HasValue {
			a.raiseOperand(t.Value, mir.ArgEscape)
		}
	case mir.TermDropAndReplace:
		a.raiseOperand(t.Value, a.placeState(t.Place))
	}
}

// propagateClosures joins each escaping closure's state onto its captures.
func (a *analysis) propagateClosures() {
	for closure, feeds := range a.captures {
		st := a.state[closure]
		if st == mir.NoEscape {
			continue
		}
		for _, cap := range feeds {
			a.raise(cap, st)
		}
	}
}

// finalize writes tiers and the promotion verdict into the local table
// (§4.6 step 4): a Copy local promotes unless an escaping Ref/AddressOf
// pins it or it is effect-captured; any other local promotes when it is
// NoEscape, not effect-captured and not captured by an escaping closure.
// Unpromoted locals go to a region, or are persistent when GlobalEscape
// or effect-captured.
func (a *analysis) finalize() {
	escapingCapture := make([]bool, len(a.state))
	for closure, feeds := range a.captures {
		if a.state[closure] == mir.NoEscape {
			continue
		}
		for _, cap := range feeds {
			if int(cap) < len(escapingCapture) {
				escapingCapture[cap] = true
			}
		}
	}

	for i := range a.body.Locals {
		l := &a.body.Locals[i]
		l.Escape = a.state[i]
		l.EffectCaptured = a.effect[i]

		// A Copy local stays promotable only while no escaping pointer
		// pins its storage: the bits may be copied out freely, the slot
		// itself may not outlive the frame.
		copyType := mir.IsCopy(a.h, a.tin, l.Type, 0)
		pinned := a.addrTaken[i] && a.state[i] != mir.NoEscape
		l.StackPromoted = (copyType && !pinned && !a.effect[i]) ||
			(a.state[i] == mir.NoEscape && !a.effect[i] && !escapingCapture[i])

		switch {
		case l.StackPromoted:
			l.Tier = mir.TierStack
		case a.state[i] == mir.GlobalEscape || a.effect[i]:
			l.Tier = mir.TierPersistent
		default:
			l.Tier = mir.TierRegion
		}
	}
}
