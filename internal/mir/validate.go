package mir

import "fmt"

// Validate checks the structural invariants a Body must satisfy before
// the codegen handoff (§4.5 post-conditions, §6.4). A violation is a
// compiler bug, not a user diagnostic, so the result is an error for the
// driver to abort on (§7: MIR invariant violations are irrecoverable).
func Validate(b *Body) error {
	if len(b.Blocks) == 0 {
		return fmt.Errorf("%s: body has no blocks", b.Name)
	}
	if b.Entry != 0 {
		return fmt.Errorf("%s: entry block must have id 0, has %d", b.Name, b.Entry)
	}
	for i := range b.Blocks {
		blk := &b.Blocks[i]
		if blk.ID != BlockID(i) {
			return fmt.Errorf("%s: block %d carries id %d", b.Name, i, blk.ID)
		}
		if !blk.Terminated() {
			return fmt.Errorf("%s: block %d has no terminator", b.Name, i)
		}
		for _, succ := range successors(&blk.Term) {
			if succ != NoBlockID && (succ < 0 || int(succ) >= len(b.Blocks)) {
				return fmt.Errorf("%s: block %d targets invalid block %d", b.Name, i, succ)
			}
		}
		for si := range blk.Stmts {
			if err := validateStmt(b, &blk.Stmts[si]); err != nil {
				return fmt.Errorf("%s: block %d stmt %d: %w", b.Name, i, si, err)
			}
		}
		if err := validateTermLocals(b, &blk.Term); err != nil {
			return fmt.Errorf("%s: block %d terminator: %w", b.Name, i, err)
		}
	}
	if err := validateStorage(b); err != nil {
		return fmt.Errorf("%s: %w", b.Name, err)
	}
	return nil
}

// ValidateModule validates every body.
func ValidateModule(m *Module) error {
	for _, b := range m.Bodies {
		if err := Validate(b); err != nil {
			return err
		}
	}
	return nil
}

func validLocal(b *Body, l LocalID) bool {
	return l >= 0 && int(l) < len(b.Locals)
}

func validatePlace(b *Body, p Place) error {
	if p.Local == NoLocalID {
		return nil // discarded destinations are legal (evidence_pop)
	}
	if !validLocal(b, p.Local) {
		return fmt.Errorf("place rooted at invalid local %d", p.Local)
	}
	for _, pr := range p.Proj {
		if pr.Kind == ProjIndex && !validLocal(b, pr.IndexLocal) {
			return fmt.Errorf("index projection through invalid local %d", pr.IndexLocal)
		}
	}
	return nil
}

func validateOperand(b *Body, o Operand) error {
	if o.Kind == OperandConst {
		return nil
	}
	return validatePlace(b, o.Place)
}

func validateStmt(b *Body, s *Statement) error {
	switch s.Kind {
	case StmtAssign:
		if err := validatePlace(b, s.Place); err != nil {
			return err
		}
		return validateRValue(b, &s.RValue)
	case StmtStorageLive, StmtStorageDead, StmtCaptureSnapshot:
		if !validLocal(b, s.Local) {
			return fmt.Errorf("storage marker on invalid local %d", s.Local)
		}
	}
	return nil
}

func validateRValue(b *Body, rv *RValue) error {
	switch rv.Kind {
	case RValueUse, RValueCast:
		return validateOperand(b, rv.Use)
	case RValueRef, RValueAddressOf, RValueDiscriminant, RValueLen, RValueReadGeneration:
		return validatePlace(b, rv.Place)
	case RValueBinaryOp:
		if err := validateOperand(b, rv.LHS); err != nil {
			return err
		}
		return validateOperand(b, rv.RHS)
	case RValueUnaryOp:
		return validateOperand(b, rv.LHS)
	case RValueAggregate:
		for _, op := range rv.Operands {
			if err := validateOperand(b, op); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateTermLocals(b *Body, t *Terminator) error {
	for _, op := range t.Args {
		if err := validateOperand(b, op); err != nil {
			return err
		}
	}
	if t.Kind == TermCall || t.Kind == TermPerform {
		return validatePlace(b, t.Dest)
	}
	return nil
}

// validateStorage checks the live-range bracketing invariant (§8): no
// statement or terminator may touch a local outside a StorageLive/
// StorageDead bracket. Blocks are walked from entry with a liveness set;
// each block is checked once, with the live set of the first path that
// reaches it. Parameters and the return place are live for the whole body.
func validateStorage(b *Body) error {
	type state struct {
		block BlockID
		live  map[LocalID]bool
	}
	alwaysLive := make(map[LocalID]bool, b.ArgCount+1)
	for l := LocalID(0); int(l) <= b.ArgCount && int(l) < len(b.Locals); l++ {
		alwaysLive[l] = true
	}

	seen := make(map[BlockID]bool, len(b.Blocks))
	work := []state{{block: b.Entry, live: map[LocalID]bool{}}}
	for len(work) > 0 {
		st := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[st.block] {
			continue
		}
		seen[st.block] = true

		live := make(map[LocalID]bool, len(st.live))
		for k := range st.live {
			live[k] = true
		}
		blk := &b.Blocks[st.block]
		checkLive := func(l LocalID) error {
			if l == NoLocalID || alwaysLive[l] || live[l] {
				return nil
			}
			return fmt.Errorf("block %d uses local %d outside its storage bracket", st.block, l)
		}
		for si := range blk.Stmts {
			s := &blk.Stmts[si]
			switch s.Kind {
			case StmtStorageLive:
				live[s.Local] = true
			case StmtStorageDead:
				delete(live, s.Local)
			case StmtAssign:
				if err := checkLive(s.Place.Local); err != nil {
					return err
				}
				for _, l := range rvalueLocals(&s.RValue) {
					if err := checkLive(l); err != nil {
						return err
					}
				}
			case StmtCaptureSnapshot:
				if err := checkLive(s.Local); err != nil {
					return err
				}
			}
		}
		t := &blk.Term
		termOps := append([]Operand{t.Cond, t.Discr, t.Value, t.CalleeValue}, t.Args...)
		termLocals := rvalueLocals(&RValue{Kind: RValueAggregate, Operands: termOps})
		termLocals = append(termLocals, rvalueLocals(&RValue{Kind: RValueRef, Place: t.Dest})...)
		termLocals = append(termLocals, rvalueLocals(&RValue{Kind: RValueRef, Place: t.Place})...)
		for _, l := range termLocals {
			if err := checkLive(l); err != nil {
				return err
			}
		}
		for _, succ := range successors(&blk.Term) {
			if succ != NoBlockID && !seen[succ] {
				work = append(work, state{block: succ, live: live})
			}
		}
	}
	return nil
}

func rvalueLocals(rv *RValue) []LocalID {
	var out []LocalID
	addPlace := func(p Place) {
		if p.Local != NoLocalID {
			out = append(out, p.Local)
		}
		for _, pr := range p.Proj {
			if pr.Kind == ProjIndex {
				out = append(out, pr.IndexLocal)
			}
		}
	}
	addOp := func(o Operand) {
		if o.Kind != OperandConst {
			addPlace(o.Place)
		}
	}
	switch rv.Kind {
	case RValueUse, RValueCast:
		addOp(rv.Use)
	case RValueRef, RValueAddressOf, RValueDiscriminant, RValueLen, RValueReadGeneration:
		addPlace(rv.Place)
	case RValueBinaryOp:
		addOp(rv.LHS)
		addOp(rv.RHS)
	case RValueUnaryOp:
		addOp(rv.LHS)
	case RValueAggregate:
		for _, op := range rv.Operands {
			addOp(op)
		}
	}
	return out
}
