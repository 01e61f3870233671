package types

// VarSupply hands out fresh TypeVarIDs. One supply is created per
// compilation and threaded through lowering (row variables written in
// signatures, `_` type holes) and inference (instantiation, fresh slots),
// so a TypeVarID is unique across the whole pipeline — per §9's guidance,
// the counter lives in an explicit record, not a package-level global.
type VarSupply struct {
	next TypeVarID
}

// NewVarSupply creates a supply whose first Fresh call returns 1.
func NewVarSupply() *VarSupply {
	return &VarSupply{next: 1}
}

// Fresh allocates the next unused TypeVarID.
func (s *VarSupply) Fresh() TypeVarID {
	id := s.next
	s.next++
	return id
}

// FreshVar allocates a fresh variable and returns its KindVar TypeID.
func (s *VarSupply) FreshVar(in *Interner) TypeID {
	return in.New(Type{Kind: KindVar, Var: s.Fresh()})
}

// FreshRow allocates an open effect row whose only content is a fresh tail.
func (s *VarSupply) FreshRow() EffectRow {
	return EffectRow{Tail: []TypeVarID{s.Fresh()}}
}

// Count reports how many variables have been issued.
func (s *VarSupply) Count() int { return int(s.next) - 1 }
