package hir

import (
	"fmt"

	"blood/internal/def"
)

// ComputeHashes assigns every definition its content address (§1(c)):
// a structural hash of the canonicalized HIR. Canonicalization replaces
// local ids by dense first-visit slots (so alpha-renaming is invisible)
// and never feeds spans into the digest (so reformatting is invisible).
// Definitions are hashed kind by kind — functions, structs, enums,
// effects, then handlers, so a handler can fold in its effect's hash — in
// module order within each kind, which is deterministic (§5).
func ComputeHashes(m *Module) {
	for _, fn := range m.Funcs {
		if fn.Def == def.NoDefID {
			continue
		}
		h := newDefHasher(m, def.KindFn, fn.Name)
		h.hasher.WriteUint(uint64(len(fn.TypeParams)))
		for _, p := range fn.Params {
			h.slotOf(p.Local)
			h.hasher.WriteTag("param")
		}
		h.hashExpr(fn.Body)
		m.Defs.SetHash(fn.Def, h.hasher.Sum())
	}
	for _, sd := range m.Structs {
		h := newDefHasher(m, def.KindStruct, sd.Name)
		for _, f := range sd.Fields {
			h.hasher.WriteTag(f.Name)
			h.hasher.WriteUint(uint64(f.Type))
		}
		m.Defs.SetHash(sd.Def, h.hasher.Sum())
	}
	for _, ed := range m.Enums {
		h := newDefHasher(m, def.KindEnum, ed.Name)
		for _, v := range ed.Variants {
			h.hasher.WriteTag(v.Name)
			h.hasher.WriteUint(uint64(len(v.Payload)))
			h.hasher.WriteUint(uint64(len(v.Fields)))
		}
		m.Defs.SetHash(ed.Def, h.hasher.Sum())
	}
	for _, eff := range m.Effects {
		h := newDefHasher(m, def.KindEffect, eff.Name)
		for _, op := range eff.Ops {
			h.hasher.WriteTag(op.Name)
			h.hasher.WriteUint(uint64(len(op.Params)))
			if op.NonResumptive {
				h.hasher.WriteTag("noresume")
			}
		}
		m.Defs.SetHash(eff.Def, h.hasher.Sum())
	}
	for _, hd := range m.Handlers {
		h := newDefHasher(m, def.KindHandler, hd.Name)
		h.hasher.WriteHash(m.Defs.Get(hd.Effect).Hash)
		for _, clause := range hd.Clauses {
			h.hasher.WriteTag(clause.OpName)
			for _, p := range clause.Params {
				h.slotOf(p.Local)
			}
			h.hashExpr(clause.Body)
		}
		m.Defs.SetHash(hd.Def, h.hasher.Sum())
	}
}

type defHasher struct {
	m      *Module
	hasher *def.Hasher
	slots  map[LocalID]uint64
}

func newDefHasher(m *Module, kind def.Kind, name string) *defHasher {
	return &defHasher{
		m:      m,
		hasher: def.NewHasher(kind, name),
		slots:  make(map[LocalID]uint64, 8),
	}
}

// slotOf canonicalizes a local to its de Bruijn-style first-visit index.
func (h *defHasher) slotOf(l LocalID) {
	if l == NoLocalID {
		h.hasher.WriteUint(0)
		return
	}
	slot, ok := h.slots[l]
	if !ok {
		slot = uint64(len(h.slots) + 1)
		h.slots[l] = slot
	}
	h.hasher.WriteUint(slot)
}

func (h *defHasher) hashExpr(id ExprID) {
	if !id.IsValid() {
		h.hasher.WriteTag("nil")
		return
	}
	e := h.m.Exprs.Get(id)
	h.hasher.WriteTag(fmt.Sprintf("e%d", e.Kind))
	switch e.Kind {
	case EkIntLit:
		h.hasher.WriteUint(e.IntVal)
		h.hasher.WriteTag(e.IntSuffix)
	case EkFloatLit:
		h.hasher.WriteTag(fmt.Sprintf("%g", e.FloatVal))
	case EkStringLit:
		h.hasher.WriteTag(e.StrVal)
	case EkCharLit:
		h.hasher.WriteUint(uint64(e.CharVal))
	case EkBoolLit:
		if e.BoolVal {
			h.hasher.WriteUint(1)
		} else {
			h.hasher.WriteUint(0)
		}
	case EkLocalRef:
		h.slotOf(e.Local)
	case EkDefRef:
		// Cross-definition references hash by the referent's name, not its
		// DefID — DefIDs are not stable across recompiles.
		h.hasher.WriteTag(h.m.Defs.Get(e.Def).Name)
	case EkVariantRef:
		h.hasher.WriteTag(h.m.Defs.Get(e.Def).Name)
		h.hasher.WriteUint(uint64(e.VariantIdx))
	case EkUnary:
		h.hasher.WriteUint(uint64(e.UnOp))
		h.hashExpr(e.RHS)
	case EkBinary:
		h.hasher.WriteUint(uint64(e.BinOp))
		h.hashExpr(e.LHS)
		h.hashExpr(e.RHS)
	case EkCast:
		h.hashExpr(e.Value)
		h.hasher.WriteUint(uint64(e.CastTo))
	case EkCall:
		h.hashExpr(e.Callee)
		h.hasher.WriteUint(uint64(len(e.Args)))
		for _, a := range e.Args {
			h.hashExpr(a)
		}
		if len(e.Dispatch) > 0 {
			h.hasher.WriteTag(h.m.Defs.Get(e.Dispatch[0]).Name)
		}
	case EkField:
		h.hashExpr(e.Base)
		h.hasher.WriteTag(e.Field)
	case EkIndex:
		h.hashExpr(e.Base)
		h.hashExpr(e.Index)
	case EkIf:
		h.hashExpr(e.Cond)
		h.hashExpr(e.Then)
		h.hashExpr(e.Else)
	case EkMatch:
		h.hashExpr(e.Scrutinee)
		h.hasher.WriteUint(uint64(len(e.Arms)))
		for i := range e.Arms {
			h.hashPattern(&e.Arms[i].Pattern)
			h.hashExpr(e.Arms[i].Guard)
			h.hashExpr(e.Arms[i].Body)
		}
	case EkBlock:
		h.hasher.WriteUint(uint64(len(e.Stmts)))
		for _, sid := range e.Stmts {
			h.hashStmt(sid)
		}
		h.hashExpr(e.Tail)
	case EkClosure:
		h.hasher.WriteUint(uint64(len(e.Params)))
		for _, p := range e.Params {
			h.slotOf(p.Local)
		}
		h.hashExpr(e.Body)
	case EkTupleLit, EkArrayLit:
		h.hasher.WriteUint(uint64(len(e.Elems)))
		for _, el := range e.Elems {
			h.hashExpr(el)
		}
	case EkStructLit:
		h.hasher.WriteTag(h.m.Defs.Get(e.StructDef).Name)
		for _, f := range e.Fields {
			h.hasher.WriteUint(uint64(f.Index))
			h.hashExpr(f.Value)
		}
	case EkAssign:
		h.hashExpr(e.Target)
		h.hashExpr(e.Value)
	case EkFor:
		h.slotOf(e.ForVar)
		h.hashExpr(e.ForIter)
		h.hashExpr(e.ForBody)
	case EkWhile:
		h.hashExpr(e.Cond)
		h.hashExpr(e.LoopBody)
	case EkLoop:
		h.hashExpr(e.LoopBody)
	case EkReturn, EkBreak:
		h.hashExpr(e.Value)
	case EkPerform:
		h.hasher.WriteTag(h.m.Defs.Get(e.Effect).Name)
		h.hasher.WriteTag(e.Op)
		for _, a := range e.PerformArgs {
			h.hashExpr(a)
		}
	case EkHandle:
		h.hasher.WriteTag(h.m.Defs.Get(e.Handler).Name)
		for _, a := range e.HandlerArgs {
			h.hashExpr(a)
		}
		h.hashExpr(e.HandleBody)
	case EkResume:
		h.hashExpr(e.ResumeValue)
	case EkUnchecked:
		h.hasher.WriteUint(uint64(e.UncheckedChecks))
		h.hashExpr(e.UncheckedBody)
	}
}

func (h *defHasher) hashStmt(id StmtID) {
	if !id.IsValid() {
		return
	}
	s := h.m.Stmts.Get(id)
	h.hasher.WriteTag(fmt.Sprintf("s%d", s.Kind))
	switch s.Kind {
	case SkLet:
		h.hasher.WriteUint(uint64(s.Linear))
		if s.Pattern != nil {
			h.hashPattern(s.Pattern)
		}
		h.hashExpr(s.Init)
	case SkExpr:
		h.hashExpr(s.Expr)
	}
}

func (h *defHasher) hashPattern(p *Pattern) {
	if p == nil {
		h.hasher.WriteTag("pnil")
		return
	}
	h.hasher.WriteTag(fmt.Sprintf("p%d", p.Kind))
	switch p.Kind {
	case PkBinding:
		h.slotOf(p.Local)
		h.hashPattern(p.SubPat)
	case PkIntLit:
		h.hasher.WriteUint(p.IntVal)
	case PkStringLit:
		h.hasher.WriteTag(p.StrVal)
	case PkBoolLit:
		if p.BoolVal {
			h.hasher.WriteUint(1)
		} else {
			h.hasher.WriteUint(0)
		}
	case PkVariant:
		h.hasher.WriteTag(h.m.Defs.Get(p.Def).Name)
		h.hasher.WriteUint(uint64(p.VariantIdx))
	case PkStruct:
		h.hasher.WriteTag(h.m.Defs.Get(p.Def).Name)
	}
	for i := range p.Elems {
		h.hashPattern(&p.Elems[i])
	}
	for i := range p.Positional {
		h.hashPattern(&p.Positional[i])
	}
	for i := range p.Fields {
		h.hasher.WriteUint(uint64(p.Fields[i].Index))
		h.hashPattern(&p.Fields[i].Pattern)
	}
}
