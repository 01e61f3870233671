package mir

import (
	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/hir"
	"blood/internal/source"
	"blood/internal/types"
)

// lowerMatch compiles a match into a test chain: each arm tests its
// pattern against the scrutinee place, binding captures on success, with
// failures falling through to the next arm. A guard-free match whose arms
// are plain variant patterns, optionally followed by catch-all arms,
// compiles to a single SwitchInt over the discriminant instead.
func (b *builder) lowerMatch(e *hir.Expr, ty types.TypeID) Operand {
	scrut := b.lowerExpr(e.Scrutinee)
	scrutTy := b.exprType(e.Scrutinee)
	scrutPlace := b.intoTemp(scrut, scrutTy, e.Span)

	result := b.temp(ty, e.Span)
	join := b.newBlock()

	if b.lowerMatchAsSwitch(e, scrutPlace, result, join, ty) {
		b.cur = join
		return b.copyOf(PlaceOf(result), ty)
	}

	// General path: sequential pattern tests. A failure off the last arm is
	// unreachable when the match is exhaustive; non-exhaustive matches
	// already carry a diagnostic, so the trailing block is Unreachable.
	for i := range e.Arms {
		arm := &e.Arms[i]
		armBody := b.newBlock()
		next := b.newBlock()

		b.lowerPatternTest(&arm.Pattern, scrutPlace, armBody, next, arm.Span)

		b.cur = armBody
		b.bindPattern(&arm.Pattern, scrutPlace)
		if arm.Guard.IsValid() {
			guard := b.lowerExpr(arm.Guard)
			guardOK := b.newBlock()
			b.terminate(Terminator{Kind: TermIf, Cond: guard, Then: guardOK, Else: next, Span: arm.Span})
			b.cur = guardOK
		}
		val := b.lowerExpr(arm.Body)
		b.assign(PlaceOf(result), RValue{Kind: RValueUse, Type: ty, Use: val}, arm.Span)
		b.jumpTo(join)

		b.cur = next
	}
	b.terminate(Terminator{Kind: TermUnreachable, Span: e.Span})

	b.cur = join
	return b.copyOf(PlaceOf(result), ty)
}

// lowerMatchAsSwitch recognizes the variant-patterns shape (at least one
// variant arm, with catch-all arms only after the last variant arm; the
// first catch-all becomes the default) and emits one SwitchInt; returns
// false when any arm needs the general test chain.
func (b *builder) lowerMatchAsSwitch(e *hir.Expr, scrutPlace Place, result LocalID, join BlockID, ty types.TypeID) bool {
	sawVariant, sawCatchAll := false, false
	for i := range e.Arms {
		arm := &e.Arms[i]
		if arm.Guard.IsValid() {
			return false
		}
		switch arm.Pattern.Kind {
		case hir.PkVariant:
			if sawCatchAll || !subPatternsIrrefutable(&arm.Pattern) {
				return false
			}
			sawVariant = true
		case hir.PkWildcard:
			sawCatchAll = true
		case hir.PkBinding:
			if arm.Pattern.SubPat != nil {
				return false
			}
			sawCatchAll = true
		default:
			return false
		}
	}
	if !sawVariant {
		return false
	}

	discrT := b.temp(b.tin.Builtins.U32, e.Span)
	b.assign(PlaceOf(discrT), RValue{Kind: RValueDiscriminant, Type: b.tin.Builtins.U32, Place: scrutPlace}, e.Span)

	type armBlock struct {
		arm *hir.MatchArm
		blk BlockID
	}
	var cases []SwitchCase
	var bodies []armBlock
	defaultTo := NoBlockID
	covered := make(map[int]bool, len(e.Arms))
	for i := range e.Arms {
		arm := &e.Arms[i]
		blk := b.newBlock()
		bodies = append(bodies, armBlock{arm: arm, blk: blk})
		if arm.Pattern.Kind == hir.PkVariant {
			if covered[arm.Pattern.VariantIdx] {
				continue // a later duplicate arm is dead
			}
			covered[arm.Pattern.VariantIdx] = true
			cases = append(cases, SwitchCase{Value: uint64(arm.Pattern.VariantIdx), Target: blk})
		} else if defaultTo == NoBlockID {
			defaultTo = blk
		}
	}
	unreach := NoBlockID
	if defaultTo == NoBlockID {
		unreach = b.newBlock()
		defaultTo = unreach
	}
	b.terminate(Terminator{
		Kind: TermSwitchInt, Span: e.Span,
		Discr:   b.copyOf(PlaceOf(discrT), b.tin.Builtins.U32),
		Cases:   cases,
		Default: defaultTo,
	})
	if unreach != NoBlockID {
		b.cur = unreach
		b.terminate(Terminator{Kind: TermUnreachable, Span: e.Span})
	}

	for _, ab := range bodies {
		b.cur = ab.blk
		b.bindPattern(&ab.arm.Pattern, scrutPlace)
		val := b.lowerExpr(ab.arm.Body)
		b.assign(PlaceOf(result), RValue{Kind: RValueUse, Type: ty, Use: val}, ab.arm.Span)
		b.jumpTo(join)
	}
	return true
}

func subPatternsIrrefutable(p *hir.Pattern) bool {
	check := func(sub *hir.Pattern) bool {
		return sub.Kind == hir.PkWildcard || (sub.Kind == hir.PkBinding && sub.SubPat == nil)
	}
	for i := range p.Positional {
		if !check(&p.Positional[i]) {
			return false
		}
	}
	for i := range p.Fields {
		if !check(&p.Fields[i].Pattern) {
			return false
		}
	}
	return true
}

// lowerPatternTest emits the comparisons deciding whether place matches
// pat, branching to ok or fail.
func (b *builder) lowerPatternTest(pat *hir.Pattern, place Place, ok, fail BlockID, sp source.Span) {
	switch pat.Kind {
	case hir.PkWildcard, hir.PkBinding:
		if pat.Kind == hir.PkBinding && pat.SubPat != nil {
			b.lowerPatternTest(pat.SubPat, place, ok, fail, sp)
			return
		}
		b.jumpTo(ok)

	case hir.PkIntLit, hir.PkBoolLit, hir.PkCharLit, hir.PkStringLit, hir.PkFloatLit:
		cmp := b.temp(b.tin.Builtins.Bool, sp)
		b.assign(PlaceOf(cmp), RValue{
			Kind: RValueBinaryOp, Type: b.tin.Builtins.Bool, BinOp: ast.OpEq,
			LHS: b.copyOf(place, pat.Type),
			RHS: b.literalOperand(pat),
		}, sp)
		b.terminate(Terminator{Kind: TermIf, Cond: b.copyOf(PlaceOf(cmp), b.tin.Builtins.Bool), Then: ok, Else: fail, Span: sp})

	case hir.PkTuple:
		b.lowerSeqTests(pat.Elems, place, ok, fail, sp, func(i int) Proj {
			return Proj{Kind: ProjField, FieldIdx: i}
		})

	case hir.PkStruct:
		b.lowerFieldTests(pat.Fields, place, ok, fail, sp, nil)

	case hir.PkVariant:
		discrT := b.temp(b.tin.Builtins.U32, sp)
		b.assign(PlaceOf(discrT), RValue{Kind: RValueDiscriminant, Type: b.tin.Builtins.U32, Place: place}, sp)
		cmp := b.temp(b.tin.Builtins.Bool, sp)
		b.assign(PlaceOf(cmp), RValue{
			Kind: RValueBinaryOp, Type: b.tin.Builtins.Bool, BinOp: ast.OpEq,
			LHS: b.copyOf(PlaceOf(discrT), b.tin.Builtins.U32),
			RHS: Operand{Kind: OperandConst, Type: b.tin.Builtins.U32, Const: Const{Kind: ConstInt, Type: b.tin.Builtins.U32, IntValue: uint64(pat.VariantIdx)}},
		}, sp)
		payloadBlock := b.newBlock()
		b.terminate(Terminator{Kind: TermIf, Cond: b.copyOf(PlaceOf(cmp), b.tin.Builtins.Bool), Then: payloadBlock, Else: fail, Span: sp})
		b.cur = payloadBlock
		down := appendProj(place, Proj{Kind: ProjDowncast, VariantIdx: pat.VariantIdx})
		if len(pat.Positional) > 0 {
			b.lowerSeqTests(pat.Positional, down, ok, fail, sp, func(i int) Proj {
				return Proj{Kind: ProjField, FieldIdx: i}
			})
			return
		}
		b.lowerFieldTests(pat.Fields, down, ok, fail, sp, nil)

	case hir.PkOr:
		// Try each alternative; the first match wins.
		for i := range pat.Elems {
			next := fail
			if i+1 < len(pat.Elems) {
				next = b.newBlock()
			}
			b.lowerPatternTest(&pat.Elems[i], place, ok, next, sp)
			b.cur = next
		}

	case hir.PkRef:
		inner := appendProj(place, Proj{Kind: ProjDeref})
		if len(pat.Elems) == 1 {
			b.lowerPatternTest(&pat.Elems[0], inner, ok, fail, sp)
			return
		}
		b.jumpTo(ok)

	case hir.PkArray:
		// Length gate, then element tests.
		lenT := b.temp(b.tin.Builtins.Uint, sp)
		b.assign(PlaceOf(lenT), RValue{Kind: RValueLen, Type: b.tin.Builtins.Uint, Place: place}, sp)
		cmpOp := ast.OpEq
		if pat.Rest {
			cmpOp = ast.OpGe
		}
		cmp := b.temp(b.tin.Builtins.Bool, sp)
		b.assign(PlaceOf(cmp), RValue{
			Kind: RValueBinaryOp, Type: b.tin.Builtins.Bool, BinOp: cmpOp,
			LHS: b.copyOf(PlaceOf(lenT), b.tin.Builtins.Uint),
			RHS: Operand{Kind: OperandConst, Type: b.tin.Builtins.Uint, Const: Const{Kind: ConstInt, Type: b.tin.Builtins.Uint, IntValue: uint64(len(pat.Elems))}},
		}, sp)
		elemsBlock := b.newBlock()
		b.terminate(Terminator{Kind: TermIf, Cond: b.copyOf(PlaceOf(cmp), b.tin.Builtins.Bool), Then: elemsBlock, Else: fail, Span: sp})
		b.cur = elemsBlock
		b.lowerSeqTests(pat.Elems, place, ok, fail, sp, func(i int) Proj {
			idxT := b.temp(b.tin.Builtins.Uint, sp)
			b.assign(PlaceOf(idxT), RValue{Kind: RValueUse, Type: b.tin.Builtins.Uint, Use: Operand{
				Kind: OperandConst, Type: b.tin.Builtins.Uint, Const: Const{Kind: ConstInt, Type: b.tin.Builtins.Uint, IntValue: uint64(i)},
			}}, sp)
			return Proj{Kind: ProjIndex, IndexLocal: idxT}
		})

	default:
		b.jumpTo(ok)
	}
}

func appendProj(p Place, pr Proj) Place {
	return Place{Local: p.Local, Proj: append(append([]Proj(nil), p.Proj...), pr)}
}

func (b *builder) lowerSeqTests(elems []hir.Pattern, base Place, ok, fail BlockID, sp source.Span, projAt func(int) Proj) {
	if len(elems) == 0 {
		b.jumpTo(ok)
		return
	}
	for i := range elems {
		sub := appendProj(base, projAt(i))
		var next BlockID
		if i+1 < len(elems) {
			next = b.newBlock()
		} else {
			next = ok
		}
		b.lowerPatternTest(&elems[i], sub, next, fail, sp)
		b.cur = next
	}
}

func (b *builder) lowerFieldTests(fields []hir.FieldPattern, base Place, ok, fail BlockID, sp source.Span, _ []int) {
	if len(fields) == 0 {
		b.jumpTo(ok)
		return
	}
	for i := range fields {
		f := &fields[i]
		sub := appendProj(base, Proj{Kind: ProjField, FieldIdx: f.Index})
		var next BlockID
		if i+1 < len(fields) {
			next = b.newBlock()
		} else {
			next = ok
		}
		b.lowerPatternTest(&f.Pattern, sub, next, fail, sp)
		b.cur = next
	}
}

// bindPattern assigns the scrutinee's matched components into the
// pattern's bound locals; run only on the success path.
func (b *builder) bindPattern(pat *hir.Pattern, place Place) {
	switch pat.Kind {
	case hir.PkBinding:
		l := b.userLocal(pat.Local, pat.Name, pat.Type, pat.Span)
		b.assign(PlaceOf(l), RValue{Kind: RValueUse, Type: pat.Type, Use: b.copyOf(place, pat.Type)}, pat.Span)
		if pat.SubPat != nil {
			b.bindPattern(pat.SubPat, place)
		}
	case hir.PkTuple:
		for i := range pat.Elems {
			b.bindPattern(&pat.Elems[i], appendProj(place, Proj{Kind: ProjField, FieldIdx: i}))
		}
	case hir.PkStruct:
		for i := range pat.Fields {
			f := &pat.Fields[i]
			b.bindPattern(&f.Pattern, appendProj(place, Proj{Kind: ProjField, FieldIdx: f.Index}))
		}
	case hir.PkVariant:
		down := appendProj(place, Proj{Kind: ProjDowncast, VariantIdx: pat.VariantIdx})
		for i := range pat.Positional {
			b.bindPattern(&pat.Positional[i], appendProj(down, Proj{Kind: ProjField, FieldIdx: i}))
		}
		for i := range pat.Fields {
			f := &pat.Fields[i]
			b.bindPattern(&f.Pattern, appendProj(down, Proj{Kind: ProjField, FieldIdx: f.Index}))
		}
	case hir.PkRef:
		if len(pat.Elems) == 1 {
			b.bindPattern(&pat.Elems[0], appendProj(place, Proj{Kind: ProjDeref}))
		}
	case hir.PkOr:
		// Alternatives bind the same locals; binding through the first is
		// representative (checking enforced compatible binding sets).
		if len(pat.Elems) > 0 {
			b.bindPattern(&pat.Elems[0], place)
		}
	}
}

func (b *builder) literalOperand(pat *hir.Pattern) Operand {
	ty := pat.Type
	switch pat.Kind {
	case hir.PkIntLit:
		v := pat.IntVal
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstInt, Type: ty, IntValue: v}}
	case hir.PkBoolLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstBool, Type: ty, BoolValue: pat.BoolVal}}
	case hir.PkCharLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstInt, Type: ty, IntValue: uint64(pat.CharVal)}}
	case hir.PkStringLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstString, Type: ty, StringValue: pat.StrVal}}
	case hir.PkFloatLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstFloat, Type: ty, FloatValue: pat.FloatVal}}
	default:
		return b.unitOperand()
	}
}

// lowerClosure builds the capture aggregate (§4.5: an implicit struct
// carrying captures plus a generated function taking it as its first
// argument) and lowers the closure body as a separate MIR Body.
func (b *builder) lowerClosure(e *hir.Expr, ty types.TypeID) Operand {
	closureDef := b.m.Defs.New(def.Definition{
		Name: b.closureName(),
		Kind: def.KindFn,
		Span: e.Span,
	})

	// Generated function: captures become leading parameters (the capture
	// struct, field-expanded), declared parameters follow.
	cb := newBuilder(b.m, b.tin, b.bag, b.out)
	cb.closureSeq = b.closureSeq
	retTy := e.Ret
	if retTy == types.NoTypeID {
		retTy = b.exprType(e.Body)
	}
	cb.body = &Body{
		Def:      closureDef,
		Name:     b.m.Defs.Get(closureDef).Name,
		Span:     e.Span,
		ArgCount: len(e.Captures) + len(e.Params),
		Ret:      retTy,
	}
	cb.locals = make(map[hir.LocalID]LocalID, len(e.Captures)+len(e.Params)+4)
	cb.newLocal("", retTy, e.Span, hir.NoLocalID)
	for _, capID := range e.Captures {
		capTy := b.capturedType(capID)
		id := cb.newLocal("", capTy, e.Span, capID)
		cb.locals[capID] = id
	}
	for _, p := range e.Params {
		id := cb.newLocal("", p.Type, e.Span, p.Local)
		cb.locals[p.Local] = id
	}
	cb.cur = cb.newBlock()
	cb.pushScope()
	result := cb.lowerExpr(e.Body)
	if !cb.block().Terminated() {
		cb.assign(PlaceOf(ReturnLocal), RValue{Kind: RValueUse, Type: retTy, Use: result}, e.Span)
	}
	cb.popScope()
	cb.terminate(Terminator{Kind: TermReturn, Span: e.Span})
	pruneUnreachable(cb.body)
	b.out.Add(cb.body)

	// Creation site: aggregate the captures. By-move captures move the
	// local in; by-reference captures take its address.
	rv := RValue{Kind: RValueAggregate, Type: ty, Agg: AggClosure, AggDef: closureDef}
	for i, capID := range e.Captures {
		l, ok := b.locals[capID]
		if !ok {
			b.internalError(e.Span, "closure captures a local with no storage")
			continue
		}
		capTy := b.capturedType(capID)
		if i < len(e.MovedCaptures) && e.MovedCaptures[i] {
			rv.Operands = append(rv.Operands, Operand{Kind: OperandMove, Type: capTy, Place: PlaceOf(l)})
		} else {
			refTy := b.tin.New(types.Type{Kind: types.KindRef, Elem: capTy})
			refT := b.temp(refTy, e.Span)
			b.assign(PlaceOf(refT), RValue{Kind: RValueAddressOf, Type: refTy, Place: PlaceOf(l)}, e.Span)
			rv.Operands = append(rv.Operands, b.copyOf(PlaceOf(refT), refTy))
		}
	}
	t := b.temp(ty, e.Span)
	b.assign(PlaceOf(t), rv, e.Span)
	return b.copyOf(PlaceOf(t), ty)
}

func (b *builder) capturedType(capID hir.LocalID) types.TypeID {
	if l, ok := b.locals[capID]; ok {
		return b.body.Locals[l].Type
	}
	return b.tin.Builtins.Error
}

// isCopyType implements the structural Copy judgement (§4.6): primitives,
// never, and unit are Copy; tuples and arrays are Copy iff their elements
// are; references, pointers, and ownership-qualified types are not; ADTs
// are Copy iff every field is.
func (b *builder) isCopyType(ty types.TypeID) bool {
	return IsCopy(b.m, b.tin, ty, 0)
}

// IsCopy is the shared structural Copy query used by operand construction
// and escape analysis.
func IsCopy(m *hir.Module, tin *types.Interner, ty types.TypeID, depth int) bool {
	if depth > 16 || ty == types.NoTypeID {
		return false
	}
	t := tin.Get(ty)
	switch t.Kind {
	case types.KindInt, types.KindUint, types.KindFloat, types.KindBool,
		types.KindUnit, types.KindNever, types.KindStr, types.KindError:
		return true
	case types.KindTuple:
		for _, a := range t.Args {
			if !IsCopy(m, tin, a, depth+1) {
				return false
			}
		}
		return true
	case types.KindArrayFixed:
		return IsCopy(m, tin, t.Elem, depth+1)
	case types.KindRef, types.KindPtr, types.KindSlice, types.KindLinear, types.KindAffine, types.KindFn:
		return false
	case types.KindNamed:
		if sd := m.StructByDef(t.Def); sd != nil {
			for _, f := range sd.Fields {
				if !IsCopy(m, tin, f.Type, depth+1) {
					return false
				}
			}
			return true
		}
		if ed := m.EnumByDef(t.Def); ed != nil {
			for _, v := range ed.Variants {
				for _, p := range v.Payload {
					if !IsCopy(m, tin, p, depth+1) {
						return false
					}
				}
				for _, f := range v.Fields {
					if !IsCopy(m, tin, f.Type, depth+1) {
						return false
					}
				}
			}
			return true
		}
		return false
	default:
		return false
	}
}
