package mir

import (
	"blood/internal/abi"
	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/hir"
	"blood/internal/source"
	"blood/internal/types"
)

// lowerExpr lowers one HIR expression to an operand, appending whatever
// statements and control flow it needs to the cursor (§4.5).
func (b *builder) lowerExpr(id hir.ExprID) Operand {
	if !id.IsValid() {
		return b.unitOperand()
	}
	e := b.m.Exprs.Get(id)
	ty := e.Type
	if ty == types.NoTypeID {
		ty = b.tin.Builtins.Error
	}

	switch e.Kind {
	case hir.EkIntLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstInt, Type: ty, IntValue: e.IntVal}}
	case hir.EkFloatLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstFloat, Type: ty, FloatValue: e.FloatVal}}
	case hir.EkBoolLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstBool, Type: ty, BoolValue: e.BoolVal}}
	case hir.EkStringLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstString, Type: ty, StringValue: e.StrVal}}
	case hir.EkCharLit:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstInt, Type: ty, IntValue: uint64(e.CharVal)}}
	case hir.EkUnitLit:
		return b.unitOperand()

	case hir.EkLocalRef:
		l, ok := b.locals[e.Local]
		if !ok {
			b.internalError(e.Span, "reference to a local with no storage")
			return b.unitOperand()
		}
		kind := OperandCopy
		if !b.isCopyType(ty) {
			kind = OperandMove
		}
		return Operand{Kind: kind, Type: ty, Place: PlaceOf(l)}

	case hir.EkDefRef:
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstFn, Type: ty, Fn: e.Def}}

	case hir.EkVariantRef:
		// A bare unit-variant reference builds the variant value in place.
		t := b.temp(ty, e.Span)
		b.assign(PlaceOf(t), RValue{
			Kind: RValueAggregate, Type: ty,
			Agg: AggVariant, AggDef: e.Def, VariantIdx: e.VariantIdx,
		}, e.Span)
		return b.copyOf(PlaceOf(t), ty)

	case hir.EkUnary:
		return b.lowerUnary(e, ty)
	case hir.EkBinary:
		return b.lowerBinary(e, ty)
	case hir.EkCast:
		src := b.lowerExpr(e.Value)
		t := b.temp(ty, e.Span)
		b.assign(PlaceOf(t), RValue{Kind: RValueCast, Type: ty, Use: src, CastTo: e.CastTo}, e.Span)
		return b.copyOf(PlaceOf(t), ty)

	case hir.EkCall:
		return b.lowerCall(e, ty)

	case hir.EkField, hir.EkIndex:
		place := b.lowerPlace(id)
		return Operand{Kind: OperandCopy, Type: ty, Place: place}

	case hir.EkIf:
		return b.lowerIf(e, ty)
	case hir.EkMatch:
		return b.lowerMatch(e, ty)
	case hir.EkBlock:
		return b.lowerBlockExpr(e)
	case hir.EkClosure:
		return b.lowerClosure(e, ty)

	case hir.EkTupleLit:
		return b.lowerAggregate(e.Elems, RValue{Kind: RValueAggregate, Type: ty, Agg: AggTuple}, ty, e.Span)
	case hir.EkArrayLit:
		return b.lowerAggregate(e.Elems, RValue{Kind: RValueAggregate, Type: ty, Agg: AggArray}, ty, e.Span)

	case hir.EkStructLit:
		return b.lowerStructLit(e, ty)

	case hir.EkAssign:
		b.lowerAssign(e)
		return b.unitOperand()

	case hir.EkWhile:
		b.lowerWhile(e)
		return b.unitOperand()
	case hir.EkLoop:
		b.lowerLoop(e)
		return b.unitOperand()
	case hir.EkFor:
		b.lowerFor(e)
		return b.unitOperand()

	case hir.EkReturn:
		if e.Value.IsValid() {
			v := b.lowerExpr(e.Value)
			b.assign(PlaceOf(ReturnLocal), RValue{Kind: RValueUse, Type: b.body.Ret, Use: v}, e.Span)
		}
		b.terminate(Terminator{Kind: TermReturn, Span: e.Span})
		b.cur = b.newBlock() // unreachable continuation; pruned later
		return b.unitOperand()

	case hir.EkBreak:
		if len(b.loops) > 0 {
			b.terminate(Terminator{Kind: TermGoto, Target: b.loops[len(b.loops)-1].breakTo, Span: e.Span})
		} else {
			b.internalError(e.Span, "break outside a loop survived checking")
		}
		b.cur = b.newBlock()
		return b.unitOperand()
	case hir.EkContinue:
		if len(b.loops) > 0 {
			b.terminate(Terminator{Kind: TermGoto, Target: b.loops[len(b.loops)-1].continueTo, Span: e.Span})
		} else {
			b.internalError(e.Span, "continue outside a loop survived checking")
		}
		b.cur = b.newBlock()
		return b.unitOperand()

	case hir.EkPerform:
		return b.lowerPerform(e, ty)
	case hir.EkHandle:
		return b.lowerHandle(e, ty)
	case hir.EkResume:
		term := Terminator{Kind: TermResume, Span: e.Span}
		if e.ResumeValue.IsValid() {
			term.HasValue = true
			term.Value = b.lowerExpr(e.ResumeValue)
		}
		b.terminate(term)
		b.cur = b.newBlock()
		return b.unitOperand()

	case hir.EkUnchecked:
		b.unchecked = append(b.unchecked, hirSafety{
			bounds:     e.UncheckedChecks&ast.CheckBounds != 0,
			generation: e.UncheckedChecks&ast.CheckGeneration != 0,
		})
		out := b.lowerExpr(e.UncheckedBody)
		b.unchecked = b.unchecked[:len(b.unchecked)-1]
		return out

	default:
		b.internalError(e.Span, "unlowered HIR expression kind")
		return b.unitOperand()
	}
}

func (b *builder) lowerUnary(e *hir.Expr, ty types.TypeID) Operand {
	switch e.UnOp {
	case ast.OpRef, ast.OpRefMut:
		place := b.lowerPlace(e.RHS)
		t := b.temp(ty, e.Span)
		b.assign(PlaceOf(t), RValue{Kind: RValueRef, Type: ty, Place: place, Mutable: e.UnOp == ast.OpRefMut}, e.Span)
		return b.copyOf(PlaceOf(t), ty)
	case ast.OpDeref:
		inner := b.lowerExpr(e.RHS)
		base := b.intoTemp(inner, b.exprType(e.RHS), e.Span)
		b.emitGenerationCheck(base, b.exprType(e.RHS), e.Span)
		derefed := Place{Local: base.Local, Proj: append(append([]Proj(nil), base.Proj...), Proj{Kind: ProjDeref})}
		return Operand{Kind: OperandCopy, Type: ty, Place: derefed}
	default:
		operand := b.lowerExpr(e.RHS)
		t := b.temp(ty, e.Span)
		b.assign(PlaceOf(t), RValue{Kind: RValueUnaryOp, Type: ty, UnOp: e.UnOp, LHS: operand}, e.Span)
		return b.copyOf(PlaceOf(t), ty)
	}
}

func (b *builder) lowerBinary(e *hir.Expr, ty types.TypeID) Operand {
	// Short-circuit operators become control flow (§4.5).
	if e.BinOp == ast.OpAnd || e.BinOp == ast.OpOr {
		return b.lowerShortCircuit(e, ty)
	}
	lhs := b.lowerExpr(e.LHS)
	rhs := b.lowerExpr(e.RHS)
	t := b.temp(ty, e.Span)
	b.assign(PlaceOf(t), RValue{Kind: RValueBinaryOp, Type: ty, BinOp: e.BinOp, LHS: lhs, RHS: rhs}, e.Span)
	return b.copyOf(PlaceOf(t), ty)
}

func (b *builder) lowerShortCircuit(e *hir.Expr, ty types.TypeID) Operand {
	result := b.temp(ty, e.Span)
	lhs := b.lowerExpr(e.LHS)

	rhsBlock := b.newBlock()
	shortBlock := b.newBlock()
	join := b.newBlock()

	if e.BinOp == ast.OpAnd {
		b.terminate(Terminator{Kind: TermIf, Cond: lhs, Then: rhsBlock, Else: shortBlock, Span: e.Span})
	} else {
		b.terminate(Terminator{Kind: TermIf, Cond: lhs, Then: shortBlock, Else: rhsBlock, Span: e.Span})
	}

	b.cur = shortBlock
	shortVal := e.BinOp == ast.OpOr
	b.assign(PlaceOf(result), RValue{Kind: RValueUse, Type: ty, Use: Operand{
		Kind: OperandConst, Type: ty, Const: Const{Kind: ConstBool, Type: ty, BoolValue: shortVal},
	}}, e.Span)
	b.jumpTo(join)

	b.cur = rhsBlock
	rhs := b.lowerExpr(e.RHS)
	b.assign(PlaceOf(result), RValue{Kind: RValueUse, Type: ty, Use: rhs}, e.Span)
	b.jumpTo(join)

	b.cur = join
	return b.copyOf(PlaceOf(result), ty)
}

func (b *builder) lowerCall(e *hir.Expr, ty types.TypeID) Operand {
	// Variant constructor calls build aggregates, not calls.
	if e.Callee.IsValid() {
		callee := b.m.Exprs.Get(e.Callee)
		if callee.Kind == hir.EkVariantRef {
			rv := RValue{Kind: RValueAggregate, Type: ty, Agg: AggVariant, AggDef: callee.Def, VariantIdx: callee.VariantIdx}
			return b.lowerAggregate(e.Args, rv, ty, e.Span)
		}
	}

	args := make([]Operand, len(e.Args))
	for i, a := range e.Args {
		args[i] = b.lowerExpr(a)
	}
	dest := b.temp(ty, e.Span)
	cont := b.newBlock()
	term := Terminator{
		Kind: TermCall, Span: e.Span,
		Args: args, Dest: PlaceOf(dest), Target: cont,
		Callee: def.NoDefID,
	}
	if e.Def != def.NoDefID && len(e.Dispatch) > 0 {
		term.Callee = e.Def // dispatch winner (§4.3.4)
	} else if e.Callee.IsValid() {
		term.CalleeValue = b.lowerExpr(e.Callee)
	}
	b.terminate(term)
	b.cur = cont
	return b.copyOf(PlaceOf(dest), ty)
}

func (b *builder) lowerAggregate(elems []hir.ExprID, rv RValue, ty types.TypeID, sp source.Span) Operand {
	rv.Operands = make([]Operand, len(elems))
	for i, el := range elems {
		rv.Operands[i] = b.lowerExpr(el)
	}
	t := b.temp(ty, sp)
	b.assign(PlaceOf(t), rv, sp)
	return b.copyOf(PlaceOf(t), ty)
}

func (b *builder) lowerStructLit(e *hir.Expr, ty types.TypeID) Operand {
	// Field initializers evaluate in source order; each already stages
	// through its own temporary, so reordering the operands into field
	// order preserves evaluation order.
	operands := make([]Operand, len(e.Fields))
	for _, f := range e.Fields {
		op := b.lowerExpr(f.Value)
		if f.Index >= 0 && f.Index < len(operands) {
			operands[f.Index] = op
		}
	}
	t := b.temp(ty, e.Span)
	b.assign(PlaceOf(t), RValue{
		Kind: RValueAggregate, Type: ty,
		Agg: AggStruct, AggDef: e.StructDef, Operands: operands,
	}, e.Span)
	return b.copyOf(PlaceOf(t), ty)
}

func (b *builder) lowerIf(e *hir.Expr, ty types.TypeID) Operand {
	cond := b.lowerExpr(e.Cond)

	// Values flowing out of the branches merge through a join temporary
	// assigned in each arm (§4.5); its storage opens before the branch so
	// both paths see it live.
	result := NoLocalID
	if e.Else.IsValid() {
		result = b.temp(ty, e.Span)
	}

	thenBlock := b.newBlock()
	var elseBlock BlockID
	join := b.newBlock()
	if e.Else.IsValid() {
		elseBlock = b.newBlock()
	} else {
		elseBlock = join
	}
	b.terminate(Terminator{Kind: TermIf, Cond: cond, Then: thenBlock, Else: elseBlock, Span: e.Span})
	b.cur = thenBlock

	if result != NoLocalID {
		thenVal := b.lowerExpr(e.Then)
		b.assign(PlaceOf(result), RValue{Kind: RValueUse, Type: ty, Use: thenVal}, e.Span)
		b.jumpTo(join)

		b.cur = elseBlock
		elseVal := b.lowerExpr(e.Else)
		b.assign(PlaceOf(result), RValue{Kind: RValueUse, Type: ty, Use: elseVal}, e.Span)
		b.jumpTo(join)

		b.cur = join
		return b.copyOf(PlaceOf(result), ty)
	}

	b.lowerExpr(e.Then)
	b.jumpTo(join)
	b.cur = join
	return b.unitOperand()
}

func (b *builder) lowerBlockExpr(e *hir.Expr) Operand {
	b.pushScope()
	for _, sid := range e.Stmts {
		b.lowerStmt(sid)
	}
	var out Operand
	if e.Tail.IsValid() {
		out = b.lowerExpr(e.Tail)
		out = b.hoistToParent(out, b.exprType(e.Tail), e.Span)
	} else {
		out = b.unitOperand()
	}
	b.popScope()
	return out
}

func (b *builder) lowerStmt(id hir.StmtID) {
	s := b.m.Stmts.Get(id)
	switch s.Kind {
	case hir.SkLet:
		var init Operand
		hasInit := s.Init.IsValid()
		if hasInit {
			init = b.lowerExpr(s.Init)
		}
		if s.Local != hir.NoLocalID && s.Pattern != nil {
			l := b.userLocal(s.Local, s.Pattern.Name, s.Pattern.Type, s.Span)
			if hasInit {
				b.assign(PlaceOf(l), RValue{Kind: RValueUse, Type: s.Pattern.Type, Use: init}, s.Span)
			} else {
				b.assign(PlaceOf(l), RValue{Kind: RValueZeroInit, Type: s.Pattern.Type}, s.Span)
			}
			return
		}
		if s.Pattern != nil && hasInit {
			// Destructuring let: bind through an irrefutable pattern.
			scrut := b.intoTemp(init, s.Pattern.Type, s.Span)
			b.bindPattern(s.Pattern, scrut)
		}
	case hir.SkExpr:
		b.lowerExpr(s.Expr)
	}
}

func (b *builder) lowerAssign(e *hir.Expr) {
	value := b.m.Exprs.Get(e.Value)
	// Compound assignment shares its target node between the assignment
	// target and the binary's left operand; lowering the place once gives
	// the required read-once semantics (§4.4 item 3).
	if value.Kind == hir.EkBinary && value.LHS == e.Target {
		place := b.lowerPlace(e.Target)
		lhsTy := b.exprType(e.Target)
		rhs := b.lowerExpr(value.RHS)
		b.assign(place, RValue{
			Kind: RValueBinaryOp, Type: lhsTy,
			BinOp: value.BinOp,
			LHS:   b.copyOf(place, lhsTy),
			RHS:   rhs,
		}, e.Span)
		return
	}
	v := b.lowerExpr(e.Value)
	place := b.lowerPlace(e.Target)
	b.assign(place, RValue{Kind: RValueUse, Type: b.exprType(e.Target), Use: v}, e.Span)
}

// lowerPlace lowers an expression in place position to a rooted access
// path (§3.8). Non-place expressions materialize into a temporary.
func (b *builder) lowerPlace(id hir.ExprID) Place {
	if !id.IsValid() {
		return PlaceOf(NoLocalID)
	}
	e := b.m.Exprs.Get(id)
	switch e.Kind {
	case hir.EkLocalRef:
		if l, ok := b.locals[e.Local]; ok {
			return PlaceOf(l)
		}
		b.internalError(e.Span, "place rooted at a local with no storage")
		return PlaceOf(NoLocalID)
	case hir.EkField:
		base := b.lowerPlace(e.Base)
		return Place{Local: base.Local, Proj: append(append([]Proj(nil), base.Proj...), Proj{Kind: ProjField, FieldIdx: e.FieldIdx})}
	case hir.EkIndex:
		base := b.lowerPlace(e.Base)
		idx := b.lowerExpr(e.Index)
		idxPlace := b.intoTemp(idx, b.exprType(e.Index), e.Span)
		b.emitBoundsCheck(base, idxPlace, e.Span)
		return Place{Local: base.Local, Proj: append(append([]Proj(nil), base.Proj...), Proj{Kind: ProjIndex, IndexLocal: idxPlace.Local})}
	case hir.EkUnary:
		if e.UnOp == ast.OpDeref {
			inner := b.lowerExpr(e.RHS)
			base := b.intoTemp(inner, b.exprType(e.RHS), e.Span)
			b.emitGenerationCheck(base, b.exprType(e.RHS), e.Span)
			return Place{Local: base.Local, Proj: append(append([]Proj(nil), base.Proj...), Proj{Kind: ProjDeref})}
		}
	}
	op := b.lowerExpr(id)
	return b.intoTemp(op, b.exprType(id), e.Span)
}

// emitBoundsCheck guards an index projection with an Assert terminator
// unless an enclosing unchecked(bounds) scope suppressed it.
func (b *builder) emitBoundsCheck(base Place, idx Place, sp source.Span) {
	if b.unchecked.boundsDisabled() {
		return
	}
	usize := b.tin.Builtins.Uint
	lenT := b.temp(usize, sp)
	b.assign(PlaceOf(lenT), RValue{Kind: RValueLen, Type: usize, Place: base}, sp)
	condT := b.temp(b.tin.Builtins.Bool, sp)
	b.assign(PlaceOf(condT), RValue{
		Kind: RValueBinaryOp, Type: b.tin.Builtins.Bool,
		BinOp: ast.OpLt,
		LHS:   b.copyOf(PlaceOf(idx.Local), usize),
		RHS:   b.copyOf(PlaceOf(lenT), usize),
	}, sp)
	cont := b.newBlock()
	b.terminate(Terminator{
		Kind: TermAssert, Span: sp,
		Cond: b.copyOf(PlaceOf(condT), b.tin.Builtins.Bool), Expected: true,
		Msg: "index out of bounds", Target: cont,
	})
	b.cur = cont
}

// emitGenerationCheck guards a raw-pointer dereference: read the
// generation, validate it against the runtime registry, and divert to a
// StaleReference terminator on mismatch (§6.5), unless suppressed by
// unchecked(generation).
func (b *builder) emitGenerationCheck(base Place, ty types.TypeID, sp source.Span) {
	if b.unchecked.generationDisabled() {
		return
	}
	if b.tin.Get(ty).Kind != types.KindPtr {
		return // only generational (raw) pointers carry a generation word
	}
	u64 := b.tin.Builtins.U64
	genT := b.temp(u64, sp)
	b.assign(PlaceOf(genT), RValue{Kind: RValueReadGeneration, Type: u64, Place: base}, sp)

	okT := b.temp(b.tin.Builtins.Bool, sp)
	cont := b.newBlock()
	b.terminate(Terminator{
		Kind: TermCall, Span: sp,
		AbiCall: abi.PrimValidateGeneration,
		Args:    []Operand{b.copyOf(base, ty), b.copyOf(PlaceOf(genT), u64)},
		Dest:    PlaceOf(okT),
		Target:  cont,
	})
	b.cur = cont

	okCont := b.newBlock()
	staleBlock := b.newBlock()
	b.terminate(Terminator{
		Kind: TermIf, Span: sp,
		Cond: b.copyOf(PlaceOf(okT), b.tin.Builtins.Bool),
		Then: okCont, Else: staleBlock,
	})
	b.cur = staleBlock
	b.terminate(Terminator{Kind: TermStaleReference, Span: sp, Place: base, Msg: "stale generational reference"})
	b.cur = okCont
}

func (b *builder) lowerWhile(e *hir.Expr) {
	condBlock := b.newBlock()
	bodyBlock := b.newBlock()
	exitBlock := b.newBlock()

	b.jumpTo(condBlock)
	cond := b.lowerExpr(e.Cond)
	b.terminate(Terminator{Kind: TermIf, Cond: cond, Then: bodyBlock, Else: exitBlock, Span: e.Span})

	b.cur = bodyBlock
	b.loops = append(b.loops, loopFrame{continueTo: condBlock, breakTo: exitBlock})
	b.lowerExpr(e.LoopBody)
	b.loops = b.loops[:len(b.loops)-1]
	b.jumpTo(condBlock)

	b.cur = exitBlock
}

func (b *builder) lowerLoop(e *hir.Expr) {
	bodyBlock := b.newBlock()
	exitBlock := b.newBlock()

	b.jumpTo(bodyBlock)
	b.loops = append(b.loops, loopFrame{continueTo: bodyBlock, breakTo: exitBlock})
	b.lowerExpr(e.LoopBody)
	b.loops = b.loops[:len(b.loops)-1]
	b.jumpTo(bodyBlock)

	b.cur = exitBlock
}

// lowerFor lowers the iterator-protocol loop. Ranges unroll to an index
// loop directly; other iterables drive their resolved `next`.
func (b *builder) lowerFor(e *hir.Expr) {
	iterTy := b.exprType(e.ForIter)
	t := b.tin.Get(iterTy)
	if t.Kind == types.KindNamed && (t.Def == b.m.Prelude.Range || t.Def == b.m.Prelude.RangeInclusive) {
		b.lowerRangeFor(e, t)
		return
	}
	b.lowerIteratorFor(e, iterTy)
}

func (b *builder) lowerRangeFor(e *hir.Expr, rangeTy types.Type) {
	elemTy := b.tin.Builtins.Int
	if len(rangeTy.Args) > 0 {
		elemTy = rangeTy.Args[0]
	}
	iter := b.lowerExpr(e.ForIter)
	iterPlace := b.intoTemp(iter, b.exprType(e.ForIter), e.Span)

	cursor := b.userLocal(e.ForVar, "", elemTy, e.Span)
	startPlace := Place{Local: iterPlace.Local, Proj: append(append([]Proj(nil), iterPlace.Proj...), Proj{Kind: ProjField, FieldIdx: 0})}
	endPlace := Place{Local: iterPlace.Local, Proj: append(append([]Proj(nil), iterPlace.Proj...), Proj{Kind: ProjField, FieldIdx: 1})}
	b.assign(PlaceOf(cursor), RValue{Kind: RValueUse, Type: elemTy, Use: b.copyOf(startPlace, elemTy)}, e.Span)

	condBlock := b.newBlock()
	bodyBlock := b.newBlock()
	stepBlock := b.newBlock()
	exitBlock := b.newBlock()

	b.jumpTo(condBlock)
	cmp := ast.OpLt
	if rangeTy.Def == b.m.Prelude.RangeInclusive {
		cmp = ast.OpLe
	}
	condT := b.temp(b.tin.Builtins.Bool, e.Span)
	b.assign(PlaceOf(condT), RValue{
		Kind: RValueBinaryOp, Type: b.tin.Builtins.Bool, BinOp: cmp,
		LHS: b.copyOf(PlaceOf(cursor), elemTy),
		RHS: b.copyOf(endPlace, elemTy),
	}, e.Span)
	b.terminate(Terminator{Kind: TermIf, Cond: b.copyOf(PlaceOf(condT), b.tin.Builtins.Bool), Then: bodyBlock, Else: exitBlock, Span: e.Span})

	b.cur = bodyBlock
	b.loops = append(b.loops, loopFrame{continueTo: stepBlock, breakTo: exitBlock})
	b.lowerExpr(e.ForBody)
	b.loops = b.loops[:len(b.loops)-1]
	b.jumpTo(stepBlock)

	one := Operand{Kind: OperandConst, Type: elemTy, Const: Const{Kind: ConstInt, Type: elemTy, IntValue: 1}}
	b.assign(PlaceOf(cursor), RValue{
		Kind: RValueBinaryOp, Type: elemTy, BinOp: ast.OpAdd,
		LHS: b.copyOf(PlaceOf(cursor), elemTy), RHS: one,
	}, e.Span)
	b.jumpTo(condBlock)

	b.cur = exitBlock
}

func (b *builder) lowerIteratorFor(e *hir.Expr, iterTy types.TypeID) {
	// General iterables loop on `next(&mut iter)` returning Option<Item>:
	// discriminant 0 (Some) continues with the payload, 1 (None) exits.
	iter := b.lowerExpr(e.ForIter)
	iterPlace := b.intoTemp(iter, iterTy, e.Span)

	next := def.NoDefID
	if cands := b.m.Overloads["next"]; len(cands) == 1 {
		next = cands[0]
	}

	elemTy := b.tin.Builtins.Error
	loopVar := b.userLocal(e.ForVar, "", elemTy, e.Span)

	headBlock := b.newBlock()
	checkBlock := b.newBlock()
	bodyBlock := b.newBlock()
	exitBlock := b.newBlock()

	b.jumpTo(headBlock)
	optTy := b.tin.New(types.Type{Kind: types.KindNamed, Def: b.m.Prelude.Option, Args: []types.TypeID{elemTy}})
	optT := b.temp(optTy, e.Span)
	refTy := b.tin.New(types.Type{Kind: types.KindRef, Elem: iterTy, Mutable: true})
	refT := b.temp(refTy, e.Span)
	b.assign(PlaceOf(refT), RValue{Kind: RValueRef, Type: refTy, Place: iterPlace, Mutable: true}, e.Span)
	b.terminate(Terminator{
		Kind: TermCall, Span: e.Span,
		Callee: next,
		Args:   []Operand{b.copyOf(PlaceOf(refT), refTy)},
		Dest:   PlaceOf(optT),
		Target: checkBlock,
	})

	b.cur = checkBlock
	discrT := b.temp(b.tin.Builtins.U32, e.Span)
	b.assign(PlaceOf(discrT), RValue{Kind: RValueDiscriminant, Type: b.tin.Builtins.U32, Place: PlaceOf(optT)}, e.Span)
	b.terminate(Terminator{
		Kind: TermSwitchInt, Span: e.Span,
		Discr: b.copyOf(PlaceOf(discrT), b.tin.Builtins.U32),
		Cases: []SwitchCase{{Value: uint64(b.m.Prelude.SomeIdx), Target: bodyBlock}},
		Default: exitBlock,
	})

	b.cur = bodyBlock
	payload := Place{Local: optT, Proj: []Proj{
		{Kind: ProjDowncast, VariantIdx: b.m.Prelude.SomeIdx},
		{Kind: ProjField, FieldIdx: 0},
	}}
	b.assign(PlaceOf(loopVar), RValue{Kind: RValueUse, Type: elemTy, Use: b.copyOf(payload, elemTy)}, e.Span)
	b.loops = append(b.loops, loopFrame{continueTo: headBlock, breakTo: exitBlock})
	b.lowerExpr(e.ForBody)
	b.loops = b.loops[:len(b.loops)-1]
	b.jumpTo(headBlock)

	b.cur = exitBlock
}

func (b *builder) lowerPerform(e *hir.Expr, ty types.TypeID) Operand {
	args := make([]Operand, len(e.PerformArgs))
	for i, a := range e.PerformArgs {
		args[i] = b.lowerExpr(a)
		// Locals crossing the effect boundary are snapshotted: a multi-shot
		// resume may observe them again (§4.5).
		if args[i].Kind != OperandConst && len(args[i].Place.Proj) == 0 && args[i].Place.Local != NoLocalID {
			b.stmt(Statement{Kind: StmtCaptureSnapshot, Local: args[i].Place.Local, Span: e.Span})
		}
	}
	dest := b.temp(ty, e.Span)
	cont := b.newBlock()
	b.terminate(Terminator{
		Kind: TermPerform, Span: e.Span,
		Effect: e.Effect, OpIndex: e.OpIndex,
		Args: args, Dest: PlaceOf(dest), Target: cont,
	})
	b.cur = cont
	return b.copyOf(PlaceOf(dest), ty)
}

// lowerHandle brackets the body with the evidence-vector ABI (§6.5): push
// the handler on entry, pop on every exit path out of the scope.
func (b *builder) lowerHandle(e *hir.Expr, ty types.TypeID) Operand {
	u64 := b.tin.Builtins.U64
	handlerState := b.temp(u64, e.Span)
	if len(e.HandlerArgs) > 0 {
		// Handler construction arguments aggregate into its state value.
		rv := RValue{Kind: RValueAggregate, Type: u64, Agg: AggStruct, AggDef: e.Handler}
		for _, a := range e.HandlerArgs {
			rv.Operands = append(rv.Operands, b.lowerExpr(a))
		}
		b.assign(PlaceOf(handlerState), rv, e.Span)
	} else {
		b.assign(PlaceOf(handlerState), RValue{Kind: RValueZeroInit, Type: u64}, e.Span)
	}

	var effectDef def.DefID
	if h := b.m.HandlerByDef(e.Handler); h != nil {
		effectDef = h.Effect
	}

	evT := b.temp(u64, e.Span)
	afterPush := b.newBlock()
	b.terminate(Terminator{
		Kind: TermCall, Span: e.Span,
		AbiCall: abi.PrimEvidencePush,
		Args: []Operand{
			{Kind: OperandConst, Type: u64, Const: Const{Kind: ConstInt, Type: u64, IntValue: uint64(effectDef)}},
			b.copyOf(PlaceOf(handlerState), u64),
		},
		Dest:   PlaceOf(evT),
		Target: afterPush,
	})
	b.cur = afterPush

	result := b.lowerExpr(e.HandleBody)
	resultPlace := b.intoTemp(result, ty, e.Span)

	afterPop := b.newBlock()
	b.terminate(Terminator{
		Kind: TermCall, Span: e.Span,
		AbiCall: abi.PrimEvidencePop,
		Args:    []Operand{b.copyOf(PlaceOf(evT), u64)},
		Dest:    PlaceOf(NoLocalID),
		Target:  afterPop,
	})
	b.cur = afterPop
	return b.copyOf(resultPlace, ty)
}
