package infer

import (
	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/hir"
	"blood/internal/source"
	"blood/internal/types"
)

// check verifies expression id against an expected type (checking mode,
// §4.3.1). Multi-branch forms push the expectation into their branches so
// fresh join variables are not needed; everything else synthesizes and
// unifies.
func (c *Checker) check(id hir.ExprID, expected types.TypeID) {
	if !id.IsValid() {
		return
	}
	e := c.m.Exprs.Get(id)
	switch e.Kind {
	case hir.EkIf:
		if e.Else.IsValid() {
			c.check(e.Cond, c.tin.Builtins.Bool)
			c.branchPair(func() { c.check(e.Then, expected) }, func() { c.check(e.Else, expected) }, e.Span)
			e.Type = expected
			return
		}
	case hir.EkBlock:
		c.checkBlock(e, expected)
		return
	case hir.EkMatch:
		c.checkMatch(e, expected)
		return
	}
	got := c.synth(id)
	c.Unify(got, expected, e.Span)
}

// synth infers the type of expression id (synthesis mode), fills its type
// slot, and returns the inferred type.
func (c *Checker) synth(id hir.ExprID) types.TypeID {
	if !id.IsValid() {
		return c.errType()
	}
	e := c.m.Exprs.Get(id)
	t := c.synthExpr(e)
	e.Type = t
	return t
}

func (c *Checker) synthExpr(e *hir.Expr) types.TypeID {
	b := c.tin.Builtins
	switch e.Kind {
	case hir.EkIntLit:
		if e.IntSuffix != "" {
			if ty, ok := c.suffixType(e.IntSuffix); ok {
				return ty
			}
			c.bag.Add(diag.Error(diag.TypeMismatch, e.Span,
				"unknown numeric suffix `"+e.IntSuffix+"`"))
			return c.errType()
		}
		// Unsuffixed integers carry an any-width int that unifies with
		// whatever width context demands.
		return c.tin.New(types.Type{Kind: types.KindInt, Width: types.WidthAny})
	case hir.EkFloatLit:
		return b.F64
	case hir.EkStringLit:
		return b.Str
	case hir.EkCharLit:
		return b.U32
	case hir.EkBoolLit:
		return b.Bool
	case hir.EkUnitLit:
		return b.Unit

	case hir.EkLocalRef:
		c.usage.use(e.Local, e.Span)
		if ty, ok := c.locals[e.Local]; ok {
			return ty
		}
		return c.errType()

	case hir.EkDefRef:
		return c.synthDefRef(e)
	case hir.EkVariantRef:
		return c.synthVariantRef(e)

	case hir.EkUnary:
		return c.synthUnary(e)
	case hir.EkBinary:
		return c.synthBinary(e)
	case hir.EkCast:
		c.synth(e.Value)
		return e.CastTo

	case hir.EkCall:
		return c.synthCall(e)

	case hir.EkField:
		return c.synthField(e)
	case hir.EkIndex:
		base := c.synth(e.Base)
		c.check(e.Index, c.tin.New(types.Type{Kind: types.KindUint, Width: types.WidthAny}))
		return c.elementOf(base, e.Span)

	case hir.EkIf:
		c.check(e.Cond, b.Bool)
		if !e.Else.IsValid() {
			c.check(e.Then, b.Unit)
			return b.Unit
		}
		result := c.freshVar()
		c.branchPair(func() { c.check(e.Then, result) }, func() { c.check(e.Else, result) }, e.Span)
		return result

	case hir.EkMatch:
		result := c.freshVar()
		c.checkMatch(e, result)
		return result

	case hir.EkBlock:
		result := c.freshVar()
		c.checkBlock(e, result)
		return result

	case hir.EkClosure:
		return c.synthClosure(e)

	case hir.EkTupleLit:
		args := make([]types.TypeID, len(e.Elems))
		for i, el := range e.Elems {
			args[i] = c.synth(el)
		}
		return c.tin.New(types.Type{Kind: types.KindTuple, Args: args})
	case hir.EkArrayLit:
		elem := c.freshVar()
		for _, el := range e.Elems {
			c.check(el, elem)
		}
		return c.tin.New(types.Type{Kind: types.KindArrayFixed, Elem: elem, Count: uint32(len(e.Elems))})

	case hir.EkStructLit:
		return c.synthStructLit(e)

	case hir.EkAssign:
		target := c.synthPlace(e.Target)
		c.check(e.Value, target)
		return b.Unit

	case hir.EkFor:
		return c.synthFor(e)
	case hir.EkWhile:
		c.check(e.Cond, b.Bool)
		c.inLoop++
		c.check(e.LoopBody, b.Unit)
		c.inLoop--
		return b.Unit
	case hir.EkLoop:
		c.inLoop++
		c.check(e.LoopBody, b.Unit)
		c.inLoop--
		return b.Unit

	case hir.EkReturn:
		if e.Value.IsValid() {
			c.check(e.Value, c.fn.Ret)
		} else {
			c.Unify(b.Unit, c.fn.Ret, e.Span)
		}
		return b.Never
	case hir.EkBreak:
		if e.Value.IsValid() {
			c.synth(e.Value)
		}
		return b.Never
	case hir.EkContinue:
		return b.Never

	case hir.EkPerform:
		return c.synthPerform(e)
	case hir.EkHandle:
		return c.synthHandle(e)
	case hir.EkResume:
		return c.synthResume(e)

	case hir.EkUnchecked:
		return c.synth(e.UncheckedBody)

	default:
		return c.errType()
	}
}

// synthPlace types an expression in place position: the root local is not
// consumed, since writing to a place is not a use of its previous value.
func (c *Checker) synthPlace(id hir.ExprID) types.TypeID {
	if !id.IsValid() {
		return c.errType()
	}
	e := c.m.Exprs.Get(id)
	if e.Kind == hir.EkLocalRef {
		ty, ok := c.locals[e.Local]
		if !ok {
			ty = c.errType()
		}
		e.Type = ty
		return ty
	}
	return c.synth(id)
}

func (c *Checker) suffixType(s string) (types.TypeID, bool) {
	b := c.tin.Builtins
	switch s {
	case "i8":
		return b.I8, true
	case "i16":
		return b.I16, true
	case "i32":
		return b.I32, true
	case "i64":
		return b.I64, true
	case "i128":
		return b.I128, true
	case "isize":
		return b.Int, true
	case "u8":
		return b.U8, true
	case "u16":
		return b.U16, true
	case "u32":
		return b.U32, true
	case "u64":
		return b.U64, true
	case "u128":
		return b.U128, true
	case "usize":
		return b.Uint, true
	case "f32":
		return b.F32, true
	case "f64":
		return b.F64, true
	default:
		return types.NoTypeID, false
	}
}

func (c *Checker) synthDefRef(e *hir.Expr) types.TypeID {
	if e.Def == def.NoDefID {
		return c.errType()
	}
	d := c.m.Defs.Get(e.Def)
	switch d.Kind {
	case def.KindFn:
		fn := c.m.FuncByDef(e.Def)
		if fn == nil {
			return c.errType()
		}
		params, ret, row := c.instantiateSignature(fn)
		return c.tin.New(types.Type{Kind: types.KindFn, Params: params, Ret: ret, Effect: row})
	case def.KindConst, def.KindStatic:
		for i := range c.m.Consts {
			if c.m.Consts[i].Def == e.Def {
				return c.m.Consts[i].Type
			}
		}
		return c.errType()
	case def.KindStruct, def.KindEnum:
		c.bag.Add(diag.Error(diag.TypeMismatch, e.Span,
			"`"+d.Name+"` is a type, not a value"))
		return c.errType()
	default:
		return c.errType()
	}
}

func (c *Checker) synthVariantRef(e *hir.Expr) types.TypeID {
	ed := c.m.EnumByDef(e.Def)
	if ed == nil || e.VariantIdx < 0 || e.VariantIdx >= len(ed.Variants) {
		return c.errType()
	}
	args := make([]types.TypeID, len(ed.TypeParams))
	env := make(map[types.TypeVarID]types.TypeID, len(ed.TypeParams))
	for i, v := range ed.TypeParams {
		args[i] = c.freshVar()
		env[v] = args[i]
	}
	enumTy := c.tin.New(types.Type{Kind: types.KindNamed, Def: e.Def, Args: args})
	variant := ed.Variants[e.VariantIdx]
	if len(variant.Payload) == 0 && len(variant.Fields) == 0 {
		return enumTy
	}
	// A payload-carrying variant referenced as a value is its constructor.
	params := make([]types.TypeID, 0, len(variant.Payload)+len(variant.Fields))
	for _, p := range variant.Payload {
		params = append(params, c.substituteVars(p, env))
	}
	for _, f := range variant.Fields {
		params = append(params, c.substituteVars(f.Type, env))
	}
	return c.tin.New(types.Type{Kind: types.KindFn, Params: params, Ret: enumTy})
}

func (c *Checker) synthUnary(e *hir.Expr) types.TypeID {
	switch e.UnOp {
	case ast.OpNeg:
		return c.synth(e.RHS)
	case ast.OpNot:
		c.check(e.RHS, c.tin.Builtins.Bool)
		return c.tin.Builtins.Bool
	case ast.OpRef, ast.OpRefMut:
		inner := c.synthPlace(e.RHS)
		return c.tin.New(types.Type{Kind: types.KindRef, Elem: inner, Mutable: e.UnOp == ast.OpRefMut})
	case ast.OpDeref:
		operand := c.subst.Resolve(c.tin, c.synth(e.RHS))
		t := c.tin.Get(operand)
		switch t.Kind {
		case types.KindRef, types.KindPtr:
			return t.Elem
		case types.KindError:
			return operand
		case types.KindVar:
			elem := c.freshVar()
			c.Unify(operand, c.tin.New(types.Type{Kind: types.KindRef, Elem: elem}), e.Span)
			return elem
		default:
			c.bag.Add(diag.Error(diag.TypeMismatch, e.Span,
				"type `"+types.Label(c.tin, operand)+"` cannot be dereferenced"))
			return c.errType()
		}
	default:
		return c.errType()
	}
}

func (c *Checker) synthBinary(e *hir.Expr) types.TypeID {
	b := c.tin.Builtins
	switch e.BinOp {
	case ast.OpAnd, ast.OpOr:
		c.check(e.LHS, b.Bool)
		c.check(e.RHS, b.Bool)
		return b.Bool
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		lhs := c.synth(e.LHS)
		rhs := c.synth(e.RHS)
		c.Unify(rhs, lhs, e.Span)
		return b.Bool
	case ast.OpShl, ast.OpShr:
		lhs := c.synth(e.LHS)
		c.check(e.RHS, c.tin.New(types.Type{Kind: types.KindUint, Width: types.WidthAny}))
		return lhs
	default: // arithmetic and bitwise share one shape
		lhs := c.synth(e.LHS)
		rhs := c.synth(e.RHS)
		c.Unify(rhs, lhs, e.Span)
		return lhs
	}
}

func (c *Checker) synthCall(e *hir.Expr) types.TypeID {
	if len(e.Dispatch) > 0 {
		return c.resolveDispatch(e)
	}
	calleeTy := c.subst.Resolve(c.tin, c.synth(e.Callee))
	t := c.tin.Get(calleeTy)
	switch t.Kind {
	case types.KindFn:
		if len(e.Args) != len(t.Params) {
			c.bag.Add(diag.Error(diag.TypeArityMismatch, e.Span,
				"this call supplies "+itoa(len(e.Args))+" arguments, the callee takes "+itoa(len(t.Params))))
		}
		for i, a := range e.Args {
			if i < len(t.Params) {
				c.check(a, t.Params[i])
			} else {
				c.synth(a)
			}
		}
		c.ambient.addRow(c.subst.ResolveRow(t.Effect))
		return t.Ret
	case types.KindError:
		for _, a := range e.Args {
			c.synth(a)
		}
		return calleeTy
	case types.KindVar:
		params := make([]types.TypeID, len(e.Args))
		for i, a := range e.Args {
			params[i] = c.synth(a)
		}
		ret := c.freshVar()
		c.Unify(calleeTy, c.tin.New(types.Type{Kind: types.KindFn, Params: params, Ret: ret, Effect: c.supply.FreshRow()}), e.Span)
		return ret
	default:
		c.bag.Add(diag.Error(diag.TypeMismatch, e.Span,
			"type `"+types.Label(c.tin, calleeTy)+"` is not callable"))
		for _, a := range e.Args {
			c.synth(a)
		}
		return c.errType()
	}
}

func (c *Checker) synthField(e *hir.Expr) types.TypeID {
	base := c.subst.Resolve(c.tin, c.synth(e.Base))
	t := c.tin.Get(base)
	// Auto-deref one reference level, the common accessor shape.
	if t.Kind == types.KindRef || t.Kind == types.KindPtr {
		base = c.subst.Resolve(c.tin, t.Elem)
		t = c.tin.Get(base)
	}
	switch t.Kind {
	case types.KindNamed:
		if sd := c.m.StructByDef(t.Def); sd != nil {
			idx := sd.FieldIndex(e.Field)
			if idx < 0 {
				c.bag.Add(diag.Error(diag.ResUnresolvedField, e.Span,
					"no field `"+e.Field+"` on type `"+sd.Name+"`"))
				return c.errType()
			}
			e.FieldIdx = idx
			env := c.namedEnv(sd.TypeParams, t.Args)
			return c.substituteVars(sd.Fields[idx].Type, env)
		}
		c.bag.Add(diag.Error(diag.ResUnresolvedField, e.Span,
			"type `"+types.Label(c.tin, base)+"` has no fields"))
		return c.errType()
	case types.KindTuple:
		if idx, ok := tupleIndex(e.Field); ok && idx < len(t.Args) {
			e.FieldIdx = idx
			return t.Args[idx]
		}
		c.bag.Add(diag.Error(diag.ResUnresolvedField, e.Span,
			"no element `"+e.Field+"` on tuple `"+types.Label(c.tin, base)+"`"))
		return c.errType()
	case types.KindRecord:
		fields, _ := c.subst.ResolveRecord(c.tin, t)
		for i, f := range fields {
			if f.Label == e.Field {
				e.FieldIdx = i
				return f.Type
			}
		}
		// An open record can still grow the field through its row variable.
		fieldTy := c.freshVar()
		want := c.tin.New(types.Type{
			Kind:   types.KindRecord,
			Fields: []types.RecordField{{Label: e.Field, Type: fieldTy}},
			RowVar: c.supply.Fresh(),
		})
		if c.Unify(base, want, e.Span) {
			return fieldTy
		}
		return c.errType()
	case types.KindVar:
		fieldTy := c.freshVar()
		want := c.tin.New(types.Type{
			Kind:   types.KindRecord,
			Fields: []types.RecordField{{Label: e.Field, Type: fieldTy}},
			RowVar: c.supply.Fresh(),
		})
		c.Unify(base, want, e.Span)
		return fieldTy
	case types.KindError:
		return base
	default:
		c.bag.Add(diag.Error(diag.ResUnresolvedField, e.Span,
			"type `"+types.Label(c.tin, base)+"` has no field `"+e.Field+"`"))
		return c.errType()
	}
}

func tupleIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

func (c *Checker) elementOf(base types.TypeID, sp source.Span) types.TypeID {
	base = c.subst.Resolve(c.tin, base)
	t := c.tin.Get(base)
	if t.Kind == types.KindRef || t.Kind == types.KindPtr {
		base = c.subst.Resolve(c.tin, t.Elem)
		t = c.tin.Get(base)
	}
	switch t.Kind {
	case types.KindArrayFixed, types.KindSlice:
		return t.Elem
	case types.KindError:
		return base
	case types.KindVar:
		elem := c.freshVar()
		c.Unify(base, c.tin.New(types.Type{Kind: types.KindSlice, Elem: elem}), sp)
		return elem
	default:
		c.bag.Add(diag.Error(diag.TypeMismatch, sp,
			"type `"+types.Label(c.tin, base)+"` cannot be indexed"))
		return c.errType()
	}
}

func (c *Checker) checkBlock(e *hir.Expr, expected types.TypeID) {
	declared := c.usage.enterBlock()
	for _, sid := range e.Stmts {
		c.checkStmt(sid)
	}
	if e.Tail.IsValid() {
		c.check(e.Tail, expected)
	} else {
		c.Unify(c.tin.Builtins.Unit, expected, e.Span)
	}
	c.usage.exitBlock(declared, e.Span)
	e.Type = expected
}

func (c *Checker) checkStmt(id hir.StmtID) {
	s := c.m.Stmts.Get(id)
	switch s.Kind {
	case hir.SkLet:
		ty := c.freshVar()
		if s.Pattern != nil && s.Pattern.Type != types.NoTypeID {
			ty = s.Pattern.Type // explicit annotation wins
		}
		if s.Init.IsValid() {
			c.check(s.Init, ty)
		}
		if s.Pattern != nil {
			c.checkPattern(s.Pattern, ty, s.Linear)
		}
	case hir.SkExpr:
		c.synth(s.Expr)
	}
}

func (c *Checker) synthStructLit(e *hir.Expr) types.TypeID {
	sd := c.m.StructByDef(e.StructDef)
	if sd == nil {
		for _, f := range e.Fields {
			c.synth(f.Value)
		}
		return c.errType()
	}
	args := make([]types.TypeID, len(sd.TypeParams))
	env := make(map[types.TypeVarID]types.TypeID, len(sd.TypeParams))
	for i, v := range sd.TypeParams {
		args[i] = c.freshVar()
		env[v] = args[i]
	}
	covered := make([]bool, len(sd.Fields))
	for _, f := range e.Fields {
		if f.Index >= 0 && f.Index < len(sd.Fields) {
			covered[f.Index] = true
			c.check(f.Value, c.substituteVars(sd.Fields[f.Index].Type, env))
		} else {
			c.synth(f.Value)
		}
	}
	for i, got := range covered {
		if !got {
			c.bag.Add(diag.Error(diag.TypeMismatch, e.Span,
				"missing field `"+sd.Fields[i].Name+"` in initializer of `"+sd.Name+"`"))
		}
	}
	return c.tin.New(types.Type{Kind: types.KindNamed, Def: e.StructDef, Args: args})
}

func (c *Checker) synthClosure(e *hir.Expr) types.TypeID {
	params := make([]types.TypeID, len(e.Params))
	for i, p := range e.Params {
		params[i] = p.Type
		c.locals[p.Local] = p.Type
		c.usage.declare(p.Local, hir.LetUnrestricted, e.Span)
	}
	ret := e.Ret
	if ret == types.NoTypeID {
		ret = c.freshVar()
	}
	// The closure's own effects flow into the enclosing ambient row: the
	// closure may be invoked in this scope, so the conservative row is the
	// body's row.
	c.check(e.Body, ret)

	// Capture classification (§4.3.7): linear/affine captures must move;
	// moving consumes the captured local at the closure's creation site.
	e.MovedCaptures = make([]bool, len(e.Captures))
	for i, cap := range e.Captures {
		ty := c.subst.Resolve(c.tin, c.locals[cap])
		k := c.tin.Get(ty).Kind
		if k == types.KindLinear || k == types.KindAffine {
			e.MovedCaptures[i] = true
			c.usage.use(cap, e.Span)
		}
	}
	return c.tin.New(types.Type{Kind: types.KindFn, Params: params, Ret: ret, Effect: c.supply.FreshRow()})
}

func (c *Checker) synthFor(e *hir.Expr) types.TypeID {
	iterTy := c.subst.Resolve(c.tin, c.synth(e.ForIter))
	elem := c.iteratedElement(iterTy)
	c.locals[e.ForVar] = elem
	c.usage.declare(e.ForVar, hir.LetUnrestricted, e.Span)
	// Iterating a value requires an Iterator implementation (§4.4: the
	// `for` desugaring drives the prelude Iterator trait).
	c.traits.require(iterTy, c.m.Prelude.Iterator, e.Span)
	c.inLoop++
	c.check(e.ForBody, c.tin.Builtins.Unit)
	c.inLoop--
	return c.tin.Builtins.Unit
}

// iteratedElement extracts the element type a `for` loop binds: ranges and
// arrays/slices are built in; anything else gets a fresh variable solved
// through its Iterator impl.
func (c *Checker) iteratedElement(iterTy types.TypeID) types.TypeID {
	t := c.tin.Get(iterTy)
	switch t.Kind {
	case types.KindNamed:
		if t.Def == c.m.Prelude.Range || t.Def == c.m.Prelude.RangeInclusive {
			if len(t.Args) > 0 {
				return t.Args[0]
			}
		}
	case types.KindArrayFixed, types.KindSlice:
		return t.Elem
	}
	return c.freshVar()
}

func (c *Checker) synthPerform(e *hir.Expr) types.TypeID {
	eff := c.m.EffectByDef(e.Effect)
	if eff == nil || e.OpIndex < 0 || e.OpIndex >= len(eff.Ops) {
		for _, a := range e.PerformArgs {
			c.synth(a)
		}
		return c.errType()
	}
	op := eff.Ops[e.OpIndex]
	if len(e.PerformArgs) != len(op.Params) {
		c.bag.Add(diag.Error(diag.TypeArityMismatch, e.Span,
			"operation `"+op.Name+"` takes "+itoa(len(op.Params))+" arguments"))
	}
	for i, a := range e.PerformArgs {
		if i < len(op.Params) {
			c.check(a, op.Params[i].Type)
		} else {
			c.synth(a)
		}
	}
	// The performed effect joins the ambient row (§4.3.3).
	c.ambient.add(e.Effect)
	if op.NonResumptive {
		return c.tin.Builtins.Never
	}
	return op.RetType
}

func (c *Checker) synthHandle(e *hir.Expr) types.TypeID {
	for _, a := range e.HandlerArgs {
		c.synth(a)
	}
	var handled def.DefID
	if h := c.m.HandlerByDef(e.Handler); h != nil {
		handled = h.Effect
	} else if e.Handler != def.NoDefID {
		c.bag.Add(diag.Error(diag.ResUnresolvedName, e.Span,
			"`with` requires a handler definition"))
	}

	// The body's row accumulates in its own scope; the handled effect is
	// subtracted on exit and the remainder escapes to the enclosing scope
	// (§4.3.3: handler scope masking).
	inner := &rowScope{parent: c.ambient}
	c.ambient = inner
	result := c.synth(e.HandleBody)
	c.ambient = inner.parent
	for _, perf := range inner.effects {
		if perf != handled {
			c.ambient.add(perf)
		}
	}
	return result
}

func (c *Checker) synthResume(e *hir.Expr) types.TypeID {
	if c.handlerResume == nil {
		c.bag.Add(diag.Error(diag.EffectMismatch, e.Span,
			"`resume` is only legal inside a handler clause"))
		if e.ResumeValue.IsValid() {
			c.synth(e.ResumeValue)
		}
		return c.errType()
	}
	if e.ResumeValue.IsValid() {
		c.check(e.ResumeValue, c.handlerResume.valueType)
	} else {
		c.Unify(c.tin.Builtins.Unit, c.handlerResume.valueType, e.Span)
	}
	c.handlerResume.used = true
	return c.tin.Builtins.Never
}

// branchPair runs two branch thunks under forked usage contexts and merges
// their residues (§4.3.8: branch joins require equivalent usage residues).
func (c *Checker) branchPair(thenFn, elseFn func(), sp source.Span) {
	base := c.usage.snapshot()
	thenFn()
	thenOut := c.usage.snapshot()
	c.usage.restore(base)
	elseFn()
	elseOut := c.usage.snapshot()
	c.usage.mergeBranches(sp, thenOut, elseOut)
}
