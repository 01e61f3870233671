package infer

import (
	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/hir"
	"blood/internal/source"
	"blood/internal/types"
)

// Checker threads all inference state through one module's functions. It
// mutates the HIR in place (type slot filling, §3.9) and accumulates
// diagnostics; it never aborts on a type error — unresolvable expressions
// receive the error type and checking continues (§5, failure isolation).
type Checker struct {
	m      *hir.Module
	tin    *types.Interner
	supply *types.VarSupply
	bag    *diag.Bag

	subst  *Subst
	traits *traitSolver

	// Lazily memoized syntactic effect rows for functions that declared
	// none; see effectSummary.
	summaries   map[def.DefID]types.EffectRow
	summarizing map[def.DefID]bool

	// Per-function state.
	fn      *hir.Func
	locals  map[hir.LocalID]types.TypeID
	ambient *rowScope
	usage   *usageCtx
	inLoop  int
	// handlerResume is non-nil while checking a handler clause body, where
	// `resume` is legal; it carries the type resume's argument must have.
	handlerResume *resumeCtx
}

type resumeCtx struct {
	valueType types.TypeID // type the operation returns to the performer
	used      bool
}

// rowScope accumulates the effects performed inside one handle scope
// (§4.3.3). Scopes nest: a handle expression pushes a scope, subtracts its
// handled effect when popping, and merges the remainder outward.
type rowScope struct {
	effects []def.DefID
	parent  *rowScope
}

func (r *rowScope) add(e def.DefID) {
	if e == def.NoDefID {
		return
	}
	for _, have := range r.effects {
		if have == e {
			return
		}
	}
	r.effects = append(r.effects, e)
}

func (r *rowScope) addRow(row types.EffectRow) {
	for _, e := range row.Effects {
		r.add(e)
	}
}

// Check runs type-and-effect inference over every function in the module,
// in source order (§5: deterministic diagnostic order).
func Check(m *hir.Module, tin *types.Interner, supply *types.VarSupply, bag *diag.Bag) {
	c := &Checker{
		m:      m,
		tin:    tin,
		supply: supply,
		bag:    bag,
		subst:  NewSubst(),
	}
	c.traits = newTraitSolver(c)

	for _, fn := range m.Funcs {
		c.checkFunc(fn)
	}
	for i := range m.Handlers {
		c.checkHandler(&m.Handlers[i])
	}
	for i := range m.Consts {
		c.checkConst(&m.Consts[i])
	}
}

func (c *Checker) checkFunc(fn *hir.Func) {
	if !fn.Body.IsValid() {
		return
	}
	c.fn = fn
	c.locals = make(map[hir.LocalID]types.TypeID, fn.NumLocals)
	c.ambient = &rowScope{}
	c.usage = newUsageCtx(c)
	c.handlerResume = nil

	for _, p := range fn.Params {
		c.locals[p.Local] = p.Type
		c.usage.declareParam(p)
	}

	c.check(fn.Body, fn.Ret)

	// The declared row must cover everything the body performs (§4.3.3,
	// §8: the declared effect row is a superset of the inferred row).
	inferred := types.EffectRow{Effects: c.ambient.effects}
	if fn.EffectDeclared {
		declared := c.subst.ResolveRow(fn.Effect)
		_, open := declared.TailVar()
		for _, e := range inferred.Effects {
			if !declared.Contains(e) && !open {
				c.bag.Add(diag.Error(diag.EffectMismatch, fn.Span,
					"function `"+fn.Name+"` performs effect `"+c.m.Defs.Get(e).Name+
						"` not covered by its declared effect row "+c.rowText(declared)))
			}
		}
	} else {
		// Undeclared rows default to exactly what the body performs.
		fn.Effect = inferred
	}

	c.usage.finishScope(fn.Span)

	// Resolve every filled type slot to its representative so later passes
	// never see a bound variable (§8: unification confluence makes the
	// binding order irrelevant here).
	c.resolveSlots(fn.Body)
}

// checkHandler checks each clause body of a handler declaration. Inside a
// clause, `resume` is in scope and takes the operation's return type.
func (c *Checker) checkHandler(h *hir.HandlerDecl) {
	eff := c.m.EffectByDef(h.Effect)
	for i := range h.Clauses {
		clause := &h.Clauses[i]
		if !clause.Body.IsValid() {
			continue
		}
		c.fn = &hir.Func{Name: h.Name + "." + clause.OpName, Span: clause.Span, Ret: c.tin.Builtins.Unit}
		c.locals = make(map[hir.LocalID]types.TypeID, 8)
		c.ambient = &rowScope{}
		c.usage = newUsageCtx(c)

		var op *hir.EffectOp
		if eff != nil && clause.OpIndex >= 0 && clause.OpIndex < len(eff.Ops) {
			op = &eff.Ops[clause.OpIndex]
		}
		for pi, p := range clause.Params {
			ty := p.Type
			if op != nil && pi < len(op.Params) {
				c.Unify(ty, op.Params[pi].Type, p.Span)
			}
			c.locals[p.Local] = ty
			c.usage.declareParam(p)
		}
		resumeTy := c.tin.Builtins.Unit
		if op != nil {
			resumeTy = op.RetType
		}
		c.handlerResume = &resumeCtx{valueType: resumeTy}
		c.synth(clause.Body)
		c.handlerResume = nil
		c.usage.finishScope(clause.Span)
		c.resolveSlots(clause.Body)
	}
}

func (c *Checker) checkConst(cd *hir.ConstDecl) {
	if !cd.Value.IsValid() {
		return
	}
	c.fn = &hir.Func{Name: cd.Name, Ret: c.tin.Builtins.Unit}
	c.locals = make(map[hir.LocalID]types.TypeID, 4)
	c.ambient = &rowScope{}
	c.usage = newUsageCtx(c)
	c.check(cd.Value, cd.Type)
	cd.Type = c.subst.ResolveDeep(c.tin, cd.Type)
	c.resolveSlots(cd.Value)
}

func (c *Checker) mismatch(a, b types.TypeID, sp source.Span, report bool) bool {
	if report {
		c.bag.Add(diag.Error(diag.TypeMismatch, sp,
			"mismatched types: expected `"+types.Label(c.tin, b)+"`, found `"+types.Label(c.tin, a)+"`"))
	}
	return false
}

func (c *Checker) arityMismatch(a, b types.TypeID, sp source.Span, report bool) bool {
	if report {
		c.bag.Add(diag.Error(diag.TypeArityMismatch, sp,
			"arity mismatch between `"+types.Label(c.tin, a)+"` and `"+types.Label(c.tin, b)+"`"))
	}
	return false
}

func (c *Checker) errType() types.TypeID { return c.tin.Builtins.Error }

func (c *Checker) freshVar() types.TypeID { return c.supply.FreshVar(c.tin) }

// substituteVars rewrites t, replacing each variable present in the map by
// its replacement. Used to instantiate declaration type parameters
// (struct/enum fields at a Named use site, generic function signatures).
func (c *Checker) substituteVars(t types.TypeID, env map[types.TypeVarID]types.TypeID) types.TypeID {
	if t == types.NoTypeID || len(env) == 0 {
		return t
	}
	tt := c.tin.Get(t)
	switch tt.Kind {
	case types.KindVar:
		if rep, ok := env[tt.Var]; ok {
			return rep
		}
		return t
	case types.KindTuple, types.KindNamed:
		if len(tt.Args) == 0 {
			return t
		}
		nt := tt
		nt.Args = make([]types.TypeID, len(tt.Args))
		for i, a := range tt.Args {
			nt.Args[i] = c.substituteVars(a, env)
		}
		return c.tin.New(nt)
	case types.KindArrayFixed, types.KindSlice, types.KindRef, types.KindPtr, types.KindLinear, types.KindAffine:
		nt := tt
		nt.Elem = c.substituteVars(tt.Elem, env)
		return c.tin.New(nt)
	case types.KindRecord:
		nt := tt
		nt.Fields = make([]types.RecordField, len(tt.Fields))
		for i, f := range tt.Fields {
			nt.Fields[i] = types.RecordField{Label: f.Label, Type: c.substituteVars(f.Type, env)}
		}
		return c.tin.New(nt)
	case types.KindFn:
		nt := tt
		nt.Params = make([]types.TypeID, len(tt.Params))
		for i, p := range tt.Params {
			nt.Params[i] = c.substituteVars(p, env)
		}
		nt.Ret = c.substituteVars(tt.Ret, env)
		return c.tin.New(nt)
	case types.KindForall:
		nt := tt
		nt.Body = c.substituteVars(tt.Body, env)
		return c.tin.New(nt)
	default:
		return t
	}
}

// instantiateSignature produces fresh-variable instances of a generic
// function's parameter and return types (§4.3.1 instantiation).
func (c *Checker) instantiateSignature(fn *hir.Func) (params []types.TypeID, ret types.TypeID, row types.EffectRow) {
	env := make(map[types.TypeVarID]types.TypeID, len(fn.TypeParams))
	for _, tp := range fn.TypeParams {
		env[tp.Var] = c.freshVar()
	}
	params = make([]types.TypeID, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = c.substituteVars(p.Type, env)
	}
	ret = c.substituteVars(fn.Ret, env)
	row = fn.Effect
	return params, ret, row
}

// namedEnv builds the substitution from a declaration's type parameters to
// the arguments of a Named(def, args) use, padding missing arguments with
// fresh variables so partially annotated code still infers.
func (c *Checker) namedEnv(tparams []types.TypeVarID, args []types.TypeID) map[types.TypeVarID]types.TypeID {
	env := make(map[types.TypeVarID]types.TypeID, len(tparams))
	for i, v := range tparams {
		if i < len(args) {
			env[v] = args[i]
		} else {
			env[v] = c.freshVar()
		}
	}
	return env
}

// resolveSlots walks an expression tree after checking and replaces every
// type slot by its deep representative.
func (c *Checker) resolveSlots(root hir.ExprID) {
	var walkExpr func(id hir.ExprID)
	var walkPattern func(p *hir.Pattern)
	seen := make(map[hir.ExprID]bool)

	walkPattern = func(p *hir.Pattern) {
		if p == nil {
			return
		}
		if p.Type != types.NoTypeID {
			p.Type = c.subst.ResolveDeep(c.tin, p.Type)
		}
		walkPattern(p.SubPat)
		for i := range p.Elems {
			walkPattern(&p.Elems[i])
		}
		for i := range p.Fields {
			walkPattern(&p.Fields[i].Pattern)
		}
		for i := range p.Positional {
			walkPattern(&p.Positional[i])
		}
	}

	walkExpr = func(id hir.ExprID) {
		if !id.IsValid() || seen[id] {
			return
		}
		seen[id] = true
		e := c.m.Exprs.Get(id)
		if e.Type != types.NoTypeID {
			e.Type = c.subst.ResolveDeep(c.tin, e.Type)
		}
		walkExpr(e.LHS)
		walkExpr(e.RHS)
		walkExpr(e.Callee)
		for _, a := range e.Args {
			walkExpr(a)
		}
		walkExpr(e.Base)
		walkExpr(e.Index)
		walkExpr(e.Cond)
		walkExpr(e.Then)
		walkExpr(e.Else)
		walkExpr(e.Scrutinee)
		for i := range e.Arms {
			walkPattern(&e.Arms[i].Pattern)
			walkExpr(e.Arms[i].Guard)
			walkExpr(e.Arms[i].Body)
		}
		for _, s := range e.Stmts {
			st := c.m.Stmts.Get(s)
			walkPattern(st.Pattern)
			walkExpr(st.Init)
			walkExpr(st.Expr)
		}
		walkExpr(e.Tail)
		walkExpr(e.Body)
		for _, el := range e.Elems {
			walkExpr(el)
		}
		for _, f := range e.Fields {
			walkExpr(f.Value)
		}
		walkExpr(e.Target)
		walkExpr(e.Value)
		walkExpr(e.ForIter)
		walkExpr(e.ForBody)
		walkExpr(e.LoopBody)
		for _, a := range e.PerformArgs {
			walkExpr(a)
		}
		for _, a := range e.HandlerArgs {
			walkExpr(a)
		}
		walkExpr(e.HandleBody)
		walkExpr(e.ResumeValue)
		walkExpr(e.UncheckedBody)
	}
	walkExpr(root)
}
