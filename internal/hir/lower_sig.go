package hir

import (
	"strings"

	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/types"
)

func pathText(path []string) string { return strings.Join(path, "::") }

// resolvePathDef resolves a multi-segment path to a top-level definition.
// The core compiles one file (§6.1), so only the final segment matters; a
// `mod::Name` path written for a future multi-file world resolves by its
// last segment.
func (l *lowerer) resolvePathDef(path []string) (def.DefID, bool) {
	if len(path) == 0 {
		return def.NoDefID, false
	}
	id, ok := l.globals[path[len(path)-1]]
	return id, ok
}

// builtinType maps primitive spellings to their interned TypeIDs.
func (l *lowerer) builtinType(name string) (types.TypeID, bool) {
	b := l.tin.Builtins
	switch name {
	case "bool":
		return b.Bool, true
	case "str":
		return b.Str, true
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

// lowerTypeAnnot resolves an optional annotation: ast.NoTypeID (nothing
// written) becomes a fresh inference variable.
func (l *lowerer) lowerTypeAnnot(id ast.TypeID) types.TypeID {
	if !id.IsValid() {
		return l.supply.FreshVar(l.tin)
	}
	return l.lowerType(id)
}

// lowerType resolves a surface type expression to a semantic TypeID
// (§3.6). Unresolved names produce the error type so inference continues
// with degraded data (§7).
func (l *lowerer) lowerType(id ast.TypeID) types.TypeID {
	te := l.in.Types.Get(id)
	if te == nil {
		return l.tin.Builtins.Error
	}
	switch te.Kind {
	case ast.TyInfer:
		return l.supply.FreshVar(l.tin)
	case ast.TyUnit:
		return l.tin.Builtins.Unit
	case ast.TyNever:
		return l.tin.Builtins.Never
	case ast.TyNamed:
		return l.lowerNamedType(te)
	case ast.TyTuple:
		args := make([]types.TypeID, len(te.Elems))
		for i, e := range te.Elems {
			args[i] = l.lowerType(e)
		}
		return l.tin.New(types.Type{Kind: types.KindTuple, Args: args})
	case ast.TyArrayFixed:
		count := l.constArrayLen(te.Size)
		return l.tin.New(types.Type{Kind: types.KindArrayFixed, Elem: l.lowerType(te.Elem), Count: count})
	case ast.TySlice:
		return l.tin.New(types.Type{Kind: types.KindSlice, Elem: l.lowerType(te.Elem)})
	case ast.TyRef:
		return l.tin.New(types.Type{Kind: types.KindRef, Elem: l.lowerType(te.Elem), Mutable: te.Mutable})
	case ast.TyPtr:
		return l.tin.New(types.Type{Kind: types.KindPtr, Elem: l.lowerType(te.Elem), Mutable: te.Mutable})
	case ast.TyFn:
		params := make([]types.TypeID, len(te.Params))
		for i, p := range te.Params {
			params[i] = l.lowerType(p)
		}
		var ret types.TypeID
		if te.Ret.IsValid() {
			ret = l.lowerType(te.Ret)
		} else {
			ret = l.tin.Builtins.Unit
		}
		row, _ := l.lowerEffectRow(te.EffectRow)
		return l.tin.New(types.Type{Kind: types.KindFn, Params: params, Ret: ret, Effect: row})
	case ast.TyRecord:
		fields := make([]types.RecordField, len(te.Fields))
		for i, f := range te.Fields {
			fields[i] = types.RecordField{Label: f.Label, Type: l.lowerType(f.Type)}
		}
		var rowVar types.TypeVarID
		if te.RowVar != "" {
			rowVar = l.namedRowVar(te.RowVar)
		}
		return l.tin.New(types.Type{Kind: types.KindRecord, Fields: fields, RowVar: rowVar})
	case ast.TyLinear:
		// Ownership qualifiers are outermost and never nest (§3.6).
		inner := l.lowerType(te.Inner)
		return l.tin.New(types.Type{Kind: types.KindLinear, Elem: stripOwnership(l.tin, inner)})
	case ast.TyAffine:
		inner := l.lowerType(te.Inner)
		return l.tin.New(types.Type{Kind: types.KindAffine, Elem: stripOwnership(l.tin, inner)})
	default:
		return l.tin.Builtins.Error
	}
}

func stripOwnership(tin *types.Interner, id types.TypeID) types.TypeID {
	t := tin.Get(id)
	if t.Kind == types.KindLinear || t.Kind == types.KindAffine {
		return t.Elem
	}
	return id
}

func (l *lowerer) lowerNamedType(te *ast.TypeExpr) types.TypeID {
	if len(te.Path) == 1 {
		name := te.Path[0]
		if ty, ok := l.typeParams[name]; ok {
			return ty
		}
		if ty, ok := l.builtinType(name); ok {
			return ty
		}
	}
	d, ok := l.resolvePathDef(te.Path)
	if !ok {
		l.bag.Add(diag.Error(diag.ResUnresolvedName, te.Span,
			"cannot find type `"+pathText(te.Path)+"` in this scope"))
		return l.tin.Builtins.Error
	}
	args := make([]types.TypeID, len(te.Args))
	for i, a := range te.Args {
		args[i] = l.lowerType(a)
	}
	return l.tin.New(types.Type{Kind: types.KindNamed, Def: d, Args: args})
}

// constArrayLen evaluates a `[T; N]` length expression. Only integer
// literals are accepted; a full const evaluator is not part of the core.
func (l *lowerer) constArrayLen(size ast.ExprID) uint32 {
	if !size.IsValid() {
		return 0
	}
	e := l.in.Exprs.Get(size)
	if e == nil || e.Kind != ast.ExIntLit {
		sp := l.in.Exprs.Get(size).Span
		l.bag.Add(diag.Error(diag.TypeMismatch, sp,
			"array length must be an integer literal"))
		return 0
	}
	return uint32(e.IntVal)
}

// namedRowVar maps a row-variable spelling (e.g. the `rho` of
// `{x: i32 | rho}`) to one TypeVarID per signature, so two mentions of the
// same name inside one signature share a variable.
func (l *lowerer) namedRowVar(name string) types.TypeVarID {
	if v, ok := l.rowVars[name]; ok {
		return v
	}
	v := l.supply.Fresh()
	l.rowVars[name] = v
	return v
}

// lowerEffectRow resolves a declared effect row (§3.7). A nil row means
// the function did not declare one: inference defaults it to an open fresh
// row (§4.3.3), so declared=false and the returned row carries a fresh
// tail. `/ {}` is the explicit pure row.
func (l *lowerer) lowerEffectRow(row *ast.EffectRowExpr) (types.EffectRow, bool) {
	if row == nil {
		return l.supply.FreshRow(), false
	}
	out := types.EffectRow{}
	for _, name := range row.Effects {
		d, ok := l.globals[name]
		if !ok || l.m.Defs.Get(d).Kind != def.KindEffect {
			l.bag.Add(diag.Error(diag.ResUnresolvedName, row.Span,
				"cannot find effect `"+name+"` in this scope"))
			continue
		}
		if !out.Contains(d) {
			out.Effects = append(out.Effects, d)
		}
	}
	if row.TailVar != "" {
		out.Tail = []types.TypeVarID{l.namedRowVar(row.TailVar)}
	}
	return out, true
}
