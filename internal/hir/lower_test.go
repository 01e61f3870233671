package hir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/hir"
	"blood/internal/parser"
	"blood/internal/source"
	"blood/internal/types"
)

func lowerSrc(t *testing.T, src string) (*hir.Module, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(0)
	res := parser.ParseFile(0, []byte(src), bag)
	m := hir.Lower(hir.LowerInput{
		File:  res.File,
		Files: res.Files,
		Items: res.Items,
		Stmts: res.Stmts,
		Exprs: res.Exprs,
		Pats:  res.Pats,
		Types: res.Types,
	}, def.NewTable(), source.NewInterner(), types.NewInterner(), types.NewVarSupply(), bag)
	return m, bag
}

func TestLowerAssignsDefIDsInSourceOrder(t *testing.T) {
	m, bag := lowerSrc(t, `
fn a() {}
struct B { x: i32 }
fn c() {}
`)
	require.False(t, bag.HasErrors())

	fa := m.FindFunc("a")
	fc := m.FindFunc("c")
	sb := m.Structs[len(m.Structs)-1]
	require.NotNil(t, fa)
	require.NotNil(t, fc)
	require.Equal(t, "B", sb.Name)
	// Monotone assignment in collection order (§3.3).
	require.Less(t, fa.Def, sb.Def)
	require.Less(t, sb.Def, fc.Def)
}

func TestForwardReferenceResolves(t *testing.T) {
	m, bag := lowerSrc(t, `
fn caller() { callee() }
fn callee() {}
`)
	require.False(t, bag.HasErrors())
	require.NotNil(t, m.FindFunc("caller"))
}

func TestUnresolvedNameDiagnoses(t *testing.T) {
	_, bag := lowerSrc(t, `fn f() { missing() }`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.ResUnresolvedName {
			found = true
		}
	}
	require.True(t, found)
}

func TestDuplicateTypeDefinitionDiagnoses(t *testing.T) {
	_, bag := lowerSrc(t, `
struct S { x: i32 }
struct S { y: i32 }
`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.ResDuplicateDef {
			found = true
		}
	}
	require.True(t, found)
}

func TestSameNameFunctionsFormOverloadSet(t *testing.T) {
	m, bag := lowerSrc(t, `
fn f(x: i32) {}
fn f(x: bool) {}
`)
	require.False(t, bag.HasErrors())
	require.Len(t, m.Overloads["f"], 2)
}

func TestCompoundAssignSharesTargetNode(t *testing.T) {
	m, bag := lowerSrc(t, `
fn f() {
	let mut x = 1
	x += 2
}
`)
	require.False(t, bag.HasErrors())

	// Find the lowered assign; its Value must be a binary whose LHS is the
	// very same node as the assignment target (read-once, §4.4 item 3).
	found := false
	for id := hir.ExprID(1); id <= hir.ExprID(m.Exprs.Arena.Len()); id++ {
		e := m.Exprs.Get(id)
		if e.Kind != hir.EkAssign {
			continue
		}
		v := m.Exprs.Get(e.Value)
		if v != nil && v.Kind == hir.EkBinary && v.LHS == e.Target {
			found = true
		}
	}
	require.True(t, found, "compound assignment must share the target node")
}

func TestPipelineFlattensToCall(t *testing.T) {
	m, bag := lowerSrc(t, `
fn g(a: i32, b: i32) -> i32 { a }
fn f() { 1 |> g(2) }
`)
	require.False(t, bag.HasErrors())
	// `1 |> g(2)` lowers as g(1, 2): a dispatch call with two args.
	found := false
	for id := hir.ExprID(1); id <= hir.ExprID(m.Exprs.Arena.Len()); id++ {
		e := m.Exprs.Get(id)
		if e.Kind == hir.EkCall && len(e.Dispatch) > 0 && len(e.Args) == 2 {
			found = true
		}
	}
	require.True(t, found)
}

func TestQuestionDesugarsToMatch(t *testing.T) {
	m, bag := lowerSrc(t, `
fn fallible() -> Result<i32, str> { Ok(1) }
fn f() -> Result<i32, str> {
	let v = fallible()?
	Ok(v)
}
`)
	require.False(t, bag.HasErrors())

	// The `?` becomes a two-arm match over the prelude Result whose error
	// arm returns.
	found := false
	for id := hir.ExprID(1); id <= hir.ExprID(m.Exprs.Arena.Len()); id++ {
		e := m.Exprs.Get(id)
		if e.Kind != hir.EkMatch || len(e.Arms) != 2 {
			continue
		}
		ok := e.Arms[0].Pattern
		errArm := e.Arms[1]
		if ok.Kind == hir.PkVariant && ok.Def == m.Prelude.Result &&
			m.Exprs.Get(errArm.Body).Kind == hir.EkReturn {
			found = true
		}
	}
	require.True(t, found)
}

func TestMethodCallLowersToDispatchCall(t *testing.T) {
	m, bag := lowerSrc(t, `
struct P { x: i32 }
fn norm(p: P) -> i32 { p.x }
fn f(p: P) -> i32 { p.norm() }
`)
	require.False(t, bag.HasErrors())
	// p.norm() becomes norm(p): one dispatch call with the receiver as the
	// first argument.
	found := false
	for id := hir.ExprID(1); id <= hir.ExprID(m.Exprs.Arena.Len()); id++ {
		e := m.Exprs.Get(id)
		if e.Kind == hir.EkCall && len(e.Dispatch) == 1 && len(e.Args) == 1 && !e.Callee.IsValid() {
			found = true
		}
	}
	require.True(t, found)
}

func TestClosureRecordsCaptures(t *testing.T) {
	m, bag := lowerSrc(t, `
fn f() {
	let a = 1
	let g = |x: i32| x + a
	g(2)
}
`)
	require.False(t, bag.HasErrors())
	var closure *hir.Expr
	for id := hir.ExprID(1); id <= hir.ExprID(m.Exprs.Arena.Len()); id++ {
		e := m.Exprs.Get(id)
		if e.Kind == hir.EkClosure {
			closure = e
		}
	}
	require.NotNil(t, closure)
	require.Len(t, closure.Captures, 1, "the closure must capture `a`")
}

func TestPerformResolvesOperationIndex(t *testing.T) {
	m, bag := lowerSrc(t, `
effect State {
	fn get() -> i32
	fn set(v: i32)
}
fn f() { perform State.set(1) }
`)
	require.False(t, bag.HasErrors())
	var perform *hir.Expr
	for id := hir.ExprID(1); id <= hir.ExprID(m.Exprs.Arena.Len()); id++ {
		e := m.Exprs.Get(id)
		if e.Kind == hir.EkPerform {
			perform = e
		}
	}
	require.NotNil(t, perform)
	require.Equal(t, 1, perform.OpIndex)
	require.Equal(t, "State", m.Defs.Get(perform.Effect).Name)
}

func TestLoweringIdempotentOnDesugaredForms(t *testing.T) {
	// A source already in core form lowers to the same structural shape
	// when lowered twice from scratch (§8: idempotence — the second run
	// has nothing further to desugar).
	src := `
fn f(c: bool) -> i32 {
	if c { 1 } else { 2 }
}
`
	m1, bag1 := lowerSrc(t, src)
	m2, bag2 := lowerSrc(t, src)
	require.False(t, bag1.HasErrors())
	require.False(t, bag2.HasErrors())

	var shape func(m *hir.Module, id hir.ExprID) []hir.ExprKind
	shape = func(m *hir.Module, id hir.ExprID) []hir.ExprKind {
		if !id.IsValid() {
			return nil
		}
		e := m.Exprs.Get(id)
		out := []hir.ExprKind{e.Kind}
		for _, sub := range []hir.ExprID{e.Cond, e.Then, e.Else, e.Tail, e.LHS, e.RHS} {
			out = append(out, shape(m, sub)...)
		}
		for _, s := range e.Stmts {
			st := m.Stmts.Get(s)
			out = append(out, shape(m, st.Init)...)
			out = append(out, shape(m, st.Expr)...)
		}
		return out
	}
	f1 := m1.FindFunc("f")
	f2 := m2.FindFunc("f")
	require.Equal(t, shape(m1, f1.Body), shape(m2, f2.Body))
}

func TestHandlerBindsEffectAndClause(t *testing.T) {
	m, bag := lowerSrc(t, `
effect State {
	fn get() -> i32
}
handler Memo for State {
	fn get() { resume(7) }
}
`)
	require.False(t, bag.HasErrors())
	require.Len(t, m.Handlers, 1)
	h := m.Handlers[0]
	require.Equal(t, "State", m.Defs.Get(h.Effect).Name)
	require.Len(t, h.Clauses, 1)
	require.Equal(t, 0, h.Clauses[0].OpIndex)
}

func TestContentHashStableUnderRename(t *testing.T) {
	srcA := `fn f(x: i32) -> i32 { x + 1 }`
	srcB := `fn f(renamed: i32) -> i32 { renamed + 1 }`

	mA, _ := lowerSrc(t, srcA)
	mB, _ := lowerSrc(t, srcB)
	hir.ComputeHashes(mA)
	hir.ComputeHashes(mB)

	hA := mA.Defs.Get(mA.FindFunc("f").Def).Hash
	hB := mB.Defs.Get(mB.FindFunc("f").Def).Hash
	require.Equal(t, hA, hB, "alpha-renaming must not change the content address")

	mC, _ := lowerSrc(t, `fn f(x: i32) -> i32 { x + 2 }`)
	hir.ComputeHashes(mC)
	hC := mC.Defs.Get(mC.FindFunc("f").Def).Hash
	require.NotEqual(t, hA, hC, "a changed body must change the content address")
}
