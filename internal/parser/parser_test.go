package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blood/internal/ast"
	"blood/internal/diag"
)

func parseSrc(t *testing.T, src string) Result {
	t.Helper()
	bag := diag.NewBag(0)
	res := ParseFile(0, []byte(src), bag)
	return res
}

func TestParseEmptyFile(t *testing.T) {
	res := parseSrc(t, "")
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	require.Empty(t, f.Items)
}

func TestParseTrivialMain(t *testing.T) {
	res := parseSrc(t, "fn main() {}")
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	require.Len(t, f.Items, 1)
	item := res.Items.Get(f.Items[0])
	require.Equal(t, ast.ItFn, item.Kind)
	require.Equal(t, "main", item.Name)
	require.True(t, item.FnBody.IsValid())
}

func TestParseIdentityFn(t *testing.T) {
	res := parseSrc(t, "fn id<T>(x: T) -> T { x }")
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	item := res.Items.Get(f.Items[0])
	require.Equal(t, "id", item.Name)
	require.Len(t, item.FnSig.TypeParams, 1)
	require.Len(t, item.FnSig.Params, 1)
	require.True(t, item.FnSig.Ret.IsValid())
}

func TestParsePerformExpr(t *testing.T) {
	res := parseSrc(t, "fn f() -> i32 { perform State.get() }")
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	item := res.Items.Get(f.Items[0])
	body := res.Exprs.Get(item.FnBody)
	require.Equal(t, ast.ExBlock, body.Kind)
	tail := res.Exprs.Get(body.Tail)
	require.Equal(t, ast.ExPerform, tail.Kind)
	require.Equal(t, "State", tail.EffectName)
	require.Equal(t, "get", tail.OpName)
}

func TestParseEffectRowOnFn(t *testing.T) {
	res := parseSrc(t, "fn f() -> i32 / {} { 0 }")
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	item := res.Items.Get(f.Items[0])
	require.NotNil(t, item.FnSig.EffectRow)
	require.Empty(t, item.FnSig.EffectRow.Effects)
	require.Equal(t, "", item.FnSig.EffectRow.TailVar)
}

func TestParseMatchExhaustivenessShape(t *testing.T) {
	res := parseSrc(t, `fn f(x: Option<i32>) -> i32 { match x { Some(y) => y } }`)
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	item := res.Items.Get(f.Items[0])
	body := res.Exprs.Get(item.FnBody)
	m := res.Exprs.Get(body.Tail)
	require.Equal(t, ast.ExMatch, m.Kind)
	require.Len(t, m.Arms, 1)
	pat := res.Pats.Get(m.Arms[0].Pattern)
	require.Equal(t, ast.PatVariant, pat.Kind)
	require.Equal(t, "Some", pat.Variant)
}

func TestParseLinearLet(t *testing.T) {
	res := parseSrc(t, `fn f() { let linear h: Handle = acquire(); }`)
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	item := res.Items.Get(f.Items[0])
	body := res.Exprs.Get(item.FnBody)
	require.Len(t, body.Stmts, 1)
	letStmt := res.Stmts.Get(body.Stmts[0])
	require.Equal(t, ast.StLet, letStmt.Kind)
	require.Equal(t, ast.LetLinear, letStmt.Linearity)
}

func TestParsePipelineDesugarsToCall(t *testing.T) {
	res := parseSrc(t, `fn f() { a |> g(b) }`)
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	item := res.Items.Get(f.Items[0])
	body := res.Exprs.Get(item.FnBody)
	call := res.Exprs.Get(body.Tail)
	require.Equal(t, ast.ExCall, call.Kind)
	require.Len(t, call.Args, 2)
}

func TestParseChainedComparisonIsError(t *testing.T) {
	res := parseSrc(t, `fn f() { a < b < c }`)
	require.True(t, res.Bag.Len() > 0)
	found := false
	for _, d := range res.Bag.Items() {
		if d.Code == diag.SynChainedCompare {
			found = true
		}
	}
	require.True(t, found)
}

func TestParseUncheckedBadCheckName(t *testing.T) {
	res := parseSrc(t, `fn f() { unchecked(bogus) { 1 } }`)
	found := false
	for _, d := range res.Bag.Items() {
		if d.Code == diag.SynBadSafetyCheck {
			found = true
		}
	}
	require.True(t, found)
}

func TestParseHandleExpr(t *testing.T) {
	res := parseSrc(t, `fn f() -> i32 { with StateHandler handle { perform State.get() } }`)
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	item := res.Items.Get(f.Items[0])
	body := res.Exprs.Get(item.FnBody)
	h := res.Exprs.Get(body.Tail)
	require.Equal(t, ast.ExHandle, h.Kind)
	require.Equal(t, []string{"StateHandler"}, h.HandlerPath)
}

func TestParseStructAndImpl(t *testing.T) {
	res := parseSrc(t, `
struct Point { x: i32, y: i32 }
impl Point {
	fn sum(self) -> i32 { self.x + self.y }
}
`)
	require.Equal(t, 0, res.Bag.Len())
	f := res.Files.Get(res.File)
	require.Len(t, f.Items, 2)
	st := res.Items.Get(f.Items[0])
	require.Equal(t, ast.ItStruct, st.Kind)
	require.Len(t, st.Fields, 2)
	impl := res.Items.Get(f.Items[1])
	require.Equal(t, ast.ItImpl, impl.Kind)
	require.Len(t, impl.ImplItems, 1)
}
