package mir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blood/internal/config"
	"blood/internal/driver"
	"blood/internal/mir"
)

func compile(t *testing.T, src string) (*driver.Result, *driver.Context) {
	t.Helper()
	ctx := driver.NewContext(config.Default(), nil)
	res := ctx.CompileSource("test.bl", []byte(src))
	return res, ctx
}

func body(t *testing.T, res *driver.Result, name string) *mir.Body {
	t.Helper()
	for _, b := range res.MIR.Bodies {
		if b.Name == name {
			return b
		}
	}
	t.Fatalf("no MIR body named %q", name)
	return nil
}

func TestEmptyInputProducesEmptyMIR(t *testing.T) {
	res, ctx := compile(t, "")
	require.False(t, ctx.Bag.HasErrors())
	require.Empty(t, res.MIR.Bodies)
}

func TestTrivialMainIsOneReturnBlock(t *testing.T) {
	res, ctx := compile(t, "fn main() {}")
	require.False(t, ctx.Bag.HasErrors())

	b := body(t, res, "main")
	require.Equal(t, 0, b.ArgCount)
	require.Len(t, b.Blocks, 1, "trivial main is a single block")
	require.Equal(t, mir.TermReturn, b.Blocks[0].Term.Kind)
	require.Equal(t, mir.BlockID(0), b.Entry)
}

func TestIdentityBodyAssignsParamToReturn(t *testing.T) {
	res, ctx := compile(t, "fn id<T>(x: T) -> T { x }")
	require.False(t, ctx.Bag.HasErrors())

	b := body(t, res, "id")
	require.Equal(t, 1, b.ArgCount)
	require.Len(t, b.Blocks, 1)
	blk := b.Blocks[0]
	// _0 = _1; return (§8 scenario 1).
	var assigns []mir.Statement
	for _, s := range blk.Stmts {
		if s.Kind == mir.StmtAssign {
			assigns = append(assigns, s)
		}
	}
	require.Len(t, assigns, 1)
	require.Equal(t, mir.ReturnLocal, assigns[0].Place.Local)
	require.Equal(t, mir.RValueUse, assigns[0].RValue.Kind)
	require.Equal(t, mir.LocalID(1), assigns[0].RValue.Use.Place.Local)
	require.Equal(t, mir.TermReturn, blk.Term.Kind)
}

func TestEveryBlockHasOneTerminator(t *testing.T) {
	res, ctx := compile(t, `
fn f(c: bool) -> i32 {
	if c { 1 } else { 2 }
}
`)
	require.False(t, ctx.Bag.HasErrors())
	require.NoError(t, mir.ValidateModule(res.MIR))

	b := body(t, res, "f")
	require.Greater(t, len(b.Blocks), 2, "if/else must split the CFG")
	seenIf := false
	for i := range b.Blocks {
		require.True(t, b.Blocks[i].Terminated())
		if b.Blocks[i].Term.Kind == mir.TermIf {
			seenIf = true
		}
	}
	require.True(t, seenIf)
}

func TestShortCircuitBecomesControlFlow(t *testing.T) {
	res, ctx := compile(t, `
fn f(a: bool, b: bool) -> bool { a && b }
`)
	require.False(t, ctx.Bag.HasErrors())
	b := body(t, res, "f")
	// && must lower to at least one conditional branch.
	ifs := 0
	for i := range b.Blocks {
		if b.Blocks[i].Term.Kind == mir.TermIf {
			ifs++
		}
	}
	require.GreaterOrEqual(t, ifs, 1, "&& must lower to branches")
}

func TestPerformLowersToTerminator(t *testing.T) {
	res, ctx := compile(t, `
effect State {
	fn get() -> i32
}
fn f() -> i32 { perform State.get() }
`)
	require.False(t, ctx.Bag.HasErrors())
	b := body(t, res, "f")
	var perform *mir.Terminator
	for i := range b.Blocks {
		if b.Blocks[i].Term.Kind == mir.TermPerform {
			perform = &b.Blocks[i].Term
		}
	}
	require.NotNil(t, perform)
	require.Equal(t, 0, perform.OpIndex)
	require.True(t, perform.Dest.IsValid())
	require.NotEqual(t, mir.NoBlockID, perform.Target, "perform carries a continuation block")
}

func TestDispatchedCallIsDirect(t *testing.T) {
	res, ctx := compile(t, `
fn add(a: i32, b: i32) -> i32 { a + b }
fn f() -> i32 { add(1, 2) }
`)
	require.False(t, ctx.Bag.HasErrors())
	b := body(t, res, "f")
	addBody := body(t, res, "add")
	var call *mir.Terminator
	for i := range b.Blocks {
		if b.Blocks[i].Term.Kind == mir.TermCall {
			call = &b.Blocks[i].Term
		}
	}
	require.NotNil(t, call)
	require.Equal(t, addBody.Def, call.Callee, "the dispatch winner becomes a direct callee")
	require.Len(t, call.Args, 2)
}

func TestMatchOnEnumUsesSwitchInt(t *testing.T) {
	res, ctx := compile(t, `
fn f(o: Option<i32>) -> i32 {
	match o {
		Some(v) => v,
		None => 0
	}
}
`)
	require.False(t, ctx.Bag.HasErrors())
	b := body(t, res, "f")
	var sw *mir.Terminator
	for i := range b.Blocks {
		if b.Blocks[i].Term.Kind == mir.TermSwitchInt {
			sw = &b.Blocks[i].Term
		}
	}
	require.NotNil(t, sw, "an all-variant match compiles to switchInt")
	require.Len(t, sw.Cases, 2)
}

func TestHandleBracketsEvidencePushPop(t *testing.T) {
	res, ctx := compile(t, `
effect State {
	fn get() -> i32
}
handler Memo for State {
	fn get() { resume(42) }
}
fn f() -> i32 / {} {
	with Memo handle { perform State.get() }
}
`)
	require.False(t, ctx.Bag.HasErrors())
	b := body(t, res, "f")
	push, pop := false, false
	for i := range b.Blocks {
		term := &b.Blocks[i].Term
		if term.Kind != mir.TermCall {
			continue
		}
		switch term.AbiCall.Symbol() {
		case "evidence_push":
			push = true
		case "evidence_pop":
			pop = true
		}
	}
	require.True(t, push, "handle must push evidence on entry")
	require.True(t, pop, "handle must pop evidence on exit")
}

func TestIndexEmitsBoundsAssert(t *testing.T) {
	res, ctx := compile(t, `
fn f(xs: [i32], i: usize) -> i32 { xs[i] }
`)
	require.False(t, ctx.Bag.HasErrors())
	b := body(t, res, "f")
	asserted := false
	for i := range b.Blocks {
		if b.Blocks[i].Term.Kind == mir.TermAssert {
			asserted = true
		}
	}
	require.True(t, asserted, "indexing emits a bounds assert")
}

func TestUncheckedBoundsSuppressesAssert(t *testing.T) {
	res, ctx := compile(t, `
fn f(xs: [i32], i: usize) -> i32 {
	unchecked(bounds) { xs[i] }
}
`)
	require.False(t, ctx.Bag.HasErrors())
	b := body(t, res, "f")
	for i := range b.Blocks {
		require.NotEqual(t, mir.TermAssert, b.Blocks[i].Term.Kind,
			"unchecked(bounds) must suppress the bounds assert")
	}
}

func TestValidateRejectsUnterminatedBlock(t *testing.T) {
	b := &mir.Body{
		Name:   "broken",
		Blocks: []mir.Block{{ID: 0}},
	}
	require.Error(t, mir.Validate(b))
}

func TestStorageBracketsValidate(t *testing.T) {
	res, ctx := compile(t, `
fn f() -> i32 {
	let x = 1
	let y = x + 2
	y
}
`)
	require.False(t, ctx.Bag.HasErrors())
	require.NoError(t, mir.ValidateModule(res.MIR))
}

func TestClosureLowersToAggregateAndBody(t *testing.T) {
	res, ctx := compile(t, `
fn f() -> i32 {
	let a = 1
	let g = |x: i32| x + a
	g(2)
}
`)
	require.False(t, ctx.Bag.HasErrors())

	var closureBody *mir.Body
	for _, mb := range res.MIR.Bodies {
		if mb.Name != "f" {
			closureBody = mb
		}
	}
	require.NotNil(t, closureBody, "the closure body lowers as its own function")

	fb := body(t, res, "f")
	foundAgg := false
	for i := range fb.Blocks {
		for _, s := range fb.Blocks[i].Stmts {
			if s.Kind == mir.StmtAssign && s.RValue.Kind == mir.RValueAggregate && s.RValue.Agg == mir.AggClosure {
				foundAgg = true
				require.Len(t, s.RValue.Operands, 1, "one capture")
			}
		}
	}
	require.True(t, foundAgg)
}
