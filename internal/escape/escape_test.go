package escape_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blood/internal/config"
	"blood/internal/driver"
	"blood/internal/mir"
)

func compile(t *testing.T, src string) *driver.Result {
	t.Helper()
	ctx := driver.NewContext(config.Default(), nil)
	res := ctx.CompileSource("test.bl", []byte(src))
	for _, d := range ctx.Bag.Items() {
		t.Logf("diag %s: %s", d.Code, d.Message)
	}
	require.False(t, ctx.Bag.HasErrors())
	return res
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

func namedLocal(t *testing.T, b *mir.Body, name string) *mir.Local {
	t.Helper()
	for i := range b.Locals {
		if b.Locals[i].Name == name {
			return &b.Locals[i]
		}
	}
	t.Fatalf("no local named %q in %s", name, b.Name)
	return nil
}

func TestEveryLocalGetsATier(t *testing.T) {
	res := compile(t, `
fn f(a: i32, b: i32) -> i32 { a + b }
`)
	for _, b := range res.MIR.Bodies {
		for i := range b.Locals {
			require.NotEqual(t, mir.TierUnassigned, b.Locals[i].Tier,
				"local %d of %s has no tier", i, b.Name)
		}
	}
}

func TestPlainLocalStaysOnStack(t *testing.T) {
	res := compile(t, `
fn f() -> i32 {
	let x = 1
	let y = x + 2
	y
}
`)
	b := body(t, res, "f")
	x := namedLocal(t, b, "x")
	// Value flow into the returned expression raises x along the Use
	// chain, but nothing pins its storage, so a Copy local stays on the
	// stack.
	require.True(t, x.StackPromoted)
	require.Equal(t, mir.TierStack, x.Tier)
}

func TestReturnedReferencePinsReferent(t *testing.T) {
	res := compile(t, `
fn g() -> &i32 {
	let x = 42
	&x
}
`)
	b := body(t, res, "g")
	x := namedLocal(t, b, "x")
	// §8 scenario 5: the reference flows into the return place, so x
	// escapes at ArgEscape and cannot live on the stack.
	require.Equal(t, mir.ArgEscape, x.Escape)
	require.False(t, x.StackPromoted)
	require.Equal(t, mir.TierRegion, x.Tier)
}

func TestCallArgumentEscapesAtArg(t *testing.T) {
	res := compile(t, `
struct Big { a: i64, b: [i64; 8] }
fn sink(b: Big) {}
fn f() {
	let v = Big { a: 1, b: [0, 0, 0, 0, 0, 0, 0, 0] }
	sink(v)
}
`)
	b := body(t, res, "f")
	v := namedLocal(t, b, "v")
	require.Equal(t, mir.ArgEscape, v.Escape)
}

func TestPerformArgumentIsEffectCaptured(t *testing.T) {
	res := compile(t, `
effect Log {
	fn emit(v: i32)
}
fn f(v: i32) / {Log} {
	perform Log.emit(v)
}
`)
	b := body(t, res, "f")
	captured := false
	for i := range b.Locals {
		if b.Locals[i].EffectCaptured {
			captured = true
		}
	}
	require.True(t, captured, "a perform argument joins the effect-captured set")
}

func TestEscapingClosureDragsCaptures(t *testing.T) {
	res := compile(t, `
fn make() -> fn(i32) -> i32 {
	let a = 1
	|x: i32| x + a
}
`)
	b := body(t, res, "make")
	a := namedLocal(t, b, "a")
	// The closure flows into the return place; its capture may not stay
	// on the dying frame.
	require.NotEqual(t, mir.NoEscape, a.Escape)
	require.False(t, a.StackPromoted)
}

func TestDerefWriteBodyValidates(t *testing.T) {
	res := compile(t, `
fn f(p: *mut i32) {
	unchecked(generation) { *p = 1 }
}
`)
	// Writing through a pointer forces the place state to GlobalEscape;
	// the test pins that the pass runs and the body still validates.
	require.NoError(t, mir.ValidateModule(res.MIR))
}
