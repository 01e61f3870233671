package driver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blood/internal/config"
	"blood/internal/def"
	"blood/internal/driver"
)

func TestEmptyInputIsCleanAndEmpty(t *testing.T) {
	ctx := driver.NewContext(config.Default(), nil)
	res := ctx.CompileSource("empty.bl", nil)

	require.Equal(t, 0, ctx.Bag.Len(), "empty input produces no diagnostics")
	require.False(t, res.Failed)
	require.Empty(t, res.HIR.Funcs)
	require.Empty(t, res.MIR.Bodies)
}

func TestTrivialMainProducesOneBody(t *testing.T) {
	ctx := driver.NewContext(config.Default(), nil)
	res := ctx.CompileSource("main.bl", []byte("fn main() {}"))

	require.False(t, res.Failed)
	require.Len(t, res.MIR.Bodies, 1)
	// One user definition beyond the prelude seeds.
	mainFn := res.HIR.FindFunc("main")
	require.NotNil(t, mainFn)
	require.NotEqual(t, def.NoDefID, mainFn.Def)
}

func TestFailedCompilationStillDeliversMIR(t *testing.T) {
	ctx := driver.NewContext(config.Default(), nil)
	res := ctx.CompileSource("bad.bl", []byte(`
fn f() -> i32 { missing() }
fn g() -> i32 { 2 }
`))
	require.True(t, res.Failed, "unresolved name must fail the run")
	// §7: the pipeline proceeds past recoverable errors; the clean
	// function still lowers.
	found := false
	for _, b := range res.MIR.Bodies {
		if b.Name == "g" {
			found = true
		}
	}
	require.True(t, found)
}

func TestDiagnosticOrderIsDeterministic(t *testing.T) {
	src := []byte(`
fn a() { one() }
fn b() { two() }
`)
	run := func() []string {
		ctx := driver.NewContext(config.Default(), nil)
		ctx.CompileSource("order.bl", src)
		var msgs []string
		for _, d := range ctx.Bag.Items() {
			msgs = append(msgs, d.Message)
		}
		return msgs
	}
	first := run()
	require.NotEmpty(t, first)
	require.Equal(t, first, run(), "diagnostics must arrive in a stable order")
	// Source order within the pass (§5).
	require.Contains(t, first[0], "one")
}

func TestExportDefsRoundTrips(t *testing.T) {
	ctx := driver.NewContext(config.Default(), nil)
	res := ctx.CompileSource("exp.bl", []byte(`
struct P { x: i32, y: i32 }
fn main() {}
`))
	require.False(t, res.Failed)

	data, err := ctx.ExportDefs(res)
	require.NoError(t, err)

	doc, err := def.Import(data)
	require.NoError(t, err)
	require.Equal(t, res.Defs.Len(), len(doc.Defs))

	var sawMIR, sawLayout bool
	for _, rec := range doc.Defs {
		if rec.Name == "main" && rec.Payload.MIR != "" {
			sawMIR = true
		}
		if rec.Name == "P" && rec.Payload.LayoutSize == 8 {
			sawLayout = true
		}
	}
	require.True(t, sawMIR, "function records carry lowered MIR")
	require.True(t, sawLayout, "type records carry layout")
}
