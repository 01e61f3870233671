package testkit_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"blood/internal/ast"
	"blood/internal/config"
	"blood/internal/diag"
	"blood/internal/driver"
	"blood/internal/mir"
	"blood/internal/parser"
	"blood/internal/source"
	"blood/internal/testkit"
)

func parseSrc(t *testing.T, src string) (parser.Result, *source.File) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.bl", []byte(src))
	bag := diag.NewBag(0)
	res := parser.ParseFile(id, fs.Get(id).Content, bag)
	return res, fs.Get(id)
}

func TestSpanInvariantsHold(t *testing.T) {
	res, f := parseSrc(t, `
fn main() {
	let x = 1
}

struct P { x: i32 }
`)
	if err := testkit.CheckSpanInvariants(res, f); err != nil {
		t.Fatalf("span invariants violated: %v", err)
	}
}

func TestCountItems(t *testing.T) {
	res, _ := parseSrc(t, `
fn a() {}
fn b() {}
struct S { x: i32 }
enum E { V }
`)
	got := testkit.CountItems(res)
	want := map[ast.ItemKind]int{
		ast.ItFn:     2,
		ast.ItStruct: 1,
		ast.ItEnum:   1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("item counts (-want +got):\n%s", diff)
	}
}

func TestMIRPrintIsStable(t *testing.T) {
	// Two compilations of the same source must print byte-identical MIR:
	// the golden-dump substrate for regression pinning.
	src := `
fn f(c: bool) -> i32 {
	if c { 1 } else { 2 }
}
`
	dump := func() map[string]string {
		ctx := driver.NewContext(config.Default(), nil)
		res := ctx.CompileSource("golden.bl", []byte(src))
		if ctx.Bag.HasErrors() {
			t.Fatal("fixture must compile cleanly")
		}
		out := make(map[string]string, len(res.MIR.Bodies))
		for _, b := range res.MIR.Bodies {
			out[b.Name] = mir.Print(b)
		}
		return out
	}
	if diff := cmp.Diff(dump(), dump()); diff != "" {
		t.Errorf("MIR dump is unstable:\n%s", diff)
	}
}

func TestMIRInvariantsOnCompiledModule(t *testing.T) {
	ctx := driver.NewContext(config.Default(), nil)
	res := ctx.CompileSource("inv.bl", []byte(`
fn f(o: Option<i32>) -> i32 {
	match o {
		Some(v) => v,
		None => 0
	}
}
`))
	if ctx.Bag.HasErrors() {
		t.Fatal("fixture must compile cleanly")
	}
	if err := testkit.CheckMIRInvariants(res.MIR); err != nil {
		t.Fatalf("MIR invariants violated: %v", err)
	}
}
