package fuzztests

import "testing"

// corpusSeeds covers every syntactic region the grammar has: items,
// expressions at each precedence tier, patterns, effect forms, and the
// sugar the lowering pass rewrites.
var corpusSeeds = []string{
	"",
	"fn main() {}",
	"fn id<T>(x: T) -> T { x }",
	"fn f() -> i32 / {State} { perform State.get() }",
	"struct Point { x: i32, y: i32 }",
	"enum Color { Red, Green, Blue }",
	"effect State { fn get() -> i32 fn set(v: i32) }",
	"handler Memo for State { get() { resume(42) } }",
	"trait Show { fn show(self: Self) -> str }",
	"impl Show for Point { fn show(self: Point) -> str { \"p\" } }",
	"fn g() { let x = 1 + 2 * 3; x |> h(4) }",
	"fn m(o: Option<i32>) -> i32 { match o { Some(v) => v, None => 0 } }",
	"fn l() { let linear h = acquire(); consume(h) }",
	"fn q() -> Result<i32, str> { let v = fallible()?; Ok(v) }",
	"fn loops() { for i in 0..10 { if i == 5 { break } } }",
	"fn u() { unchecked(bounds) { a[i] = 1 } }",
	"fn bad( { ]",
	"let 0x_ =",
	"\"unterminated",
	"/* unterminated block",
	"fn cmp() -> bool { 1 < 2 < 3 }",
	"fn w() { with Memo handle { perform State.get() } }",
}

func addCorpusSeeds(f *testing.F) {
	for _, seed := range corpusSeeds {
		f.Add([]byte(seed))
	}
}
