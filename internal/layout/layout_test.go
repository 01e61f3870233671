package layout_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blood/internal/config"
	"blood/internal/driver"
	"blood/internal/layout"
	"blood/internal/types"
)

func engine(t *testing.T, src string) (*layout.Engine, *driver.Result, *driver.Context) {
	t.Helper()
	ctx := driver.NewContext(config.Default(), nil)
	res := ctx.CompileSource("test.bl", []byte(src))
	require.False(t, ctx.Bag.HasErrors())
	return layout.New(layout.Target64, ctx.Types, res.HIR), res, ctx
}

func TestPrimitiveLayouts(t *testing.T) {
	e, _, ctx := engine(t, "")
	b := ctx.Types.Builtins

	require.Equal(t, 1, e.SizeOf(b.Bool))
	require.Equal(t, 4, e.SizeOf(b.I32))
	require.Equal(t, 8, e.SizeOf(b.F64))
	require.Equal(t, 8, e.SizeOf(b.Uint), "usize is pointer-sized")
	require.Equal(t, 0, e.SizeOf(b.Unit))
	require.Equal(t, 16, e.SizeOf(b.Str), "str is a pointer/length pair")
}

func TestStructFieldOffsetsRespectAlignment(t *testing.T) {
	e, res, ctx := engine(t, `
struct Mixed { a: u8, b: i64, c: u8 }
`)
	var mixed types.TypeID
	for _, s := range res.HIR.Structs {
		if s.Name == "Mixed" {
			mixed = ctx.Types.New(types.Type{Kind: types.KindNamed, Def: s.Def})
		}
	}
	l := e.Of(mixed)
	require.Equal(t, []int{0, 8, 16}, l.FieldOffsets)
	require.Equal(t, 8, l.Align)
	require.Equal(t, 24, l.Size, "trailing padding rounds to alignment")
}

func TestEnumLayoutCoversLargestPayload(t *testing.T) {
	e, res, ctx := engine(t, `
enum Shape {
	Empty,
	Pair(i64, i64)
}
`)
	var shape types.TypeID
	for _, ed := range res.HIR.Enums {
		if ed.Name == "Shape" {
			shape = ctx.Types.New(types.Type{Kind: types.KindNamed, Def: ed.Def})
		}
	}
	l := e.Of(shape)
	require.Equal(t, 4, l.TagSize)
	require.Equal(t, 8, l.PayloadOffset, "payload aligns after the tag")
	require.Equal(t, 24, l.Size)
}

func TestGenerationalReferenceIsTwoWords(t *testing.T) {
	e, _, ctx := engine(t, "")
	ref := ctx.Types.New(types.Type{Kind: types.KindRef, Elem: ctx.Types.Builtins.I32})
	require.Equal(t, 16, e.SizeOf(ref), "a generational reference carries address and generation")
}

func TestArrayLayout(t *testing.T) {
	e, _, ctx := engine(t, "")
	arr := ctx.Types.New(types.Type{Kind: types.KindArrayFixed, Elem: ctx.Types.Builtins.I32, Count: 5})
	require.Equal(t, 20, e.SizeOf(arr))
	require.Equal(t, 4, e.AlignOf(arr))
}

func TestOwnershipQualifiersAreTransparent(t *testing.T) {
	e, _, ctx := engine(t, "")
	lin := ctx.Types.New(types.Type{Kind: types.KindLinear, Elem: ctx.Types.Builtins.I64})
	require.Equal(t, 8, e.SizeOf(lin), "linear wraps usage, not representation")
}
