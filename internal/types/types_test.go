package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blood/internal/def"
)

func TestInternerDedupesGroundTypes(t *testing.T) {
	in := NewInterner()
	a := in.New(Type{Kind: KindSlice, Elem: in.Builtins.I32})
	b := in.New(Type{Kind: KindSlice, Elem: in.Builtins.I32})
	require.Equal(t, a, b, "structurally identical ground types must share a TypeID")
}

func TestInternerKeepsDistinctVars(t *testing.T) {
	in := NewInterner()
	v1 := in.New(Type{Kind: KindVar, Var: 1})
	v2 := in.New(Type{Kind: KindVar, Var: 2})
	require.NotEqual(t, v1, v2)

	// Two allocations of the *same* Var(1) must also stay distinct: each
	// site that mentions a variable is a fresh occurrence, not a value to
	// dedup, since substitution mutates what a variable resolves to.
	v1b := in.New(Type{Kind: KindVar, Var: 1})
	require.NotEqual(t, v1, v1b)
}

func TestLabelRendersCompoundTypes(t *testing.T) {
	in := NewInterner()
	slice := in.New(Type{Kind: KindSlice, Elem: in.Builtins.I32})
	require.Equal(t, "[i32]", Label(in, slice))

	ref := in.New(Type{Kind: KindRef, Elem: in.Builtins.Bool, Mutable: true})
	require.Equal(t, "&mut bool", Label(in, ref))

	fn := in.New(Type{
		Kind:   KindFn,
		Params: []TypeID{in.Builtins.I32, in.Builtins.I32},
		Ret:    in.Builtins.I32,
		Effect: EffectRow{Effects: []def.DefID{7}},
	})
	require.Equal(t, "fn(i32, i32) -> i32 / {#7}", Label(in, fn))
}

func TestEffectRowUnionDedupesAndPreservesOpenTail(t *testing.T) {
	a := EffectRow{Effects: []def.DefID{1, 2}}
	b := EffectRow{Effects: []def.DefID{2, 3}, Tail: []TypeVarID{9}}
	u := Union(a, b)
	require.ElementsMatch(t, []def.DefID{1, 2, 3}, u.Effects)
	tv, ok := u.TailVar()
	require.True(t, ok)
	require.Equal(t, TypeVarID(9), tv)
}

func TestEffectRowWithoutRemovesHandledEffect(t *testing.T) {
	r := EffectRow{Effects: []def.DefID{1, 2, 3}}
	out := Without(r, 2)
	require.ElementsMatch(t, []def.DefID{1, 3}, out.Effects)
	require.True(t, out.IsClosed())
}
