package abi

import "testing"

func TestSymbolsMatchRuntimeContract(t *testing.T) {
	want := map[Primitive]string{
		PrimRegionAlloc:        "region_alloc",
		PrimRegionDealloc:      "region_dealloc",
		PrimValidateGeneration: "validate_generation",
		PrimEvidencePush:       "evidence_push",
		PrimEvidenceLookup:     "evidence_lookup",
		PrimEvidencePop:        "evidence_pop",
	}
	for p, sym := range want {
		if p.Symbol() != sym {
			t.Errorf("Symbol(%d) = %q, want %q", p, p.Symbol(), sym)
		}
	}
	if PrimNone.Symbol() != "" {
		t.Error("PrimNone has no symbol")
	}
}

func TestArities(t *testing.T) {
	cases := map[Primitive]int{
		PrimRegionAlloc:        3,
		PrimRegionDealloc:      2,
		PrimValidateGeneration: 2,
		PrimEvidencePush:       2,
		PrimEvidenceLookup:     1,
		PrimEvidencePop:        1,
	}
	for p, n := range cases {
		if p.Arity() != n {
			t.Errorf("Arity(%s) = %d, want %d", p.Symbol(), p.Arity(), n)
		}
	}
}

func TestEvidencePopHasNoResult(t *testing.T) {
	if PrimEvidencePop.HasResult() {
		t.Error("evidence_pop returns nothing")
	}
	if !PrimValidateGeneration.HasResult() {
		t.Error("validate_generation returns a bool")
	}
}
