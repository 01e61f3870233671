// Package abi pins the fixed runtime ABI the compiler emits calls against
// (§6.5). The core never implements these primitives — the slab allocator,
// slot registry, and evidence-vector scheduler live in the runtime — but
// MIR encodes calls to them by Primitive, and the code generator maps each
// Primitive to its linker symbol.
package abi

// Primitive enumerates the runtime entry points.
type Primitive uint8

const (
	PrimNone Primitive = iota

	// PrimRegionAlloc is region_alloc(region_id, size, align) -> addr.
	PrimRegionAlloc
	// PrimRegionDealloc is region_dealloc(region_id, addr) -> bool.
	PrimRegionDealloc
	// PrimValidateGeneration is validate_generation(addr, expected_gen) -> bool.
	PrimValidateGeneration
	// PrimEvidencePush is evidence_push(effect_def, handler_state) -> ev_id.
	PrimEvidencePush
	// PrimEvidenceLookup is evidence_lookup(effect_def) -> handler_state.
	PrimEvidenceLookup
	// PrimEvidencePop is evidence_pop(ev_id).
	PrimEvidencePop
)

// Symbol returns the linker-level name of the primitive.
func (p Primitive) Symbol() string {
	switch p {
	case PrimRegionAlloc:
		return "region_alloc"
	case PrimRegionDealloc:
		return "region_dealloc"
	case PrimValidateGeneration:
		return "validate_generation"
	case PrimEvidencePush:
		return "evidence_push"
	case PrimEvidenceLookup:
		return "evidence_lookup"
	case PrimEvidencePop:
		return "evidence_pop"
	default:
		return ""
	}
}

// Arity returns the number of value arguments the primitive takes.
func (p Primitive) Arity() int {
	switch p {
	case PrimRegionAlloc:
		return 3
	case PrimRegionDealloc, PrimValidateGeneration, PrimEvidencePush:
		return 2
	case PrimEvidenceLookup, PrimEvidencePop:
		return 1
	default:
		return 0
	}
}

// HasResult reports whether the primitive produces a value.
func (p Primitive) HasResult() bool {
	return p != PrimEvidencePop && p != PrimNone
}
