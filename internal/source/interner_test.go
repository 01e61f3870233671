package source

import "testing"

func TestInternerSentinel(t *testing.T) {
	in := NewInterner()

	if s, ok := in.Lookup(NoSymbolID); !ok || s != "" {
		t.Errorf("NoSymbolID must resolve to the empty string, got %q ok=%v", s, ok)
	}
	if got := in.Intern(""); got != NoSymbolID {
		t.Errorf("interning \"\" must return NoSymbolID, got %d", got)
	}
	if in.Len() != 1 {
		t.Errorf("fresh interner length = %d, want 1 (sentinel only)", in.Len())
	}
}

func TestInternerDedup(t *testing.T) {
	in := NewInterner()

	id1 := in.Intern("perform")
	if id1 == NoSymbolID {
		t.Fatal("non-empty string interned to NoSymbolID")
	}
	if id2 := in.Intern("perform"); id2 != id1 {
		t.Errorf("re-interning returned %d, want %d", id2, id1)
	}
	if id3 := in.Intern("resume"); id3 == id1 {
		t.Error("distinct strings interned to the same SymbolID")
	}
	if s, ok := in.Lookup(id1); !ok || s != "perform" {
		t.Errorf("Lookup(%d) = %q ok=%v, want \"perform\"", id1, s, ok)
	}
}

func TestInternerBytesCopiesBuffer(t *testing.T) {
	in := NewInterner()

	buf := []byte("handler")
	id := in.InternBytes(buf)
	buf[0] = 'X' // the interner must not alias the lexer's buffer

	if s := in.MustLookup(id); s != "handler" {
		t.Errorf("interned string mutated through caller buffer: %q", s)
	}
}

func TestInternerDeterministicIDs(t *testing.T) {
	// Two interners fed the same sequence must issue the same IDs (§3.2:
	// deterministic per compilation).
	words := []string{"fn", "main", "State", "get", "fn", "State"}

	a, b := NewInterner(), NewInterner()
	for _, w := range words {
		if ida, idb := a.Intern(w), b.Intern(w); ida != idb {
			t.Fatalf("interners diverged on %q: %d vs %d", w, ida, idb)
		}
	}
}

func TestInternerHasAndSnapshot(t *testing.T) {
	in := NewInterner()
	id := in.Intern("effect")

	if !in.Has(id) || !in.Has(NoSymbolID) {
		t.Error("Has rejected an issued SymbolID")
	}
	if in.Has(id + 100) {
		t.Error("Has accepted an unissued SymbolID")
	}

	snap := in.Snapshot()
	if len(snap) != in.Len() || snap[id] != "effect" {
		t.Errorf("Snapshot mismatch: %v", snap)
	}
	// Snapshot is a copy; mutating it must not affect the interner.
	snap[id] = "mutated"
	if in.MustLookup(id) != "effect" {
		t.Error("Snapshot aliases interner storage")
	}
}

func TestInternerMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup on an unissued ID did not panic")
		}
	}()
	NewInterner().MustLookup(SymbolID(42))
}
