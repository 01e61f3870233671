package def

import (
	"testing"

	"blood/internal/source"
)

func TestTableAssignsDenseIDs(t *testing.T) {
	tbl := NewTable()
	a := tbl.New(Definition{Name: "a", Kind: KindFn})
	b := tbl.New(Definition{Name: "b", Kind: KindStruct})
	if a == NoDefID || b != a+1 {
		t.Fatalf("ids not dense: %d, %d", a, b)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len = %d", tbl.Len())
	}
	if tbl.Get(a).Name != "a" || tbl.Get(b).Kind != KindStruct {
		t.Error("Get returned the wrong definition")
	}
}

func TestHasherIsDeterministic(t *testing.T) {
	build := func() DefHash {
		h := NewHasher(KindFn, "f")
		h.WriteTag("block")
		h.WriteUint(1)
		h.WriteUint(2)
		return h.Sum()
	}
	if build() != build() {
		t.Error("identical canonical shapes must hash identically")
	}
}

func TestHasherSeparatesKindAndName(t *testing.T) {
	a := NewHasher(KindFn, "f").Sum()
	b := NewHasher(KindStruct, "f").Sum()
	c := NewHasher(KindFn, "g").Sum()
	if a == b || a == c {
		t.Error("kind and name must both feed the digest")
	}
}

func TestHasherNestedHashChanges(t *testing.T) {
	inner1 := NewHasher(KindStruct, "S")
	inner1.WriteTag("x")
	inner2 := NewHasher(KindStruct, "S")
	inner2.WriteTag("y")

	outer := func(nested DefHash) DefHash {
		h := NewHasher(KindFn, "f")
		h.WriteHash(nested)
		return h.Sum()
	}
	if outer(inner1.Sum()) == outer(inner2.Sum()) {
		t.Error("a changed nested definition must change the outer hash")
	}
}

func TestByHashLookup(t *testing.T) {
	tbl := NewTable()
	id := tbl.New(Definition{Name: "f", Kind: KindFn})
	h := NewHasher(KindFn, "f")
	h.WriteUint(42)
	sum := h.Sum()
	tbl.SetHash(id, sum)

	got, ok := tbl.ByHash(sum)
	if !ok || got != id {
		t.Errorf("ByHash = %d, %v", got, ok)
	}
	if _, ok := tbl.ByHash(DefHash{}); ok {
		t.Error("unknown hash must not resolve")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	tbl := NewTable()
	fn := tbl.New(Definition{Name: "main", Kind: KindFn, Span: source.Span{File: 1, Start: 0, End: 12}})
	st := tbl.New(Definition{Name: "P", Kind: KindStruct})
	tbl.SetHash(fn, NewHasher(KindFn, "main").Sum())

	data, err := tbl.Export(func(id DefID) Payload {
		switch id {
		case fn:
			return Payload{MIR: "bb0: return"}
		case st:
			return Payload{LayoutSize: 8, LayoutAlign: 4}
		}
		return Payload{}
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	doc, err := Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if doc.Version != 1 || len(doc.Defs) != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Defs[0].Name != "main" || doc.Defs[0].Payload.MIR != "bb0: return" {
		t.Errorf("function record mangled: %+v", doc.Defs[0])
	}
	if doc.Defs[1].Payload.LayoutSize != 8 || doc.Defs[1].Payload.LayoutAlign != 4 {
		t.Errorf("layout record mangled: %+v", doc.Defs[1])
	}
}
