package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetAddAssignsDenseIDs(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("main.bl", []byte("fn main() {}"), 0)
	if id1 != 0 {
		t.Errorf("first FileID = %d, want 0", id1)
	}
	id2 := fs.Add("lib.bl", []byte("fn id<T>(x: T) -> T { x }"), 0)
	if id2 != 1 {
		t.Errorf("second FileID = %d, want 1", id2)
	}

	if f := fs.Get(id1); f.Path != "main.bl" || string(f.Content) != "fn main() {}" {
		t.Errorf("Get(%d) = %+v", id1, f)
	}
}

func TestFileSetReAddSamePath(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("main.bl", []byte("fn main() {}"), 0)
	id2 := fs.Add("main.bl", []byte("fn main() { 1 }"), 0)
	if id2 == id1 {
		t.Fatal("re-adding a path must allocate a fresh FileID")
	}

	// GetLatest tracks the most recent add.
	latest, ok := fs.GetLatest("main.bl")
	if !ok || latest != id2 {
		t.Errorf("GetLatest = %d ok=%v, want %d", latest, ok, id2)
	}
	// The original FileID still resolves to the original content, so spans
	// recorded before the re-add stay valid.
	if string(fs.Get(id1).Content) != "fn main() {}" {
		t.Error("older FileID no longer resolves to its original content")
	}
}

func TestFileSetVirtual(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("repl", []byte("let x = 1"))
	if f := fs.Get(id); f.Flags&FileVirtual == 0 {
		t.Error("AddVirtual did not set FileVirtual")
	}
}

func TestFileSetLoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crlf.bl")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("fn main() {\r\n}\r\n")...)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "fn main() {\n}\n" {
		t.Errorf("content not normalized: %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Errorf("normalization flags not recorded: %v", f.Flags)
	}
}

func TestFileSetResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("pos.bl", []byte("fn main() {\n  let x = 1\n}\n"), 0)

	// "let" starts at byte 14 on line 2, column 3.
	start, end := fs.Resolve(Span{File: id, Start: 14, End: 17})
	if start != (LineCol{Line: 2, Col: 3}) {
		t.Errorf("start = %+v", start)
	}
	if end != (LineCol{Line: 2, Col: 6}) {
		t.Errorf("end = %+v", end)
	}
}

func TestFileGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("lines.bl", []byte("one\ntwo\nthree"), 0)
	f := fs.Get(id)

	cases := []struct {
		line uint32
		want string
	}{
		{0, ""},
		{1, "one"},
		{2, "two"},
		{3, "three"}, // final line without trailing newline
		{4, ""},
	}
	for _, c := range cases {
		if got := f.GetLine(c.line); got != c.want {
			t.Errorf("GetLine(%d) = %q, want %q", c.line, got, c.want)
		}
	}
}

func TestFileSetGetByPath(t *testing.T) {
	fs := NewFileSet()
	fs.Add("a.bl", []byte("a"), 0)

	if _, ok := fs.GetByPath("a.bl"); !ok {
		t.Error("GetByPath missed a loaded path")
	}
	if _, ok := fs.GetByPath("missing.bl"); ok {
		t.Error("GetByPath invented a file")
	}
}
