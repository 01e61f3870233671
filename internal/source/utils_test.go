package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeCRLF(t *testing.T) {
	cases := []struct {
		in, want string
		changed  bool
	}{
		{"fn main() {}", "fn main() {}", false},
		{"a\r\nb\r\n", "a\nb\n", true},
		{"a\rb", "a\rb", false}, // lone CR is left alone
		{"\r\n", "\n", true},
		{"", "", false},
	}
	for _, c := range cases {
		got, changed := normalizeCRLF([]byte(c.in))
		if string(got) != c.want || changed != c.changed {
			t.Errorf("normalizeCRLF(%q) = %q, %v; want %q, %v", c.in, got, changed, c.want, c.changed)
		}
	}
}

func TestRemoveBOM(t *testing.T) {
	with := append([]byte{0xEF, 0xBB, 0xBF}, "fn"...)
	got, had := removeBOM(with)
	if !had || string(got) != "fn" {
		t.Errorf("removeBOM = %q, %v", got, had)
	}
	plain := []byte("fn")
	if got, had := removeBOM(plain); had || string(got) != "fn" {
		t.Errorf("removeBOM on BOM-less input = %q, %v", got, had)
	}
	short := []byte{0xEF, 0xBB}
	if _, had := removeBOM(short); had {
		t.Error("removeBOM stripped a truncated BOM prefix")
	}
}

func TestBuildLineIndex(t *testing.T) {
	idx := buildLineIndex([]byte("a\nbb\n\nc"))
	want := []uint32{1, 4, 5}
	if len(idx) != len(want) {
		t.Fatalf("line index = %v, want %v", idx, want)
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("line index = %v, want %v", idx, want)
		}
	}
}

func TestToLineColOnNewlineBoundary(t *testing.T) {
	// Offsets landing exactly on a '\n' belong to the line the newline ends.
	idx := buildLineIndex([]byte("ab\ncd\n"))
	if got := toLineCol(idx, 2); got != (LineCol{Line: 1, Col: 3}) {
		t.Errorf("offset of first newline = %+v", got)
	}
	if got := toLineCol(idx, 3); got != (LineCol{Line: 2, Col: 1}) {
		t.Errorf("offset after first newline = %+v", got)
	}
}

func TestRelativePath(t *testing.T) {
	tmp := t.TempDir()
	baseDir := filepath.Join(tmp, "base")
	if err := os.MkdirAll(filepath.Join(baseDir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}

	inside := filepath.Join(baseDir, "src", "main.bl")
	got, err := RelativePath(inside, baseDir)
	if err != nil {
		t.Fatalf("RelativePath: %v", err)
	}
	if got != "src/main.bl" {
		t.Errorf("RelativePath = %q, want %q", got, "src/main.bl")
	}

	// Paths outside base still come back relative, slash-normalized.
	outside := filepath.Join(tmp, "other", "file.bl")
	got, err = RelativePath(outside, baseDir)
	if err != nil {
		t.Fatalf("RelativePath: %v", err)
	}
	if got != "../other/file.bl" {
		t.Errorf("RelativePath = %q, want %q", got, "../other/file.bl")
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName(filepath.Join("deep", "nested", "mod.bl")); got != "mod.bl" {
		t.Errorf("BaseName = %q", got)
	}
}
