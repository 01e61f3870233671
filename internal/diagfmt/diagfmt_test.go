package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"blood/internal/diag"
	"blood/internal/source"
)

func fixture() (*diag.Bag, *source.FileSet, source.FileID) {
	fs := source.NewFileSet()
	id := fs.Add("demo.bl", []byte("fn main() {\n  let x = tru\n}\n"), 0)
	bag := diag.NewBag(0)
	d := diag.Error(diag.ResUnresolvedName, source.Span{File: id, Start: 22, End: 25},
		"cannot find `tru` in this scope")
	d.WithLabel(source.Span{File: id, Start: 18, End: 19}, "binding introduced here")
	d.Fixes = append(d.Fixes, diag.Fix{
		Title:         "did you mean `true`?",
		Applicability: diag.FixSafeWithHeuristics,
		Edits:         []diag.TextEdit{{Span: source.Span{File: id, Start: 22, End: 25}, NewText: "true"}},
	})
	bag.Add(d)
	return bag, fs, id
}

func TestPrettyIncludesCodeLineAndCaret(t *testing.T) {
	bag, fs, _ := fixture()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOptions{Color: false, PathMode: "basename"})

	out := buf.String()
	for _, want := range []string{"error[E3000]", "cannot find `tru`", "demo.bl:2:11", "let x = tru", "^^^", "did you mean"} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output missing %q:\n%s", want, out)
		}
	}
}

func TestPrettySummaryCountsErrors(t *testing.T) {
	bag, fs, _ := fixture()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOptions{})
	if !strings.Contains(buf.String(), "1 error(s), 0 warning(s)") {
		t.Errorf("missing summary line:\n%s", buf.String())
	}
}

func TestJSONSchemaFields(t *testing.T) {
	bag, fs, _ := fixture()
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var doc struct {
		Diagnostics []struct {
			Code     string `json:"code"`
			Severity string `json:"severity"`
			Category string `json:"category"`
			Span     struct {
				File string `json:"file"`
				Line uint32 `json:"line"`
				Col  uint32 `json:"col"`
			} `json:"primary_span"`
			Message string `json:"message"`
			Fixes   []struct {
				Title         string `json:"title"`
				Applicability string `json:"applicability"`
			} `json:"fixes"`
		} `json:"diagnostics"`
		ErrorCount int `json:"error_count"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(doc.Diagnostics) != 1 || doc.ErrorCount != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	d := doc.Diagnostics[0]
	if d.Code != "E3000" || d.Severity != "error" || d.Category != "unresolved_name" {
		t.Errorf("identity fields wrong: %+v", d)
	}
	if d.Span.Line != 2 || d.Span.Col != 11 {
		t.Errorf("resolved position wrong: %+v", d.Span)
	}
	if len(d.Fixes) != 1 || d.Fixes[0].Applicability != "safe_with_heuristics" {
		t.Errorf("fix record wrong: %+v", d.Fixes)
	}
}

func TestDisplayWidthHandlesWideRunes(t *testing.T) {
	if displayWidth("ab") != 2 {
		t.Error("ASCII width")
	}
	if displayWidth("日本") != 4 {
		t.Error("East-Asian-wide runes occupy two cells each")
	}
	if displayWidth("\t") != 4 {
		t.Error("tabs normalize to four cells")
	}
}
