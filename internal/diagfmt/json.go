package diagfmt

import (
	"encoding/json"
	"io"

	"blood/internal/diag"
	"blood/internal/source"
)

// The JSON schema below is part of the compiler's public API (§6.2):
// fields are only ever added, never renamed or removed, and error codes
// are stable across compiler versions.

type jsonSpan struct {
	File  string `json:"file"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
	Line  uint32 `json:"line"`
	Col   uint32 `json:"col"`
}

type jsonLabel struct {
	Span    jsonSpan `json:"span"`
	Message string   `json:"message"`
}

type jsonEdit struct {
	Span    jsonSpan `json:"span"`
	NewText string   `json:"new_text"`
}

type jsonFix struct {
	Title         string     `json:"title"`
	Applicability string     `json:"applicability"`
	Edits         []jsonEdit `json:"edits"`
}

type jsonDiagnostic struct {
	Code       string      `json:"code"`
	Severity   string      `json:"severity"`
	Category   string      `json:"category"`
	Span       jsonSpan    `json:"primary_span"`
	Message    string      `json:"message"`
	Labels     []jsonLabel `json:"labels,omitempty"`
	Provenance []jsonLabel `json:"provenance,omitempty"`
	Fixes      []jsonFix   `json:"fixes,omitempty"`
}

type jsonReport struct {
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
	ErrorCount  int              `json:"error_count"`
	WarnCount   int              `json:"warning_count"`
}

func applicabilityText(a diag.FixApplicability) string {
	switch a {
	case diag.FixAlwaysSafe:
		return "always_safe"
	case diag.FixSafeWithHeuristics:
		return "safe_with_heuristics"
	default:
		return "manual_review"
	}
}

func toJSONSpan(sp source.Span, fs *source.FileSet) jsonSpan {
	out := jsonSpan{Start: sp.Start, End: sp.End}
	if f := fs.Get(sp.File); f != nil {
		out.File = f.Path
		start, _ := fs.Resolve(sp)
		out.Line = start.Line
		out.Col = start.Col
	}
	return out
}

// JSON writes the bag as one stable JSON document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet) error {
	report := jsonReport{Diagnostics: make([]jsonDiagnostic, 0, bag.Len())}
	for _, d := range bag.Items() {
		jd := jsonDiagnostic{
			Code:     d.Code.String(),
			Severity: d.Severity.String(),
			Category: d.Category().String(),
			Span:     toJSONSpan(d.Primary, fs),
			Message:  d.Message,
		}
		for _, l := range d.Labels {
			jd.Labels = append(jd.Labels, jsonLabel{Span: toJSONSpan(l.Span, fs), Message: l.Msg})
		}
		for _, p := range d.Provenance {
			jd.Provenance = append(jd.Provenance, jsonLabel{Span: toJSONSpan(p.Span, fs), Message: p.Msg})
		}
		for _, f := range d.Fixes {
			jf := jsonFix{Title: f.Title, Applicability: applicabilityText(f.Applicability)}
			for _, e := range f.Edits {
				jf.Edits = append(jf.Edits, jsonEdit{Span: toJSONSpan(e.Span, fs), NewText: e.NewText})
			}
			jd.Fixes = append(jd.Fixes, jf)
		}
		report.Diagnostics = append(report.Diagnostics, jd)
		switch d.Severity {
		case diag.SevError:
			report.ErrorCount++
		case diag.SevWarning:
			report.WarnCount++
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
