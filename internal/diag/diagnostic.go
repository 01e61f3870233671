package diag

import "blood/internal/source"

// Label is a secondary span with an explanatory sub-message.
type Label struct {
	Span source.Span
	Msg  string
}

// Provenance records one link in a constraint-origin chain, used by the
// "provenance" field) — e.g. where a type variable was first bound.
type Provenance struct {
	Span source.Span
	Msg  string
}

// TextEdit describes one textual change a Fix would apply.
type TextEdit struct {
	Span    source.Span
	NewText string
}

// FixApplicability communicates how safe a suggested fix is to auto-apply.
type FixApplicability uint8

const (
	FixAlwaysSafe FixApplicability = iota
	FixSafeWithHeuristics
	FixManualReview
)

// Fix is a suggested edit attached to a diagnostic.
type Fix struct {
	Title         string
	Applicability FixApplicability
	Edits         []TextEdit
}

// Diagnostic is the structured record emitted by every compiler pass.
type Diagnostic struct {
	Code       Code
	Severity   Severity
	Primary    source.Span
	Message    string
	Labels     []Label
	Provenance []Provenance
	Fixes      []Fix
}

// Category reports the diagnostic's taxonomic bucket.
func (d *Diagnostic) Category() Category {
	return CategoryOf(d.Code)
}

// WithLabel appends a secondary span and returns the diagnostic for chaining.
func (d *Diagnostic) WithLabel(sp source.Span, msg string) *Diagnostic {
	d.Labels = append(d.Labels, Label{Span: sp, Msg: msg})
	return d
}

// WithProvenance appends a constraint-origin link.
func (d *Diagnostic) WithProvenance(sp source.Span, msg string) *Diagnostic {
	d.Provenance = append(d.Provenance, Provenance{Span: sp, Msg: msg})
	return d
}

// WithFix attaches a suggested edit.
func (d *Diagnostic) WithFix(f Fix) *Diagnostic {
	d.Fixes = append(d.Fixes, f)
	return d
}
