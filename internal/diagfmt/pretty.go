// Package diagfmt renders diagnostics (§6.2) in two modes: a human
// pretty-printer with source excerpts and carets, and a structured JSON
// form whose schema is part of the compiler's public API. IR dumping lives
// with the IRs themselves (internal/mir's Print); this package only
// renders diagnostics.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/width"

	"blood/internal/diag"
	"blood/internal/source"
)

// PrettyOptions configures the human renderer.
type PrettyOptions struct {
	Color    bool
	PathMode string // "auto" | "absolute" | "relative" | "basename"
	BaseDir  string
}

// Pretty writes every diagnostic in the bag with source excerpts.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOptions) {
	for _, d := range bag.Items() {
		prettyOne(w, d, fs, opts)
	}
	errs, warns := 0, 0
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	if errs > 0 || warns > 0 {
		fmt.Fprintf(w, "%d error(s), %d warning(s)\n", errs, warns)
	}
}

func sevColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan, color.Bold)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOptions) {
	head := fmt.Sprintf("%s[%s]", d.Severity, d.Code)
	if opts.Color {
		head = sevColor(d.Severity).Sprint(head)
	}
	fmt.Fprintf(w, "%s: %s\n", head, d.Message)

	f := fs.Get(d.Primary.File)
	if f != nil && len(f.Content) > 0 {
		start, _ := fs.Resolve(d.Primary)
		path := f.FormatPath(opts.PathMode, opts.BaseDir)
		fmt.Fprintf(w, "  --> %s:%d:%d\n", path, start.Line, start.Col)
		writeExcerpt(w, f, fs, d.Primary, "", opts)
	}
	for _, l := range d.Labels {
		lf := fs.Get(l.Span.File)
		if lf == nil || len(lf.Content) == 0 {
			continue
		}
		writeExcerpt(w, lf, fs, l.Span, l.Msg, opts)
	}
	for _, p := range d.Provenance {
		start, _ := fs.Resolve(p.Span)
		fmt.Fprintf(w, "  = note: %s (at %d:%d)\n", p.Msg, start.Line, start.Col)
	}
	for _, fix := range d.Fixes {
		fmt.Fprintf(w, "  = help: %s\n", fix.Title)
	}
	fmt.Fprintln(w)
}

// writeExcerpt prints the source line under a span with a caret underline.
// Column arithmetic runs on display width, not bytes: East-Asian-wide
// runes and combining forms shift the underline otherwise.
func writeExcerpt(w io.Writer, f *source.File, fs *source.FileSet, sp source.Span, label string, opts PrettyOptions) {
	start, end := fs.Resolve(sp)
	line := f.GetLine(start.Line)
	gutter := fmt.Sprintf("%4d", start.Line)
	fmt.Fprintf(w, "%s | %s\n", gutter, line)

	prefix := line
	if int(start.Col-1) <= len(line) {
		prefix = line[:start.Col-1]
	}
	pad := displayWidth(prefix)
	caretLen := 1
	if start.Line == end.Line && end.Col > start.Col {
		spanText := ""
		if int(end.Col-1) <= len(line) {
			spanText = line[start.Col-1 : end.Col-1]
		}
		caretLen = displayWidth(spanText)
		if caretLen < 1 {
			caretLen = 1
		}
	}
	carets := strings.Repeat("^", caretLen)
	if opts.Color {
		carets = color.New(color.FgRed, color.Bold).Sprint(carets)
	}
	suffix := ""
	if label != "" {
		suffix = " " + label
	}
	fmt.Fprintf(w, "%s | %s%s%s\n", strings.Repeat(" ", len(gutter)), strings.Repeat(" ", pad), carets, suffix)
}

// displayWidth measures a string in terminal cells, folding East-Asian
// width classes through x/text before runewidth sums the cells.
func displayWidth(s string) int {
	total := 0
	for _, r := range s {
		if r == '\t' {
			total += 4
			continue
		}
		switch width.LookupRune(r).Kind() {
		case width.EastAsianFullwidth, width.EastAsianWide:
			total += 2
		default:
			total += runewidth.RuneWidth(r)
		}
	}
	return total
}
