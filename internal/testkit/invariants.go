// Package testkit carries invariant assertions shared by the package test
// suites: span invariants over the parse
// result, and the §8 structural invariants over delivered MIR.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"blood/internal/ast"
	"blood/internal/mir"
	"blood/internal/parser"
	"blood/internal/source"
)

// CheckSpanInvariants runs the span sanity suite over a parsed file:
// every item span is non-empty, points at the parsed file, and sits inside
// the file's own span.
func CheckSpanInvariants(res parser.Result, sf *source.File) error {
	f := res.Files.Get(res.File)
	if f == nil {
		return fmt.Errorf("no file node for parse result")
	}
	if len(f.Items) == 0 {
		return nil
	}
	if f.Span.End <= f.Span.Start {
		return fmt.Errorf("file span is empty: %v", f.Span)
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("content length overflow: %w", err)
	}
	if f.Span.End > lenContent {
		return fmt.Errorf("file span end %d beyond content length %d", f.Span.End, lenContent)
	}
	for _, it := range f.Items {
		item := res.Items.Get(it)
		if item == nil {
			return fmt.Errorf("nil item for id=%d", it)
		}
		sp := item.Span
		if sp.End <= sp.Start {
			return fmt.Errorf("empty item span: %v", sp)
		}
		if sp.File != sf.ID {
			return fmt.Errorf("item span file mismatch: got=%d want=%d", sp.File, sf.ID)
		}
		if sp.Start < f.Span.Start || sp.End > f.Span.End {
			return fmt.Errorf("item span %v outside file span %v", sp, f.Span)
		}
	}
	return nil
}

// CheckMIRInvariants runs the §8 MIR invariants over every body: single
// terminator per block, valid block targets, storage bracketing.
func CheckMIRInvariants(m *mir.Module) error {
	return mir.ValidateModule(m)
}

// CountItems reports how many items of each kind a parse produced, a
// cheap structural fingerprint for table-driven parser tests.
func CountItems(res parser.Result) map[ast.ItemKind]int {
	out := make(map[ast.ItemKind]int)
	f := res.Files.Get(res.File)
	if f == nil {
		return out
	}
	for _, it := range f.Items {
		out[res.Items.Get(it).Kind]++
	}
	return out
}
