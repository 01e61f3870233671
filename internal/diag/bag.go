package diag

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// Bag accumulates diagnostics monotonically across passes. It is
// append-only from the perspective of any single pass; passes later in the
// pipeline see everything earlier passes added.
type Bag struct {
	items []*Diagnostic
	limit uint16
}

// NewBag creates a Bag capped at limit diagnostics (0 means unbounded).
func NewBag(limit int) *Bag {
	capped, err := safecast.Conv[uint16](limit)
	if err != nil {
		panic(fmt.Errorf("diag: bag limit overflow: %w", err))
	}
	return &Bag{limit: capped}
}

// Add appends a diagnostic, honoring the bag's capacity. Returns false if the
// limit was reached and the diagnostic was dropped.
func (b *Bag) Add(d *Diagnostic) bool {
	if d == nil {
		return false
	}
	if b.limit != 0 && len(b.items) >= int(b.limit) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// HasErrors reports whether any diagnostic has Severity >= SevError. By convention,
// any such pass marks the compilation failed for the driver's exit code.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity >= SevError {
			return true
		}
	}
	return false
}

// Len returns the number of diagnostics currently held.
func (b *Bag) Len() int { return len(b.items) }

// Items returns the diagnostics in insertion order. Do not mutate the slice.
func (b *Bag) Items() []*Diagnostic { return b.items }

// Merge appends another bag's diagnostics, preserving overall order.
func (b *Bag) Merge(other *Bag) {
	b.items = append(b.items, other.items...)
}

// Sort orders diagnostics deterministically: by file, then start offset,
// then end offset, then severity (errors first), then code, for deterministic ordering
// guarantee operates at the pass level; Sort gives a stable within-run view).
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}
