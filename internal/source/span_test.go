package source

import "testing"

func TestSpanBasics(t *testing.T) {
	sp := Span{File: 1, Start: 10, End: 20}
	if sp.Empty() || sp.Len() != 10 {
		t.Errorf("span %v: Empty=%v Len=%d", sp, sp.Empty(), sp.Len())
	}
	if (Span{File: 1, Start: 5, End: 5}).Empty() != true {
		t.Error("zero-length span must be Empty")
	}
	if got := sp.String(); got != "1:10-20" {
		t.Errorf("String() = %q", got)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 15}
	if got := a.Cover(b); got != (Span{File: 1, Start: 5, End: 20}) {
		t.Errorf("Cover = %v", got)
	}
	// Covering a span from another file keeps the receiver unchanged.
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Errorf("cross-file Cover = %v, want %v", got, a)
	}
	// Cover with a contained span is the identity.
	inner := Span{File: 1, Start: 12, End: 14}
	if got := a.Cover(inner); got != a {
		t.Errorf("containing Cover = %v, want %v", got, a)
	}
}

func TestSpanExtend(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}

	// ExtendRight stretches up to the start of a strictly later span.
	if got := a.ExtendRight(Span{File: 1, Start: 25, End: 30}); got != (Span{File: 1, Start: 10, End: 25}) {
		t.Errorf("ExtendRight = %v", got)
	}
	// Overlapping spans leave the receiver unchanged.
	if got := a.ExtendRight(Span{File: 1, Start: 18, End: 30}); got != a {
		t.Errorf("overlapping ExtendRight = %v", got)
	}
	// ExtendLeft stretches back to the end of a strictly earlier span.
	if got := a.ExtendLeft(Span{File: 1, Start: 2, End: 4}); got != (Span{File: 1, Start: 4, End: 20}) {
		t.Errorf("ExtendLeft = %v", got)
	}
}

func TestSpanOrdering(t *testing.T) {
	left := Span{File: 1, Start: 0, End: 5}
	right := Span{File: 1, Start: 10, End: 15}

	if !left.IsLeftThan(right) {
		t.Error("IsLeftThan failed on disjoint ordered spans")
	}
	if !right.IsRightThan(left) {
		t.Error("IsRightThan failed on disjoint ordered spans")
	}
	if left.IsRightThan(right) {
		t.Error("IsRightThan accepted an earlier span")
	}
}

func TestSpanShift(t *testing.T) {
	sp := Span{File: 1, Start: 10, End: 20}

	if got := sp.ShiftLeft(5); got != (Span{File: 1, Start: 5, End: 15}) {
		t.Errorf("ShiftLeft(5) = %v", got)
	}
	if got := sp.ShiftLeft(0); got != sp {
		t.Errorf("ShiftLeft(0) = %v", got)
	}
	// Shifting past the file origin is refused rather than wrapped.
	if got := sp.ShiftLeft(15); got != sp {
		t.Errorf("out-of-range ShiftLeft = %v, want original", got)
	}
	if got := sp.ShiftRight(7); got != (Span{File: 1, Start: 17, End: 27}) {
		t.Errorf("ShiftRight(7) = %v", got)
	}
}

func TestSpanZeroide(t *testing.T) {
	sp := Span{File: 3, Start: 10, End: 20}
	if got := sp.ZeroideToStart(); got != (Span{File: 3, Start: 10, End: 10}) {
		t.Errorf("ZeroideToStart = %v", got)
	}
	if got := sp.ZeroideToEnd(); got != (Span{File: 3, Start: 20, End: 20}) {
		t.Errorf("ZeroideToEnd = %v", got)
	}
}
