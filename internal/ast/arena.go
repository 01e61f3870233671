// Package ast defines Blood's surface syntax tree. Nodes are stored in
// dense per-kind arenas and referenced by 1-based index types, never by
// pointer — this keeps the tree free of back-pointers and makes every
// cross-reference (parent, sibling, type slot) a flat table lookup, per the
// flat arenas and referenced by dense index IDs rather than pointers.
package ast

import (
	"fmt"

	"fortio.org/safecast"
)

// Arena is a generic dense store for AST node values of one kind.
type Arena[T any] struct {
	data []*T
}

// NewArena creates an Arena with an initial capacity hint.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{data: make([]*T, 0, capHint)}
}

// Allocate appends a value and returns its 1-based index.
func (a *Arena[T]) Allocate(value T) uint32 {
	elem := new(T)
	*elem = value
	a.data = append(a.data, elem)
	return a.Len()
}

// Get returns a pointer to the element at a 1-based index, or nil for 0.
func (a *Arena[T]) Get(index uint32) *T {
	if index == 0 {
		return nil
	}
	return a.data[index-1]
}

// Len returns the number of elements allocated.
func (a *Arena[T]) Len() uint32 {
	n, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("ast: arena length overflow: %w", err))
	}
	return n
}

// Slice returns a defensive copy of the arena's contents.
func (a *Arena[T]) Slice() []T {
	out := make([]T, len(a.data))
	for i, p := range a.data {
		out[i] = *p
	}
	return out
}
