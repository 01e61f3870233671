package ast

import "blood/internal/source"

// File is the root AST node for one compilation unit.
type File struct {
	Span  source.Span
	Items []ItemID
}

// Files manages File allocation; in practice the core processes one File at
// a time, but the arena supports holding several for tests.
type Files struct {
	Arena *Arena[File]
}

func NewFiles() *Files {
	return &Files{Arena: NewArena[File](4)}
}

func (f *Files) New(sp source.Span, items []ItemID) FileID {
	return FileID(f.Arena.Allocate(File{Span: sp, Items: items}))
}

func (f *Files) Get(id FileID) *File {
	return f.Arena.Get(uint32(id))
}
