// Package hir provides Blood's High-level Intermediate Representation: a
// typed, resolved, partially-desugared tree built from internal/ast by the
// collector and resolver in this package. HIR sits between the surface AST
// and internal/infer's type-and-effect solutions: every name has been
// resolved to a LocalID or a def.DefID, and the sugar forms the parser
// still preserves (else-if chains, compound assignment, `?`) have been
// rewritten to their core-form equivalents per §3.5; `for` keeps its own
// EkFor node.
//
// Nodes are kind-tagged structs in dense 1-based arenas, the same layout
// internal/ast uses, so inference can fill type slots in place (§3.9) and
// desugared forms can alias subtrees (compound assignment shares its
// target node between the read and the write, giving MIR its read-once
// handle).
package hir

// FuncID identifies a lowered function within a Module.
type FuncID uint32

// LocalID identifies a local binding (parameter, let-binding, match-arm
// capture, closure capture) within one function body.
type LocalID uint32

const (
	NoFuncID  FuncID  = 0
	NoLocalID LocalID = 0
)

func (id FuncID) IsValid() bool  { return id != NoFuncID }
func (id LocalID) IsValid() bool { return id != NoLocalID }
