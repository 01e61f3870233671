package ast

import "blood/internal/source"

// StmtKind enumerates the surface statement grammar.
type StmtKind uint8

const (
	StInvalid StmtKind = iota
	StLet
	StExpr // expression statement, with or without a trailing `;`
	StItem // a local item declaration (nested fn, struct, ...)
	StEmpty
)

// Stmt is one node of the surface statement grammar.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	// StLet
	Pattern    PatternID
	TypeAnnot  TypeID // NoTypeID if omitted
	Init       ExprID // NoExprID for `let x: T;` with no initializer
	Linearity  LetLinearity

	// StExpr
	Expr         ExprID
	HasSemicolon bool

	// StItem
	Item ItemID
}

// LetLinearity records an explicit `linear`/`affine` qualifier written on a
// let-binding; LetUnrestricted means no qualifier was written and the
// binding's usage discipline is determined by its inferred type.
type LetLinearity uint8

const (
	LetUnrestricted LetLinearity = iota
	LetLinear
	LetAffine
)

// Stmts manages Stmt allocation.
type Stmts struct {
	Arena *Arena[Stmt]
}

func NewStmts() *Stmts { return &Stmts{Arena: NewArena[Stmt](128)} }

func (s *Stmts) New(st Stmt) StmtID { return StmtID(s.Arena.Allocate(st)) }

func (s *Stmts) Get(id StmtID) *Stmt { return s.Arena.Get(uint32(id)) }
