// Package mir implements Blood's mid-level intermediate representation
// (§3.8): a control-flow graph of basic blocks holding typed statements
// and a single terminator each, plus the construction pass that lowers
// typed HIR into it (§4.5) with an expression cursor threading the current
// block.
//
// Statements and terminators are kind-tagged structs with per-kind payload
// fields, ids are dense int32 with -1 sentinels, each function carries a
// Local table, and a validate pass treats any malformed graph as an
// internal invariant violation rather than a user diagnostic (§7: MIR
// invariant violations are bugs).
package mir

import (
	"blood/internal/abi"
	"blood/internal/ast"
	"blood/internal/def"
	"blood/internal/hir"
	"blood/internal/source"
	"blood/internal/types"
)

// FuncID identifies a function body in a Module.
type FuncID int32

// BlockID identifies a basic block within one Body.
type BlockID int32

// LocalID identifies a local slot within one Body.
type LocalID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1
)

// Tier is the allocation class escape analysis assigns to a local (§4.6).
type Tier uint8

const (
	TierUnassigned Tier = iota
	TierStack
	TierRegion
	TierPersistent
)

func (t Tier) String() string {
	switch t {
	case TierStack:
		return "stack"
	case TierRegion:
		return "region"
	case TierPersistent:
		return "persistent"
	default:
		return "unassigned"
	}
}

// EscapeState is the escape lattice (§4.6): NoEscape ⊏ ArgEscape ⊏
// GlobalEscape, join = max.
type EscapeState uint8

const (
	NoEscape EscapeState = iota
	ArgEscape
	GlobalEscape
)

func (s EscapeState) String() string {
	switch s {
	case NoEscape:
		return "none"
	case ArgEscape:
		return "arg"
	default:
		return "global"
	}
}

// Join returns the lattice join of two escape states.
func (s EscapeState) Join(o EscapeState) EscapeState {
	if o > s {
		return o
	}
	return s
}

// Local is one MIR variable: its type, its source identity (when it has
// one), and the tier annotation escape analysis computes later.
type Local struct {
	Name string // "" for compiler temporaries
	Type types.TypeID
	Span source.Span

	HIRLocal hir.LocalID // hir.NoLocalID for temporaries

	Tier   Tier
	Escape EscapeState
	// EffectCaptured marks locals that crossed a Perform boundary; they
	// are never stack-promotable (§4.6 step 4).
	EffectCaptured bool
	StackPromoted  bool
}

// ProjKind distinguishes place projections.
type ProjKind uint8

const (
	ProjField ProjKind = iota
	ProjIndex
	ProjDeref
	ProjDowncast
)

// Proj is one projection step of a place path.
type Proj struct {
	Kind ProjKind

	FieldIdx   int
	IndexLocal LocalID
	VariantIdx int // ProjDowncast
}

// Place is a rooted access path: a local followed by projections (§3.8).
type Place struct {
	Local LocalID
	Proj  []Proj
}

// PlaceOf builds a projection-free place.
func PlaceOf(l LocalID) Place { return Place{Local: l} }

// IsValid reports whether the place has a root.
func (p Place) IsValid() bool { return p.Local != NoLocalID }

// ConstKind distinguishes constant operand kinds.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstString
	ConstUnit
	ConstFn // a function definition used as a value
)

// Const is a literal operand.
type Const struct {
	Kind ConstKind
	Type types.TypeID

	IntValue    uint64
	FloatValue  float64
	BoolValue   bool
	StringValue string
	Fn          def.DefID
}

// OperandKind distinguishes operand kinds.
type OperandKind uint8

const (
	OperandConst OperandKind = iota
	OperandCopy
	OperandMove
)

// Operand is a value read: a constant or a place copied/moved out of.
type Operand struct {
	Kind  OperandKind
	Type  types.TypeID
	Const Const
	Place Place
}

// RValueKind enumerates right-hand sides (§3.8).
type RValueKind uint8

const (
	RValueUse RValueKind = iota
	RValueRef
	RValueAddressOf
	RValueBinaryOp
	RValueUnaryOp
	RValueCast
	RValueAggregate
	RValueDiscriminant
	RValueLen
	RValueReadGeneration
	RValueZeroInit
)

// AggregateKind distinguishes what an Aggregate rvalue builds.
type AggregateKind uint8

const (
	AggTuple AggregateKind = iota
	AggArray
	AggStruct
	AggVariant
	AggClosure
	AggRecord
)

// RValue is one right-hand side of an assignment. Binary/unary operators
// reuse the surface operator enums; short-circuiting && and || never reach
// an RValue (they become control flow during lowering).
type RValue struct {
	Kind RValueKind
	Type types.TypeID

	Use Operand // RValueUse / RValueCast (source)

	Place   Place // RValueRef / RValueAddressOf / Discriminant / Len / ReadGeneration
	Mutable bool  // RValueRef

	BinOp ast.BinOp // RValueBinaryOp
	LHS   Operand   // also RValueUnaryOp operand
	RHS   Operand
	UnOp  ast.UnOp

	Agg        AggregateKind // RValueAggregate
	AggDef     def.DefID     // struct/enum/closure fn definition
	VariantIdx int
	Operands   []Operand

	CastTo types.TypeID // RValueCast
}

// StatementKind enumerates statement kinds (§3.8).
type StatementKind uint8

const (
	StmtAssign StatementKind = iota
	StmtStorageLive
	StmtStorageDead
	StmtCaptureSnapshot
	StmtNop
)

// Statement is one non-terminator instruction.
type Statement struct {
	Kind StatementKind
	Span source.Span

	Place  Place  // StmtAssign
	RValue RValue // StmtAssign

	Local LocalID // StmtStorageLive / StmtStorageDead / StmtCaptureSnapshot
}

// TermKind enumerates terminator kinds (§3.8).
type TermKind uint8

const (
	TermNone TermKind = iota
	TermGoto
	TermIf
	TermSwitchInt
	TermReturn
	TermCall
	TermPerform
	TermResume
	TermAssert
	TermUnreachable
	TermDropAndReplace
	TermStaleReference
)

func (k TermKind) String() string {
	names := [...]string{
		"none", "goto", "if", "switchInt", "return", "call", "perform",
		"resume", "assert", "unreachable", "dropAndReplace", "staleReference",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// SwitchCase is one value arm of a SwitchInt terminator.
type SwitchCase struct {
	Value  uint64
	Target BlockID
}

// Terminator ends a basic block. Exactly one per block (§3.8 invariant).
type Terminator struct {
	Kind TermKind
	Span source.Span

	Target BlockID // Goto; Call/Perform continuation

	Cond Operand // If / Assert
	Then BlockID
	Else BlockID

	Discr   Operand // SwitchInt
	Cases   []SwitchCase
	Default BlockID

	HasValue bool    // Return / Resume
	Value    Operand // Return value / Resume value / DropAndReplace replacement

	Callee      def.DefID     // Call: direct callee; NoDefID for an indirect call
	CalleeValue Operand       // Call: indirect callee operand
	AbiCall     abi.Primitive // Call: a runtime ABI primitive instead of a DefID (§6.5)
	Args        []Operand     // Call / Perform
	Dest        Place         // Call / Perform destination

	Effect  def.DefID // Perform
	OpIndex int       // Perform

	Expected bool   // Assert: the value Cond must equal
	Msg      string // Assert / StaleReference

	Place Place // DropAndReplace / StaleReference
}

// Block is one basic block: statements then a single terminator.
type Block struct {
	ID    BlockID
	Stmts []Statement
	Term  Terminator
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool { return b.Term.Kind != TermNone }

// Body is the MIR of one function (§4.5): arg count, local table, blocks.
// The entry block has id 0. Local 0 is the dedicated return place and the
// parameters occupy locals 1..ArgCount, matching the pre-binding contract
// of §4.5's post-conditions.
type Body struct {
	ID   FuncID
	Def  def.DefID
	Name string
	Span source.Span

	ArgCount int
	Locals   []Local
	Blocks   []Block
	Entry    BlockID

	Ret types.TypeID
	// EffectRow is the function's final inferred/declared row, carried for
	// the codegen handoff (§6.4).
	EffectRow types.EffectRow
}

// LocalAt returns the local table entry, panicking on a bad id (an invalid
// LocalID here is an internal invariant violation, §7).
func (b *Body) LocalAt(id LocalID) *Local { return &b.Locals[id] }

// BlockAt returns the block, panicking on a bad id.
func (b *Body) BlockAt(id BlockID) *Block { return &b.Blocks[id] }

// ReturnLocal is the dedicated return place, always local 0.
const ReturnLocal LocalID = 0

// Module is the forest of lowered bodies handed to code generation (§6.4),
// keyed by the same DefIDs the definition table exports.
type Module struct {
	Bodies []*Body
	byDef  map[def.DefID]*Body
}

// NewModule creates an empty MIR module.
func NewModule() *Module {
	return &Module{byDef: make(map[def.DefID]*Body, 16)}
}

// Add registers a lowered body.
func (m *Module) Add(b *Body) {
	b.ID = FuncID(len(m.Bodies))
	m.Bodies = append(m.Bodies, b)
	if b.Def != def.NoDefID {
		m.byDef[b.Def] = b
	}
}

// ByDef returns the body lowered for a definition, or nil.
func (m *Module) ByDef(id def.DefID) *Body { return m.byDef[id] }
