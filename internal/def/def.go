// Package def implements the content-addressed definition table (§3.3,
// §6.3): every top-level item — function, struct, enum, trait, impl,
// effect, and handler — is assigned a dense DefID at collection time, and
// additionally a stable structural DefHash computed from its canonicalized
// HIR so that two definitions with identical shape (ignoring source spans
// and surface names of bound variables) are recognized as the same
// definition across incremental recompiles.
//
// The table is a 1-based arena with a reserved zero sentinel; the content
// hash is what makes definitions addressable across recompiles, since
// DefIDs themselves are assigned per run.
package def

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"

	"blood/internal/source"
)

// DefID identifies one definition inside a Table.
type DefID uint32

// NoDefID marks the absence of a definition.
const NoDefID DefID = 0

// DefHash is the sha256 digest of a definition's canonicalized HIR shape.
// It is truncated for readability in diagnostics but compared in full.
type DefHash [32]byte

func (h DefHash) String() string { return fmt.Sprintf("%x", h[:8]) }

// Kind distinguishes the category of top-level item a Definition denotes.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFn
	KindStruct
	KindEnum
	KindTrait
	KindImpl
	KindEffect
	KindHandler
	KindConst
	KindStatic
)

// Definition is one entry of the definition table: its declared name (for
// diagnostics and dispatch-candidate listing), its source span, its kind,
// and — once computed by Hash — its content address.
type Definition struct {
	Name  string
	Sym   source.SymbolID // interned Name (§3.2)
	Kind  Kind
	Span  source.Span
	Hash  DefHash
	Extra any // Kind-specific payload set by internal/hir (e.g. *LoweredFn)
}

// Table is the dense, append-only arena of Definitions for one compilation
// unit (reserved zero sentinel, 1-based allocation).
type Table struct {
	defs []Definition
	// byHash indexes definitions by content hash once SetHash has been
	// called, so ByHash can find a definition by its content address. New
	// does not consult it: every New allocates a fresh DefID.
	byHash map[DefHash]DefID
}

// NewTable constructs an empty definition table.
func NewTable() *Table {
	return &Table{
		defs:   make([]Definition, 1), // index 0 reserved for NoDefID
		byHash: make(map[DefHash]DefID, 64),
	}
}

// New allocates a Definition and returns its DefID.
func (t *Table) New(d Definition) DefID {
	t.defs = append(t.defs, d)
	n, err := safecast.Conv[uint32](len(t.defs) - 1)
	if err != nil {
		panic(fmt.Errorf("def: table overflow: %w", err))
	}
	return DefID(n)
}

// Get returns the Definition for id. Panics on an out-of-range id: a bad
// DefID reaching this point is an internal invariant violation, the kind
// the core's other arenas also choose to panic on rather than recover from.
func (t *Table) Get(id DefID) *Definition {
	return &t.defs[id]
}

// Len reports the number of live definitions, excluding the sentinel.
func (t *Table) Len() int { return len(t.defs) - 1 }

// SetHash records d's content hash and indexes it for lookup by ByHash.
func (t *Table) SetHash(id DefID, h DefHash) {
	t.defs[id].Hash = h
	t.byHash[h] = id
}

// ByHash returns the DefID previously registered under h, if any.
func (t *Table) ByHash(h DefHash) (DefID, bool) {
	id, ok := t.byHash[h]
	return id, ok
}

// Hasher incrementally folds a definition's canonical shape into a sha256
// digest. Canonicalization rules (§6.3): bound-variable names are replaced
// by their de Bruijn-style slot index before hashing, and source spans are
// never fed into the digest, so alpha-renaming or reformatting a definition
// does not change its DefHash.
type Hasher struct {
	h []byte
}

// NewHasher starts a fresh canonical-shape digest seeded with the
// definition's Kind and declared name, since two definitions of different
// kind (or belonging to different names, for non-anonymous items) must
// never collide even if their bodies happen to coincide.
func NewHasher(kind Kind, name string) *Hasher {
	hr := &Hasher{}
	hr.writeByte(byte(kind))
	hr.writeString(name)
	return hr
}

func (hr *Hasher) writeByte(b byte) { hr.h = append(hr.h, b) }

func (hr *Hasher) writeString(s string) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	hr.h = append(hr.h, lenBuf[:]...)
	hr.h = append(hr.h, s...)
}

// WriteTag folds a structural discriminator (an AST/HIR node kind, a
// binder-slot index, a literal value rendered as text) into the digest.
func (hr *Hasher) WriteTag(tag string) { hr.writeString(tag) }

// WriteUint folds a canonicalized integer (e.g. a de Bruijn index, an
// arity, a field count) into the digest.
func (hr *Hasher) WriteUint(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	hr.h = append(hr.h, buf[:]...)
}

// WriteHash folds a nested definition's already-computed hash in, so the
// outer DefHash depends on the referenced definition's DefHash rather than
// its DefID (which is not stable across recompiles); a handler's hash folds
// in the hash of the effect it handles this way.
func (hr *Hasher) WriteHash(nested DefHash) { hr.h = append(hr.h, nested[:]...) }

// Sum finalizes the digest.
func (hr *Hasher) Sum() DefHash {
	return sha256.Sum256(hr.h)
}
