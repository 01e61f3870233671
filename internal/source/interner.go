package source

import "slices"

// SymbolID is the 32-bit index of an interned string (§3.2): identifiers,
// field labels, and effect operation names all intern to SymbolIDs.
// Interning is deterministic within one compilation but carries no
// cross-run canonicality promise; content addressing uses def.DefHash, not
// SymbolIDs.
type SymbolID uint32

// NoSymbolID is the reserved sentinel; it always resolves to "".
const NoSymbolID SymbolID = 0

// Interner deduplicates strings into dense SymbolIDs. The core pipeline is
// single-threaded (§5), so the interner performs no locking; it is
// append-only during collection and effectively immutable afterwards.
type Interner struct {
	byID  []string
	index map[string]SymbolID
}

// NewInterner creates an Interner with the NoSymbolID sentinel pre-seeded.
func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]SymbolID{"": 0},
	}
}

// Intern returns the SymbolID for s, allocating one on first sight. The
// string is copied so the ID never aliases a caller-owned buffer (the lexer
// hands out sub-slices of the source text).
func (i *Interner) Intern(s string) SymbolID {
	if id, ok := i.index[s]; ok {
		return id
	}
	cpy := string([]byte(s))
	id := SymbolID(len(i.byID))
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// InternBytes interns a byte slice without an extra conversion at the call
// site.
func (i *Interner) InternBytes(b []byte) SymbolID {
	return i.Intern(string(b))
}

// Lookup resolves id back to its string. Returns "" and false for an ID
// this interner never issued.
func (i *Interner) Lookup(id SymbolID) (string, bool) {
	if int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup resolves id, panicking on an ID this interner never issued; a
// dangling SymbolID reaching a lookup is an internal invariant violation
// (§7), not a recoverable condition.
func (i *Interner) MustLookup(id SymbolID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("source: lookup of unissued SymbolID")
	}
	return s
}

// Has reports whether id was issued by this interner.
func (i *Interner) Has(id SymbolID) bool {
	return int(id) < len(i.byID)
}

// Len reports how many strings are interned, counting the sentinel.
func (i *Interner) Len() int { return len(i.byID) }

// Snapshot copies out the interned strings in ID order, for golden dumps.
func (i *Interner) Snapshot() []string { return slices.Clone(i.byID) }
