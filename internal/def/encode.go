package def

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// The handoff encoding (§6.3) serializes the definition table for the
// external code generator. msgpack keeps the boundary binary and
// schema-tagged; the schema below only ever grows.

// Payload is the per-definition data the driver supplies: the parts of
// the handoff the table itself does not own (lowered MIR for functions,
// layout for types, attributes).
type Payload struct {
	MIR         string `msgpack:"mir,omitempty"`
	LayoutSize  int    `msgpack:"layout_size,omitempty"`
	LayoutAlign int    `msgpack:"layout_align,omitempty"`
	Unchecked   uint8  `msgpack:"unchecked,omitempty"`
}

// EncodedDef is one wire record of the handoff.
type EncodedDef struct {
	ID   uint32 `msgpack:"id"`
	Name string `msgpack:"name"`
	Kind uint8  `msgpack:"kind"`
	Hash []byte `msgpack:"hash"`

	Payload Payload `msgpack:"payload"`
}

// EncodedTable is the whole handoff document.
type EncodedTable struct {
	Version int          `msgpack:"version"`
	Defs    []EncodedDef `msgpack:"defs"`
}

// handoffVersion bumps only on additive schema changes.
const handoffVersion = 1

// Export serializes the table. payloadOf may be nil when the caller only
// needs identity records (tests, tooling).
func (t *Table) Export(payloadOf func(DefID) Payload) ([]byte, error) {
	doc := EncodedTable{Version: handoffVersion, Defs: make([]EncodedDef, 0, t.Len())}
	for i := 1; i <= t.Len(); i++ {
		id := DefID(i)
		d := t.Get(id)
		rec := EncodedDef{
			ID:   uint32(id),
			Name: d.Name,
			Kind: uint8(d.Kind),
			Hash: append([]byte(nil), d.Hash[:]...),
		}
		if payloadOf != nil {
			rec.Payload = payloadOf(id)
		}
		doc.Defs = append(doc.Defs, rec)
	}
	out, err := msgpack.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("def: encode handoff: %w", err)
	}
	return out, nil
}

// Import decodes a handoff document, for round-trip tests and tooling
// that inspects a cached table.
func Import(data []byte) (*EncodedTable, error) {
	var doc EncodedTable
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("def: decode handoff: %w", err)
	}
	if doc.Version > handoffVersion {
		return nil, fmt.Errorf("def: handoff version %d is newer than this compiler", doc.Version)
	}
	return &doc, nil
}
