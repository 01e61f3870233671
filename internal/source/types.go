package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata discovered while normalizing a source file.
	FileFlags uint8
)

const (
	// FileVirtual marks a source added from memory (tests, stdin, generated code).
	FileVirtual FileFlags = 1 << iota
	// FileHadBOM marks a source that carried a UTF-8 byte-order mark on disk.
	FileHadBOM
	// FileNormalizedCRLF marks a source whose line endings were rewritten to LF.
	FileNormalizedCRLF
)

// File owns the UTF-8 text of one input file together with the metadata
// needed to resolve spans back to human-readable positions.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a human-readable 1-based line/column position.
type LineCol struct {
	Line uint32
	Col  uint32
}
