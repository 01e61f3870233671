package fuzztests

import (
	"testing"

	"blood/internal/diag"
	"blood/internal/parser"
	"blood/internal/source"
)

func FuzzParseFile(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		input = append([]byte(nil), input...)

		fs := source.NewFileSet()
		fileID := fs.AddVirtual("fuzz.bl", input)
		bag := diag.NewBag(256)
		res := parser.ParseFile(fileID, fs.Get(fileID).Content, bag)

		// §4.2: the parser always produces a (possibly degraded) AST.
		if res.Files.Get(res.File) == nil {
			t.Fatal("parser produced no file node")
		}
	})
}
