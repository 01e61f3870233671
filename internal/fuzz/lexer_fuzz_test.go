package fuzztests

import (
	"testing"

	"blood/internal/diag"
	"blood/internal/lexer"
	"blood/internal/source"
	"blood/internal/token"
)

const maxFuzzInput = 1 << 16 // 64 KiB

func FuzzLexerTokens(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		input = append([]byte(nil), input...)

		fs := source.NewFileSet()
		fileID := fs.AddVirtual("fuzz.bl", input)
		bag := diag.NewBag(64)
		toks := lexer.Tokenize(lexer.FileInput{ID: fileID, Content: fs.Get(fileID).Content}, bag)

		if len(toks) == 0 {
			t.Fatal("token stream must at least contain EOF")
		}
		if toks[len(toks)-1].Kind != token.EOF {
			t.Fatalf("token stream must end in EOF, got %v", toks[len(toks)-1].Kind)
		}
		for _, tok := range toks {
			if tok.Span.End < tok.Span.Start {
				t.Fatalf("inverted token span: %v", tok.Span)
			}
		}
	})
}
