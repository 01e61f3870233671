// Package parser builds the surface AST using hand-written recursive
// descent for items, statements, patterns, and types, and Pratt-style
// precedence climbing for expressions.
//
// Rather than streaming tokens lazily from the lexer via
// Peek/Next, this parser tokenizes the whole file up front with
// lexer.Tokenize and walks a flat slice. The lexer's Next yields one token
// at a time with no way to back up (see internal/lexer), so a pre-tokenized
// stream is the simplest way to get unbounded lookahead (needed for
// disambiguating e.g. struct literals from block-starting expressions)
// without threading a save/restore checkpoint through the lexer itself.
package parser

import (
	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/token"
)

// stream is a cursor over a pre-scanned token slice.
type stream struct {
	toks []token.Token
	pos  int
}

func newStream(toks []token.Token) *stream {
	if len(toks) == 0 {
		toks = []token.Token{{Kind: token.EOF}}
	}
	return &stream{toks: toks}
}

func (s *stream) peek() token.Token  { return s.peekAt(0) }
func (s *stream) peekAt(n int) token.Token {
	i := s.pos + n
	if i >= len(s.toks) {
		return s.toks[len(s.toks)-1] // EOF
	}
	return s.toks[i]
}

func (s *stream) next() token.Token {
	t := s.peek()
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return t
}

func (s *stream) at(k token.Kind) bool { return s.peek().Kind == k }

func (s *stream) atAny(kinds ...token.Kind) bool {
	cur := s.peek().Kind
	for _, k := range kinds {
		if cur == k {
			return true
		}
	}
	return false
}

// mark/reset save and restore the cursor position for bounded
// backtracking. The parser has no caller of them: struct-literal vs block
// disambiguation looks ahead with peekAt instead.
type checkpoint int

func (s *stream) mark() checkpoint    { return checkpoint(s.pos) }
func (s *stream) reset(c checkpoint)  { s.pos = int(c) }

// emptySpan returns a zero-length span at the current position, used when
// no tokens were consumed (e.g. empty input).
func (s *stream) emptySpan(file source.FileID) source.Span {
	p := s.peek()
	return source.Span{File: file, Start: p.Span.Start, End: p.Span.Start}
}

func bagOf(b *diag.Bag) *diag.Bag {
	if b == nil {
		return diag.NewBag(0)
	}
	return b
}
