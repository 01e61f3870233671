// Package lexer transforms Blood source text into a stream of tokens per
// Failures (unterminated strings, invalid numerics, invalid
// UTF-8) resynchronize rather than abort, producing an error token in place.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/token"
)

// Lexer produces a token stream from a single source file.
type Lexer struct {
	file FileInput
	cur  *cursor
	diag *diag.Bag
	pend []token.Trivia
}

// FileInput is the minimal surface the lexer needs from a loaded source.
type FileInput struct {
	ID      source.FileID
	Content []byte
}

// New constructs a Lexer over the given file content.
func New(file FileInput, bag *diag.Bag) *Lexer {
	return &Lexer{
		file: file,
		cur:  newCursor(file.Content),
		diag: bag,
	}
}

// Tokenize scans the full input and returns its token stream (always ending
// in exactly one EOF token) regardless of lexical errors encountered.
func Tokenize(file FileInput, bag *diag.Bag) []token.Token {
	lx := New(file, bag)
	var out []token.Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

func (l *Lexer) span(start, end uint32) source.Span {
	return source.Span{File: l.file.ID, Start: start, End: end}
}

// Next scans and returns the next token, collecting any leading trivia.
func (l *Lexer) Next() token.Token {
	l.pend = l.pend[:0]
	for {
		l.skipTriviaRun()
		if l.cur.eof() {
			return token.Token{Kind: token.EOF, Span: l.span(l.cur.pos, l.cur.pos), Leading: l.takeTrivia()}
		}
		start := l.cur.pos
		r, size := l.cur.peek()
		if size == 0 {
			// Invalid UTF-8: report and skip one byte.
			l.addError(diag.LexUnknownChar, l.span(start, start+1), "invalid UTF-8 sequence")
			l.cur.pos++
			continue
		}

		switch {
		case r == '/' && l.cur.peekAt(1) == '/':
			l.scanLineComment()
			continue
		case r == '/' && l.cur.peekAt(1) == '*':
			l.scanBlockComment()
			continue
		case unicode.IsSpace(r):
			l.cur.advance()
			continue
		case isIdentStart(r):
			return l.scanIdentOrKeyword(start)
		case unicode.IsDigit(r):
			return l.scanNumber(start)
		case r == '"':
			return l.scanString(start)
		case r == '\'':
			return l.scanChar(start)
		default:
			return l.scanOperator(start, r, size)
		}
	}
}

func (l *Lexer) skipTriviaRun() {
	for {
		r, size := l.cur.peek()
		if size == 0 {
			return
		}
		if unicode.IsSpace(r) {
			l.cur.advance()
			continue
		}
		if r == '/' && l.cur.peekAt(1) == '/' {
			l.scanLineComment()
			continue
		}
		if r == '/' && l.cur.peekAt(1) == '*' {
			l.scanBlockComment()
			continue
		}
		return
	}
}

func (l *Lexer) takeTrivia() []token.Trivia {
	if len(l.pend) == 0 {
		return nil
	}
	out := make([]token.Trivia, len(l.pend))
	copy(out, l.pend)
	l.pend = l.pend[:0]
	return out
}

func (l *Lexer) scanLineComment() {
	start := l.cur.pos
	isDoc := l.cur.peekAt(2) == '/'
	for !l.cur.eof() {
		r, _ := l.cur.peek()
		if r == '\n' {
			break
		}
		l.cur.advance()
	}
	kind := token.TriviaLineComment
	if isDoc {
		kind = token.TriviaDocComment
	}
	l.pend = append(l.pend, token.Trivia{Kind: kind, Span: l.span(start, l.cur.pos), Text: string(l.file.Content[start:l.cur.pos])})
}

func (l *Lexer) scanBlockComment() {
	start := l.cur.pos
	l.cur.advance() // '/'
	l.cur.advance() // '*'
	depth := 1
	for !l.cur.eof() && depth > 0 {
		r, _ := l.cur.peek()
		if r == '/' && l.cur.peekAt(1) == '*' {
			l.cur.advance()
			l.cur.advance()
			depth++
			continue
		}
		if r == '*' && l.cur.peekAt(1) == '/' {
			l.cur.advance()
			l.cur.advance()
			depth--
			continue
		}
		l.cur.advance()
	}
	if depth > 0 {
		l.addError(diag.LexUnterminatedBlockComment, l.span(start, l.cur.pos), "unterminated block comment")
	}
	l.pend = append(l.pend, token.Trivia{Kind: token.TriviaBlockComment, Span: l.span(start, l.cur.pos), Text: string(l.file.Content[start:l.cur.pos])})
}

func (l *Lexer) addError(code diag.Code, sp source.Span, msg string) {
	if l.diag == nil {
		return
	}
	l.diag.Add(&diag.Diagnostic{Severity: diag.SevError, Code: code, Message: msg, Primary: sp})
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentCont(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) scanIdentOrKeyword(start uint32) token.Token {
	for {
		r, size := l.cur.peek()
		if size == 0 || !isIdentCont(r) {
			break
		}
		l.cur.advance()
	}
	text := string(l.file.Content[start:l.cur.pos])
	kind := token.Ident
	if kw, ok := token.LookupKeyword(text); ok {
		kind = kw
	}
	if text == "true" || text == "false" {
		kind = token.BoolLit
	}
	return token.Token{Kind: kind, Span: l.span(start, l.cur.pos), Text: text, Leading: l.takeTrivia()}
}

// runeLen reports the byte width of r as encoded.
func runeLen(r rune) int { return utf8.RuneLen(r) }
