package lexer

import (
	"strings"

	"blood/internal/diag"
	"blood/internal/token"
)

// scanString scans a double-quoted string literal with standard escapes.
// Unterminated strings resynchronize at the next newline.
func (l *Lexer) scanString(start uint32) token.Token {
	l.cur.advance() // opening quote
	var sb strings.Builder
	terminated := false
	for !l.cur.eof() {
		r, size := l.cur.peek()
		if r == '"' {
			l.cur.advance()
			terminated = true
			break
		}
		if r == '\n' {
			break
		}
		if r == '\\' {
			l.cur.advance()
			esc, _ := l.cur.peek()
			l.cur.advance()
			sb.WriteRune(decodeEscape(esc))
			continue
		}
		l.cur.advance()
		_ = size
		sb.WriteRune(r)
	}
	if !terminated {
		l.addError(diag.LexUnterminatedString, l.span(start, l.cur.pos), "unterminated string literal")
	}
	return token.Token{
		Kind:    token.StringLit,
		Span:    l.span(start, l.cur.pos),
		Text:    string(l.file.Content[start:l.cur.pos]),
		StrVal:  sb.String(),
		Leading: l.takeTrivia(),
	}
}

func (l *Lexer) scanChar(start uint32) token.Token {
	l.cur.advance() // opening quote
	var value rune
	terminated := false
	if !l.cur.eof() {
		r, _ := l.cur.peek()
		if r == '\\' {
			l.cur.advance()
			esc, _ := l.cur.peek()
			l.cur.advance()
			value = decodeEscape(esc)
		} else {
			l.cur.advance()
			value = r
		}
	}
	if l.cur.byteAt(l.cur.pos) == '\'' {
		l.cur.advance()
		terminated = true
	}
	if !terminated {
		l.addError(diag.LexUnterminatedString, l.span(start, l.cur.pos), "unterminated char literal")
	}
	return token.Token{
		Kind:    token.CharLit,
		Span:    l.span(start, l.cur.pos),
		Text:    string(l.file.Content[start:l.cur.pos]),
		StrVal:  string(value),
		Leading: l.takeTrivia(),
	}
}

func decodeEscape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\':
		return '\\'
	case '"':
		return '"'
	case '\'':
		return '\''
	default:
		return r
	}
}
