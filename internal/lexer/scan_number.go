package lexer

import (
	"blood/internal/diag"
	"blood/internal/token"
)

// scanNumber handles decimal, hex (0x), binary (0b), and octal (0o) integer
// literals plus float literals, optional digit-group underscores, and an
// optional type suffix (i32, u64, f64, usize, ...).
func (l *Lexer) scanNumber(start uint32) token.Token {
	if l.cur.byteAt(l.cur.pos) == '0' {
		switch l.cur.peekAt(1) {
		case 'x', 'X':
			return l.scanRadix(start, 16, isHexDigit)
		case 'b', 'B':
			return l.scanRadix(start, 2, isBinDigit)
		case 'o', 'O':
			return l.scanRadix(start, 8, isOctDigit)
		}
	}

	isFloat := false
	l.consumeDigitsWithUnderscore(isDecDigit)
	if l.cur.byteAt(l.cur.pos) == '.' && isDecDigit(rune(l.cur.byteAt(l.cur.pos+1))) {
		isFloat = true
		l.cur.advance()
		l.consumeDigitsWithUnderscore(isDecDigit)
	}
	if b := l.cur.byteAt(l.cur.pos); b == 'e' || b == 'E' {
		save := l.cur.pos
		l.cur.advance()
		if b2 := l.cur.byteAt(l.cur.pos); b2 == '+' || b2 == '-' {
			l.cur.advance()
		}
		if isDecDigit(rune(l.cur.byteAt(l.cur.pos))) {
			isFloat = true
			l.consumeDigitsWithUnderscore(isDecDigit)
		} else {
			l.cur.pos = save
		}
	}

	suffixStart := l.cur.pos
	l.consumeSuffix()
	text := string(l.file.Content[start:l.cur.pos])
	_ = suffixStart

	kind := token.IntLit
	if isFloat {
		kind = token.FloatLit
	}
	return token.Token{Kind: kind, Span: l.span(start, l.cur.pos), Text: text, Leading: l.takeTrivia()}
}

func (l *Lexer) scanRadix(start uint32, radix int, digit func(rune) bool) token.Token {
	l.cur.advance() // '0'
	l.cur.advance() // x/b/o
	digitsStart := l.cur.pos
	l.consumeDigitsWithUnderscore(digit)
	if l.cur.pos == digitsStart {
		l.addError(diag.LexBadNumber, l.span(start, l.cur.pos), "malformed numeric literal: no digits after radix prefix")
	}
	l.consumeSuffix()
	text := string(l.file.Content[start:l.cur.pos])
	_ = radix
	return token.Token{Kind: token.IntLit, Span: l.span(start, l.cur.pos), Text: text, Leading: l.takeTrivia()}
}

func (l *Lexer) consumeDigitsWithUnderscore(digit func(rune) bool) {
	for {
		b := l.cur.byteAt(l.cur.pos)
		if digit(rune(b)) || b == '_' {
			l.cur.pos++
			continue
		}
		break
	}
}

func (l *Lexer) consumeSuffix() {
	r, size := l.cur.peek()
	if size == 0 || !isIdentStart(r) {
		return
	}
	for {
		r, size := l.cur.peek()
		if size == 0 || !isIdentCont(r) {
			return
		}
		l.cur.advance()
	}
}

func isDecDigit(r rune) bool { return r >= '0' && r <= '9' }
func isHexDigit(r rune) bool {
	return isDecDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
func isBinDigit(r rune) bool { return r == '0' || r == '1' }
func isOctDigit(r rune) bool { return r >= '0' && r <= '7' }
