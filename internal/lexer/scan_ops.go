package lexer

import (
	"blood/internal/diag"
	"blood/internal/token"
)

type opRule struct {
	bytes []byte
	kind  token.Kind
}

// opTable is ordered longest-match-first so e.g. "..=" wins over "..".
var opTable = []opRule{
	{[]byte("..="), token.DotDotEq},
	{[]byte("<<="), token.ShlAssign},
	{[]byte(">>="), token.ShrAssign},
	{[]byte("=="), token.EqEq},
	{[]byte("!="), token.BangEq},
	{[]byte("<="), token.LtEq},
	{[]byte(">="), token.GtEq},
	{[]byte("&&"), token.AndAnd},
	{[]byte("||"), token.OrOr},
	{[]byte("+="), token.PlusAssign},
	{[]byte("-="), token.MinusAssign},
	{[]byte("*="), token.StarAssign},
	{[]byte("/="), token.SlashAssign},
	{[]byte("%="), token.PercentAssign},
	{[]byte("&="), token.AmpAssign},
	{[]byte("|="), token.PipeAssign},
	{[]byte("^="), token.CaretAssign},
	{[]byte("<<"), token.Shl},
	{[]byte(">>"), token.Shr},
	{[]byte("|>"), token.PipeGt},
	{[]byte("::"), token.ColonColon},
	{[]byte("->"), token.Arrow},
	{[]byte("=>"), token.FatArrow},
	{[]byte(".."), token.DotDot},
	{[]byte("+"), token.Plus},
	{[]byte("-"), token.Minus},
	{[]byte("*"), token.Star},
	{[]byte("/"), token.Slash},
	{[]byte("%"), token.Percent},
	{[]byte("="), token.Assign},
	{[]byte("<"), token.Lt},
	{[]byte(">"), token.Gt},
	{[]byte("!"), token.Bang},
	{[]byte("&"), token.Amp},
	{[]byte("|"), token.Pipe},
	{[]byte("^"), token.Caret},
	{[]byte("~"), token.Tilde},
	{[]byte("?"), token.Question},
	{[]byte(":"), token.Colon},
	{[]byte(";"), token.Semicolon},
	{[]byte(","), token.Comma},
	{[]byte("."), token.Dot},
	{[]byte("@"), token.At},
	{[]byte("("), token.LParen},
	{[]byte(")"), token.RParen},
	{[]byte("{"), token.LBrace},
	{[]byte("}"), token.RBrace},
	{[]byte("["), token.LBracket},
	{[]byte("]"), token.RBracket},
}

func (l *Lexer) scanOperator(start uint32, r rune, size int) token.Token {
	for _, rule := range opTable {
		if l.matchesAt(start, rule.bytes) {
			for range rule.bytes {
				l.cur.advance()
			}
			return token.Token{Kind: rule.kind, Span: l.span(start, l.cur.pos), Text: string(l.file.Content[start:l.cur.pos]), Leading: l.takeTrivia()}
		}
	}
	l.addError(diag.LexUnknownChar, l.span(start, start+uint32(size)), "unrecognized character")
	l.cur.advance()
	return token.Token{Kind: token.Invalid, Span: l.span(start, l.cur.pos), Text: string(r), Leading: l.takeTrivia()}
}

func (l *Lexer) matchesAt(start uint32, pat []byte) bool {
	for i, b := range pat {
		if l.cur.byteAt(start+uint32(i)) != b {
			return false
		}
	}
	return true
}
