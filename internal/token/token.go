package token

import "blood/internal/source"

// Token is a single lexical token with its location and literal text.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string // raw source text, unescaped
	StrVal  string // decoded value for string/char literals
	Leading []Trivia
}

// IsPunctOrOp reports whether the token is punctuation or an operator.
func (t Token) IsPunctOrOp() bool {
	switch t.Kind {
	case Plus, Minus, Star, Slash, Percent, Assign, PlusAssign, MinusAssign,
		StarAssign, SlashAssign, PercentAssign, AmpAssign, PipeAssign, CaretAssign,
		ShlAssign, ShrAssign, EqEq, BangEq, Lt, LtEq, Gt, GtEq, AndAnd, OrOr, Bang,
		Amp, Pipe, Caret, Shl, Shr, Tilde, Question, PipeGt, DotDot, DotDotEq,
		Arrow, FatArrow, ColonColon, Colon, Semicolon, Comma, Dot, At, Underscore,
		LParen, RParen, LBrace, RBrace, LBracket, RBracket:
		return true
	default:
		return false
	}
}

// TriviaKind categorizes a piece of skipped lexical trivia.
type TriviaKind uint8

const (
	TriviaLineComment TriviaKind = iota
	TriviaBlockComment
	TriviaDocComment
	TriviaWhitespace
	TriviaNewline
)

// Trivia is a comment attached to the following token. The lexer skips
// whitespace and newlines without recording them, so TriviaWhitespace and
// TriviaNewline are never produced.
type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}
