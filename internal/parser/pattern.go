package parser

import (
	"blood/internal/ast"
	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/token"
)

// parsePattern parses the surface pattern grammar (§3.4/§4.3.6), including
// the `pat | pat` or-pattern form at the lowest precedence.
func (p *Parser) parsePattern() ast.PatternID {
	first := p.parsePatternPrimary()
	if !p.toks.at(token.Pipe) {
		return first
	}
	alts := []ast.PatternID{first}
	sp := p.pats.Get(first).Span
	for p.toks.at(token.Pipe) {
		p.toks.next()
		alt := p.parsePatternPrimary()
		alts = append(alts, alt)
		sp = sp.Cover(p.pats.Get(alt).Span)
	}
	return p.pats.New(ast.Pattern{Kind: ast.PatOr, Span: sp, Alts: alts})
}

func (p *Parser) parsePatternPrimary() ast.PatternID {
	tok := p.toks.peek()
	switch tok.Kind {
	case token.Underscore:
		p.toks.next()
		return p.pats.New(ast.Pattern{Kind: ast.PatWildcard, Span: tok.Span})
	case token.IntLit:
		p.toks.next()
		return p.pats.New(ast.Pattern{Kind: ast.PatIntLit, Span: tok.Span, IntVal: parseIntLit(tok.Text)})
	case token.Minus:
		p.toks.next()
		num, _ := p.expect(token.IntLit)
		sp := tok.Span.Cover(num.Span)
		if num.Kind == token.FloatLit {
			return p.pats.New(ast.Pattern{Kind: ast.PatFloatLit, Span: sp, FloatVal: parseFloatLit(num.Text), Negative: true})
		}
		return p.pats.New(ast.Pattern{Kind: ast.PatIntLit, Span: sp, IntVal: parseIntLit(num.Text), Negative: true})
	case token.FloatLit:
		p.toks.next()
		return p.pats.New(ast.Pattern{Kind: ast.PatFloatLit, Span: tok.Span, FloatVal: parseFloatLit(tok.Text)})
	case token.StringLit:
		p.toks.next()
		return p.pats.New(ast.Pattern{Kind: ast.PatStringLit, Span: tok.Span, StrVal: tok.StrVal})
	case token.CharLit:
		p.toks.next()
		var r rune
		for _, rr := range tok.StrVal {
			r = rr
			break
		}
		return p.pats.New(ast.Pattern{Kind: ast.PatCharLit, Span: tok.Span, CharVal: r})
	case token.BoolLit:
		p.toks.next()
		return p.pats.New(ast.Pattern{Kind: ast.PatBoolLit, Span: tok.Span, BoolVal: tok.Text == "true"})
	case token.Amp:
		p.toks.next()
		inner := p.parsePatternPrimary()
		sp := tok.Span.Cover(p.pats.Get(inner).Span)
		return p.pats.New(ast.Pattern{Kind: ast.PatRef, Span: sp, Inner: inner})
	case token.LParen:
		return p.parseTuplePattern()
	case token.LBracket:
		return p.parseArrayPattern()
	case token.Ident:
		return p.parseIdentPattern()
	default:
		p.error(diag.SynUnexpectedToken, tok.Span, "expected a pattern, found "+tok.Kind.String())
		p.toks.next()
		return p.pats.New(ast.Pattern{Kind: ast.PatInvalid, Span: tok.Span})
	}
}

func (p *Parser) parseTuplePattern() ast.PatternID {
	start, _ := p.expect(token.LParen)
	var elems []ast.PatternID
	for !p.toks.at(token.RParen) && !p.toks.at(token.EOF) {
		elems = append(elems, p.parsePattern())
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RParen)
	sp := start.Span.Cover(end.Span)
	if len(elems) == 1 {
		e := p.pats.Get(elems[0])
		e.Span = sp
		return elems[0]
	}
	return p.pats.New(ast.Pattern{Kind: ast.PatTuple, Span: sp, Elems: elems})
}

func (p *Parser) parseArrayPattern() ast.PatternID {
	start, _ := p.expect(token.LBracket)
	var elems []ast.PatternID
	rest := false
	for !p.toks.at(token.RBracket) && !p.toks.at(token.EOF) {
		if p.toks.at(token.DotDot) {
			p.toks.next()
			rest = true
		} else {
			elems = append(elems, p.parsePattern())
		}
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RBracket)
	return p.pats.New(ast.Pattern{Kind: ast.PatArray, Span: start.Span.Cover(end.Span), Elems: elems, Rest: rest})
}

// parseIdentPattern handles bindings, `@`-subpatterns, and the
// Path/Path::Variant constructor forms (struct or tuple payloads).
func (p *Parser) parseIdentPattern() ast.PatternID {
	path, sp := p.parsePath()
	if p.toks.at(token.LBrace) {
		return p.parseStructPatternTail(path, sp)
	}
	if p.toks.at(token.LParen) {
		return p.parseVariantPositionalTail(path, sp)
	}
	if len(path) > 1 {
		// Unit-variant constructor reference with no payload, e.g. `Color::Red`.
		return p.pats.New(ast.Pattern{Kind: ast.PatVariant, Span: sp, Path: path[:len(path)-1], Variant: path[len(path)-1]})
	}
	name := path[0]
	if p.toks.at(token.At) {
		p.toks.next()
		sub := p.parsePatternPrimary()
		full := sp.Cover(p.pats.Get(sub).Span)
		return p.pats.New(ast.Pattern{Kind: ast.PatBinding, Span: full, Name: name, SubPat: sub})
	}
	return p.pats.New(ast.Pattern{Kind: ast.PatBinding, Span: sp, Name: name})
}

func (p *Parser) parseStructPatternTail(path []string, headSpan source.Span) ast.PatternID {
	p.expect(token.LBrace)
	var fields []ast.FieldPattern
	hasRest := false
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		if p.toks.at(token.DotDot) {
			p.toks.next()
			hasRest = true
			break
		}
		nameTok, _ := p.expect(token.Ident)
		var pat ast.PatternID = ast.NoPatternID
		if p.toks.at(token.Colon) {
			p.toks.next()
			pat = p.parsePattern()
		}
		fields = append(fields, ast.FieldPattern{Label: nameTok.Text, Pattern: pat})
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RBrace)
	sp := headSpan.Cover(end.Span)
	kind := ast.PatStruct
	variant := ""
	structPath := path
	if len(path) > 1 {
		kind = ast.PatVariant
		variant = path[len(path)-1]
		structPath = path[:len(path)-1]
	}
	return p.pats.New(ast.Pattern{Kind: kind, Span: sp, Path: structPath, Variant: variant, Fields: fields, HasRestField: hasRest})
}

func (p *Parser) parseVariantPositionalTail(path []string, headSpan source.Span) ast.PatternID {
	p.expect(token.LParen)
	var elems []ast.PatternID
	for !p.toks.at(token.RParen) && !p.toks.at(token.EOF) {
		elems = append(elems, p.parsePattern())
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RParen)
	sp := headSpan.Cover(end.Span)
	variant := ""
	structPath := path
	if len(path) > 1 {
		variant = path[len(path)-1]
		structPath = path[:len(path)-1]
	} else {
		// Single-segment tuple-call pattern, e.g. `Some(x)`: treat the whole
		// path as the variant name with an empty enum path (resolved later).
		variant = path[0]
		structPath = nil
	}
	return p.pats.New(ast.Pattern{Kind: ast.PatVariant, Span: sp, Path: structPath, Variant: variant, Positional: elems})
}
