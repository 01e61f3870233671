package parser

import (
	"blood/internal/ast"
	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/token"
)

// parseType parses the surface type grammar (§3.6/§4.2): primitives are
// just named paths resolved later by HIR lowering; the parser only needs
// to recognize the syntactic shapes.
func (p *Parser) parseType() ast.TypeID {
	switch p.toks.peek().Kind {
	case token.Underscore:
		sp := p.toks.next().Span
		return p.tys.New(ast.TypeExpr{Kind: ast.TyInfer, Span: sp})
	case token.KwLinear:
		start := p.toks.next().Span
		inner := p.parseType()
		sp := start.Cover(p.tys.Get(inner).Span)
		return p.tys.New(ast.TypeExpr{Kind: ast.TyLinear, Span: sp, Inner: inner})
	case token.KwAffine:
		start := p.toks.next().Span
		inner := p.parseType()
		sp := start.Cover(p.tys.Get(inner).Span)
		return p.tys.New(ast.TypeExpr{Kind: ast.TyAffine, Span: sp, Inner: inner})
	case token.Amp:
		start := p.toks.next().Span
		mut := false
		if p.toks.at(token.KwMut) {
			p.toks.next()
			mut = true
		}
		inner := p.parseType()
		sp := start.Cover(p.tys.Get(inner).Span)
		return p.tys.New(ast.TypeExpr{Kind: ast.TyRef, Span: sp, Elem: inner, Mutable: mut})
	case token.Star:
		start := p.toks.next().Span
		mut := false
		if p.toks.at(token.KwMut) {
			p.toks.next()
			mut = true
		}
		inner := p.parseType()
		sp := start.Cover(p.tys.Get(inner).Span)
		return p.tys.New(ast.TypeExpr{Kind: ast.TyPtr, Span: sp, Elem: inner, Mutable: mut})
	case token.LParen:
		return p.parseTupleOrUnitType()
	case token.LBracket:
		return p.parseArrayOrSliceType()
	case token.LBrace:
		return p.parseRecordType()
	case token.KwFn:
		return p.parseFnType()
	case token.Ident:
		return p.parseNamedType()
	default:
		sp := p.curSpan()
		p.error(diag.SynUnexpectedToken, sp, "expected a type, found "+p.toks.peek().Kind.String())
		p.toks.next()
		return p.tys.New(ast.TypeExpr{Kind: ast.TyInfer, Span: sp})
	}
}

func (p *Parser) parseNamedType() ast.TypeID {
	path, sp := p.parsePath()
	switch path[0] {
	case "never":
		if len(path) == 1 {
			return p.tys.New(ast.TypeExpr{Kind: ast.TyNever, Span: sp})
		}
	}
	var args []ast.TypeID
	if p.toks.at(token.Lt) {
		p.toks.next()
		for !p.toks.at(token.Gt) && !p.toks.at(token.EOF) {
			args = append(args, p.parseType())
			if p.toks.at(token.Comma) {
				p.toks.next()
			} else {
				break
			}
		}
		end, _ := p.expect(token.Gt)
		sp = sp.Cover(end.Span)
	}
	return p.tys.New(ast.TypeExpr{Kind: ast.TyNamed, Span: sp, Path: path, Args: args})
}

func (p *Parser) parseTupleOrUnitType() ast.TypeID {
	start, _ := p.expect(token.LParen)
	if p.toks.at(token.RParen) {
		end := p.toks.next()
		return p.tys.New(ast.TypeExpr{Kind: ast.TyUnit, Span: start.Span.Cover(end.Span)})
	}
	first := p.parseType()
	if !p.toks.at(token.Comma) {
		end, _ := p.expect(token.RParen)
		te := p.tys.Get(first)
		te.Span = start.Span.Cover(end.Span)
		return first
	}
	elems := []ast.TypeID{first}
	for p.toks.at(token.Comma) {
		p.toks.next()
		if p.toks.at(token.RParen) {
			break
		}
		elems = append(elems, p.parseType())
	}
	end, _ := p.expect(token.RParen)
	return p.tys.New(ast.TypeExpr{Kind: ast.TyTuple, Span: start.Span.Cover(end.Span), Elems: elems})
}

func (p *Parser) parseArrayOrSliceType() ast.TypeID {
	start, _ := p.expect(token.LBracket)
	elem := p.parseType()
	if p.toks.at(token.Semicolon) {
		p.toks.next()
		size := p.parseExpr()
		end, _ := p.expect(token.RBracket)
		return p.tys.New(ast.TypeExpr{Kind: ast.TyArrayFixed, Span: start.Span.Cover(end.Span), Elem: elem, Size: size})
	}
	end, _ := p.expect(token.RBracket)
	return p.tys.New(ast.TypeExpr{Kind: ast.TySlice, Span: start.Span.Cover(end.Span), Elem: elem})
}

// parseRecordType parses `{ label: T, ... }` or the open form
// `{ label: T, ... | rho }` (§3.6 Records / row polymorphism).
func (p *Parser) parseRecordType() ast.TypeID {
	start, _ := p.expect(token.LBrace)
	var fields []ast.TypeField
	rowVar := ""
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		if p.toks.at(token.Pipe) {
			p.toks.next()
			rv, _ := p.expect(token.Ident)
			rowVar = rv.Text
			break
		}
		nameTok, _ := p.expect(token.Ident)
		p.expect(token.Colon)
		ty := p.parseType()
		fields = append(fields, ast.TypeField{Label: nameTok.Text, Type: ty})
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else if !p.toks.at(token.Pipe) {
			break
		}
	}
	end, _ := p.expect(token.RBrace)
	return p.tys.New(ast.TypeExpr{Kind: ast.TyRecord, Span: start.Span.Cover(end.Span), Fields: fields, RowVar: rowVar})
}

func (p *Parser) parseFnType() ast.TypeID {
	start, _ := p.expect(token.KwFn)
	p.expect(token.LParen)
	var params []ast.TypeID
	for !p.toks.at(token.RParen) && !p.toks.at(token.EOF) {
		params = append(params, p.parseType())
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RParen)
	ret := ast.NoTypeID
	sp := start.Span.Cover(end.Span)
	if p.toks.at(token.Arrow) {
		p.toks.next()
		ret = p.parseType()
		sp = sp.Cover(p.tys.Get(ret).Span)
	}
	var row *ast.EffectRowExpr
	if p.toks.at(token.Slash) {
		row, sp = p.parseEffectRow(sp)
	}
	return p.tys.New(ast.TypeExpr{Kind: ast.TyFn, Span: sp, Params: params, Ret: ret, EffectRow: row})
}

// parseEffectRow parses `/ {Effect1, Effect2, ..rho}` per §3.7. An absent
// row is distinct from an explicitly empty `/{}` (closed, pure) row; the
// caller decides the default (open fresh row) when EffectRow is nil.
func (p *Parser) parseEffectRow(prevSpan source.Span) (*ast.EffectRowExpr, source.Span) {
	start, _ := p.expect(token.Slash)
	p.expect(token.LBrace)
	var effects []string
	tail := ""
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		if p.toks.at(token.DotDot) {
			p.toks.next()
			rv, _ := p.expect(token.Ident)
			tail = rv.Text
			break
		}
		nameTok, _ := p.expect(token.Ident)
		effects = append(effects, nameTok.Text)
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RBrace)
	sp := start.Span.Cover(end.Span)
	return &ast.EffectRowExpr{Effects: effects, TailVar: tail, Span: sp}, prevSpan.Cover(sp)
}
