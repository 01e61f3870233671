package parser

import (
	"blood/internal/ast"
	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/token"
)

// parseItem dispatches on the current token to the matching top-level (or
// nested, when called from parseStmt) item parser. Visibility (`pub`) and
// attributes are parsed uniformly before dispatch.
func (p *Parser) parseItem() (ast.ItemID, bool) {
	attrs, attrSpan := p.parseAttrs()
	_ = attrSpan
	if p.toks.at(token.KwPub) {
		p.toks.next()
	}
	switch p.toks.peek().Kind {
	case token.KwFn:
		return p.parseFnItem(attrs)
	case token.KwStruct:
		return p.parseStructItem(attrs)
	case token.KwEnum:
		return p.parseEnumItem(attrs)
	case token.KwEffect:
		return p.parseEffectItem(attrs)
	case token.KwHandler:
		return p.parseHandlerItem(attrs)
	case token.KwTrait:
		return p.parseTraitItem(attrs)
	case token.KwImpl:
		return p.parseImplItem(attrs)
	case token.KwConst:
		return p.parseConstItem(attrs)
	case token.KwStatic:
		return p.parseStaticItem(attrs)
	case token.KwUse:
		return p.parseUseItem(attrs)
	case token.KwMod:
		return p.parseModItem(attrs)
	default:
		cur := p.toks.peek()
		p.error(diag.SynUnexpectedToken, cur.Span, "expected an item, found "+cur.Kind.String())
		return ast.NoItemID, false
	}
}

// parseAttrs parses a run of `@name(args...)` attributes, including the
// safety attribute `@unchecked(check_list)`, whose check list is recorded
// as the attribute's args. The bracketed `#[name(args...)]` spelling is not
// accepted: the lexer has no `#` token.
func (p *Parser) parseAttrs() ([]ast.Attr, source.Span) {
	var attrs []ast.Attr
	var span source.Span
	for p.toks.at(token.At) {
		start := p.toks.next().Span
		nameTok, _ := p.expect(token.Ident)
		var args []string
		if p.toks.at(token.LParen) {
			p.toks.next()
			for !p.toks.at(token.RParen) && !p.toks.at(token.EOF) {
				a, _ := p.expect(token.Ident)
				args = append(args, a.Text)
				if p.toks.at(token.Comma) {
					p.toks.next()
				} else {
					break
				}
			}
			p.expect(token.RParen)
		}
		end := p.curSpan()
		sp := start.Cover(end)
		attrs = append(attrs, ast.Attr{Name: nameTok.Text, Args: args, Span: sp})
		span = span.Cover(sp)
	}
	return attrs, span
}

// parseGenerics parses an optional `<T, U: Bound, ...>` type-parameter list.
func (p *Parser) parseGenerics() []ast.TypeParam {
	if !p.toks.at(token.Lt) {
		return nil
	}
	p.toks.next()
	var params []ast.TypeParam
	for !p.toks.at(token.Gt) && !p.toks.at(token.EOF) {
		nameTok, _ := p.expect(token.Ident)
		tp := ast.TypeParam{Name: nameTok.Text, Span: nameTok.Span}
		if p.toks.at(token.Colon) {
			p.toks.next()
			tp.Bounds = p.parseTraitBounds()
		}
		params = append(params, tp)
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	p.expect(token.Gt)
	return params
}

func (p *Parser) parseTraitBounds() []ast.TraitBound {
	var bounds []ast.TraitBound
	for {
		path, _ := p.parsePath()
		b := ast.TraitBound{Path: path}
		if p.toks.at(token.Lt) {
			p.toks.next()
			for !p.toks.at(token.Gt) && !p.toks.at(token.EOF) {
				b.Args = append(b.Args, p.parseType())
				if p.toks.at(token.Comma) {
					p.toks.next()
				} else {
					break
				}
			}
			p.expect(token.Gt)
		}
		bounds = append(bounds, b)
		if p.toks.at(token.Plus) {
			p.toks.next()
			continue
		}
		break
	}
	return bounds
}

// parseWhereClause parses an optional `where T: Bound, ...` and folds the
// bounds into the already-parsed generics list by name.
func (p *Parser) parseWhereClause(params []ast.TypeParam) []ast.TypeParam {
	if !p.toks.at(token.KwWhere) {
		return params
	}
	p.toks.next()
	for {
		nameTok, _ := p.expect(token.Ident)
		p.expect(token.Colon)
		bounds := p.parseTraitBounds()
		for i := range params {
			if params[i].Name == nameTok.Text {
				params[i].Bounds = append(params[i].Bounds, bounds...)
			}
		}
		if p.toks.at(token.Comma) {
			p.toks.next()
			continue
		}
		break
	}
	return params
}

// parseParams parses a parenthesized value-parameter list.
func (p *Parser) parseParams() []ast.Param {
	p.expect(token.LParen)
	var params []ast.Param
	for !p.toks.at(token.RParen) && !p.toks.at(token.EOF) {
		linearity := ast.LetUnrestricted
		switch {
		case p.toks.at(token.KwLinear):
			p.toks.next()
			linearity = ast.LetLinear
		case p.toks.at(token.KwAffine):
			p.toks.next()
			linearity = ast.LetAffine
		}
		if p.toks.at(token.KwMut) {
			p.toks.next()
		}
		nameTok, _ := p.expect(token.Ident)
		var ty ast.TypeID = ast.NoTypeID
		if p.toks.at(token.Colon) {
			p.toks.next()
			ty = p.parseType()
		}
		params = append(params, ast.Param{Name: nameTok.Text, Type: ty, Linearity: linearity, Span: nameTok.Span})
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	p.expect(token.RParen)
	return params
}

// parseSpecClauses parses the `requires`/`ensures`/`invariant`/`decreases`
// clauses of a function signature (§4.2); parsed into the AST but not
// semantically enforced by the core.
func (p *Parser) parseSpecClauses(sig *ast.FnSig) {
	for {
		switch p.toks.peek().Kind {
		case token.KwRequires:
			start := p.toks.next().Span
			e := p.parseExpr()
			sig.Requires = append(sig.Requires, ast.SpecClause{Kind: ast.SpecRequires, Expr: e, Span: start.Cover(p.exprs.Get(e).Span)})
		case token.KwEnsures:
			start := p.toks.next().Span
			e := p.parseExpr()
			sig.Ensures = append(sig.Ensures, ast.SpecClause{Kind: ast.SpecEnsures, Expr: e, Span: start.Cover(p.exprs.Get(e).Span)})
		case token.KwInvariant:
			start := p.toks.next().Span
			e := p.parseExpr()
			sig.Requires = append(sig.Requires, ast.SpecClause{Kind: ast.SpecInvariant, Expr: e, Span: start.Cover(p.exprs.Get(e).Span)})
		case token.KwDecreases:
			start := p.toks.next().Span
			e := p.parseExpr()
			c := ast.SpecClause{Kind: ast.SpecDecreases, Expr: e, Span: start.Cover(p.exprs.Get(e).Span)}
			sig.Decreases = &c
		default:
			return
		}
	}
}

// parseFnSig parses `NAME generics? ( params ) ( -> TYPE )? ( / ROW )? clauses* where?`
// per §4.2's function signature shape.
func (p *Parser) parseFnSig() (string, source.Span, ast.FnSig) {
	nameTok, _ := p.expect(token.Ident)
	var sig ast.FnSig
	sig.TypeParams = p.parseGenerics()
	sig.Params = p.parseParams()
	sp := nameTok.Span
	if p.toks.at(token.Arrow) {
		p.toks.next()
		sig.Ret = p.parseType()
		sp = sp.Cover(p.tys.Get(sig.Ret).Span)
	}
	if p.toks.at(token.Slash) {
		row, full := p.parseEffectRow(sp)
		sig.EffectRow = row
		sp = full
	}
	p.parseSpecClauses(&sig)
	sig.TypeParams = p.parseWhereClause(sig.TypeParams)
	return nameTok.Text, sp, sig
}

func (p *Parser) parseFnItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwFn)
	name, sigSpan, sig := p.parseFnSig()
	var body ast.ExprID = ast.NoExprID
	sp := start.Span.Cover(sigSpan)
	switch {
	case p.toks.at(token.LBrace):
		body = p.parseBlock()
		sp = sp.Cover(p.exprs.Get(body).Span)
	case p.toks.at(token.Semicolon):
		sp = sp.Cover(p.toks.next().Span)
	default:
		p.error(diag.SynBadFnSignature, p.curSpan(), "expected a function body or ';'")
	}
	id := p.items.New(ast.Item{Kind: ast.ItFn, Name: name, Span: sp, Attrs: attrs, FnSig: sig, FnBody: body})
	return id, true
}

func (p *Parser) parseStructItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwStruct)
	nameTok, _ := p.expect(token.Ident)
	tparams := p.parseGenerics()
	tparams = p.parseWhereClause(tparams)
	var fields []ast.Field
	end := nameTok.Span
	if p.toks.at(token.LBrace) {
		p.toks.next()
		for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
			fnameTok, _ := p.expect(token.Ident)
			p.expect(token.Colon)
			ty := p.parseType()
			fields = append(fields, ast.Field{Name: fnameTok.Text, Type: ty, Span: fnameTok.Span})
			if p.toks.at(token.Comma) {
				p.toks.next()
			} else {
				break
			}
		}
		endTok, _ := p.expect(token.RBrace)
		end = endTok.Span
	} else {
		p.expect(token.Semicolon)
	}
	sp := start.Span.Cover(end)
	id := p.items.New(ast.Item{Kind: ast.ItStruct, Name: nameTok.Text, Span: sp, Attrs: attrs, TypeParams: tparams, Fields: fields})
	return id, true
}

func (p *Parser) parseEnumItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwEnum)
	nameTok, _ := p.expect(token.Ident)
	tparams := p.parseGenerics()
	tparams = p.parseWhereClause(tparams)
	p.expect(token.LBrace)
	var variants []ast.Variant
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		vnameTok, _ := p.expect(token.Ident)
		v := ast.Variant{Name: vnameTok.Text, Span: vnameTok.Span}
		switch {
		case p.toks.at(token.LParen):
			p.toks.next()
			for !p.toks.at(token.RParen) && !p.toks.at(token.EOF) {
				ty := p.parseType()
				v.Fields = append(v.Fields, ast.Field{Type: ty, Span: p.tys.Get(ty).Span})
				if p.toks.at(token.Comma) {
					p.toks.next()
				} else {
					break
				}
			}
			end, _ := p.expect(token.RParen)
			v.Span = v.Span.Cover(end.Span)
		case p.toks.at(token.LBrace):
			p.toks.next()
			v.IsStruct = true
			for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
				fnameTok, _ := p.expect(token.Ident)
				p.expect(token.Colon)
				ty := p.parseType()
				v.Fields = append(v.Fields, ast.Field{Name: fnameTok.Text, Type: ty, Span: fnameTok.Span})
				if p.toks.at(token.Comma) {
					p.toks.next()
				} else {
					break
				}
			}
			end, _ := p.expect(token.RBrace)
			v.Span = v.Span.Cover(end.Span)
		}
		variants = append(variants, v)
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RBrace)
	sp := start.Span.Cover(end.Span)
	id := p.items.New(ast.Item{Kind: ast.ItEnum, Name: nameTok.Text, Span: sp, Attrs: attrs, TypeParams: tparams, Variants: variants})
	return id, true
}

// parseEffectItem parses `effect Name { op sig; ... }` (§4.1/§4.3.3). An
// operation prefixed `unsafe` (non-resumptive) marks NonResumptive.
func (p *Parser) parseEffectItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwEffect)
	nameTok, _ := p.expect(token.Ident)
	p.expect(token.LBrace)
	var ops []ast.EffectOp
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		nonResumptive := false
		if p.toks.at(token.KwUnsafe) {
			p.toks.next()
			nonResumptive = true
		}
		p.expect(token.KwFn)
		opName, opSpan, sig := p.parseFnSig()
		end := opSpan
		if p.toks.at(token.Semicolon) {
			end = p.toks.next().Span
		}
		ops = append(ops, ast.EffectOp{Name: opName, Sig: sig, NonResumptive: nonResumptive, Span: opSpan.Cover(end)})
	}
	end, _ := p.expect(token.RBrace)
	sp := start.Span.Cover(end.Span)
	id := p.items.New(ast.Item{Kind: ast.ItEffect, Name: nameTok.Text, Span: sp, Attrs: attrs, Ops: ops})
	return id, true
}

// parseHandlerItem parses `handler Name for EffectPath { fn op(params) { body } ... }`.
func (p *Parser) parseHandlerItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwHandler)
	nameTok, _ := p.expect(token.Ident)
	p.expect(token.KwFor)
	effPath, _ := p.parsePath()
	p.expect(token.LBrace)
	var clauses []ast.HandlerClause
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		p.expect(token.KwFn)
		opName, _ := p.expect(token.Ident)
		params := p.parseParams()
		body := p.parseBlock()
		clauses = append(clauses, ast.HandlerClause{OpName: opName.Text, Params: params, Body: body, Span: opName.Span.Cover(p.exprs.Get(body).Span)})
	}
	end, _ := p.expect(token.RBrace)
	sp := start.Span.Cover(end.Span)
	id := p.items.New(ast.Item{Kind: ast.ItHandler, Name: nameTok.Text, Span: sp, Attrs: attrs, HandledEffect: effPath, Clauses: clauses})
	return id, true
}

func (p *Parser) parseTraitItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwTrait)
	nameTok, _ := p.expect(token.Ident)
	tparams := p.parseGenerics()
	var supers []ast.TraitBound
	if p.toks.at(token.Colon) {
		p.toks.next()
		supers = p.parseTraitBounds()
	}
	tparams = p.parseWhereClause(tparams)
	p.expect(token.LBrace)
	var methods []ast.Item
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		p.expect(token.KwFn)
		mname, msigSpan, msig := p.parseFnSig()
		var body ast.ExprID = ast.NoExprID
		sp := msigSpan
		if p.toks.at(token.LBrace) {
			body = p.parseBlock()
			sp = sp.Cover(p.exprs.Get(body).Span)
		} else if p.toks.at(token.Semicolon) {
			sp = sp.Cover(p.toks.next().Span)
		}
		methods = append(methods, ast.Item{Kind: ast.ItFn, Name: mname, Span: sp, FnSig: msig, FnBody: body})
	}
	end, _ := p.expect(token.RBrace)
	sp := start.Span.Cover(end.Span)
	id := p.items.New(ast.Item{Kind: ast.ItTrait, Name: nameTok.Text, Span: sp, Attrs: attrs, TypeParams: tparams, SuperTraits: supers, Methods: methods})
	return id, true
}

func (p *Parser) parseImplItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwImpl)
	tparams := p.parseGenerics()
	first := p.parseType()
	var traitRef *ast.TraitBound
	selfType := first
	if p.toks.at(token.KwFor) {
		p.toks.next()
		te := p.tys.Get(first)
		traitRef = &ast.TraitBound{Path: te.Path, Args: te.Args}
		selfType = p.parseType()
	}
	tparams = p.parseWhereClause(tparams)
	p.expect(token.LBrace)
	var implItems []ast.ImplMethod
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		p.expect(token.KwFn)
		mname, msigSpan, msig := p.parseFnSig()
		body := p.parseBlock()
		implItems = append(implItems, ast.ImplMethod{Name: mname, Sig: msig, Body: body, Span: msigSpan.Cover(p.exprs.Get(body).Span)})
	}
	end, _ := p.expect(token.RBrace)
	sp := start.Span.Cover(end.Span)
	name := ""
	if traitRef != nil && len(traitRef.Path) > 0 {
		name = traitRef.Path[len(traitRef.Path)-1]
	}
	_ = tparams
	id := p.items.New(ast.Item{Kind: ast.ItImpl, Name: name, Span: sp, Attrs: attrs, TypeParams: tparams, TraitRef: traitRef, SelfType: selfType, ImplItems: implItems})
	return id, true
}

func (p *Parser) parseConstItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwConst)
	nameTok, _ := p.expect(token.Ident)
	var ty ast.TypeID = ast.NoTypeID
	if p.toks.at(token.Colon) {
		p.toks.next()
		ty = p.parseType()
	}
	p.expect(token.Assign)
	val := p.parseExpr()
	end := p.curSpan()
	if p.toks.at(token.Semicolon) {
		end = p.toks.next().Span
	}
	sp := start.Span.Cover(end)
	id := p.items.New(ast.Item{Kind: ast.ItConst, Name: nameTok.Text, Span: sp, Attrs: attrs, ValueType: ty, Value: val})
	return id, true
}

func (p *Parser) parseStaticItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwStatic)
	if p.toks.at(token.KwMut) {
		p.toks.next()
	}
	nameTok, _ := p.expect(token.Ident)
	var ty ast.TypeID = ast.NoTypeID
	if p.toks.at(token.Colon) {
		p.toks.next()
		ty = p.parseType()
	}
	p.expect(token.Assign)
	val := p.parseExpr()
	end := p.curSpan()
	if p.toks.at(token.Semicolon) {
		end = p.toks.next().Span
	}
	sp := start.Span.Cover(end)
	id := p.items.New(ast.Item{Kind: ast.ItStatic, Name: nameTok.Text, Span: sp, Attrs: attrs, ValueType: ty, Value: val})
	return id, true
}

// parseUseItem and parseModItem parse the module-system surface forms.
// The core's name resolution (§4.4) treats a single compilation unit at a
// time (§6.1: "Multi-file compilation is out of core scope"), so these
// items parse but resolve to no-op placeholders beyond recording the path.
func (p *Parser) parseUseItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwUse)
	path, _ := p.parsePath()
	end := p.curSpan()
	if p.toks.at(token.Semicolon) {
		end = p.toks.next().Span
	}
	sp := start.Span.Cover(end)
	id := p.items.New(ast.Item{Kind: ast.ItInvalid, Name: pathString(path), Span: sp, Attrs: attrs})
	return id, true // parsed but semantically inert; dropped by HIR collection (ItInvalid)
}

func (p *Parser) parseModItem(attrs []ast.Attr) (ast.ItemID, bool) {
	start, _ := p.expect(token.KwMod)
	nameTok, _ := p.expect(token.Ident)
	end := nameTok.Span
	if p.toks.at(token.LBrace) {
		p.toks.next()
		for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
			if _, ok := p.parseItem(); !ok {
				p.resyncTop()
			}
		}
		endTok, _ := p.expect(token.RBrace)
		end = endTok.Span
	} else if p.toks.at(token.Semicolon) {
		end = p.toks.next().Span
	}
	sp := start.Span.Cover(end)
	id := p.items.New(ast.Item{Kind: ast.ItInvalid, Name: nameTok.Text, Span: sp, Attrs: attrs})
	return id, true
}
