package parser

import (
	"blood/internal/ast"
	"blood/internal/diag"
	"blood/internal/source"
	"blood/internal/token"
)

// parseExpr parses a full expression at the lowest precedence.
func (p *Parser) parseExpr() ast.ExprID {
	return p.parseBinaryRHS(0, p.parsePrefix())
}

// parseExprNoStruct parses an expression with struct-literal syntax
// suspended, used for the condition/iterable position of if/while/for/match
// so `if x {` parses `{` as the block, not a struct literal field list.
func (p *Parser) parseExprNoStruct() ast.ExprID {
	p.suspendStructLit++
	defer func() { p.suspendStructLit-- }()
	return p.parseExpr()
}

// parseBinaryRHS implements precedence climbing: given an already-parsed
// left operand, repeatedly consume operators whose precedence is >= minPrec.
func (p *Parser) parseBinaryRHS(minPrec int, lhs ast.ExprID) ast.ExprID {
	var lastNonAssocTok token.Kind
	hadNonAssoc := false
	for {
		tok := p.toks.peek()
		info, ok := binOpInfo(tok.Kind)
		if !ok || info.prec < minPrec {
			return lhs
		}

		if info.nonAssoc && info.prec == precCompare {
			if hadNonAssoc {
				p.error(diag.SynChainedCompare, tok.Span,
					"comparison operators cannot be chained; parenthesize to disambiguate")
			}
			hadNonAssoc = true
			lastNonAssocTok = tok.Kind
			_ = lastNonAssocTok
		}

		p.toks.next()

		switch tok.Kind {
		case token.KwAs:
			ty := p.parseType()
			lhs = p.exprs.New(ast.Expr{Kind: ast.ExCast, Span: p.exprs.Get(lhs).Span.Cover(p.curSpan()), LHS: lhs, CastType: ty})
			continue
		case token.PipeGt:
			// `a |> f(b)` desugars to `f(a, b)` per §4.4 item 3.
			lhs = p.parsePipelineRHS(lhs)
			continue
		case token.Assign:
			rhs := p.parseBinaryRHS(info.prec, p.parsePrefix())
			sp := p.exprs.Get(lhs).Span.Cover(p.exprs.Get(rhs).Span)
			lhs = p.exprs.New(ast.Expr{Kind: ast.ExAssign, Span: sp, Target: lhs, Value: rhs})
			continue
		}

		if base, isCompound := compoundBaseOp(tok.Kind); isCompound {
			rhs := p.parseBinaryRHS(info.prec, p.parsePrefix())
			sp := p.exprs.Get(lhs).Span.Cover(p.exprs.Get(rhs).Span)
			lhs = p.exprs.New(ast.Expr{Kind: ast.ExCompoundAssign, Span: sp, Target: lhs, Value: rhs, CompoundOp: base})
			continue
		}

		if tok.Kind == token.DotDot || tok.Kind == token.DotDotEq {
			var hi ast.ExprID = ast.NoExprID
			if p.canStartExpr() {
				hi = p.parseBinaryRHS(info.prec+1, p.parsePrefix())
			}
			sp := p.exprs.Get(lhs).Span
			if hi.IsValid() {
				sp = sp.Cover(p.exprs.Get(hi).Span)
			}
			lhs = p.exprs.New(ast.Expr{Kind: ast.ExRange, Span: sp, RangeLo: lhs, RangeHi: hi, RangeInclusive: tok.Kind == token.DotDotEq})
			continue
		}

		nextMin := info.prec + 1
		if info.rightAssoc {
			nextMin = info.prec
		}
		rhs := p.parseBinaryRHS(nextMin, p.parsePrefix())
		sp := p.exprs.Get(lhs).Span.Cover(p.exprs.Get(rhs).Span)
		lhs = p.exprs.New(ast.Expr{Kind: ast.ExBinary, Span: sp, BinOp: tokenToBinOp(tok.Kind), LHS: lhs, RHS: rhs})
	}
}

// parsePipelineRHS parses the call expression on the right of `|>` and
// splices lhs in as its first argument: `a |> f(b)` → `f(a, b)`.
func (p *Parser) parsePipelineRHS(lhs ast.ExprID) ast.ExprID {
	callee := p.parsePostfixBase()
	call := p.exprs.Get(callee)
	if call.Kind == ast.ExCall {
		call.Args = append([]ast.ExprID{lhs}, call.Args...)
		call.Span = p.exprs.Get(lhs).Span.Cover(call.Span)
		return callee
	}
	// Bare function reference: `a |> f` → `f(a)`.
	sp := p.exprs.Get(lhs).Span.Cover(call.Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExCall, Span: sp, Callee: callee, Args: []ast.ExprID{lhs}})
}

func (p *Parser) canStartExpr() bool {
	switch p.toks.peek().Kind {
	case token.Comma, token.RParen, token.RBrace, token.RBracket, token.Semicolon,
		token.EOF, token.FatArrow, token.LBrace:
		return false
	default:
		return true
	}
}

// parsePrefix handles rank-0 prefix keywords and rank-14 unary prefix
// operators, then falls into postfix parsing for the operand.
func (p *Parser) parsePrefix() ast.ExprID {
	p.exprDepth++
	defer func() { p.exprDepth-- }()
	if p.exprDepth > maxExprDepth {
		sp := p.curSpan()
		p.error(diag.SynUnexpectedToken, sp, "expression nested too deeply")
		return p.exprs.New(ast.Expr{Kind: ast.ExInvalid, Span: sp})
	}

	switch p.toks.peek().Kind {
	case token.KwReturn:
		start := p.toks.next().Span
		var v ast.ExprID = ast.NoExprID
		if p.canStartExpr() {
			v = p.parseExpr()
		}
		sp := start
		if v.IsValid() {
			sp = sp.Cover(p.exprs.Get(v).Span)
		}
		return p.exprs.New(ast.Expr{Kind: ast.ExReturn, Span: sp, Value: v})
	case token.KwBreak:
		start := p.toks.next().Span
		var v ast.ExprID = ast.NoExprID
		if p.canStartExpr() {
			v = p.parseExpr()
		}
		sp := start
		if v.IsValid() {
			sp = sp.Cover(p.exprs.Get(v).Span)
		}
		return p.exprs.New(ast.Expr{Kind: ast.ExBreak, Span: sp, Value: v})
	case token.KwContinue:
		start := p.toks.next().Span
		return p.exprs.New(ast.Expr{Kind: ast.ExContinue, Span: start})
	case token.Minus:
		start := p.toks.next().Span
		v := p.parseBinaryRHS(precCast, p.parsePrefix())
		return p.exprs.New(ast.Expr{Kind: ast.ExUnary, Span: start.Cover(p.exprs.Get(v).Span), UnOp: ast.OpNeg, RHS: v})
	case token.Bang:
		start := p.toks.next().Span
		v := p.parseBinaryRHS(precCast, p.parsePrefix())
		return p.exprs.New(ast.Expr{Kind: ast.ExUnary, Span: start.Cover(p.exprs.Get(v).Span), UnOp: ast.OpNot, RHS: v})
	case token.Star:
		start := p.toks.next().Span
		v := p.parseBinaryRHS(precCast, p.parsePrefix())
		return p.exprs.New(ast.Expr{Kind: ast.ExUnary, Span: start.Cover(p.exprs.Get(v).Span), UnOp: ast.OpDeref, RHS: v})
	case token.Amp:
		start := p.toks.next().Span
		op := ast.OpRef
		if p.toks.at(token.KwMut) {
			p.toks.next()
			op = ast.OpRefMut
		}
		v := p.parseBinaryRHS(precCast, p.parsePrefix())
		return p.exprs.New(ast.Expr{Kind: ast.ExUnary, Span: start.Cover(p.exprs.Get(v).Span), UnOp: op, RHS: v})
	default:
		return p.parsePostfix()
	}
}

// parsePostfix parses a primary expression followed by any chain of
// postfix operators (rank 15: `?`, `.field`, `[idx]`, `(args)`).
func (p *Parser) parsePostfix() ast.ExprID {
	return p.parsePostfixFrom(p.parsePrimary())
}

// parsePostfixBase parses a fresh primary and its postfix chain; used by the
// pipeline desugaring, which needs to evaluate the right operand the same
// way a normal postfix expression would.
func (p *Parser) parsePostfixBase() ast.ExprID { return p.parsePostfix() }

func (p *Parser) parsePostfixFrom(e ast.ExprID) ast.ExprID {
	for {
		switch p.toks.peek().Kind {
		case token.Question:
			sp := p.exprs.Get(e).Span.Cover(p.toks.next().Span)
			e = p.exprs.New(ast.Expr{Kind: ast.ExQuestion, Span: sp, Base: e})
		case token.Dot:
			p.toks.next()
			nameTok, _ := p.expect(token.Ident)
			if p.toks.at(token.LParen) {
				args := p.parseArgList()
				sp := p.exprs.Get(e).Span.Cover(p.curSpan())
				e = p.exprs.New(ast.Expr{Kind: ast.ExMethodCall, Span: sp, Base: e, Method: nameTok.Text, Args: args})
			} else {
				sp := p.exprs.Get(e).Span.Cover(nameTok.Span)
				e = p.exprs.New(ast.Expr{Kind: ast.ExField, Span: sp, Base: e, Field: nameTok.Text})
			}
		case token.LBracket:
			p.toks.next()
			idx := p.parseExpr()
			end, _ := p.expect(token.RBracket)
			sp := p.exprs.Get(e).Span.Cover(end.Span)
			e = p.exprs.New(ast.Expr{Kind: ast.ExIndex, Span: sp, Base: e, Index: idx})
		case token.LParen:
			args := p.parseArgList()
			sp := p.exprs.Get(e).Span.Cover(p.curSpan())
			e = p.exprs.New(ast.Expr{Kind: ast.ExCall, Span: sp, Callee: e, Args: args})
		default:
			return e
		}
	}
}

func (p *Parser) parseArgList() []ast.ExprID {
	p.expect(token.LParen)
	var args []ast.ExprID
	for !p.toks.at(token.RParen) && !p.toks.at(token.EOF) {
		args = append(args, p.parseExpr())
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	p.expect(token.RParen)
	return args
}

// parsePrimary parses literals, identifiers/paths, parenthesized/tuple
// expressions, and the block-structured forms (if/match/block/closure/
// for/while/loop/perform/handle/resume/unchecked/struct/array literals).
func (p *Parser) parsePrimary() ast.ExprID {
	tok := p.toks.peek()
	switch tok.Kind {
	case token.IntLit:
		p.toks.next()
		return p.exprs.New(ast.Expr{Kind: ast.ExIntLit, Span: tok.Span, IntVal: parseIntLit(tok.Text), IntSuffix: intSuffix(tok.Text)})
	case token.FloatLit:
		p.toks.next()
		return p.exprs.New(ast.Expr{Kind: ast.ExFloatLit, Span: tok.Span, FloatVal: parseFloatLit(tok.Text)})
	case token.StringLit:
		p.toks.next()
		return p.exprs.New(ast.Expr{Kind: ast.ExStringLit, Span: tok.Span, StrVal: tok.StrVal})
	case token.CharLit:
		p.toks.next()
		var r rune
		for _, rr := range tok.StrVal {
			r = rr
			break
		}
		return p.exprs.New(ast.Expr{Kind: ast.ExCharLit, Span: tok.Span, CharVal: r})
	case token.BoolLit:
		p.toks.next()
		return p.exprs.New(ast.Expr{Kind: ast.ExBoolLit, Span: tok.Span, BoolVal: tok.Text == "true"})
	case token.Ident:
		return p.parseIdentOrStructLit()
	case token.LParen:
		return p.parseParenOrTuple()
	case token.LBracket:
		return p.parseArrayLit()
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIf()
	case token.KwMatch:
		return p.parseMatch()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwLoop:
		return p.parseLoop()
	case token.Pipe:
		return p.parseClosure(false)
	case token.OrOr:
		return p.parseClosureNoArgs()
	case token.KwPerform:
		return p.parsePerform()
	case token.KwWith:
		return p.parseHandle()
	case token.KwResume:
		return p.parseResume()
	case token.KwUnchecked:
		return p.parseUncheckedExpr()
	default:
		p.error(diag.SynUnexpectedToken, tok.Span, "expected an expression, found "+tok.Kind.String())
		p.toks.next()
		return p.exprs.New(ast.Expr{Kind: ast.ExInvalid, Span: tok.Span})
	}
}

func (p *Parser) parseIdentOrStructLit() ast.ExprID {
	path, span := p.parsePath()
	if p.toks.at(token.LBrace) && p.suspendStructLit == 0 && looksLikeStructLitHead(p) {
		return p.parseStructLitTail(path, span)
	}
	if len(path) == 1 {
		return p.exprs.New(ast.Expr{Kind: ast.ExIdent, Span: span, Name: path[0]})
	}
	return p.exprs.New(ast.Expr{Kind: ast.ExPath, Span: span, Path: path})
}

// looksLikeStructLitHead peeks past `{` to decide whether it opens a struct
// literal field list (`Ident : ...` or an immediate `}`) rather than a
// block. This mirrors the common hand-written-parser heuristic for this
// ambiguity (C-family parsers face the same issue with `if (x) {}`).
func looksLikeStructLitHead(p *Parser) bool {
	if p.toks.peekAt(1).Kind == token.RBrace {
		return true
	}
	return p.toks.peekAt(1).Kind == token.Ident &&
		(p.toks.peekAt(2).Kind == token.Colon || p.toks.peekAt(2).Kind == token.Comma || p.toks.peekAt(2).Kind == token.DotDot)
}

func (p *Parser) parseStructLitTail(path []string, headSpan source.Span) ast.ExprID {
	p.expect(token.LBrace)
	var fields []ast.StructLitField
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		if p.toks.at(token.DotDot) {
			p.toks.next() // functional-update rest marker; value ignored by the core
			break
		}
		nameTok, _ := p.expect(token.Ident)
		var val ast.ExprID
		if p.toks.at(token.Colon) {
			p.toks.next()
			val = p.parseExpr()
		} else {
			val = p.exprs.New(ast.Expr{Kind: ast.ExIdent, Span: nameTok.Span, Name: nameTok.Text})
		}
		fields = append(fields, ast.StructLitField{Label: nameTok.Text, Value: val})
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RBrace)
	sp := headSpan.Cover(end.Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExStructLit, Span: sp, TypePath: pathString(path), Fields: fields})
}

func pathString(path []string) string {
	out := ""
	for i, s := range path {
		if i > 0 {
			out += "::"
		}
		out += s
	}
	return out
}

func (p *Parser) parsePath() ([]string, source.Span) {
	start := p.toks.peek().Span
	first, _ := p.expect(token.Ident)
	path := []string{first.Text}
	last := first.Span
	for p.toks.at(token.ColonColon) {
		p.toks.next()
		seg, _ := p.expect(token.Ident)
		path = append(path, seg.Text)
		last = seg.Span
	}
	return path, start.Cover(last)
}

func (p *Parser) parseParenOrTuple() ast.ExprID {
	start, _ := p.expect(token.LParen)
	if p.toks.at(token.RParen) {
		end := p.toks.next()
		return p.exprs.New(ast.Expr{Kind: ast.ExTuple, Span: start.Span.Cover(end.Span)})
	}
	first := p.parseExpr()
	if p.toks.at(token.Comma) {
		elems := []ast.ExprID{first}
		for p.toks.at(token.Comma) {
			p.toks.next()
			if p.toks.at(token.RParen) {
				break
			}
			elems = append(elems, p.parseExpr())
		}
		end, _ := p.expect(token.RParen)
		return p.exprs.New(ast.Expr{Kind: ast.ExTuple, Span: start.Span.Cover(end.Span), Elems: elems})
	}
	end, _ := p.expect(token.RParen)
	e := p.exprs.Get(first)
	e.Span = start.Span.Cover(end.Span)
	return first
}

func (p *Parser) parseArrayLit() ast.ExprID {
	start, _ := p.expect(token.LBracket)
	var elems []ast.ExprID
	for !p.toks.at(token.RBracket) && !p.toks.at(token.EOF) {
		elems = append(elems, p.parseExpr())
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RBracket)
	return p.exprs.New(ast.Expr{Kind: ast.ExArrayLit, Span: start.Span.Cover(end.Span), Elems: elems})
}

// parseBlock parses `{ stmt* tail_expr? }`, returning a block expression
// whose Tail is NoExprID when the last statement ends in `;` or is not an
// expression statement.
func (p *Parser) parseBlock() ast.ExprID {
	start, _ := p.expect(token.LBrace)
	var stmts []ast.StmtID
	var tail ast.ExprID = ast.NoExprID
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		id, isTailExpr := p.parseStmt()
		if isTailExpr {
			tail = p.stmts.Get(id).Expr
			break
		}
		stmts = append(stmts, id)
	}
	end, _ := p.expect(token.RBrace)
	return p.exprs.New(ast.Expr{Kind: ast.ExBlock, Span: start.Span.Cover(end.Span), Stmts: stmts, Tail: tail})
}

func (p *Parser) parseIf() ast.ExprID {
	start, _ := p.expect(token.KwIf)
	cond := p.parseExprNoStruct()
	then := p.parseBlock()
	var elseE ast.ExprID = ast.NoExprID
	sp := start.Span.Cover(p.exprs.Get(then).Span)
	if p.toks.at(token.KwElse) {
		p.toks.next()
		if p.toks.at(token.KwIf) {
			elseE = p.parseIf()
		} else {
			elseE = p.parseBlock()
		}
		sp = sp.Cover(p.exprs.Get(elseE).Span)
	}
	return p.exprs.New(ast.Expr{Kind: ast.ExIf, Span: sp, Cond: cond, Then: then, Else: elseE})
}

func (p *Parser) parseMatch() ast.ExprID {
	start, _ := p.expect(token.KwMatch)
	scrut := p.parseExprNoStruct()
	p.expect(token.LBrace)
	var arms []ast.MatchArm
	for !p.toks.at(token.RBrace) && !p.toks.at(token.EOF) {
		pat := p.parsePattern()
		var guard ast.ExprID = ast.NoExprID
		if p.toks.at(token.KwIf) {
			p.toks.next()
			guard = p.parseExpr()
		}
		p.expect(token.FatArrow)
		body := p.parseExpr()
		armSpan := p.pats.Get(pat).Span.Cover(p.exprs.Get(body).Span)
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body, Span: armSpan})
		if p.toks.at(token.Comma) {
			p.toks.next()
		}
	}
	end, _ := p.expect(token.RBrace)
	return p.exprs.New(ast.Expr{Kind: ast.ExMatch, Span: start.Span.Cover(end.Span), Scrutinee: scrut, Arms: arms})
}

func (p *Parser) parseFor() ast.ExprID {
	start, _ := p.expect(token.KwFor)
	nameTok, _ := p.expect(token.Ident)
	p.expect(token.KwIn)
	iter := p.parseExprNoStruct()
	body := p.parseBlock()
	sp := start.Span.Cover(p.exprs.Get(body).Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExFor, Span: sp, ForVar: nameTok.Text, ForIter: iter, ForBody: body})
}

func (p *Parser) parseWhile() ast.ExprID {
	start, _ := p.expect(token.KwWhile)
	cond := p.parseExprNoStruct()
	body := p.parseBlock()
	sp := start.Span.Cover(p.exprs.Get(body).Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExWhile, Span: sp, Cond: cond, LoopBody: body})
}

func (p *Parser) parseLoop() ast.ExprID {
	start, _ := p.expect(token.KwLoop)
	body := p.parseBlock()
	sp := start.Span.Cover(p.exprs.Get(body).Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExLoop, Span: sp, LoopBody: body})
}

// parseClosure parses `|params| (-> Ret)? body`.
func (p *Parser) parseClosure(_ bool) ast.ExprID {
	start, _ := p.expect(token.Pipe)
	var params []ast.ClosureParam
	for !p.toks.at(token.Pipe) && !p.toks.at(token.EOF) {
		nameTok, _ := p.expect(token.Ident)
		var ty ast.TypeID = ast.NoTypeID
		if p.toks.at(token.Colon) {
			p.toks.next()
			ty = p.parseType()
		}
		params = append(params, ast.ClosureParam{Name: nameTok.Text, Type: ty})
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	p.expect(token.Pipe)
	var ret ast.TypeID = ast.NoTypeID
	if p.toks.at(token.Arrow) {
		p.toks.next()
		ret = p.parseType()
	}
	body := p.parseExpr()
	sp := start.Span.Cover(p.exprs.Get(body).Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExClosure, Span: sp, Params: params, Ret: ret, Body: body})
}

// parseClosureNoArgs handles the `||` token the lexer produces for an
// argument-less closure's `||` delimiter pair, e.g. `|| expr`.
func (p *Parser) parseClosureNoArgs() ast.ExprID {
	start := p.toks.next().Span // consumes `||`
	body := p.parseExpr()
	sp := start.Cover(p.exprs.Get(body).Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExClosure, Span: sp, Body: body})
}

// parsePerform parses `perform Effect.op(args...)` per §3.5/§4.5.
func (p *Parser) parsePerform() ast.ExprID {
	start, _ := p.expect(token.KwPerform)
	effTok, _ := p.expect(token.Ident)
	p.expect(token.Dot)
	opTok, _ := p.expect(token.Ident)
	args := p.parseArgList()
	sp := start.Span.Cover(p.curSpan())
	return p.exprs.New(ast.Expr{Kind: ast.ExPerform, Span: sp, EffectName: effTok.Text, OpName: opTok.Text, Args: args})
}

// parseHandle parses `with HandlerPath(args?) handle { body }`.
func (p *Parser) parseHandle() ast.ExprID {
	start, _ := p.expect(token.KwWith)
	path, _ := p.parsePath()
	var args []ast.ExprID
	if p.toks.at(token.LParen) {
		args = p.parseArgList()
	}
	p.expect(token.KwHandle)
	body := p.parseBlock()
	sp := start.Span.Cover(p.exprs.Get(body).Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExHandle, Span: sp, HandlerPath: path, HandleBody: body, HandleArgs: args})
}

// parseResume parses `resume` or `resume(value)`.
func (p *Parser) parseResume() ast.ExprID {
	start, _ := p.expect(token.KwResume)
	var v ast.ExprID = ast.NoExprID
	sp := start.Span
	if p.toks.at(token.LParen) {
		p.toks.next()
		if !p.toks.at(token.RParen) {
			v = p.parseExpr()
		}
		end, _ := p.expect(token.RParen)
		sp = sp.Cover(end.Span)
	}
	return p.exprs.New(ast.Expr{Kind: ast.ExResume, Span: sp, ResumeValue: v})
}

// parseUncheckedExpr parses `unchecked(check_list) { block }` per §4.2's
// safety-attribute grammar.
func (p *Parser) parseUncheckedExpr() ast.ExprID {
	start, _ := p.expect(token.KwUnchecked)
	attr := p.parseUncheckedChecks(start.Span)
	body := p.parseBlock()
	sp := start.Span.Cover(p.exprs.Get(body).Span)
	return p.exprs.New(ast.Expr{Kind: ast.ExUnchecked, Span: sp, UncheckedAttr: attr, UncheckedBody: body})
}

func (p *Parser) parseUncheckedChecks(start source.Span) ast.UncheckedAttr {
	attr := ast.UncheckedAttr{Span: start}
	if !p.toks.at(token.LParen) {
		return attr
	}
	p.toks.next()
	for !p.toks.at(token.RParen) && !p.toks.at(token.EOF) {
		nameTok, _ := p.expect(token.Ident)
		if chk, ok := ast.LookupSafetyCheck(nameTok.Text); ok {
			attr.Checks |= chk
		} else {
			p.error(diag.SynBadSafetyCheck, nameTok.Span, "unknown safety check '"+nameTok.Text+"'")
		}
		if p.toks.at(token.Comma) {
			p.toks.next()
		} else {
			break
		}
	}
	end, _ := p.expect(token.RParen)
	attr.Span = start.Cover(end.Span)
	return attr
}
