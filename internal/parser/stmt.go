package parser

import (
	"blood/internal/ast"
	"blood/internal/token"
)

// parseStmt parses one statement inside a block. It returns (stmtID, true)
// when the statement is actually the block's trailing tail expression (an
// expression statement with no semicolon immediately followed by `}`); the
// caller unwraps the StExpr's Expr field as the block's Tail in that case,
// matching §3.5's "sugar forms desugared to core forms" block-value model.
//
// Per §4.2, semicolons are optional when the next token plausibly starts a
// new statement on a new line; since this parser does not track newlines
// (the lexer records only comments as trivia), it accepts a missing
// semicolon whenever the following token cannot continue the current
// expression (i.e. is not a binary operator, `.`, or opening delimiter).
func (p *Parser) parseStmt() (ast.StmtID, bool) {
	switch p.toks.peek().Kind {
	case token.KwLet:
		return p.parseLetStmt(), false
	case token.Semicolon:
		sp := p.toks.next().Span
		return p.stmts.New(ast.Stmt{Kind: ast.StEmpty, Span: sp}), false
	case token.KwFn, token.KwStruct, token.KwEnum, token.KwTrait, token.KwImpl,
		token.KwEffect, token.KwHandler, token.KwConst, token.KwStatic:
		item, ok := p.parseItem()
		if !ok {
			p.resyncStmt()
			return p.stmts.New(ast.Stmt{Kind: ast.StInvalid}), false
		}
		sp := p.items.Get(item).Span
		return p.stmts.New(ast.Stmt{Kind: ast.StItem, Span: sp, Item: item}), false
	default:
		e := p.parseExpr()
		sp := p.exprs.Get(e).Span
		hasSemi := false
		if p.toks.at(token.Semicolon) {
			p.toks.next()
			hasSemi = true
			sp = sp.Cover(p.curSpan())
		}
		id := p.stmts.New(ast.Stmt{Kind: ast.StExpr, Span: sp, Expr: e, HasSemicolon: hasSemi})
		isTail := !hasSemi && p.toks.at(token.RBrace)
		return id, isTail
	}
}

// parseLetStmt parses `let pat (: Type)? (= expr)? ;` including the
// optional `linear`/`affine` qualifier (§3.8).
func (p *Parser) parseLetStmt() ast.StmtID {
	start, _ := p.expect(token.KwLet)
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
		p.toks.next() // `mut` affects binding mutability, tracked on the pattern by the resolver
	}
	pat := p.parsePattern()
	var ty ast.TypeID = ast.NoTypeID
	if p.toks.at(token.Colon) {
		p.toks.next()
		ty = p.parseType()
	}
	var init ast.ExprID = ast.NoExprID
	if p.toks.at(token.Assign) {
		p.toks.next()
		init = p.parseExpr()
	}
	end := p.curSpan()
	if p.toks.at(token.Semicolon) {
		end = p.toks.next().Span
	}
	sp := start.Span.Cover(end)
	return p.stmts.New(ast.Stmt{Kind: ast.StLet, Span: sp, Pattern: pat, TypeAnnot: ty, Init: init, Linearity: linearity})
}
