package parser

import (
	"blood/internal/ast"
	"blood/internal/diag"
	"blood/internal/lexer"
	"blood/internal/source"
	"blood/internal/token"
)

// Options configures a parse run.
type Options struct {
	MaxErrors int // 0 means unbounded, matching diag.Bag semantics
}

// Result is the outcome of parsing one file: always a (possibly degraded)
// AST per §4.2's error-recovery contract, plus whatever diagnostics were
// accumulated.
type Result struct {
	File  ast.FileID
	Files *ast.Files
	Items *ast.Items
	Stmts *ast.Stmts
	Exprs *ast.Exprs
	Pats  *ast.Patterns
	Types *ast.Types
	Bag   *diag.Bag
}

// Parser holds all per-file arenas and the token cursor. A Parser is used
// for exactly one file; construct a fresh one per compilation unit.
type Parser struct {
	toks *stream
	file source.FileID

	files *ast.Files
	items *ast.Items
	stmts *ast.Stmts
	exprs *ast.Exprs
	pats  *ast.Patterns
	tys   *ast.Types

	bag *diag.Bag

	// suspendStructLit disables parsing `{` as the start of a struct
	// literal in expression position (the condition of `if`/`while`/`match`
	// and the iterable of `for`), where the brace always opens the
	// following block.
	suspendStructLit int
	exprDepth        int
}

const maxExprDepth = 256

// ParseFile tokenizes src and parses it into an AST, per §4.2.
func ParseFile(fileID source.FileID, src []byte, bag *diag.Bag) Result {
	bag = bagOf(bag)
	toks := lexer.Tokenize(lexer.FileInput{ID: fileID, Content: src}, bag)

	p := &Parser{
		toks:  newStream(toks),
		file:  fileID,
		files: ast.NewFiles(),
		items: ast.NewItems(),
		stmts: ast.NewStmts(),
		exprs: ast.NewExprs(),
		pats:  ast.NewPatterns(),
		tys:   ast.NewTypes(),
		bag:   bag,
	}

	start := p.toks.peek().Span
	var itemIDs []ast.ItemID
	for !p.toks.at(token.EOF) {
		before := p.toks.peek()
		id, ok := p.parseItem()
		if ok {
			itemIDs = append(itemIDs, id)
		} else {
			p.resyncTop()
		}
		if !p.toks.at(token.EOF) && p.toks.peek().Span == before.Span && p.toks.peek().Kind == before.Kind {
			p.toks.next() // force progress on malformed input
		}
	}
	end := p.toks.peek().Span
	fileSpan := start.Cover(end)
	fileID2 := p.files.New(fileSpan, itemIDs)

	return Result{
		File:  fileID2,
		Files: p.files,
		Items: p.items,
		Stmts: p.stmts,
		Exprs: p.exprs,
		Pats:  p.pats,
		Types: p.tys,
		Bag:   p.bag,
	}
}

func (p *Parser) span(start, end source.Span) source.Span { return start.Cover(end) }

func (p *Parser) curSpan() source.Span { return p.toks.peek().Span }

func (p *Parser) error(code diag.Code, sp source.Span, msg string) {
	p.bag.Add(diag.Error(code, sp, msg))
}

// expect consumes the current token if it matches k, otherwise emits a
// SynExpectedToken diagnostic and does not advance, letting the caller's
// resync logic take over.
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.toks.at(k) {
		return p.toks.next(), true
	}
	cur := p.toks.peek()
	p.error(diag.SynExpectedToken, cur.Span, "expected "+k.String()+", found "+cur.Kind.String())
	return cur, false
}

// resyncTop skips tokens until a top-level item keyword or EOF, per §4.2's
// synchronization-point discipline. Closing delimiters are skipped like
// any other token here; resyncStmt is the one that stops at `}`.
func (p *Parser) resyncTop() {
	for !p.toks.at(token.EOF) {
		switch p.toks.peek().Kind {
		case token.KwFn, token.KwStruct, token.KwEnum, token.KwTrait, token.KwImpl,
			token.KwEffect, token.KwHandler, token.KwConst, token.KwStatic,
			token.KwUse, token.KwMod, token.KwPub:
			return
		}
		p.toks.next()
	}
}

// resyncStmt skips to the next statement boundary: a semicolon, a closing
// brace, or a keyword that starts a new statement.
func (p *Parser) resyncStmt() {
	depth := 0
	for !p.toks.at(token.EOF) {
		switch p.toks.peek().Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			if depth == 0 {
				return
			}
			depth--
		case token.Semicolon:
			if depth == 0 {
				p.toks.next()
				return
			}
		case token.KwLet, token.KwIf, token.KwMatch, token.KwFor, token.KwWhile,
			token.KwLoop, token.KwReturn, token.KwBreak, token.KwContinue:
			if depth == 0 {
				return
			}
		}
		p.toks.next()
	}
}
