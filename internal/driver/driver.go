// Package driver runs the pass pipeline (§2) over one source file:
// lex → parse → lower → infer → mir → escape. Every shared resource — the
// file set, symbol interner, type interner, variable supply, diagnostics
// bag, tracer — lives on an explicit Context threaded through the passes,
// per §9's "no process-wide singletons" guidance. Passes run strictly in
// sequence (§5); each runs to completion before the next starts.
package driver

import (
	"fmt"

	"blood/internal/config"
	"blood/internal/def"
	"blood/internal/diag"
	"blood/internal/escape"
	"blood/internal/hir"
	"blood/internal/infer"
	"blood/internal/layout"
	"blood/internal/mir"
	"blood/internal/parser"
	"blood/internal/source"
	"blood/internal/trace"
	"blood/internal/types"
)

// Context owns the ambient state of one compilation.
type Context struct {
	Files  *source.FileSet
	Syms   *source.Interner
	Types  *types.Interner
	Supply *types.VarSupply
	Bag    *diag.Bag
	Tracer trace.Tracer
	Opts   config.Options
}

// NewContext builds a Context from options.
func NewContext(opts config.Options, tracer trace.Tracer) *Context {
	if tracer == nil {
		tracer = trace.Nop{}
	}
	return &Context{
		Files:  source.NewFileSet(),
		Syms:   source.NewInterner(),
		Types:  types.NewInterner(),
		Supply: types.NewVarSupply(),
		Bag:    diag.NewBag(opts.MaxDiagnostics),
		Tracer: tracer,
		Opts:   opts,
	}
}

// Result is everything the pipeline produces for one file (§6.1, §6.4).
type Result struct {
	File   source.FileID
	HIR    *hir.Module
	MIR    *mir.Module
	Defs   *def.Table
	Layout *layout.Engine

	// Failed reports whether any pass emitted an error; MIR may still be
	// present for tooling even when it is set (§7 propagation policy).
	Failed bool
}

// CompileFile loads and compiles a file from disk.
func (c *Context) CompileFile(path string) (*Result, error) {
	fileID, err := c.Files.Load(path)
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	return c.Compile(fileID), nil
}

// CompileSource compiles in-memory text under a virtual file name.
func (c *Context) CompileSource(name string, src []byte) *Result {
	fileID := c.Files.AddVirtual(name, src)
	return c.Compile(fileID)
}

// Compile runs every pass over an already-registered file.
func (c *Context) Compile(fileID source.FileID) *Result {
	res := &Result{File: fileID}
	f := c.Files.Get(fileID)

	endParse := trace.Phase(c.Tracer, "parse")
	parsed := parser.ParseFile(fileID, f.Content, c.Bag)
	endParse()

	endLower := trace.Phase(c.Tracer, "lower")
	defs := def.NewTable()
	res.Defs = defs
	res.HIR = hir.Lower(hir.LowerInput{
		File:  parsed.File,
		Files: parsed.Files,
		Items: parsed.Items,
		Stmts: parsed.Stmts,
		Exprs: parsed.Exprs,
		Pats:  parsed.Pats,
		Types: parsed.Types,
	}, defs, c.Syms, c.Types, c.Supply, c.Bag)
	endLower()

	endInfer := trace.Phase(c.Tracer, "infer")
	infer.Check(res.HIR, c.Types, c.Supply, c.Bag)
	endInfer()

	// Content addresses hash canonicalized, typed HIR (§1(c)).
	hir.ComputeHashes(res.HIR)

	endMIR := trace.Phase(c.Tracer, "mir")
	res.MIR = mir.Lower(res.HIR, c.Types, c.Bag)
	endMIR()

	endEscape := trace.Phase(c.Tracer, "escape")
	escape.Analyze(res.MIR, res.HIR, c.Types)
	endEscape()

	// An invariant violation in delivered MIR is a compiler bug: abort
	// hard rather than hand malformed IR across the §6.4 boundary.
	if err := mir.ValidateModule(res.MIR); err != nil {
		panic(fmt.Errorf("driver: MIR invariant violation: %w", err))
	}

	res.Layout = layout.New(layout.Target64, c.Types, res.HIR)
	res.Failed = c.Bag.HasErrors()
	trace.Point(c.Tracer, trace.LevelPhase, "compile.done", map[string]string{
		"diags": fmt.Sprintf("%d", c.Bag.Len()),
	})
	return res
}

// ExportDefs serializes the definition table handoff (§6.3), attaching
// lowered MIR text for functions and layout for types.
func (c *Context) ExportDefs(res *Result) ([]byte, error) {
	return res.Defs.Export(func(id def.DefID) def.Payload {
		var p def.Payload
		d := res.Defs.Get(id)
		switch d.Kind {
		case def.KindFn:
			if body := res.MIR.ByDef(id); body != nil {
				p.MIR = mir.Print(body)
			}
		case def.KindStruct, def.KindEnum:
			ty := c.Types.New(types.Type{Kind: types.KindNamed, Def: id})
			l := res.Layout.Of(ty)
			p.LayoutSize = l.Size
			p.LayoutAlign = l.Align
		}
		return p
	})
}
