package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blood/internal/lexer"
	"blood/internal/mir"
	"blood/internal/parser"
	"blood/internal/token"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <file>",
	Short: "Dump the token stream of a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd, args[0])
		if err != nil {
			return err
		}
		fileID, err := ctx.Files.Load(args[0])
		if err != nil {
			return err
		}
		toks := lexer.Tokenize(lexer.FileInput{ID: fileID, Content: ctx.Files.Get(fileID).Content}, ctx.Bag)
		for _, t := range toks {
			text := t.Text
			if t.Kind == token.EOF {
				text = ""
			}
			fmt.Printf("%-14s %-12s %q\n", t.Kind, t.Span, text)
		}
		os.Exit(report(cmd, ctx, ctx.Bag.HasErrors()))
		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a source file and report syntax diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd, args[0])
		if err != nil {
			return err
		}
		fileID, err := ctx.Files.Load(args[0])
		if err != nil {
			return err
		}
		res := parser.ParseFile(fileID, ctx.Files.Get(fileID).Content, ctx.Bag)
		if f := res.Files.Get(res.File); f != nil {
			fmt.Printf("parsed %d item(s)\n", len(f.Items))
		}
		os.Exit(report(cmd, ctx, ctx.Bag.HasErrors()))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Run the full pipeline without emitting anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := ctx.CompileFile(args[0])
		if err != nil {
			return err
		}
		os.Exit(report(cmd, ctx, res.Failed))
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Compile a file and write the definition-table handoff",
	Long: "build runs the core pipeline and serializes the definition table " +
		"(signatures, lowered MIR, layout) for the code generator.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := ctx.CompileFile(args[0])
		if err != nil {
			return err
		}
		if emitMIR, _ := cmd.Flags().GetBool("emit-mir"); emitMIR || ctx.Opts.EmitMIR {
			for _, body := range res.MIR.Bodies {
				fmt.Print(mir.Print(body))
			}
		}
		if !res.Failed {
			out, eerr := ctx.ExportDefs(res)
			if eerr != nil {
				return eerr
			}
			target, _ := cmd.Flags().GetString("out")
			if target == "" {
				target = args[0] + ".defs"
			}
			if werr := os.WriteFile(target, out, 0o644); werr != nil {
				return werr
			}
			fmt.Printf("wrote %s (%d definitions)\n", target, res.Defs.Len())
		}
		os.Exit(report(cmd, ctx, res.Failed))
		return nil
	},
}

func init() {
	buildCmd.Flags().Bool("emit-mir", false, "print lowered MIR bodies")
	buildCmd.Flags().String("out", "", "handoff output path (default: <file>.defs)")
}
