package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"blood/internal/config"
	"blood/internal/diagfmt"
	"blood/internal/driver"
	"blood/internal/trace"
)

// newContext assembles the pipeline Context from flags plus the optional
// blood.toml/blood.yaml next to the input file.
func newContext(cmd *cobra.Command, inputPath string) (*driver.Context, error) {
	opts, err := config.Load(filepath.Dir(inputPath))
	if err != nil {
		return nil, err
	}
	if maxDiag, ferr := cmd.Flags().GetInt("max-diagnostics"); ferr == nil && cmd.Flags().Changed("max-diagnostics") {
		opts.MaxDiagnostics = maxDiag
	}

	tracer, err := tracerFromFlags(cmd, opts)
	if err != nil {
		return nil, err
	}
	return driver.NewContext(opts, tracer), nil
}

func tracerFromFlags(cmd *cobra.Command, opts config.Options) (trace.Tracer, error) {
	dest, _ := cmd.Flags().GetString("trace")
	levelName, _ := cmd.Flags().GetString("trace-level")
	if !cmd.Flags().Changed("trace-level") && opts.TraceLevel != "" {
		levelName = opts.TraceLevel
	}
	level, err := trace.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	if level == trace.LevelOff || dest == "" {
		return trace.Nop{}, nil
	}
	if dest == "-" {
		return trace.NewStream(os.Stderr, level, trace.FormatText), nil
	}
	f, err := os.Create(dest) // #nosec G304 -- operator-chosen trace path
	if err != nil {
		return nil, fmt.Errorf("trace output: %w", err)
	}
	return trace.NewStream(f, level, trace.FormatNDJSON), nil
}

// report renders the bag per the --json/--color flags and returns the exit
// code the compilation earned (§7: any error marks the run failed).
func report(cmd *cobra.Command, ctx *driver.Context, failed bool) int {
	if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
		if err := diagfmt.JSON(os.Stdout, ctx.Bag, ctx.Files); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else {
		diagfmt.Pretty(os.Stderr, ctx.Bag, ctx.Files, diagfmt.PrettyOptions{
			Color:    useColor(cmd),
			PathMode: "auto",
		})
	}
	if failed {
		return 1
	}
	return 0
}
