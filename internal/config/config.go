// Package config loads the ambient compiler options — not the project
// manifest or build graph, which sit outside the core (§1). Options come
// from an optional `blood.toml` (or `blood.yaml`), falling back to the
// values of Default when no file exists.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"blood/internal/ast"
)

// Options are the knobs the driver threads into the pipeline Context.
type Options struct {
	// MaxDiagnostics caps the diagnostic bag; 0 means unbounded.
	MaxDiagnostics int `toml:"max_diagnostics" yaml:"max_diagnostics"`

	// TraceLevel is the ambient trace verbosity (off|phase|detail|debug).
	TraceLevel string `toml:"trace_level" yaml:"trace_level"`

	// AllowUnchecked lists the check names `unchecked(...)` may disable;
	// empty means all of {generation, bounds, overflow, null, alignment}.
	AllowUnchecked []string `toml:"allow_unchecked" yaml:"allow_unchecked"`

	// EmitMIR dumps each lowered body after escape analysis.
	EmitMIR bool `toml:"emit_mir" yaml:"emit_mir"`
}

// Default returns the zero-config behavior.
func Default() Options {
	return Options{MaxDiagnostics: 100, TraceLevel: "off"}
}

// Load reads blood.toml or blood.yaml from dir, falling back to Default
// when neither exists. A malformed file is an error; a missing one is not.
func Load(dir string) (Options, error) {
	opts := Default()

	tomlPath := filepath.Join(dir, "blood.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		if err := toml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("config: %s: %w", tomlPath, err)
		}
		return opts, opts.validate()
	}

	yamlPath := filepath.Join(dir, "blood.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("config: %s: %w", yamlPath, err)
		}
		return opts, opts.validate()
	}

	return opts, nil
}

func (o Options) validate() error {
	for _, name := range o.AllowUnchecked {
		if _, ok := ast.LookupSafetyCheck(name); !ok {
			return fmt.Errorf("config: unknown unchecked check %q (valid: generation, bounds, overflow, null, alignment)", name)
		}
	}
	switch strings.ToLower(o.TraceLevel) {
	case "", "off", "phase", "detail", "debug":
		return nil
	default:
		return fmt.Errorf("config: unknown trace level %q", o.TraceLevel)
	}
}

// UncheckedAllowed reports whether the configuration permits disabling the
// named check.
func (o Options) UncheckedAllowed(name string) bool {
	if len(o.AllowUnchecked) == 0 {
		_, ok := ast.LookupSafetyCheck(name)
		return ok
	}
	for _, allowed := range o.AllowUnchecked {
		if allowed == name {
			return true
		}
	}
	return false
}
