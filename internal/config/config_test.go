package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	opts := Default()
	if opts.MaxDiagnostics != 100 || opts.TraceLevel != "off" {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestLoadMissingFileIsDefault(t *testing.T) {
	opts, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("missing config must not error: %v", err)
	}
	if opts.MaxDiagnostics != 100 {
		t.Errorf("missing config must fall back to defaults, got %+v", opts)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	content := `
max_diagnostics = 25
trace_level = "phase"
allow_unchecked = ["bounds", "overflow"]
emit_mir = true
`
	if err := os.WriteFile(filepath.Join(dir, "blood.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.MaxDiagnostics != 25 || opts.TraceLevel != "phase" || !opts.EmitMIR {
		t.Errorf("TOML not applied: %+v", opts)
	}
	if !opts.UncheckedAllowed("bounds") || opts.UncheckedAllowed("generation") {
		t.Errorf("allow_unchecked not honored: %+v", opts.AllowUnchecked)
	}
}

func TestLoadYAMLFallback(t *testing.T) {
	dir := t.TempDir()
	content := "max_diagnostics: 7\ntrace_level: detail\n"
	if err := os.WriteFile(filepath.Join(dir, "blood.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.MaxDiagnostics != 7 || opts.TraceLevel != "detail" {
		t.Errorf("YAML not applied: %+v", opts)
	}
}

func TestTOMLWinsOverYAML(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "blood.toml"), []byte("max_diagnostics = 1\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "blood.yaml"), []byte("max_diagnostics: 2\n"), 0o644)
	opts, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if opts.MaxDiagnostics != 1 {
		t.Errorf("blood.toml must take precedence, got %d", opts.MaxDiagnostics)
	}
}

func TestRejectsUnknownCheckName(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "blood.toml"), []byte(`allow_unchecked = ["warp"]`), 0o644)
	if _, err := Load(dir); err == nil {
		t.Error("an unknown check name must be rejected")
	}
}

func TestRejectsBadTraceLevel(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "blood.toml"), []byte(`trace_level = "loud"`), 0o644)
	if _, err := Load(dir); err == nil {
		t.Error("an unknown trace level must be rejected")
	}
}

func TestUncheckedAllowedDefaultsToFullSet(t *testing.T) {
	opts := Default()
	for _, name := range []string{"generation", "bounds", "overflow", "null", "alignment"} {
		if !opts.UncheckedAllowed(name) {
			t.Errorf("default config must allow %q", name)
		}
	}
	if opts.UncheckedAllowed("warp") {
		t.Error("unknown names are never allowed")
	}
}
