package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"off": LevelOff, "": LevelOff,
		"phase": LevelPhase, "DETAIL": LevelDetail, "debug": LevelDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("invalid level must error")
	}
}

func TestStreamTextOutput(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStream(&buf, LevelPhase, FormatText)

	end := Phase(tr, "parse")
	end()

	out := buf.String()
	if !strings.Contains(out, "begin") || !strings.Contains(out, "end") || !strings.Contains(out, "parse") {
		t.Errorf("phase bracket missing from output: %q", out)
	}
}

func TestStreamLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStream(&buf, LevelPhase, FormatText)

	Point(tr, LevelDetail, "too.fine", nil)
	if buf.Len() != 0 {
		t.Errorf("detail event leaked through a phase-level tracer: %q", buf.String())
	}
	Point(tr, LevelPhase, "coarse", nil)
	if buf.Len() == 0 {
		t.Error("phase event was dropped")
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStream(&buf, LevelDebug, FormatNDJSON)

	Point(tr, LevelPhase, "lower.item", map[string]string{"name": "main"})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("NDJSON line does not parse: %v (%q)", err, line)
	}
	if decoded["name"] != "lower.item" || decoded["kind"] != "point" {
		t.Errorf("unexpected NDJSON payload: %v", decoded)
	}
}

func TestNopIsSilent(t *testing.T) {
	var n Nop
	end := Phase(n, "anything")
	end()
	Point(n, LevelDebug, "x", nil)
	if n.Level() != LevelOff {
		t.Error("Nop must report LevelOff")
	}
}
