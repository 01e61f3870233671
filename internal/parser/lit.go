package parser

import (
	"strconv"
	"strings"
)

// parseIntLit decodes a numeric literal's raw text per §4.1's numeric forms
// (decimal, 0x, 0b, 0o; underscores permitted; optional type suffix). The
// lexer guarantees a well-formed literal reaches here (malformed ones were
// already reported and tagged error-typed); this best-effort decode never
// panics on its input.
func parseIntLit(raw string) uint64 {
	digits, _ := splitIntSuffix(raw)
	digits = strings.ReplaceAll(digits, "_", "")
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X"):
		base = 16
		digits = digits[2:]
	case strings.HasPrefix(digits, "0b") || strings.HasPrefix(digits, "0B"):
		base = 2
		digits = digits[2:]
	case strings.HasPrefix(digits, "0o") || strings.HasPrefix(digits, "0O"):
		base = 8
		digits = digits[2:]
	}
	v, _ := strconv.ParseUint(digits, base, 64)
	return v
}

func parseFloatLit(raw string) float64 {
	digits, _ := splitIntSuffix(raw)
	digits = strings.ReplaceAll(digits, "_", "")
	v, _ := strconv.ParseFloat(digits, 64)
	return v
}

// intSuffix extracts the optional type suffix (`i32`, `u64`, `f64`,
// `usize`, ...) from a numeric literal's raw text.
func intSuffix(raw string) string {
	_, suffix := splitIntSuffix(raw)
	return suffix
}

var knownSuffixes = []string{
	"i8", "i16", "i32", "i64", "i128", "isize",
	"u8", "u16", "u32", "u64", "u128", "usize",
	"f32", "f64",
}

func splitIntSuffix(raw string) (digits, suffix string) {
	for _, s := range knownSuffixes {
		if strings.HasSuffix(raw, s) && len(raw) > len(s) {
			prev := raw[len(raw)-len(s)-1]
			if prev >= '0' && prev <= '9' || prev == '_' || prev == 'x' || prev == 'X' ||
				(prev >= 'a' && prev <= 'f') || (prev >= 'A' && prev <= 'F') {
				return raw[:len(raw)-len(s)], s
			}
		}
	}
	return raw, ""
}
