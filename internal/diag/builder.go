package diag

import "blood/internal/source"

// New constructs a Diagnostic with the given code, severity, primary span,
// and message, ready for chaining with WithLabel/WithProvenance/WithFix.
func New(code Code, sev Severity, primary source.Span, message string) *Diagnostic {
	return &Diagnostic{Code: code, Severity: sev, Primary: primary, Message: message}
}

// Error is shorthand for New(code, SevError, primary, message).
func Error(code Code, primary source.Span, message string) *Diagnostic {
	return New(code, SevError, primary, message)
}

// Warning is shorthand for New(code, SevWarning, primary, message).
func Warning(code Code, primary source.Span, message string) *Diagnostic {
	return New(code, SevWarning, primary, message)
}
