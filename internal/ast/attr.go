package ast

import "blood/internal/source"

// SafetyCheck names one of the checks that `unchecked(...)` may disable.
// The valid set is fixed: {generation, bounds, overflow, null, alignment}.
type SafetyCheck uint8

const (
	CheckGeneration SafetyCheck = 1 << iota
	CheckBounds
	CheckOverflow
	CheckNull
	CheckAlignment
)

var safetyCheckNames = map[string]SafetyCheck{
	"generation": CheckGeneration,
	"bounds":     CheckBounds,
	"overflow":   CheckOverflow,
	"null":       CheckNull,
	"alignment":  CheckAlignment,
}

// LookupSafetyCheck resolves a check name parsed from an `unchecked(...)` list.
func LookupSafetyCheck(name string) (SafetyCheck, bool) {
	c, ok := safetyCheckNames[name]
	return c, ok
}

// UncheckedAttr records the check list of a parsed `unchecked(...) { }`
// block, naming which runtime checks are suppressed in its scope.
type UncheckedAttr struct {
	Span   source.Span
	Checks SafetyCheck
}

func (u UncheckedAttr) Has(c SafetyCheck) bool { return u.Checks&c != 0 }

// SpecClauseKind distinguishes the four specification clause forms parsed
// (but not semantically enforced) by the core.
type SpecClauseKind uint8

const (
	SpecRequires SpecClauseKind = iota
	SpecEnsures
	SpecInvariant
	SpecDecreases
)

// SpecClause is a parsed `requires`/`ensures`/`invariant`/`decreases` clause
// attached to a function signature.
type SpecClause struct {
	Kind SpecClauseKind
	Expr ExprID
	Span source.Span
}
