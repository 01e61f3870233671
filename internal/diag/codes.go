package diag

import "fmt"

// Code is a stable, versioned diagnostic identifier, e.g. E0308.
// Error codes are stable across compiler versions; new codes are appended,
// never renumbered.
type Code uint16

// Category buckets a Code into the taxonomy used by the diagnostic
// diagnostic record ("type_mismatch", "effect_mismatch", ...).
type Category uint8

const (
	CatNone Category = iota
	CatLexical
	CatSyntax
	CatUnresolvedName
	CatTypeMismatch
	CatEffectMismatch
	CatMissingCase
	CatDispatchAmbiguity
	CatDispatchNoMatch
	CatTraitUnsolved
	CatLinearityViolation
	CatBorrowError
	CatMIRInvariant
	CatInternal
)

func (c Category) String() string {
	switch c {
	case CatLexical:
		return "lexical"
	case CatSyntax:
		return "syntax"
	case CatUnresolvedName:
		return "unresolved_name"
	case CatTypeMismatch:
		return "type_mismatch"
	case CatEffectMismatch:
		return "effect_mismatch"
	case CatMissingCase:
		return "missing_case"
	case CatDispatchAmbiguity:
		return "dispatch_ambiguity"
	case CatDispatchNoMatch:
		return "dispatch_no_match"
	case CatTraitUnsolved:
		return "trait_unsolved"
	case CatLinearityViolation:
		return "linearity_violation"
	case CatBorrowError:
		return "borrow_error"
	case CatMIRInvariant:
		return "mir_invariant"
	case CatInternal:
		return "internal"
	default:
		return "none"
	}
}

const (
	UnknownCode Code = 0

	// Lexical: 1000s.
	LexUnknownChar              Code = 1000
	LexUnterminatedString       Code = 1001
	LexUnterminatedBlockComment Code = 1002
	LexBadNumber                Code = 1003

	// Syntax: 2000s.
	SynUnexpectedToken   Code = 2000
	SynExpectedToken     Code = 2001
	SynUnclosedDelimiter Code = 2002
	SynBadSafetyCheck    Code = 2003
	SynChainedCompare    Code = 2004
	SynBadFnSignature    Code = 2005

	// Name resolution: 3000s.
	ResUnresolvedName  Code = 3000
	ResDuplicateDef    Code = 3001
	ResUnresolvedField Code = 3002

	// Type inference: 4000s.
	TypeMismatch      Code = 4000
	TypeInfiniteType  Code = 4001
	TypeArityMismatch Code = 4002
	TypeRowConflict   Code = 4003

	// Effects: 4100s.
	EffectMismatch      Code = 4100
	EffectUnhandledPerform Code = 4101

	// Dispatch: 4200s.
	DispatchAmbiguous Code = 4200
	DispatchNoMatch   Code = 4201
	DispatchUnstable  Code = 4202

	// Traits: 4300s.
	TraitObligationUnsolved Code = 4300

	// Exhaustiveness: 4400s.
	MatchNonExhaustive Code = 4400

	// Linearity: 4500s.
	LinearUseAfterConsume Code = 4500
	LinearNotConsumed     Code = 4501
	AffineReuse           Code = 4502
	LinearBranchMismatch  Code = 4503

	// MIR / internal: 5000s, not recoverable.
	MIRInvariantViolation Code = 5000
	InternalAssertion     Code = 5001
)

func (c Code) String() string {
	return fmt.Sprintf("E%04d", uint16(c))
}

// CategoryOf classifies a Code into its taxonomic bucket.
func CategoryOf(c Code) Category {
	switch {
	case c >= 1000 && c < 2000:
		return CatLexical
	case c >= 2000 && c < 3000:
		return CatSyntax
	case c >= 3000 && c < 4000:
		return CatUnresolvedName
	case c >= 4000 && c < 4100:
		return CatTypeMismatch
	case c >= 4100 && c < 4200:
		return CatEffectMismatch
	case c >= 4200 && c < 4300:
		if c == DispatchAmbiguous {
			return CatDispatchAmbiguity
		}
		return CatDispatchNoMatch
	case c >= 4300 && c < 4400:
		return CatTraitUnsolved
	case c >= 4400 && c < 4500:
		return CatMissingCase
	case c >= 4500 && c < 4600:
		return CatLinearityViolation
	case c >= 5000:
		return CatMIRInvariant
	default:
		return CatNone
	}
}
