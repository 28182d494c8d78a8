package expansion

import (
	"github.com/drmfinlay/jsgf"
)

// Error codes used by expansion trees:
const (
	NegativeWeightError = iota + jsgf.ExpansionErrors
	NotAChildError
)

// Error codes used by the matcher:
const (
	LeftRecursionError = iota + jsgf.MatchErrors
	NoResolverError
)

// Error codes used for rule reference resolution:
const (
	UnresolvedRuleError = iota + jsgf.ReferenceErrors
	NilRuleError
)

func negativeWeightError(w float64) *jsgf.Error {
	return jsgf.FormatError(NegativeWeightError, "alternative weight %v is negative", w)
}

func notAChildError(e Expansion) *jsgf.Error {
	return jsgf.FormatError(NotAChildError, "%s expansion is not an alternative of this set", e.Kind())
}

func leftRecursionError(name string) *jsgf.Error {
	return jsgf.FormatError(LeftRecursionError, "rule <%s> is directly left recursive", name)
}

func noResolverError(name string) *jsgf.Error {
	return jsgf.FormatError(NoResolverError, "cannot resolve <%s>: no rule resolver available", name)
}

func unresolvedRuleError(name string, cause error) *jsgf.Error {
	if cause != nil {
		return jsgf.FormatError(UnresolvedRuleError, "cannot resolve rule reference <%s>: %s", name, cause)
	}
	return jsgf.FormatError(UnresolvedRuleError, "cannot resolve rule reference <%s>", name)
}

func nilRuleError() *jsgf.Error {
	return jsgf.FormatError(NilRuleError, "rule reference does not point at a rule")
}
