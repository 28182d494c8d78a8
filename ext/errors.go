package ext

import (
	"github.com/drmfinlay/jsgf"
)

// Error codes used by the dictation extension. The lower codes of the class
// belong to the grammar package.
const (
	ExpansionLimitError = iota + jsgf.GrammarErrors + 20
	NoDictationError
	DuplicateRuleError
	NoSuchRuleError
)

func expansionLimitError(count int) *jsgf.Error {
	return jsgf.FormatError(ExpansionLimitError,
		"expanding dictation alternatives produced %d variants, more than the limit of %d",
		count, ExpansionLimit)
}

func noDictationError(name string) *jsgf.Error {
	return jsgf.FormatError(NoDictationError, "rule %q contains no dictation expansion", name)
}

func duplicateRuleError(name string) *jsgf.Error {
	return jsgf.FormatError(DuplicateRuleError, "dictation grammar already has a rule named %q", name)
}

func noSuchRuleError(name string) *jsgf.Error {
	return jsgf.FormatError(NoSuchRuleError, "%q is not a rule in the dictation grammar", name)
}
