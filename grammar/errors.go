package grammar

import (
	"github.com/drmfinlay/jsgf"
)

// Error codes used by grammar:
const (
	InvalidRuleNameError = iota + jsgf.GrammarErrors
	InvalidGrammarNameError
	InvalidImportNameError
	DuplicateRuleError
	NoSuchRuleError
	DependentRuleError
	NoSuchImportError
	NoExpansionError
)

// Error codes used for import and reference resolution. The lower codes of
// the class belong to the expansion package.
const (
	OutOfScopeError = iota + jsgf.ReferenceErrors + 10
	PrivateRuleError
)

func invalidRuleNameError(name string) *jsgf.Error {
	return jsgf.FormatError(InvalidRuleNameError, "%q is not a valid rule name", name)
}

func invalidGrammarNameError(name string) *jsgf.Error {
	return jsgf.FormatError(InvalidGrammarNameError, "%q is not a valid grammar name", name)
}

func invalidImportNameError(name string) *jsgf.Error {
	return jsgf.FormatError(InvalidImportNameError, "%q is not a valid import name", name)
}

func duplicateRuleError(name string) *jsgf.Error {
	return jsgf.FormatError(DuplicateRuleError, "grammar already has a different rule named %q", name)
}

func noSuchRuleError(grammarName, ruleName string) *jsgf.Error {
	return jsgf.FormatError(NoSuchRuleError, "%q is not a rule in grammar %q", ruleName, grammarName)
}

func dependentRuleError(name string) *jsgf.Error {
	return jsgf.FormatError(DependentRuleError, "cannot remove rule %q: another rule references it", name)
}

func noSuchImportError(name string) *jsgf.Error {
	return jsgf.FormatError(NoSuchImportError, "import <%s> is not part of the grammar", name)
}

func noExpansionError(name string) *jsgf.Error {
	return jsgf.FormatError(NoExpansionError, "rule %q has no expansion", name)
}

func outOfScopeError(name string) *jsgf.Error {
	return jsgf.FormatError(OutOfScopeError, "rule <%s> is not in scope", name)
}

func privateRuleError(name string) *jsgf.Error {
	return jsgf.FormatError(PrivateRuleError, "rule <%s> is private to its grammar", name)
}
