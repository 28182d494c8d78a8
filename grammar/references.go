// Package grammar defines JSGF rules, grammars, and imports, together with
// reference name validation.
package grammar

import (
	"regexp"
	"strings"
)

// A base name is one or more alphanumeric Unicode characters and/or a few
// special characters. Qualified names join base names with dots, i.e. Java
// package syntax. The reserved names NULL and VOID cannot be used as base
// names, although other casings of them can: names are case sensitive.
const baseNamePattern = `[\p{L}\p{N}_+\-:;,=|/\\()\[\]@#%!^&~$]+`

var baseNameRe = regexp.MustCompile(`^` + baseNamePattern + `$`)

func validSegments(segments []string) bool {
	for _, s := range segments {
		if s == "NULL" || s == "VOID" || !baseNameRe.MatchString(s) {
			return false
		}
	}
	return len(segments) > 0
}

// ValidRuleName reports whether a string is a valid, optionally qualified,
// rule or grammar name.
func ValidRuleName(name string) bool {
	return validSegments(strings.Split(name, "."))
}

// ValidGrammarName reports whether a string is a valid, optionally
// qualified, grammar name.
func ValidGrammarName(name string) bool {
	return ValidRuleName(name)
}

// ValidImportName reports whether a string is a valid import name: a fully
// qualified rule name, or a wildcard form ending in ".*" importing every
// public rule of a grammar.
func ValidImportName(name string) bool {
	segments := strings.Split(name, ".")
	if len(segments) < 2 {
		return false
	}
	if segments[len(segments)-1] == "*" {
		segments = segments[:len(segments)-1]
	}
	return validSegments(segments)
}

// Import names another grammar's rule, or all of its public rules using the
// wildcard form. Two imports are equal when their names are equal.
type Import struct {
	name string
}

// NewImport creates an import from a fully qualified rule name or a
// wildcard form such as "com.example.grammar.*".
func NewImport(name string) (*Import, error) {
	if !ValidImportName(name) {
		return nil, invalidImportNameError(name)
	}
	return &Import{name: name}, nil
}

// Name returns the imported name.
func (i *Import) Name() string {
	return i.name
}

// Wildcard reports whether the import names every public rule of a grammar.
func (i *Import) Wildcard() bool {
	return strings.HasSuffix(i.name, ".*")
}

// GrammarName returns the name of the grammar the import refers to.
func (i *Import) GrammarName() string {
	return i.name[:strings.LastIndex(i.name, ".")]
}

// RuleName returns the simple name of the imported rule, or "*" for
// wildcard imports.
func (i *Import) RuleName() string {
	return i.name[strings.LastIndex(i.name, ".")+1:]
}

// Compile renders the import statement.
func (i *Import) Compile() string {
	return "import <" + i.name + ">;"
}

// Equal reports whether two imports name the same thing.
func (i *Import) Equal(other *Import) bool {
	return other != nil && i.name == other.name
}
