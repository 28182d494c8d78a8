package grammar

import (
	"os"
	"strings"

	"github.com/drmfinlay/jsgf/expansion"
)

// Default grammar header values.
const (
	DefaultVersion  = "1.0"
	DefaultCharset  = "UTF-8"
	DefaultLanguage = "en"
)

// Grammar is an ordered, name-unique collection of rules together with
// header metadata and imports. Rule references are resolved lazily against
// the grammar's own rules, then against its imports once the imported
// grammars have been registered with Register.
//
// A grammar is not safe for concurrent mutation and reading; callers must
// serialize access. Separate grammars share no state.
type Grammar struct {
	// Version, Charset, and Language are the JSGF header fields.
	Version  string
	Charset  string
	Language string

	// CaseSensitive is the default case policy for literals in rules that
	// carry no override of their own.
	CaseSensitive bool

	name       string
	rules      []*Rule
	imports    []*Import
	registered map[string]*Grammar
}

// NewGrammar creates an empty grammar with default header values.
func NewGrammar(name string) (*Grammar, error) {
	if !ValidGrammarName(name) {
		return nil, invalidGrammarNameError(name)
	}
	return &Grammar{
		Version:  DefaultVersion,
		Charset:  DefaultCharset,
		Language: DefaultLanguage,
		name:     name,
	}, nil
}

// Name returns the grammar name.
func (g *Grammar) Name() string { return g.name }

// Header renders the JSGF header line.
func (g *Grammar) Header() string {
	return "#JSGF V" + g.Version + " " + g.Charset + " " + g.Language + ";"
}

// AddRule adds a rule to the grammar. Adding a rule that is structurally
// equal to one already present is a silent no-op; adding a different rule
// under a taken name is an error.
func (g *Grammar) AddRule(r *Rule) error {
	for _, existing := range g.rules {
		if existing.name != r.name {
			continue
		}
		if existing.Equal(r) {
			return nil
		}
		return duplicateRuleError(r.name)
	}
	g.rules = append(g.rules, r)
	r.grammar = g
	return nil
}

// AddRules adds rules in order, stopping at the first error.
func (g *Grammar) AddRules(rules ...*Rule) error {
	for _, r := range rules {
		if err := g.AddRule(r); err != nil {
			return err
		}
	}
	return nil
}

// Rule returns the rule with the given name.
func (g *Grammar) Rule(name string) (*Rule, error) {
	for _, r := range g.rules {
		if r.name == name {
			return r, nil
		}
	}
	return nil, noSuchRuleError(g.name, name)
}

// Rules returns the rules of the grammar in declaration order.
func (g *Grammar) Rules() []*Rule {
	rules := make([]*Rule, len(g.rules))
	copy(rules, g.rules)
	return rules
}

// VisibleRules returns the public rules of the grammar.
func (g *Grammar) VisibleRules() []*Rule {
	var rules []*Rule
	for _, r := range g.rules {
		if r.visible {
			rules = append(rules, r)
		}
	}
	return rules
}

// RuleNames returns the names of the rules in declaration order.
func (g *Grammar) RuleNames() []string {
	names := make([]string, len(g.rules))
	for i, r := range g.rules {
		names[i] = r.name
	}
	return names
}

// RulesByName returns every rule known under the given simple or qualified
// name: local rules, and rules of registered grammars reachable through
// imports.
func (g *Grammar) RulesByName(name string) []*Rule {
	var rules []*Rule
	if r, err := g.Rule(name); err == nil {
		rules = append(rules, r)
	}
	if r, err := g.resolveQualified(name); err == nil {
		rules = append(rules, r)
	}
	if r, err := g.resolveImported(name); err == nil {
		rules = append(rules, r)
	}
	return dedupeRules(rules)
}

func dedupeRules(rules []*Rule) []*Rule {
	var result []*Rule
	seen := make(map[*Rule]bool)
	for _, r := range rules {
		if !seen[r] {
			seen[r] = true
			result = append(result, r)
		}
	}
	return result
}

// RemoveRule removes a rule by name. Unless ignoreDependent is true, the
// removal is refused while another rule of the grammar references it.
func (g *Grammar) RemoveRule(name string, ignoreDependent bool) error {
	index := -1
	for i, r := range g.rules {
		if r.name == name {
			index = i
			break
		}
	}
	if index < 0 {
		return noSuchRuleError(g.name, name)
	}
	if !ignoreDependent {
		for _, other := range g.rules {
			if other.name == name {
				continue
			}
			for _, dep := range other.Dependencies() {
				if dep == name {
					return dependentRuleError(name)
				}
			}
		}
	}
	g.rules[index].grammar = nil
	g.rules = append(g.rules[:index], g.rules[index+1:]...)
	return nil
}

// EnableRule enables the named rule.
func (g *Grammar) EnableRule(name string) error {
	r, err := g.Rule(name)
	if err != nil {
		return err
	}
	r.Enable()
	return nil
}

// DisableRule disables the named rule: it no longer compiles or matches.
func (g *Grammar) DisableRule(name string) error {
	r, err := g.Rule(name)
	if err != nil {
		return err
	}
	r.Disable()
	return nil
}

// AddImport adds an import statement. Adding an equal import twice is a
// no-op.
func (g *Grammar) AddImport(imp *Import) {
	for _, existing := range g.imports {
		if existing.Equal(imp) {
			return
		}
	}
	g.imports = append(g.imports, imp)
}

// RemoveImport removes an import. Removing an import that is not part of
// the grammar is an error.
func (g *Grammar) RemoveImport(imp *Import) error {
	for i, existing := range g.imports {
		if existing.Equal(imp) {
			g.imports = append(g.imports[:i], g.imports[i+1:]...)
			return nil
		}
	}
	return noSuchImportError(imp.Name())
}

// Imports returns the grammar's imports in declaration order.
func (g *Grammar) Imports() []*Import {
	imports := make([]*Import, len(g.imports))
	copy(imports, g.imports)
	return imports
}

// ImportNames returns the imported names in declaration order.
func (g *Grammar) ImportNames() []string {
	names := make([]string, len(g.imports))
	for i, imp := range g.imports {
		names[i] = imp.name
	}
	return names
}

// Register makes another grammar's public rules resolvable through this
// grammar's imports. References stay name-based and bind lazily, so
// registering after building rules is fine.
func (g *Grammar) Register(other *Grammar) {
	if g.registered == nil {
		g.registered = make(map[string]*Grammar)
	}
	g.registered[other.name] = other
}

// resolve finds the rule a reference name stands for: local rules first,
// then qualified names of this grammar, then imported rules.
func (g *Grammar) resolve(name string) (*Rule, error) {
	if r, err := g.Rule(name); err == nil {
		return r, nil
	}
	if r, err := g.resolveQualified(name); err == nil {
		return r, nil
	}
	return g.resolveImported(name)
}

func (g *Grammar) resolveQualified(name string) (*Rule, error) {
	prefix := g.name + "."
	if !strings.HasPrefix(name, prefix) {
		return nil, outOfScopeError(name)
	}
	return g.Rule(strings.TrimPrefix(name, prefix))
}

func (g *Grammar) resolveImported(name string) (*Rule, error) {
	for _, imp := range g.imports {
		var grammarName, ruleName string
		switch {
		case imp.Wildcard():
			grammarName = imp.GrammarName()
			ruleName = name
		case imp.Name() == name, imp.RuleName() == name:
			grammarName = imp.GrammarName()
			ruleName = imp.RuleName()
		default:
			continue
		}
		imported, found := g.registered[grammarName]
		if !found {
			continue
		}
		r, err := imported.Rule(ruleName)
		if err != nil {
			continue
		}
		if !r.visible {
			return nil, privateRuleError(name)
		}
		return r, nil
	}
	return nil, outOfScopeError(name)
}

// FindMatchingRules returns every visible rule that matches the speech
// string in full, in declaration order.
func (g *Grammar) FindMatchingRules(speech string) ([]*Rule, error) {
	var matched []*Rule
	for _, r := range g.rules {
		if !r.visible {
			continue
		}
		ok, err := r.Matches(speech)
		if err != nil {
			return matched, err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Compile renders the whole grammar: header, grammar declaration, imports,
// and rules in declaration order.
func (g *Grammar) Compile() string {
	var b strings.Builder
	b.WriteString(g.Header())
	b.WriteString("\n")
	b.WriteString("grammar " + g.name + ";\n")
	for _, imp := range g.imports {
		b.WriteString(imp.Compile())
		b.WriteString("\n")
	}
	for _, r := range g.rules {
		compiled := r.Compile()
		if compiled != "" {
			b.WriteString(compiled)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// CompileAsRoot renders the grammar with one generated public <root> rule
// referencing every visible rule as alternatives, and every other rule
// compiled private. Grammars without visible active rules render only the
// header, the grammar declaration, and the imports.
func (g *Grammar) CompileAsRoot() string {
	var b strings.Builder
	b.WriteString(g.Header())
	b.WriteString("\n")
	b.WriteString("grammar " + g.name + ";\n")
	for _, imp := range g.imports {
		b.WriteString(imp.Compile())
		b.WriteString("\n")
	}

	var names []string
	var rules strings.Builder
	for _, r := range g.rules {
		if !r.active {
			continue
		}
		body := expansion.Compile(r.expansion)
		rules.WriteString("<" + r.name + "> = " + body + ";\n")
		if r.visible {
			names = append(names, r.name)
		}
	}
	if len(names) > 0 {
		refs := make([]string, len(names))
		for i, name := range names {
			refs[i] = "<" + name + ">"
		}
		b.WriteString("public <root> = (" + strings.Join(refs, " | ") + ");\n")
		b.WriteString(rules.String())
	}
	return b.String()
}

// CompileToFile writes the compiled grammar to a file.
func (g *Grammar) CompileToFile(path string) error {
	return os.WriteFile(path, []byte(g.Compile()), 0o666)
}

// String returns a short description of the grammar.
func (g *Grammar) String() string {
	return "Grammar(" + g.name + ") with rules: " + strings.Join(g.RuleNames(), ", ")
}
