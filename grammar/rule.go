package grammar

import (
	"sort"

	"github.com/drmfinlay/jsgf/expansion"
)

type caseMode int

const (
	caseDefault caseMode = iota
	caseSensitive
	caseInsensitive
)

// Rule binds a name and a visibility to a rule expansion. A rule owns its
// expansion tree exclusively; the compiled text and the matcher built from
// the tree are cached on the rule and invalidated whenever the tree is
// mutated.
type Rule struct {
	name      string
	visible   bool
	expansion expansion.Expansion
	caseMode  caseMode
	active    bool
	grammar   *Grammar

	compiled   string
	compiledOK bool
	matcher    *expansion.Matcher
}

// NewRule creates a rule. Returns an error for names that are not valid,
// optionally qualified JSGF identifiers, and for nil expansions.
func NewRule(name string, visible bool, e expansion.Expansion) (*Rule, error) {
	if !ValidRuleName(name) {
		return nil, invalidRuleNameError(name)
	}
	if e == nil {
		return nil, noExpansionError(name)
	}
	r := &Rule{name: name, visible: visible, active: true}
	r.adopt(e)
	return r, nil
}

// NewPublicRule creates a rule compiled with the "public" keyword.
func NewPublicRule(name string, e expansion.Expansion) (*Rule, error) {
	return NewRule(name, true, e)
}

// NewPrivateRule creates a rule visible only inside its grammar.
func NewPrivateRule(name string, e expansion.Expansion) (*Rule, error) {
	return NewRule(name, false, e)
}

func (r *Rule) adopt(e expansion.Expansion) {
	if r.expansion != nil {
		expansion.SetMutationHook(r.expansion, nil)
	}
	r.expansion = e
	expansion.SetMutationHook(e, r.invalidate)
	r.invalidate()
}

func (r *Rule) invalidate() {
	r.compiledOK = false
	r.matcher = nil
}

// Invalidate drops the cached compiled text and matcher. Mutations made
// through the expansion tree call this automatically; it only needs to be
// called by hand after mutating a rule that this one references.
func (r *Rule) Invalidate() {
	r.invalidate()
}

// Name returns the rule name.
func (r *Rule) Name() string { return r.name }

// Visible reports whether the rule is public.
func (r *Rule) Visible() bool { return r.visible }

// Expansion returns the root of the rule's expansion tree.
func (r *Rule) Expansion() expansion.Expansion { return r.expansion }

// SetExpansion replaces the rule's expansion tree.
func (r *Rule) SetExpansion(e expansion.Expansion) error {
	if e == nil {
		return noExpansionError(r.name)
	}
	r.adopt(e)
	return nil
}

// Grammar returns the grammar the rule belongs to, or nil.
func (r *Rule) Grammar() *Grammar { return r.grammar }

// Enable allows the rule to produce compile output and to match speech.
// Rules are enabled by default.
func (r *Rule) Enable() { r.active = true }

// Disable stops the rule from producing compile output or matching speech.
func (r *Rule) Disable() { r.active = false }

// Active reports whether the rule is enabled.
func (r *Rule) Active() bool { return r.active }

// SetCaseSensitive overrides the grammar's case policy for literals in this
// rule. Changing the policy invalidates the cached matcher.
func (r *Rule) SetCaseSensitive(sensitive bool) {
	if sensitive {
		r.caseMode = caseSensitive
	} else {
		r.caseMode = caseInsensitive
	}
	r.invalidate()
}

// CaseSensitive resolves the effective case policy: the rule's own flag if
// set, the grammar default otherwise. Detached rules default to case
// insensitive matching.
func (r *Rule) CaseSensitive() bool {
	switch r.caseMode {
	case caseSensitive:
		return true
	case caseInsensitive:
		return false
	}
	return r.grammar != nil && r.grammar.CaseSensitive
}

// Compile renders the rule as a JSGF rule definition. Disabled rules
// compile to the empty string. The result is cached until the expansion
// tree is mutated.
func (r *Rule) Compile() string {
	if !r.active {
		return ""
	}
	if !r.compiledOK {
		r.compiled = "<" + r.name + "> = " + expansion.Compile(r.expansion) + ";"
		if r.visible {
			r.compiled = "public " + r.compiled
		}
		r.compiledOK = true
	}
	return r.compiled
}

func (r *Rule) ensureMatcher() (*expansion.Matcher, error) {
	if r.matcher == nil {
		m, err := expansion.NewRuleMatcher(r)
		if err != nil {
			return nil, err
		}
		r.matcher = m
	}
	return r.matcher, nil
}

// Matches reports whether a speech string is matched in full by the rule.
// Disabled rules never match. An error is returned when the matcher cannot
// be built or a rule reference cannot be resolved.
func (r *Rule) Matches(speech string) (bool, error) {
	if !r.active {
		return false, nil
	}
	m, err := r.ensureMatcher()
	if err != nil {
		return false, err
	}
	result, err := m.MatchEntire(speech)
	if err != nil {
		return false, err
	}
	return result != nil, nil
}

// FindMatchingPart matches a prefix of a speech string against the rule and
// returns the deepest tagged or rule-referencing expansion that matched,
// together with the unconsumed tail of the input. The root expansion is
// returned when no tagged or referencing node participated. Returns nil and
// an empty tail when nothing matches.
func (r *Rule) FindMatchingPart(speech string) (expansion.Expansion, string, error) {
	if !r.active {
		return nil, "", nil
	}
	m, err := r.ensureMatcher()
	if err != nil {
		return nil, "", err
	}
	result, err := m.Match(speech)
	if err != nil {
		return nil, "", err
	}
	if result == nil {
		return nil, "", nil
	}

	var deepest expansion.Expansion
	depth := -1
	expansion.Walk(r.expansion, func(n expansion.Expansion) expansion.WalkResult {
		if _, matched := n.CurrentMatch(); !matched {
			return expansion.SkipChildren
		}
		interesting := len(n.Tags()) > 0 ||
			n.Kind() == expansion.RuleRefKind || n.Kind() == expansion.NamedRuleRefKind
		if interesting {
			if d := nodeDepth(n); d > depth {
				deepest, depth = n, d
			}
		}
		return expansion.WalkChildren
	})
	if deepest == nil {
		deepest = r.expansion
	}
	return deepest, result.Tail(), nil
}

func nodeDepth(e expansion.Expansion) int {
	d := 0
	for p := e.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

// Dependencies returns the sorted names of every rule this rule references,
// directly or through other rules. Unresolvable references contribute their
// name only.
func (r *Rule) Dependencies() []string {
	seen := make(map[string]bool)
	r.collectDependencies(seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Rule) collectDependencies(seen map[string]bool) {
	expansion.Walk(r.expansion, func(n expansion.Expansion) expansion.WalkResult {
		var name string
		var target *Rule
		switch ref := n.(type) {
		case *expansion.NamedRuleRef:
			name = ref.Name()
			if r.grammar != nil {
				if resolved, err := r.grammar.resolve(name); err == nil {
					target = resolved
				}
			}
		case *expansion.RuleRef:
			if ref.Rule() == nil {
				return expansion.WalkChildren
			}
			name = ref.Rule().RuleName()
			target, _ = ref.Rule().(*Rule)
		default:
			return expansion.WalkChildren
		}
		if seen[name] {
			return expansion.WalkChildren
		}
		seen[name] = true
		if target != nil {
			target.collectDependencies(seen)
		}
		return expansion.WalkChildren
	})
}

// Equal reports whether two rules have the same name, visibility, and
// structurally equal expansions.
func (r *Rule) Equal(other *Rule) bool {
	return other != nil && r.name == other.name && r.visible == other.visible &&
		expansion.Equal(r.expansion, other.expansion)
}

// String returns a short description of the rule.
func (r *Rule) String() string {
	visibility := "private"
	if r.visible {
		visibility = "public"
	}
	return "Rule(" + r.name + ", " + visibility + ")"
}

// RuleName implements expansion.ReferencedRule.
func (r *Rule) RuleName() string { return r.name }

// RuleExpansion implements expansion.ReferencedRule.
func (r *Rule) RuleExpansion() expansion.Expansion { return r.expansion }

// RuleCaseSensitive implements expansion.ReferencedRule.
func (r *Rule) RuleCaseSensitive() bool { return r.CaseSensitive() }

// ResolveRule implements expansion.ReferencedRule: named references inside
// this rule resolve against the rule's grammar and its imports.
func (r *Rule) ResolveRule(name string) (expansion.ReferencedRule, error) {
	if r.grammar == nil {
		if name == r.name {
			return r, nil
		}
		return nil, outOfScopeError(name)
	}
	resolved, err := r.grammar.resolve(name)
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

var _ expansion.ReferencedRule = (*Rule)(nil)
