package ext

import (
	"os"
	"strings"

	"github.com/drmfinlay/jsgf/grammar"
)

// DictationGrammar wraps a grammar so that rules mixing fixed phrases and
// dictation can live next to ordinary JSGF rules. Rules without dictation
// are stored as-is in the wrapped grammar; rules with dictation become
// SequenceRules matched fragment by fragment in the host, and only their
// dictation-free parts appear in the compiled output, so an external
// decoder always sees pure JSGF.
type DictationGrammar struct {
	grammar   *grammar.Grammar
	sequences []*SequenceRule
}

// NewDictationGrammar creates an empty dictation grammar.
func NewDictationGrammar(name string) (*DictationGrammar, error) {
	g, err := grammar.NewGrammar(name)
	if err != nil {
		return nil, err
	}
	return &DictationGrammar{grammar: g}, nil
}

// Grammar returns the wrapped grammar holding the dictation-free rules.
func (d *DictationGrammar) Grammar() *grammar.Grammar {
	return d.grammar
}

// SequenceRules returns the sequence rules created from dictation rules, in
// addition order.
func (d *DictationGrammar) SequenceRules() []*SequenceRule {
	rules := make([]*SequenceRule, len(d.sequences))
	copy(rules, d.sequences)
	return rules
}

// SequenceRule returns the sequence rule with the given name.
func (d *DictationGrammar) SequenceRule(name string) (*SequenceRule, error) {
	for _, s := range d.sequences {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, noSuchRuleError(name)
}

// RuleNames returns the names of every rule in the dictation grammar. The
// wrapped grammar also holds the original rule of every sequence rule, so
// its names cover both kinds.
func (d *DictationGrammar) RuleNames() []string {
	return d.grammar.RuleNames()
}

// AddRule adds a rule. Rules containing dictation are converted to
// SequenceRules; others are added to the wrapped grammar unchanged. Names
// must be unique across both kinds.
func (d *DictationGrammar) AddRule(r *grammar.Rule) error {
	for _, name := range d.RuleNames() {
		if name == r.Name() {
			return duplicateRuleError(r.Name())
		}
	}
	if !DictationIn(r.Expansion()) {
		return d.grammar.AddRule(r)
	}
	s, err := NewSequenceRule(r)
	if err != nil {
		return err
	}
	d.sequences = append(d.sequences, s)
	// The wrapped grammar still owns the original rule so that references
	// between dictation rules resolve, but it must not match or compile as
	// a plain rule.
	if err := d.grammar.AddRule(r); err != nil {
		return err
	}
	r.Disable()
	return nil
}

// AddRules adds rules in order, stopping at the first error.
func (d *DictationGrammar) AddRules(rules ...*grammar.Rule) error {
	for _, r := range rules {
		if err := d.AddRule(r); err != nil {
			return err
		}
	}
	return nil
}

// RemoveRule removes the named rule, whichever side it lives on.
func (d *DictationGrammar) RemoveRule(name string) error {
	for i, s := range d.sequences {
		if s.Name() == name {
			d.sequences = append(d.sequences[:i], d.sequences[i+1:]...)
			return d.grammar.RemoveRule(name, true)
		}
	}
	return d.grammar.RemoveRule(name, false)
}

// MatchedRule is one entry of a FindMatchingRules result: either an
// ordinary rule of the wrapped grammar or a sequence rule.
type MatchedRule struct {
	Rule     *grammar.Rule
	Sequence *SequenceRule
}

// Name returns the matched rule's name.
func (m MatchedRule) Name() string {
	if m.Sequence != nil {
		return m.Sequence.Name()
	}
	return m.Rule.Name()
}

// FindMatchingRules matches a speech string against every visible rule:
// ordinary rules in full, sequence rules at their current sub-expansion.
// When advance is true, matched sequence rules with a further sub-expansion
// are advanced automatically for the next fragment.
func (d *DictationGrammar) FindMatchingRules(speech string, advance bool) ([]MatchedRule, error) {
	var matched []MatchedRule
	plain, err := d.grammar.FindMatchingRules(speech)
	if err != nil {
		return nil, err
	}
	for _, r := range plain {
		matched = append(matched, MatchedRule{Rule: r})
	}
	for _, s := range d.sequences {
		if !s.Visible() {
			continue
		}
		ok, err := s.Matches(speech)
		if err != nil {
			return matched, err
		}
		if !ok {
			continue
		}
		matched = append(matched, MatchedRule{Sequence: s})
		if advance && s.HasNext() {
			s.SetNext()
		}
	}
	return matched, nil
}

// ResetSequenceRules restarts every sequence rule so that whole utterances
// can be matched again from their first sub-expansion.
func (d *DictationGrammar) ResetSequenceRules() {
	for _, s := range d.sequences {
		s.RestartDictationContext()
	}
}

// Compile renders the dictation-free side of the grammar: the wrapped
// grammar's rules plus, for each sequence rule, the current sub-expansion
// when it contains no dictation. The result is pure JSGF.
func (d *DictationGrammar) Compile() string {
	var b strings.Builder
	b.WriteString(d.grammar.Compile())
	for _, s := range d.sequences {
		compiled := s.Compile()
		if compiled != "" {
			b.WriteString(compiled)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// CompileToFile writes the compiled grammar to a file.
func (d *DictationGrammar) CompileToFile(path string) error {
	return os.WriteFile(path, []byte(d.Compile()), 0o666)
}
