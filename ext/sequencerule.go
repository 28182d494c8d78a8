package ext

import (
	"strings"

	"github.com/drmfinlay/jsgf/expansion"
	"github.com/drmfinlay/jsgf/grammar"
)

// SequenceRule wraps a rule whose expansion contains dictation. The
// expansion is expanded with ExpandDictation and every variant is split at
// dictation boundaries into numbered sub-expansions. Fragments of an
// utterance are then matched one sub-expansion at a time: Matches tries the
// current sub-expansion of every live variant and prunes the variants that
// fall behind, SetNext advances the progression, and EntireMatch
// reassembles the full utterance once every step has matched.
type SequenceRule struct {
	rule     *grammar.Rule
	variants []*sequenceVariant
	index    int
	refuse   bool
}

type sequenceVariant struct {
	pieces   []expansion.Expansion
	matchers []*expansion.Matcher
	matched  []bool
	texts    []string
	alive    bool
}

func (v *sequenceVariant) matcher(i int, rule *grammar.Rule) (*expansion.Matcher, error) {
	if v.matchers[i] == nil {
		m, err := expansion.NewMatcher(v.pieces[i], expansion.Options{
			CaseSensitive: rule.CaseSensitive(),
			Resolver:      rule.ResolveRule,
		})
		if err != nil {
			return nil, err
		}
		v.matchers[i] = m
	}
	return v.matchers[i], nil
}

// NewSequenceRule builds a sequence rule from a rule containing at least
// one dictation expansion.
func NewSequenceRule(rule *grammar.Rule) (*SequenceRule, error) {
	if !DictationIn(rule.Expansion()) {
		return nil, noDictationError(rule.Name())
	}
	trees, err := ExpandDictation(rule.Expansion())
	if err != nil {
		return nil, err
	}
	s := &SequenceRule{rule: rule}
	for _, tree := range trees {
		pieces := SplitAtDictation(tree)
		s.variants = append(s.variants, &sequenceVariant{
			pieces:   pieces,
			matchers: make([]*expansion.Matcher, len(pieces)),
			matched:  make([]bool, len(pieces)),
			texts:    make([]string, len(pieces)),
			alive:    true,
		})
	}
	return s, nil
}

// Name returns the name of the underlying rule.
func (s *SequenceRule) Name() string { return s.rule.Name() }

// Visible reports whether the underlying rule is public.
func (s *SequenceRule) Visible() bool { return s.rule.Visible() }

// OriginalRule returns the rule the sequence was built from.
func (s *SequenceRule) OriginalRule() *grammar.Rule { return s.rule }

// CurrentIndex returns the index of the sub-expansion the next fragment
// will be matched against.
func (s *SequenceRule) CurrentIndex() int { return s.index }

// HasNext reports whether any live variant has a sub-expansion after the
// current one.
func (s *SequenceRule) HasNext() bool {
	for _, v := range s.variants {
		if v.alive && s.index+1 < len(v.pieces) {
			return true
		}
	}
	return false
}

// SetNext advances to the next sub-expansion. Variants with no further
// sub-expansions are pruned. Advancing past the last sub-expansion of every
// live variant does not wrap around: the rule refuses matches until
// RestartDictationContext is called.
func (s *SequenceRule) SetNext() {
	if !s.HasNext() {
		s.refuse = true
		return
	}
	s.index++
	s.refuse = false
	for _, v := range s.variants {
		if s.index >= len(v.pieces) {
			v.alive = false
		}
	}
}

// RefuseMatches reports whether matching is currently refused. It becomes
// true when a fragment has been accepted (until SetNext) and when the
// progression advances past the last sub-expansion.
func (s *SequenceRule) RefuseMatches() bool { return s.refuse }

// SetRefuseMatches overrides the refusal state.
func (s *SequenceRule) SetRefuseMatches(refuse bool) { s.refuse = refuse }

// Matches matches a fragment against the current sub-expansion of every
// live variant. Variants that fail are pruned as long as at least one
// succeeds; when none succeeds, the progression is left untouched. A
// successful fragment is recorded for EntireMatch and further matches are
// refused until SetNext.
func (s *SequenceRule) Matches(fragment string) (bool, error) {
	if s.refuse {
		return false, nil
	}
	matched := make(map[*sequenceVariant]string)
	for _, v := range s.variants {
		if !v.alive || s.index >= len(v.pieces) {
			continue
		}
		m, err := v.matcher(s.index, s.rule)
		if err != nil {
			return false, err
		}
		result, err := m.MatchEntire(fragment)
		if err != nil {
			return false, err
		}
		if result != nil {
			matched[v] = result.Text()
		}
	}
	if len(matched) == 0 {
		return false, nil
	}
	for _, v := range s.variants {
		text, ok := matched[v]
		if !ok {
			v.alive = false
			continue
		}
		v.matched[s.index] = true
		v.texts[s.index] = text
	}
	s.refuse = true
	return true, nil
}

// EntireMatch returns the fragments accepted for every sub-expansion of a
// live variant, joined by single spaces. Until some live variant has
// matched all of its sub-expansions it returns "" and false.
func (s *SequenceRule) EntireMatch() (string, bool) {
	for _, v := range s.variants {
		if !v.alive {
			continue
		}
		complete := true
		for i := range v.pieces {
			if !v.matched[i] {
				complete = false
				break
			}
		}
		if complete {
			return strings.Join(v.texts, " "), true
		}
	}
	return "", false
}

// RestartDictationContext resets the whole progression: the current index
// returns to the first sub-expansion, every variant is revived, match data
// is cleared, and matches are accepted again.
func (s *SequenceRule) RestartDictationContext() {
	s.index = 0
	s.refuse = false
	for _, v := range s.variants {
		v.alive = true
		for i := range v.matched {
			v.matched[i] = false
			v.texts[i] = ""
		}
	}
}

// CurrentIsDictationOnly reports whether the current sub-expansion of every
// live variant consists of dictation alone, i.e. whether an external JSGF
// decoder has nothing to recognize at this step.
func (s *SequenceRule) CurrentIsDictationOnly() bool {
	for _, v := range s.variants {
		if v.alive && s.index < len(v.pieces) && !OnlyDictationIn(v.pieces[s.index]) {
			return false
		}
	}
	return true
}

// Compile renders the current sub-expansion as a JSGF rule definition under
// the original rule name, so that an external decoder can recognize the
// dictation-free part of the current step. Refused rules and dictation-only
// steps compile to the empty string.
func (s *SequenceRule) Compile() string {
	if s.refuse || s.CurrentIsDictationOnly() {
		return ""
	}
	for _, v := range s.variants {
		if !v.alive || s.index >= len(v.pieces) {
			continue
		}
		piece := v.pieces[s.index]
		if OnlyDictationIn(piece) || DictationIn(piece) {
			continue
		}
		compiled := "<" + s.rule.Name() + "> = " + expansion.Compile(piece) + ";"
		if s.rule.Visible() {
			compiled = "public " + compiled
		}
		return compiled
	}
	return ""
}

// Tags returns the tags attached anywhere in the original rule's expansion.
func (s *SequenceRule) Tags() []string {
	var tags []string
	expansion.Walk(s.rule.Expansion(), func(n expansion.Expansion) expansion.WalkResult {
		tags = append(tags, n.Tags()...)
		return expansion.WalkChildren
	})
	return tags
}
