package expansion

import (
	"strings"
)

// Options configure a Matcher built from a bare expansion tree.
type Options struct {
	// CaseSensitive selects exact literal comparison instead of the default
	// case insensitive comparison.
	CaseSensitive bool

	// Resolver resolves named rule references appearing in the tree.
	// Trees belonging to a rule in a grammar resolve through the rule
	// instead; see NewRuleMatcher.
	Resolver func(name string) (ReferencedRule, error)
}

// Matcher is the compiled recognizer form of an expansion tree. It matches
// whitespace separated token strings, stamping on every node that takes
// part in the successful parse the [start, end) slice of input the node
// consumed, so that per-node matches and tags can be inspected after a
// successful run.
//
// Matching is prefix anchored: a successful match may leave trailing input
// tokens unconsumed, and the caller decides whether that is acceptable.
// The matcher is a greedy backtracker. Alternatives are tried in
// declaration order and the first overall success wins; repetitions consume
// greedily and retreat one repetition at a time. Matching time is
// proportional to input length times tree size for typical grammars, but
// pathological grammars with nested unbounded repetition can force
// exponential backtracking.
//
// A Matcher holds compiled state for referenced rules and is not safe for
// concurrent use.
type Matcher struct {
	root     Expansion
	elem     *element
	bindings map[string]*ruleBinding
}

type ruleBinding struct {
	rule ReferencedRule
	root Expansion
	elem *element
}

// Result describes a successful match.
type Result struct {
	// Tokens holds the tokenized input.
	Tokens []string

	// End is the number of input tokens consumed; Tokens[End:] is the
	// unconsumed tail.
	End int

	// Tags holds the tags of every matched node, in document order.
	Tags []string
}

// Text returns the consumed part of the input.
func (r *Result) Text() string {
	return strings.Join(r.Tokens[:r.End], " ")
}

// Tail returns the unconsumed part of the input.
func (r *Result) Tail() string {
	return strings.Join(r.Tokens[r.End:], " ")
}

// NewMatcher compiles a bare expansion tree into a Matcher.
func NewMatcher(root Expansion, opts Options) (*Matcher, error) {
	m := &Matcher{root: root, bindings: make(map[string]*ruleBinding)}
	m.elem = m.build(root, !opts.CaseSensitive, opts.Resolver)
	return m, nil
}

// NewRuleMatcher compiles the expansion of a rule into a Matcher, using the
// rule's case policy and resolving named references in the rule's scope.
// Returns LeftRecursionError if the rule references itself before any token
// could be consumed.
func NewRuleMatcher(rule ReferencedRule) (*Matcher, error) {
	if leftRecursive(rule.RuleExpansion(), rule.RuleName()) {
		return nil, leftRecursionError(rule.RuleName())
	}
	m := &Matcher{root: rule.RuleExpansion(), bindings: make(map[string]*ruleBinding)}
	m.elem = m.build(m.root, !rule.RuleCaseSensitive(), rule.ResolveRule)
	return m, nil
}

// Match runs the matcher against a prefix of a speech string. It returns
// nil and no error when the input does not match; an error is returned only
// when a rule reference cannot be resolved.
func (m *Matcher) Match(speech string) (*Result, error) {
	return m.run(speech, false)
}

// MatchEntire runs the matcher requiring the whole input to be consumed.
// Unlike checking Result.End after a prefix match, this backtracks into
// shorter-or-longer parses until one covers every token.
func (m *Matcher) MatchEntire(speech string) (*Result, error) {
	return m.run(speech, true)
}

func (m *Matcher) run(speech string, entire bool) (*Result, error) {
	tokens := strings.Fields(speech)
	folded := make([]string, len(tokens))
	for i, t := range tokens {
		folded[i] = strings.ToLower(t)
	}

	resetMatchState(m.root)
	for _, b := range m.bindings {
		resetMatchState(b.root)
	}

	c := &matchCtx{m: m, tokens: tokens, folded: folded, active: make(map[activeKey]bool)}
	end := -1
	ok := m.elem.match(c, 0, func(e int) bool {
		if entire && e != len(tokens) {
			return false
		}
		end = e
		return true
	})
	if c.err != nil {
		return nil, c.err
	}
	if !ok {
		return nil, nil
	}

	result := &Result{Tokens: tokens, End: end}
	collectTags(m.elem, &result.Tags, make(map[*element]bool))
	return result, nil
}

func resetMatchState(e Expansion) {
	Walk(e, func(n Expansion) WalkResult {
		n.base().clearMatch()
		if rep, is := n.(*Repeat); is {
			rep.repetitions = nil
		}
		return WalkChildren
	})
}

// collectTags walks matched elements in document order. Recursive rule
// references share bindings, so elements already being walked are skipped.
func collectTags(el *element, tags *[]string, seen map[*element]bool) {
	if seen[el] {
		return
	}
	seen[el] = true
	if _, ok := el.node.CurrentMatch(); !ok {
		return
	}
	*tags = append(*tags, el.node.base().tags...)
	if el.binding != nil {
		collectTags(el.binding.elem, tags, seen)
	}
	for _, sub := range el.sub {
		collectTags(sub, tags, seen)
	}
}

type matchCtx struct {
	m      *Matcher
	tokens []string
	folded []string
	active map[activeKey]bool
	err    error
}

type activeKey struct {
	rule string
	pos  int
}

// cont is the continuation invoked with each candidate end position; it
// returns true when the rest of the match succeeds from there.
type cont func(end int) bool

// element is one node of the compiled recognizer tree.
type element struct {
	node Expansion
	kind Kind
	sub  []*element

	// literal
	words []string
	fold  bool

	// dictation
	anchors    map[string]bool
	singleWord bool

	// rule references
	refName string
	resolve func(name string) (ReferencedRule, error)
	binding *ruleBinding
}

func (m *Matcher) build(e Expansion, fold bool, resolve func(string) (ReferencedRule, error)) *element {
	el := &element{node: e, kind: e.Kind(), fold: fold, resolve: resolve}
	switch n := e.(type) {
	case *Literal:
		el.words = n.Words()
		if fold {
			for i, w := range el.words {
				el.words[i] = strings.ToLower(w)
			}
		}
	case *NamedRuleRef:
		el.refName = n.name
	case *RuleRef:
		if n.rule != nil {
			el.refName = n.rule.RuleName()
		}
	case *Dictation:
		anchors, singleWord := dictationAnchors(e)
		el.singleWord = singleWord
		el.anchors = make(map[string]bool, len(anchors))
		for _, a := range anchors {
			if fold {
				a = strings.ToLower(a)
			}
			el.anchors[a] = true
		}
	}
	for _, c := range e.Children().All() {
		el.sub = append(el.sub, m.build(c, fold, resolve))
	}
	return el
}

// match tries the element at pos and calls k with candidate end positions.
// The node's slice is stamped once the continuation reports overall success.
func (el *element) match(c *matchCtx, pos int, k cont) bool {
	if c.err != nil {
		return false
	}
	return el.matchInner(c, pos, func(end int) bool {
		if !k(end) {
			return false
		}
		el.node.base().setMatch(pos, end, strings.Join(c.tokens[pos:end], " "))
		return true
	})
}

func (el *element) matchInner(c *matchCtx, pos int, k cont) bool {
	switch el.kind {
	case LiteralKind:
		end := pos + len(el.words)
		if end > len(c.tokens) {
			return false
		}
		for i, w := range el.words {
			tok := c.tokens[pos+i]
			if el.fold {
				tok = c.folded[pos+i]
			}
			if tok != w {
				return false
			}
		}
		return k(end)

	case SequenceKind, RequiredGroupingKind:
		var step func(i, p int) bool
		step = func(i, p int) bool {
			if i == len(el.sub) {
				return k(p)
			}
			return el.sub[i].match(c, p, func(end int) bool {
				return step(i+1, end)
			})
		}
		return step(0, pos)

	case AlternativeSetKind:
		for _, alt := range el.sub {
			if alt.match(c, pos, k) {
				return true
			}
		}
		return false

	case OptionalGroupingKind:
		if el.sub[0].match(c, pos, k) {
			return true
		}
		return k(pos)

	case KleeneStarKind:
		return el.matchRepetitions(c, pos, 0, k)

	case RepeatKind:
		return el.matchRepetitions(c, pos, 1, k)

	case NullRefKind:
		return k(pos)

	case VoidRefKind:
		return false

	case DictationKind:
		return el.matchDictation(c, pos, k)

	case NamedRuleRefKind, RuleRefKind:
		return el.matchRuleRef(c, pos, k)
	}
	return false
}

// matchRepetitions consumes child repetitions greedily, retreating one
// repetition at a time when the continuation fails. Empty repetitions are
// refused so that nullable children cannot loop forever.
func (el *element) matchRepetitions(c *matchCtx, pos, min int, k cont) bool {
	child := el.sub[0]
	var iterations [][2]int
	var rec func(p, count int) bool
	rec = func(p, count int) bool {
		ok := child.match(c, p, func(end int) bool {
			if end == p {
				return false
			}
			if !rec(end, count+1) {
				return false
			}
			iterations = append(iterations, [2]int{p, end})
			return true
		})
		if ok {
			return true
		}
		if count >= min {
			return k(p)
		}
		return false
	}
	if !rec(pos, 0) {
		return false
	}
	if rep, is := el.node.(*Repeat); is {
		// iterations were collected while unwinding, i.e. last first
		for i, j := 0, len(iterations)-1; i < j; i, j = i+1, j-1 {
			iterations[i], iterations[j] = iterations[j], iterations[i]
		}
		rep.repetitions = iterations
	}
	return true
}

// matchDictation consumes one or more arbitrary tokens. It is greedy up to
// the next anchor: the compiled set of first words that the expansions
// following the dictation can start with. With no anchors ahead it prefers
// all remaining tokens. Either way it backs off token by token, and as a
// last resort consumes past an anchor, before failing.
func (el *element) matchDictation(c *matchCtx, pos int, k cont) bool {
	n := len(c.tokens)
	if pos >= n {
		return false
	}
	if el.singleWord {
		return k(pos + 1)
	}
	limit := n
	if len(el.anchors) > 0 {
		for j := pos; j < n; j++ {
			tok := c.tokens[j]
			if el.fold {
				tok = c.folded[j]
			}
			if el.anchors[tok] {
				limit = j
				break
			}
		}
	}
	for end := limit; end > pos; end-- {
		if k(end) {
			return true
		}
	}
	for end := limit + 1; end <= n; end++ {
		if k(end) {
			return true
		}
	}
	return false
}

// matchRuleRef matches the referenced rule's expansion in place, so that
// the referencing node records its own slice around it. A rule cannot
// re-enter itself at the same input position: that bounds indirect
// recursion by input length.
func (el *element) matchRuleRef(c *matchCtx, pos int, k cont) bool {
	b, err := el.ruleBinding(c.m)
	if err != nil {
		c.err = err
		return false
	}
	key := activeKey{rule: b.rule.RuleName(), pos: pos}
	if c.active[key] {
		return false
	}
	c.active[key] = true
	ok := b.elem.match(c, pos, k)
	delete(c.active, key)
	return ok
}

func (el *element) ruleBinding(m *Matcher) (*ruleBinding, error) {
	var rule ReferencedRule
	switch n := el.node.(type) {
	case *RuleRef:
		if n.rule == nil {
			return nil, nilRuleError()
		}
		rule = n.rule
	case *NamedRuleRef:
		if el.resolve == nil {
			return nil, noResolverError(el.refName)
		}
		r, err := el.resolve(el.refName)
		if err != nil {
			return nil, unresolvedRuleError(el.refName, err)
		}
		if r == nil {
			return nil, unresolvedRuleError(el.refName, nil)
		}
		rule = r
	}

	b := m.bindings[rule.RuleName()]
	if b == nil || b.root != rule.RuleExpansion() {
		b = &ruleBinding{rule: rule, root: rule.RuleExpansion()}
		m.bindings[rule.RuleName()] = b
		b.elem = m.build(b.root, !rule.RuleCaseSensitive(), rule.ResolveRule)
		resetMatchState(b.root)
	}
	el.binding = b
	return b, nil
}

// leftRecursive reports whether an expansion can reference the named rule
// before consuming any input token.
func leftRecursive(e Expansion, name string) bool {
	refs, _ := leftmostRefs(e)
	for _, r := range refs {
		if r == name {
			return true
		}
	}
	return false
}

// leftmostRefs collects the rule names reachable at the left edge of an
// expansion and reports whether the expansion can match empty input.
func leftmostRefs(e Expansion) (refs []string, nullable bool) {
	switch n := e.(type) {
	case *Literal:
		return nil, n.text == ""
	case *Dictation:
		return nil, false
	case *NullRef:
		return nil, true
	case *VoidRef:
		return nil, false
	case *NamedRuleRef:
		return []string{n.name}, false
	case *RuleRef:
		if n.rule == nil {
			return nil, false
		}
		return []string{n.rule.RuleName()}, false
	case *OptionalGrouping, *KleeneStar:
		refs, _ = leftmostRefs(e.Children().At(0))
		return refs, true
	case *Repeat:
		return leftmostRefs(n.Child())
	case *AlternativeSet:
		for _, c := range e.Children().All() {
			r, null := leftmostRefs(c)
			refs = append(refs, r...)
			nullable = nullable || null
		}
		return refs, nullable
	default: // Sequence, RequiredGrouping
		nullable = true
		for _, c := range e.Children().All() {
			r, null := leftmostRefs(c)
			refs = append(refs, r...)
			if !null {
				return refs, false
			}
		}
		return refs, nullable
	}
}

// dictationAnchors walks the tree context of a dictation node and collects
// the first words of the literals that can immediately follow it. A
// following dictation caps this one at a single word. Reaching the root
// without finding a required literal leaves the dictation unbounded.
func dictationAnchors(d Expansion) (anchors []string, singleWord bool) {
	node := d
	for p := d.Parent(); p != nil; node, p = p, p.Parent() {
		switch p.Kind() {
		case SequenceKind, RequiredGroupingKind:
			idx := p.Children().Index(node)
			for _, sib := range p.Children().All()[idx+1:] {
				words, dict, required := firstWords(sib)
				anchors = append(anchors, words...)
				singleWord = singleWord || dict
				if required {
					return anchors, singleWord
				}
			}
		case RepeatKind, KleeneStarKind:
			// A further repetition can follow the dictation, so the left
			// edge of the repeated subtree is a possible anchor too.
			words, dict, _ := firstWords(p.Children().At(0))
			anchors = append(anchors, words...)
			singleWord = singleWord || dict
		}
	}
	return anchors, singleWord
}

// firstWords collects the first word of each literal at the left edge of an
// expansion: the words the input can start with when matching it. required
// reports whether the expansion must consume a token, i.e. whether anchor
// collection can stop here. Every alternative of an AlternativeSet
// contributes its first words; the set is required only when all of them
// are.
func firstWords(e Expansion) (words []string, dictation, required bool) {
	switch n := e.(type) {
	case *Literal:
		w := n.Words()
		if len(w) == 0 {
			return nil, false, false
		}
		return []string{w[0]}, false, true
	case *Dictation:
		return nil, true, true
	case *OptionalGrouping, *KleeneStar:
		words, dictation, _ = firstWords(e.Children().At(0))
		return words, dictation, false
	case *Repeat:
		return firstWords(n.Child())
	case *AlternativeSet:
		required = e.Children().Len() > 0
		for _, c := range e.Children().All() {
			w, d, r := firstWords(c)
			words = append(words, w...)
			dictation = dictation || d
			required = required && r
		}
		return words, dictation, required
	case *Sequence, *RequiredGrouping:
		for _, c := range e.Children().All() {
			w, d, r := firstWords(c)
			words = append(words, w...)
			dictation = dictation || d
			if r {
				return words, dictation, true
			}
		}
		return words, dictation, false
	default:
		// NullRef matches empty; VoidRef and rule references are not
		// searched.
		return nil, false, false
	}
}
