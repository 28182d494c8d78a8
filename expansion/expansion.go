// Package expansion defines JSGF rule expansion trees, the compiler producing
// canonical JSGF text, and the matcher testing speech strings against a tree.
package expansion

import (
	"strings"
)

// Kind identifies the variant of an expansion node.
type Kind int

const (
	LiteralKind Kind = iota
	SequenceKind
	AlternativeSetKind
	OptionalGroupingKind
	RequiredGroupingKind
	KleeneStarKind
	RepeatKind
	NamedRuleRefKind
	RuleRefKind
	NullRefKind
	VoidRefKind
	DictationKind
)

var kindNames = map[Kind]string{
	LiteralKind:          "Literal",
	SequenceKind:         "Sequence",
	AlternativeSetKind:   "AlternativeSet",
	OptionalGroupingKind: "OptionalGrouping",
	RequiredGroupingKind: "RequiredGrouping",
	KleeneStarKind:       "KleeneStar",
	RepeatKind:           "Repeat",
	NamedRuleRefKind:     "NamedRuleRef",
	RuleRefKind:          "RuleRef",
	NullRefKind:          "NullRef",
	VoidRefKind:          "VoidRef",
	DictationKind:        "Dictation",
}

// String returns the variant name, e.g. "Literal".
func (k Kind) String() string {
	return kindNames[k]
}

// ReferencedRule is implemented by rule types that expansion trees can
// reference. grammar.Rule is the canonical implementation.
type ReferencedRule interface {
	// RuleName returns the fully qualified rule name.
	RuleName() string

	// RuleExpansion returns the root expansion of the rule.
	RuleExpansion() Expansion

	// RuleCaseSensitive reports the effective case policy for literals
	// inside the rule.
	RuleCaseSensitive() bool

	// ResolveRule resolves a rule name in the scope the rule belongs to
	// (its grammar and that grammar's imports).
	ResolveRule(name string) (ReferencedRule, error)
}

// Expansion is a node of a rule expansion tree.
// Implementations live in this package only; a node belongs to at most one
// parent and parent links are maintained by the ChildList wrapper.
type Expansion interface {
	// Kind returns the node variant.
	Kind() Kind

	// Parent returns the node owning this one in its child list, or nil.
	Parent() Expansion

	// Children returns the mutable child list of the node.
	Children() *ChildList

	// Tags returns the tag strings attached to this node, in attachment order.
	Tags() []string

	// AddTag attaches a tag to this node.
	AddTag(tag string)

	// CurrentMatch returns the text this node consumed in the most recent
	// successful match, and whether the node participated in it at all.
	// Participating with an empty match (e.g. an absent optional) yields ("", true).
	CurrentMatch() (string, bool)

	// MatchSlice returns the [start, end) token slice this node consumed in
	// the most recent successful match.
	MatchSlice() (start, end int, ok bool)

	base() *header
}

// header is the state shared by every node variant.
type header struct {
	self     Expansion
	parent   Expansion
	children ChildList
	tags     []string

	matched    bool
	start, end int
	matchText  string

	// onMutate is installed on a tree root by the owning rule; mutations
	// anywhere in the tree walk up to the root and fire it.
	onMutate func()
}

func (h *header) init(self Expansion, children []Expansion) {
	h.self = self
	h.children.owner = self
	for _, c := range children {
		h.children.Append(c)
	}
}

func (h *header) Parent() Expansion    { return h.parent }
func (h *header) Children() *ChildList { return &h.children }
func (h *header) base() *header        { return h }

func (h *header) Tags() []string {
	tags := make([]string, len(h.tags))
	copy(tags, h.tags)
	return tags
}

func (h *header) AddTag(tag string) {
	h.tags = append(h.tags, tag)
	notifyMutation(h.self)
}

func (h *header) CurrentMatch() (string, bool) {
	return h.matchText, h.matched
}

func (h *header) MatchSlice() (start, end int, ok bool) {
	return h.start, h.end, h.matched
}

func (h *header) setMatch(start, end int, text string) {
	h.matched = true
	h.start, h.end = start, end
	h.matchText = text
}

func (h *header) clearMatch() {
	h.matched = false
	h.start, h.end = 0, 0
	h.matchText = ""
}

// Root returns the topmost ancestor of a node.
func Root(e Expansion) Expansion {
	for e.Parent() != nil {
		e = e.Parent()
	}
	return e
}

// SetMutationHook installs a callback fired whenever the tree rooted at e is
// structurally mutated (child edits, tag or text changes). It is used by
// rules to invalidate compiled-text and matcher caches. Passing nil removes
// the hook.
func SetMutationHook(e Expansion, hook func()) {
	e.base().onMutate = hook
}

func notifyMutation(e Expansion) {
	if e == nil {
		return
	}
	root := Root(e)
	if root.base().onMutate != nil {
		root.base().onMutate()
	}
}

// ChildList is the ordered child collection of a node. All child edits go
// through it so that parent back references never dangle. Edits that would
// make a node its own descendant panic: they are programming errors that
// would break the tree invariant.
type ChildList struct {
	owner Expansion
	items []Expansion
}

// Len returns the number of children.
func (l *ChildList) Len() int {
	return len(l.items)
}

// At returns the i-th child.
func (l *ChildList) At(i int) Expansion {
	return l.items[i]
}

// All returns a copy of the child slice.
func (l *ChildList) All() []Expansion {
	items := make([]Expansion, len(l.items))
	copy(items, l.items)
	return items
}

// Index returns the position of a child, or -1.
func (l *ChildList) Index(e Expansion) int {
	for i, c := range l.items {
		if c == e {
			return i
		}
	}
	return -1
}

// Append adds a child at the end of the list, detaching it from any previous
// parent.
func (l *ChildList) Append(e Expansion) {
	l.Insert(len(l.items), e)
}

// Insert adds a child at position i, detaching it from any previous parent.
// Re-inserting a node already in the list moves it.
func (l *ChildList) Insert(i int, e Expansion) {
	l.checkAttachable(e)
	detach(e)
	if i > len(l.items) {
		i = len(l.items)
	}
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = e
	e.base().parent = l.owner
	notifyMutation(l.owner)
}

// Remove detaches a child from the list. Returns false if e is not a child.
func (l *ChildList) Remove(e Expansion) bool {
	i := l.Index(e)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

// RemoveAt detaches and returns the i-th child.
func (l *ChildList) RemoveAt(i int) Expansion {
	e := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	e.base().parent = nil
	notifyMutation(l.owner)
	return e
}

// Replace swaps the child at position i for another node, detaching both
// from their previous positions.
func (l *ChildList) Replace(i int, e Expansion) Expansion {
	l.checkAttachable(e)
	old := l.items[i]
	if old == e {
		return old
	}
	detach(e)
	old.base().parent = nil
	l.items[i] = e
	e.base().parent = l.owner
	notifyMutation(l.owner)
	return old
}

func (l *ChildList) checkAttachable(e Expansion) {
	if e == nil {
		panic("expansion: nil child")
	}
	for a := l.owner; a != nil; a = a.Parent() {
		if a == e {
			panic("expansion: node cannot become its own descendant")
		}
	}
}

func detach(e Expansion) {
	p := e.Parent()
	if p == nil {
		return
	}
	p.Children().Remove(e)
}

// normalizeText collapses inner whitespace runs to single spaces and trims
// the ends.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Literal matches one exact whitespace separated token sequence.
type Literal struct {
	header
	text string
}

// NewLiteral creates a literal node. Whitespace in text is normalized to
// single spaces.
func NewLiteral(text string) *Literal {
	l := &Literal{text: normalizeText(text)}
	l.init(l, nil)
	return l
}

func (l *Literal) Kind() Kind { return LiteralKind }

// Text returns the normalized literal text.
func (l *Literal) Text() string { return l.text }

// SetText replaces the literal text, normalizing whitespace.
func (l *Literal) SetText(text string) {
	l.text = normalizeText(text)
	notifyMutation(l)
}

// Words returns the individual tokens of the literal.
func (l *Literal) Words() []string {
	if l.text == "" {
		return nil
	}
	return strings.Split(l.text, " ")
}

// Sequence matches its children one after another.
type Sequence struct {
	header
}

// NewSequence creates a sequence node.
func NewSequence(children ...Expansion) *Sequence {
	s := &Sequence{}
	s.init(s, children)
	return s
}

func (s *Sequence) Kind() Kind { return SequenceKind }

// AlternativeSet matches exactly one of its children. Children may carry
// non-negative weights which are preserved for compilation only.
type AlternativeSet struct {
	header
	weights map[Expansion]float64
}

// NewAlternativeSet creates an alternative set node.
func NewAlternativeSet(children ...Expansion) *AlternativeSet {
	a := &AlternativeSet{}
	a.init(a, children)
	return a
}

func (a *AlternativeSet) Kind() Kind { return AlternativeSetKind }

// SetWeight assigns a weight to a child alternative.
// Returns an error for negative weights or for nodes that are not children
// of this set.
func (a *AlternativeSet) SetWeight(child Expansion, weight float64) error {
	if weight < 0 {
		return negativeWeightError(weight)
	}
	if a.children.Index(child) < 0 {
		return notAChildError(child)
	}
	if a.weights == nil {
		a.weights = make(map[Expansion]float64)
	}
	a.weights[child] = weight
	notifyMutation(a)
	return nil
}

// Weight returns the weight assigned to a child, if any.
func (a *AlternativeSet) Weight(child Expansion) (float64, bool) {
	w, ok := a.weights[child]
	return w, ok
}

// HasWeights reports whether any alternative carries a weight.
func (a *AlternativeSet) HasWeights() bool {
	return len(a.weights) > 0
}

// OptionalGrouping matches its single child or nothing.
type OptionalGrouping struct {
	header
}

// NewOptionalGrouping creates an optional grouping node.
func NewOptionalGrouping(child Expansion) *OptionalGrouping {
	o := &OptionalGrouping{}
	o.init(o, []Expansion{child})
	return o
}

func (o *OptionalGrouping) Kind() Kind { return OptionalGroupingKind }

// Child returns the wrapped expansion.
func (o *OptionalGrouping) Child() Expansion { return o.children.At(0) }

// RequiredGrouping is a parenthesized sequence. A single-child grouping is
// preserved as a grouping because flattening it would change precedence on
// later edits.
type RequiredGrouping struct {
	header
}

// NewRequiredGrouping creates a required grouping node.
func NewRequiredGrouping(children ...Expansion) *RequiredGrouping {
	g := &RequiredGrouping{}
	g.init(g, children)
	return g
}

func (g *RequiredGrouping) Kind() Kind { return RequiredGroupingKind }

// KleeneStar matches zero or more repetitions of its single child.
type KleeneStar struct {
	header
}

// NewKleeneStar creates a Kleene star node.
func NewKleeneStar(child Expansion) *KleeneStar {
	k := &KleeneStar{}
	k.init(k, []Expansion{child})
	return k
}

func (k *KleeneStar) Kind() Kind { return KleeneStarKind }

// Child returns the repeated expansion.
func (k *KleeneStar) Child() Expansion { return k.children.At(0) }

// Repeat matches one or more repetitions of its single child and records a
// slice per repetition.
type Repeat struct {
	header
	repetitions [][2]int
}

// NewRepeat creates a one-or-more repeat node.
func NewRepeat(child Expansion) *Repeat {
	r := &Repeat{}
	r.init(r, []Expansion{child})
	return r
}

func (r *Repeat) Kind() Kind { return RepeatKind }

// Child returns the repeated expansion.
func (r *Repeat) Child() Expansion { return r.children.At(0) }

// RepetitionSlices returns the [start, end) token slice of each repetition
// of the most recent successful match, in input order.
func (r *Repeat) RepetitionSlices() [][2]int {
	slices := make([][2]int, len(r.repetitions))
	copy(slices, r.repetitions)
	return slices
}

// NamedRuleRef references a rule by name, resolved lazily against the
// grammar of the rule the reference appears in.
type NamedRuleRef struct {
	header
	name string
}

// NewNamedRuleRef creates a reference to the named rule.
func NewNamedRuleRef(name string) *NamedRuleRef {
	n := &NamedRuleRef{name: name}
	n.init(n, nil)
	return n
}

func (n *NamedRuleRef) Kind() Kind { return NamedRuleRefKind }

// Name returns the referenced rule name.
func (n *NamedRuleRef) Name() string { return n.name }

// RuleRef references a rule object directly.
type RuleRef struct {
	header
	rule ReferencedRule
}

// NewRuleRef creates a direct reference to a rule.
func NewRuleRef(rule ReferencedRule) *RuleRef {
	r := &RuleRef{rule: rule}
	r.init(r, nil)
	return r
}

func (r *RuleRef) Kind() Kind { return RuleRefKind }

// Rule returns the referenced rule.
func (r *RuleRef) Rule() ReferencedRule { return r.rule }

// NullRef compiles to <NULL> and matches the empty string.
type NullRef struct {
	header
}

// NewNullRef creates a null reference node.
func NewNullRef() *NullRef {
	n := &NullRef{}
	n.init(n, nil)
	return n
}

func (n *NullRef) Kind() Kind { return NullRefKind }

// VoidRef compiles to <VOID> and never matches.
type VoidRef struct {
	header
}

// NewVoidRef creates a void reference node.
func NewVoidRef() *VoidRef {
	v := &VoidRef{}
	v.init(v, nil)
	return v
}

func (v *VoidRef) Kind() Kind { return VoidRefKind }

// Dictation matches one or more arbitrary tokens supplied by an external
// language model. It compiles to <DICTATION>, which is not part of standard
// JSGF; see the ext package for splitting rules at dictation boundaries.
type Dictation struct {
	header
}

// NewDictation creates a dictation node.
func NewDictation() *Dictation {
	d := &Dictation{}
	d.init(d, nil)
	return d
}

func (d *Dictation) Kind() Kind { return DictationKind }

// IsOptional reports whether a node has an OptionalGrouping or KleeneStar
// ancestor, i.e. whether the input may omit it entirely.
func IsOptional(e Expansion) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == OptionalGroupingKind || p.Kind() == KleeneStarKind {
			return true
		}
	}
	return false
}

// IsAlternative reports whether a node has an AlternativeSet ancestor with
// more than one child.
func IsAlternative(e Expansion) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == AlternativeSetKind && p.Children().Len() > 1 {
			return true
		}
	}
	return false
}

// Leaves returns the childless descendants of a node in document order.
func Leaves(e Expansion) []Expansion {
	var leaves []Expansion
	Walk(e, func(n Expansion) WalkResult {
		if n.Children().Len() == 0 {
			leaves = append(leaves, n)
		}
		return WalkChildren
	})
	return leaves
}
