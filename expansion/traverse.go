package expansion

// WalkResult tells Walk how to proceed after visiting a node.
type WalkResult int

const (
	// WalkChildren continues into the visited node's children.
	WalkChildren WalkResult = iota
	// SkipChildren continues with the next sibling.
	SkipChildren
	// StopWalk aborts the traversal.
	StopWalk
)

// Visitor is called for each node during a Walk.
type Visitor func(e Expansion) WalkResult

// Walk traverses a tree depth first in pre-order.
func Walk(e Expansion, visit Visitor) {
	walk(e, visit)
}

func walk(e Expansion, visit Visitor) WalkResult {
	switch visit(e) {
	case StopWalk:
		return StopWalk
	case SkipChildren:
		return WalkChildren
	}
	for _, c := range e.Children().All() {
		if walk(c, visit) == StopWalk {
			return StopWalk
		}
	}
	return WalkChildren
}

// Filter returns every node of the tree for which pred is true, in
// pre-order.
func Filter(e Expansion, pred func(Expansion) bool) []Expansion {
	var result []Expansion
	Walk(e, func(n Expansion) WalkResult {
		if pred(n) {
			result = append(result, n)
		}
		return WalkChildren
	})
	return result
}

// Find returns the first node of the tree for which pred is true, in
// pre-order, or nil.
func Find(e Expansion, pred func(Expansion) bool) Expansion {
	var result Expansion
	Walk(e, func(n Expansion) WalkResult {
		if pred(n) {
			result = n
			return StopWalk
		}
		return WalkChildren
	})
	return result
}

// ReplaceSubtree substitutes the subtree rooted at old with the subtree
// rooted at repl, preserving parent linkage. If old is a root, the call is
// a no-op on linkage and repl simply becomes a standalone tree; the new
// root is returned in either case.
func ReplaceSubtree(old, repl Expansion) Expansion {
	p := old.Parent()
	if p == nil {
		detach(repl)
		return repl
	}
	p.Children().Replace(p.Children().Index(old), repl)
	return repl
}

// Copy returns a deep copy of a tree. Match state is not copied; tags and
// weights are.
func Copy(e Expansion) Expansion {
	var c Expansion
	switch n := e.(type) {
	case *Literal:
		c = NewLiteral(n.text)
	case *Sequence:
		c = NewSequence(copyChildren(n)...)
	case *AlternativeSet:
		set := NewAlternativeSet()
		for _, child := range n.Children().All() {
			cc := Copy(child)
			set.Children().Append(cc)
			if w, ok := n.Weight(child); ok {
				set.SetWeight(cc, w)
			}
		}
		c = set
	case *OptionalGrouping:
		c = NewOptionalGrouping(Copy(n.Child()))
	case *RequiredGrouping:
		c = NewRequiredGrouping(copyChildren(n)...)
	case *KleeneStar:
		c = NewKleeneStar(Copy(n.Child()))
	case *Repeat:
		c = NewRepeat(Copy(n.Child()))
	case *NamedRuleRef:
		c = NewNamedRuleRef(n.name)
	case *RuleRef:
		c = NewRuleRef(n.rule)
	case *NullRef:
		c = NewNullRef()
	case *VoidRef:
		c = NewVoidRef()
	case *Dictation:
		c = NewDictation()
	default:
		panic("expansion: unknown node variant")
	}
	c.base().tags = append([]string(nil), e.base().tags...)
	return c
}

func copyChildren(e Expansion) []Expansion {
	children := e.Children().All()
	copies := make([]Expansion, len(children))
	for i, c := range children {
		copies[i] = Copy(c)
	}
	return copies
}

// Equal reports structural equality of two trees: same variants, same
// variant data, same tags, equal children in order. Rule references are
// compared by referenced name; match state is ignored.
func Equal(a, b Expansion) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if !equalStrings(a.base().tags, b.base().tags) {
		return false
	}
	switch an := a.(type) {
	case *Literal:
		if an.text != b.(*Literal).text {
			return false
		}
	case *NamedRuleRef:
		if an.name != b.(*NamedRuleRef).name {
			return false
		}
	case *RuleRef:
		bn := b.(*RuleRef)
		if (an.rule == nil) != (bn.rule == nil) {
			return false
		}
		if an.rule != nil && an.rule.RuleName() != bn.rule.RuleName() {
			return false
		}
	case *AlternativeSet:
		bn := b.(*AlternativeSet)
		if an.Children().Len() != bn.Children().Len() {
			return false
		}
		for i, c := range an.Children().All() {
			aw, aok := an.Weight(c)
			bw, bok := bn.Weight(bn.Children().At(i))
			if aok != bok || aw != bw {
				return false
			}
		}
	}
	ac, bc := a.Children(), b.Children()
	if ac.Len() != bc.Len() {
		return false
	}
	for i := 0; i < ac.Len(); i++ {
		if !Equal(ac.At(i), bc.At(i)) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
