// Package ext extends JSGF grammars with dictation: rules that mix fixed
// phrases with arbitrary free speech supplied by an external language
// model. Rules containing dictation are split at dictation boundaries into
// sequences of sub-expansions matched incrementally against utterance
// fragments, while the dictation-free parts still compile to pure JSGF for
// an external decoder.
package ext

import (
	"github.com/drmfinlay/jsgf/expansion"
)

// ExpansionLimit caps the number of trees ExpandDictation may enumerate.
// Each optional construct wrapping dictation doubles the variant count, so
// the enumeration is exponential in their number; in practice that number
// is tiny.
var ExpansionLimit = 32

// DictationIn reports whether a tree contains a dictation expansion.
// Rule references are not searched.
func DictationIn(e expansion.Expansion) bool {
	return expansion.Find(e, func(n expansion.Expansion) bool {
		return n.Kind() == expansion.DictationKind
	}) != nil
}

// OnlyDictationIn reports whether a tree contains dictation and no other
// leaf expansions.
func OnlyDictationIn(e expansion.Expansion) bool {
	dictation := false
	for _, leaf := range expansion.Leaves(e) {
		if leaf.Kind() == expansion.DictationKind {
			dictation = true
		} else {
			return false
		}
	}
	return dictation
}

// ExpandDictation enumerates the trees arising from the present/absent
// choice of every optional construct containing dictation, and from
// splitting alternative sets that mix dictation and dictation-free
// branches. The input tree is not modified. Enumerating more than
// ExpansionLimit variants is an error; the limit counts every enumerated
// variant, and structurally equal variants are returned once.
func ExpandDictation(e expansion.Expansion) ([]expansion.Expansion, error) {
	trees, err := expand(expansion.Copy(e))
	if err != nil {
		return nil, err
	}
	var results []expansion.Expansion
	for _, t := range trees {
		if !containsEqual(results, t) {
			results = append(results, t)
		}
	}
	return results, nil
}

func expand(root expansion.Expansion) ([]expansion.Expansion, error) {
	current := firstUnprocessed(root)
	if current == nil {
		return []expansion.Expansion{root}, nil
	}
	where := pathOf(current)

	var variants []expansion.Expansion
	switch n := current.(type) {
	case *expansion.AlternativeSet:
		var plain, dictation []expansion.Expansion
		for _, c := range n.Children().All() {
			if DictationIn(c) {
				dictation = append(dictation, expansion.Copy(c))
			} else {
				plain = append(plain, expansion.Copy(c))
			}
		}
		var replacements []expansion.Expansion
		switch {
		case len(plain) == 1:
			replacements = plain
		case len(plain) > 1:
			replacements = []expansion.Expansion{expansion.NewAlternativeSet(plain...)}
		}
		replacements = append(replacements, dictation...)
		for _, repl := range replacements {
			variants = append(variants, substitute(root, where, repl))
		}

	case *expansion.OptionalGrouping:
		if absent := remove(root, where); absent != nil {
			variants = append(variants, absent)
		}
		variants = append(variants, substitute(root, where, expansion.Copy(n.Child())))

	case *expansion.KleeneStar:
		if absent := remove(root, where); absent != nil {
			variants = append(variants, absent)
		}
		variants = append(variants,
			substitute(root, where, expansion.NewRepeat(expansion.Copy(n.Child()))))
	}

	var results []expansion.Expansion
	for _, v := range variants {
		expanded, err := expand(v)
		if err != nil {
			return nil, err
		}
		results = append(results, expanded...)
		if len(results) > ExpansionLimit {
			return nil, expansionLimitError(len(results))
		}
	}
	return results, nil
}

func containsEqual(trees []expansion.Expansion, e expansion.Expansion) bool {
	for _, t := range trees {
		if expansion.Equal(t, e) {
			return true
		}
	}
	return false
}

// firstUnprocessed finds, in post order, the first node ExpandDictation
// still has to take apart: an alternative set mixing dictation and
// dictation-free branches (or holding several dictation branches), or an
// optional construct that either contains dictation or shares a sequence
// with it.
func firstUnprocessed(e expansion.Expansion) expansion.Expansion {
	for _, c := range e.Children().All() {
		if r := firstUnprocessed(c); r != nil {
			return r
		}
	}
	if isUnprocessed(e) {
		return e
	}
	return nil
}

func isUnprocessed(e expansion.Expansion) bool {
	switch n := e.(type) {
	case *expansion.AlternativeSet:
		plain := false
		dictation := 0
		for _, c := range n.Children().All() {
			if DictationIn(c) {
				dictation++
			} else {
				plain = true
			}
			if (plain && dictation > 0) || dictation > 1 {
				return true
			}
		}
	case *expansion.OptionalGrouping, *expansion.KleeneStar:
		if DictationIn(e) {
			return true
		}
		// A dictation-free optional still needs a present/absent split when
		// the sequence it belongs to contains dictation elsewhere: the
		// split keeps every sub-expansion either free of dictation or
		// anchored around it.
		p := e
		for p.Parent() != nil && p.Kind() != expansion.SequenceKind {
			p = p.Parent()
		}
		return p.Kind() == expansion.SequenceKind && DictationIn(p)
	}
	return false
}

// pathOf returns child indexes leading from the root to a node.
func pathOf(e expansion.Expansion) []int {
	var path []int
	for p := e.Parent(); p != nil; e, p = p, p.Parent() {
		path = append([]int{p.Children().Index(e)}, path...)
	}
	return path
}

func nodeAt(root expansion.Expansion, path []int) expansion.Expansion {
	for _, i := range path {
		root = root.Children().At(i)
	}
	return root
}

// substitute copies the tree and replaces the node at the given path with
// a replacement subtree.
func substitute(root expansion.Expansion, path []int, repl expansion.Expansion) expansion.Expansion {
	if len(path) == 0 {
		return repl
	}
	c := expansion.Copy(root)
	node := nodeAt(c, path)
	parent := node.Parent()
	parent.Children().Replace(parent.Children().Index(node), repl)
	return c
}

// remove copies the tree and deletes the node at the given path, together
// with any single-child ancestors left holding nothing. Returns nil when
// the removal would empty the whole tree.
func remove(root expansion.Expansion, path []int) expansion.Expansion {
	c := expansion.Copy(root)
	node := nodeAt(c, path)
	for node.Parent() != nil && node.Parent().Children().Len() == 1 {
		node = node.Parent()
	}
	if node.Parent() == nil {
		return nil
	}
	node.Parent().Children().Remove(node)
	return c
}

// SplitAtDictation splits a tree into an ordered list of sub-expansions:
// each run of dictation-free expansion becomes one piece and each dictation
// (wrapped in copies of its ancestor chain, so that the structure around it
// survives) becomes another. Trees without dictation yield one piece. The
// input tree is consumed: its nodes are re-parented into the pieces.
//
// The tree must have been processed by ExpandDictation first, so that no
// optional construct contains dictation.
func SplitAtDictation(e expansion.Expansion) []expansion.Expansion {
	if e.Kind() == expansion.DictationKind {
		return []expansion.Expansion{wrapInAncestorChain(e)}
	}
	if e.Children().Len() == 0 {
		return []expansion.Expansion{e}
	}

	var result, group []expansion.Expansion
	flush := func() {
		if len(group) == 0 {
			return
		}
		result = append(result, rewrap(e, group))
		group = nil
	}

	for _, c := range e.Children().All() {
		pieces := SplitAtDictation(c)
		for _, piece := range pieces {
			switch {
			case OnlyDictationIn(piece):
				flush()
				result = append(result, piece)
			case !DictationIn(piece):
				group = append(group, piece)
			default:
				flush()
				result = append(result, piece)
			}
		}
	}
	flush()
	return result
}

// wrapInAncestorChain rebuilds the ancestor chain of a dictation node
// around a copy of it, bottom up.
func wrapInAncestorChain(d expansion.Expansion) expansion.Expansion {
	e := expansion.Copy(d)
	for p := d.Parent(); p != nil; p = p.Parent() {
		e = rewrap(p, []expansion.Expansion{e})
	}
	return e
}

// rewrap creates a node of the same variant as template holding the given
// children.
func rewrap(template expansion.Expansion, children []expansion.Expansion) expansion.Expansion {
	for _, c := range children {
		detachFromParent(c)
	}
	switch template.Kind() {
	case expansion.SequenceKind:
		return expansion.NewSequence(children...)
	case expansion.RequiredGroupingKind:
		return expansion.NewRequiredGrouping(children...)
	case expansion.AlternativeSetKind:
		return expansion.NewAlternativeSet(children...)
	case expansion.OptionalGroupingKind:
		return expansion.NewOptionalGrouping(children[0])
	case expansion.KleeneStarKind:
		return expansion.NewKleeneStar(children[0])
	case expansion.RepeatKind:
		return expansion.NewRepeat(children[0])
	}
	panic("ext: cannot rewrap a leaf expansion")
}

func detachFromParent(e expansion.Expansion) {
	if p := e.Parent(); p != nil {
		p.Children().Remove(e)
	}
}
