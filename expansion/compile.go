package expansion

import (
	"strconv"
	"strings"
)

// Compile renders a tree as canonical JSGF text. The output is a pure
// function of the tree: atoms bind tighter than the unary repeat operators,
// repeats tighter than sequences, sequences tighter than alternations, and
// parentheses are emitted exactly where a looser construct appears in a
// tighter position. Tags are appended as " { tag }" after the node they are
// attached to.
func Compile(e Expansion) string {
	return compileNode(e, altContext)
}

// Compilation context: the loosest construct that may appear bare.
type compileContext int

const (
	altContext  compileContext = iota // rule right-hand side, grouping bodies
	seqContext                        // sequence children
	atomContext                       // repeat operands
)

func compileNode(e Expansion, ctx compileContext) string {
	var s string
	switch n := e.(type) {
	case *Literal:
		s = n.text
		if ctx == atomContext && len(n.Words()) > 1 {
			s = "(" + s + ")"
		}
	case *Sequence:
		parts := make([]string, 0, n.Children().Len())
		for _, c := range n.Children().All() {
			parts = append(parts, compileNode(c, seqContext))
		}
		s = strings.Join(parts, " ")
		if ctx == atomContext {
			s = "(" + s + ")"
		}
	case *AlternativeSet:
		parts := make([]string, 0, n.Children().Len())
		for _, c := range n.Children().All() {
			alt := compileNode(c, seqContext)
			if n.HasWeights() {
				w, ok := n.Weight(c)
				if !ok {
					w = 1
				}
				alt = "/" + strconv.FormatFloat(w, 'g', -1, 64) + "/ " + alt
			}
			parts = append(parts, alt)
		}
		s = strings.Join(parts, " | ")
		if ctx != altContext {
			s = "(" + s + ")"
		}
	case *OptionalGrouping:
		s = "[" + compileNode(n.Child(), altContext) + "]"
	case *RequiredGrouping:
		parts := make([]string, 0, n.Children().Len())
		for _, c := range n.Children().All() {
			parts = append(parts, compileNode(c, seqContext))
		}
		s = "(" + strings.Join(parts, " ") + ")"
	case *KleeneStar:
		s = compileNode(n.Child(), atomContext) + "*"
	case *Repeat:
		s = compileNode(n.Child(), atomContext) + "+"
	case *NamedRuleRef:
		s = "<" + n.name + ">"
	case *RuleRef:
		if n.rule == nil {
			// A reference without a rule can never match, like <VOID>.
			s = "<VOID>"
		} else {
			s = "<" + n.rule.RuleName() + ">"
		}
	case *NullRef:
		s = "<NULL>"
	case *VoidRef:
		s = "<VOID>"
	case *Dictation:
		s = "<DICTATION>"
	default:
		panic("expansion: unknown node variant")
	}
	for _, tag := range e.base().tags {
		s += " { " + escapeTag(tag) + " }"
	}
	return s
}

// escapeTag escapes backslashes and braces so that tag text survives a
// parse round trip, as suggested by the JSGF specification.
func escapeTag(tag string) string {
	tag = strings.ReplaceAll(tag, `\`, `\\`)
	tag = strings.ReplaceAll(tag, `{`, `\{`)
	tag = strings.ReplaceAll(tag, `}`, `\}`)
	return tag
}
