// Package parser converts JSGF text to grammars, rules, and expansion
// trees.
//
// The accepted syntax is W3C JSGF 1.0: an optional "#JSGF V1.0 UTF-8 en;"
// header, a "grammar <name>;" declaration, zero or more import statements,
// and rule definitions of the form "public <name> = expansion;". Line
// comments ("//") and block comments ("/* */") are skipped. When the header
// is missing, the defaults V1.0, UTF-8, en apply.
//
// The unary operators "*" and "+" and tag attachment bind to the
// immediately preceding atom, never to a whole sequence. Adjacent plain
// words coalesce into one multi-word literal. Parentheses containing
// alternatives parse to the alternative set itself; any other parenthesized
// content parses to a required grouping, preserved even for a single child.
// The special references <NULL>, <VOID>, and <DICTATION> parse to their
// dedicated node variants.
package parser

import (
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/drmfinlay/jsgf/expansion"
	"github.com/drmfinlay/jsgf/grammar"
)

var jsgfLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Comment", Pattern: `//[^\n]*|/\*(?s:.*?)\*/`},
	{Name: "Header", Pattern: `#JSGF`},
	{Name: "Weight", Pattern: `/(?:\d+(?:\.\d+)?|\.\d+)/`},
	{Name: "Tag", Pattern: `\{(?:\\.|[^{}\\])*\}`},
	{Name: "Reference", Pattern: `<[^<>]*>`},
	{Name: "Word", Pattern: `[\p{L}\p{N}_][\p{L}\p{N}_'.\-]*`},
	{Name: "Punct", Pattern: `[()\[\]|*+;=]`},
})

type grammarAST struct {
	Header  *headerAST   `parser:"@@?"`
	Name    string       `parser:"'grammar' @Word ';'"`
	Imports []*importAST `parser:"@@*"`
	Rules   []*ruleAST   `parser:"@@+"`
}

type headerAST struct {
	Version  string  `parser:"Header @Word"`
	Charset  *string `parser:"@Word?"`
	Language *string `parser:"@Word? ';'"`
}

type importAST struct {
	Name string `parser:"'import' @Reference ';'"`
}

type ruleAST struct {
	Public bool     `parser:"@'public'?"`
	Name   string   `parser:"@Reference '='"`
	Body   *altsAST `parser:"@@ ';'"`
}

type altsAST struct {
	Alternatives []*seqAST `parser:"@@ ('|' @@)*"`
}

type seqAST struct {
	Weight *string    `parser:"@Weight?"`
	Items  []*itemAST `parser:"@@+"`
}

type itemAST struct {
	Reference *string  `parser:"( @Reference"`
	Optional  *altsAST `parser:"| '[' @@ ']'"`
	Group     *altsAST `parser:"| '(' @@ ')'"`
	Word      *string  `parser:"| @Word )"`
	Repeat    *string  `parser:"@('*' | '+')?"`
	Tags      []string `parser:"@Tag*"`
}

var participleOptions = []participle.Option{
	participle.Lexer(jsgfLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
}

var (
	grammarParser   = participle.MustBuild[grammarAST](participleOptions...)
	ruleParser      = participle.MustBuild[ruleAST](participleOptions...)
	expansionParser = participle.MustBuild[altsAST](participleOptions...)
)

// ParseGrammarString parses a complete JSGF grammar string.
func ParseGrammarString(s string) (*grammar.Grammar, error) {
	return parseGrammar("grammar string", s)
}

// ParseGrammarFile reads and parses a JSGF grammar file.
func ParseGrammarFile(path string) (*grammar.Grammar, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fileError(err)
	}
	return parseGrammar(path, string(content))
}

func parseGrammar(name, s string) (*grammar.Grammar, error) {
	ast, err := grammarParser.ParseString(name, s)
	if err != nil {
		return nil, wrapParseError(name, err)
	}

	g, err := grammar.NewGrammar(ast.Name)
	if err != nil {
		return nil, err
	}
	if ast.Header != nil {
		g.Version = strings.TrimPrefix(strings.TrimPrefix(ast.Header.Version, "V"), "v")
		if ast.Header.Charset != nil {
			g.Charset = *ast.Header.Charset
		}
		if ast.Header.Language != nil {
			g.Language = *ast.Header.Language
		}
	}
	for _, imp := range ast.Imports {
		parsed, err := grammar.NewImport(refName(imp.Name))
		if err != nil {
			return nil, err
		}
		g.AddImport(parsed)
	}
	for _, def := range ast.Rules {
		r, err := convertRule(def)
		if err != nil {
			return nil, err
		}
		if err = g.AddRule(r); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ParseRuleString parses a single rule definition such as
// "public <greet> = hello;".
func ParseRuleString(s string) (*grammar.Rule, error) {
	ast, err := ruleParser.ParseString("rule string", s)
	if err != nil {
		return nil, wrapParseError("rule string", err)
	}
	return convertRule(ast)
}

// ParseExpansionString parses a bare rule right-hand side.
func ParseExpansionString(s string) (expansion.Expansion, error) {
	ast, err := expansionParser.ParseString("expansion string", s)
	if err != nil {
		return nil, wrapParseError("expansion string", err)
	}
	return convertAlternatives(ast)
}

// ValidGrammar reports whether a string parses as a JSGF grammar.
func ValidGrammar(s string) bool {
	_, err := ParseGrammarString(s)
	return err == nil
}

func convertRule(ast *ruleAST) (*grammar.Rule, error) {
	body, err := convertAlternatives(ast.Body)
	if err != nil {
		return nil, err
	}
	return grammar.NewRule(refName(ast.Name), ast.Public, body)
}

func convertAlternatives(ast *altsAST) (expansion.Expansion, error) {
	if len(ast.Alternatives) == 1 && ast.Alternatives[0].Weight == nil {
		return convertSequence(ast.Alternatives[0])
	}

	set := expansion.NewAlternativeSet()
	for _, alt := range ast.Alternatives {
		child, err := convertSequence(alt)
		if err != nil {
			return nil, err
		}
		set.Children().Append(child)
		if alt.Weight != nil {
			w, err := strconv.ParseFloat(strings.Trim(*alt.Weight, "/"), 64)
			if err != nil {
				return nil, invalidWeightError(*alt.Weight)
			}
			if err = set.SetWeight(child, w); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

func convertSequence(ast *seqAST) (expansion.Expansion, error) {
	nodes, err := convertItems(ast.Items)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return expansion.NewSequence(nodes...), nil
}

// convertItems converts the items of one sequence, coalescing runs of
// adjacent plain words into multi-word literals. A repeated word stays a
// separate single-word literal: the operator binds to the word alone.
// Tags close a run so that they attach to the coalesced literal.
func convertItems(items []*itemAST) ([]expansion.Expansion, error) {
	var nodes []expansion.Expansion
	var run []string

	closeRun := func(tags []string) {
		if len(run) == 0 {
			return
		}
		lit := expansion.NewLiteral(strings.Join(run, " "))
		addTags(lit, tags)
		nodes = append(nodes, lit)
		run = nil
	}

	for _, item := range items {
		if item.Word != nil && item.Repeat == nil {
			run = append(run, *item.Word)
			if len(item.Tags) > 0 {
				closeRun(item.Tags)
			}
			continue
		}
		closeRun(nil)
		node, err := convertItem(item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	closeRun(nil)
	return nodes, nil
}

func convertItem(item *itemAST) (expansion.Expansion, error) {
	var node expansion.Expansion
	switch {
	case item.Word != nil:
		node = expansion.NewLiteral(*item.Word)
	case item.Reference != nil:
		var err error
		node, err = convertReference(refName(*item.Reference))
		if err != nil {
			return nil, err
		}
	case item.Optional != nil:
		inner, err := convertAlternatives(item.Optional)
		if err != nil {
			return nil, err
		}
		node = expansion.NewOptionalGrouping(inner)
	case item.Group != nil:
		var err error
		node, err = convertGroup(item.Group)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case item.Repeat != nil && *item.Repeat == "*":
		node = expansion.NewKleeneStar(node)
	case item.Repeat != nil && *item.Repeat == "+":
		node = expansion.NewRepeat(node)
	}
	addTags(node, item.Tags)
	return node, nil
}

// convertGroup turns parenthesized content into an expansion: alternatives
// stay an AlternativeSet, anything else becomes a RequiredGrouping holding
// the sequence items directly. The grouping is kept even for one child, as
// flattening it would change precedence on later edits.
func convertGroup(ast *altsAST) (expansion.Expansion, error) {
	if len(ast.Alternatives) > 1 || ast.Alternatives[0].Weight != nil {
		return convertAlternatives(ast)
	}
	items, err := convertItems(ast.Alternatives[0].Items)
	if err != nil {
		return nil, err
	}
	return expansion.NewRequiredGrouping(items...), nil
}

func convertReference(name string) (expansion.Expansion, error) {
	switch name {
	case "NULL":
		return expansion.NewNullRef(), nil
	case "VOID":
		return expansion.NewVoidRef(), nil
	case "DICTATION":
		return expansion.NewDictation(), nil
	}
	if !grammar.ValidRuleName(name) {
		return nil, invalidReferenceError(name)
	}
	return expansion.NewNamedRuleRef(name), nil
}

func refName(token string) string {
	return strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
}

func addTags(e expansion.Expansion, tags []string) {
	for _, tag := range tags {
		e.AddTag(unescapeTag(tag))
	}
}

// unescapeTag strips the braces and undoes the escaping applied by the
// compiler.
func unescapeTag(token string) string {
	token = strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
	var b strings.Builder
	escaped := false
	for _, r := range token {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
