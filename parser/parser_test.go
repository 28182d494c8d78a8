package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/drmfinlay/jsgf"
	"github.com/drmfinlay/jsgf/expansion"
	"github.com/drmfinlay/jsgf/internal/test"
)

func parseExpansion(t *testing.T, s string) expansion.Expansion {
	e, err := ParseExpansionString(s)
	test.ExpectNoError(t, err)
	return e
}

func TestParseLiterals(t *testing.T) {
	e := parseExpansion(t, "hello world")
	test.ExpectBool(t, true, expansion.Equal(e, expansion.NewLiteral("hello world")))

	e = parseExpansion(t, "don't panic")
	test.ExpectBool(t, true, expansion.Equal(e, expansion.NewLiteral("don't panic")))
}

func TestParseAlternatives(t *testing.T) {
	e := parseExpansion(t, "yes | no")
	expected := expansion.NewAlternativeSet(expansion.NewLiteral("yes"), expansion.NewLiteral("no"))
	test.ExpectBool(t, true, expansion.Equal(e, expected))
}

func TestParseWeights(t *testing.T) {
	e := parseExpansion(t, "/0.2/ yes | /0.8/ no")
	set, is := e.(*expansion.AlternativeSet)
	test.Assert(t, is, "expecting an AlternativeSet, got %s", e.Kind())

	w, ok := set.Weight(set.Children().At(0))
	test.ExpectBool(t, true, ok)
	test.Expect(t, w == 0.2, 0.2, w)
	w, ok = set.Weight(set.Children().At(1))
	test.ExpectBool(t, true, ok)
	test.Expect(t, w == 0.8, 0.8, w)

	test.ExpectStr(t, "/0.2/ yes | /0.8/ no", expansion.Compile(e))
}

func TestParseGroupings(t *testing.T) {
	e := parseExpansion(t, "[please] stop")
	expected := expansion.NewSequence(
		expansion.NewOptionalGrouping(expansion.NewLiteral("please")),
		expansion.NewLiteral("stop"),
	)
	test.ExpectBool(t, true, expansion.Equal(e, expected))

	// A required grouping of a single child is preserved, not flattened.
	e = parseExpansion(t, "(foo)")
	grouping, is := e.(*expansion.RequiredGrouping)
	test.Assert(t, is, "expecting a RequiredGrouping, got %s", e.Kind())
	test.ExpectInt(t, 1, grouping.Children().Len())

	// Parenthesized alternatives stay an AlternativeSet.
	e = parseExpansion(t, "turn (left | right)")
	expected = expansion.NewSequence(
		expansion.NewLiteral("turn"),
		expansion.NewAlternativeSet(expansion.NewLiteral("left"), expansion.NewLiteral("right")),
	)
	test.ExpectBool(t, true, expansion.Equal(e, expected))
}

func TestParseRepeats(t *testing.T) {
	e := parseExpansion(t, "go*")
	test.ExpectBool(t, true, expansion.Equal(e, expansion.NewKleeneStar(expansion.NewLiteral("go"))))

	e = parseExpansion(t, "go+")
	test.ExpectBool(t, true, expansion.Equal(e, expansion.NewRepeat(expansion.NewLiteral("go"))))

	// The operator binds to the immediately preceding word, not the
	// whole sequence.
	e = parseExpansion(t, "hello world+")
	expected := expansion.NewSequence(
		expansion.NewLiteral("hello"),
		expansion.NewRepeat(expansion.NewLiteral("world")),
	)
	test.ExpectBool(t, true, expansion.Equal(e, expected))

	e = parseExpansion(t, "(hello world)+")
	rep, is := e.(*expansion.Repeat)
	test.Assert(t, is, "expecting a Repeat, got %s", e.Kind())
	test.Expect(t, rep.Child().Kind() == expansion.RequiredGroupingKind,
		expansion.RequiredGroupingKind, rep.Child().Kind())
}

func TestParseTags(t *testing.T) {
	e := parseExpansion(t, "hello world { greeting }")
	lit, is := e.(*expansion.Literal)
	test.Assert(t, is, "expecting a Literal, got %s", e.Kind())
	test.ExpectInt(t, 1, len(lit.Tags()))
	test.ExpectStr(t, "greeting", lit.Tags()[0])

	e = parseExpansion(t, "up+ { direction }")
	rep, is := e.(*expansion.Repeat)
	test.Assert(t, is, "expecting a Repeat, got %s", e.Kind())
	test.ExpectStr(t, "direction", rep.Tags()[0])
	test.ExpectInt(t, 0, len(rep.Child().Tags()))

	// A tag after a grouping attaches to the grouping, not to a child.
	e = parseExpansion(t, "(a b) { pair }")
	test.ExpectInt(t, 1, len(e.Tags()))
	test.ExpectInt(t, 0, len(e.Children().At(0).Tags()))

	e = parseExpansion(t, `escaped { some \{brace\} }`)
	test.ExpectStr(t, `some {brace}`, e.Tags()[0])
}

func TestParseSpecialReferences(t *testing.T) {
	test.Expect(t, parseExpansion(t, "<NULL>").Kind() == expansion.NullRefKind,
		expansion.NullRefKind, parseExpansion(t, "<NULL>").Kind())
	test.Expect(t, parseExpansion(t, "<VOID>").Kind() == expansion.VoidRefKind,
		expansion.VoidRefKind, parseExpansion(t, "<VOID>").Kind())
	test.Expect(t, parseExpansion(t, "<DICTATION>").Kind() == expansion.DictationKind,
		expansion.DictationKind, parseExpansion(t, "<DICTATION>").Kind())

	e := parseExpansion(t, "call <contact>")
	ref := e.Children().At(1)
	test.Expect(t, ref.Kind() == expansion.NamedRuleRefKind, expansion.NamedRuleRefKind, ref.Kind())
	test.ExpectStr(t, "contact", ref.(*expansion.NamedRuleRef).Name())
}

func TestParseRuleString(t *testing.T) {
	r, err := ParseRuleString("public <greet> = hello world;")
	test.ExpectNoError(t, err)
	test.ExpectStr(t, "greet", r.Name())
	test.ExpectBool(t, true, r.Visible())
	test.ExpectStr(t, "public <greet> = hello world;", r.Compile())

	r, err = ParseRuleString("<name> = bob | leo;")
	test.ExpectNoError(t, err)
	test.ExpectBool(t, false, r.Visible())
}

func TestParseGrammarString(t *testing.T) {
	g, err := ParseGrammarString(`
		#JSGF V1.0 UTF-8 en;
		grammar com.example.commands;
		import <com.example.numbers.*>;

		// Turn things on and off.
		public <command> = turn (on | off) <thing>;
		<thing> = /* the things we control */ light | fan;
	`)
	test.ExpectNoError(t, err)
	test.ExpectStr(t, "com.example.commands", g.Name())
	test.ExpectStr(t, "1.0", g.Version)
	test.ExpectStr(t, "UTF-8", g.Charset)
	test.ExpectStr(t, "en", g.Language)
	test.ExpectInt(t, 1, len(g.Imports()))
	test.ExpectInt(t, 2, len(g.Rules()))

	command, err := g.Rule("command")
	test.ExpectNoError(t, err)
	matched, err := command.Matches("turn on light")
	test.ExpectNoError(t, err)
	test.ExpectBool(t, true, matched)
	matched, err = command.Matches("turn up light")
	test.ExpectNoError(t, err)
	test.ExpectBool(t, false, matched)
}

func TestParseGrammarWithoutHeader(t *testing.T) {
	g, err := ParseGrammarString("grammar test; public <greet> = hello;")
	test.ExpectNoError(t, err)
	test.ExpectStr(t, "1.0", g.Version)
	test.ExpectStr(t, "UTF-8", g.Charset)
	test.ExpectStr(t, "en", g.Language)
}

func TestParseErrors(t *testing.T) {
	samples := []string{
		"",
		"grammar test;",
		"grammar test; public <greet> = ;",
		"grammar test; public <greet> hello;",
		"grammar test; public greet = hello;",
	}
	for i, s := range samples {
		_, err := ParseGrammarString(s)
		test.Assert(t, err != nil, "sample #%d: expecting a parse error", i)
		ee, is := err.(*jsgf.Error)
		test.Assert(t, is, "sample #%d: expecting a coded error, got %T", i, err)
		test.Assert(t, ee.Code == SyntaxError, "sample #%d: expecting code %d, got %d",
			i, SyntaxError, ee.Code)
	}

	_, err := ParseGrammarString("grammar test; public <greet> = hello;")
	test.ExpectNoError(t, err)
}

func TestParseErrorPosition(t *testing.T) {
	_, err := ParseGrammarString("grammar test;\npublic <greet> = [hello;")
	test.Assert(t, err != nil, "expecting a parse error")
	ee, is := err.(*jsgf.Error)
	test.Assert(t, is, "expecting a coded error, got %T", err)
	test.ExpectInt(t, 2, ee.Line)
	test.Assert(t, ee.Col > 0, "expecting a column, got %d", ee.Col)
}

func TestValidGrammar(t *testing.T) {
	test.ExpectBool(t, true, ValidGrammar("grammar test; public <greet> = hello;"))
	test.ExpectBool(t, false, ValidGrammar("grammar test; public <greet> = ;"))
}

func TestRoundTrip(t *testing.T) {
	weighted := expansion.NewAlternativeSet(expansion.NewLiteral("yes"), expansion.NewLiteral("no"))
	if err := weighted.SetWeight(weighted.Children().At(0), 0.2); err != nil {
		t.Fatal(err)
	}
	if err := weighted.SetWeight(weighted.Children().At(1), 0.8); err != nil {
		t.Fatal(err)
	}

	tagged := expansion.NewLiteral("stop")
	tagged.AddTag("halt")

	trees := []expansion.Expansion{
		expansion.NewLiteral("hello world"),
		expansion.NewSequence(expansion.NewLiteral("hello"), expansion.NewNamedRuleRef("name")),
		expansion.NewAlternativeSet(expansion.NewLiteral("yes"), expansion.NewLiteral("no")),
		weighted,
		expansion.NewSequence(
			expansion.NewOptionalGrouping(expansion.NewLiteral("please")),
			tagged,
		),
		expansion.NewSequence(
			expansion.NewLiteral("turn"),
			expansion.NewAlternativeSet(expansion.NewLiteral("left"), expansion.NewLiteral("right")),
		),
		expansion.NewKleeneStar(expansion.NewLiteral("go")),
		expansion.NewSequence(expansion.NewLiteral("count"), expansion.NewRepeat(expansion.NewLiteral("one"))),
		expansion.NewRequiredGrouping(expansion.NewLiteral("solo")),
		expansion.NewSequence(expansion.NewLiteral("note"), expansion.NewDictation()),
		expansion.NewAlternativeSet(expansion.NewNullRef(), expansion.NewVoidRef()),
	}
	for i, tree := range trees {
		compiled := expansion.Compile(tree)
		parsed, err := ParseExpansionString(compiled)
		test.ExpectNoError(t, err)
		test.Assert(t, expansion.Equal(tree, parsed),
			"tree #%d: %q did not round-trip (got %q)", i, compiled, expansion.Compile(parsed))
	}
}

func TestGrammarRoundTrip(t *testing.T) {
	text := "#JSGF V1.0 UTF-8 en;\n" +
		"grammar com.example.commands;\n" +
		"import <com.example.numbers.*>;\n" +
		"public <command> = turn (on | off) <thing> [now];\n" +
		"<thing> = light | fan;\n"
	g, err := ParseGrammarString(text)
	test.ExpectNoError(t, err)
	test.ExpectStr(t, text, g.Compile())

	again, err := ParseGrammarString(g.Compile())
	test.ExpectNoError(t, err)
	test.ExpectStr(t, g.Compile(), again.Compile())
}

func TestParseGrammarFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.gram")
	content := "grammar test;\npublic <greet> = hello;\n"
	if err := os.WriteFile(path, []byte(content), 0o666); err != nil {
		t.Fatal(err)
	}

	g, err := ParseGrammarFile(path)
	test.ExpectNoError(t, err)
	test.ExpectStr(t, "test", g.Name())

	_, err = ParseGrammarFile(filepath.Join(dir, "missing.gram"))
	test.ExpectErrorCode(t, FileError, err)
}
