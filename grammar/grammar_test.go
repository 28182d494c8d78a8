package grammar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/drmfinlay/jsgf/expansion"
	"github.com/drmfinlay/jsgf/internal/test"
)

func newTestGrammar(t *testing.T) *Grammar {
	g, err := NewGrammar("test")
	test.ExpectNoError(t, err)
	return g
}

func TestGrammarCompile(t *testing.T) {
	g := newTestGrammar(t)
	greet, err := NewPublicRule("greet", expansion.NewLiteral("hello"))
	test.ExpectNoError(t, err)
	name, err := NewPrivateRule("name", expansion.NewLiteral("bob"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRules(greet, name))

	imp, err := NewImport("com.example.numbers.*")
	test.ExpectNoError(t, err)
	g.AddImport(imp)

	expected := "#JSGF V1.0 UTF-8 en;\n" +
		"grammar test;\n" +
		"import <com.example.numbers.*>;\n" +
		"public <greet> = hello;\n" +
		"<name> = bob;\n"
	test.ExpectStr(t, expected, g.Compile())
}

func TestFindMatchingRules(t *testing.T) {
	g := newTestGrammar(t)
	hello, err := NewPublicRule("hello", expansion.NewLiteral("hello world"))
	test.ExpectNoError(t, err)
	hidden, err := NewPrivateRule("hidden", expansion.NewLiteral("hello world"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRules(hello, hidden))

	matched, err := g.FindMatchingRules("hello world")
	test.ExpectNoError(t, err)
	test.ExpectInt(t, 1, len(matched))
	test.Expect(t, matched[0] == hello, hello, matched[0])

	matched, err = g.FindMatchingRules("goodbye")
	test.ExpectNoError(t, err)
	test.ExpectInt(t, 0, len(matched))
}

func TestAddRuleDuplicates(t *testing.T) {
	g := newTestGrammar(t)
	first, err := NewPublicRule("greet", expansion.NewLiteral("hello"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRule(first))

	// A structurally equal duplicate is a silent no-op.
	duplicate, err := NewPublicRule("greet", expansion.NewLiteral("hello"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRule(duplicate))
	test.ExpectInt(t, 1, len(g.Rules()))

	// A different rule under the same name is an error.
	clashing, err := NewPublicRule("greet", expansion.NewLiteral("goodbye"))
	test.ExpectNoError(t, err)
	test.ExpectErrorCode(t, DuplicateRuleError, g.AddRule(clashing))
}

func TestRemoveRule(t *testing.T) {
	g := newTestGrammar(t)
	noun, err := NewPrivateRule("noun", expansion.NewLiteral("light"))
	test.ExpectNoError(t, err)
	command, err := NewPublicRule("command", expansion.NewSequence(
		expansion.NewLiteral("turn"), expansion.NewNamedRuleRef("noun"),
	))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRules(noun, command))

	test.ExpectErrorCode(t, DependentRuleError, g.RemoveRule("noun", false))
	test.ExpectNoError(t, g.RemoveRule("noun", true))
	test.ExpectErrorCode(t, NoSuchRuleError, g.RemoveRule("noun", false))
	test.ExpectNoError(t, g.RemoveRule("command", false))
	test.ExpectInt(t, 0, len(g.Rules()))
}

func TestEnableDisableRule(t *testing.T) {
	g := newTestGrammar(t)
	greet, err := NewPublicRule("greet", expansion.NewLiteral("hello"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRule(greet))

	test.ExpectNoError(t, g.DisableRule("greet"))
	matched, err := g.FindMatchingRules("hello")
	test.ExpectNoError(t, err)
	test.ExpectInt(t, 0, len(matched))
	test.Assert(t, g.Compile() == "#JSGF V1.0 UTF-8 en;\ngrammar test;\n",
		"disabled rules must not compile")

	test.ExpectNoError(t, g.EnableRule("greet"))
	matched, err = g.FindMatchingRules("hello")
	test.ExpectNoError(t, err)
	test.ExpectInt(t, 1, len(matched))
}

func TestImports(t *testing.T) {
	_, err := NewImport("lonely")
	test.ExpectErrorCode(t, InvalidImportNameError, err)
	_, err = NewImport("com.example.NULL")
	test.ExpectErrorCode(t, InvalidImportNameError, err)

	imp, err := NewImport("com.example.numbers.digit")
	test.ExpectNoError(t, err)
	test.ExpectStr(t, "import <com.example.numbers.digit>;", imp.Compile())
	test.ExpectBool(t, false, imp.Wildcard())
	test.ExpectStr(t, "com.example.numbers", imp.GrammarName())
	test.ExpectStr(t, "digit", imp.RuleName())

	wildcard, err := NewImport("com.example.numbers.*")
	test.ExpectNoError(t, err)
	test.ExpectBool(t, true, wildcard.Wildcard())
	test.ExpectStr(t, "com.example.numbers", wildcard.GrammarName())

	g := newTestGrammar(t)
	g.AddImport(imp)
	g.AddImport(wildcard)
	test.ExpectInt(t, 2, len(g.Imports()))
	test.ExpectStr(t, "com.example.numbers.digit", g.ImportNames()[0])

	test.ExpectNoError(t, g.RemoveImport(imp))
	test.ExpectErrorCode(t, NoSuchImportError, g.RemoveImport(imp))
	test.ExpectInt(t, 1, len(g.Imports()))
}

func TestImportResolution(t *testing.T) {
	numbers, err := NewGrammar("numbers")
	test.ExpectNoError(t, err)
	digit, err := NewPublicRule("digit", expansion.NewAlternativeSet(
		expansion.NewLiteral("one"), expansion.NewLiteral("two"),
	))
	test.ExpectNoError(t, err)
	secret, err := NewPrivateRule("secret", expansion.NewLiteral("seven"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, numbers.AddRules(digit, secret))

	g := newTestGrammar(t)
	dial, err := NewPublicRule("dial", expansion.NewSequence(
		expansion.NewLiteral("dial"), expansion.NewNamedRuleRef("digit"),
	))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRule(dial))

	// No import and no registration: the reference is out of scope.
	_, err = dial.Matches("dial two")
	test.ExpectErrorCode(t, expansion.UnresolvedRuleError, err)

	wildcard, err := NewImport("numbers.*")
	test.ExpectNoError(t, err)
	g.AddImport(wildcard)

	// Imported but the grammar is not registered yet.
	_, err = dial.Matches("dial two")
	test.ExpectErrorCode(t, expansion.UnresolvedRuleError, err)

	g.Register(numbers)
	matched, err := dial.Matches("dial two")
	test.ExpectNoError(t, err)
	test.ExpectBool(t, true, matched)

	// Private rules of imported grammars stay private.
	spy, err := NewPublicRule("spy", expansion.NewNamedRuleRef("secret"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRule(spy))
	_, err = spy.Matches("seven")
	test.ExpectErrorCode(t, expansion.UnresolvedRuleError, err)
}

func TestRulesByName(t *testing.T) {
	numbers, err := NewGrammar("numbers")
	test.ExpectNoError(t, err)
	digit, err := NewPublicRule("digit", expansion.NewLiteral("one"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, numbers.AddRule(digit))

	g := newTestGrammar(t)
	local, err := NewPublicRule("digit", expansion.NewLiteral("uno"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRule(local))
	imp, err := NewImport("numbers.digit")
	test.ExpectNoError(t, err)
	g.AddImport(imp)
	g.Register(numbers)

	rules := g.RulesByName("digit")
	test.ExpectInt(t, 2, len(rules))
	test.Expect(t, rules[0] == local, local, rules[0])
	test.Expect(t, rules[1] == digit, digit, rules[1])
}

func TestCompileAsRoot(t *testing.T) {
	g := newTestGrammar(t)
	a, err := NewPublicRule("a", expansion.NewLiteral("alpha"))
	test.ExpectNoError(t, err)
	b, err := NewPublicRule("b", expansion.NewLiteral("bravo"))
	test.ExpectNoError(t, err)
	hidden, err := NewPrivateRule("c", expansion.NewLiteral("charlie"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRules(a, b, hidden))

	expected := "#JSGF V1.0 UTF-8 en;\n" +
		"grammar test;\n" +
		"public <root> = (<a> | <b>);\n" +
		"<a> = alpha;\n" +
		"<b> = bravo;\n" +
		"<c> = charlie;\n"
	test.ExpectStr(t, expected, g.CompileAsRoot())
}

func TestCompileToFile(t *testing.T) {
	g := newTestGrammar(t)
	greet, err := NewPublicRule("greet", expansion.NewLiteral("hello"))
	test.ExpectNoError(t, err)
	test.ExpectNoError(t, g.AddRule(greet))

	path := filepath.Join(t.TempDir(), "test.gram")
	test.ExpectNoError(t, g.CompileToFile(path))

	content, err := os.ReadFile(path)
	test.ExpectNoError(t, err)
	test.ExpectStr(t, g.Compile(), string(content))
}

func TestGrammarNameValidation(t *testing.T) {
	_, err := NewGrammar("NULL")
	test.ExpectErrorCode(t, InvalidGrammarNameError, err)
	_, err = NewGrammar("com.example.app")
	test.ExpectNoError(t, err)
}
