/*
jsgf is a console utility for working with JSGF grammar files.
Usage is

	jsgf [-o <name>] [-r] [-m <speech>] <file>

-o <name> writes the compiled grammar to the named file instead of standard output;

-r compiles the grammar with a generated public <root> rule referencing every visible rule;

-m <speech> matches a speech string against the grammar and prints the names of matching rules instead of compiling;

<file> defines a grammar file parsable by parser.ParseGrammarFile().
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/drmfinlay/jsgf/parser"
)

var (
	outFileName, speech string
	asRoot              bool
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage is  jsgf [-o <name>] [-r] [-m <speech>] <file>")
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), "  <file>")
		fmt.Fprintln(flag.CommandLine.Output(), "\tgrammar file name")
	}

	flag.StringVar(&outFileName, "o", "", "output file name, default is standard output")
	flag.BoolVar(&asRoot, "r", false, "compile with a generated root rule")
	flag.StringVar(&speech, "m", "", "match a speech string instead of compiling")
	flag.Parse()
	inFileName := flag.Arg(0)
	if inFileName == "" {
		flag.Usage()
		os.Exit(2)
	}

	g, e := parser.ParseGrammarFile(inFileName)
	if e != nil {
		fmt.Fprintln(os.Stderr, e.Error())
		os.Exit(1)
	}

	if speech != "" {
		rules, e := g.FindMatchingRules(speech)
		if e != nil {
			fmt.Fprintln(os.Stderr, e.Error())
			os.Exit(1)
		}
		for _, r := range rules {
			fmt.Println(r.Name())
		}
		if len(rules) == 0 {
			os.Exit(1)
		}
		return
	}

	var content string
	if asRoot {
		content = g.CompileAsRoot()
	} else {
		content = g.Compile()
	}
	if outFileName == "" {
		fmt.Print(content)
		return
	}
	e = os.WriteFile(outFileName, []byte(content), 0o666)
	if e != nil {
		fmt.Fprintln(os.Stderr, e.Error())
		os.Exit(1)
	}
}
