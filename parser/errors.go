package parser

import (
	"errors"

	"github.com/alecthomas/participle/v2"
	"github.com/drmfinlay/jsgf"
)

// Error codes used by parser:
const (
	SyntaxError = iota + jsgf.ParseErrors
	InvalidWeightError
	InvalidReferenceError
	FileError
)

// wrapParseError converts a participle error into a coded error carrying
// the source name, position, and the production that failed.
func wrapParseError(name string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return jsgf.NewError(SyntaxError, perr.Message(), name, pos.Line, pos.Column)
	}
	return jsgf.FormatError(SyntaxError, "%s", err)
}

func invalidWeightError(text string) *jsgf.Error {
	return jsgf.FormatError(InvalidWeightError, "%q is not a valid alternative weight", text)
}

func invalidReferenceError(name string) *jsgf.Error {
	return jsgf.FormatError(InvalidReferenceError, "%q is not a valid rule reference name", name)
}

func fileError(err error) *jsgf.Error {
	return jsgf.FormatError(FileError, "cannot read grammar file: %s", err)
}
