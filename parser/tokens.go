package parser

import (
	"fmt"

	"github.com/bondbuild/bondcompile/ast"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenError
	tokenIdent
	tokenIntLit
	tokenFloatLit
	tokenStringLit
	tokenPunct
)

// token is a single lexed symbol. Exactly one of the value fields is
// meaningful, according to kind.
type token struct {
	kind tokenKind
	// text is the raw source text of the token. For string literals it is
	// the text including quotes and prefix.
	text string
	// str is the unescaped value of a string literal; wide records an L
	// prefix.
	str  string
	wide bool
	// ival holds the (unsigned) magnitude of an integer literal.
	ival uint64
	// fval holds the value of a float literal.
	fval float64
	// rn is the punctuation rune.
	rn rune
	// tok indexes the token in the file's FileInfo.
	tok ast.Token
	pos ast.SourcePos
	err error
}

func (t token) describe() string {
	switch t.kind {
	case tokenEOF:
		return "end of file"
	case tokenError:
		return "error"
	case tokenIdent:
		return fmt.Sprintf("%q", t.text)
	case tokenIntLit:
		return "int literal"
	case tokenFloatLit:
		return "float literal"
	case tokenStringLit:
		return "string literal"
	case tokenPunct:
		return fmt.Sprintf("%q", string(t.rn))
	default:
		return "token"
	}
}

func (t token) isPunct(r rune) bool {
	return t.kind == tokenPunct && t.rn == r
}

func (t token) isIdent(s string) bool {
	return t.kind == tokenIdent && t.text == s
}

// keywords are identifiers with reserved meaning; they may not name
// declarations, fields, or methods.
var keywords = map[string]struct{}{
	"import":            {},
	"namespace":         {},
	"using":             {},
	"struct":            {},
	"enum":              {},
	"service":           {},
	"view_of":           {},
	"optional":          {},
	"required":          {},
	"required_optional": {},
	"void":              {},
	"stream":            {},
	"nothing":           {},
	"true":              {},
	"false":             {},
}

func isKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}
