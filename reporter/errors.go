package reporter

import (
	"errors"
	"fmt"

	"github.com/bondbuild/bondcompile/ast"
)

// ErrInvalidSource is a sentinel error that is returned by compile operations
// in the event that syntax or semantic errors are encountered, but the
// configured ErrorReporter always returns nil.
var ErrInvalidSource = errors.New("parse failed: invalid bond source")

// ErrorWithPos is an error about a Bond source file that includes information
// about the location in the file that caused the error.
//
// The value of Error() will contain both the SourcePos and Underlying error.
// The value of Unwrap() will only be the Underlying error.
type ErrorWithPos interface {
	error
	GetPosition() ast.SourcePos
	Unwrap() error
}

func Error(pos ast.SourcePos, err error) ErrorWithPos {
	return errorWithSourcePos{pos: pos, underlying: err}
}

func Errorf(pos ast.SourcePos, format string, args ...interface{}) ErrorWithPos {
	return errorWithSourcePos{pos: pos, underlying: fmt.Errorf(format, args...)}
}

type errorWithSourcePos struct {
	underlying error
	pos        ast.SourcePos
}

func (e errorWithSourcePos) Error() string {
	return fmt.Sprintf("%s: %v", e.GetPosition(), e.underlying)
}

// GetPosition implements the ErrorWithPos interface, supplying a location in
// Bond source that caused the error.
func (e errorWithSourcePos) GetPosition() ast.SourcePos {
	return e.pos
}

// Unwrap implements the ErrorWithPos interface, supplying the underlying
// error. This error will not include location information.
func (e errorWithSourcePos) Unwrap() error {
	return e.underlying
}

var _ ErrorWithPos = errorWithSourcePos{}
