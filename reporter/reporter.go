package reporter

import (
	"sync"

	"github.com/bondbuild/bondcompile/ast"
)

// ErrorReporter is responsible for reporting the given error. If the reporter
// returns a non-nil error, parsing/linking will abort with that error. If the
// reporter returns nil, the compiler will continue, allowing it to try to
// report as many syntax and/or semantic errors as it can find.
type ErrorReporter func(err ErrorWithPos) error

// WarningReporter is responsible for reporting the given warning. This is used
// for indicating non-error messages to the calling program for things that do
// not cause the compilation to fail but are considered bad practice. Though
// they are just warnings, the details are supplied to the reporter via an
// error type.
type WarningReporter func(ErrorWithPos)

type Reporter interface {
	Error(ErrorWithPos) error
	Warning(ErrorWithPos)
}

func NewReporter(errs ErrorReporter, warnings WarningReporter) Reporter {
	return reporterFuncs{errs: errs, warnings: warnings}
}

type reporterFuncs struct {
	errs     ErrorReporter
	warnings WarningReporter
}

func (r reporterFuncs) Error(err ErrorWithPos) error {
	if r.errs == nil {
		return err
	}
	return r.errs(err)
}

func (r reporterFuncs) Warning(err ErrorWithPos) {
	if r.warnings != nil {
		r.warnings(err)
	}
}

// Handler coordinates a Reporter with the stages of a compilation. It
// remembers every diagnostic that was reported so that the facade can hand
// the full list back to the caller after the compilation concludes.
type Handler struct {
	reporter Reporter

	mu           sync.Mutex
	errsReported bool
	reported     []ErrorWithPos
	err          error
}

func NewHandler(rep Reporter) *Handler {
	if rep == nil {
		rep = NewReporter(nil, nil)
	}
	return &Handler{reporter: rep}
}

func (h *Handler) HandleErrorf(pos ast.SourcePos, format string, args ...interface{}) error {
	return h.HandleError(Errorf(pos, format, args...))
}

func (h *Handler) HandleError(err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return h.err
	}
	if ewp, ok := err.(ErrorWithPos); ok {
		h.errsReported = true
		h.reported = append(h.reported, ewp)
		err = h.reporter.Error(ewp)
	}
	h.err = err
	return err
}

func (h *Handler) HandleWarning(pos ast.SourcePos, err error) {
	// no need for lock; warnings don't interact with mutable fields
	h.reporter.Warning(errorWithSourcePos{pos: pos, underlying: err})
}

// Error returns the handler's current disposition: nil if no errors have
// been reported, the reporter's abort error if it returned one, and
// ErrInvalidSource if errors were reported but the reporter swallowed them
// all to keep the compilation going.
func (h *Handler) Error() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.errsReported && h.err == nil {
		return ErrInvalidSource
	}
	return h.err
}

// Errors returns every diagnostic reported so far, in report order.
func (h *Handler) Errors() []ErrorWithPos {
	h.mu.Lock()
	defer h.mu.Unlock()

	errs := make([]ErrorWithPos, len(h.reported))
	copy(errs, h.reported)
	return errs
}

// ReporterError returns the error returned by the handler's reporter, if any.
func (h *Handler) ReporterError() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}
