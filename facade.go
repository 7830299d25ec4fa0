package bondcompile

import (
	"context"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/compat"
	"github.com/bondbuild/bondcompile/reporter"
)

// Options configures the parse facade.
type Options struct {
	// IgnoreImports parses import statements but does not load them. See
	// Compiler.IgnoreImports.
	IgnoreImports bool
}

// ParseError is a single diagnostic from any stage of the pipeline: lexing,
// parsing, semantic analysis, or type resolution.
type ParseError struct {
	Message  string
	FilePath string
	Line     int
	Col      int
}

// ParseResult is the outcome of compiling one root file. On parse errors
// the AST is nil; on semantic errors a best-effort partial AST may be
// present while Success remains false.
type ParseResult struct {
	AST     *ast.File
	Errors  []ParseError
	Success bool
}

// ParseFile compiles the file at the given path, loading imports through
// the resolver (or the file system when resolver is nil).
func ParseFile(ctx context.Context, path string, resolver Resolver, opts *Options) ParseResult {
	return parse(ctx, path, resolver, opts)
}

// ParseString compiles in-memory source that imports nothing resolvable;
// the content is addressed by a synthetic path.
func ParseString(ctx context.Context, content string, opts *Options) ParseResult {
	return ParseContent(ctx, content, "<input>", nil, opts)
}

// ParseContent compiles in-memory source as if it lived at virtualPath.
// Imports are resolved relative to that path through the given resolver.
func ParseContent(ctx context.Context, content, virtualPath string, resolver Resolver, opts *Options) ParseResult {
	mem := &memoryResolver{path: virtualPath, content: content, next: resolver}
	return parse(ctx, virtualPath, mem, opts)
}

func parse(ctx context.Context, path string, resolver Resolver, opts *Options) ParseResult {
	if opts == nil {
		opts = &Options{}
	}
	if resolver == nil {
		resolver = &SourceResolver{}
	}

	// accumulate every diagnostic rather than stopping at the first, so a
	// single run surfaces as many errors as possible
	handler := reporter.NewHandler(reporter.NewReporter(
		func(reporter.ErrorWithPos) error { return nil },
		nil,
	))

	u := &unit{
		resolver:      resolver,
		handler:       handler,
		ignoreImports: opts.IgnoreImports,
		visited:       map[string]bool{},
	}
	root, err := u.run(ctx, path)

	res := ParseResult{AST: root}
	for _, ewp := range handler.Errors() {
		pos := ewp.GetPosition()
		res.Errors = append(res.Errors, ParseError{
			Message:  ewp.Unwrap().Error(),
			FilePath: pos.Filename,
			Line:     pos.Line,
			Col:      pos.Col,
		})
	}
	if err != nil && len(res.Errors) == 0 {
		// a failure that never went through the handler, such as
		// cancellation or an unreadable root file
		res.Errors = append(res.Errors, ParseError{Message: err.Error(), FilePath: path})
	}
	res.Success = err == nil && len(res.Errors) == 0
	return res
}

// CheckCompatibility diffs two resolved schemas, classifying each change by
// its effect on binary and text protocols. Both inputs are assumed to have
// compiled cleanly; callers holding parse errors should surface those
// instead.
func CheckCompatibility(oldAST, newAST *ast.File) []compat.Change {
	return compat.Check(oldAST, newAST)
}
