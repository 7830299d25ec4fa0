package bondcompile

import (
	"context"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/linker"
	"github.com/bondbuild/bondcompile/parser"
	"github.com/bondbuild/bondcompile/reporter"
)

// Compiler turns Bond source files into fully resolved ASTs.
//
// Each root file is compiled as its own unit with its own symbol table and
// alias scopes; units share no mutable state and run in parallel, bounded by
// MaxParallelism. Within a unit, work is sequential and deterministic:
// imports load in source order, declarations validate in source order, and
// type resolution iterates to a fixpoint.
type Compiler struct {
	// Resolver locates root files and imports. If nil, a SourceResolver
	// reading the local file system is used.
	Resolver Resolver
	// MaxParallelism bounds the number of concurrently compiling units. If
	// unspecified or non-positive, min(runtime.NumCPU(),
	// runtime.GOMAXPROCS(-1)) is used.
	MaxParallelism int
	// Reporter receives errors and warnings as they are found. If
	// unspecified, the compilation fails on the first error and ignores all
	// warnings.
	Reporter reporter.Reporter
	// IgnoreImports parses import statements without loading them. Semantic
	// analysis still runs on local declarations, and type resolution
	// resolves best-effort against what is locally visible. Used by
	// compatibility diffing when loading imports would fail, such as old
	// VCS revisions lacking sibling files.
	IgnoreImports bool
}

// Compile compiles the given root files into resolved ASTs, one per path,
// in the order given.
func (c *Compiler) Compile(ctx context.Context, files ...string) ([]*ast.File, error) {
	if len(files) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	par := c.MaxParallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(-1)
		cpus := runtime.NumCPU()
		if par > cpus {
			par = cpus
		}
	}

	h := reporter.NewHandler(c.Reporter)

	e := executor{
		c:       c,
		h:       h,
		s:       semaphore.NewWeighted(int64(par)),
		cancel:  cancel,
		results: map[string]*result{},
	}

	results := make([]*result, len(files))
	for i, f := range files {
		results[i] = e.compile(ctx, f)
	}

	asts := make([]*ast.File, len(files))
	for i, r := range results {
		select {
		case <-r.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if r.err != nil {
			return nil, r.err
		}
		asts[i] = r.res
	}

	return asts, nil
}

type result struct {
	ready chan struct{}
	res   *ast.File
	err   error
}

func (r *result) fail(err error) {
	r.err = err
	close(r.ready)
}

func (r *result) complete(f *ast.File) {
	r.res = f
	close(r.ready)
}

type executor struct {
	c      *Compiler
	h      *reporter.Handler
	s      *semaphore.Weighted
	cancel context.CancelFunc

	mu      sync.Mutex
	results map[string]*result
}

func (e *executor) compile(ctx context.Context, file string) *result {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.results[file]
	if r != nil {
		return r
	}

	r = &result{
		ready: make(chan struct{}),
	}
	e.results[file] = r
	go func() {
		e.doCompile(ctx, file, r)
	}()
	return r
}

func (e *executor) doCompile(ctx context.Context, file string, r *result) {
	if err := e.s.Acquire(ctx, 1); err != nil {
		r.fail(err)
		return
	}
	defer e.s.Release(1)

	u := &unit{
		resolver:      e.c.resolver(),
		handler:       e.h,
		ignoreImports: e.c.IgnoreImports,
		visited:       map[string]bool{},
	}
	root, err := u.run(ctx, file)
	if err != nil {
		r.fail(err)
		return
	}
	r.complete(root)
}

func (c *Compiler) resolver() Resolver {
	if c.Resolver != nil {
		return c.Resolver
	}
	return &SourceResolver{}
}

// unit is the state of one compilation: a root file plus its transitive
// imports, with its own symbol table and alias scopes.
type unit struct {
	resolver      Resolver
	handler       *reporter.Handler
	ignoreImports bool

	// visited keys on canonical path: a path loaded once is never re-parsed,
	// which is also what terminates import cycles.
	visited map[string]bool
	// loaded accumulates parse results in load order: imports precede their
	// importers except where a cycle forced a break.
	loaded []parser.Result
	root   *ast.File
}

func (u *unit) run(ctx context.Context, rootPath string) (*ast.File, error) {
	if err := u.load(ctx, "", rootPath, ast.UnknownPos(rootPath), true); err != nil {
		return nil, err
	}
	// cooperative cancellation between the loading and linking stages
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sym := &linker.Symbols{}
	if err := linker.Link(sym, u.loaded, u.handler); err != nil {
		// the root AST may still be useful as a partial result; the facade
		// surfaces it alongside the accumulated diagnostics
		return u.root, err
	}
	return u.root, u.handler.Error()
}

func (u *unit) load(ctx context.Context, importerPath, importPath string, pos ast.SourcePos, isRoot bool) error {
	// cancellation is cooperative, checked at import-loading boundaries
	if err := ctx.Err(); err != nil {
		return err
	}

	sr, err := u.resolver.FindImport(importerPath, importPath)
	if err != nil {
		reportErr := u.handler.HandleErrorf(pos, "failed to import %q: %v", importPath, err)
		if reportErr != nil {
			return reportErr
		}
		return reporter.Errorf(pos, "failed to import %q: %v", importPath, err)
	}

	canonical := sr.CanonicalPath
	if canonical == "" {
		canonical = importPath
	}
	if u.visited[canonical] {
		u.closeSource(sr)
		return nil
	}
	u.visited[canonical] = true

	file, err := u.parse(canonical, sr)
	if err != nil {
		return err
	}
	if isRoot {
		u.root = file
	}

	res, err := parser.ResultFromAST(file, u.handler)
	if err != nil {
		return err
	}

	if !u.ignoreImports {
		for _, imp := range file.Imports {
			if err := u.load(ctx, canonical, imp.Path, imp.Pos, false); err != nil {
				return err
			}
		}
	}

	u.loaded = append(u.loaded, res)
	return nil
}

// parse reads and parses one file, closing the source before returning so
// no handle stays open while the rest of the unit is analyzed.
func (u *unit) parse(canonical string, sr SearchResult) (*ast.File, error) {
	defer u.closeSource(sr)
	return parser.Parse(canonical, sr.Source, u.handler)
}

func (u *unit) closeSource(sr SearchResult) {
	if c, ok := sr.Source.(io.Closer); ok {
		_ = c.Close()
	}
}
