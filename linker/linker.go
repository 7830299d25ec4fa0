package linker

import (
	"errors"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/parser"
	"github.com/bondbuild/bondcompile/reporter"
)

// errStopDecl aborts validation of the current declaration without aborting
// the link; remaining declarations are still validated so a single run
// surfaces as many errors as possible.
var errStopDecl = errors.New("declaration validation stopped")

// Link semantically analyzes one compilation unit. The results must be in
// load order: every file precedes the files that import it, except where an
// import cycle forced a break. Symbols from every file are registered before
// any validation or resolution runs, so declaration order across files never
// affects the outcome.
//
// Validation accumulates diagnostics (subject to the handler's reporter);
// type resolution is fail-fast. On success, the files' ASTs have been
// resolved in place: no UnresolvedUserType node remains reachable.
func Link(sym *Symbols, results []parser.Result, handler *reporter.Handler) error {
	if sym == nil {
		sym = &Symbols{}
	}
	l := &linkState{
		sym:      sym,
		handler:  handler,
		scopes:   map[*ast.File]*aliasScope{},
		forwards: map[ast.Declaration]*ast.Forward{},
	}
	for _, r := range results {
		l.files = append(l.files, r.AST())
	}

	// pass 1: alias scopes and global symbol registration
	for _, f := range l.files {
		scope := newAliasScope(nil)
		l.scopes[f] = scope
		for _, decl := range f.Decls {
			if alias, ok := decl.(*ast.Alias); ok {
				if existing := scope.add(alias); existing != nil {
					if err := handler.HandleErrorf(alias.SourcePos(),
						"duplicate definition of %s: previously defined at %v",
						alias.QualifiedName(), existing.SourcePos()); err != nil {
						return err
					}
				}
				continue
			}
			if err := sym.Register(decl, handler); err != nil {
				return err
			}
		}
	}

	// pass 2: validation, accumulating errors per declaration
	for _, f := range l.files {
		if err := l.validateFile(f); err != nil {
			return err
		}
	}

	// pass 3: fixpoint type resolution, fail-fast
	if err := l.resolveAll(); err != nil {
		return err
	}

	return handler.Error()
}

type linkState struct {
	sym     *Symbols
	handler *reporter.Handler
	files   []*ast.File
	scopes  map[*ast.File]*aliasScope
	// forwards caches the synthesized forward declaration that stands in for
	// a struct at its self-referential use sites. Caching keeps the
	// replacement stable across resolution passes.
	forwards map[ast.Declaration]*ast.Forward

	changed bool
}
