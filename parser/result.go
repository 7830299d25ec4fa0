package parser

import (
	"sort"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/reporter"
)

// Result is the artifact of parsing and normalizing a single file. It is the
// input to the linker.
type Result interface {
	// AST returns the normalized syntax tree: struct fields are in ascending
	// ordinal order, and fields whose default is nothing have their declared
	// type wrapped in Maybe.
	AST() *ast.File
}

type result struct {
	file *ast.File
}

func (r *result) AST() *ast.File { return r.file }

// ResultFromAST applies the normalization policies to a freshly parsed
// file. It reports nothing itself; the handler is accepted so future
// normalization checks have somewhere to send diagnostics.
func ResultFromAST(file *ast.File, handler *reporter.Handler) (Result, error) {
	for _, decl := range file.Decls {
		s, ok := decl.(*ast.Struct)
		if !ok {
			continue
		}
		for _, f := range s.Fields {
			if _, ok := f.Default.(ast.DefaultNothing); ok {
				if _, wrapped := f.Type.(*ast.Maybe); !wrapped {
					f.Type = &ast.Maybe{Element: f.Type}
				}
			}
		}
		// fields are matched by ordinal everywhere downstream; sorting here
		// once means the linker and the compatibility checker never re-sort
		sort.SliceStable(s.Fields, func(i, j int) bool {
			return s.Fields[i].Ordinal < s.Fields[j].Ordinal
		})
	}
	return &result{file: file}, nil
}
