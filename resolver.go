package bondcompile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Resolver locates Bond source, both for the root files handed to the
// compiler and for the imports they declare. Import paths are interpreted
// relative to the importing file; the resolver reports the canonical path it
// found the content under, which is what makes import loading idempotent
// per file.
type Resolver interface {
	// FindImport resolves importPath relative to the file at importerPath.
	// importerPath is empty when resolving a root file.
	FindImport(importerPath, importPath string) (SearchResult, error)
}

// SearchResult is content found by a Resolver. CanonicalPath identifies the
// file for cycle detection and re-import collapsing; two imports that reach
// the same file must report the same canonical path. If the Source is an
// io.Closer it is closed as soon as the file has been read.
type SearchResult struct {
	CanonicalPath string
	Source        io.Reader
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(importerPath, importPath string) (SearchResult, error)

var _ Resolver = ResolverFunc(nil)

func (f ResolverFunc) FindImport(importerPath, importPath string) (SearchResult, error) {
	return f(importerPath, importPath)
}

// CompositeResolver tries each resolver in order, returning the first
// success. If all fail, the first error is returned.
type CompositeResolver []Resolver

var _ Resolver = CompositeResolver(nil)

func (c CompositeResolver) FindImport(importerPath, importPath string) (SearchResult, error) {
	if len(c) == 0 {
		return SearchResult{}, fmt.Errorf("import %q: no resolver configured", importPath)
	}
	var firstErr error
	for _, res := range c {
		r, err := res.FindImport(importerPath, importPath)
		if err == nil {
			return r, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return SearchResult{}, firstErr
}

// SourceResolver resolves files against the file system: imports relative to
// the importing file first, then each of the configured ImportPaths.
type SourceResolver struct {
	// ImportPaths are additional directories searched after the importing
	// file's own directory.
	ImportPaths []string
	// Accessor opens a candidate path. If nil, os.Open is used. Supplying an
	// Accessor allows compiling from sources other than the local file
	// system, such as a virtual tree or an old VCS revision.
	Accessor func(path string) (io.ReadCloser, error)
}

var _ Resolver = (*SourceResolver)(nil)

func (r *SourceResolver) FindImport(importerPath, importPath string) (SearchResult, error) {
	var candidates []string
	if importerPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(importerPath), importPath))
	} else {
		candidates = append(candidates, importPath)
	}
	for _, dir := range r.ImportPaths {
		candidates = append(candidates, filepath.Join(dir, importPath))
	}

	var firstErr error
	for _, candidate := range candidates {
		reader, err := r.open(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			return SearchResult{}, err
		}
		return SearchResult{CanonicalPath: canonicalPath(candidate), Source: reader}, nil
	}
	return SearchResult{}, firstErr
}

func (r *SourceResolver) open(path string) (io.ReadCloser, error) {
	if r.Accessor != nil {
		return r.Accessor(path)
	}
	return os.Open(path)
}

func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// memoryResolver serves a single in-memory file under its virtual path and
// delegates everything else. It backs ParseString and ParseContent.
type memoryResolver struct {
	path    string
	content string
	next    Resolver
}

func (m *memoryResolver) FindImport(importerPath, importPath string) (SearchResult, error) {
	if importPath == m.path {
		return SearchResult{CanonicalPath: m.path, Source: strings.NewReader(m.content)}, nil
	}
	if m.next == nil {
		return SearchResult{}, fmt.Errorf("import %q: no resolver configured", importPath)
	}
	// imports of the virtual file resolve as if it lived at its virtual path
	return m.next.FindImport(importerPath, importPath)
}
