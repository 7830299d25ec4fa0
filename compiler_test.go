package bondcompile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/walk"
)

// mapResolver serves a fixed set of in-memory files, resolving import paths
// by bare name. It counts how often each path is resolved (one count per
// FindImport call).
type mapResolver struct {
	files map[string]string

	mu    sync.Mutex
	opens map[string]int
}

func (m *mapResolver) FindImport(importerPath, importPath string) (SearchResult, error) {
	content, ok := m.files[importPath]
	if !ok {
		return SearchResult{}, fmt.Errorf("file not found: %s", importPath)
	}
	m.mu.Lock()
	if m.opens == nil {
		m.opens = map[string]int{}
	}
	m.opens[importPath]++
	m.mu.Unlock()
	return SearchResult{CanonicalPath: importPath, Source: strings.NewReader(content)}, nil
}

func requireNoUnresolved(t *testing.T, file *ast.File) {
	t.Helper()
	for _, decl := range file.Decls {
		err := walk.DeclTypes(decl, func(typ ast.Type) error {
			if u, ok := typ.(*ast.UnresolvedUserType); ok {
				t.Fatalf("unresolved type %s reachable from %s", u.Name, decl.DeclName())
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestParseStringBasic(t *testing.T) {
	res := ParseString(context.Background(), `
namespace example

struct Point {
    0: required double x;
    1: required double y;
}
`, nil)
	require.True(t, res.Success, "errors: %v", res.Errors)
	require.NotNil(t, res.AST)
	assert.Empty(t, res.Errors)
	requireNoUnresolved(t, res.AST)
}

func TestParseStringSyntaxError(t *testing.T) {
	res := ParseString(context.Background(), `
namespace example
struct Broken {
`, nil)
	assert.False(t, res.Success)
	// on parse errors no AST is returned
	assert.Nil(t, res.AST)
	require.NotEmpty(t, res.Errors)
	assert.Greater(t, res.Errors[0].Line, 0)
	assert.Greater(t, res.Errors[0].Col, 0)
	assert.Equal(t, "<input>", res.Errors[0].FilePath)
}

func TestParseStringSemanticErrorKeepsPartialAST(t *testing.T) {
	res := ParseString(context.Background(), `
namespace example

enum S { A = 0 }

struct U {
    0: optional S f;
}
`, nil)
	assert.False(t, res.Success)
	// semantic errors still produce a best-effort AST
	require.NotNil(t, res.AST)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "must have a default value")
	assert.Greater(t, res.Errors[0].Line, 0)
}

func TestParseContentWithImports(t *testing.T) {
	resolver := &mapResolver{files: map[string]string{
		"common.bond": `
namespace common

struct Header {
    0: required string id;
}
`,
	}}
	res := ParseContent(context.Background(), `
import "common.bond"

namespace example

struct Envelope {
    0: optional common.Header header;
}
`, "envelope.bond", resolver, nil)
	require.True(t, res.Success, "errors: %v", res.Errors)
	requireNoUnresolved(t, res.AST)
	assert.Equal(t, 1, resolver.opens["common.bond"])
}

func TestImportsLoadedOncePerPath(t *testing.T) {
	resolver := &mapResolver{files: map[string]string{
		"a.bond": `
import "shared.bond"
namespace a
struct A { 0: optional shared.S s; }
`,
		"b.bond": `
import "shared.bond"
namespace b
struct B { 0: optional shared.S s; }
`,
		"shared.bond": `
namespace shared
struct S { 0: optional int32 x; }
`,
		"root.bond": `
import "a.bond"
import "b.bond"
namespace root
struct R {
    0: optional a.A a;
    1: optional b.B b;
}
`,
	}}
	res := ParseFile(context.Background(), "root.bond", resolver, nil)
	require.True(t, res.Success, "errors: %v", res.Errors)
	requireNoUnresolved(t, res.AST)
	// the resolver is asked once per import statement (a.bond and b.bond each
	// import shared.bond), since only it reports the canonical path; the
	// second lookup finds that path already visited and does not parse it again
	assert.Equal(t, 2, resolver.opens["shared.bond"])
}

func TestCircularImportsTerminate(t *testing.T) {
	resolver := &mapResolver{files: map[string]string{
		"a.bond": `
import "b.bond"
namespace a
struct A { 0: optional nullable<b.B> b; }
`,
		"b.bond": `
import "a.bond"
namespace b
struct B { 0: optional nullable<a.A> a; }
`,
	}}
	for _, root := range []string{"a.bond", "b.bond"} {
		res := ParseFile(context.Background(), root, resolver, nil)
		require.True(t, res.Success, "root %s errors: %v", root, res.Errors)
		require.NotNil(t, res.AST)
		requireNoUnresolved(t, res.AST)
	}
}

func TestImportFailure(t *testing.T) {
	res := ParseString(context.Background(), `
import "no_such_file.bond"
namespace example
struct S { 0: optional int32 x; }
`, nil)
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0].Message, "no_such_file.bond")
}

func TestIgnoreImports(t *testing.T) {
	src := `
import "no_such_file.bond"
namespace example
struct S { 0: optional int32 x; }
`
	res := ParseString(context.Background(), src, &Options{IgnoreImports: true})
	require.True(t, res.Success, "errors: %v", res.Errors)
	require.NotNil(t, res.AST)
	// the import statement still surfaces in the AST
	require.Len(t, res.AST.Imports, 1)
	assert.Equal(t, "no_such_file.bond", res.AST.Imports[0].Path)
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := ParseString(ctx, "namespace example\nstruct S {}\n", nil)
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0].Message, "context canceled")
}

func TestCompilerCompileMultipleRoots(t *testing.T) {
	resolver := &mapResolver{files: map[string]string{
		"one.bond": `
namespace one
struct A { 0: optional int32 x; }
`,
		"two.bond": `
namespace two
struct B { 0: optional string y; }
`,
	}}
	c := &Compiler{Resolver: resolver, MaxParallelism: 2}
	files, err := c.Compile(context.Background(), "one.bond", "two.bond")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "one.bond", files[0].Path)
	assert.Equal(t, "two.bond", files[1].Path)
}

func TestCompilerFailsOnFirstErrorByDefault(t *testing.T) {
	resolver := &mapResolver{files: map[string]string{
		"bad.bond": "namespace example\nstruct Broken {\n",
	}}
	c := &Compiler{Resolver: resolver}
	_, err := c.Compile(context.Background(), "bad.bond")
	require.Error(t, err)
}

func TestSourceResolverAccessor(t *testing.T) {
	files := map[string]string{
		"root.bond": `
import "dep.bond"
namespace example
struct S { 0: optional dep.D d; }
`,
		"dep.bond": `
namespace dep
struct D { 0: optional int32 x; }
`,
	}
	resolver := &SourceResolver{
		Accessor: func(path string) (io.ReadCloser, error) {
			content, ok := files[filepath.Base(path)]
			if !ok {
				return nil, os.ErrNotExist
			}
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
	res := ParseFile(context.Background(), "root.bond", resolver, nil)
	require.True(t, res.Success, "errors: %v", res.Errors)
	requireNoUnresolved(t, res.AST)
}
