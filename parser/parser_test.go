package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/reporter"
)

func parseString(t *testing.T, src string) (*ast.File, *reporter.Handler, error) {
	t.Helper()
	handler := reporter.NewHandler(reporter.NewReporter(
		func(reporter.ErrorWithPos) error { return nil },
		nil,
	))
	file, err := Parse("test.bond", strings.NewReader(src), handler)
	return file, handler, err
}

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	file, handler, err := parseString(t, src)
	require.NoError(t, err)
	require.Empty(t, handler.Errors())
	res, err := ResultFromAST(file, handler)
	require.NoError(t, err)
	return res.AST()
}

func TestParseFileShape(t *testing.T) {
	file := mustParse(t, `
import "common.bond"
import "other.bond";

namespace cpp example.detail
namespace csharp Example.Detail
namespace java com.example.detail

struct Empty {}
`)
	require.Len(t, file.Imports, 2)
	assert.Equal(t, "common.bond", file.Imports[0].Path)
	assert.Equal(t, "other.bond", file.Imports[1].Path)

	require.Len(t, file.Namespaces, 3)
	assert.Equal(t, "cpp", file.Namespaces[0].Lang)
	assert.Equal(t, "example.detail", file.Namespaces[0].Name())
	// the csharp spelling normalizes to cs
	assert.Equal(t, "cs", file.Namespaces[1].Lang)
	assert.Equal(t, "java", file.Namespaces[2].Lang)

	require.Len(t, file.Decls, 1)
	s, ok := file.Decls[0].(*ast.Struct)
	require.True(t, ok)
	assert.Equal(t, "Empty", s.Name)
	assert.Equal(t, "example.detail.Empty", s.QualifiedName())
}

func TestParseUnqualifiedNamespaceNamedLikeLang(t *testing.T) {
	// "cpp" here is the namespace name, not a language tag
	file := mustParse(t, "namespace cpp\nstruct S {}\n")
	require.Len(t, file.Namespaces, 1)
	assert.Equal(t, "", file.Namespaces[0].Lang)
	assert.Equal(t, "cpp", file.Namespaces[0].Name())
}

func TestParseStructFields(t *testing.T) {
	file := mustParse(t, `
namespace example

struct Record {
    2: optional int32 count = 7;
    0: required string id;
    1: optional nullable<list<double>> samples;
    3: optional vector<int8> payload = nothing;
    5: required_optional map<string, bool> flags;
}
`)
	s := file.Decls[0].(*ast.Struct)
	require.Len(t, s.Fields, 5)

	// fields are reordered by ascending ordinal
	ordinals := make([]uint16, len(s.Fields))
	for i, f := range s.Fields {
		ordinals[i] = f.Ordinal
	}
	assert.Equal(t, []uint16{0, 1, 2, 3, 5}, ordinals)

	id := s.Fields[0]
	assert.Equal(t, ast.Required, id.Modifier)
	assert.Equal(t, ast.String, id.Type)
	assert.Nil(t, id.Default)

	samples := s.Fields[1]
	nullable, ok := samples.Type.(*ast.Nullable)
	require.True(t, ok)
	list, ok := nullable.Element.(*ast.List)
	require.True(t, ok)
	assert.Equal(t, ast.Double, list.Element)

	count := s.Fields[2]
	assert.Equal(t, ast.DefaultInteger{Value: 7}, count.Default)

	// a nothing default wraps the declared type in Maybe
	payload := s.Fields[3]
	maybe, ok := payload.Type.(*ast.Maybe)
	require.True(t, ok)
	vector, ok := maybe.Element.(*ast.Vector)
	require.True(t, ok)
	assert.Equal(t, ast.Int8, vector.Element)
	assert.Equal(t, ast.DefaultNothing{}, payload.Default)

	flags := s.Fields[4]
	assert.Equal(t, ast.RequiredOptional, flags.Modifier)
	m, ok := flags.Type.(*ast.Map)
	require.True(t, ok)
	assert.Equal(t, ast.String, m.Key)
	assert.Equal(t, ast.Bool, m.Value)
}

func TestParseStructBaseAndAttributes(t *testing.T) {
	file := mustParse(t, `
namespace example

[Validate("true")]
struct Derived : example.Base {
    [Description("how many")]
    0: optional int32 n;
}
`)
	s := file.Decls[0].(*ast.Struct)
	base, ok := s.Base.(*ast.UnresolvedUserType)
	require.True(t, ok)
	assert.Equal(t, "example.Base", base.Name.String())

	require.Len(t, s.Attributes, 1)
	assert.Equal(t, "Validate", s.Attributes[0].Name.String())
	assert.Equal(t, "true", s.Attributes[0].Value)

	require.Len(t, s.Fields[0].Attributes, 1)
	assert.Equal(t, "Description", s.Fields[0].Attributes[0].Name.String())
}

func TestParseGenerics(t *testing.T) {
	file := mustParse(t, `
namespace example

struct Box<T, U : value> {
    0: optional T contents;
    1: optional list<U> extras;
}

using Pair<K> = map<K, string>;
`)
	s := file.Decls[0].(*ast.Struct)
	require.Len(t, s.TypeParams, 2)
	assert.Equal(t, "T", s.TypeParams[0].Name)
	assert.True(t, s.TypeParams[1].ValueConstraint)

	// a single-segment reference to an enclosing parameter is a parameter
	// reference, not a named type
	ref, ok := s.Fields[0].Type.(*ast.TypeParamRef)
	require.True(t, ok)
	assert.Same(t, s.TypeParams[0], ref.Param)

	list := s.Fields[1].Type.(*ast.List)
	inner, ok := list.Element.(*ast.TypeParamRef)
	require.True(t, ok)
	assert.Same(t, s.TypeParams[1], inner.Param)

	alias := file.Decls[1].(*ast.Alias)
	m := alias.Aliased.(*ast.Map)
	keyRef, ok := m.Key.(*ast.TypeParamRef)
	require.True(t, ok)
	assert.Same(t, alias.TypeParams[0], keyRef.Param)
}

func TestParseForward(t *testing.T) {
	file := mustParse(t, `
namespace example

struct Node<T>;

struct Holder {
    0: optional bonded<example.Node<int32>> node;
}
`)
	fwd, ok := file.Decls[0].(*ast.Forward)
	require.True(t, ok)
	assert.Equal(t, "Node", fwd.Name)
	require.Len(t, fwd.TypeParams, 1)

	holder := file.Decls[1].(*ast.Struct)
	bonded := holder.Fields[0].Type.(*ast.Bonded)
	inner := bonded.Element.(*ast.UnresolvedUserType)
	assert.Equal(t, "example.Node", inner.Name.String())
	require.Len(t, inner.Args, 1)
	assert.Equal(t, ast.Int32, inner.Args[0])
}

func TestParseEnum(t *testing.T) {
	file := mustParse(t, `
namespace example

enum Color {
    Red,
    Green = 5;
    Blue,
    Max = 0x7FFFFFFF,
}

enum Negative { Low = -2, High }
`)
	color := file.Decls[0].(*ast.Enum)
	require.Len(t, color.Constants, 4)
	assert.Nil(t, color.Constants[0].Value)
	require.NotNil(t, color.Constants[1].Value)
	assert.Equal(t, int64(5), *color.Constants[1].Value)
	require.NotNil(t, color.Constants[3].Value)
	assert.Equal(t, int64(0x7FFFFFFF), *color.Constants[3].Value)

	values := ast.EnumConstantValues(color)
	assert.Equal(t, int64(0), values["Red"])
	assert.Equal(t, int64(5), values["Green"])
	assert.Equal(t, int64(6), values["Blue"])

	negative := file.Decls[1].(*ast.Enum)
	values = ast.EnumConstantValues(negative)
	assert.Equal(t, int64(-2), values["Low"])
	assert.Equal(t, int64(-1), values["High"])
}

func TestParseService(t *testing.T) {
	file := mustParse(t, `
namespace example

service Calculator : example.BaseService {
    Result Add(Input);
    void Reset();
    stream Result Monitor(stream Input);
    nothing Log(Input);
}
`)
	svc := file.Decls[0].(*ast.Service)
	require.Len(t, svc.Methods, 4)

	add := svc.Methods[0].(*ast.Function)
	assert.Equal(t, "Add", add.Name)
	_, ok := add.Result.(*ast.Unary)
	assert.True(t, ok)
	_, ok = add.Input.(*ast.Unary)
	assert.True(t, ok)

	reset := svc.Methods[1].(*ast.Function)
	assert.Equal(t, ast.Void{}, reset.Result)
	assert.Equal(t, ast.Void{}, reset.Input)

	monitor := svc.Methods[2].(*ast.Function)
	_, ok = monitor.Result.(*ast.Streaming)
	assert.True(t, ok)
	_, ok = monitor.Input.(*ast.Streaming)
	assert.True(t, ok)

	log, ok := svc.Methods[3].(*ast.Event)
	require.True(t, ok)
	_, ok = log.Input.(*ast.Unary)
	assert.True(t, ok)
}

func TestParseMetaFields(t *testing.T) {
	file := mustParse(t, `
namespace example

struct Described {
    0: optional bond_meta::name name;
    1: optional bond_meta::full_name fullName;
}
`)
	s := file.Decls[0].(*ast.Struct)
	_, ok := s.Fields[0].Type.(*ast.MetaName)
	assert.True(t, ok)
	_, ok = s.Fields[1].Type.(*ast.MetaFullName)
	assert.True(t, ok)
}

func TestParseDefaults(t *testing.T) {
	file := mustParse(t, `
namespace example

struct Defaults {
    0: optional bool flag = true;
    1: optional double ratio = -2.5;
    2: optional int64 big = -42;
    3: optional string label = "hi";
    4: optional wstring wide = L"there";
}
`)
	s := file.Decls[0].(*ast.Struct)
	assert.Equal(t, ast.DefaultBool{Value: true}, s.Fields[0].Default)
	assert.Equal(t, ast.DefaultFloat{Value: -2.5}, s.Fields[1].Default)
	assert.Equal(t, ast.DefaultInteger{Value: -42}, s.Fields[2].Default)
	assert.Equal(t, ast.DefaultString{Value: "hi"}, s.Fields[3].Default)
	assert.Equal(t, ast.DefaultString{Value: "there", Wide: true}, s.Fields[4].Default)
}

func TestParseViewRejected(t *testing.T) {
	src := `
namespace example

struct Full {
    0: optional int32 a;
    1: optional int32 b;
}

struct Partial view_of example.Full {
    a, b
};
`
	file, handler, err := parseString(t, src)
	require.NoError(t, err)
	require.NotNil(t, file)

	errs := handler.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "view_of declarations are not supported")
	assert.Greater(t, errs[0].GetPosition().Line, 0)
	// the rejected view contributes no declaration
	require.Len(t, file.Decls, 1)
}

func TestParseSyntaxErrorAbandonsFile(t *testing.T) {
	file, handler, err := parseString(t, `
namespace example
struct Broken {
    0: optional int32
}
`)
	require.Error(t, err)
	assert.Nil(t, file)
	require.NotEmpty(t, handler.Errors())
	pos := handler.Errors()[0].GetPosition()
	assert.Greater(t, pos.Line, 0)
	assert.Greater(t, pos.Col, 0)
}

func TestParseMissingNamespace(t *testing.T) {
	file, _, err := parseString(t, "struct S {}\n")
	require.Error(t, err)
	assert.Nil(t, file)
	assert.Contains(t, err.Error(), "namespace")
}

func TestParseOrdinalOutOfRange(t *testing.T) {
	_, handler, err := parseString(t, `
namespace example
struct S {
    70000: optional int32 x;
}
`)
	require.NoError(t, err)
	errs := handler.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "out of range")
}
