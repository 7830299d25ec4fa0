package compat_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bondbuild/bondcompile"
	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/compat"
)

func compile(t *testing.T, src string) *ast.File {
	t.Helper()
	res := bondcompile.ParseString(context.Background(), src, nil)
	require.True(t, res.Success, "schema failed to compile: %v", res.Errors)
	return res.AST
}

func check(t *testing.T, oldSrc, newSrc string) []compat.Change {
	t.Helper()
	return compat.Check(compile(t, oldSrc), compile(t, newSrc))
}

func categories(changes []compat.Change) map[compat.Category]int {
	counts := map[compat.Category]int{}
	for _, c := range changes {
		counts[c.Category]++
	}
	return counts
}

func TestIdenticalSchemasProduceNoChanges(t *testing.T) {
	src := `
namespace example

enum Kind { A, B = 5, C }

struct Record {
    0: required string id;
    1: optional int32 count = 7;
    2: optional vector<double> samples;
}

service Svc {
    void Reset();
}

using Items = vector<int32>;
`
	file := compile(t, src)
	assert.Empty(t, compat.Check(file, file))
	// and across two independent compilations of the same source
	assert.Empty(t, compat.Check(compile(t, src), compile(t, src)))
}

func TestCheckIsDeterministic(t *testing.T) {
	oldSrc := `
namespace example
enum E { A, B }
struct S {
    0: required string id;
    1: optional int32 n;
}
`
	newSrc := `
namespace example
enum E { A, X, B }
struct S {
    0: required string identifier;
    2: required int64 n;
}
`
	first := check(t, oldSrc, newSrc)
	second := check(t, oldSrc, newSrc)
	assert.Empty(t, cmp.Diff(first, second))
	require.NotEmpty(t, first)
}

func TestAddOptionalFieldIsCompatible(t *testing.T) {
	changes := check(t, `
namespace T
struct U { 0: required string id; }
`, `
namespace T
struct U {
    0: required string id;
    1: optional string email;
}
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.Compatible, changes[0].Category)
	assert.Contains(t, changes[0].Description, "email")
}

func TestOrdinalChangeIsRemovePlusAdd(t *testing.T) {
	changes := check(t, `
namespace T
struct U { 0: required string id; }
`, `
namespace T
struct U { 1: required string id; }
`)
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, compat.BreakingWire, c.Category)
	}
	assert.Contains(t, changes[0].Description, "removed")
	assert.Contains(t, changes[1].Description, "added")
}

func TestVectorListChangeIsCompatible(t *testing.T) {
	changes := check(t, `
namespace T
struct U { 0: required vector<string> tags; }
`, `
namespace T
struct U { 0: required list<string> tags; }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.Compatible, changes[0].Category)
	assert.Contains(t, changes[0].Description, "vector")
	assert.Contains(t, changes[0].Description, "list")
}

func TestEnumMiddleInsertionIsBreaking(t *testing.T) {
	changes := check(t, `
namespace T
enum S { A, B, C }
`, `
namespace T
enum S { A, X, B, C }
`)
	counts := categories(changes)
	assert.Greater(t, counts[compat.BreakingWire], 0)
}

func TestEnumAppendIsCompatible(t *testing.T) {
	changes := check(t, `
namespace T
enum S { A, B }
`, `
namespace T
enum S { A, B, C }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.Compatible, changes[0].Category)
	assert.Contains(t, changes[0].Description, "C")
}

func TestEnumExplicitValueInsertIsCompatible(t *testing.T) {
	// inserting with an explicit value shifts nothing
	changes := check(t, `
namespace T
enum S { A, B = 10 }
`, `
namespace T
enum S { A, X = 5, B = 10 }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.Compatible, changes[0].Category)
}

func TestEnumValueChangeIsBreaking(t *testing.T) {
	changes := check(t, `
namespace T
enum S { A = 1 }
`, `
namespace T
enum S { A = 2 }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.BreakingWire, changes[0].Category)
	assert.Contains(t, changes[0].Description, "1")
	assert.Contains(t, changes[0].Description, "2")
}

func TestEnumConstantRemovalIsBreaking(t *testing.T) {
	changes := check(t, `
namespace T
enum S { A, B }
`, `
namespace T
enum S { A }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.BreakingWire, changes[0].Category)
	assert.Contains(t, changes[0].Description, "removed")
}

func TestAliasRewriteIsNotBreaking(t *testing.T) {
	changes := check(t, `
namespace T
using Items = vector<int32>;
struct U { 0: optional Items items; }
`, `
namespace T
using Items = list<int32>;
struct U { 0: optional Items items; }
`)
	counts := categories(changes)
	assert.Zero(t, counts[compat.BreakingWire])
}

func TestFieldNameChangeIsTextBreaking(t *testing.T) {
	changes := check(t, `
namespace T
struct U { 0: required string id; }
`, `
namespace T
struct U { 0: required string identifier; }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.BreakingText, changes[0].Category)
	assert.Contains(t, changes[0].Description, "id")
	assert.Contains(t, changes[0].Description, "identifier")
}

func TestModifierMatrix(t *testing.T) {
	structWith := func(modifier string) string {
		return "namespace T\nstruct U { 0: " + modifier + " string id; }\n"
	}
	testCases := []struct {
		from, to string
		want     compat.Category
	}{
		{"optional", "required", compat.BreakingWire},
		{"required", "optional", compat.BreakingWire},
		{"optional", "required_optional", compat.Compatible},
		{"required_optional", "required", compat.Compatible},
		{"required", "required_optional", compat.Compatible},
		{"required_optional", "optional", compat.Compatible},
	}
	for _, tc := range testCases {
		t.Run(tc.from+" to "+tc.to, func(t *testing.T) {
			changes := check(t, structWith(tc.from), structWith(tc.to))
			require.Len(t, changes, 1)
			assert.Equal(t, tc.want, changes[0].Category)
			// both the breaking direct change and the safe two-step carry
			// the migration recommendation
			assert.NotEmpty(t, changes[0].Recommendation)
		})
	}
}

func TestDefaultValueChangeIsBreaking(t *testing.T) {
	changes := check(t, `
namespace T
struct U { 0: optional int32 n = 1; }
`, `
namespace T
struct U { 0: optional int32 n = 2; }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.BreakingWire, changes[0].Category)
	assert.Contains(t, changes[0].Description, "default")
}

func TestFloatAndIntegerDefaultsAreDistinct(t *testing.T) {
	// 1.0 and 1 print identically but are different defaults
	changes := check(t, `
namespace T
struct U { 0: optional double d = 1; }
`, `
namespace T
struct U { 0: optional double d = 1.0; }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.BreakingWire, changes[0].Category)
}

func TestBaseTypeChangeIsBreaking(t *testing.T) {
	changes := check(t, `
namespace T
struct Base { 0: optional int32 x; }
struct U : Base { 1: optional int32 y; }
`, `
namespace T
struct Base { 0: optional int32 x; }
struct U { 1: optional int32 y; }
`)
	counts := categories(changes)
	assert.Greater(t, counts[compat.BreakingWire], 0)
}

func TestDeclarationRemovedAndAdded(t *testing.T) {
	changes := check(t, `
namespace T
struct Old { 0: optional int32 x; }
`, `
namespace T
struct New { 0: optional int32 x; }
`)
	require.Len(t, changes, 2)
	// sorted by qualified name: T.New precedes T.Old
	assert.Equal(t, compat.Compatible, changes[0].Category)
	assert.Contains(t, changes[0].Description, "added")
	assert.Equal(t, compat.BreakingWire, changes[1].Category)
	assert.Contains(t, changes[1].Description, "removed")
}

func TestDeclarationKindChangeIsBreaking(t *testing.T) {
	changes := check(t, `
namespace T
struct S { 0: optional int32 x; }
`, `
namespace T
enum S { A }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.BreakingWire, changes[0].Category)
}

func TestRequiredFieldRemovalIsBreaking(t *testing.T) {
	changes := check(t, `
namespace T
struct U {
    0: required string id;
    1: optional int32 n;
}
`, `
namespace T
struct U { 1: optional int32 n; }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.BreakingWire, changes[0].Category)
}

func TestOptionalFieldRemovalIsCompatible(t *testing.T) {
	changes := check(t, `
namespace T
struct U {
    0: required string id;
    1: optional int32 n;
}
`, `
namespace T
struct U { 0: required string id; }
`)
	require.Len(t, changes, 1)
	assert.Equal(t, compat.Compatible, changes[0].Category)
}

func TestServiceDiff(t *testing.T) {
	oldSrc := `
namespace T
struct In { 0: optional int32 x; }
struct Out { 0: optional int32 y; }
service Svc {
    Out Call(In);
    void Gone();
}
`
	newSrc := `
namespace T
struct In { 0: optional int32 x; }
struct Out { 0: optional int32 y; }
service Svc {
    Out Call(stream In);
    void Added();
}
`
	changes := check(t, oldSrc, newSrc)
	byDescription := map[compat.Category][]string{}
	for _, c := range changes {
		byDescription[c.Category] = append(byDescription[c.Category], c.Description)
	}
	require.Len(t, byDescription[compat.BreakingWire], 2)
	require.Len(t, byDescription[compat.Compatible], 1)
}

// yamlCase is one corpus entry in testdata/cases.yaml.
type yamlCase struct {
	Name   string `yaml:"name"`
	Old    string `yaml:"old"`
	New    string `yaml:"new"`
	Expect []struct {
		Category string `yaml:"category"`
		Contains string `yaml:"contains"`
	} `yaml:"expect"`
}

func TestYAMLCases(t *testing.T) {
	data, err := os.ReadFile("testdata/cases.yaml")
	require.NoError(t, err)

	var cases []yamlCase
	require.NoError(t, yaml.Unmarshal(data, &cases))
	require.NotEmpty(t, cases)

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			changes := check(t, tc.Old, tc.New)
			require.Len(t, changes, len(tc.Expect))
			for i, exp := range tc.Expect {
				assert.Equal(t, exp.Category, changes[i].Category.String(), "change %d", i)
				assert.Contains(t, changes[i].Description, exp.Contains, "change %d", i)
			}
		})
	}
}
