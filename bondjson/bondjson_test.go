package bondjson_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondbuild/bondcompile"
	"github.com/bondbuild/bondcompile/bondjson"
	"github.com/bondbuild/bondcompile/internal/corpora"
)

func marshalSource(t *testing.T, src string) map[string]interface{} {
	t.Helper()
	res := bondcompile.ParseString(context.Background(), src, nil)
	require.True(t, res.Success, "errors: %v", res.Errors)
	data, err := bondjson.Marshal(res.AST)
	require.NoError(t, err)
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &envelope))
	return envelope
}

func TestMarshalEnvelopeShape(t *testing.T) {
	envelope := marshalSource(t, `
namespace example

struct Item {
    0: required string name;
}
`)
	assert.Contains(t, envelope, "imports")
	assert.Contains(t, envelope, "namespaces")
	assert.Contains(t, envelope, "declarations")

	decls := envelope["declarations"].([]interface{})
	require.Len(t, decls, 1)
	decl := decls[0].(map[string]interface{})
	assert.Equal(t, "Struct", decl["tag"])
	assert.Equal(t, "Item", decl["declName"])

	fields := decl["structFields"].([]interface{})
	require.Len(t, fields, 1)
	field := fields[0].(map[string]interface{})
	assert.Equal(t, "required", field["modifier"])
	assert.Equal(t, map[string]interface{}{"type": "string"}, field["type"])
}

func TestMarshalDefaults(t *testing.T) {
	envelope := marshalSource(t, `
namespace example

enum Kind { A = 0 }

struct D {
    0: optional bool b = true;
    1: optional int32 i = -3;
    2: optional double f = 1.5;
    3: optional string s = "x";
    4: optional Kind k = A;
    5: optional list<int32> l = nothing;
}
`)
	decls := envelope["declarations"].([]interface{})
	d := decls[1].(map[string]interface{})
	fields := d["structFields"].([]interface{})

	wantDefaults := []map[string]interface{}{
		{"type": "bool", "value": true},
		{"type": "integer", "value": float64(-3)},
		{"type": "float", "value": 1.5},
		{"type": "string", "value": "x"},
		{"type": "enum", "value": "A"},
		{"type": "nothing"},
	}
	for i, want := range wantDefaults {
		field := fields[i].(map[string]interface{})
		assert.Equal(t, want, field["default"], "field %d", i)
	}
}

func TestMarshalRejectsUnresolved(t *testing.T) {
	// an AST that skipped resolution still carries named references, which
	// have no stable envelope
	res := bondcompile.ParseString(context.Background(), `
import "missing.bond"
namespace example
struct S { 0: optional other.T t; }
`, &bondcompile.Options{IgnoreImports: true})
	require.NotNil(t, res.AST)
	_, err := bondjson.Marshal(res.AST)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved")
}

func TestCorpus(t *testing.T) {
	corpora.Corpus{
		Root:      "testdata",
		Refresh:   "BONDJSON_REFRESH",
		Extension: "bond",
		Outputs: []corpora.Output{
			{Extension: "json", Compare: compareJSON},
		},
		Test: func(t *testing.T, path, text string) []string {
			res := bondcompile.ParseContent(context.Background(), text, path, nil, nil)
			require.True(t, res.Success, "errors: %v", res.Errors)
			data, err := bondjson.Marshal(res.AST)
			require.NoError(t, err)
			return []string{string(data) + "\n"}
		},
	}.Run(t)
}

// compareJSON compares semantically so golden files need not match the
// marshaler's formatting byte for byte.
func compareJSON(got, want string) string {
	var gotVal, wantVal interface{}
	if err := json.Unmarshal([]byte(got), &gotVal); err != nil {
		return "invalid JSON in result: " + err.Error()
	}
	if err := json.Unmarshal([]byte(want), &wantVal); err != nil {
		return "invalid JSON in golden file: " + err.Error()
	}
	return cmp.Diff(wantVal, gotVal)
}
