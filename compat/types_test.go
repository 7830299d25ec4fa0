package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bondbuild/bondcompile/ast"
)

func enumDecl(name string) *ast.Enum {
	return &ast.Enum{
		DeclBase: ast.DeclBase{
			Name:       name,
			Namespaces: []*ast.Namespace{{Parts: []string{"test"}}},
		},
		Constants: []*ast.EnumConstant{{Name: "A"}},
	}
}

func TestClassifyTypeChange(t *testing.T) {
	enum := &ast.UserDefined{Decl: enumDecl("E")}

	testCases := []struct {
		name     string
		old, new ast.Type
		want     Category
	}{
		{"float to double", ast.Float, ast.Double, Compatible},
		{"double to float", ast.Double, ast.Float, BreakingWire},
		{"uint8 to uint16", ast.UInt8, ast.UInt16, Compatible},
		{"uint8 to uint32", ast.UInt8, ast.UInt32, Compatible},
		{"uint8 to uint64", ast.UInt8, ast.UInt64, Compatible},
		{"uint16 to uint32", ast.UInt16, ast.UInt32, Compatible},
		{"uint16 to uint64", ast.UInt16, ast.UInt64, Compatible},
		{"uint32 to uint64", ast.UInt32, ast.UInt64, Compatible},
		{"uint64 to uint32", ast.UInt64, ast.UInt32, BreakingWire},
		{"int8 to int16", ast.Int8, ast.Int16, Compatible},
		{"int8 to int64", ast.Int8, ast.Int64, Compatible},
		{"int16 to int32", ast.Int16, ast.Int32, Compatible},
		{"int32 to int64", ast.Int32, ast.Int64, Compatible},
		{"int64 to int32", ast.Int64, ast.Int32, BreakingWire},
		{"int8 to uint8", ast.Int8, ast.UInt8, BreakingWire},
		{"uint16 to int32", ast.UInt16, ast.Int32, BreakingWire},
		{"int32 to string", ast.Int32, ast.String, BreakingWire},
		{"string to wstring", ast.String, ast.WString, BreakingWire},

		{"int32 to enum", ast.Int32, enum, Compatible},
		{"enum to int32", enum, ast.Int32, Compatible},
		{"int8 to enum", ast.Int8, enum, Compatible},
		{"int16 to enum", ast.Int16, enum, Compatible},
		{"int64 to enum", ast.Int64, enum, BreakingWire},
		{"enum to int8", enum, ast.Int8, BreakingWire},

		{
			"vector to list",
			&ast.Vector{Element: ast.String},
			&ast.List{Element: ast.String},
			Compatible,
		},
		{
			"list to vector",
			&ast.List{Element: ast.String},
			&ast.Vector{Element: ast.String},
			Compatible,
		},
		{
			"vector to list with different element",
			&ast.Vector{Element: ast.String},
			&ast.List{Element: ast.Int32},
			BreakingWire,
		},
		{"blob to vector int8", ast.Blob, &ast.Vector{Element: ast.Int8}, Compatible},
		{"blob to list int8", ast.Blob, &ast.List{Element: ast.Int8}, Compatible},
		{"vector int8 to blob", &ast.Vector{Element: ast.Int8}, ast.Blob, Compatible},
		{"list int8 to blob", &ast.List{Element: ast.Int8}, ast.Blob, Compatible},
		{"blob to vector int16", ast.Blob, &ast.Vector{Element: ast.Int16}, BreakingWire},

		{
			"bonded unwrap",
			&ast.Bonded{Element: &ast.UserDefined{Decl: enumDecl("E")}},
			&ast.UserDefined{Decl: enumDecl("E")},
			Compatible,
		},
		{
			"bonded wrap",
			&ast.UserDefined{Decl: enumDecl("E")},
			&ast.Bonded{Element: &ast.UserDefined{Decl: enumDecl("E")}},
			Compatible,
		},

		{
			"map value change",
			&ast.Map{Key: ast.String, Value: ast.Int32},
			&ast.Map{Key: ast.String, Value: ast.Int64},
			BreakingWire,
		},
		{"nullable added", ast.String, &ast.Nullable{Element: ast.String}, BreakingWire},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := classifyTypeChange(tc.old, tc.new)
			assert.Equal(t, tc.want, got, "%s -> %s", tc.old, tc.new)
		})
	}
}

func TestEnumPromotionRecommendsRollout(t *testing.T) {
	enum := &ast.UserDefined{Decl: enumDecl("E")}
	cat, rec := classifyTypeChange(ast.Int8, enum)
	assert.Equal(t, Compatible, cat)
	assert.NotEmpty(t, rec)

	cat, rec = classifyTypeChange(ast.Int32, enum)
	assert.Equal(t, Compatible, cat)
	assert.Empty(t, rec)
}
