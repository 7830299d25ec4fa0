// Package bondjson serializes resolved Bond ASTs into a stable JSON
// envelope: one shape per AST node. The envelope is the compatibility
// surface consumed by golden-file tests and external tooling; changing it
// changes what those consumers see, so additions are fine and renames are
// not.
package bondjson

import (
	"encoding/json"
	"fmt"

	"github.com/bondbuild/bondcompile/ast"
)

// Marshal renders the file as indented JSON.
func Marshal(file *ast.File) ([]byte, error) {
	env, err := fileEnvelope(file)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(env, "", "  ")
}

type fileJSON struct {
	Imports      []string        `json:"imports"`
	Namespaces   []namespaceJSON `json:"namespaces"`
	Declarations []declJSON      `json:"declarations"`
}

type namespaceJSON struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

type declJSON struct {
	Tag             string          `json:"tag"`
	DeclName        string          `json:"declName"`
	DeclNamespaces  []namespaceJSON `json:"declNamespaces"`
	DeclParams      []paramJSON     `json:"declParams,omitempty"`
	DeclAttributes  []attributeJSON `json:"declAttributes,omitempty"`
	StructBase      *typeJSON       `json:"structBase,omitempty"`
	StructFields    []fieldJSON     `json:"structFields,omitempty"`
	EnumConstants   []constantJSON  `json:"enumConstants,omitempty"`
	ServiceBase     *typeJSON       `json:"serviceBase,omitempty"`
	ServiceMethods  []methodJSON    `json:"serviceMethods,omitempty"`
	AliasedType     *typeJSON       `json:"aliasedType,omitempty"`
}

type paramJSON struct {
	Name            string `json:"name"`
	ValueConstraint bool   `json:"valueConstraint,omitempty"`
}

type attributeJSON struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type fieldJSON struct {
	Ordinal    uint16          `json:"ordinal"`
	Modifier   string          `json:"modifier"`
	Type       typeJSON        `json:"type"`
	Name       string          `json:"name"`
	Default    *defaultJSON    `json:"default,omitempty"`
	Attributes []attributeJSON `json:"attributes,omitempty"`
}

type constantJSON struct {
	Name  string `json:"name"`
	Value *int64 `json:"value,omitempty"`
}

type methodJSON struct {
	Tag    string          `json:"tag"`
	Name   string          `json:"name"`
	Result *methodTypeJSON `json:"result,omitempty"`
	Input  methodTypeJSON  `json:"input"`
}

type methodTypeJSON struct {
	Kind string    `json:"kind"`
	Type *typeJSON `json:"type,omitempty"`
}

type typeJSON struct {
	Type        string      `json:"type"`
	Element     *typeJSON   `json:"element,omitempty"`
	Key         *typeJSON   `json:"key,omitempty"`
	Value       *typeJSON   `json:"value,omitempty"`
	Declaration string      `json:"declaration,omitempty"`
	Arguments   []typeJSON  `json:"arguments,omitempty"`
	Name        string      `json:"name,omitempty"`
	IntValue    *int64      `json:"intValue,omitempty"`
}

type defaultJSON struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value,omitempty"`
}

func fileEnvelope(file *ast.File) (*fileJSON, error) {
	env := &fileJSON{
		Imports:      []string{},
		Namespaces:   []namespaceJSON{},
		Declarations: []declJSON{},
	}
	for _, imp := range file.Imports {
		env.Imports = append(env.Imports, imp.Path)
	}
	for _, ns := range file.Namespaces {
		env.Namespaces = append(env.Namespaces, namespaceJSON{Name: ns.Name(), Language: ns.Lang})
	}
	for _, decl := range file.Decls {
		dj, err := declEnvelope(decl)
		if err != nil {
			return nil, err
		}
		env.Declarations = append(env.Declarations, dj)
	}
	return env, nil
}

func declEnvelope(decl ast.Declaration) (declJSON, error) {
	dj := declJSON{
		DeclName: decl.DeclName(),
	}
	for _, ns := range decl.DeclNamespaces() {
		dj.DeclNamespaces = append(dj.DeclNamespaces, namespaceJSON{Name: ns.Name(), Language: ns.Lang})
	}
	for _, p := range decl.DeclTypeParams() {
		dj.DeclParams = append(dj.DeclParams, paramJSON{Name: p.Name, ValueConstraint: p.ValueConstraint})
	}
	for _, a := range decl.DeclAttributes() {
		dj.DeclAttributes = append(dj.DeclAttributes, attributeJSON{Name: a.Name.String(), Value: a.Value})
	}

	switch d := decl.(type) {
	case *ast.Struct:
		dj.Tag = "Struct"
		if d.Base != nil {
			base, err := typeEnvelope(d.Base)
			if err != nil {
				return dj, err
			}
			dj.StructBase = &base
		}
		for _, f := range d.Fields {
			fj, err := fieldEnvelope(f)
			if err != nil {
				return dj, err
			}
			dj.StructFields = append(dj.StructFields, fj)
		}
	case *ast.Enum:
		dj.Tag = "Enum"
		for _, c := range d.Constants {
			dj.EnumConstants = append(dj.EnumConstants, constantJSON{Name: c.Name, Value: c.Value})
		}
	case *ast.Service:
		dj.Tag = "Service"
		if d.Base != nil {
			base, err := typeEnvelope(d.Base)
			if err != nil {
				return dj, err
			}
			dj.ServiceBase = &base
		}
		for _, m := range d.Methods {
			mj, err := methodEnvelope(m)
			if err != nil {
				return dj, err
			}
			dj.ServiceMethods = append(dj.ServiceMethods, mj)
		}
	case *ast.Alias:
		dj.Tag = "Alias"
		aliased, err := typeEnvelope(d.Aliased)
		if err != nil {
			return dj, err
		}
		dj.AliasedType = &aliased
	case *ast.Forward:
		dj.Tag = "Forward"
	default:
		return dj, fmt.Errorf("bondjson: unknown declaration kind %T", decl)
	}
	return dj, nil
}

func fieldEnvelope(f *ast.Field) (fieldJSON, error) {
	tj, err := typeEnvelope(f.Type)
	if err != nil {
		return fieldJSON{}, err
	}
	fj := fieldJSON{
		Ordinal:  f.Ordinal,
		Modifier: f.Modifier.String(),
		Type:     tj,
		Name:     f.Name,
	}
	if f.Default != nil {
		fj.Default = defaultEnvelope(f.Default)
	}
	for _, a := range f.Attributes {
		fj.Attributes = append(fj.Attributes, attributeJSON{Name: a.Name.String(), Value: a.Value})
	}
	return fj, nil
}

func methodEnvelope(m ast.Method) (methodJSON, error) {
	switch m := m.(type) {
	case *ast.Function:
		result, err := methodTypeEnvelope(m.Result)
		if err != nil {
			return methodJSON{}, err
		}
		input, err := methodTypeEnvelope(m.Input)
		if err != nil {
			return methodJSON{}, err
		}
		return methodJSON{Tag: "Function", Name: m.Name, Result: &result, Input: input}, nil
	case *ast.Event:
		input, err := methodTypeEnvelope(m.Input)
		if err != nil {
			return methodJSON{}, err
		}
		return methodJSON{Tag: "Event", Name: m.Name, Input: input}, nil
	default:
		return methodJSON{}, fmt.Errorf("bondjson: unknown method kind %T", m)
	}
}

func methodTypeEnvelope(mt ast.MethodType) (methodTypeJSON, error) {
	switch mt := mt.(type) {
	case ast.Void:
		return methodTypeJSON{Kind: "void"}, nil
	case *ast.Unary:
		tj, err := typeEnvelope(mt.Type)
		if err != nil {
			return methodTypeJSON{}, err
		}
		return methodTypeJSON{Kind: "unary", Type: &tj}, nil
	case *ast.Streaming:
		tj, err := typeEnvelope(mt.Type)
		if err != nil {
			return methodTypeJSON{}, err
		}
		return methodTypeJSON{Kind: "streaming", Type: &tj}, nil
	default:
		return methodTypeJSON{}, fmt.Errorf("bondjson: unknown method type %T", mt)
	}
}

func defaultEnvelope(d ast.Default) *defaultJSON {
	switch d := d.(type) {
	case ast.DefaultBool:
		return &defaultJSON{Type: "bool", Value: d.Value}
	case ast.DefaultInteger:
		return &defaultJSON{Type: "integer", Value: d.Value}
	case ast.DefaultFloat:
		return &defaultJSON{Type: "float", Value: d.Value}
	case ast.DefaultString:
		return &defaultJSON{Type: "string", Value: d.Value}
	case ast.DefaultEnum:
		return &defaultJSON{Type: "enum", Value: d.Value}
	case ast.DefaultNothing:
		return &defaultJSON{Type: "nothing"}
	default:
		return nil
	}
}

func typeEnvelope(t ast.Type) (typeJSON, error) {
	switch t := t.(type) {
	case ast.BasicType:
		return typeJSON{Type: t.String()}, nil
	case *ast.List:
		elem, err := typeEnvelope(t.Element)
		if err != nil {
			return typeJSON{}, err
		}
		return typeJSON{Type: "list", Element: &elem}, nil
	case *ast.Vector:
		elem, err := typeEnvelope(t.Element)
		if err != nil {
			return typeJSON{}, err
		}
		return typeJSON{Type: "vector", Element: &elem}, nil
	case *ast.Set:
		key, err := typeEnvelope(t.Key)
		if err != nil {
			return typeJSON{}, err
		}
		return typeJSON{Type: "set", Key: &key}, nil
	case *ast.Map:
		key, err := typeEnvelope(t.Key)
		if err != nil {
			return typeJSON{}, err
		}
		value, err := typeEnvelope(t.Value)
		if err != nil {
			return typeJSON{}, err
		}
		return typeJSON{Type: "map", Key: &key, Value: &value}, nil
	case *ast.Nullable:
		elem, err := typeEnvelope(t.Element)
		if err != nil {
			return typeJSON{}, err
		}
		return typeJSON{Type: "nullable", Element: &elem}, nil
	case *ast.Bonded:
		elem, err := typeEnvelope(t.Element)
		if err != nil {
			return typeJSON{}, err
		}
		return typeJSON{Type: "bonded", Element: &elem}, nil
	case *ast.Maybe:
		elem, err := typeEnvelope(t.Element)
		if err != nil {
			return typeJSON{}, err
		}
		return typeJSON{Type: "maybe", Element: &elem}, nil
	case *ast.UserDefined:
		tj := typeJSON{Type: "user", Declaration: t.Decl.QualifiedName()}
		for _, arg := range t.Args {
			aj, err := typeEnvelope(arg)
			if err != nil {
				return typeJSON{}, err
			}
			tj.Arguments = append(tj.Arguments, aj)
		}
		return tj, nil
	case *ast.TypeParamRef:
		return typeJSON{Type: "param", Name: t.Param.Name}, nil
	case *ast.IntTypeArg:
		v := t.Value
		return typeJSON{Type: "int", IntValue: &v}, nil
	case *ast.MetaName:
		return typeJSON{Type: "bond_meta::name"}, nil
	case *ast.MetaFullName:
		return typeJSON{Type: "bond_meta::full_name"}, nil
	case *ast.UnresolvedUserType:
		return typeJSON{}, fmt.Errorf("bondjson: unresolved type %s escaped resolution", t.Name)
	default:
		return typeJSON{}, fmt.Errorf("bondjson: unknown type %T", t)
	}
}
