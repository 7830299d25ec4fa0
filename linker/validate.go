package linker

import (
	"errors"
	"math"

	"github.com/bondbuild/bondcompile/ast"
)

// validateFile validates every declaration of a file. The first error in a
// declaration aborts that declaration's remaining checks but not the file's;
// the link is only abandoned if the handler's reporter says so.
func (l *linkState) validateFile(f *ast.File) error {
	for _, decl := range f.Decls {
		if err := l.validateDecl(f, decl); err != nil {
			if !errors.Is(err, errStopDecl) {
				return err
			}
		}
	}
	return nil
}

func (l *linkState) validateDecl(f *ast.File, decl ast.Declaration) error {
	switch d := decl.(type) {
	case *ast.Struct:
		return l.validateStruct(f, d)
	case *ast.Enum:
		return l.validateEnum(d)
	case *ast.Service:
		return l.validateService(f, d)
	case *ast.Alias, *ast.Forward:
		return nil
	}
	return nil
}

// errorf reports a validation diagnostic and translates "keep going" into
// errStopDecl so the caller moves on to the next declaration.
func (l *linkState) errorf(pos ast.SourcePos, format string, args ...interface{}) error {
	if err := l.handler.HandleErrorf(pos, format, args...); err != nil {
		return err
	}
	return errStopDecl
}

func (l *linkState) validateStruct(f *ast.File, d *ast.Struct) error {
	names := map[string]*ast.Field{}
	var prev *ast.Field
	for _, field := range d.Fields {
		// fields are ordinal-sorted by the parser's normalization pass, so
		// duplicates are adjacent
		if prev != nil && prev.Ordinal == field.Ordinal {
			return l.errorf(field.Pos, "struct %s: duplicate ordinal %d for field %s: already used by field %s",
				d.Name, field.Ordinal, field.Name, prev.Name)
		}
		prev = field
		if existing, ok := names[field.Name]; ok {
			return l.errorf(field.Pos, "struct %s: duplicate field name %s: previously defined at %v",
				d.Name, field.Name, existing.Pos)
		}
		names[field.Name] = field
		if err := l.validateField(f, d, field); err != nil {
			return err
		}
	}
	return nil
}

func (l *linkState) validateField(f *ast.File, d *ast.Struct, field *ast.Field) error {
	flat := l.flattenForValidation(f, field.Type, nil, nil)

	// key types of every set and map reachable from the field type
	if err := l.checkKeyTypes(f, d, field, flat); err != nil {
		return err
	}

	declared := flat
	if m, ok := flat.(*ast.Maybe); ok {
		if isStructType(m.Element) {
			return l.errorf(field.Pos, "struct %s: field %s of struct type cannot have a default value of nothing",
				d.Name, field.Name)
		}
		declared = m.Element
	}

	if isEnumType(declared) && field.Modifier != ast.Required && field.Default == nil {
		return l.errorf(field.Pos, "struct %s: field %s of enum type must have a default value",
			d.Name, field.Name)
	}

	if field.Default == nil {
		return nil
	}
	return l.checkDefault(d, field, flat)
}

func (l *linkState) checkKeyTypes(f *ast.File, d *ast.Struct, field *ast.Field, flat ast.Type) error {
	var key ast.Type
	switch t := flat.(type) {
	case *ast.Set:
		key = t.Key
	case *ast.Map:
		key = t.Key
		if err := l.checkKeyTypes(f, d, field, t.Value); err != nil {
			return err
		}
	case *ast.List:
		return l.checkKeyTypes(f, d, field, t.Element)
	case *ast.Vector:
		return l.checkKeyTypes(f, d, field, t.Element)
	case *ast.Nullable:
		return l.checkKeyTypes(f, d, field, t.Element)
	case *ast.Bonded:
		return l.checkKeyTypes(f, d, field, t.Element)
	case *ast.Maybe:
		return l.checkKeyTypes(f, d, field, t.Element)
	default:
		return nil
	}
	if !isValidKeyType(key) {
		return l.errorf(field.Pos, "struct %s: field %s: invalid key type %s: key must be a scalar, string, or enum type",
			d.Name, field.Name, key)
	}
	return l.checkKeyTypes(f, d, field, key)
}

// isValidKeyType reports whether a (flattened) type may key a set or map:
// scalars, strings, enums, and type parameters qualify.
func isValidKeyType(t ast.Type) bool {
	switch t := t.(type) {
	case ast.BasicType:
		return t != ast.Blob
	case *ast.UserDefined:
		_, ok := t.Decl.(*ast.Enum)
		return ok
	case *ast.TypeParamRef:
		return true
	case *ast.UnresolvedUserType:
		// not resolvable yet; resolution will report it if it never is
		return true
	default:
		return false
	}
}

func isStructType(t ast.Type) bool {
	ud, ok := t.(*ast.UserDefined)
	if !ok {
		return false
	}
	switch ud.Decl.(type) {
	case *ast.Struct, *ast.Forward:
		return true
	default:
		return false
	}
}

func isEnumType(t ast.Type) bool {
	ud, ok := t.(*ast.UserDefined)
	if !ok {
		return false
	}
	_, ok = ud.Decl.(*ast.Enum)
	return ok
}

func (l *linkState) checkDefault(d *ast.Struct, field *ast.Field, flat ast.Type) error {
	def := field.Default
	invalid := func() error {
		return l.errorf(field.Pos, "struct %s: field %s: default value %s is not valid for type %s",
			d.Name, field.Name, def, field.Type)
	}

	switch t := flat.(type) {
	case ast.BasicType:
		switch {
		case t.IsSignedInt() || t.IsUnsigned():
			i, ok := def.(ast.DefaultInteger)
			if !ok || !intFits(i.Value, t) {
				return invalid()
			}
		case t == ast.Float || t == ast.Double:
			switch def.(type) {
			case ast.DefaultFloat, ast.DefaultInteger:
			default:
				return invalid()
			}
		case t == ast.Bool:
			if _, ok := def.(ast.DefaultBool); !ok {
				return invalid()
			}
		case t == ast.String || t == ast.WString:
			if _, ok := def.(ast.DefaultString); !ok {
				return invalid()
			}
		case t == ast.Blob:
			// blob is a container on the wire; nothing is its only default
			if _, ok := def.(ast.DefaultNothing); !ok {
				return invalid()
			}
		}
	case *ast.List, *ast.Vector, *ast.Set, *ast.Map, *ast.Nullable, *ast.Maybe:
		if _, ok := def.(ast.DefaultNothing); !ok {
			return invalid()
		}
	case *ast.UserDefined:
		switch decl := t.Decl.(type) {
		case *ast.Enum:
			e, ok := def.(ast.DefaultEnum)
			if !ok {
				return invalid()
			}
			if _, ok := ast.EnumConstantValues(decl)[e.Value]; !ok {
				return l.errorf(field.Pos, "struct %s: field %s: enum %s has no constant named %s",
					d.Name, field.Name, decl.Name, e.Value)
			}
		default:
			return invalid()
		}
	case *ast.TypeParamRef:
		// any default; checked at instantiation sites
	case *ast.Bonded, *ast.MetaName, *ast.MetaFullName:
		return invalid()
	case *ast.UnresolvedUserType:
		// unresolvable reference; resolution will report it
	}
	return nil
}

func intFits(v int64, t ast.BasicType) bool {
	switch t {
	case ast.Int8:
		return v >= math.MinInt8 && v <= math.MaxInt8
	case ast.Int16:
		return v >= math.MinInt16 && v <= math.MaxInt16
	case ast.Int32:
		return v >= math.MinInt32 && v <= math.MaxInt32
	case ast.Int64:
		return true
	case ast.UInt8:
		return v >= 0 && v <= math.MaxUint8
	case ast.UInt16:
		return v >= 0 && v <= math.MaxUint16
	case ast.UInt32:
		return v >= 0 && v <= math.MaxUint32
	case ast.UInt64:
		return v >= 0
	default:
		return false
	}
}

func (l *linkState) validateEnum(d *ast.Enum) error {
	names := map[string]*ast.EnumConstant{}
	for _, c := range d.Constants {
		if existing, ok := names[c.Name]; ok {
			return l.errorf(c.Pos, "enum %s: duplicate constant %s: previously defined at %v",
				d.Name, c.Name, existing.Pos)
		}
		names[c.Name] = c
	}
	return nil
}

func (l *linkState) validateService(f *ast.File, d *ast.Service) error {
	if d.Base != nil {
		switch base := d.Base.(type) {
		case *ast.TypeParamRef:
			return l.errorf(d.Pos, "service %s: cannot inherit from type parameter %s", d.Name, base.Param.Name)
		case *ast.UnresolvedUserType:
			if decl := l.sym.Lookup(base.Name, f); decl != nil {
				if _, ok := decl.(*ast.Service); !ok {
					return l.errorf(d.Pos, "service %s: cannot inherit from %s %s",
						d.Name, ast.DeclKindName(decl), base.Name)
				}
			}
		}
	}

	names := map[string]ast.Method{}
	for _, m := range d.Methods {
		if existing, ok := names[m.MethodName()]; ok {
			return l.errorf(m.SourcePos(), "service %s: duplicate method %s: previously defined at %v",
				d.Name, m.MethodName(), existing.SourcePos())
		}
		names[m.MethodName()] = m

		if _, ok := m.(*ast.Event); ok {
			if _, streaming := m.MethodInput().(*ast.Streaming); streaming {
				return l.errorf(m.SourcePos(), "service %s: event %s cannot have a streaming input",
					d.Name, m.MethodName())
			}
		}
	}
	return nil
}

// flattenForValidation recursively substitutes aliases by their aliased
// types and named references by what the symbol table says they name, so
// that key-type and default checks see through alias chains before the
// resolver has rewritten the AST. Visited aliases break cycles; names the
// table does not know stay as written (resolution will report them).
func (l *linkState) flattenForValidation(f *ast.File, t ast.Type, visited map[*ast.Alias]bool, subst map[string]ast.Type) ast.Type {
	switch t := t.(type) {
	case *ast.UnresolvedUserType:
		args := make([]ast.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = l.flattenForValidation(f, a, visited, subst)
		}
		if alias := l.scopes[f].lookup(t.Name, f); alias != nil {
			if visited[alias] {
				return t
			}
			sub := map[string]ast.Type{}
			for i, p := range alias.TypeParams {
				if i < len(args) {
					sub[p.Name] = args[i]
				}
			}
			next := map[*ast.Alias]bool{alias: true}
			for k, v := range visited {
				next[k] = v
			}
			return l.flattenForValidation(f, alias.Aliased, next, sub)
		}
		if decl := l.sym.Lookup(t.Name, f); decl != nil {
			return &ast.UserDefined{Decl: decl, Args: args}
		}
		return t
	case *ast.TypeParamRef:
		if s, ok := subst[t.Param.Name]; ok {
			return s
		}
		return t
	case *ast.List:
		return &ast.List{Element: l.flattenForValidation(f, t.Element, visited, subst)}
	case *ast.Vector:
		return &ast.Vector{Element: l.flattenForValidation(f, t.Element, visited, subst)}
	case *ast.Set:
		return &ast.Set{Key: l.flattenForValidation(f, t.Key, visited, subst)}
	case *ast.Map:
		return &ast.Map{
			Key:   l.flattenForValidation(f, t.Key, visited, subst),
			Value: l.flattenForValidation(f, t.Value, visited, subst),
		}
	case *ast.Nullable:
		return &ast.Nullable{Element: l.flattenForValidation(f, t.Element, visited, subst)}
	case *ast.Bonded:
		return &ast.Bonded{Element: l.flattenForValidation(f, t.Element, visited, subst)}
	case *ast.Maybe:
		return &ast.Maybe{Element: l.flattenForValidation(f, t.Element, visited, subst)}
	case *ast.UserDefined:
		if alias, ok := t.Decl.(*ast.Alias); ok && !visited[alias] {
			sub := map[string]ast.Type{}
			for i, p := range alias.TypeParams {
				if i < len(t.Args) {
					sub[p.Name] = l.flattenForValidation(f, t.Args[i], visited, subst)
				}
			}
			next := map[*ast.Alias]bool{alias: true}
			for k, v := range visited {
				next[k] = v
			}
			return l.flattenForValidation(f, alias.Aliased, next, sub)
		}
		return t
	default:
		return t
	}
}
