// Package walk provides helpers for traversing the declarations and type
// references of a Bond AST.
package walk

import "github.com/bondbuild/bondcompile/ast"

// Declarations walks every declaration of the file in source order, invoking
// fn for each. If fn returns an error, the walk is aborted and that error
// returned.
func Declarations(file *ast.File, fn func(ast.Declaration) error) error {
	for _, decl := range file.Decls {
		if err := fn(decl); err != nil {
			return err
		}
	}
	return nil
}

// DeclTypes walks every type node reachable from the given declaration:
// a struct's base and field types, an alias's aliased type, a service's base
// and method input/result types, and, recursively, every element, key,
// value, and type argument within those.
func DeclTypes(decl ast.Declaration, fn func(ast.Type) error) error {
	switch d := decl.(type) {
	case *ast.Struct:
		if d.Base != nil {
			if err := Types(d.Base, fn); err != nil {
				return err
			}
		}
		for _, f := range d.Fields {
			if err := Types(f.Type, fn); err != nil {
				return err
			}
		}
	case *ast.Service:
		if d.Base != nil {
			if err := Types(d.Base, fn); err != nil {
				return err
			}
		}
		for _, m := range d.Methods {
			if fun, ok := m.(*ast.Function); ok {
				if err := methodTypes(fun.Result, fn); err != nil {
					return err
				}
			}
			if err := methodTypes(m.MethodInput(), fn); err != nil {
				return err
			}
		}
	case *ast.Alias:
		if err := Types(d.Aliased, fn); err != nil {
			return err
		}
	case *ast.Enum, *ast.Forward:
		// no type references
	}
	return nil
}

func methodTypes(mt ast.MethodType, fn func(ast.Type) error) error {
	switch mt := mt.(type) {
	case *ast.Unary:
		return Types(mt.Type, fn)
	case *ast.Streaming:
		return Types(mt.Type, fn)
	}
	return nil
}

// Types walks the given type and, recursively, every type nested within it.
// The outer type is visited before its children.
func Types(t ast.Type, fn func(ast.Type) error) error {
	if t == nil {
		return nil
	}
	if err := fn(t); err != nil {
		return err
	}
	switch t := t.(type) {
	case *ast.List:
		return Types(t.Element, fn)
	case *ast.Vector:
		return Types(t.Element, fn)
	case *ast.Set:
		return Types(t.Key, fn)
	case *ast.Map:
		if err := Types(t.Key, fn); err != nil {
			return err
		}
		return Types(t.Value, fn)
	case *ast.Nullable:
		return Types(t.Element, fn)
	case *ast.Bonded:
		return Types(t.Element, fn)
	case *ast.Maybe:
		return Types(t.Element, fn)
	case *ast.UserDefined:
		for _, arg := range t.Args {
			if err := Types(arg, fn); err != nil {
				return err
			}
		}
	case *ast.UnresolvedUserType:
		for _, arg := range t.Args {
			if err := Types(arg, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
