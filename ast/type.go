package ast

import (
	"fmt"
	"strings"
)

// Type is the sum of all Bond type forms. It is a closed sum: the only
// implementations are BasicType, *List, *Vector, *Set, *Map, *Nullable,
// *Bonded, *Maybe, *UserDefined, *TypeParamRef, *IntTypeArg, *MetaName,
// *MetaFullName, and *UnresolvedUserType.
type Type interface {
	typeNode()
	String() string
}

// BasicType is a Bond primitive type.
type BasicType int

const (
	Bool BasicType = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float
	Double
	String
	WString
	Blob
)

func (BasicType) typeNode() {}

func (b BasicType) String() string {
	switch b {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	case WString:
		return "wstring"
	case Blob:
		return "blob"
	default:
		return fmt.Sprintf("basic(%d)", int(b))
	}
}

// IsUnsigned reports whether the type is an unsigned integral type.
func (b BasicType) IsUnsigned() bool {
	switch b {
	case UInt8, UInt16, UInt32, UInt64:
		return true
	default:
		return false
	}
}

// IsSignedInt reports whether the type is a signed integral type.
func (b BasicType) IsSignedInt() bool {
	switch b {
	case Int8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}

// IsScalar reports whether the type is a scalar: an integral, floating
// point, or bool type.
func (b BasicType) IsScalar() bool {
	switch b {
	case String, WString, Blob:
		return false
	default:
		return true
	}
}

// BasicTypeByName maps a primitive type name, case-insensitively, to its
// BasicType. It reports false for names that are not primitive types.
func BasicTypeByName(name string) (BasicType, bool) {
	switch strings.ToLower(name) {
	case "bool":
		return Bool, true
	case "int8":
		return Int8, true
	case "int16":
		return Int16, true
	case "int32":
		return Int32, true
	case "int64":
		return Int64, true
	case "uint8":
		return UInt8, true
	case "uint16":
		return UInt16, true
	case "uint32":
		return UInt32, true
	case "uint64":
		return UInt64, true
	case "float":
		return Float, true
	case "double":
		return Double, true
	case "string":
		return String, true
	case "wstring":
		return WString, true
	case "blob":
		return Blob, true
	default:
		return 0, false
	}
}

// List is list<T>.
type List struct {
	Element Type
}

// Vector is vector<T>.
type Vector struct {
	Element Type
}

// Set is set<K>.
type Set struct {
	Key Type
}

// Map is map<K, V>.
type Map struct {
	Key   Type
	Value Type
}

// Nullable is nullable<T>.
type Nullable struct {
	Element Type
}

// Bonded is bonded<T>; T must resolve to a user-defined struct.
type Bonded struct {
	Element Type
}

// Maybe wraps the declared type of a field whose default is nothing.
type Maybe struct {
	Element Type
}

// UserDefined is a reference to a declaration, by identity, with the actual
// type arguments supplied at the reference site.
type UserDefined struct {
	Decl Declaration
	Args []Type
}

// TypeParamRef refers to a generic parameter of the enclosing declaration.
type TypeParamRef struct {
	Param *TypeParam
}

// IntTypeArg is an integer literal used as a generic argument.
type IntTypeArg struct {
	Value int64
}

// MetaName is the bond_meta::name intrinsic field type.
type MetaName struct{}

// MetaFullName is the bond_meta::full_name intrinsic field type.
type MetaFullName struct{}

// UnresolvedUserType is a named type reference as written in source, before
// semantic analysis has resolved it to a declaration or primitive. None of
// these remain in a fully resolved AST.
type UnresolvedUserType struct {
	Name QualifiedName
	Args []Type
	Pos  SourcePos
}

func (*List) typeNode()               {}
func (*Vector) typeNode()             {}
func (*Set) typeNode()                {}
func (*Map) typeNode()                {}
func (*Nullable) typeNode()           {}
func (*Bonded) typeNode()             {}
func (*Maybe) typeNode()              {}
func (*UserDefined) typeNode()        {}
func (*TypeParamRef) typeNode()       {}
func (*IntTypeArg) typeNode()         {}
func (*MetaName) typeNode()           {}
func (*MetaFullName) typeNode()       {}
func (*UnresolvedUserType) typeNode() {}

func (t *List) String() string     { return fmt.Sprintf("list<%s>", t.Element) }
func (t *Vector) String() string   { return fmt.Sprintf("vector<%s>", t.Element) }
func (t *Set) String() string      { return fmt.Sprintf("set<%s>", t.Key) }
func (t *Map) String() string      { return fmt.Sprintf("map<%s, %s>", t.Key, t.Value) }
func (t *Nullable) String() string { return fmt.Sprintf("nullable<%s>", t.Element) }
func (t *Bonded) String() string   { return fmt.Sprintf("bonded<%s>", t.Element) }
func (t *Maybe) String() string    { return t.Element.String() }

func (t *UserDefined) String() string {
	return formatNamed(t.Decl.DeclName(), t.Args)
}

func (t *TypeParamRef) String() string { return t.Param.Name }
func (t *IntTypeArg) String() string   { return fmt.Sprintf("%d", t.Value) }
func (*MetaName) String() string       { return "bond_meta::name" }
func (*MetaFullName) String() string   { return "bond_meta::full_name" }

func (t *UnresolvedUserType) String() string {
	return formatNamed(t.Name.String(), t.Args)
}

func formatNamed(name string, args []Type) string {
	if len(args) == 0 {
		return name
	}
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", name, strings.Join(strs, ", "))
}
