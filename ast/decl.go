package ast

import "strings"

// Declaration is a top-level Bond declaration. It is a closed sum: the only
// implementations are *Struct, *Enum, *Service, *Alias, and *Forward.
//
// Declarations are referenced by identity. The resolver mutates declaration
// instances in place between passes so that every UserDefined node pointing
// at a declaration observes its final, resolved form.
type Declaration interface {
	DeclName() string
	DeclNamespaces() []*Namespace
	DeclTypeParams() []*TypeParam
	DeclAttributes() []*Attribute
	SourcePos() SourcePos
	// QualifiedName returns the declaration's name qualified by its first
	// namespace's dotted name.
	QualifiedName() string

	declarationNode()
}

// DeclBase carries the properties common to all declarations.
type DeclBase struct {
	Name       string
	Namespaces []*Namespace
	TypeParams []*TypeParam
	Attributes []*Attribute
	Pos        SourcePos
}

func (d *DeclBase) DeclName() string             { return d.Name }
func (d *DeclBase) DeclNamespaces() []*Namespace { return d.Namespaces }
func (d *DeclBase) DeclTypeParams() []*TypeParam { return d.TypeParams }
func (d *DeclBase) DeclAttributes() []*Attribute { return d.Attributes }
func (d *DeclBase) SourcePos() SourcePos         { return d.Pos }

func (d *DeclBase) QualifiedName() string {
	if len(d.Namespaces) == 0 {
		return d.Name
	}
	return d.Namespaces[0].Name() + "." + d.Name
}

// TypeParam is a generic parameter of a struct, service, or alias. The
// constraint, when present, restricts arguments to value types
// ("<T : value>").
type TypeParam struct {
	Name            string
	ValueConstraint bool
	Pos             SourcePos
}

// Struct is a struct declaration: an optional base, and fields ordered by
// ascending ordinal after normalization.
type Struct struct {
	DeclBase
	// Base is nil or a type that must resolve to a user-defined struct.
	Base   Type
	Fields []*Field
}

// Enum is an enum declaration. Constants appear in source order; implicit
// values are computed from position (see EnumConstantValues).
type Enum struct {
	DeclBase
	Constants []*EnumConstant
}

// Service is a service declaration: an optional base that must resolve to
// another service, and methods in source order.
type Service struct {
	DeclBase
	Base    Type
	Methods []Method
}

// Alias is a type alias declaration. Aliases are file-scoped: they are not
// entered into the global symbol table.
type Alias struct {
	DeclBase
	Aliased Type
}

// Forward is a forward struct declaration, or a synthesized stand-in for a
// struct at a self-referential use site.
type Forward struct {
	DeclBase
}

func (*Struct) declarationNode()  {}
func (*Enum) declarationNode()    {}
func (*Service) declarationNode() {}
func (*Alias) declarationNode()   {}
func (*Forward) declarationNode() {}

// Modifier describes how a field participates in the wire contract.
type Modifier int

const (
	Optional Modifier = iota
	Required
	RequiredOptional
)

func (m Modifier) String() string {
	switch m {
	case Optional:
		return "optional"
	case Required:
		return "required"
	case RequiredOptional:
		return "required_optional"
	default:
		return "unknown"
	}
}

// Field is a single struct field. Ordinal is the on-wire key for binary
// protocols; Name is the key for text protocols. Default is nil when the
// field declares no default value.
type Field struct {
	Ordinal    uint16
	Modifier   Modifier
	Type       Type
	Name       string
	Default    Default
	Attributes []*Attribute
	Pos        SourcePos
}

// EnumConstant is a single enum constant. Value is nil when the constant
// takes its implicit value (previous + 1, starting at 0).
type EnumConstant struct {
	Name  string
	Value *int64
	Pos   SourcePos
}

// EnumConstantValues computes the effective value of every constant in the
// enum: an explicit value when declared, otherwise previous + 1 with an
// initial value of 0.
func EnumConstantValues(e *Enum) map[string]int64 {
	values := make(map[string]int64, len(e.Constants))
	next := int64(0)
	for _, c := range e.Constants {
		if c.Value != nil {
			next = *c.Value
		}
		values[c.Name] = next
		next++
	}
	return values
}

// DeclKindName returns a human-readable name for the declaration's kind,
// used in diagnostics and in the compatibility checker's descriptions.
func DeclKindName(d Declaration) string {
	switch d.(type) {
	case *Struct:
		return "struct"
	case *Enum:
		return "enum"
	case *Service:
		return "service"
	case *Alias:
		return "alias"
	case *Forward:
		return "forward declaration"
	default:
		return "declaration"
	}
}

// FormatTypeParams renders a parameter list for diagnostics, e.g. "<T, U>".
func FormatTypeParams(params []*TypeParam) string {
	if len(params) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('<')
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
		if p.ValueConstraint {
			sb.WriteString(" : value")
		}
	}
	sb.WriteByte('>')
	return sb.String()
}
