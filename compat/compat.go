// Package compat compares two compiled versions of the same logical Bond
// schema and classifies every structural difference by its effect on the
// wire protocols.
//
// Ordinal-keyed binary encodings (Compact Binary, Fast Binary) and
// name-keyed text encodings (SimpleJSON, SimpleXML) break under different
// kinds of change, so each difference is classified as Compatible,
// BreakingWire, or BreakingText. The checker assumes both inputs resolved
// cleanly; callers with parse errors should surface those instead.
package compat

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/bondbuild/bondcompile/ast"
)

// Category classifies a schema change by the protocols it breaks.
type Category int

const (
	// Compatible changes are safe for both binary and text protocols.
	Compatible Category = iota
	// BreakingWire changes are unsafe for ordinal-keyed binary encodings.
	BreakingWire
	// BreakingText changes are safe for binary encodings but unsafe for
	// name-keyed text encodings.
	BreakingText
)

func (c Category) String() string {
	switch c {
	case Compatible:
		return "Compatible"
	case BreakingWire:
		return "BreakingWire"
	case BreakingText:
		return "BreakingText"
	default:
		return "Unknown"
	}
}

// Change is a single classified difference between two schemas.
type Change struct {
	Category    Category
	Description string
	// Location is the qualified path of the changed element, e.g.
	// "example.Record.email".
	Location       string
	Recommendation string
}

// Check diffs two resolved schemas. The result is deterministic:
// declarations are visited in sorted qualified-name order, fields in
// ascending ordinal order, and constants and methods in source order of the
// new schema (old order for removals).
func Check(oldFile, newFile *ast.File) []Change {
	d := &differ{}
	oldDecls := declsByName(oldFile)
	newDecls := declsByName(newFile)

	names := maps.Keys(oldDecls)
	for name := range newDecls {
		if _, ok := oldDecls[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		oldDecl, inOld := oldDecls[name]
		newDecl, inNew := newDecls[name]
		switch {
		case inOld && !inNew:
			d.add(BreakingWire, name, "", "%s %s was removed", ast.DeclKindName(oldDecl), name)
		case !inOld && inNew:
			d.add(Compatible, name, "", "%s %s was added", ast.DeclKindName(newDecl), name)
		default:
			d.diffDecl(name, oldDecl, newDecl)
		}
	}
	return d.changes
}

type differ struct {
	changes []Change
}

func (d *differ) add(cat Category, location, recommendation, format string, args ...interface{}) {
	d.changes = append(d.changes, Change{
		Category:       cat,
		Description:    fmt.Sprintf(format, args...),
		Location:       location,
		Recommendation: recommendation,
	})
}

func declsByName(f *ast.File) map[string]ast.Declaration {
	decls := make(map[string]ast.Declaration, len(f.Decls))
	for _, decl := range f.Decls {
		decls[decl.QualifiedName()] = decl
	}
	return decls
}

func (d *differ) diffDecl(name string, oldDecl, newDecl ast.Declaration) {
	switch oldDecl := oldDecl.(type) {
	case *ast.Struct:
		if newStruct, ok := newDecl.(*ast.Struct); ok {
			d.diffStruct(name, oldDecl, newStruct)
			return
		}
	case *ast.Enum:
		if newEnum, ok := newDecl.(*ast.Enum); ok {
			d.diffEnum(name, oldDecl, newEnum)
			return
		}
	case *ast.Service:
		if newService, ok := newDecl.(*ast.Service); ok {
			d.diffService(name, oldDecl, newService)
			return
		}
	case *ast.Alias:
		if newAlias, ok := newDecl.(*ast.Alias); ok {
			d.diffAlias(name, oldDecl, newAlias)
			return
		}
	case *ast.Forward:
		if _, ok := newDecl.(*ast.Forward); ok {
			return
		}
		// a forward that gained a definition is not a kind change
		if _, ok := newDecl.(*ast.Struct); ok {
			return
		}
	}
	d.add(BreakingWire, name, "",
		"%s changed from %s to %s", name, ast.DeclKindName(oldDecl), ast.DeclKindName(newDecl))
}

func (d *differ) diffStruct(name string, oldStruct, newStruct *ast.Struct) {
	if !ast.TypesEqual(oldStruct.Base, newStruct.Base) {
		d.add(BreakingWire, name, "", "struct %s: inheritance hierarchy changed", name)
	}

	// fields are matched by ordinal: ordinals are the binary wire identity
	oldFields := fieldsByOrdinal(oldStruct)
	newFields := fieldsByOrdinal(newStruct)

	ordinals := maps.Keys(oldFields)
	for ordinal := range newFields {
		if _, ok := oldFields[ordinal]; !ok {
			ordinals = append(ordinals, ordinal)
		}
	}
	sort.Slice(ordinals, func(i, j int) bool { return ordinals[i] < ordinals[j] })

	for _, ordinal := range ordinals {
		oldField, inOld := oldFields[ordinal]
		newField, inNew := newFields[ordinal]
		switch {
		case inOld && !inNew:
			cat := Compatible
			if oldField.Modifier == ast.Required {
				cat = BreakingWire
			}
			d.add(cat, fieldPath(name, oldField), "",
				"struct %s: %s field %s (ordinal %d) was removed",
				name, oldField.Modifier, oldField.Name, ordinal)
		case !inOld && inNew:
			cat := Compatible
			if newField.Modifier == ast.Required {
				cat = BreakingWire
			}
			d.add(cat, fieldPath(name, newField), "",
				"struct %s: %s field %s (ordinal %d) was added",
				name, newField.Modifier, newField.Name, ordinal)
		default:
			d.diffField(name, oldField, newField)
		}
	}
}

func fieldsByOrdinal(s *ast.Struct) map[uint16]*ast.Field {
	fields := make(map[uint16]*ast.Field, len(s.Fields))
	for _, f := range s.Fields {
		fields[f.Ordinal] = f
	}
	return fields
}

func fieldPath(structName string, f *ast.Field) string {
	return structName + "." + f.Name
}

func (d *differ) diffField(structName string, oldField, newField *ast.Field) {
	location := fieldPath(structName, newField)

	if oldField.Name != newField.Name {
		// the ordinal preserves binary wire identity; only name-keyed text
		// protocols see this
		d.add(BreakingText, location, "",
			"struct %s: field ordinal %d name changed from %s to %s",
			structName, oldField.Ordinal, oldField.Name, newField.Name)
	}

	if oldField.Modifier != newField.Modifier {
		d.diffModifier(structName, location, oldField, newField)
	}

	oldType, newType := unwrapMaybe(oldField.Type), unwrapMaybe(newField.Type)
	if !ast.TypesEqual(oldType, newType) {
		cat, recommendation := classifyTypeChange(oldType, newType)
		d.add(cat, location, recommendation,
			"struct %s: field %s type changed from %s to %s",
			structName, newField.Name, oldType, newType)
	}

	if !ast.DefaultsEqual(oldField.Default, newField.Default) {
		// defaults are part of the wire contract for required fields and
		// semantic for readers of omitted optional fields
		d.add(BreakingWire, location, "",
			"struct %s: field %s default value changed",
			structName, newField.Name)
	}
}

const twoStepRecommendation = "migrate modifiers in two steps: first to required_optional, " +
	"then to the target modifier once all producers and consumers have updated"

func (d *differ) diffModifier(structName, location string, oldField, newField *ast.Field) {
	direct := oldField.Modifier != ast.RequiredOptional && newField.Modifier != ast.RequiredOptional
	if direct {
		d.add(BreakingWire, location, twoStepRecommendation,
			"struct %s: field %s modifier changed from %s to %s",
			structName, newField.Name, oldField.Modifier, newField.Modifier)
		return
	}
	d.add(Compatible, location, twoStepRecommendation,
		"struct %s: field %s modifier changed from %s to %s",
		structName, newField.Name, oldField.Modifier, newField.Modifier)
}

func (d *differ) diffEnum(name string, oldEnum, newEnum *ast.Enum) {
	oldValues := ast.EnumConstantValues(oldEnum)
	newValues := ast.EnumConstantValues(newEnum)

	oldByName := make(map[string]*ast.EnumConstant, len(oldEnum.Constants))
	for _, c := range oldEnum.Constants {
		oldByName[c.Name] = c
	}
	newByName := make(map[string]*ast.EnumConstant, len(newEnum.Constants))
	for _, c := range newEnum.Constants {
		newByName[c.Name] = c
	}

	for _, c := range oldEnum.Constants {
		if _, ok := newByName[c.Name]; !ok {
			d.add(BreakingWire, name+"."+c.Name, "",
				"enum %s: constant %s (value %d) was removed", name, c.Name, oldValues[c.Name])
		}
	}

	for position, c := range newEnum.Constants {
		if _, ok := oldByName[c.Name]; !ok {
			// an implicit-valued constant inserted before the end shifts
			// every implicit value after it
			if c.Value == nil && position < len(oldEnum.Constants) {
				d.add(BreakingWire, name+"."+c.Name, "",
					"enum %s: constant %s was inserted at position %d without an explicit value, shifting subsequent implicit values",
					name, c.Name, position)
			} else {
				d.add(Compatible, name+"."+c.Name, "",
					"enum %s: constant %s (value %d) was added", name, c.Name, newValues[c.Name])
			}
			continue
		}
		if oldValues[c.Name] != newValues[c.Name] {
			d.add(BreakingWire, name+"."+c.Name, "",
				"enum %s: constant %s value changed from %d to %d",
				name, c.Name, oldValues[c.Name], newValues[c.Name])
		}
	}
}

func (d *differ) diffService(name string, oldService, newService *ast.Service) {
	if !ast.TypesEqual(oldService.Base, newService.Base) {
		d.add(BreakingWire, name, "", "service %s: inheritance hierarchy changed", name)
	}

	oldMethods := make(map[string]ast.Method, len(oldService.Methods))
	for _, m := range oldService.Methods {
		oldMethods[m.MethodName()] = m
	}
	newMethods := make(map[string]ast.Method, len(newService.Methods))
	for _, m := range newService.Methods {
		newMethods[m.MethodName()] = m
	}

	for _, m := range oldService.Methods {
		if _, ok := newMethods[m.MethodName()]; !ok {
			d.add(BreakingWire, name+"."+m.MethodName(), "",
				"service %s: method %s was removed", name, m.MethodName())
		}
	}
	for _, m := range newService.Methods {
		oldMethod, ok := oldMethods[m.MethodName()]
		if !ok {
			d.add(Compatible, name+"."+m.MethodName(), "",
				"service %s: method %s was added", name, m.MethodName())
			continue
		}
		if !methodSignaturesEqual(oldMethod, m) {
			d.add(BreakingWire, name+"."+m.MethodName(), "",
				"service %s: method %s signature changed", name, m.MethodName())
		}
	}
}

func methodSignaturesEqual(a, b ast.Method) bool {
	switch a := a.(type) {
	case *ast.Function:
		b, ok := b.(*ast.Function)
		return ok && methodTypesEqual(a.Result, b.Result) && methodTypesEqual(a.Input, b.Input)
	case *ast.Event:
		b, ok := b.(*ast.Event)
		return ok && methodTypesEqual(a.Input, b.Input)
	default:
		return false
	}
}

func methodTypesEqual(a, b ast.MethodType) bool {
	switch a := a.(type) {
	case ast.Void:
		_, ok := b.(ast.Void)
		return ok
	case *ast.Unary:
		b, ok := b.(*ast.Unary)
		return ok && ast.TypesEqual(a.Type, b.Type)
	case *ast.Streaming:
		b, ok := b.(*ast.Streaming)
		return ok && ast.TypesEqual(a.Type, b.Type)
	default:
		return false
	}
}

func (d *differ) diffAlias(name string, oldAlias, newAlias *ast.Alias) {
	if ast.TypesEqual(oldAlias.Aliased, newAlias.Aliased) {
		return
	}
	// alias rewrites that are wire-equivalent must not flag as breaking, so
	// the aliased types go through the same classification as field types
	cat, recommendation := classifyTypeChange(oldAlias.Aliased, newAlias.Aliased)
	d.add(cat, name, recommendation,
		"alias %s changed from %s to %s", name, oldAlias.Aliased, newAlias.Aliased)
}

func unwrapMaybe(t ast.Type) ast.Type {
	if m, ok := t.(*ast.Maybe); ok {
		return m.Element
	}
	return t
}
