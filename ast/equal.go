package ast

// TypesEqual compares two types structurally. UserDefined types compare by
// qualified declaration name and, recursively, by type arguments; this makes
// the comparison meaningful across two independently compiled versions of
// the same schema, where declaration identities differ.
func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case BasicType:
		b, ok := b.(BasicType)
		return ok && a == b
	case *List:
		b, ok := b.(*List)
		return ok && TypesEqual(a.Element, b.Element)
	case *Vector:
		b, ok := b.(*Vector)
		return ok && TypesEqual(a.Element, b.Element)
	case *Set:
		b, ok := b.(*Set)
		return ok && TypesEqual(a.Key, b.Key)
	case *Map:
		b, ok := b.(*Map)
		return ok && TypesEqual(a.Key, b.Key) && TypesEqual(a.Value, b.Value)
	case *Nullable:
		b, ok := b.(*Nullable)
		return ok && TypesEqual(a.Element, b.Element)
	case *Bonded:
		b, ok := b.(*Bonded)
		return ok && TypesEqual(a.Element, b.Element)
	case *Maybe:
		b, ok := b.(*Maybe)
		return ok && TypesEqual(a.Element, b.Element)
	case *UserDefined:
		b, ok := b.(*UserDefined)
		return ok && a.Decl.QualifiedName() == b.Decl.QualifiedName() && typeArgsEqual(a.Args, b.Args)
	case *TypeParamRef:
		b, ok := b.(*TypeParamRef)
		return ok && a.Param.Name == b.Param.Name
	case *IntTypeArg:
		b, ok := b.(*IntTypeArg)
		return ok && a.Value == b.Value
	case *MetaName:
		_, ok := b.(*MetaName)
		return ok
	case *MetaFullName:
		_, ok := b.(*MetaFullName)
		return ok
	case *UnresolvedUserType:
		b, ok := b.(*UnresolvedUserType)
		return ok && a.Name.String() == b.Name.String() && typeArgsEqual(a.Args, b.Args)
	default:
		return false
	}
}

func typeArgsEqual(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !TypesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
