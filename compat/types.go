package compat

import "github.com/bondbuild/bondcompile/ast"

const enumRolloutRecommendation = "update consumers to the new schema before producers, " +
	"so widened values are never read by code expecting the narrow type"

// classifyTypeChange classifies a type change that structural equality has
// already found to be a real difference. Most changes break the binary wire
// format; the exceptions are the protocol-level equivalences and the
// one-directional numeric promotions.
func classifyTypeChange(oldType, newType ast.Type) (Category, string) {
	// bonded<T> and T have the same wire representation
	if b, ok := oldType.(*ast.Bonded); ok && ast.TypesEqual(b.Element, newType) {
		return Compatible, ""
	}
	if b, ok := newType.(*ast.Bonded); ok && ast.TypesEqual(b.Element, oldType) {
		return Compatible, ""
	}

	// vector<T> and list<T> are the same container on the wire
	if v, ok := oldType.(*ast.Vector); ok {
		if l, ok := newType.(*ast.List); ok && ast.TypesEqual(v.Element, l.Element) {
			return Compatible, ""
		}
	}
	if l, ok := oldType.(*ast.List); ok {
		if v, ok := newType.(*ast.Vector); ok && ast.TypesEqual(l.Element, v.Element) {
			return Compatible, ""
		}
	}

	// blob is encoded as a container of int8
	if isBlob(oldType) && isInt8Sequence(newType) {
		return Compatible, ""
	}
	if isBlob(newType) && isInt8Sequence(oldType) {
		return Compatible, ""
	}

	if oldBasic, ok := oldType.(ast.BasicType); ok {
		if newBasic, ok := newType.(ast.BasicType); ok {
			if numericPromotion(oldBasic, newBasic) {
				return Compatible, ""
			}
			return BreakingWire, ""
		}
		if isEnumReference(newType) {
			// enums are 32-bit on the wire
			switch oldBasic {
			case ast.Int32:
				return Compatible, ""
			case ast.Int8, ast.Int16:
				return Compatible, enumRolloutRecommendation
			}
		}
	}
	if isEnumReference(oldType) {
		if newBasic, ok := newType.(ast.BasicType); ok && newBasic == ast.Int32 {
			return Compatible, ""
		}
	}

	return BreakingWire, ""
}

// numericPromotion reports whether a change from oldBasic to newBasic is a
// widening a binary reader tolerates. Promotions go one direction only.
func numericPromotion(oldBasic, newBasic ast.BasicType) bool {
	switch oldBasic {
	case ast.Float:
		return newBasic == ast.Double
	case ast.UInt8:
		return newBasic == ast.UInt16 || newBasic == ast.UInt32 || newBasic == ast.UInt64
	case ast.UInt16:
		return newBasic == ast.UInt32 || newBasic == ast.UInt64
	case ast.UInt32:
		return newBasic == ast.UInt64
	case ast.Int8:
		return newBasic == ast.Int16 || newBasic == ast.Int32 || newBasic == ast.Int64
	case ast.Int16:
		return newBasic == ast.Int32 || newBasic == ast.Int64
	case ast.Int32:
		return newBasic == ast.Int64
	default:
		return false
	}
}

func isBlob(t ast.Type) bool {
	b, ok := t.(ast.BasicType)
	return ok && b == ast.Blob
}

func isInt8Sequence(t ast.Type) bool {
	switch t := t.(type) {
	case *ast.Vector:
		b, ok := t.Element.(ast.BasicType)
		return ok && b == ast.Int8
	case *ast.List:
		b, ok := t.Element.(ast.BasicType)
		return ok && b == ast.Int8
	default:
		return false
	}
}

func isEnumReference(t ast.Type) bool {
	ud, ok := t.(*ast.UserDefined)
	if !ok {
		return false
	}
	_, ok = ud.Decl.(*ast.Enum)
	return ok
}
