package linker

import (
	"sync"

	"github.com/tidwall/btree"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/reporter"
)

// Symbols is a symbol table that maps qualified names of globally visible
// declarations (structs, enums, services, forward declarations) to the
// declaration instances a compilation unit owns. Aliases are file-scoped and
// never enter this table.
//
// The table is ordered so that iteration over symbols is deterministic.
// This type is thread-safe.
type Symbols struct {
	mu    sync.Mutex
	decls btree.Map[string, *symbolEntry]
}

type symbolEntry struct {
	decl ast.Declaration
	pos  ast.SourcePos
}

// Register adds the declaration to the table under every distinct namespace
// it is declared in. Collisions follow the reconciliation rules: a forward
// declaration and a struct definition with the same generic parameter shape
// reconcile (the struct prevails); two structurally identical declarations
// collapse to one; anything else is reported as a duplicate through the
// handler.
func (s *Symbols) Register(decl ast.Declaration, handler *reporter.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range declKeys(decl) {
		if err := s.registerLocked(key, decl, handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *Symbols) registerLocked(key string, decl ast.Declaration, handler *reporter.Handler) error {
	existing, ok := s.decls.Get(key)
	if !ok {
		s.decls.Set(key, &symbolEntry{decl: decl, pos: decl.SourcePos()})
		return nil
	}

	if reconciled, ok := reconcile(existing.decl, decl); ok {
		existing.decl = reconciled
		existing.pos = reconciled.SourcePos()
		return nil
	}

	return handler.HandleErrorf(decl.SourcePos(),
		"duplicate definition of %s: previously defined at %v", key, existing.pos)
}

// reconcile applies the duplicate-reconciliation rules, returning the
// surviving declaration if the pair is allowed to coexist.
func reconcile(existing, added ast.Declaration) (ast.Declaration, bool) {
	// a forward declaration and a struct definition reconcile when their
	// generic parameters agree; the definition prevails
	if fwd, ok := existing.(*ast.Forward); ok {
		if def, ok := added.(*ast.Struct); ok && typeParamsMatch(fwd.DeclTypeParams(), def.DeclTypeParams()) {
			return def, true
		}
	}
	if fwd, ok := added.(*ast.Forward); ok {
		if def, ok := existing.(*ast.Struct); ok && typeParamsMatch(fwd.DeclTypeParams(), def.DeclTypeParams()) {
			return def, true
		}
	}
	// the same file reached along two import paths that canonicalize equally
	// re-registers identical declarations; collapse them
	if declsStructurallyEqual(existing, added) {
		return existing, true
	}
	return nil, false
}

// Lookup resolves a qualified name as seen from the given file: the name is
// tried as written, then prefixed with each of the file's namespaces.
func (s *Symbols) Lookup(name ast.QualifiedName, from *ast.File) ast.Declaration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !name.IsSimple() {
		if e, ok := s.decls.Get(name.String()); ok {
			return e.decl
		}
	}
	for _, key := range namespaceKeys(from.Namespaces, name.String()) {
		if e, ok := s.decls.Get(key); ok {
			return e.decl
		}
	}
	if name.IsSimple() {
		if e, ok := s.decls.Get(name.String()); ok {
			return e.decl
		}
	}
	return nil
}

// Range iterates all registered declarations in ascending qualified-name
// order.
func (s *Symbols) Range(fn func(name string, decl ast.Declaration) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decls.Scan(func(key string, e *symbolEntry) bool {
		return fn(key, e.decl)
	})
}

// declKeys returns the table keys for a declaration: its name qualified by
// each distinct dotted namespace of its file. Language qualifiers do not
// participate; namespaces that differ only by language share a key.
func declKeys(decl ast.Declaration) []string {
	return namespaceKeys(decl.DeclNamespaces(), decl.DeclName())
}

func namespaceKeys(namespaces []*ast.Namespace, name string) []string {
	var keys []string
	seen := map[string]struct{}{}
	for _, ns := range namespaces {
		key := ns.Name() + "." + name
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		keys = append(keys, name)
	}
	return keys
}

func typeParamsMatch(a, b []*ast.TypeParam) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ValueConstraint != b[i].ValueConstraint {
			return false
		}
	}
	return true
}

func declsStructurallyEqual(a, b ast.Declaration) bool {
	if a.DeclName() != b.DeclName() {
		return false
	}
	if !typeParamsMatch(a.DeclTypeParams(), b.DeclTypeParams()) {
		return false
	}
	switch a := a.(type) {
	case *ast.Struct:
		b, ok := b.(*ast.Struct)
		if !ok || len(a.Fields) != len(b.Fields) || !ast.TypesEqual(a.Base, b.Base) {
			return false
		}
		for i := range a.Fields {
			af, bf := a.Fields[i], b.Fields[i]
			if af.Ordinal != bf.Ordinal || af.Name != bf.Name || af.Modifier != bf.Modifier ||
				!ast.TypesEqual(af.Type, bf.Type) || !ast.DefaultsEqual(af.Default, bf.Default) {
				return false
			}
		}
		return true
	case *ast.Enum:
		b, ok := b.(*ast.Enum)
		if !ok || len(a.Constants) != len(b.Constants) {
			return false
		}
		for i := range a.Constants {
			ac, bc := a.Constants[i], b.Constants[i]
			if ac.Name != bc.Name {
				return false
			}
			if (ac.Value == nil) != (bc.Value == nil) {
				return false
			}
			if ac.Value != nil && *ac.Value != *bc.Value {
				return false
			}
		}
		return true
	case *ast.Service:
		b, ok := b.(*ast.Service)
		if !ok || len(a.Methods) != len(b.Methods) || !ast.TypesEqual(a.Base, b.Base) {
			return false
		}
		for i := range a.Methods {
			if a.Methods[i].MethodName() != b.Methods[i].MethodName() {
				return false
			}
		}
		return true
	case *ast.Forward:
		_, ok := b.(*ast.Forward)
		return ok
	case *ast.Alias:
		b, ok := b.(*ast.Alias)
		return ok && ast.TypesEqual(a.Aliased, b.Aliased)
	default:
		return false
	}
}
