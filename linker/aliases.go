package linker

import "github.com/bondbuild/bondcompile/ast"

// aliasScope holds the aliases visible within one file. Alias symbols are
// deliberately not part of the global symbol table: two files may alias the
// same name to different types without conflict. The link operation gives
// each file its own scope with no parent, so one file's aliases are never
// visible from another.
type aliasScope struct {
	parent  *aliasScope
	aliases map[string]*ast.Alias
}

func newAliasScope(parent *aliasScope) *aliasScope {
	return &aliasScope{parent: parent, aliases: map[string]*ast.Alias{}}
}

// add registers an alias under its simple name and under each of its
// namespace-qualified names. It returns the previously registered alias when
// the name is already taken in this scope.
func (s *aliasScope) add(alias *ast.Alias) *ast.Alias {
	keys := append([]string{alias.DeclName()}, declKeys(alias)...)
	for _, key := range keys {
		if existing, ok := s.aliases[key]; ok {
			return existing
		}
	}
	for _, key := range keys {
		s.aliases[key] = alias
	}
	return nil
}

// lookup resolves an alias name as seen from the given file: as written,
// then qualified by each of the file's namespaces.
func (s *aliasScope) lookup(name ast.QualifiedName, from *ast.File) *ast.Alias {
	for scope := s; scope != nil; scope = scope.parent {
		if a, ok := scope.aliases[name.String()]; ok {
			return a
		}
		for _, key := range namespaceKeys(from.Namespaces, name.String()) {
			if a, ok := scope.aliases[key]; ok {
				return a
			}
		}
	}
	return nil
}
