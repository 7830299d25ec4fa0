package linker

import (
	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/reporter"
	"github.com/bondbuild/bondcompile/walk"
)

// maxResolvePasses bounds the fixpoint iteration. Alias chains and
// cross-file references settle in a handful of passes; reaching the cap
// with outstanding work means the resolver is diverging and must say so
// rather than silently give up.
const maxResolvePasses = 10

// resolveAll rewrites every UnresolvedUserType in every file to either a
// UserDefined reference or a primitive, iterating until a pass changes
// nothing. Each pass allocates new type nodes only where something changed,
// so pure stability between passes implies a fixpoint.
func (l *linkState) resolveAll() error {
	for pass := 0; pass < maxResolvePasses; pass++ {
		l.changed = false
		for _, f := range l.files {
			for _, decl := range f.Decls {
				if err := l.resolveDecl(f, decl); err != nil {
					return err
				}
			}
		}
		if !l.changed {
			return l.checkResolved()
		}
	}
	return l.reportDivergence()
}

func (l *linkState) resolveDecl(f *ast.File, decl ast.Declaration) error {
	switch d := decl.(type) {
	case *ast.Struct:
		if d.Base != nil {
			base, err := l.resolveType(f, decl, d.Base)
			if err != nil {
				return err
			}
			d.Base = base
		}
		for _, field := range d.Fields {
			t, err := l.resolveType(f, decl, field.Type)
			if err != nil {
				return err
			}
			field.Type = t
		}
	case *ast.Service:
		if d.Base != nil {
			base, err := l.resolveType(f, decl, d.Base)
			if err != nil {
				return err
			}
			d.Base = base
		}
		for i, m := range d.Methods {
			resolved, err := l.resolveMethod(f, decl, m)
			if err != nil {
				return err
			}
			d.Methods[i] = resolved
		}
	case *ast.Alias:
		t, err := l.resolveType(f, decl, d.Aliased)
		if err != nil {
			return err
		}
		d.Aliased = t
	case *ast.Enum, *ast.Forward:
		// nothing to resolve
	}
	return nil
}

func (l *linkState) resolveMethod(f *ast.File, decl ast.Declaration, m ast.Method) (ast.Method, error) {
	switch m := m.(type) {
	case *ast.Function:
		result, err := l.resolveMethodType(f, decl, m.Result)
		if err != nil {
			return nil, err
		}
		input, err := l.resolveMethodType(f, decl, m.Input)
		if err != nil {
			return nil, err
		}
		m.Result = result
		m.Input = input
		return m, nil
	case *ast.Event:
		input, err := l.resolveMethodType(f, decl, m.Input)
		if err != nil {
			return nil, err
		}
		m.Input = input
		return m, nil
	}
	return m, nil
}

func (l *linkState) resolveMethodType(f *ast.File, decl ast.Declaration, mt ast.MethodType) (ast.MethodType, error) {
	switch mt := mt.(type) {
	case *ast.Unary:
		t, err := l.resolveType(f, decl, mt.Type)
		if err != nil {
			return nil, err
		}
		if t != mt.Type {
			return &ast.Unary{Type: t}, nil
		}
		return mt, nil
	case *ast.Streaming:
		t, err := l.resolveType(f, decl, mt.Type)
		if err != nil {
			return nil, err
		}
		if t != mt.Type {
			return &ast.Streaming{Type: t}, nil
		}
		return mt, nil
	}
	return mt, nil
}

// resolveType rewrites the given type, replacing named references. It
// allocates a new node only when a child changed, which is what makes the
// fixpoint's identity comparison meaningful.
func (l *linkState) resolveType(f *ast.File, enclosing ast.Declaration, t ast.Type) (ast.Type, error) {
	switch t := t.(type) {
	case *ast.UnresolvedUserType:
		args, _, err := l.resolveTypeArgs(f, enclosing, t.Args)
		if err != nil {
			return nil, err
		}

		if alias := l.scopes[f].lookup(t.Name, f); alias != nil {
			l.changed = true
			return &ast.UserDefined{Decl: alias, Args: args}, nil
		}
		if decl := l.sym.Lookup(t.Name, f); decl != nil {
			l.changed = true
			if decl == enclosing {
				// a struct referring to itself by name: point the reference
				// at a synthesized forward declaration so the type graph
				// never unfolds infinitely
				return &ast.UserDefined{Decl: l.forwardOf(decl), Args: args}, nil
			}
			return &ast.UserDefined{Decl: decl, Args: args}, nil
		}
		if t.Name.IsSimple() && len(args) == 0 {
			if bt, ok := ast.BasicTypeByName(t.Name[0]); ok {
				l.changed = true
				return bt, nil
			}
		}
		return nil, l.resolveFail(t.Pos, "unresolved type %s", t.Name)
	case *ast.UserDefined:
		args, changed, err := l.resolveTypeArgs(f, enclosing, t.Args)
		if err != nil {
			return nil, err
		}
		if changed {
			return &ast.UserDefined{Decl: t.Decl, Args: args}, nil
		}
		return t, nil
	case *ast.List:
		elem, err := l.resolveType(f, enclosing, t.Element)
		if err != nil {
			return nil, err
		}
		if elem != t.Element {
			return &ast.List{Element: elem}, nil
		}
		return t, nil
	case *ast.Vector:
		elem, err := l.resolveType(f, enclosing, t.Element)
		if err != nil {
			return nil, err
		}
		if elem != t.Element {
			return &ast.Vector{Element: elem}, nil
		}
		return t, nil
	case *ast.Set:
		key, err := l.resolveType(f, enclosing, t.Key)
		if err != nil {
			return nil, err
		}
		if key != t.Key {
			return &ast.Set{Key: key}, nil
		}
		return t, nil
	case *ast.Map:
		key, err := l.resolveType(f, enclosing, t.Key)
		if err != nil {
			return nil, err
		}
		value, err := l.resolveType(f, enclosing, t.Value)
		if err != nil {
			return nil, err
		}
		if key != t.Key || value != t.Value {
			return &ast.Map{Key: key, Value: value}, nil
		}
		return t, nil
	case *ast.Nullable:
		elem, err := l.resolveType(f, enclosing, t.Element)
		if err != nil {
			return nil, err
		}
		if elem != t.Element {
			return &ast.Nullable{Element: elem}, nil
		}
		return t, nil
	case *ast.Bonded:
		elem, err := l.resolveType(f, enclosing, t.Element)
		if err != nil {
			return nil, err
		}
		if elem != t.Element {
			return &ast.Bonded{Element: elem}, nil
		}
		return t, nil
	case *ast.Maybe:
		elem, err := l.resolveType(f, enclosing, t.Element)
		if err != nil {
			return nil, err
		}
		if elem != t.Element {
			return &ast.Maybe{Element: elem}, nil
		}
		return t, nil
	default:
		return t, nil
	}
}

func (l *linkState) resolveTypeArgs(f *ast.File, enclosing ast.Declaration, args []ast.Type) ([]ast.Type, bool, error) {
	changed := false
	resolved := args
	for i, a := range args {
		r, err := l.resolveType(f, enclosing, a)
		if err != nil {
			return nil, false, err
		}
		if r != a {
			if !changed {
				resolved = make([]ast.Type, len(args))
				copy(resolved, args)
				changed = true
			}
			resolved[i] = r
		}
	}
	return resolved, changed, nil
}

func (l *linkState) forwardOf(decl ast.Declaration) *ast.Forward {
	if fwd, ok := l.forwards[decl]; ok {
		return fwd
	}
	fwd := &ast.Forward{DeclBase: ast.DeclBase{
		Name:       decl.DeclName(),
		Namespaces: decl.DeclNamespaces(),
		TypeParams: decl.DeclTypeParams(),
		Pos:        decl.SourcePos(),
	}}
	l.forwards[decl] = fwd
	return fwd
}

// resolveFail reports a resolution error and halts: unlike validation,
// resolution does not continue past its first failure, because every
// subsequent error would likely be a consequence of the first.
func (l *linkState) resolveFail(pos ast.SourcePos, format string, args ...interface{}) error {
	err := reporter.Errorf(pos, format, args...)
	if handled := l.handler.HandleError(err); handled != nil {
		return handled
	}
	return err
}

// checkResolved is the safety net behind resolveType's own error paths: a
// fixpoint that still contains unresolved nodes is a bug or a divergence,
// never something to return silently.
func (l *linkState) checkResolved() error {
	if unresolved := l.firstUnresolved(); unresolved != nil {
		return l.resolveFail(unresolved.Pos, "unresolved type %s", unresolved.Name)
	}
	return nil
}

func (l *linkState) reportDivergence() error {
	if unresolved := l.firstUnresolved(); unresolved != nil {
		return l.resolveFail(unresolved.Pos,
			"type resolution did not converge after %d passes: %s remains unresolved",
			maxResolvePasses, unresolved.Name)
	}
	return l.resolveFail(ast.UnknownPos(l.files[0].Path),
		"type resolution did not converge after %d passes", maxResolvePasses)
}

func (l *linkState) firstUnresolved() *ast.UnresolvedUserType {
	var found *ast.UnresolvedUserType
	for _, f := range l.files {
		for _, decl := range f.Decls {
			_ = walk.DeclTypes(decl, func(t ast.Type) error {
				if u, ok := t.(*ast.UnresolvedUserType); ok && found == nil {
					found = u
				}
				return nil
			})
			if found != nil {
				return found
			}
		}
	}
	return nil
}
