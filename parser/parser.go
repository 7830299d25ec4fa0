package parser

import (
	"io"
	"math"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/reporter"
)

// Parse parses the given source into an AST. On a syntax error the parse is
// abandoned: the error is reported through the handler and a nil AST is
// returned. Semantic problems that the grammar admits (such as view_of
// declarations) are reported through the handler but do not abandon the
// parse unless the handler's reporter says so.
func Parse(filename string, r io.Reader, handler *reporter.Handler) (*ast.File, error) {
	lx, err := newLexer(r, filename, handler)
	if err != nil {
		return nil, err
	}
	p := &bondParser{lex: lx, handler: handler}
	p.next()
	file, err := p.parseFile()
	if err != nil {
		// a syntax error (or a reporter that said stop) abandons the file;
		// recoverable diagnostics reported along the way do not
		return nil, err
	}
	return file, nil
}

type bondParser struct {
	lex     *bondLex
	handler *reporter.Handler

	cur    token
	peeked *token

	namespaces []*ast.Namespace
	// params is the generic scope of the declaration being parsed; single
	// segment type references that name one of these become TypeParamRef.
	params []*ast.TypeParam
}

func (p *bondParser) next() {
	if p.peeked != nil {
		p.cur = *p.peeked
		p.peeked = nil
		return
	}
	p.cur = p.lex.Lex()
}

func (p *bondParser) peek() token {
	if p.peeked == nil {
		t := p.lex.Lex()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *bondParser) syntaxErrorf(format string, args ...interface{}) error {
	err := reporter.Errorf(p.cur.pos, format, args...)
	if handled := p.handler.HandleError(err); handled != nil {
		return handled
	}
	return err
}

func (p *bondParser) expected(what string) error {
	if p.cur.kind == tokenError {
		return p.cur.err
	}
	return p.syntaxErrorf("syntax error: expecting %s, found %s", what, p.cur.describe())
}

func (p *bondParser) expectPunct(r rune) error {
	if !p.cur.isPunct(r) {
		return p.expected("'" + string(r) + "'")
	}
	p.next()
	return nil
}

func (p *bondParser) expectIdent() (string, ast.SourcePos, error) {
	if p.cur.kind != tokenIdent || isKeyword(p.cur.text) {
		return "", p.cur.pos, p.expected("identifier")
	}
	name, pos := p.cur.text, p.cur.pos
	p.next()
	return name, pos, nil
}

func (p *bondParser) maybePunct(r rune) bool {
	if p.cur.isPunct(r) {
		p.next()
		return true
	}
	return false
}

func (p *bondParser) parseFile() (*ast.File, error) {
	file := &ast.File{Path: p.lex.info.Name(), Info: p.lex.info}

	for p.cur.isIdent("import") {
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		file.Imports = append(file.Imports, imp)
	}

	if !p.cur.isIdent("namespace") {
		return nil, p.expected(`"namespace"`)
	}
	for p.cur.isIdent("namespace") {
		ns, err := p.parseNamespace()
		if err != nil {
			return nil, err
		}
		file.Namespaces = append(file.Namespaces, ns)
	}
	p.namespaces = file.Namespaces

	for p.cur.kind != tokenEOF {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		if decl != nil {
			file.Decls = append(file.Decls, decl)
		}
	}
	return file, nil
}

func (p *bondParser) parseImport() (*ast.Import, error) {
	pos := p.cur.pos
	p.next() // import
	if p.cur.kind != tokenStringLit {
		return nil, p.expected("string literal")
	}
	imp := &ast.Import{Path: p.cur.str, Pos: pos}
	p.next()
	p.maybePunct(';')
	return imp, nil
}

var langTags = map[string]string{
	"cpp":    "cpp",
	"cs":     "cs",
	"csharp": "cs",
	"java":   "java",
}

func (p *bondParser) parseNamespace() (*ast.Namespace, error) {
	pos := p.cur.pos
	p.next() // namespace

	ns := &ast.Namespace{Pos: pos}
	if lang, ok := langTags[p.cur.text]; ok && p.cur.kind == tokenIdent {
		// the tag is a language qualifier only if a namespace name follows;
		// otherwise it is the first segment of the name itself
		if nxt := p.peek(); nxt.kind == tokenIdent && !isKeyword(nxt.text) {
			ns.Lang = lang
			p.next()
		}
	}

	part, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ns.Parts = append(ns.Parts, part)
	for p.maybePunct('.') {
		part, _, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		ns.Parts = append(ns.Parts, part)
	}
	p.maybePunct(';')
	return ns, nil
}

func (p *bondParser) parseAttributes() ([]*ast.Attribute, error) {
	var attrs []*ast.Attribute
	for p.cur.isPunct('[') {
		pos := p.cur.pos
		p.next()
		name, err := p.parseQualifiedName()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct('('); err != nil {
			return nil, err
		}
		if p.cur.kind != tokenStringLit {
			return nil, p.expected("string literal")
		}
		value := p.cur.str
		p.next()
		if err := p.expectPunct(')'); err != nil {
			return nil, err
		}
		if err := p.expectPunct(']'); err != nil {
			return nil, err
		}
		attrs = append(attrs, &ast.Attribute{Name: name, Value: value, Pos: pos})
	}
	return attrs, nil
}

func (p *bondParser) parseQualifiedName() (ast.QualifiedName, error) {
	part, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	name := ast.QualifiedName{part}
	for p.maybePunct('.') {
		part, _, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		name = append(name, part)
	}
	return name, nil
}

func (p *bondParser) parseDeclaration() (ast.Declaration, error) {
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	switch {
	case p.cur.isIdent("struct"):
		return p.parseStruct(attrs)
	case p.cur.isIdent("enum"):
		return p.parseEnum(attrs)
	case p.cur.isIdent("service"):
		return p.parseService(attrs)
	case p.cur.isIdent("using"):
		return p.parseAlias(attrs)
	default:
		return nil, p.expected(`"struct", "enum", "service", or "using"`)
	}
}

func (p *bondParser) parseTypeParams() ([]*ast.TypeParam, error) {
	if !p.maybePunct('<') {
		return nil, nil
	}
	var params []*ast.TypeParam
	for {
		name, pos, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		param := &ast.TypeParam{Name: name, Pos: pos}
		if p.maybePunct(':') {
			if !p.cur.isIdent("value") {
				return nil, p.expected(`"value"`)
			}
			p.next()
			param.ValueConstraint = true
		}
		params = append(params, param)
		if p.maybePunct(',') {
			continue
		}
		break
	}
	if err := p.expectPunct('>'); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *bondParser) declBase(name string, pos ast.SourcePos, params []*ast.TypeParam, attrs []*ast.Attribute) ast.DeclBase {
	return ast.DeclBase{
		Name:       name,
		Namespaces: p.namespaces,
		TypeParams: params,
		Attributes: attrs,
		Pos:        pos,
	}
}

func (p *bondParser) parseStruct(attrs []*ast.Attribute) (ast.Declaration, error) {
	p.next() // struct
	name, pos, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	params, err := p.parseTypeParams()
	if err != nil {
		return nil, err
	}
	p.params = params
	defer func() { p.params = nil }()

	if p.maybePunct(';') {
		return &ast.Forward{DeclBase: p.declBase(name, pos, params, attrs)}, nil
	}

	if p.cur.isIdent("view_of") {
		return p.parseView(name, pos, params, attrs)
	}

	s := &ast.Struct{DeclBase: p.declBase(name, pos, params, attrs)}
	if p.maybePunct(':') {
		base, err := p.parseUserType()
		if err != nil {
			return nil, err
		}
		s.Base = base
	}
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	for !p.cur.isPunct('}') {
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, field)
	}
	p.next() // }
	p.maybePunct(';')
	return s, nil
}

// parseView consumes a view_of declaration and rejects it with a
// diagnostic. The grammar accepts the syntax; projecting the named fields
// from the base struct is not supported, and silently emitting an empty
// struct would let the view drift from its base unnoticed.
func (p *bondParser) parseView(name string, pos ast.SourcePos, params []*ast.TypeParam, attrs []*ast.Attribute) (ast.Declaration, error) {
	p.next() // view_of
	if _, err := p.parseQualifiedName(); err != nil {
		return nil, err
	}
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	for !p.cur.isPunct('}') {
		if _, _, err := p.expectIdent(); err != nil {
			return nil, err
		}
		if !p.maybePunct(',') {
			p.maybePunct(';')
		}
	}
	p.next() // }
	p.maybePunct(';')
	if err := p.handler.HandleErrorf(pos, "struct %s: view_of declarations are not supported", name); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *bondParser) parseField() (*ast.Field, error) {
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokenIntLit {
		return nil, p.expected("field ordinal")
	}
	ordinal := p.cur.ival
	pos := p.cur.pos
	p.next()
	if err := p.expectPunct(':'); err != nil {
		return nil, err
	}

	modifier := ast.Optional
	switch {
	case p.cur.isIdent("optional"):
		p.next()
	case p.cur.isIdent("required"):
		modifier = ast.Required
		p.next()
	case p.cur.isIdent("required_optional"):
		modifier = ast.RequiredOptional
		p.next()
	}

	fieldType, err := p.parseFieldType()
	if err != nil {
		return nil, err
	}
	name, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	var def ast.Default
	if p.maybePunct('=') {
		def, err = p.parseDefault()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct(';'); err != nil {
		return nil, err
	}

	if ordinal > math.MaxUint16 {
		if err := p.handler.HandleErrorf(pos, "field %s: ordinal %d is out of range: must be in [0, 65535]", name, ordinal); err != nil {
			return nil, err
		}
	}

	return &ast.Field{
		Ordinal:    uint16(ordinal),
		Modifier:   modifier,
		Type:       fieldType,
		Name:       name,
		Default:    def,
		Attributes: attrs,
		Pos:        pos,
	}, nil
}

func (p *bondParser) parseDefault() (ast.Default, error) {
	switch {
	case p.cur.isIdent("true"):
		p.next()
		return ast.DefaultBool{Value: true}, nil
	case p.cur.isIdent("false"):
		p.next()
		return ast.DefaultBool{Value: false}, nil
	case p.cur.isIdent("nothing"):
		p.next()
		return ast.DefaultNothing{}, nil
	case p.cur.kind == tokenStringLit:
		d := ast.DefaultString{Value: p.cur.str, Wide: p.cur.wide}
		p.next()
		return d, nil
	case p.cur.kind == tokenIdent && !isKeyword(p.cur.text):
		d := ast.DefaultEnum{Value: p.cur.text}
		p.next()
		return d, nil
	}

	negate := false
	if p.cur.isPunct('-') {
		negate = true
		p.next()
	} else if p.cur.isPunct('+') {
		p.next()
	}
	switch p.cur.kind {
	case tokenIntLit:
		v, err := p.signedInt(p.cur.ival, negate)
		if err != nil {
			return nil, err
		}
		p.next()
		return ast.DefaultInteger{Value: v}, nil
	case tokenFloatLit:
		v := p.cur.fval
		if negate {
			v = -v
		}
		p.next()
		return ast.DefaultFloat{Value: v}, nil
	default:
		return nil, p.expected("default value")
	}
}

func (p *bondParser) signedInt(magnitude uint64, negate bool) (int64, error) {
	if negate {
		if magnitude > uint64(math.MaxInt64)+1 {
			return 0, p.syntaxErrorf("integer literal out of range: -%d", magnitude)
		}
		return -int64(magnitude), nil
	}
	if magnitude > math.MaxInt64 {
		return 0, p.syntaxErrorf("integer literal out of range: %d", magnitude)
	}
	return int64(magnitude), nil
}

// parseFieldType parses a field's declared type, which admits the meta
// intrinsics bond_meta::name and bond_meta::full_name in addition to every
// other type form.
func (p *bondParser) parseFieldType() (ast.Type, error) {
	if p.cur.isIdent("bond_meta") {
		p.next()
		if err := p.expectPunct(':'); err != nil {
			return nil, err
		}
		if err := p.expectPunct(':'); err != nil {
			return nil, err
		}
		name, _, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		switch name {
		case "name":
			return &ast.MetaName{}, nil
		case "full_name":
			return &ast.MetaFullName{}, nil
		default:
			return nil, p.syntaxErrorf("unknown bond_meta type: bond_meta::%s", name)
		}
	}
	return p.parseType()
}

func (p *bondParser) parseType() (ast.Type, error) {
	if p.cur.kind != tokenIdent {
		return nil, p.expected("type")
	}
	if bt, ok := ast.BasicTypeByName(p.cur.text); ok && p.cur.text == bt.String() {
		// exact-case primitive names resolve here; case variants like
		// "String" stay named references until the linker
		p.next()
		return bt, nil
	}

	name := p.cur.text
	switch name {
	case "list", "vector", "set", "nullable", "bonded":
		if p.peek().isPunct('<') {
			p.next()
			p.next() // <
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct('>'); err != nil {
				return nil, err
			}
			switch name {
			case "list":
				return &ast.List{Element: elem}, nil
			case "vector":
				return &ast.Vector{Element: elem}, nil
			case "set":
				return &ast.Set{Key: elem}, nil
			case "nullable":
				return &ast.Nullable{Element: elem}, nil
			default:
				return &ast.Bonded{Element: elem}, nil
			}
		}
	case "map":
		if p.peek().isPunct('<') {
			p.next()
			p.next() // <
			key, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(','); err != nil {
				return nil, err
			}
			value, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct('>'); err != nil {
				return nil, err
			}
			return &ast.Map{Key: key, Value: value}, nil
		}
	}

	return p.parseUserType()
}

// parseUserType parses a (possibly qualified, possibly generic) named type
// reference. A single-segment name that matches a generic parameter of the
// enclosing declaration becomes a TypeParamRef.
func (p *bondParser) parseUserType() (ast.Type, error) {
	pos := p.cur.pos
	name, err := p.parseQualifiedName()
	if err != nil {
		return nil, err
	}

	if name.IsSimple() {
		for _, param := range p.params {
			if param.Name == name[0] {
				return &ast.TypeParamRef{Param: param}, nil
			}
		}
	}

	var args []ast.Type
	if p.maybePunct('<') {
		for {
			arg, err := p.parseTypeArg()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.maybePunct(',') {
				continue
			}
			break
		}
		if err := p.expectPunct('>'); err != nil {
			return nil, err
		}
	}
	return &ast.UnresolvedUserType{Name: name, Args: args, Pos: pos}, nil
}

func (p *bondParser) parseTypeArg() (ast.Type, error) {
	negate := false
	if p.cur.isPunct('-') {
		negate = true
		p.next()
	}
	if p.cur.kind == tokenIntLit {
		v, err := p.signedInt(p.cur.ival, negate)
		if err != nil {
			return nil, err
		}
		p.next()
		return &ast.IntTypeArg{Value: v}, nil
	}
	if negate {
		return nil, p.expected("integer literal")
	}
	return p.parseType()
}

func (p *bondParser) parseEnum(attrs []*ast.Attribute) (ast.Declaration, error) {
	p.next() // enum
	name, pos, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	e := &ast.Enum{DeclBase: p.declBase(name, pos, nil, attrs)}
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	for !p.cur.isPunct('}') {
		constant, err := p.parseEnumConstant()
		if err != nil {
			return nil, err
		}
		e.Constants = append(e.Constants, constant)
		// constants are separated by ',' or ';', with an optional trailing
		// separator before the closing brace
		if !p.maybePunct(',') && !p.maybePunct(';') {
			break
		}
	}
	if err := p.expectPunct('}'); err != nil {
		return nil, err
	}
	p.maybePunct(';')
	return e, nil
}

func (p *bondParser) parseEnumConstant() (*ast.EnumConstant, error) {
	name, pos, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	c := &ast.EnumConstant{Name: name, Pos: pos}
	if p.maybePunct('=') {
		negate := false
		if p.cur.isPunct('-') {
			negate = true
			p.next()
		}
		if p.cur.kind != tokenIntLit {
			return nil, p.expected("integer literal")
		}
		v, err := p.signedInt(p.cur.ival, negate)
		if err != nil {
			return nil, err
		}
		p.next()
		c.Value = &v
	}
	return c, nil
}

func (p *bondParser) parseService(attrs []*ast.Attribute) (ast.Declaration, error) {
	p.next() // service
	name, pos, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	params, err := p.parseTypeParams()
	if err != nil {
		return nil, err
	}
	p.params = params
	defer func() { p.params = nil }()

	s := &ast.Service{DeclBase: p.declBase(name, pos, params, attrs)}
	if p.maybePunct(':') {
		base, err := p.parseUserType()
		if err != nil {
			return nil, err
		}
		s.Base = base
	}
	if err := p.expectPunct('{'); err != nil {
		return nil, err
	}
	for !p.cur.isPunct('}') {
		method, err := p.parseMethod()
		if err != nil {
			return nil, err
		}
		s.Methods = append(s.Methods, method)
	}
	p.next() // }
	p.maybePunct(';')
	return s, nil
}

func (p *bondParser) parseMethod() (ast.Method, error) {
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}

	if p.cur.isIdent("nothing") {
		pos := p.cur.pos
		p.next()
		name, _, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		input, err := p.parseMethodInput()
		if err != nil {
			return nil, err
		}
		p.maybePunct(';')
		return &ast.Event{Name: name, Input: input, Attributes: attrs, Pos: pos}, nil
	}

	pos := p.cur.pos
	result, err := p.parseMethodType()
	if err != nil {
		return nil, err
	}
	name, _, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	input, err := p.parseMethodInput()
	if err != nil {
		return nil, err
	}
	p.maybePunct(';')
	return &ast.Function{Name: name, Result: result, Input: input, Attributes: attrs, Pos: pos}, nil
}

func (p *bondParser) parseMethodInput() (ast.MethodType, error) {
	if err := p.expectPunct('('); err != nil {
		return nil, err
	}
	if p.maybePunct(')') {
		return ast.Void{}, nil
	}
	mt, err := p.parseMethodType()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(')'); err != nil {
		return nil, err
	}
	return mt, nil
}

func (p *bondParser) parseMethodType() (ast.MethodType, error) {
	if p.cur.isIdent("void") {
		p.next()
		return ast.Void{}, nil
	}
	if p.cur.isIdent("stream") {
		p.next()
		t, err := p.parseUserType()
		if err != nil {
			return nil, err
		}
		return &ast.Streaming{Type: t}, nil
	}
	t, err := p.parseUserType()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{Type: t}, nil
}

func (p *bondParser) parseAlias(attrs []*ast.Attribute) (ast.Declaration, error) {
	p.next() // using
	name, pos, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	params, err := p.parseTypeParams()
	if err != nil {
		return nil, err
	}
	p.params = params
	defer func() { p.params = nil }()

	if err := p.expectPunct('='); err != nil {
		return nil, err
	}
	aliased, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(';'); err != nil {
		return nil, err
	}
	return &ast.Alias{DeclBase: p.declBase(name, pos, params, attrs), Aliased: aliased}, nil
}
