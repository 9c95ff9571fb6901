package tsx

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/understory"
)

// The type model is built from annotations as written. Named types resolve
// through the annotation file's scope; non-generic aliases dereference to
// their aliased type; interfaces and classes dereference to a structural
// object built from their declared members. Generic aliases, external
// names, and anything the syntax does not spell out stay opaque.

type typeKind int

const (
	typeOpaque typeKind = iota
	typeNamed
	typeObject
	typeFunction
	typeUnion
	typeIntersection
)

type typeEntry struct {
	kind typeKind
	// text is the annotation as written, "" for synthesized types.
	text string

	// named types
	name       string
	args       []understory.TypeRef
	file       int32
	target     understory.Symbol
	targetDone bool

	// structural types
	sigs       []understory.Signature
	props      []understory.Property
	members    []understory.TypeRef
	bases      []understory.TypeRef
	objectLike bool
}

func (p *Provider) addType(e *typeEntry) understory.TypeRef {
	p.types = append(p.types, e)
	return understory.TypeRef(len(p.types))
}

func (p *Provider) typ(ref understory.TypeRef) *typeEntry {
	i := int(ref) - 1
	if i < 0 || i >= len(p.types) {
		return nil
	}
	return p.types[i]
}

// buildType interns the type written at a type-syntax node. The same
// annotation node always yields the same TypeRef, which bounds recursion
// over self-referential shapes.
func (p *Provider) buildType(idx int32, n *sitter.Node) understory.TypeRef {
	for n != nil {
		switch n.Type() {
		case "type_annotation", "parenthesized_type", "readonly_type":
			n = firstNamedChild(n)
		default:
			key := nodeKey{file: idx, start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
			if ref, ok := p.typeIDs[key]; ok {
				return ref
			}
			e := p.buildTypeEntry(idx, n)
			e.text = n.Content(p.files[idx].src)
			ref := p.addType(e)
			p.typeIDs[key] = ref
			return ref
		}
	}
	return understory.NoType
}

func (p *Provider) buildTypeEntry(idx int32, n *sitter.Node) *typeEntry {
	src := p.files[idx].src
	switch n.Type() {
	case "type_identifier", "nested_type_identifier", "identifier", "member_expression":
		// The expression kinds cover class heritage, where the grammar
		// puts an expression in type position.
		return &typeEntry{kind: typeNamed, name: n.Content(src), file: idx}
	case "generic_type":
		e := &typeEntry{kind: typeNamed, file: idx}
		if name := n.ChildByFieldName("name"); name != nil {
			e.name = name.Content(src)
		}
		if args := n.ChildByFieldName("type_arguments"); args != nil {
			count := int(args.NamedChildCount())
			for i := 0; i < count; i++ {
				e.args = append(e.args, p.buildType(idx, args.NamedChild(i)))
			}
		}
		return e
	case "union_type":
		e := &typeEntry{kind: typeUnion}
		p.collectVariants(idx, n, "union_type", &e.members)
		return e
	case "intersection_type":
		e := &typeEntry{kind: typeIntersection}
		p.collectVariants(idx, n, "intersection_type", &e.members)
		return e
	case "object_type":
		e := &typeEntry{kind: typeObject, objectLike: true}
		p.collectMembers(idx, n, e)
		return e
	case "function_type", "constructor_type":
		return &typeEntry{kind: typeFunction, sigs: []understory.Signature{p.signatureFrom(idx, n)}}
	case "array_type", "tuple_type":
		return &typeEntry{kind: typeObject, objectLike: true}
	default:
		return &typeEntry{kind: typeOpaque}
	}
}

// collectVariants flattens the binary union/intersection tree into one
// member list.
func (p *Provider) collectVariants(idx int32, n *sitter.Node, kind string, out *[]understory.TypeRef) {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c.Type() == kind {
			p.collectVariants(idx, c, kind, out)
			continue
		}
		*out = append(*out, p.buildType(idx, c))
	}
}

// collectMembers reads the members of an object type or interface body.
func (p *Provider) collectMembers(idx int32, body *sitter.Node, e *typeEntry) {
	src := p.files[idx].src
	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "property_signature":
			name := member.ChildByFieldName("name")
			if name == nil {
				continue
			}
			e.props = append(e.props, understory.Property{
				Name:     stringOrIdent(src, name),
				Type:     p.buildType(idx, member.ChildByFieldName("type")),
				Optional: hasTokenChild(member, "?"),
			})
		case "call_signature":
			e.sigs = append(e.sigs, p.signatureFrom(idx, member))
		case "method_signature":
			name := member.ChildByFieldName("name")
			if name == nil {
				continue
			}
			fn := p.addType(&typeEntry{
				kind: typeFunction,
				sigs: []understory.Signature{p.signatureFrom(idx, member)},
			})
			e.props = append(e.props, understory.Property{
				Name:     stringOrIdent(src, name),
				Type:     fn,
				Optional: hasTokenChild(member, "?"),
			})
		}
	}
}

// signatureFrom reads one callable signature: parameter types in position,
// unannotated parameters as NoType placeholders, the return type, and the
// async marker. Works for type-level and value-level function syntax.
func (p *Provider) signatureFrom(idx int32, fn *sitter.Node) understory.Signature {
	sig := understory.Signature{Async: hasTokenChild(fn, "async")}
	if params := fn.ChildByFieldName("parameters"); params != nil {
		count := int(params.NamedChildCount())
		for i := 0; i < count; i++ {
			param := params.NamedChild(i)
			switch param.Type() {
			case "required_parameter", "optional_parameter":
				sig.Params = append(sig.Params, p.buildType(idx, param.ChildByFieldName("type")))
			}
		}
	} else if fn.ChildByFieldName("parameter") != nil {
		// Bare single-parameter arrow.
		sig.Params = append(sig.Params, understory.NoType)
	}
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		sig.Return = p.buildType(idx, ret)
	}
	return sig
}

// structuralTypeOf builds the object type declared by an interface or
// class symbol, merging every declaration site.
func (p *Provider) structuralTypeOf(sym understory.Symbol) understory.TypeRef {
	if ref, ok := p.symStructs[sym]; ok {
		return ref
	}
	se := p.sym(sym)
	if se == nil {
		return understory.NoType
	}
	entry := &typeEntry{kind: typeObject, objectLike: true}
	ref := p.addType(entry)
	p.symStructs[sym] = ref

	for _, site := range se.sites {
		ne := p.node(site.Node)
		if ne == nil {
			continue
		}
		switch ne.n.Type() {
		case "interface_declaration":
			if body := ne.n.ChildByFieldName("body"); body != nil {
				p.collectMembers(ne.file, body, entry)
			}
			if ext := firstNamedOfType(ne.n, "extends_type_clause"); ext != nil {
				count := int(ext.NamedChildCount())
				for i := 0; i < count; i++ {
					entry.bases = append(entry.bases, p.buildType(ne.file, ext.NamedChild(i)))
				}
			}
		case "class_declaration", "abstract_class_declaration":
			if body := ne.n.ChildByFieldName("body"); body != nil {
				p.collectClassMembers(ne.file, body, entry)
			}
			if heritage := firstNamedOfType(ne.n, "class_heritage"); heritage != nil {
				if ext := firstNamedOfType(heritage, "extends_clause"); ext != nil {
					if value := ext.ChildByFieldName("value"); value != nil {
						entry.bases = append(entry.bases, p.buildType(ne.file, value))
					}
				}
			}
		}
	}
	return ref
}

func (p *Provider) collectClassMembers(idx int32, body *sitter.Node, e *typeEntry) {
	src := p.files[idx].src
	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "public_field_definition", "field_definition":
			name := member.ChildByFieldName("name")
			if name == nil {
				continue
			}
			e.props = append(e.props, understory.Property{
				Name:     stringOrIdent(src, name),
				Type:     p.buildType(idx, member.ChildByFieldName("type")),
				Optional: hasTokenChild(member, "?"),
			})
		case "method_definition":
			name := member.ChildByFieldName("name")
			if name == nil {
				continue
			}
			fn := p.addType(&typeEntry{
				kind: typeFunction,
				sigs: []understory.Signature{p.signatureFrom(idx, member)},
			})
			e.props = append(e.props, understory.Property{
				Name: stringOrIdent(src, name),
				Type: fn,
			})
		}
	}
}

// namedTarget resolves a named type to its declaration symbol through the
// annotation file's scope, one namespace qualifier deep. Resolved lazily
// and memoized per entry.
func (p *Provider) namedTarget(e *typeEntry) understory.Symbol {
	if e.targetDone {
		return e.target
	}
	e.targetDone = true
	f := p.files[e.file]
	name := e.name
	if i := strings.Index(name, "."); i >= 0 {
		head, rest := name[:i], name[i+1:]
		headSym := p.sym(f.scope[head])
		if headSym == nil || !headSym.alias || headSym.aliasName != "*" {
			return understory.NoSymbol
		}
		resolved := p.ResolveModule(f.name, headSym.aliasModule)
		if resolved == "" {
			return understory.NoSymbol
		}
		for _, exp := range p.Exports(resolved) {
			if exp.Name == rest {
				e.target = p.resolveAlias(exp.Sym)
				break
			}
		}
		return e.target
	}
	if sym := f.scope[name]; sym != understory.NoSymbol {
		e.target = p.resolveAlias(sym)
	}
	return e.target
}

// deref resolves named types down to something structural: interfaces and
// classes become their structural object, non-generic aliases become their
// aliased type. External names, generic aliases, and unresolved names stay
// as they are.
func (p *Provider) deref(t understory.TypeRef) understory.TypeRef {
	seen := make(map[understory.TypeRef]bool)
	for {
		e := p.typ(t)
		if e == nil || e.kind != typeNamed || seen[t] {
			return t
		}
		seen[t] = true
		target := p.namedTarget(e)
		se := p.sym(target)
		if se == nil || se.alias {
			return t
		}
		flags := declFlagsOf(se)
		switch {
		case flags.Has(understory.FlagInterface) || flags.Has(understory.FlagClass):
			return p.structuralTypeOf(target)
		case flags.Has(understory.FlagTypeAlias):
			next := p.aliasedType(se)
			if next == understory.NoType {
				return t
			}
			t = next
		default:
			return t
		}
	}
}

// aliasedType returns the right-hand type of a non-generic type alias.
func (p *Provider) aliasedType(se *symbolEntry) understory.TypeRef {
	for _, site := range se.sites {
		ne := p.node(site.Node)
		if ne == nil || ne.n.Type() != "type_alias_declaration" {
			continue
		}
		if ne.n.ChildByFieldName("type_parameters") != nil {
			// Generic alias: substitution is out of model.
			return understory.NoType
		}
		if value := ne.n.ChildByFieldName("value"); value != nil {
			return p.buildType(ne.file, value)
		}
	}
	return understory.NoType
}

func declFlagsOf(se *symbolEntry) understory.DeclFlags {
	var flags understory.DeclFlags
	for _, site := range se.sites {
		flags |= site.Flags
	}
	return flags
}

// TypeOfSymbol types a symbol from its declarations: declared overload
// signatures for functions, the annotation or initializer for variables,
// the structural object for interfaces and classes, the aliased type for
// type aliases. Wrapper calls are value-preserving: a variable initialized
// from a recognized wrapper takes the wrapped argument's type.
func (p *Provider) TypeOfSymbol(sym understory.Symbol) (understory.TypeRef, error) {
	e := p.sym(sym)
	if e == nil {
		return understory.NoType, nil
	}
	if e.typed {
		return e.typeRef, nil
	}
	if e.alias {
		target := p.resolveAlias(sym)
		if target == sym {
			return understory.NoType, nil
		}
		ref, err := p.TypeOfSymbol(target)
		if err == nil {
			e.typed = true
			e.typeRef = ref
		}
		return ref, err
	}
	if p.typing[sym] {
		// Wrapper chain leading back here. Unknowable without a fixpoint.
		return understory.NoType, nil
	}
	p.typing[sym] = true
	ref := p.computeSymbolType(sym, e)
	delete(p.typing, sym)
	e.typed = true
	e.typeRef = ref
	return ref, nil
}

func (p *Provider) computeSymbolType(sym understory.Symbol, e *symbolEntry) understory.TypeRef {
	var fns []*nodeEntry
	for _, site := range e.sites {
		if ne := p.node(site.Node); ne != nil && isFunctionDeclNode(ne.n) {
			fns = append(fns, ne)
		}
	}
	if len(fns) > 0 {
		// Overloaded functions: the bodyless declarations are the declared
		// signatures; the implementation signature stays out when any
		// exist.
		var bodyless []*nodeEntry
		for _, ne := range fns {
			if ne.n.ChildByFieldName("body") == nil {
				bodyless = append(bodyless, ne)
			}
		}
		if len(bodyless) > 0 {
			fns = bodyless
		}
		entry := &typeEntry{kind: typeFunction}
		for _, ne := range fns {
			entry.sigs = append(entry.sigs, p.signatureFrom(ne.file, ne.n))
		}
		return p.addType(entry)
	}

	for _, site := range e.sites {
		ne := p.node(site.Node)
		if ne == nil {
			continue
		}
		switch ne.n.Type() {
		case "variable_declarator", "export_statement":
			if ref := p.typeOfInitializer(ne.file, ne.n); ref != understory.NoType {
				return ref
			}
		case "interface_declaration", "class_declaration", "abstract_class_declaration":
			return p.structuralTypeOf(sym)
		case "type_alias_declaration":
			if ref := p.aliasedType(e); ref != understory.NoType {
				return ref
			}
		default:
			if isFunctionNode(ne.n) {
				return p.addType(&typeEntry{
					kind: typeFunction,
					sigs: []understory.Signature{p.signatureFrom(ne.file, ne.n)},
				})
			}
		}
	}
	return understory.NoType
}

func isFunctionDeclNode(n *sitter.Node) bool {
	t := n.Type()
	return t == "function_declaration" || t == "generator_function_declaration" || t == "function_signature"
}

// typeOfInitializer types a declarator or default export: the explicit
// annotation wins, then a function initializer's synthesized signature,
// then wrapper transparency for recognized wrapper calls.
func (p *Provider) typeOfInitializer(idx int32, n *sitter.Node) understory.TypeRef {
	if ann := n.ChildByFieldName("type"); ann != nil {
		return p.buildType(idx, ann)
	}
	value := unwrapExpression(n.ChildByFieldName("value"))
	if value == nil {
		return understory.NoType
	}
	if isFunctionNode(value) {
		return p.addType(&typeEntry{
			kind: typeFunction,
			sigs: []understory.Signature{p.signatureFrom(idx, value)},
		})
	}
	if value.Type() != "call_expression" {
		return understory.NoType
	}
	callee := value.ChildByFieldName("function")
	if callee == nil || !p.isWrapperName(callee.Content(p.files[idx].src)) {
		return understory.NoType
	}
	args := value.ChildByFieldName("arguments")
	if args == nil || args.Type() != "arguments" {
		return understory.NoType
	}
	arg := unwrapExpression(firstNamedChild(args))
	if arg == nil {
		return understory.NoType
	}
	if isFunctionNode(arg) {
		return p.addType(&typeEntry{
			kind: typeFunction,
			sigs: []understory.Signature{p.signatureFrom(idx, arg)},
		})
	}
	if arg.Type() == "identifier" {
		sym := p.files[idx].scope[arg.Content(p.files[idx].src)]
		if sym == understory.NoSymbol {
			return understory.NoType
		}
		ref, _ := p.TypeOfSymbol(p.resolveAlias(sym))
		return ref
	}
	return understory.NoType
}

func (p *Provider) isWrapperName(callee string) bool {
	if p.wrapperNames[callee] {
		return true
	}
	if i := strings.LastIndexByte(callee, '.'); i >= 0 {
		return p.wrapperNames[callee[i+1:]]
	}
	return false
}

// TypeOfNode types an expression: casts take the asserted type,
// identifiers take their symbol's type, calls take the callee's first
// signature return, awaits settle the operand.
func (p *Provider) TypeOfNode(ref understory.NodeRef) (understory.TypeRef, error) {
	e := p.node(ref)
	if e == nil {
		return understory.NoType, nil
	}
	n := e.n
	for n != nil && (n.Type() == "parenthesized_expression" || n.Type() == "non_null_expression") {
		n = firstNamedChild(n)
	}
	if n == nil {
		return understory.NoType, nil
	}
	switch n.Type() {
	case "as_expression", "satisfies_expression":
		if t := n.NamedChild(1); t != nil {
			return p.buildType(e.file, t), nil
		}
		return understory.NoType, nil
	case "identifier", "member_expression", "nested_identifier":
		sym, err := p.ReferencedSymbol(p.intern(e.file, n))
		if err != nil || sym == understory.NoSymbol {
			return understory.NoType, err
		}
		return p.TypeOfSymbol(p.resolveAlias(sym))
	case "call_expression":
		callee := n.ChildByFieldName("function")
		if callee == nil {
			return understory.NoType, nil
		}
		ct, err := p.TypeOfNode(p.intern(e.file, callee))
		if err != nil || ct == understory.NoType {
			return understory.NoType, err
		}
		if sigs := p.CallSignatures(ct); len(sigs) > 0 {
			return sigs[0].Return, nil
		}
		return understory.NoType, nil
	case "await_expression":
		inner := firstNamedChild(n)
		if inner == nil {
			return understory.NoType, nil
		}
		it, err := p.TypeOfNode(p.intern(e.file, inner))
		if err != nil || it == understory.NoType {
			return understory.NoType, err
		}
		return p.Awaited(it)
	default:
		return understory.NoType, nil
	}
}

// CallSignatures lists the call signatures of a callable type.
func (p *Provider) CallSignatures(t understory.TypeRef) []understory.Signature {
	e := p.typ(p.deref(t))
	if e == nil {
		return nil
	}
	switch e.kind {
	case typeFunction, typeObject:
		return e.sigs
	default:
		return nil
	}
}

// UnionMembers lists union constituents.
func (p *Provider) UnionMembers(t understory.TypeRef) []understory.TypeRef {
	e := p.typ(p.deref(t))
	if e == nil || e.kind != typeUnion {
		return nil
	}
	return e.members
}

// IntersectionMembers lists intersection constituents.
func (p *Provider) IntersectionMembers(t understory.TypeRef) []understory.TypeRef {
	e := p.typ(p.deref(t))
	if e == nil || e.kind != typeIntersection {
		return nil
	}
	return e.members
}

// BaseTypes lists declared bases (interface extends, class heritage).
func (p *Provider) BaseTypes(t understory.TypeRef) []understory.TypeRef {
	e := p.typ(p.deref(t))
	if e == nil || e.kind != typeObject {
		return nil
	}
	return e.bases
}

// Properties lists the own named members of an object-like type.
func (p *Provider) Properties(t understory.TypeRef) []understory.Property {
	e := p.typ(p.deref(t))
	if e == nil || e.kind != typeObject {
		return nil
	}
	return e.props
}

// IsObjectLike reports whether the type dereferences to something
// structurally object-shaped.
func (p *Provider) IsObjectLike(t understory.TypeRef) bool {
	e := p.typ(p.deref(t))
	return e != nil && e.kind == typeObject && e.objectLike
}

// TypeText returns the annotation text as written.
func (p *Provider) TypeText(t understory.TypeRef) string {
	e := p.typ(t)
	if e == nil {
		return ""
	}
	return e.text
}

// UnwrapDeferred strips one recognized deferred wrapper, matching the
// configured names with or without a namespace qualifier.
func (p *Provider) UnwrapDeferred(t understory.TypeRef) (understory.TypeRef, error) {
	e := p.typ(p.deref(t))
	if e == nil || e.kind != typeNamed {
		return understory.NoType, nil
	}
	name := e.name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if p.deferredNames[name] && len(e.args) == 1 {
		return e.args[0], nil
	}
	return understory.NoType, nil
}

// Awaited settles every recognized deferred layer: Promise<Promise<T>>
// yields T. Types that unwrap nothing come back unchanged.
func (p *Provider) Awaited(t understory.TypeRef) (understory.TypeRef, error) {
	cur := t
	seen := make(map[understory.TypeRef]bool)
	for !seen[cur] {
		seen[cur] = true
		inner, err := p.UnwrapDeferred(cur)
		if err != nil {
			return cur, err
		}
		if inner == understory.NoType {
			break
		}
		cur = inner
	}
	return cur, nil
}
