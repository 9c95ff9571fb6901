package understory

// fakeProvider implements Provider over hand-built tables so index and
// metadata behavior can be tested without parsing anything. Method calls
// are counted per file where laziness matters.
type fakeProvider struct {
	fingerprint uint64
	files       []string

	imports  map[string][]ImportSyntax
	exports  map[string][]ExportSyntax
	invs     map[string][]Invocation
	wrappers map[string][]Wrapper
	resolves map[string]map[string]string

	names    map[Symbol]string
	aliases  map[Symbol]Symbol
	aliasErr map[Symbol]error
	sites    map[Symbol][]DeclSite
	symTypes map[Symbol]TypeRef

	refs      map[NodeRef]Symbol
	refErr    map[NodeRef]error
	nodeTypes map[NodeRef]TypeRef
	texts     map[NodeRef]string
	ranges    map[NodeRef]Range
	forms     map[NodeRef]ExprForm
	objects   map[NodeRef][]ObjectEntry
	returnsUI map[NodeRef]bool
	wrapAt    map[NodeRef]Wrapper

	sigs      map[TypeRef][]Signature
	unions    map[TypeRef][]TypeRef
	inters    map[TypeRef][]TypeRef
	bases     map[TypeRef][]TypeRef
	props     map[TypeRef][]Property
	objectish map[TypeRef]bool
	typeTexts map[TypeRef]string
	unwraps   map[TypeRef]TypeRef

	nextSym  Symbol
	nextNode NodeRef
	nextType TypeRef

	calls map[string]int
}

func newFakeProvider(files ...string) *fakeProvider {
	return &fakeProvider{
		fingerprint: 1,
		files:       files,
		imports:     make(map[string][]ImportSyntax),
		exports:     make(map[string][]ExportSyntax),
		invs:        make(map[string][]Invocation),
		wrappers:    make(map[string][]Wrapper),
		resolves:    make(map[string]map[string]string),
		names:       make(map[Symbol]string),
		aliases:     make(map[Symbol]Symbol),
		aliasErr:    make(map[Symbol]error),
		sites:       make(map[Symbol][]DeclSite),
		symTypes:    make(map[Symbol]TypeRef),
		refs:        make(map[NodeRef]Symbol),
		refErr:      make(map[NodeRef]error),
		nodeTypes:   make(map[NodeRef]TypeRef),
		texts:       make(map[NodeRef]string),
		ranges:      make(map[NodeRef]Range),
		forms:       make(map[NodeRef]ExprForm),
		objects:     make(map[NodeRef][]ObjectEntry),
		returnsUI:   make(map[NodeRef]bool),
		wrapAt:      make(map[NodeRef]Wrapper),
		sigs:        make(map[TypeRef][]Signature),
		unions:      make(map[TypeRef][]TypeRef),
		inters:      make(map[TypeRef][]TypeRef),
		bases:       make(map[TypeRef][]TypeRef),
		props:       make(map[TypeRef][]Property),
		objectish:   make(map[TypeRef]bool),
		typeTexts:   make(map[TypeRef]string),
		unwraps:     make(map[TypeRef]TypeRef),
		calls:       make(map[string]int),
	}
}

// --- fixture builders ---

func (f *fakeProvider) newSymbol(name string, sites ...DeclSite) Symbol {
	f.nextSym++
	sym := f.nextSym
	f.names[sym] = name
	f.sites[sym] = sites
	return sym
}

func (f *fakeProvider) newAlias(name string, target Symbol) Symbol {
	sym := f.newSymbol(name)
	f.aliases[sym] = target
	return sym
}

func (f *fakeProvider) newNode() NodeRef {
	f.nextNode++
	return f.nextNode
}

func (f *fakeProvider) newType(text string) TypeRef {
	f.nextType++
	f.typeTexts[f.nextType] = text
	return f.nextType
}

func (f *fakeProvider) setResolve(from, specifier, to string) {
	m := f.resolves[from]
	if m == nil {
		m = make(map[string]string)
		f.resolves[from] = m
	}
	m[specifier] = to
}

func (f *fakeProvider) hit(method string) { f.calls[method]++ }

// --- Provider ---

func (f *fakeProvider) Fingerprint() uint64 { return f.fingerprint }

func (f *fakeProvider) Files() []string { return f.files }

func (f *fakeProvider) HasFile(name string) bool {
	for _, file := range f.files {
		if file == name {
			return true
		}
	}
	return false
}

func (f *fakeProvider) ResolveModule(from, specifier string) string {
	return f.resolves[from][specifier]
}

func (f *fakeProvider) Imports(file string) []ImportSyntax {
	f.hit("Imports:" + file)
	return f.imports[file]
}

func (f *fakeProvider) Exports(file string) []ExportSyntax {
	f.hit("Exports:" + file)
	return f.exports[file]
}

func (f *fakeProvider) Invocations(file string) []Invocation {
	f.hit("Invocations:" + file)
	return f.invs[file]
}

func (f *fakeProvider) WrapperCalls(file string) []Wrapper {
	return f.wrappers[file]
}

func (f *fakeProvider) ReferencedSymbol(n NodeRef) (Symbol, error) {
	if err := f.refErr[n]; err != nil {
		return NoSymbol, err
	}
	return f.refs[n], nil
}

func (f *fakeProvider) TypeOfNode(n NodeRef) (TypeRef, error) {
	return f.nodeTypes[n], nil
}

func (f *fakeProvider) NodeText(n NodeRef) string { return f.texts[n] }

func (f *fakeProvider) NodeRange(n NodeRef) Range { return f.ranges[n] }

func (f *fakeProvider) ExprForm(n NodeRef) ExprForm { return f.forms[n] }

func (f *fakeProvider) ObjectEntries(n NodeRef) []ObjectEntry { return f.objects[n] }

func (f *fakeProvider) ReturnsUIElement(n NodeRef) bool { return f.returnsUI[n] }

func (f *fakeProvider) WrapperCall(n NodeRef) (Wrapper, bool) {
	w, ok := f.wrapAt[n]
	return w, ok
}

func (f *fakeProvider) SymbolName(sym Symbol) string { return f.names[sym] }

func (f *fakeProvider) AliasTarget(sym Symbol) (Symbol, error) {
	if err := f.aliasErr[sym]; err != nil {
		return NoSymbol, err
	}
	return f.aliases[sym], nil
}

func (f *fakeProvider) DeclarationSites(sym Symbol) []DeclSite { return f.sites[sym] }

func (f *fakeProvider) TypeOfSymbol(sym Symbol) (TypeRef, error) {
	return f.symTypes[sym], nil
}

func (f *fakeProvider) CallSignatures(t TypeRef) []Signature { return f.sigs[t] }

func (f *fakeProvider) UnionMembers(t TypeRef) []TypeRef { return f.unions[t] }

func (f *fakeProvider) IntersectionMembers(t TypeRef) []TypeRef { return f.inters[t] }

func (f *fakeProvider) BaseTypes(t TypeRef) []TypeRef { return f.bases[t] }

func (f *fakeProvider) Properties(t TypeRef) []Property { return f.props[t] }

func (f *fakeProvider) IsObjectLike(t TypeRef) bool { return f.objectish[t] }

func (f *fakeProvider) TypeText(t TypeRef) string { return f.typeTexts[t] }

func (f *fakeProvider) UnwrapDeferred(t TypeRef) (TypeRef, error) {
	return f.unwraps[t], nil
}

func (f *fakeProvider) Awaited(t TypeRef) (TypeRef, error) {
	cur := t
	seen := make(map[TypeRef]bool)
	for !seen[cur] {
		seen[cur] = true
		inner := f.unwraps[cur]
		if inner == NoType {
			break
		}
		cur = inner
	}
	return cur, nil
}
