package understory

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// metadataEngine computes and caches the derived fact bundle per canonical
// identity. Derivations are pure within a snapshot: recomputing for the
// same identity always yields the same bundle, so the first result is kept
// for the snapshot's lifetime.
type metadataEngine struct {
	p        Provider
	resolver *resolver

	memoWrappers   map[string]bool
	deferredTypes  []string
	uiElementTypes []string

	cache     map[Symbol]*SymbolMetadata
	computing map[Symbol]bool
}

func newMetadataEngine(p Provider, r *resolver, memoWrappers, deferredTypes, uiElementTypes []string) *metadataEngine {
	wrappers := make(map[string]bool, len(memoWrappers))
	for _, w := range memoWrappers {
		wrappers[w] = true
	}
	return &metadataEngine{
		p:              p,
		resolver:       r,
		memoWrappers:   wrappers,
		deferredTypes:  deferredTypes,
		uiElementTypes: uiElementTypes,
		cache:          make(map[Symbol]*SymbolMetadata),
		computing:      make(map[Symbol]bool),
	}
}

// Metadata returns the bundle for id, computing it on first request.
func (m *metadataEngine) Metadata(id Symbol) *SymbolMetadata {
	if md, ok := m.cache[id]; ok {
		return md
	}
	if m.computing[id] {
		// Cyclic wrapper chain (a wrapped value whose argument leads back
		// here). Answer conservatively and do not cache the placeholder.
		return &SymbolMetadata{Kind: KindUnknown}
	}
	m.computing[id] = true
	md := m.compute(id)
	delete(m.computing, id)
	m.cache[id] = md
	return md
}

func (m *metadataEngine) compute(id Symbol) *SymbolMetadata {
	sites := m.p.DeclarationSites(id)

	md := &SymbolMetadata{
		DeclaredName: m.declaredName(id, sites),
		Kind:         classifyKind(siteFlags(sites)),
	}
	if len(sites) > 0 {
		md.DeclarationFile = sites[0].File
	}
	md.IsHookLike = isHookName(md.DeclaredName)

	sigs := m.signatures(id)
	md.IsAsync = m.isAsync(sites, sigs)
	md.ReturnsDeferredValue = m.returnsDeferred(sigs)
	md.IsComponent = m.isComponent(id, md.DeclaredName, sites, sigs)
	if md.IsComponent {
		md.IsMemoized = m.isMemoized(id, sites)
		md.PropertyShapes = m.propertyShapes(sigs)
	}
	return md
}

// declaredName prefers an identifier bound at a declaration site. An
// unnamed default export has no site name and falls back to the raw symbol
// name, which may literally be "default".
func (m *metadataEngine) declaredName(id Symbol, sites []DeclSite) string {
	for _, site := range sites {
		if site.Name != "" {
			return site.Name
		}
	}
	return m.p.SymbolName(id)
}

func (m *metadataEngine) signatures(id Symbol) []Signature {
	t, err := m.p.TypeOfSymbol(id)
	if err != nil || t == NoType {
		return nil
	}
	return m.p.CallSignatures(t)
}

// isAsync holds when any declaration site is syntactically async, or when
// the symbol's type has signatures and every one of them is async.
func (m *metadataEngine) isAsync(sites []DeclSite, sigs []Signature) bool {
	for _, site := range sites {
		if site.Flags.Has(FlagAsync) {
			return true
		}
	}
	if len(sigs) == 0 {
		return false
	}
	for _, sig := range sigs {
		if !sig.Async {
			return false
		}
	}
	return true
}

// returnsDeferred requires every call signature to return a deferred value.
// A single synchronous overload clears the flag; so does having no
// signatures at all.
func (m *metadataEngine) returnsDeferred(sigs []Signature) bool {
	if len(sigs) == 0 {
		return false
	}
	for _, sig := range sigs {
		if !m.deferredLike(sig.Return, make(map[TypeRef]bool)) {
			return false
		}
	}
	return true
}

// deferredLike applies the layered deferred-value checks. Unions decompose
// first, before any unwrap attempt, so that a union with one plain member
// can never pass through the awaited-type comparison; every member must be
// deferred for the union to count. After that: a recognized wrapper
// unwraps, the awaited type differs, a callable `then` member exists, or
// the display text names a configured deferred type.
func (m *metadataEngine) deferredLike(t TypeRef, visited map[TypeRef]bool) bool {
	if t == NoType || visited[t] {
		return false
	}
	visited[t] = true

	if members := m.p.UnionMembers(t); len(members) > 0 {
		for _, member := range members {
			if !m.deferredLike(member, visited) {
				return false
			}
		}
		return true
	}
	if inner, err := m.p.UnwrapDeferred(t); err == nil && inner != NoType {
		return true
	}
	if awaited, err := m.p.Awaited(t); err == nil && awaited != NoType && awaited != t {
		return true
	}
	if m.hasCallableThen(t) {
		return true
	}
	return typeTextMatches(m.p.TypeText(t), m.deferredTypes)
}

// hasCallableThen looks for a `then` member callable with at least one
// argument, the structural mark of thenables.
func (m *metadataEngine) hasCallableThen(t TypeRef) bool {
	for _, prop := range m.p.Properties(t) {
		if prop.Name != "then" {
			continue
		}
		for _, sig := range m.p.CallSignatures(prop.Type) {
			if len(sig.Params) >= 1 {
				return true
			}
		}
	}
	return false
}

// isComponent applies the component checks in order: a declaration site
// that syntactically returns UI-element syntax; a site wrapped by a
// recognized wrapper call, either directly as its argument or initialized
// from a wrapper call whose argument is itself a component; or a
// capitalized name whose every call signature returns a UI-element-
// patterned type.
func (m *metadataEngine) isComponent(id Symbol, name string, sites []DeclSite, sigs []Signature) bool {
	for _, site := range sites {
		if m.p.ReturnsUIElement(site.Node) {
			return true
		}
		w, ok := m.p.WrapperCall(site.Node)
		if !ok || !m.recognizedWrapper(w.Callee) {
			continue
		}
		if w.Arg == site.Node {
			// The declaration itself is the wrapper's argument.
			return true
		}
		// The declaration is initialized from a wrapper call. It is a
		// component when the wrapped argument is.
		if sym, err := m.p.ReferencedSymbol(w.Arg); err == nil && sym != NoSymbol {
			if inner := m.resolver.Resolve(sym); inner != id && m.Metadata(inner).IsComponent {
				return true
			}
		}
	}

	if len(sigs) > 0 && startsUpper(name) {
		for _, sig := range sigs {
			if !typeTextMatches(m.p.TypeText(sig.Return), m.uiElementTypes) {
				return false
			}
		}
		return true
	}
	return false
}

// isMemoized holds when a declaration site is wrapped by (or initialized
// from) a recognized wrapper call, or when some wrapper call in a declaring
// file takes this identity as its argument without binding the result to a
// different declaration. The binding restriction keeps `const Other =
// memo(Widget)` from marking Widget itself memoized: that call memoizes
// Other.
func (m *metadataEngine) isMemoized(id Symbol, sites []DeclSite) bool {
	files := make(map[string]bool)
	for _, site := range sites {
		if w, ok := m.p.WrapperCall(site.Node); ok && m.recognizedWrapper(w.Callee) {
			return true
		}
		if site.File != "" {
			files[site.File] = true
		}
	}
	for file := range files {
		for _, w := range m.p.WrapperCalls(file) {
			if !m.recognizedWrapper(w.Callee) || w.Arg == NoNode {
				continue
			}
			ref, err := m.p.ReferencedSymbol(w.Arg)
			if err != nil || ref == NoSymbol {
				continue
			}
			if m.resolver.Resolve(ref) != id {
				continue
			}
			if w.Bound == NoSymbol || m.resolver.Resolve(w.Bound) == id {
				return true
			}
		}
	}
	return false
}

// recognizedWrapper matches a callee against the configured wrapper names,
// ignoring a namespace qualifier: "React.memo" matches "memo".
func (m *metadataEngine) recognizedWrapper(callee string) bool {
	if m.memoWrappers[callee] {
		return true
	}
	if i := strings.LastIndexByte(callee, '.'); i >= 0 {
		return m.memoWrappers[callee[i+1:]]
	}
	return false
}

// propertyShapes flattens the first parameter type of every call signature
// into property name -> shape. Traversal recurses through unions,
// intersections, and base types with an explicit visited set; the first
// occurrence of a property name wins, so later union branches never
// overwrite an earlier shape.
func (m *metadataEngine) propertyShapes(sigs []Signature) map[string]PropertyShape {
	shapes := make(map[string]PropertyShape)
	visited := make(map[TypeRef]bool)
	for _, sig := range sigs {
		if len(sig.Params) == 0 {
			continue
		}
		m.flattenShape(sig.Params[0], visited, shapes)
	}
	return shapes
}

func (m *metadataEngine) flattenShape(t TypeRef, visited map[TypeRef]bool, out map[string]PropertyShape) {
	if t == NoType || visited[t] {
		return
	}
	visited[t] = true

	for _, prop := range m.p.Properties(t) {
		if _, ok := out[prop.Name]; ok {
			continue
		}
		out[prop.Name] = PropertyShape{
			Kind:       m.classifyShape(prop.Type),
			IsOptional: prop.Optional,
		}
	}
	for _, member := range m.p.UnionMembers(t) {
		m.flattenShape(member, visited, out)
	}
	for _, member := range m.p.IntersectionMembers(t) {
		m.flattenShape(member, visited, out)
	}
	for _, base := range m.p.BaseTypes(t) {
		m.flattenShape(base, visited, out)
	}
}

// classifyShape: callable beats object-like, everything else is other.
func (m *metadataEngine) classifyShape(t TypeRef) ShapeKind {
	if t == NoType {
		return ShapeOther
	}
	if len(m.p.CallSignatures(t)) > 0 {
		return ShapeFunction
	}
	if m.p.IsObjectLike(t) {
		return ShapeObject
	}
	return ShapeOther
}

// classifyKind maps declaration flags to the closed kind set. When merged
// declarations carry several flags the order here decides: function beats
// variable beats the type-level kinds.
func classifyKind(flags DeclFlags) DeclKind {
	switch {
	case flags.Has(FlagFunction):
		return KindFunction
	case flags.Has(FlagClass):
		return KindClass
	case flags.Has(FlagVariable):
		return KindVariable
	case flags.Has(FlagEnum):
		return KindEnum
	case flags.Has(FlagInterface):
		return KindInterface
	case flags.Has(FlagTypeAlias):
		return KindTypeAlias
	case flags.Has(FlagNamespace):
		return KindNamespace
	default:
		return KindUnknown
	}
}

func siteFlags(sites []DeclSite) DeclFlags {
	var flags DeclFlags
	for _, site := range sites {
		flags |= site.Flags
	}
	return flags
}

// isHookName reports the hook naming convention: "use" followed by an
// uppercase letter or digit.
func isHookName(name string) bool {
	rest, ok := strings.CutPrefix(name, "use")
	if !ok || rest == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

func startsUpper(name string) bool {
	if name == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// typeTextMatches reports whether a type's display text names one of the
// given patterns, allowing type arguments after the name: "Promise<void>"
// matches "Promise". Last-resort textual check for types the model cannot
// see into.
func typeTextMatches(text string, names []string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, name := range names {
		if text == name || strings.HasPrefix(text, name+"<") {
			return true
		}
	}
	return false
}
