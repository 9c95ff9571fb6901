package understory

import "sync"

// Defaults for the recognition patterns. Overridable per analyzer through
// the options below.
var (
	defaultMemoWrappers   = []string{"memo", "forwardRef"}
	defaultDeferredTypes  = []string{"Promise", "PromiseLike", "Thenable"}
	defaultUIElementTypes = []string{"JSX.Element", "React.ReactElement", "ReactElement", "ReactNode", "Element"}
)

// Option configures an Analyzer.
type Option func(*options)

type options struct {
	memoWrappers   []string
	deferredTypes  []string
	uiElementTypes []string
}

// WithMemoWrappers replaces the callee names recognized as memoization
// wrappers. Names match with or without a namespace qualifier.
func WithMemoWrappers(names ...string) Option {
	return func(o *options) { o.memoWrappers = names }
}

// WithDeferredTypes replaces the type names recognized as deferred values
// by the textual fallback check.
func WithDeferredTypes(names ...string) Option {
	return func(o *options) { o.deferredTypes = names }
}

// WithUIElementTypes replaces the return-type names recognized as UI
// elements by the component check.
func WithUIElementTypes(names ...string) Option {
	return func(o *options) { o.uiElementTypes = names }
}

// Analyzer answers cross-file questions over one immutable provider
// snapshot: per-file import/export summaries, export lookups, usage sets,
// and derived declaration metadata. Indexes build lazily as questions
// arrive and are never invalidated; a changed project means a new provider
// and a new Analyzer.
//
// An Analyzer is not safe for concurrent use. Only the package-level
// analyzer cache behind For carries a lock.
type Analyzer struct {
	p Provider

	resolver *resolver
	modules  *moduleIndex
	usages   *usageIndex
	metadata *metadataEngine

	handles map[Symbol]*Declaration
}

// New builds a fresh Analyzer over provider.
func New(p Provider, opts ...Option) *Analyzer {
	o := options{
		memoWrappers:   defaultMemoWrappers,
		deferredTypes:  defaultDeferredTypes,
		uiElementTypes: defaultUIElementTypes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	r := &resolver{p: p}
	modules := newModuleIndex(p, r)
	return &Analyzer{
		p:        p,
		resolver: r,
		modules:  modules,
		usages:   newUsageIndex(p, r, modules),
		metadata: newMetadataEngine(p, r, o.memoWrappers, o.deferredTypes, o.uiElementTypes),
		handles:  make(map[Symbol]*Declaration),
	}
}

var (
	analyzersMu sync.Mutex
	analyzers   = make(map[uint64]*Analyzer)
)

// For returns the Analyzer cached for the provider's snapshot fingerprint,
// building one with opts on first sight. Providers with equal fingerprints
// share an Analyzer, so repeated lookups reuse everything already indexed.
func For(p Provider, opts ...Option) *Analyzer {
	analyzersMu.Lock()
	defer analyzersMu.Unlock()
	fp := p.Fingerprint()
	if a, ok := analyzers[fp]; ok {
		return a
	}
	a := New(p, opts...)
	analyzers[fp] = a
	return a
}

// Files lists every project file in the snapshot's deterministic order.
func (a *Analyzer) Files() []string {
	return append([]string(nil), a.p.Files()...)
}

// FileSummary returns the normalized import/export view of one file, nil
// when the file is not part of the project.
func (a *Analyzer) FileSummary(file string) *FileSummary {
	return a.modules.Summary(file)
}

// ExportedDeclaration returns the declaration exported from file under
// exportName, nil when the file or binding does not exist. Pass "default"
// for the default export.
func (a *Analyzer) ExportedDeclaration(file, exportName string) *Declaration {
	id := a.modules.ExportedDeclaration(file, exportName)
	if id == NoSymbol {
		return nil
	}
	return a.handle(id)
}

// DeclarationsByExportName returns every declaration exported under
// exportName anywhere in the project. This is a global question and forces
// the module index to a full build.
func (a *Analyzer) DeclarationsByExportName(exportName string) []*Declaration {
	ids := a.modules.DeclarationsByExportName(exportName)
	if len(ids) == 0 {
		return nil
	}
	decls := make([]*Declaration, 0, len(ids))
	for _, id := range ids {
		decls = append(decls, a.handle(id))
	}
	return decls
}

// Declaration returns the handle for a canonical identity, resolving alias
// symbols first. Returns nil for NoSymbol.
func (a *Analyzer) Declaration(id Symbol) *Declaration {
	if id == NoSymbol {
		return nil
	}
	return a.handle(a.resolver.Resolve(id))
}

// IsDeferredValueExpression types the expression node and applies the
// deferred-value checks directly. No index is consulted or built.
func (a *Analyzer) IsDeferredValueExpression(n NodeRef) bool {
	t, err := a.p.TypeOfNode(n)
	if err != nil || t == NoType {
		return false
	}
	return a.metadata.deferredLike(t, make(map[TypeRef]bool))
}

// Stats reports how much of each index has been built.
func (a *Analyzer) Stats() Stats {
	return Stats{
		ModuleIndex: a.modules.Stats(),
		UsageIndex:  a.usages.Stats(),
	}
}

// handle returns the one Declaration handle per canonical identity.
func (a *Analyzer) handle(id Symbol) *Declaration {
	if h, ok := a.handles[id]; ok {
		return h
	}
	h := &Declaration{analyzer: a, id: id}
	a.handles[id] = h
	return h
}
