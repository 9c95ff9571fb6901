package understory

// Range locates a stretch of source text. Lines are 1-based and columns are
// 0-based byte offsets within the line.
type Range struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// UsageKind classifies how a declaration is referenced at a usage site.
type UsageKind string

const (
	// UsageCall is a plain invocation: `widget(props)`.
	UsageCall UsageKind = "call"
	// UsageConstruct is a `new` instantiation: `new Store()`.
	UsageConstruct UsageKind = "construct"
	// UsageEmbed is a UI-tree embedding: `<Widget />`.
	UsageEmbed UsageKind = "embed"
)

// DeclKind is the closed classification of a declaration. A symbol whose
// declaration flags match none of the known kinds is KindUnknown; code
// switching over DeclKind handles every constant here and nothing else.
type DeclKind string

const (
	KindFunction  DeclKind = "function"
	KindClass     DeclKind = "class"
	KindVariable  DeclKind = "variable"
	KindEnum      DeclKind = "enum"
	KindInterface DeclKind = "interface"
	KindTypeAlias DeclKind = "type"
	KindNamespace DeclKind = "namespace"
	KindUnknown   DeclKind = "unknown"
)

// ShapeKind classifies a flattened input property.
type ShapeKind string

const (
	ShapeFunction ShapeKind = "function"
	ShapeObject   ShapeKind = "object"
	ShapeOther    ShapeKind = "other"
)

// SpreadProperty is the placeholder property name recorded when an embed
// site spreads a value that is not an object literal, so the individual
// property names cannot be recovered syntactically.
const SpreadProperty = "<<spread>>"

// ImportRecord is one normalized import binding of a file.
type ImportRecord struct {
	// Module is the module specifier exactly as written.
	Module string
	// Name is the name bound in the source module: an exported name,
	// "default" for default imports, or "*" for namespace imports.
	Name string
	// LocalName is the binding name in the importing file.
	LocalName  string
	IsTypeOnly bool
	// IsNamespace marks `import * as ns` bindings.
	IsNamespace bool
	// ResolvedFileName is the project file the specifier resolves to, or ""
	// for external modules.
	ResolvedFileName string
}

// ExportRecord is one normalized export binding of a file. The same
// canonical declaration may appear in many export records when it is
// re-exported under several names or from several files.
type ExportRecord struct {
	FileName   string
	ExportName string
	IsDefault  bool
	IsTypeOnly bool
	// Declaration is the canonical identity the binding resolves to.
	Declaration Symbol
}

// FileSummary is the per-file view of the module index.
type FileSummary struct {
	FileName string
	Imports  []ImportRecord
	Exports  []ExportRecord
}

// UsageRecord is one cross-file reference to a declaration.
type UsageRecord struct {
	Kind     UsageKind
	FileName string
	Range    Range
}

// PropertyUsage describes one property passed at an embed site, with enough
// about the value expression for stability heuristics.
type PropertyUsage struct {
	FileName     string
	Range        Range
	PropertyName string
	// ArgumentText is the value expression source text, "" when the
	// property carries no value (bare boolean attributes).
	ArgumentText string
	// IsInlineExpression marks values allocated at the embed site itself:
	// object, array, function, arrow, template, and `new` expressions.
	IsInlineExpression bool
	// IsIdentifierReference marks values that are a bare identifier.
	IsIdentifierReference bool
}

// PropertyShape is the declared shape of one flattened input property.
type PropertyShape struct {
	Kind       ShapeKind
	IsOptional bool
}

// SymbolMetadata is the derived fact bundle for one canonical declaration.
// All fields are computed once per snapshot and never change afterwards.
type SymbolMetadata struct {
	// DeclaredName is the identifier bound at a declaration site, falling
	// back to the raw symbol name (possibly "default") for unnamed default
	// exports.
	DeclaredName    string
	Kind            DeclKind
	DeclarationFile string
	// IsComponent reports whether the declaration is a renderable
	// component: it returns UI-element syntax, is wrapped by a recognized
	// memoization helper, or is capitalized with every call signature
	// returning a UI-element-patterned type.
	IsComponent bool
	// IsHookLike reports the `use` + uppercase/digit naming convention.
	// Purely syntactic; the declaration body is never inspected.
	IsHookLike bool
	IsAsync    bool
	// ReturnsDeferredValue reports whether every call signature returns a
	// deferred value. A single synchronous overload clears it.
	ReturnsDeferredValue bool
	// IsMemoized reports whether the declaration is wrapped by a recognized
	// memoization helper. Only computed for components.
	IsMemoized bool
	// PropertyShapes flattens the first parameter of every call signature
	// into property name -> shape. Nil unless IsComponent.
	PropertyShapes map[string]PropertyShape
}

// IndexStats describes how much of one lazy index has been built.
type IndexStats struct {
	FilesIndexed int
	IsFullyBuilt bool
}

// Stats is the observability snapshot of an Analyzer.
type Stats struct {
	ModuleIndex IndexStats
	UsageIndex  IndexStats
}
