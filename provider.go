package understory

// Symbol is an opaque handle for one declaration symbol inside a provider
// snapshot. Symbols are only meaningful to the provider that issued them;
// the analyzer canonicalizes them through alias resolution and uses the
// canonical symbol as a map key, so providers must return stable handles
// for the lifetime of the snapshot.
type Symbol int32

// NoSymbol is the zero Symbol, returned when a lookup finds nothing.
const NoSymbol Symbol = 0

// TypeRef is an opaque handle for one type inside a provider snapshot.
type TypeRef int32

// NoType is the zero TypeRef.
const NoType TypeRef = 0

// NodeRef is an opaque handle for one syntax node inside a provider
// snapshot. Providers intern nodes so that the same underlying node is
// always represented by the same handle.
type NodeRef int32

// NoNode is the zero NodeRef.
const NoNode NodeRef = 0

// ExprForm is the coarse syntactic classification of a value expression,
// used to judge property-value stability at embed sites.
type ExprForm int

const (
	ExprOther ExprForm = iota
	ExprIdentifier
	ExprObjectLiteral
	ExprArrayLiteral
	ExprArrow
	ExprFunction
	ExprTemplate
	ExprNew
)

// Inline reports whether the expression allocates a fresh value at the use
// site. Identifiers and everything else (string literals, member accesses,
// call results) are not inline.
func (f ExprForm) Inline() bool {
	return f != ExprOther && f != ExprIdentifier
}

// DeclFlags is the bitmask of syntactic facts about a declaration site.
type DeclFlags uint16

const (
	FlagFunction DeclFlags = 1 << iota
	FlagClass
	FlagVariable
	FlagEnum
	FlagInterface
	FlagTypeAlias
	FlagNamespace
	FlagAsync
)

// Has reports whether all bits of flag are set.
func (f DeclFlags) Has(flag DeclFlags) bool { return f&flag == flag }

// DeclSite is one place a symbol is declared. Merged declarations (function
// overloads, interface merging) give a symbol several sites.
type DeclSite struct {
	File string
	Node NodeRef
	// Name is the identifier bound at this site, "" when the declaration
	// has no direct identifier (unnamed default exports).
	Name  string
	Flags DeclFlags
}

// ImportSyntax is one import binding as written, before module resolution.
type ImportSyntax struct {
	Module string
	// Name is the name in the source module: "default" for default
	// imports, "*" for namespace imports.
	Name      string
	Local     string
	TypeOnly  bool
	Namespace bool
}

// ExportSyntax is one export binding as written. Sym is the provider symbol
// the binding refers to before canonicalization: the declared symbol for
// direct exports, an alias symbol for re-exports.
type ExportSyntax struct {
	Name     string
	Sym      Symbol
	Default  bool
	TypeOnly bool
}

// Attribute is one property at an embed site. Spread attributes carry the
// spread operand in Value and no Name.
type Attribute struct {
	Name   string
	Value  NodeRef
	Range  Range
	Spread bool
}

// Invocation is one call, construct, or embed site in a file. Callee is the
// invoked expression node; Attributes is populated for embed sites only.
type Invocation struct {
	Kind       UsageKind
	Callee     NodeRef
	Range      Range
	Attributes []Attribute
}

// ObjectEntry is one entry of an object literal.
type ObjectEntry struct {
	Name   string
	Value  NodeRef
	Spread bool
}

// Wrapper is a call expression wrapping a value, such as a memoization
// helper. Bound is the symbol the call result is bound to (the declared
// variable or export), NoSymbol when the call appears in expression
// position.
type Wrapper struct {
	// Callee is the callee text as written, possibly qualified: "memo" or
	// "React.memo".
	Callee string
	// Arg is the first argument node, NoNode for zero-argument calls.
	Arg   NodeRef
	Bound Symbol
}

// Signature is one call signature of a callable type.
type Signature struct {
	Params []TypeRef
	Return TypeRef
	Async  bool
}

// Property is one named member of an object-like type.
type Property struct {
	Name     string
	Type     TypeRef
	Optional bool
}

// Provider exposes one immutable snapshot of a parsed project to the
// analyzer. All methods are pure reads over the snapshot: the same inputs
// always yield the same outputs. Methods with an error result may fail on
// degraded inputs; the analyzer treats such failures as absence and keeps
// going, so providers should prefer empty results over errors where they
// can.
//
// The analyzer calls providers from a single goroutine. Providers may fill
// internal caches on demand but must never change observable results.
type Provider interface {
	// Fingerprint identifies the snapshot contents. Two providers with the
	// same fingerprint hold the same files in the same states.
	Fingerprint() uint64

	// Files lists every project file in deterministic order.
	Files() []string
	// HasFile reports whether name is part of the snapshot.
	HasFile(name string) bool
	// ResolveModule resolves an import specifier appearing in file `from`
	// to a project file name, "" for external or unresolvable specifiers.
	ResolveModule(from, specifier string) string

	// Imports lists the import bindings of a file as written.
	Imports(file string) []ImportSyntax
	// Exports lists the export bindings of a file. Star re-exports are
	// expanded to the concrete names they forward.
	Exports(file string) []ExportSyntax
	// Invocations lists every call, construct, and embed site in a file.
	Invocations(file string) []Invocation
	// WrapperCalls lists every call expression in a file in wrapper form.
	WrapperCalls(file string) []Wrapper

	// ReferencedSymbol resolves a reference node (identifier or qualified
	// name) to the symbol it names in its scope.
	ReferencedSymbol(n NodeRef) (Symbol, error)
	// TypeOfNode types an expression node, NoType when unknown.
	TypeOfNode(n NodeRef) (TypeRef, error)
	// NodeText returns the node's source text.
	NodeText(n NodeRef) string
	// NodeRange returns the node's source range.
	NodeRange(n NodeRef) Range
	// ExprForm classifies an expression node syntactically.
	ExprForm(n NodeRef) ExprForm
	// ObjectEntries lists the entries of an object-literal node.
	ObjectEntries(n NodeRef) []ObjectEntry
	// ReturnsUIElement reports whether the declaration at n syntactically
	// returns UI-element syntax from its own body (nested function bodies
	// excluded).
	ReturnsUIElement(n NodeRef) bool
	// WrapperCall returns the wrapper call enclosing or initializing the
	// declaration at n: for `const X = wrap(f)` the declarator's wrapper is
	// the `wrap` call, and for the `f` node inside it the same call with
	// Arg == n. ok is false when no call wraps the node.
	WrapperCall(n NodeRef) (w Wrapper, ok bool)

	// SymbolName returns the raw binding name of a symbol.
	SymbolName(sym Symbol) string
	// AliasTarget returns the symbol one alias hop away: the exported
	// symbol an import binding refers to, or the target of a re-export
	// specifier. NoSymbol when sym is not an alias or the hop does not
	// resolve inside the project.
	AliasTarget(sym Symbol) (Symbol, error)
	// DeclarationSites lists where sym is declared.
	DeclarationSites(sym Symbol) []DeclSite
	// TypeOfSymbol types a symbol from its declarations, NoType when the
	// snapshot has no typing for it.
	TypeOfSymbol(sym Symbol) (TypeRef, error)

	// CallSignatures lists the call signatures of a callable type.
	CallSignatures(t TypeRef) []Signature
	// UnionMembers lists union constituents, nil for non-unions.
	UnionMembers(t TypeRef) []TypeRef
	// IntersectionMembers lists intersection constituents, nil otherwise.
	IntersectionMembers(t TypeRef) []TypeRef
	// BaseTypes lists the declared bases of a type (extends clauses).
	BaseTypes(t TypeRef) []TypeRef
	// Properties lists the own named members of an object-like type.
	Properties(t TypeRef) []Property
	// IsObjectLike reports whether t is structurally an object.
	IsObjectLike(t TypeRef) bool
	// TypeText returns the display text of a type as written, "" for
	// synthesized types.
	TypeText(t TypeRef) string
	// UnwrapDeferred strips one recognized deferred wrapper: for a type
	// named like Promise<T> it returns T, otherwise NoType.
	UnwrapDeferred(t TypeRef) (TypeRef, error)
	// Awaited returns the type after settling all recognized deferred
	// wrappers. Returns t itself when nothing unwraps.
	Awaited(t TypeRef) (TypeRef, error)
}
