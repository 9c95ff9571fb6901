// Package tsx implements the understory Provider over tree-sitter parses
// of TypeScript and TSX sources.
//
// A snapshot is built once by [Load] and never mutated afterwards: binding
// (top-level scopes, import aliases, declarations) happens at load time,
// while invocation tables, export tables, and the type model fill lazily as
// the analyzer asks. The type model is annotation-level: it is built from
// the type syntax the source actually writes, with no inference beyond
// resolving local type names, dereferencing non-generic aliases, and seeing
// through recognized wrapper calls.
package tsx

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/understory"
)

// Provider is one immutable snapshot of a parsed project. It implements
// understory.Provider. Not safe for concurrent use: lazy caches fill on
// demand from the analyzer's single goroutine.
type Provider struct {
	wrapperNames  map[string]bool
	deferredNames map[string]bool

	files       []*fileEntry
	fileIdx     map[string]int32
	fileNames   []string
	fingerprint uint64

	nodes   []nodeEntry
	nodeIDs map[nodeKey]understory.NodeRef

	syms   []*symbolEntry
	symIDs map[symKey]understory.Symbol

	types   []*typeEntry
	typeIDs map[nodeKey]understory.TypeRef

	// symStructs caches the structural type built for interface and class
	// symbols; typing guards recursive TypeOfSymbol walks through
	// wrapper-transparent typing.
	symStructs map[understory.Symbol]understory.TypeRef
	typing     map[understory.Symbol]bool
}

type fileEntry struct {
	name string
	src  []byte
	hash uint64
	tree *sitter.Tree
	root *sitter.Node

	// scope holds the file's top-level bindings, including import aliases
	// and the synthetic "default" symbol when the file default-exports an
	// expression.
	scope map[string]understory.Symbol

	imports []understory.ImportSyntax
	// ownExports are the bindings written in this file; starSources lists
	// the specifiers of `export * from` statements, expanded lazily.
	ownExports  []understory.ExportSyntax
	starSources []string

	exports     []understory.ExportSyntax
	exportsDone bool

	invocations []understory.Invocation
	invDone     bool

	wrappers []understory.Wrapper
	wrapDone bool
}

type nodeEntry struct {
	file int32
	n    *sitter.Node
}

// nodeKey identifies a syntax node by position and kind. Two distinct
// nodes can share a byte span (a statement wrapping its only expression),
// so the kind participates in identity.
type nodeKey struct {
	file  int32
	start uint32
	end   uint32
	kind  string
}

type symKey struct {
	file int32
	name string
}

type symbolEntry struct {
	name  string
	sites []understory.DeclSite

	// alias marks import bindings and re-export specifiers. aliasName is
	// the name in the source module: "default", "*", or an exported name.
	alias       bool
	aliasFile   int32
	aliasModule string
	aliasName   string

	typeRef understory.TypeRef
	typed   bool
}

func newProvider(wrapperNames, deferredNames []string) *Provider {
	p := &Provider{
		wrapperNames:  make(map[string]bool, len(wrapperNames)),
		deferredNames: make(map[string]bool, len(deferredNames)),
		fileIdx:       make(map[string]int32),
		nodeIDs:       make(map[nodeKey]understory.NodeRef),
		symIDs:        make(map[symKey]understory.Symbol),
		typeIDs:       make(map[nodeKey]understory.TypeRef),
		symStructs:    make(map[understory.Symbol]understory.TypeRef),
		typing:        make(map[understory.Symbol]bool),
	}
	for _, name := range wrapperNames {
		p.wrapperNames[name] = true
	}
	for _, name := range deferredNames {
		p.deferredNames[name] = true
	}
	return p
}

func (p *Provider) addFile(name string, src []byte, hash uint64, tree *sitter.Tree) {
	idx := int32(len(p.files))
	p.files = append(p.files, &fileEntry{
		name:  name,
		src:   src,
		hash:  hash,
		tree:  tree,
		root:  tree.RootNode(),
		scope: make(map[string]understory.Symbol),
	})
	p.fileIdx[name] = idx
	p.fileNames = append(p.fileNames, name)
}

// Fingerprint identifies the snapshot: a hash over every file name and
// content hash, in order.
func (p *Provider) Fingerprint() uint64 { return p.fingerprint }

// Files lists the project files in sorted order.
func (p *Provider) Files() []string { return p.fileNames }

// HasFile reports whether name is part of the snapshot.
func (p *Provider) HasFile(name string) bool {
	_, ok := p.fileIdx[name]
	return ok
}

// file returns the entry for name, nil when absent.
func (p *Provider) file(name string) *fileEntry {
	idx, ok := p.fileIdx[name]
	if !ok {
		return nil
	}
	return p.files[idx]
}

// intern returns the stable handle for a node, issuing one on first sight.
// A nil node interns to NoNode.
func (p *Provider) intern(file int32, n *sitter.Node) understory.NodeRef {
	if n == nil {
		return understory.NoNode
	}
	key := nodeKey{file: file, start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
	if ref, ok := p.nodeIDs[key]; ok {
		return ref
	}
	p.nodes = append(p.nodes, nodeEntry{file: file, n: n})
	ref := understory.NodeRef(len(p.nodes))
	p.nodeIDs[key] = ref
	return ref
}

// node returns the entry behind a handle, nil for NoNode or foreign refs.
func (p *Provider) node(ref understory.NodeRef) *nodeEntry {
	i := int(ref) - 1
	if i < 0 || i >= len(p.nodes) {
		return nil
	}
	return &p.nodes[i]
}

// NodeText returns the node's source text.
func (p *Provider) NodeText(ref understory.NodeRef) string {
	e := p.node(ref)
	if e == nil {
		return ""
	}
	return e.n.Content(p.files[e.file].src)
}

// NodeRange returns the node's source range.
func (p *Provider) NodeRange(ref understory.NodeRef) understory.Range {
	e := p.node(ref)
	if e == nil {
		return understory.Range{}
	}
	return rangeOf(e.n)
}

func rangeOf(n *sitter.Node) understory.Range {
	start := n.StartPoint()
	end := n.EndPoint()
	return understory.Range{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

func (p *Provider) newSymbol(name string) understory.Symbol {
	p.syms = append(p.syms, &symbolEntry{name: name})
	return understory.Symbol(len(p.syms))
}

func (p *Provider) sym(ref understory.Symbol) *symbolEntry {
	i := int(ref) - 1
	if i < 0 || i >= len(p.syms) {
		return nil
	}
	return p.syms[i]
}

// SymbolName returns the raw binding name of a symbol.
func (p *Provider) SymbolName(ref understory.Symbol) string {
	e := p.sym(ref)
	if e == nil {
		return ""
	}
	return e.name
}

// DeclarationSites lists where a symbol is declared. Alias symbols report
// their import or re-export specifier site.
func (p *Provider) DeclarationSites(ref understory.Symbol) []understory.DeclSite {
	e := p.sym(ref)
	if e == nil {
		return nil
	}
	return e.sites
}

// Imports lists the import bindings of a file as written.
func (p *Provider) Imports(file string) []understory.ImportSyntax {
	f := p.file(file)
	if f == nil {
		return nil
	}
	return f.imports
}
