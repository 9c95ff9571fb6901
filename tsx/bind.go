package tsx

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/understory"
)

// bindFile builds the file's top-level scope: declared symbols, import
// alias symbols, the synthetic default symbol, and the written (own) export
// bindings. Only module-scope declarations are bound; nothing inside
// function or namespace bodies is visible across files.
func (p *Provider) bindFile(idx int32) {
	f := p.files[idx]
	root := f.root
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		p.bindStatement(idx, root.NamedChild(i))
	}
	for i := 0; i < count; i++ {
		if stmt := root.NamedChild(i); stmt.Type() == "export_statement" {
			p.collectExport(idx, stmt)
		}
	}
}

func (p *Provider) bindStatement(idx int32, stmt *sitter.Node) {
	switch stmt.Type() {
	case "import_statement":
		p.bindImport(idx, stmt)
	case "export_statement":
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			names := p.bindDeclaration(idx, decl)
			if len(names) == 0 && hasTokenChild(stmt, "default") {
				// `export default function () {}` and friends: the
				// declaration carries no identifier of its own.
				p.bindDefaultSymbol(idx, decl, declarationFlags(decl))
			}
			return
		}
		if value := stmt.ChildByFieldName("value"); value != nil && value.Type() != "identifier" {
			p.bindDefaultSymbol(idx, stmt, valueFlags(value))
		}
	case "ambient_declaration":
		if inner := firstNamedChild(stmt); inner != nil {
			p.bindDeclaration(idx, inner)
		}
	default:
		p.bindDeclaration(idx, stmt)
	}
}

// declEntry is one name bound by a declaration statement.
type declEntry struct {
	name  string
	node  *sitter.Node
	flags understory.DeclFlags
}

// bindDeclaration binds the names a declaration introduces and returns
// them. Non-declaration statements bind nothing.
func (p *Provider) bindDeclaration(idx int32, decl *sitter.Node) []string {
	entries := p.declEntries(idx, decl)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		p.bindName(idx, e.name, e.node, e.flags)
		names = append(names, e.name)
	}
	return names
}

func (p *Provider) declEntries(idx int32, decl *sitter.Node) []declEntry {
	f := p.files[idx]
	switch decl.Type() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		// function_signature is a bodyless overload or ambient declaration.
		name := decl.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		flags := understory.FlagFunction
		if hasTokenChild(decl, "async") {
			flags |= understory.FlagAsync
		}
		return []declEntry{{name: name.Content(f.src), node: decl, flags: flags}}
	case "class_declaration", "abstract_class_declaration":
		name := decl.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		return []declEntry{{name: name.Content(f.src), node: decl, flags: understory.FlagClass}}
	case "lexical_declaration", "variable_declaration":
		var entries []declEntry
		count := int(decl.NamedChildCount())
		for i := 0; i < count; i++ {
			declarator := decl.NamedChild(i)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			name := declarator.ChildByFieldName("name")
			if name == nil || name.Type() != "identifier" {
				// Destructuring patterns are not modeled.
				continue
			}
			flags := understory.FlagVariable
			if value := declarator.ChildByFieldName("value"); value != nil && isFunctionNode(value) && hasTokenChild(value, "async") {
				flags |= understory.FlagAsync
			}
			entries = append(entries, declEntry{name: name.Content(f.src), node: declarator, flags: flags})
		}
		return entries
	case "interface_declaration":
		return p.namedDeclEntry(idx, decl, understory.FlagInterface)
	case "type_alias_declaration":
		return p.namedDeclEntry(idx, decl, understory.FlagTypeAlias)
	case "enum_declaration":
		return p.namedDeclEntry(idx, decl, understory.FlagEnum)
	case "internal_module", "module":
		name := decl.ChildByFieldName("name")
		if name == nil || name.Type() == "string" {
			return nil
		}
		return []declEntry{{name: name.Content(f.src), node: decl, flags: understory.FlagNamespace}}
	case "ambient_declaration":
		if inner := firstNamedChild(decl); inner != nil {
			return p.declEntries(idx, inner)
		}
		return nil
	default:
		return nil
	}
}

func (p *Provider) namedDeclEntry(idx int32, decl *sitter.Node, flags understory.DeclFlags) []declEntry {
	name := decl.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	return []declEntry{{name: name.Content(p.files[idx].src), node: decl, flags: flags}}
}

// bindName merges repeated declarations of the same top-level name into one
// symbol with several sites, which covers function overloads, interface
// merging, and function/namespace merging.
func (p *Provider) bindName(idx int32, name string, node *sitter.Node, flags understory.DeclFlags) {
	f := p.files[idx]
	key := symKey{file: idx, name: name}
	sym, ok := p.symIDs[key]
	if !ok {
		sym = p.newSymbol(name)
		p.symIDs[key] = sym
	}
	entry := p.sym(sym)
	entry.sites = append(entry.sites, understory.DeclSite{
		File:  f.name,
		Node:  p.intern(idx, node),
		Name:  name,
		Flags: flags,
	})
	f.scope[name] = sym
}

// bindDefaultSymbol binds the synthetic "default" symbol for default
// exports that carry no identifier.
func (p *Provider) bindDefaultSymbol(idx int32, site *sitter.Node, flags understory.DeclFlags) {
	f := p.files[idx]
	sym := p.newSymbol("default")
	entry := p.sym(sym)
	entry.sites = append(entry.sites, understory.DeclSite{
		File:  f.name,
		Node:  p.intern(idx, site),
		Flags: flags,
	})
	// "default" is a reserved word, so this cannot collide with a local
	// binding.
	f.scope["default"] = sym
}

func declarationFlags(decl *sitter.Node) understory.DeclFlags {
	switch decl.Type() {
	case "function_declaration", "generator_function_declaration":
		flags := understory.FlagFunction
		if hasTokenChild(decl, "async") {
			flags |= understory.FlagAsync
		}
		return flags
	case "class_declaration", "abstract_class_declaration":
		return understory.FlagClass
	default:
		return 0
	}
}

func valueFlags(value *sitter.Node) understory.DeclFlags {
	if isFunctionNode(value) {
		flags := understory.FlagFunction
		if hasTokenChild(value, "async") {
			flags |= understory.FlagAsync
		}
		return flags
	}
	return 0
}

func (p *Provider) bindImport(idx int32, stmt *sitter.Node) {
	f := p.files[idx]
	srcNode := stmt.ChildByFieldName("source")
	if srcNode == nil {
		return
	}
	module := stringValue(f.src, srcNode)
	stmtTypeOnly := hasTokenChild(stmt, "type")

	clause := firstNamedOfType(stmt, "import_clause")
	if clause == nil {
		// Side-effect import: no bindings, but still an importer edge.
		f.imports = append(f.imports, understory.ImportSyntax{Module: module})
		return
	}
	count := int(clause.NamedChildCount())
	for i := 0; i < count; i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			p.addImportBinding(idx, module, "default", c.Content(f.src), stmtTypeOnly, false, c)
		case "namespace_import":
			if ident := firstNamedChild(c); ident != nil {
				p.addImportBinding(idx, module, "*", ident.Content(f.src), stmtTypeOnly, true, c)
			}
		case "named_imports":
			specCount := int(c.NamedChildCount())
			for j := 0; j < specCount; j++ {
				spec := c.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				imported := nameNode.Content(f.src)
				local := imported
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = alias.Content(f.src)
				}
				typeOnly := stmtTypeOnly || hasTokenChild(spec, "type")
				p.addImportBinding(idx, module, imported, local, typeOnly, false, spec)
			}
		}
	}
}

func (p *Provider) addImportBinding(idx int32, module, imported, local string, typeOnly, namespace bool, site *sitter.Node) {
	f := p.files[idx]
	f.imports = append(f.imports, understory.ImportSyntax{
		Module:    module,
		Name:      imported,
		Local:     local,
		TypeOnly:  typeOnly,
		Namespace: namespace,
	})
	sym := p.newAliasSymbol(idx, module, imported, local, site)
	f.scope[local] = sym
}

func (p *Provider) newAliasSymbol(idx int32, module, sourceName, localName string, site *sitter.Node) understory.Symbol {
	f := p.files[idx]
	sym := p.newSymbol(localName)
	entry := p.sym(sym)
	entry.alias = true
	entry.aliasFile = idx
	entry.aliasModule = module
	entry.aliasName = sourceName
	entry.sites = append(entry.sites, understory.DeclSite{
		File: f.name,
		Node: p.intern(idx, site),
		Name: localName,
	})
	return sym
}

// addOwnExport appends an export binding, merging exact duplicates. Each
// overload of an exported function is its own export statement but the same
// binding.
func (f *fileEntry) addOwnExport(e understory.ExportSyntax) {
	for _, have := range f.ownExports {
		if have.Name == e.Name && have.Sym == e.Sym {
			return
		}
	}
	f.ownExports = append(f.ownExports, e)
}

// collectExport records the export bindings one export statement writes.
// Star re-exports are noted for lazy expansion.
func (p *Provider) collectExport(idx int32, stmt *sitter.Node) {
	f := p.files[idx]
	module := ""
	if srcNode := stmt.ChildByFieldName("source"); srcNode != nil {
		module = stringValue(f.src, srcNode)
	}
	stmtTypeOnly := hasTokenChild(stmt, "type")

	if ns := firstNamedOfType(stmt, "namespace_export"); ns != nil && module != "" {
		ident := firstNamedChild(ns)
		if ident == nil {
			return
		}
		name := stringOrIdent(f.src, ident)
		sym := p.newAliasSymbol(idx, module, "*", name, ns)
		f.addOwnExport(understory.ExportSyntax{
			Name: name, Sym: sym, TypeOnly: stmtTypeOnly,
		})
		return
	}
	if module != "" && hasTokenChild(stmt, "*") {
		f.starSources = append(f.starSources, module)
		return
	}
	if clause := firstNamedOfType(stmt, "export_clause"); clause != nil {
		count := int(clause.NamedChildCount())
		for i := 0; i < count; i++ {
			spec := clause.NamedChild(i)
			if spec.Type() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			local := stringOrIdent(f.src, nameNode)
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = stringOrIdent(f.src, alias)
			}
			typeOnly := stmtTypeOnly || hasTokenChild(spec, "type")
			var sym understory.Symbol
			if module != "" {
				sym = p.newAliasSymbol(idx, module, local, exported, spec)
			} else {
				sym = f.scope[local]
				if sym == understory.NoSymbol {
					continue
				}
			}
			f.addOwnExport(understory.ExportSyntax{
				Name:     exported,
				Sym:      sym,
				Default:  exported == "default",
				TypeOnly: typeOnly,
			})
		}
		return
	}
	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		if hasTokenChild(stmt, "default") {
			sym := understory.NoSymbol
			if entries := p.declEntries(idx, decl); len(entries) > 0 {
				sym = f.scope[entries[0].name]
			} else {
				sym = f.scope["default"]
			}
			if sym != understory.NoSymbol {
				f.addOwnExport(understory.ExportSyntax{
					Name: "default", Sym: sym, Default: true,
				})
			}
			return
		}
		for _, e := range p.declEntries(idx, decl) {
			sym := f.scope[e.name]
			if sym == understory.NoSymbol {
				continue
			}
			f.addOwnExport(understory.ExportSyntax{
				Name: e.name, Sym: sym, TypeOnly: stmtTypeOnly,
			})
		}
		return
	}
	if value := stmt.ChildByFieldName("value"); value != nil {
		sym := understory.NoSymbol
		if value.Type() == "identifier" {
			sym = f.scope[value.Content(f.src)]
		} else {
			sym = f.scope["default"]
		}
		if sym != understory.NoSymbol {
			f.addOwnExport(understory.ExportSyntax{
				Name: "default", Sym: sym, Default: true,
			})
		}
	}
}

// Exports lists a file's export bindings with star re-exports expanded.
func (p *Provider) Exports(file string) []understory.ExportSyntax {
	idx, ok := p.fileIdx[file]
	if !ok {
		return nil
	}
	f := p.files[idx]
	if !f.exportsDone {
		p.buildExports(idx)
	}
	return f.exports
}

// buildExports expands star re-exports. Expansion only reads the own
// exports and star edges recorded at bind time, so the result does not
// depend on the order files are asked about. Own exports shadow forwarded
// names; the first file reached forwards a colliding name; default exports
// never forward; cycles terminate through the visited set.
func (p *Provider) buildExports(idx int32) {
	f := p.files[idx]
	f.exportsDone = true
	f.exports = append(f.exports, f.ownExports...)

	seen := make(map[string]bool, len(f.exports))
	for _, e := range f.exports {
		seen[e.Name] = true
	}
	visited := map[int32]bool{idx: true}
	p.expandStars(idx, idx, visited, seen)
}

func (p *Provider) expandStars(target, from int32, visited map[int32]bool, seen map[string]bool) {
	src := p.files[from]
	for _, module := range src.starSources {
		resolved := p.ResolveModule(src.name, module)
		if resolved == "" {
			continue
		}
		j := p.fileIdx[resolved]
		if visited[j] {
			continue
		}
		visited[j] = true
		for _, e := range p.files[j].ownExports {
			if e.Default || e.Name == "default" || seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			sym := p.newAliasSymbol(from, module, e.Name, e.Name, src.root)
			p.files[target].exports = append(p.files[target].exports, understory.ExportSyntax{
				Name: e.Name, Sym: sym, TypeOnly: e.TypeOnly,
			})
		}
		p.expandStars(target, j, visited, seen)
	}
}

// AliasTarget resolves one alias hop. Namespace aliases have no single
// target symbol and resolve to nothing.
func (p *Provider) AliasTarget(sym understory.Symbol) (understory.Symbol, error) {
	e := p.sym(sym)
	if e == nil || !e.alias || e.aliasName == "*" {
		return understory.NoSymbol, nil
	}
	resolved := p.ResolveModule(p.files[e.aliasFile].name, e.aliasModule)
	if resolved == "" {
		return understory.NoSymbol, nil
	}
	for _, exp := range p.Exports(resolved) {
		if exp.Name == e.aliasName {
			return exp.Sym, nil
		}
	}
	return understory.NoSymbol, nil
}

// ReferencedSymbol resolves an identifier or qualified name against its
// file's top-level scope. Qualified names resolve one member deep through
// namespace import aliases.
func (p *Provider) ReferencedSymbol(ref understory.NodeRef) (understory.Symbol, error) {
	e := p.node(ref)
	if e == nil {
		return understory.NoSymbol, nil
	}
	f := p.files[e.file]
	switch e.n.Type() {
	case "identifier", "type_identifier", "jsx_identifier":
		return f.scope[e.n.Content(f.src)], nil
	case "member_expression", "nested_identifier":
		text := e.n.Content(f.src)
		i := strings.Index(text, ".")
		if i < 0 {
			return f.scope[text], nil
		}
		head, rest := text[:i], text[i+1:]
		headSym := p.sym(f.scope[head])
		if headSym == nil || !headSym.alias || headSym.aliasName != "*" {
			return understory.NoSymbol, nil
		}
		resolved := p.ResolveModule(f.name, headSym.aliasModule)
		if resolved == "" {
			return understory.NoSymbol, nil
		}
		for _, exp := range p.Exports(resolved) {
			if exp.Name == rest {
				return exp.Sym, nil
			}
		}
		return understory.NoSymbol, nil
	default:
		return understory.NoSymbol, nil
	}
}

// resolveAlias collapses alias hops provider-side, with the same fallback
// behavior as the analyzer's resolver.
func (p *Provider) resolveAlias(sym understory.Symbol) understory.Symbol {
	index := map[understory.Symbol]int{sym: 0}
	path := []understory.Symbol{sym}
	cur := sym
	for {
		next, err := p.AliasTarget(cur)
		if err != nil || next == understory.NoSymbol {
			return cur
		}
		if start, ok := index[next]; ok {
			// Cyclic re-export chain canonicalizes to its smallest member,
			// matching the analyzer's resolver.
			canon := next
			for _, s := range path[start:] {
				if s < canon {
					canon = s
				}
			}
			return canon
		}
		index[next] = len(path)
		path = append(path, next)
		cur = next
	}
}

var moduleExts = []string{".ts", ".tsx", ".js", ".jsx"}

// ResolveModule resolves a relative import specifier against the project
// file set, trying the literal name, the usual extensions, then index
// files. Bare specifiers are external modules and resolve to "".
func (p *Provider) ResolveModule(from, specifier string) string {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		return ""
	}
	base := path.Clean(path.Join(path.Dir(from), specifier))
	if p.HasFile(base) {
		return base
	}
	for _, ext := range moduleExts {
		if name := base + ext; p.HasFile(name) {
			return name
		}
	}
	for _, ext := range moduleExts {
		if name := base + "/index" + ext; p.HasFile(name) {
			return name
		}
	}
	return ""
}
