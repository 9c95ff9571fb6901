package understory

// usageIndex records cross-file call, construct, and embed sites per
// canonical identity, with per-property details for embed sites. Files are
// scanned on demand; for a given identity the scan set is bounded by the
// declaring files plus their importers, falling back to a full scan only
// when no declaring file is known.
type usageIndex struct {
	p        Provider
	resolver *resolver
	modules  *moduleIndex

	state     buildState
	processed map[string]bool

	usages     map[Symbol][]UsageRecord
	properties map[Symbol][]PropertyUsage
}

func newUsageIndex(p Provider, r *resolver, m *moduleIndex) *usageIndex {
	return &usageIndex{
		p:          p,
		resolver:   r,
		modules:    m,
		processed:  make(map[string]bool),
		usages:     make(map[Symbol][]UsageRecord),
		properties: make(map[Symbol][]PropertyUsage),
	}
}

// Usages returns every recorded cross-file usage of id, scanning the
// relevant files first.
func (u *usageIndex) Usages(id Symbol) []UsageRecord {
	u.ensureFor(id)
	return append([]UsageRecord(nil), u.usages[id]...)
}

// PropertyUsages returns the per-property details of id's embed sites.
func (u *usageIndex) PropertyUsages(id Symbol) []PropertyUsage {
	u.ensureFor(id)
	return append([]PropertyUsage(nil), u.properties[id]...)
}

// ensureFor scans every file that could reference id: the files declaring
// or exporting it, plus every file importing one of those. An identity with
// no known declaring file falls back to scanning the whole project, since
// the importer graph cannot bound it.
func (u *usageIndex) ensureFor(id Symbol) {
	if u.state == buildFull {
		return
	}
	declFiles := u.declaringFiles(id)
	if len(declFiles) == 0 {
		u.scanAll()
		return
	}
	for _, f := range declFiles {
		u.scanFile(f)
	}
	for _, f := range u.modules.ImporterFiles(id) {
		u.scanFile(f)
	}
}

// declaringFiles collects the files holding a declaration site or an export
// binding of id, in deterministic order.
func (u *usageIndex) declaringFiles(id Symbol) []string {
	seen := make(map[string]bool)
	var files []string
	for _, site := range u.p.DeclarationSites(id) {
		if site.File != "" && !seen[site.File] {
			seen[site.File] = true
			files = append(files, site.File)
		}
	}
	for _, rec := range u.modules.ExportBindings(id) {
		if !seen[rec.FileName] {
			seen[rec.FileName] = true
			files = append(files, rec.FileName)
		}
	}
	return files
}

func (u *usageIndex) scanAll() {
	if u.state == buildFull {
		return
	}
	for _, f := range u.p.Files() {
		u.scanFile(f)
	}
	u.state = buildFull
}

// scanFile records the invocations of one file, once. Every invocation is
// attributed to the canonical identity of its callee; sites in the
// identity's own declaring file are not usages and are dropped.
func (u *usageIndex) scanFile(file string) {
	if u.processed[file] || !u.p.HasFile(file) {
		return
	}
	u.processed[file] = true
	if u.state == buildEmpty {
		u.state = buildPartial
	}

	for _, inv := range u.p.Invocations(file) {
		ref, err := u.p.ReferencedSymbol(inv.Callee)
		if err != nil || ref == NoSymbol {
			// Unresolvable callee. Skip the site, keep scanning.
			continue
		}
		id := u.resolver.Resolve(ref)
		if !u.crossFile(id, file) {
			continue
		}
		u.usages[id] = append(u.usages[id], UsageRecord{
			Kind:     inv.Kind,
			FileName: file,
			Range:    inv.Range,
		})
		if inv.Kind == UsageEmbed {
			u.recordAttributes(id, file, inv.Attributes)
		}
	}
}

// crossFile reports whether id is declared somewhere other than file.
// Identities without any known declaration site cannot be proven
// cross-file and are dropped.
func (u *usageIndex) crossFile(id Symbol, file string) bool {
	sites := u.p.DeclarationSites(id)
	if len(sites) == 0 {
		return false
	}
	for _, site := range sites {
		if site.File == file {
			return false
		}
	}
	return true
}

func (u *usageIndex) recordAttributes(id Symbol, file string, attrs []Attribute) {
	for _, attr := range attrs {
		if attr.Spread {
			u.recordSpread(id, file, attr.Value, attr.Range)
			continue
		}
		u.properties[id] = append(u.properties[id], u.propertyDetail(file, attr.Name, attr.Value, attr.Range))
	}
}

// recordSpread handles `{...expr}` at an embed site: spreading an object
// literal flattens into its entries, recursively; spreading anything else
// loses the property names and is recorded once under the spread sentinel.
func (u *usageIndex) recordSpread(id Symbol, file string, value NodeRef, rng Range) {
	if value != NoNode && u.p.ExprForm(value) == ExprObjectLiteral {
		u.recordObjectEntries(id, file, value)
		return
	}
	u.properties[id] = append(u.properties[id], u.propertyDetail(file, SpreadProperty, value, rng))
}

func (u *usageIndex) recordObjectEntries(id Symbol, file string, obj NodeRef) {
	for _, entry := range u.p.ObjectEntries(obj) {
		if entry.Spread {
			u.recordSpread(id, file, entry.Value, u.p.NodeRange(entry.Value))
			continue
		}
		u.properties[id] = append(u.properties[id], u.propertyDetail(file, entry.Name, entry.Value, u.p.NodeRange(entry.Value)))
	}
}

// propertyDetail classifies one property value: an inline allocation, a
// bare identifier, or neither (string literals, member accesses, calls,
// absent values).
func (u *usageIndex) propertyDetail(file, name string, value NodeRef, rng Range) PropertyUsage {
	detail := PropertyUsage{FileName: file, Range: rng, PropertyName: name}
	if value == NoNode {
		return detail
	}
	detail.Range = u.p.NodeRange(value)
	detail.ArgumentText = u.p.NodeText(value)
	form := u.p.ExprForm(value)
	detail.IsInlineExpression = form.Inline()
	detail.IsIdentifierReference = form == ExprIdentifier
	return detail
}

func (u *usageIndex) Stats() IndexStats {
	return IndexStats{
		FilesIndexed: len(u.processed),
		IsFullyBuilt: u.state == buildFull,
	}
}
