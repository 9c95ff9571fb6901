package understory

import "sort"

// buildState tracks how much of a lazy index exists. Indexes move from
// empty through partial to full and never backwards; operations that cannot
// be answered from a partial view escalate to a full build.
type buildState int

const (
	buildEmpty buildState = iota
	buildPartial
	buildFull
)

// moduleIndex is the per-file table of normalized import and export records
// plus the reverse importer graph. Files are processed at most once, on
// demand; global queries force every remaining file through.
type moduleIndex struct {
	p        Provider
	resolver *resolver

	state     buildState
	processed map[string]bool

	summaries    map[string]*FileSummary
	bindings     map[Symbol][]ExportRecord
	byExportName map[string][]Symbol
	// importers maps a resolved file to the set of files importing it.
	importers map[string]map[string]bool
}

func newModuleIndex(p Provider, r *resolver) *moduleIndex {
	return &moduleIndex{
		p:            p,
		resolver:     r,
		processed:    make(map[string]bool),
		summaries:    make(map[string]*FileSummary),
		bindings:     make(map[Symbol][]ExportRecord),
		byExportName: make(map[string][]Symbol),
		importers:    make(map[string]map[string]bool),
	}
}

// EnsureFile processes one project file if it has not been processed yet.
// Unknown files are ignored.
func (m *moduleIndex) EnsureFile(file string) {
	if m.state == buildFull || m.processed[file] {
		return
	}
	if !m.p.HasFile(file) {
		return
	}
	m.buildFile(file)
	m.state = buildPartial
}

// EnsureAll processes every project file. Files already processed are not
// revisited, so escalating from a partial build does no duplicate work.
func (m *moduleIndex) EnsureAll() {
	if m.state == buildFull {
		return
	}
	for _, file := range m.p.Files() {
		m.buildFile(file)
	}
	m.state = buildFull
}

func (m *moduleIndex) buildFile(file string) {
	if m.processed[file] {
		return
	}
	m.processed[file] = true

	summary := &FileSummary{FileName: file}

	for _, imp := range m.p.Imports(file) {
		resolved := m.p.ResolveModule(file, imp.Module)
		summary.Imports = append(summary.Imports, ImportRecord{
			Module:           imp.Module,
			Name:             imp.Name,
			LocalName:        imp.Local,
			IsTypeOnly:       imp.TypeOnly,
			IsNamespace:      imp.Namespace,
			ResolvedFileName: resolved,
		})
		if resolved == "" {
			// External module. Recorded in the summary but absent from the
			// importer graph.
			continue
		}
		set := m.importers[resolved]
		if set == nil {
			set = make(map[string]bool)
			m.importers[resolved] = set
		}
		set[file] = true
	}

	for _, exp := range m.p.Exports(file) {
		id := m.resolver.Resolve(exp.Sym)
		if id == NoSymbol {
			continue
		}
		rec := ExportRecord{
			FileName:    file,
			ExportName:  exp.Name,
			IsDefault:   exp.Default,
			IsTypeOnly:  exp.TypeOnly,
			Declaration: id,
		}
		summary.Exports = append(summary.Exports, rec)
		m.bindings[id] = append(m.bindings[id], rec)
		if !containsSymbol(m.byExportName[exp.Name], id) {
			m.byExportName[exp.Name] = append(m.byExportName[exp.Name], id)
		}
	}

	m.summaries[file] = summary
}

// Summary ensures file and returns a copy of its summary, nil when the file
// is not part of the project.
func (m *moduleIndex) Summary(file string) *FileSummary {
	m.EnsureFile(file)
	s := m.summaries[file]
	if s == nil {
		return nil
	}
	out := &FileSummary{FileName: s.FileName}
	out.Imports = append(out.Imports, s.Imports...)
	out.Exports = append(out.Exports, s.Exports...)
	return out
}

// ExportedDeclaration ensures file and returns the canonical identity it
// exports under exportName, NoSymbol when the file or binding is missing.
func (m *moduleIndex) ExportedDeclaration(file, exportName string) Symbol {
	m.EnsureFile(file)
	s := m.summaries[file]
	if s == nil {
		return NoSymbol
	}
	for _, rec := range s.Exports {
		if rec.ExportName == exportName {
			return rec.Declaration
		}
	}
	return NoSymbol
}

// DeclarationsByExportName returns every identity exported under exportName
// anywhere in the project, deduplicated, in file processing order. The
// question cannot be answered from a partial index, so it forces a full
// build.
func (m *moduleIndex) DeclarationsByExportName(exportName string) []Symbol {
	m.EnsureAll()
	return append([]Symbol(nil), m.byExportName[exportName]...)
}

// ExportBindings returns every export record whose declaration is id. An
// unprocessed file could hold another binding, so this forces a full build.
func (m *moduleIndex) ExportBindings(id Symbol) []ExportRecord {
	m.EnsureAll()
	return append([]ExportRecord(nil), m.bindings[id]...)
}

// ImporterFiles returns every file whose import edges resolve to a file
// that declares or exports id, sorted. Requires a full build: any
// unprocessed file could import the target.
func (m *moduleIndex) ImporterFiles(id Symbol) []string {
	m.EnsureAll()
	targets := make(map[string]bool)
	for _, site := range m.p.DeclarationSites(id) {
		if site.File != "" {
			targets[site.File] = true
		}
	}
	for _, rec := range m.bindings[id] {
		targets[rec.FileName] = true
	}
	seen := make(map[string]bool)
	var files []string
	for target := range targets {
		for importer := range m.importers[target] {
			if !seen[importer] {
				seen[importer] = true
				files = append(files, importer)
			}
		}
	}
	sort.Strings(files)
	return files
}

func (m *moduleIndex) Stats() IndexStats {
	return IndexStats{
		FilesIndexed: len(m.processed),
		IsFullyBuilt: m.state == buildFull,
	}
}

func containsSymbol(syms []Symbol, sym Symbol) bool {
	for _, s := range syms {
		if s == sym {
			return true
		}
	}
	return false
}
