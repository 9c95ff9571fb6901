package understory

// Declaration is a lightweight handle over one canonical declaration
// identity. Handles are cached per analyzer, so looking up the same
// declaration twice returns the same pointer and handles compare with ==.
type Declaration struct {
	analyzer *Analyzer
	id       Symbol
}

// Identity returns the canonical provider symbol behind the handle.
func (d *Declaration) Identity() Symbol { return d.id }

func (d *Declaration) meta() *SymbolMetadata { return d.analyzer.metadata.Metadata(d.id) }

// DeclaredName returns the identifier bound at a declaration site, or the
// raw symbol name for unnamed default exports.
func (d *Declaration) DeclaredName() string { return d.meta().DeclaredName }

// Kind returns the declaration's classification.
func (d *Declaration) Kind() DeclKind { return d.meta().Kind }

// DeclarationFile returns the file holding the primary declaration site.
func (d *Declaration) DeclarationFile() string { return d.meta().DeclarationFile }

func (d *Declaration) IsComponent() bool { return d.meta().IsComponent }

func (d *Declaration) IsHookLike() bool { return d.meta().IsHookLike }

func (d *Declaration) IsAsync() bool { return d.meta().IsAsync }

func (d *Declaration) ReturnsDeferredValue() bool { return d.meta().ReturnsDeferredValue }

func (d *Declaration) IsMemoized() bool { return d.meta().IsMemoized }

// PropertyShapes returns a copy of the flattened input-property map, nil
// for non-components.
func (d *Declaration) PropertyShapes() map[string]PropertyShape {
	shapes := d.meta().PropertyShapes
	if shapes == nil {
		return nil
	}
	out := make(map[string]PropertyShape, len(shapes))
	for name, shape := range shapes {
		out[name] = shape
	}
	return out
}

// Metadata returns the full derived bundle by value, with the property map
// copied.
func (d *Declaration) Metadata() SymbolMetadata {
	md := *d.meta()
	md.PropertyShapes = d.PropertyShapes()
	return md
}

// ExportBindings returns every export record bound to this declaration
// across the project.
func (d *Declaration) ExportBindings() []ExportRecord {
	return d.analyzer.modules.ExportBindings(d.id)
}

// Usages returns every cross-file call, construct, and embed site of this
// declaration.
func (d *Declaration) Usages() []UsageRecord {
	return d.analyzer.usages.Usages(d.id)
}

// PropertyUsages returns per-property details for every embed site.
func (d *Declaration) PropertyUsages() []PropertyUsage {
	return d.analyzer.usages.PropertyUsages(d.id)
}

// ImporterFiles returns the sorted set of files importing a file that
// declares or exports this declaration.
func (d *Declaration) ImporterFiles() []string {
	return d.analyzer.modules.ImporterFiles(d.id)
}
