package main

import "github.com/jward/understory"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIFileReport is a JSON-friendly per-file analysis summary.
type CLIFileReport struct {
	File    string      `json:"file"`
	Imports []CLIImport `json:"imports"`
	Exports []CLIExport `json:"exports"`
}

// CLIImport is a JSON-friendly import binding.
type CLIImport struct {
	Module       string `json:"module"`
	Name         string `json:"name"`
	LocalName    string `json:"local_name"`
	TypeOnly     bool   `json:"type_only,omitempty"`
	Namespace    bool   `json:"namespace,omitempty"`
	ResolvedFile string `json:"resolved_file,omitempty"`
}

// CLIExport is a JSON-friendly export binding.
type CLIExport struct {
	ExportName string `json:"export_name"`
	Default    bool   `json:"default,omitempty"`
	TypeOnly   bool   `json:"type_only,omitempty"`
	// DeclaredName and Kind describe the declaration behind the binding.
	DeclaredName string `json:"declared_name"`
	Kind         string `json:"kind"`
}

// CLIDeclaration is a JSON-friendly declaration with derived metadata.
type CLIDeclaration struct {
	Name                 string                  `json:"name"`
	File                 string                  `json:"file"`
	Kind                 string                  `json:"kind"`
	IsComponent          bool                    `json:"is_component"`
	IsHook               bool                    `json:"is_hook"`
	IsAsync              bool                    `json:"is_async"`
	ReturnsDeferredValue bool                    `json:"returns_deferred_value"`
	IsMemoized           bool                    `json:"is_memoized"`
	PropertyShapes       map[string]CLIPropShape `json:"property_shapes,omitempty"`
	Usages               []CLIUsage              `json:"usages"`
}

// CLIPropShape is a JSON-friendly property shape.
type CLIPropShape struct {
	Kind     string `json:"kind"`
	Optional bool   `json:"optional,omitempty"`
}

// CLIUsage is a JSON-friendly usage site.
type CLIUsage struct {
	Kind      string `json:"kind"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIStats is a JSON-friendly index stats snapshot.
type CLIStats struct {
	ModuleIndex CLIIndexStats `json:"module_index"`
	UsageIndex  CLIIndexStats `json:"usage_index"`
}

// CLIIndexStats describes one lazy index.
type CLIIndexStats struct {
	FilesIndexed int  `json:"files_indexed"`
	FullyBuilt   bool `json:"fully_built"`
}

func importToCLI(imp understory.ImportRecord) CLIImport {
	return CLIImport{
		Module:       imp.Module,
		Name:         imp.Name,
		LocalName:    imp.LocalName,
		TypeOnly:     imp.IsTypeOnly,
		Namespace:    imp.IsNamespace,
		ResolvedFile: imp.ResolvedFileName,
	}
}

func usageToCLI(u understory.UsageRecord) CLIUsage {
	return CLIUsage{
		Kind:      string(u.Kind),
		File:      u.FileName,
		StartLine: u.Range.StartLine,
		StartCol:  u.Range.StartCol,
		EndLine:   u.Range.EndLine,
		EndCol:    u.Range.EndCol,
	}
}

func declToCLI(d *understory.Declaration) CLIDeclaration {
	md := d.Metadata()
	out := CLIDeclaration{
		Name:                 md.DeclaredName,
		File:                 md.DeclarationFile,
		Kind:                 string(md.Kind),
		IsComponent:          md.IsComponent,
		IsHook:               md.IsHookLike,
		IsAsync:              md.IsAsync,
		ReturnsDeferredValue: md.ReturnsDeferredValue,
		IsMemoized:           md.IsMemoized,
	}
	if md.PropertyShapes != nil {
		out.PropertyShapes = make(map[string]CLIPropShape, len(md.PropertyShapes))
		for name, shape := range md.PropertyShapes {
			out.PropertyShapes[name] = CLIPropShape{
				Kind:     string(shape.Kind),
				Optional: shape.IsOptional,
			}
		}
	}
	for _, u := range d.Usages() {
		out.Usages = append(out.Usages, usageToCLI(u))
	}
	if out.Usages == nil {
		out.Usages = []CLIUsage{}
	}
	return out
}

func statsToCLI(s understory.Stats) CLIStats {
	return CLIStats{
		ModuleIndex: CLIIndexStats{
			FilesIndexed: s.ModuleIndex.FilesIndexed,
			FullyBuilt:   s.ModuleIndex.IsFullyBuilt,
		},
		UsageIndex: CLIIndexStats{
			FilesIndexed: s.UsageIndex.FilesIndexed,
			FullyBuilt:   s.UsageIndex.IsFullyBuilt,
		},
	}
}
