package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/understory"
)

// Host functions exposed to rule scripts. Risor scripts cannot hold Go
// struct pointers directly, so declarations cross the boundary as maps
// carrying an "identity" handle that the usage functions accept back.

// buildGlobals constructs the globals for one rule run. diag is bound to
// the rule name so findings carry their origin.
func (r *Runtime) buildGlobals(rule string) map[string]any {
	return map[string]any{
		"project_files":   r.makeProjectFilesFn(),
		"file_summary":    r.makeFileSummaryFn(),
		"exported_decl":   r.makeExportedDeclFn(),
		"decls_by_export": r.makeDeclsByExportFn(),
		"usages":          r.makeUsagesFn(),
		"property_usages": r.makePropertyUsagesFn(),
		"importers":       r.makeImportersFn(),
		"stats":           r.makeStatsFn(),
		"diag":            r.makeDiagFn(rule),
		"log":             mustProxy(&logObject{prefix: "understory"}),
	}
}

// makeProjectFilesFn creates the "project_files" host function.
//
// project_files() → []string
func (r *Runtime) makeProjectFilesFn() *object.Builtin {
	return object.NewBuiltin("project_files", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("project_files", 0, len(args))
		}
		files := r.analyzer.Files()
		out := make([]object.Object, 0, len(files))
		for _, f := range files {
			out = append(out, object.NewString(f))
		}
		return object.NewList(out)
	})
}

// makeFileSummaryFn creates the "file_summary" host function.
//
// file_summary(file) → map | nil
func (r *Runtime) makeFileSummaryFn() *object.Builtin {
	return object.NewBuiltin("file_summary", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("file_summary", 1, len(args))
		}
		file, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("file_summary: file must be a string, got %s", args[0].Type())
		}
		summary := r.analyzer.FileSummary(file.Value())
		if summary == nil {
			return object.Nil
		}
		return summaryMap(summary)
	})
}

// makeExportedDeclFn creates the "exported_decl" host function.
//
// exported_decl(file, export_name) → map | nil
func (r *Runtime) makeExportedDeclFn() *object.Builtin {
	return object.NewBuiltin("exported_decl", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("exported_decl", 2, len(args))
		}
		file, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("exported_decl: file must be a string, got %s", args[0].Type())
		}
		name, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("exported_decl: export name must be a string, got %s", args[1].Type())
		}
		decl := r.analyzer.ExportedDeclaration(file.Value(), name.Value())
		if decl == nil {
			return object.Nil
		}
		return declMap(decl)
	})
}

// makeDeclsByExportFn creates the "decls_by_export" host function.
//
// decls_by_export(export_name) → []map
func (r *Runtime) makeDeclsByExportFn() *object.Builtin {
	return object.NewBuiltin("decls_by_export", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("decls_by_export", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("decls_by_export: export name must be a string, got %s", args[0].Type())
		}
		decls := r.analyzer.DeclarationsByExportName(name.Value())
		out := make([]object.Object, 0, len(decls))
		for _, d := range decls {
			out = append(out, declMap(d))
		}
		return object.NewList(out)
	})
}

// makeUsagesFn creates the "usages" host function.
//
// usages(identity) → []map
func (r *Runtime) makeUsagesFn() *object.Builtin {
	return object.NewBuiltin("usages", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("usages", 1, len(args))
		}
		decl, errObj := r.declArg("usages", args[0])
		if errObj != nil {
			return errObj
		}
		records := decl.Usages()
		out := make([]object.Object, 0, len(records))
		for _, u := range records {
			out = append(out, usageMap(u))
		}
		return object.NewList(out)
	})
}

// makePropertyUsagesFn creates the "property_usages" host function.
//
// property_usages(identity) → []map
func (r *Runtime) makePropertyUsagesFn() *object.Builtin {
	return object.NewBuiltin("property_usages", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("property_usages", 1, len(args))
		}
		decl, errObj := r.declArg("property_usages", args[0])
		if errObj != nil {
			return errObj
		}
		records := decl.PropertyUsages()
		out := make([]object.Object, 0, len(records))
		for _, pu := range records {
			out = append(out, propertyUsageMap(pu))
		}
		return object.NewList(out)
	})
}

// makeImportersFn creates the "importers" host function.
//
// importers(identity) → []string
func (r *Runtime) makeImportersFn() *object.Builtin {
	return object.NewBuiltin("importers", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("importers", 1, len(args))
		}
		decl, errObj := r.declArg("importers", args[0])
		if errObj != nil {
			return errObj
		}
		files := decl.ImporterFiles()
		out := make([]object.Object, 0, len(files))
		for _, f := range files {
			out = append(out, object.NewString(f))
		}
		return object.NewList(out)
	})
}

// makeStatsFn creates the "stats" host function.
//
// stats() → map
func (r *Runtime) makeStatsFn() *object.Builtin {
	return object.NewBuiltin("stats", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("stats", 0, len(args))
		}
		stats := r.analyzer.Stats()
		return object.NewMap(map[string]object.Object{
			"module_index": indexStatsMap(stats.ModuleIndex),
			"usage_index":  indexStatsMap(stats.UsageIndex),
		})
	})
}

// makeDiagFn creates the "diag" host function.
//
// diag(file, line, col, message) → nil
func (r *Runtime) makeDiagFn(rule string) *object.Builtin {
	return object.NewBuiltin("diag", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 4 {
			return object.NewArgsError("diag", 4, len(args))
		}
		file, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("diag: file must be a string, got %s", args[0].Type())
		}
		line, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("diag: line: %v", err)
		}
		col, err := toInt64(args[2])
		if err != nil {
			return object.Errorf("diag: col: %v", err)
		}
		msg, ok := args[3].(*object.String)
		if !ok {
			return object.Errorf("diag: message must be a string, got %s", args[3].Type())
		}
		r.diags = append(r.diags, Diagnostic{
			Rule:    rule,
			File:    file.Value(),
			Line:    int(line),
			Col:     int(col),
			Message: msg.Value(),
		})
		return object.Nil
	})
}

// declArg recovers the declaration behind an identity handle argument.
func (r *Runtime) declArg(fn string, arg object.Object) (*understory.Declaration, object.Object) {
	id, err := toInt64(arg)
	if err != nil {
		return nil, object.Errorf("%s: identity: %v", fn, err)
	}
	decl := r.analyzer.Declaration(understory.Symbol(id))
	if decl == nil {
		return nil, object.Errorf("%s: no declaration for identity %d", fn, id)
	}
	return decl, nil
}

func declMap(d *understory.Declaration) *object.Map {
	md := d.Metadata()
	m := map[string]object.Object{
		"identity":               object.NewInt(int64(d.Identity())),
		"name":                   object.NewString(md.DeclaredName),
		"file":                   object.NewString(md.DeclarationFile),
		"kind":                   object.NewString(string(md.Kind)),
		"is_component":           object.NewBool(md.IsComponent),
		"is_hook":                object.NewBool(md.IsHookLike),
		"is_async":               object.NewBool(md.IsAsync),
		"returns_deferred_value": object.NewBool(md.ReturnsDeferredValue),
		"is_memoized":            object.NewBool(md.IsMemoized),
	}
	if md.PropertyShapes != nil {
		shapes := make(map[string]object.Object, len(md.PropertyShapes))
		for name, shape := range md.PropertyShapes {
			shapes[name] = object.NewMap(map[string]object.Object{
				"kind":     object.NewString(string(shape.Kind)),
				"optional": object.NewBool(shape.IsOptional),
			})
		}
		m["property_shapes"] = object.NewMap(shapes)
	}
	return object.NewMap(m)
}

func summaryMap(s *understory.FileSummary) *object.Map {
	imports := make([]object.Object, 0, len(s.Imports))
	for _, imp := range s.Imports {
		imports = append(imports, object.NewMap(map[string]object.Object{
			"module":        object.NewString(imp.Module),
			"name":          object.NewString(imp.Name),
			"local_name":    object.NewString(imp.LocalName),
			"type_only":     object.NewBool(imp.IsTypeOnly),
			"namespace":     object.NewBool(imp.IsNamespace),
			"resolved_file": object.NewString(imp.ResolvedFileName),
		}))
	}
	exports := make([]object.Object, 0, len(s.Exports))
	for _, exp := range s.Exports {
		exports = append(exports, object.NewMap(map[string]object.Object{
			"file":        object.NewString(exp.FileName),
			"export_name": object.NewString(exp.ExportName),
			"default":     object.NewBool(exp.IsDefault),
			"type_only":   object.NewBool(exp.IsTypeOnly),
			"identity":    object.NewInt(int64(exp.Declaration)),
		}))
	}
	return object.NewMap(map[string]object.Object{
		"file":    object.NewString(s.FileName),
		"imports": object.NewList(imports),
		"exports": object.NewList(exports),
	})
}

func usageMap(u understory.UsageRecord) *object.Map {
	return object.NewMap(map[string]object.Object{
		"kind":       object.NewString(string(u.Kind)),
		"file":       object.NewString(u.FileName),
		"start_line": object.NewInt(int64(u.Range.StartLine)),
		"start_col":  object.NewInt(int64(u.Range.StartCol)),
		"end_line":   object.NewInt(int64(u.Range.EndLine)),
		"end_col":    object.NewInt(int64(u.Range.EndCol)),
	})
}

func propertyUsageMap(pu understory.PropertyUsage) *object.Map {
	return object.NewMap(map[string]object.Object{
		"file":                    object.NewString(pu.FileName),
		"start_line":              object.NewInt(int64(pu.Range.StartLine)),
		"start_col":               object.NewInt(int64(pu.Range.StartCol)),
		"end_line":                object.NewInt(int64(pu.Range.EndLine)),
		"end_col":                 object.NewInt(int64(pu.Range.EndCol)),
		"property":                object.NewString(pu.PropertyName),
		"text":                    object.NewString(pu.ArgumentText),
		"is_inline_expression":    object.NewBool(pu.IsInlineExpression),
		"is_identifier_reference": object.NewBool(pu.IsIdentifierReference),
	})
}

func indexStatsMap(s understory.IndexStats) *object.Map {
	return object.NewMap(map[string]object.Object{
		"files_indexed": object.NewInt(int64(s.FilesIndexed)),
		"fully_built":   object.NewBool(s.IsFullyBuilt),
	})
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

// logObject provides log.info/warn/error methods for rule scripts.
type logObject struct {
	prefix string
}

func (l *logObject) Info(msg string) {
	fmt.Printf("[%s] INFO: %s\n", l.prefix, msg)
}

func (l *logObject) Warn(msg string) {
	fmt.Printf("[%s] WARN: %s\n", l.prefix, msg)
}

func (l *logObject) Error(msg string) {
	fmt.Printf("[%s] ERROR: %s\n", l.prefix, msg)
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
