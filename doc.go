// Package understory answers cross-file questions about the declarations of
// a TypeScript/TSX project: what a file imports and exports, which
// declaration an export name resolves to, where a declaration is used, and
// derived facts about it (component-ness, memoization, async-ness, input
// property shapes).
//
// # Model
//
// An [Analyzer] wraps one immutable [Provider] snapshot of a parsed
// project. Indexes build lazily: asking about one file processes that file,
// asking about usages processes the declaring files plus their importers,
// and only genuinely global questions (find every export named X) force a
// full build. Nothing is ever invalidated; a changed project means a new
// snapshot and a new Analyzer.
//
// Identities are canonical. Import bindings and re-export specifiers are
// aliases, and every operation resolves them down to the underlying
// declaration first, so a component imported through three barrel files is
// one [Declaration] with one usage set and one metadata bundle.
//
// # Usage
//
// Load a snapshot with the tsx provider, attach an analyzer, and ask:
//
//	p, err := tsx.Load(ctx, "path/to/project")
//	if err != nil { ... }
//
//	a := understory.For(p)
//	widget := a.ExportedDeclaration("components.tsx", "Widget")
//	if widget != nil && widget.IsComponent() {
//	    uses := widget.Usages()
//	    props := widget.PropertyShapes()
//	    ...
//	}
//
// [For] caches analyzers by snapshot fingerprint, so repeated lookups over
// the same project reuse everything already indexed. [New] builds an
// uncached analyzer.
//
// # Facade operations
//
//   - [Analyzer.FileSummary] — normalized imports and exports of one file.
//   - [Analyzer.ExportedDeclaration] — the declaration behind one export
//     name of one file.
//   - [Analyzer.DeclarationsByExportName] — every declaration exported
//     under a name, project-wide.
//   - [Declaration.Usages] — cross-file call, construct, and embed sites.
//   - [Declaration.PropertyUsages] — per-property details at embed sites.
//   - [Declaration.Metadata] — the derived fact bundle.
//   - [Analyzer.IsDeferredValueExpression] — deferred-value check for one
//     expression node.
//   - [Analyzer.Stats] — how much of each index has been built.
//
// # Providers
//
// [Provider] is the seam between the analyzer and the syntax/type layer.
// The tsx subpackage implements it over tree-sitter parses of .ts/.tsx
// sources with an annotation-level type model. Tests implement it over
// in-memory tables.
package understory
