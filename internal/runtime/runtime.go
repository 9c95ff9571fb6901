// Package runtime executes Risor rule scripts against an analyzer snapshot.
//
// Each rule is one .risor file. Scripts query the analyzer through host
// functions (project_files, exported_decl, usages, ...) and report findings
// through diag. Rules load from the embedded rule set or from a directory
// on disk.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"

	"github.com/jward/understory"
)

// Diagnostic is one finding reported by a rule script.
type Diagnostic struct {
	Rule    string `json:"rule"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Runtime embeds a Risor VM and provides analyzer host functions to rule
// scripts. Not safe for concurrent use: the underlying analyzer is
// single-goroutine and diagnostics collect into the runtime between runs.
type Runtime struct {
	analyzer *understory.Analyzer
	rulesDir string
	fsys     fs.FS
	diags    []Diagnostic
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load rules from an fs.FS instead
// of from disk. Also configures the Risor importer to use FSImporter for
// import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) { r.fsys = fsys }
}

// WithRulesDir configures the Runtime to load rules from a directory.
func WithRulesDir(dir string) RuntimeOption {
	return func(r *Runtime) { r.rulesDir = dir }
}

// NewRuntime creates a Runtime wired to the given analyzer.
func NewRuntime(a *understory.Analyzer, opts ...RuntimeOption) *Runtime {
	r := &Runtime{analyzer: a}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules lists the available rule names, sorted.
func (r *Runtime) Rules() ([]string, error) {
	var entries []string
	switch {
	case r.fsys != nil:
		matches, err := fs.Glob(r.fsys, "*.risor")
		if err != nil {
			return nil, fmt.Errorf("runtime: listing embedded rules: %w", err)
		}
		entries = matches
	case r.rulesDir != "":
		matches, err := filepath.Glob(filepath.Join(r.rulesDir, "*.risor"))
		if err != nil {
			return nil, fmt.Errorf("runtime: listing %s: %w", r.rulesDir, err)
		}
		entries = matches
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(filepath.Base(e), ".risor"))
	}
	sort.Strings(names)
	return names, nil
}

// Run executes the named rules, or every available rule when names is
// empty, and returns the collected diagnostics sorted by position.
func (r *Runtime) Run(ctx context.Context, names []string) ([]Diagnostic, error) {
	if len(names) == 0 {
		all, err := r.Rules()
		if err != nil {
			return nil, err
		}
		names = all
	}
	r.diags = nil
	for _, name := range names {
		src, err := r.loadRule(name)
		if err != nil {
			return nil, err
		}
		if err := r.eval(ctx, src, name); err != nil {
			return nil, err
		}
	}
	out := r.diags
	r.diags = nil
	sortDiagnostics(out)
	return out, nil
}

// RunSource executes rule source directly under the given rule name.
// Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, name, source string) ([]Diagnostic, error) {
	r.diags = nil
	if err := r.eval(ctx, source, name); err != nil {
		return nil, err
	}
	out := r.diags
	r.diags = nil
	sortDiagnostics(out)
	return out, nil
}

func (r *Runtime) eval(ctx context.Context, source, rule string) error {
	globals := r.buildGlobals(rule)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: rule %s: %w", rule, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's rule
// source. Returns nil if neither fs.FS nor rulesDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.rulesDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.rulesDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

func (r *Runtime) loadRule(name string) (string, error) {
	fileName := name + ".risor"
	if r.fsys != nil {
		data, err := fs.ReadFile(r.fsys, fileName)
		if err != nil {
			return "", fmt.Errorf("runtime: loading %s from fs: %w", fileName, err)
		}
		return string(data), nil
	}
	path := filepath.Join(r.rulesDir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("runtime: loading %s: %w", path, err)
	}
	return string(data), nil
}

func sortDiagnostics(diags []Diagnostic) {
	sort.Slice(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}
