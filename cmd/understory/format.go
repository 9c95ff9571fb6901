package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/understory/internal/runtime"
)

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as
// a CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// outputResultText dispatches to the appropriate text formatter based on
// the result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIFileReport:
		formatFileReportsText(w, v)
	case []CLIDeclaration:
		formatDeclarationsText(w, v)
	case []runtime.Diagnostic:
		formatDiagnosticsText(w, v)
	case CLIStats:
		formatStatsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatFileReportsText formats per-file reports as sections of aligned
// columns.
func formatFileReportsText(w io.Writer, reports []CLIFileReport) {
	for i, report := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", report.File)
		if len(report.Imports) > 0 {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  IMPORT\tFROM\tRESOLVED")
			for _, imp := range report.Imports {
				name := imp.Name
				if imp.LocalName != "" && imp.LocalName != imp.Name {
					name = fmt.Sprintf("%s as %s", imp.Name, imp.LocalName)
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", name, imp.Module, imp.ResolvedFile)
			}
			tw.Flush()
		}
		if len(report.Exports) > 0 {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  EXPORT\tKIND\tDECLARED")
			for _, exp := range report.Exports {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", exp.ExportName, exp.Kind, exp.DeclaredName)
			}
			tw.Flush()
		}
	}
}

// formatDeclarationsText formats declarations with their usage sites.
func formatDeclarationsText(w io.Writer, decls []CLIDeclaration) {
	for i, d := range decls {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s) %s\n", d.Name, d.Kind, d.File)
		var traits []string
		if d.IsComponent {
			traits = append(traits, "component")
		}
		if d.IsHook {
			traits = append(traits, "hook")
		}
		if d.IsAsync {
			traits = append(traits, "async")
		}
		if d.ReturnsDeferredValue {
			traits = append(traits, "deferred")
		}
		if d.IsMemoized {
			traits = append(traits, "memoized")
		}
		if len(traits) > 0 {
			fmt.Fprintf(w, "  traits: %s\n", strings.Join(traits, ", "))
		}
		if len(d.PropertyShapes) > 0 {
			names := make([]string, 0, len(d.PropertyShapes))
			for name := range d.PropertyShapes {
				names = append(names, name)
			}
			sort.Strings(names)
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  PROPERTY\tSHAPE\tOPTIONAL")
			for _, name := range names {
				shape := d.PropertyShapes[name]
				fmt.Fprintf(tw, "  %s\t%s\t%v\n", name, shape.Kind, shape.Optional)
			}
			tw.Flush()
		}
		if len(d.Usages) > 0 {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  USAGE\tFILE\tLINE\tCOL")
			for _, u := range d.Usages {
				fmt.Fprintf(tw, "  %s\t%s\t%d\t%d\n", u.Kind, u.File, u.StartLine, u.StartCol)
			}
			tw.Flush()
		}
	}
}

// formatDiagnosticsText formats diagnostics as "file:line:col rule message"
// lines.
func formatDiagnosticsText(w io.Writer, diags []runtime.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: [%s] %s\n", d.File, d.Line, d.Col, d.Rule, d.Message)
	}
}

// formatStatsText formats index stats as readable text.
func formatStatsText(w io.Writer, stats CLIStats) {
	fmt.Fprintf(w, "module index: %d files", stats.ModuleIndex.FilesIndexed)
	if stats.ModuleIndex.FullyBuilt {
		fmt.Fprint(w, " (full)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "usage index: %d files", stats.UsageIndex.FilesIndexed)
	if stats.UsageIndex.FullyBuilt {
		fmt.Fprint(w, " (full)")
	}
	fmt.Fprintln(w)
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
