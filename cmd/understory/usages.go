package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/spf13/cobra"

	"github.com/jward/understory"
)

var usagesCmd = &cobra.Command{
	Use:   "usages <export-name> [path]",
	Short: "Find every declaration exported under a name and its usage sites",
	Long:  "Looks up an export name across the whole project and reports each matching declaration with its derived metadata and cross-file usage sites.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runUsages,
}

func runUsages(cmd *cobra.Command, args []string) error {
	exportName := args[0]

	root, err := resolveProjectRoot(args[1:])
	if err != nil {
		return outputError("usages", err)
	}

	ctx := context.Background()
	analyzer, _, err := loadProject(ctx, root)
	if err != nil {
		return outputError("usages", err)
	}

	decls := analyzer.DeclarationsByExportName(exportName)
	if len(decls) == 0 {
		msg := fmt.Sprintf("no declaration exported as %q", exportName)
		if hint := nearestExportName(analyzer, exportName); hint != "" {
			msg = fmt.Sprintf("%s (did you mean %q?)", msg, hint)
		}
		return outputError("usages", fmt.Errorf("%s", msg))
	}

	results := make([]CLIDeclaration, 0, len(decls))
	for _, d := range decls {
		results = append(results, declToCLI(d))
	}
	count := len(results)
	return outputResult(CLIResult{
		Command:    "usages",
		Results:    results,
		TotalCount: &count,
	})
}

// nearestExportName suggests the closest existing export name by
// Levenshtein distance, "" when nothing is close enough to help.
func nearestExportName(analyzer *understory.Analyzer, name string) string {
	seen := make(map[string]bool)
	var candidates []string
	for _, file := range analyzer.Files() {
		summary := analyzer.FileSummary(file)
		if summary == nil {
			continue
		}
		for _, exp := range summary.Exports {
			if !seen[exp.ExportName] {
				seen[exp.ExportName] = true
				candidates = append(candidates, exp.ExportName)
			}
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	match, err := edlib.FuzzySearchThreshold(name, candidates, 0.6, edlib.Levenshtein)
	if err != nil || strings.EqualFold(match, name) {
		return ""
	}
	return match
}
