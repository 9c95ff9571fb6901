package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagStats   bool
	flagInclude []string
	flagExclude []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Summarize imports and exports across a project",
	Long:  "Scans the project, builds the module index, and reports every file's normalized imports and exports.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagStats, "stats", false, "print index statistics instead of per-file reports")
	analyzeCmd.Flags().StringSliceVar(&flagInclude, "include", nil, "restrict the scan to files matching these globs")
	analyzeCmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "drop files matching these globs")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()

	root, err := resolveProjectRoot(args)
	if err != nil {
		return outputError("analyze", err)
	}

	ctx := context.Background()
	analyzer, _, err := loadProject(ctx, root)
	if err != nil {
		return outputError("analyze", err)
	}

	if flagStats {
		// Force the full build so the stats describe the whole project.
		analyzer.DeclarationsByExportName("default")
		result := CLIResult{Command: "analyze", Results: statsToCLI(analyzer.Stats())}
		return outputResult(result)
	}

	files := analyzer.Files()
	reports := make([]CLIFileReport, 0, len(files))
	for _, file := range files {
		summary := analyzer.FileSummary(file)
		if summary == nil {
			continue
		}
		report := CLIFileReport{
			File:    file,
			Imports: []CLIImport{},
			Exports: []CLIExport{},
		}
		for _, imp := range summary.Imports {
			report.Imports = append(report.Imports, importToCLI(imp))
		}
		for _, exp := range summary.Exports {
			cliExp := CLIExport{
				ExportName: exp.ExportName,
				Default:    exp.IsDefault,
				TypeOnly:   exp.IsTypeOnly,
			}
			if decl := analyzer.Declaration(exp.Declaration); decl != nil {
				cliExp.DeclaredName = decl.DeclaredName()
				cliExp.Kind = string(decl.Kind())
			}
			report.Exports = append(report.Exports, cliExp)
		}
		reports = append(reports, report)
	}

	count := len(reports)
	result := CLIResult{
		Command:    "analyze",
		Results:    reports,
		TotalCount: &count,
	}
	if err := outputResult(result); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Analyzed %d files in %s\n", len(files), time.Since(start).Round(time.Millisecond))
	return nil
}
