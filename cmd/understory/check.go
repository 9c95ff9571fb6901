package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/understory/internal/runtime"
	"github.com/jward/understory/rules"
)

var (
	flagRules    string
	flagRulesDir string
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Run rule scripts against a project",
	Long:  "Scans the project and executes Risor rule scripts over the analysis. Exits non-zero when any rule reports a finding.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagRules, "rules", "", "comma-separated rule filter (default: all)")
	checkCmd.Flags().StringVar(&flagRulesDir, "rules-dir", "", "load rules from disk path instead of embedded")
}

func runCheck(cmd *cobra.Command, args []string) error {
	root, err := resolveProjectRoot(args)
	if err != nil {
		return outputError("check", err)
	}

	ctx := context.Background()
	analyzer, cfg, err := loadProject(ctx, root)
	if err != nil {
		return outputError("check", err)
	}

	// Rule source: --rules-dir overrides embedded FS.
	var rtOpts []runtime.RuntimeOption
	if flagRulesDir != "" {
		rtOpts = append(rtOpts, runtime.WithRulesDir(flagRulesDir))
	} else {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(rules.FS))
	}
	rt := runtime.NewRuntime(analyzer, rtOpts...)

	names := cfg.Rules.Enabled
	if flagRules != "" {
		names = strings.Split(flagRules, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
	}

	diags, err := rt.Run(ctx, names)
	if err != nil {
		return outputError("check", err)
	}

	count := len(diags)
	result := CLIResult{
		Command:    "check",
		Results:    diags,
		TotalCount: &count,
	}
	if err := outputResult(result); err != nil {
		return err
	}

	if count > 0 {
		errorHandled = true
		return fmt.Errorf("%d finding(s)", count)
	}
	return nil
}
