package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/understory"
	"github.com/jward/understory/internal/config"
	"github.com/jward/understory/tsx"
)

var (
	flagConfig string
	flagFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "understory",
	Short:         "Lazy cross-file analysis for TypeScript component trees",
	Long:          "Understory indexes TypeScript/TSX sources with tree-sitter and answers cross-file questions about exports, usages, and component metadata, building only the slices of the index a question needs.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: understory.toml in the project root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(usagesCmd)
	rootCmd.AddCommand(checkCmd)
}

// resolveProjectRoot returns the absolute path of the directory to analyze.
func resolveProjectRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// loadProject loads the config, scans the project, and returns the shared
// analyzer for the snapshot.
func loadProject(ctx context.Context, root string) (*understory.Analyzer, *config.Config, error) {
	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = filepath.Join(root, config.DefaultPath)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	// Flags beat file values.
	if len(flagInclude) > 0 {
		cfg.Project.Include = flagInclude
	}
	if len(flagExclude) > 0 {
		cfg.Project.Exclude = flagExclude
	}

	var loadOpts []tsx.LoadOption
	if len(cfg.Project.Include) > 0 {
		loadOpts = append(loadOpts, tsx.WithInclude(cfg.Project.Include...))
	}
	if len(cfg.Project.Exclude) > 0 {
		loadOpts = append(loadOpts, tsx.WithExclude(cfg.Project.Exclude...))
	}
	if len(cfg.Project.SkipDirs) > 0 {
		loadOpts = append(loadOpts, tsx.WithSkipDirs(cfg.Project.SkipDirs...))
	}
	if len(cfg.Analyzer.MemoWrappers) > 0 {
		loadOpts = append(loadOpts, tsx.WithWrapperNames(cfg.Analyzer.MemoWrappers...))
	}
	if len(cfg.Analyzer.DeferredTypes) > 0 {
		loadOpts = append(loadOpts, tsx.WithDeferredTypeNames(cfg.Analyzer.DeferredTypes...))
	}

	provider, err := tsx.Load(ctx, root, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("loading project: %w", err)
	}

	var opts []understory.Option
	if len(cfg.Analyzer.MemoWrappers) > 0 {
		opts = append(opts, understory.WithMemoWrappers(cfg.Analyzer.MemoWrappers...))
	}
	if len(cfg.Analyzer.DeferredTypes) > 0 {
		opts = append(opts, understory.WithDeferredTypes(cfg.Analyzer.DeferredTypes...))
	}
	if len(cfg.Analyzer.UIElementTypes) > 0 {
		opts = append(opts, understory.WithUIElementTypes(cfg.Analyzer.UIElementTypes...))
	}

	return understory.For(provider, opts...), cfg, nil
}
