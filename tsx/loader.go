package tsx

import (
	"context"
	"encoding/binary"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	sitter "github.com/smacker/go-tree-sitter"
	tsxlang "github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
	"golang.org/x/sync/errgroup"
)

// Directories never worth descending into, in addition to hidden ones.
var defaultSkipDirs = []string{"node_modules", "dist", "build", ".git", "target"}

var (
	defaultWrapperNames  = []string{"memo", "forwardRef"}
	defaultDeferredNames = []string{"Promise", "PromiseLike", "Thenable"}
)

type loadConfig struct {
	include       []string
	exclude       []string
	skipDirs      map[string]bool
	parallelism   int
	wrapperNames  []string
	deferredNames []string
}

// LoadOption configures a Load call.
type LoadOption func(*loadConfig)

// WithInclude restricts loading to files matching at least one of the
// doublestar globs, relative to the root.
func WithInclude(globs ...string) LoadOption {
	return func(c *loadConfig) { c.include = globs }
}

// WithExclude drops files matching any of the doublestar globs.
func WithExclude(globs ...string) LoadOption {
	return func(c *loadConfig) { c.exclude = globs }
}

// WithSkipDirs replaces the directory names skipped during the walk.
func WithSkipDirs(names ...string) LoadOption {
	return func(c *loadConfig) {
		c.skipDirs = make(map[string]bool, len(names))
		for _, name := range names {
			c.skipDirs[name] = true
		}
	}
}

// WithParallelism caps the number of concurrent parse workers. Defaults to
// GOMAXPROCS.
func WithParallelism(n int) LoadOption {
	return func(c *loadConfig) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithWrapperNames replaces the callee names the snapshot's type model
// treats as value-preserving wrappers (memoization helpers).
func WithWrapperNames(names ...string) LoadOption {
	return func(c *loadConfig) { c.wrapperNames = names }
}

// WithDeferredTypeNames replaces the type names recognized as deferred
// wrappers when unwrapping Promise-like annotations.
func WithDeferredTypeNames(names ...string) LoadOption {
	return func(c *loadConfig) { c.deferredNames = names }
}

// Load builds a snapshot of the TypeScript/TSX project rooted at root.
//
// Loading runs in three phases: a serial walk that discovers, filters, and
// reads source files; a parallel parse of every file; and a serial binding
// pass that builds top-level scopes and import aliases. Unreadable files
// are logged and skipped rather than failing the load; syntax errors do not
// fail a parse, tree-sitter yields a tree with error nodes and analysis
// degrades per construct.
func Load(ctx context.Context, root string, opts ...LoadOption) (*Provider, error) {
	cfg := loadConfig{
		parallelism:   runtime.GOMAXPROCS(0),
		wrapperNames:  defaultWrapperNames,
		deferredNames: defaultDeferredNames,
	}
	cfg.skipDirs = make(map[string]bool, len(defaultSkipDirs))
	for _, name := range defaultSkipDirs {
		cfg.skipDirs[name] = true
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	type pending struct {
		name string
		src  []byte
		hash uint64
	}
	var sources []pending

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (cfg.skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !isSourceFile(rel) || !matchesGlobs(&cfg, rel) {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", path, "error", err)
			return nil
		}
		sources = append(sources, pending{name: rel, src: src, hash: xxhash.Sum64(src)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tsx: walking %s: %w", root, err)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].name < sources[j].name })

	trees := make([]*sitter.Tree, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallelism)
	for i, f := range sources {
		g.Go(func() error {
			parser := sitter.NewParser()
			defer parser.Close()
			parser.SetLanguage(grammarFor(f.name))
			tree, err := parser.ParseCtx(gctx, nil, f.src)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", f.name, err)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tsx: %w", err)
	}

	p := newProvider(cfg.wrapperNames, cfg.deferredNames)
	for i, f := range sources {
		p.addFile(f.name, f.src, f.hash, trees[i])
	}
	for idx := range p.files {
		p.bindFile(int32(idx))
	}

	h := xxhash.New()
	var buf [8]byte
	for _, f := range sources {
		h.WriteString(f.name)
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], f.hash)
		h.Write(buf[:])
	}
	p.fingerprint = h.Sum64()

	return p, nil
}

// grammarFor picks the grammar by extension: the TSX dialect for .tsx and
// .jsx, plain TypeScript otherwise. The TypeScript grammar is a superset of
// JavaScript, so .js files parse with it too.
func grammarFor(name string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tsx", ".jsx":
		return tsxlang.GetLanguage()
	default:
		return ts.GetLanguage()
	}
}

func isSourceFile(rel string) bool {
	if strings.HasSuffix(rel, ".d.ts") {
		return false
	}
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".ts", ".tsx", ".js", ".jsx":
		return true
	default:
		return false
	}
}

func matchesGlobs(cfg *loadConfig, rel string) bool {
	if len(cfg.include) > 0 {
		found := false
		for _, glob := range cfg.include {
			if ok, err := doublestar.Match(glob, rel); err == nil && ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, glob := range cfg.exclude {
		if ok, err := doublestar.Match(glob, rel); err == nil && ok {
			return false
		}
	}
	return true
}
