// Package config loads project configuration from an understory.toml file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the file name looked up in the project root when no
// config path is given.
const DefaultPath = "understory.toml"

type Config struct {
	Project  Project  `toml:"project"`
	Analyzer Analyzer `toml:"analyzer"`
	Rules    Rules    `toml:"rules"`
}

// Project controls which files the scanner picks up. Empty include means
// every .ts and .tsx file; patterns are doublestar globs relative to the
// project root.
type Project struct {
	Include  []string `toml:"include"`
	Exclude  []string `toml:"exclude"`
	SkipDirs []string `toml:"skip_dirs"`
}

// Analyzer overrides the recognized name sets. Empty slices keep the
// built-in defaults.
type Analyzer struct {
	MemoWrappers   []string `toml:"memo_wrappers"`
	DeferredTypes  []string `toml:"deferred_types"`
	UIElementTypes []string `toml:"ui_element_types"`
}

// Rules selects which rule scripts run. Empty means all embedded rules.
type Rules struct {
	Enabled []string `toml:"enabled"`
}

func Default() *Config {
	return &Config{}
}

// Load reads the config at path. A missing file is not an error: the
// defaults come back so projects without an understory.toml just work.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
