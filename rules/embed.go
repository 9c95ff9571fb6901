// Package rules embeds the built-in Risor rule scripts.
package rules

import "embed"

// FS contains the built-in .risor rules, one file per rule.
//
//go:embed *.risor
var FS embed.FS
