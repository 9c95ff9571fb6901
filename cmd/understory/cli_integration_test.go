package main_test

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the understory binary into t.TempDir().
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "understory"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "understory")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot walks up from this file's directory to the go.mod root.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createReactFixture writes a three-file project: a memoized component, a
// consumer passing it an inline object prop, and an async component.
func createReactFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Chip.tsx": `import React from "react";

interface ChipProps {
  label: string;
  style?: object;
}

const ChipInner = (props: ChipProps): JSX.Element => <span>{props.label}</span>;

export const Chip = React.memo(ChipInner);
`,
		"board.tsx": `import { Chip } from "./Chip";

export const Board = (): JSX.Element => (
  <Chip label="alpha" style={{ margin: 1 }} />
);
`,
		"panel.tsx": `export async function LazyPanel() {
  const data = await fetch("/api");
  return <section>{data}</section>;
}
`,
	}
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func createCleanFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := `export const Title = (): JSX.Element => <h1>ok</h1>;
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Title.tsx"), []byte(src), 0o644))
	return dir
}

// runJSON executes the binary and parses the JSON envelope from stdout.
// Non-zero exits are allowed so error envelopes can be inspected.
func runJSON(t *testing.T, bin string, args ...string) (map[string]any, int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	stdout, err := cmd.Output()
	code := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		require.True(t, ok, "command failed without exit code: %v", err)
		code = exitErr.ExitCode()
	}
	require.NotEmpty(t, stdout, "expected JSON on stdout")

	var result map[string]any
	require.NoError(t, json.Unmarshal(stdout, &result), "invalid JSON output: %s", string(stdout))
	return result, code
}

// runRaw executes the binary and returns stdout, stderr, and the exit code.
func runRaw(t *testing.T, bin string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	code := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		require.True(t, ok, "command failed without exit code: %v", err)
		code = exitErr.ExitCode()
	}
	return stdout.String(), stderr.String(), code
}

func TestAnalyze_ReportsImportsAndExports(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	result, code := runJSON(t, bin, "analyze", dir)
	assert.Equal(t, 0, code)
	assert.Equal(t, "analyze", result["command"])
	assert.EqualValues(t, 3, result["total_count"])

	reports, ok := result["results"].([]any)
	require.True(t, ok, "results should be an array")
	require.Len(t, reports, 3)

	board := reports[1].(map[string]any)
	assert.Equal(t, "board.tsx", board["file"])

	imports := board["imports"].([]any)
	require.Len(t, imports, 1)
	imp := imports[0].(map[string]any)
	assert.Equal(t, "./Chip", imp["module"])
	assert.Equal(t, "Chip", imp["name"])
	assert.Equal(t, "Chip.tsx", imp["resolved_file"])

	exports := board["exports"].([]any)
	require.Len(t, exports, 1)
	exp := exports[0].(map[string]any)
	assert.Equal(t, "Board", exp["export_name"])
	assert.Equal(t, "Board", exp["declared_name"])
	assert.Equal(t, "variable", exp["kind"])

	panel := reports[2].(map[string]any)
	panelExports := panel["exports"].([]any)
	require.Len(t, panelExports, 1)
	assert.Equal(t, "function", panelExports[0].(map[string]any)["kind"])
}

func TestAnalyze_Stats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	result, code := runJSON(t, bin, "analyze", "--stats", dir)
	assert.Equal(t, 0, code)

	stats, ok := result["results"].(map[string]any)
	require.True(t, ok, "results should be a stats object")
	module := stats["module_index"].(map[string]any)
	assert.EqualValues(t, 3, module["files_indexed"])
	assert.Equal(t, true, module["fully_built"])
}

func TestAnalyze_GlobFlagsNarrowTheScan(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	result, code := runJSON(t, bin, "analyze", "--exclude", "panel.tsx", dir)
	assert.Equal(t, 0, code)
	assert.EqualValues(t, 2, result["total_count"])

	result, code = runJSON(t, bin, "analyze", "--include", "C*", dir)
	assert.Equal(t, 0, code)
	assert.EqualValues(t, 1, result["total_count"])
	reports := result["results"].([]any)
	assert.Equal(t, "Chip.tsx", reports[0].(map[string]any)["file"])
}

func TestAnalyze_MissingDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)

	result, code := runJSON(t, bin, "analyze", filepath.Join(t.TempDir(), "absent"))
	assert.Equal(t, 1, code)
	errStr, _ := result["error"].(string)
	assert.Contains(t, errStr, "directory not found")
}

func TestAnalyze_TextFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	stdout, _, code := runRaw(t, bin, "analyze", "--format", "text", dir)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "board.tsx")
	assert.Contains(t, stdout, "IMPORT")
	assert.Contains(t, stdout, "EXPORT")
}

func TestUsages_FindsDeclarationAcrossFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	result, code := runJSON(t, bin, "usages", "Chip", dir)
	assert.Equal(t, 0, code)
	assert.Equal(t, "usages", result["command"])
	assert.EqualValues(t, 1, result["total_count"])

	decls, ok := result["results"].([]any)
	require.True(t, ok, "results should be an array")
	require.Len(t, decls, 1)
	decl := decls[0].(map[string]any)
	assert.Equal(t, "Chip", decl["name"])
	assert.Equal(t, "Chip.tsx", decl["file"])
	assert.Equal(t, true, decl["is_component"])
	assert.Equal(t, true, decl["is_memoized"])

	shapes, ok := decl["property_shapes"].(map[string]any)
	require.True(t, ok, "memoized component should report property shapes")
	assert.Contains(t, shapes, "label")
	assert.Contains(t, shapes, "style")

	usages := decl["usages"].([]any)
	require.Len(t, usages, 1)
	usage := usages[0].(map[string]any)
	assert.Equal(t, "embed", usage["kind"])
	assert.Equal(t, "board.tsx", usage["file"])
	assert.EqualValues(t, 4, usage["start_line"])
}

func TestUsages_SuggestsNearestName(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	result, code := runJSON(t, bin, "usages", "Chips", dir)
	assert.Equal(t, 1, code)
	errStr, _ := result["error"].(string)
	assert.Contains(t, errStr, `no declaration exported as "Chips"`)
	assert.Contains(t, errStr, `did you mean "Chip"?`)
}

func TestCheck_ReportsFindings(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	result, code := runJSON(t, bin, "check", dir)
	assert.Equal(t, 1, code, "findings should fail the command")
	assert.EqualValues(t, 2, result["total_count"])

	diags, ok := result["results"].([]any)
	require.True(t, ok, "results should be an array")
	require.Len(t, diags, 2)

	first := diags[0].(map[string]any)
	assert.Equal(t, "unstable-memo-props", first["rule"])
	assert.Equal(t, "board.tsx", first["file"])
	assert.EqualValues(t, 4, first["line"])

	second := diags[1].(map[string]any)
	assert.Equal(t, "async-component", second["rule"])
	assert.Equal(t, "panel.tsx", second["file"])
}

func TestCheck_RuleFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	result, code := runJSON(t, bin, "check", "--rules", "async-component", dir)
	assert.Equal(t, 1, code)
	assert.EqualValues(t, 1, result["total_count"])

	diags := result["results"].([]any)
	require.Len(t, diags, 1)
	assert.Equal(t, "async-component", diags[0].(map[string]any)["rule"])
}

func TestCheck_ConfigEnabledRules(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)
	cfg := "[rules]\nenabled = [\"async-component\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "understory.toml"), []byte(cfg), 0o644))

	result, code := runJSON(t, bin, "check", dir)
	assert.Equal(t, 1, code)
	assert.EqualValues(t, 1, result["total_count"])

	diags := result["results"].([]any)
	require.Len(t, diags, 1)
	assert.Equal(t, "async-component", diags[0].(map[string]any)["rule"])
}

func TestCheck_RulesDirOverride(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	rulesDir := t.TempDir()
	rule := `files := project_files()
diag("inventory", len(files), 0, "project file count")
`
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "file-count.risor"), []byte(rule), 0o644))

	result, code := runJSON(t, bin, "check", "--rules-dir", rulesDir, dir)
	assert.Equal(t, 1, code)

	diags := result["results"].([]any)
	require.Len(t, diags, 1)
	diag := diags[0].(map[string]any)
	assert.Equal(t, "file-count", diag["rule"])
	assert.Equal(t, "inventory", diag["file"])
	assert.EqualValues(t, 3, diag["line"])
}

func TestCheck_CleanProjectPasses(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createCleanFixture(t)

	result, code := runJSON(t, bin, "check", dir)
	assert.Equal(t, 0, code)
	assert.EqualValues(t, 0, result["total_count"])
	assert.Nil(t, result["results"])
}

func TestCheck_TextFormat(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	dir := createReactFixture(t)

	stdout, _, code := runRaw(t, bin, "check", "--format", "text", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "board.tsx:4:29: [unstable-memo-props]")
	assert.Contains(t, stdout, "panel.tsx:1:0: [async-component]")
}

func TestInvalidFormatRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)

	stdout, stderr, code := runRaw(t, bin, "analyze", "--format", "yaml", t.TempDir())
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "invalid format")
}
