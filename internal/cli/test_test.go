package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retailkit/internal/harness"
)

const passingScenario = `
name: inventory_window
description: "Inventory recipe over the default window"
recipes: [inventory]
assertions:
  - type: summary_value
    path: window.end
    equals: "2025-01-31"
  - type: summary_count
    path: inventory.top_products
    count: 5
`

const failingScenario = `
name: wrong_seed
description: "Asserts a seed the run does not use"
recipes: [quality]
assertions:
  - type: summary_value
    path: seed
    equals: "41"
`

func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommand_MissingArgs(t *testing.T) {
	_, err := run(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommand_NonExistentDir(t *testing.T) {
	_, err := run(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_EmptyDir(t *testing.T) {
	out, err := run(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")

	out, err = run(t, "test", t.TempDir(), "--format", "json")
	require.NoError(t, err)
	var result TestResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &result))
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Scenarios)
}

func TestTestCommand_PassAndFail(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"inventory_window.yaml": passingScenario,
		"wrong_seed.yaml":       failingScenario,
		"notes.txt":             "not a scenario",
	})

	out, err := run(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ inventory_window")
	assert.Contains(t, out, "✗ wrong_seed")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")

	out, err = run(t, "test", dir, "--format", "json")
	require.Error(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)

	var result TestResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
}

func TestTestCommand_Filter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"inventory_window.yaml": passingScenario,
		"wrong_seed.yaml":       failingScenario,
	})

	out, err := run(t, "test", dir, "--filter", "inventory_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	_, err = run(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Golden(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"inventory_window.yaml": passingScenario})
	scenarioFile := filepath.Join(dir, "inventory_window.yaml")
	goldenPath := harness.GoldenPath(scenarioFile)

	out, err := run(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ inventory_window (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(golden))

	// Same configuration, same bytes.
	_, err = run(t, "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"seed":"41"}`), 0644))
	out, err = run(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "summary does not match golden file")
}

func TestTestCommand_RepositoryScenarios(t *testing.T) {
	dir := filepath.Join("..", "..", "testdata", "scenarios")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("testdata/scenarios directory not found")
	}

	out, err := run(t, "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "All scenarios passed")
}
