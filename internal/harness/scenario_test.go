package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.cue"), []byte("generator: stores: 2\n"), 0644))

	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
config: small.cue
seed: 9
recipes: [loyalty, segments]
assertions:
  - type: summary_value
    path: window.days
    equals: 28
  - type: final_state
    table: customers
    where: { customer_id: C00001 }
    expect: { customer_id: C00001 }
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(dir, "small.cue"), scenario.Config)
	require.NotNil(t, scenario.Seed)
	assert.Equal(t, uint64(9), *scenario.Seed)
	assert.Equal(t, []string{"loyalty", "segments"}, scenario.Recipes)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, 28, scenario.Assertions[0].Equals)
	assert.Equal(t, "C00001", scenario.Assertions[1].Where["customer_id"])
	assert.True(t, scenario.needsWarehouse())
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: typo
description: "Misspelled assertions key"
assertion:
  - type: digest
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "missing name",
			content: `
description: "x"
assertions: [{type: summary_count, path: tables, count: 8}]
`,
			want: "name is required",
		},
		{
			name: "missing description",
			content: `
name: x
assertions: [{type: summary_count, path: tables, count: 8}]
`,
			want: "description is required",
		},
		{
			name: "no assertions",
			content: `
name: x
description: "x"
`,
			want: "assertions list is required",
		},
		{
			name: "missing config",
			content: `
name: x
description: "x"
config: absent.cue
assertions: [{type: summary_count, path: tables, count: 8}]
`,
			want: "config file not found",
		},
		{
			name: "unknown recipe",
			content: `
name: x
description: "x"
recipes: [forecast]
assertions: [{type: summary_count, path: tables, count: 8}]
`,
			want: "unknown recipe",
		},
		{
			name: "unknown assertion type",
			content: `
name: x
description: "x"
assertions: [{type: trace_order}]
`,
			want: `unknown assertion type "trace_order"`,
		},
		{
			name: "summary_value without path",
			content: `
name: x
description: "x"
assertions: [{type: summary_value, equals: 1}]
`,
			want: "path is required for summary_value",
		},
		{
			name: "summary_contains without expect",
			content: `
name: x
description: "x"
assertions: [{type: summary_contains, path: tables}]
`,
			want: "expect is required for summary_contains",
		},
		{
			name: "final_state without table",
			content: `
name: x
description: "x"
assertions: [{type: final_state, expect: {a: 1}}]
`,
			want: "table is required for final_state",
		},
		{
			name: "short digest",
			content: `
name: x
description: "x"
assertions: [{type: digest, equals: abc}]
`,
			want: "64-character hex digest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		_, err := LoadScenario(f)
		assert.NoError(t, err, f)
	}
}
