package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/cleanup_only.yaml")
	require.NoError(t, err)

	assert.Equal(t, "cleanup_only", scenario.Name)
	assert.Equal(t, filepath.Join("testdata", "fixtures", "lowering.yaml"), scenario.Fixture)
	assert.Equal(t, filepath.Join("testdata", "pipelines", "cleanup.cue"), scenario.Pipeline)
	assert.Equal(t, []string{"pair"}, scenario.Bodies)
	require.Len(t, scenario.Assertions, 4)
	assert.Equal(t, AssertBodyPhase, scenario.Assertions[0].Type)
}

func TestLoadScenario_DefaultPipeline(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/default_pipeline.yaml")
	require.NoError(t, err)
	assert.Empty(t, scenario.Pipeline)
	require.NotNil(t, scenario.Assertions[2].Count)
	assert.Equal(t, 4, *scenario.Assertions[2].Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
name: lost
description: "Fixture does not exist"
fixture: nowhere.yaml
assertions:
  - type: no_errors
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixture file not found")
}

func TestParseScenario_Errors(t *testing.T) {
	const head = "name: s\ndescription: d\nfixture: f.yaml\n"

	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"unknown field", head + "assertion: []\n", "field assertion not found"},
		{"missing name", "description: d\nfixture: f.yaml\nassertions: [{type: no_errors}]\n", "name is required"},
		{"missing description", "name: s\nfixture: f.yaml\nassertions: [{type: no_errors}]\n", "description is required"},
		{"missing fixture", "name: s\ndescription: d\nassertions: [{type: no_errors}]\n", "fixture is required"},
		{"no assertions", head, "assertions list is required"},
		{"empty body name", head + "bodies: ['']\nassertions: [{type: no_errors}]\n", "bodies[0]: name must be non-empty"},
		{"no type", head + "assertions: [{body: f}]\n", "assertions[0]: type is required"},
		{"unknown type", head + "assertions: [{type: trace_order}]\n", `unknown assertion type "trace_order"`},
		{"bad phase", head + "assertions: [{type: body_phase, body: f, phase: late}]\n", "unknown MIR dialect"},
		{"phase without body", head + "assertions: [{type: body_phase, phase: built}]\n", "body is required for body_phase"},
		{"no count", head + "assertions: [{type: block_count, body: f}]\n", "count must be set"},
		{"negative count", head + "assertions: [{type: block_count, body: f, count: -1}]\n", "count must be set and non-negative"},
		{"dump without text", head + "assertions: [{type: dump_contains, body: f}]\n", "body and text are required for dump_contains"},
		{"diagnostic without code", head + "assertions: [{type: diagnostic}]\n", "code is required"},
		{"bad severity", head + "assertions: [{type: diagnostic, code: E1, severity: fatal}]\n", `unknown severity "fatal"`},
		{"run error without text", head + "assertions: [{type: run_error}]\n", "text is required for run_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
