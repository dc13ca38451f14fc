package harness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirkit/internal/transform"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return scenario
}

// TestRunWithGolden tests every scenario against its assertions and, where
// one exists, its golden snapshot.
func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"default_pipeline", "cleanup_only"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// TestRun_ValidationFailure tests that a run error expected by the
// scenario does not fail the result.
func TestRun_ValidationFailure(t *testing.T) {
	result, err := Run(context.Background(), loadScenario(t, "missing_cleanup"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Error(t, result.RunErr)
	assert.True(t, transform.IsInvalidMir(result.RunErr))

	codes := make([]string, len(result.Diagnostics))
	for i, d := range result.Diagnostics {
		codes[i] = d.Code
	}
	assert.Equal(t, []string{transform.ErrPhaseForbidden, transform.ErrPhaseForbidden}, codes)
}

// TestRun_FailingAssertions tests that every kind of assertion reports a
// mismatch.
func TestRun_FailingAssertions(t *testing.T) {
	scenario := loadScenario(t, "cleanup_only")
	three := 3
	scenario.Assertions = []Assertion{
		{Type: AssertBodyPhase, Body: "pair", Phase: "runtime"},
		{Type: AssertBlockCount, Body: "pair", Count: &three},
		{Type: AssertDumpContains, Body: "pair", Text: "switchInt"},
		{Type: AssertDumpExcludes, Body: "pair", Text: "StorageLive"},
		{Type: AssertDiagnostic, Code: "E132"},
		{Type: AssertRunError, Text: "broken"},
		{Type: AssertBodyPhase, Body: "diamond", Phase: "built"},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, len(scenario.Assertions))
	assert.Contains(t, result.Errors[0], "Expected: pair at runtime-initial")
	assert.Contains(t, result.Errors[1], "Actual: 4 blocks")
	assert.Contains(t, result.Errors[5], "pipeline succeeded")
	assert.Contains(t, result.Errors[6], "body was not run")
}

// TestRun_UnexpectedRunError tests that a run error fails the result when
// no assertion expects it.
func TestRun_UnexpectedRunError(t *testing.T) {
	scenario := loadScenario(t, "missing_cleanup")
	scenario.Assertions = []Assertion{{Type: AssertBodyPhase, Body: "pair", Phase: "analysis-post-cleanup"}}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "pipeline failed: broken MIR in pair")
}

// TestRun_UnknownBody tests the load error for a missing body name.
func TestRun_UnknownBody(t *testing.T) {
	scenario := loadScenario(t, "cleanup_only")
	scenario.Bodies = []string{"ghost"}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `fixture has no body "ghost"`)
}

// TestAssertionError tests the rendered failure.
func TestAssertionError(t *testing.T) {
	var err error = &AssertionError{Type: AssertNoErrors, Expected: "no error diagnostics", Actual: "1 error(s)"}
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Assertion failed: no_errors\n  Expected: no error diagnostics\n  Actual: 1 error(s)\n", err.Error())
}
