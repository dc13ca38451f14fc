package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mirkit/internal/mir"
)

// Snapshot renders a result as text: every body's MIR dump, then one
// line per diagnostic and the run error, if any. Diagnostic messages are
// left out so golden files do not depend on evaluator wording.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "// scenario: %s\n", name)
	for _, body := range result.Bodies {
		b.WriteString("\n")
		b.WriteString(mir.FormatMirFn(body))
	}

	b.WriteString("\n")
	if len(result.Diagnostics) == 0 {
		b.WriteString("// diagnostics: none\n")
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(&b, "// %s[%s] %s", d.Severity, d.Code, d.Body)
		if d.Pass != "" {
			fmt.Fprintf(&b, " (%s)", d.Pass)
		}
		b.WriteString("\n")
	}
	if result.RunErr != nil {
		b.WriteString("// run failed\n")
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot be loaded.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against the golden file
// testdata/golden/{name}.golden.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
