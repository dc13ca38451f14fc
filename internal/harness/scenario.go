package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mirkit/internal/mir"
)

// Scenario defines a pipeline test: a fixture, the pipeline to run over it
// and what must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the path to a body fixture, relative to the scenario file.
	Fixture string `yaml:"fixture"`

	// Pipeline is the path to a CUE pipeline, relative to the scenario
	// file. Empty selects the built-in pipeline.
	Pipeline string `yaml:"pipeline,omitempty"`

	// Bodies restricts the run to the named fn bodies. Empty runs all of
	// them.
	Bodies []string `yaml:"bodies,omitempty"`

	// Assertions validate the bodies and diagnostics after the run.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of the run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "body_phase": body ended in Phase
	// - "block_count": body has Count blocks
	// - "dump_contains": body's MIR dump contains Text
	// - "dump_excludes": body's MIR dump does not contain Text
	// - "diagnostic": a diagnostic with Code (and Body, Severity, Text when set) was reported
	// - "no_errors": no error diagnostics were reported
	// - "run_error": the run failed with an error containing Text
	Type string `yaml:"type"`

	Body     string `yaml:"body,omitempty"`
	Phase    string `yaml:"phase,omitempty"`
	Count    *int   `yaml:"count,omitempty"`
	Code     string `yaml:"code,omitempty"`
	Severity string `yaml:"severity,omitempty"`
	Text     string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertBodyPhase    = "body_phase"
	AssertBlockCount   = "block_count"
	AssertDumpContains = "dump_contains"
	AssertDumpExcludes = "dump_excludes"
	AssertDiagnostic   = "diagnostic"
	AssertNoErrors     = "no_errors"
	AssertRunError     = "run_error"
)

// LoadScenario reads and parses a scenario YAML file. Fixture and pipeline
// paths are resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	scenario.Fixture = resolve(base, scenario.Fixture)
	scenario.Pipeline = resolve(base, scenario.Pipeline)

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if _, err := os.Stat(scenario.Fixture); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: fixture file not found: %s", scenario.Fixture)
	}
	if scenario.Pipeline != "" {
		if _, err := os.Stat(scenario.Pipeline); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: pipeline file not found: %s", scenario.Pipeline)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, name := range s.Bodies {
		if name == "" {
			return fmt.Errorf("bodies[%d]: name must be non-empty", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBodyPhase:
		if a.Body == "" {
			return fmt.Errorf("assertions[%d]: body is required for body_phase", index)
		}
		if _, err := mir.ParsePhaseName(a.Phase); err != nil {
			return fmt.Errorf("assertions[%d]: phase: %w", index, err)
		}
	case AssertBlockCount:
		if a.Body == "" {
			return fmt.Errorf("assertions[%d]: body is required for block_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be set and non-negative for block_count", index)
		}
	case AssertDumpContains, AssertDumpExcludes:
		if a.Body == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: body and text are required for %s", index, a.Type)
		}
	case AssertDiagnostic:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic", index)
		}
		switch a.Severity {
		case "", "error", "warning", "note":
		default:
			return fmt.Errorf("assertions[%d]: unknown severity %q", index, a.Severity)
		}
	case AssertNoErrors:
	case AssertRunError:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for run_error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
