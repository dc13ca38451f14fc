// Package harness runs MIR pass pipelines over body fixtures and checks
// the outcome, as executable contract tests for the pass driver.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	fixture: ../fixtures/bodies.yaml
//	pipeline: pipelines/cleanup.cue   # optional, built-in pipeline otherwise
//	bodies: [diamond]                 # optional, every fn body otherwise
//	assertions:
//	  - type: body_phase
//	    body: diamond
//	    phase: runtime-optimized
//	  - type: diagnostic
//	    code: E132
//	    severity: error
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - body_phase: the body ended in the given phase
//   - block_count: the body has exactly count blocks
//   - dump_contains / dump_excludes: substring check on the MIR dump
//   - diagnostic: a diagnostic with the code (and optional body, severity, text)
//   - no_errors: no error diagnostics
//   - run_error: the pipeline failed with an error containing text
//
// # Deterministic Testing
//
// Bodies run in parallel, but diagnostics are sorted before assertions
// and snapshots see them, and the run ID is the scenario name. Snapshots
// compare against testdata/golden/{name}.golden with goldie.
package harness
