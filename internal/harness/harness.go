package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/mirkit/internal/config"
	"github.com/roach88/mirkit/internal/fixture"
	"github.com/roach88/mirkit/internal/mir"
	"github.com/roach88/mirkit/internal/transform"
)

// Harness runs scenarios. The zero value is not usable; call New.
type Harness struct {
	logger  *slog.Logger
	workers int
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the pass driver. The default
// discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithWorkers bounds how many bodies run at once.
func WithWorkers(n int) Option {
	return func(h *Harness) {
		h.workers = n
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a scenario and checks its assertions.
//
// Execution flow:
// 1. Load the fixture and the pipeline
// 2. Run the pipeline over the selected bodies
// 3. Collect diagnostics in a stable order
// 4. Evaluate assertions
//
// The returned error covers loading problems only. A failed pipeline run
// is recorded in Result.RunErr and fails the result unless a run_error
// assertion expects it.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	fx, err := fixture.Load(scenario.Fixture)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	pipeline := config.Default()
	if scenario.Pipeline != "" {
		if pipeline, err = config.LoadPipeline(scenario.Pipeline); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	bodies, err := selectBodies(fx, scenario.Bodies)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	workers := h.workers
	if pipeline.Session.DumpMir != "" {
		// Dumps interleave by body otherwise.
		workers = 1
	}
	var dump bytes.Buffer
	runner := transform.NewRunner(
		transform.WithLogger(h.logger),
		transform.WithRunIDGenerator(transform.NewFixedGenerator(scenario.Name)),
		transform.WithWorkers(workers),
		transform.WithDumpWriter(&dump),
	)
	sess := pipeline.Session
	tcx := transform.NewTyCtxt(&sess, fx.Evaluator())
	transform.WarnUnknownOverrides(tcx)

	result := NewResult()
	result.Bodies = bodies
	result.RunErr = runner.RunBodies(ctx, tcx, bodies, pipeline.Steps())
	result.Diagnostics = tcx.Diag.Diagnostics()
	sort.SliceStable(result.Diagnostics, func(i, j int) bool {
		a, b := result.Diagnostics[i], result.Diagnostics[j]
		if a.Body != b.Body {
			return a.Body < b.Body
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
	result.Dump = dump.String()

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"bodies", len(bodies),
		"diagnostics", len(result.Diagnostics),
		"run_error", result.RunErr != nil,
	)

	expectRunErr := false
	for _, a := range scenario.Assertions {
		if a.Type == AssertRunError {
			expectRunErr = true
		}
		if err := checkAssertion(result, a); err != nil {
			result.AddError(err.Error())
		}
	}
	if result.RunErr != nil && !expectRunErr {
		result.AddError("pipeline failed: " + result.RunErr.Error())
	}

	return result, nil
}

func selectBodies(fx *fixture.Fixture, names []string) ([]*mir.Body, error) {
	if len(names) == 0 {
		return fx.Fns, nil
	}
	bodies := make([]*mir.Body, 0, len(names))
	for _, name := range names {
		b, ok := fx.Body(name)
		if !ok {
			return nil, fmt.Errorf("fixture has no body %q", name)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}
