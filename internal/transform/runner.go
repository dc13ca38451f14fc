package transform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/mirkit/internal/diag"
	"github.com/roach88/mirkit/internal/mir"
)

// RunIDGenerator produces identifiers that tie together the log lines of
// one pipeline run.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs. It is safe for
// concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run IDs, for tests.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next id. It panics once all ids are used.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all run IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// PhaseStep is one stage of a pipeline: a list of passes followed by an
// optional phase change.
type PhaseStep struct {
	Passes []MirPass
	// Target is nil when the step does not change the phase.
	Target *mir.MirPhase
}

// Runner drives passes over bodies.
//
// A Runner holds no per-body state; one Runner may run many pipelines
// concurrently.
type Runner struct {
	workers int
	runIDs  RunIDGenerator
	logger  *slog.Logger
	dump    io.Writer
	dumpMu  sync.Mutex
	metrics *metrics.Set
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds the number of bodies RunBodies processes at once.
// Values below one mean GOMAXPROCS.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = n
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID source.
func WithRunIDGenerator(g RunIDGenerator) RunnerOption {
	return func(r *Runner) {
		r.runIDs = g
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithDumpWriter sets where MIR dumps requested by Session.DumpMir go.
// Without a writer nothing is dumped.
func WithDumpWriter(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.dump = w
	}
}

// WithMetricsSet records pass metrics into set instead of a private one.
func WithMetricsSet(set *metrics.Set) RunnerOption {
	return func(r *Runner) {
		r.metrics = set
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.metrics == nil {
		r.metrics = metrics.NewSet()
	}
	return r
}

// Metrics returns the set pass counters and durations are recorded in.
func (r *Runner) Metrics() *metrics.Set { return r.metrics }

// RunPasses runs passes over body with the default Runner.
func RunPasses(ctx context.Context, tcx *TyCtxt, body *mir.Body, passes []MirPass, phaseChange *mir.MirPhase) error {
	return NewRunner().RunPasses(ctx, tcx, body, passes, phaseChange)
}

// RunPasses runs passes over body in order, then applies phaseChange.
//
// Disabled passes are skipped; Session.PassOverrides win over a pass's
// own gating. Bodies whose ShouldSkip reports true run no passes but still
// change phase. Each pass that runs increments body.PassCount. A phase
// change resets PassCount to zero and panics unless it moves forward.
//
// The returned error is a context error or an *InvalidMirError from
// validation.
func (r *Runner) RunPasses(ctx context.Context, tcx *TyCtxt, body *mir.Body, passes []MirPass, phaseChange *mir.MirPhase) error {
	log := r.logger.With("run_id", r.runIDs.Generate())
	return r.runPasses(ctx, log, tcx, body, passes, phaseChange)
}

// RunPipeline runs every step of a pipeline over one body.
func (r *Runner) RunPipeline(ctx context.Context, tcx *TyCtxt, body *mir.Body, steps []PhaseStep) error {
	log := r.logger.With("run_id", r.runIDs.Generate())
	return r.runPipeline(ctx, log, tcx, body, steps)
}

// RunBodies runs a pipeline over many bodies in parallel, at most the
// configured number of workers at a time. Each body is owned by exactly
// one goroutine. The first error cancels the remaining bodies.
func (r *Runner) RunBodies(ctx context.Context, tcx *TyCtxt, bodies []*mir.Body, steps []PhaseStep) error {
	runID := r.runIDs.Generate()
	log := r.logger.With("run_id", runID)
	start := time.Now()

	log.Info("pipeline starting", "bodies", len(bodies), "workers", r.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, body := range bodies {
		g.Go(func() error {
			err := r.runPipeline(gctx, log, tcx, body, steps)
			if err == nil || IsInvalidMir(err) {
				// InvalidMirError already names the body.
				return err
			}
			return fmt.Errorf("%s: %w", body.Source, err)
		})
	}
	err := g.Wait()

	log.Info("pipeline finished",
		"bodies", len(bodies),
		"errors", tcx.Diag.ErrorCount(),
		"duration", time.Since(start),
	)
	return err
}

func (r *Runner) runPipeline(ctx context.Context, log *slog.Logger, tcx *TyCtxt, body *mir.Body, steps []PhaseStep) error {
	for _, step := range steps {
		if err := r.runPasses(ctx, log, tcx, body, step.Passes, step.Target); err != nil {
			return err
		}
	}
	r.metrics.GetOrCreateCounter(`mir_bodies_processed_total`).Inc()
	return nil
}

func (r *Runner) runPasses(ctx context.Context, log *slog.Logger, tcx *TyCtxt, body *mir.Body, passes []MirPass, phaseChange *mir.MirPhase) error {
	sess := tcx.Session
	if sess == nil {
		sess = &Session{}
	}
	validate := sess.ValidateMir
	bodyName := body.Source.String()

	if !body.ShouldSkip() {
		for _, pass := range passes {
			if err := ctx.Err(); err != nil {
				return err
			}

			name := PassName(pass)
			profName := profilerName(name)

			enabled := passEnabled(pass, sess)
			if forced, ok := sess.Override(name); ok {
				enabled = forced
			}
			if !enabled {
				r.metrics.GetOrCreateCounter(fmt.Sprintf(`mir_pass_skipped_total{pass=%q}`, profName)).Inc()
				log.Debug("pass skipped", "pass", name, "body", bodyName)
				continue
			}

			dump := dumpEnabled(pass) && sess.ShouldDump(name)
			if dump {
				r.dumpBody(body, name, "before")
			}

			start := time.Now()
			pass.RunPass(tcx, body)
			r.metrics.GetOrCreateCounter(fmt.Sprintf(`mir_pass_runs_total{pass=%q}`, profName)).Inc()
			r.metrics.GetOrCreateHistogram(fmt.Sprintf(`mir_pass_duration_seconds{pass=%q}`, profName)).UpdateDuration(start)

			if dump {
				r.dumpBody(body, name, "after")
			}

			log.Debug("pass finished",
				"pass", name,
				"body", bodyName,
				"phase", body.Phase.String(),
				"pass_count", body.PassCount,
			)

			if validate {
				if err := validateAfter(tcx, body, "after pass "+name); err != nil {
					return err
				}
			}

			body.PassCount++
		}
	}

	if phaseChange == nil {
		return nil
	}
	if !body.Phase.Less(*phaseChange) {
		panic(fmt.Sprintf("transform: invalid MIR phase transition from %s to %s", body.Phase, *phaseChange))
	}

	log.Info("phase change",
		"body", bodyName,
		"from", body.Phase.String(),
		"phase", phaseChange.String(),
		"pass_count", body.PassCount,
	)
	body.Phase = *phaseChange
	body.PassCount = 0

	if validate || *phaseChange == mir.Runtime(mir.RuntimeOptimized) {
		return validateAfter(tcx, body, "after phase change to "+phaseChange.String())
	}
	return nil
}

func (r *Runner) dumpBody(body *mir.Body, pass, stage string) {
	if r.dump == nil {
		return
	}
	r.dumpMu.Lock()
	defer r.dumpMu.Unlock()

	fmt.Fprintf(r.dump, "// pass %s (%s), pass_count %d\n", pass, stage, body.PassCount)
	if err := mir.WriteMirFn(r.dump, body); err != nil {
		slog.Warn("mir dump failed", "pass", pass, "error", err)
	}
}

// validateAfter runs the validator and turns any finding into an error.
func validateAfter(tcx *TyCtxt, body *mir.Body, when string) error {
	errs := Validate(body)
	if len(errs) == 0 {
		return nil
	}
	for i := range errs {
		tcx.report(diag.Error, "Validator", body, errs[i].Location, errs[i].Code, errs[i].Message+" ("+when+")")
	}
	return &InvalidMirError{Body: body.Source.String(), When: when, Errors: errs}
}
