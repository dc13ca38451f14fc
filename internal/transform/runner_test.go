package transform

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirkit/internal/mir"
)

func phasePtr(p mir.MirPhase) *mir.MirPhase { return &p }

// TestRunPasses_PassCountAndPhase tests that every pass that runs bumps
// PassCount and that a phase change resets it.
func TestRunPasses_PassCountAndPhase(t *testing.T) {
	rec := &recorder{}
	body := diamondBody()
	tcx := NewTyCtxt(nil, nil)
	passes := []MirPass{recordPass{"A", rec}, recordPass{"B", rec}, recordPass{"C", rec}}

	err := quietRunner().RunPasses(context.Background(), tcx, body, passes, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, rec.runs)
	assert.Equal(t, []int{0, 1, 2}, rec.seen)
	assert.Equal(t, 3, body.PassCount)
	assert.Equal(t, mir.Built(), body.Phase)

	err = quietRunner().RunPasses(context.Background(), tcx, body, passes[:1], phasePtr(mir.Analysis(mir.AnalysisInitial)))
	require.NoError(t, err)
	assert.Equal(t, mir.Analysis(mir.AnalysisInitial), body.Phase)
	assert.Zero(t, body.PassCount)
	assert.Equal(t, 3, rec.seen[len(rec.seen)-1])
}

// TestRunPasses_BackwardPhasePanics tests that phase changes only move
// forward.
func TestRunPasses_BackwardPhasePanics(t *testing.T) {
	tests := []struct {
		name   string
		from   mir.MirPhase
		to     mir.MirPhase
		expect string
	}{
		{
			name:   "backward",
			from:   mir.Analysis(mir.AnalysisPostCleanup),
			to:     mir.Analysis(mir.AnalysisInitial),
			expect: "transform: invalid MIR phase transition from analysis-post-cleanup to analysis-initial",
		},
		{
			name:   "same phase",
			from:   mir.Runtime(mir.RuntimeInitial),
			to:     mir.Runtime(mir.RuntimeInitial),
			expect: "transform: invalid MIR phase transition from runtime-initial to runtime-initial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := diamondBody()
			body.Phase = tt.from
			assert.PanicsWithValue(t, tt.expect, func() {
				_ = quietRunner().RunPasses(context.Background(), NewTyCtxt(nil, nil), body, nil, phasePtr(tt.to))
			})
		})
	}
}

// TestRunPasses_Gating tests pass gating and session overrides.
func TestRunPasses_Gating(t *testing.T) {
	tests := []struct {
		name      string
		sess      Session
		wantRuns  []string
		wantCount int
	}{
		{
			name:      "debug build skips optimizing pass",
			sess:      Session{},
			wantRuns:  []string{"Plain"},
			wantCount: 1,
		},
		{
			name:      "optimizing build runs both",
			sess:      Session{OptLevel: 2},
			wantRuns:  []string{"Opt", "Plain"},
			wantCount: 2,
		},
		{
			name:      "override enables gated pass",
			sess:      Session{PassOverrides: []PassOverride{{Name: "Opt", Enabled: true}}},
			wantRuns:  []string{"Opt", "Plain"},
			wantCount: 2,
		},
		{
			name: "later override wins",
			sess: Session{OptLevel: 3, PassOverrides: []PassOverride{
				{Name: "Plain", Enabled: true},
				{Name: "Plain", Enabled: false},
			}},
			wantRuns:  []string{"Opt"},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			body := diamondBody()
			sess := tt.sess
			passes := []MirPass{optPass{recordPass{"Opt", rec}}, recordPass{"Plain", rec}}

			err := quietRunner().RunPasses(context.Background(), NewTyCtxt(&sess, nil), body, passes, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRuns, rec.runs)
			assert.Equal(t, tt.wantCount, body.PassCount)
		})
	}
}

// TestRunPasses_ShouldSkip tests that injected bodies run no passes
// before their injection phase but still change phase.
func TestRunPasses_ShouldSkip(t *testing.T) {
	rec := &recorder{}
	body := diamondBody()
	body.InjectionPhase = phasePtr(mir.Analysis(mir.AnalysisPostCleanup))
	passes := []MirPass{recordPass{"A", rec}}
	runner := quietRunner()

	err := runner.RunPasses(context.Background(), NewTyCtxt(nil, nil), body, passes, phasePtr(mir.Analysis(mir.AnalysisInitial)))
	require.NoError(t, err)
	assert.Empty(t, rec.runs)
	assert.Equal(t, mir.Analysis(mir.AnalysisInitial), body.Phase)

	err = runner.RunPasses(context.Background(), NewTyCtxt(nil, nil), body, passes, phasePtr(mir.Analysis(mir.AnalysisPostCleanup)))
	require.NoError(t, err)
	assert.Empty(t, rec.runs)

	// At its injection phase the body is no longer skipped.
	err = runner.RunPasses(context.Background(), NewTyCtxt(nil, nil), body, passes, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, rec.runs)
}

// TestRunPasses_Validation tests that validation failures stop the
// pipeline and land in the diagnostic bag.
func TestRunPasses_Validation(t *testing.T) {
	t.Run("after pass", func(t *testing.T) {
		rec := &recorder{}
		tcx := NewTyCtxt(&Session{ValidateMir: true}, nil)
		body := diamondBody()

		err := quietRunner().RunPasses(context.Background(), tcx, body, []MirPass{breakPass{}, recordPass{"Later", rec}}, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidMir(err))
		assert.Contains(t, err.Error(), "after pass breakPass")
		assert.Empty(t, rec.runs)
		assert.Zero(t, body.PassCount)

		require.True(t, tcx.Diag.HasErrors())
		d := tcx.Diag.Diagnostics()[0]
		assert.Equal(t, ErrBadSuccessor, d.Code)
		assert.Equal(t, "Validator", d.Pass)
		assert.Equal(t, "diamond", d.Body)
	})

	t.Run("not validated by default", func(t *testing.T) {
		tcx := NewTyCtxt(nil, nil)
		err := quietRunner().RunPasses(context.Background(), tcx, diamondBody(), []MirPass{breakPass{}}, nil)
		require.NoError(t, err)
		assert.False(t, tcx.Diag.HasErrors())
	})

	t.Run("runtime-optimized always validates", func(t *testing.T) {
		tcx := NewTyCtxt(nil, nil)
		body := diamondBody()
		body.Phase = mir.Runtime(mir.RuntimePostCleanup)
		err := quietRunner().RunPasses(context.Background(), tcx, body, []MirPass{breakPass{}}, phasePtr(mir.Runtime(mir.RuntimeOptimized)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after phase change to runtime-optimized")
	})
}

// TestRunPasses_Dump tests before/after dumps and the dump opt-out.
func TestRunPasses_Dump(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	sess := &Session{DumpMir: "all"}
	runner := quietRunner(WithDumpWriter(&buf))

	passes := []MirPass{recordPass{"Loud", rec}, quietPass{recordPass{"Quiet", rec}}}
	err := runner.RunPasses(context.Background(), NewTyCtxt(sess, nil), diamondBody(), passes, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "// pass Loud (before), pass_count 0\n")
	assert.Contains(t, out, "// pass Loud (after), pass_count 0\n")
	assert.Contains(t, out, "fn diamond(_1: i32) -> i32 {")
	assert.NotContains(t, out, "Quiet")
	assert.Equal(t, []string{"Loud", "Quiet"}, rec.runs)
}

// TestRunPasses_Metrics tests per-pass counters keyed by profiler name.
func TestRunPasses_Metrics(t *testing.T) {
	set := metrics.NewSet()
	runner := quietRunner(WithMetricsSet(set))
	rec := &recorder{}

	for range 3 {
		err := runner.RunPasses(context.Background(), NewTyCtxt(nil, nil), diamondBody(),
			[]MirPass{recordPass{"CountMe", rec}, optPass{recordPass{"Never", rec}}}, nil)
		require.NoError(t, err)
	}

	assert.Same(t, set, runner.Metrics())
	assert.Equal(t, uint64(3), set.GetOrCreateCounter(`mir_pass_runs_total{pass="mir_pass_count_me"}`).Get())
	assert.Equal(t, uint64(3), set.GetOrCreateCounter(`mir_pass_skipped_total{pass="mir_pass_never"}`).Get())
}

// TestRunPasses_Cancelled tests that a cancelled context stops before the
// next pass.
func TestRunPasses_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	err := quietRunner().RunPasses(ctx, NewTyCtxt(nil, nil), diamondBody(), []MirPass{recordPass{"A", rec}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.runs)
}

// TestRunPipeline tests a multi-step pipeline over one body.
func TestRunPipeline(t *testing.T) {
	rec := &recorder{}
	steps := []PhaseStep{
		{Passes: []MirPass{recordPass{"Build", rec}}, Target: phasePtr(mir.Analysis(mir.AnalysisInitial))},
		{Passes: []MirPass{recordPass{"Cleanup", rec}, recordPass{"Cleanup2", rec}}, Target: phasePtr(mir.Runtime(mir.RuntimeInitial))},
		{Passes: []MirPass{recordPass{"Opt", rec}}},
	}
	body := diamondBody()

	err := quietRunner(WithRunIDGenerator(NewFixedGenerator("run-1"))).RunPipeline(context.Background(), NewTyCtxt(nil, nil), body, steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"Build", "Cleanup", "Cleanup2", "Opt"}, rec.runs)
	assert.Equal(t, []int{0, 0, 1, 0}, rec.seen)
	assert.Equal(t, mir.Runtime(mir.RuntimeInitial), body.Phase)
	assert.Equal(t, 1, body.PassCount)
}

// TestRunBodies tests parallel processing of many bodies.
func TestRunBodies(t *testing.T) {
	bodies := make([]*mir.Body, 32)
	for i := range bodies {
		bodies[i] = newBody(fmt.Sprintf("f%d", i), diamondBlocks(), i32())
	}
	rec := &recorder{}
	steps := []PhaseStep{
		{Passes: []MirPass{recordPass{"A", rec}, RemoveStorageMarkers{}}, Target: phasePtr(mir.Analysis(mir.AnalysisInitial))},
	}
	tcx := NewTyCtxt(&Session{OptLevel: 1, ValidateMir: true}, nil)
	runner := quietRunner(WithWorkers(4), WithRunIDGenerator(NewFixedGenerator("run-1")))

	err := runner.RunBodies(context.Background(), tcx, bodies, steps)
	require.NoError(t, err)
	assert.Len(t, rec.runs, 32)
	for _, b := range bodies {
		assert.Equal(t, mir.Analysis(mir.AnalysisInitial), b.Phase)
		assert.True(t, b.Block(0).Statements[0].IsNop())
	}
	assert.Equal(t, uint64(32), runner.Metrics().GetOrCreateCounter(`mir_bodies_processed_total`).Get())
}

// TestRunBodies_Error tests that one broken body fails the run and names
// the body once.
func TestRunBodies_Error(t *testing.T) {
	bodies := []*mir.Body{
		newBody("good", diamondBlocks(), i32()),
		newBody("bad", []mir.BasicBlockData{block(mir.Goto{Target: 7})}),
	}
	tcx := NewTyCtxt(&Session{ValidateMir: true}, nil)
	steps := []PhaseStep{{Passes: []MirPass{SimplifyGoto{}}}}

	err := quietRunner(WithWorkers(1)).RunBodies(context.Background(), tcx, bodies, steps)
	require.Error(t, err)
	assert.True(t, IsInvalidMir(err))
	assert.True(t, strings.HasPrefix(err.Error(), "broken MIR in bad ("), err.Error())
	assert.NotContains(t, err.Error(), "bad: broken MIR")
}

// TestRunBodies_CancelledNamesBody tests that other errors are prefixed
// with the body they stopped.
func TestRunBodies_CancelledNamesBody(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bodies := []*mir.Body{newBody("first", diamondBlocks(), i32())}
	steps := []PhaseStep{{Passes: []MirPass{SimplifyGoto{}}}}

	err := quietRunner(WithWorkers(1)).RunBodies(ctx, NewTyCtxt(nil, nil), bodies, steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "first: ")
}

// TestFixedGenerator tests the deterministic run ID source.
func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })

	id := UUIDv7Generator{}.Generate()
	assert.Len(t, id, 36)
	assert.Equal(t, byte('7'), id[14])
}
