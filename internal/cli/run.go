package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/mirkit/internal/mir"
	"github.com/roach88/mirkit/internal/store"
	"github.com/roach88/mirkit/internal/transform"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Pipeline string
	Bodies   []string
	Workers  int
	DumpMir  string
	Metrics  string
	Cache    string
	Channel  string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs transform.RunIDGenerator
}

// BodySummary describes one body after a run.
type BodySummary struct {
	Name      string `json:"name"`
	Phase     string `json:"phase"`
	Blocks    int    `json:"blocks"`
	Locals    int    `json:"locals"`
	PassCount int    `json:"pass_count"`
	Tainted   bool   `json:"tainted,omitempty"`
	Cached    *bool  `json:"cached,omitempty"`
}

// RunSummary is the JSON payload of the run command.
type RunSummary struct {
	Bodies   []BodySummary `json:"bodies"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	MIR      []string      `json:"mir,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <fixture>",
		Short: "Run a pass pipeline over fixture bodies",
		Long: `Run a pass pipeline over the fn bodies of a fixture and print the result.

Without --pipeline the built-in pipeline runs every body to
runtime-optimized. Diagnostics are written to stderr. With --cache the
resulting bodies are stored in a SQLite body cache.

Exit codes:
  0 - Pipeline completed without errors
  1 - Broken MIR or error diagnostics
  2 - Command error (bad fixture, pipeline or cache path)

Examples:
  mirkit run ./bodies.yaml
  mirkit run ./bodies.yaml --pipeline ./cleanup.cue --body main
  mirkit run ./bodies.yaml --dump-mir all 2>dump.txt
  mirkit run ./bodies.yaml --cache ./mir.db --channel metadata`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "path to a CUE pipeline (default: built-in)")
	cmd.Flags().StringSliceVar(&opts.Bodies, "body", nil, "run only the named bodies")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "bodies to run at once (default: GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.DumpMir, "dump-mir", "", `dump MIR around passes to stderr ("all" or pass names)`)
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", `write pass metrics in Prometheus format to a file ("-" for stderr)`)
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to a SQLite body cache to store results in")
	cmd.Flags().StringVar(&opts.Channel, "channel", string(store.Incremental), "cache channel (incremental|metadata)")

	return cmd
}

func runPipeline(opts *RunOptions, fixturePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	channel, err := store.ParseChannel(opts.Channel)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}

	fx, pipeline, bodies, err := loadInputs(formatter, fixturePath, opts.Pipeline, opts.Bodies)
	if err != nil {
		return err
	}
	sess := pipeline.Session
	if opts.DumpMir != "" {
		sess.DumpMir = opts.DumpMir
	}

	var st *store.Store
	if opts.Cache != "" {
		slog.Debug("opening body cache", "path", opts.Cache)
		if st, err = store.Open(opts.Cache); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), map[string]string{"path": opts.Cache})
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing body cache", "error", closeErr)
			}
		}()
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = transform.UUIDv7Generator{}
	}
	runID := runIDs.Generate()
	formatter.RunID = runID

	workers := opts.Workers
	if sess.DumpMir != "" {
		// Dumps interleave by body otherwise.
		workers = 1
	}
	runner := transform.NewRunner(
		transform.WithRunIDGenerator(transform.NewFixedGenerator(runID)),
		transform.WithWorkers(workers),
		transform.WithDumpWriter(formatter.GetErrWriter()),
	)
	tcx := transform.NewTyCtxt(&sess, fx.Evaluator())
	transform.WarnUnknownOverrides(tcx)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter.VerboseLog("running %d bodies (run %s)", len(bodies), runID)
	runErr := runner.RunBodies(ctx, tcx, bodies, pipeline.Steps())

	if len(tcx.Diag.Diagnostics()) > 0 {
		if _, err := tcx.Diag.WriteTo(formatter.GetErrWriter()); err != nil {
			slog.Warn("failed to write diagnostics", "error", err)
		}
	}
	if err := writeMetrics(opts.Metrics, runner, formatter); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), map[string]string{"path": opts.Metrics})
	}

	if runErr != nil {
		code := ErrCodeGeneric
		if transform.IsInvalidMir(runErr) {
			code = ErrCodeInvalidMir
		}
		return formatter.Fail(ExitFailure, code, runErr.Error(), nil)
	}

	summary := RunSummary{
		Bodies:   make([]BodySummary, len(bodies)),
		Errors:   tcx.Diag.ErrorCount(),
		Warnings: tcx.Diag.WarningCount(),
	}
	for i, body := range bodies {
		summary.Bodies[i] = BodySummary{
			Name:      body.Source.String(),
			Phase:     body.Phase.String(),
			Blocks:    body.BasicBlocks.Len(),
			Locals:    len(body.LocalDecls),
			PassCount: body.PassCount,
			Tainted:   body.TaintedByErrors != nil,
		}
		if st != nil {
			entry, changed, err := st.PutBody(ctx, channel, body)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
			}
			summary.Bodies[i].Cached = &changed
			slog.Debug("body cached", "body", body.Source, "seq", entry.Seq, "changed", changed)
		}
	}

	if summary.Errors > 0 {
		return formatter.Fail(ExitFailure, ErrCodeDiagnostic,
			fmt.Sprintf("%d error(s) reported", summary.Errors), summary)
	}

	if opts.Format == "json" {
		summary.MIR = make([]string, len(bodies))
		for i, body := range bodies {
			summary.MIR[i] = mir.FormatMirFn(body)
		}
		return formatter.Success(summary)
	}

	texts := make([]string, len(bodies))
	for i, body := range bodies {
		texts[i] = mir.FormatMirFn(body)
	}
	return formatter.Success(strings.TrimSuffix(strings.Join(texts, "\n"), "\n"))
}

// writeMetrics writes the runner's metrics to path, "-" meaning the
// error writer. An empty path writes nothing.
func writeMetrics(path string, runner *transform.Runner, f *OutputFormatter) error {
	switch path {
	case "":
		return nil
	case "-":
		runner.Metrics().WritePrometheus(f.GetErrWriter())
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	runner.Metrics().WritePrometheus(file)
	return file.Close()
}
