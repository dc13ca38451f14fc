package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mirkit/internal/mir"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Consts bool
}

// DumpedBody is one entry of the dump command's JSON payload.
type DumpedBody struct {
	Name  string `json:"name"`
	Phase string `json:"phase"`
	MIR   string `json:"mir"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <fixture> [body...]",
		Short: "Print fixture bodies as built",
		Long: `Print the MIR of fixture bodies without running any passes.

Without body names every fn body is printed; --consts adds the const
bodies.

Examples:
  mirkit dump ./bodies.yaml
  mirkit dump ./bodies.yaml main helper
  mirkit dump ./bodies.yaml --consts --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Consts, "consts", false, "include const bodies")

	return cmd
}

func runDump(opts *DumpOptions, fixturePath string, names []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	fx, _, bodies, err := loadInputs(formatter, fixturePath, "", names)
	if err != nil {
		return err
	}
	if opts.Consts && len(names) == 0 {
		bodies = append(bodies[:len(bodies):len(bodies)], fx.Consts...)
	}

	if opts.Format == "json" {
		dumped := make([]DumpedBody, len(bodies))
		for i, body := range bodies {
			dumped[i] = DumpedBody{
				Name:  body.Source.String(),
				Phase: body.Phase.String(),
				MIR:   mir.FormatMirFn(body),
			}
		}
		return formatter.Success(dumped)
	}

	texts := make([]string, len(bodies))
	for i, body := range bodies {
		texts[i] = mir.FormatMirFn(body)
	}
	return formatter.Success(strings.TrimSuffix(strings.Join(texts, "\n"), "\n"))
}
