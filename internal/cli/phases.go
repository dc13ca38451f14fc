package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mirkit/internal/mir"
	"github.com/roach88/mirkit/internal/transform"
)

// PhaseInfo describes one MIR phase.
type PhaseInfo struct {
	Name    string `json:"name"`
	Dialect string `json:"dialect"`
	Index   int    `json:"index"`
}

// PassInfo describes one built-in pass.
type PassInfo struct {
	Name         string `json:"name"`
	ProfilerName string `json:"profiler_name"`
}

// NewPhasesCommand creates the phases command.
func NewPhasesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phases [name...]",
		Short: "List MIR phases or normalize phase names",
		Long: `List every MIR phase in order, or parse the given names.

Names have the form <dialect>[-<phase>], case-insensitive; the phase part
may be written post-cleanup, post_cleanup or postcleanup.

Examples:
  mirkit phases
  mirkit phases runtime Analysis-Post_Cleanup`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhases(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runPhases(opts *RootOptions, names []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	phases := mir.AllPhases()
	if len(names) > 0 {
		phases = make([]mir.MirPhase, 0, len(names))
		for _, name := range names {
			p, err := mir.ParsePhaseName(name)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), map[string]string{"name": name})
			}
			phases = append(phases, p)
		}
	}

	infos := make([]PhaseInfo, len(phases))
	for i, p := range phases {
		infos[i] = PhaseInfo{Name: p.String(), Dialect: p.Dialect().String(), Index: p.PhaseIndex()}
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}
	var b strings.Builder
	for i, info := range infos {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d  %s", info.Index, info.Name)
	}
	return formatter.Success(b.String())
}

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "passes",
		Short:         "List built-in passes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			names := transform.PassNames()
			infos := make([]PassInfo, len(names))
			for i, name := range names {
				pass, _ := transform.LookupPass(name)
				infos[i] = PassInfo{Name: name, ProfilerName: transform.ProfilerName(pass)}
			}

			if rootOpts.Format == "json" {
				return formatter.Success(infos)
			}
			lines := make([]string, len(infos))
			for i, info := range infos {
				lines[i] = fmt.Sprintf("%-24s %s", info.Name, info.ProfilerName)
			}
			return formatter.Success(strings.Join(lines, "\n"))
		},
	}
}
