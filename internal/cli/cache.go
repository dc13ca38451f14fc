package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/mirkit/internal/mir"
	"github.com/roach88/mirkit/internal/store"
)

// CacheOptions holds flags shared by the cache subcommands.
type CacheOptions struct {
	*RootOptions
	Channel  string
	Phase    string
	Promoted int
}

// CacheEntry is the JSON form of a cached body.
type CacheEntry struct {
	Body        string `json:"body"`
	DefID       string `json:"def_id"`
	Phase       string `json:"phase"`
	Channel     string `json:"channel"`
	Fingerprint string `json:"fingerprint"`
	RawSize     int    `json:"raw_size"`
	StoredSize  int    `json:"stored_size"`
	Seq         int64  `json:"seq"`
}

func newCacheEntry(e store.Entry) CacheEntry {
	def := e.Source.DefID()
	return CacheEntry{
		Body:        e.Source.String(),
		DefID:       fmt.Sprintf("%d:%d", def.Crate, def.Index),
		Phase:       e.Phase.String(),
		Channel:     string(e.Channel),
		Fingerprint: fmt.Sprintf("%016x", e.Fingerprint),
		RawSize:     e.RawSize,
		StoredSize:  e.StoredSize,
		Seq:         e.Seq,
	}
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit a SQLite body cache",
		Long: `Store, list, load and delete encoded MIR bodies.

Bodies are keyed by def id, promoted index, channel and phase. The
incremental channel keeps crate-local data; the metadata channel clears
it. Def ids are written "index" or "crate:index".

Examples:
  mirkit cache put ./mir.db ./bodies.yaml
  mirkit cache list ./mir.db --channel metadata
  mirkit cache get ./mir.db 0:1 --phase runtime-optimized
  mirkit cache delete ./mir.db 1`,
	}

	cmd.PersistentFlags().StringVar(&opts.Channel, "channel", string(store.Incremental), "cache channel (incremental|metadata)")

	cmd.AddCommand(newCachePutCommand(opts))
	cmd.AddCommand(newCacheListCommand(opts))
	cmd.AddCommand(newCacheGetCommand(opts))
	cmd.AddCommand(newCacheDeleteCommand(opts))

	return cmd
}

// withCache parses the channel, opens the cache at path and hands both
// to fn.
func withCache(opts *CacheOptions, f *OutputFormatter, path string, fn func(*store.Store, store.Channel) error) error {
	channel, err := store.ParseChannel(opts.Channel)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeCache, err.Error(), map[string]string{"path": path})
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing body cache", "error", closeErr)
		}
	}()
	return fn(st, channel)
}

func newCachePutCommand(opts *CacheOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "put <db> <fixture> [body...]",
		Short:         "Store fixture bodies as built",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			fx, _, bodies, err := loadInputs(f, args[1], "", args[2:])
			if err != nil {
				return err
			}
			if len(args) == 2 {
				bodies = append(bodies[:len(bodies):len(bodies)], fx.Consts...)
			}

			return withCache(opts, f, args[0], func(st *store.Store, ch store.Channel) error {
				entries := make([]CacheEntry, 0, len(bodies))
				written := 0
				for _, body := range bodies {
					entry, changed, err := st.PutBody(cmd.Context(), ch, body)
					if err != nil {
						return f.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
					}
					if changed {
						written++
					}
					entries = append(entries, newCacheEntry(entry))
				}
				if opts.Format == "json" {
					return f.Success(entries)
				}
				return f.Success(fmt.Sprintf("stored %d bodies (%d unchanged)", written, len(bodies)-written))
			})
		},
	}
}

func newCacheListCommand(opts *CacheOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <db>",
		Short:         "List cached bodies in write order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			return withCache(opts, f, args[0], func(st *store.Store, ch store.Channel) error {
				entries, err := st.List(cmd.Context(), ch)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
				}
				out := make([]CacheEntry, len(entries))
				for i, e := range entries {
					out[i] = newCacheEntry(e)
				}
				if opts.Format == "json" {
					return f.Success(out)
				}
				if len(out) == 0 {
					return f.Success("no bodies cached")
				}
				return f.Success(renderCacheTable(out))
			})
		},
	}
}

// renderCacheTable lays entries out one per row.
func renderCacheTable(entries []CacheEntry) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Seq", "Def", "Body", "Phase", "Fingerprint", "Size"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
	})

	var stored, raw int
	for _, e := range entries {
		table.Append([]string{
			fmt.Sprintf("%d", e.Seq), e.DefID, e.Body, e.Phase, e.Fingerprint,
			fmt.Sprintf("%d/%d", e.StoredSize, e.RawSize),
		})
		stored += e.StoredSize
		raw += e.RawSize
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d bodies", len(entries)), "", "", fmt.Sprintf("%d/%d", stored, raw)})

	table.Render()
	return strings.TrimRight(buf.String(), "\n")
}

func newCacheGetCommand(opts *CacheOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <db> <def-id>",
		Short:         "Print a cached body",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			src, err := cacheSource(opts, args[1])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
			}
			phase, err := mir.ParsePhaseName(opts.Phase)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
			}

			return withCache(opts, f, args[0], func(st *store.Store, ch store.Channel) error {
				body, err := st.GetBody(cmd.Context(), ch, src, phase)
				switch {
				case errors.Is(err, store.ErrNotFound):
					return f.Fail(ExitFailure, ErrCodeNotFound, err.Error(), nil)
				case err != nil:
					return f.Fail(ExitFailure, ErrCodeCache, err.Error(), nil)
				}
				if opts.Format == "json" {
					return f.Success(DumpedBody{
						Name:  body.Source.String(),
						Phase: body.Phase.String(),
						MIR:   mir.FormatMirFn(body),
					})
				}
				return f.Success(strings.TrimSuffix(mir.FormatMirFn(body), "\n"))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Phase, "phase", "built", "phase the body was cached at")
	cmd.Flags().IntVar(&opts.Promoted, "promoted", -1, "promoted index (-1 for the item itself)")

	return cmd
}

func newCacheDeleteCommand(opts *CacheOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <db> <def-id>",
		Short:         "Delete every phase of a cached body",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(opts.RootOptions, cmd)
			src, err := cacheSource(opts, args[1])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
			}

			return withCache(opts, f, args[0], func(st *store.Store, ch store.Channel) error {
				n, err := st.Delete(cmd.Context(), ch, src)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
				}
				if opts.Format == "json" {
					return f.Success(map[string]int64{"deleted": n})
				}
				return f.Success(fmt.Sprintf("deleted %d entries", n))
			})
		},
	}

	cmd.Flags().IntVar(&opts.Promoted, "promoted", -1, "promoted index (-1 for the item itself)")

	return cmd
}

// cacheSource builds the key for a def id and the --promoted flag. Only
// the def id and promoted index take part in cache keys.
func cacheSource(opts *CacheOptions, defID string) (mir.MirSource, error) {
	def, err := parseDefID(defID)
	if err != nil {
		return mir.MirSource{}, err
	}
	src := mir.MirSourceItem(def, "")
	if opts.Promoted >= 0 {
		p := mir.Promoted(opts.Promoted)
		src.Promoted = &p
	}
	return src, nil
}
