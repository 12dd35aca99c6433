package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shopsync/internal/engine"
	"github.com/roach88/shopsync/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit   int
	Outcome string
}

// RunEntry is one journaled run as reported by the history command.
type RunEntry struct {
	ID         string            `json:"id"`
	Command    string            `json:"command"`
	Source     string            `json:"source,omitempty"`
	Target     string            `json:"target"`
	Kinds      []string          `json:"kinds"`
	Options    map[string]string `json:"options,omitempty"`
	DryRun     bool              `json:"dry_run"`
	Status     string            `json:"status"`
	Summary    engine.Result     `json:"summary"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// MutationEntry is one journaled write attempt.
type MutationEntry struct {
	Seq        int64     `json:"seq"`
	Op         string    `json:"op"`
	Kind       string    `json:"kind"`
	Key        string    `json:"key"`
	Outcome    string    `json:"outcome"`
	Downgraded bool      `json:"downgraded,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// RunDetail is the JSON payload of `history <run-id>`.
type RunDetail struct {
	Run       RunEntry        `json:"run"`
	Mutations []MutationEntry `json:"mutations"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show journaled runs",
		Long: `Without arguments, list recent runs newest first. With a run id, show
that run and every write it attempted.

A run whose status is still "running" was interrupted before it finished.

Examples:
  shopsync history
  shopsync history --limit 5 --format json
  shopsync history 01HZX3J8Q6W2N5V0R4T7Y9B1CD --outcome failed`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistoryShow(opts, args[0], cmd)
			}
			return runHistoryList(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs listed (0 = all)")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only writes with this outcome (ok|failed|rejected|dry_run)")

	return cmd
}

func (o *HistoryOptions) openJournal() (*store.Store, error) {
	if o.NoJournal {
		return nil, NewExitError(ExitCommandError, "journal disabled by --no-journal")
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := o.journalPath(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "locate journal", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open journal", err)
	}
	return st, nil
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	st, err := opts.openJournal()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "read journal", err)
	}

	entries := make([]RunEntry, 0, len(runs))
	for _, r := range runs {
		entries = append(entries, runEntry(r))
	}
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tCOMMAND\tSHOPS\tKINDS\tSTATUS\tRESULT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.StartedAt.UTC().Format(time.RFC3339), e.Command, shops(e),
			strings.Join(e.Kinds, ","), status(e), formatResult(e.Summary))
	}
	return tw.Flush()
}

func runHistoryShow(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	st, err := opts.openJournal()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "read journal", err)
	}
	mutations, err := st.ReadMutations(ctx, id, opts.Outcome)
	if err != nil {
		return WrapExitError(ExitCommandError, "read journal", err)
	}

	detail := RunDetail{Run: runEntry(run), Mutations: make([]MutationEntry, 0, len(mutations))}
	for _, m := range mutations {
		detail.Mutations = append(detail.Mutations, MutationEntry{
			Seq:        m.Seq,
			Op:         m.Op,
			Kind:       m.Kind,
			Key:        m.NaturalKey,
			Outcome:    m.Outcome,
			Downgraded: m.Downgraded,
			Error:      m.Error,
			At:         m.At,
		})
	}
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(detail)
	}
	writeRunDetail(cmd.OutOrStdout(), detail)
	return nil
}

func writeRunDetail(w io.Writer, d RunDetail) {
	r := d.Run
	fmt.Fprintf(w, "run %s\n", r.ID)
	fmt.Fprintf(w, "  command:  %s %s %s\n", r.Command, shops(r), strings.Join(r.Kinds, " "))
	fmt.Fprintf(w, "  status:   %s\n", status(r))
	fmt.Fprintf(w, "  started:  %s\n", r.StartedAt.UTC().Format(time.RFC3339))
	if r.FinishedAt != nil {
		fmt.Fprintf(w, "  finished: %s\n", r.FinishedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  result:   %s\n", formatResult(r.Summary))

	if len(d.Mutations) == 0 {
		fmt.Fprintln(w, "\nno writes recorded")
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tOP\tKIND\tKEY\tOUTCOME\tERROR")
	for _, m := range d.Mutations {
		outcome := m.Outcome
		if m.Downgraded {
			outcome += " (unpinned)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", m.Seq, m.Op, m.Kind, m.Key, outcome, m.Error)
	}
	tw.Flush()
}

func runEntry(r store.Run) RunEntry {
	e := RunEntry{
		ID:        r.ID,
		Command:   r.Command,
		Source:    r.Source,
		Target:    r.Target,
		Kinds:     r.Kinds,
		Options:   r.Options,
		DryRun:    r.DryRun,
		Status:    r.Status,
		Summary:   r.Summary,
		StartedAt: r.StartedAt,
	}
	if e.Kinds == nil {
		e.Kinds = []string{}
	}
	if r.Finished() {
		finished := r.FinishedAt
		e.FinishedAt = &finished
	}
	return e
}

func shops(e RunEntry) string {
	if e.Source == "" || e.Source == e.Target {
		return e.Target
	}
	return e.Source + "->" + e.Target
}

func status(e RunEntry) string {
	s := e.Status
	if e.DryRun {
		s += " (dry run)"
	}
	return s
}
