package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/shopsync/internal/config"
	"github.com/roach88/shopsync/internal/engine"
	"github.com/roach88/shopsync/internal/orchestrator"
	"github.com/roach88/shopsync/internal/store"
)

// session is the per-invocation wiring shared by sync and delete.
type session struct {
	logger  *slog.Logger
	cfg     *config.Config
	journal *store.Store
}

func (o *RootOptions) openSession(cmd *cobra.Command) (*session, error) {
	s := &session{logger: o.logger(cmd)}
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	s.cfg = cfg

	path, err := o.journalPath(cfg)
	if err != nil {
		s.logger.Warn("journal disabled", "error", err)
		return s, nil
	}
	if path == "" {
		return s, nil
	}
	st, err := store.Open(path)
	if err != nil {
		s.logger.Warn("journal unavailable, run not recorded", "path", path, "error", err)
		return s, nil
	}
	s.journal = st
	return s, nil
}

func (s *session) close() {
	if s.journal == nil {
		return
	}
	if err := s.journal.Close(); err != nil {
		s.logger.Warn("error closing journal", "error", err)
	}
}

// orchestrator builds an orchestrator with the session's journal.
func (o *RootOptions) orchestrator(s *session, source, target string) (*orchestrator.Orchestrator, error) {
	src, err := o.remoteFor(s.cfg, source, s.logger)
	if err != nil {
		return nil, err
	}
	dst, err := o.remoteFor(s.cfg, target, s.logger)
	if err != nil {
		return nil, err
	}
	opts := []orchestrator.Option{orchestrator.WithLogger(s.logger)}
	if s.journal != nil {
		opts = append(opts, orchestrator.WithJournal(s.journal))
	}
	if o.ids != nil {
		opts = append(opts, orchestrator.WithRunIDGenerator(o.ids))
	}
	if o.now != nil {
		opts = append(opts, orchestrator.WithNow(o.now))
	}
	return orchestrator.New(src, dst, opts...), nil
}

// signalContext derives a context cancelled by SIGINT or SIGTERM. Passes
// observe cancellation between items, so an interrupted run still reports
// and journals what it did.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, stopping after the current item", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// RunOutput is the JSON payload of sync and delete.
type RunOutput struct {
	RunID   string         `json:"run_id"`
	DryRun  bool           `json:"dry_run"`
	Summary engine.Result  `json:"summary"`
	Report  *engine.Report `json:"report"`
	Journal string         `json:"journal_error,omitempty"`
}

// finishRun prints the outcome and maps failed items to ExitFailure.
func (o *RootOptions) finishRun(cmd *cobra.Command, out *orchestrator.Outcome, dryRun bool) error {
	f := o.formatter(cmd)
	summary := out.Summary()
	payload := RunOutput{RunID: out.RunID, DryRun: dryRun, Summary: summary, Report: out.Report}
	if out.JournalErr != nil {
		payload.Journal = out.JournalErr.Error()
	}

	if o.Format == "json" {
		status := "ok"
		if summary.Failed > 0 {
			status = "error"
		}
		if err := f.JSON(CLIResponse{Status: status, Data: payload, RunID: out.RunID}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		writeReport(w, out.Report)
		fmt.Fprintf(w, "\nrun %s\n", out.RunID)
		if dryRun {
			fmt.Fprintln(w, "dry run: no changes were made")
		}
		if out.JournalErr != nil {
			fmt.Fprintf(w, "journal incomplete: %v\n", out.JournalErr)
		}
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d item(s) failed", summary.Failed))
	}
	return nil
}

// optionsError maps orchestrator option errors to command errors.
func optionsError(err error) error {
	if errors.Is(err, orchestrator.ErrInvalidOptions) || errors.Is(err, orchestrator.ErrUnknownKind) {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}
	return err
}

// writeReport renders the report tree, one node per line, children
// indented under their parent.
func writeReport(w io.Writer, r *engine.Report) {
	r.Walk(func(depth int, node *engine.Report) {
		sum := node.Sum()
		fmt.Fprintf(w, "%s%s: %s\n", strings.Repeat("  ", depth), node.Name, formatResult(sum))
	})
}

func formatResult(r engine.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "created=%d updated=%d skipped=%d failed=%d", r.Created, r.Updated, r.Skipped, r.Failed)
	if r.Deleted > 0 {
		fmt.Fprintf(&b, " deleted=%d", r.Deleted)
	}
	if refs := r.References; refs.Processed > 0 || refs.Errors > 0 {
		fmt.Fprintf(&b, " references=%d (transformed=%d blanked=%d errors=%d warnings=%d)",
			refs.Processed, refs.Transformed, refs.Blanked, refs.Errors, refs.Warnings)
	}
	return b.String()
}
