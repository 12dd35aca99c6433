package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/shopsync/internal/engine"
)

// BeginRun inserts a run record with status running.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a second BeginRun with
// the same id is silently ignored.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	kinds, err := marshalKinds(run.Kinds)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	opts, err := marshalOptions(run.Options)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, command, source, target, kinds, options, dry_run, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Command,
		run.Source,
		run.Target,
		kinds,
		opts,
		run.DryRun,
		StatusRunning,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run. The status is derived from
// the counters: any failed item marks the run failed_items.
func (s *Store) FinishRun(ctx context.Context, id string, summary engine.Result, finishedAt time.Time) error {
	data, err := marshalSummary(summary)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	status := StatusCompleted
	if summary.Failed > 0 {
		status = StatusFailedItems
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, summary = ?, finished_at = ?
		WHERE id = ?
	`, status, data, formatTime(finishedAt), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// WriteMutation appends one mutation attempt to a run.
// Uses ON CONFLICT DO NOTHING for idempotency on (run_id, seq).
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteMutation(ctx context.Context, runID string, m engine.MutationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mutations
		(run_id, seq, op, kind, natural_key, outcome, downgraded, fingerprint, error, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		m.Seq,
		m.Op,
		m.Kind,
		m.NaturalKey,
		m.Outcome,
		m.Downgraded,
		m.Fingerprint,
		m.Error,
		formatTime(m.At),
	)
	if err != nil {
		return fmt.Errorf("write mutation: %w", err)
	}
	return nil
}

// RunRecorder journals the mutations of one run. It implements
// engine.Recorder. Write failures are logged and counted; they never fail
// the mutation being recorded.
type RunRecorder struct {
	store  *Store
	runID  string
	logger *slog.Logger

	mu       sync.Mutex
	failures int
	firstErr error
}

// Recorder returns a recorder bound to runID. A nil logger discards
// failure logs.
func (s *Store) Recorder(runID string, logger *slog.Logger) *RunRecorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RunRecorder{store: s, runID: runID, logger: logger}
}

// RecordMutation implements engine.Recorder.
func (r *RunRecorder) RecordMutation(ctx context.Context, m engine.MutationRecord) {
	if err := r.store.WriteMutation(ctx, r.runID, m); err != nil {
		r.mu.Lock()
		r.failures++
		if r.firstErr == nil {
			r.firstErr = err
		}
		r.mu.Unlock()
		r.logger.Warn("journal write failed", "run", r.runID, "seq", m.Seq, "error", err)
	}
}

// Err returns the first journal write failure, if any.
func (r *RunRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firstErr == nil {
		return nil
	}
	return fmt.Errorf("%d journal writes failed: %w", r.failures, r.firstErr)
}
