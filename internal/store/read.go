package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, command, source, target, kinds, options, dry_run, status, summary, started_at, finished_at`

// ReadRun retrieves a single run by id.
// Returns ErrRunNotFound if the id is unknown.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
//
// Returns an empty slice (not nil) if the journal holds no runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id COLLATE BINARY DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadMutations returns the mutation attempts of a run ordered by seq.
// When outcome is non-empty only attempts with that outcome are returned.
//
// Returns an empty slice (not nil) if no records match.
func (s *Store) ReadMutations(ctx context.Context, runID, outcome string) ([]Mutation, error) {
	query := `
		SELECT run_id, seq, op, kind, natural_key, outcome, downgraded, fingerprint, error, at
		FROM mutations
		WHERE run_id = ?`
	args := []any{runID}
	if outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, outcome)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	out := []Mutation{}
	for rows.Next() {
		var (
			m  Mutation
			at string
		)
		if err := rows.Scan(&m.RunID, &m.Seq, &m.Op, &m.Kind, &m.NaturalKey, &m.Outcome,
			&m.Downgraded, &m.Fingerprint, &m.Error, &at); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		if m.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                  Run
		kinds, opts, summary string
		startedAt            string
		finishedAt           sql.NullString
	)
	err := row.Scan(&run.ID, &run.Command, &run.Source, &run.Target, &kinds, &opts,
		&run.DryRun, &run.Status, &summary, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.Kinds, err = unmarshalKinds(kinds); err != nil {
		return Run{}, err
	}
	if run.Options, err = unmarshalOptions(opts); err != nil {
		return Run{}, err
	}
	if run.Summary, err = unmarshalSummary(summary); err != nil {
		return Run{}, err
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, err
	}
	if finishedAt.Valid {
		if run.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return Run{}, err
		}
	}
	return run, nil
}
