package store

import (
	"time"

	"github.com/roach88/shopsync/internal/engine"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"

	// StatusFailedItems marks a run that completed with at least one
	// failed item.
	StatusFailedItems = "failed_items"
)

// Run is one journaled sync or delete invocation.
type Run struct {
	ID      string
	Command string
	Source  string
	Target  string
	Kinds   []string

	// Options holds the effective flags, rendered as strings.
	Options map[string]string

	DryRun     bool
	Status     string
	Summary    engine.Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Finished reports whether the run recorded its final counters.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Mutation is one journaled write attempt.
type Mutation struct {
	RunID string
	engine.MutationRecord
}
