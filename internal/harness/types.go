package harness

import "github.com/roach88/shopsync/internal/engine"

// TraceEvent is one write received by the target deployment.
type TraceEvent struct {
	Seq int64  `json:"seq"`
	Run string `json:"run"`
	Op  string `json:"op"`
	Key string `json:"key"`

	// Values summarizes the payload: field values as "key=value", rules as
	// "name=value", field specs as "key:type".
	Values []string `json:"values,omitempty"`
}

// Ref returns the op and key of the event.
func (e TraceEvent) Ref() WriteRef {
	return WriteRef{Op: e.Op, Key: e.Key}
}

// RunSummary is the outcome of one scenario run.
type RunSummary struct {
	ID      string        `json:"id"`
	Command string        `json:"command"`
	Summary engine.Result `json:"summary"`
	Err     string        `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every run expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all target writes in order.
	Trace []TraceEvent `json:"trace"`

	Runs []RunSummary `json:"runs"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Runs:   []RunSummary{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
