package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/shopsync/internal/engine"
	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/orchestrator"
	"github.com/roach88/shopsync/internal/remote"
	"github.com/roach88/shopsync/internal/store"
)

// Harness executes one scenario. It owns the two deployments and the
// journal for the duration of the run.
type Harness struct {
	scenario *Scenario
	source   *remote.Memory
	target   *remote.Memory
	journal  *store.Store
	orch     *orchestrator.Orchestrator
	seq      int64
}

// Option configures a Harness.
type Option func(*harnessConfig)

type harnessConfig struct {
	logger *slog.Logger
}

// WithLogger sends run logs to l instead of discarding them.
func WithLogger(l *slog.Logger) Option {
	return func(c *harnessConfig) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Expectation and assertion failures are reported in Result.Errors; the
// error return is reserved for scenarios that cannot be executed.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h, err := newHarness(scenario, opts...)
	if err != nil {
		return nil, err
	}
	defer h.journal.Close()
	return h.execute(ctx)
}

func newHarness(scenario *Scenario, opts ...Option) (*Harness, error) {
	cfg := harnessConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	now, err := scenario.now()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	source := seed(SideSource, scenario.Source)
	target := seed(SideTarget, scenario.Target)
	for _, f := range scenario.Failures {
		m := target
		if f.Side == SideSource {
			m = source
		}
		injectFailure(m, f)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	ids := make([]string, len(scenario.Runs))
	for i := range ids {
		ids[i] = fmt.Sprintf("run-%d", i+1)
	}
	orch := orchestrator.New(source, target,
		orchestrator.WithJournal(st),
		orchestrator.WithRunIDGenerator(engine.NewFixedGenerator(ids...)),
		orchestrator.WithNow(func() time.Time { return now }),
		orchestrator.WithLogger(cfg.logger),
	)

	return &Harness{
		scenario: scenario,
		source:   source,
		target:   target,
		journal:  st,
		orch:     orch,
	}, nil
}

// seed builds a deployment from its scenario description. Files are stored
// first so that ids assigned to them do not depend on the other seeds.
func seed(name string, d Deployment) *remote.Memory {
	opts := []remote.MemoryOption{remote.WithPinLimit(d.PinLimit)}
	if d.PageSize > 0 {
		opts = append(opts, remote.WithPageSize(d.PageSize))
	}
	m := remote.NewMemory(name, opts...)
	for _, f := range d.Files {
		m.SeedFile(f)
	}
	for _, def := range d.Definitions {
		m.AddDefinition(def)
	}
	for _, e := range d.Entities {
		m.AddEntity(e)
	}
	return m
}

func injectFailure(m *remote.Memory, f Failure) {
	op := remote.Op(f.Op)
	if f.Code == "" {
		m.Fail(op, f.Key, errors.New(f.Message))
		return
	}
	m.Reject(op, f.Key, remote.UserError{Field: []string{"input"}, Message: f.Message, Code: f.Code})
}

func (h *Harness) execute(ctx context.Context) (*Result, error) {
	result := NewResult()

	for i, step := range h.scenario.Runs {
		h.target.ResetCalls()
		summary := h.runStep(ctx, step)
		if summary.ID == "" {
			summary.ID = fmt.Sprintf("run-%d", i+1)
		}
		result.Runs = append(result.Runs, summary)
		h.checkRun(result, i, step, summary)

		for _, call := range h.target.Writes() {
			h.seq++
			result.Trace = append(result.Trace, traceEvent(h.seq, summary.ID, call))
		}
	}

	for i, a := range h.scenario.Assertions {
		if err := h.evaluate(ctx, result.Trace, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func (h *Harness) runStep(ctx context.Context, step RunStep) RunSummary {
	opts := orchestrator.Options{
		Source:        SideSource,
		Target:        SideTarget,
		Kinds:         step.Kinds,
		Definitions:   step.Definitions,
		Data:          step.Data,
		Key:           step.Key,
		Handle:        step.Handle,
		Namespace:     step.Namespace,
		Types:         step.Types,
		ID:            step.ID,
		Limit:         step.Limit,
		DryRun:        step.DryRun,
		ForceRecreate: step.ForceRecreate,
		SkipUnchanged: step.SkipUnchanged,
	}

	var (
		outcome *orchestrator.Outcome
		err     error
	)
	switch step.Command {
	case CommandDelete:
		outcome, err = h.orch.Delete(ctx, opts)
	default:
		outcome, err = h.orch.Sync(ctx, opts)
	}

	summary := RunSummary{Command: step.Command}
	if err != nil {
		summary.Err = err.Error()
		return summary
	}
	summary.ID = outcome.RunID
	summary.Summary = outcome.Summary()
	return summary
}

func (h *Harness) checkRun(result *Result, index int, step RunStep, summary RunSummary) {
	switch {
	case step.Error != "":
		if !strings.Contains(summary.Err, step.Error) {
			result.AddError(fmt.Sprintf("runs[%d]: expected error containing %q, got %q", index, step.Error, summary.Err))
		}
		return
	case summary.Err != "":
		result.AddError(fmt.Sprintf("runs[%d]: unexpected error: %s", index, summary.Err))
		return
	}

	counters := countersOf(summary.Summary)
	for name, want := range step.Expect {
		if got := counters[name]; got != want {
			result.AddError(fmt.Sprintf("runs[%d]: %s = %d, expected %d", index, name, got, want))
		}
	}
}

func countersOf(r engine.Result) map[string]int {
	return map[string]int{
		"created":                r.Created,
		"updated":                r.Updated,
		"skipped":                r.Skipped,
		"failed":                 r.Failed,
		"deleted":                r.Deleted,
		"references_processed":   r.References.Processed,
		"references_transformed": r.References.Transformed,
		"references_blanked":     r.References.Blanked,
		"reference_errors":       r.References.Errors,
		"reference_warnings":     r.References.Warnings,
	}
}

// traceEvent summarizes one recorded target call.
func traceEvent(seq int64, runID string, c remote.Call) TraceEvent {
	ev := TraceEvent{Seq: seq, Run: runID, Op: string(c.Op), Key: c.Key}
	switch {
	case c.Definition != nil:
		ev.Values = definitionValues(c.Definition)
	case c.Update != nil:
		ev.Values = updateValues(c.Update)
	case c.Entity != nil:
		for _, f := range c.Entity.Fields {
			ev.Values = append(ev.Values, f.FieldKey()+"="+f.Value)
		}
	case len(c.Writes) > 0:
		for _, w := range c.Writes {
			ev.Values = append(ev.Values, w.OwnerID+" "+w.FieldKey()+"="+w.Value)
		}
	}
	return ev
}

func definitionValues(d *model.Definition) []string {
	var out []string
	if d.Pinned {
		out = append(out, "pinned")
	}
	for _, c := range d.Capabilities {
		out = append(out, "capability:"+string(c))
	}
	out = append(out, ruleValues("", d.Validations)...)
	for _, f := range d.Fields {
		out = append(out, f.Key+":"+string(f.Type))
		out = append(out, ruleValues(f.Key+".", f.Validations)...)
	}
	return out
}

func updateValues(u *remote.DefinitionUpdate) []string {
	var out []string
	if u.Pinned {
		out = append(out, "pinned")
	}
	for _, c := range u.Capabilities {
		out = append(out, "capability:"+string(c))
	}
	out = append(out, ruleValues("", u.Validations)...)
	for _, op := range u.FieldOps {
		if op.Create {
			out = append(out, "create "+op.Field.Key+":"+string(op.Field.Type))
		} else {
			out = append(out, "update "+op.Field.Key)
		}
		out = append(out, ruleValues(op.Field.Key+".", op.Field.Validations)...)
	}
	return out
}

func ruleValues(prefix string, rules []model.ValidationRule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, prefix+r.Name+"="+r.Value)
	}
	return out
}
