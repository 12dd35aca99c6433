package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/shopsync/internal/engine"
	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
	"github.com/roach88/shopsync/internal/store"
)

// Journal is the run journal the orchestrator writes to. *store.Store
// implements it.
type Journal interface {
	BeginRun(ctx context.Context, run store.Run) error
	FinishRun(ctx context.Context, id string, summary engine.Result, finishedAt time.Time) error
	Recorder(runID string, logger *slog.Logger) *store.RunRecorder
}

// Orchestrator runs sync and delete invocations between two deployments.
type Orchestrator struct {
	source  remote.Fetcher
	target  remote.Remote
	journal Journal
	ids     engine.RunIDGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJournal records every run and mutation attempt in j.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

// WithRunIDGenerator sets the run id generator.
func WithRunIDGenerator(g engine.RunIDGenerator) Option {
	return func(o *Orchestrator) {
		o.ids = g
	}
}

// WithNow sets the wall clock used for journal timestamps and date
// backfills.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an orchestrator reading from source and writing to target.
func New(source remote.Fetcher, target remote.Remote, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source: source,
		target: target,
		ids:    engine.UUIDv7Generator{},
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Outcome is the result of one invocation.
type Outcome struct {
	RunID  string
	Report *engine.Report

	// JournalErr reports journal failures. They never fail the run.
	JournalErr error
}

// Summary returns the summed counters of the whole run.
func (o *Outcome) Summary() engine.Result {
	return o.Report.Sum()
}

// run holds the per-invocation state shared by all passes.
type run struct {
	id       string
	exec     *engine.Executor
	recorder *store.RunRecorder
	scope    engine.Scope
	errs     []error
}

func (o *Orchestrator) begin(ctx context.Context, command string, opts Options, kinds []model.OwnerKind) *run {
	r := &run{id: o.ids.Generate()}
	r.scope = engine.NewScope(o.logger.With("run", r.id))

	execOpts := []engine.ExecutorOption{engine.WithDryRun(opts.DryRun), engine.WithNow(o.now)}
	if o.journal != nil {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.Name
		}
		err := o.journal.BeginRun(ctx, store.Run{
			ID:        r.id,
			Command:   command,
			Source:    opts.Source,
			Target:    opts.Target,
			Kinds:     names,
			Options:   opts.journalOptions(),
			DryRun:    opts.DryRun,
			StartedAt: o.now(),
		})
		if err != nil {
			r.scope.Warn("journal unavailable, run not recorded", "error", err)
			r.errs = append(r.errs, err)
		} else {
			r.recorder = o.journal.Recorder(r.id, o.logger)
			execOpts = append(execOpts, engine.WithRecorder(r.recorder))
		}
	}
	r.exec = engine.NewExecutor(o.target, execOpts...)
	return r
}

func (o *Orchestrator) finish(ctx context.Context, r *run, report *engine.Report) *Outcome {
	summary := report.Sum()
	if r.recorder != nil {
		if err := r.recorder.Err(); err != nil {
			r.errs = append(r.errs, err)
		}
		if err := o.journal.FinishRun(ctx, r.id, summary, o.now()); err != nil {
			r.scope.Warn("journal finish failed", "error", err)
			r.errs = append(r.errs, err)
		}
	}
	r.scope.Info("run finished",
		"created", summary.Created, "updated", summary.Updated, "skipped", summary.Skipped,
		"failed", summary.Failed, "deleted", summary.Deleted,
		"reference_errors", summary.References.Errors)
	return &Outcome{RunID: r.id, Report: report, JournalErr: errors.Join(r.errs...)}
}

// Sync reconciles the selected kinds. Only option errors are returned;
// item failures are counted in the report.
func (o *Orchestrator) Sync(ctx context.Context, opts Options) (*Outcome, error) {
	if err := opts.validate(false); err != nil {
		return nil, err
	}
	kinds, err := ResolveKinds(opts.Kinds)
	if err != nil {
		return nil, err
	}

	r := o.begin(ctx, "sync", opts, kinds)
	pass := engine.PassOptions{
		Key:           opts.Key,
		Handle:        opts.Handle,
		Types:         opts.Types,
		Limit:         opts.Limit,
		SkipUnchanged: opts.SkipUnchanged,
		ForceRecreate: opts.ForceRecreate,
		Now:           o.now,
	}
	defs := engine.NewDefinitionReconciler(o.source, o.target, r.exec, pass)
	data := engine.NewDataReconciler(o.source, o.target, r.exec, pass)

	report := engine.NewReport("all resource types")
	r.scope.Info("sync started", "source", opts.Source, "target", opts.Target, "dry_run", opts.DryRun)

	for _, kind := range kinds {
		if ctx.Err() != nil {
			r.scope.Warn("run cancelled", "error", ctx.Err())
			break
		}
		kindScope := r.scope.Child(kind.Name)
		kindReport := report.Child(kind.Name)

		if opts.Definitions {
			o.fanOut(ctx, kindScope.Child("definitions"), kindReport.Child("definitions"), kind, opts.Namespace, defs.Reconcile)
		}
		if opts.Data {
			if !kind.SupportsData {
				kindScope.Warn("data sync not supported, skipped", "kind", kind.Name)
				continue
			}
			o.fanOut(ctx, kindScope.Child("data"), kindReport.Child("data"), kind, opts.Namespace, data.Reconcile)
		}
	}
	return o.finish(ctx, r, report), nil
}

type passFunc func(ctx context.Context, scope engine.Scope, kind model.OwnerKind, namespace string) engine.Result

// fanOut runs pass once per selected namespace. A fan-out records each
// namespace as a child of an "all namespaces" node.
func (o *Orchestrator) fanOut(ctx context.Context, scope engine.Scope, report *engine.Report, kind model.OwnerKind, filter string, pass passFunc) {
	namespaces, fanned := expandNamespaces(ctx, scope, o.source, kind, filter)
	if !fanned {
		report.Result = pass(ctx, scope, kind, namespaces[0])
		return
	}
	all := report.Child("all namespaces")
	for _, ns := range namespaces {
		if ctx.Err() != nil {
			return
		}
		all.Child(ns).Result = pass(ctx, scope.Child(ns), kind, ns)
	}
}

// Delete removes target entities of the selected kinds.
func (o *Orchestrator) Delete(ctx context.Context, opts Options) (*Outcome, error) {
	if err := opts.validate(true); err != nil {
		return nil, err
	}
	kinds, err := ResolveKinds(opts.Kinds)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if !k.Creatable {
			return nil, fmt.Errorf("%w: %s cannot be deleted", ErrInvalidOptions, k.Name)
		}
	}

	r := o.begin(ctx, "delete", opts, kinds)
	deleter := engine.NewDeleter(o.target, r.exec)
	filter := engine.DeleteFilter{Types: opts.Types, Handle: opts.Handle, ID: opts.ID, Limit: opts.Limit}

	report := engine.NewReport("all resource types")
	r.scope.Info("delete started", "target", opts.Target, "dry_run", opts.DryRun)
	for _, kind := range kinds {
		if ctx.Err() != nil {
			r.scope.Warn("run cancelled", "error", ctx.Err())
			break
		}
		report.Child(kind.Name).Result = deleter.Delete(ctx, r.scope.Child(kind.Name), kind, filter)
	}
	return o.finish(ctx, r, report), nil
}
