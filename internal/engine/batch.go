package engine

import (
	"context"
	"time"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

// Mutation operations recorded in the journal.
const (
	OpCreateDefinition = "create_definition"
	OpUpdateDefinition = "update_definition"
	OpCreateEntity     = "create_entity"
	OpUpdateEntity     = "update_entity"
	OpDeleteEntity     = "delete_entity"
	OpSetFields        = "set_fields"
)

// Mutation outcomes recorded in the journal.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeDryRun   = "dry_run"
)

// MutationRecord describes one remote write attempt.
type MutationRecord struct {
	Seq         int64
	Op          string
	Kind        string
	NaturalKey  string
	Outcome     string
	Downgraded  bool
	Fingerprint string
	Error       string
	At          time.Time
}

// Recorder receives every mutation attempt. The journal store implements it.
// Recording failures are the recorder's concern and never fail a write.
type Recorder interface {
	RecordMutation(ctx context.Context, m MutationRecord)
}

// DefaultBatchSize is the field-write chunk size.
const DefaultBatchSize = remote.MaxFieldWrites

// Executor is the single seam between reconcilers and the Mutator.
//
// It splits field writes into fixed-size chunks submitted strictly in
// sequence, applies the one-shot capability downgrade to definition writes,
// and in dry-run mode answers every call with a synthetic result instead of
// touching the deployment. Callers cannot tell dry runs apart.
type Executor struct {
	mutator   remote.Mutator
	dryRun    bool
	batchSize int
	recorder  Recorder
	clock     *Clock
	now       func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDryRun makes the executor issue no mutations.
func WithDryRun(dryRun bool) ExecutorOption {
	return func(x *Executor) {
		x.dryRun = dryRun
	}
}

// WithBatchSize sets the field-write chunk size. Values outside
// 1..remote.MaxFieldWrites are ignored.
func WithBatchSize(n int) ExecutorOption {
	return func(x *Executor) {
		if n > 0 && n <= remote.MaxFieldWrites {
			x.batchSize = n
		}
	}
}

// WithRecorder sends every mutation attempt to r.
func WithRecorder(r Recorder) ExecutorOption {
	return func(x *Executor) {
		x.recorder = r
	}
}

// WithClock sets the sequence clock used to stamp records.
func WithClock(c *Clock) ExecutorOption {
	return func(x *Executor) {
		x.clock = c
	}
}

// WithNow sets the wall clock used to stamp records.
func WithNow(now func() time.Time) ExecutorOption {
	return func(x *Executor) {
		x.now = now
	}
}

// NewExecutor creates an executor writing to m.
func NewExecutor(m remote.Mutator, opts ...ExecutorOption) *Executor {
	x := &Executor{
		mutator:   m,
		batchSize: DefaultBatchSize,
		clock:     NewClock(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// DryRun reports whether the executor is in dry-run mode.
func (x *Executor) DryRun() bool {
	return x.dryRun
}

func (x *Executor) record(ctx context.Context, m MutationRecord, err error) {
	if x.recorder == nil {
		return
	}
	m.Seq = x.clock.Next()
	m.At = x.now().UTC()
	switch {
	case x.dryRun:
		m.Outcome = OutcomeDryRun
	case err == nil:
		m.Outcome = OutcomeOK
	case IsUserError(err) || remote.IsFeatureLimit(err):
		m.Outcome = OutcomeRejected
		m.Error = err.Error()
	default:
		m.Outcome = OutcomeFailed
		m.Error = err.Error()
	}
	x.recorder.RecordMutation(ctx, m)
}

// DefinitionWrite is the outcome of a definition create or update.
type DefinitionWrite struct {
	ID         string
	Attempts   int
	Downgraded bool
}

// CreateDefinition creates d. If the deployment rejects a pinned payload
// with the feature-limit reason, the payload is resent exactly once with
// Pinned cleared; the second outcome is final.
func (x *Executor) CreateDefinition(ctx context.Context, d model.Definition) (DefinitionWrite, error) {
	key := d.NaturalKey()
	if x.dryRun {
		x.record(ctx, MutationRecord{Op: OpCreateDefinition, Kind: string(d.Kind), NaturalKey: key, Fingerprint: model.DefinitionFingerprint(d)}, nil)
		return DefinitionWrite{ID: model.DryRunID(definitionResource(d.Kind))}, nil
	}

	id, err := x.mutator.CreateDefinition(ctx, d)
	x.record(ctx, MutationRecord{Op: OpCreateDefinition, Kind: string(d.Kind), NaturalKey: key, Fingerprint: model.DefinitionFingerprint(d)}, classify(OpCreateDefinition, key, err))
	out := DefinitionWrite{ID: id, Attempts: 1}
	if err == nil || !d.Pinned || !remote.IsFeatureLimit(err) {
		return out, classify(OpCreateDefinition, key, err)
	}

	d.Pinned = false
	id, err = x.mutator.CreateDefinition(ctx, d)
	x.record(ctx, MutationRecord{Op: OpCreateDefinition, Kind: string(d.Kind), NaturalKey: key, Downgraded: true, Fingerprint: model.DefinitionFingerprint(d)}, classify(OpCreateDefinition, key, err))
	return DefinitionWrite{ID: id, Attempts: 2, Downgraded: true}, classify(OpCreateDefinition, key, err)
}

// UpdateDefinition applies u to target with the same downgrade policy as
// CreateDefinition.
func (x *Executor) UpdateDefinition(ctx context.Context, target model.Definition, u remote.DefinitionUpdate) (DefinitionWrite, error) {
	key := target.NaturalKey()
	rec := MutationRecord{Op: OpUpdateDefinition, Kind: string(target.Kind), NaturalKey: key}
	if x.dryRun {
		x.record(ctx, rec, nil)
		return DefinitionWrite{ID: target.ID}, nil
	}

	err := x.mutator.UpdateDefinition(ctx, target, u)
	x.record(ctx, rec, classify(OpUpdateDefinition, key, err))
	if err == nil || !u.Pinned || !remote.IsFeatureLimit(err) {
		return DefinitionWrite{ID: target.ID, Attempts: 1}, classify(OpUpdateDefinition, key, err)
	}

	u.Pinned = false
	err = x.mutator.UpdateDefinition(ctx, target, u)
	rec.Downgraded = true
	x.record(ctx, rec, classify(OpUpdateDefinition, key, err))
	return DefinitionWrite{ID: target.ID, Attempts: 2, Downgraded: true}, classify(OpUpdateDefinition, key, err)
}

// CreateEntity creates e and returns its id. Rejections are terminal.
func (x *Executor) CreateEntity(ctx context.Context, e model.Entity) (string, error) {
	key := e.NaturalKey()
	rec := MutationRecord{Op: OpCreateEntity, Kind: string(e.Kind), NaturalKey: key, Fingerprint: model.FieldsFingerprint(e.Fields)}
	if x.dryRun {
		x.record(ctx, rec, nil)
		return model.DryRunID(entityResource(e.Kind)), nil
	}
	id, err := x.mutator.CreateEntity(ctx, e)
	err = classify(OpCreateEntity, key, err)
	x.record(ctx, rec, err)
	return id, err
}

// UpdateEntity updates the target entity id with e.
func (x *Executor) UpdateEntity(ctx context.Context, id string, e model.Entity) error {
	key := e.NaturalKey()
	rec := MutationRecord{Op: OpUpdateEntity, Kind: string(e.Kind), NaturalKey: key, Fingerprint: model.FieldsFingerprint(e.Fields)}
	if x.dryRun {
		x.record(ctx, rec, nil)
		return nil
	}
	err := classify(OpUpdateEntity, key, x.mutator.UpdateEntity(ctx, id, e))
	x.record(ctx, rec, err)
	return err
}

// DeleteEntity deletes the target entity id. naturalKey is used for logs
// and the journal only.
func (x *Executor) DeleteEntity(ctx context.Context, kind model.EntityKind, id, naturalKey string) error {
	rec := MutationRecord{Op: OpDeleteEntity, Kind: string(kind), NaturalKey: naturalKey}
	if x.dryRun {
		x.record(ctx, rec, nil)
		return nil
	}
	err := classify(OpDeleteEntity, naturalKey, x.mutator.DeleteEntity(ctx, kind, id))
	x.record(ctx, rec, err)
	return err
}

// BatchResult is the outcome of SetFields. Failed maps an index of the
// submitted writes to its error; absent indexes succeeded.
type BatchResult struct {
	Chunks int
	Failed map[int]error
}

// Succeeded returns the number of writes that were applied.
func (r BatchResult) Succeeded(total int) int {
	return total - len(r.Failed)
}

// SetFields submits writes in consecutive chunks of the batch size, one
// chunk at a time. A failing chunk never stops later chunks. Within a chunk,
// rejections that point at one input fail only that input; a transport
// error or an unattributable rejection fails the whole chunk.
func (x *Executor) SetFields(ctx context.Context, writes []remote.FieldWrite) BatchResult {
	res := BatchResult{Failed: make(map[int]error)}
	for start := 0; start < len(writes); start += x.batchSize {
		end := min(start+x.batchSize, len(writes))
		chunk := writes[start:end]
		res.Chunks++

		rec := MutationRecord{Op: OpSetFields, Kind: "metafield", NaturalKey: chunk[0].FieldKey()}
		if x.dryRun {
			x.record(ctx, rec, nil)
			continue
		}

		rejected, err := x.mutator.SetFields(ctx, chunk)
		if err != nil {
			err = classify(OpSetFields, "", err)
			x.record(ctx, rec, err)
			for i := range chunk {
				res.Failed[start+i] = err
			}
			continue
		}
		if len(rejected) == 0 {
			x.record(ctx, rec, nil)
			continue
		}

		x.record(ctx, rec, classify(OpSetFields, "", rejected))
		attributed := true
		for _, u := range rejected {
			if i, ok := u.Index(); !ok || i < 0 || i >= len(chunk) {
				attributed = false
				break
			}
		}
		for i, w := range chunk {
			var itemErrs remote.UserErrors
			if attributed {
				itemErrs = rejected.ForIndex(i)
			} else {
				itemErrs = rejected
			}
			if len(itemErrs) > 0 {
				res.Failed[start+i] = classify(OpSetFields, w.FieldKey(), itemErrs)
			}
		}
	}
	return res
}

func definitionResource(k model.DefinitionKind) model.ResourceType {
	if k == model.KindTypeDefinition {
		return model.ResourceMetaobjectDefinition
	}
	return model.ResourceMetafieldDefinition
}

func entityResource(k model.EntityKind) model.ResourceType {
	if kind, ok := model.OwnerKindFor(k); ok {
		return kind.Resource
	}
	return model.ResourceMetaobject
}
