package engine

import (
	"context"
	"time"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

// Requirement is a field that must carry a value when an entity is sent.
type Requirement struct {
	Namespace string
	Key       string
	Type      model.ValueType
}

func (r Requirement) fieldKey() string {
	return model.FieldValue{Namespace: r.Namespace, Key: r.Key}.FieldKey()
}

// Backfill adds a type-appropriate default for every requirement that is
// missing from fields or present with an empty value. It returns a new
// slice; fields is not modified.
func Backfill(fields []model.FieldValue, reqs []Requirement, now time.Time) []model.FieldValue {
	out := make([]model.FieldValue, len(fields), len(fields)+len(reqs))
	copy(out, fields)
	for _, req := range reqs {
		found := false
		for i, f := range out {
			if f.FieldKey() != req.fieldKey() {
				continue
			}
			found = true
			if f.Value == "" {
				out[i].Value = req.Type.DefaultValue(now)
				if out[i].Type == "" {
					out[i].Type = req.Type
				}
			}
		}
		if !found {
			out = append(out, model.FieldValue{
				Namespace: req.Namespace,
				Key:       req.Key,
				Type:      req.Type,
				Value:     req.Type.DefaultValue(now),
			})
		}
	}
	return out
}

// DataReconciler diffs entities of one owner kind between two deployments
// and writes creates, updates and field values to the target.
type DataReconciler struct {
	source remote.Fetcher
	target remote.Fetcher
	exec   *Executor
	opts   PassOptions
}

// NewDataReconciler creates a reconciler. Writes go through exec, which
// must wrap the target deployment.
func NewDataReconciler(source, target remote.Fetcher, exec *Executor, opts PassOptions) *DataReconciler {
	return &DataReconciler{source: source, target: target, exec: exec, opts: opts}
}

// pipeline is the fixed per-entity sequence: backfill, then resolve. Its
// output is what the executor writes.
type pipeline struct {
	resolver *Resolver
	types    map[string]model.ValueType
	reqs     []Requirement
	now      time.Time
}

func (p pipeline) run(ctx context.Context, scope Scope, fields []model.FieldValue) []model.FieldValue {
	typed := make([]model.FieldValue, 0, len(fields))
	for _, f := range fields {
		if t, ok := p.types[f.FieldKey()]; ok && f.Type == "" {
			f.Type = t
		}
		typed = append(typed, f)
	}

	filled := Backfill(typed, p.reqs, p.now)

	out := make([]model.FieldValue, 0, len(filled))
	for _, f := range filled {
		resolved, keep := p.resolver.ResolveField(ctx, scope, f)
		if keep {
			out = append(out, resolved)
		}
	}
	return out
}

// Reconcile runs one data pass for kind. For owner kinds, namespace limits
// the written fields; metaobjects ignore it.
func (r *DataReconciler) Reconcile(ctx context.Context, scope Scope, kind model.OwnerKind, namespace string) Result {
	if !kind.SupportsData {
		scope.Warn("data sync not supported", "kind", kind.Name)
		return Result{}
	}
	resolver := NewResolver(r.source, r.target)
	quota := NewQuotaEnforcer(r.opts.Limit)

	var result Result
	if kind.Entity == model.EntityMetaobject {
		result = r.reconcileMetaobjects(ctx, scope, kind, resolver, quota)
	} else {
		result = r.reconcileOwners(ctx, scope, kind, namespace, resolver, quota)
	}
	result.References.Add(resolver.Stats())
	return result
}

func (r *DataReconciler) reconcileMetaobjects(ctx context.Context, scope Scope, kind model.OwnerKind, resolver *Resolver, quota *QuotaEnforcer) Result {
	var result Result

	sourceDefs := r.typeDefinitions(ctx, scope, r.source)
	if len(sourceDefs) == 0 {
		scope.Warn("no metaobject definitions found on source")
		return result
	}
	targetDefs, err := remote.CollectDefinitions(ctx, r.target, remote.DefinitionQuery{Kind: model.KindTypeDefinition})
	if err != nil {
		scope.Error("target definitions unavailable, pass skipped", "error", err)
		return result
	}
	targetByType := make(map[string]model.Definition, len(targetDefs))
	for _, d := range targetDefs {
		targetByType[d.NaturalKey()] = d
	}

	for _, def := range sourceDefs {
		child := scope.Child(def.Type)
		q := remote.EntityQuery{Kind: model.EntityMetaobject, Type: def.Type, Handle: r.opts.Handle}
		if _, ok := targetByType[def.NaturalKey()]; !ok {
			n := r.countSource(ctx, child, q)
			child.Warn("definition missing on target, type skipped", "type", def.Type, "entries", n)
			result.Skipped += n
			continue
		}

		p := pipeline{resolver: resolver, types: make(map[string]model.ValueType), now: r.opts.now()}
		for _, f := range def.Fields {
			p.types[f.Key] = f.Type
		}
		for _, f := range def.RequiredFields() {
			p.reqs = append(p.reqs, Requirement{Key: f.Key, Type: f.Type})
		}

		res, stop := r.reconcileEntities(ctx, child, kind, q, p, quota, "")
		result.Add(res)
		if stop {
			break
		}
	}
	return result
}

func (r *DataReconciler) typeDefinitions(ctx context.Context, scope Scope, f remote.Fetcher) []model.Definition {
	defs, err := remote.CollectDefinitions(ctx, f, remote.DefinitionQuery{Kind: model.KindTypeDefinition, Key: r.opts.Key})
	if err != nil {
		scope.Warn("source definitions unavailable", "error", err)
		return nil
	}
	return filterTypes(defs, r.opts.Types)
}

// countSource counts the source entities matching q for a skipped type.
func (r *DataReconciler) countSource(ctx context.Context, scope Scope, q remote.EntityQuery) int {
	entities, err := remote.CollectEntities(ctx, r.source, q)
	if err != nil {
		scope.Warn("source entities unavailable", "error", err)
		return 0
	}
	return len(entities)
}

func (r *DataReconciler) reconcileOwners(ctx context.Context, scope Scope, kind model.OwnerKind, namespace string, resolver *Resolver, quota *QuotaEnforcer) Result {
	defs, err := remote.CollectDefinitions(ctx, r.source, remote.DefinitionQuery{
		Kind: model.KindFieldDefinition, OwnerType: kind.OwnerType, Namespace: namespace,
	})
	if err != nil {
		scope.Warn("source definitions unavailable", "error", err)
	}

	p := pipeline{resolver: resolver, types: make(map[string]model.ValueType, len(defs)), now: r.opts.now()}
	for _, d := range defs {
		p.types[d.NaturalKey()] = d.ValueType
	}

	q := remote.EntityQuery{Kind: kind.Entity, Handle: r.opts.Handle}
	result, _ := r.reconcileEntities(ctx, scope, kind, q, p, quota, namespace)
	return result
}

// matchedWrite tracks the field writes queued for one matched entity.
type matchedWrite struct {
	key     string
	indexes []int
}

// reconcileEntities matches source entities to target entities and writes
// them. Metaobjects are written whole; owner entities get their fields
// through batched SetFields calls issued after all entities were planned.
// The second return reports that the limit stopped the pass.
func (r *DataReconciler) reconcileEntities(ctx context.Context, scope Scope, kind model.OwnerKind, q remote.EntityQuery, p pipeline, quota *QuotaEnforcer, namespace string) (Result, bool) {
	var result Result

	source, err := remote.CollectEntities(ctx, r.source, q)
	if err != nil {
		scope.Warn("source entities unavailable", "error", err)
		source = nil
	}
	if len(source) == 0 {
		scope.Info("no entities found on source")
		return result, false
	}
	target, err := remote.CollectEntities(ctx, r.target, q)
	if err != nil {
		scope.Error("target entities unavailable, pass skipped", "error", err)
		result.Skipped += len(source)
		return result, false
	}
	targetByKey := make(map[string]model.Entity, len(target))
	for _, e := range target {
		targetByKey[e.NaturalKey()] = e
	}

	scope.Info("reconciling entities", "source", len(source), "target", len(target))

	// Owner creates carry only the pass's metafields.
	recreate := r.opts.ForceRecreate && kind.Creatable && kind.Entity == model.EntityMetaobject
	if r.opts.ForceRecreate && !recreate {
		scope.Warn("force recreate applies to metaobjects only, updating in place", "kind", kind.Name)
	}

	var (
		writes  []remote.FieldWrite
		pending []matchedWrite
		stopped bool
	)
	for i, e := range source {
		if err := ctx.Err(); err != nil {
			scope.Warn("pass cancelled", "error", err)
			stopped = true
			break
		}
		key := e.NaturalKey()
		if err := quota.Check(key); err != nil {
			scope.Info("limit reached", "limit", quota.MaxItems(), "remaining", len(source)-i)
			stopped = true
			break
		}

		fields := p.run(ctx, scope, scopeFields(e.Fields, kind, namespace, r.opts.Key))
		payload := model.Entity{
			Kind: e.Kind, Type: e.Type, Handle: e.Handle, SKU: e.SKU, Title: e.Title,
			OwnerHandle: e.OwnerHandle, Options: e.Options, Status: e.Status, Fields: fields,
		}

		t, matched := targetByKey[key]
		if !matched {
			if !kind.Creatable {
				scope.Info("no match on target, skipped", "key", key)
				result.Skipped++
				continue
			}
			r.create(ctx, scope, payload, &result)
			continue
		}

		if recreate {
			err := r.exec.DeleteEntity(ctx, kind.Entity, t.ID, key)
			if err == nil {
				r.create(ctx, scope, payload, &result)
				continue
			}
			scope.Warn("delete before recreate failed, updating instead", "key", key, "error", err)
		}

		if r.opts.SkipUnchanged && len(EntityChanges(t, payload.Title, fields)) == 0 {
			scope.Debug("unchanged", "key", key)
			result.Skipped++
			continue
		}

		if kind.Entity == model.EntityMetaobject {
			if err := r.exec.UpdateEntity(ctx, t.ID, payload); err != nil {
				scope.Error("update failed", "key", key, "error", err)
				result.Failed++
				continue
			}
			scope.Info("updated", "key", key)
			result.Updated++
			continue
		}

		if len(fields) == 0 {
			scope.Debug("no fields to write", "key", key)
			result.Skipped++
			continue
		}
		mw := matchedWrite{key: key}
		for _, f := range fields {
			mw.indexes = append(mw.indexes, len(writes))
			writes = append(writes, remote.FieldWrite{
				OwnerID: t.ID, Namespace: f.Namespace, Key: f.Key, Type: f.Type, Value: f.Value,
			})
		}
		pending = append(pending, mw)
	}

	if len(writes) > 0 {
		batch := r.exec.SetFields(ctx, writes)
		scope.Debug("field writes submitted", "writes", len(writes), "chunks", batch.Chunks, "failed", len(batch.Failed))
		for _, mw := range pending {
			failed := false
			for _, idx := range mw.indexes {
				if err, ok := batch.Failed[idx]; ok {
					scope.Error("field write failed", "key", mw.key, "field", writes[idx].FieldKey(), "error", err)
					failed = true
				}
			}
			if failed {
				result.Failed++
				continue
			}
			scope.Info("updated", "key", mw.key, "fields", len(mw.indexes))
			result.Updated++
		}
	}
	return result, stopped
}

func (r *DataReconciler) create(ctx context.Context, scope Scope, e model.Entity, result *Result) {
	id, err := r.exec.CreateEntity(ctx, e)
	if err != nil {
		scope.Error("create failed", "key", e.NaturalKey(), "error", err)
		result.Failed++
		return
	}
	scope.Info("created", "key", e.NaturalKey(), "id", id)
	result.Created++
}

// scopeFields keeps the fields a pass may write: metaobject fields as is,
// metafields of the requested namespace and key only.
func scopeFields(fields []model.FieldValue, kind model.OwnerKind, namespace, key string) []model.FieldValue {
	if kind.Entity == model.EntityMetaobject || (namespace == "" && key == "") {
		return fields
	}
	key = model.NormalizeKey(key)
	out := make([]model.FieldValue, 0, len(fields))
	for _, f := range fields {
		if namespace != "" && f.Namespace != namespace {
			continue
		}
		if key != "" && model.NormalizeKey(f.FieldKey()) != key && model.NormalizeKey(f.Key) != key {
			continue
		}
		out = append(out, f)
	}
	return out
}
