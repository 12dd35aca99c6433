package engine

import (
	"context"
	"time"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

// Action is the decision taken for one source item.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// PassOptions are the per-pass settings supplied by the caller.
type PassOptions struct {
	// Key restricts the pass to one definition natural key: a metaobject
	// type or a namespace.key. Metaobject data passes read it as a type;
	// owner data passes write only that field.
	Key string

	// Handle restricts data passes to the entity with this handle or SKU.
	// Definition passes ignore it.
	Handle string

	// Types restricts metaobject passes to these definition types.
	Types []string

	// Limit caps the number of attempted items. Zero means unlimited.
	Limit int

	// SkipUnchanged counts matched items whose content already equals the
	// target as skipped instead of re-sending them.
	SkipUnchanged bool

	// ForceRecreate deletes matched entities and creates them again.
	ForceRecreate bool

	// Now supplies the date used to backfill date fields.
	Now func() time.Time
}

func (o PassOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// DefinitionIntent is the planned write for one source definition.
type DefinitionIntent struct {
	Action Action
	Key    string
	Source model.Definition

	// Target is the matched definition for updates.
	Target model.Definition
}

// PlanDefinitions matches source definitions against target definitions by
// natural key and returns one intent per source definition, in source
// order. It performs no I/O.
func PlanDefinitions(source, target []model.Definition) []DefinitionIntent {
	byKey := make(map[string]model.Definition, len(target))
	for _, d := range target {
		byKey[d.NaturalKey()] = d
	}

	intents := make([]DefinitionIntent, 0, len(source))
	for _, d := range source {
		key := d.NaturalKey()
		if t, ok := byKey[key]; ok {
			intents = append(intents, DefinitionIntent{Action: ActionUpdate, Key: key, Source: d, Target: t})
			continue
		}
		intents = append(intents, DefinitionIntent{Action: ActionCreate, Key: key, Source: d})
	}
	return intents
}

// DefinitionReconciler diffs definitions of one owner kind between two
// deployments and writes creates and updates to the target.
type DefinitionReconciler struct {
	source remote.Fetcher
	target remote.Fetcher
	exec   *Executor
	opts   PassOptions
}

// NewDefinitionReconciler creates a reconciler. Writes go through exec,
// which must wrap the target deployment.
func NewDefinitionReconciler(source, target remote.Fetcher, exec *Executor, opts PassOptions) *DefinitionReconciler {
	return &DefinitionReconciler{source: source, target: target, exec: exec, opts: opts}
}

// Reconcile runs one pass for kind, restricted to namespace when non-empty.
// Item failures are counted, never returned.
func (r *DefinitionReconciler) Reconcile(ctx context.Context, scope Scope, kind model.OwnerKind, namespace string) Result {
	var result Result
	q := remote.DefinitionQuery{Kind: kind.Definition, OwnerType: kind.OwnerType, Namespace: namespace, Key: r.opts.Key}

	source, err := remote.CollectDefinitions(ctx, r.source, q)
	if err != nil {
		scope.Warn("source definitions unavailable", "error", err)
		source = nil
	}
	if kind.Definition == model.KindTypeDefinition {
		source = filterTypes(source, r.opts.Types)
	}
	if len(source) == 0 {
		scope.Warn("no definitions found on source", "kind", kind.Name, "namespace", namespace)
		return result
	}

	target, err := remote.CollectDefinitions(ctx, r.target, q)
	if err != nil {
		scope.Error("target definitions unavailable, pass skipped", "error", err)
		result.Skipped += len(source)
		return result
	}

	scope.Info("reconciling definitions", "source", len(source), "target", len(target))
	resolver := NewResolver(r.source, r.target)
	quota := NewQuotaEnforcer(r.opts.Limit)

	for i, intent := range PlanDefinitions(source, target) {
		if err := ctx.Err(); err != nil {
			scope.Warn("pass cancelled", "error", err)
			break
		}
		if err := quota.Check(intent.Key); err != nil {
			scope.Info("limit reached", "limit", quota.MaxItems(), "remaining", len(source)-i)
			break
		}

		switch intent.Action {
		case ActionCreate:
			payload := r.buildCreate(ctx, scope, kind, resolver, intent.Source)
			w, err := r.exec.CreateDefinition(ctx, payload)
			if err != nil {
				scope.Error("create failed", "key", intent.Key, "error", err)
				result.Failed++
				continue
			}
			scope.Info("created", "key", intent.Key, "id", w.ID, "downgraded", w.Downgraded)
			result.Created++

		case ActionUpdate:
			u := r.buildUpdate(ctx, scope, kind, resolver, intent.Source, intent.Target)
			if r.opts.SkipUnchanged {
				if changes := DefinitionChanges(intent.Target, u); len(changes) == 0 {
					scope.Debug("unchanged", "key", intent.Key)
					result.Skipped++
					continue
				}
			}
			w, err := r.exec.UpdateDefinition(ctx, intent.Target, u)
			if err != nil {
				scope.Error("update failed", "key", intent.Key, "error", err)
				result.Failed++
				continue
			}
			scope.Info("updated", "key", intent.Key, "downgraded", w.Downgraded)
			result.Updated++
		}
	}

	result.References.Add(resolver.Stats())
	return result
}

// buildCreate derives the full create payload: ids stripped, owner type
// set, capabilities limited to what the kind supports, reference-bearing
// validations resolved and validation sets derived per value type.
func (r *DefinitionReconciler) buildCreate(ctx context.Context, scope Scope, kind model.OwnerKind, resolver *Resolver, d model.Definition) model.Definition {
	out := model.Definition{
		Kind:           d.Kind,
		OwnerType:      kind.OwnerType,
		Type:           d.Type,
		Namespace:      d.Namespace,
		Key:            d.Key,
		Name:           d.Name,
		Description:    d.Description,
		ValueType:      d.ValueType,
		DisplayNameKey: d.DisplayNameKey,
		Capabilities:   d.Capabilities.Filter(kind.SupportsCapability),
		Pinned:         d.Pinned,
	}
	if d.Kind == model.KindFieldDefinition {
		out.Validations = r.deriveRules(ctx, scope, resolver, d.NaturalKey(), d.ValueType, d.Validations)
	}
	for _, f := range d.Fields {
		f.Validations = r.deriveRules(ctx, scope, resolver, d.NaturalKey()+"."+f.Key, f.Type, f.Validations)
		out.Fields = append(out.Fields, f)
	}
	return out
}

// buildUpdate carries only mutable attributes. Fields of a type definition
// missing on the target are created; existing ones are updated in place.
func (r *DefinitionReconciler) buildUpdate(ctx context.Context, scope Scope, kind model.OwnerKind, resolver *Resolver, src, tgt model.Definition) remote.DefinitionUpdate {
	u := remote.DefinitionUpdate{
		Name:           src.Name,
		Description:    src.Description,
		DisplayNameKey: src.DisplayNameKey,
		Capabilities:   src.Capabilities.Filter(kind.SupportsCapability),
		Pinned:         src.Pinned,
	}
	if src.Kind == model.KindFieldDefinition {
		u.Validations = r.deriveRules(ctx, scope, resolver, src.NaturalKey(), tgt.ValueType, src.Validations)
	}
	for _, f := range src.Fields {
		existing, ok := tgt.Field(f.Key)
		valueType := f.Type
		if ok {
			valueType = existing.Type
		}
		f.Validations = r.deriveRules(ctx, scope, resolver, src.NaturalKey()+"."+f.Key, valueType, f.Validations)
		if ok {
			f.Type = existing.Type
		}
		u.FieldOps = append(u.FieldOps, remote.FieldOp{Create: !ok, Field: f})
	}
	return u
}

// filterTypes keeps the type definitions named in types. Empty types keeps
// everything.
func filterTypes(defs []model.Definition, types []string) []model.Definition {
	if len(types) == 0 {
		return defs
	}
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[model.NormalizeType(t)] = true
	}
	out := make([]model.Definition, 0, len(defs))
	for _, d := range defs {
		if wanted[d.NaturalKey()] {
			out = append(out, d)
		}
	}
	return out
}

func (r *DefinitionReconciler) deriveRules(ctx context.Context, scope Scope, resolver *Resolver, key string, t model.ValueType, rules []model.ValidationRule) []model.ValidationRule {
	resolved := resolver.ResolveValidations(ctx, scope, rules)
	derived, dropped := DeriveValidations(t, resolved)
	if len(dropped) > 0 {
		scope.Debug("validation rules not applicable", "key", key, "type", string(t), "rules", dropped)
	}
	return derived
}
