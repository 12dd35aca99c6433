package engine

import (
	"context"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

// Resolver translates cross-store references from source ids to target ids.
//
// Each id is resolved by natural key: the source deployment is asked what
// the id points at, then the target deployment is asked for the object with
// the same natural key. Results, failures included, are cached per pass by
// (resource, source id), so repeated references cost one pair of lookups.
//
// A Resolver is not safe for concurrent use; passes run single-threaded.
type Resolver struct {
	source remote.Fetcher
	target remote.Fetcher
	cache  map[resolutionKey]resolution
	stats  ReferenceStats
}

type resolutionKey struct {
	resource model.ResourceType
	id       string
}

type resolution struct {
	mapping model.ReferenceMapping
	ok      bool
}

// NewResolver creates a resolver with an empty cache.
func NewResolver(source, target remote.Fetcher) *Resolver {
	return &Resolver{
		source: source,
		target: target,
		cache:  make(map[resolutionKey]resolution),
	}
}

// Stats returns the counters accumulated so far.
func (r *Resolver) Stats() ReferenceStats {
	return r.stats
}

// Mappings returns the successful mappings resolved so far.
func (r *Resolver) Mappings() []model.ReferenceMapping {
	out := make([]model.ReferenceMapping, 0, len(r.cache))
	for _, res := range r.cache {
		if res.ok {
			out = append(out, res.mapping)
		}
	}
	return out
}

// ResolveID translates one source id. Ids that are already target-side
// (dry-run sentinels) pass through unchanged.
func (r *Resolver) ResolveID(ctx context.Context, scope Scope, id string) (string, bool) {
	if model.IsDryRunID(id) {
		return id, true
	}
	resource, _, ok := model.ParseGID(id)
	if !ok {
		scope.Warn("malformed reference", "id", id)
		r.stats.Errors++
		return "", false
	}
	ck := resolutionKey{resource: resource, id: id}
	if cached, hit := r.cache[ck]; hit {
		return cached.mapping.TargetID, cached.ok
	}

	res := r.lookup(ctx, scope, resource, id)
	r.cache[ck] = res
	if !res.ok {
		r.stats.Errors++
	}
	return res.mapping.TargetID, res.ok
}

func (r *Resolver) lookup(ctx context.Context, scope Scope, resource model.ResourceType, id string) resolution {
	m := model.ReferenceMapping{Resource: resource, SourceID: id}

	key, err := r.source.LookupReference(ctx, id)
	if err != nil {
		scope.Warn("reference not found on source", "id", id, "error", err)
		return resolution{mapping: m}
	}
	m.Key = key

	targetID, err := r.find(ctx, key)
	if err != nil {
		scope.Warn("reference not found on target", "key", key.String(), "error", err)
		return resolution{mapping: m}
	}
	m.TargetID = targetID
	scope.Debug("reference resolved", "key", key.String(), "source", id, "target", targetID)
	return resolution{mapping: m, ok: true}
}

// find looks the natural key up on the target. Variants try their SKU
// first and fall back to product handle plus option set only when the SKU
// is absent or unmatched; a variant without a SKU never issues a SKU lookup.
func (r *Resolver) find(ctx context.Context, key model.RefKey) (string, error) {
	if key.Resource != model.ResourceVariant {
		return r.target.FindReference(ctx, key)
	}
	if key.SKU != "" {
		id, err := r.target.FindReference(ctx, key.BySKU())
		if err == nil || !remote.IsNotFound(err) || key.OwnerHandle == "" {
			return id, err
		}
	}
	return r.target.FindReference(ctx, key.ByOptions())
}

// ResolveField rewrites a reference-typed field value. The second return is
// false when the field must be omitted from the payload.
//
// Unresolved single references are blanked to the type's neutral value. A
// list keeps its resolvable subset; a wholly unresolvable list is blanked.
// Values that are not references are returned unchanged and not counted.
func (r *Resolver) ResolveField(ctx context.Context, scope Scope, f model.FieldValue) (model.FieldValue, bool) {
	if !isReferenceValue(f) {
		return f, true
	}

	r.stats.Processed++
	ids, err := model.DecodeIDList(f.Value)
	if err != nil {
		scope.Warn("unreadable reference value", "field", f.FieldKey(), "error", err)
		r.stats.Errors++
		return r.blank(f)
	}

	resolved := make([]string, 0, len(ids))
	for _, id := range ids {
		if target, ok := r.ResolveID(ctx, scope, id); ok {
			resolved = append(resolved, target)
		}
	}

	if !isListValue(f) {
		if len(resolved) == 1 && len(ids) == 1 {
			r.stats.Transformed++
			f.Value = resolved[0]
			return f, true
		}
		scope.Warn("reference blanked", "field", f.FieldKey(), "value", f.Value)
		return r.blank(f)
	}

	if len(resolved) == 0 {
		scope.Warn("reference list blanked", "field", f.FieldKey(), "count", len(ids))
		return r.blank(f)
	}
	if len(resolved) < len(ids) {
		scope.Warn("reference list partially resolved", "field", f.FieldKey(), "resolved", len(resolved), "count", len(ids))
		r.stats.Warnings++
	}
	r.stats.Transformed++
	f.Value = model.EncodeIDList(resolved)
	return f, true
}

func (r *Resolver) blank(f model.FieldValue) (model.FieldValue, bool) {
	r.stats.Blanked++
	value, omit := f.Type.Blank()
	if f.Type == "" && isListValue(f) {
		value = "[]"
	}
	f.Value = value
	return f, !omit
}

// ResolveValidations rewrites validation rules whose values carry gids.
// Rules are detected by value shape, not by name. A rule with no
// resolvable id is dropped and counted as blanked.
func (r *Resolver) ResolveValidations(ctx context.Context, scope Scope, rules []model.ValidationRule) []model.ValidationRule {
	out := make([]model.ValidationRule, 0, len(rules))
	for _, rule := range rules {
		v, ok := model.ParseGIDValue(rule.Value)
		if !ok {
			out = append(out, rule)
			continue
		}

		r.stats.Processed++
		resolved := make([]string, 0, len(v.IDs))
		for _, id := range v.IDs {
			if target, ok := r.ResolveID(ctx, scope, id); ok {
				resolved = append(resolved, target)
			}
		}
		switch {
		case len(resolved) == 0:
			scope.Warn("validation rule dropped", "rule", rule.Name, "value", rule.Value)
			r.stats.Blanked++
			continue
		case len(resolved) < len(v.IDs):
			scope.Warn("validation rule partially resolved", "rule", rule.Name, "resolved", len(resolved), "count", len(v.IDs))
			r.stats.Warnings++
		}
		r.stats.Transformed++
		if v.List {
			rule.Value = model.EncodeIDList(resolved)
		} else {
			rule.Value = resolved[0]
		}
		out = append(out, rule)
	}
	return out
}

func isReferenceValue(f model.FieldValue) bool {
	if f.Value == "" || f.Value == "[]" {
		return false
	}
	if f.Type != "" {
		return f.Type.IsReference()
	}
	_, ok := model.ParseGIDValue(f.Value)
	return ok
}

func isListValue(f model.FieldValue) bool {
	if f.Type != "" {
		return f.Type.IsList()
	}
	v, ok := model.ParseGIDValue(f.Value)
	return ok && v.List
}
