package engine

import (
	"context"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

// DeleteFilter selects target entities for deletion.
type DeleteFilter struct {
	// Types restricts metaobject deletion to these definition types. Empty
	// means every type on the target.
	Types []string

	Handle string
	ID     string
	Limit  int
}

// Deleter removes entities from the target deployment. It never reads the
// source and never creates or updates anything.
type Deleter struct {
	target remote.Fetcher
	exec   *Executor
}

// NewDeleter creates a deleter. exec must wrap the same deployment as target.
func NewDeleter(target remote.Fetcher, exec *Executor) *Deleter {
	return &Deleter{target: target, exec: exec}
}

// Delete removes every target entity of kind matching filter, up to
// filter.Limit entities.
func (d *Deleter) Delete(ctx context.Context, scope Scope, kind model.OwnerKind, filter DeleteFilter) Result {
	var result Result
	quota := NewQuotaEnforcer(filter.Limit)

	queries := []remote.EntityQuery{{Kind: kind.Entity, Handle: filter.Handle, ID: filter.ID}}
	if kind.Entity == model.EntityMetaobject {
		types := filter.Types
		if len(types) == 0 {
			defs, err := remote.CollectDefinitions(ctx, d.target, remote.DefinitionQuery{Kind: model.KindTypeDefinition})
			if err != nil {
				scope.Error("target definitions unavailable", "error", err)
				return result
			}
			for _, def := range defs {
				types = append(types, def.Type)
			}
		}
		queries = queries[:0]
		for _, t := range types {
			queries = append(queries, remote.EntityQuery{Kind: kind.Entity, Type: t, Handle: filter.Handle, ID: filter.ID})
		}
	}

	for _, q := range queries {
		child := scope
		if q.Type != "" {
			child = scope.Child(q.Type)
		}
		entities, err := remote.CollectEntities(ctx, d.target, q)
		if err != nil {
			child.Warn("target entities unavailable", "error", err)
			continue
		}
		for _, e := range entities {
			if err := ctx.Err(); err != nil {
				child.Warn("delete cancelled", "error", err)
				return result
			}
			key := e.NaturalKey()
			if err := quota.Check(key); err != nil {
				child.Info("limit reached", "limit", quota.MaxItems())
				return result
			}
			if err := d.exec.DeleteEntity(ctx, kind.Entity, e.ID, key); err != nil {
				child.Error("delete failed", "key", key, "error", err)
				result.Failed++
				continue
			}
			child.Info("deleted", "key", key, "id", e.ID)
			result.Deleted++
		}
	}
	return result
}
