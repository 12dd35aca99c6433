package orchestrator

import (
	"context"

	"github.com/roach88/shopsync/internal/engine"
	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

// expandNamespaces returns the namespaces to run one pass each for, and
// whether the selection is a fan-out. An empty filter is a single pass
// without namespace restriction. "all" yields the distinct namespaces of
// the source's field definitions of kind, in fetch order.
func expandNamespaces(ctx context.Context, scope engine.Scope, source remote.Fetcher, kind model.OwnerKind, filter string) ([]string, bool) {
	if kind.Definition != model.KindFieldDefinition || filter == "" {
		return []string{""}, false
	}
	if filter != AllNamespaces {
		list := SplitList(filter)
		if len(list) == 1 {
			return list, false
		}
		return list, true
	}

	defs, err := remote.CollectDefinitions(ctx, source, remote.DefinitionQuery{
		Kind: model.KindFieldDefinition, OwnerType: kind.OwnerType,
	})
	if err != nil {
		scope.Warn("source namespaces unavailable", "error", err)
	}
	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, d := range defs {
		if !seen[d.Namespace] {
			seen[d.Namespace] = true
			out = append(out, d.Namespace)
		}
	}
	if len(out) == 0 {
		scope.Warn("no namespaces found on source", "kind", kind.Name)
	}
	return out, true
}
