package remote

import (
	"context"
	"fmt"

	"github.com/roach88/shopsync/internal/model"
)

// CollectDefinitions follows the cursor until the last page and returns
// definitions in fetch order.
func CollectDefinitions(ctx context.Context, f Fetcher, q DefinitionQuery) ([]model.Definition, error) {
	var (
		all    []model.Definition
		cursor string
	)
	for {
		defs, page, err := f.FetchDefinitions(ctx, q, cursor)
		if err != nil {
			return all, fmt.Errorf("fetch definitions: %w", err)
		}
		all = append(all, defs...)
		if !page.HasNextPage || page.EndCursor == "" {
			return all, nil
		}
		cursor = page.EndCursor
	}
}

// CollectEntities follows the cursor until the last page and returns
// entities in fetch order.
func CollectEntities(ctx context.Context, f Fetcher, q EntityQuery) ([]model.Entity, error) {
	var (
		all    []model.Entity
		cursor string
	)
	for {
		entities, page, err := f.FetchEntities(ctx, q, cursor)
		if err != nil {
			return all, fmt.Errorf("fetch entities: %w", err)
		}
		all = append(all, entities...)
		if !page.HasNextPage || page.EndCursor == "" {
			return all, nil
		}
		cursor = page.EndCursor
	}
}
