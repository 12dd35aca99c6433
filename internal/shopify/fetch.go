package shopify

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

var _ remote.Remote = (*Client)(nil)

type connection[T any] struct {
	Conn struct {
		Nodes    []T      `json:"nodes"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"conn"`
}

func (c *Client) pageVars(cursor string) map[string]any {
	vars := map[string]any{"first": c.pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}
	return vars
}

// FetchDefinitions implements remote.Fetcher.
func (c *Client) FetchDefinitions(ctx context.Context, q remote.DefinitionQuery, cursor string) ([]model.Definition, remote.Page, error) {
	switch q.Kind {
	case model.KindTypeDefinition:
		return c.fetchMetaobjectDefinitions(ctx, q, cursor)
	case model.KindFieldDefinition:
		return c.fetchMetafieldDefinitions(ctx, q, cursor)
	default:
		return nil, remote.Page{}, fmt.Errorf("fetch definitions: unknown kind %q", q.Kind)
	}
}

func (c *Client) fetchMetaobjectDefinitions(ctx context.Context, q remote.DefinitionQuery, cursor string) ([]model.Definition, remote.Page, error) {
	if q.Key != "" {
		var out struct {
			Definition *metaobjectDefinitionNode `json:"definition"`
		}
		if err := c.do(ctx, metaobjectDefinitionByTypeQuery, map[string]any{"type": q.Key}, &out); err != nil {
			return nil, remote.Page{}, err
		}
		if out.Definition == nil {
			return nil, remote.Page{}, nil
		}
		return []model.Definition{out.Definition.definition()}, remote.Page{}, nil
	}

	var out connection[metaobjectDefinitionNode]
	if err := c.do(ctx, listMetaobjectDefinitionsQuery, c.pageVars(cursor), &out); err != nil {
		return nil, remote.Page{}, err
	}
	defs := make([]model.Definition, 0, len(out.Conn.Nodes))
	for _, n := range out.Conn.Nodes {
		defs = append(defs, n.definition())
	}
	return defs, out.Conn.PageInfo.page(), nil
}

func (c *Client) fetchMetafieldDefinitions(ctx context.Context, q remote.DefinitionQuery, cursor string) ([]model.Definition, remote.Page, error) {
	if q.OwnerType == "" {
		return nil, remote.Page{}, fmt.Errorf("fetch definitions: owner type required")
	}
	vars := c.pageVars(cursor)
	vars["ownerType"] = q.OwnerType
	if q.Namespace != "" {
		vars["namespace"] = q.Namespace
	}
	if q.Key != "" {
		if ns, key, ok := model.SplitNamespaceKey(q.Key); ok {
			vars["namespace"], vars["key"] = ns, key
		} else {
			vars["key"] = q.Key
		}
	}

	var out connection[metafieldDefinitionNode]
	if err := c.do(ctx, listMetafieldDefinitionsQuery, vars, &out); err != nil {
		return nil, remote.Page{}, err
	}
	defs := make([]model.Definition, 0, len(out.Conn.Nodes))
	for _, n := range out.Conn.Nodes {
		d := n.definition()
		if d.OwnerType == "" {
			d.OwnerType = q.OwnerType
		}
		defs = append(defs, d)
	}
	return defs, out.Conn.PageInfo.page(), nil
}

// FetchEntities implements remote.Fetcher.
func (c *Client) FetchEntities(ctx context.Context, q remote.EntityQuery, cursor string) ([]model.Entity, remote.Page, error) {
	spec, ok := entitySpecs[q.Kind]
	if !ok {
		return nil, remote.Page{}, fmt.Errorf("fetch entities: unsupported kind %q", q.Kind)
	}

	if q.ID != "" {
		var out struct {
			Node *node `json:"node"`
		}
		if err := c.do(ctx, entityByIDQuery(spec), map[string]any{"id": q.ID}, &out); err != nil {
			return nil, remote.Page{}, err
		}
		if out.Node == nil || out.Node.Typename != spec.typename {
			return nil, remote.Page{}, nil
		}
		e := out.Node.entity(q.Kind)
		if !matchesEntity(e, q) {
			return nil, remote.Page{}, nil
		}
		return []model.Entity{e}, remote.Page{}, nil
	}

	if q.Kind == model.EntityShop {
		var out struct {
			Shop node `json:"shop"`
		}
		if err := c.do(ctx, shopQuery, nil, &out); err != nil {
			return nil, remote.Page{}, err
		}
		return []model.Entity{out.Shop.entity(q.Kind)}, remote.Page{}, nil
	}

	vars := c.pageVars(cursor)
	if q.Kind == model.EntityMetaobject {
		if q.Type == "" {
			return nil, remote.Page{}, fmt.Errorf("fetch entities: metaobject type required")
		}
		vars["type"] = q.Type
	}
	if term, ok := entitySearch(spec, q); ok {
		vars["query"] = term
	}

	var out connection[node]
	if err := c.do(ctx, listEntitiesQuery(spec), vars, &out); err != nil {
		return nil, remote.Page{}, err
	}
	entities := make([]model.Entity, 0, len(out.Conn.Nodes))
	for _, n := range out.Conn.Nodes {
		if e := n.entity(q.Kind); matchesEntity(e, q) {
			entities = append(entities, e)
		}
	}
	return entities, out.Conn.PageInfo.page(), nil
}

// entitySearch narrows a listing server-side. Variant keys of the
// "product/options" form cannot be searched and are filtered locally.
func entitySearch(spec entitySpec, q remote.EntityQuery) (string, bool) {
	if q.Handle == "" || spec.search == "" {
		return "", false
	}
	if q.Kind == model.EntityVariant && strings.Contains(q.Handle, "/") {
		return "", false
	}
	return searchTerm(spec.search, q.Handle), true
}

func matchesEntity(e model.Entity, q remote.EntityQuery) bool {
	if q.Handle != "" && e.NaturalKey() != model.NormalizeKey(q.Handle) {
		return false
	}
	if q.Type != "" && e.Kind == model.EntityMetaobject && model.NormalizeType(e.Type) != model.NormalizeType(q.Type) {
		return false
	}
	return true
}

// LookupReference implements remote.Fetcher.
func (c *Client) LookupReference(ctx context.Context, id string) (model.RefKey, error) {
	if !model.IsGID(id) {
		return model.RefKey{}, fmt.Errorf("lookup %q: malformed id", id)
	}
	var out struct {
		Node *node `json:"node"`
	}
	if err := c.do(ctx, lookupNodeQuery, map[string]any{"id": id}, &out); err != nil {
		return model.RefKey{}, err
	}
	if out.Node == nil {
		return model.RefKey{}, fmt.Errorf("lookup %s: %w", id, remote.ErrNotFound)
	}
	return out.Node.refKey(), nil
}

// FindReference implements remote.Fetcher.
func (c *Client) FindReference(ctx context.Context, key model.RefKey) (string, error) {
	id, err := c.findReference(ctx, key)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("find %s: %w", key, remote.ErrNotFound)
	}
	return id, nil
}

func (c *Client) findReference(ctx context.Context, key model.RefKey) (string, error) {
	switch {
	case key.Resource == model.ResourceMetaobjectDefinition:
		var out struct {
			Definition *node `json:"definition"`
		}
		if err := c.do(ctx, metaobjectDefinitionIDByTypeQuery, map[string]any{"type": key.Type}, &out); err != nil {
			return "", err
		}
		if out.Definition == nil {
			return "", nil
		}
		return out.Definition.ID, nil

	case key.Resource == model.ResourceMetaobject:
		var out struct {
			Metaobject *node `json:"metaobject"`
		}
		vars := map[string]any{"type": key.Type, "handle": key.Handle}
		if err := c.do(ctx, metaobjectIDByHandleQuery, vars, &out); err != nil {
			return "", err
		}
		if out.Metaobject == nil {
			return "", nil
		}
		return out.Metaobject.ID, nil

	case key.Resource == model.ResourceVariant:
		return c.findVariant(ctx, key)

	case key.Resource.IsFile():
		return c.findFile(ctx, key)

	case key.Resource == model.ResourceShop:
		var out struct {
			Shop node `json:"shop"`
		}
		if err := c.do(ctx, shopIDQuery, nil, &out); err != nil {
			return "", err
		}
		return out.Shop.ID, nil
	}

	kind, ok := model.OwnerKindForResource(key.Resource)
	if !ok {
		return "", nil
	}
	spec, ok := entitySpecs[kind.Entity]
	if !ok || spec.search == "" || key.Handle == "" {
		return "", nil
	}
	var out connection[node]
	vars := map[string]any{"query": searchTerm(spec.search, key.Handle)}
	if err := c.do(ctx, findByKeyQuery(spec), vars, &out); err != nil {
		return "", err
	}
	want := model.NormalizeKey(key.Handle)
	for _, n := range out.Conn.Nodes {
		got := n.Handle
		if spec.search == "email" {
			got = n.Email
		}
		if model.NormalizeKey(got) == want {
			return n.ID, nil
		}
	}
	return "", nil
}

// findVariant matches by SKU first, then by product handle and option set.
func (c *Client) findVariant(ctx context.Context, key model.RefKey) (string, error) {
	if key.SKU != "" {
		var out connection[node]
		vars := map[string]any{"query": searchTerm("sku", key.SKU)}
		if err := c.do(ctx, findByKeyQuery(entitySpecs[model.EntityVariant]), vars, &out); err != nil {
			return "", err
		}
		for _, n := range out.Conn.Nodes {
			if model.NormalizeKey(n.SKU) == model.NormalizeKey(key.SKU) {
				return n.ID, nil
			}
		}
	}
	if key.OwnerHandle == "" {
		return "", nil
	}

	var out connection[struct {
		Handle   string `json:"handle"`
		Variants struct {
			Nodes []node `json:"nodes"`
		} `json:"variants"`
	}]
	vars := map[string]any{"query": searchTerm("handle", key.OwnerHandle)}
	if err := c.do(ctx, variantsByProductQuery, vars, &out); err != nil {
		return "", err
	}
	want := model.OptionsKey(key.Options)
	for _, p := range out.Conn.Nodes {
		if model.NormalizeKey(p.Handle) != model.NormalizeKey(key.OwnerHandle) {
			continue
		}
		for _, v := range p.Variants.Nodes {
			if model.OptionsKey(v.SelectedOptions) == want {
				return v.ID, nil
			}
		}
	}
	return "", nil
}

// findFile matches by file name. A file of the requested resource type wins
// over one of another file type with the same name.
func (c *Client) findFile(ctx context.Context, key model.RefKey) (string, error) {
	var out connection[node]
	vars := map[string]any{"query": searchTerm("filename", key.Handle)}
	if err := c.do(ctx, filesByNameQuery, vars, &out); err != nil {
		return "", err
	}
	var fallback string
	for _, n := range out.Conn.Nodes {
		if n.filename() != key.Handle {
			continue
		}
		if model.ResourceType(n.Typename) == key.Resource {
			return n.ID, nil
		}
		if fallback == "" {
			fallback = n.ID
		}
	}
	return fallback, nil
}
