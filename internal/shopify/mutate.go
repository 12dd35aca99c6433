package shopify

import (
	"context"
	"fmt"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

type mutationPayload struct {
	Node *struct {
		ID string `json:"id"`
	} `json:"node"`
	DeletedID  *string           `json:"deletedId"`
	UserErrors remote.UserErrors `json:"userErrors"`
}

// mutate runs one mutation. In-band rejections are returned as
// remote.UserErrors.
func (c *Client) mutate(ctx context.Context, doc string, vars map[string]any) (mutationPayload, error) {
	var out struct {
		Payload mutationPayload `json:"payload"`
	}
	if err := c.do(ctx, doc, vars, &out); err != nil {
		return mutationPayload{}, err
	}
	if len(out.Payload.UserErrors) > 0 {
		return out.Payload, out.Payload.UserErrors
	}
	return out.Payload, nil
}

func (p mutationPayload) id() string {
	if p.Node == nil {
		return ""
	}
	return p.Node.ID
}

func supportedCapabilities(kind model.DefinitionKind, ownerType string) model.Capabilities {
	var k model.OwnerKind
	var ok bool
	if kind == model.KindTypeDefinition {
		k, ok = model.OwnerKindFor(model.EntityMetaobject)
	} else {
		k, ok = model.LookupOwnerKind(ownerType)
	}
	if !ok {
		return nil
	}
	return k.Capabilities
}

// CreateDefinition implements remote.Mutator.
func (c *Client) CreateDefinition(ctx context.Context, d model.Definition) (string, error) {
	var (
		doc   string
		input map[string]any
	)
	switch d.Kind {
	case model.KindTypeDefinition:
		fields := make([]map[string]any, 0, len(d.Fields))
		for _, f := range d.Fields {
			fields = append(fields, encodeFieldDefinition(f, true))
		}
		doc = metaobjectDefinitionCreateMutation
		input = map[string]any{
			"type":             d.Type,
			"name":             d.Name,
			"fieldDefinitions": fields,
			"capabilities":     encodeCapabilities(d.Capabilities, nil),
		}
		if d.DisplayNameKey != "" {
			input["displayNameKey"] = d.DisplayNameKey
		}
	case model.KindFieldDefinition:
		doc = metafieldDefinitionCreateMutation
		input = map[string]any{
			"ownerType":    d.OwnerType,
			"namespace":    d.Namespace,
			"key":          d.Key,
			"name":         d.Name,
			"type":         string(d.ValueType),
			"validations":  encodeValidations(d.Validations),
			"pin":          d.Pinned,
			"capabilities": encodeCapabilities(d.Capabilities, nil),
		}
	default:
		return "", fmt.Errorf("create definition: unknown kind %q", d.Kind)
	}
	if d.Description != "" {
		input["description"] = d.Description
	}

	p, err := c.mutate(ctx, doc, map[string]any{"input": input})
	if err != nil {
		return "", err
	}
	return p.id(), nil
}

// UpdateDefinition implements remote.Mutator.
func (c *Client) UpdateDefinition(ctx context.Context, target model.Definition, u remote.DefinitionUpdate) error {
	caps := encodeCapabilities(u.Capabilities, supportedCapabilities(target.Kind, target.OwnerType))

	switch target.Kind {
	case model.KindTypeDefinition:
		ops := make([]map[string]any, 0, len(u.FieldOps))
		for _, op := range u.FieldOps {
			if op.Create {
				ops = append(ops, map[string]any{"create": encodeFieldDefinition(op.Field, true)})
				continue
			}
			ops = append(ops, map[string]any{"update": encodeFieldDefinition(op.Field, false)})
		}
		input := map[string]any{
			"name":             u.Name,
			"description":      u.Description,
			"fieldDefinitions": ops,
			"capabilities":     caps,
		}
		if u.DisplayNameKey != "" {
			input["displayNameKey"] = u.DisplayNameKey
		}
		_, err := c.mutate(ctx, metaobjectDefinitionUpdateMutation, map[string]any{"id": target.ID, "input": input})
		return err

	case model.KindFieldDefinition:
		input := map[string]any{
			"ownerType":    target.OwnerType,
			"namespace":    target.Namespace,
			"key":          target.Key,
			"name":         u.Name,
			"description":  u.Description,
			"validations":  encodeValidations(u.Validations),
			"pin":          u.Pinned,
			"capabilities": caps,
		}
		_, err := c.mutate(ctx, metafieldDefinitionUpdateMutation, map[string]any{"input": input})
		return err
	}
	return fmt.Errorf("update definition: unknown kind %q", target.Kind)
}

// CreateEntity implements remote.Mutator.
func (c *Client) CreateEntity(ctx context.Context, e model.Entity) (string, error) {
	doc, ok := createMutations[e.Kind]
	if !ok {
		return "", fmt.Errorf("create %s: unsupported kind", e.Kind)
	}

	var input map[string]any
	if e.Kind == model.EntityMetaobject {
		input = map[string]any{
			"type":   e.Type,
			"handle": e.Handle,
			"fields": encodeMetaobjectFields(e.Fields),
		}
		if e.Status != "" {
			input["capabilities"] = map[string]any{"publishable": map[string]any{"status": e.Status}}
		}
	} else {
		title := e.Title
		if title == "" {
			title = e.Handle
		}
		input = map[string]any{
			"title":      title,
			"handle":     e.Handle,
			"metafields": encodeMetafields(e.Fields),
		}
		if e.Kind == model.EntityProduct && e.Status != "" {
			input["status"] = e.Status
		}
	}

	p, err := c.mutate(ctx, doc, map[string]any{"input": input})
	if err != nil {
		return "", err
	}
	return p.id(), nil
}

func encodeMetaobjectFields(fields []model.FieldValue) []map[string]any {
	out := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, map[string]any{"key": f.Key, "value": f.Value})
	}
	return out
}

// UpdateEntity implements remote.Mutator. Only metaobjects are updated
// whole; other kinds get their fields through SetFields.
func (c *Client) UpdateEntity(ctx context.Context, id string, e model.Entity) error {
	if e.Kind != model.EntityMetaobject {
		return fmt.Errorf("update %s: unsupported kind", e.Kind)
	}
	input := map[string]any{"fields": encodeMetaobjectFields(e.Fields)}
	_, err := c.mutate(ctx, metaobjectUpdateMutation, map[string]any{"id": id, "input": input})
	return err
}

// DeleteEntity implements remote.Mutator.
func (c *Client) DeleteEntity(ctx context.Context, kind model.EntityKind, id string) error {
	doc, ok := deleteMutations[kind]
	if !ok {
		return fmt.Errorf("delete %s: unsupported kind", kind)
	}
	_, err := c.mutate(ctx, doc, map[string]any{"id": id})
	return err
}

// SetFields implements remote.Mutator.
func (c *Client) SetFields(ctx context.Context, writes []remote.FieldWrite) (remote.UserErrors, error) {
	if len(writes) > remote.MaxFieldWrites {
		return nil, fmt.Errorf("set fields: %d writes exceed the limit of %d", len(writes), remote.MaxFieldWrites)
	}
	inputs := make([]map[string]any, 0, len(writes))
	for _, w := range writes {
		in := map[string]any{"ownerId": w.OwnerID, "namespace": w.Namespace, "key": w.Key, "value": w.Value}
		if w.Type != "" {
			in["type"] = string(w.Type)
		}
		inputs = append(inputs, in)
	}

	_, err := c.mutate(ctx, metafieldsSetMutation, map[string]any{"metafields": inputs})
	if ue, ok := remote.AsUserErrors(err); ok {
		return ue, nil
	}
	return nil, err
}
