package shopify

import (
	"net/url"
	"path"
	"strings"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

func (p pageInfo) page() remote.Page {
	return remote.Page{HasNextPage: p.HasNextPage, EndCursor: p.EndCursor}
}

type toggle struct {
	Enabled bool `json:"enabled"`
}

type typeName struct {
	Name string `json:"name"`
}

type metafieldNode struct {
	Namespace string  `json:"namespace"`
	Key       string  `json:"key"`
	Value     *string `json:"value"`
	Type      string  `json:"type"`
}

type handleRef struct {
	Handle string `json:"handle"`
}

type imageRef struct {
	URL string `json:"url"`
}

// node decodes every object kind the transport reads. Only the attributes
// of the concrete __typename are populated.
type node struct {
	Typename        string                 `json:"__typename"`
	ID              string                 `json:"id"`
	Handle          string                 `json:"handle"`
	Type            string                 `json:"type"`
	Title           string                 `json:"title"`
	DisplayName     string                 `json:"displayName"`
	Name            string                 `json:"name"`
	Status          string                 `json:"status"`
	SKU             string                 `json:"sku"`
	Email           string                 `json:"email"`
	URL             string                 `json:"url"`
	Filename        string                 `json:"filename"`
	Image           *imageRef              `json:"image"`
	Product         *handleRef             `json:"product"`
	SelectedOptions []model.SelectedOption `json:"selectedOptions"`
	Fields          []metafieldNode        `json:"fields"`
	Metafields      *struct {
		Nodes []metafieldNode `json:"nodes"`
	} `json:"metafields"`
}

func (n node) entity(kind model.EntityKind) model.Entity {
	e := model.Entity{
		ID:     n.ID,
		Kind:   kind,
		Type:   n.Type,
		Handle: n.Handle,
		SKU:    n.SKU,
		Title:  n.Title,
		Status: n.Status,
	}
	switch kind {
	case model.EntityMetaobject:
		e.Title = n.DisplayName
		for _, f := range n.Fields {
			if f.Value == nil {
				continue
			}
			e.Fields = append(e.Fields, model.FieldValue{Key: f.Key, Value: *f.Value, Type: model.ValueType(f.Type)})
		}
	case model.EntityVariant:
		e.Options = n.SelectedOptions
		if n.Product != nil {
			e.OwnerHandle = n.Product.Handle
		}
	case model.EntityCustomer:
		e.Handle, e.Title = n.Email, n.DisplayName
	case model.EntityShop:
		e.Handle, e.Title = shopHandle, n.Name
	}
	if n.Metafields != nil {
		for _, f := range n.Metafields.Nodes {
			if f.Value == nil {
				continue
			}
			e.Fields = append(e.Fields, model.FieldValue{
				Namespace: f.Namespace, Key: f.Key, Value: *f.Value, Type: model.ValueType(f.Type),
			})
		}
	}
	return e
}

// shopHandle is the natural key of the one shop entity of a deployment.
const shopHandle = "shop"

// refKey returns the natural key of a looked up node.
func (n node) refKey() model.RefKey {
	r := model.ResourceType(n.Typename)
	if pr, _, ok := model.ParseGID(n.ID); ok {
		r = pr
	}
	key := model.RefKey{Resource: r}
	switch {
	case r == model.ResourceMetaobjectDefinition:
		key.Type = n.Type
	case r == model.ResourceMetaobject:
		key.Type, key.Handle = n.Type, n.Handle
	case r == model.ResourceVariant:
		key.SKU, key.Options = n.SKU, n.SelectedOptions
		if n.Product != nil {
			key.OwnerHandle = n.Product.Handle
		}
	case r == model.ResourceCustomer:
		key.Handle = n.Email
	case r.IsFile():
		key.Handle = n.filename()
	default:
		key.Handle = n.Handle
	}
	return key
}

// filename returns the file name of a file node: the explicit name for
// videos, the last URL path segment otherwise.
func (n node) filename() string {
	if n.Filename != "" {
		return n.Filename
	}
	raw := n.URL
	if n.Image != nil && raw == "" {
		raw = n.Image.URL
	}
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}

type fieldDefinitionNode struct {
	Key         string                 `json:"key"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Required    bool                   `json:"required"`
	Type        typeName               `json:"type"`
	Validations []model.ValidationRule `json:"validations"`
}

type metaobjectDefinitionNode struct {
	ID               string                `json:"id"`
	Type             string                `json:"type"`
	Name             string                `json:"name"`
	Description      string                `json:"description"`
	DisplayNameKey   string                `json:"displayNameKey"`
	Capabilities     map[string]toggle     `json:"capabilities"`
	FieldDefinitions []fieldDefinitionNode `json:"fieldDefinitions"`
}

func (n metaobjectDefinitionNode) definition() model.Definition {
	d := model.Definition{
		ID:             n.ID,
		Kind:           model.KindTypeDefinition,
		Type:           n.Type,
		Name:           n.Name,
		Description:    n.Description,
		DisplayNameKey: n.DisplayNameKey,
		Capabilities:   decodeCapabilities(n.Capabilities),
	}
	for _, f := range n.FieldDefinitions {
		d.Fields = append(d.Fields, model.FieldSpec{
			Key:         f.Key,
			Name:        f.Name,
			Description: f.Description,
			Type:        model.ValueType(f.Type.Name),
			Required:    f.Required,
			Validations: f.Validations,
		})
	}
	return d
}

type metafieldDefinitionNode struct {
	ID             string                 `json:"id"`
	Namespace      string                 `json:"namespace"`
	Key            string                 `json:"key"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	OwnerType      string                 `json:"ownerType"`
	Type           typeName               `json:"type"`
	Validations    []model.ValidationRule `json:"validations"`
	PinnedPosition *int                   `json:"pinnedPosition"`
	Capabilities   map[string]toggle      `json:"capabilities"`
}

func (n metafieldDefinitionNode) definition() model.Definition {
	return model.Definition{
		ID:           n.ID,
		Kind:         model.KindFieldDefinition,
		OwnerType:    n.OwnerType,
		Namespace:    n.Namespace,
		Key:          n.Key,
		Name:         n.Name,
		Description:  n.Description,
		ValueType:    model.ValueType(n.Type.Name),
		Validations:  n.Validations,
		Capabilities: decodeCapabilities(n.Capabilities),
		Pinned:       n.PinnedPosition != nil,
	}
}

// capabilityFields maps capabilities to their GraphQL field names.
var capabilityFields = map[model.Capability]string{
	model.CapabilityPublishable:              "publishable",
	model.CapabilityTranslatable:             "translatable",
	model.CapabilityRenderable:               "renderable",
	model.CapabilityOnlineStore:              "onlineStore",
	model.CapabilityAdminFilterable:          "adminFilterable",
	model.CapabilitySmartCollectionCondition: "smartCollectionCondition",
	model.CapabilityUniqueValues:             "uniqueValues",
}

func decodeCapabilities(in map[string]toggle) model.Capabilities {
	var caps []model.Capability
	for c, field := range capabilityFields {
		if in[field].Enabled {
			caps = append(caps, c)
		}
	}
	return model.NewCapabilities(caps...)
}

// encodeCapabilities renders caps as a capabilities input. Every capability
// in supported but not in caps is sent disabled.
func encodeCapabilities(caps, supported model.Capabilities) map[string]any {
	out := make(map[string]any)
	for _, c := range supported {
		if field, ok := capabilityFields[c]; ok {
			out[field] = map[string]any{"enabled": caps.Has(c)}
		}
	}
	for _, c := range caps {
		if field, ok := capabilityFields[c]; ok {
			out[field] = map[string]any{"enabled": true}
		}
	}
	return out
}

func encodeValidations(rules []model.ValidationRule) []map[string]any {
	out := make([]map[string]any, 0, len(rules))
	for _, r := range rules {
		out = append(out, map[string]any{"name": r.Name, "value": r.Value})
	}
	return out
}

func encodeFieldDefinition(f model.FieldSpec, withType bool) map[string]any {
	in := map[string]any{
		"key":         f.Key,
		"name":        f.Name,
		"required":    f.Required,
		"validations": encodeValidations(f.Validations),
	}
	if f.Description != "" {
		in["description"] = f.Description
	}
	if withType {
		in["type"] = string(f.Type)
	}
	return in
}

func encodeMetafields(fields []model.FieldValue) []map[string]any {
	out := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		m := map[string]any{"namespace": f.Namespace, "key": f.Key, "value": f.Value}
		if f.Type != "" {
			m["type"] = string(f.Type)
		}
		out = append(out, m)
	}
	return out
}

// searchTerm builds one search-syntax clause with a quoted value.
func searchTerm(field, value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return field + `:"` + r.Replace(value) + `"`
}
