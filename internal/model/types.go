package model

import (
	"sort"
	"strings"
)

// DefinitionKind distinguishes the two schema-like resources.
type DefinitionKind string

const (
	// KindTypeDefinition is a metaobject definition, keyed by its type name.
	KindTypeDefinition DefinitionKind = "metaobject_definition"

	// KindFieldDefinition is a metafield definition, keyed by namespace.key
	// within one owner type.
	KindFieldDefinition DefinitionKind = "metafield_definition"
)

// Capability is an optional feature flag on a definition.
type Capability string

const (
	CapabilityPublishable              Capability = "publishable"
	CapabilityTranslatable             Capability = "translatable"
	CapabilityRenderable               Capability = "renderable"
	CapabilityOnlineStore              Capability = "online_store"
	CapabilityAdminFilterable          Capability = "admin_filterable"
	CapabilitySmartCollectionCondition Capability = "smart_collection_condition"
	CapabilityUniqueValues             Capability = "unique_values"
)

// Capabilities is a sorted set of capability flags.
type Capabilities []Capability

// NewCapabilities builds a sorted, de-duplicated capability set.
func NewCapabilities(caps ...Capability) Capabilities {
	seen := make(map[Capability]bool, len(caps))
	out := make(Capabilities, 0, len(caps))
	for _, c := range caps {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether c is in the set.
func (cs Capabilities) Has(c Capability) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

// Filter returns the subset of capabilities accepted by keep.
func (cs Capabilities) Filter(keep func(Capability) bool) Capabilities {
	out := make(Capabilities, 0, len(cs))
	for _, c := range cs {
		if keep(c) {
			out = append(out, c)
		}
	}
	return NewCapabilities(out...)
}

// ValidationRule is a named constraint on a field or definition.
// Value is opaque; some values carry a cross-store gid (see ParseGIDValue).
type ValidationRule struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// FieldSpec describes one field of a type definition.
type FieldSpec struct {
	Key         string           `json:"key" yaml:"key"`
	Name        string           `json:"name,omitempty" yaml:"name,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Type        ValueType        `json:"type" yaml:"type"`
	Required    bool             `json:"required,omitempty" yaml:"required,omitempty"`
	Validations []ValidationRule `json:"validations,omitempty" yaml:"validations,omitempty"`
}

// Definition is a schema-like resource: a metaobject definition or a
// metafield definition.
type Definition struct {
	ID             string           `json:"id,omitempty" yaml:"id,omitempty"`
	Kind           DefinitionKind   `json:"kind" yaml:"kind"`
	OwnerType      string           `json:"owner_type,omitempty" yaml:"owner_type,omitempty"`
	Type           string           `json:"type,omitempty" yaml:"type,omitempty"`
	Namespace      string           `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Key            string           `json:"key,omitempty" yaml:"key,omitempty"`
	Name           string           `json:"name,omitempty" yaml:"name,omitempty"`
	Description    string           `json:"description,omitempty" yaml:"description,omitempty"`
	ValueType      ValueType        `json:"value_type,omitempty" yaml:"value_type,omitempty"`
	DisplayNameKey string           `json:"display_name_key,omitempty" yaml:"display_name_key,omitempty"`
	Fields         []FieldSpec      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Validations    []ValidationRule `json:"validations,omitempty" yaml:"validations,omitempty"`
	Capabilities   Capabilities     `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Pinned         bool             `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

// NaturalKey returns the deployment-independent identity of the definition:
// the type name for metaobject definitions, namespace.key otherwise.
func (d Definition) NaturalKey() string {
	if d.Kind == KindTypeDefinition {
		return NormalizeType(d.Type)
	}
	return NormalizeKey(d.Namespace + "." + d.Key)
}

// RequiredFields returns the field specs marked required.
func (d Definition) RequiredFields() []FieldSpec {
	var out []FieldSpec
	for _, f := range d.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the field spec with the given key.
func (d Definition) Field(key string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// SelectedOption is one option name/value pair of a variant.
type SelectedOption struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// FieldValue is one stored value on an entity: a metaobject field when
// Namespace is empty, a metafield otherwise.
type FieldValue struct {
	Namespace string    `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Key       string    `json:"key" yaml:"key"`
	Value     string    `json:"value" yaml:"value"`
	Type      ValueType `json:"type,omitempty" yaml:"type,omitempty"`
}

// FieldKey returns "namespace.key" for metafields and "key" for metaobject
// fields.
func (f FieldValue) FieldKey() string {
	if f.Namespace == "" {
		return f.Key
	}
	return f.Namespace + "." + f.Key
}

// Entity is a data instance: a metaobject entry or a metafield owner such as
// a product, variant or collection.
type Entity struct {
	ID          string           `json:"id,omitempty" yaml:"id,omitempty"`
	Kind        EntityKind       `json:"kind" yaml:"kind"`
	Type        string           `json:"type,omitempty" yaml:"type,omitempty"`
	Handle      string           `json:"handle,omitempty" yaml:"handle,omitempty"`
	SKU         string           `json:"sku,omitempty" yaml:"sku,omitempty"`
	Title       string           `json:"title,omitempty" yaml:"title,omitempty"`
	OwnerHandle string           `json:"owner_handle,omitempty" yaml:"owner_handle,omitempty"`
	Options     []SelectedOption `json:"options,omitempty" yaml:"options,omitempty"`
	Status      string           `json:"status,omitempty" yaml:"status,omitempty"`
	Fields      []FieldValue     `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// NaturalKey returns the handle, or the SKU for variants. A variant without a
// SKU is keyed by its product handle and its option set.
func (e Entity) NaturalKey() string {
	if e.Kind == EntityVariant {
		if e.SKU != "" {
			return NormalizeKey(e.SKU)
		}
		return NormalizeKey(e.OwnerHandle) + "/" + OptionsKey(e.Options)
	}
	return NormalizeKey(e.Handle)
}

// Field returns the field value with the given FieldKey.
func (e Entity) Field(fieldKey string) (FieldValue, bool) {
	for _, f := range e.Fields {
		if f.FieldKey() == fieldKey {
			return f, true
		}
	}
	return FieldValue{}, false
}

// OptionsKey renders an option set as a stable "name=value;..." string,
// ordered by option name.
func OptionsKey(opts []SelectedOption) string {
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		parts = append(parts, NormalizeKey(o.Name)+"="+NormalizeKey(o.Value))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
