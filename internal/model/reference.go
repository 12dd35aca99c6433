package model

import "strings"

// RefKey is the natural key of a referenced object. Which attributes are set
// depends on Resource:
//
//	MetaobjectDefinition  Type
//	Metaobject            Type + Handle
//	Product, Collection,
//	Page, Blog, Article   Handle
//	ProductVariant        SKU, and/or OwnerHandle + Options
//	files                 Handle (the file name)
//	Customer              Handle (the email address)
type RefKey struct {
	Resource    ResourceType     `json:"resource"`
	Type        string           `json:"type,omitempty"`
	Handle      string           `json:"handle,omitempty"`
	SKU         string           `json:"sku,omitempty"`
	OwnerHandle string           `json:"owner_handle,omitempty"`
	Options     []SelectedOption `json:"options,omitempty"`
}

// String renders the key for logs.
func (k RefKey) String() string {
	var b strings.Builder
	b.WriteString(string(k.Resource))
	b.WriteByte(':')
	switch {
	case k.Resource == ResourceVariant:
		if k.SKU != "" {
			b.WriteString("sku=" + k.SKU)
		}
		if k.OwnerHandle != "" {
			if k.SKU != "" {
				b.WriteByte(' ')
			}
			b.WriteString(k.OwnerHandle + "[" + OptionsKey(k.Options) + "]")
		}
	case k.Type != "" && k.Handle != "":
		b.WriteString(k.Type + "/" + k.Handle)
	case k.Type != "":
		b.WriteString(k.Type)
	default:
		b.WriteString(k.Handle)
	}
	return b.String()
}

// BySKU returns the SKU-only form of a variant key.
func (k RefKey) BySKU() RefKey {
	return RefKey{Resource: k.Resource, SKU: k.SKU}
}

// ByOptions returns the owner handle + option set form of a variant key.
func (k RefKey) ByOptions() RefKey {
	return RefKey{Resource: k.Resource, OwnerHandle: k.OwnerHandle, Options: k.Options}
}

// ReferenceMapping records how one source id was translated. Mappings live
// for a single pass and are never persisted.
type ReferenceMapping struct {
	Resource ResourceType
	SourceID string
	Key      RefKey
	TargetID string
}
