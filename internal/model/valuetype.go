package model

import (
	"strings"
	"time"
)

// ValueType is the platform type name of a field, e.g. "boolean",
// "single_line_text_field" or "list.product_reference".
type ValueType string

// Common value types.
const (
	TypeBoolean             ValueType = "boolean"
	TypeSingleLineText      ValueType = "single_line_text_field"
	TypeMultiLineText       ValueType = "multi_line_text_field"
	TypeRichText            ValueType = "rich_text_field"
	TypeNumberInteger       ValueType = "number_integer"
	TypeNumberDecimal       ValueType = "number_decimal"
	TypeDate                ValueType = "date"
	TypeDateTime            ValueType = "date_time"
	TypeJSON                ValueType = "json"
	TypeURL                 ValueType = "url"
	TypeColor               ValueType = "color"
	TypeRating              ValueType = "rating"
	TypeMoney               ValueType = "money"
	TypeDimension           ValueType = "dimension"
	TypeVolume              ValueType = "volume"
	TypeWeight              ValueType = "weight"
	TypeProductReference    ValueType = "product_reference"
	TypeVariantReference    ValueType = "variant_reference"
	TypeCollectionReference ValueType = "collection_reference"
	TypePageReference       ValueType = "page_reference"
	TypeMetaobjectReference ValueType = "metaobject_reference"
	TypeMixedReference      ValueType = "mixed_reference"
	TypeFileReference       ValueType = "file_reference"
	TypeCustomerReference   ValueType = "customer_reference"
	TypeCompanyReference    ValueType = "company_reference"
)

const listPrefix = "list."

// referenceResources maps reference base types to the resource they point at.
// An empty resource means the target kind is only known from the gid itself.
var referenceResources = map[ValueType]ResourceType{
	TypeProductReference:    ResourceProduct,
	TypeVariantReference:    ResourceVariant,
	TypeCollectionReference: ResourceCollection,
	TypePageReference:       ResourcePage,
	TypeMetaobjectReference: ResourceMetaobject,
	TypeMixedReference:      ResourceMetaobject,
	TypeFileReference:       "",
	TypeCustomerReference:   ResourceCustomer,
	TypeCompanyReference:    ResourceCompany,
}

// ListOf returns the list type wrapping t.
func ListOf(t ValueType) ValueType {
	if t.IsList() {
		return t
	}
	return ValueType(listPrefix + string(t))
}

// IsList reports whether t is a list type.
func (t ValueType) IsList() bool {
	return strings.HasPrefix(string(t), listPrefix)
}

// Base returns the element type of a list type, or t itself.
func (t ValueType) Base() ValueType {
	return ValueType(strings.TrimPrefix(string(t), listPrefix))
}

// IsReference reports whether t (or its element type) points at another
// remote object.
func (t ValueType) IsReference() bool {
	_, ok := referenceResources[t.Base()]
	return ok
}

// ReferenceResource returns the resource a reference type points at. The
// second result is false for non-reference types; the resource is empty for
// file references, whose concrete kind comes from the gid.
func (t ValueType) ReferenceResource() (ResourceType, bool) {
	r, ok := referenceResources[t.Base()]
	return r, ok
}

// IsBoolean reports whether t is a boolean scalar.
func (t ValueType) IsBoolean() bool { return t == TypeBoolean }

// IsNumeric reports whether t is a numeric scalar.
func (t ValueType) IsNumeric() bool {
	return t == TypeNumberInteger || t == TypeNumberDecimal
}

// Blank returns the neutral value written in place of an unresolvable
// reference. When omit is true the field must be left out of the payload.
//
//	list types        -> "[]"
//	boolean, numeric  -> omitted
//	everything else   -> ""
func (t ValueType) Blank() (value string, omit bool) {
	switch {
	case t.IsList():
		return "[]", false
	case t.IsBoolean(), t.IsNumeric():
		return "", true
	default:
		return "", false
	}
}

// DefaultValue returns the synthetic value used to backfill a required field
// that has no value on the source.
func (t ValueType) DefaultValue(now time.Time) string {
	switch t {
	case TypeBoolean:
		return "false"
	case TypeNumberInteger:
		return "0"
	case TypeNumberDecimal:
		return "0.0"
	case TypeDate:
		return now.Format("2006-01-02")
	case TypeDateTime:
		return now.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}
