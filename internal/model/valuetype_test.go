package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValueType_Classification(t *testing.T) {
	tests := []struct {
		typ       ValueType
		list      bool
		reference bool
		base      ValueType
	}{
		{TypeBoolean, false, false, TypeBoolean},
		{TypeProductReference, false, true, TypeProductReference},
		{"list.product_reference", true, true, TypeProductReference},
		{"list.single_line_text_field", true, false, TypeSingleLineText},
		{TypeFileReference, false, true, TypeFileReference},
		{TypeMixedReference, false, true, TypeMixedReference},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.list, tt.typ.IsList())
			assert.Equal(t, tt.reference, tt.typ.IsReference())
			assert.Equal(t, tt.base, tt.typ.Base())
		})
	}
}

func TestValueType_ReferenceResource(t *testing.T) {
	r, ok := ValueType("list.variant_reference").ReferenceResource()
	assert.True(t, ok)
	assert.Equal(t, ResourceVariant, r)

	r, ok = TypeFileReference.ReferenceResource()
	assert.True(t, ok)
	assert.Empty(t, r, "file references take their kind from the gid")

	_, ok = TypeJSON.ReferenceResource()
	assert.False(t, ok)
}

func TestValueType_Blank(t *testing.T) {
	tests := []struct {
		typ   ValueType
		value string
		omit  bool
	}{
		{TypeProductReference, "", false},
		{"list.product_reference", "[]", false},
		{TypeBoolean, "", true},
		{TypeNumberInteger, "", true},
		{TypeNumberDecimal, "", true},
		{TypeSingleLineText, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			value, omit := tt.typ.Blank()
			assert.Equal(t, tt.value, value)
			assert.Equal(t, tt.omit, omit)
		})
	}
}

func TestValueType_DefaultValue(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "false", TypeBoolean.DefaultValue(now))
	assert.Equal(t, "0", TypeNumberInteger.DefaultValue(now))
	assert.Equal(t, "0.0", TypeNumberDecimal.DefaultValue(now))
	assert.Equal(t, "2024-03-09", TypeDate.DefaultValue(now))
	assert.Equal(t, "2024-03-09T15:04:05Z", TypeDateTime.DefaultValue(now))
	assert.Equal(t, "", TypeSingleLineText.DefaultValue(now))
	assert.Equal(t, "", ValueType("list.product_reference").DefaultValue(now))
}

func TestListOf(t *testing.T) {
	assert.Equal(t, ValueType("list.page_reference"), ListOf(TypePageReference))
	assert.Equal(t, ValueType("list.page_reference"), ListOf("list.page_reference"))
}
