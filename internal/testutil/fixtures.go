package testutil

import (
	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

// Text returns a single line text field value.
func Text(key, value string) model.FieldValue {
	return model.FieldValue{Key: key, Value: value, Type: model.TypeSingleLineText}
}

// Metafield returns a namespaced field value.
func Metafield(namespace, key string, t model.ValueType, value string) model.FieldValue {
	return model.FieldValue{Namespace: namespace, Key: key, Type: t, Value: value}
}

// TypeDefinition returns a metaobject definition whose fields are all
// single line text; the first field is the display name and is required.
func TypeDefinition(typ string, fieldKeys ...string) model.Definition {
	d := model.Definition{Kind: model.KindTypeDefinition, Type: typ, Name: typ}
	for i, key := range fieldKeys {
		d.Fields = append(d.Fields, model.FieldSpec{Key: key, Name: key, Type: model.TypeSingleLineText, Required: i == 0})
	}
	if len(fieldKeys) > 0 {
		d.DisplayNameKey = fieldKeys[0]
	}
	return d
}

// FieldDefinition returns a metafield definition for ownerType.
func FieldDefinition(ownerType, namespace, key string, t model.ValueType) model.Definition {
	return model.Definition{
		Kind: model.KindFieldDefinition, OwnerType: ownerType,
		Namespace: namespace, Key: key, Name: key, ValueType: t,
	}
}

// Metaobject returns a metaobject entry of typ.
func Metaobject(typ, handle string, fields ...model.FieldValue) model.Entity {
	return model.Entity{Kind: model.EntityMetaobject, Type: typ, Handle: handle, Fields: fields}
}

// Product returns a product carrying metafields.
func Product(handle, title string, fields ...model.FieldValue) model.Entity {
	return model.Entity{Kind: model.EntityProduct, Handle: handle, Title: title, Fields: fields}
}

// Shop creates an in-memory deployment seeded with defs and entities, in
// that order.
func Shop(name string, defs []model.Definition, entities ...model.Entity) *remote.Memory {
	m := remote.NewMemory(name)
	for _, d := range defs {
		m.AddDefinition(d)
	}
	for _, e := range entities {
		m.AddEntity(e)
	}
	return m
}
