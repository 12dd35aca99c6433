package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsync/internal/model"
)

func designerDefinition() model.Definition {
	return model.Definition{
		Kind: model.KindTypeDefinition,
		Type: "designer",
		Name: "Designer",
		Fields: []model.FieldSpec{
			{Key: "name", Name: "Name", Type: model.TypeSingleLineText, Required: true},
			{Key: "featured", Name: "Featured", Type: model.TypeBoolean},
		},
	}
}

func TestMemory_FetchPaginates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("src", WithPageSize(2))
	for _, h := range []string{"a", "b", "c", "d", "e"} {
		m.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: h})
	}

	first, page, err := m.FetchEntities(ctx, EntityQuery{Kind: model.EntityProduct}, "")
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.True(t, page.HasNextPage)

	all, err := CollectEntities(ctx, m, EntityQuery{Kind: model.EntityProduct})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "a", all[0].Handle)
	assert.Equal(t, "e", all[4].Handle)
}

func TestMemory_FetchDefinitionsFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("src")
	m.AddDefinition(model.Definition{Kind: model.KindFieldDefinition, OwnerType: "PRODUCT", Namespace: "custom", Key: "a"})
	m.AddDefinition(model.Definition{Kind: model.KindFieldDefinition, OwnerType: "PRODUCT", Namespace: "specs", Key: "b"})
	m.AddDefinition(model.Definition{Kind: model.KindFieldDefinition, OwnerType: "COLLECTION", Namespace: "custom", Key: "c"})

	defs, err := CollectDefinitions(ctx, m, DefinitionQuery{Kind: model.KindFieldDefinition, OwnerType: "PRODUCT"})
	require.NoError(t, err)
	assert.Len(t, defs, 2)

	defs, err = CollectDefinitions(ctx, m, DefinitionQuery{Kind: model.KindFieldDefinition, OwnerType: "PRODUCT", Namespace: "custom"})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "custom.a", defs[0].NaturalKey())

	defs, err = CollectDefinitions(ctx, m, DefinitionQuery{Kind: model.KindFieldDefinition, OwnerType: "PRODUCT", Key: "specs.b"})
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestMemory_LookupAndFind(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("tgt")
	def := m.AddDefinition(designerDefinition())
	jane := m.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane"})
	variant := m.AddEntity(model.Entity{
		Kind: model.EntityVariant, OwnerHandle: "shirt",
		Options: []model.SelectedOption{{Name: "Size", Value: "M"}},
	})
	file := m.AddFile(model.ResourceMediaImage, "hero.png")

	key, err := m.LookupReference(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefKey{Resource: model.ResourceMetaobjectDefinition, Type: "designer"}, key)

	key, err = m.LookupReference(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane", key.Handle)
	assert.Equal(t, "designer", key.Type)

	id, err := m.FindReference(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, jane.ID, id)

	id, err = m.FindReference(ctx, model.RefKey{
		Resource: model.ResourceVariant, OwnerHandle: "shirt",
		Options: []model.SelectedOption{{Name: "Size", Value: "M"}},
	})
	require.NoError(t, err)
	assert.Equal(t, variant.ID, id)

	id, err = m.FindReference(ctx, model.RefKey{Resource: model.ResourceMediaImage, Handle: "hero.png"})
	require.NoError(t, err)
	assert.Equal(t, file, id)

	_, err = m.FindReference(ctx, model.RefKey{Resource: model.ResourceVariant, SKU: "NOPE"})
	assert.True(t, IsNotFound(err))

	_, err = m.LookupReference(ctx, "gid://shopify/Product/missing")
	assert.True(t, IsNotFound(err))
}

func TestMemory_CreateDefinitionPinLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("tgt", WithPinLimit(1))
	m.AddDefinition(model.Definition{Kind: model.KindFieldDefinition, OwnerType: "PRODUCT", Namespace: "custom", Key: "a", Pinned: true})

	d := model.Definition{Kind: model.KindFieldDefinition, OwnerType: "PRODUCT", Namespace: "custom", Key: "b", Pinned: true}
	_, err := m.CreateDefinition(ctx, d)
	require.Error(t, err)
	assert.True(t, IsFeatureLimit(err))

	d.Pinned = false
	id, err := m.CreateDefinition(ctx, d)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = m.CreateDefinition(ctx, d)
	ue, ok := AsUserErrors(err)
	require.True(t, ok)
	assert.True(t, ue.HasCode(CodeTaken))
}

func TestMemory_CreateDefinitionRejectsForeignReference(t *testing.T) {
	m := NewMemory("tgt")
	_, err := m.CreateDefinition(context.Background(), model.Definition{
		Kind: model.KindFieldDefinition, OwnerType: "PRODUCT", Namespace: "custom", Key: "designer",
		ValueType: model.TypeMetaobjectReference,
		Validations: []model.ValidationRule{
			{Name: "metaobject_definition_id", Value: "gid://shopify/MetaobjectDefinition/src-1"},
		},
	})
	ue, ok := AsUserErrors(err)
	require.True(t, ok)
	assert.True(t, ue.HasCode(CodeInvalid))
}

func TestMemory_CreateEntityRequiresFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("tgt")
	m.AddDefinition(designerDefinition())

	_, err := m.CreateEntity(ctx, model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane"})
	ue, ok := AsUserErrors(err)
	require.True(t, ok)
	assert.True(t, ue.HasCode(CodeBlank))

	id, err := m.CreateEntity(ctx, model.Entity{
		Kind: model.EntityMetaobject, Type: "designer", Handle: "jane",
		Fields: []model.FieldValue{{Key: "name", Value: "Jane", Type: model.TypeSingleLineText}},
	})
	require.NoError(t, err)
	stored, ok := m.Entity(model.EntityMetaobject, "jane")
	require.True(t, ok)
	assert.Equal(t, id, stored.ID)
}

func TestMemory_SetFieldsPartialRejection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("tgt")
	p := m.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "shirt"})
	m.Reject(OpSetFields, "custom.b", UserError{Message: "bad value", Code: CodeInvalid})

	rejected, err := m.SetFields(ctx, []FieldWrite{
		{OwnerID: p.ID, Namespace: "custom", Key: "a", Type: model.TypeSingleLineText, Value: "x"},
		{OwnerID: p.ID, Namespace: "custom", Key: "b", Type: model.TypeSingleLineText, Value: "y"},
		{OwnerID: "gid://shopify/Product/none", Namespace: "custom", Key: "c", Type: model.TypeSingleLineText, Value: "z"},
	})
	require.NoError(t, err)
	require.Len(t, rejected, 2)
	assert.Len(t, rejected.ForIndex(1), 1)
	assert.Len(t, rejected.ForIndex(2), 1)
	assert.Empty(t, rejected.ForIndex(0))

	stored, _ := m.Entity(model.EntityProduct, "shirt")
	f, ok := stored.Field("custom.a")
	require.True(t, ok)
	assert.Equal(t, "x", f.Value)
	_, ok = stored.Field("custom.b")
	assert.False(t, ok)
}

func TestMemory_SetFieldsBatchLimit(t *testing.T) {
	m := NewMemory("tgt")
	writes := make([]FieldWrite, MaxFieldWrites+1)
	_, err := m.SetFields(context.Background(), writes)
	assert.Error(t, err)
}

func TestMemory_FailQueue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("tgt")
	boom := errors.New("connection reset")
	m.Fail(OpCreateEntity, "shirt", boom)

	_, err := m.CreateEntity(ctx, model.Entity{Kind: model.EntityProduct, Handle: "shirt"})
	assert.ErrorIs(t, err, boom)

	_, err = m.CreateEntity(ctx, model.Entity{Kind: model.EntityProduct, Handle: "shirt"})
	assert.NoError(t, err)

	writes := m.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, OpCreateEntity, writes[0].Op)
}

func TestMemory_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("tgt")
	p := m.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "shirt", Fields: []model.FieldValue{
		{Namespace: "custom", Key: "a", Value: "old"},
	}})

	require.NoError(t, m.UpdateEntity(ctx, p.ID, model.Entity{Kind: model.EntityProduct, Handle: "shirt", Fields: []model.FieldValue{
		{Namespace: "custom", Key: "a", Value: "new"},
	}}))
	stored, _ := m.Entity(model.EntityProduct, "shirt")
	f, _ := stored.Field("custom.a")
	assert.Equal(t, "new", f.Value)

	require.NoError(t, m.DeleteEntity(ctx, model.EntityProduct, p.ID))
	_, ok := m.Entity(model.EntityProduct, "shirt")
	assert.False(t, ok)

	err := m.DeleteEntity(ctx, model.EntityProduct, p.ID)
	ue, ok := AsUserErrors(err)
	require.True(t, ok)
	assert.True(t, ue.HasCode(CodeMissing))
}
