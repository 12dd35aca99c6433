package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

func TestBackfill(t *testing.T) {
	reqs := []Requirement{
		{Key: "featured", Type: model.TypeBoolean},
		{Key: "launched", Type: model.TypeDate},
		{Key: "rank", Type: model.TypeNumberInteger},
	}
	fields := []model.FieldValue{
		{Key: "title", Type: model.TypeSingleLineText, Value: "Chair"},
		{Key: "rank", Type: model.TypeNumberInteger, Value: ""},
	}

	out := Backfill(fields, reqs, fixedNow)

	assert.Equal(t, []model.FieldValue{
		{Key: "title", Type: model.TypeSingleLineText, Value: "Chair"},
		{Key: "rank", Type: model.TypeNumberInteger, Value: "0"},
		{Key: "featured", Type: model.TypeBoolean, Value: "false"},
		{Key: "launched", Type: model.TypeDate, Value: "2024-05-17"},
	}, out)
	assert.Equal(t, "", fields[1].Value, "input is not modified")
}

func TestBackfill_KeepsPresentValues(t *testing.T) {
	fields := []model.FieldValue{{Key: "featured", Type: model.TypeBoolean, Value: "true"}}
	out := Backfill(fields, []Requirement{{Key: "featured", Type: model.TypeBoolean}}, fixedNow)
	assert.Equal(t, fields, out)
}

func designerDefinition() model.Definition {
	return model.Definition{
		Kind: model.KindTypeDefinition, Type: "designer", Name: "Designer",
		Fields: []model.FieldSpec{
			{Key: "name", Type: model.TypeSingleLineText},
			{Key: "featured", Type: model.TypeBoolean, Required: true},
			{Key: "portfolio", Type: model.TypeProductReference},
		},
	}
}

func TestDataReconciler_MetaobjectsCreateWithBackfill(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(designerDefinition())
	target.AddDefinition(designerDefinition())
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: []model.FieldValue{
		{Key: "name", Value: "Jane"},
	}})

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 1, result.Created)
	e, ok := target.Entity(model.EntityMetaobject, "jane")
	require.True(t, ok)
	featured, ok := e.Field("featured")
	require.True(t, ok)
	assert.Equal(t, "false", featured.Value)
	name, _ := e.Field("name")
	assert.Equal(t, model.TypeSingleLineText, name.Type)
}

func TestDataReconciler_MetaobjectReferenceBlankedOnCreate(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(designerDefinition())
	target.AddDefinition(designerDefinition())
	product := source.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "only-on-source"})
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: []model.FieldValue{
		{Key: "featured", Value: "true"},
		{Key: "portfolio", Value: product.ID},
	}})

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")

	require.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.References.Blanked)
	calls := target.CallsOf(remote.OpCreateEntity)
	require.Len(t, calls, 1)
	portfolio, ok := calls[0].Entity.Field("portfolio")
	require.True(t, ok)
	assert.Equal(t, "", portfolio.Value)
}

func TestDataReconciler_MetaobjectsUpdateAndIdempotence(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(designerDefinition())
	target.AddDefinition(designerDefinition())
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: []model.FieldValue{
		{Key: "name", Value: "Jane"}, {Key: "featured", Value: "true"},
	}})
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "ola", Fields: []model.FieldValue{
		{Key: "name", Value: "Ola"}, {Key: "featured", Value: "false"},
	}})
	target.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: []model.FieldValue{
		{Key: "name", Type: model.TypeSingleLineText, Value: "J."}, {Key: "featured", Type: model.TypeBoolean, Value: "true"},
	}})

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	first := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 1, first.Updated)

	jane, _ := target.Entity(model.EntityMetaobject, "jane")
	name, _ := jane.Field("name")
	assert.Equal(t, "Jane", name.Value)

	second := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Len(t, target.Entities(model.EntityMetaobject), 2)
}

func TestDataReconciler_SkipUnchanged(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(designerDefinition())
	target.AddDefinition(designerDefinition())
	fields := []model.FieldValue{
		{Key: "name", Type: model.TypeSingleLineText, Value: "Jane"},
		{Key: "featured", Type: model.TypeBoolean, Value: "true"},
	}
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: fields})
	target.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: fields})

	opts := testOptions()
	opts.SkipUnchanged = true
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, target.Writes())
}

func TestDataReconciler_TypesFilterAndMissingTargetType(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(designerDefinition())
	source.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "author"})
	source.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "brand"})
	target.AddDefinition(designerDefinition())
	target.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "brand"})
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: []model.FieldValue{{Key: "featured", Value: "true"}}})
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "author", Handle: "kim"})
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "brand", Handle: "acme"})

	opts := testOptions()
	opts.Types = []string{"author", "brand"}
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped, "kim has no author definition on the target")
	_, ok := target.Entity(model.EntityMetaobject, "acme")
	assert.True(t, ok)
	_, ok = target.Entity(model.EntityMetaobject, "jane")
	assert.False(t, ok, "designer was not selected")
}

func TestDataReconciler_TypesMatchIgnoringCase(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "designer"})
	target.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "designer"})
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane"})

	opts := testOptions()
	opts.Types = []string{"Designer"}
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(context.Background(), NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 1, result.Created)
}

func TestDataReconciler_HandleFilter(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "designer"})
	target.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "designer"})
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane"})
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "kim"})

	opts := testOptions()
	opts.Handle = "kim"
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(context.Background(), NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 1, result.Created)
	_, ok := target.Entity(model.EntityMetaobject, "kim")
	assert.True(t, ok)
	_, ok = target.Entity(model.EntityMetaobject, "jane")
	assert.False(t, ok)
}

func TestDataReconciler_KeyRestrictsOwnerFields(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair", Fields: []model.FieldValue{
		{Namespace: "custom", Key: "material", Type: model.TypeSingleLineText, Value: "Oak"},
		{Namespace: "custom", Key: "care", Type: model.TypeSingleLineText, Value: "Oil yearly"},
	}})
	chair := target.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair"})

	opts := testOptions()
	opts.Key = "custom.material"
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(context.Background(), NewScope(nil), productsKind(), "")

	assert.Equal(t, 1, result.Updated)
	calls := target.CallsOf(remote.OpSetFields)
	require.Len(t, calls, 1)
	assert.Equal(t, []remote.FieldWrite{{
		OwnerID: chair.ID, Namespace: "custom", Key: "material", Type: model.TypeSingleLineText, Value: "Oak",
	}}, calls[0].Writes)
}

func TestDataReconciler_LimitSpansTypes(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	for _, typ := range []string{"author", "brand"} {
		source.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: typ})
		target.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: typ})
		for i := 0; i < 5; i++ {
			source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: typ, Handle: fmt.Sprintf("%s-%d", typ, i)})
		}
	}

	opts := testOptions()
	opts.Limit = 7
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 7, result.Created)
	assert.Equal(t, 7, writesOf(target, remote.OpCreateEntity))
}

func TestDataReconciler_ProductMetafields(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(fieldDefinition("custom", "material", model.TypeSingleLineText))
	source.AddDefinition(fieldDefinition("specs", "weight", model.TypeNumberDecimal))
	source.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair", Fields: []model.FieldValue{
		{Namespace: "custom", Key: "material", Value: "Oak"},
		{Namespace: "specs", Key: "weight", Value: "4.5"},
	}})
	chair := target.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair"})

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(ctx, NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 1, result.Updated)
	calls := target.CallsOf(remote.OpSetFields)
	require.Len(t, calls, 1)
	assert.Equal(t, []remote.FieldWrite{{
		OwnerID: chair.ID, Namespace: "custom", Key: "material", Type: model.TypeSingleLineText, Value: "Oak",
	}}, calls[0].Writes)
}

func TestDataReconciler_ProductsBatchedAcrossEntities(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(fieldDefinition("custom", "material", model.TypeSingleLineText))
	for i := 0; i < 30; i++ {
		handle := fmt.Sprintf("p%02d", i)
		source.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: handle, Fields: []model.FieldValue{
			{Namespace: "custom", Key: "material", Value: "Oak"},
		}})
		target.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: handle})
	}

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(ctx, NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 30, result.Updated)
	calls := target.CallsOf(remote.OpSetFields)
	require.Len(t, calls, 2)
	assert.Len(t, calls[0].Writes, 25)
	assert.Len(t, calls[1].Writes, 5)
}

func TestDataReconciler_PartialFieldRejection(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(fieldDefinition("custom", "material", model.TypeSingleLineText))
	source.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair", Fields: []model.FieldValue{{Namespace: "custom", Key: "material", Value: "Oak"}}})
	source.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "table", Fields: []model.FieldValue{{Namespace: "custom", Key: "material", Value: "Pine"}}})
	target.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair"})
	target.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "table"})
	target.Reject(remote.OpSetFields, "custom.material", remote.UserError{Message: "Value is too long", Code: remote.CodeInvalid})

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(ctx, NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Updated)
	table, _ := target.Entity(model.EntityProduct, "table")
	material, _ := table.Field("custom.material")
	assert.Equal(t, "Pine", material.Value)
}

func TestDataReconciler_UnmatchedProductCreated(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(fieldDefinition("custom", "material", model.TypeSingleLineText))
	source.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair", Title: "Chair", Fields: []model.FieldValue{
		{Namespace: "custom", Key: "material", Value: "Oak"},
	}})

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(context.Background(), NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 1, result.Created)
	chair, ok := target.Entity(model.EntityProduct, "chair")
	require.True(t, ok)
	assert.Equal(t, "Chair", chair.Title)
}

func TestDataReconciler_UnmatchedVariantSkipped(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddEntity(model.Entity{Kind: model.EntityVariant, SKU: "S1", Fields: []model.FieldValue{
		{Namespace: "custom", Key: "fit", Value: "slim"},
	}})

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(context.Background(), NewScope(nil), variantsKind(), "custom")

	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, target.Writes())
}

func TestDataReconciler_UnsupportedKind(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddEntity(model.Entity{Kind: model.EntityOrder, Handle: "#1001"})
	orders, ok := model.LookupOwnerKind("orders")
	require.True(t, ok)

	r := NewDataReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(context.Background(), NewScope(nil), orders, "custom")

	assert.Equal(t, Result{}, result)
	assert.Empty(t, source.Calls())
}

func TestDataReconciler_ForceRecreate(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(designerDefinition())
	target.AddDefinition(designerDefinition())
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: []model.FieldValue{{Key: "featured", Value: "true"}}})
	old := target.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: []model.FieldValue{
		{Key: "featured", Type: model.TypeBoolean, Value: "false"}, {Key: "name", Type: model.TypeSingleLineText, Value: "stale"},
	}})

	opts := testOptions()
	opts.ForceRecreate = true
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 1, result.Created)
	jane, ok := target.Entity(model.EntityMetaobject, "jane")
	require.True(t, ok)
	assert.NotEqual(t, old.ID, jane.ID)
	_, ok = jane.Field("name")
	assert.False(t, ok, "recreated entity carries only source fields")
}

func TestDataReconciler_ForceRecreateFallsBackToUpdate(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(designerDefinition())
	target.AddDefinition(designerDefinition())
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane", Fields: []model.FieldValue{{Key: "featured", Value: "true"}}})
	old := target.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane"})
	target.Fail(remote.OpDeleteEntity, "jane", errors.New("delete is not permitted"))

	opts := testOptions()
	opts.ForceRecreate = true
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)
	jane, _ := target.Entity(model.EntityMetaobject, "jane")
	assert.Equal(t, old.ID, jane.ID)
}

func TestDataReconciler_ForceRecreateUpdatesOwnersInPlace(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(fieldDefinition("custom", "material", model.TypeSingleLineText))
	source.AddDefinition(fieldDefinition("specs", "size", model.TypeSingleLineText))
	source.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair", Fields: []model.FieldValue{
		{Namespace: "custom", Key: "material", Value: "Oak"},
		{Namespace: "specs", Key: "size", Value: "L"},
	}})
	chair := target.AddEntity(model.Entity{Kind: model.EntityProduct, Handle: "chair", Fields: []model.FieldValue{
		{Namespace: "custom", Key: "material", Type: model.TypeSingleLineText, Value: "Pine"},
		{Namespace: "specs", Key: "size", Type: model.TypeSingleLineText, Value: "M"},
	}})

	opts := testOptions()
	opts.ForceRecreate = true
	r := NewDataReconciler(source, target, NewExecutor(target), opts)
	for _, ns := range []string{"custom", "specs"} {
		result := r.Reconcile(ctx, NewScope(nil), productsKind(), ns)
		assert.Equal(t, 0, result.Created, ns)
		assert.Equal(t, 1, result.Updated, ns)
	}

	assert.Zero(t, writesOf(target, remote.OpDeleteEntity))
	assert.Zero(t, writesOf(target, remote.OpCreateEntity))
	got, ok := target.Entity(model.EntityProduct, "chair")
	require.True(t, ok)
	assert.Equal(t, chair.ID, got.ID)
	material, _ := got.Field("custom.material")
	assert.Equal(t, "Oak", material.Value)
	size, _ := got.Field("specs.size")
	assert.Equal(t, "L", size.Value)
}

func TestDataReconciler_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(designerDefinition())
	target.AddDefinition(designerDefinition())
	source.AddEntity(model.Entity{Kind: model.EntityMetaobject, Type: "designer", Handle: "jane"})
	rec := &memoryRecorder{}

	r := NewDataReconciler(source, target, NewExecutor(target, WithDryRun(true), WithRecorder(rec)), testOptions())
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 1, result.Created)
	assert.Empty(t, target.Writes())
	require.Len(t, rec.records, 1)
	assert.Equal(t, OutcomeDryRun, rec.records[0].Outcome)
}
