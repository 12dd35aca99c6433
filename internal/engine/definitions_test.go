package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

func TestPlanDefinitions(t *testing.T) {
	source := []model.Definition{
		fieldDefinition("custom", "warranty_period", model.TypeNumberInteger),
		fieldDefinition("custom", "care_guide", model.TypeMultiLineText),
	}
	target := []model.Definition{
		{ID: "gid://shopify/MetafieldDefinition/9", Kind: model.KindFieldDefinition, OwnerType: "PRODUCT",
			Namespace: "custom", Key: "warranty_period", ValueType: model.TypeNumberInteger},
	}

	intents := PlanDefinitions(source, target)
	require.Len(t, intents, 2)
	assert.Equal(t, ActionUpdate, intents[0].Action)
	assert.Equal(t, "custom.warranty_period", intents[0].Key)
	assert.Equal(t, "gid://shopify/MetafieldDefinition/9", intents[0].Target.ID)
	assert.Equal(t, ActionCreate, intents[1].Action)
	assert.Equal(t, "custom.care_guide", intents[1].Key)
}

func TestPlanDefinitions_NaturalKeyIgnoresCaseAndIDs(t *testing.T) {
	source := []model.Definition{{Kind: model.KindTypeDefinition, Type: "Designer", ID: "gid://shopify/MetaobjectDefinition/1"}}
	target := []model.Definition{{Kind: model.KindTypeDefinition, Type: "designer", ID: "gid://shopify/MetaobjectDefinition/77"}}

	intents := PlanDefinitions(source, target)
	require.Len(t, intents, 1)
	assert.Equal(t, ActionUpdate, intents[0].Action)
}

func TestDefinitionReconciler_TypesFilter(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "designer"})
	source.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "fabric"})

	opts := testOptions()
	opts.Types = []string{"designer"}
	opts.Handle = "ada"
	r := NewDefinitionReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(context.Background(), NewScope(nil), metaobjectsKind(), "")

	assert.Equal(t, 1, result.Created)
	_, ok := target.Definition(model.KindTypeDefinition, "designer")
	assert.True(t, ok)
	_, ok = target.Definition(model.KindTypeDefinition, "fabric")
	assert.False(t, ok)
}

func TestDefinitionReconciler_CreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(fieldDefinition("custom", "warranty_period", model.TypeNumberInteger))
	source.AddDefinition(fieldDefinition("custom", "care_guide", model.TypeMultiLineText))
	existing := fieldDefinition("custom", "warranty_period", model.TypeNumberInteger)
	existing.Name = "Old name"
	target.AddDefinition(existing)

	r := NewDefinitionReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(ctx, NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Failed)

	updated, ok := target.Definition(model.KindFieldDefinition, "custom.warranty_period")
	require.True(t, ok)
	assert.Equal(t, "warranty_period", updated.Name)
	_, ok = target.Definition(model.KindFieldDefinition, "custom.care_guide")
	assert.True(t, ok)
}

func TestDefinitionReconciler_Idempotent(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(model.Definition{
		Kind: model.KindTypeDefinition, Type: "designer", Name: "Designer",
		Fields: []model.FieldSpec{{Key: "name", Type: model.TypeSingleLineText, Required: true}},
	})

	r := NewDefinitionReconciler(source, target, NewExecutor(target), testOptions())
	first := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")
	assert.Equal(t, 1, first.Created)

	second := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)
	assert.Len(t, target.Definitions(), 1)
}

func TestDefinitionReconciler_SkipUnchanged(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	def := fieldDefinition("custom", "warranty_period", model.TypeNumberInteger)
	def.Validations = []model.ValidationRule{{Name: RuleMin, Value: "0"}}
	source.AddDefinition(def)
	target.AddDefinition(def)

	opts := testOptions()
	opts.SkipUnchanged = true
	r := NewDefinitionReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(ctx, NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, writesOf(target, remote.OpUpdateDefinition))
}

func TestDefinitionReconciler_Limit(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		source.AddDefinition(fieldDefinition("custom", key, model.TypeSingleLineText))
	}

	opts := testOptions()
	opts.Limit = 3
	r := NewDefinitionReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(ctx, NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 3, writesOf(target, remote.OpCreateDefinition))
}

func TestDefinitionReconciler_EmptySourceIsNoOp(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")

	r := NewDefinitionReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(context.Background(), NewScope(nil), productsKind(), "custom")

	assert.Equal(t, Result{}, result)
	assert.Empty(t, target.Writes())
}

func TestDefinitionReconciler_TargetUnavailableSkipsPass(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(fieldDefinition("custom", "a", model.TypeSingleLineText))
	source.AddDefinition(fieldDefinition("custom", "b", model.TypeSingleLineText))
	target.Fail(remote.OpFetchDefinitions, "", errors.New("503 service unavailable"))

	r := NewDefinitionReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(context.Background(), NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, target.Writes())
}

func TestDefinitionReconciler_ItemFailureContinues(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(fieldDefinition("custom", "a", model.TypeSingleLineText))
	source.AddDefinition(fieldDefinition("custom", "b", model.TypeSingleLineText))
	target.Reject(remote.OpCreateDefinition, "custom.a", remote.UserError{Message: "Key is invalid", Code: remote.CodeInvalid})

	r := NewDefinitionReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(context.Background(), NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Created)
}

func TestDefinitionReconciler_CreatePayload(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	srcAuthor := source.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "author"})
	tgtAuthor := target.AddDefinition(model.Definition{Kind: model.KindTypeDefinition, Type: "author"})
	source.AddDefinition(model.Definition{
		Kind: model.KindTypeDefinition, Type: "book", Name: "Book",
		Capabilities: model.NewCapabilities(model.CapabilityPublishable, model.CapabilityAdminFilterable),
		Fields: []model.FieldSpec{
			{Key: "author", Type: model.TypeMetaobjectReference, Validations: []model.ValidationRule{
				{Name: RuleMetaobjectDefinition, Value: srcAuthor.ID},
			}},
			{Key: "score", Type: model.TypeRating},
			{Key: "genre", Type: model.TypeSingleLineText, Validations: []model.ValidationRule{
				{Name: RuleChoices, Value: `["a","b","a"]`},
				{Name: RuleSchema, Value: "{}"},
			}},
		},
	})

	opts := testOptions()
	opts.Key = "book"
	r := NewDefinitionReconciler(source, target, NewExecutor(target), opts)
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")
	require.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.References.Transformed)

	calls := target.CallsOf(remote.OpCreateDefinition)
	require.Len(t, calls, 1)
	payload := calls[0].Definition
	assert.Empty(t, payload.ID)
	assert.Equal(t, model.NewCapabilities(model.CapabilityPublishable), payload.Capabilities)

	author, _ := payload.Field("author")
	assert.Equal(t, []model.ValidationRule{{Name: RuleMetaobjectDefinition, Value: tgtAuthor.ID}}, author.Validations)
	score, _ := payload.Field("score")
	assert.Equal(t, []model.ValidationRule{
		{Name: RuleScaleMax, Value: "5"},
		{Name: RuleScaleMin, Value: "1"},
	}, score.Validations)
	genre, _ := payload.Field("genre")
	assert.Equal(t, []model.ValidationRule{{Name: RuleChoices, Value: `["a","b"]`}}, genre.Validations)
}

func TestDefinitionReconciler_UpdateAddsMissingFields(t *testing.T) {
	ctx := context.Background()
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt")
	source.AddDefinition(model.Definition{
		Kind: model.KindTypeDefinition, Type: "designer", Name: "Designer",
		Fields: []model.FieldSpec{
			{Key: "name", Name: "Full name", Type: model.TypeSingleLineText},
			{Key: "bio", Type: model.TypeMultiLineText},
		},
	})
	target.AddDefinition(model.Definition{
		Kind: model.KindTypeDefinition, Type: "designer", Name: "Designer",
		Fields: []model.FieldSpec{{Key: "name", Name: "Name", Type: model.TypeSingleLineText}},
	})

	r := NewDefinitionReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(ctx, NewScope(nil), metaobjectsKind(), "")
	require.Equal(t, 1, result.Updated)

	calls := target.CallsOf(remote.OpUpdateDefinition)
	require.Len(t, calls, 1)
	ops := calls[0].Update.FieldOps
	require.Len(t, ops, 2)
	assert.False(t, ops[0].Create)
	assert.True(t, ops[1].Create)

	d, ok := target.Definition(model.KindTypeDefinition, "designer")
	require.True(t, ok)
	name, _ := d.Field("name")
	assert.Equal(t, "Full name", name.Name)
	_, ok = d.Field("bio")
	assert.True(t, ok)
}

func TestDefinitionReconciler_DowngradesPinnedCreate(t *testing.T) {
	source := remote.NewMemory("src")
	target := remote.NewMemory("tgt", remote.WithPinLimit(1))
	pinned := fieldDefinition("custom", "pinned_one", model.TypeSingleLineText)
	pinned.Pinned = true
	target.AddDefinition(fieldDefinition("custom", "other", model.TypeSingleLineText))
	existing := fieldDefinition("custom", "already_pinned", model.TypeSingleLineText)
	existing.Pinned = true
	target.AddDefinition(existing)
	source.AddDefinition(pinned)

	r := NewDefinitionReconciler(source, target, NewExecutor(target), testOptions())
	result := r.Reconcile(context.Background(), NewScope(nil), productsKind(), "custom")

	assert.Equal(t, 1, result.Created)
	d, ok := target.Definition(model.KindFieldDefinition, "custom.pinned_one")
	require.True(t, ok)
	assert.False(t, d.Pinned)
}
