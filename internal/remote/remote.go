package remote

import (
	"context"

	"github.com/roach88/shopsync/internal/model"
)

// MaxFieldWrites is the largest number of field writes the platform accepts
// in one SetFields call.
const MaxFieldWrites = 25

// Page is the cursor information returned with every paginated read. An
// empty EndCursor with HasNextPage false marks the last page.
type Page struct {
	HasNextPage bool
	EndCursor   string
}

// DefinitionQuery selects definitions of one kind.
type DefinitionQuery struct {
	Kind model.DefinitionKind

	// OwnerType restricts field definitions to one owner (PRODUCT, ...).
	OwnerType string

	// Namespace restricts field definitions to one namespace. Empty means
	// every namespace.
	Namespace string

	// Key restricts the result to one natural key: the type for type
	// definitions, the key or "namespace.key" for field definitions.
	Key string
}

// EntityQuery selects entities of one kind.
type EntityQuery struct {
	Kind model.EntityKind

	// Type selects metaobject entries of one definition type.
	Type string

	// Handle restricts the result to the entity with this natural key.
	Handle string

	// ID restricts the result to one entity id.
	ID string
}

// DefinitionUpdate carries the mutable attributes of a definition. The
// owner type, namespace, key and value type are immutable and never sent.
type DefinitionUpdate struct {
	Name           string
	Description    string
	DisplayNameKey string
	Validations    []model.ValidationRule
	Capabilities   model.Capabilities
	Pinned         bool

	// FieldOps adds or updates fields of a type definition.
	FieldOps []FieldOp
}

// FieldOp is one field change inside a type definition update. Create
// operations carry the full field; updates only its mutable attributes.
type FieldOp struct {
	Create bool
	Field  model.FieldSpec
}

// FieldWrite sets one field value on one owner entity.
type FieldWrite struct {
	OwnerID   string
	Namespace string
	Key       string
	Type      model.ValueType
	Value     string
}

// FieldKey returns "namespace.key".
func (w FieldWrite) FieldKey() string {
	return w.Namespace + "." + w.Key
}

// Fetcher is the read side of a deployment.
type Fetcher interface {
	// FetchDefinitions returns one page of definitions after cursor.
	FetchDefinitions(ctx context.Context, q DefinitionQuery, cursor string) ([]model.Definition, Page, error)

	// FetchEntities returns one page of entities after cursor.
	FetchEntities(ctx context.Context, q EntityQuery, cursor string) ([]model.Entity, Page, error)

	// LookupReference returns the natural key of the object with the given
	// gid. Returns an error wrapping ErrNotFound if there is none.
	LookupReference(ctx context.Context, id string) (model.RefKey, error)

	// FindReference returns the gid of the object with the given natural
	// key. Returns an error wrapping ErrNotFound if there is none.
	FindReference(ctx context.Context, key model.RefKey) (string, error)
}

// Mutator is the write side of a deployment. Every method may return a
// transport error or UserErrors.
type Mutator interface {
	CreateDefinition(ctx context.Context, d model.Definition) (string, error)
	UpdateDefinition(ctx context.Context, target model.Definition, u DefinitionUpdate) error

	CreateEntity(ctx context.Context, e model.Entity) (string, error)
	UpdateEntity(ctx context.Context, id string, e model.Entity) error
	DeleteEntity(ctx context.Context, kind model.EntityKind, id string) error

	// SetFields writes at most MaxFieldWrites values. Rejections of
	// individual writes are returned as UserErrors whose Index points into
	// writes; the other writes were applied.
	SetFields(ctx context.Context, writes []FieldWrite) (UserErrors, error)
}

// Remote is a complete deployment.
type Remote interface {
	Fetcher
	Mutator
}
