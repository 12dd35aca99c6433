package shopify

import (
	"fmt"

	"github.com/roach88/shopsync/internal/model"
)

const pageInfoSelection = `pageInfo { hasNextPage endCursor }`

const metafieldsSelection = `metafields(first: 250) { nodes { namespace key value type } }`

const userErrorsSelection = `userErrors { field message code }`

// entitySpec describes how one entity kind is listed and searched.
type entitySpec struct {
	connection string
	typename   string
	selection  string

	// search is the search-syntax field matching the natural key. Empty
	// means the connection cannot be searched by it.
	search string
}

var entitySpecs = map[model.EntityKind]entitySpec{
	model.EntityMetaobject: {
		connection: "metaobjects", typename: "Metaobject", search: "handle",
		selection: `id handle type displayName fields { key value type }`,
	},
	model.EntityProduct: {
		connection: "products", typename: "Product", search: "handle",
		selection: `id handle title status ` + metafieldsSelection,
	},
	model.EntityVariant: {
		connection: "productVariants", typename: "ProductVariant", search: "sku",
		selection: `id sku title selectedOptions { name value } product { handle } ` + metafieldsSelection,
	},
	model.EntityCollection: {
		connection: "collections", typename: "Collection", search: "handle",
		selection: `id handle title ` + metafieldsSelection,
	},
	model.EntityCustomer: {
		connection: "customers", typename: "Customer", search: "email",
		selection: `id email displayName ` + metafieldsSelection,
	},
	model.EntityPage: {
		connection: "pages", typename: "Page", search: "handle",
		selection: `id handle title ` + metafieldsSelection,
	},
	model.EntityBlog: {
		connection: "blogs", typename: "Blog", search: "handle",
		selection: `id handle title ` + metafieldsSelection,
	},
	model.EntityArticle: {
		connection: "articles", typename: "Article", search: "handle",
		selection: `id handle title ` + metafieldsSelection,
	},
	model.EntityShop: {
		typename:  "Shop",
		selection: `id name ` + metafieldsSelection,
	},
}

func listEntitiesQuery(s entitySpec) string {
	if s.connection == "metaobjects" {
		return fmt.Sprintf(`query ($type: String!, $first: Int!, $after: String, $query: String) {
  conn: metaobjects(type: $type, first: $first, after: $after, query: $query) {
    nodes { __typename %s }
    %s
  }
}`, s.selection, pageInfoSelection)
	}
	return fmt.Sprintf(`query ($first: Int!, $after: String, $query: String) {
  conn: %s(first: $first, after: $after, query: $query) {
    nodes { __typename %s }
    %s
  }
}`, s.connection, s.selection, pageInfoSelection)
}

func entityByIDQuery(s entitySpec) string {
	return fmt.Sprintf(`query ($id: ID!) {
  node(id: $id) { __typename ... on %s { %s } }
}`, s.typename, s.selection)
}

const shopQuery = `query {
  shop { __typename ` + `id name ` + metafieldsSelection + ` }
}`

const metaobjectDefinitionSelection = `id type name description displayNameKey
  capabilities {
    publishable { enabled }
    translatable { enabled }
    renderable { enabled }
    onlineStore { enabled }
  }
  fieldDefinitions { key name description required type { name } validations { name value } }`

const metafieldDefinitionSelection = `id namespace key name description ownerType
  type { name }
  validations { name value }
  pinnedPosition
  capabilities {
    adminFilterable { enabled }
    smartCollectionCondition { enabled }
    uniqueValues { enabled }
  }`

var listMetaobjectDefinitionsQuery = fmt.Sprintf(`query ($first: Int!, $after: String) {
  conn: metaobjectDefinitions(first: $first, after: $after) {
    nodes { %s }
    %s
  }
}`, metaobjectDefinitionSelection, pageInfoSelection)

var metaobjectDefinitionByTypeQuery = fmt.Sprintf(`query ($type: String!) {
  definition: metaobjectDefinitionByType(type: $type) { %s }
}`, metaobjectDefinitionSelection)

var listMetafieldDefinitionsQuery = fmt.Sprintf(`query ($ownerType: MetafieldOwnerType!, $namespace: String, $key: String, $first: Int!, $after: String) {
  conn: metafieldDefinitions(ownerType: $ownerType, namespace: $namespace, key: $key, first: $first, after: $after) {
    nodes { %s }
    %s
  }
}`, metafieldDefinitionSelection, pageInfoSelection)

const lookupNodeQuery = `query ($id: ID!) {
  node(id: $id) {
    __typename
    id
    ... on MetaobjectDefinition { type }
    ... on Metaobject { type handle }
    ... on Product { handle }
    ... on ProductVariant { sku selectedOptions { name value } product { handle } }
    ... on Collection { handle }
    ... on Page { handle }
    ... on Blog { handle }
    ... on Article { handle }
    ... on Customer { email }
    ... on MediaImage { image { url } }
    ... on GenericFile { url }
    ... on Video { filename }
  }
}`

const metaobjectDefinitionIDByTypeQuery = `query ($type: String!) {
  definition: metaobjectDefinitionByType(type: $type) { id type }
}`

const metaobjectIDByHandleQuery = `query ($type: String!, $handle: String!) {
  metaobject: metaobjectByHandle(handle: {type: $type, handle: $handle}) { id type handle }
}`

func findByKeyQuery(s entitySpec) string {
	return fmt.Sprintf(`query ($query: String!) {
  conn: %s(first: 5, query: $query) { nodes { id %s } }
}`, s.connection, s.search)
}

const variantsByProductQuery = `query ($query: String!) {
  conn: products(first: 1, query: $query) {
    nodes {
      handle
      variants(first: 250) { nodes { id sku selectedOptions { name value } } }
    }
  }
}`

const filesByNameQuery = `query ($query: String!) {
  conn: files(first: 10, query: $query) {
    nodes {
      __typename
      id
      ... on MediaImage { image { url } }
      ... on GenericFile { url }
      ... on Video { filename }
    }
  }
}`

const shopIDQuery = `query { shop { id } }`

// Mutations alias their payload to "payload" and the created object to
// "node" so that one response type decodes all of them.

var (
	metaobjectDefinitionCreateMutation = `mutation ($input: MetaobjectDefinitionCreateInput!) {
  payload: metaobjectDefinitionCreate(definition: $input) { node: metaobjectDefinition { id } ` + userErrorsSelection + ` }
}`
	metaobjectDefinitionUpdateMutation = `mutation ($id: ID!, $input: MetaobjectDefinitionUpdateInput!) {
  payload: metaobjectDefinitionUpdate(id: $id, definition: $input) { node: metaobjectDefinition { id } ` + userErrorsSelection + ` }
}`
	metafieldDefinitionCreateMutation = `mutation ($input: MetafieldDefinitionInput!) {
  payload: metafieldDefinitionCreate(definition: $input) { node: createdDefinition { id } ` + userErrorsSelection + ` }
}`
	metafieldDefinitionUpdateMutation = `mutation ($input: MetafieldDefinitionUpdateInput!) {
  payload: metafieldDefinitionUpdate(definition: $input) { node: updatedDefinition { id } ` + userErrorsSelection + ` }
}`
	metaobjectCreateMutation = `mutation ($input: MetaobjectCreateInput!) {
  payload: metaobjectCreate(metaobject: $input) { node: metaobject { id } ` + userErrorsSelection + ` }
}`
	metaobjectUpdateMutation = `mutation ($id: ID!, $input: MetaobjectUpdateInput!) {
  payload: metaobjectUpdate(id: $id, metaobject: $input) { node: metaobject { id } ` + userErrorsSelection + ` }
}`
	metaobjectDeleteMutation = `mutation ($id: ID!) {
  payload: metaobjectDelete(id: $id) { deletedId ` + userErrorsSelection + ` }
}`
	productCreateMutation = `mutation ($input: ProductCreateInput!) {
  payload: productCreate(product: $input) { node: product { id } ` + userErrorsSelection + ` }
}`
	productDeleteMutation = `mutation ($id: ID!) {
  payload: productDelete(input: {id: $id}) { deletedId: deletedProductId userErrors { field message } }
}`
	collectionCreateMutation = `mutation ($input: CollectionInput!) {
  payload: collectionCreate(input: $input) { node: collection { id } userErrors { field message } }
}`
	collectionDeleteMutation = `mutation ($id: ID!) {
  payload: collectionDelete(input: {id: $id}) { deletedId: deletedCollectionId userErrors { field message } }
}`
	pageCreateMutation = `mutation ($input: PageCreateInput!) {
  payload: pageCreate(page: $input) { node: page { id } ` + userErrorsSelection + ` }
}`
	pageDeleteMutation = `mutation ($id: ID!) {
  payload: pageDelete(id: $id) { deletedId: deletedPageId ` + userErrorsSelection + ` }
}`
	metafieldsSetMutation = `mutation ($metafields: [MetafieldsSetInput!]!) {
  payload: metafieldsSet(metafields: $metafields) { metafields { id } ` + userErrorsSelection + ` }
}`
)

// createMutations and deleteMutations list the entity kinds that can be
// created or deleted.
var createMutations = map[model.EntityKind]string{
	model.EntityMetaobject: metaobjectCreateMutation,
	model.EntityProduct:    productCreateMutation,
	model.EntityCollection: collectionCreateMutation,
	model.EntityPage:       pageCreateMutation,
}

var deleteMutations = map[model.EntityKind]string{
	model.EntityMetaobject: metaobjectDeleteMutation,
	model.EntityProduct:    productDeleteMutation,
	model.EntityCollection: collectionDeleteMutation,
	model.EntityPage:       pageDeleteMutation,
}
