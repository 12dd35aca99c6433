package model

import "strings"

// EntityKind names the kind of a data instance.
type EntityKind string

const (
	EntityMetaobject EntityKind = "metaobject"
	EntityProduct    EntityKind = "product"
	EntityVariant    EntityKind = "variant"
	EntityCollection EntityKind = "collection"
	EntityCustomer   EntityKind = "customer"
	EntityOrder      EntityKind = "order"
	EntityCompany    EntityKind = "company"
	EntityLocation   EntityKind = "location"
	EntityPage       EntityKind = "page"
	EntityBlog       EntityKind = "blog"
	EntityArticle    EntityKind = "article"
	EntityShop       EntityKind = "shop"
)

// OwnerKind describes one resource kind the tool can reconcile. Every
// kind-specific behavior lives in this table rather than in code.
type OwnerKind struct {
	// Name is the plural CLI name, e.g. "products".
	Name string

	// Entity is the kind of the data instances.
	Entity EntityKind

	// DisplayName is used in logs and reports.
	DisplayName string

	// Definition is the schema-like resource reconciled for this kind.
	Definition DefinitionKind

	// OwnerType is the platform owner type of field definitions
	// (PRODUCT, PRODUCTVARIANT, ...). Empty for metaobjects.
	OwnerType string

	// Resource is the gid resource type of the instances.
	Resource ResourceType

	// KeyAttribute names the natural key attribute of the instances.
	KeyAttribute string

	// SupportsData is false where instances cannot be matched across
	// deployments (e.g. orders, whose numbers differ per shop).
	SupportsData bool

	// Creatable reports whether unmatched instances are created on the
	// target. Metafields of non-creatable kinds are only written to matches.
	Creatable bool

	// Capabilities lists the definition capabilities this kind accepts.
	Capabilities Capabilities
}

var fieldDefinitionCaps = NewCapabilities(CapabilityUniqueValues)

var ownerKinds = []OwnerKind{
	{
		Name: "metaobjects", Entity: EntityMetaobject, DisplayName: "Metaobjects",
		Definition: KindTypeDefinition, Resource: ResourceMetaobject, KeyAttribute: "handle",
		SupportsData: true, Creatable: true,
		Capabilities: NewCapabilities(CapabilityPublishable, CapabilityTranslatable, CapabilityRenderable, CapabilityOnlineStore),
	},
	{
		Name: "products", Entity: EntityProduct, DisplayName: "Products",
		Definition: KindFieldDefinition, OwnerType: "PRODUCT", Resource: ResourceProduct, KeyAttribute: "handle",
		SupportsData: true, Creatable: true,
		Capabilities: NewCapabilities(CapabilityAdminFilterable, CapabilitySmartCollectionCondition, CapabilityUniqueValues),
	},
	{
		Name: "variants", Entity: EntityVariant, DisplayName: "Product variants",
		Definition: KindFieldDefinition, OwnerType: "PRODUCTVARIANT", Resource: ResourceVariant, KeyAttribute: "sku",
		SupportsData: true,
		Capabilities: NewCapabilities(CapabilityAdminFilterable, CapabilitySmartCollectionCondition, CapabilityUniqueValues),
	},
	{
		Name: "collections", Entity: EntityCollection, DisplayName: "Collections",
		Definition: KindFieldDefinition, OwnerType: "COLLECTION", Resource: ResourceCollection, KeyAttribute: "handle",
		SupportsData: true, Creatable: true,
		Capabilities: NewCapabilities(CapabilityAdminFilterable, CapabilityUniqueValues),
	},
	{
		Name: "customers", Entity: EntityCustomer, DisplayName: "Customers",
		Definition: KindFieldDefinition, OwnerType: "CUSTOMER", Resource: ResourceCustomer, KeyAttribute: "email",
		SupportsData: true, Capabilities: fieldDefinitionCaps,
	},
	{
		Name: "orders", Entity: EntityOrder, DisplayName: "Orders",
		Definition: KindFieldDefinition, OwnerType: "ORDER", Resource: ResourceOrder, KeyAttribute: "name",
		Capabilities: fieldDefinitionCaps,
	},
	{
		Name: "companies", Entity: EntityCompany, DisplayName: "Companies",
		Definition: KindFieldDefinition, OwnerType: "COMPANY", Resource: ResourceCompany, KeyAttribute: "name",
		Capabilities: fieldDefinitionCaps,
	},
	{
		Name: "locations", Entity: EntityLocation, DisplayName: "Locations",
		Definition: KindFieldDefinition, OwnerType: "LOCATION", Resource: ResourceLocation, KeyAttribute: "name",
		Capabilities: fieldDefinitionCaps,
	},
	{
		Name: "pages", Entity: EntityPage, DisplayName: "Pages",
		Definition: KindFieldDefinition, OwnerType: "PAGE", Resource: ResourcePage, KeyAttribute: "handle",
		SupportsData: true, Creatable: true, Capabilities: fieldDefinitionCaps,
	},
	{
		Name: "blogs", Entity: EntityBlog, DisplayName: "Blogs",
		Definition: KindFieldDefinition, OwnerType: "BLOG", Resource: ResourceBlog, KeyAttribute: "handle",
		SupportsData: true, Capabilities: fieldDefinitionCaps,
	},
	{
		Name: "articles", Entity: EntityArticle, DisplayName: "Articles",
		Definition: KindFieldDefinition, OwnerType: "ARTICLE", Resource: ResourceArticle, KeyAttribute: "handle",
		SupportsData: true, Capabilities: fieldDefinitionCaps,
	},
	{
		Name: "shop", Entity: EntityShop, DisplayName: "Shop",
		Definition: KindFieldDefinition, OwnerType: "SHOP", Resource: ResourceShop, KeyAttribute: "handle",
		SupportsData: true, Capabilities: fieldDefinitionCaps,
	},
}

// OwnerKinds returns every known kind in display order.
func OwnerKinds() []OwnerKind {
	out := make([]OwnerKind, len(ownerKinds))
	copy(out, ownerKinds)
	return out
}

// LookupOwnerKind finds a kind by CLI name ("products"), entity kind
// ("product") or owner type ("PRODUCT").
func LookupOwnerKind(name string) (OwnerKind, bool) {
	n := strings.TrimSpace(name)
	for _, k := range ownerKinds {
		if strings.EqualFold(n, k.Name) || strings.EqualFold(n, string(k.Entity)) ||
			(k.OwnerType != "" && strings.EqualFold(n, k.OwnerType)) {
			return k, true
		}
	}
	return OwnerKind{}, false
}

// OwnerKindFor returns the kind whose instances have the given entity kind.
func OwnerKindFor(e EntityKind) (OwnerKind, bool) {
	for _, k := range ownerKinds {
		if k.Entity == e {
			return k, true
		}
	}
	return OwnerKind{}, false
}

// SupportsCapability reports whether definitions of this kind accept c.
func (k OwnerKind) SupportsCapability(c Capability) bool {
	return k.Capabilities.Has(c)
}

// Names returns the CLI names of all kinds.
func Names() []string {
	out := make([]string, 0, len(ownerKinds))
	for _, k := range ownerKinds {
		out = append(out, k.Name)
	}
	return out
}

// OwnerKindForResource returns the kind whose instances have gid resource r.
func OwnerKindForResource(r ResourceType) (OwnerKind, bool) {
	for _, k := range ownerKinds {
		if k.Resource == r {
			return k, true
		}
	}
	return OwnerKind{}, false
}
