package model

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
)

// ResourceType is the object kind embedded in a global id
// ("gid://shopify/<ResourceType>/<id>").
type ResourceType string

const (
	ResourceMetaobjectDefinition ResourceType = "MetaobjectDefinition"
	ResourceMetafieldDefinition  ResourceType = "MetafieldDefinition"
	ResourceMetaobject           ResourceType = "Metaobject"
	ResourceProduct              ResourceType = "Product"
	ResourceVariant              ResourceType = "ProductVariant"
	ResourceCollection           ResourceType = "Collection"
	ResourcePage                 ResourceType = "Page"
	ResourceBlog                 ResourceType = "Blog"
	ResourceArticle              ResourceType = "Article"
	ResourceCustomer             ResourceType = "Customer"
	ResourceCompany              ResourceType = "Company"
	ResourceOrder                ResourceType = "Order"
	ResourceLocation             ResourceType = "Location"
	ResourceShop                 ResourceType = "Shop"
	ResourceMediaImage           ResourceType = "MediaImage"
	ResourceGenericFile          ResourceType = "GenericFile"
	ResourceVideo                ResourceType = "Video"
)

const gidPrefix = "gid://shopify/"

// dryRunMarker tags synthetic ids handed out when no mutation is issued.
const dryRunMarker = "dry-run-"

// IsFile reports whether r is one of the file resources.
func (r ResourceType) IsFile() bool {
	return r == ResourceMediaImage || r == ResourceGenericFile || r == ResourceVideo
}

// BuildGID formats a global id.
func BuildGID(r ResourceType, id string) string {
	return gidPrefix + string(r) + "/" + id
}

// ParseGID splits a global id into its resource type and local id. Query
// strings (e.g. "?v=2") are dropped.
func ParseGID(s string) (ResourceType, string, bool) {
	if !strings.HasPrefix(s, gidPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(s, gidPrefix)
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	slash := strings.IndexByte(rest, '/')
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", false
	}
	return ResourceType(rest[:slash]), rest[slash+1:], true
}

// IsGID reports whether s is a well-formed global id.
func IsGID(s string) bool {
	_, _, ok := ParseGID(s)
	return ok
}

// GIDValue is the structural form of a value that points at remote objects:
// one gid, or a JSON array of gids.
type GIDValue struct {
	IDs  []string
	List bool
}

// ParseGIDValue detects whether value carries cross-store ids. It is the
// structural marker used for validation rules, whose names say nothing about
// their content.
func ParseGIDValue(value string) (GIDValue, bool) {
	v := strings.TrimSpace(value)
	if IsGID(v) {
		return GIDValue{IDs: []string{v}}, true
	}
	if !strings.HasPrefix(v, "[") {
		return GIDValue{}, false
	}
	var ids []string
	if err := json.Unmarshal([]byte(v), &ids); err != nil || len(ids) == 0 {
		return GIDValue{}, false
	}
	for _, id := range ids {
		if !IsGID(id) {
			return GIDValue{}, false
		}
	}
	return GIDValue{IDs: ids, List: true}, true
}

// EncodeIDList renders ids as a JSON array string.
func EncodeIDList(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, err := json.Marshal(ids)
	if err != nil {
		// []string always marshals
		panic(fmt.Sprintf("encode id list: %v", err))
	}
	return string(b)
}

// DecodeIDList parses a JSON array of ids. A bare id is returned as a single
// element list.
func DecodeIDList(value string) ([]string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, nil
	}
	if !strings.HasPrefix(v, "[") {
		return []string{v}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(v), &ids); err != nil {
		return nil, fmt.Errorf("decode id list: %w", err)
	}
	return ids, nil
}

// DryRunID returns a sentinel id for an object that a dry run pretended to
// create. It parses as a gid of the given resource type.
func DryRunID(r ResourceType) string {
	return BuildGID(r, dryRunMarker+ulid.Make().String())
}

// IsDryRunID reports whether id was produced by DryRunID.
func IsDryRunID(id string) bool {
	_, local, ok := ParseGID(id)
	return ok && strings.HasPrefix(local, dryRunMarker)
}
