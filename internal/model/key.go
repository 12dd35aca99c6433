package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey prepares a natural key for comparison across deployments.
// Keys are trimmed and NFC normalized so that visually identical handles
// typed on different systems compare equal. Case is preserved: SKUs are
// case-sensitive on the platform.
func NormalizeKey(key string) string {
	return norm.NFC.String(strings.TrimSpace(key))
}

// NormalizeType normalizes a metaobject definition type. The platform stores
// types in lower case, so types compare case-insensitively.
func NormalizeType(t string) string {
	return strings.ToLower(NormalizeKey(t))
}

// NormalizeDefinitionKey normalizes key as a natural key of kind.
func NormalizeDefinitionKey(kind DefinitionKind, key string) string {
	if kind == KindTypeDefinition {
		return NormalizeType(key)
	}
	return NormalizeKey(key)
}

// SplitNamespaceKey splits "namespace.key" at the first dot.
func SplitNamespaceKey(s string) (namespace, key string, ok bool) {
	i := strings.Index(s, ".")
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
