package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint domains. The version suffix allows a future algorithm change.
const (
	DomainDefinition = "shopsync/definition/v1"
	DomainEntity     = "shopsync/entity/v1"
	DomainFields     = "shopsync/fields/v1"
)

// MarshalCanonical produces deterministic JSON for fingerprinting:
// object keys sorted, strings NFC normalized, no HTML escaping.
// Supported values are nil, string, bool, int, int64, []string, []any and
// map[string]any, recursively.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		return writeCanonicalString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int:
		fmt.Fprintf(buf, "%d", val)
	case int64:
		fmt.Fprintf(buf, "%d", val)
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, s); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes v's canonical JSON under a domain prefix.
func Fingerprint(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domain, data), nil
}

// DefinitionFingerprint identifies a definition payload by content, ignoring
// its deployment-scoped id.
func DefinitionFingerprint(d Definition) string {
	fields := make([]any, 0, len(d.Fields))
	for _, f := range d.Fields {
		fields = append(fields, map[string]any{
			"key":         f.Key,
			"name":        f.Name,
			"description": f.Description,
			"type":        string(f.Type),
			"required":    f.Required,
			"validations": rulesToAny(f.Validations),
		})
	}
	caps := make([]string, 0, len(d.Capabilities))
	for _, c := range d.Capabilities {
		caps = append(caps, string(c))
	}
	fp, err := Fingerprint(DomainDefinition, map[string]any{
		"kind":             string(d.Kind),
		"owner_type":       d.OwnerType,
		"natural_key":      d.NaturalKey(),
		"name":             d.Name,
		"description":      d.Description,
		"value_type":       string(d.ValueType),
		"display_name_key": d.DisplayNameKey,
		"fields":           fields,
		"validations":      rulesToAny(d.Validations),
		"capabilities":     caps,
		"pinned":           d.Pinned,
	})
	if err != nil {
		// only supported types are used above
		panic(err)
	}
	return fp
}

// FieldsFingerprint identifies a set of field values by content, independent
// of their order.
func FieldsFingerprint(fields []FieldValue) string {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.FieldKey()] = map[string]any{"type": string(f.Type), "value": f.Value}
	}
	fp, err := Fingerprint(DomainFields, m)
	if err != nil {
		panic(err)
	}
	return fp
}

func rulesToAny(rules []ValidationRule) []any {
	out := make([]any, 0, len(rules))
	for _, r := range rules {
		out = append(out, map[string]any{"name": r.Name, "value": r.Value})
	}
	return out
}
