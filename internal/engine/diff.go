package engine

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/viant/godiff"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

var differRegistry = godiff.NewRegistry()

// definitionState is the comparable form of a definition's mutable
// attributes. List attributes are flattened to canonical strings so that
// order-insensitive sets compare equal.
type definitionState struct {
	Name           string
	Description    string
	DisplayNameKey string
	Validations    string
	Capabilities   string
	Pinned         bool
	Fields         string
}

// entityState is the comparable form of an entity's written fields.
type entityState struct {
	Title  string
	Fields string
}

// Change is one attribute difference reported by a comparison.
type Change struct {
	Type string
	From any
	To   any
}

// diffStates compares two states of the same type. A differ that cannot be
// built reports a single change so that callers fall back to writing.
func diffStates(from, to any) []Change {
	differ, err := differRegistry.Get(reflect.TypeOf(from), reflect.TypeOf(to), &godiff.Tag{})
	if err != nil {
		return []Change{{Type: "unknown", From: from, To: to}}
	}
	changeLog := differ.Diff(from, to)
	if changeLog == nil {
		return nil
	}
	out := make([]Change, 0, len(changeLog.Changes))
	for _, c := range changeLog.Changes {
		out = append(out, Change{Type: fmt.Sprint(c.Type), From: c.From, To: c.To})
	}
	return out
}

// DefinitionChanges compares the mutable attributes of target with the
// update that would be sent.
func DefinitionChanges(target model.Definition, u remote.DefinitionUpdate) []Change {
	current := stateOfDefinition(target.Name, target.Description, target.DisplayNameKey, target.Validations, target.Capabilities, target.Pinned, target.Fields)

	fields := make([]model.FieldSpec, 0, len(target.Fields))
	fields = append(fields, target.Fields...)
	for _, op := range u.FieldOps {
		if op.Create {
			fields = append(fields, op.Field)
			continue
		}
		for i, f := range fields {
			if f.Key == op.Field.Key {
				f.Name, f.Description, f.Required, f.Validations = op.Field.Name, op.Field.Description, op.Field.Required, op.Field.Validations
				fields[i] = f
			}
		}
	}
	displayNameKey := u.DisplayNameKey
	if displayNameKey == "" {
		displayNameKey = target.DisplayNameKey
	}
	desired := stateOfDefinition(u.Name, u.Description, displayNameKey, u.Validations, u.Capabilities, u.Pinned, fields)
	return diffStates(current, desired)
}

// EntityChanges compares the fields of target with the fields that would
// be written. Only the keys present in fields are compared.
func EntityChanges(target model.Entity, title string, fields []model.FieldValue) []Change {
	current := make([]model.FieldValue, 0, len(fields))
	for _, f := range fields {
		if existing, ok := target.Field(f.FieldKey()); ok {
			current = append(current, model.FieldValue{Namespace: f.Namespace, Key: f.Key, Value: existing.Value})
		}
	}
	desired := make([]model.FieldValue, 0, len(fields))
	for _, f := range fields {
		desired = append(desired, model.FieldValue{Namespace: f.Namespace, Key: f.Key, Value: f.Value})
	}
	if title == "" {
		title = target.Title
	}
	return diffStates(
		&entityState{Title: target.Title, Fields: model.FieldsFingerprint(current)},
		&entityState{Title: title, Fields: model.FieldsFingerprint(desired)},
	)
}

func stateOfDefinition(name, description, displayNameKey string, rules []model.ValidationRule, caps model.Capabilities, pinned bool, fields []model.FieldSpec) *definitionState {
	sortedFields := make([]model.FieldSpec, len(fields))
	copy(sortedFields, fields)
	for i := range sortedFields {
		sortedFields[i].Validations = sortedRules(sortedFields[i].Validations)
	}
	return &definitionState{
		Name:           name,
		Description:    description,
		DisplayNameKey: displayNameKey,
		Validations:    model.DefinitionFingerprint(model.Definition{Validations: sortedRules(rules)}),
		Capabilities:   model.DefinitionFingerprint(model.Definition{Capabilities: model.NewCapabilities(caps...)}),
		Pinned:         pinned,
		Fields:         fieldsFingerprint(sortedFields),
	}
}

func fieldsFingerprint(fields []model.FieldSpec) string {
	ordered := make([]model.FieldSpec, len(fields))
	copy(ordered, fields)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })
	return model.DefinitionFingerprint(model.Definition{Fields: ordered})
}

func sortedRules(rules []model.ValidationRule) []model.ValidationRule {
	out := make([]model.ValidationRule, len(rules))
	copy(out, rules)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Value < out[j].Value
	})
	return out
}
