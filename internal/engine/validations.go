package engine

import (
	"sort"

	json "github.com/goccy/go-json"

	"github.com/roach88/shopsync/internal/model"
)

// Validation rule names understood by the platform.
const (
	RuleMin                   = "min"
	RuleMax                   = "max"
	RuleMaxPrecision          = "max_precision"
	RuleRegex                 = "regex"
	RuleChoices               = "choices"
	RuleScaleMin              = "scale_min"
	RuleScaleMax              = "scale_max"
	RuleAllowedDomains        = "allowed_domains"
	RuleSchema                = "schema"
	RuleFileTypeOptions       = "file_type_options"
	RuleMetaobjectDefinition  = "metaobject_definition_id"
	RuleMetaobjectDefinitions = "metaobject_definition_ids"
	RuleListMin               = "list.min"
	RuleListMax               = "list.max"
)

// permittedRules lists, per base value type, the rules a create payload may
// carry.
var permittedRules = map[model.ValueType][]string{
	model.TypeNumberInteger:       {RuleMin, RuleMax},
	model.TypeNumberDecimal:       {RuleMin, RuleMax, RuleMaxPrecision},
	model.TypeSingleLineText:      {RuleMin, RuleMax, RuleRegex, RuleChoices},
	model.TypeMultiLineText:       {RuleMin, RuleMax, RuleRegex},
	model.TypeDate:                {RuleMin, RuleMax},
	model.TypeDateTime:            {RuleMin, RuleMax},
	model.TypeRating:              {RuleScaleMin, RuleScaleMax},
	model.TypeURL:                 {RuleAllowedDomains},
	model.TypeJSON:                {RuleSchema},
	model.TypeDimension:           {RuleMin, RuleMax},
	model.TypeVolume:              {RuleMin, RuleMax},
	model.TypeWeight:              {RuleMin, RuleMax},
	model.TypeFileReference:       {RuleFileTypeOptions},
	model.TypeMetaobjectReference: {RuleMetaobjectDefinition},
	model.TypeMixedReference:      {RuleMetaobjectDefinitions},
}

// Default rating scale, required by the platform when absent.
const (
	defaultScaleMin = "1"
	defaultScaleMax = "5"
)

// DeriveValidations computes the validation set of a create payload from
// the value type and the source rules: rules the type does not accept are
// dropped, list-valued rules are de-duplicated, mandatory rating bounds are
// filled in, and the result is ordered by name. The second return lists the
// names of dropped rules.
func DeriveValidations(t model.ValueType, rules []model.ValidationRule) ([]model.ValidationRule, []string) {
	allowed := make(map[string]bool)
	for _, name := range permittedRules[t.Base()] {
		allowed[name] = true
	}
	if t.IsList() {
		allowed[RuleListMin] = true
		allowed[RuleListMax] = true
	}

	byName := make(map[string]model.ValidationRule)
	var dropped []string
	for _, r := range rules {
		if !allowed[r.Name] {
			dropped = append(dropped, r.Name)
			continue
		}
		switch r.Name {
		case RuleChoices, RuleAllowedDomains, RuleFileTypeOptions:
			r.Value = dedupeJSONList(r.Value)
		}
		byName[r.Name] = r
	}

	if t.Base() == model.TypeRating {
		if _, ok := byName[RuleScaleMin]; !ok {
			byName[RuleScaleMin] = model.ValidationRule{Name: RuleScaleMin, Value: defaultScaleMin}
		}
		if _, ok := byName[RuleScaleMax]; !ok {
			byName[RuleScaleMax] = model.ValidationRule{Name: RuleScaleMax, Value: defaultScaleMax}
		}
	}

	out := make([]model.ValidationRule, 0, len(byName))
	for _, r := range byName {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, dropped
}

// dedupeJSONList removes repeated strings from a JSON array value, keeping
// first occurrences in order. Values that are not string arrays are
// returned unchanged.
func dedupeJSONList(value string) string {
	var items []string
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return value
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return value
	}
	return string(b)
}
