package definition

import (
	"fmt"
	"regexp"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/rules"
)

// Build returns the initial values and rule set for d. Field defaults fill
// paths that Initial leaves unset; d itself is not modified.
func Build(d Definition) (map[string]any, rules.Set, error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}

	initial, _ := fieldpath.Clone(normalizeMap(d.Initial)).(map[string]any)
	if initial == nil {
		initial = make(map[string]any)
	}
	set := make(rules.Set)

	for _, field := range d.Fields {
		if field.Default != nil {
			if _, ok := fieldpath.Get(initial, field.Name); !ok {
				if err := fieldpath.SetPath(initial, field.Name, fieldpath.Clone(normalize(field.Default))); err != nil {
					return nil, nil, fmt.Errorf("definition: default for %q: %w", field.Name, err)
				}
			}
		}

		rule, err := buildRule(field)
		if err != nil {
			return nil, nil, err
		}
		if rule != nil {
			set[field.Name] = rule
		}
	}
	return initial, set, nil
}

func buildRule(field Field) (rules.Rule, error) {
	var chain []rules.Rule
	for _, spec := range field.Rules {
		switch spec.Kind {
		case RuleRequired:
			chain = append(chain, rules.Required(spec.Message))
		case RuleMinLength:
			chain = append(chain, rules.MinLength(spec.Value, spec.Message))
		case RuleMaxLength:
			chain = append(chain, rules.MaxLength(spec.Value, spec.Message))
		case RulePattern:
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				return nil, fmt.Errorf("definition: field %q pattern: %w", field.Name, err)
			}
			chain = append(chain, rules.Pattern(re, spec.Message))
		case RuleOneOf:
			chain = append(chain, rules.OneOf(field.Options, spec.Message))
		}
	}
	if field.EffectiveKind() == KindSelect && !hasRule(field, RuleOneOf) {
		chain = append(chain, rules.OneOf(field.Options, ""))
	}

	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	default:
		return rules.Compose(chain...), nil
	}
}

func hasRule(field Field, kind string) bool {
	for _, spec := range field.Rules {
		if spec.Kind == kind {
			return true
		}
	}
	return false
}

// normalize converts decoder specific containers (map[any]any, []map[string]any,
// typed slices) into the map[string]any / []any shapes form state uses.
func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return normalizeMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeMap(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	default:
		return v
	}
}

func normalizeMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, item := range src {
		out[key] = normalize(item)
	}
	return out
}
