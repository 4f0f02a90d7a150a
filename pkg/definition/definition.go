// Package definition describes forms declaratively: the fields to collect,
// their defaults and their rules. Definitions are loaded from YAML, TOML or
// JSON files, or derived from an OpenAPI request body, and turned into the
// initial values and rule set a form.Controller is constructed with.
package definition

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects how a field is collected.
type Kind string

const (
	KindText     Kind = "text"
	KindPassword Kind = "password"
	KindTextArea Kind = "textarea"
	KindInteger  Kind = "integer"
	KindNumber   Kind = "number"
	KindConfirm  Kind = "confirm"
	KindSelect   Kind = "select"
	// KindList collects a sequence of Item values.
	KindList Kind = "list"
)

// Definition is a complete form description.
type Definition struct {
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Fields      []Field        `json:"fields" yaml:"fields" toml:"fields"`
	Initial     map[string]any `json:"initial,omitempty" yaml:"initial,omitempty" toml:"initial,omitempty"`
}

// Field describes one field addressed by a dotted path.
type Field struct {
	Name    string     `json:"name" yaml:"name" toml:"name"`
	Label   string     `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Help    string     `json:"help,omitempty" yaml:"help,omitempty" toml:"help,omitempty"`
	Kind    Kind       `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Options []string   `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
	Default any        `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
	Item    *Field     `json:"item,omitempty" yaml:"item,omitempty" toml:"item,omitempty"`
	Rules   []RuleSpec `json:"rules,omitempty" yaml:"rules,omitempty" toml:"rules,omitempty"`
}

// RuleSpec selects one of the rules package constructors.
type RuleSpec struct {
	Kind    string `json:"kind" yaml:"kind" toml:"kind"`
	Value   int    `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty" toml:"pattern,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty" toml:"message,omitempty"`
}

// Rule kinds understood by Build.
const (
	RuleRequired  = "required"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleOneOf     = "oneOf"
)

// ErrInvalidDefinition is wrapped by every validation failure of a Definition.
var ErrInvalidDefinition = errors.New("definition: invalid definition")

// DisplayLabel returns the label, falling back to the field name.
func (f Field) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.Name
}

// EffectiveKind returns the kind, defaulting to text.
func (f Field) EffectiveKind() Kind {
	if f.Kind == "" {
		return KindText
	}
	return f.Kind
}

// Validate checks names, kinds and rule kinds.
func (d Definition) Validate() error {
	seen := make(map[string]struct{}, len(d.Fields))
	for i, field := range d.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidDefinition, i)
		}
		if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
			return fmt.Errorf("%w: field %q has an empty path segment", ErrInvalidDefinition, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidDefinition, name)
		}
		seen[name] = struct{}{}
		if err := validateField(field); err != nil {
			return err
		}
	}
	return nil
}

func validateField(field Field) error {
	switch kind := field.EffectiveKind(); kind {
	case KindText, KindPassword, KindTextArea, KindInteger, KindNumber, KindConfirm:
	case KindSelect:
		if len(field.Options) == 0 {
			return fmt.Errorf("%w: select field %q has no options", ErrInvalidDefinition, field.Name)
		}
	case KindList:
		if field.Item != nil {
			if field.Item.EffectiveKind() == KindList {
				return fmt.Errorf("%w: list field %q cannot nest lists", ErrInvalidDefinition, field.Name)
			}
			if err := validateField(*field.Item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: field %q has unknown kind %q", ErrInvalidDefinition, field.Name, kind)
	}

	for _, rule := range field.Rules {
		switch rule.Kind {
		case RuleRequired, RuleMinLength, RuleMaxLength, RulePattern, RuleOneOf:
		default:
			return fmt.Errorf("%w: field %q has unknown rule %q", ErrInvalidDefinition, field.Name, rule.Kind)
		}
	}
	return nil
}
