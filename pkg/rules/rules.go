// Package rules defines the validation rule contract used by form controllers
// together with a handful of reusable rule constructors.
//
// A rule is a pure function of the field's current value. It returns an
// empty string when the value is valid and a human readable message
// otherwise.
package rules

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule validates a single field value.
type Rule func(value any) string

// Set maps dotted field paths to their rule.
type Set map[string]Rule

// Clone returns a copy of s without nil rules.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for name, rule := range s {
		if rule == nil {
			continue
		}
		out[name] = rule
	}
	return out
}

// Names returns the field paths that carry a rule.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	return out
}

// Required rejects nil values, blank strings and empty collections.
func Required(message string) Rule {
	message = orDefault(message, "required")
	return func(value any) string {
		if isEmpty(value) {
			return message
		}
		return ""
	}
}

// MinLength rejects strings (in runes) or collections shorter than n. Empty
// values pass; combine with Required to reject them.
func MinLength(n int, message string) Rule {
	message = orDefault(message, fmt.Sprintf("must be at least %d characters", n))
	return func(value any) string {
		if isEmpty(value) {
			return ""
		}
		if length, ok := lengthOf(value); ok && length < n {
			return message
		}
		return ""
	}
}

// MaxLength rejects strings (in runes) or collections longer than n.
func MaxLength(n int, message string) Rule {
	message = orDefault(message, fmt.Sprintf("must be at most %d characters", n))
	return func(value any) string {
		if length, ok := lengthOf(value); ok && length > n {
			return message
		}
		return ""
	}
}

// Pattern rejects non-empty values whose string form does not match re.
func Pattern(re *regexp.Regexp, message string) Rule {
	message = orDefault(message, "does not match required pattern")
	return func(value any) string {
		if re == nil || isEmpty(value) {
			return ""
		}
		if !re.MatchString(stringify(value)) {
			return message
		}
		return ""
	}
}

// OneOf rejects non-empty values whose string form is not one of options.
func OneOf(options []string, message string) Rule {
	allowed := make(map[string]struct{}, len(options))
	for _, option := range options {
		allowed[option] = struct{}{}
	}
	message = orDefault(message, fmt.Sprintf("must be one of %s", strings.Join(options, ", ")))
	return func(value any) string {
		if isEmpty(value) {
			return ""
		}
		if _, ok := allowed[stringify(value)]; !ok {
			return message
		}
		return ""
	}
}

// Compose runs rules in order and returns the first failure.
func Compose(rules ...Rule) Rule {
	return func(value any) string {
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			if msg := rule(value); msg != "" {
				return msg
			}
		}
		return ""
	}
}

func orDefault(message, fallback string) string {
	if strings.TrimSpace(message) == "" {
		return fallback
	}
	return message
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	if length, ok := lengthOf(value); ok {
		return length == 0
	}
	return false
}

func lengthOf(value any) (int, bool) {
	if s, ok := value.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	default:
		return 0, false
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
