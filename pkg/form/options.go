package form

import (
	"html"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/rules"
)

// Sanitizer cleans raw string input before it is written into form state.
// *bluemonday.Policy satisfies it.
type Sanitizer interface {
	Sanitize(string) string
}

// Option configures a Controller.
type Option func(*Controller)

// WithRules registers validation rules keyed by dotted field path. Rules are
// fixed once the controller is constructed.
func WithRules(set rules.Set) Option {
	return func(c *Controller) {
		for name, rule := range set {
			if rule != nil {
				c.rules[name] = rule
			}
		}
	}
}

// WithRule registers a single validation rule.
func WithRule(name string, rule rules.Rule) Option {
	return func(c *Controller) {
		if name != "" && rule != nil {
			c.rules[name] = rule
		}
	}
}

// WithLogger sets the logger used for debug tracing. By default nothing is
// logged.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSanitizer cleans string values passed to a binding's OnChange before
// they are stored or validated.
func WithSanitizer(s Sanitizer) Option {
	return func(c *Controller) {
		c.sanitizer = s
	}
}

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// StrictSanitizer strips all markup from string input. The result is plain
// text: entities produced by the policy are decoded again, so "Tom & Jerry"
// is stored as typed.
func StrictSanitizer() Sanitizer {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return plainText{policy: strictPolicy}
}

type plainText struct {
	policy *bluemonday.Policy
}

func (p plainText) Sanitize(value string) string {
	return html.UnescapeString(p.policy.Sanitize(value))
}
