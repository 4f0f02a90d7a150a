// Package form implements a form state controller: dotted-path field
// bindings, per-field validation, whole-form submission and reset.
//
// A Controller owns two pieces of state, the field values and the field
// errors. Every update produces a new top-level values map; maps returned by
// Values must be treated as read-only snapshots.
package form

import (
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/rules"
	"github.com/goliatone/go-formstate/pkg/state"
)

// Binding is what a rendering collaborator needs to display and edit a
// field.
type Binding struct {
	Name string
	// Value is the current value coerced to a string; "" when unset.
	Value string
	// OnChange writes a new raw input value and revalidates the field.
	OnChange func(value any) error
}

// Event is the triggering UI event of a submission.
type Event interface {
	PreventDefault()
}

// SubmitFunc receives the current values of a valid form.
type SubmitFunc func(values map[string]any) error

// SubmitHandler runs validation and, when the form is valid, the SubmitFunc.
// It returns a *ValidationError when the submission was aborted.
type SubmitHandler func(ev Event) error

// Controller holds the state of one form.
type Controller struct {
	initial   map[string]any
	rules     rules.Set
	values    *state.Cell[map[string]any]
	errors    *state.Cell[map[string]string]
	logger    *log.Logger
	sanitizer Sanitizer

	mu       sync.Mutex
	watchers map[string]watcher
}

type watcher struct {
	name string
	fn   func(any)
}

// New creates a controller seeded with initial. The initial map is kept as
// the Reset target and is never mutated.
func New(initial map[string]any, opts ...Option) *Controller {
	if initial == nil {
		initial = make(map[string]any)
	}
	c := &Controller{
		initial:  initial,
		rules:    make(rules.Set),
		logger:   log.New(io.Discard),
		watchers: make(map[string]watcher),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}

	c.values = state.NewCell(initial)
	c.errors = state.NewCell(map[string]string{})
	c.values.Subscribe(c.notifyWatchers)
	return c
}

// Values returns the current values snapshot.
func (c *Controller) Values() map[string]any {
	return c.values.Get()
}

// Errors returns a copy of the current field errors. Valid fields are absent.
func (c *Controller) Errors() map[string]string {
	return cloneErrors(c.errors.Get())
}

// Error returns the current error for a field, "" when valid.
func (c *Controller) Error(name string) string {
	return c.errors.Get()[name]
}

// Subscribe is notified after every committed values update.
func (c *Controller) Subscribe(fn func(prev, next map[string]any)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return c.values.Subscribe(state.Listener[map[string]any](fn))
}

// Register returns the binding for a field.
func (c *Controller) Register(name string) Binding {
	return Binding{
		Name:  name,
		Value: stringify(c.Watch(name)),
		OnChange: func(value any) error {
			return c.change(name, value)
		},
	}
}

func (c *Controller) change(name string, value any) error {
	if s, ok := value.(string); ok && c.sanitizer != nil {
		value = c.sanitizer.Sanitize(s)
	}
	if err := c.SetValue(name, value); err != nil {
		return err
	}

	rule, ok := c.rules[name]
	if !ok {
		return nil
	}
	msg := rule(value)
	c.errors.Update(func(prev map[string]string) map[string]string {
		next := cloneErrors(prev)
		if msg == "" {
			delete(next, name)
		} else {
			next[name] = msg
		}
		return next
	})
	return nil
}

// SetValue writes value at the dotted path name without revalidating.
func (c *Controller) SetValue(name string, value any) error {
	if _, err := fieldpath.Parse(name); err != nil {
		return fmt.Errorf("form: set value: %w", err)
	}
	var setErr error
	c.values.Update(func(prev map[string]any) map[string]any {
		next, err := fieldpath.Set(prev, name, value)
		if err != nil {
			setErr = err
			return prev
		}
		return next
	})
	if setErr != nil {
		c.logger.Warn("set value failed", "field", name, "err", setErr)
		return fmt.Errorf("form: set value: %w", setErr)
	}
	return nil
}

// Update replaces the values with fn(prev). fn must return a new map rather
// than mutate prev; a nil result clears the form. fn runs synchronously and
// must not call back into the controller.
func (c *Controller) Update(fn func(prev map[string]any) map[string]any) {
	if fn == nil {
		return
	}
	c.values.Update(func(prev map[string]any) map[string]any {
		next := fn(prev)
		if next == nil {
			next = make(map[string]any)
		}
		return next
	})
}

// Watch returns the value at name, or nil when any segment is absent.
func (c *Controller) Watch(name string) any {
	value, _ := c.Lookup(name)
	return value
}

// Lookup returns the value at name and whether the path resolved.
func (c *Controller) Lookup(name string) (any, bool) {
	return fieldpath.Get(c.values.Get(), name)
}

// WatchFunc calls fn with the new value whenever a committed update changes
// the value at name. Registrations are dropped by Reset.
func (c *Controller) WatchFunc(name string, fn func(value any)) string {
	if fn == nil {
		return ""
	}
	id := uuid.NewString()
	c.mu.Lock()
	c.watchers[id] = watcher{name: name, fn: fn}
	c.mu.Unlock()
	return id
}

// Unwatch removes a registration created by WatchFunc.
func (c *Controller) Unwatch(id string) {
	c.mu.Lock()
	delete(c.watchers, id)
	c.mu.Unlock()
}

func (c *Controller) notifyWatchers(prev, next map[string]any) {
	c.mu.Lock()
	active := make([]watcher, 0, len(c.watchers))
	for _, w := range c.watchers {
		active = append(active, w)
	}
	c.mu.Unlock()

	for _, w := range active {
		before, _ := fieldpath.Get(prev, w.name)
		after, _ := fieldpath.Get(next, w.name)
		if reflect.DeepEqual(before, after) {
			continue
		}
		w.fn(after)
	}
}

// Validate runs every registered rule against the current values and returns
// the failing fields. It does not touch the error state.
func (c *Controller) Validate() map[string]string {
	return c.validate(c.values.Get())
}

func (c *Controller) validate(values map[string]any) map[string]string {
	out := make(map[string]string)
	for name, rule := range c.rules {
		value, _ := fieldpath.Get(values, name)
		if msg := rule(value); msg != "" {
			out[name] = msg
		}
	}
	return out
}

// HandleSubmit wraps fn in a handler that suppresses the event's default
// action, validates all ruled fields and calls fn only when none failed.
func (c *Controller) HandleSubmit(fn SubmitFunc) SubmitHandler {
	return func(ev Event) error {
		if ev != nil {
			ev.PreventDefault()
		}

		values := c.values.Get()
		errs := c.validate(values)
		c.errors.Set(errs)
		if len(errs) > 0 {
			c.logger.Debug("submit aborted", "errors", len(errs))
			return &ValidationError{Fields: cloneErrors(errs)}
		}

		c.logger.Debug("submit", "fields", len(values))
		if fn == nil {
			return nil
		}
		return fn(values)
	}
}

// Reset replaces the values with values, or with the construction-time
// initial values when values is nil, clears errors and drops watchers.
func (c *Controller) Reset(values map[string]any) {
	if values == nil {
		values = c.initial
	}

	c.mu.Lock()
	c.watchers = make(map[string]watcher)
	c.mu.Unlock()

	c.values.Set(values)
	c.errors.Set(map[string]string{})
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
