// Package fieldarray manages one list-valued field inside form state owned by
// someone else. State changes go through the owner's updater, so the helper
// works with any container that accepts an "apply function to previous state"
// update, such as form.Controller.Update.
package fieldarray

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
)

// ErrNotSequence is returned by Remove when the field does not hold a list.
var ErrNotSequence = errors.New("fieldarray: field is not a sequence")

// Updater applies fn to the latest committed state and commits the result.
// It must run fn synchronously before returning.
type Updater func(fn func(prev map[string]any) map[string]any)

// Controller appends and removes items of the list stored at Name.
type Controller struct {
	name   string
	update Updater
}

// New returns a controller for the list at the dotted path name.
func New(name string, update Updater) *Controller {
	return &Controller{name: name, update: update}
}

// Name returns the managed field path.
func (c *Controller) Name() string {
	return c.name
}

// Append adds item to the end of the list. An absent field is treated as an
// empty list. The previous list is never modified.
func (c *Controller) Append(item any) error {
	var opErr error
	c.apply(func(prev map[string]any) map[string]any {
		current, _ := fieldpath.Get(prev, c.name)
		items, ok := fieldpath.Sequence(current)
		if !ok && current != nil {
			opErr = fmt.Errorf("%w: %q holds %T", ErrNotSequence, c.name, current)
			return prev
		}
		next := make([]any, 0, len(items)+1)
		next = append(next, items...)
		next = append(next, item)
		return c.write(prev, next, &opErr)
	})
	return opErr
}

// Add is an alias of Append.
func (c *Controller) Add(item any) error {
	return c.Append(item)
}

// Remove drops the item at index. Out of range indexes keep every item.
// The field must already hold a list; otherwise ErrNotSequence is returned
// and the state is left as is.
func (c *Controller) Remove(index int) error {
	var opErr error
	c.apply(func(prev map[string]any) map[string]any {
		current, _ := fieldpath.Get(prev, c.name)
		items, ok := fieldpath.Sequence(current)
		if !ok {
			opErr = fmt.Errorf("%w: %q", ErrNotSequence, c.name)
			return prev
		}
		next := make([]any, 0, len(items))
		for i, item := range items {
			if i != index {
				next = append(next, item)
			}
		}
		return c.write(prev, next, &opErr)
	})
	return opErr
}

func (c *Controller) apply(fn func(prev map[string]any) map[string]any) {
	if c.update == nil {
		return
	}
	c.update(fn)
}

func (c *Controller) write(prev map[string]any, items []any, opErr *error) map[string]any {
	next, err := fieldpath.Set(prev, c.name, items)
	if err != nil {
		*opErr = fmt.Errorf("fieldarray: %w", err)
		return prev
	}
	return next
}
