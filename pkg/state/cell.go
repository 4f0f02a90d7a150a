// Package state provides a small observable value cell with single-writer,
// synchronous update semantics. Subscribers are notified after each commit in
// the order commits happened.
package state

import (
	"sync"

	"github.com/eapache/queue"
)

// Listener receives the previous and the newly committed value.
type Listener[T any] func(prev, next T)

// Cell holds one value of type T. Updates replace the value wholesale; the
// cell never mutates a committed value itself.
type Cell[T any] struct {
	mu          sync.Mutex
	value       T
	listeners   map[int]Listener[T]
	order       []int
	nextID      int
	pending     *queue.Queue
	dispatching bool
}

type change[T any] struct {
	prev T
	next T
}

// NewCell creates a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value:     initial,
		listeners: make(map[int]Listener[T]),
		pending:   queue.New(),
	}
}

// Get returns the last committed value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set commits next and notifies subscribers.
func (c *Cell[T]) Set(next T) {
	c.Update(func(T) T { return next })
}

// Update commits fn(prev), where prev is the last committed value. fn runs
// under the cell lock and must not call back into the cell.
func (c *Cell[T]) Update(fn func(prev T) T) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	prev := c.value
	c.value = fn(prev)
	c.pending.Add(change[T]{prev: prev, next: c.value})
	if c.dispatching {
		// The outer dispatch loop drains the queue once the current listener returns.
		c.mu.Unlock()
		return
	}
	c.dispatching = true
	c.mu.Unlock()

	c.drain()
}

// Subscribe registers fn and returns a function that removes it.
func (c *Cell[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
			for i, existing := range c.order {
				if existing == id {
					c.order = append(c.order[:i:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

// drain delivers queued changes until the queue is empty. When a listener
// panics the remaining notifications of that dispatch are dropped and the
// panic propagates, leaving the cell ready for the next Update.
func (c *Cell[T]) drain() {
	done := false
	defer func() {
		if done {
			return
		}
		c.mu.Lock()
		c.pending = queue.New()
		c.dispatching = false
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		if c.pending.Length() == 0 {
			c.dispatching = false
			done = true
			c.mu.Unlock()
			return
		}
		ch := c.pending.Remove().(change[T])
		listeners := make([]Listener[T], 0, len(c.order))
		for _, id := range c.order {
			listeners = append(listeners, c.listeners[id])
		}
		c.mu.Unlock()

		for _, fn := range listeners {
			fn(ch.prev, ch.next)
		}
	}
}
