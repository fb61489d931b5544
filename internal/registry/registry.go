// Package registry shares long-lived values, typically stores, between
// components that come and go independently.
//
// A Registry is an ordinary value owned by whoever creates it and passed to
// the components that need it. Each Acquire must be balanced by a Release;
// the value is created on the first Acquire of an id and closed when the last
// holder releases it.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotAcquired is returned by Release for an id with no holders.
	ErrNotAcquired = errors.New("registry: id not acquired")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("registry: closed")
	// ErrIDRequired is returned for a blank id.
	ErrIDRequired = errors.New("registry: id is required")
)

// Factory builds the value for id on first acquire.
type Factory[T any] func(id string) (T, error)

// Closer tears down a value once nobody holds it. May be nil.
type Closer[T any] func(id string, value T)

type entry[T any] struct {
	value T
	refs  int
}

// Registry is a reference-counted map from id to value. Safe for concurrent
// use.
type Registry[T any] struct {
	factory Factory[T]
	closer  Closer[T]

	mu      sync.Mutex
	entries map[string]*entry[T]
	closed  bool
}

// New creates an empty registry.
func New[T any](factory Factory[T], closer Closer[T]) *Registry[T] {
	return &Registry[T]{
		factory: factory,
		closer:  closer,
		entries: make(map[string]*entry[T]),
	}
}

// Acquire returns the value for id, creating it if this is the first holder.
// The factory runs under the registry lock, so concurrent first acquires of
// the same id build exactly one value.
func (r *Registry[T]) Acquire(id string) (T, error) {
	var zero T
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, ErrIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return zero, ErrClosed
	}
	if e, ok := r.entries[id]; ok {
		e.refs++
		return e.value, nil
	}

	value, err := r.factory(id)
	if err != nil {
		return zero, fmt.Errorf("registry: create %q: %w", id, err)
	}
	r.entries[id] = &entry[T]{value: value, refs: 1}
	return value, nil
}

// Release drops one hold on id and closes the value when none remain.
func (r *Registry[T]) Release(id string) error {
	id = strings.TrimSpace(id)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotAcquired, id)
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, id)
	r.mu.Unlock()

	if r.closer != nil {
		r.closer(id, e.value)
	}
	return nil
}

// Refs returns the number of holders of id.
func (r *Registry[T]) Refs(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[strings.TrimSpace(id)]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of live values.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the ids of live values, sorted.
func (r *Registry[T]) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close closes every live value regardless of holders. Later calls to
// Acquire and Release fail with ErrClosed. Idempotent.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry[T])
	r.mu.Unlock()

	if r.closer == nil {
		return
	}
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r.closer(id, entries[id].value)
	}
}
