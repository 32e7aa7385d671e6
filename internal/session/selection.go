// Package session holds the per-screen filter selections of a running session.
//
// A selection has no value until it is seeded from what the user persisted (a favorite
// preset, a preferred cinema list). The first seed wins: later refetches of the persisted
// value are remembered but do not overwrite what the user has picked since.
package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

var ErrNotLoaded = errors.New("selection not loaded")

// Persister writes a selection somewhere durable.
type Persister[T any] func(ctx context.Context, v T) error

type Selection[T any] struct {
	mu           sync.Mutex
	value        T
	loaded       bool
	persisted    T
	hasPersisted bool

	equal   func(a, b T) bool
	persist Persister[T]
}

type SelectionOption[T any] func(*Selection[T])

// WithEqual replaces the default deep-equality check used by Set.
func WithEqual[T any](equal func(a, b T) bool) SelectionOption[T] {
	return func(s *Selection[T]) {
		s.equal = equal
	}
}

func WithPersister[T any](p Persister[T]) SelectionOption[T] {
	return func(s *Selection[T]) {
		s.persist = p
	}
}

func NewSelection[T any](opts ...SelectionOption[T]) *Selection[T] {
	s := &Selection[T]{
		equal: func(a, b T) bool { return reflect.DeepEqual(a, b) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the session value and whether it has been initialized.
func (s *Selection[T]) Current() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.loaded
}

// Seed records the persisted value and initializes the session value if it is not
// initialized yet.
func (s *Selection[T]) Seed(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = v
	s.hasPersisted = true
	if !s.loaded {
		s.value = v
		s.loaded = true
	}
}

// Set writes v unless it equals the current value, and reports whether it wrote.
func (s *Selection[T]) Set(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(v)
}

func (s *Selection[T]) setLocked(v T) bool {
	if s.loaded && s.equal(s.value, v) {
		return false
	}
	s.value = v
	s.loaded = true
	return true
}

// Persisted returns the last value seen from, or written to, durable storage.
func (s *Selection[T]) Persisted() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted, s.hasPersisted
}

// UsePersisted resets the session value to the persisted one.
func (s *Selection[T]) UsePersisted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPersisted {
		return false
	}
	return s.setLocked(s.persisted)
}

// Save persists the session value. Without a persister it only records the value as
// persisted.
func (s *Selection[T]) Save(ctx context.Context) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	v := s.value
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist(ctx, v); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = v
	s.hasPersisted = true
	return nil
}
