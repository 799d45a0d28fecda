package live

import "sync"

// State is an owned mutable value that is also a Stream. Setting an equal value
// emits nothing.
type State[T comparable] struct {
	mu      sync.Mutex
	value   T
	subject *Subject[T]
}

// NewState creates a State holding initial.
func NewState[T comparable](initial T) *State[T] {
	return &State[T]{
		value:   initial,
		subject: NewSubject(WithInitial(initial)),
	}
}

// Set replaces the value and reports whether it changed.
func (s *State[T]) Set(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == s.value {
		return false
	}
	s.value = v
	s.subject.Publish(v)
	return true
}

// Value returns the current value.
func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Subscribe implements Stream.
func (s *State[T]) Subscribe() *Subscription[T] {
	return s.subject.Subscribe()
}

// Latest implements Stream.
func (s *State[T]) Latest() (Snapshot[T], bool) {
	return s.subject.Latest()
}
