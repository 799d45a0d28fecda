// Package live implements observable, conflated value streams used for live queries.
//
// A Stream always holds at most one current Snapshot. Subscribers receive the current
// snapshot as soon as they subscribe and then every later one, except that a slow
// subscriber only ever sees the newest pending snapshot.
package live

import "sync"

// Snapshot is one emission of a stream: either a value or the error that replaced it.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Stream is a shared, observable sequence of snapshots.
type Stream[T any] interface {
	// Subscribe registers a new observer. The caller must Close it when done.
	Subscribe() *Subscription[T]
	// Latest returns the current snapshot, if any.
	Latest() (Snapshot[T], bool)
}

// Subscription is one observer of a Stream.
type Subscription[T any] struct {
	ch      chan Snapshot[T]
	subject *Subject[T]
	once    sync.Once
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription[T]) C() <-chan Snapshot[T] {
	return s.ch
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.subject.unsubscribe(s)
	})
}

// Option configures a Subject.
type Option[T any] func(*Subject[T])

// WithInitial gives the stream a value before anything has been emitted.
// Streams reset to this value when their last subscriber leaves.
func WithInitial[T any](v T) Option[T] {
	return func(s *Subject[T]) {
		s.initial = Snapshot[T]{Value: v}
		s.hasInitial = true
	}
}

// Subject is a multicast Stream that producers push snapshots into.
type Subject[T any] struct {
	mu         sync.Mutex
	latest     Snapshot[T]
	has        bool
	initial    Snapshot[T]
	hasInitial bool
	subs       map[*Subscription[T]]struct{}

	// lifecycle serializes start/stop hooks. It is never held while mu is waited on
	// by a producer, so producers can keep emitting while a hook runs.
	lifecycle sync.Mutex
	active    bool
	onStart   func()
	onStop    func()
}

// NewSubject creates a Subject with no producer hooks.
func NewSubject[T any](opts ...Option[T]) *Subject[T] {
	return newSubject(nil, nil, opts...)
}

func newSubject[T any](onStart, onStop func(), opts ...Option[T]) *Subject[T] {
	s := &Subject[T]{
		subs:    make(map[*Subscription[T]]struct{}),
		onStart: onStart,
		onStop:  onStop,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.latest, s.has = s.initial, s.hasInitial
	return s
}

// Subscribe implements Stream. The first subscriber starts the producer.
func (s *Subject[T]) Subscribe() *Subscription[T] {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	sub := &Subscription[T]{ch: make(chan Snapshot[T], 1), subject: s}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	if s.has {
		sub.ch <- s.latest
	}
	s.mu.Unlock()

	if !s.active {
		s.active = true
		if s.onStart != nil {
			s.onStart()
		}
	}
	return sub
}

func (s *Subject[T]) unsubscribe(sub *Subscription[T]) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	delete(s.subs, sub)
	close(sub.ch)
	last := len(s.subs) == 0
	s.mu.Unlock()

	if last && s.active {
		s.active = false
		if s.onStop != nil {
			s.onStop()
		}
	}
}

// Latest implements Stream.
func (s *Subject[T]) Latest() (Snapshot[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.has
}

// Subscribers reports the number of open subscriptions.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Emit records snap as the current snapshot and delivers it to every subscriber.
// Delivery never blocks: an undelivered older snapshot is replaced.
func (s *Subject[T]) Emit(snap Snapshot[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest, s.has = snap, true
	for sub := range s.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}
}

// Publish emits a value.
func (s *Subject[T]) Publish(v T) {
	s.Emit(Snapshot[T]{Value: v})
}

// Fail emits an error.
func (s *Subject[T]) Fail(err error) {
	s.Emit(Snapshot[T]{Err: err})
}

// Reset restores the initial snapshot without notifying anyone.
func (s *Subject[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest, s.has = s.initial, s.hasInitial
}
