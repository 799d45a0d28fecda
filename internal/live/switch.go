package live

import "context"

// SwitchMap maps every value of src to a stream and mirrors the most recent one.
// When src moves on, the previous inner stream's subscription is closed.
func SwitchMap[A, R any](src Stream[A], fn func(A) Stream[R], opts ...Option[R]) Stream[R] {
	s := &switched[A, R]{src: src, fn: fn}
	s.Subject = newSubject(s.start, s.stop, opts...)
	return s
}

type switched[A, R any] struct {
	*Subject[R]

	src Stream[A]
	fn  func(A) Stream[R]

	sub    *Subscription[A]
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *switched[A, R]) start() {
	s.sub = s.src.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *switched[A, R]) run(ctx context.Context) {
	defer close(s.done)

	var inner *Subscription[R]
	var innerC <-chan Snapshot[R]
	defer func() {
		if inner != nil {
			inner.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-s.sub.C():
			if !ok {
				return
			}
			if inner != nil {
				inner.Close()
				inner, innerC = nil, nil
			}
			if snap.Err != nil {
				s.Fail(snap.Err)
				continue
			}
			inner = s.fn(snap.Value).Subscribe()
			innerC = inner.C()
		case snap, ok := <-innerC:
			if !ok {
				innerC = nil
				continue
			}
			s.Emit(snap)
		}
	}
}

func (s *switched[A, R]) stop() {
	s.cancel()
	<-s.done
	s.sub.Close()
	s.Reset()
}
