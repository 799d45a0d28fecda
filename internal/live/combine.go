package live

import "context"

// Combine derives a stream from the latest values of a and b. fn runs on a single
// goroutine once both inputs have produced a value; pending inputs are drained
// first, so each result pairs the newest a with the newest b. An upstream error
// is forwarded as the output snapshot.
func Combine[A, B, R any](a Stream[A], b Stream[B], fn func(A, B) R, opts ...Option[R]) Stream[R] {
	c := &combined[A, B, R]{a: a, b: b, fn: fn}
	c.Subject = newSubject(c.start, c.stop, opts...)
	return c
}

type combined[A, B, R any] struct {
	*Subject[R]

	a  Stream[A]
	b  Stream[B]
	fn func(A, B) R

	subA   *Subscription[A]
	subB   *Subscription[B]
	cancel context.CancelFunc
	done   chan struct{}
}

func (c *combined[A, B, R]) start() {
	c.subA = c.a.Subscribe()
	c.subB = c.b.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

// side holds the newest snapshot seen from one input.
type side[T any] struct {
	value T
	has   bool
	err   error
}

func (s *side[T]) apply(snap Snapshot[T]) {
	if snap.Err != nil {
		s.err = snap.Err
		return
	}
	s.value, s.has, s.err = snap.Value, true, nil
}

func (c *combined[A, B, R]) run(ctx context.Context) {
	defer close(c.done)

	var left side[A]
	var right side[B]
	inA, inB := c.subA.C(), c.subB.C()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-inA:
			if !ok {
				return
			}
			left.apply(snap)
		case snap, ok := <-inB:
			if !ok {
				return
			}
			right.apply(snap)
		}

	drain:
		for {
			select {
			case snap, ok := <-inA:
				if !ok {
					return
				}
				left.apply(snap)
			case snap, ok := <-inB:
				if !ok {
					return
				}
				right.apply(snap)
			default:
				break drain
			}
		}

		switch {
		case left.err != nil:
			c.Fail(left.err)
		case right.err != nil:
			c.Fail(right.err)
		case left.has && right.has:
			c.Publish(c.fn(left.value, right.value))
		}
	}
}

func (c *combined[A, B, R]) stop() {
	c.cancel()
	<-c.done
	c.subA.Close()
	c.subB.Close()
	c.Reset()
}
