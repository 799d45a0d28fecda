package live

import (
	"context"

	"github.com/kimhsiao/memonotes/internal/errors"
)

// Await subscribes to s and returns the first snapshot accepted by ready
// (any snapshot when ready is nil). The subscription is closed before returning.
func Await[T any](ctx context.Context, s Stream[T], ready func(Snapshot[T]) bool) (Snapshot[T], error) {
	sub := s.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return Snapshot[T]{}, ctx.Err()
		case snap, ok := <-sub.C():
			if !ok {
				return Snapshot[T]{}, errors.New(errors.ErrInternal, "stream closed")
			}
			if ready == nil || ready(snap) {
				return snap, nil
			}
		}
	}
}
