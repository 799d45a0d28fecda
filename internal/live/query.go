package live

import (
	"context"

	"github.com/kimhsiao/memonotes/internal/logging"
)

// Trigger opens a change feed. It returns the signal channel and a release func
// that closes the feed. A closed channel ends the query loop.
type Trigger func() (<-chan struct{}, func())

// FetchFunc reads the current result of a query.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Query is a live query: it fetches once when its first subscriber arrives and
// again after every change signal, until its last subscriber leaves.
type Query[T any] struct {
	*Subject[T]

	name    string
	trigger Trigger
	fetch   FetchFunc[T]

	cancel  context.CancelFunc
	release func()
	done    chan struct{}
}

// NewQuery creates a live query. name is only used for logging.
func NewQuery[T any](name string, trigger Trigger, fetch FetchFunc[T], opts ...Option[T]) *Query[T] {
	q := &Query[T]{name: name, trigger: trigger, fetch: fetch}
	q.Subject = newSubject(q.start, q.stop, opts...)
	return q
}

// start runs under the subject's lifecycle lock.
func (q *Query[T]) start() {
	// Subscribe before the first fetch so no commit can slip in between.
	signals, release := q.trigger()
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.release = release
	q.done = make(chan struct{})
	go q.run(ctx, signals)
}

func (q *Query[T]) run(ctx context.Context, signals <-chan struct{}) {
	defer close(q.done)

	q.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			q.refresh(ctx)
		}
	}
}

func (q *Query[T]) refresh(ctx context.Context) {
	v, err := q.fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logging.Warn("live query failed", map[string]interface{}{
			"query": q.name,
			"error": err.Error(),
		})
		q.Fail(err)
		return
	}
	q.Publish(v)
}

// stop runs under the subject's lifecycle lock.
func (q *Query[T]) stop() {
	q.cancel()
	<-q.done
	q.release()
	q.Reset()
}
