package notes

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/memonotes/internal/db"
	"github.com/kimhsiao/memonotes/internal/live"
	"github.com/kimhsiao/memonotes/internal/logging"
	"github.com/kimhsiao/memonotes/internal/models"
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return newTestRepoWith(t, db.Options{DataDir: t.TempDir(), FileName: "notes.db"})
}

func newTestRepoWith(t *testing.T, opts db.Options) *Repository {
	t.Helper()
	database, err := db.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))

	store := db.NewStore(database)
	t.Cleanup(func() { store.Close() })

	return NewRepository(store,
		WithClock(newStepClock().Now),
		WithLogger(logging.New(io.Discard, logging.LevelDebug, logging.FormatJSON)),
	)
}

func mustInsertNote(t *testing.T, r *Repository, title, content, category string) int64 {
	t.Helper()
	id, err := r.InsertNote(context.Background(), &models.Note{Title: title, Content: content, Category: category})
	require.NoError(t, err)
	return id
}

func mustInsertTag(t *testing.T, r *Repository, name string) int64 {
	t.Helper()
	id, err := r.InsertTag(context.Background(), &models.Tag{Name: name})
	require.NoError(t, err)
	return id
}

// awaitSnapshot waits for a snapshot of s accepted by ok.
func awaitSnapshot[T any](t *testing.T, s live.Stream[T], ok func(live.Snapshot[T]) bool) live.Snapshot[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := live.Await(ctx, s, ok)
	require.NoError(t, err, "no matching snapshot before timeout")
	return snap
}

func noteTitles(notes []models.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Title)
	}
	return out
}

func viewTitles(items []models.NoteWithTags) []string {
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.Note.Title)
	}
	return out
}

func tagNames(tags []models.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Name)
	}
	return out
}
