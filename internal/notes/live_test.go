package notes

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/memonotes/internal/db"
	"github.com/kimhsiao/memonotes/internal/live"
	"github.com/kimhsiao/memonotes/internal/logging"
	"github.com/kimhsiao/memonotes/internal/models"
)

func TestLive_BuyMilkScenario(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	noteID, err := repo.InsertNote(ctx, &models.Note{Title: "Buy milk", Content: "2% lowfat", Category: ""})
	require.NoError(t, err)
	tagID, err := repo.InsertTag(ctx, &models.Tag{Name: "errand"})
	require.NoError(t, err)
	require.NoError(t, repo.InsertNoteTagLink(ctx, models.NoteTagLink{NoteID: noteID, TagID: tagID}))

	withTags := awaitSnapshot(t, repo.AllNotesWithTags(), nil)
	require.NoError(t, withTags.Err)
	require.Len(t, withTags.Value, 1)
	assert.Equal(t, "Buy milk", withTags.Value[0].Note.Title)
	assert.Equal(t, []string{"errand"}, tagNames(withTags.Value[0].Tags))

	milk := awaitSnapshot(t, repo.SearchNotes("milk"), nil)
	require.NoError(t, milk.Err)
	assert.Equal(t, []string{"Buy milk"}, noteTitles(milk.Value))

	bread := awaitSnapshot(t, repo.SearchNotes("bread"), nil)
	require.NoError(t, bread.Err)
	assert.NotNil(t, bread.Value)
	assert.Empty(t, bread.Value)
}

func TestLive_AllNotesFollowsWrites(t *testing.T) {
	repo := newTestRepo(t)

	sub := repo.AllNotes().Subscribe()
	defer sub.Close()

	first := <-sub.C()
	require.NoError(t, first.Err)
	assert.Empty(t, first.Value)

	mustInsertNote(t, repo, "one", "", "")
	mustInsertNote(t, repo, "two", "", "")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap := <-sub.C():
			require.NoError(t, snap.Err)
			if len(snap.Value) == 2 {
				assert.Equal(t, []string{"two", "one"}, noteTitles(snap.Value))
				return
			}
		case <-deadline:
			t.Fatal("live query never observed both inserts")
		}
	}
}

func TestLive_SharedQueriesAreSingletons(t *testing.T) {
	repo := newTestRepo(t)
	assert.Same(t, repo.AllNotes(), repo.AllNotes())
	assert.Same(t, repo.AllNotesWithTags(), repo.AllNotesWithTags())
	assert.NotSame(t, repo.SearchNotes("a"), repo.SearchNotes("a"))
}

func TestLive_ReleasesEngineSubscription(t *testing.T) {
	repo := newTestRepo(t)
	store := repo.Store()

	a := repo.AllNotesWithTags().Subscribe()
	b := repo.AllNotesWithTags().Subscribe()
	assert.Equal(t, 1, store.Subscribers(), "subscribers share one engine subscription")

	a.Close()
	assert.Equal(t, 1, store.Subscribers())
	b.Close()
	assert.Equal(t, 0, store.Subscribers())
}

func TestLive_TagChangesRefreshJoinedView(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	noteID := mustInsertNote(t, repo, "n", "", "")
	tagID := mustInsertTag(t, repo, "old")
	require.NoError(t, repo.InsertNoteTagLink(ctx, models.NoteTagLink{NoteID: noteID, TagID: tagID}))

	stream := repo.AllNotesWithTags()
	sub := stream.Subscribe()
	defer sub.Close()
	awaitSnapshot(t, stream, func(s live.Snapshot[[]models.NoteWithTags]) bool {
		return len(s.Value) == 1 && len(s.Value[0].Tags) == 1
	})

	require.NoError(t, repo.UpdateTag(ctx, &models.Tag{ID: tagID, Name: "renamed"}))

	snap := awaitSnapshot(t, stream, func(s live.Snapshot[[]models.NoteWithTags]) bool {
		return len(s.Value) == 1 && len(s.Value[0].Tags) == 1 && s.Value[0].Tags[0].Name == "renamed"
	})
	assert.NoError(t, snap.Err)
}

func TestLive_CategoriesTagsAndNotesWithTag(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustInsertNote(t, repo, "a", "", "work")
	mustInsertNote(t, repo, "b", "", "home")
	tagID := mustInsertTag(t, repo, "zeta")
	mustInsertTag(t, repo, "alpha")
	noteID := mustInsertNote(t, repo, "c", "", "work")
	require.NoError(t, repo.InsertNoteTagLink(ctx, models.NoteTagLink{NoteID: noteID, TagID: tagID}))

	cats := awaitSnapshot(t, repo.AllCategories(), nil)
	assert.Equal(t, []string{"home", "work"}, cats.Value)

	tags := awaitSnapshot(t, repo.AllTags(), nil)
	assert.Equal(t, []string{"alpha", "zeta"}, tagNames(tags.Value))

	work := awaitSnapshot(t, repo.NotesByCategory("work"), nil)
	assert.Equal(t, []string{"c", "a"}, noteTitles(work.Value))

	tagged := awaitSnapshot(t, repo.NotesWithTag(tagID), nil)
	assert.Equal(t, []string{"c"}, noteTitles(tagged.Value))

	withTags := awaitSnapshot(t, repo.SearchNotesWithTags("C"), nil)
	require.Len(t, withTags.Value, 1)
	assert.Equal(t, []string{"zeta"}, tagNames(withTags.Value[0].Tags))
}

func TestLive_ForwardsReadErrors(t *testing.T) {
	database, err := db.Open(db.Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	store := db.NewStore(database)
	defer store.Close()
	repo := NewRepository(store, WithLogger(logging.New(io.Discard, logging.LevelError, logging.FormatJSON)))

	require.NoError(t, database.Close())

	snap := awaitSnapshot(t, repo.AllNotes(), nil)
	assert.Error(t, snap.Err, "a failed read is reported, not replaced by an empty list")
	assert.Nil(t, snap.Value)
}
