package notes

import (
	"context"
	"strconv"
	"sync"

	"github.com/kimhsiao/memonotes/internal/live"
	"github.com/kimhsiao/memonotes/internal/models"
)

// =====================================================
// Live Queries
// =====================================================

// Tables each live query depends on.
var (
	noteTables     = []string{"notes"}
	tagTables      = []string{"tags"}
	joinedTables   = []string{"notes", "tags", "note_tag_link"}
	noteLinkTables = []string{"notes", "note_tag_link"}
)

// sharedQueries holds the parameterless live queries so every caller observes
// the same instance and a single re-fetch serves all subscribers.
type sharedQueries struct {
	once             sync.Once
	allNotes         live.Stream[[]models.Note]
	allCategories    live.Stream[[]string]
	allTags          live.Stream[[]models.Tag]
	allNotesWithTags live.Stream[[]models.NoteWithTags]
}

func (r *Repository) shared() *sharedQueries {
	r.queries.once.Do(func() {
		r.queries.allNotes = newLiveQuery(r, "all_notes", noteTables, r.ListNotes)
		r.queries.allCategories = newLiveQuery(r, "all_categories", noteTables, r.ListCategories)
		r.queries.allTags = newLiveQuery(r, "all_tags", tagTables, r.ListTags)
		r.queries.allNotesWithTags = newLiveQuery(r, "all_notes_with_tags", joinedTables, r.ListNotesWithTags)
	})
	return &r.queries
}

// trigger opens an engine subscription for tables.
func (r *Repository) trigger(tables []string) live.Trigger {
	return func() (<-chan struct{}, func()) {
		sub := r.store.Subscribe(tables...)
		return sub.C(), sub.Close
	}
}

// newLiveQuery wraps fetch in a live query that re-reads after commits to tables.
// Reads are bounded by the repository's query semaphore.
func newLiveQuery[T any](r *Repository, name string, tables []string, fetch func(ctx context.Context) (T, error)) live.Stream[T] {
	return live.NewQuery(name, r.trigger(tables), func(ctx context.Context) (T, error) {
		if err := r.reads.Acquire(ctx, 1); err != nil {
			var zero T
			return zero, err
		}
		defer r.reads.Release(1)
		return fetch(ctx)
	})
}

// AllNotes streams every note, newest id first.
func (r *Repository) AllNotes() live.Stream[[]models.Note] {
	return r.shared().allNotes
}

// SearchNotes streams the notes whose title or content contains text, ignoring case.
func (r *Repository) SearchNotes(text string) live.Stream[[]models.Note] {
	return newLiveQuery(r, "search_notes", noteTables, func(ctx context.Context) ([]models.Note, error) {
		return r.FindNotes(ctx, text)
	})
}

// NotesByCategory streams the notes in one category.
func (r *Repository) NotesByCategory(category string) live.Stream[[]models.Note] {
	return newLiveQuery(r, "notes_by_category", noteTables, func(ctx context.Context) ([]models.Note, error) {
		return r.ListNotesByCategory(ctx, category)
	})
}

// AllCategories streams the distinct non-empty categories.
func (r *Repository) AllCategories() live.Stream[[]string] {
	return r.shared().allCategories
}

// AllTags streams every tag ordered by name.
func (r *Repository) AllTags() live.Stream[[]models.Tag] {
	return r.shared().allTags
}

// AllNotesWithTags streams every note with its tags, most recently updated first.
// Each snapshot is read in one transaction.
func (r *Repository) AllNotesWithTags() live.Stream[[]models.NoteWithTags] {
	return r.shared().allNotesWithTags
}

// SearchNotesWithTags streams SearchNotes results with tags attached.
func (r *Repository) SearchNotesWithTags(text string) live.Stream[[]models.NoteWithTags] {
	return newLiveQuery(r, "search_notes_with_tags", joinedTables, func(ctx context.Context) ([]models.NoteWithTags, error) {
		return r.FindNotesWithTags(ctx, text)
	})
}

// NotesWithTag streams the notes linked to tagID.
func (r *Repository) NotesWithTag(tagID int64) live.Stream[[]models.Note] {
	return newLiveQuery(r, "notes_with_tag_"+strconv.FormatInt(tagID, 10), noteLinkTables,
		func(ctx context.Context) ([]models.Note, error) {
			return r.ListNotesWithTag(ctx, tagID)
		})
}
