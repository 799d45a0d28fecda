package notes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/models"
)

func TestRepository_LinkIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	link := models.NoteTagLink{NoteID: mustInsertNote(t, repo, "n", "", ""), TagID: mustInsertTag(t, repo, "t")}

	require.NoError(t, repo.InsertNoteTagLink(ctx, link))
	require.NoError(t, repo.InsertNoteTagLink(ctx, link))

	links, err := repo.GetNoteTagLinksForNote(ctx, link.NoteID)
	require.NoError(t, err)
	assert.Equal(t, []models.NoteTagLink{link}, links)
}

func TestRepository_LinkRequiresBothRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	noteID := mustInsertNote(t, repo, "n", "", "")
	tagID := mustInsertTag(t, repo, "t")

	err := repo.InsertNoteTagLink(ctx, models.NoteTagLink{NoteID: noteID, TagID: tagID + 100})
	assert.True(t, errors.Is(err, errors.ErrConstraint), "got %v", err)

	err = repo.InsertNoteTagLink(ctx, models.NoteTagLink{NoteID: noteID + 100, TagID: tagID})
	assert.True(t, errors.Is(err, errors.ErrConstraint), "got %v", err)

	err = repo.InsertNoteTagLink(ctx, models.NoteTagLink{NoteID: -1, TagID: tagID})
	assert.True(t, errors.Is(err, errors.ErrInvalid), "got %v", err)
}

func TestRepository_DeleteMissingLinkIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.DeleteNoteTagLink(context.Background(), models.NoteTagLink{NoteID: 9, TagID: 9}))
}

func TestRepository_JoinCorrectness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	noteID := mustInsertNote(t, repo, "n", "", "")
	b := mustInsertTag(t, repo, "B")
	a := mustInsertTag(t, repo, "A")
	require.NoError(t, repo.InsertNoteTagLink(ctx, models.NoteTagLink{NoteID: noteID, TagID: a}))
	require.NoError(t, repo.InsertNoteTagLink(ctx, models.NoteTagLink{NoteID: noteID, TagID: b}))

	got, err := repo.GetNoteWithTags(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tagNames(got.Tags))

	require.NoError(t, repo.DeleteNoteTagLink(ctx, models.NoteTagLink{NoteID: noteID, TagID: a}))
	got, err = repo.GetNoteWithTags(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, tagNames(got.Tags))
}

func TestRepository_GetNoteWithTagsMissing(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.GetNoteWithTags(context.Background(), 77)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepository_ReplaceNoteTags(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	noteID := mustInsertNote(t, repo, "n", "", "")
	x := mustInsertTag(t, repo, "x")
	y := mustInsertTag(t, repo, "y")
	z := mustInsertTag(t, repo, "z")

	require.NoError(t, repo.ReplaceNoteTags(ctx, noteID, []int64{x, y}))
	require.NoError(t, repo.ReplaceNoteTags(ctx, noteID, []int64{z, y}))

	got, err := repo.GetNoteWithTags(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, tagNames(got.Tags))

	require.NoError(t, repo.ReplaceNoteTags(ctx, noteID, nil))
	got, err = repo.GetNoteWithTags(ctx, noteID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestRepository_ReplaceNoteTagsIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	noteID := mustInsertNote(t, repo, "n", "", "")
	x := mustInsertTag(t, repo, "x")
	y := mustInsertTag(t, repo, "y")
	require.NoError(t, repo.ReplaceNoteTags(ctx, noteID, []int64{x, y}))

	sub := repo.Store().Subscribe("note_tag_link")
	defer sub.Close()

	// The insert phase fails on the missing tag after the deletes have run.
	err := repo.ReplaceNoteTags(ctx, noteID, []int64{x, 9999})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConstraint), "got %v", err)

	links, err := repo.GetNoteTagLinksForNote(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, []models.NoteTagLink{{NoteID: noteID, TagID: x}, {NoteID: noteID, TagID: y}}, links)

	select {
	case <-sub.C():
		t.Fatal("rolled back transaction must not notify")
	default:
	}
}

func TestRepository_ReplaceTagsOfMissingNote(t *testing.T) {
	repo := newTestRepo(t)
	tagID := mustInsertTag(t, repo, "x")
	err := repo.ReplaceNoteTags(context.Background(), 404, []int64{tagID})
	assert.True(t, errors.Is(err, errors.ErrNoteNotFound), "got %v", err)
}

func TestRepository_InsertNoteWithTags(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := mustInsertTag(t, repo, "a")
	b := mustInsertTag(t, repo, "b")

	note := &models.Note{Title: "tagged"}
	id, err := repo.InsertNoteWithTags(ctx, note, []int64{b, a})
	require.NoError(t, err)
	assert.Equal(t, id, note.ID)

	got, err := repo.GetNoteWithTags(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tagNames(got.Tags))
}

func TestRepository_InsertNoteWithTagsRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := mustInsertTag(t, repo, "a")

	note := &models.Note{Title: "orphan"}
	_, err := repo.InsertNoteWithTags(ctx, note, []int64{a, 31337})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConstraint))
	assert.Zero(t, note.ID, "failed insert leaves the caller's note untouched")

	notes, err := repo.ListNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestRepository_NotesWithTagAndSearchWithTags(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	errand := mustInsertTag(t, repo, "errand")
	milk, err := repo.InsertNoteWithTags(ctx, &models.Note{Title: "Buy milk"}, []int64{errand})
	require.NoError(t, err)
	mustInsertNote(t, repo, "Read book", "", "")
	eggs, err := repo.InsertNoteWithTags(ctx, &models.Note{Title: "Buy eggs"}, []int64{errand})
	require.NoError(t, err)

	tagged, err := repo.ListNotesWithTag(ctx, errand)
	require.NoError(t, err)
	require.Len(t, tagged, 2)
	assert.Equal(t, eggs, tagged[0].ID)
	assert.Equal(t, milk, tagged[1].ID)

	found, err := repo.FindNotesWithTags(ctx, "buy")
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy eggs", "Buy milk"}, viewTitles(found))
	for _, f := range found {
		assert.Equal(t, []string{"errand"}, tagNames(f.Tags))
	}

	all, err := repo.ListNotesWithTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy eggs", "Read book", "Buy milk"}, viewTitles(all))
	assert.NotNil(t, all[1].Tags)
	assert.Empty(t, all[1].Tags)
}

func TestRepository_ListNotesWithTagsByCategoryAndTag(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	errand := mustInsertTag(t, repo, "errand")
	urgent := mustInsertTag(t, repo, "urgent")

	milk, err := repo.InsertNoteWithTags(ctx, &models.Note{Title: "Buy milk", Category: "home"}, []int64{errand, urgent})
	require.NoError(t, err)
	mustInsertNote(t, repo, "Grocery List", "", "home")
	_, err = repo.InsertNoteWithTags(ctx, &models.Note{Title: "Standup", Category: "work"}, []int64{urgent})
	require.NoError(t, err)

	home, err := repo.ListNotesWithTagsByCategory(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grocery List", "Buy milk"}, viewTitles(home))
	assert.Empty(t, home[0].Tags)
	assert.Equal(t, []string{"errand", "urgent"}, tagNames(home[1].Tags))

	plain, err := repo.ListNotesByCategory(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grocery List", "Buy milk"}, noteTitles(plain))

	tagged, err := repo.ListNotesWithTagsByTag(ctx, urgent)
	require.NoError(t, err)
	assert.Equal(t, []string{"Standup", "Buy milk"}, viewTitles(tagged))
	assert.Equal(t, milk, tagged[1].Note.ID)
	assert.Equal(t, []string{"errand", "urgent"}, tagNames(tagged[1].Tags), "every tag of the note, not only the queried one")

	_, err = repo.ListNotesWithTagsByTag(ctx, -1)
	assert.True(t, errors.Is(err, errors.ErrInvalid))
}
