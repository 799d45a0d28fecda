package notes

import (
	"context"
	"fmt"

	"github.com/kimhsiao/memonotes/internal/db"
	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/models"
)

// =====================================================
// Link Operations
// =====================================================

// linkTagsQuery returns every (note, tag) pair with tags in view order.
const linkTagsQuery = `
	SELECT l.note_id, t.id, t.name, t.color
	FROM note_tag_link l
	JOIN tags t ON t.id = l.tag_id
	ORDER BY t.name ASC, t.id ASC`

const noteTagsQuery = `
	SELECT l.note_id, t.id, t.name, t.color
	FROM note_tag_link l
	JOIN tags t ON t.id = l.tag_id
	WHERE l.note_id = ?
	ORDER BY t.name ASC, t.id ASC`

const notesWithTagQuery = `
	SELECT n.id, n.title, n.content, n.category, n.created_at, n.updated_at
	FROM notes n
	JOIN note_tag_link l ON l.note_id = n.id
	WHERE l.tag_id = ?
	ORDER BY n.updated_at DESC, n.id DESC`

// InsertNoteTagLink links a note to a tag. Linking an already linked pair does
// nothing. Both records must exist, otherwise CONSTRAINT_VIOLATION.
func (r *Repository) InsertNoteTagLink(ctx context.Context, link models.NoteTagLink) error {
	err := r.store.Transaction(ctx, func(tx *db.Tx) error {
		return insertLink(ctx, tx, link)
	})
	if err != nil {
		return fmt.Errorf("link note %d to tag %d: %w", link.NoteID, link.TagID, err)
	}
	return nil
}

func insertLink(ctx context.Context, tx *db.Tx, link models.NoteTagLink) error {
	if err := checkID("note", link.NoteID); err != nil {
		return err
	}
	if err := checkID("tag", link.TagID); err != nil {
		return err
	}

	ok, err := tx.Exists(ctx, db.NotesTable, db.Row{"id": link.NoteID})
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(errors.ErrConstraint, "note %d does not exist", link.NoteID)
	}
	ok, err = tx.Exists(ctx, db.TagsTable, db.Row{"id": link.TagID})
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(errors.ErrConstraint, "tag %d does not exist", link.TagID)
	}

	_, err = tx.Insert(ctx, db.LinksTable, db.Row{"note_id": link.NoteID, "tag_id": link.TagID}, db.ConflictIgnore)
	return err
}

// DeleteNoteTagLink removes a link. Removing a missing link does nothing.
func (r *Repository) DeleteNoteTagLink(ctx context.Context, link models.NoteTagLink) error {
	_, err := r.store.Delete(ctx, db.LinksTable, db.Row{"note_id": link.NoteID, "tag_id": link.TagID})
	if err != nil {
		return fmt.Errorf("unlink note %d from tag %d: %w", link.NoteID, link.TagID, err)
	}
	return nil
}

// GetNoteTagLinksForNote returns the links of one note ordered by tag id.
func (r *Repository) GetNoteTagLinksForNote(ctx context.Context, noteID int64) ([]models.NoteTagLink, error) {
	if err := checkID("note", noteID); err != nil {
		return nil, err
	}
	var out []models.NoteTagLink
	err := r.store.View(ctx, func(tx *db.Tx) error {
		var err error
		out, err = linksForNote(ctx, tx, noteID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("links for note %d: %w", noteID, err)
	}
	return out, nil
}

func linksForNote(ctx context.Context, tx *db.Tx, noteID int64) ([]models.NoteTagLink, error) {
	rows, err := tx.Select(ctx, db.LinksTable, []string{"note_id", "tag_id"}, db.Row{"note_id": noteID}, "tag_id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.NoteTagLink{}
	for rows.Next() {
		var l models.NoteTagLink
		if err := rows.Scan(&l.NoteID, &l.TagID); err != nil {
			return nil, scanErr("scan link", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, scanErr("read links", err)
	}
	return out, nil
}

// ReplaceNoteTags makes tagIDs the complete tag set of a note. The old links are
// read, deleted and the new ones inserted in one transaction, so a failure leaves
// the previous set untouched. A missing note is NOTE_NOT_FOUND; a missing tag is
// CONSTRAINT_VIOLATION.
func (r *Repository) ReplaceNoteTags(ctx context.Context, noteID int64, tagIDs []int64) error {
	if err := checkID("note", noteID); err != nil {
		return err
	}
	err := r.store.Transaction(ctx, func(tx *db.Tx) error {
		ok, err := tx.Exists(ctx, db.NotesTable, db.Row{"id": noteID})
		if err != nil {
			return err
		}
		if !ok {
			return errors.Newf(errors.ErrNoteNotFound, "note %d not found", noteID)
		}

		existing, err := linksForNote(ctx, tx, noteID)
		if err != nil {
			return err
		}
		for _, l := range existing {
			if _, err := tx.Delete(ctx, db.LinksTable, db.Row{"note_id": l.NoteID, "tag_id": l.TagID}); err != nil {
				return err
			}
		}
		for _, tagID := range tagIDs {
			if err := insertLink(ctx, tx, models.NoteTagLink{NoteID: noteID, TagID: tagID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace tags of note %d: %w", noteID, err)
	}
	r.log.Debug("note tags replaced", map[string]interface{}{"note_id": noteID, "tags": len(tagIDs)})
	return nil
}

// InsertNoteWithTags stores a note and links it to tagIDs atomically. If any link
// fails the note is not stored either.
func (r *Repository) InsertNoteWithTags(ctx context.Context, note *models.Note, tagIDs []int64) (int64, error) {
	draft := *note
	var id int64
	err := r.store.Transaction(ctx, func(tx *db.Tx) error {
		var err error
		if id, err = r.insertNote(ctx, tx, &draft); err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			if err := insertLink(ctx, tx, models.NoteTagLink{NoteID: id, TagID: tagID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert note with tags: %w", err)
	}
	*note = draft
	return id, nil
}

// =====================================================
// Joined Views
// =====================================================

// GetNoteWithTags returns a note and its tags read from one snapshot, or nil when
// the note does not exist.
func (r *Repository) GetNoteWithTags(ctx context.Context, id int64) (*models.NoteWithTags, error) {
	if err := checkID("note", id); err != nil {
		return nil, err
	}
	var out *models.NoteWithTags
	err := r.store.View(ctx, func(tx *db.Tx) error {
		note, err := getNote(ctx, tx, id)
		if err != nil || note == nil {
			return err
		}
		tags, err := tagsByNote(ctx, tx, noteTagsQuery, id)
		if err != nil {
			return err
		}
		out = &models.NoteWithTags{Note: *note, Tags: tagsOrEmpty(tags[id])}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get note %d with tags: %w", id, err)
	}
	return out, nil
}

// ListNotesWithTags returns every note with its tags, most recently updated first.
func (r *Repository) ListNotesWithTags(ctx context.Context) ([]models.NoteWithTags, error) {
	return r.readNotesWithTags(ctx, allNotesByUpdateQuery)
}

// FindNotesWithTags is FindNotes with each note's tags attached.
func (r *Repository) FindNotesWithTags(ctx context.Context, text string) ([]models.NoteWithTags, error) {
	if text == "" {
		return r.readNotesWithTags(ctx, allNotesByUpdateQuery)
	}
	return r.readNotesWithTags(ctx, searchNotesQuery, text)
}

// ListNotesWithTag returns the notes linked to tagID, most recently updated first.
func (r *Repository) ListNotesWithTag(ctx context.Context, tagID int64) ([]models.Note, error) {
	if err := checkID("tag", tagID); err != nil {
		return nil, err
	}
	return r.readNotes(ctx, notesWithTagQuery, tagID)
}

// ListNotesWithTagsByCategory is ListNotesByCategory with each note's tags attached,
// read from one snapshot.
func (r *Repository) ListNotesWithTagsByCategory(ctx context.Context, category string) ([]models.NoteWithTags, error) {
	return r.readNotesWithTags(ctx, notesByCategoryQuery, category)
}

// ListNotesWithTagsByTag is ListNotesWithTag with each note's tags attached,
// read from one snapshot.
func (r *Repository) ListNotesWithTagsByTag(ctx context.Context, tagID int64) ([]models.NoteWithTags, error) {
	if err := checkID("tag", tagID); err != nil {
		return nil, err
	}
	return r.readNotesWithTags(ctx, notesWithTagQuery, tagID)
}

const allNotesByUpdateQuery = "SELECT " + noteColumns + " FROM notes ORDER BY updated_at DESC, id DESC"

func (r *Repository) readNotesWithTags(ctx context.Context, query string, args ...interface{}) ([]models.NoteWithTags, error) {
	var out []models.NoteWithTags
	err := r.store.View(ctx, func(tx *db.Tx) error {
		notes, err := listNotes(ctx, tx, query, args...)
		if err != nil {
			return err
		}
		tags, err := tagsByNote(ctx, tx, linkTagsQuery)
		if err != nil {
			return err
		}
		out = make([]models.NoteWithTags, 0, len(notes))
		for _, n := range notes {
			out = append(out, models.NoteWithTags{Note: n, Tags: tagsOrEmpty(tags[n.ID])})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notes with tags: %w", err)
	}
	return out, nil
}

// tagsByNote groups the rows of a link/tag join by note id.
func tagsByNote(ctx context.Context, tx *db.Tx, query string, args ...interface{}) (map[int64][]models.Tag, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]models.Tag)
	for rows.Next() {
		var noteID int64
		var t models.Tag
		if err := rows.Scan(&noteID, &t.ID, &t.Name, &t.Color); err != nil {
			return nil, scanErr("scan note tag", err)
		}
		out[noteID] = append(out[noteID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, scanErr("read note tags", err)
	}
	return out, nil
}

func tagsOrEmpty(tags []models.Tag) []models.Tag {
	if tags == nil {
		return []models.Tag{}
	}
	return tags
}
