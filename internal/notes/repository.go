// Package notes provides typed note, tag and link operations on top of the storage
// engine, plus the live queries and filtered views built from them.
package notes

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kimhsiao/memonotes/internal/db"
	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/logging"
	"github.com/kimhsiao/memonotes/internal/models"
)

// DefaultMaxConcurrentQueries bounds how many live queries read at once.
const DefaultMaxConcurrentQueries = 2

// Repository provides note, tag and link operations.
// Every operation runs against committed state; writes are atomic.
type Repository struct {
	store *db.Store
	reads *semaphore.Weighted
	now   func() time.Time
	log   *logging.Logger

	queries sharedQueries
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for note timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithMaxConcurrentQueries bounds concurrent live-query reads.
func WithMaxConcurrentQueries(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.reads = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLogger sets the logger. The global logger is used otherwise.
func WithLogger(l *logging.Logger) Option {
	return func(r *Repository) { r.log = l }
}

// NewRepository creates a Repository over store.
func NewRepository(store *db.Store, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		reads: semaphore.NewWeighted(DefaultMaxConcurrentQueries),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logging.Get()
	}
	return r
}

// Store returns the underlying storage engine.
func (r *Repository) Store() *db.Store {
	return r.store
}

func checkID(kind string, id int64) error {
	if id < 0 {
		return errors.Newf(errors.ErrInvalid, "%s id must not be negative, got %d", kind, id)
	}
	return nil
}

func scanErr(op string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return errors.Wrap(errors.ErrDatabase, op, err)
}

// =====================================================
// Note Operations
// =====================================================

const noteColumns = "id, title, content, category, created_at, updated_at"

func noteRow(n *models.Note) db.Row {
	return db.Row{
		"id":         n.ID,
		"title":      n.Title,
		"content":    n.Content,
		"category":   n.Category,
		"created_at": n.CreatedAt,
		"updated_at": n.UpdatedAt,
	}
}

func scanNotes(rows *sql.Rows) ([]models.Note, error) {
	defer rows.Close()
	out := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Category, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, scanErr("scan note", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, scanErr("read notes", err)
	}
	return out, nil
}

// InsertNote stores a new note and returns its id. Both timestamps are set to now;
// note.ID, CreatedAt and UpdatedAt are filled in on success.
func (r *Repository) InsertNote(ctx context.Context, note *models.Note) (int64, error) {
	var id int64
	err := r.store.Transaction(ctx, func(tx *db.Tx) error {
		var err error
		id, err = r.insertNote(ctx, tx, note)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}
	r.log.Debug("note inserted", map[string]interface{}{"note_id": id})
	return id, nil
}

func (r *Repository) insertNote(ctx context.Context, tx *db.Tx, note *models.Note) (int64, error) {
	if err := checkID("note", note.ID); err != nil {
		return 0, err
	}
	stamped := *note
	stamped.Stamp(r.now())
	id, err := tx.Insert(ctx, db.NotesTable, noteRow(&stamped), db.ConflictAbort)
	if err != nil {
		return 0, err
	}
	stamped.ID = id
	*note = stamped
	return id, nil
}

// UpdateNote replaces the title, content and category of an existing note and
// refreshes UpdatedAt. CreatedAt is never changed. A missing note is NOTE_NOT_FOUND.
func (r *Repository) UpdateNote(ctx context.Context, note *models.Note) error {
	if err := checkID("note", note.ID); err != nil {
		return err
	}
	err := r.store.Transaction(ctx, func(tx *db.Tx) error {
		var createdAt int64
		err := tx.QueryRow(ctx, "SELECT created_at FROM notes WHERE id = ?", note.ID).Scan(&createdAt)
		if err == sql.ErrNoRows {
			return errors.Newf(errors.ErrNoteNotFound, "note %d not found", note.ID)
		}
		if err != nil {
			return scanErr("load note", err)
		}

		updated := *note
		updated.CreatedAt = createdAt
		updated.Touch(r.now())
		if err := tx.Update(ctx, db.NotesTable, noteRow(&updated)); err != nil {
			return err
		}
		*note = updated
		return nil
	})
	if err != nil {
		return fmt.Errorf("update note %d: %w", note.ID, err)
	}
	return nil
}

// DeleteNote removes a note and its tag links. A missing note is NOTE_NOT_FOUND.
func (r *Repository) DeleteNote(ctx context.Context, id int64) error {
	if err := checkID("note", id); err != nil {
		return err
	}
	err := r.store.Transaction(ctx, func(tx *db.Tx) error {
		n, err := tx.Delete(ctx, db.NotesTable, db.Row{"id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Newf(errors.ErrNoteNotFound, "note %d not found", id)
		}
		_, err = tx.Delete(ctx, db.LinksTable, db.Row{"note_id": id})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	}
	r.log.Debug("note deleted", map[string]interface{}{"note_id": id})
	return nil
}

// DeleteAllNotes removes every note and every link. Tags are kept.
func (r *Repository) DeleteAllNotes(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.Transaction(ctx, func(tx *db.Tx) error {
		var err error
		if n, err = tx.Delete(ctx, db.NotesTable, nil); err != nil {
			return err
		}
		_, err = tx.Delete(ctx, db.LinksTable, nil)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete all notes: %w", err)
	}
	r.log.Info("all notes deleted", map[string]interface{}{"count": n})
	return n, nil
}

// GetNoteByID returns the note with id, or nil when there is none.
func (r *Repository) GetNoteByID(ctx context.Context, id int64) (*models.Note, error) {
	if err := checkID("note", id); err != nil {
		return nil, err
	}
	var note *models.Note
	err := r.store.View(ctx, func(tx *db.Tx) error {
		var err error
		note, err = getNote(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get note %d: %w", id, err)
	}
	return note, nil
}

func getNote(ctx context.Context, tx *db.Tx, id int64) (*models.Note, error) {
	rows, err := tx.Select(ctx, db.NotesTable,
		[]string{"id", "title", "content", "category", "created_at", "updated_at"}, db.Row{"id": id}, "")
	if err != nil {
		return nil, err
	}
	notes, err := scanNotes(rows)
	if err != nil || len(notes) == 0 {
		return nil, err
	}
	return &notes[0], nil
}

func listNotes(ctx context.Context, tx *db.Tx, query string, args ...interface{}) ([]models.Note, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanNotes(rows)
}

const (
	allNotesQuery = "SELECT " + noteColumns + " FROM notes ORDER BY id DESC"

	searchNotesQuery = "SELECT " + noteColumns + " FROM notes" +
		" WHERE instr(fold(title), fold(?1)) > 0 OR instr(fold(content), fold(?1)) > 0" +
		" ORDER BY updated_at DESC, id DESC"

	notesByCategoryQuery = "SELECT " + noteColumns + " FROM notes WHERE category = ?" +
		" ORDER BY updated_at DESC, id DESC"

	categoriesQuery = "SELECT DISTINCT category FROM notes WHERE category != '' ORDER BY category ASC"
)

// ListNotes returns every note, newest id first.
func (r *Repository) ListNotes(ctx context.Context) ([]models.Note, error) {
	return r.readNotes(ctx, allNotesQuery)
}

// FindNotes returns notes whose title or content contains text, ignoring case,
// most recently updated first. Empty text matches every note.
func (r *Repository) FindNotes(ctx context.Context, text string) ([]models.Note, error) {
	if text == "" {
		return r.readNotes(ctx, allNotesByUpdateQuery)
	}
	return r.readNotes(ctx, searchNotesQuery, text)
}

// ListNotesByCategory returns notes whose category equals category exactly.
func (r *Repository) ListNotesByCategory(ctx context.Context, category string) ([]models.Note, error) {
	return r.readNotes(ctx, notesByCategoryQuery, category)
}

// ListCategories returns the distinct non-empty categories in ascending order.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.store.View(ctx, func(tx *db.Tx) error {
		rows, err := tx.Query(ctx, categoriesQuery)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				return scanErr("scan category", err)
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *Repository) readNotes(ctx context.Context, query string, args ...interface{}) ([]models.Note, error) {
	var out []models.Note
	err := r.store.View(ctx, func(tx *db.Tx) error {
		var err error
		out, err = listNotes(ctx, tx, query, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}
