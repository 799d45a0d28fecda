package notes

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kimhsiao/memonotes/internal/live"
	"github.com/kimhsiao/memonotes/internal/models"
	"github.com/kimhsiao/memonotes/internal/uuid"
)

// DefaultMaxWorkers bounds how many launched commands run at once in a session.
const DefaultMaxWorkers = 4

// Session is the state owned by one client: its search text, the streams derived
// from it and a bounded worker group for commands that must not block the caller.
type Session struct {
	ID string

	repo     *Repository
	query    *live.State[string]
	composer *Composer
	notes    live.Stream[[]models.Note]

	ctx     context.Context
	cancel  context.CancelFunc
	group   errgroup.Group
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSession creates a session with an empty search query. maxWorkers <= 0 uses
// DefaultMaxWorkers.
func NewSession(parent context.Context, repo *Repository, maxWorkers int) *Session {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	ctx, cancel := context.WithCancel(parent)

	query := live.NewState("")
	s := &Session{
		ID:       uuid.New(),
		repo:     repo,
		query:    query,
		composer: NewComposer(repo.AllNotesWithTags(), query),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.group.SetLimit(maxWorkers)
	s.notes = live.SwitchMap[string, []models.Note](query, func(text string) live.Stream[[]models.Note] {
		if strings.TrimSpace(text) == "" {
			return repo.AllNotes()
		}
		return repo.SearchNotes(text)
	})
	return s
}

// Notes streams every note while the query is blank and the search results otherwise.
func (s *Session) Notes() live.Stream[[]models.Note] {
	return s.notes
}

// NotesWithTags streams all notes with tags filtered by the query across title,
// content, category and tag names.
func (s *Session) NotesWithTags() live.Stream[[]models.NoteWithTags] {
	return s.composer.View()
}

// Composer exposes the session's composer.
func (s *Session) Composer() *Composer {
	return s.composer
}

// SearchQuery returns the current query text.
func (s *Session) SearchQuery() string {
	return s.query.Value()
}

// UpdateSearchQuery replaces the query text.
func (s *Session) UpdateSearchQuery(text string) {
	s.composer.SetFilter(text)
}

// ClearSearch resets the query to empty.
func (s *Session) ClearSearch() {
	s.composer.Clear()
}

// Repository returns the data access layer behind the session.
func (s *Session) Repository() *Repository {
	return s.repo
}

// Launch runs fn on the session's worker group and returns at once, even when every
// worker is busy. A failing command does not stop later ones; its error is logged
// and the first one is returned by Close. Launching on a closed session does nothing.
func (s *Session) Launch(fn func(ctx context.Context, repo *Repository) error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()
		s.group.Go(func() error {
			if err := fn(s.ctx, s.repo); err != nil {
				s.repo.log.Warn("session command failed", map[string]interface{}{
					"session_id": s.ID,
					"error":      err.Error(),
				})
				return err
			}
			return nil
		})
	}()
}

// Close stops accepting commands, waits for launched ones to finish, cancels the
// session context and returns the first command error.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.pending.Wait()
	err := s.group.Wait()
	s.cancel()
	return err
}
