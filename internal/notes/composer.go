package notes

import (
	"strings"

	"github.com/kimhsiao/memonotes/internal/live"
	"github.com/kimhsiao/memonotes/internal/models"
)

// Mode is the composer's filter state.
type Mode int

const (
	// Idle means no filter is applied.
	Idle Mode = iota
	// Filtering means a non-blank filter is applied.
	Filtering
)

func (m Mode) String() string {
	if m == Filtering {
		return "filtering"
	}
	return "idle"
}

// Composer combines a live list of notes with an owned filter into a filtered view.
// Filtering happens in memory; changing the filter never re-reads storage.
type Composer struct {
	filter *live.State[string]
	view   live.Stream[[]models.NoteWithTags]
}

// NewComposer builds a composer over base. filter is owned by the caller and may
// be shared with other derived streams; nil creates a fresh empty filter.
func NewComposer(base live.Stream[[]models.NoteWithTags], filter *live.State[string]) *Composer {
	if filter == nil {
		filter = live.NewState("")
	}
	return &Composer{
		filter: filter,
		view: live.Combine[[]models.NoteWithTags, string, []models.NoteWithTags](
			base, filter, FilterNotesWithTags,
			live.WithInitial([]models.NoteWithTags{}),
		),
	}
}

// SetFilter replaces the filter text.
func (c *Composer) SetFilter(text string) {
	c.filter.Set(text)
}

// Clear removes the filter.
func (c *Composer) Clear() {
	c.SetFilter("")
}

// Filter returns the current filter text.
func (c *Composer) Filter() string {
	return c.filter.Value()
}

// Mode reports whether a filter is applied.
func (c *Composer) Mode() Mode {
	if strings.TrimSpace(c.filter.Value()) == "" {
		return Idle
	}
	return Filtering
}

// View is the filtered stream. It starts empty, is shared by all subscribers and
// forwards errors from the base stream.
func (c *Composer) View() live.Stream[[]models.NoteWithTags] {
	return c.view
}
