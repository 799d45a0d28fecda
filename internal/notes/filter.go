package notes

import (
	"strings"

	"github.com/kimhsiao/memonotes/internal/db"
	"github.com/kimhsiao/memonotes/internal/models"
)

// FilterNotesWithTags returns the items whose title, content, category or any tag
// name contains text, ignoring case. Blank text returns items unchanged.
// Order is preserved and items is never modified.
func FilterNotesWithTags(items []models.NoteWithTags, text string) []models.NoteWithTags {
	if strings.TrimSpace(text) == "" {
		return items
	}
	needle := db.Fold(text)
	out := make([]models.NoteWithTags, 0, len(items))
	for _, item := range items {
		if matches(item, needle) {
			out = append(out, item)
		}
	}
	return out
}

func matches(item models.NoteWithTags, needle string) bool {
	if strings.Contains(db.Fold(item.Note.Title), needle) ||
		strings.Contains(db.Fold(item.Note.Content), needle) ||
		strings.Contains(db.Fold(item.Note.Category), needle) {
		return true
	}
	for _, t := range item.Tags {
		if strings.Contains(db.Fold(t.Name), needle) {
			return true
		}
	}
	return false
}
