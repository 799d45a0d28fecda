package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"

	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/models"
	"github.com/kimhsiao/memonotes/internal/notes"
)

// NoteHandler handles note operations.
type NoteHandler struct {
	repo     *notes.Repository
	markdown goldmark.Markdown
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(repo *notes.Repository) *NoteHandler {
	return &NoteHandler{repo: repo, markdown: goldmark.New()}
}

// Register adds the note routes to mux.
func (h *NoteHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/notes", h.ListNotes)
	mux.HandleFunc("POST /api/notes", h.CreateNote)
	mux.HandleFunc("DELETE /api/notes", h.DeleteAllNotes)
	mux.HandleFunc("GET /api/notes/{id}", h.GetNote)
	mux.HandleFunc("PUT /api/notes/{id}", h.UpdateNote)
	mux.HandleFunc("DELETE /api/notes/{id}", h.DeleteNote)
	mux.HandleFunc("PUT /api/notes/{id}/tags", h.ReplaceNoteTags)
	mux.HandleFunc("GET /api/categories", h.ListCategories)
}

type noteRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	TagIDs   []int64 `json:"tag_ids"`
}

// NoteResponse is a note with its tags and, on request, its content rendered as HTML.
type NoteResponse struct {
	models.NoteWithTags
	HTML string `json:"html,omitempty"`
}

// ListNotes handles GET /api/notes
// Supports ?q= (text over title, content, category and tag names), ?category= and ?tag=.
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var tagID int64
	if raw := query.Get("tag"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(w, "tag must be a positive id")
			return
		}
		tagID = id
	}

	category := query.Get("category")

	var (
		items []models.NoteWithTags
		err   error
	)
	switch {
	case tagID > 0:
		items, err = h.repo.ListNotesWithTagsByTag(ctx, tagID)
	case category != "":
		items, err = h.repo.ListNotesWithTagsByCategory(ctx, category)
	default:
		items, err = h.repo.ListNotesWithTags(ctx)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	// Both filters: the tag query already ran, narrow it by category.
	if tagID > 0 && category != "" {
		kept := items[:0]
		for _, n := range items {
			if n.Note.Category == category {
				kept = append(kept, n)
			}
		}
		items = kept
	}
	items = notes.FilterNotesWithTags(items, query.Get("q"))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// CreateNote handles POST /api/notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var request noteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if request.Title == nil {
		badRequest(w, "title is required")
		return
	}

	note := &models.Note{Title: *request.Title}
	if request.Content != nil {
		note.Content = *request.Content
	}
	if request.Category != nil {
		note.Category = *request.Category
	}
	if _, err := h.repo.InsertNoteWithTags(r.Context(), note, request.TagIDs); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.repo.GetNoteWithTags(r.Context(), note.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetNote handles GET /api/notes/{id}
// ?format=html adds the content rendered from Markdown.
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "note")
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := h.repo.GetNoteWithTags(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if n == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: errors.ErrNoteNotFound, Message: "Note not found"})
		return
	}

	resp := NoteResponse{NoteWithTags: *n}
	if r.URL.Query().Get("format") == "html" {
		var buf bytes.Buffer
		if err := h.markdown.Convert([]byte(n.Note.Content), &buf); err != nil {
			writeError(w, err)
			return
		}
		resp.HTML = buf.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateNote handles PUT /api/notes/{id}
// Only the fields present in the body change. tag_ids, when present, replaces the tag set.
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "note")
	if err != nil {
		writeError(w, err)
		return
	}
	var request noteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	ctx := r.Context()
	note, err := h.repo.GetNoteByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if note == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: errors.ErrNoteNotFound, Message: "Note not found"})
		return
	}

	if request.Title != nil {
		note.Title = *request.Title
	}
	if request.Content != nil {
		note.Content = *request.Content
	}
	if request.Category != nil {
		note.Category = *request.Category
	}
	if err := h.repo.UpdateNote(ctx, note); err != nil {
		writeError(w, err)
		return
	}
	if request.TagIDs != nil {
		if err := h.repo.ReplaceNoteTags(ctx, id, request.TagIDs); err != nil {
			writeError(w, err)
			return
		}
	}

	updated, err := h.repo.GetNoteWithTags(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteNote handles DELETE /api/notes/{id}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "note")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.repo.DeleteNote(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllNotes handles DELETE /api/notes
func (h *NoteHandler) DeleteAllNotes(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.DeleteAllNotes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": n})
}

// ReplaceNoteTags handles PUT /api/notes/{id}/tags
func (h *NoteHandler) ReplaceNoteTags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "note")
	if err != nil {
		writeError(w, err)
		return
	}
	var request struct {
		TagIDs []int64 `json:"tag_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if err := h.repo.ReplaceNoteTags(r.Context(), id, request.TagIDs); err != nil {
		writeError(w, err)
		return
	}
	links, err := h.repo.GetNoteTagLinksForNote(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// ListCategories handles GET /api/categories
func (h *NoteHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.repo.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}
