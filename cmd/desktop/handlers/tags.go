package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/models"
	"github.com/kimhsiao/memonotes/internal/notes"
)

// maxTagNameLength bounds tag names accepted over HTTP.
const maxTagNameLength = 50

// TagHandler handles tag operations.
type TagHandler struct {
	repo *notes.Repository
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(repo *notes.Repository) *TagHandler {
	return &TagHandler{repo: repo}
}

// Register adds the tag routes to mux.
func (h *TagHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tags", h.ListTags)
	mux.HandleFunc("POST /api/tags", h.CreateTag)
	mux.HandleFunc("GET /api/tags/{id}", h.GetTag)
	mux.HandleFunc("PUT /api/tags/{id}", h.UpdateTag)
	mux.HandleFunc("DELETE /api/tags/{id}", h.DeleteTag)
}

// ListTags handles GET /api/tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.repo.ListTags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// CreateTag handles POST /api/tags
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	// Validate name
	if request.Name == "" {
		badRequest(w, "name is required")
		return
	}
	if len(request.Name) > maxTagNameLength {
		badRequest(w, "name must be 50 characters or less")
		return
	}

	tag := &models.Tag{Name: request.Name, Color: request.Color}
	if _, err := h.repo.InsertTag(r.Context(), tag); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// GetTag handles GET /api/tags/{id}
func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := h.loadTag(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// UpdateTag handles PUT /api/tags/{id}
func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	tag, ok := h.loadTag(w, r)
	if !ok {
		return
	}
	if request.Name != nil {
		if len(*request.Name) > maxTagNameLength {
			badRequest(w, "name must be 50 characters or less")
			return
		}
		tag.Name = *request.Name
	}
	if request.Color != nil {
		tag.Color = *request.Color
	}

	if err := h.repo.UpdateTag(r.Context(), tag); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// DeleteTag handles DELETE /api/tags/{id}
// Links to the tag are removed with it.
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "tag")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.repo.DeleteTag(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TagHandler) loadTag(w http.ResponseWriter, r *http.Request) (*models.Tag, bool) {
	id, err := pathID(r, "tag")
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	tag, err := h.repo.GetTagByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if tag == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: errors.ErrTagNotFound, Message: "Tag not found"})
		return nil, false
	}
	return tag, true
}
