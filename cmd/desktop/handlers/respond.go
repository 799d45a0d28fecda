// Package handlers provides REST API handlers for notes, tags and categories.
package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/logging"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// writeError maps err's code onto an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrConstraint):
		status = http.StatusConflict
	case errors.IsRetryable(err):
		status = http.StatusServiceUnavailable
	case stderrors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}
	if status == http.StatusInternalServerError {
		logging.Error("request failed", err)
	}
	writeJSON(w, status, ErrorResponse{Code: errors.CodeOf(err), Message: err.Error()})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: errors.ErrInvalid, Message: message})
}

func pathID(r *http.Request, kind string) (int64, error) {
	s := r.PathValue("id")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf(errors.ErrInvalid, "invalid %s id %q", kind, s)
	}
	return id, nil
}
