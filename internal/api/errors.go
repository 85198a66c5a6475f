package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tmarchal/chantier/internal/assignment"
	"github.com/tmarchal/chantier/internal/contact"
	"github.com/tmarchal/chantier/internal/object"
	"github.com/tmarchal/chantier/internal/task"
	"github.com/tmarchal/chantier/internal/team"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v interface{}) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// writeDomainError translates sentinel errors from the stores and services
// into the HTTP error envelope. Authorization failures stay opaque so
// callers cannot probe for the existence of rows they may not see.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, team.ErrValidation),
		errors.Is(err, assignment.ErrInvalidRating):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())

	case errors.Is(err, team.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "forbidden", "you do not have permission to perform this action")

	case errors.Is(err, team.ErrNotFound),
		errors.Is(err, contact.ErrNotFound),
		errors.Is(err, object.ErrNotFound),
		errors.Is(err, assignment.ErrNotFound),
		errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, team.ErrAlreadyMember),
		errors.Is(err, team.ErrRequestPending),
		errors.Is(err, team.ErrPreviouslyRejected),
		errors.Is(err, team.ErrNotPending),
		errors.Is(err, team.ErrSoleAdmin),
		errors.Is(err, team.ErrCannotRemoveAdmin),
		errors.Is(err, assignment.ErrReviewExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}
