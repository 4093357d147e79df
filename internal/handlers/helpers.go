package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/zola/internal/models"
	"github.com/ternarybob/zola/internal/services/planner"
)

const maxBodyBytes = 1 << 20

// WorkspaceResolver maps a request onto its session workspace
type WorkspaceResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) *planner.Workspace
}

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteData writes data in a success envelope.
func WriteData(w http.ResponseWriter, statusCode int, data interface{}) error {
	return WriteJSON(w, statusCode, models.SuccessEnvelope(data))
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, models.ErrorEnvelope(message))
}

// WriteStarted writes a standard "started" JSON response for async operations.
func WriteStarted(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusAccepted, models.Envelope{Status: "started", Data: data})
}

// WriteServiceError writes err with the status code matching its class.
func WriteServiceError(w http.ResponseWriter, err error) error {
	return WriteError(w, StatusForError(err), err.Error())
}

// StatusForError maps domain and upstream errors onto HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrImageNotFound),
		errors.Is(err, models.ErrNoPlan),
		errors.Is(err, models.ErrNoItinerary):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTransport),
		errors.Is(err, models.ErrService),
		errors.Is(err, models.ErrMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes a size-limited request body into v. An empty body is
// an error unless allowEmpty is set.
func DecodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// PathParam returns the path segment following prefix, e.g.
// PathParam("/api/plan/images/abc", "/api/plan/images/") == "abc".
func PathParam(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}
