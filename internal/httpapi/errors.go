package httpapi

import (
	"encoding/json"
	"net/http"

	"editd/internal/infer"
	"editd/internal/manager"
	"editd/internal/queue"
	"editd/internal/results"
	"editd/internal/store"
	"editd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps well-known core errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case queue.IsValidation(err):
		return http.StatusBadRequest
	case queue.IsQueueFull(err):
		return http.StatusTooManyRequests
	case store.IsJobNotFound(err):
		return http.StatusNotFound
	case results.IsNotFound(err):
		return http.StatusNotFound
	case manager.IsUnloadRefused(err):
		return http.StatusConflict
	case infer.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
