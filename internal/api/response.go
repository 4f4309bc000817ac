// Package api holds what the feature handlers share: JSON responses, error mapping and
// the signed-in user lookup.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samrogers05/genesis/internal/middleware"
	"github.com/samrogers05/genesis/internal/storage"
)

// MaxBodySize bounds JSON request bodies.
const MaxBodySize = 1 << 20

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Decode reads a JSON body into v, writing a 400 and returning false on failure.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err := dec.Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// CurrentUser returns the signed-in user or writes a 401.
func CurrentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, "Please sign in")
		return "", false
	}
	return userID, true
}

// StorageError maps the storage sentinels to status codes. what names the resource in
// messages, e.g. "Project".
func StorageError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Error(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, storage.ErrForbidden):
		Error(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, storage.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(r.Context(), "storage error", "resource", what, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to process request")
	}
}
