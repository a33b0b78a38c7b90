package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/stashdrive/stash/internal/apperr"
)

// errorResponse is the wire shape of every error: a stable short code plus a
// human-readable message.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError maps any error to the JSON error shape. Unexpected errors are
// logged and reported as a generic failure without leaking internal detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	respondJSON(w, appErr.Status, errorResponse{
		Error:   appErr.Code,
		Message: appErr.Message,
	})
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
