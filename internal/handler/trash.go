package handler

import (
	"net/http"
	"strconv"

	"github.com/stashdrive/stash/internal/ctxkeys"
	"github.com/stashdrive/stash/internal/service"
)

type TrashHandler struct {
	trashService *service.TrashService
}

func NewTrashHandler(trashService *service.TrashService) *TrashHandler {
	return &TrashHandler{trashService: trashService}
}

// List returns a page of the caller's trash, newest first by default or by
// name with ?sortBy=name.
func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sortBy := r.URL.Query().Get("sortBy")

	result, err := h.trashService.List(user.UserID, page, limit, sortBy)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Purge permanently discards a trashed file: blob and metadata both.
func (h *TrashHandler) Purge(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.trashService.Purge(user.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "file deleted successfully"})
}
