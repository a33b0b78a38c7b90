package handler

import (
	"net/http"

	"github.com/stashdrive/stash/internal/service"
)

// ShareHandler serves the capability code path: access via a share token,
// with no authenticated identity and a view-only operation set.
type ShareHandler struct {
	shareService *service.ShareService
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// View resolves a share token to view-only file metadata. The token is
// re-verified (signature and expiry) on every call.
func (h *ShareHandler) View(w http.ResponseWriter, r *http.Request) {
	shared, err := h.shareService.Resolve(r.PathValue("token"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, shared)
}
