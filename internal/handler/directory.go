package handler

import (
	"net/http"

	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/ctxkeys"
	"github.com/stashdrive/stash/internal/service"
	"github.com/stashdrive/stash/internal/validation"
)

type DirectoryHandler struct {
	dirService *service.DirectoryService
}

func NewDirectoryHandler(dirService *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{dirService: dirService}
}

// Get lists a directory: its own record plus direct child directories and
// files. An empty id defaults to the caller's root.
func (h *DirectoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	dirID := r.PathValue("id")
	if dirID == "" {
		dirID = user.RootDirID
	}

	listing, err := h.dirService.List(user.UserID, dirID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, listing)
}

// Create makes a new directory under the given parent (caller's root when
// omitted). The name arrives in the dirname header, "New Folder" by default.
func (h *DirectoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	parentID := r.PathValue("parent")
	if parentID == "" {
		parentID = user.RootDirID
	}

	name := r.Header.Get("dirname")
	if name == "" {
		name = "New Folder"
	}

	dir, err := h.dirService.Create(user.UserID, parentID, name)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "directory created",
		"directory": dir,
	})
}

type renameDirectoryRequest struct {
	NewDirName string `json:"newDirName" validate:"required,max=255"`
}

func (h *DirectoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req renameDirectoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, r, apperr.Validation(err.Error()))
		return
	}

	err := h.dirService.Rename(user.UserID, r.PathValue("id"), req.NewDirName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "directory renamed"})
}

// Delete removes the directory and its whole subtree.
func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.dirService.Delete(user.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "directory deleted"})
}

// Breadcrumb returns the root-first {id, name} chain for a directory.
func (h *DirectoryHandler) Breadcrumb(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	crumbs, err := h.dirService.Breadcrumb(user.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"path": crumbs})
}
