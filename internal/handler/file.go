package handler

import (
	"net/http"
	"strconv"

	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/ctxkeys"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stashdrive/stash/internal/service"
	"github.com/stashdrive/stash/internal/validation"
)

type FileHandler struct {
	fileService   *service.FileService
	uploadService *service.UploadService
	shareService  *service.ShareService
}

func NewFileHandler(fileService *service.FileService, uploadService *service.UploadService, shareService *service.ShareService) *FileHandler {
	return &FileHandler{
		fileService:   fileService,
		uploadService: uploadService,
		shareService:  shareService,
	}
}

// Upload streams the raw request body into the upload pipeline. The file
// name and declared byte size arrive out-of-band in the filename and
// filesize headers; the target parent is the path parameter, defaulting to
// the caller's root.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	parentID := r.PathValue("parent")
	if parentID == "" {
		parentID = user.RootDirID
	}

	filename := r.Header.Get("filename")
	if filename == "" {
		filename = "untitled"
	}

	declaredSize, err := strconv.ParseInt(r.Header.Get("filesize"), 10, 64)
	if err != nil {
		respondError(w, r, apperr.Validation("filesize header must be a positive integer"))
		return
	}

	file, err := h.uploadService.Upload(user.UserID, parentID, filename, declaredSize, r.Body)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "file uploaded",
		"file": map[string]any{
			"id":   file.ID,
			"name": file.Name,
			"size": file.Size,
			"url":  h.uploadService.ViewURL(file),
		},
	})
}

// Metadata returns one file's metadata with a time-limited view URL.
func (h *FileHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	file, url, err := h.fileService.Metadata(user.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":         file.ID,
		"name":       file.Name,
		"extension":  file.Extension,
		"type":       model.TypeOf(file.Extension),
		"size":       file.Size,
		"uploadDate": file.CreatedAt,
		"url":        url,
	})
}

// Details returns the richer owner-facing file record.
func (h *FileHandler) Details(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	file, _, err := h.fileService.Metadata(user.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "file details fetched successfully",
		"fileDetails": map[string]any{
			"id":         file.ID,
			"name":       file.Name,
			"extension":  file.Extension,
			"type":       model.TypeOf(file.Extension),
			"size":       file.Size,
			"uploadDate": file.CreatedAt,
			"recentView": file.UpdatedAt,
			"isStarred":  file.IsStarred,
		},
	})
}

type renameFileRequest struct {
	NewFileName string `json:"newFileName" validate:"required,max=255"`
}

func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req renameFileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, r, apperr.Validation(err.Error()))
		return
	}

	err := h.fileService.Rename(user.UserID, r.PathValue("id"), req.NewFileName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "file renamed successfully"})
}

// Delete soft-deletes: the file disappears from listings and gains a trash
// snapshot, but its content survives until purge.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.fileService.SoftDelete(user.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "file moved to trash successfully"})
}

type bulkDeleteRequest struct {
	FileIDs []string `json:"fileIds" validate:"required,min=1,max=100"`
}

func (h *FileHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	err := h.fileService.BulkSoftDelete(user.UserID, req.FileIDs)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":      "files deleted successfully",
		"deletedCount": len(req.FileIDs),
	})
}

func (h *FileHandler) Star(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	starred, err := h.fileService.ToggleStar(user.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	message := "file unstarred successfully"
	if starred {
		message = "file starred successfully"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":   message,
		"isStarred": starred,
	})
}

func (h *FileHandler) Recent(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	files, err := h.fileService.Recent(user.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"data": files})
}

func (h *FileHandler) Starred(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.fileService.Starred(user.UserID, page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *FileHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	counts, err := h.fileService.Analytics(user.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "analytics fetched successfully",
		"data":    counts,
	})
}

// Share issues a fresh time-bounded share link for the file.
func (h *FileHandler) Share(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	token, err := h.shareService.IssueLink(user.UserID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "link generated successfully",
		"link":    token,
	})
}
