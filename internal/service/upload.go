package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stashdrive/stash/internal/repository"
	"github.com/stashdrive/stash/internal/storage"
	"github.com/stashdrive/stash/internal/validation"
)

// UploadService is the upload pipeline: it streams an incoming body under a
// declared size contract, persists the blob, then the metadata row, rolling
// back the blob if the row insert fails. There is no multi-resource atomic
// commit across the blob store and the metadata store, so failure cleanup is
// a compensating action that is itself allowed to fail (logged, never
// escalated — the primary error dominates the response).
type UploadService struct {
	dirRepo   repository.DirectoryRepository
	fileRepo  repository.FileRepository
	storage   storage.Storage
	sizeLimit int64
}

func NewUploadService(
	dirRepo repository.DirectoryRepository,
	fileRepo repository.FileRepository,
	store storage.Storage,
	sizeLimit int64,
) *UploadService {
	return &UploadService{
		dirRepo:   dirRepo,
		fileRepo:  fileRepo,
		storage:   store,
		sizeLimit: sizeLimit,
	}
}

// Upload accepts declaredSize bytes from body into parentID under filename.
// Ownership of the parent is checked before any byte is read; in-memory
// buffering is capped at declaredSize, which the ceiling bounds in turn. The
// body must carry exactly declaredSize bytes: fewer fails (no truncated files
// accepted silently), more aborts the moment the excess byte arrives.
func (s *UploadService) Upload(ownerID, parentID, filename string, declaredSize int64, body io.Reader) (*model.File, error) {
	err := validation.ValidateName(filename)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if declaredSize <= 0 {
		return nil, apperr.Validation("filesize header must be a positive integer")
	}
	if declaredSize > s.sizeLimit {
		return nil, apperr.PayloadTooLarge(fmt.Sprintf("file too large, max allowed is %d bytes", s.sizeLimit))
	}

	_, err = s.dirRepo.ByID(parentID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrDirectoryNotFound) {
			return nil, apperr.NotFound("parent directory not found")
		}
		return nil, apperr.Dependency("failed to load parent directory", err)
	}

	data, err := s.readExactly(body, declaredSize)
	if err != nil {
		return nil, err
	}

	fileID := uuid.New().String()
	extension := filepath.Ext(filename)
	storagePath := fmt.Sprintf("user-files/%s/%s%s", ownerID, fileID, extension)

	err = s.storage.Save(storagePath, bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Dependency("failed to store file content", err)
	}

	now := time.Now().UTC()
	file := &model.File{
		ID:          fileID,
		UserID:      ownerID,
		ParentDirID: parentID,
		Name:        filename,
		Extension:   extension,
		Size:        declaredSize,
		StoragePath: storagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.fileRepo.Create(file)
	if err != nil {
		s.compensate(storagePath)
		return nil, apperr.Dependency("failed to create file record", err)
	}

	slog.Info("file uploaded", "file_id", fileID, "parent_id", parentID, "user_id", ownerID, "size", declaredSize)
	return file, nil
}

// ViewURL returns a time-limited URL for the freshly uploaded file, falling
// back to the direct URL when presigning is unavailable.
func (s *UploadService) ViewURL(file *model.File) string {
	url, err := s.storage.PresignedURL(file.StoragePath, time.Hour)
	if err != nil {
		return s.storage.URL(file.StoragePath)
	}
	return url
}

// readExactly buffers exactly want bytes from r. The buffer holds one byte
// more than declared so an overrun is detected the moment it arrives rather
// than after draining the stream.
func (s *UploadService) readExactly(r io.Reader, want int64) ([]byte, error) {
	buf := make([]byte, want+1)
	var total int64

	for {
		n, err := r.Read(buf[total:])
		total += int64(n)

		if total > want {
			return nil, apperr.SizeMismatch("uploaded data exceeds declared filesize")
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Validation("file upload stream error")
		}
	}

	if total != want {
		return nil, apperr.SizeMismatch("uploaded data does not match declared filesize")
	}

	return buf[:total], nil
}

// compensate deletes the blob created by a failed upload. Best-effort: a
// cleanup failure is logged, not returned, because the insert error already
// dominates the response. Orphans left here are cleanable later.
func (s *UploadService) compensate(storagePath string) {
	err := retry.Do(
		func() error { return s.storage.Delete(storagePath) },
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		slog.Error("failed to delete blob after metadata insert failure",
			"storage_path", storagePath,
			"error", err,
		)
	}
}
