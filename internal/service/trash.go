package service

import (
	"errors"
	"log/slog"

	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stashdrive/stash/internal/repository"
	"github.com/stashdrive/stash/internal/storage"
)

// TrashService lists trash snapshots and permanently discards them. Purge is
// the second phase of deletion: only here does a soft-deleted file's blob and
// metadata actually disappear.
type TrashService struct {
	trashRepo repository.TrashRepository
	fileRepo  repository.FileRepository
	storage   storage.Storage
}

func NewTrashService(trashRepo repository.TrashRepository, fileRepo repository.FileRepository, store storage.Storage) *TrashService {
	return &TrashService{
		trashRepo: trashRepo,
		fileRepo:  fileRepo,
		storage:   store,
	}
}

// TrashPage is one page of trash entries.
type TrashPage struct {
	Entries []*model.TrashEntry `json:"data"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	Pages   int                 `json:"pages"`
}

func (s *TrashService) List(userID string, page, limit int, sortBy string) (*TrashPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	total, err := s.trashRepo.Count(userID)
	if err != nil {
		return nil, apperr.Dependency("failed to count trash entries", err)
	}

	entries, err := s.trashRepo.List(userID, (page-1)*limit, limit, sortBy)
	if err != nil {
		return nil, apperr.Dependency("failed to list trash entries", err)
	}
	if entries == nil {
		entries = []*model.TrashEntry{}
	}

	return &TrashPage{
		Entries: entries,
		Total:   total,
		Page:    page,
		Pages:   (total + limit - 1) / limit,
	}, nil
}

// Purge permanently discards one trashed file: blob first, then the file row
// and trash row together in one transaction. Unlike the cascade engine's
// best-effort blob deletes, a blob failure here is surfaced to the caller —
// the user asked for exactly this file to be gone, so a half-done purge must
// not look like success.
func (s *TrashService) Purge(ownerID, fileID string) error {
	_, err := s.trashRepo.ByID(fileID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTrashEntryNotFound) {
			return apperr.NotFound("file not found in trash")
		}
		return apperr.Dependency("failed to load trash entry", err)
	}

	file, err := s.fileRepo.ByID(fileID, ownerID)
	if err != nil && !errors.Is(err, repository.ErrFileNotFound) {
		return apperr.Dependency("failed to load file", err)
	}

	if file != nil {
		err = s.storage.Delete(file.StoragePath)
		if err != nil {
			return apperr.Dependency("failed to delete file content", err)
		}
	}

	err = s.trashRepo.Purge(fileID, ownerID)
	if err != nil {
		return apperr.Dependency("failed to purge trash entry", err)
	}

	slog.Info("trash entry purged", "file_id", fileID, "user_id", ownerID)
	return nil
}
