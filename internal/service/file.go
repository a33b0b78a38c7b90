package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stashdrive/stash/internal/repository"
	"github.com/stashdrive/stash/internal/storage"
	"github.com/stashdrive/stash/internal/validation"
)

// maxBulkDelete caps how many ids one bulk soft-delete may carry.
const maxBulkDelete = 100

// FileService owns the file lifecycle: rename, star, soft-delete into trash,
// bulk soft-delete, and metadata retrieval. Physical blob removal never
// happens here — soft-delete only hides a file; the trash purge removes it.
type FileService struct {
	fileRepo  repository.FileRepository
	dirRepo   repository.DirectoryRepository
	trashRepo repository.TrashRepository
	storage   storage.Storage
}

func NewFileService(
	fileRepo repository.FileRepository,
	dirRepo repository.DirectoryRepository,
	trashRepo repository.TrashRepository,
	store storage.Storage,
) *FileService {
	return &FileService{
		fileRepo:  fileRepo,
		dirRepo:   dirRepo,
		trashRepo: trashRepo,
		storage:   store,
	}
}

// byLiveID loads a file the owner can still see; soft-deleted files resolve
// as not found for every lifecycle operation except purge.
func (s *FileService) byLiveID(ownerID, fileID string) (*model.File, error) {
	file, err := s.fileRepo.ByID(fileID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, apperr.NotFound("file not found")
		}
		return nil, apperr.Dependency("failed to load file", err)
	}
	if file.IsDeleted {
		return nil, apperr.NotFound("file not found")
	}
	return file, nil
}

func (s *FileService) Rename(ownerID, fileID, newName string) error {
	err := validation.ValidateName(newName)
	if err != nil {
		return apperr.Validation(err.Error())
	}

	file, err := s.byLiveID(ownerID, fileID)
	if err != nil {
		return err
	}

	sibling, err := s.fileRepo.ChildByName(ownerID, file.ParentDirID, newName)
	if err == nil && sibling.ID != fileID {
		return apperr.Conflict("a file with this name already exists in the same directory")
	}
	if err != nil && !errors.Is(err, repository.ErrFileNotFound) {
		return apperr.Dependency("failed to check sibling names", err)
	}

	err = s.fileRepo.Rename(fileID, ownerID, newName)
	if err != nil {
		return apperr.Dependency("failed to rename file", err)
	}

	return nil
}

// SoftDelete hides the file from normal listings and snapshots it to trash,
// capturing the parent directory's name at deletion time. The blob is left
// untouched until the trash entry is purged.
func (s *FileService) SoftDelete(ownerID, fileID string) error {
	file, err := s.byLiveID(ownerID, fileID)
	if err != nil {
		return err
	}

	parent, err := s.dirRepo.ByID(file.ParentDirID, ownerID)
	if err != nil {
		return apperr.Dependency("failed to load parent directory", err)
	}

	err = s.trashRepo.MoveToTrash(file, parent.Name)
	if err != nil {
		return apperr.Dependency("failed to move file to trash", err)
	}

	slog.Info("file moved to trash", "file_id", fileID, "user_id", ownerID)
	return nil
}

// BulkSoftDelete trash-flags up to maxBulkDelete files at once. The
// membership check is all-or-nothing: if any id does not resolve to a live
// file owned by the caller, nothing is mutated.
func (s *FileService) BulkSoftDelete(ownerID string, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return apperr.Validation("no file ids provided")
	}
	if len(fileIDs) > maxBulkDelete {
		return apperr.Validation("too many file ids, maximum is 100")
	}

	files, err := s.fileRepo.ByIDs(ownerID, fileIDs)
	if err != nil {
		return apperr.Dependency("failed to load files", err)
	}

	live := make([]*model.File, 0, len(files))
	for _, file := range files {
		if !file.IsDeleted {
			live = append(live, file)
		}
	}
	if len(live) != len(fileIDs) {
		return apperr.Forbidden("some file ids are invalid or not yours")
	}

	parentIDs := make([]string, 0, len(live))
	seen := make(map[string]bool, len(live))
	for _, file := range live {
		if !seen[file.ParentDirID] {
			seen[file.ParentDirID] = true
			parentIDs = append(parentIDs, file.ParentDirID)
		}
	}

	parents, err := s.dirRepo.ByIDs(ownerID, parentIDs)
	if err != nil {
		return apperr.Dependency("failed to load parent directories", err)
	}
	parentNames := make(map[string]string, len(parents))
	for _, parent := range parents {
		parentNames[parent.ID] = parent.Name
	}

	err = s.trashRepo.MoveAllToTrash(live, parentNames)
	if err != nil {
		return apperr.Dependency("failed to move files to trash", err)
	}

	slog.Info("files bulk moved to trash", "user_id", ownerID, "count", len(live))
	return nil
}

// ToggleStar flips the starred flag and returns the new state. Repeated
// toggling is always valid.
func (s *FileService) ToggleStar(ownerID, fileID string) (bool, error) {
	file, err := s.byLiveID(ownerID, fileID)
	if err != nil {
		return false, err
	}

	starred := !file.IsStarred
	err = s.fileRepo.SetStarred(fileID, ownerID, starred)
	if err != nil {
		return false, apperr.Dependency("failed to update star flag", err)
	}

	return starred, nil
}

// Metadata returns the file record and bumps its recency. The view URL is
// presigned and time-limited.
func (s *FileService) Metadata(ownerID, fileID string) (*model.File, string, error) {
	file, err := s.byLiveID(ownerID, fileID)
	if err != nil {
		return nil, "", err
	}

	if err := s.fileRepo.Touch(fileID); err != nil {
		slog.Warn("failed to bump file recency", "file_id", fileID, "error", err)
	}

	url, err := s.storage.PresignedURL(file.StoragePath, time.Hour)
	if err != nil {
		url = s.storage.URL(file.StoragePath)
	}

	return file, url, nil
}

func (s *FileService) Recent(ownerID string) ([]*model.File, error) {
	files, err := s.fileRepo.Recent(ownerID, 20)
	if err != nil {
		return nil, apperr.Dependency("failed to list recent files", err)
	}
	if files == nil {
		files = []*model.File{}
	}
	return files, nil
}

// StarredPage is one page of starred files.
type StarredPage struct {
	Files []*model.File `json:"data"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Pages int           `json:"totalPages"`
}

func (s *FileService) Starred(ownerID string, page, limit int) (*StarredPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	total, err := s.fileRepo.CountStarred(ownerID)
	if err != nil {
		return nil, apperr.Dependency("failed to count starred files", err)
	}

	files, err := s.fileRepo.Starred(ownerID, (page-1)*limit, limit)
	if err != nil {
		return nil, apperr.Dependency("failed to list starred files", err)
	}
	if files == nil {
		files = []*model.File{}
	}

	return &StarredPage{
		Files: files,
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	}, nil
}

// Analytics buckets the caller's live files by type.
func (s *FileService) Analytics(ownerID string) (map[string]int, error) {
	extensions, err := s.fileRepo.Extensions(ownerID)
	if err != nil {
		return nil, apperr.Dependency("failed to load file extensions", err)
	}

	counts := map[string]int{
		model.FileTypeImage: 0,
		model.FileTypePDF:   0,
		model.FileTypeText:  0,
		model.FileTypeVideo: 0,
		model.FileTypeOther: 0,
	}
	for _, ext := range extensions {
		counts[model.TypeOf(ext)]++
	}

	return counts, nil
}
