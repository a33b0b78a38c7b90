package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/cache"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stashdrive/stash/internal/repository"
	"github.com/stashdrive/stash/internal/storage"
)

// CascadeEngine deletes a directory together with its entire descendant
// subtree across the metadata store, the blob store, the trash, and the
// breadcrumb cache.
//
// The closure traversal is not transactionally isolated from concurrent
// writes: a create racing with a delete under the same subtree may be
// silently dropped or silently orphaned. Callers must treat concurrent
// mutation of a subtree being deleted as undefined behavior.
type CascadeEngine struct {
	dirRepo   repository.DirectoryRepository
	fileRepo  repository.FileRepository
	trashRepo repository.TrashRepository
	storage   storage.Storage
	cache     cache.Cache
}

func NewCascadeEngine(
	dirRepo repository.DirectoryRepository,
	fileRepo repository.FileRepository,
	trashRepo repository.TrashRepository,
	store storage.Storage,
	pathCache cache.Cache,
) *CascadeEngine {
	return &CascadeEngine{
		dirRepo:   dirRepo,
		fileRepo:  fileRepo,
		trashRepo: trashRepo,
		storage:   store,
		cache:     pathCache,
	}
}

// DeleteSubtree removes dirID and everything below it: blobs best-effort
// first, then trash rows, directory rows, and file rows as per-collection
// bulk deletes, then the breadcrumb cache entries for every directory in the
// closure. Metadata consistency is prioritized over blob consistency: a blob
// delete failure is logged and skipped, an orphaned blob being an acceptable,
// cleanable-later failure mode.
func (e *CascadeEngine) DeleteSubtree(ownerID, dirID string) error {
	_, err := e.dirRepo.ByID(dirID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrDirectoryNotFound) {
			return apperr.NotFound("directory not found")
		}
		return apperr.Dependency("failed to load directory", err)
	}

	dirIDs, files, err := e.collectSubtree(dirID)
	if err != nil {
		return apperr.Dependency("failed to traverse directory subtree", err)
	}

	fileIDs := make([]string, 0, len(files))
	for _, file := range files {
		fileIDs = append(fileIDs, file.ID)
		e.deleteBlob(file)
	}

	err = e.trashRepo.DeleteAll(fileIDs)
	if err != nil {
		return apperr.Dependency("failed to delete trash entries", err)
	}

	err = e.dirRepo.DeleteAll(dirIDs)
	if err != nil {
		return apperr.Dependency("failed to delete directories", err)
	}

	err = e.fileRepo.DeleteAll(fileIDs)
	if err != nil {
		return apperr.Dependency("failed to delete files", err)
	}

	for _, id := range dirIDs {
		e.cache.Invalidate(breadcrumbKey(ownerID, id))
	}

	slog.Info("directory subtree deleted",
		"dir_id", dirID,
		"user_id", ownerID,
		"directories", len(dirIDs),
		"files", len(fileIDs),
	)
	return nil
}

// InvalidateBreadcrumbs drops the cached breadcrumb of dirID and of every
// descendant directory.
func (e *CascadeEngine) InvalidateBreadcrumbs(ownerID, dirID string) {
	dirIDs, _, err := e.collectSubtree(dirID)
	if err != nil {
		// Entries not reached here still expire with their TTL.
		slog.Warn("failed to traverse subtree for cache invalidation", "dir_id", dirID, "error", err)
		e.cache.Invalidate(breadcrumbKey(ownerID, dirID))
		return
	}

	for _, id := range dirIDs {
		e.cache.Invalidate(breadcrumbKey(ownerID, id))
	}
}

// collectSubtree walks the tree iteratively, level by level over a frontier
// of directory ids, and returns the closure of descendant directory ids
// (including dirID itself) and descendant files at every depth. An explicit
// worklist bounds stack depth on deep trees.
func (e *CascadeEngine) collectSubtree(dirID string) ([]string, []*model.File, error) {
	dirIDs := []string{dirID}
	var files []*model.File

	frontier := []string{dirID}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		children, err := e.dirRepo.Children(current)
		if err != nil {
			return nil, nil, err
		}
		for _, child := range children {
			dirIDs = append(dirIDs, child.ID)
			frontier = append(frontier, child.ID)
		}

		childFiles, err := e.fileRepo.AllByParent(current)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, childFiles...)
	}

	return dirIDs, files, nil
}

// deleteBlob removes one file's blob with a short retry, logging and moving
// on if it still fails.
func (e *CascadeEngine) deleteBlob(file *model.File) {
	err := retry.Do(
		func() error { return e.storage.Delete(file.StoragePath) },
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		slog.Warn("failed to delete blob during cascade, continuing",
			"file_id", file.ID,
			"storage_path", file.StoragePath,
			"error", err,
		)
	}
}
