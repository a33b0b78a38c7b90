package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/cache"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stashdrive/stash/internal/repository"
	"github.com/stashdrive/stash/internal/validation"
)

// breadcrumbKey builds the cache key for one user's breadcrumb of one
// directory.
func breadcrumbKey(userID, dirID string) string {
	return fmt.Sprintf("breadcrumb:%s:%s", userID, dirID)
}

// DirectoryService owns creation, rename, listing, and breadcrumb resolution
// of directories. Per-parent name uniqueness and the materialized-path
// invariant (path(dir) == path(parent) + [parent.id]) are enforced here;
// subtree deletion is delegated to the cascade engine.
type DirectoryService struct {
	dirRepo       repository.DirectoryRepository
	fileRepo      repository.FileRepository
	cascade       *CascadeEngine
	cache         cache.Cache
	breadcrumbTTL time.Duration
}

func NewDirectoryService(
	dirRepo repository.DirectoryRepository,
	fileRepo repository.FileRepository,
	cascade *CascadeEngine,
	pathCache cache.Cache,
	breadcrumbTTL time.Duration,
) *DirectoryService {
	return &DirectoryService{
		dirRepo:       dirRepo,
		fileRepo:      fileRepo,
		cascade:       cascade,
		cache:         pathCache,
		breadcrumbTTL: breadcrumbTTL,
	}
}

// Listing is one level of the tree: the directory itself plus its direct
// child directories and direct child files.
type Listing struct {
	*model.Directory
	Files       []*model.File      `json:"files"`
	Directories []*model.Directory `json:"directories"`
}

// ProvisionRoot idempotently creates the caller's root directory. Root
// directories have a null parent and an empty path.
func (s *DirectoryService) ProvisionRoot(userID string) (*model.Directory, error) {
	now := time.Now().UTC()
	root, err := s.dirRepo.EnsureRoot(&model.Directory{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      "root-" + userID,
		Path:      model.IDPath{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, apperr.Dependency("failed to provision root directory", err)
	}
	return root, nil
}

func (s *DirectoryService) Create(ownerID, parentID, name string) (*model.Directory, error) {
	err := validation.ValidateName(name)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	parent, err := s.dirRepo.ByID(parentID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrDirectoryNotFound) {
			return nil, apperr.NotFound("parent directory does not exist")
		}
		return nil, apperr.Dependency("failed to load parent directory", err)
	}

	_, err = s.dirRepo.ChildByName(ownerID, parentID, name)
	if err == nil {
		return nil, apperr.Conflict("a folder with this name already exists in the same location")
	}
	if !errors.Is(err, repository.ErrDirectoryNotFound) {
		return nil, apperr.Dependency("failed to check sibling names", err)
	}

	now := time.Now().UTC()
	dir := &model.Directory{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		ParentDirID: sql.NullString{String: parentID, Valid: true},
		Name:        name,
		Path:        parent.Path.Child(parentID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.dirRepo.Create(dir)
	if err != nil {
		return nil, apperr.Dependency("failed to create directory", err)
	}

	// A new directory has no descendants, so no cached breadcrumb can
	// mention it: nothing to invalidate.
	slog.Info("directory created", "dir_id", dir.ID, "parent_id", parentID, "user_id", ownerID)
	return dir, nil
}

func (s *DirectoryService) Rename(ownerID, dirID, newName string) error {
	err := validation.ValidateName(newName)
	if err != nil {
		return apperr.Validation(err.Error())
	}

	dir, err := s.dirRepo.ByID(dirID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrDirectoryNotFound) {
			return apperr.NotFound("directory not found")
		}
		return apperr.Dependency("failed to load directory", err)
	}

	if !dir.IsRoot() {
		sibling, err := s.dirRepo.ChildByName(ownerID, dir.ParentDirID.String, newName)
		if err == nil && sibling.ID != dirID {
			return apperr.Conflict("a folder with this name already exists in the same location")
		}
		if err != nil && !errors.Is(err, repository.ErrDirectoryNotFound) {
			return apperr.Dependency("failed to check sibling names", err)
		}
	}

	err = s.dirRepo.Rename(dirID, ownerID, newName)
	if err != nil {
		return apperr.Dependency("failed to rename directory", err)
	}

	// Paths store ids, not names, so no descendant rows need rewriting.
	// Cached breadcrumbs do embed names: drop every entry in the renamed
	// subtree so stale names never outlive the rename.
	s.cascade.InvalidateBreadcrumbs(ownerID, dirID)

	slog.Info("directory renamed", "dir_id", dirID, "user_id", ownerID)
	return nil
}

// List returns the directory plus its direct children, one level only.
func (s *DirectoryService) List(ownerID, dirID string) (*Listing, error) {
	dir, err := s.dirRepo.ByID(dirID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrDirectoryNotFound) {
			return nil, apperr.NotFound("directory not found or you do not have access to it")
		}
		return nil, apperr.Dependency("failed to load directory", err)
	}

	files, err := s.fileRepo.ByParent(dirID)
	if err != nil {
		return nil, apperr.Dependency("failed to list files", err)
	}

	dirs, err := s.dirRepo.Children(dirID)
	if err != nil {
		return nil, apperr.Dependency("failed to list directories", err)
	}

	if files == nil {
		files = []*model.File{}
	}
	if dirs == nil {
		dirs = []*model.Directory{}
	}

	return &Listing{Directory: dir, Files: files, Directories: dirs}, nil
}

// Delete removes the directory and its entire descendant subtree.
func (s *DirectoryService) Delete(ownerID, dirID string) error {
	return s.cascade.DeleteSubtree(ownerID, dirID)
}

// Breadcrumb resolves the root-to-leaf chain of {id, name} pairs for a
// directory, cache-first with a TTL-bounded write-back.
func (s *DirectoryService) Breadcrumb(ownerID, dirID string) ([]model.Crumb, error) {
	key := breadcrumbKey(ownerID, dirID)

	if raw, ok := s.cache.Get(key); ok {
		var crumbs []model.Crumb
		if err := json.Unmarshal(raw, &crumbs); err == nil {
			return crumbs, nil
		}
		// Corrupt entry: fall through to a rebuild.
		s.cache.Invalidate(key)
	}

	dir, err := s.dirRepo.ByID(dirID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrDirectoryNotFound) {
			return nil, apperr.NotFound("directory not found")
		}
		return nil, apperr.Dependency("failed to load directory", err)
	}

	ancestors, err := s.dirRepo.ByIDs(ownerID, dir.Path)
	if err != nil {
		return nil, apperr.Dependency("failed to resolve breadcrumb path", err)
	}

	names := make(map[string]string, len(ancestors))
	for _, a := range ancestors {
		names[a.ID] = a.Name
	}

	crumbs := make([]model.Crumb, 0, len(dir.Path)+1)
	for _, id := range dir.Path {
		crumbs = append(crumbs, model.Crumb{ID: id, Name: names[id]})
	}
	crumbs = append(crumbs, model.Crumb{ID: dir.ID, Name: dir.Name})

	if raw, err := json.Marshal(crumbs); err == nil {
		s.cache.Set(key, raw, s.breadcrumbTTL)
	}

	return crumbs, nil
}
