package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/stashdrive/stash/internal/model"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

type FileRepository interface {
	Create(file *model.File) error
	ByID(id, userID string) (*model.File, error)
	ByIDAnyOwner(id string) (*model.File, error)
	ByIDs(userID string, ids []string) ([]*model.File, error)
	ByParent(parentID string) ([]*model.File, error)
	AllByParent(parentID string) ([]*model.File, error)
	ChildByName(userID, parentID, name string) (*model.File, error)
	Rename(id, userID, newName string) error
	SetStarred(id, userID string, starred bool) error
	SetShareToken(id, userID, token string) error
	Touch(id string) error
	Recent(userID string, limit int) ([]*model.File, error)
	Starred(userID string, offset, limit int) ([]*model.File, error)
	CountStarred(userID string) (int, error)
	Extensions(userID string) ([]string, error)
	DeleteAll(ids []string) error
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *fileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *model.File) error {
	query := `INSERT INTO files (id, user_id, parent_dir_id, name, extension, size, storage_path, is_starred, is_deleted, share_token, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(query,
		file.ID,
		file.UserID,
		file.ParentDirID,
		file.Name,
		file.Extension,
		file.Size,
		file.StoragePath,
		file.IsStarred,
		file.IsDeleted,
		file.ShareToken,
		file.CreatedAt,
		file.UpdatedAt,
	)

	return err
}

func (r *fileRepository) ByID(id, userID string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1 AND user_id = $2`

	err := r.db.Get(file, query, id, userID)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}

	return file, err
}

// ByIDAnyOwner loads a file without an ownership filter. Only the share
// capability path may use it; possession of a valid token is the credential.
func (r *fileRepository) ByIDAnyOwner(id string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1`

	err := r.db.Get(file, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}

	return file, err
}

func (r *fileRepository) ByIDs(userID string, ids []string) ([]*model.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM files WHERE user_id = ? AND id IN (?)`, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var files []*model.File
	err = r.db.Select(&files, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return files, nil
}

// ByParent lists the direct, non-deleted child files of a directory.
func (r *fileRepository) ByParent(parentID string) ([]*model.File, error) {
	var files []*model.File
	query := `SELECT * FROM files WHERE parent_dir_id = $1 AND is_deleted = FALSE ORDER BY name`

	err := r.db.Select(&files, query, parentID)
	if err != nil {
		return nil, err
	}

	return files, nil
}

// AllByParent lists every child file of a directory including soft-deleted
// ones. The cascade engine needs the full set: trashed files still own rows
// and blobs that must go when their directory goes.
func (r *fileRepository) AllByParent(parentID string) ([]*model.File, error) {
	var files []*model.File
	query := `SELECT * FROM files WHERE parent_dir_id = $1`

	err := r.db.Select(&files, query, parentID)
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (r *fileRepository) ChildByName(userID, parentID, name string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE user_id = $1 AND parent_dir_id = $2 AND name = $3 AND is_deleted = FALSE`

	err := r.db.Get(file, query, userID, parentID, name)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}

	return file, err
}

func (r *fileRepository) Rename(id, userID, newName string) error {
	query := `UPDATE files SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND user_id = $3`
	_, err := r.db.Exec(query, newName, id, userID)
	return err
}

func (r *fileRepository) SetStarred(id, userID string, starred bool) error {
	query := `UPDATE files SET is_starred = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND user_id = $3`
	_, err := r.db.Exec(query, starred, id, userID)
	return err
}

func (r *fileRepository) SetShareToken(id, userID, token string) error {
	query := `UPDATE files SET share_token = $1 WHERE id = $2 AND user_id = $3`
	_, err := r.db.Exec(query, token, id, userID)
	return err
}

// Touch bumps updated_at, which drives the recent-files ordering.
func (r *fileRepository) Touch(id string) error {
	query := `UPDATE files SET updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return err
}

func (r *fileRepository) Recent(userID string, limit int) ([]*model.File, error) {
	var files []*model.File
	query := `SELECT * FROM files WHERE user_id = $1 AND is_deleted = FALSE ORDER BY updated_at DESC LIMIT $2`

	err := r.db.Select(&files, query, userID, limit)
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (r *fileRepository) Starred(userID string, offset, limit int) ([]*model.File, error) {
	var files []*model.File
	query := `SELECT * FROM files WHERE user_id = $1 AND is_starred = TRUE AND is_deleted = FALSE
	          ORDER BY updated_at DESC LIMIT $2 OFFSET $3`

	err := r.db.Select(&files, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (r *fileRepository) CountStarred(userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM files WHERE user_id = $1 AND is_starred = TRUE AND is_deleted = FALSE`

	err := r.db.Get(&count, query, userID)
	return count, err
}

// Extensions returns the extension of every live file the user owns; the
// analytics rollup buckets them in memory.
func (r *fileRepository) Extensions(userID string) ([]string, error) {
	var extensions []string
	query := `SELECT extension FROM files WHERE user_id = $1 AND is_deleted = FALSE`

	err := r.db.Select(&extensions, query, userID)
	if err != nil {
		return nil, err
	}

	return extensions, nil
}

// DeleteAll removes every file row whose id is in ids in a single bulk
// statement.
func (r *fileRepository) DeleteAll(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM files WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	_, err = r.db.Exec(r.db.Rebind(query), args...)
	return err
}
