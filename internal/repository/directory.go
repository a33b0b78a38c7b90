package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/stashdrive/stash/internal/model"
)

var (
	ErrDirectoryNotFound = errors.New("directory not found")
)

type DirectoryRepository interface {
	Create(dir *model.Directory) error
	ByID(id, userID string) (*model.Directory, error)
	ByIDs(userID string, ids []string) ([]*model.Directory, error)
	RootByUser(userID string) (*model.Directory, error)
	ChildByName(userID, parentID, name string) (*model.Directory, error)
	Children(parentID string) ([]*model.Directory, error)
	Rename(id, userID, newName string) error
	DeleteAll(ids []string) error
	EnsureRoot(root *model.Directory) (*model.Directory, error)
}

type directoryRepository struct {
	db *sqlx.DB
}

func NewDirectoryRepository(db *sqlx.DB) *directoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) Create(dir *model.Directory) error {
	query := `INSERT INTO directories (id, user_id, parent_dir_id, name, path, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		dir.ID,
		dir.UserID,
		dir.ParentDirID,
		dir.Name,
		dir.Path,
		dir.CreatedAt,
		dir.UpdatedAt,
	)

	return err
}

func (r *directoryRepository) ByID(id, userID string) (*model.Directory, error) {
	dir := &model.Directory{}
	query := `SELECT * FROM directories WHERE id = $1 AND user_id = $2`

	err := r.db.Get(dir, query, id, userID)
	if err == sql.ErrNoRows {
		return nil, ErrDirectoryNotFound
	}

	return dir, err
}

func (r *directoryRepository) ByIDs(userID string, ids []string) ([]*model.Directory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM directories WHERE user_id = ? AND id IN (?)`, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var dirs []*model.Directory
	err = r.db.Select(&dirs, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return dirs, nil
}

func (r *directoryRepository) RootByUser(userID string) (*model.Directory, error) {
	dir := &model.Directory{}
	query := `SELECT * FROM directories WHERE user_id = $1 AND parent_dir_id IS NULL`

	err := r.db.Get(dir, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrDirectoryNotFound
	}

	return dir, err
}

func (r *directoryRepository) ChildByName(userID, parentID, name string) (*model.Directory, error) {
	dir := &model.Directory{}
	query := `SELECT * FROM directories WHERE user_id = $1 AND parent_dir_id = $2 AND name = $3`

	err := r.db.Get(dir, query, userID, parentID, name)
	if err == sql.ErrNoRows {
		return nil, ErrDirectoryNotFound
	}

	return dir, err
}

func (r *directoryRepository) Children(parentID string) ([]*model.Directory, error) {
	var dirs []*model.Directory
	query := `SELECT * FROM directories WHERE parent_dir_id = $1 ORDER BY name`

	err := r.db.Select(&dirs, query, parentID)
	if err != nil {
		return nil, err
	}

	return dirs, nil
}

func (r *directoryRepository) Rename(id, userID, newName string) error {
	query := `UPDATE directories SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND user_id = $3`
	_, err := r.db.Exec(query, newName, id, userID)
	return err
}

// EnsureRoot creates the per-user root directory if it does not exist yet,
// returning the existing row otherwise. The check and insert run inside one
// transaction — this is the provisioning hook the registration and OAuth
// flows call.
func (r *directoryRepository) EnsureRoot(root *model.Directory) (*model.Directory, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing := &model.Directory{}
	err = tx.Get(existing, `SELECT * FROM directories WHERE user_id = $1 AND parent_dir_id IS NULL`, root.UserID)
	if err == nil {
		return existing, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	_, err = tx.Exec(`INSERT INTO directories (id, user_id, parent_dir_id, name, path, created_at, updated_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		root.ID, root.UserID, root.ParentDirID, root.Name, root.Path, root.CreatedAt, root.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return root, tx.Commit()
}

// DeleteAll removes every directory row whose id is in ids. The underlying
// bulk delete removes all matched rows in a single statement.
func (r *directoryRepository) DeleteAll(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM directories WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	_, err = r.db.Exec(r.db.Rebind(query), args...)
	return err
}
