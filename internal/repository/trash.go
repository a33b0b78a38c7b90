package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stashdrive/stash/internal/model"
)

var (
	ErrTrashEntryNotFound = errors.New("trash entry not found")
)

// TrashRepository owns the trash collection and every transition that has to
// keep files.is_deleted and the trash rows in lockstep. Those transitions run
// in single transactions so the two can never drift apart.
type TrashRepository interface {
	ByID(id, userID string) (*model.TrashEntry, error)
	List(userID string, offset, limit int, sortBy string) ([]*model.TrashEntry, error)
	Count(userID string) (int, error)
	MoveToTrash(file *model.File, parentDirName string) error
	MoveAllToTrash(files []*model.File, parentDirNames map[string]string) error
	Purge(id, userID string) error
	DeleteAll(ids []string) error
}

type trashRepository struct {
	db *sqlx.DB
}

func NewTrashRepository(db *sqlx.DB) *trashRepository {
	return &trashRepository{db: db}
}

func (r *trashRepository) ByID(id, userID string) (*model.TrashEntry, error) {
	entry := &model.TrashEntry{}
	query := `SELECT * FROM trash WHERE id = $1 AND user_id = $2`

	err := r.db.Get(entry, query, id, userID)
	if err == sql.ErrNoRows {
		return nil, ErrTrashEntryNotFound
	}

	return entry, err
}

func (r *trashRepository) List(userID string, offset, limit int, sortBy string) ([]*model.TrashEntry, error) {
	order := `created_at DESC`
	if sortBy == "name" {
		order = `name COLLATE NOCASE ASC`
	}

	var entries []*model.TrashEntry
	query := fmt.Sprintf(`SELECT * FROM trash WHERE user_id = $1 ORDER BY %s LIMIT $2 OFFSET $3`, order)

	err := r.db.Select(&entries, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *trashRepository) Count(userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM trash WHERE user_id = $1`

	err := r.db.Get(&count, query, userID)
	return count, err
}

// MoveToTrash flags the file as deleted and inserts its trash snapshot in one
// transaction.
func (r *trashRepository) MoveToTrash(file *model.File, parentDirName string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`UPDATE files SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND user_id = $2`,
		file.ID, file.UserID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT INTO trash (id, user_id, name, extension, parent_dir_id, parent_dir_name, created_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		file.ID, file.UserID, file.Name, file.Extension, file.ParentDirID, parentDirName, time.Now().UTC())
	if err != nil {
		return err
	}

	return tx.Commit()
}

// MoveAllToTrash is the bulk form of MoveToTrash: one transaction flags every
// file and writes every snapshot, so a partial bulk delete can never leave the
// flag and the trash rows out of sync.
func (r *trashRepository) MoveAllToTrash(files []*model.File, parentDirNames map[string]string) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, file.ID)
	}

	query, args, err := sqlx.In(`UPDATE files SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	_, err = tx.Exec(r.db.Rebind(query), args...)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, file := range files {
		_, err = tx.Exec(`INSERT INTO trash (id, user_id, name, extension, parent_dir_id, parent_dir_name, created_at)
		                  VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			file.ID, file.UserID, file.Name, file.Extension, file.ParentDirID, parentDirNames[file.ParentDirID], now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Purge removes the file row and the trash row together. The caller deletes
// the blob first; if that fails the metadata stays untouched.
func (r *trashRepository) Purge(id, userID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`DELETE FROM files WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DELETE FROM trash WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *trashRepository) DeleteAll(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM trash WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	_, err = r.db.Exec(r.db.Rebind(query), args...)
	return err
}
