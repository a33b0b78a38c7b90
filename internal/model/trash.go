package model

import "time"

// TrashEntry is a display/restore snapshot of a soft-deleted file, keyed by
// the original file id. It captures the parent directory's name at deletion
// time, which cannot be reconstructed later if the parent is renamed or
// cascade-deleted. A TrashEntry exists exactly while the corresponding file
// row has is_deleted set and no purge has happened; both delete paths keep the
// two in lockstep inside a single transaction.
type TrashEntry struct {
	ID            string    `db:"id" json:"id"` // original file id
	UserID        string    `db:"user_id" json:"userId"`
	Name          string    `db:"name" json:"name"`
	Extension     string    `db:"extension" json:"extension"`
	ParentDirID   string    `db:"parent_dir_id" json:"parentDirId"`
	ParentDirName string    `db:"parent_dir_name" json:"parentDirName"`
	CreatedAt     time.Time `db:"created_at" json:"deletedAt"`
}
