package model

import (
	"database/sql"
	"time"
)

type Directory struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"userId"`
	ParentDirID sql.NullString `db:"parent_dir_id" json:"parentDirId"` // NULL only for the per-user root
	Name        string         `db:"name" json:"name"`
	Path        IDPath         `db:"path" json:"path"` // ancestor ids, root first
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsRoot reports whether this is the per-user root directory.
func (d *Directory) IsRoot() bool {
	return !d.ParentDirID.Valid
}

// Crumb is one breadcrumb segment, ordered root to leaf.
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
