package model

import (
	"database/sql"
	"time"
)

type File struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"userId"`
	ParentDirID string         `db:"parent_dir_id" json:"parentDirId"`
	Name        string         `db:"name" json:"name"`
	Extension   string         `db:"extension" json:"extension"`
	Size        int64          `db:"size" json:"size"`
	StoragePath string         `db:"storage_path" json:"-"`
	IsStarred   bool           `db:"is_starred" json:"isStarred"`
	IsDeleted   bool           `db:"is_deleted" json:"isDeleted"`
	ShareToken  sql.NullString `db:"share_token" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"` // also last-accessed, drives recency ordering
}

// File type buckets for the analytics rollup.
const (
	FileTypeImage = "Image"
	FileTypePDF   = "PDF"
	FileTypeText  = "Text"
	FileTypeVideo = "Video"
	FileTypeOther = "Other"
)

var extensionTypes = map[string]string{
	".jpg":  FileTypeImage,
	".jpeg": FileTypeImage,
	".png":  FileTypeImage,
	".webp": FileTypeImage,
	".pdf":  FileTypePDF,
	".txt":  FileTypeText,
	".mp4":  FileTypeVideo,
}

// TypeOf buckets a file extension for analytics.
func TypeOf(extension string) string {
	t, ok := extensionTypes[extension]
	if ok {
		return t
	}
	return FileTypeOther
}
