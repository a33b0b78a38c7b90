package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stashdrive/stash/internal/repository"
	"github.com/stashdrive/stash/internal/storage"
)

// ShareService is the capability code path for shared files. Possession of a
// valid token is the credential: resolving one never consults ownership, and
// the operation set is view-only — no download, no mutation.
type ShareService struct {
	fileRepo repository.FileRepository
	storage  storage.Storage
	secret   string
	expiry   time.Duration
}

func NewShareService(fileRepo repository.FileRepository, store storage.Storage, secret string, expiry time.Duration) *ShareService {
	return &ShareService{
		fileRepo: fileRepo,
		storage:  store,
		secret:   secret,
		expiry:   expiry,
	}
}

// SharedFile is the view-only projection a share token grants access to.
type SharedFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Extension  string    `json:"extension"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadDate"`
	ViewURL    string    `json:"url"`
}

// IssueLink mints a signed, time-bounded token embedding the file id and
// stores the latest token on the file row.
func (s *ShareService) IssueLink(ownerID, fileID string) (string, error) {
	file, err := s.fileRepo.ByID(fileID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return "", apperr.NotFound("file not found")
		}
		return "", apperr.Dependency("failed to load file", err)
	}
	if file.IsDeleted {
		return "", apperr.NotFound("file not found")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"file_id": fileID,
		"exp":     now.Add(s.expiry).Unix(),
		"iat":     now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", apperr.Internal(err)
	}

	err = s.fileRepo.SetShareToken(fileID, ownerID, token)
	if err != nil {
		return "", apperr.Dependency("failed to store share token", err)
	}

	slog.Info("share link issued", "file_id", fileID, "user_id", ownerID)
	return token, nil
}

// Resolve verifies the token's signature and expiry — on every access, never
// cached as a boolean — and returns the shared file's view-only metadata.
func (s *ShareService) Resolve(token string) (*SharedFile, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperr.Unauthorized("invalid or expired share link")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.Unauthorized("invalid or expired share link")
	}
	fileID, ok := claims["file_id"].(string)
	if !ok || fileID == "" {
		return nil, apperr.Unauthorized("invalid or expired share link")
	}

	file, err := s.fileRepo.ByIDAnyOwner(fileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, apperr.NotFound("file not found")
		}
		return nil, apperr.Dependency("failed to load file", err)
	}
	if file.IsDeleted {
		return nil, apperr.NotFound("file not found")
	}

	url, err := s.storage.PresignedURL(file.StoragePath, s.expiry)
	if err != nil {
		return nil, apperr.Dependency("failed to build view url", err)
	}

	return &SharedFile{
		ID:         file.ID,
		Name:       file.Name,
		Extension:  file.Extension,
		Size:       file.Size,
		Type:       model.TypeOf(file.Extension),
		UploadedAt: file.CreatedAt,
		ViewURL:    url,
	}, nil
}
