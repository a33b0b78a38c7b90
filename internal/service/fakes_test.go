package service

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stashdrive/stash/internal/repository"
)

// In-memory fakes mirroring the SQL repositories' visible behavior: sentinel
// errors on missing rows, ownership scoping, live vs deleted filtering, and
// the trash transitions flipping the file flag and the trash row together.

type memDirRepo struct {
	mu   sync.Mutex
	dirs map[string]*model.Directory
	err  error
}

func newMemDirRepo() *memDirRepo {
	return &memDirRepo{dirs: make(map[string]*model.Directory)}
}

func (r *memDirRepo) Create(dir *model.Directory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *dir
	r.dirs[dir.ID] = &cp
	return nil
}

func (r *memDirRepo) ByID(id, userID string) (*model.Directory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	dir, ok := r.dirs[id]
	if !ok || dir.UserID != userID {
		return nil, repository.ErrDirectoryNotFound
	}
	cp := *dir
	return &cp, nil
}

func (r *memDirRepo) ByIDs(userID string, ids []string) ([]*model.Directory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Directory
	for _, id := range ids {
		if dir, ok := r.dirs[id]; ok && dir.UserID == userID {
			cp := *dir
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memDirRepo) RootByUser(userID string) (*model.Directory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dir := range r.dirs {
		if dir.UserID == userID && !dir.ParentDirID.Valid {
			cp := *dir
			return &cp, nil
		}
	}
	return nil, repository.ErrDirectoryNotFound
}

func (r *memDirRepo) ChildByName(userID, parentID, name string) (*model.Directory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dir := range r.dirs {
		if dir.UserID == userID && dir.ParentDirID.Valid && dir.ParentDirID.String == parentID && dir.Name == name {
			cp := *dir
			return &cp, nil
		}
	}
	return nil, repository.ErrDirectoryNotFound
}

func (r *memDirRepo) Children(parentID string) ([]*model.Directory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Directory
	for _, dir := range r.dirs {
		if dir.ParentDirID.Valid && dir.ParentDirID.String == parentID {
			cp := *dir
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memDirRepo) Rename(id, userID, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dir, ok := r.dirs[id]; ok && dir.UserID == userID {
		dir.Name = newName
		dir.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *memDirRepo) DeleteAll(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.dirs, id)
	}
	return nil
}

func (r *memDirRepo) EnsureRoot(root *model.Directory) (*model.Directory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dir := range r.dirs {
		if dir.UserID == root.UserID && !dir.ParentDirID.Valid {
			cp := *dir
			return &cp, nil
		}
	}
	cp := *root
	r.dirs[root.ID] = &cp
	out := cp
	return &out, nil
}

type memFileRepo struct {
	mu        sync.Mutex
	files     map[string]*model.File
	createErr error
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{files: make(map[string]*model.File)}
}

func (r *memFileRepo) Create(file *model.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *file
	r.files[file.ID] = &cp
	return nil
}

func (r *memFileRepo) ByID(id, userID string) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok || file.UserID != userID {
		return nil, repository.ErrFileNotFound
	}
	cp := *file
	return &cp, nil
}

func (r *memFileRepo) ByIDAnyOwner(id string) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok {
		return nil, repository.ErrFileNotFound
	}
	cp := *file
	return &cp, nil
}

func (r *memFileRepo) ByIDs(userID string, ids []string) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.File
	for _, id := range ids {
		if file, ok := r.files[id]; ok && file.UserID == userID {
			cp := *file
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memFileRepo) ByParent(parentID string) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.File
	for _, file := range r.files {
		if file.ParentDirID == parentID && !file.IsDeleted {
			cp := *file
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memFileRepo) AllByParent(parentID string) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.File
	for _, file := range r.files {
		if file.ParentDirID == parentID {
			cp := *file
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memFileRepo) ChildByName(userID, parentID, name string) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, file := range r.files {
		if file.UserID == userID && file.ParentDirID == parentID && file.Name == name && !file.IsDeleted {
			cp := *file
			return &cp, nil
		}
	}
	return nil, repository.ErrFileNotFound
}

func (r *memFileRepo) Rename(id, userID, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file, ok := r.files[id]; ok && file.UserID == userID {
		file.Name = newName
		file.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *memFileRepo) SetStarred(id, userID string, starred bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file, ok := r.files[id]; ok && file.UserID == userID {
		file.IsStarred = starred
		file.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *memFileRepo) SetShareToken(id, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file, ok := r.files[id]; ok && file.UserID == userID {
		file.ShareToken = sql.NullString{String: token, Valid: true}
	}
	return nil
}

func (r *memFileRepo) Touch(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file, ok := r.files[id]; ok {
		file.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *memFileRepo) Recent(userID string, limit int) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.File
	for _, file := range r.files {
		if file.UserID == userID && !file.IsDeleted {
			cp := *file
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memFileRepo) Starred(userID string, offset, limit int) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.File
	for _, file := range r.files {
		if file.UserID == userID && file.IsStarred && !file.IsDeleted {
			cp := *file
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memFileRepo) CountStarred(userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, file := range r.files {
		if file.UserID == userID && file.IsStarred && !file.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (r *memFileRepo) Extensions(userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, file := range r.files {
		if file.UserID == userID && !file.IsDeleted {
			out = append(out, file.Extension)
		}
	}
	return out, nil
}

func (r *memFileRepo) DeleteAll(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.files, id)
	}
	return nil
}

type memTrashRepo struct {
	mu      sync.Mutex
	entries map[string]*model.TrashEntry
	files   *memFileRepo
	err     error
}

func newMemTrashRepo(files *memFileRepo) *memTrashRepo {
	return &memTrashRepo{entries: make(map[string]*model.TrashEntry), files: files}
}

func (r *memTrashRepo) ByID(id, userID string) (*model.TrashEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok || entry.UserID != userID {
		return nil, repository.ErrTrashEntryNotFound
	}
	cp := *entry
	return &cp, nil
}

func (r *memTrashRepo) List(userID string, offset, limit int, sortBy string) ([]*model.TrashEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TrashEntry
	for _, entry := range r.entries {
		if entry.UserID == userID {
			cp := *entry
			out = append(out, &cp)
		}
	}
	if sortBy == "name" {
		sort.Slice(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTrashRepo) Count(userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memTrashRepo) MoveToTrash(file *model.File, parentDirName string) error {
	if r.err != nil {
		return r.err
	}
	r.files.mu.Lock()
	if live, ok := r.files.files[file.ID]; ok {
		live.IsDeleted = true
		live.UpdatedAt = time.Now().UTC()
	}
	r.files.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[file.ID] = &model.TrashEntry{
		ID:            file.ID,
		UserID:        file.UserID,
		Name:          file.Name,
		Extension:     file.Extension,
		ParentDirID:   file.ParentDirID,
		ParentDirName: parentDirName,
		CreatedAt:     time.Now().UTC(),
	}
	return nil
}

func (r *memTrashRepo) MoveAllToTrash(files []*model.File, parentDirNames map[string]string) error {
	if r.err != nil {
		return r.err
	}
	for _, file := range files {
		if err := r.MoveToTrash(file, parentDirNames[file.ParentDirID]); err != nil {
			return err
		}
	}
	return nil
}

func (r *memTrashRepo) Purge(id, userID string) error {
	r.files.mu.Lock()
	if file, ok := r.files.files[id]; ok && file.UserID == userID {
		delete(r.files.files, id)
	}
	r.files.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[id]; ok && entry.UserID == userID {
		delete(r.entries, id)
	}
	return nil
}

func (r *memTrashRepo) DeleteAll(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.entries, id)
	}
	return nil
}

// memStorage keeps blobs in a map and can be told to fail specific
// operations.
type memStorage struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	saveErr   error
	deleteErr error
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte)}
}

func (s *memStorage) Save(key string, body io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[key] = buf.Bytes()
	s.mu.Unlock()
	return nil
}

func (s *memStorage) Delete(key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

func (s *memStorage) URL(key string) string {
	return "mem://" + key
}

func (s *memStorage) PresignedURL(key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("mem://%s?expires=%d", key, int64(expiry.Seconds())), nil
}

func (s *memStorage) blob(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	return b, ok
}

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// memCache is a TTL-less cache fake; breadcrumb tests only care about
// presence and invalidation, not expiry.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *memCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *memCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// fixture wires every service against the in-memory fakes.
type fixture struct {
	dirs    *memDirRepo
	files   *memFileRepo
	trash   *memTrashRepo
	store   *memStorage
	cache   *memCache
	cascade *CascadeEngine

	dirSvc    *DirectoryService
	fileSvc   *FileService
	uploadSvc *UploadService
	shareSvc  *ShareService
	trashSvc  *TrashService
}

func newFixture() *fixture {
	f := &fixture{
		dirs:  newMemDirRepo(),
		files: newMemFileRepo(),
		store: newMemStorage(),
		cache: newMemCache(),
	}
	f.trash = newMemTrashRepo(f.files)
	f.cascade = NewCascadeEngine(f.dirs, f.files, f.trash, f.store, f.cache)
	f.dirSvc = NewDirectoryService(f.dirs, f.files, f.cascade, f.cache, time.Hour)
	f.fileSvc = NewFileService(f.files, f.dirs, f.trash, f.store)
	f.uploadSvc = NewUploadService(f.dirs, f.files, f.store, 10<<20)
	f.shareSvc = NewShareService(f.files, f.store, "test-secret", time.Hour)
	f.trashSvc = NewTrashService(f.trash, f.files, f.store)
	return f
}

// seedDir inserts a directory row directly, bypassing the service.
func (f *fixture) seedDir(userID string, parent *model.Directory, name string) *model.Directory {
	dir := &model.Directory{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Path:      model.IDPath{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if parent != nil {
		dir.ParentDirID = sql.NullString{String: parent.ID, Valid: true}
		dir.Path = parent.Path.Child(parent.ID)
	}
	if err := f.dirs.Create(dir); err != nil {
		panic(err)
	}
	return dir
}

// seedFile inserts a file row and its blob directly.
func (f *fixture) seedFile(userID string, parent *model.Directory, name string, content []byte) *model.File {
	id := uuid.New().String()
	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i:]
	}
	file := &model.File{
		ID:          id,
		UserID:      userID,
		ParentDirID: parent.ID,
		Name:        name,
		Extension:   ext,
		Size:        int64(len(content)),
		StoragePath: fmt.Sprintf("user-files/%s/%s%s", userID, id, ext),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := f.files.Create(file); err != nil {
		panic(err)
	}
	if err := f.store.Save(file.StoragePath, bytes.NewReader(content)); err != nil {
		panic(err)
	}
	return file
}

var errBoom = errors.New("boom")
