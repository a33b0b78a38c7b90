package service

import (
	"testing"

	"github.com/stashdrive/stash/internal/apperr"
	"github.com/stashdrive/stash/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionRootIsIdempotent(t *testing.T) {
	f := newFixture()

	first, err := f.dirSvc.ProvisionRoot("u1")
	require.NoError(t, err)
	assert.True(t, first.IsRoot())
	assert.Empty(t, first.Path)

	second, err := f.dirSvc.ProvisionRoot("u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateDirectoryPathInvariant(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")

	a, err := f.dirSvc.Create("u1", root.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, model.IDPath{root.ID}, a.Path)
	assert.Equal(t, root.ID, a.ParentDirID.String)

	b, err := f.dirSvc.Create("u1", a.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, model.IDPath{root.ID, a.ID}, b.Path)
}

func TestCreateDirectoryErrors(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	f.seedDir("u1", root, "docs")

	tests := []struct {
		name     string
		parentID string
		dirName  string
		wantCode string
	}{
		{"missing parent", "nope", "a", apperr.CodeNotFound},
		{"parent owned by someone else", root.ID + "-other", "a", apperr.CodeNotFound},
		{"sibling name taken", root.ID, "docs", apperr.CodeConflict},
		{"empty name", root.ID, "   ", apperr.CodeValidation},
		{"slash in name", root.ID, "a/b", apperr.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.dirSvc.Create("u1", tt.parentID, tt.dirName)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperr.From(err).Code)
		})
	}
}

func TestCreateDirectorySameNameDifferentParentsOK(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	a := f.seedDir("u1", root, "a")

	_, err := f.dirSvc.Create("u1", root.ID, "docs")
	require.NoError(t, err)
	_, err = f.dirSvc.Create("u1", a.ID, "docs")
	require.NoError(t, err)
}

func TestRenameDirectory(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	a := f.seedDir("u1", root, "a")
	f.seedDir("u1", root, "b")

	require.NoError(t, f.dirSvc.Rename("u1", a.ID, "renamed"))
	got, err := f.dirs.ByID(a.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	// Renaming to a sibling's name conflicts; renaming to its own name does
	// not.
	err = f.dirSvc.Rename("u1", a.ID, "b")
	assert.Equal(t, apperr.CodeConflict, apperr.From(err).Code)
	assert.NoError(t, f.dirSvc.Rename("u1", a.ID, "renamed"))
}

func TestRenameRootSkipsSiblingCheck(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")

	require.NoError(t, f.dirSvc.Rename("u1", root.ID, "my-drive"))
	got, err := f.dirs.ByID(root.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "my-drive", got.Name)
}

func TestRenameInvalidatesSubtreeBreadcrumbs(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	a := f.seedDir("u1", root, "a")
	b := f.seedDir("u1", a, "b")

	// Warm the cache for a descendant whose breadcrumb embeds a's name.
	_, err := f.dirSvc.Breadcrumb("u1", b.ID)
	require.NoError(t, err)
	require.True(t, f.cache.has(breadcrumbKey("u1", b.ID)))

	require.NoError(t, f.dirSvc.Rename("u1", a.ID, "a2"))
	assert.False(t, f.cache.has(breadcrumbKey("u1", b.ID)))

	crumbs, err := f.dirSvc.Breadcrumb("u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "a2", crumbs[1].Name)
}

func TestListReturnsOneLevel(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	a := f.seedDir("u1", root, "a")
	f.seedDir("u1", a, "nested")
	f.seedFile("u1", root, "top.txt", []byte("x"))
	f.seedFile("u1", a, "deep.txt", []byte("y"))

	listing, err := f.dirSvc.List("u1", root.ID)
	require.NoError(t, err)
	require.Len(t, listing.Directories, 1)
	assert.Equal(t, a.ID, listing.Directories[0].ID)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "top.txt", listing.Files[0].Name)
}

func TestListExcludesTrashedFiles(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	file := f.seedFile("u1", root, "gone.txt", []byte("x"))
	require.NoError(t, f.fileSvc.SoftDelete("u1", file.ID))

	listing, err := f.dirSvc.List("u1", root.ID)
	require.NoError(t, err)
	assert.Empty(t, listing.Files)
	assert.NotNil(t, listing.Files)
}

func TestListForeignDirectory(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")

	_, err := f.dirSvc.List("u2", root.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)
}

func TestBreadcrumbChain(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	a := f.seedDir("u1", root, "a")
	b := f.seedDir("u1", a, "b")

	crumbs, err := f.dirSvc.Breadcrumb("u1", b.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, 3)
	assert.Equal(t, []model.Crumb{
		{ID: root.ID, Name: "root-u1"},
		{ID: a.ID, Name: "a"},
		{ID: b.ID, Name: "b"},
	}, crumbs)

	rootCrumbs, err := f.dirSvc.Breadcrumb("u1", root.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Crumb{{ID: root.ID, Name: "root-u1"}}, rootCrumbs)
}

func TestBreadcrumbServedFromCache(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	a := f.seedDir("u1", root, "a")

	first, err := f.dirSvc.Breadcrumb("u1", a.ID)
	require.NoError(t, err)

	// Mutate the row behind the cache's back: a hit must not see it.
	require.NoError(t, f.dirs.Rename(a.ID, "u1", "sneaky"))
	second, err := f.dirSvc.Breadcrumb("u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// After invalidation the rebuild picks the new name up.
	f.cache.Invalidate(breadcrumbKey("u1", a.ID))
	third, err := f.dirSvc.Breadcrumb("u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "sneaky", third[1].Name)
}

func TestBreadcrumbCorruptCacheEntryRebuilds(t *testing.T) {
	f := newFixture()
	root := f.seedDir("u1", nil, "root-u1")
	f.cache.Set(breadcrumbKey("u1", root.ID), []byte("not json"), 0)

	crumbs, err := f.dirSvc.Breadcrumb("u1", root.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Crumb{{ID: root.ID, Name: "root-u1"}}, crumbs)
}

func TestBreadcrumbUnknownDirectory(t *testing.T) {
	f := newFixture()

	_, err := f.dirSvc.Breadcrumb("u1", "nope")
	assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)
}
