package submerge

import (
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minoru/git-submerge/internal/testrepo"
)

func TestSortTreeEntriesDirectoryOrdering(t *testing.T) {
	entries := []object.TreeEntry{
		{Name: "foo", Mode: filemode.Dir},
		{Name: "foo-bar", Mode: filemode.Regular},
		{Name: "foo.txt", Mode: filemode.Regular},
	}
	sortTreeEntries(entries)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	// "foo-bar" and "foo.txt" both sort before "foo/" because '-' and '.'
	// are less than '/' in byte order, matching git's base_name_compare.
	assert.Equal(t, []string{"foo-bar", "foo.txt", "foo"}, names)
}

func TestWriteTreeAndLookupPath(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	blobHash, err := testrepo.WriteBlob(repo, []byte("hello"))
	require.NoError(t, err)

	innerEntries := []object.TreeEntry{testrepo.Blob("file.txt", blobHash)}
	sortTreeEntries(innerEntries)
	innerHash, err := writeTree(repo.Storer, innerEntries)
	require.NoError(t, err)

	outerEntries := []object.TreeEntry{testrepo.Subtree("dir", innerHash)}
	sortTreeEntries(outerEntries)
	outerHash, err := writeTree(repo.Storer, outerEntries)
	require.NoError(t, err)

	outerTree, err := object.GetTree(repo.Storer, outerHash)
	require.NoError(t, err)

	entry, err := lookupPath(repo.Storer, outerTree, []string{"dir", "file.txt"})
	require.NoError(t, err)
	assert.Equal(t, blobHash, entry.Hash)
}

func TestLookupPathMissingReturnsErrPathNotFound(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	treeHash, err := writeTree(repo.Storer, nil)
	require.NoError(t, err)
	tree, err := object.GetTree(repo.Storer, treeHash)
	require.NoError(t, err)

	_, err = lookupPath(repo.Storer, tree, []string{"nope"})
	assert.True(t, errors.Is(err, ErrPathNotFound))
}

func TestLookupPathThroughNonDirectoryIsNotFound(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	blobHash, err := testrepo.WriteBlob(repo, []byte("x"))
	require.NoError(t, err)

	entries := []object.TreeEntry{testrepo.Blob("file", blobHash)}
	sortTreeEntries(entries)
	treeHash, err := writeTree(repo.Storer, entries)
	require.NoError(t, err)
	tree, err := object.GetTree(repo.Storer, treeHash)
	require.NoError(t, err)

	_, err = lookupPath(repo.Storer, tree, []string{"file", "deeper"})
	assert.True(t, errors.Is(err, ErrPathNotFound))
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitPath("a/b/c"))
	assert.Equal(t, []string{"a"}, splitPath("a"))
	assert.Equal(t, []string{"a", "b"}, splitPath("a/b/"))
}
