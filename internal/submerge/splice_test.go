package submerge

import (
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minoru/git-submerge/internal/testrepo"
)

func TestSpliceSubtreeAtPathTopLevel(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	readmeHash, err := testrepo.WriteBlob(repo, []byte("readme"))
	require.NoError(t, err)
	subHash := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")
	replacement := plumbing.NewHash("dddddddddddddddddddddddddddddddddddddddd")

	entries := []object.TreeEntry{
		testrepo.Blob("README.md", readmeHash),
		testrepo.Gitlink("vendor", subHash),
	}
	sortTreeEntries(entries)
	rootHash, err := writeTree(repo.Storer, entries)
	require.NoError(t, err)
	rootTree, err := object.GetTree(repo.Storer, rootHash)
	require.NoError(t, err)

	splicedHash, err := spliceSubtreeAtPath(repo.Storer, rootTree, "vendor", replacement)
	require.NoError(t, err)

	splicedTree, err := object.GetTree(repo.Storer, splicedHash)
	require.NoError(t, err)
	entry, ok := findEntry(splicedTree, "vendor")
	require.True(t, ok)
	assert.Equal(t, filemode.Dir, entry.Mode)
	assert.Equal(t, replacement, entry.Hash)

	// README.md is untouched.
	readme, ok := findEntry(splicedTree, "README.md")
	require.True(t, ok)
	assert.Equal(t, readmeHash, readme.Hash)
}

func TestSpliceSubtreeAtPathNestedPreservesIntermediateMode(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	subHash := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")
	replacement := plumbing.NewHash("dddddddddddddddddddddddddddddddddddddddd")

	libEntries := []object.TreeEntry{testrepo.Gitlink("vendor", subHash)}
	sortTreeEntries(libEntries)
	libHash, err := writeTree(repo.Storer, libEntries)
	require.NoError(t, err)

	rootEntries := []object.TreeEntry{testrepo.Subtree("lib", libHash)}
	sortTreeEntries(rootEntries)
	rootHash, err := writeTree(repo.Storer, rootEntries)
	require.NoError(t, err)
	rootTree, err := object.GetTree(repo.Storer, rootHash)
	require.NoError(t, err)

	splicedHash, err := spliceSubtreeAtPath(repo.Storer, rootTree, "lib/vendor", replacement)
	require.NoError(t, err)

	splicedTree, err := object.GetTree(repo.Storer, splicedHash)
	require.NoError(t, err)
	libEntry, ok := findEntry(splicedTree, "lib")
	require.True(t, ok)
	assert.Equal(t, filemode.Dir, libEntry.Mode)

	libTree, err := object.GetTree(repo.Storer, libEntry.Hash)
	require.NoError(t, err)
	vendorEntry, ok := findEntry(libTree, "vendor")
	require.True(t, ok)
	assert.Equal(t, filemode.Dir, vendorEntry.Mode)
	assert.Equal(t, replacement, vendorEntry.Hash)
}

func TestSpliceSubtreeAtPathMissingSegmentIsPathNotFound(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	treeHash, err := writeTree(repo.Storer, nil)
	require.NoError(t, err)
	tree, err := object.GetTree(repo.Storer, treeHash)
	require.NoError(t, err)

	_, err = spliceSubtreeAtPath(repo.Storer, tree, "nope", plumbing.ZeroHash)
	assert.True(t, errors.Is(err, ErrPathNotFound))
}
