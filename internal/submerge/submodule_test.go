package submerge

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minoru/git-submerge/internal/testrepo"
)

func TestRewriteSubmoduleHistoryLinear(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	blob1, err := testrepo.WriteBlob(repo, []byte("v1"))
	require.NoError(t, err)
	tree1Entries := []object.TreeEntry{testrepo.Blob("a.txt", blob1)}
	sortTreeEntries(tree1Entries)
	tree1, err := writeTree(repo.Storer, tree1Entries)
	require.NoError(t, err)
	c1, err := testrepo.Commit(repo, tree1, nil, "first")
	require.NoError(t, err)

	blob2, err := testrepo.WriteBlob(repo, []byte("v2"))
	require.NoError(t, err)
	tree2Entries := []object.TreeEntry{testrepo.Blob("a.txt", blob2)}
	sortTreeEntries(tree2Entries)
	tree2, err := writeTree(repo.Storer, tree2Entries)
	require.NoError(t, err)
	c2, err := testrepo.Commit(repo, tree2, []plumbing.Hash{c1}, "second")
	require.NoError(t, err)

	log := logrus.New()
	m := NewOidMap()
	err = rewriteSubmoduleHistory(repo, m, []plumbing.Hash{c2}, "vendor/lib", log)
	require.NoError(t, err)

	assert.True(t, m.Has(c1))
	assert.True(t, m.Has(c2))

	newC2Hash := m.MustGet(c2)
	newC2, err := repo.CommitObject(newC2Hash)
	require.NoError(t, err)
	require.Len(t, newC2.ParentHashes, 1)
	assert.Equal(t, m.MustGet(c1), newC2.ParentHashes[0])

	newTree, err := newC2.Tree()
	require.NoError(t, err)
	entry, err := lookupPath(repo.Storer, newTree, []string{"vendor", "lib", "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, blob2, entry.Hash)

	// Author/committer/message are preserved verbatim.
	originalC2, err := repo.CommitObject(c2)
	require.NoError(t, err)
	assert.Equal(t, originalC2.Author, newC2.Author)
	assert.Equal(t, originalC2.Committer, newC2.Committer)
	assert.Equal(t, originalC2.Message, newC2.Message)
}

func TestRewriteSubmoduleHistorySkipsAlreadySeenCommits(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	blob1, err := testrepo.WriteBlob(repo, []byte("v1"))
	require.NoError(t, err)
	treeEntries := []object.TreeEntry{testrepo.Blob("a.txt", blob1)}
	sortTreeEntries(treeEntries)
	tree1, err := writeTree(repo.Storer, treeEntries)
	require.NoError(t, err)
	c1, err := testrepo.Commit(repo, tree1, nil, "first")
	require.NoError(t, err)

	log := logrus.New()
	m := NewOidMap()
	require.NoError(t, rewriteSubmoduleHistory(repo, m, []plumbing.Hash{c1}, "vendor", log))
	lenAfterFirst := m.Len()

	// Re-walking the same tip must not panic on OidMap's conflict check.
	require.NoError(t, rewriteSubmoduleHistory(repo, m, []plumbing.Hash{c1}, "vendor", log))
	assert.Equal(t, lenAfterFirst, m.Len())
}
