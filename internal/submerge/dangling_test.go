package submerge

import (
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minoru/git-submerge/internal/testrepo"
)

func buildParentCommitWithGitlink(t *testing.T, repo *git.Repository, gitlink plumbing.Hash, parents []plumbing.Hash) plumbing.Hash {
	t.Helper()
	entries := []object.TreeEntry{testrepo.Gitlink("vendor", gitlink)}
	sortTreeEntries(entries)
	treeHash, err := writeTree(repo.Storer, entries)
	require.NoError(t, err)
	c, err := testrepo.Commit(repo, treeHash, parents, "touches vendor")
	require.NoError(t, err)
	return c
}

func TestFindDanglingReferencesNoneWhenMapped(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	subCommit := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")
	c1 := buildParentCommitWithGitlink(t, repo, subCommit, nil)
	require.NoError(t, testrepo.SetBranch(repo, "main", c1))
	require.NoError(t, testrepo.SetHEAD(repo, "main"))

	m := NewOidMap()
	m.Set(subCommit, plumbing.NewHash("dddddddddddddddddddddddddddddddddddddddd"))

	log := logrus.New()
	err = findDanglingReferences(repo, m, "vendor", nil, nil, log)
	assert.NoError(t, err)
}

func TestFindDanglingReferencesReportsUnmapped(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	subCommit := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")
	c1 := buildParentCommitWithGitlink(t, repo, subCommit, nil)
	require.NoError(t, testrepo.SetBranch(repo, "main", c1))
	require.NoError(t, testrepo.SetHEAD(repo, "main"))

	m := NewOidMap()
	log := logrus.New()
	err = findDanglingReferences(repo, m, "vendor", nil, nil, log)
	require.Error(t, err)

	dre, ok := err.(*DanglingReferencesError)
	require.True(t, ok)
	require.Len(t, dre.Commits, 1)
	assert.Equal(t, subCommit, dre.Commits[0])
}

func TestFindDanglingReferencesResolvedByExplicitMapping(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	subCommit := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")
	c1 := buildParentCommitWithGitlink(t, repo, subCommit, nil)
	require.NoError(t, testrepo.SetBranch(repo, "main", c1))
	require.NoError(t, testrepo.SetHEAD(repo, "main"))

	m := NewOidMap()
	explicit := map[plumbing.Hash]plumbing.Hash{
		subCommit: plumbing.NewHash("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"),
	}
	log := logrus.New()
	err = findDanglingReferences(repo, m, "vendor", explicit, nil, log)
	assert.NoError(t, err)
}

func TestFindDanglingReferencesResolvedByDefaultMapping(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	subCommit := plumbing.NewHash("cccccccccccccccccccccccccccccccccccccccc")
	c1 := buildParentCommitWithGitlink(t, repo, subCommit, nil)
	require.NoError(t, testrepo.SetBranch(repo, "main", c1))
	require.NoError(t, testrepo.SetHEAD(repo, "main"))

	m := NewOidMap()
	defaultMapping := plumbing.NewHash("ffffffffffffffffffffffffffffffffffffffff")
	log := logrus.New()
	err = findDanglingReferences(repo, m, "vendor", nil, &defaultMapping, log)
	assert.NoError(t, err)
}
