package submerge

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minoru/git-submerge/internal/testrepo"
)

func TestRetargetBranchesMovesEveryLocalBranch(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	treeHash, err := writeTree(repo.Storer, nil)
	require.NoError(t, err)
	oldMain, err := testrepo.Commit(repo, treeHash, nil, "main tip")
	require.NoError(t, err)
	oldDev, err := testrepo.Commit(repo, treeHash, nil, "dev tip")
	require.NoError(t, err)

	require.NoError(t, testrepo.SetBranch(repo, "main", oldMain))
	require.NoError(t, testrepo.SetBranch(repo, "dev", oldDev))
	require.NoError(t, testrepo.SetHEAD(repo, "main"))

	newMain := plumbing.NewHash("1111111111111111111111111111111111111111")
	newDev := plumbing.NewHash("2222222222222222222222222222222222222222")

	m := NewOidMap()
	m.Set(oldMain, newMain)
	m.Set(oldDev, newDev)

	require.NoError(t, retargetBranches(repo, m))

	mainRef, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	require.NoError(t, err)
	assert.Equal(t, newMain, mainRef.Hash())

	devRef, err := repo.Reference(plumbing.NewBranchReferenceName("dev"), true)
	require.NoError(t, err)
	assert.Equal(t, newDev, devRef.Hash())
}

func TestRetargetBranchesErrorsOnUnmappedBranch(t *testing.T) {
	repo, err := testrepo.New()
	require.NoError(t, err)

	treeHash, err := writeTree(repo.Storer, nil)
	require.NoError(t, err)
	oldMain, err := testrepo.Commit(repo, treeHash, nil, "main tip")
	require.NoError(t, err)

	require.NoError(t, testrepo.SetBranch(repo, "main", oldMain))
	require.NoError(t, testrepo.SetHEAD(repo, "main"))

	m := NewOidMap()
	assert.Error(t, retargetBranches(repo, m))
}
