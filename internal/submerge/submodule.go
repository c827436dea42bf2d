package submerge

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/sirupsen/logrus"
)

// rewriteSubmoduleHistory implements C4: it walks every commit reachable
// from the submodule's tips and produces a parallel commit history where
// each commit's tree has been relocated under targetDir. Authorship,
// committer info, timestamps, messages and parent order are all preserved
// (spec.md §4.3, testable property in §8). The rewritten commits are never
// referenced by anything here — C6 adopts them as extra parents, and C7
// never points a branch at one directly (per the open question in §9,
// submodule branches aren't retargeted).
//
// repo must already have the submodule's objects fetched in (C8 step 5);
// tips are resolved against repo, not against a separately-opened
// submodule repository, mirroring the teacher's tracCommit, which also
// only ever calls c.repo.CommitObject once objects are locally available.
func rewriteSubmoduleHistory(repo *git.Repository, m *OidMap, tips []plumbing.Hash, targetDir string, log *logrus.Logger) error {
	order, err := walkReverseTopological(repo, tips, log)
	if err != nil {
		return fmt.Errorf("submodule rewrite: %w", err)
	}

	for _, oid := range order {
		if m.Has(oid) {
			continue
		}
		commit, err := repo.CommitObject(oid)
		if err != nil {
			return fmt.Errorf("submodule rewrite: loading commit %s: %w", oid, err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return fmt.Errorf("submodule rewrite: loading tree of %s: %w", oid, err)
		}

		newTreeHash, err := relocateUnderPrefix(repo.Storer, tree, targetDir)
		if err != nil {
			return fmt.Errorf("submodule rewrite: relocating tree of %s: %w", oid, err)
		}
		m.Set(tree.Hash, newTreeHash)

		parents := make([]plumbing.Hash, 0, len(commit.ParentHashes))
		for _, p := range commit.ParentHashes {
			parents = append(parents, m.MustGet(p))
		}

		newCommitHash, err := writeCommit(repo.Storer, commit, newTreeHash, parents)
		if err != nil {
			return fmt.Errorf("submodule rewrite: writing rewritten commit for %s: %w", oid, err)
		}
		m.Set(oid, newCommitHash)

		log.WithFields(logrus.Fields{"stage": "submodule-rewrite", "old": oid.String(), "new": newCommitHash.String()}).Debug("rewrote submodule commit")
	}

	return nil
}

// writeCommit encodes and stores a new commit object that copies
// author/committer/message from original but carries newTree and
// newParents. This generalizes the teacher's newTracCommit encode/store
// sequence from subtrac.go to a real (non-synthetic) rewritten commit.
func writeCommit(store storage.Storer, original *object.Commit, newTree plumbing.Hash, newParents []plumbing.Hash) (plumbing.Hash, error) {
	c := &object.Commit{
		Author:       original.Author,
		Committer:    original.Committer,
		Message:      original.Message,
		TreeHash:     newTree,
		ParentHashes: newParents,
	}
	obj := store.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding commit: %w", err)
	}
	hash, err := store.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing commit: %w", err)
	}
	return hash, nil
}
