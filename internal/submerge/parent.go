package submerge

import (
	"errors"
	"fmt"
	"path"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"
)

// rewriteParentHistory implements C6: it walks the parent repository's
// history and, for every commit that carries a gitlink at submodulePath,
// replaces it with the corresponding rewritten-submodule subtree, adding
// an extra parent edge whenever the commit is an "update commit" per
// spec.md §4.5 (its gitlink differs from every one of its parents').
// Commits that never touch the gitlink are mapped to themselves (identity,
// rewrite-map item 3 in spec.md §3).
//
// m must already contain every submodule tree/commit from C4, and C5 must
// have confirmed there are no dangling references — this function panics
// (tier-3, spec.md §7) if it encounters one anyway, since that would mean
// an invariant the orchestrator was supposed to guarantee has been broken.
func rewriteParentHistory(
	repo *git.Repository,
	m *OidMap,
	tips []plumbing.Hash,
	submodulePath string,
	explicit map[plumbing.Hash]plumbing.Hash,
	defaultMapping *plumbing.Hash,
	log *logrus.Logger,
) error {
	segments := splitPath(submodulePath)
	basename := path.Base(submodulePath)

	order, err := walkReverseTopological(repo, tips, log)
	if err != nil {
		return fmt.Errorf("parent rewrite: %w", err)
	}

	for _, oid := range order {
		commit, err := repo.CommitObject(oid)
		if err != nil {
			return fmt.Errorf("parent rewrite: loading commit %s: %w", oid, err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return fmt.Errorf("parent rewrite: loading tree of %s: %w", oid, err)
		}

		entry, err := lookupPath(repo.Storer, tree, segments)
		if err != nil {
			if errors.Is(err, ErrPathNotFound) {
				m.SetIdentity(oid)
				continue
			}
			return fmt.Errorf("parent rewrite: %w", err)
		}
		if entry.Mode != filemode.Submodule {
			m.SetIdentity(oid)
			continue
		}

		s := entry.Hash
		rewrittenSubCommitHash, resolvedSubID, err := resolveSubmoduleCommit(m, explicit, defaultMapping, s)
		if err != nil {
			return fmt.Errorf("parent rewrite: commit %s: %w", oid, err)
		}

		rewrittenSubCommit, err := repo.CommitObject(rewrittenSubCommitHash)
		if err != nil {
			return fmt.Errorf("parent rewrite: loading rewritten submodule commit %s: %w", rewrittenSubCommitHash, err)
		}
		rewrittenSubTree, err := rewrittenSubCommit.Tree()
		if err != nil {
			return fmt.Errorf("parent rewrite: loading tree of %s: %w", rewrittenSubCommitHash, err)
		}
		subtreeEntry, err := lookupPath(repo.Storer, rewrittenSubTree, segments)
		if err != nil {
			return fmt.Errorf("parent rewrite: rewritten submodule commit %s has no subtree at %q: %w", rewrittenSubCommitHash, submodulePath, err)
		}
		replacement := subtreeEntry.Hash

		gmTreeHash, err := editGitmodules(repo.Storer, tree, basename)
		if err != nil {
			return fmt.Errorf("parent rewrite: editing .gitmodules for %s: %w", oid, err)
		}
		workingTree := tree
		if gmTreeHash != tree.Hash {
			workingTree, err = object.GetTree(repo.Storer, gmTreeHash)
			if err != nil {
				return fmt.Errorf("parent rewrite: reloading tree after .gitmodules edit: %w", err)
			}
		}

		newTreeHash, err := spliceSubtreeAtPath(repo.Storer, workingTree, submodulePath, replacement)
		if err != nil {
			return fmt.Errorf("parent rewrite: splicing subtree for %s: %w", oid, err)
		}

		parentStates, err := parentGitlinkStates(repo, commit, segments)
		if err != nil {
			return fmt.Errorf("parent rewrite: %w", err)
		}
		updates := !parentStates[s]

		newParents := make([]plumbing.Hash, 0, commit.NumParents()+1)
		for _, p := range commit.ParentHashes {
			newParents = append(newParents, m.MustGet(p))
		}
		if updates {
			newParents = append(newParents, rewrittenSubCommitHash)
		}

		newCommitHash, err := writeCommit(repo.Storer, commit, newTreeHash, newParents)
		if err != nil {
			return fmt.Errorf("parent rewrite: writing rewritten commit for %s: %w", oid, err)
		}
		m.Set(oid, newCommitHash)

		log.WithFields(logrus.Fields{
			"stage":  "parent-rewrite",
			"old":    oid.String(),
			"new":    newCommitHash.String(),
			"update": updates,
			"sub":    resolvedSubID.String(),
		}).Debug("rewrote parent commit")
	}

	return nil
}

// resolveSubmoduleCommit applies spec.md §4.5 step 2: first explicit,
// then the rewrite map, falling back to defaultMapping only when the
// explicit-resolved id has no entry in m. It returns both the rewritten
// commit hash and the (possibly explicit-resolved, possibly
// default-substituted) old submodule commit id that produced it, for
// logging.
func resolveSubmoduleCommit(
	m *OidMap,
	explicit map[plumbing.Hash]plumbing.Hash,
	defaultMapping *plumbing.Hash,
	s plumbing.Hash,
) (rewritten plumbing.Hash, resolvedOld plumbing.Hash, err error) {
	resolved := s
	if mapped, ok := explicit[s]; ok {
		resolved = mapped
	}
	if rewrittenHash, ok := m.Get(resolved); ok {
		return rewrittenHash, resolved, nil
	}
	if defaultMapping == nil {
		panic(fmt.Sprintf("submerge: commit %s isn't in mappings, and no default-mapping was given; "+
			"C5 should have caught this", s))
	}
	rewrittenHash, ok := m.Get(*defaultMapping)
	if !ok {
		panic(fmt.Sprintf("submerge: default-mapping %s was never validated against submodule history", *defaultMapping))
	}
	return rewrittenHash, *defaultMapping, nil
}

// parentGitlinkStates computes the set S from spec.md §4.5: the raw
// (unmapped) gitlink targets at submodulePath across all of commit's
// parents. A parent lacking the entry contributes nothing.
func parentGitlinkStates(repo *git.Repository, commit *object.Commit, segments []string) (map[plumbing.Hash]bool, error) {
	states := make(map[plumbing.Hash]bool, commit.NumParents())
	for _, ph := range commit.ParentHashes {
		parent, err := repo.CommitObject(ph)
		if err != nil {
			return nil, fmt.Errorf("loading parent %s: %w", ph, err)
		}
		ptree, err := parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("loading parent tree %s: %w", ph, err)
		}
		entry, err := lookupPath(repo.Storer, ptree, segments)
		if err != nil {
			if errors.Is(err, ErrPathNotFound) {
				continue
			}
			return nil, err
		}
		if entry.Mode != filemode.Submodule {
			continue
		}
		states[entry.Hash] = true
	}
	return states, nil
}
