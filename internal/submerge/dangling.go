package submerge

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/sirupsen/logrus"
)

// findDanglingReferences implements C5: it walks the parent history and
// reports every submodule commit a gitlink points to that rewriting never
// saw (m), that no explicit mapping resolves, and that has no default
// fallback. It must run after C4 has populated m (spec.md §4.4).
//
// It returns nil if nothing is dangling, or a *DanglingReferencesError
// listing every offending commit otherwise.
func findDanglingReferences(
	repo *git.Repository,
	m *OidMap,
	submodulePath string,
	explicit map[plumbing.Hash]plumbing.Hash,
	defaultMapping *plumbing.Hash,
	log *logrus.Logger,
) error {
	segments := splitPath(submodulePath)

	tips, err := parentTips(repo, log)
	if err != nil {
		return fmt.Errorf("dangling-reference audit: %w", err)
	}
	order, err := walkReverseTopological(repo, tips, log)
	if err != nil {
		return fmt.Errorf("dangling-reference audit: %w", err)
	}

	seen := make(map[plumbing.Hash]bool)
	var dangling []plumbing.Hash

	for _, oid := range order {
		commit, err := repo.CommitObject(oid)
		if err != nil {
			return fmt.Errorf("dangling-reference audit: loading commit %s: %w", oid, err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return fmt.Errorf("dangling-reference audit: loading tree of %s: %w", oid, err)
		}

		entry, err := lookupPath(repo.Storer, tree, segments)
		if err != nil {
			if errors.Is(err, ErrPathNotFound) {
				continue
			}
			return fmt.Errorf("dangling-reference audit: %w", err)
		}
		if entry.Mode != filemode.Submodule {
			continue
		}

		s := entry.Hash
		if m.Has(s) {
			continue
		}
		if _, ok := explicit[s]; ok {
			continue
		}
		if defaultMapping != nil {
			continue
		}
		if !seen[s] {
			seen[s] = true
			dangling = append(dangling, s)
		}
	}

	if len(dangling) == 0 {
		return nil
	}
	return &DanglingReferencesError{Commits: dangling}
}
