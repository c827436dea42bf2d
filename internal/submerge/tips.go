package submerge

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/sirupsen/logrus"
)

// submoduleTips resolves the submodule-walk tip set from spec.md §4.1:
// submodule HEAD ∪ all submodule branches ∪ all submodule tags. subrepo is
// the submodule's own repository, opened independently so its refs can be
// enumerated (the objects themselves are resolved later against the
// parent repo, once C8 step 5 has fetched them in).
func submoduleTips(subrepo *git.Repository, log *logrus.Logger) ([]plumbing.Hash, error) {
	var tips []plumbing.Hash

	head, err := subrepo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving submodule HEAD: %w", err)
	}
	tips = append(tips, head.Hash())

	branchIter, err := subrepo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing submodule branches: %w", err)
	}
	tips = append(tips, collectPeeledRefs(subrepo, branchIter, log)...)

	tagIter, err := subrepo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing submodule tags: %w", err)
	}
	tips = append(tips, collectPeeledRefs(subrepo, tagIter, log)...)

	return dedupHashes(tips), nil
}

// parentTips resolves the parent-walk tip set: parent HEAD ∪ all parent
// local branches.
func parentTips(repo *git.Repository, log *logrus.Logger) ([]plumbing.Hash, error) {
	var tips []plumbing.Hash

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving repo HEAD: %w", err)
	}
	tips = append(tips, head.Hash())

	branchIter, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing local branches: %w", err)
	}
	tips = append(tips, collectPeeledRefs(repo, branchIter, log)...)

	return dedupHashes(tips), nil
}

// collectPeeledRefs drains iter, resolving each reference down to the
// commit it ultimately names (peeling annotated tags). A reference that
// fails to resolve is logged and skipped — spec.md §4.1: "Failures to
// enumerate a single tip are logged but do not abort the walk."
func collectPeeledRefs(repo *git.Repository, iter storer.ReferenceIter, log *logrus.Logger) []plumbing.Hash {
	var out []plumbing.Hash
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		hash, err := peelToCommit(repo, ref.Hash())
		if err != nil {
			log.WithError(err).WithField("ref", ref.Name().String()).Warn("skipping unresolvable ref")
			return nil
		}
		out = append(out, hash)
		return nil
	})
	return out
}

// peelToCommit follows a tag object chain down to the commit it ultimately
// points at. Most refs already name a commit directly.
func peelToCommit(repo *git.Repository, h plumbing.Hash) (plumbing.Hash, error) {
	if _, err := repo.CommitObject(h); err == nil {
		return h, nil
	}
	tag, err := repo.TagObject(h)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%s is neither a commit nor an annotated tag: %w", h, err)
	}
	target, err := tag.Commit()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("peeling tag %s to a commit: %w", h, err)
	}
	return target.Hash, nil
}
