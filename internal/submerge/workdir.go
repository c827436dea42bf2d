package submerge

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// workdirIsClean reports whether repo's working directory has no tracked
// modifications. Untracked and ignored files are fine — spec.md §1: "the
// clean-workdir precondition" is an external collaborator, not part of
// the rewriting engine, but the orchestrator needs it gated before it
// starts writing anything (spec.md §4.7 step 3).
//
// Status.IsClean() can't be used directly here: unlike the original's
// git2::StatusOptions{include_untracked: false, include_ignored: false},
// go-git's Worktree.Status() takes no options and reports untracked files
// too, with IsClean() treating any non-empty status map as dirty. So an
// untracked file — the common case — would wrongly fail this check.
// Instead, walk the status map and only call it dirty when an entry
// reflects a real difference from HEAD, i.e. neither side is Untracked.
func workdirIsClean(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("reading worktree status: %w", err)
	}
	for _, s := range status {
		if s.Staging == git.Untracked || s.Worktree == git.Untracked {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			return false, nil
		}
	}
	return true, nil
}
