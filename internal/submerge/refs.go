package submerge

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// retargetBranches implements C7: every local branch is moved to its
// rewritten image under m. Tags, remotes and notes are deliberately left
// alone (spec.md §1 non-goals, §4.6). HEAD, if symbolic, follows its
// branch automatically since we only ever move the branch ref itself; a
// detached HEAD is left untouched, matching the open question in §9.
//
// spec.md §4.6 asks for a reflog message identifying this tool on each
// moved ref. go-git's storer.ReferenceStorer — the interface behind
// repo.Storer here — has no SetReference overload or sibling method that
// takes a message; reflog entries, where the concrete storage backend
// writes them at all, carry a message it chooses internally. There's no
// go-git-native way to stamp our own text onto them without reaching past
// the storer interface into a specific backend's internals, which would
// break for the in-memory storage this package's own tests run against.
// See DESIGN.md for the fuller note.
func retargetBranches(repo *git.Repository, m *OidMap) error {
	branchIter, err := repo.Branches()
	if err != nil {
		return fmt.Errorf("reference retarget: listing branches: %w", err)
	}

	var refs []*plumbing.Reference
	if err := branchIter.ForEach(func(ref *plumbing.Reference) error {
		refs = append(refs, ref)
		return nil
	}); err != nil {
		return fmt.Errorf("reference retarget: %w", err)
	}

	for _, ref := range refs {
		oldHash := ref.Hash()
		newHash, ok := m.Get(oldHash)
		if !ok {
			return fmt.Errorf("reference retarget: branch %s points at %s, which was never rewritten (I4 violated)",
				ref.Name(), oldHash)
		}
		newRef := plumbing.NewHashReference(ref.Name(), newHash)
		if err := repo.Storer.SetReference(newRef); err != nil {
			return fmt.Errorf("reference retarget: moving %s to %s: %w", ref.Name(), newHash, err)
		}
	}

	return nil
}
