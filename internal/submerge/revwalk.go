package submerge

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"
)

// walkReverseTopological enumerates every commit reachable from tips, in
// reverse topological order: every parent is yielded before any of its
// children (spec.md §4.1, invariant I1 in §3). It never crosses repository
// boundaries — repo is whichever object database the caller means by "the
// submodule's" or "the parent's"; after C8 step 5 fetches the submodule's
// objects into the parent's odb, both the submodule walk and the parent
// walk are invoked against the same *git.Repository with different tip
// sets, which is the practical realization of spec.md §4.1's "once against
// the submodule's object database and once against the parent's".
//
// Failures resolving a single tip are logged and skipped, matching the
// teacher's (and the Rust original's) "report and continue" behavior for
// individual revwalk errors. A parent that can't be loaded is likewise
// logged and left out of the order. A commit that was loadable when it was
// pushed but disappears before it is expanded is a tier-3 bug and
// propagates as an error.
func walkReverseTopological(repo *git.Repository, tips []plumbing.Hash, log *logrus.Logger) ([]plumbing.Hash, error) {
	tips = dedupHashes(tips)
	sort.Slice(tips, func(i, j int) bool { return lessTip(repo, tips[i], tips[j]) })

	var order []plumbing.Hash
	state := make(map[plumbing.Hash]int) // 0=unseen, 1=on stack (entered), 2=emitted

	type frame struct {
		hash        plumbing.Hash
		parents     []plumbing.Hash
		parentIndex int
	}

	for _, tip := range tips {
		if state[tip] == 2 {
			continue
		}
		if _, err := repo.CommitObject(tip); err != nil {
			log.WithError(err).WithField("commit", tip.String()).Warn("skipping unreachable tip")
			continue
		}

		var stack []*frame
		stack = append(stack, &frame{hash: tip})
		state[tip] = 1

		for len(stack) > 0 {
			top := stack[len(stack)-1]

			if top.parents == nil {
				commit, err := repo.CommitObject(top.hash)
				if err != nil {
					return nil, fmt.Errorf("walking history: commit %s vanished mid-walk: %w", top.hash, err)
				}
				top.parents = append([]plumbing.Hash{}, commit.ParentHashes...)
				top.parentIndex = 0
			}

			advanced := false
			for top.parentIndex < len(top.parents) {
				p := top.parents[top.parentIndex]
				top.parentIndex++
				if state[p] == 2 {
					continue
				}
				if state[p] == 1 {
					// Should be impossible: content-addressed commit DAGs
					// are acyclic. Surface it loudly rather than looping
					// forever.
					return nil, fmt.Errorf("walking history: cycle detected at commit %s", p)
				}
				if _, err := repo.CommitObject(p); err != nil {
					log.WithError(err).WithField("commit", p.String()).Warn("skipping missing parent")
					continue
				}
				state[p] = 1
				stack = append(stack, &frame{hash: p})
				advanced = true
				break
			}
			if advanced {
				continue
			}

			order = append(order, top.hash)
			state[top.hash] = 2
			stack = stack[:len(stack)-1]
		}
	}

	return order, nil
}

func dedupHashes(in []plumbing.Hash) []plumbing.Hash {
	seen := make(map[plumbing.Hash]bool, len(in))
	out := make([]plumbing.Hash, 0, len(in))
	for _, h := range in {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// lessTip orders tips deterministically before seeding the walk: by commit
// timestamp, then by hash, matching the tie-break described in spec.md §5.
// Tips that fail to resolve sort last; the walk logs and skips them anyway.
func lessTip(repo *git.Repository, a, b plumbing.Hash) bool {
	ca, errA := repo.CommitObject(a)
	cb, errB := repo.CommitObject(b)
	if errA != nil || errB != nil {
		return errA == nil
	}
	return lessCommitter(ca, cb)
}

func lessCommitter(a, b *object.Commit) bool {
	ta, tb := a.Committer.When, b.Committer.When
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	return a.Hash.String() < b.Hash.String()
}
