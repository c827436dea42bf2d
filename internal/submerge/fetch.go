package submerge

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// findSubmodule locates the registered submodule whose worktree path
// equals submoduleDir. It mirrors does_submodule_exist/find_submodule in
// the original Rust implementation and allSubrepos in the teacher's
// subtrac.go, adapted to look up exactly one named submodule instead of
// recursing through all of them (spec.md §1 non-goals: "one submodule per
// invocation").
func findSubmodule(repo *git.Repository, submoduleDir string) (*git.Submodule, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	subs, err := wt.Submodules()
	if err != nil {
		return nil, fmt.Errorf("listing submodules: %w", err)
	}
	for _, s := range subs {
		if s.Config().Path == submoduleDir {
			return s, nil
		}
	}
	return nil, nil
}

// fetchSubmoduleHistory implements C8 step 5: it fetches every ref from
// the submodule's on-disk repository into repo's object database, via an
// anonymous remote, exactly the way the teacher's tryFetchFromSubmodules
// and the Rust original's fetch_submodule_history do it. Once this
// succeeds, the submodule's commits, trees and blobs are all locally
// available and C2/C4 can resolve them through repo.CommitObject/
// TreeObject like any native object.
func fetchSubmoduleHistory(repo *git.Repository, submoduleDir string) error {
	remote, err := repo.CreateRemoteAnonymous(&config.RemoteConfig{
		Name: "anonymous",
		URLs: []string{submoduleDir},
	})
	if err != nil {
		return fmt.Errorf("creating anonymous remote for %q: %w", submoduleDir, err)
	}

	err = remote.Fetch(&git.FetchOptions{
		RefSpecs: []config.RefSpec{
			config.RefSpec("+refs/*:refs/git-submerge-fetch/*"),
		},
		Tags: git.AllTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching submodule history from %q: %w", submoduleDir, err)
	}
	return nil
}

// validateMappings implements C8 step 6: every value in explicit and
// defaultMapping must exist in the submodule's reachable history. subrepo
// is the independently-opened submodule repository used only to enumerate
// tips; membership is then checked against repo's object database, which
// by this point has the submodule's objects fetched in.
func validateMappings(
	repo *git.Repository,
	subrepo *git.Repository,
	explicit map[plumbing.Hash]plumbing.Hash,
	defaultMapping *plumbing.Hash,
) error {
	tips, err := submoduleTips(subrepo, discardLogger())
	if err != nil {
		return fmt.Errorf("validating mappings: %w", err)
	}
	order, err := walkReverseTopological(repo, tips, discardLogger())
	if err != nil {
		return fmt.Errorf("validating mappings: %w", err)
	}
	reachable := make(map[plumbing.Hash]bool, len(order))
	for _, h := range order {
		reachable[h] = true
	}

	var missing []plumbing.Hash
	for _, target := range explicit {
		if !reachable[target] {
			missing = append(missing, target)
		}
	}
	if defaultMapping != nil && !reachable[*defaultMapping] {
		missing = append(missing, *defaultMapping)
	}

	if len(missing) == 0 {
		return nil
	}
	msg := "the following commits aren't reachable in the submodule's history:\n"
	for _, h := range missing {
		msg += h.String() + "\n"
	}
	return errors.New(msg)
}
