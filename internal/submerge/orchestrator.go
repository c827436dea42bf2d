package submerge

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"
)

// Options bundles the parsed CLI request. main is responsible for parsing
// flags and positional arguments into one of these; everything past that
// point is Run's problem.
type Options struct {
	// SubmoduleDir is the submodule's path relative to the parent repo's
	// worktree root, exactly as it appears in .gitmodules.
	SubmoduleDir string

	// Explicit maps a specific submodule commit onto another, standing in
	// for the original when a gitlink points at it (spec.md §4.5 step 2).
	Explicit map[plumbing.Hash]plumbing.Hash

	// DefaultMapping, when set, is substituted for any submodule commit
	// that isn't otherwise reachable and has no explicit mapping.
	DefaultMapping *plumbing.Hash
}

// Run is the orchestrator, C8: it drives the whole rewrite end to end
// against repo, which must be the parent repository opened at its
// worktree root. It returns nil on success (history rewritten, working
// copy already caught up), an *ExitError carrying one of the Exit* codes
// for main to report and exit with when a precondition or the dangling-
// reference audit fails, or a plain wrapped error for any other failure
// during the rewrite itself.
//
// The sequence mirrors the Rust original's main(): open repo, probe
// preconditions, fetch, rewrite submodule then parent history, retarget
// branches, then clean up the working copy to match.
func Run(repo *git.Repository, opts Options, log *logrus.Logger) error {
	clean, err := workdirIsClean(repo)
	if err != nil {
		return exitErrorf(ExitNoGitRepo, "checking working directory status: %v", err)
	}
	if !clean {
		return exitErrorf(ExitDirtyWorkdir, "the working directory has uncommitted changes; commit or stash them first")
	}

	sub, err := findSubmodule(repo, opts.SubmoduleDir)
	if err != nil {
		return exitErrorf(ExitNoGitRepo, "looking up submodule %q: %v", opts.SubmoduleDir, err)
	}
	if sub == nil {
		return exitErrorf(ExitSubmoduleNotFound, "no submodule registered at %q", opts.SubmoduleDir)
	}

	log.WithField("path", opts.SubmoduleDir).Info("fetching submodule history into parent object database")
	if err := fetchSubmoduleHistory(repo, opts.SubmoduleDir); err != nil {
		return exitErrorf(ExitSubmoduleFetchFailed, "fetching submodule history: %v", err)
	}

	subrepo, err := sub.Repository()
	if err != nil {
		return exitErrorf(ExitSubmoduleFetchFailed, "opening submodule's own repository: %v", err)
	}

	if err := validateMappings(repo, subrepo, opts.Explicit, opts.DefaultMapping); err != nil {
		return exitErrorf(ExitInvalidMappings, "%v", err)
	}

	m := NewOidMap()

	subTips, err := submoduleTips(subrepo, log)
	if err != nil {
		return exitErrorf(ExitNoGitRepo, "resolving submodule tips: %v", err)
	}
	log.WithField("count", len(subTips)).Info("rewriting submodule history")
	if err := rewriteSubmoduleHistory(repo, m, subTips, opts.SubmoduleDir, log); err != nil {
		return fmt.Errorf("submerge: %w", err)
	}

	if err := findDanglingReferences(repo, m, opts.SubmoduleDir, opts.Explicit, opts.DefaultMapping, log); err != nil {
		if dre, ok := err.(*DanglingReferencesError); ok {
			return dre.ExitError()
		}
		return fmt.Errorf("submerge: %w", err)
	}

	parentTipHashes, err := parentTips(repo, log)
	if err != nil {
		return exitErrorf(ExitNoGitRepo, "resolving parent tips: %v", err)
	}
	log.WithField("count", len(parentTipHashes)).Info("rewriting parent history")
	if err := rewriteParentHistory(repo, m, parentTipHashes, opts.SubmoduleDir, opts.Explicit, opts.DefaultMapping, log); err != nil {
		return fmt.Errorf("submerge: %w", err)
	}

	log.Info("retargeting branches to rewritten history")
	if err := retargetBranches(repo, m); err != nil {
		return fmt.Errorf("submerge: %w", err)
	}

	worktreeRoot, err := worktreeRootPath(repo)
	if err != nil {
		return fmt.Errorf("submerge: locating worktree root: %w", err)
	}
	if err := removeSubmoduleDotGit(worktreeRoot, opts.SubmoduleDir); err != nil {
		log.WithError(err).Warn("couldn't remove the ex-submodule's .git file; remove it by hand")
	}

	if err := refreshIndex(repo, m); err != nil {
		return fmt.Errorf("submerge: %w", err)
	}

	log.Info("submerge complete")
	return nil
}

func worktreeRootPath(repo *git.Repository) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	return wt.Filesystem.Root(), nil
}
