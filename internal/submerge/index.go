package submerge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// refreshIndex implements C8 step 9: once history has been rewritten, the
// index still thinks the submodule path is an opaque gitlink. This
// repopulates the index from HEAD's (rewritten, if it was touched) tree
// by flattening it the same way relocateUnderPrefix does, and writes the
// result straight back with Storer.SetIndex.
//
// This deliberately avoids Worktree.Reset: go-git's Reset also calls
// setHEADCommit, which rewrites the raw HEAD ref whenever HEAD is a
// HashReference (a detached HEAD). spec.md §9 says a detached HEAD is
// left alone, and the original's update_index (main.rs) only ever reads
// a tree into the index — it never touches any ref. Doing our own flatten
// instead of going through Reset keeps index refresh from being a second,
// accidental place where C7's "don't move a detached HEAD" rule could be
// violated.
func refreshIndex(repo *git.Repository, m *OidMap) error {
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("index refresh: resolving HEAD: %w", err)
	}

	target, ok := m.Get(head.Hash())
	if !ok {
		target = head.Hash()
	}
	// This runs after retargetBranches, so a HEAD that is a symbolic ref
	// already resolves to the rewritten commit, which is not a key of m;
	// that hash is used as is. Only a detached HEAD still names a
	// pre-rewrite commit, and that one is translated through m.

	commit, err := repo.CommitObject(target)
	if err != nil {
		return fmt.Errorf("index refresh: loading commit %s: %w", target, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("index refresh: loading tree of %s: %w", target, err)
	}

	var flat []indexEntry
	if err := flattenTree(repo.Storer, tree, "", &flat); err != nil {
		return fmt.Errorf("index refresh: flattening tree %s: %w", tree.Hash, err)
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].path < flat[j].path })

	entries := make([]*index.Entry, 0, len(flat))
	for _, e := range flat {
		entries = append(entries, &index.Entry{Name: e.path, Mode: e.mode, Hash: e.hash})
	}

	return repo.Storer.SetIndex(&index.Index{Version: 2, Entries: entries})
}

// removeSubmoduleDotGit implements C8 step 8: submodules keep a `.git`
// file (not directory) at their root pointing back at the parent's
// .git/modules/<name>. Once the submodule is an ordinary subdirectory,
// that file no longer belongs there.
func removeSubmoduleDotGit(worktreeRoot, submoduleDir string) error {
	path := filepath.Join(worktreeRoot, submoduleDir, ".git")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
