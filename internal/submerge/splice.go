package submerge

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
)

// spliceSubtreeAtPath implements C3's "Splice subtree at path": it returns
// a tree identical to tree except that, at the given slash-separated path,
// the terminal entry becomes (lastSegment, Dir, replacement). Every
// intermediate segment s1..sn-1 must already exist as a subtree; each
// intermediate tree is rebuilt bottom-up with its own filemode preserved.
// Only the terminal entry's mode changes (spec.md §4.2) — from Submodule
// to Dir, since this is always called to replace a gitlink.
func spliceSubtreeAtPath(store storage.Storer, tree *object.Tree, path string, replacement plumbing.Hash) (plumbing.Hash, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return plumbing.ZeroHash, fmt.Errorf("splice-subtree-at-path: empty path")
	}
	return spliceRecurse(store, tree, segments, replacement)
}

func spliceRecurse(store storage.Storer, tree *object.Tree, segments []string, replacement plumbing.Hash) (plumbing.Hash, error) {
	head := segments[0]
	rest := segments[1:]

	entries := make([]object.TreeEntry, 0, len(tree.Entries)+1)
	replaced := false

	for _, e := range tree.Entries {
		if e.Name != head {
			entries = append(entries, e)
			continue
		}
		replaced = true

		if len(rest) == 0 {
			entries = append(entries, object.TreeEntry{Name: head, Mode: filemode.Dir, Hash: replacement})
			continue
		}

		if e.Mode != filemode.Dir {
			return plumbing.ZeroHash, fmt.Errorf("splice-subtree-at-path: %q is not a directory, can't descend into it", head)
		}
		sub, err := object.GetTree(store, e.Hash)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("reading subtree %q: %w", head, err)
		}
		newSubHash, err := spliceRecurse(store, sub, rest, replacement)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		// Preserve the intermediate entry's own filemode (spec.md §4.2).
		entries = append(entries, object.TreeEntry{Name: head, Mode: e.Mode, Hash: newSubHash})
	}

	if !replaced {
		// spec.md §4.2: intermediate segments "must exist as subtrees".
		// Reaching here means a caller spliced at a path it never
		// verified with lookupPath first — a tier-3 bug, not a
		// recoverable condition.
		return plumbing.ZeroHash, fmt.Errorf("%w: %q has no entry %q", ErrPathNotFound, tree.Hash, head)
	}

	sortTreeEntries(entries)
	return writeTree(store, entries)
}
