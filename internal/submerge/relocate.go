package submerge

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
)

// indexEntry mirrors a single row of the in-memory index the Rust original
// builds with git2::Index: a full slash-separated path, its mode, and the
// blob (or gitlink) it names. relocateUnderPrefix flattens a tree down to
// these, rewrites every path, and rebuilds — spec.md §4.2 mandates the
// index-shaped detour specifically so arbitrarily deep trees are handled
// uniformly, without hand-written per-level recursion in the caller.
type indexEntry struct {
	path string
	mode filemode.FileMode
	hash plumbing.Hash
}

// relocateUnderPrefix implements C3's "Relocate-under-prefix": given tree T
// and a single path segment prefix, it returns a tree with exactly one
// entry, prefix → T (same tree ID, unchanged), by flattening T into index
// entries, rewriting each entry's path to "prefix/<original>", and
// rebuilding the tree from that flat list. store is where new tree objects
// get written; T's own blobs are reused unchanged since their content and
// hence their hash never change. An empty T has no entries to relocate and
// yields an empty tree.
func relocateUnderPrefix(store storage.Storer, tree *object.Tree, prefix string) (plumbing.Hash, error) {
	var flat []indexEntry
	if err := flattenTree(store, tree, "", &flat); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("relocate-under-prefix: flattening tree %s: %w", tree.Hash, err)
	}
	for i := range flat {
		flat[i].path = prefix + "/" + flat[i].path
	}
	return buildTreeFromIndex(store, flat)
}

// flattenTree performs the "read T into an in-memory index" half of the
// transform: a full walk of the tree, recording every leaf (blob or
// gitlink) with its path relative to the tree root. Directories themselves
// never appear in the flattened list — they're implied by the paths and
// rebuilt by buildTreeFromIndex.
func flattenTree(store storage.Storer, tree *object.Tree, prefix string, out *[]indexEntry) error {
	for _, e := range tree.Entries {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + e.Name
		}
		if e.Mode == filemode.Dir {
			sub, err := object.GetTree(store, e.Hash)
			if err != nil {
				return fmt.Errorf("reading subtree %q: %w", path, err)
			}
			if err := flattenTree(store, sub, path, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, indexEntry{path: path, mode: e.Mode, hash: e.Hash})
	}
	return nil
}

// buildTreeFromIndex is the "write the index back as a tree" half: it
// groups entries by their top-level path component, recurses to build
// each subtree, and writes the resulting tree bottom-up.
func buildTreeFromIndex(store storage.Storer, flat []indexEntry) (plumbing.Hash, error) {
	var direct []object.TreeEntry
	groups := make(map[string][]indexEntry)
	var groupOrder []string

	for _, e := range flat {
		segs := splitPath(e.path)
		if len(segs) == 0 {
			return plumbing.ZeroHash, fmt.Errorf("buildTreeFromIndex: empty path")
		}
		if len(segs) == 1 {
			direct = append(direct, object.TreeEntry{Name: segs[0], Mode: e.mode, Hash: e.hash})
			continue
		}
		head := segs[0]
		if _, ok := groups[head]; !ok {
			groupOrder = append(groupOrder, head)
		}
		groups[head] = append(groups[head], indexEntry{path: joinPath(segs[1:]), mode: e.mode, hash: e.hash})
	}

	entries := append([]object.TreeEntry{}, direct...)
	for _, name := range groupOrder {
		subHash, err := buildTreeFromIndex(store, groups[name])
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: subHash})
	}

	sortTreeEntries(entries)
	return writeTree(store, entries)
}
