package submerge

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
)

// ErrPathNotFound is returned by lookupPath when a tree lacks the
// requested path. It's the Go analogue of the Rust original's
// `NotFound / Tree` error-class combination (main.rs, find_dangling_
// references_to_submodule / rewrite_repo_history): the tree is well
// formed, it simply has no entry along that path. Any other error
// surfacing from the object store is a tier-3 condition and must not be
// treated as "absent".
var ErrPathNotFound = errors.New("path not found in tree")

// writeTree encodes entries as a git tree object and stores it, returning
// the resulting hash. entries must already be in git's tree sort order;
// use sortTreeEntries to get there. This is the same Storer.NewEncoded
// Object / Encode / SetEncodedObject sequence the teacher uses in
// subtrac.go's newTracCommit for the empty tree, generalized to arbitrary
// entries.
func writeTree(store storage.Storer, entries []object.TreeEntry) (plumbing.Hash, error) {
	tree := object.Tree{Entries: entries}
	obj := store.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding tree: %w", err)
	}
	hash, err := store.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing tree: %w", err)
	}
	return hash, nil
}

// writeBlob stores data as a new blob object and returns its hash.
func writeBlob(store storage.Storer, data []byte) (plumbing.Hash, error) {
	obj := store.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("opening blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("writing blob content: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("closing blob writer: %w", err)
	}
	hash, err := store.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing blob: %w", err)
	}
	return hash, nil
}

// sortTreeEntries orders entries the way git requires on disk: entries are
// compared by name, except a directory's name is compared as though it
// carried a trailing "/". This keeps "foo" sorting after "foo-bar" but
// before "foo/anything", matching git's base_name_compare. go-git's Tree.
// Encode writes entries in whatever order it's given, so any caller that
// builds a tree by hand — exactly what C3 does — owns getting this right.
func sortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entrySortKey(entries[i]) < entrySortKey(entries[j])
	})
}

func entrySortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// lookupPath resolves a '/'-separated path inside tree, descending through
// intermediate subtrees. It returns ErrPathNotFound (wrapped) if any
// segment of the path is missing or if an intermediate segment exists but
// isn't a tree; any other failure (a genuinely corrupt or unreachable
// object) is returned without ErrPathNotFound and should propagate as a
// tier-3 error.
func lookupPath(store storage.Storer, tree *object.Tree, path []string) (*object.TreeEntry, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("lookupPath: empty path")
	}

	current := tree
	for i, segment := range path {
		entry, ok := findEntry(current, segment)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(path))
		}
		if i == len(path)-1 {
			return entry, nil
		}
		if entry.Mode != filemode.Dir {
			return nil, fmt.Errorf("%w: %s (intermediate %q is not a directory)", ErrPathNotFound, joinPath(path), segment)
		}
		next, err := object.GetTree(store, entry.Hash)
		if err != nil {
			return nil, fmt.Errorf("reading subtree %q: %w", segment, err)
		}
		current = next
	}
	panic("unreachable")
}

func findEntry(tree *object.Tree, name string) (*object.TreeEntry, bool) {
	for i := range tree.Entries {
		if tree.Entries[i].Name == name {
			return &tree.Entries[i], true
		}
	}
	return nil, false
}

func joinPath(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		out = append(out, path[start:])
	}
	return out
}
