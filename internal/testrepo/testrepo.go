// Package testrepo builds small in-memory git repositories for the
// submerge package's tests, the way gittuf's internal/gitinterface tests
// build theirs: github.com/go-git/go-git/v5/storage/memory paired with
// go-billy's memfs, so every test gets a fresh, disposable object
// database with no filesystem cleanup to worry about.
package testrepo

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// New returns a freshly initialized, empty repository backed by in-memory
// storage and an in-memory worktree filesystem.
func New() (*git.Repository, error) {
	return git.Init(memory.NewStorage(), memfs.New())
}

// Bare returns a freshly initialized repository with no worktree, for
// cases (like a submodule's "own" repository in tests) that never need
// one.
func Bare() (*git.Repository, error) {
	return git.Init(memory.NewStorage(), nil)
}

var testSignature = object.Signature{
	Name:  "Test Author",
	Email: "test@example.com",
	When:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
}

// WriteBlob stores data as a blob and returns its hash.
func WriteBlob(repo *git.Repository, data []byte) (plumbing.Hash, error) {
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

// WriteTree stores a flat list of entries as a single tree object and
// returns its hash. Callers wanting nested trees build the inner trees
// first and reference their hashes in the entries passed to the outer
// call, same as any direct use of object.Tree.Encode.
func WriteTree(repo *git.Repository, entries []object.TreeEntry) (plumbing.Hash, error) {
	tree := &object.Tree{Entries: entries}
	obj := repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

// Commit stores a commit with a fixed, deterministic author/committer and
// timestamp (so test expectations never depend on wall-clock time) and
// returns its hash.
func Commit(repo *git.Repository, treeHash plumbing.Hash, parents []plumbing.Hash, message string) (plumbing.Hash, error) {
	c := &object.Commit{
		Author:       testSignature,
		Committer:    testSignature,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	obj := repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(obj)
}

// SetBranch points refs/heads/name at hash, creating the ref if it
// doesn't exist yet.
func SetBranch(repo *git.Repository, name string, hash plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	return repo.Storer.SetReference(ref)
}

// SetHEAD makes HEAD a symbolic ref to refs/heads/name.
func SetHEAD(repo *git.Repository, name string) error {
	ref := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(name))
	return repo.Storer.SetReference(ref)
}

// SetTag creates a lightweight tag refs/tags/name pointing directly at
// hash (no tag object).
func SetTag(repo *git.Repository, name string, hash plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), hash)
	return repo.Storer.SetReference(ref)
}

// Blob is a convenience entry constructor for building []object.TreeEntry
// literals in tests without repeating filemode imports everywhere.
func Blob(name string, hash plumbing.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: 0o100644, Hash: hash}
}

// Gitlink is a convenience entry constructor for a submodule pointer.
func Gitlink(name string, hash plumbing.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: 0o160000, Hash: hash}
}

// Subtree is a convenience entry constructor for a nested tree.
func Subtree(name string, hash plumbing.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: 0o040000, Hash: hash}
}

// MustHash panics if err is non-nil; only meant for test setup chains
// where a failure means the test fixture itself is broken, not the code
// under test.
func MustHash(h plumbing.Hash, err error) plumbing.Hash {
	if err != nil {
		panic(fmt.Sprintf("testrepo: %v", err))
	}
	return h
}
