package submerge

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"gopkg.in/ini.v1"
)

const gitmodulesName = ".gitmodules"

// editGitmodules implements C3's "Edit .gitmodules": given tree and the
// absorbed submodule's basename, it returns a tree identical to tree
// except that the `[submodule "basename"]` section is gone from
// .gitmodules. If tree has no .gitmodules entry, it returns tree.Hash
// unchanged (identity, per spec.md §4.2). If removing the section leaves
// the file empty, the .gitmodules entry is dropped from the tree entirely
// rather than writing an empty blob.
//
// gopkg.in/ini.v1 does the parsing — unlike go-git's own config.Modules
// (gcfg-backed), it keeps section and key order and the keys and values of
// untouched sections. The file is written back through ini.v1's own
// serializer, though, so the original indentation and spacing are not
// kept byte-for-byte.
func editGitmodules(store storage.Storer, tree *object.Tree, basename string) (plumbing.Hash, error) {
	entry, ok := findEntry(tree, gitmodulesName)
	if !ok {
		return tree.Hash, nil
	}

	blob, err := object.GetBlob(store, entry.Hash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading .gitmodules blob: %w", err)
	}
	r, err := blob.Reader()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("opening .gitmodules blob: %w", err)
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading .gitmodules content: %w", err)
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     false,
		AllowNonUniqueSections:  true,
		PreserveSurroundedQuote: true,
	}, content)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("parsing .gitmodules: %w", err)
	}

	sectionName := fmt.Sprintf("submodule %q", basename)
	cfg.DeleteSection(sectionName)

	if gitmodulesIsEmpty(cfg) {
		entries := removeEntry(tree.Entries, gitmodulesName)
		return writeTree(store, entries)
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("serializing .gitmodules: %w", err)
	}

	newBlobHash, err := writeBlob(store, buf.Bytes())
	if err != nil {
		return plumbing.ZeroHash, err
	}

	entries := replaceEntry(tree.Entries, object.TreeEntry{
		Name: gitmodulesName,
		Mode: entry.Mode,
		Hash: newBlobHash,
	})
	return writeTree(store, entries)
}

// gitmodulesIsEmpty reports whether cfg has no submodule sections left.
// ini.v1 always keeps an implicit DEFAULT section, even when the file is
// otherwise empty, so that alone doesn't count.
func gitmodulesIsEmpty(cfg *ini.File) bool {
	for _, s := range cfg.Sections() {
		if s.Name() == ini.DefaultSection {
			if len(s.Keys()) > 0 {
				return false
			}
			continue
		}
		return false
	}
	return true
}

func removeEntry(entries []object.TreeEntry, name string) []object.TreeEntry {
	out := make([]object.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == name {
			continue
		}
		out = append(out, e)
	}
	return out
}

func replaceEntry(entries []object.TreeEntry, replacement object.TreeEntry) []object.TreeEntry {
	out := make([]object.TreeEntry, len(entries))
	copy(out, entries)
	for i := range out {
		if out[i].Name == replacement.Name {
			out[i] = replacement
			return out
		}
	}
	return append(out, replacement)
}
