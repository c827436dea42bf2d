package submerge

import "github.com/go-git/go-git/v5/plumbing"

// OidMap is the rewrite map M from spec.md §3: a bidirectional-in-spirit
// (but only forward-populated) translation table from pre-rewrite object
// IDs to their post-rewrite images. It holds both tree IDs (written once,
// during C4's relocate-under-prefix) and commit IDs (written during C4 and
// C6). The two namespaces never collide in practice because a commit hash
// and the hash of some unrelated tree are independent content addresses,
// but callers should not rely on that — look things up by the kind of ID
// they have in hand.
//
// OidMap is owned by the orchestrator and passed by reference into C4, C5,
// C6 and C7, per the design note in spec.md §9 ("pass M explicitly into
// each as an in/out parameter").
type OidMap struct {
	m map[plumbing.Hash]plumbing.Hash
}

// NewOidMap returns an empty map, ready for C4 to start populating.
func NewOidMap() *OidMap {
	return &OidMap{m: make(map[plumbing.Hash]plumbing.Hash)}
}

// Get returns the image of old under M, and whether it was present.
func (o *OidMap) Get(old plumbing.Hash) (plumbing.Hash, bool) {
	neu, ok := o.m[old]
	return neu, ok
}

// MustGet returns the image of old, panicking if it is absent. Callers use
// this where invariant I1 (parents-before-children) guarantees presence;
// a miss here means the invariant was violated, which is a tier-3 bug per
// spec.md §7, not a condition any caller should recover from.
func (o *OidMap) MustGet(old plumbing.Hash) plumbing.Hash {
	neu, ok := o.m[old]
	if !ok {
		panic("submerge: oid " + old.String() + " has no entry in the rewrite map; I1 violated")
	}
	return neu
}

// Has reports whether old has an entry, without forcing a lookup of the
// value (used by C5 to test "s ∈ dom(M)").
func (o *OidMap) Has(old plumbing.Hash) bool {
	_, ok := o.m[old]
	return ok
}

// Set records old → new. It never overwrites an existing entry with a
// different value — the map grows monotonically per spec.md §3's
// lifecycle description — except for the special case of re-recording the
// exact same mapping, which is harmless and happens when two submodule
// commits share the same tree. A conflicting value panics.
func (o *OidMap) Set(old, neu plumbing.Hash) {
	if existing, ok := o.m[old]; ok && existing != neu {
		panic("submerge: conflicting rewrite for oid " + old.String())
	}
	o.m[old] = neu
}

// SetIdentity records old → old, used for parent-repo commits that don't
// contain the gitlink at all (spec.md §3, rewrite map item 3).
func (o *OidMap) SetIdentity(old plumbing.Hash) {
	o.Set(old, old)
}

// Len reports the number of entries, exposed mainly for tests.
func (o *OidMap) Len() int {
	return len(o.m)
}
