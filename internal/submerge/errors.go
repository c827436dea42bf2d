package submerge

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// Exit codes, as specified by the CLI contract. main translates these into
// os.Exit calls; nothing in this package calls os.Exit directly.
const (
	ExitSuccess                 = 0
	ExitNoGitRepo               = 1
	ExitFoundDanglingReferences = 2
	ExitInvalidCommitID         = 3
	ExitInvalidMappings         = 4
	ExitDirtyWorkdir            = 5
	ExitSubmoduleFetchFailed    = 6
	ExitSubmoduleNotFound       = 7
)

// ExitError carries one of the Exit* codes above plus a human-readable
// diagnostic. main prints Message to stderr and exits with Code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func exitErrorf(code int, format string, args ...interface{}) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// DanglingReferencesError is the tier-2 structural failure from C5: the
// parent history references submodule commits that rewriting never saw and
// that no mapping resolves.
type DanglingReferencesError struct {
	Commits []plumbing.Hash
}

func (e *DanglingReferencesError) Error() string {
	return fmt.Sprintf("%d dangling reference(s) to submodule commits", len(e.Commits))
}

func (e *DanglingReferencesError) ExitError() *ExitError {
	msg := "The repository references the following submodule commits, but they couldn't " +
		"be found in the submodule's history:\n\n"
	for _, c := range e.Commits {
		msg += c.String() + "\n"
	}
	msg += "\nYou can use --mapping and --default-mapping options to make git-submerge " +
		"replace these commits with some other, still existing, commits."
	return &ExitError{Code: ExitFoundDanglingReferences, Message: msg}
}
