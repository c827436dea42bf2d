// Command git-submerge rewrites a parent repository's history so that a
// submodule's own history is absorbed into it, as if the two had always
// been a single project.
package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pborman/getopt"
	"github.com/sirupsen/logrus"

	"github.com/Minoru/git-submerge/internal/submerge"
)

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "git-submerge: "+format+"\n", args...)
	os.Exit(1)
}

var usageStr = `
Absorbs a submodule's history into its parent repository.

Arguments:
    SUBMODULE_DIR   path to the submodule, as it appears in .gitmodules
`

func usage() {
	fmt.Fprintf(os.Stderr, "\n")
	getopt.PrintUsage(os.Stderr)
	fmt.Fprintf(os.Stderr, usageStr)
}

func usagef(format string, args ...interface{}) {
	usage()
	fmt.Fprintf(os.Stderr, "\nfatal: "+format+"\n", args...)
	os.Exit(99)
}

// invalidOIDf reports a malformed commit id given on the command line.
// spec.md §6 and §4.7 step 1 call this out as its own exit code
// (submerge.ExitInvalidCommitID), distinct from generic usage errors, so it
// doesn't go through usagef.
func invalidOIDf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "git-submerge: "+format+"\n", args...)
	os.Exit(submerge.ExitInvalidCommitID)
}

var hexOID = regexp.MustCompile(`^[0-9a-f]{40}$`)

func parseOID(s string) (plumbing.Hash, error) {
	if !hexOID.MatchString(s) {
		return plumbing.ZeroHash, fmt.Errorf("%q isn't a 40-character lowercase hex commit id", s)
	}
	return plumbing.NewHash(s), nil
}

// parseMapping splits one --mapping argument of the form OLD=NEW.
//
// spec.md phrases -m as taking two separate values, <from_oid> <to_oid>.
// getopt.ListLong only ever hands us one token per occurrence of the flag,
// with no pborman/getopt option to make a long flag consume two positional
// arguments at once, so OLD=NEW is collapsed into that single token instead.
// See SPEC_FULL.md's CLI section for the full rationale.
func parseMapping(s string) (old, neu plumbing.Hash, err error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return plumbing.ZeroHash, plumbing.ZeroHash, fmt.Errorf("%q isn't of the form OLD=NEW", s)
	}
	old, err = parseOID(parts[0])
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}
	neu, err = parseOID(parts[1])
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}
	return old, neu, nil
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	getopt.SetUsage(usage)
	repoDir := getopt.StringLong("git-dir", 0, ".", "path to the parent repo's worktree", "DIR")
	mappingArgs := getopt.ListLong("mapping", 'm', "OLD=NEW: replace gitlinks to OLD with NEW", "OLD=NEW")
	defaultMappingArg := getopt.StringLong("default-mapping", 'd', "", "fallback commit id for otherwise-dangling gitlinks", "COMMIT")
	verbose := getopt.BoolLong("verbose", 'v', "verbose logging")
	getopt.Parse()

	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	args := getopt.Args()
	if len(args) != 1 {
		usagef("expected exactly one argument, SUBMODULE_DIR")
	}
	submoduleDir := args[0]

	explicit := make(map[plumbing.Hash]plumbing.Hash, len(*mappingArgs))
	for _, raw := range *mappingArgs {
		old, neu, err := parseMapping(raw)
		if err != nil {
			invalidOIDf("invalid --mapping: %v", err)
		}
		explicit[old] = neu
	}

	var defaultMapping *plumbing.Hash
	if *defaultMappingArg != "" {
		h, err := parseOID(*defaultMappingArg)
		if err != nil {
			invalidOIDf("invalid --default-mapping: %v", err)
		}
		defaultMapping = &h
	}

	repo, err := git.PlainOpen(*repoDir)
	if err != nil {
		fatalf("opening repository at %q: %v", *repoDir, err)
	}

	opts := submerge.Options{
		SubmoduleDir:   submoduleDir,
		Explicit:       explicit,
		DefaultMapping: defaultMapping,
	}

	err = submerge.Run(repo, opts, log)
	if err == nil {
		os.Exit(submerge.ExitSuccess)
	}

	if exitErr, ok := err.(*submerge.ExitError); ok {
		fmt.Fprintln(os.Stderr, exitErr.Message)
		os.Exit(exitErr.Code)
	}

	// Anything else reaching main is a bug in git-submerge itself, not a
	// user-actionable condition.
	fatalf("internal error: %v", err)
}
