package submerge

import (
	"io"

	"github.com/sirupsen/logrus"
)

// discardLogger returns a logger that throws everything away. Several
// helpers (walkReverseTopological, submoduleTips) take a *logrus.Logger so
// they can warn about skippable problems (an unresolvable tag, a dangling
// tip) when called from the CLI; validateMappings reuses the same helpers
// purely for membership testing and has nowhere sensible to send those
// warnings, so it hands them a sink instead of threading its own logger
// parameter through for no caller-visible purpose.
func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
