package wavekit

import (
	"log/slog"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/wavekit-ai/wavekit/backends"
)

// Version is the library version recorded in checkpoint descriptors
// written by this library.
const Version = "0.4.0"

func canonical(version string) string {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}

// checkVersion compares the version recorded in a checkpoint descriptor
// against the running library. A major version mismatch fails: the
// descriptor format is not compatible across majors. Any other mismatch
// is reported as a warning and loading continues.
func checkVersion(what string, theirs string, mine string, logger *slog.Logger) error {
	theirsCanonical := canonical(theirs)
	mineCanonical := canonical(mine)
	if !semver.IsValid(theirsCanonical) {
		return backends.InvalidConfigurationf("%s was trained with an unparseable version %q", what, theirs)
	}
	if semver.Major(theirsCanonical) != semver.Major(mineCanonical) {
		return backends.InvalidConfigurationf(
			"%s was trained with version %s, which is incompatible with the running version %s", what, theirs, mine)
	}
	if semver.Compare(theirsCanonical, mineCanonical) != 0 {
		logger.Warn("checkpoint was trained with a different library version",
			"component", what, "trained_with", theirs, "running", mine)
	}
	return nil
}
