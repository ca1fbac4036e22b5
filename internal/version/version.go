// Package version reports build identity for the running binary, following
// the same debug.ReadBuildInfo approach as the teacher's version.go.
package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
)

// SAMOYED_SNAPCLIENT_VERSION is set at build time via
// `-ldflags "-X 'github.com/doismellburning/samoyed/internal/version.SAMOYED_SNAPCLIENT_VERSION=X'"`.
var SAMOYED_SNAPCLIENT_VERSION string

func getBuildSettingOrDefault(bi *debug.BuildInfo, key string, defaultValue string) string {
	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

// String renders a one-line version string: "samoyed-snapclient - Version
// X (revision Y, built at Z)".
func String() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		buildInfo = &debug.BuildInfo{} //nolint:exhaustruct
	}

	buildTimeStr := getBuildSettingOrDefault(buildInfo, "vcs.time", "UNKNOWN")

	buildCommit := getBuildSettingOrDefault(buildInfo, "vcs.revision", "UNKNOWN")
	buildDirtyStr := getBuildSettingOrDefault(buildInfo, "vcs.modified", "INVALID")

	buildDirty, buildDirtyErr := strconv.ParseBool(buildDirtyStr)
	if buildDirty {
		buildCommit += "-DIRTY"
	} else if buildDirtyErr != nil {
		buildCommit += "-UNKNOWNDIRTY"
	}

	ver := SAMOYED_SNAPCLIENT_VERSION
	if ver == "" {
		ver = "!UNKNOWN!"
	}

	return fmt.Sprintf("samoyed-snapclient - Version %s (revision %s, built at %s)", ver, buildCommit, buildTimeStr)
}
