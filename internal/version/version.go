// Package version exposes the build identity reported by `camd version` and
// sent in the generic HTTP webhook transport's User-Agent header. Grounded on the
// teacher's pkg/version: Go 1.18+'s automatic VCS-info embedding via
// runtime/debug.BuildInfo, no -ldflags required.
package version

import "runtime/debug"

// AppName identifies this binary in logs and outbound HTTP requests.
const AppName = "cam"

// GitCommit is the short git commit hash (8 chars) from build info, or
// "dev" when build info is unavailable (go test, a non-VCS build).
var GitCommit = initGitCommit()

func initGitCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}

// Full returns "cam/<commit>" for use in user-agent strings and logging.
func Full() string {
	return AppName + "/" + GitCommit
}
