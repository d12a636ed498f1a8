// Package version holds build metadata, set at build time via -ldflags.
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// FullVersion returns the version with the commit and build time when they
// are known.
func FullVersion() string {
	v := Version
	if GitSHA != "" && GitSHA != "unknown" {
		sha := GitSHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		v += " (commit " + sha + ")"
	}
	if BuildTime != "" && BuildTime != "unknown" {
		v += " built " + BuildTime
	}
	return v
}
