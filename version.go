// Package powerpay holds build information shared by the node binaries.
package powerpay

var (
	version    = "0.4.0" // semantic version, bumped on release
	commitHash string    // set with -ldflags at build time

	// Version is the semantic version with the commit hash, or a -dev suffix
	// for untagged builds.
	Version = func() string {
		if commitHash != "" {
			return version + "-" + commitHash
		}
		return version + "-dev"
	}()
)
