// Package version carries build identification, injected at link time via
// -ldflags by the release build.
package version

var (
	// Version is the release version of this build.
	Version = "dev"
	// GitSHA is the source commit this build was produced from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the build identification for logs and --version output.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
