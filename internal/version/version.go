// Package version holds the module's build version, set via -ldflags at
// build time the way the teacher's cmd/root.go expects it to be.
package version

// Version is overridden at link time: -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"
