// Package version exposes build metadata for bell-scheduler.
//
// Version, Commit and BuildTime are injected through ldflags. Local builds
// fall back to the VCS stamp the Go toolchain records.
package version
