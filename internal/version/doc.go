// Package version exposes build metadata of the publisher binary.
//
// Version, Commit and BuildTime are injected via Go ldflags. This is the
// version of the tool itself; versions of published packages live in
// internal/domain/release.
package version
