// Package marker guards a package directory against overlapping publish runs.
//
// A FileMarker writes the owner's PID into a lock file inside the package
// directory. A marker left behind by a crashed run is reclaimed when its
// process no longer exists or the marker has outlived its lifetime.
package marker
