// Package publisher runs the publish-and-verify workflow for one package:
// stage the packaging files with the next version, build a source
// distribution, upload it, wait for the index to list the new version,
// reinstall it and verify the installed version.
//
// The workflow is synchronous. Progress is reported through a Notifier, so
// any front-end can drive it without the workflow depending on one.
package publisher
