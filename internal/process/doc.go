// Package process runs the external build, upload and install tools.
//
// Runner is the seam between the publish workflow and the operating system:
// ExecRunner starts real processes, tests substitute a fake that replays
// canned results.
package process
