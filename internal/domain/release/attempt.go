package release

import "time"

// State is a step of the publish state machine.
type State int

// States in the order a successful run visits them.
const (
	StateIdle State = iota
	StateStaging
	StateBuilding
	StatePublishing
	StateAwaitingIndexConvergence
	StateReinstalling
	StateAwaitingInstallConvergence
	StateVerifying
	StateSuccess
	StateFailed
)

//nolint:gochecknoglobals // Lookup table for String.
var stateNames = map[State]string{
	StateIdle:                       "idle",
	StateStaging:                    "staging",
	StateBuilding:                   "building",
	StatePublishing:                 "publishing",
	StateAwaitingIndexConvergence:   "awaiting_index_convergence",
	StateReinstalling:               "reinstalling",
	StateAwaitingInstallConvergence: "awaiting_install_convergence",
	StateVerifying:                  "verifying",
	StateSuccess:                    "success",
	StateFailed:                     "failed",
}

// String returns the snake-case name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// IsTerminal reports whether a run ends in this state.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

// Status is what the operator sees after each transition.
type Status struct {
	State   State
	Message string
}

// Attempt records one publish run. It is never persisted.
type Attempt struct {
	// Package is the normalized package name.
	Package PackageName
	// OldVersion is the newest version on the index before the upload.
	OldVersion Version
	// NextVersion is the version written into the manifest.
	NextVersion Version
	// PublishedVersion is the version the index reported after the upload.
	PublishedVersion Version
	// InstalledVersion is what the install tool reported during verification.
	InstalledVersion string
	// BuildOutput is the captured output of the build tool.
	BuildOutput string
	// UploadOutput is the captured output of the upload tool.
	UploadOutput string
	// InstallOutput is the last captured output of the install tool.
	InstallOutput string
	// State is the last state the run reached.
	State State
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the run verified the new version.
func (a *Attempt) Succeeded() bool {
	return a != nil && a.State == StateSuccess
}

// Duration returns how long the run took, or zero while it is still running.
func (a *Attempt) Duration() time.Duration {
	if a == nil || a.FinishedAt.IsZero() {
		return 0
	}

	return a.FinishedAt.Sub(a.StartedAt)
}
