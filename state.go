package ferry

import "fmt"

// State is a step in a job's lifecycle.
//
// Every job moves Idle → Staging → (Archiving) → ServerSelection →
// Uploading → Reporting → Cleanup and ends in Done or Failed. Archive jobs
// enter Archiving once the first item is staged; later items are fetched
// while in Archiving. A job that fails early skips straight to Reporting;
// Cleanup is never skipped.
type State int

const (
	StateIdle State = iota
	StateStaging
	StateArchiving
	StateServerSelection
	StateUploading
	StateReporting
	StateCleanup
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateStaging:         "staging",
	StateArchiving:       "archiving",
	StateServerSelection: "server_selection",
	StateUploading:       "uploading",
	StateReporting:       "reporting",
	StateCleanup:         "cleanup",
	StateDone:            "done",
	StateFailed:          "failed",
}

// String returns the state name.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StateHook observes state transitions. It is called synchronously from the
// goroutine running the job and must not block.
type StateHook func(jobID string, s State)
