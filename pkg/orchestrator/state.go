package orchestrator

import "fmt"

// State is a tracking pipeline state.
type State int

const (
	StateInit State = iota
	StateRunning
	// StateEOF: the source ran out of frames.
	StateEOF
	// StateConfidenceLow: the tracker's confidence fell below the threshold.
	StateConfidenceLow
	// StateTrackFailed: the tracker could not produce an observation.
	StateTrackFailed
	// StateAborted: a buffer could not be allocated or the run was cancelled.
	StateAborted
	StateClosed
)

var stateNames = map[State]string{
	StateInit:          "INIT",
	StateRunning:       "RUNNING",
	StateEOF:           "EOF",
	StateConfidenceLow: "CONFIDENCE_LOW",
	StateTrackFailed:   "TRACK_FAILED",
	StateAborted:       "ABORTED",
	StateClosed:        "CLOSED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s ends the frame loop.
func (s State) Terminal() bool {
	switch s {
	case StateEOF, StateConfidenceLow, StateTrackFailed, StateAborted:
		return true
	}
	return false
}
