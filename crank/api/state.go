package api

import "fmt"

// State is the state of a scheduling cycle.
type State uint8

const (
	// StateIdle is the initial state of a cycle.
	StateIdle State = iota
	// StateLoaded is the state after the crank buffer has been decoded.
	StateLoaded
	// StateSelected is the state after the ready set has been selected.
	StateSelected
	// StateResolved is the state after auxiliary references have been resolved.
	StateResolved
	// StatePacked is the state after operations have been packed into units.
	StatePacked
	// StateSubmitting is the state while units are being submitted.
	StateSubmitting
	// StateDone is the terminal state when every unit succeeded.
	StateDone
	// StatePartiallyFailed is the terminal state when at least one unit failed.
	StatePartiallyFailed
)

// IsTerminal returns true iff the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StatePartiallyFailed
}

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateSelected:
		return "selected"
	case StateResolved:
		return "resolved"
	case StatePacked:
		return "packed"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	case StatePartiallyFailed:
		return "partially_failed"
	default:
		return fmt.Sprintf("[unknown state: %d]", uint8(s))
	}
}
