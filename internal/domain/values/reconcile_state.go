package values

import (
	"fmt"
)

// ReconcileState is the state of the reconciliation loop.
type ReconcileState string

const (
	// StateIdle indicates no pass has run yet
	StateIdle ReconcileState = "idle"
	// StateRunning indicates a pass is in progress
	StateRunning ReconcileState = "running"
	// StateConverged indicates the last pass published a snapshot
	StateConverged ReconcileState = "converged"
	// StateExhausted indicates the last pass ran out of attempts while the
	// coordination store was unavailable
	StateExhausted ReconcileState = "exhausted"
	// StateFailed indicates the last pass stopped on a non-retryable error
	StateFailed ReconcileState = "failed"
	// StateCancelled indicates the last pass was abandoned by its caller
	StateCancelled ReconcileState = "cancelled"
)

// IsTerminal returns true if a pass in this state has finished.
func (s ReconcileState) IsTerminal() bool {
	switch s {
	case StateConverged, StateExhausted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the pass published a snapshot
func (s ReconcileState) IsSuccess() bool {
	return s == StateConverged
}

// Validate returns an error if the state value is invalid
func (s ReconcileState) Validate() error {
	switch s {
	case StateIdle, StateRunning, StateConverged, StateExhausted, StateFailed, StateCancelled:
		return nil
	default:
		return fmt.Errorf("invalid reconcile state: %s", s)
	}
}
