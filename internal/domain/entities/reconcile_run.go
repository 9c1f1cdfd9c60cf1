package entities

import (
	"time"

	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// ReconcileRun records the outcome of one reconciliation pass.
type ReconcileRun struct {
	ID           values.RunID
	Reason       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Attempts     int
	Backoffs     int
	State        values.ReconcileState
	Error        string
	Repositories int
	Features     int
}

// NewReconcileRun starts a run record.
func NewReconcileRun(reason string, startedAt time.Time) *ReconcileRun {
	return &ReconcileRun{
		ID:        values.NewRunID(),
		Reason:    reason,
		StartedAt: startedAt,
		State:     values.StateRunning,
	}
}

// Finish marks the run terminal.
func (r *ReconcileRun) Finish(state values.ReconcileState, finishedAt time.Time, err error) {
	r.State = state
	r.FinishedAt = finishedAt
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the run took; zero while running.
func (r *ReconcileRun) Duration() time.Duration {
	if !r.State.IsTerminal() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
