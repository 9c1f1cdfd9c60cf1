package services

import (
	"context"
	"fmt"

	"github.com/reglet-dev/featurefleet/internal/application/dto"
	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// Status reports the reconciler state and its published snapshot.
func (r *Reconciler) Status() dto.ReconcileStatus {
	snap := r.Snapshot()
	status := dto.ReconcileStatus{
		State:        string(r.State()),
		GeneratedAt:  snap.GeneratedAt(),
		Repositories: len(snap.Repositories()),
		Features:     len(snap.Features()),
	}
	if id := snap.RunID(); !id.IsZero() {
		status.SnapshotID = id.String()
	}
	if run := r.LastRun(); run != nil {
		summary := RunSummaryOf(run)
		status.LastRun = &summary
	}
	return status
}

// RunSummaryOf maps a run record to its listing view.
func RunSummaryOf(run *entities.ReconcileRun) dto.RunSummary {
	return dto.RunSummary{
		ID:        run.ID.String(),
		Reason:    run.Reason,
		State:     string(run.State),
		Finished:  run.State.IsTerminal(),
		Attempts:  run.Attempts,
		Backoffs:  run.Backoffs,
		StartedAt: run.StartedAt,
		Duration:  run.Duration(),
		Error:     run.Error,
	}
}

// History returns the newest recorded passes first. limit <= 0 returns the
// whole retained history; without a run repository only the last pass is
// known.
func (r *Reconciler) History(ctx context.Context, limit int) ([]dto.RunSummary, error) {
	if r.runs == nil {
		if run := r.LastRun(); run != nil {
			return []dto.RunSummary{RunSummaryOf(run)}, nil
		}
		return []dto.RunSummary{}, nil
	}

	runs, err := r.runs.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	out := make([]dto.RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunSummaryOf(run))
	}
	return out, nil
}

// FindRun returns the recorded pass with the given ID. Unknown IDs return
// apperrors.ErrRunNotFound.
func (r *Reconciler) FindRun(ctx context.Context, id string) (dto.RunSummary, error) {
	runID, err := values.ParseRunID(id)
	if err != nil {
		return dto.RunSummary{}, err
	}

	if r.runs == nil {
		if run := r.LastRun(); run != nil && run.ID.Equals(runID) {
			return RunSummaryOf(run), nil
		}
		return dto.RunSummary{}, fmt.Errorf("%w: %s", apperrors.ErrRunNotFound, id)
	}

	run, err := r.runs.FindByID(ctx, runID)
	if err != nil {
		return dto.RunSummary{}, err
	}
	return RunSummaryOf(run), nil
}
