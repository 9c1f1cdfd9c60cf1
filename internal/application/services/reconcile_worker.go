package services

import (
	"context"
	"log/slog"
)

// Trigger reasons.
const (
	ReasonActivate      = "activate"
	ReasonProfileChange = "profile-change"
	ReasonManual        = "manual"
)

// ReconcileWorker runs reconciliation passes on a single goroutine.
//
// Triggers coalesce: at most one pass is pending while another runs, so a
// burst of profile changes costs one extra pass, not one per change.
type ReconcileWorker struct {
	reconciler *Reconciler
	triggers   chan string
	logger     *slog.Logger
}

// NewReconcileWorker creates a worker for reconciler.
func NewReconcileWorker(reconciler *Reconciler, logger *slog.Logger) *ReconcileWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileWorker{
		reconciler: reconciler,
		triggers:   make(chan string, 1),
		logger:     logger,
	}
}

// Trigger requests a pass. It never blocks; it returns false when a pass is
// already pending and the request was merged into it.
func (w *ReconcileWorker) Trigger(reason string) bool {
	select {
	case w.triggers <- reason:
		return true
	default:
		w.logger.Debug("reconciliation already pending", "reason", reason)
		return false
	}
}

// Run performs an initial pass and then one pass per trigger until ctx is
// done. A pass in progress when ctx is cancelled is abandoned.
func (w *ReconcileWorker) Run(ctx context.Context) error {
	w.Trigger(ReasonActivate)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconcile worker stopped")
			return nil
		case reason := <-w.triggers:
			if _, err := w.reconciler.Run(ctx, reason); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("reconciliation pass failed", "reason", reason, "error", err)
			}
		}
	}
}
