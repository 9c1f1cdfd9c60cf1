// Package memory provides in-memory implementations of application repositories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// Ensure interface compliance
var _ ports.ReconcileRunRepository = (*ReconcileRunRepository)(nil)

// DefaultRunHistory is the number of runs kept when no capacity is given.
const DefaultRunHistory = 100

// ReconcileRunRepository is an in-memory, bounded history of reconciliation
// runs. The oldest run is evicted once capacity is reached.
type ReconcileRunRepository struct {
	runs     map[uuid.UUID]*entities.ReconcileRun
	order    []uuid.UUID
	capacity int
	mu       sync.RWMutex
}

// NewReconcileRunRepository creates a repository keeping at most capacity
// runs. capacity <= 0 uses DefaultRunHistory.
func NewReconcileRunRepository(capacity int) *ReconcileRunRepository {
	if capacity <= 0 {
		capacity = DefaultRunHistory
	}
	return &ReconcileRunRepository{
		runs:     make(map[uuid.UUID]*entities.ReconcileRun),
		capacity: capacity,
	}
}

// Save stores a copy of run, replacing an earlier save with the same ID.
func (r *ReconcileRunRepository) Save(_ context.Context, run *entities.ReconcileRun) error {
	if run == nil || run.ID.IsZero() {
		return fmt.Errorf("reconcile run has no ID")
	}
	if err := run.State.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := run.ID.UUID()
	cp := *run
	if _, exists := r.runs[id]; !exists {
		r.order = append(r.order, id)
	}
	r.runs[id] = &cp

	for len(r.order) > r.capacity {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

// FindByID retrieves a run by its unique ID.
func (r *ReconcileRunRepository) FindByID(_ context.Context, id values.RunID) (*entities.ReconcileRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id.UUID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRunNotFound, id)
	}
	cp := *run
	return &cp, nil
}

// Recent returns the newest runs first. limit <= 0 returns all.
func (r *ReconcileRunRepository) Recent(_ context.Context, limit int) ([]*entities.ReconcileRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.newestFirst()
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// newestFirst copies every run sorted by start time descending. Runs that
// started at the same instant keep reverse insertion order.
func (r *ReconcileRunRepository) newestFirst() []*entities.ReconcileRun {
	matches := make([]*entities.ReconcileRun, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		cp := *r.runs[r.order[i]]
		matches = append(matches, &cp)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].StartedAt.After(matches[j].StartedAt)
	})
	return matches
}
