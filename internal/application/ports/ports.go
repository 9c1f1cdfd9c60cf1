// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture - abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"context"
	"time"

	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// RepositoryLoader fetches and parses a feature repository descriptor.
type RepositoryLoader interface {
	// Load returns the repository at uri. Every call performs a fresh fetch;
	// caching is the caller's concern.
	Load(ctx context.Context, uri string) (*entities.Repository, error)
}

// EffectiveProfileProvider returns the profile in effect for this container,
// already merged with its parents.
type EffectiveProfileProvider interface {
	// EffectiveProfile may fail with a CoordinationUnavailableError when the
	// backing store cannot be read.
	EffectiveProfile(ctx context.Context) (*entities.Profile, error)
}

// ProfileStore reads and writes stored profiles.
type ProfileStore interface {
	Versions(ctx context.Context) ([]string, error)
	ProfileIDs(ctx context.Context, version string) ([]string, error)
	Load(ctx context.Context, version, id string) (*entities.Profile, error)
	Save(ctx context.Context, profile *entities.Profile) error
	Delete(ctx context.Context, version, id string) error
}

// CoordinationPinger checks that the coordination store is reachable.
type CoordinationPinger interface {
	// Ping returns a CoordinationUnavailableError when the store is down.
	Ping(ctx context.Context) error
}

// CoordinationStore is the read side of the coordination store.
type CoordinationStore interface {
	CoordinationPinger

	// Exists reports whether a node exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Get returns the data stored at path. A missing node returns
	// apperrors.ErrNodeNotFound.
	Get(ctx context.Context, path string) ([]byte, error)
}

// ReconcileRunRepository stores the history of reconciliation passes.
type ReconcileRunRepository interface {
	Save(ctx context.Context, run *entities.ReconcileRun) error
	FindByID(ctx context.Context, id values.RunID) (*entities.ReconcileRun, error)
	// Recent returns the newest runs first; limit <= 0 returns all.
	Recent(ctx context.Context, limit int) ([]*entities.ReconcileRun, error)
}

// ReconcileObserver receives reconciliation events, typically for metrics.
type ReconcileObserver interface {
	AttemptStarted()
	BackoffScheduled(wait time.Duration)
	RepositoryFailed(uri string)
	FeaturesMissing(count int)
	PassFinished(run *entities.ReconcileRun)
}
