package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	domainservices "github.com/reglet-dev/featurefleet/internal/domain/services"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

const (
	// DefaultMaxAttempts bounds the attempts of one pass while the
	// coordination store is unavailable.
	DefaultMaxAttempts = 10
	// DefaultBackoffInterval is the fixed wait between attempts.
	DefaultBackoffInterval = 5 * time.Second
)

// ReconcilerConfig tunes the retry behaviour of a reconciliation pass.
type ReconcilerConfig struct {
	MaxAttempts     int
	BackoffInterval time.Duration
}

// ApplyDefaults applies defaults for zero values.
func (c *ReconcilerConfig) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffInterval <= 0 {
		c.BackoffInterval = DefaultBackoffInterval
	}
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithPinger checks the coordination store at the start of every attempt.
func WithPinger(pinger ports.CoordinationPinger) ReconcilerOption {
	return func(r *Reconciler) { r.pinger = pinger }
}

// WithRunRepository records every pass.
func WithRunRepository(runs ports.ReconcileRunRepository) ReconcilerOption {
	return func(r *Reconciler) { r.runs = runs }
}

// WithObserver reports reconciliation events.
func WithObserver(observer ports.ReconcileObserver) ReconcilerOption {
	return func(r *Reconciler) { r.observer = observer }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

// WithTimer replaces the timer used for backoff waits.
func WithTimer(timer backoff.Timer) ReconcilerOption {
	return func(r *Reconciler) { r.timer = timer }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// Reconciler rebuilds the installed snapshot from the effective profile.
//
// A pass reads the declared repositories and features, resolves their
// closures against a freshly invalidated repository cache and publishes the
// result as a new snapshot. While the coordination store is unavailable the
// pass is retried with a fixed backoff, up to MaxAttempts times. Passes are
// serialized; Run blocks while another pass is in progress.
//
// The reconciler is the only writer of the snapshot. Readers call Snapshot
// and never observe a partially built one.
type Reconciler struct {
	profiles ports.EffectiveProfileProvider
	cache    *RepositoryCache
	resolver *domainservices.FeatureResolver
	cfg      ReconcilerConfig

	pinger   ports.CoordinationPinger
	runs     ports.ReconcileRunRepository
	observer ports.ReconcileObserver
	timer    backoff.Timer
	now      func() time.Time
	logger   *slog.Logger

	runMu    sync.Mutex
	snapshot atomic.Pointer[entities.InstalledSnapshot]
	state    atomic.Value
	lastRun  atomic.Pointer[entities.ReconcileRun]
}

// NewReconciler creates a reconciler with an empty snapshot.
func NewReconciler(
	profiles ports.EffectiveProfileProvider,
	cache *RepositoryCache,
	resolver *domainservices.FeatureResolver,
	cfg ReconcilerConfig,
	opts ...ReconcilerOption,
) *Reconciler {
	cfg.ApplyDefaults()
	r := &Reconciler{
		profiles: profiles,
		cache:    cache,
		resolver: resolver,
		cfg:      cfg,
		observer: noopObserver{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.snapshot.Store(entities.EmptySnapshot())
	r.state.Store(values.StateIdle)
	return r
}

// Snapshot returns the installed snapshot currently in effect.
func (r *Reconciler) Snapshot() *entities.InstalledSnapshot {
	return r.snapshot.Load()
}

// State returns the state of the most recent pass.
func (r *Reconciler) State() values.ReconcileState {
	return r.state.Load().(values.ReconcileState)
}

// LastRun returns a copy of the most recent finished pass, or nil.
func (r *Reconciler) LastRun() *entities.ReconcileRun {
	run := r.lastRun.Load()
	if run == nil {
		return nil
	}
	cp := *run
	return &cp
}

// Run executes one reconciliation pass.
//
// Exhausting the attempts is not an error: the previous snapshot stays in
// effect and the returned run is in StateExhausted. Cancelling ctx abandons
// the pass and returns the context error. Errors other than coordination
// unavailability stop the pass immediately and are returned.
func (r *Reconciler) Run(ctx context.Context, reason string) (*entities.ReconcileRun, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	run := entities.NewReconcileRun(reason, r.now())
	log := r.logger.With("run_id", run.ID.String(), "reason", reason)
	r.state.Store(values.StateRunning)

	operation := func() error {
		run.Attempts++
		r.observer.AttemptStarted()

		snap, err := r.attempt(ctx, run, log)
		if err != nil {
			if apperrors.IsCoordinationUnavailable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		r.snapshot.Store(snap)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		run.Backoffs++
		r.observer.BackoffScheduled(wait)
		log.Info("coordination store not available, retrying",
			"attempt", run.Attempts, "max_attempts", r.cfg.MaxAttempts, "wait", wait, "error", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(r.cfg.BackoffInterval),
			uint64(r.cfg.MaxAttempts-1),
		),
		ctx,
	)
	err := backoff.RetryNotifyWithTimer(operation, policy, notify, r.timer)

	var (
		state  values.ReconcileState
		result error
	)
	switch {
	case err == nil:
		state = values.StateConverged
		log.Info("features configuration set",
			"attempts", run.Attempts, "repositories", run.Repositories, "features", run.Features)
	case ctx.Err() != nil:
		state = values.StateCancelled
		result = fmt.Errorf("reconciliation abandoned: %w", ctx.Err())
		log.Warn("reconciliation abandoned", "attempts", run.Attempts, "error", ctx.Err())
	case apperrors.IsCoordinationUnavailable(err):
		state = values.StateExhausted
		log.Warn("unable to set features configuration, keeping previous snapshot",
			"attempts", run.Attempts, "error", err)
	default:
		state = values.StateFailed
		result = err
		log.Error("reconciliation failed", "attempts", run.Attempts, "error", err)
	}

	run.Finish(state, r.now(), err)
	r.state.Store(state)
	r.lastRun.Store(run)
	r.observer.PassFinished(run)

	if r.runs != nil {
		// Saved with a fresh context: a cancelled pass is still recorded.
		if saveErr := r.runs.Save(context.WithoutCancel(ctx), run); saveErr != nil {
			log.Warn("failed to record reconciliation run", "error", saveErr)
		}
	}

	return run, result
}

// attempt performs one resolution from the effective profile. It returns a
// CoordinationUnavailableError when the store cannot be read; per-repository
// and per-feature problems are logged and skipped.
func (r *Reconciler) attempt(ctx context.Context, run *entities.ReconcileRun, log *slog.Logger) (*entities.InstalledSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.pinger != nil {
		if err := r.pinger.Ping(ctx); err != nil {
			return nil, err
		}
	}

	profile, err := r.profiles.EffectiveProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading effective profile: %w", err)
	}

	r.cache.InvalidateAll()

	repos := entities.NewRepositorySet()
	for _, uri := range domainservices.Repositories(profile) {
		if err := r.cache.ResolveClosure(ctx, uri, repos); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("error while populating repositories from uri", "uri", uri, "error", err)
			r.observer.RepositoryFailed(uri)
		}
	}

	refs := make([]values.FeatureReference, 0)
	for _, decl := range domainservices.Features(profile) {
		ref, err := values.ParseFeatureReference(decl)
		if err != nil {
			log.Warn("ignoring invalid feature declaration", "feature", decl, "error", err)
			continue
		}
		refs = append(refs, ref)
	}

	resolution := r.resolver.Resolve(refs, repos.Slice())
	if n := len(resolution.Missing); n > 0 {
		r.observer.FeaturesMissing(n)
		missing := make([]error, 0, n)
		for _, m := range resolution.Missing {
			missing = append(missing, apperrors.NewFeatureNotFoundError(m.Reference))
		}
		log.Debug("features skipped", "error", errors.Join(missing...))
	}

	log.Debug("features resolved",
		"features", resolution.Keys(),
		"repositories", repos.Len(),
		"cached_repositories", r.cache.Len())

	run.Repositories = repos.Len()
	run.Features = len(resolution.Features)
	return entities.NewInstalledSnapshot(run.ID, r.now(), repos.Slice(), resolution.Features), nil
}

type noopObserver struct{}

func (noopObserver) AttemptStarted()                     {}
func (noopObserver) BackoffScheduled(time.Duration)      {}
func (noopObserver) RepositoryFailed(string)             {}
func (noopObserver) FeaturesMissing(int)                 {}
func (noopObserver) PassFinished(*entities.ReconcileRun) {}
