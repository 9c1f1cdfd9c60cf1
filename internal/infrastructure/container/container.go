// Package container provides dependency injection for the application.
package container

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/application/services"
	domainservices "github.com/reglet-dev/featurefleet/internal/domain/services"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/config"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/coordination"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/metrics"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/persistence/memory"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/profilestore"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/repository"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/watch"
)

// ErrNoCoordinationStore is returned by operations that need a configured
// coordination store.
var ErrNoCoordinationStore = errors.New("no coordination store configured (set " + config.KeyCoordinationURL + ")")

// Container holds all application dependencies.
type Container struct {
	cfg        config.RuntimeConfig
	store      *profilestore.Store
	loader     *repository.Loader
	coord      ports.CoordinationStore
	registry   *prometheus.Registry
	reconciler *services.Reconciler
	worker     *services.ReconcileWorker
	features   *services.FeaturesService
	profiles   *services.ProfileService
	logger     *slog.Logger
}

// Options configure the container.
type Options struct {
	Config config.RuntimeConfig
	Logger *slog.Logger

	// Command is the CLI name used in rejection hints.
	Command string
}

// New creates a new dependency injection container.
func New(opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := opts.Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := cfg.ProfilesDir()
	if err != nil {
		return nil, fmt.Errorf("resolving profile root: %w", err)
	}
	store := profilestore.NewStore(root, opts.Logger)

	loader := repository.NewLoader(
		repository.WithMavenRepository(cfg.MavenRepository),
		repository.WithPlainHTTP(cfg.RegistryPlainHTTP),
		repository.WithRetries(cfg.RepositoryRetries, 200*time.Millisecond, 2*time.Second),
		repository.WithLogger(opts.Logger),
	)

	// Without a coordination store the node runs standalone and every
	// ping succeeds.
	var (
		coord  ports.CoordinationStore
		pinger ports.CoordinationPinger = coordination.StaticPinger{Available: true}
	)
	if cfg.CoordinationURL != "" {
		httpStore, err := coordination.NewHTTPStore(cfg.CoordinationURL, cfg.CoordinationTimeout, opts.Logger)
		if err != nil {
			return nil, err
		}
		coord, pinger = httpStore, httpStore
	}

	registry := prometheus.NewRegistry()
	observer, err := metrics.NewObserver(registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	runs := memory.NewReconcileRunRepository(cfg.RunHistory)
	cache := services.NewRepositoryCache(loader, opts.Logger)
	reconciler := services.NewReconciler(
		profilestore.NewProvider(store, cfg.ProfilesVersion, cfg.ProfileID),
		cache,
		domainservices.NewFeatureResolver(opts.Logger),
		cfg.ReconcilerConfig(),
		services.WithPinger(pinger),
		services.WithRunRepository(runs),
		services.WithObserver(observer),
		services.WithLogger(opts.Logger),
	)

	features := services.NewFeaturesService(reconciler, loader, opts.Command,
		services.WithProfileCatalog(store, cache, cfg.ProfilesVersion),
		services.WithFeaturesLogger(opts.Logger),
	)

	return &Container{
		cfg:        cfg,
		store:      store,
		loader:     loader,
		coord:      coord,
		registry:   registry,
		reconciler: reconciler,
		worker:     services.NewReconcileWorker(reconciler, opts.Logger),
		features:   features,
		profiles:   services.NewProfileService(store, opts.Logger),
		logger:     opts.Logger,
	}, nil
}

// Config returns the effective configuration.
func (c *Container) Config() config.RuntimeConfig {
	return c.cfg
}

// Reconciler returns the reconciliation loop.
func (c *Container) Reconciler() *services.Reconciler {
	return c.reconciler
}

// Worker returns the background reconcile worker.
func (c *Container) Worker() *services.ReconcileWorker {
	return c.worker
}

// FeaturesService returns the features query service.
func (c *Container) FeaturesService() *services.FeaturesService {
	return c.features
}

// ProfileService returns the profile management service.
func (c *Container) ProfileService() *services.ProfileService {
	return c.profiles
}

// HTTPHandler serves metrics and the reconciler status on the metrics
// listener.
func (c *Container) HTTPHandler() http.Handler {
	return metrics.Handler(c.registry, c.reconciler, c.logger)
}

// CoordinationStore returns the configured coordination store.
func (c *Container) CoordinationStore() (ports.CoordinationStore, error) {
	if c.coord == nil {
		return nil, ErrNoCoordinationStore
	}
	return c.coord, nil
}

// ProfileWatcher returns a watcher that triggers a reconciliation pass
// whenever a profile of the configured version changes. The profiles
// directory is created if missing.
func (c *Container) ProfileWatcher() (*watch.Watcher, error) {
	dir := c.store.ProfilesDir(c.cfg.ProfilesVersion)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating profiles directory: %w", err)
	}
	return watch.New(dir, c.cfg.WatchDebounce, func() {
		c.worker.Trigger(services.ReasonProfileChange)
	}, c.logger), nil
}

// Logger returns the configured logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}
