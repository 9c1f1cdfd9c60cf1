package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
)

// RepositoryCache memoizes loaded repositories by URI.
//
// Concurrent Get calls for the same URI share one load. Failed loads are
// not cached. A load that was started before InvalidateAll is returned to
// its callers but not stored.
type RepositoryCache struct {
	loader ports.RepositoryLoader
	logger *slog.Logger
	group  singleflight.Group

	mu         sync.RWMutex
	entries    map[string]*entities.Repository
	generation uint64
}

// NewRepositoryCache creates an empty cache in front of loader.
func NewRepositoryCache(loader ports.RepositoryLoader, logger *slog.Logger) *RepositoryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryCache{
		loader:  loader,
		logger:  logger,
		entries: make(map[string]*entities.Repository),
	}
}

// Get returns the cached repository for uri, loading it on first access.
// Failures are returned as *apperrors.RepositoryLoadError.
func (c *RepositoryCache) Get(ctx context.Context, uri string) (*entities.Repository, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, apperrors.NewRepositoryLoadError(uri, errors.New("empty repository URI"))
	}

	c.mu.RLock()
	repo, ok := c.entries[uri]
	gen := c.generation
	c.mu.RUnlock()
	if ok {
		return repo, nil
	}

	// Keyed by generation so a load started before InvalidateAll is never
	// shared with callers that arrive after it.
	key := strconv.FormatUint(gen, 10) + "|" + uri
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.logger.Debug("loading repository", "uri", uri)
		loaded, err := c.loader.Load(ctx, uri)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == gen {
			c.entries[uri] = loaded
		}
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		if apperrors.IsRepositoryLoad(err) {
			return nil, err
		}
		return nil, apperrors.NewRepositoryLoadError(uri, err)
	}
	return v.(*entities.Repository), nil
}

// ResolveClosure adds the repository at uri and every repository it
// references, transitively, to into. URIs already in into are not visited
// again, which also terminates reference cycles. A failing nested reference
// does not stop its siblings; all failures are joined into the result.
func (c *RepositoryCache) ResolveClosure(ctx context.Context, uri string, into *entities.RepositorySet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	uri = strings.TrimSpace(uri)
	if into.Contains(uri) {
		return nil
	}

	repo, err := c.Get(ctx, uri)
	if err != nil {
		return err
	}
	into.Add(uri, repo)

	var errs []error
	for _, nested := range repo.Repositories {
		if err := c.ResolveClosure(ctx, nested, into); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InvalidateAll drops every cached repository.
func (c *RepositoryCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entities.Repository)
	c.generation++
}

// Len returns the number of cached repositories.
func (c *RepositoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
