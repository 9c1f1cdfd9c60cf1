package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	domainservices "github.com/reglet-dev/featurefleet/internal/domain/services"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// SnapshotSource publishes the installed snapshot. Reconciler implements it.
type SnapshotSource interface {
	Snapshot() *entities.InstalledSnapshot
}

// FeaturesService answers queries against the installed snapshot and the
// repositories the stored profiles make available.
//
// The node's features are managed by its profiles, so every mutating
// operation is rejected with an UnsupportedOperationError that names the
// profile edit command to use instead.
type FeaturesService struct {
	snapshots SnapshotSource
	loader    ports.RepositoryLoader
	command   string

	profiles ports.ProfileStore
	cache    *RepositoryCache
	version  string
	logger   *slog.Logger
}

// FeaturesOption configures a FeaturesService.
type FeaturesOption func(*FeaturesService)

// WithProfileCatalog makes the repositories of every profile of version
// available to ListRepositories and the queries built on it. Without a
// catalog only the installed repositories are available.
func WithProfileCatalog(store ports.ProfileStore, cache *RepositoryCache, version string) FeaturesOption {
	return func(s *FeaturesService) {
		s.profiles = store
		s.cache = cache
		s.version = version
	}
}

// WithFeaturesLogger sets the logger.
func WithFeaturesLogger(logger *slog.Logger) FeaturesOption {
	return func(s *FeaturesService) { s.logger = logger }
}

// NewFeaturesService creates the service. command is the CLI name used in
// rejection hints.
func NewFeaturesService(snapshots SnapshotSource, loader ports.RepositoryLoader, command string, opts ...FeaturesOption) *FeaturesService {
	if command == "" {
		command = "featurefleet"
	}
	s := &FeaturesService{
		snapshots: snapshots,
		loader:    loader,
		command:   command,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListInstalledRepositories returns the repositories of the current snapshot.
func (s *FeaturesService) ListInstalledRepositories() []*entities.Repository {
	return s.snapshots.Snapshot().Repositories()
}

// ListInstalledFeatures returns the features of the current snapshot.
func (s *FeaturesService) ListInstalledFeatures() []entities.Feature {
	return s.snapshots.Snapshot().Features()
}

// IsInstalled reports whether the exact feature is in the current snapshot.
func (s *FeaturesService) IsInstalled(name, version string) bool {
	return s.snapshots.Snapshot().Contains(entities.FeatureKey{Name: name, Version: version})
}

// ListRepositories returns every available repository: the installed ones
// followed by the closure of the repositories declared by each profile of the
// catalog version. A profile or repository that cannot be read is logged and
// skipped.
func (s *FeaturesService) ListRepositories(ctx context.Context) ([]*entities.Repository, error) {
	set := entities.NewRepositorySet()
	for _, repo := range s.snapshots.Snapshot().Repositories() {
		set.Add(repo.URI, repo)
	}
	if s.profiles == nil || s.cache == nil {
		return set.Slice(), nil
	}

	ids, err := s.profiles.ProfileIDs(ctx, s.version)
	if err != nil {
		return nil, fmt.Errorf("listing profiles of version %s: %w", s.version, err)
	}
	for _, id := range ids {
		profile, err := s.profiles.Load(ctx, s.version, id)
		if err != nil {
			s.logger.Warn("skipping unreadable profile", "profile", id, "version", s.version, "error", err)
			continue
		}
		for _, uri := range domainservices.Repositories(profile) {
			if err := s.cache.ResolveClosure(ctx, uri, set); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				s.logger.Warn("error while populating repositories from uri",
					"profile", id, "uri", uri, "error", err)
			}
		}
	}
	return set.Slice(), nil
}

// ListFeatures returns every feature declared by an available repository,
// installed or not, sorted by name then version.
func (s *FeaturesService) ListFeatures(ctx context.Context) ([]entities.Feature, error) {
	repos, err := s.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[entities.FeatureKey]struct{})
	var out []entities.Feature
	for _, repo := range repos {
		for _, f := range repo.Features {
			if _, dup := seen[f.Key()]; dup {
				continue
			}
			seen[f.Key()] = struct{}{}
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b entities.Feature) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return domainservices.CompareVersions(a.Version, b.Version)
	})
	return out, nil
}

// Versions returns every available version of name in ascending order.
func (s *FeaturesService) Versions(ctx context.Context, name string) ([]string, error) {
	repos, err := s.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, repo := range repos {
		for _, v := range repo.FeatureVersions(name) {
			if !slices.Contains(versions, v) {
				versions = append(versions, v)
			}
		}
	}
	slices.SortFunc(versions, domainservices.CompareVersions)
	return versions, nil
}

// GetFeature looks a feature up in the available repositories with the
// rules resolution uses: an exact version matches itself, a range selects
// the highest matching version, and an empty or default version selects the
// highest declared version compared as plain strings.
func (s *FeaturesService) GetFeature(ctx context.Context, name, version string) (entities.Feature, error) {
	repos, err := s.ListRepositories(ctx)
	if err != nil {
		return entities.Feature{}, err
	}

	ref := values.NewFeatureReference(name, version)
	f, ok := domainservices.FindFeature(ref, repos)
	if !ok {
		return entities.Feature{}, apperrors.NewFeatureNotFoundError(ref)
	}
	return f.Clone(), nil
}

// ValidateRepository fetches and parses the descriptor at uri without
// installing it.
func (s *FeaturesService) ValidateRepository(ctx context.Context, uri string) (*entities.Repository, error) {
	repo, err := s.loader.Load(ctx, strings.TrimSpace(uri))
	if err != nil {
		if apperrors.IsRepositoryLoad(err) {
			return nil, err
		}
		return nil, apperrors.NewRepositoryLoadError(uri, err)
	}
	return repo, nil
}

// InstallFeature is rejected.
func (s *FeaturesService) InstallFeature(name, version string) error {
	return apperrors.NewUnsupportedOperationError("installing features",
		fmt.Sprintf("%s profile edit --feature %s <profile>", s.command, s.featureArg(name, version)))
}

// UninstallFeature is rejected.
func (s *FeaturesService) UninstallFeature(name, version string) error {
	return apperrors.NewUnsupportedOperationError("uninstalling features",
		fmt.Sprintf("%s profile edit --delete --feature %s <profile>", s.command, s.featureArg(name, version)))
}

// AddRepository is rejected.
func (s *FeaturesService) AddRepository(uri string) error {
	return apperrors.NewUnsupportedOperationError("adding repositories",
		fmt.Sprintf("%s profile edit --repository %s <profile>", s.command, uri))
}

// RemoveRepository is rejected.
func (s *FeaturesService) RemoveRepository(uri string) error {
	return apperrors.NewUnsupportedOperationError("removing repositories",
		fmt.Sprintf("%s profile edit --delete --repository %s <profile>", s.command, uri))
}

func (s *FeaturesService) featureArg(name, version string) string {
	return values.NewFeatureReference(name, version).String()
}
