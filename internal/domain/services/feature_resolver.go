package services

import (
	"log/slog"
	"slices"

	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// MissingFeature records a reference that no repository could satisfy.
type MissingFeature struct {
	Reference values.FeatureReference
	// RequiredBy is the feature whose dependency could not be satisfied;
	// empty for requested features.
	RequiredBy string
}

// Resolution is the outcome of a feature closure computation.
type Resolution struct {
	// Features in the order they were first reached (depth first).
	Features []entities.Feature
	Missing  []MissingFeature
}

// Keys returns the identities of the resolved features.
func (r *Resolution) Keys() []entities.FeatureKey {
	keys := make([]entities.FeatureKey, 0, len(r.Features))
	for _, f := range r.Features {
		keys = append(keys, f.Key())
	}
	return keys
}

// FeatureResolver computes the transitive dependency closure of requested
// features over a set of repositories.
//
// Version selection:
//   - exact version: that version only
//   - range: highest matching version by semver order
//   - unspecified: highest version by plain string comparison
type FeatureResolver struct {
	logger *slog.Logger
}

// NewFeatureResolver creates a resolver. A nil logger uses slog.Default().
func NewFeatureResolver(logger *slog.Logger) *FeatureResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureResolver{logger: logger}
}

// featureIndex maps name -> version -> feature.
type featureIndex map[string]map[string]entities.Feature

func buildIndex(repositories []*entities.Repository) featureIndex {
	idx := make(featureIndex)
	for _, repo := range repositories {
		for _, f := range repo.Features {
			versions, ok := idx[f.Name]
			if !ok {
				versions = make(map[string]entities.Feature)
				idx[f.Name] = versions
			}
			// First repository to declare a feature wins.
			if _, dup := versions[f.Version]; !dup {
				versions[f.Version] = f
			}
		}
	}
	return idx
}

// lookup selects the feature a reference resolves to.
func (idx featureIndex) lookup(ref values.FeatureReference) (entities.Feature, bool) {
	versions, ok := idx[ref.Name]
	if !ok || len(versions) == 0 {
		return entities.Feature{}, false
	}

	if !ref.HasVersion() {
		return versions[maxKey(versions, nil)], true
	}

	if f, exact := versions[ref.Version]; exact {
		return f, true
	}

	if !ref.IsRange() {
		return entities.Feature{}, false
	}
	rng, err := values.NewVersionRange(ref.Version)
	if err != nil {
		return entities.Feature{}, false
	}
	best := maxKey(versions, rng.Contains)
	if best == "" {
		return entities.Feature{}, false
	}
	return versions[best], true
}

// FindFeature selects the feature ref resolves to among repositories, using
// the same version rules as Resolve.
func FindFeature(ref values.FeatureReference, repositories []*entities.Repository) (entities.Feature, bool) {
	return buildIndex(repositories).lookup(ref)
}

// maxKey returns the greatest version accepted by keep (all when nil).
// Unranged selection compares plain strings; ranged selection compares
// semver, falling back to strings for equal precedence.
func maxKey(versions map[string]entities.Feature, keep func(string) bool) string {
	var candidates []string
	for v := range versions {
		if keep == nil || keep(v) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	if keep == nil {
		return slices.Max(candidates)
	}
	return slices.MaxFunc(candidates, CompareVersions)
}

// Resolve returns every requested feature together with its dependencies.
// A reference that cannot be satisfied is recorded in Missing and skipped;
// it never stops resolution of the others. Each feature is visited once,
// so dependency cycles terminate.
func (r *FeatureResolver) Resolve(requested []values.FeatureReference, repositories []*entities.Repository) *Resolution {
	idx := buildIndex(repositories)
	res := &Resolution{}
	visited := make(map[entities.FeatureKey]bool)
	onPath := make(map[entities.FeatureKey]bool)

	var visit func(ref values.FeatureReference, requiredBy string)
	visit = func(ref values.FeatureReference, requiredBy string) {
		f, ok := idx.lookup(ref)
		if !ok {
			res.Missing = append(res.Missing, MissingFeature{Reference: ref, RequiredBy: requiredBy})
			r.logger.Warn("feature not found in installed repositories",
				"feature", ref.String(), "required_by", requiredBy)
			return
		}

		key := f.Key()
		if visited[key] {
			if onPath[key] {
				r.logger.Debug("feature dependency cycle", "feature", key.String(), "via", requiredBy)
			}
			return
		}
		visited[key] = true
		onPath[key] = true
		res.Features = append(res.Features, f)

		for _, dep := range f.Dependencies {
			visit(dep, key.String())
		}
		onPath[key] = false
	}

	for _, ref := range requested {
		visit(ref, "")
	}
	return res
}
