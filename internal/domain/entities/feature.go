package entities

import (
	"slices"

	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// FeatureKey is the identity of a feature.
type FeatureKey struct {
	Name    string
	Version string
}

// String returns "name/version".
func (k FeatureKey) String() string {
	return k.Name + "/" + k.Version
}

// Feature is a named, versioned installable unit declared by a repository.
// Features are value objects; two features with the same key are the same
// feature regardless of which repository declared them.
type Feature struct {
	Name         string
	Version      string
	Description  string
	Dependencies []values.FeatureReference
	Bundles      []string
}

// Key returns the feature identity.
func (f Feature) Key() FeatureKey {
	return FeatureKey{Name: f.Name, Version: f.Version}
}

// Reference returns an exact reference to this feature.
func (f Feature) Reference() values.FeatureReference {
	return values.NewFeatureReference(f.Name, f.Version)
}

// Clone returns a deep copy.
func (f Feature) Clone() Feature {
	f.Dependencies = slices.Clone(f.Dependencies)
	f.Bundles = slices.Clone(f.Bundles)
	return f
}

// String returns "name/version".
func (f Feature) String() string {
	return f.Key().String()
}
