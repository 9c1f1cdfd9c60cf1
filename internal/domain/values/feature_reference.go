package values

import (
	"fmt"
	"strings"
)

// DefaultVersion is the placeholder version feature descriptors use for
// "any version". It is treated the same as an empty version.
const DefaultVersion = "0.0.0"

// FeatureReference names a feature and, optionally, the version or version
// range it must resolve to. Profiles declare references as "name" or
// "name/version".
type FeatureReference struct {
	Name    string
	Version string
}

// NewFeatureReference creates a reference from its parts.
func NewFeatureReference(name, version string) FeatureReference {
	return FeatureReference{
		Name:    strings.TrimSpace(name),
		Version: strings.TrimSpace(version),
	}
}

// ParseFeatureReference parses "name" or "name/version".
func ParseFeatureReference(s string) (FeatureReference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FeatureReference{}, fmt.Errorf("feature reference cannot be empty")
	}

	name, version, _ := strings.Cut(s, "/")
	ref := NewFeatureReference(name, version)
	if ref.Name == "" {
		return FeatureReference{}, fmt.Errorf("feature reference %q has no name", s)
	}
	return ref, nil
}

// MustParseFeatureReference parses a reference or panics (for tests/constants)
func MustParseFeatureReference(s string) FeatureReference {
	ref, err := ParseFeatureReference(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// HasVersion reports whether the reference pins a version or range.
func (r FeatureReference) HasVersion() bool {
	return r.Version != "" && r.Version != DefaultVersion
}

// IsRange reports whether the version is a range rather than an exact version.
func (r FeatureReference) IsRange() bool {
	return r.HasVersion() && IsVersionRange(r.Version)
}

// String returns "name" or "name/version".
func (r FeatureReference) String() string {
	if !r.HasVersion() {
		return r.Name
	}
	return r.Name + "/" + r.Version
}
