package values

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionRange matches feature versions against either an interval
// ("[1.0,2.0)", "(1.0,2.0]") or a semver constraint (">=1.0, <2.0", "~1.2").
type VersionRange struct {
	raw        string
	constraint *semver.Constraints
}

// IsVersionRange reports whether s looks like a range rather than an exact version.
func IsVersionRange(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "(") {
		return true
	}
	return strings.ContainsAny(s, "<>=^~*,| ")
}

// NewVersionRange parses an interval or semver constraint.
func NewVersionRange(s string) (VersionRange, error) {
	s = strings.TrimSpace(s)
	expr := s
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "(") {
		converted, err := intervalToConstraint(s)
		if err != nil {
			return VersionRange{}, err
		}
		expr = converted
	}

	c, err := semver.NewConstraint(expr)
	if err != nil {
		return VersionRange{}, fmt.Errorf("invalid version range %q: %w", s, err)
	}
	return VersionRange{raw: s, constraint: c}, nil
}

// Contains reports whether version satisfies the range. Versions that are not
// valid semver never match.
func (r VersionRange) Contains(version string) bool {
	if r.constraint == nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return r.constraint.Check(v)
}

// String returns the range as written.
func (r VersionRange) String() string {
	return r.raw
}

// intervalToConstraint rewrites "[a,b)" style intervals into semver syntax.
// Bounds are expanded to full versions; a partial version in a semver
// constraint is a wildcard, which would widen both ends of the interval.
func intervalToConstraint(s string) (string, error) {
	if len(s) < 3 {
		return "", fmt.Errorf("invalid version interval %q", s)
	}
	open, closing := s[0], s[len(s)-1]
	if closing != ']' && closing != ')' {
		return "", fmt.Errorf("invalid version interval %q: missing closing bracket", s)
	}

	floor, ceiling, found := strings.Cut(s[1:len(s)-1], ",")
	floor = strings.TrimSpace(floor)
	ceiling = strings.TrimSpace(ceiling)
	if !found || floor == "" {
		return "", fmt.Errorf("invalid version interval %q", s)
	}

	floorVersion, err := semver.NewVersion(floor)
	if err != nil {
		return "", fmt.Errorf("invalid version interval %q: floor: %w", s, err)
	}
	lower := ">= " + floorVersion.String()
	if open == '(' {
		lower = "> " + floorVersion.String()
	}
	if ceiling == "" {
		return lower, nil
	}

	ceilingVersion, err := semver.NewVersion(ceiling)
	if err != nil {
		return "", fmt.Errorf("invalid version interval %q: ceiling: %w", s, err)
	}
	upper := "< " + ceilingVersion.String()
	if closing == ']' {
		upper = "<= " + ceilingVersion.String()
	}
	return lower + ", " + upper, nil
}
