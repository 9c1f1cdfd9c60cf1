package services

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions orders versions by semver precedence. Versions that do not
// parse, or that have equal precedence, are ordered as plain strings.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}
