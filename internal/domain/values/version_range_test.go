package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewVersionRange_Interval(t *testing.T) {
	tests := []struct {
		name  string
		rng   string
		match map[string]bool
	}{
		{
			name:  "closed floor, open ceiling",
			rng:   "[1.0,2.0)",
			match: map[string]bool{"0.9": false, "1.0": true, "1.5.3": true, "2.0": false},
		},
		{
			name:  "open floor, closed ceiling",
			rng:   "(1.0,2.0]",
			match: map[string]bool{"1.0": false, "1.0.5": true, "1.1": true, "2.0": true, "2.0.1": false, "2.0.9": false},
		},
		{
			name:  "patch versions near the bounds",
			rng:   "[2.16,2.17)",
			match: map[string]bool{"2.15.9": false, "2.16.0": true, "2.16.4": true, "2.17.0": false, "2.17.1": false},
		},
		{
			name:  "no ceiling",
			rng:   "[1.2,)",
			match: map[string]bool{"1.1": false, "1.2": true, "9.0": true},
		},
		{
			name:  "semver constraint",
			rng:   ">=1.0, <2.0",
			match: map[string]bool{"1.0": true, "1.9.9": true, "2.0": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewVersionRange(tt.rng)
			require.NoError(t, err)
			for version, want := range tt.match {
				assert.Equal(t, want, r.Contains(version), "version %s", version)
			}
		})
	}
}

func Test_NewVersionRange_Invalid(t *testing.T) {
	for _, bad := range []string{"[", "[1.0", "[,2.0)", "[x,2.0)", "[1.0,y)", ">=not-a-version"} {
		t.Run(bad, func(t *testing.T) {
			_, err := NewVersionRange(bad)
			assert.Error(t, err)
		})
	}
}

func Test_VersionRange_NonSemverNeverMatches(t *testing.T) {
	r, err := NewVersionRange("[1.0,2.0)")
	require.NoError(t, err)
	assert.False(t, r.Contains("1.0.0.redhat-1"))
}

func Test_IsVersionRange(t *testing.T) {
	assert.True(t, IsVersionRange("[1,2)"))
	assert.True(t, IsVersionRange("~1.2"))
	assert.False(t, IsVersionRange("1.2.3"))
	assert.False(t, IsVersionRange(""))
}
