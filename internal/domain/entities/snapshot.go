package entities

import (
	"slices"
	"time"

	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// InstalledSnapshot is the resolved set of repositories and features in
// effect for this node. A snapshot is never modified; reconciliation
// publishes a new one.
type InstalledSnapshot struct {
	runID        values.RunID
	generatedAt  time.Time
	repositories []*Repository
	features     []Feature
	index        map[FeatureKey]struct{}
}

// EmptySnapshot returns the snapshot in effect before any reconciliation.
func EmptySnapshot() *InstalledSnapshot {
	return &InstalledSnapshot{index: map[FeatureKey]struct{}{}}
}

// NewInstalledSnapshot builds a snapshot. Duplicate features are dropped.
func NewInstalledSnapshot(runID values.RunID, generatedAt time.Time, repositories []*Repository, features []Feature) *InstalledSnapshot {
	s := &InstalledSnapshot{
		runID:        runID,
		generatedAt:  generatedAt,
		repositories: slices.Clone(repositories),
		index:        make(map[FeatureKey]struct{}, len(features)),
	}
	for _, f := range features {
		if _, dup := s.index[f.Key()]; dup {
			continue
		}
		s.index[f.Key()] = struct{}{}
		s.features = append(s.features, f)
	}
	return s
}

// RunID returns the reconciliation pass that produced the snapshot.
func (s *InstalledSnapshot) RunID() values.RunID {
	return s.runID
}

// GeneratedAt returns when the snapshot was published.
func (s *InstalledSnapshot) GeneratedAt() time.Time {
	return s.generatedAt
}

// Repositories returns the installed repositories in resolution order.
func (s *InstalledSnapshot) Repositories() []*Repository {
	return slices.Clone(s.repositories)
}

// Features returns the installed features in resolution order.
func (s *InstalledSnapshot) Features() []Feature {
	return slices.Clone(s.features)
}

// Contains reports whether the feature is installed.
func (s *InstalledSnapshot) Contains(key FeatureKey) bool {
	_, ok := s.index[key]
	return ok
}
