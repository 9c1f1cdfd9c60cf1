package entities

import (
	"slices"
)

// Repository is a loaded feature repository descriptor. It is immutable once
// loaded; the cache hands the same pointer to every caller.
type Repository struct {
	URI          string
	Name         string
	Features     []Feature
	Repositories []string
}

// FeatureVersions returns every declared version of name, in declaration order.
func (r *Repository) FeatureVersions(name string) []string {
	var versions []string
	for _, f := range r.Features {
		if f.Name == name {
			versions = append(versions, f.Version)
		}
	}
	return versions
}

// RepositorySet is an insertion-ordered set of repositories keyed by URI.
// It is not safe for concurrent use; resolution passes build their own.
type RepositorySet struct {
	order []*Repository
	byURI map[string]*Repository
}

// NewRepositorySet creates an empty set.
func NewRepositorySet() *RepositorySet {
	return &RepositorySet{byURI: make(map[string]*Repository)}
}

// Add inserts repo under uri. It returns false if uri was already present.
func (s *RepositorySet) Add(uri string, repo *Repository) bool {
	if _, ok := s.byURI[uri]; ok {
		return false
	}
	s.byURI[uri] = repo
	s.order = append(s.order, repo)
	return true
}

// Contains reports whether uri is in the set.
func (s *RepositorySet) Contains(uri string) bool {
	_, ok := s.byURI[uri]
	return ok
}

// Get returns the repository stored under uri.
func (s *RepositorySet) Get(uri string) (*Repository, bool) {
	repo, ok := s.byURI[uri]
	return repo, ok
}

// Len returns the number of repositories.
func (s *RepositorySet) Len() int {
	return len(s.order)
}

// Slice returns the repositories in insertion order.
func (s *RepositorySet) Slice() []*Repository {
	return slices.Clone(s.order)
}
