package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
)

func TestRepositoryCache_Get_LoadsOnce(t *testing.T) {
	loader := newFakeLoader()
	want := loader.add("mvn:a", nil)
	cache := NewRepositoryCache(loader, nil)

	got, err := cache.Get(context.Background(), "mvn:a")
	require.NoError(t, err)
	again, err := cache.Get(context.Background(), " mvn:a ")
	require.NoError(t, err)

	assert.Same(t, want, got)
	assert.Same(t, got, again)
	assert.Equal(t, 1, loader.count("mvn:a"))
	assert.Equal(t, 1, cache.Len())
}

func TestRepositoryCache_Get_EmptyURI(t *testing.T) {
	cache := NewRepositoryCache(newFakeLoader(), nil)

	_, err := cache.Get(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, apperrors.IsRepositoryLoad(err))
}

func TestRepositoryCache_Get_ErrorsAreNotCached(t *testing.T) {
	loader := newFakeLoader()
	loader.fail("mvn:a", errors.New("boom"))
	cache := NewRepositoryCache(loader, nil)

	_, err := cache.Get(context.Background(), "mvn:a")
	require.Error(t, err)

	var loadErr *apperrors.RepositoryLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "mvn:a", loadErr.URI)
	assert.Equal(t, 0, cache.Len())

	loader.mu.Lock()
	delete(loader.errs, "mvn:a")
	loader.mu.Unlock()
	loader.add("mvn:a", nil)

	_, err = cache.Get(context.Background(), "mvn:a")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.count("mvn:a"))
}

func TestRepositoryCache_Get_ConcurrentCallersShareLoad(t *testing.T) {
	loader := newFakeLoader()
	loader.add("mvn:a", nil)
	loader.gate = make(chan struct{})
	loader.started = make(chan string, 8)
	cache := NewRepositoryCache(loader, nil)

	const callers = 5
	results := make([]*entities.Repository, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = cache.Get(context.Background(), "mvn:a")
	}()
	<-loader.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.Get(context.Background(), "mvn:a")
		}(i)
	}
	close(loader.gate)
	wg.Wait()

	assert.Equal(t, 1, loader.count("mvn:a"))
	for _, r := range results {
		require.NotNil(t, r)
		assert.Same(t, results[0], r)
	}
}

func TestRepositoryCache_InvalidateAll_DuringLoad(t *testing.T) {
	loader := newFakeLoader()
	loader.add("mvn:a", nil)
	loader.gate = make(chan struct{})
	loader.started = make(chan string, 8)
	cache := NewRepositoryCache(loader, nil)

	done := make(chan *entities.Repository)
	go func() {
		r, _ := cache.Get(context.Background(), "mvn:a")
		done <- r
	}()
	<-loader.started

	cache.InvalidateAll()
	close(loader.gate)

	require.NotNil(t, <-done)
	assert.Equal(t, 0, cache.Len(), "a load started before invalidation must not repopulate the cache")

	_, err := cache.Get(context.Background(), "mvn:a")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.count("mvn:a"))
	assert.Equal(t, 1, cache.Len())
}

func TestRepositoryCache_ResolveClosure_Chain(t *testing.T) {
	loader := newFakeLoader()
	loader.add("A", []string{"B"})
	loader.add("B", []string{"C"})
	loader.add("C", nil)
	cache := NewRepositoryCache(loader, nil)

	set := entities.NewRepositorySet()
	require.NoError(t, cache.ResolveClosure(context.Background(), "A", set))

	require.Equal(t, 3, set.Len())
	var uris []string
	for _, r := range set.Slice() {
		uris = append(uris, r.URI)
	}
	assert.Equal(t, []string{"A", "B", "C"}, uris)
	for _, uri := range uris {
		assert.Equal(t, 1, loader.count(uri))
	}
}

func TestRepositoryCache_ResolveClosure_DiamondWithCycle(t *testing.T) {
	loader := newFakeLoader()
	loader.add("A", []string{"B", "C"})
	loader.add("B", []string{"D"})
	loader.add("C", []string{"D"})
	loader.add("D", []string{"A"})
	cache := NewRepositoryCache(loader, nil)

	set := entities.NewRepositorySet()
	require.NoError(t, cache.ResolveClosure(context.Background(), "A", set))

	assert.Equal(t, 4, set.Len())
	assert.Equal(t, 1, loader.count("D"))
	assert.Equal(t, 1, loader.count("A"))
}

func TestRepositoryCache_ResolveClosure_NestedFailureKeepsSiblings(t *testing.T) {
	loader := newFakeLoader()
	loader.add("A", []string{"broken", "C"})
	loader.add("C", nil)
	loader.fail("broken", errors.New("404"))
	cache := NewRepositoryCache(loader, nil)

	set := entities.NewRepositorySet()
	err := cache.ResolveClosure(context.Background(), "A", set)

	require.Error(t, err)
	assert.True(t, apperrors.IsRepositoryLoad(err))
	assert.True(t, set.Contains("A"))
	assert.True(t, set.Contains("C"))
	assert.False(t, set.Contains("broken"))
}

func TestRepositoryCache_ResolveClosure_CancelledContext(t *testing.T) {
	loader := newFakeLoader()
	loader.add("A", nil)
	cache := NewRepositoryCache(loader, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cache.ResolveClosure(ctx, "A", entities.NewRepositorySet())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, loader.count("A"))
}
