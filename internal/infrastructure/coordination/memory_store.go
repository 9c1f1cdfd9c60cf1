package coordination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
)

// Ensure interface compliance
var (
	_ ports.CoordinationStore = (*MemoryStore)(nil)
	_ ports.CoordinationPinger = StaticPinger{}
)

// MemoryStore is an in-process coordination store for tests and single
// node setups.
type MemoryStore struct {
	mu          sync.RWMutex
	nodes       map[string][]byte
	unavailable bool
}

// NewMemoryStore creates an empty, available store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[string][]byte)}
}

// Set stores data at path.
func (m *MemoryStore) Set(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[normalize(path)] = append([]byte(nil), data...)
}

// Delete removes the node at path.
func (m *MemoryStore) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, normalize(path))
}

// SetAvailable toggles whether operations succeed.
func (m *MemoryStore) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

// Ping implements ports.CoordinationPinger.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.check(ctx, "ping")
}

// Exists implements ports.CoordinationStore.
func (m *MemoryStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := m.check(ctx, "exists "+path); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[normalize(path)]
	return ok, nil
}

// Get implements ports.CoordinationStore.
func (m *MemoryStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := m.check(ctx, "get "+path); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.nodes[normalize(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNodeNotFound, path)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return apperrors.NewCoordinationUnavailableError(op, errors.New("store marked unavailable"))
	}
	return nil
}

func normalize(path string) string {
	return "/" + strings.Trim(path, "/")
}

// StaticPinger reports a fixed availability. It stands in for a live store when
// no coordination store is configured.
type StaticPinger struct {
	Available bool
}

// Ping implements ports.CoordinationPinger.
func (p StaticPinger) Ping(context.Context) error {
	if p.Available {
		return nil
	}
	return apperrors.NewCoordinationUnavailableError("ping", errors.New("coordination store not configured"))
}
