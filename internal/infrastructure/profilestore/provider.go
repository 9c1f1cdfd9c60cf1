package profilestore

import (
	"context"
	"errors"
	"io/fs"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
)

// Ensure interface compliance
var _ ports.EffectiveProfileProvider = (*Provider)(nil)

// Provider serves the node's effective profile from a Store. The stored
// profile is expected to be flattened already; it is returned as an overlay
// without merging its parents.
type Provider struct {
	store   *Store
	version string
	id      string
}

// NewProvider creates a provider for profile id of version.
func NewProvider(store *Store, version, id string) *Provider {
	return &Provider{store: store, version: version, id: id}
}

// EffectiveProfile loads the profile. Filesystem failures other than a
// missing profile are reported as the coordination store being unavailable,
// since the directory is kept in sync by the coordination layer.
func (p *Provider) EffectiveProfile(ctx context.Context) (*entities.Profile, error) {
	prof, err := p.store.Load(ctx, p.version, p.id)
	if err != nil {
		var parseErr *entities.ConfigurationParseError
		var pathErr *fs.PathError
		switch {
		case errors.Is(err, ErrProfileNotFound), errors.As(err, &parseErr):
			return nil, err
		case errors.As(err, &pathErr):
			return nil, apperrors.NewCoordinationUnavailableError("read profile", err)
		default:
			return nil, err
		}
	}

	return entities.NewProfile(prof.Version(), prof.ID(), prof.Parents(), prof.Files(), prof.LastModified(), true)
}
