package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/reglet-dev/featurefleet/internal/application/dto"
	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	domainservices "github.com/reglet-dev/featurefleet/internal/domain/services"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// agentFile is the file holding the agent configuration.
const agentFile = entities.AgentPID + entities.PropertiesSuffix

// ProfileService lists, shows, edits and deletes stored profiles.
type ProfileService struct {
	store  ports.ProfileStore
	logger *slog.Logger
	now    func() time.Time
}

// NewProfileService creates a profile service backed by store.
func NewProfileService(store ports.ProfileStore, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{store: store, logger: logger, now: time.Now}
}

// List returns summaries of the profiles of a version, sorted by ID.
// Hidden profiles are skipped unless requested. A version the store does not
// hold returns apperrors.ErrVersionNotFound.
func (s *ProfileService) List(ctx context.Context, req dto.ListProfilesRequest) ([]dto.ProfileSummary, error) {
	versions, err := s.store.Versions(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(versions, req.Version) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrVersionNotFound, req.Version)
	}

	ids, err := s.store.ProfileIDs(ctx, req.Version)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ProfileSummary, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.Load(ctx, req.Version, id)
		if err != nil {
			return nil, fmt.Errorf("loading profile %s: %w", id, err)
		}
		if domainservices.IsHidden(p) && !req.IncludeHidden {
			continue
		}
		out = append(out, summarize(p))
	}
	return out, nil
}

// Show returns the full view of one profile.
func (s *ProfileService) Show(ctx context.Context, version, id string) (dto.ProfileDetail, error) {
	p, err := s.store.Load(ctx, version, id)
	if err != nil {
		return dto.ProfileDetail{}, err
	}
	return detail(p), nil
}

// Delete removes a stored profile. Locked profiles are refused.
func (s *ProfileService) Delete(ctx context.Context, version, id string) error {
	p, err := s.store.Load(ctx, version, id)
	if err != nil {
		return err
	}
	if domainservices.IsLocked(p) {
		return fmt.Errorf("%w: %s", apperrors.ErrProfileLocked, id)
	}
	if err := s.store.Delete(ctx, version, id); err != nil {
		return fmt.Errorf("deleting profile %s: %w", id, err)
	}
	s.logger.Info("deleted profile", "version", version, "profile", id)
	return nil
}

// Edit applies req to the agent configuration of a profile and saves it.
// Locked profiles are refused. Nothing is written when the edit changes
// nothing.
func (s *ProfileService) Edit(ctx context.Context, req dto.EditProfileRequest) (*dto.EditProfileResponse, error) {
	start := s.now()
	p, err := s.store.Load(ctx, req.Version, req.ProfileID)
	if err != nil {
		return nil, err
	}
	if domainservices.IsLocked(p) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrProfileLocked, req.ProfileID)
	}

	agent := p.Configuration(entities.AgentPID)
	edited, err := applyEdit(agent, req)
	if err != nil {
		return nil, err
	}

	changed := !edited.Equal(agent)
	if changed {
		data, err := edited.Encode()
		if err != nil {
			return nil, fmt.Errorf("encoding agent configuration: %w", err)
		}
		if p, err = p.WithFile(agentFile, data); err != nil {
			return nil, err
		}
		if !req.Delete && req.Parents != nil {
			if p, err = p.WithParents(req.Parents); err != nil {
				return nil, err
			}
		}
		if err := s.store.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("saving profile %s: %w", req.ProfileID, err)
		}
		s.logger.Info("profile edited", "version", req.Version, "profile", req.ProfileID,
			"request_id", req.Metadata.RequestID)
	}

	return &dto.EditProfileResponse{
		Profile: detail(p),
		Changed: changed,
		Metadata: dto.ResponseMetadata{
			RequestID:   req.Metadata.RequestID,
			ProcessedAt: s.now(),
			Duration:    s.now().Sub(start),
		},
	}, nil
}

func applyEdit(agent entities.Configuration, req dto.EditProfileRequest) (entities.Configuration, error) {
	for _, raw := range req.Features {
		ref, err := values.ParseFeatureReference(raw)
		if err != nil {
			return agent, fmt.Errorf("invalid feature %q: %w", raw, err)
		}
		if req.Delete {
			agent = removeMatching(agent, domainservices.ListFeatures, func(v string) bool {
				have, err := values.ParseFeatureReference(v)
				return err == nil && have.Name == ref.Name && (!ref.HasVersion() || have.Version == ref.Version)
			})
			continue
		}
		agent = agent.With(listKey(domainservices.ListFeatures, ref.Name), ref.String())
	}

	for _, uri := range req.Repositories {
		agent = editURI(agent, domainservices.ListRepositories, strings.TrimSpace(uri), req.Delete)
	}
	for _, uri := range req.Bundles {
		agent = editURI(agent, domainservices.ListBundles, strings.TrimSpace(uri), req.Delete)
	}

	for _, key := range sortedKeys(req.Attributes) {
		if req.Delete {
			agent = agent.Without(entities.AttributePrefix + key)
			continue
		}
		agent = agent.With(entities.AttributePrefix+key, req.Attributes[key])
	}

	if !req.Delete && req.Parents != nil {
		key := entities.AttributePrefix + entities.AttributeParents
		if len(req.Parents) == 0 {
			agent = agent.Without(key)
		} else {
			agent = agent.With(key, strings.Join(req.Parents, " "))
		}
	}
	return agent, nil
}

func editURI(agent entities.Configuration, list domainservices.ListType, uri string, remove bool) entities.Configuration {
	if remove {
		return removeMatching(agent, list, func(v string) bool { return v == uri })
	}
	return agent.With(listKey(list, uri), uri)
}

func removeMatching(agent entities.Configuration, list domainservices.ListType, match func(string) bool) entities.Configuration {
	prefix := string(list) + "."
	for _, key := range agent.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if v, _ := agent.Get(key); match(v) {
			agent = agent.Without(key)
		}
	}
	return agent
}

func listKey(list domainservices.ListType, name string) string {
	return string(list) + "." + name
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func summarize(p *entities.Profile) dto.ProfileSummary {
	summary, _ := domainservices.Summary(p)
	return dto.ProfileSummary{
		ID:       p.ID(),
		Version:  p.Version(),
		Parents:  p.Parents(),
		Abstract: domainservices.IsAbstract(p),
		Locked:   domainservices.IsLocked(p),
		Hidden:   domainservices.IsHidden(p),
		Tags:     domainservices.Tags(p),
		Summary:  summary,
	}
}

func detail(p *entities.Profile) dto.ProfileDetail {
	icon, _ := domainservices.IconURL(p)
	return dto.ProfileDetail{
		ProfileSummary: summarize(p),
		Features:       domainservices.Features(p),
		Repositories:   domainservices.Repositories(p),
		Bundles:        domainservices.Bundles(p),
		Attributes:     p.Attributes(),
		Files:          p.FileNames(),
		IconURL:        icon,
		LastModified:   p.LastModified(),
		ContentHash:    domainservices.ContentHash(p),
	}
}
