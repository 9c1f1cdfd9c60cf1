// Package profilestore keeps profiles as directories on disk.
//
// Layout:
//
//	<root>/<version>/profiles/<id>.profile/<file>
//
// Parents are read from "attribute.parents" in the agent configuration,
// separated by spaces or commas. The last-modified token is the newest
// file modification time in Unix nanoseconds.
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
)

// Ensure interface compliance
var _ ports.ProfileStore = (*Store)(nil)

const (
	profilesDir   = "profiles"
	profileSuffix = ".profile"
)

// ErrProfileNotFound is returned when a profile directory does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// Store reads and writes profile directories under root.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a store rooted at root.
func NewStore(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: root, logger: logger}
}

// Root returns the store root directory.
func (s *Store) Root() string {
	return s.root
}

// ProfilesDir returns the directory holding all profiles of version.
func (s *Store) ProfilesDir(version string) string {
	return filepath.Join(s.root, version, profilesDir)
}

// ProfileDir returns the directory of one profile.
func (s *Store) ProfileDir(version, id string) string {
	return filepath.Join(s.ProfilesDir(version), id+profileSuffix)
}

// Versions lists the versions present in the store, sorted.
func (s *Store) Versions(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	versions := []string{}
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	slices.Sort(versions)
	return versions, nil
}

// ProfileIDs lists the profiles of version, sorted.
func (s *Store) ProfileIDs(_ context.Context, version string) ([]string, error) {
	if err := validName("version", version); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.ProfilesDir(version))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list profiles of version %s: %w", version, err)
	}

	ids := []string{}
	for _, e := range entries {
		if id, ok := strings.CutSuffix(e.Name(), profileSuffix); ok && e.IsDir() && id != "" {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Load reads one profile.
func (s *Store) Load(ctx context.Context, version, id string) (*entities.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName("version", version); err != nil {
		return nil, err
	}
	if err := validName("profile", id); err != nil {
		return nil, err
	}

	dir := s.ProfileDir(version, id)
	root, err := os.OpenRoot(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrProfileNotFound, version, id)
		}
		return nil, fmt.Errorf("failed to open profile directory: %w", err)
	}
	defer root.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}

	files := make(map[string][]byte, len(entries))
	var newest int64
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := root.ReadFile(e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		files[e.Name()] = data

		if info, err := e.Info(); err == nil && info.ModTime().UnixNano() > newest {
			newest = info.ModTime().UnixNano()
		}
	}

	parents, err := parentsOf(files)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}

	return entities.NewProfile(version, id, parents, files, strconv.FormatInt(newest, 10), false)
}

// Save writes every file of p and removes files p no longer has.
// Each file is replaced atomically.
func (s *Store) Save(ctx context.Context, p *entities.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName("version", p.Version()); err != nil {
		return err
	}
	if err := validName("profile", p.ID()); err != nil {
		return err
	}

	dir := s.ProfileDir(p.Version(), p.ID())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	keep := make(map[string]bool)
	for name, data := range p.Files() {
		if err := validName("file", name); err != nil {
			return err
		}
		if err := writeAtomic(dir, name, data); err != nil {
			return err
		}
		keep[name] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read profile directory: %w", err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !keep[e.Name()] {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
			}
		}
	}

	s.logger.Debug("saved profile", "version", p.Version(), "profile", p.ID(), "files", len(keep))
	return nil
}

// Delete removes a profile directory.
func (s *Store) Delete(ctx context.Context, version, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName("version", version); err != nil {
		return err
	}
	if err := validName("profile", id); err != nil {
		return err
	}

	dir := s.ProfileDir(version, id)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", ErrProfileNotFound, version, id)
	}
	return os.RemoveAll(dir)
}

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// parentsOf reads attribute.parents from the agent file, if any.
func parentsOf(files map[string][]byte) ([]string, error) {
	data, ok := files[entities.AgentPID+entities.PropertiesSuffix]
	if !ok {
		return nil, nil
	}
	cfg, err := entities.ParseConfiguration(data)
	if err != nil {
		return nil, err
	}
	value, _ := cfg.Get(entities.AttributePrefix + entities.AttributeParents)
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}), nil
}

func validName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}
