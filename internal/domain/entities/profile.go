// Package entities contains domain entities for the featurefleet domain model.
// These are pure domain types with NO infrastructure dependencies.
package entities

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	// AgentPID is the configuration that carries the container settings:
	// feature, repository and bundle lists, tags, and profile attributes.
	AgentPID = "io.fabric8.agent"

	// AttributePrefix marks agent keys that are profile attributes.
	AttributePrefix = "attribute."
)

// Well-known attribute keys.
const (
	AttributeAbstract = "abstract"
	AttributeLocked   = "locked"
	AttributeHidden   = "hidden"
	AttributeParents  = "parents"
)

// Profile is an immutable, versioned profile: a set of configuration files
// plus the configurations and attributes derived from them.
//
// Invariants:
// - configurations holds exactly the PIDs of files ending in ".properties"
// - attributes are the agent PID keys with AttributePrefix stripped
// - nothing changes after construction; the With* methods return new records
type Profile struct {
	versionID    string
	profileID    string
	parents      []string
	files        map[string][]byte
	fileNames    []string
	configs      map[string]Configuration
	attributes   map[string]string
	overlay      bool
	lastModified string
}

// NewProfile builds a profile from a snapshot of its parents and files.
// Inputs are copied; callers may reuse them afterwards.
func NewProfile(
	versionID, profileID string,
	parents []string,
	files map[string][]byte,
	lastModified string,
	overlay bool,
) (*Profile, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profile ID cannot be empty")
	}

	p := &Profile{
		versionID:    versionID,
		profileID:    profileID,
		parents:      slices.Clone(parents),
		files:        make(map[string][]byte, len(files)),
		configs:      make(map[string]Configuration),
		attributes:   make(map[string]string),
		overlay:      overlay,
		lastModified: lastModified,
	}

	for name, data := range files {
		p.files[name] = bytes.Clone(data)
		if !strings.HasSuffix(name, PropertiesSuffix) {
			continue
		}
		cfg, err := ParseConfiguration(data)
		if err != nil {
			return nil, &ConfigurationParseError{ProfileID: profileID, FileName: name, Cause: err}
		}
		p.configs[strings.TrimSuffix(name, PropertiesSuffix)] = cfg
	}
	p.fileNames = slices.Sorted(maps.Keys(p.files))

	if agent, ok := p.configs[AgentPID]; ok {
		for _, key := range agent.keys {
			if attr, found := strings.CutPrefix(key, AttributePrefix); found {
				p.attributes[attr] = agent.values[key]
			}
		}
	}

	return p, nil
}

// ID returns the profile identifier.
func (p *Profile) ID() string {
	return p.profileID
}

// Version returns the version the profile belongs to.
func (p *Profile) Version() string {
	return p.versionID
}

// Parents returns the ordered parent profile IDs.
func (p *Profile) Parents() []string {
	return slices.Clone(p.parents)
}

// IsOverlay reports whether the profile is already a merged view.
func (p *Profile) IsOverlay() bool {
	return p.overlay
}

// LastModified returns the opaque revision token.
func (p *Profile) LastModified() string {
	return p.lastModified
}

// FileNames returns the configuration file names in sorted order.
func (p *Profile) FileNames() []string {
	return slices.Clone(p.fileNames)
}

// File returns a copy of one configuration file.
func (p *Profile) File(name string) ([]byte, bool) {
	data, ok := p.files[name]
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

// Files returns a copy of all configuration files.
func (p *Profile) Files() map[string][]byte {
	out := make(map[string][]byte, len(p.files))
	for name, data := range p.files {
		out[name] = bytes.Clone(data)
	}
	return out
}

// Configuration returns the configuration for pid, empty if absent.
func (p *Profile) Configuration(pid string) Configuration {
	return p.configs[pid]
}

// Configurations returns all derived configurations keyed by PID.
func (p *Profile) Configurations() map[string]Configuration {
	return maps.Clone(p.configs)
}

// PIDs returns the configuration IDs in sorted order.
func (p *Profile) PIDs() []string {
	return slices.Sorted(maps.Keys(p.configs))
}

// Attributes returns a copy of the profile attributes.
func (p *Profile) Attributes() map[string]string {
	return maps.Clone(p.attributes)
}

// Attribute returns a single attribute value.
func (p *Profile) Attribute(key string) (string, bool) {
	v, ok := p.attributes[key]
	return v, ok
}

// WithFile returns a new profile with name set to data.
func (p *Profile) WithFile(name string, data []byte) (*Profile, error) {
	files := p.Files()
	files[name] = data
	return NewProfile(p.versionID, p.profileID, p.parents, files, p.lastModified, p.overlay)
}

// WithoutFile returns a new profile without the named file.
func (p *Profile) WithoutFile(name string) (*Profile, error) {
	files := p.Files()
	delete(files, name)
	return NewProfile(p.versionID, p.profileID, p.parents, files, p.lastModified, p.overlay)
}

// WithParents returns a new profile with a different parent list.
func (p *Profile) WithParents(parents []string) (*Profile, error) {
	return NewProfile(p.versionID, p.profileID, parents, p.files, p.lastModified, p.overlay)
}

// Equal reports whether two profiles have the same identity and content.
// Content takes part so that a changed profile never compares equal to its
// previous revision under the same identity.
func (p *Profile) Equal(other *Profile) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	if p.profileID != other.profileID || p.versionID != other.versionID {
		return false
	}
	if !slices.Equal(p.parents, other.parents) {
		return false
	}
	if !maps.EqualFunc(p.configs, other.configs, Configuration.Equal) {
		return false
	}
	return maps.EqualFunc(p.files, other.files, bytes.Equal)
}

// Compare orders profiles by ID.
func (p *Profile) Compare(other *Profile) int {
	return strings.Compare(p.profileID, other.profileID)
}

// String returns a short description for logs.
func (p *Profile) String() string {
	return fmt.Sprintf("Profile[ver=%s,id=%s,atts=%v]", p.versionID, p.profileID, p.attributes)
}
