// Package services contains domain services for the featurefleet domain model.
package services

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
)

// ListType selects one of the typed lists kept in the agent configuration.
// Entries are stored as "<type>.<name> = <value>".
type ListType string

const (
	ListBundles      ListType = "bundle"
	ListFeatures     ListType = "feature"
	ListRepositories ListType = "repository"
	ListOverrides    ListType = "override"
	ListOptionals    ListType = "optional"
	ListLibraries    ListType = "lib"
	ListEndorsed     ListType = "endorsed"
	ListExtension    ListType = "extension"
	ListFabs         ListType = "fab"
	ListTags         ListType = "tags"
)

// Reserved file names.
const (
	SummaryFile = "Summary.md"
	ReadmeFile  = "ReadMe.md"
	iconPrefix  = "icon."
)

// profileSchemes are bundle URI prefixes that point at files stored inside
// the profile itself.
var profileSchemes = []string{"blueprint:profile:", "spring:profile:"}

// ConfigList returns the values of every agent key that starts with
// "<listType>.", in the order the keys appear in the agent file.
func ConfigList(p *entities.Profile, listType ListType) []string {
	agent := p.Configuration(entities.AgentPID)
	prefix := string(listType) + "."

	list := []string{}
	for _, key := range agent.Keys() {
		if strings.HasPrefix(key, prefix) {
			v, _ := agent.Get(key)
			list = append(list, v)
		}
	}
	return list
}

// Bundles returns the bundle URIs of the agent configuration.
func Bundles(p *entities.Profile) []string { return ConfigList(p, ListBundles) }

// Features returns the feature references of the agent configuration.
func Features(p *entities.Profile) []string { return ConfigList(p, ListFeatures) }

// Repositories returns the feature repository URIs of the agent configuration.
func Repositories(p *entities.Profile) []string { return ConfigList(p, ListRepositories) }

// Overrides returns the bundle overrides of the agent configuration.
func Overrides(p *entities.Profile) []string { return ConfigList(p, ListOverrides) }

// Optionals returns the optional bundle URIs of the agent configuration.
func Optionals(p *entities.Profile) []string { return ConfigList(p, ListOptionals) }

// Libraries returns the library URIs of the agent configuration.
func Libraries(p *entities.Profile) []string { return ConfigList(p, ListLibraries) }

// EndorsedLibraries returns the endorsed library URIs.
func EndorsedLibraries(p *entities.Profile) []string { return ConfigList(p, ListEndorsed) }

// ExtensionLibraries returns the extension library URIs.
func ExtensionLibraries(p *entities.Profile) []string { return ConfigList(p, ListExtension) }

// Fabs returns the fabric archive URIs of the agent configuration.
func Fabs(p *entities.Profile) []string { return ConfigList(p, ListFabs) }

// Attribute returns the value of a profile attribute.
func Attribute(p *entities.Profile, key string) (string, bool) {
	return p.Attribute(key)
}

// AttributeBool parses an attribute as a boolean. Missing or unparsable
// values are false.
func AttributeBool(p *entities.Profile, key string) bool {
	v, ok := p.Attribute(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// IsAbstract reports whether the profile is a template that is never
// assigned to a container directly.
func IsAbstract(p *entities.Profile) bool { return AttributeBool(p, entities.AttributeAbstract) }

// IsLocked reports whether the profile refuses edits and deletion.
func IsLocked(p *entities.Profile) bool { return AttributeBool(p, entities.AttributeLocked) }

// IsHidden reports whether the profile is left out of listings by default.
func IsHidden(p *entities.Profile) bool { return AttributeBool(p, entities.AttributeHidden) }

// Tags returns the declared tags. Profiles without tags get one derived from
// their ID: "fabric-camel-cxf" yields [fabric camel].
func Tags(p *entities.Profile) []string {
	if declared := ConfigList(p, ListTags); len(declared) > 0 {
		return declared
	}

	segments := strings.Split(p.ID(), "-")
	seen := make(map[string]bool)
	tags := []string{}
	for _, s := range segments[:len(segments)-1] {
		if seen[s] {
			continue
		}
		seen[s] = true
		tags = append(tags, s)
	}
	return tags
}

// IconRelativePath returns the name of the profile's icon file. When several
// icons exist the first in sorted order wins.
func IconRelativePath(p *entities.Profile) (string, bool) {
	for _, name := range p.FileNames() {
		if strings.HasPrefix(name, iconPrefix) {
			return name, true
		}
	}
	return "", false
}

// IconURL returns the icon path relative to the profile store root, in the
// store's "<version>/profiles/<id>.profile/<file>" layout.
func IconURL(p *entities.Profile) (string, bool) {
	name, ok := IconRelativePath(p)
	if !ok {
		return "", false
	}
	return p.Version() + "/profiles/" + p.ID() + ".profile/" + name, true
}

// Summary returns Summary.md verbatim, or the first line of ReadMe.md that is
// not the leading heading.
func Summary(p *entities.Profile) (string, bool) {
	if data, ok := p.File(SummaryFile); ok {
		return string(data), true
	}

	data, ok := p.File(ReadmeFile)
	if !ok {
		return "", false
	}

	first := true
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first && isHeadingLine(line) {
			first = false
			continue
		}
		for isHeadingLine(line) {
			line = line[1:]
		}
		if line = strings.TrimSpace(line); line != "" {
			return line, true
		}
	}
	return "", false
}

func isHeadingLine(line string) bool {
	return strings.HasPrefix(line, "=") || strings.HasPrefix(line, "#")
}

// ContentHash returns a change-detection token: the last-modified token
// followed by an xxhash of every bundle embedded in the profile.
func ContentHash(p *entities.Profile) string {
	var b strings.Builder
	b.WriteString(p.LastModified())

	for _, bundle := range Bundles(p) {
		name, ok := embeddedBundleFile(bundle)
		if !ok {
			continue
		}
		if data, found := p.File(name); found {
			b.WriteString(strconv.FormatUint(xxhash.Sum64(data), 10))
		}
	}
	return b.String()
}

func embeddedBundleFile(bundle string) (string, bool) {
	for _, scheme := range profileSchemes {
		if name, ok := strings.CutPrefix(bundle, scheme); ok {
			return name, true
		}
	}
	return "", false
}
