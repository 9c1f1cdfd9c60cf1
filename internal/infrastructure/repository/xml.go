package repository

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// Karaf features document. Namespaces are ignored; only local names match.
type xmlFeatures struct {
	XMLName      xml.Name     `xml:"features"`
	Name         string       `xml:"name,attr"`
	Repositories []string     `xml:"repository"`
	Features     []xmlFeature `xml:"feature"`
}

type xmlFeature struct {
	Name         string          `xml:"name,attr"`
	Version      string          `xml:"version,attr"`
	Description  string          `xml:"description,attr"`
	Dependencies []xmlDependency `xml:"feature"`
	Bundles      []string        `xml:"bundle"`
}

type xmlDependency struct {
	Name    string `xml:",chardata"`
	Version string `xml:"version,attr"`
}

// DecodeXML parses a Karaf-style features document.
func DecodeXML(data []byte) (*entities.Repository, error) {
	var doc xmlFeatures
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse features XML: %w", err)
	}

	repo := &entities.Repository{
		Name:         strings.TrimSpace(doc.Name),
		Repositories: trimAll(doc.Repositories),
		Features:     make([]entities.Feature, 0, len(doc.Features)),
	}
	for i, xf := range doc.Features {
		name := strings.TrimSpace(xf.Name)
		if name == "" {
			return nil, fmt.Errorf("feature %d has no name", i)
		}
		f := entities.Feature{
			Name:        name,
			Version:     defaultVersion(xf.Version),
			Description: strings.TrimSpace(xf.Description),
			Bundles:     trimAll(xf.Bundles),
		}
		for _, dep := range xf.Dependencies {
			depName := strings.TrimSpace(dep.Name)
			if depName == "" {
				return nil, fmt.Errorf("feature %s has a dependency without a name", name)
			}
			f.Dependencies = append(f.Dependencies, values.NewFeatureReference(depName, dep.Version))
		}
		repo.Features = append(repo.Features, f)
	}
	return repo, nil
}
