package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/jsonc"

	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// Format is a descriptor encoding.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat guesses the encoding from the first significant byte.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return FormatXML
	case bytes.HasPrefix(trimmed, []byte("{")):
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Decode parses a descriptor in any supported format.
func Decode(data []byte) (*entities.Repository, error) {
	switch DetectFormat(data) {
	case FormatXML:
		return DecodeXML(data)
	case FormatJSON:
		return decodeDocument(jsonc.ToJSON(data))
	default:
		doc, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return decodeDocument(doc)
	}
}

// document is the JSON/YAML descriptor shape.
type document struct {
	Name         string            `json:"name"`
	Repositories []string          `json:"repositories"`
	Features     []featureDocument `json:"features"`
}

type featureDocument struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
	Bundles      []string `json:"bundles"`
}

func decodeDocument(doc []byte) (*entities.Repository, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	var d document
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor: %w", err)
	}

	repo := &entities.Repository{
		Name:         d.Name,
		Repositories: trimAll(d.Repositories),
		Features:     make([]entities.Feature, 0, len(d.Features)),
	}
	for _, fd := range d.Features {
		f := entities.Feature{
			Name:        strings.TrimSpace(fd.Name),
			Version:     defaultVersion(fd.Version),
			Description: fd.Description,
			Bundles:     trimAll(fd.Bundles),
		}
		for _, dep := range fd.Dependencies {
			ref, err := values.ParseFeatureReference(dep)
			if err != nil {
				return nil, fmt.Errorf("feature %s: %w", f.Name, err)
			}
			f.Dependencies = append(f.Dependencies, ref)
		}
		repo.Features = append(repo.Features, f)
	}
	return repo, nil
}

func defaultVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return values.DefaultVersion
	}
	return v
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
