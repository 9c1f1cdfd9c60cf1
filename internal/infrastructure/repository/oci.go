package repository

import (
	"context"
	"encoding/json"
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
)

// Layer media types a descriptor artifact may use. Any other media type is
// accepted when it is the only layer.
const (
	MediaTypeDescriptorXML  = "application/vnd.featurefleet.repository.v1+xml"
	MediaTypeDescriptorYAML = "application/vnd.featurefleet.repository.v1+yaml"
	MediaTypeDescriptorJSON = "application/vnd.featurefleet.repository.v1+json"
)

// fetchOCI reads "registry/repository:tag" (or @digest) and returns the
// descriptor layer of its manifest.
func (l *Loader) fetchOCI(ctx context.Context, reference string) ([]byte, error) {
	ref, err := registry.ParseReference(reference)
	if err != nil {
		return nil, fmt.Errorf("invalid OCI reference %q: %w", reference, err)
	}
	if ref.Reference == "" {
		ref.Reference = "latest"
	}

	repo, err := remote.NewRepository(ref.Registry + "/" + ref.Repository)
	if err != nil {
		return nil, fmt.Errorf("invalid OCI repository %q: %w", reference, err)
	}
	repo.PlainHTTP = l.plainHTTP
	repo.Client = l.http.StandardClient()

	_, manifestBytes, err := oras.FetchBytes(ctx, repo, ref.Reference, oras.DefaultFetchBytesOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest %s: %w", reference, err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", reference, err)
	}

	layer, err := descriptorLayer(manifest.Layers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", reference, err)
	}
	if layer.Size > MaxDescriptorSize {
		return nil, fmt.Errorf("%s: descriptor exceeds %d bytes", reference, MaxDescriptorSize)
	}

	data, err := content.FetchAll(ctx, repo, layer)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch descriptor layer %s: %w", layer.Digest, err)
	}
	return data, nil
}

func descriptorLayer(layers []ocispec.Descriptor) (ocispec.Descriptor, error) {
	for _, layer := range layers {
		switch layer.MediaType {
		case MediaTypeDescriptorXML, MediaTypeDescriptorYAML, MediaTypeDescriptorJSON:
			return layer, nil
		}
	}
	if len(layers) == 1 {
		return layers[0], nil
	}
	return ocispec.Descriptor{}, fmt.Errorf("manifest has %d layers and none is a feature descriptor", len(layers))
}
