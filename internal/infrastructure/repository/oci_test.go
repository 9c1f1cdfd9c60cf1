package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha256Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// newRegistry serves one artifact "features/core:1.0" over the distribution API.
func newRegistry(t *testing.T, layers map[string][]byte, order []string) *httptest.Server {
	t.Helper()

	blobs := make(map[string][]byte)
	var layerDescs []map[string]any
	for _, mediaType := range order {
		data := layers[mediaType]
		d := sha256Digest(data)
		blobs[d] = data
		layerDescs = append(layerDescs, map[string]any{
			"mediaType": mediaType,
			"digest":    d,
			"size":      len(data),
		})
	}

	config := []byte("{}")
	blobs[sha256Digest(config)] = config
	manifest, err := json.Marshal(map[string]any{
		"schemaVersion": 2,
		"mediaType":     ocispec.MediaTypeImageManifest,
		"config": map[string]any{
			"mediaType": "application/vnd.oci.empty.v1+json",
			"digest":    sha256Digest(config),
			"size":      len(config),
		},
		"layers": layerDescs,
	})
	require.NoError(t, err)
	manifestDigest := sha256Digest(manifest)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/features/core/manifests/1.0" || r.URL.Path == "/v2/features/core/manifests/"+manifestDigest:
			w.Header().Set("Content-Type", ocispec.MediaTypeImageManifest)
			w.Header().Set("Docker-Content-Digest", manifestDigest)
			w.Header().Set("Content-Length", strconv.Itoa(len(manifest)))
			if r.Method != http.MethodHead {
				_, _ = w.Write(manifest)
			}
		case strings.HasPrefix(r.URL.Path, "/v2/features/core/blobs/"):
			data, ok := blobs[strings.TrimPrefix(r.URL.Path, "/v2/features/core/blobs/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			if r.Method != http.MethodHead {
				_, _ = w.Write(data)
			}
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestLoader_Load_OCI(t *testing.T) {
	srv := newRegistry(t, map[string][]byte{
		"application/vnd.acme.readme": []byte("# readme"),
		MediaTypeDescriptorXML:        []byte(karafXML),
	}, []string{"application/vnd.acme.readme", MediaTypeDescriptorXML})
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	loader := newTestLoader(WithPlainHTTP(true))

	repo, err := loader.Load(context.Background(), "oci://"+host+"/features/core:1.0")
	require.NoError(t, err)
	assert.Equal(t, "acme-1.0", repo.Name)
	assert.Len(t, repo.Features, 2)
}

func TestLoader_Load_OCISingleLayer(t *testing.T) {
	srv := newRegistry(t, map[string][]byte{
		"application/octet-stream": []byte(yamlDescriptor),
	}, []string{"application/octet-stream"})
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	repo, err := newTestLoader(WithPlainHTTP(true)).Load(context.Background(), "oci://"+host+"/features/core:1.0")
	require.NoError(t, err)
	assert.Equal(t, "acme", repo.Name)
}

func TestLoader_Load_OCIMissingTag(t *testing.T) {
	srv := newRegistry(t, map[string][]byte{MediaTypeDescriptorYAML: []byte(yamlDescriptor)}, []string{MediaTypeDescriptorYAML})
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	_, err := newTestLoader(WithPlainHTTP(true)).Load(context.Background(), "oci://"+host+"/features/core:2.0")
	assert.ErrorContains(t, err, "failed to fetch manifest")
}

func TestDescriptorLayer_Ambiguous(t *testing.T) {
	_, err := descriptorLayer([]ocispec.Descriptor{{MediaType: "a"}, {MediaType: "b"}})
	assert.ErrorContains(t, err, "none is a feature descriptor")
}
