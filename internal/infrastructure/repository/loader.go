// Package repository loads feature repository descriptors.
//
// A descriptor is fetched by URI scheme and decoded by content:
//
//	path, file://      local file
//	http://, https://  GET with retries on transient failures
//	mvn:               mapped onto a Maven repository base URL
//	oci://             first layer of an OCI artifact
//
// Content starting with "<" is a Karaf-style features XML document; content
// starting with "{" is JSON (comments allowed); anything else is YAML. JSON
// and YAML descriptors are validated against an embedded JSON Schema.
package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/version"
)

// Ensure interface compliance
var _ ports.RepositoryLoader = (*Loader)(nil)

// MaxDescriptorSize bounds how much of a descriptor is read.
const MaxDescriptorSize = 8 << 20

// Loader implements ports.RepositoryLoader.
type Loader struct {
	http      *retryablehttp.Client
	mavenBase string
	plainHTTP bool
	logger    *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithMavenRepository sets the base URL mvn: URIs resolve against.
func WithMavenRepository(base string) Option {
	return func(l *Loader) { l.mavenBase = strings.TrimRight(base, "/") }
}

// WithPlainHTTP talks to OCI registries over http instead of https.
func WithPlainHTTP(plain bool) Option {
	return func(l *Loader) { l.plainHTTP = plain }
}

// WithRetries sets how often a transient HTTP failure is retried.
func WithRetries(retries int, waitMin, waitMax time.Duration) Option {
	return func(l *Loader) {
		l.http.RetryMax = retries
		l.http.RetryWaitMin = waitMin
		l.http.RetryWaitMax = waitMax
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a descriptor loader.
func NewLoader(opts ...Option) *Loader {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second

	l := &Loader{
		http:   client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	client.Logger = l.logger
	return l
}

// Load fetches and decodes the descriptor at uri.
func (l *Loader) Load(ctx context.Context, uri string) (*entities.Repository, error) {
	data, err := l.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	repo, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", uri, err)
	}
	repo.URI = uri
	l.logger.Debug("loaded repository", "uri", uri, "name", repo.Name,
		"features", len(repo.Features), "repositories", len(repo.Repositories))
	return repo, nil
}

func (l *Loader) fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scheme, rest, found := strings.Cut(uri, ":")
	if !found || len(scheme) == 1 {
		// No scheme, or a Windows drive letter.
		return readFile(uri)
	}

	switch strings.ToLower(scheme) {
	case "file":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid file URI %q: %w", uri, err)
		}
		return readFile(u.Path)
	case "http", "https":
		return l.fetchHTTP(ctx, uri)
	case "mvn":
		if l.mavenBase == "" {
			return nil, fmt.Errorf("no maven repository configured for %s", uri)
		}
		path, err := MavenPath(rest)
		if err != nil {
			return nil, err
		}
		return l.fetchHTTP(ctx, l.mavenBase+"/"+path)
	case "oci":
		return l.fetchOCI(ctx, strings.TrimPrefix(rest, "//"))
	default:
		return nil, fmt.Errorf("unsupported repository URI scheme %q", scheme)
	}
}

func readFile(path string) ([]byte, error) {
	//nolint:gosec // G304: repository locations come from the node's own profile
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	return readLimited(f)
}

func (l *Loader) fetchHTTP(ctx context.Context, target string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid repository URL %q: %w", target, err)
	}
	req.Header.Set("Accept", "application/xml, application/yaml, application/json;q=0.9, */*;q=0.5")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", target, resp.Status)
	}
	return readLimited(resp.Body)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDescriptorSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	if len(data) > MaxDescriptorSize {
		return nil, fmt.Errorf("descriptor exceeds %d bytes", MaxDescriptorSize)
	}
	return data, nil
}
