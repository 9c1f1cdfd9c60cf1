// Package coordination adapts the coordination store to the application
// ports.
//
// HTTPStore talks to a key/value HTTP API:
//
//	GET <base>/v1/kv/<path>?raw   node data; 404 when absent
//	GET <base>/v1/status/leader    liveness
//
// Transport failures and 5xx responses mean the store is unavailable.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/version"
)

// Ensure interface compliance
var _ ports.CoordinationStore = (*HTTPStore)(nil)

// maxNodeSize bounds how much node data is read.
const maxNodeSize = 1 << 20

// HTTPStore is a read-only client for the coordination store.
type HTTPStore struct {
	base    *url.URL
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewHTTPStore creates a client for the store at baseURL. Each request is
// bounded by timeout.
func NewHTTPStore(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPStore, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid coordination URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid coordination URL %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPStore{
		base:    base,
		client:  cleanhttp.DefaultPooledClient(),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Ping checks that the store answers.
func (s *HTTPStore) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, "ping", "/v1/status/leader", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Exists reports whether a node exists at path.
func (s *HTTPStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.Get(ctx, path)
	if errors.Is(err, apperrors.ErrNodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the data stored at path.
func (s *HTTPStore) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.do(ctx, "get "+path, "/v1/kv/"+strings.TrimLeft(path, "/"), url.Values{"raw": nil})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxNodeSize))
		if err != nil {
			return nil, apperrors.NewCoordinationUnavailableError("get "+path, err)
		}
		return data, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNodeNotFound, path)
	default:
		return nil, fmt.Errorf("coordination store: get %s: unexpected status %s", path, resp.Status)
	}
}

// do performs a GET. Transport errors and 5xx responses are returned as
// CoordinationUnavailableError; any other response is handed back.
func (s *HTTPStore) do(ctx context.Context, op, path string, query url.Values) (*http.Response, error) {
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}

	resp, err := s.send(ctx, op, path, query)
	if err != nil {
		cancel()
		return nil, err
	}
	// The timeout covers reading the body too.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (s *HTTPStore) send(ctx context.Context, op, path string, query url.Values) (*http.Response, error) {
	u := *s.base
	u.Path = s.base.Path + path
	u.RawQuery = encodeQuery(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("coordination store: %s: %w", op, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("coordination store request failed", "op", op, "error", err)
		return nil, apperrors.NewCoordinationUnavailableError(op, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		_ = resp.Body.Close()
		return nil, apperrors.NewCoordinationUnavailableError(op, fmt.Errorf("status %s", resp.Status))
	}
	return resp, nil
}

// encodeQuery renders flag parameters (nil values) without "=".
func encodeQuery(query url.Values) string {
	parts := make([]string, 0, len(query))
	for k, vs := range query {
		if len(vs) == 0 {
			parts = append(parts, url.QueryEscape(k))
			continue
		}
		for _, v := range vs {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
