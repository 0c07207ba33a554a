package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/package2pypi/internal/domain/release"
	"github.com/oshokin/package2pypi/internal/logger"
)

const (
	// DefaultBaseURL is the PyPI JSON API.
	DefaultBaseURL = "https://pypi.org/pypi"

	// defaultTimeout bounds a single request.
	defaultTimeout = 10 * time.Second

	// maxJSONResponseBytes caps the release document (10 MiB).
	maxJSONResponseBytes = 10 << 20
)

type (
	// Client resolves published versions of a package.
	Client struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string
	}

	// Option configures a Client during construction.
	Option func(*Client)

	// projectDocument is the subset of the JSON API payload we read.
	projectDocument struct {
		Releases map[string]json.RawMessage `json:"releases"`
	}
)

// WithBaseURL overrides the index API base, primarily for test servers.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client for the PyPI API unless overridden by options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchVersions returns every parseable version the index lists for name.
// Unknown packages and malformed payloads yield an empty slice and no error.
func (c *Client) FetchVersions(ctx context.Context, name release.PackageName) ([]release.Version, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(name.String()) + "/json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query index for %s: %w", name, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		logger.DebugKV(ctx, "Package is not on the index yet", "url", endpoint)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		logger.WarnKV(ctx, "Unexpected index status, assuming no releases",
			"url", endpoint, "status", resp.Status)

		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read index response for %s: %w", name, err)
	}

	var doc projectDocument
	if err = json.Unmarshal(body, &doc); err != nil {
		logger.WarnKV(ctx, "Index response is not JSON, assuming no releases",
			"url", endpoint, "error", err)

		return nil, nil
	}

	return parseReleases(ctx, doc.Releases), nil
}

// Latest returns the newest published version, or release.Baseline.
func (c *Client) Latest(ctx context.Context, name release.PackageName) (release.Version, error) {
	versions, err := c.FetchVersions(ctx, name)
	if err != nil {
		return release.Version{}, err
	}

	return release.Latest(versions), nil
}

// Next returns the version the next upload of name should carry.
func (c *Client) Next(ctx context.Context, name release.PackageName) (release.Version, error) {
	latest, err := c.Latest(ctx, name)
	if err != nil {
		return release.Version{}, err
	}

	return latest.Next()
}

// parseReleases converts release keys to versions, skipping foreign schemes.
func parseReleases(ctx context.Context, releases map[string]json.RawMessage) []release.Version {
	versions := make([]release.Version, 0, len(releases))

	for key := range releases {
		v, err := release.ParseVersion(key)
		if err != nil {
			logger.WarnKV(ctx, "Skipping unsupported release key", "release", key)
			continue
		}

		versions = append(versions, v)
	}

	release.Sort(versions)

	return versions
}
