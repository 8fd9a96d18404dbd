// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/craftcache/craftcache/lib/cachedir"
	"github.com/craftcache/craftcache/lib/clock"
)

// githubAPIVersion is the GitHub REST API version header. Pinning the
// version ensures consistent behavior as GitHub evolves the API.
const githubAPIVersion = "2022-11-28"

// maxReleaseBody caps how much of a release response is read. The
// latest-release document for the hub runs to a few megabytes of
// asset metadata; anything past this limit indicates a broken or
// hostile endpoint.
const maxReleaseBody = 64 << 20

// Release is a published hub release. Its name doubles as the cache
// fingerprint for hub content: a new release invalidates everything
// cached from the previous one.
type Release struct {
	Name   string  `json:"name"`
	Assets []Asset `json:"assets"`
}

// Asset is one downloadable artifact attached to a release.
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`

	// BrowserDownloadURL serves the asset content directly, without
	// API authentication.
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Config holds configuration for creating a catalog Client.
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to
	// "https://api.github.com". Must use HTTPS.
	BaseURL string

	// HubRepository is the "owner/name" GitHub repository whose
	// latest release is the catalog. Required.
	HubRepository string

	// Token is an optional GitHub token. When set it is sent on every
	// request, raising the rate limit from 60 to 5000 requests per
	// hour. Typically sourced from the GH_TOKEN environment variable.
	Token string

	// Cache persists the ETag and release body between runs. Required.
	Cache *cachedir.Dir

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	// Inject clock.Fake() in tests for deterministic behavior.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client fetches the hub catalog and downloads its assets.
type Client struct {
	baseURL       string
	hubRepository string
	token         string
	cache         *cachedir.Dir
	httpClient    *http.Client
	clock         clock.Clock
	logger        *slog.Logger
}

// NewClient creates a catalog client from the given configuration.
// Returns an error if the configuration is invalid (missing hub
// repository, non-HTTPS URL).
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("catalog: API client requires HTTPS (got %q)", baseURL)
	}
	if config.HubRepository == "" {
		return nil, fmt.Errorf("catalog: hub repository is required")
	}
	if config.Cache == nil {
		return nil, fmt.Errorf("catalog: cache directory is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:       baseURL,
		hubRepository: config.HubRepository,
		token:         config.Token,
		cache:         config.Cache,
		httpClient:    httpClient,
		clock:         clk,
		logger:        logger,
	}, nil
}

// LatestRelease fetches the hub's latest release.
//
// The previous fetch's ETag is sent as If-None-Match. On 304 Not
// Modified the persisted body is decoded as-is and nothing is
// rewritten; on 200 the new ETag and body replace the persisted pair.
// A rate-limited response returns a *RateLimitError; other non-2xx
// responses return an *APIError.
func (client *Client) LatestRelease(ctx context.Context) (*Release, error) {
	url := client.baseURL + "/repos/" + client.hubRepository + "/releases/latest"

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: creating request: %w", err)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	}
	if etag := client.storedETag(); etag != "" {
		request.Header.Set("If-None-Match", etag)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("catalog: GET %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotModified {
		client.logger.Debug("hub release unchanged, using cached response")
		body, err := os.ReadFile(client.cache.ReleaseBodyPath())
		if err != nil {
			return nil, fmt.Errorf("catalog: reading cached release: %w", err)
		}
		return decodeRelease(body)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxReleaseBody))
	if err != nil {
		return nil, fmt.Errorf("catalog: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		if response.StatusCode == http.StatusForbidden || response.StatusCode == http.StatusTooManyRequests {
			return nil, client.rateLimitError(response.Header)
		}
		return nil, parseAPIError(response.StatusCode, body)
	}

	// Persist the body before the validator. An ETag written first
	// would, after a crash between the two writes, vouch for the
	// previous release's body: the next fetch gets a 304 and serves
	// stale bytes as current.
	if err := os.WriteFile(client.cache.ReleaseBodyPath(), body, 0o644); err != nil {
		return nil, fmt.Errorf("catalog: writing cached release: %w", err)
	}
	if etag := response.Header.Get("ETag"); etag != "" {
		if err := os.WriteFile(client.cache.ETagPath(), []byte(etag), 0o644); err != nil {
			return nil, fmt.Errorf("catalog: writing etag: %w", err)
		}
	} else if err := os.Remove(client.cache.ETagPath()); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog: clearing stale etag: %w", err)
	}

	return decodeRelease(body)
}

// storedETag returns the ETag persisted by the previous fetch, or ""
// on a cold cache.
func (client *Client) storedETag() string {
	data, err := os.ReadFile(client.cache.ETagPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func decodeRelease(body []byte) (*Release, error) {
	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("catalog: decoding release: %w", err)
	}
	if release.Name == "" {
		return nil, fmt.Errorf("catalog: release has no name")
	}
	return &release, nil
}
