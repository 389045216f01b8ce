// file: internal/metadata/bookcover.go
// version: 1.0.0
// guid: c69b78f4-94a4-4254-8b38-55209d1b2c0c

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jdfalk/book-cataloger/internal/metrics"
)

// BookcoverClient queries the Longitood book-cover API, which indexes
// Goodreads cover scans by ISBN. It supplies a URL only, no metadata.
type BookcoverClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewBookcoverClient creates a new Bookcover API client.
func NewBookcoverClient() *BookcoverClient {
	return NewBookcoverClientWithBaseURL("https://bookcover.longitood.com")
}

// NewBookcoverClientWithBaseURL creates a client with a custom base URL (for testing).
func NewBookcoverClientWithBaseURL(baseURL string) *BookcoverClient {
	return &BookcoverClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
	}
}

// SetUserAgent overrides the User-Agent header sent with every request.
func (c *BookcoverClient) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// Name returns the provenance token for images found through this source.
func (c *BookcoverClient) Name() string {
	return "bookcover_api"
}

// CoverURL asks the API for a cover URL. ("", nil) means no cover is known
// for this ISBN.
func (c *BookcoverClient) CoverURL(ctx context.Context, isbn string) (string, error) {
	reqURL := fmt.Sprintf("%s/bookcover?isbn=%s", c.baseURL, url.QueryEscape(isbn))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create Bookcover request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query Bookcover API: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveProviderRequest("bookcover_api", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Bookcover API returned status %d", resp.StatusCode)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode Bookcover response: %w", err)
	}
	return payload.URL, nil
}

// OpenLibraryCovers is the deterministic last-resort image source: the
// covers CDN serves scans keyed directly by ISBN, so no discovery call is
// needed. Unknown ISBNs come back as tiny placeholders that fail download
// validation downstream.
type OpenLibraryCovers struct {
	// BaseURL overrides the public CDN host (for testing).
	BaseURL string
}

// Name returns the provenance token for images found through this source.
func (s OpenLibraryCovers) Name() string {
	return "open_library"
}

// CoverURL builds the CDN URL for an ISBN without any network round-trip.
func (s OpenLibraryCovers) CoverURL(_ context.Context, isbn string) (string, error) {
	base := s.BaseURL
	if base == "" {
		base = "https://covers.openlibrary.org"
	}
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg", strings.TrimRight(base, "/"), isbn), nil
}
