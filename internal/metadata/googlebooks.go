// file: internal/metadata/googlebooks.go
// version: 1.0.0
// guid: f3861ab6-c99c-4db5-90a1-25bd18e1dcaf

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jdfalk/book-cataloger/internal/metrics"
)

// GoogleBooksClient fetches enrichment metadata from the Google Books Volume
// API. No API key is required for basic lookups (free tier, ~1000 req/day).
//
// The client carries a circuit breaker: the first 429 within a batch
// disables all further requests until ResetCircuit is called at the start of
// the next batch. Retrying an exhausted quota only burns wall-clock time.
type GoogleBooksClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string

	mu       sync.Mutex
	disabled bool
}

// NewGoogleBooksClient creates a new Google Books API client.
func NewGoogleBooksClient() *GoogleBooksClient {
	baseURL := os.Getenv("GOOGLE_BOOKS_BASE_URL")
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/books/v1"
	}
	return NewGoogleBooksClientWithBaseURL(baseURL)
}

// NewGoogleBooksClientWithBaseURL creates a client with a custom base URL (for testing).
func NewGoogleBooksClientWithBaseURL(baseURL string) *GoogleBooksClient {
	return &GoogleBooksClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
	}
}

// SetAPIKey attaches an API key appended to every volume query.
func (c *GoogleBooksClient) SetAPIKey(key string) {
	c.apiKey = key
}

// SetUserAgent overrides the User-Agent header sent with every request.
func (c *GoogleBooksClient) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// Name returns the display name for this metadata source.
func (c *GoogleBooksClient) Name() string {
	return "Google Books"
}

// ResetCircuit re-enables the client for a new batch.
func (c *GoogleBooksClient) ResetCircuit() {
	c.mu.Lock()
	c.disabled = false
	c.mu.Unlock()
}

func (c *GoogleBooksClient) trip() {
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
}

func (c *GoogleBooksClient) tripped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

type googleBooksResponse struct {
	TotalItems int              `json:"totalItems"`
	Items      []googleBooksVol `json:"items"`
}

type googleBooksVol struct {
	VolumeInfo googleBooksVolumeInfo `json:"volumeInfo"`
	SaleInfo   *googleBooksSaleInfo  `json:"saleInfo"`
}

type googleBooksVolumeInfo struct {
	Title       string                 `json:"title"`
	Authors     []string               `json:"authors"`
	Description string                 `json:"description"`
	PageCount   int                    `json:"pageCount"`
	Categories  []string               `json:"categories"`
	ImageLinks  *googleBooksImageLinks `json:"imageLinks"`
}

type googleBooksImageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

type googleBooksSaleInfo struct {
	ListPrice *googleBooksPrice `json:"listPrice"`
}

type googleBooksPrice struct {
	Amount float64 `json:"amount"`
}

// FetchByISBN queries the volume API by ISBN. A 429 trips the circuit
// breaker: this and every later call in the batch reports no data without
// touching the network, until ResetCircuit.
func (c *GoogleBooksClient) FetchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	if c.tripped() {
		log.Printf("[DEBUG] Google Books: circuit open, skipping %s", isbn)
		return nil, nil
	}

	searchURL := fmt.Sprintf("%s/volumes?q=%s&country=US&maxResults=1", c.baseURL, url.QueryEscape("isbn:"+isbn))
	if c.apiKey != "" {
		searchURL += "&key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Books request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Google Books: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveProviderRequest("google_books", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusTooManyRequests {
		c.trip()
		log.Printf("[WARN] Google Books: rate limited, disabled for the rest of this batch")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Books API returned status %d", resp.StatusCode)
	}

	var gbResp googleBooksResponse
	if err := json.NewDecoder(resp.Body).Decode(&gbResp); err != nil {
		return nil, fmt.Errorf("failed to decode Google Books response: %w", err)
	}

	if gbResp.TotalItems == 0 || len(gbResp.Items) == 0 {
		return nil, nil
	}

	item := gbResp.Items[0]
	vi := item.VolumeInfo
	meta := &BookMetadata{
		ISBN:        isbn,
		Title:       vi.Title,
		Description: vi.Description,
		PageCount:   vi.PageCount,
		Genres:      capGenres(vi.Categories),
	}
	if len(vi.Authors) > 0 {
		meta.Author = strings.Join(vi.Authors, ", ")
	}
	if item.SaleInfo != nil && item.SaleInfo.ListPrice != nil && item.SaleInfo.ListPrice.Amount > 0 {
		meta.Price = fmt.Sprintf("%.2f", item.SaleInfo.ListPrice.Amount)
	}
	if vi.ImageLinks != nil {
		thumb := vi.ImageLinks.Thumbnail
		if thumb == "" {
			thumb = vi.ImageLinks.SmallThumbnail
		}
		if thumb != "" {
			// zoom=3 serves a noticeably larger scan of the same cover
			meta.ThumbnailURL = strings.Replace(thumb, "zoom=1", "zoom=3", 1)
		}
	}
	return meta, nil
}
