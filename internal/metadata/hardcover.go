// file: internal/metadata/hardcover.go
// version: 1.0.0
// guid: dde31070-90d6-4bdb-8292-cad6beb362ff

package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jdfalk/book-cataloger/internal/metrics"
)

// hardcoverMaxAttempts bounds the retry loop on a rate-limit rejection.
const hardcoverMaxAttempts = 3

// HardcoverClient fetches edition metadata from the Hardcover.app GraphQL
// API. Requires a Bearer token; without one every lookup reports no match
// instead of erroring.
type HardcoverClient struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	userAgent  string

	// backoffBase scales the rate-limit retry delays (2s, 4s, 8s in
	// production; shrunk in tests).
	backoffBase time.Duration
}

// NewHardcoverClient creates a new Hardcover API client with the given token.
func NewHardcoverClient(apiToken string) *HardcoverClient {
	return NewHardcoverClientWithBaseURL("https://api.hardcover.app/v1/graphql", apiToken)
}

// NewHardcoverClientWithBaseURL creates a client with a custom base URL (for testing).
func NewHardcoverClientWithBaseURL(baseURL, apiToken string) *HardcoverClient {
	return &HardcoverClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiToken:    apiToken,
		userAgent:   defaultUserAgent,
		backoffBase: time.Second,
	}
}

// SetUserAgent overrides the User-Agent header sent with every request.
func (c *HardcoverClient) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// Name returns the display name for this metadata source.
func (c *HardcoverClient) Name() string {
	return "Hardcover"
}

// GraphQL request/response types

type hardcoverGraphQLRequest struct {
	Query string `json:"query"`
}

type hardcoverGraphQLResponse struct {
	Data   *hardcoverData   `json:"data"`
	Errors []hardcoverError `json:"errors"`
}

type hardcoverError struct {
	Message string `json:"message"`
}

type hardcoverData struct {
	Editions []hardcoverEdition `json:"editions"`
}

type hardcoverEdition struct {
	Title string          `json:"title"`
	Pages int             `json:"pages"`
	Image *hardcoverImage `json:"image"`
	Book  *hardcoverBook  `json:"book"`
}

type hardcoverImage struct {
	URL string `json:"url"`
}

type hardcoverBook struct {
	Title         string                    `json:"title"`
	Description   string                    `json:"description"`
	CachedTags    map[string][]hardcoverTag `json:"cached_tags"`
	Contributions []hardcoverContribution   `json:"contributions"`
}

type hardcoverTag struct {
	Tag string `json:"tag"`
}

type hardcoverContribution struct {
	Author *hardcoverAuthor `json:"author"`
}

type hardcoverAuthor struct {
	Name string `json:"name"`
}

// FetchByISBN looks up an edition by ISBN-13 or ISBN-10. A rate-limit
// rejection is retried with exponential backoff up to hardcoverMaxAttempts
// before giving up on this identifier only; later identifiers start fresh.
func (c *HardcoverClient) FetchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	if c.apiToken == "" {
		log.Printf("[DEBUG] Hardcover: no API token configured, skipping")
		return nil, nil
	}

	for attempt := 0; attempt < hardcoverMaxAttempts; attempt++ {
		meta, rateLimited, err := c.fetch(ctx, isbn)
		if err != nil {
			return nil, err
		}
		if !rateLimited {
			return meta, nil
		}
		wait := time.Duration(1<<(attempt+1)) * c.backoffBase
		log.Printf("[DEBUG] Hardcover: rate limited for %s, retrying in %s", isbn, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	log.Printf("[WARN] Hardcover: still rate limited for %s after %d attempts, giving up", isbn, hardcoverMaxAttempts)
	return nil, nil
}

func (c *HardcoverClient) fetch(ctx context.Context, isbn string) (*BookMetadata, bool, error) {
	// Escape for embedding in the GraphQL string
	escaped := strings.ReplaceAll(isbn, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)

	graphqlQuery := fmt.Sprintf(`query { editions(where: {_or: [{isbn_13: {_eq: "%s"}}, {isbn_10: {_eq: "%s"}}]}, limit: 1) { title pages image { url } book { title description cached_tags contributions { author { name } } } } }`, escaped, escaped)

	reqBody := hardcoverGraphQLRequest{Query: graphqlQuery}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal Hardcover request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create Hardcover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query Hardcover: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveProviderRequest("hardcover", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("Hardcover API returned status %d", resp.StatusCode)
	}

	var gqlResp hardcoverGraphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, false, fmt.Errorf("failed to decode Hardcover response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, false, fmt.Errorf("Hardcover GraphQL error: %s", gqlResp.Errors[0].Message)
	}

	if gqlResp.Data == nil || len(gqlResp.Data.Editions) == 0 {
		return nil, false, nil
	}

	return editionToMetadata(isbn, gqlResp.Data.Editions[0]), false, nil
}

func editionToMetadata(isbn string, ed hardcoverEdition) *BookMetadata {
	meta := &BookMetadata{
		ISBN:      isbn,
		Title:     ed.Title,
		PageCount: ed.Pages,
	}
	if ed.Image != nil {
		meta.CoverURL = ed.Image.URL
	}
	if ed.Book != nil {
		if meta.Title == "" {
			meta.Title = ed.Book.Title
		}
		meta.Description = ed.Book.Description
		names := make([]string, 0, len(ed.Book.Contributions))
		for _, contrib := range ed.Book.Contributions {
			if contrib.Author != nil && contrib.Author.Name != "" {
				names = append(names, contrib.Author.Name)
			}
		}
		if len(names) > 0 {
			meta.Author = strings.Join(names, ", ")
		}
		if tags, ok := ed.Book.CachedTags["Genre"]; ok {
			genres := make([]string, 0, len(tags))
			for _, t := range tags {
				genres = append(genres, t.Tag)
			}
			meta.Genres = capGenres(genres)
		}
	}
	return meta
}
