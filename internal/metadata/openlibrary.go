// file: internal/metadata/openlibrary.go
// version: 1.0.0
// guid: e439a2f3-04c8-46ea-a3e8-f980d9935404

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jdfalk/book-cataloger/internal/metrics"
	"github.com/jdfalk/book-cataloger/internal/models"
)

// openLibraryMinInterval spaces outbound calls so the aggregate request rate
// stays under Open Library's published ceiling. The limiter is shared by
// edition, work, and author lookups alike.
const openLibraryMinInterval = time.Second

// OpenLibraryClient fetches edition metadata from the Open Library REST API.
// No credential is required, but Open Library asks clients to identify
// themselves, so the User-Agent should carry a contact address in production.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// NewOpenLibraryClient creates a new Open Library client.
func NewOpenLibraryClient() *OpenLibraryClient {
	baseURL := os.Getenv("OPENLIBRARY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return NewOpenLibraryClientWithBaseURL(baseURL)
}

// NewOpenLibraryClientWithBaseURL creates a client with a custom base URL (for testing).
func NewOpenLibraryClientWithBaseURL(baseURL string) *OpenLibraryClient {
	return &OpenLibraryClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		limiter:    rate.NewLimiter(rate.Every(openLibraryMinInterval), 1),
	}
}

// SetUserAgent overrides the User-Agent header sent with every request.
func (c *OpenLibraryClient) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// SetMinInterval reconfigures the courtesy throttle.
func (c *OpenLibraryClient) SetMinInterval(d time.Duration) {
	if d > 0 {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// Name returns the display name for this metadata source.
func (c *OpenLibraryClient) Name() string {
	return "Open Library"
}

// FetchByISBN looks up an edition record. When the edition leaves the
// description or author unresolved, the first linked work is fetched to fill
// the gaps; author references resolve with one extra call each.
func (c *OpenLibraryClient) FetchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	edition, err := c.getJSON(ctx, fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn))
	if err != nil {
		return nil, err
	}
	if edition == nil {
		return nil, nil
	}

	meta := &BookMetadata{
		ISBN:        isbn,
		Title:       olString(edition, "title"),
		PageCount:   olInt(edition, "number_of_pages"),
		Description: olDescription(edition["description"]),
		Genres:      olSubjects(edition),
	}
	meta.Author = c.resolveAuthors(ctx, olRefKeys(edition["authors"]))

	if meta.Description == "" || meta.Author == "" {
		c.fillFromWork(ctx, edition, meta)
	}

	return meta, nil
}

// fillFromWork follows the edition's first work reference and fills only
// fields the edition itself left empty.
func (c *OpenLibraryClient) fillFromWork(ctx context.Context, edition map[string]interface{}, meta *BookMetadata) {
	keys := olRefKeys(edition["works"])
	if len(keys) == 0 {
		return
	}
	work, err := c.getJSON(ctx, c.baseURL+keys[0]+".json")
	if err != nil {
		log.Printf("[DEBUG] Open Library: work lookup %s failed: %v", keys[0], err)
		return
	}
	if work == nil {
		return
	}
	models.FillString(&meta.Description, olDescription(work["description"]))
	models.FillGenres(&meta.Genres, olSubjects(work))
	if meta.Author == "" {
		meta.Author = c.resolveAuthors(ctx, olRefKeys(work["authors"]))
	}
}

func (c *OpenLibraryClient) resolveAuthors(ctx context.Context, keys []string) string {
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		author, err := c.getJSON(ctx, c.baseURL+key+".json")
		if err != nil {
			log.Printf("[DEBUG] Open Library: author lookup %s failed: %v", key, err)
			continue
		}
		if author == nil {
			continue
		}
		if name := olString(author, "name"); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// getJSON performs one throttled GET. A 404 returns (nil, nil) so callers
// can treat missing records as a clean no-match.
func (c *OpenLibraryClient) getJSON(ctx context.Context, url string) (map[string]interface{}, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Open Library request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Open Library: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveProviderRequest("open_library", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Open Library returned status %d", resp.StatusCode)
	}

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode Open Library response: %w", err)
	}
	return data, nil
}

func olString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func olInt(data map[string]interface{}, key string) int {
	if v, ok := data[key].(float64); ok {
		return int(v)
	}
	return 0
}

// olDescription handles Open Library's two description shapes: a bare string
// or a {"type": ..., "value": ...} object.
func olDescription(v interface{}) string {
	switch d := v.(type) {
	case string:
		return d
	case map[string]interface{}:
		if s, ok := d["value"].(string); ok {
			return s
		}
	}
	return ""
}

func olSubjects(data map[string]interface{}) []string {
	raw, ok := data["subjects"].([]interface{})
	if !ok {
		return nil
	}
	subjects := make([]string, 0, len(raw))
	for _, s := range raw {
		if str, ok := s.(string); ok {
			subjects = append(subjects, str)
		}
	}
	return capGenres(subjects)
}

// olRefKeys extracts reference keys from either the edition shape
// ([{"key": ...}]) or the work shape ([{"author": {"key": ...}}]).
func olRefKeys(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if key, ok := m["key"].(string); ok {
			keys = append(keys, key)
			continue
		}
		if author, ok := m["author"].(map[string]interface{}); ok {
			if key, ok := author["key"].(string); ok {
				keys = append(keys, key)
			}
		}
	}
	return keys
}
