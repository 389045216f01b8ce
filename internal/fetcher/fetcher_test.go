// file: internal/fetcher/fetcher_test.go
// version: 1.0.0
// guid: 806a21c4-87ab-458c-836b-fbcd5c23c36a

package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jdfalk/book-cataloger/internal/cache"
	"github.com/jdfalk/book-cataloger/internal/metadata"
	"github.com/jdfalk/book-cataloger/internal/models"
)

// stubProvider answers from a fixed table and counts calls.
type stubProvider struct {
	name  string
	books map[string]metadata.BookMetadata
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchByISBN(_ context.Context, isbn string) (*metadata.BookMetadata, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	meta, ok := p.books[isbn]
	if !ok {
		return nil, nil
	}
	meta.ISBN = isbn
	return &meta, nil
}

// stubEnrichment adds circuit-breaker bookkeeping on top of stubProvider.
type stubEnrichment struct {
	stubProvider
	resets int
}

func (p *stubEnrichment) ResetCircuit() { p.resets++ }

type stubImageSource struct {
	name  string
	urls  map[string]string
	err   error
	calls int
}

func (s *stubImageSource) Name() string { return s.name }

func (s *stubImageSource) CoverURL(_ context.Context, isbn string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.urls[isbn], nil
}

// newImageServer serves a plausible cover at /cover.jpg and a placeholder
// error page at /missing.
func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cover.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(bytes.Repeat([]byte{0xFF}, 2000))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(bytes.Repeat([]byte("x"), 500))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestFetcher(t *testing.T, opts Options) *Fetcher {
	t.Helper()
	if opts.ImageDir == "" {
		opts.ImageDir = t.TempDir()
	}
	f, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return f
}

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.Open("pebble", filepath.Join(t.TempDir(), "cache"), cache.DefaultTTL)
	if err != nil {
		t.Fatalf("Open cache failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func odysseyMeta(coverURL string) metadata.BookMetadata {
	return metadata.BookMetadata{
		Title:       "The Odyssey",
		Author:      "Homer",
		Description: "Homer's epic of the long voyage home.",
		PageCount:   541,
		Genres:      []string{"Classics", "Poetry"},
		CoverURL:    coverURL,
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestNewCreatesImageDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "images")
	if _, err := New(Options{ImageDir: dir}); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("Expected image directory to be created: %v", err)
	}
}

func TestFetchBookPrimaryShortCircuitsRegistry(t *testing.T) {
	images := newImageServer(t)

	meta := odysseyMeta(images.URL + "/cover.jpg")
	meta.Price = "12.99"
	primary := &stubProvider{name: "Hardcover", books: map[string]metadata.BookMetadata{"9780140449266": meta}}
	registry := &stubProvider{name: "Open Library"}
	enrichment := &stubEnrichment{stubProvider: stubProvider{name: "Google Books"}}

	f := newTestFetcher(t, Options{Primary: primary, Registry: registry, Enrichment: enrichment})
	rec := f.FetchBook(context.Background(), "9780140449266")

	if rec.Title != "The Odyssey" {
		t.Errorf("Expected title 'The Odyssey', got %q", rec.Title)
	}
	if registry.calls != 0 {
		t.Errorf("Registry must not be consulted after a primary title match, got %d calls", registry.calls)
	}
	if enrichment.calls != 0 {
		t.Errorf("Enrichment must not run when description and price are filled, got %d calls", enrichment.calls)
	}
	if rec.ImageSource != "hardcover" {
		t.Errorf("Expected the image to come from the primary cover URL, got source %q", rec.ImageSource)
	}
	if rec.ImagePath == "" {
		t.Fatal("Expected a stored image")
	}
	if _, err := os.Stat(rec.ImagePath); err != nil {
		t.Errorf("Stored image missing on disk: %v", err)
	}
	if len(rec.Errors) != 0 {
		t.Errorf("Expected no diagnostics, got %v", rec.Errors)
	}
}

func TestFetchBookFirstWriterWins(t *testing.T) {
	images := newImageServer(t)

	meta := odysseyMeta("") // no cover URL and no price from the primary
	primary := &stubProvider{name: "Hardcover", books: map[string]metadata.BookMetadata{"9780140449266": meta}}
	enrichMeta := metadata.BookMetadata{
		Title:        "The Odyssey (Annotated)",
		Description:  "A competing description that must not win.",
		Price:        "14.99",
		ThumbnailURL: images.URL + "/cover.jpg",
	}
	enrichment := &stubEnrichment{stubProvider: stubProvider{name: "Google Books", books: map[string]metadata.BookMetadata{"9780140449266": enrichMeta}}}

	f := newTestFetcher(t, Options{Primary: primary, Enrichment: enrichment})
	rec := f.FetchBook(context.Background(), "9780140449266")

	if enrichment.calls != 1 {
		t.Fatalf("Expected one enrichment call to fill the missing price, got %d", enrichment.calls)
	}
	if rec.Title != "The Odyssey" {
		t.Errorf("Primary title was overwritten: %q", rec.Title)
	}
	if rec.Description != "Homer's epic of the long voyage home." {
		t.Errorf("Primary description was overwritten: %q", rec.Description)
	}
	if rec.Price != "14.99" {
		t.Errorf("Expected enrichment to fill the empty price, got %q", rec.Price)
	}
	if rec.ImageSource != "google_books" {
		t.Errorf("Expected the enrichment thumbnail to win the image waterfall, got %q", rec.ImageSource)
	}
}

func TestFetchBookRegistryFallback(t *testing.T) {
	primary := &stubProvider{name: "Hardcover"}
	registry := &stubProvider{name: "Open Library", books: map[string]metadata.BookMetadata{"9780140449266": odysseyMeta("")}}

	f := newTestFetcher(t, Options{Primary: primary, Registry: registry})
	rec := f.FetchBook(context.Background(), "9780140449266")

	if primary.calls != 1 || registry.calls != 1 {
		t.Errorf("Expected primary then registry, got primary=%d registry=%d", primary.calls, registry.calls)
	}
	if rec.Title != "The Odyssey" {
		t.Errorf("Expected the registry to supply the title, got %q", rec.Title)
	}
}

func TestFetchBookNoMetadataNotCached(t *testing.T) {
	store := newTestStore(t)
	primary := &stubProvider{name: "Hardcover"}
	registry := &stubProvider{name: "Open Library"}
	enrichment := &stubEnrichment{stubProvider: stubProvider{name: "Google Books"}}

	f := newTestFetcher(t, Options{Primary: primary, Registry: registry, Enrichment: enrichment, Cache: store})
	rec := f.FetchBook(context.Background(), "0000000000")

	if rec.Title != "" {
		t.Errorf("Expected an empty title, got %q", rec.Title)
	}
	if !containsString(rec.Errors, "No metadata found") {
		t.Errorf("Missing metadata diagnostic, got %v", rec.Errors)
	}
	if !containsString(rec.Errors, "No cover image found") {
		t.Errorf("Missing image diagnostic, got %v", rec.Errors)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Titleless records must not be cached, found %d entries", count)
	}
}

func TestFetchBookImageValidationAdvancesWaterfall(t *testing.T) {
	images := newImageServer(t)

	// The primary's cover URL serves a 500-byte HTML placeholder.
	meta := odysseyMeta(images.URL + "/missing")
	meta.Price = "10.00"
	primary := &stubProvider{name: "Hardcover", books: map[string]metadata.BookMetadata{"9780140449266": meta}}
	covers := &stubImageSource{name: "bookcover_api", urls: map[string]string{"9780140449266": images.URL + "/cover.jpg"}}

	f := newTestFetcher(t, Options{Primary: primary, Covers: covers})
	rec := f.FetchBook(context.Background(), "9780140449266")

	if covers.calls != 1 {
		t.Fatalf("Expected the waterfall to advance to the cover API, got %d calls", covers.calls)
	}
	if rec.ImageSource != "bookcover_api" {
		t.Errorf("Expected the next source to win after the rejected candidate, got %q", rec.ImageSource)
	}
	if rec.ImageURL != images.URL+"/cover.jpg" {
		t.Errorf("Unexpected image URL: %q", rec.ImageURL)
	}
}

func TestFetchBookImageFallbackLastResort(t *testing.T) {
	images := newImageServer(t)

	primary := &stubProvider{name: "Hardcover", books: map[string]metadata.BookMetadata{"9780140449266": odysseyMeta("")}}
	covers := &stubImageSource{name: "bookcover_api"} // knows nothing
	fallback := &stubImageSource{name: "open_library", urls: map[string]string{"9780140449266": images.URL + "/cover.jpg"}}

	f := newTestFetcher(t, Options{Primary: primary, Covers: covers, Fallback: fallback})
	rec := f.FetchBook(context.Background(), "9780140449266")

	if rec.ImageSource != "open_library" {
		t.Errorf("Expected the deterministic fallback to win, got %q", rec.ImageSource)
	}
	if covers.calls != 1 || fallback.calls != 1 {
		t.Errorf("Expected both sources consulted in order, got covers=%d fallback=%d", covers.calls, fallback.calls)
	}
}

func TestFetchBookCacheHitSkipsProviders(t *testing.T) {
	store := newTestStore(t)

	seed := models.NewBookRecord("9780140449266")
	seed.Title = "The Odyssey"
	seed.Author = "Homer"
	seed.Description = "Homer's epic of the long voyage home."
	seed.PageCount = 541
	seed.ImageSource = "bookcover_api"
	seed.ImageURL = "https://example.com/cover.jpg"
	imageBytes := bytes.Repeat([]byte{0xAB}, 1500)
	if err := store.Put("9780140449266", seed, imageBytes); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	primary := &stubProvider{name: "Hardcover", books: map[string]metadata.BookMetadata{"9780140449266": odysseyMeta("")}}
	registry := &stubProvider{name: "Open Library"}
	enrichment := &stubEnrichment{stubProvider: stubProvider{name: "Google Books"}}

	f := newTestFetcher(t, Options{Primary: primary, Registry: registry, Enrichment: enrichment, Cache: store})
	rec := f.FetchBook(context.Background(), "9780140449266")

	if got := primary.calls + registry.calls + enrichment.calls; got != 0 {
		t.Fatalf("A cache hit must not touch providers, saw %d calls", got)
	}
	if rec.Title != "The Odyssey" || rec.Author != "Homer" {
		t.Errorf("Cached metadata not restored: %+v", rec)
	}
	if rec.ImageSource != "bookcover_api" || rec.ImageURL != "https://example.com/cover.jpg" {
		t.Errorf("Cached image provenance not restored: source=%q url=%q", rec.ImageSource, rec.ImageURL)
	}
	if rec.ImagePath == "" {
		t.Fatal("Expected the cached image materialized to disk")
	}
	data, err := os.ReadFile(rec.ImagePath)
	if err != nil {
		t.Fatalf("Failed to read materialized image: %v", err)
	}
	if !bytes.Equal(data, imageBytes) {
		t.Error("Materialized image differs from the cached bytes")
	}
}

func TestFetchBookCacheWrite(t *testing.T) {
	images := newImageServer(t)
	store := newTestStore(t)

	meta := odysseyMeta(images.URL + "/cover.jpg")
	primary := &stubProvider{name: "Hardcover", books: map[string]metadata.BookMetadata{"9780140449266": meta}}

	f := newTestFetcher(t, Options{Primary: primary, Cache: store})
	f.FetchBook(context.Background(), "9780140449266")

	entry, ok := store.Get("9780140449266")
	if !ok {
		t.Fatal("Expected a cache entry after a successful resolution")
	}
	if entry.Metadata.Title != "The Odyssey" {
		t.Errorf("Cached title mismatch: %q", entry.Metadata.Title)
	}
	if len(entry.Image) < imageMinBytes {
		t.Errorf("Expected the validated image bytes cached, got %d bytes", len(entry.Image))
	}
	if entry.ImageSource != "hardcover" {
		t.Errorf("Cached image provenance mismatch: %q", entry.ImageSource)
	}
}

func TestFetchAllEndToEnd(t *testing.T) {
	store := newTestStore(t)

	seed := models.NewBookRecord("9780140449266")
	seed.Title = "The Odyssey"
	seed.Author = "Homer"
	seed.Description = "Homer's epic of the long voyage home."
	seed.PageCount = 541
	seed.ImageSource = "bookcover_api"
	seed.ImageURL = "https://example.com/cover.jpg"
	if err := store.Put("9780140449266", seed, bytes.Repeat([]byte{0xAB}, 1500)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	primary := &stubProvider{name: "Hardcover"}
	registry := &stubProvider{name: "Open Library"}
	enrichment := &stubEnrichment{stubProvider: stubProvider{name: "Google Books"}}
	covers := &stubImageSource{name: "bookcover_api"}

	f := newTestFetcher(t, Options{Primary: primary, Registry: registry, Enrichment: enrichment, Covers: covers, Cache: store})

	var progress []string
	records := f.FetchAll(context.Background(), []string{"9780140449266", "9780140449266", "0000000000"}, func(done, total int, rec *models.BookRecord) {
		progress = append(progress, fmt.Sprintf("%d/%d %s", done, total, rec.ISBN))
	})

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if enrichment.resets != 1 {
		t.Errorf("Expected the circuit breaker reset once at batch start, got %d", enrichment.resets)
	}

	// The duplicate resolves independently to identical metadata.
	if records[0].Title != "The Odyssey" || records[1].Title != "The Odyssey" {
		t.Errorf("Expected both cached records titled, got %q and %q", records[0].Title, records[1].Title)
	}
	if records[0].Author != records[1].Author || records[0].Description != records[1].Description {
		t.Error("Duplicate identifiers must resolve to identical metadata")
	}

	// The unknown identifier matched nothing anywhere.
	if records[2].Title != "" {
		t.Errorf("Expected an empty title for the unknown identifier, got %q", records[2].Title)
	}
	if !containsString(records[2].Errors, "No metadata found") || !containsString(records[2].Errors, "No cover image found") {
		t.Errorf("Expected both diagnostics on the unknown identifier, got %v", records[2].Errors)
	}

	// Providers were consulted only for the identifier missing from cache.
	if primary.calls != 1 || registry.calls != 1 || enrichment.calls != 1 {
		t.Errorf("Expected one waterfall run, got primary=%d registry=%d enrichment=%d", primary.calls, registry.calls, enrichment.calls)
	}

	wantProgress := []string{"1/3 9780140449266", "2/3 9780140449266", "3/3 0000000000"}
	if !reflect.DeepEqual(progress, wantProgress) {
		t.Errorf("Progress notifications out of order: %v", progress)
	}
}

func TestFetchAllStopsWhenCanceled(t *testing.T) {
	f := newTestFetcher(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	records := f.FetchAll(ctx, []string{"9780140449266", "9780261102217", "9780547928227"}, func(done, total int, rec *models.BookRecord) {
		if done == 1 {
			cancel()
		}
	})

	if len(records) != 1 {
		t.Fatalf("Expected the batch to stop after the in-flight identifier, got %d records", len(records))
	}
}
