// file: internal/fetcher/fetcher.go
// version: 1.0.0
// guid: 9c72b52d-913d-4a0a-ba84-c3e5fc675147

package fetcher

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jdfalk/book-cataloger/internal/cache"
	"github.com/jdfalk/book-cataloger/internal/metadata"
	"github.com/jdfalk/book-cataloger/internal/metrics"
	"github.com/jdfalk/book-cataloger/internal/models"
)

// imageMinBytes rejects placeholder responses: providers serve tiny blank
// images or HTML error pages with a 200 status for unknown ISBNs.
const imageMinBytes = 1000

// Options wires a Fetcher. Primary, Registry, Enrichment, Covers, Fallback
// and Cache may each be nil; the corresponding stage is skipped.
type Options struct {
	Primary    metadata.Provider    // authoritative; a title match skips the registry
	Registry   metadata.Provider    // public registry fallback
	Enrichment metadata.Provider    // fills description/price/thumbnail gaps
	Covers     metadata.ImageSource // cover-specific discovery API
	Fallback   metadata.ImageSource // deterministic last-resort URL
	Cache      cache.Store
	ImageDir   string
	UserAgent  string
	HTTPClient *http.Client // image downloads; defaults to a 15s timeout
}

// Fetcher resolves metadata and a cover image per ISBN: cache check,
// metadata waterfall, image waterfall, cache write. One Fetcher drives one
// batch at a time; provider throttle and circuit state live inside the
// injected clients.
type Fetcher struct {
	primary    metadata.Provider
	registry   metadata.Provider
	enrichment metadata.Provider
	covers     metadata.ImageSource
	fallback   metadata.ImageSource
	cache      cache.Store
	imageDir   string
	userAgent  string
	httpClient *http.Client
}

// New creates a Fetcher and its image directory.
func New(opts Options) (*Fetcher, error) {
	if err := os.MkdirAll(opts.ImageDir, 0o755); err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{
		primary:    opts.Primary,
		registry:   opts.Registry,
		enrichment: opts.Enrichment,
		covers:     opts.Covers,
		fallback:   opts.Fallback,
		cache:      opts.Cache,
		imageDir:   opts.ImageDir,
		userAgent:  opts.UserAgent,
		httpClient: httpClient,
	}, nil
}

// FetchBook resolves a single ISBN. The returned record always exists; total
// provider failure shows up as diagnostics on it, never as an error.
func (f *Fetcher) FetchBook(ctx context.Context, isbn string) *models.BookRecord {
	rec := models.NewBookRecord(isbn)

	if f.cache != nil {
		if entry, ok := f.cache.Get(isbn); ok {
			metrics.IncCacheHit()
			metrics.IncLookup("cache", "found")
			f.restoreFromCache(rec, entry)
			return rec
		}
		metrics.IncCacheMiss()
	}

	primaryMeta, enrichMeta := f.resolveMetadata(ctx, rec)
	image := f.resolveImage(ctx, rec, primaryMeta, enrichMeta)

	// Failed lookups stay uncached so a later run can retry them.
	if f.cache != nil && rec.HasTitle() {
		if err := f.cache.Put(isbn, rec, image); err != nil {
			log.Printf("[WARN] Cache: failed to store %s: %v", isbn, err)
		}
	}

	return rec
}

// FetchAll resolves a batch strictly sequentially, emitting onProgress after
// each identifier, in submission order. Duplicates are resolved
// independently; deduplication is the caller's concern. A canceled context
// stops the batch between identifiers and returns the partial results.
func (f *Fetcher) FetchAll(ctx context.Context, isbns []string, onProgress func(done, total int, rec *models.BookRecord)) []*models.BookRecord {
	if r, ok := f.enrichment.(interface{ ResetCircuit() }); ok {
		r.ResetCircuit()
	}
	metrics.ObserveBatchSize(len(isbns))

	results := make([]*models.BookRecord, 0, len(isbns))
	for i, isbn := range isbns {
		select {
		case <-ctx.Done():
			log.Printf("[WARN] Batch canceled after %d of %d identifiers", i, len(isbns))
			return results
		default:
		}

		rec := f.FetchBook(ctx, isbn)
		results = append(results, rec)
		if onProgress != nil {
			onProgress(i+1, len(isbns), rec)
		}
	}
	return results
}

// resolveMetadata runs the metadata waterfall: primary, registry when the
// primary found no title, then enrichment when description or price is
// still missing. Returns the primary and enrichment answers so the image
// stage can reuse their cover URLs without extra calls.
func (f *Fetcher) resolveMetadata(ctx context.Context, rec *models.BookRecord) (primaryMeta, enrichMeta *metadata.BookMetadata) {
	isbn := rec.ISBN

	if f.primary != nil {
		meta, err := f.primary.FetchByISBN(ctx, isbn)
		if err != nil {
			log.Printf("[WARN] %s: lookup for %s failed: %v", f.primary.Name(), isbn, err)
		}
		if meta != nil {
			primaryMeta = meta
			applyMetadata(rec, meta)
		}
		metrics.IncLookup(sourceLabel(f.primary.Name()), lookupOutcome(meta, err))
	}

	if !rec.HasTitle() && f.registry != nil {
		meta, err := f.registry.FetchByISBN(ctx, isbn)
		if err != nil {
			log.Printf("[WARN] %s: lookup for %s failed: %v", f.registry.Name(), isbn, err)
		}
		if meta != nil {
			applyMetadata(rec, meta)
		}
		metrics.IncLookup(sourceLabel(f.registry.Name()), lookupOutcome(meta, err))
	}

	if (rec.Description == "" || rec.Price == "") && f.enrichment != nil {
		meta, err := f.enrichment.FetchByISBN(ctx, isbn)
		if err != nil {
			log.Printf("[WARN] %s: lookup for %s failed: %v", f.enrichment.Name(), isbn, err)
		}
		if meta != nil {
			enrichMeta = meta
			applyMetadata(rec, meta)
		}
		metrics.IncLookup(sourceLabel(f.enrichment.Name()), lookupOutcome(meta, err))
	}

	if !rec.HasTitle() {
		log.Printf("[INFO] No metadata found for %s", isbn)
		rec.AddError("No metadata found")
	}
	return primaryMeta, enrichMeta
}

// resolveImage runs the image waterfall and returns the stored bytes, if
// any, for the cache write. Order: the primary's cover URL, the cover
// discovery API, the enrichment thumbnail, the deterministic fallback.
// The first download that passes validation wins.
func (f *Fetcher) resolveImage(ctx context.Context, rec *models.BookRecord, primaryMeta, enrichMeta *metadata.BookMetadata) []byte {
	isbn := rec.ISBN

	if primaryMeta != nil && primaryMeta.CoverURL != "" {
		if data := f.downloadImage(ctx, rec, primaryMeta.CoverURL, sourceLabel(f.primary.Name())); data != nil {
			return data
		}
	}

	if f.covers != nil {
		coverURL, err := f.covers.CoverURL(ctx, isbn)
		if err != nil {
			log.Printf("[DEBUG] %s: cover lookup for %s failed: %v", f.covers.Name(), isbn, err)
		} else if coverURL != "" {
			if data := f.downloadImage(ctx, rec, coverURL, f.covers.Name()); data != nil {
				return data
			}
		}
	}

	if enrichMeta != nil && enrichMeta.ThumbnailURL != "" {
		if data := f.downloadImage(ctx, rec, enrichMeta.ThumbnailURL, sourceLabel(f.enrichment.Name())); data != nil {
			return data
		}
	}

	if f.fallback != nil {
		coverURL, err := f.fallback.CoverURL(ctx, isbn)
		if err == nil && coverURL != "" {
			if data := f.downloadImage(ctx, rec, coverURL, f.fallback.Name()); data != nil {
				return data
			}
		}
	}

	log.Printf("[INFO] No cover image found for %s", isbn)
	rec.AddError("No cover image found")
	return nil
}

// downloadImage fetches url and stores it as {imageDir}/{isbn}.jpg when it
// passes validation. Returns the stored bytes, or nil when the candidate
// was rejected.
func (f *Fetcher) downloadImage(ctx context.Context, rec *models.BookRecord, url, source string) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Printf("[DEBUG] Image download for %s: bad URL %q: %v", rec.ISBN, url, err)
		return nil
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Printf("[DEBUG] Image download for %s from %s failed: %v", rec.ISBN, url, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[DEBUG] Image download for %s from %s returned status %d", rec.ISBN, url, resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[DEBUG] Image download for %s from %s read failed: %v", rec.ISBN, url, err)
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	if len(data) < imageMinBytes || strings.Contains(contentType, "text/html") {
		log.Printf("[DEBUG] Image from %s for %s rejected (%d bytes, %q)", source, rec.ISBN, len(data), contentType)
		return nil
	}

	path := filepath.Join(f.imageDir, rec.ISBN+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[WARN] Failed to write image for %s: %v", rec.ISBN, err)
		return nil
	}

	rec.ImagePath = path
	rec.ImageURL = url
	rec.ImageSource = source
	metrics.IncImageStored(source)
	return data
}

// restoreFromCache rebuilds the record from a cache entry, materializing the
// cached image bytes into the current image directory.
func (f *Fetcher) restoreFromCache(rec *models.BookRecord, entry *cache.Entry) {
	isbn := rec.ISBN
	*rec = entry.Metadata
	rec.ISBN = isbn
	rec.ImagePath = ""
	rec.ImageSource = entry.ImageSource
	rec.ImageURL = entry.ImageURL

	if len(entry.Image) > 0 {
		path := filepath.Join(f.imageDir, isbn+".jpg")
		if err := os.WriteFile(path, entry.Image, 0o644); err != nil {
			log.Printf("[WARN] Failed to materialize cached image for %s: %v", isbn, err)
		} else {
			rec.ImagePath = path
		}
	}
	log.Printf("[DEBUG] Cache hit for %s", isbn)
}

// applyMetadata copies provider fields onto the record, filling only what is
// still empty. Applied at every stage boundary so the first-writer-wins
// precedence stays auditable in one place.
func applyMetadata(rec *models.BookRecord, meta *metadata.BookMetadata) {
	models.FillString(&rec.Title, meta.Title)
	models.FillString(&rec.Author, meta.Author)
	models.FillString(&rec.Description, meta.Description)
	models.FillInt(&rec.PageCount, meta.PageCount)
	models.FillString(&rec.Price, meta.Price)
	models.FillGenres(&rec.Genres, meta.Genres)
}

func sourceLabel(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func lookupOutcome(meta *metadata.BookMetadata, err error) string {
	switch {
	case err != nil:
		return "error"
	case meta != nil && meta.Title != "":
		return "found"
	default:
		return "missing"
	}
}
