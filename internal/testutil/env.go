// file: internal/testutil/env.go
// version: 1.0.0
// guid: 1e27a7b5-b22e-4150-a39d-db9ae90be504

package testutil

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/book-cataloger/internal/cache"
	"github.com/jdfalk/book-cataloger/internal/fetcher"
	"github.com/jdfalk/book-cataloger/internal/metadata"
)

// Env holds all resources for an integration test: a fetcher wired to fake
// provider endpoints, a real pebble cache, and an image directory, all under
// a per-test temp dir.
type Env struct {
	Fetcher   *fetcher.Fetcher
	Cache     cache.Store
	ImageDir  string
	TempDir   string
	Providers *httptest.Server
	T         *testing.T
}

// SetupEnv builds the full resolution stack against NewProviderServer.
// TestISBN resolves with metadata and a cover; everything else misses.
func SetupEnv(t *testing.T) (*Env, func()) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	tmpBase := t.TempDir()
	imageDir := filepath.Join(tmpBase, "images")

	srv := NewProviderServer(t)

	store, err := cache.Open("pebble", filepath.Join(tmpBase, "cataloger.db"), cache.DefaultTTL)
	require.NoError(t, err)

	primary := metadata.NewHardcoverClientWithBaseURL(srv.URL+"/graphql", "test-token")
	registry := metadata.NewOpenLibraryClientWithBaseURL(srv.URL)
	registry.SetMinInterval(time.Millisecond)
	enrichment := metadata.NewGoogleBooksClientWithBaseURL(srv.URL + "/books/v1")
	covers := metadata.NewBookcoverClientWithBaseURL(srv.URL)
	fallback := metadata.OpenLibraryCovers{BaseURL: srv.URL + "/covers"}

	f, err := fetcher.New(fetcher.Options{
		Primary:    primary,
		Registry:   registry,
		Enrichment: enrichment,
		Covers:     covers,
		Fallback:   fallback,
		Cache:      store,
		ImageDir:   imageDir,
	})
	require.NoError(t, err)

	env := &Env{
		Fetcher:   f,
		Cache:     store,
		ImageDir:  imageDir,
		TempDir:   tmpBase,
		Providers: srv,
		T:         t,
	}

	cleanup := func() {
		store.Close()
	}

	return env, cleanup
}
