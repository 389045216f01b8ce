// file: internal/testutil/providers.go
// version: 1.0.0
// guid: 60657fe3-e890-4642-a078-1ce880398bfc

package testutil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestISBN resolves against every fake provider route.
const TestISBN = "9780140449266"

// hardcoverOdysseyTemplate takes the cover image URL.
const hardcoverOdysseyTemplate = `{
	"data": {
		"editions": [{
			"title": "The Odyssey",
			"pages": 541,
			"image": {"url": "%s"},
			"book": {
				"title": "The Odyssey",
				"description": "Homer's epic of Odysseus' ten-year voyage home from Troy.",
				"cached_tags": {"Genre": [{"tag": "Classics"}, {"tag": "Poetry"}]},
				"contributions": [{"author": {"name": "Homer"}}]
			}
		}]
	}
}`

const hardcoverEmptyResponse = `{"data":{"editions":[]}}`

// openLibraryEditionResponse carries no description so clients must follow
// the work reference.
const openLibraryEditionResponse = `{
	"title": "The Odyssey",
	"number_of_pages": 541,
	"authors": [{"key": "/authors/OL231744A"}],
	"works": [{"key": "/works/OL61981W"}]
}`

const openLibraryWorkResponse = `{
	"description": {"type": "/type/text", "value": "Homer's epic of Odysseus' ten-year voyage home from Troy."},
	"subjects": ["Classics", "Epic poetry"]
}`

const openLibraryAuthorResponse = `{"name": "Homer"}`

// googleBooksOdysseyTemplate takes the thumbnail URL.
const googleBooksOdysseyTemplate = `{
	"totalItems": 1,
	"items": [{
		"volumeInfo": {
			"title": "The Odyssey",
			"authors": ["Homer"],
			"description": "Homer's epic of Odysseus' ten-year voyage home from Troy.",
			"pageCount": 541,
			"categories": ["Poetry"],
			"imageLinks": {"thumbnail": "%s"}
		},
		"saleInfo": {"listPrice": {"amount": 14.99}}
	}]
}`

const googleBooksEmptyResponse = `{"totalItems":0}`

// NewProviderServer starts one httptest server mimicking every upstream the
// resolver talks to: the Hardcover GraphQL endpoint, Open Library
// edition/work/author JSON, the Google Books volumes API, the bookcover
// discovery API, and cover image hosting. Only TestISBN resolves; any other
// identifier gets the real-world miss behavior (404s, empty result sets, and
// an undersized placeholder image).
func NewProviderServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	coverURL := srv.URL + "/static/cover.jpg"
	cover := bytes.Repeat([]byte{0xFF}, 2048)
	placeholder := []byte("GIF89a") // what cover hosts serve for unknown ISBNs

	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(body), TestISBN) {
			fmt.Fprintf(w, hardcoverOdysseyTemplate, coverURL)
			return
		}
		fmt.Fprint(w, hardcoverEmptyResponse)
	})

	mux.HandleFunc("/isbn/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/isbn/"+TestISBN+".json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openLibraryEditionResponse)
	})
	mux.HandleFunc("/works/OL61981W.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openLibraryWorkResponse)
	})
	mux.HandleFunc("/authors/OL231744A.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openLibraryAuthorResponse)
	})

	mux.HandleFunc("/books/v1/volumes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "isbn:"+TestISBN {
			fmt.Fprintf(w, googleBooksOdysseyTemplate, coverURL)
			return
		}
		fmt.Fprint(w, googleBooksEmptyResponse)
	})

	mux.HandleFunc("/bookcover", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("isbn") != TestISBN {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"url": %q}`, coverURL)
	})

	mux.HandleFunc("/static/cover.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(cover)
	})
	mux.HandleFunc("/covers/b/isbn/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		if strings.Contains(r.URL.Path, TestISBN) {
			_, _ = w.Write(cover)
			return
		}
		_, _ = w.Write(placeholder)
	})

	return srv
}
