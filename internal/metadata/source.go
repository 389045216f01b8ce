// file: internal/metadata/source.go
// version: 1.0.0
// guid: 272b464b-6b57-48c9-86f6-8e624021ac16

package metadata

import (
	"context"
	"strings"
)

// defaultUserAgent identifies outbound requests until the caller installs a
// contact-aware tag via SetUserAgent.
const defaultUserAgent = "book-cataloger/dev"

// genreLimit caps how many genre tags a single provider contributes.
const genreLimit = 5

// BookMetadata is one provider's answer for a single ISBN. Fields a provider
// cannot supply are left zero; the resolution engine merges answers under a
// first-writer-wins policy.
type BookMetadata struct {
	ISBN         string
	Title        string
	Author       string
	Description  string
	PageCount    int
	Price        string
	Genres       []string
	CoverURL     string
	ThumbnailURL string
}

// Provider is a pluggable metadata source queried by ISBN.
//
// Implementations return (nil, nil) for a clean "no match" and reserve the
// error for transport or decoding problems. The caller treats both the same
// way: this provider has nothing to contribute, move down the waterfall.
type Provider interface {
	Name() string
	FetchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
}

// ImageSource resolves a candidate cover image URL for an ISBN without
// supplying any metadata. ("", nil) means no candidate. Name returns the
// provenance token recorded on records whose stored image came from this
// source.
type ImageSource interface {
	Name() string
	CoverURL(ctx context.Context, isbn string) (string, error)
}

// capGenres trims, drops empties, and bounds a provider's genre tags.
func capGenres(tags []string) []string {
	out := make([]string, 0, genreLimit)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == genreLimit {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
