// file: internal/cache/store.go
// version: 1.0.0
// guid: 4d8e2f6a-9b1c-4d3e-8f5a-7c9e1b3d5f7a

package cache

import (
	"fmt"
	"time"

	"github.com/jdfalk/book-cataloger/internal/models"
)

// DefaultTTL is how long a cached resolution stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// Entry is one cached resolution: the metadata blob plus the raw cover
// image bytes and their provenance. StoredAt is stamped at write time; an
// entry older than the store's TTL is treated as absent.
type Entry struct {
	ISBN        string            `json:"isbn"`
	Metadata    models.BookRecord `json:"metadata"`
	Image       []byte            `json:"-"`
	ImageSource string            `json:"image_source,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	StoredAt    time.Time         `json:"stored_at"`
}

// Expired reports whether the entry is older than ttl at the given instant.
func (e *Entry) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.StoredAt) > ttl
}

// Store is the persistent resolution cache. Implementations must fail
// closed: any storage error on read behaves as a miss so resolution can
// proceed against the providers.
//
// This abstraction allows both PebbleDB (default) and SQLite3 backends.
type Store interface {
	// Get returns the entry for an ISBN, or (nil, false) when absent,
	// expired, or unreadable. Reading an expired entry deletes it.
	Get(isbn string) (*Entry, bool)

	// Put upserts the resolution for an ISBN, stamping the current time.
	// image may be nil when no cover was obtained.
	Put(isbn string, rec *models.BookRecord, image []byte) error

	// Delete removes a single entry. Missing entries are not an error.
	Delete(isbn string) error

	// Count returns the number of stored entries, expired ones included.
	Count() (int, error)

	// Purge removes every entry and returns how many were dropped.
	Purge() (int, error)

	Close() error
}

// Open initializes a cache store of the given backend at path.
// Supported backends: "pebble" (default when empty) and "sqlite".
func Open(backend, path string, ttl time.Duration) (Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch backend {
	case "pebble", "":
		store, err := NewPebbleStore(path, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PebbleDB cache: %w", err)
		}
		return store, nil
	case "sqlite", "sqlite3":
		store, err := NewSQLiteStore(path, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite cache: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s (supported: pebble, sqlite)", backend)
	}
}
