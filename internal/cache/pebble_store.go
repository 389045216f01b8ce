// file: internal/cache/pebble_store.go
// version: 1.0.0
// guid: 7a3c9e1b-5d2f-4a6c-b8e0-3f7a9c1e5b2d

package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cockroachdb/pebble/v2"

	"github.com/jdfalk/book-cataloger/internal/models"
)

// Key schema:
// - book:<isbn> -> Entry JSON (metadata, provenance, stored_at)
// - img:<isbn>  -> raw cover image bytes
const (
	prefixBook  = "book:"
	prefixImage = "img:"
)

// PebbleStore implements Store using PebbleDB (LSM key-value store).
type PebbleStore struct {
	db  *pebble.DB
	ttl time.Duration
}

// NewPebbleStore opens or creates a PebbleDB cache at path.
func NewPebbleStore(path string, ttl time.Duration) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	log.Printf("[INFO] Cache: PebbleDB opened at %s (ttl: %s)", path, ttl)
	return &PebbleStore{db: db, ttl: ttl}, nil
}

// Get returns the cached entry for an ISBN. Expired entries are deleted
// on read. Storage and decode errors degrade to a miss.
func (s *PebbleStore) Get(isbn string) (*Entry, bool) {
	val, closer, err := s.db.Get([]byte(prefixBook + isbn))
	if err == pebble.ErrNotFound {
		return nil, false
	}
	if err != nil {
		log.Printf("[WARN] Cache: read failed for %s: %v", isbn, err)
		return nil, false
	}

	var entry Entry
	decodeErr := json.Unmarshal(val, &entry)
	closer.Close()
	if decodeErr != nil {
		log.Printf("[WARN] Cache: corrupt entry for %s: %v", isbn, decodeErr)
		return nil, false
	}

	if entry.Expired(s.ttl, time.Now()) {
		log.Printf("[DEBUG] Cache: entry for %s expired, purging", isbn)
		if err := s.Delete(isbn); err != nil {
			log.Printf("[WARN] Cache: failed to purge expired entry for %s: %v", isbn, err)
		}
		return nil, false
	}

	if img, imgCloser, err := s.db.Get([]byte(prefixImage + isbn)); err == nil {
		entry.Image = make([]byte, len(img))
		copy(entry.Image, img)
		imgCloser.Close()
	} else if err != pebble.ErrNotFound {
		log.Printf("[WARN] Cache: image read failed for %s: %v", isbn, err)
	}

	return &entry, true
}

// Put upserts the resolution for an ISBN, stamping the current time.
func (s *PebbleStore) Put(isbn string, rec *models.BookRecord, image []byte) error {
	entry := Entry{
		ISBN:        isbn,
		Metadata:    *rec,
		ImageSource: rec.ImageSource,
		ImageURL:    rec.ImageURL,
		StoredAt:    time.Now(),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	batch := s.db.NewBatch()
	if err := batch.Set([]byte(prefixBook+isbn), data, pebble.NoSync); err != nil {
		return fmt.Errorf("batch set failed: %w", err)
	}
	if len(image) > 0 {
		if err := batch.Set([]byte(prefixImage+isbn), image, pebble.NoSync); err != nil {
			return fmt.Errorf("batch set failed: %w", err)
		}
	} else {
		if err := batch.Delete([]byte(prefixImage+isbn), pebble.NoSync); err != nil {
			return fmt.Errorf("batch delete failed: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("batch commit failed: %w", err)
	}
	return nil
}

// Delete removes an entry and its image.
func (s *PebbleStore) Delete(isbn string) error {
	batch := s.db.NewBatch()
	if err := batch.Delete([]byte(prefixBook+isbn), pebble.NoSync); err != nil {
		return err
	}
	if err := batch.Delete([]byte(prefixImage+isbn), pebble.NoSync); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Count returns the number of stored entries.
func (s *PebbleStore) Count() (int, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixBook),
		UpperBound: []byte(prefixBook + "\xff"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}
	return count, iter.Error()
}

// Purge removes every entry and returns how many were dropped.
func (s *PebbleStore) Purge() (int, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefixBook),
		UpperBound: []byte(prefixBook + "\xff"),
	})
	if err != nil {
		return 0, err
	}

	var isbns []string
	for iter.First(); iter.Valid(); iter.Next() {
		isbns = append(isbns, string(iter.Key()[len(prefixBook):]))
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return 0, err
	}
	iter.Close()

	for _, isbn := range isbns {
		if err := s.Delete(isbn); err != nil {
			return 0, fmt.Errorf("failed to purge %s: %w", isbn, err)
		}
	}
	return len(isbns), nil
}

// Close closes the underlying PebbleDB.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
