// file: internal/cache/sqlite_store.go
// version: 1.0.0
// guid: 2e8b4d6f-0a2c-4e8a-9c1d-5f3b7d9e1a4c

package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jdfalk/book-cataloger/internal/models"
)

// SQLiteStore implements Store using SQLite3.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore opens or creates a SQLite cache at path.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db, ttl: ttl}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[INFO] Cache: SQLite opened at %s (ttl: %s)", path, ttl)
	return store, nil
}

func (s *SQLiteStore) createTables() error {
	_, err := s.db.Exec(`
        CREATE TABLE IF NOT EXISTS books (
            isbn TEXT PRIMARY KEY,
            metadata TEXT NOT NULL,
            image BLOB,
            image_source TEXT,
            image_url TEXT,
            cached_at TIMESTAMP NOT NULL
        )
    `)
	return err
}

// Get returns the cached entry for an ISBN. Expired entries are deleted
// on read. Storage and decode errors degrade to a miss.
func (s *SQLiteStore) Get(isbn string) (*Entry, bool) {
	var (
		metadata    string
		image       []byte
		imageSource sql.NullString
		imageURL    sql.NullString
		cachedAt    time.Time
	)

	err := s.db.QueryRow(`
        SELECT metadata, image, image_source, image_url, cached_at
        FROM books WHERE isbn = ?
    `, isbn).Scan(&metadata, &image, &imageSource, &imageURL, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Printf("[WARN] Cache: read failed for %s: %v", isbn, err)
		return nil, false
	}

	entry := Entry{
		ISBN:        isbn,
		Image:       image,
		ImageSource: imageSource.String,
		ImageURL:    imageURL.String,
		StoredAt:    cachedAt,
	}
	if entry.Expired(s.ttl, time.Now()) {
		log.Printf("[DEBUG] Cache: entry for %s expired, purging", isbn)
		if err := s.Delete(isbn); err != nil {
			log.Printf("[WARN] Cache: failed to purge expired entry for %s: %v", isbn, err)
		}
		return nil, false
	}

	if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
		log.Printf("[WARN] Cache: corrupt entry for %s: %v", isbn, err)
		return nil, false
	}
	return &entry, true
}

// Put upserts the resolution for an ISBN, stamping the current time.
func (s *SQLiteStore) Put(isbn string, rec *models.BookRecord, image []byte) error {
	metadata, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = s.db.Exec(`
        INSERT OR REPLACE INTO books (isbn, metadata, image, image_source, image_url, cached_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, isbn, string(metadata), image, rec.ImageSource, rec.ImageURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes a single entry.
func (s *SQLiteStore) Delete(isbn string) error {
	_, err := s.db.Exec(`DELETE FROM books WHERE isbn = ?`, isbn)
	return err
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&count)
	return count, err
}

// Purge removes every entry and returns how many were dropped.
func (s *SQLiteStore) Purge() (int, error) {
	result, err := s.db.Exec(`DELETE FROM books`)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
