// file: internal/server/sessions.go
// version: 1.0.0
// guid: d87731c8-5070-4db1-955f-e37b901a4e14

package server

import (
	"sync"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/jdfalk/book-cataloger/internal/metrics"
	"github.com/jdfalk/book-cataloger/internal/models"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 500
)

// Session holds one resolved batch so its downloads can be served later
// without re-resolving.
type Session struct {
	ID        string
	Books     []*models.BookRecord
	Location  string
	CreatedAt time.Time
}

// sessionStore is an in-memory TTL store safe for concurrent use. Expired
// sessions are purged lazily on access; the total is capped to bound memory.
type sessionStore struct {
	mu   sync.Mutex
	byID map[string]*Session
	ttl  time.Duration
	max  int
}

func newSessionStore(ttl time.Duration, max int) *sessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if max < 1 {
		max = defaultMaxSessions
	}
	return &sessionStore{
		byID: make(map[string]*Session),
		ttl:  ttl,
		max:  max,
	}
}

// purgeLocked drops expired sessions. Callers hold mu.
func (s *sessionStore) purgeLocked(now time.Time) {
	for id, sess := range s.byID {
		if now.Sub(sess.CreatedAt) > s.ttl {
			delete(s.byID, id)
		}
	}
	metrics.SetActiveSessions(len(s.byID))
}

// Full reports whether the store is at capacity. Checked before a batch is
// resolved so a busy server rejects work early.
func (s *sessionStore) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(time.Now())
	return len(s.byID) >= s.max
}

// Add stores a resolved batch under a fresh ULID. Returns false when the
// store is at capacity.
func (s *sessionStore) Add(books []*models.BookRecord, location string) (*Session, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(now)
	if len(s.byID) >= s.max {
		return nil, false
	}

	sess := &Session{
		ID:        ulid.Make().String(),
		Books:     books,
		Location:  location,
		CreatedAt: now,
	}
	s.byID[sess.ID] = sess
	metrics.SetActiveSessions(len(s.byID))
	return sess, true
}

// Get returns a live session. Expired sessions are removed and reported as
// missing.
func (s *sessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	if time.Since(sess.CreatedAt) > s.ttl {
		delete(s.byID, id)
		metrics.SetActiveSessions(len(s.byID))
		return nil, false
	}
	return sess, true
}

// Len returns the number of live sessions.
func (s *sessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(time.Now())
	return len(s.byID)
}
