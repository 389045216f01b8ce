// file: internal/metrics/metrics_test.go
// version: 1.0.0
// guid: b58da11e-a472-42de-88ce-ec1b56d1d0a0

package metrics

import (
	"testing"
	"time"
)

func TestRegisterIdempotent(t *testing.T) {
	// MustRegister panics on duplicate registration; Register must guard it.
	Register()
	Register()
}

func TestIncLookup(t *testing.T) {
	IncLookup("hardcover", "found")
	IncLookup("open_library", "missing")
}

func TestCacheCounters(t *testing.T) {
	IncCacheHit()
	IncCacheMiss()
}

func TestIncImageStored(t *testing.T) {
	IncImageStored("bookcover_api")
}

func TestObserveProviderRequest(t *testing.T) {
	ObserveProviderRequest("google_books", 200, 120*time.Millisecond)
	ObserveProviderRequest("google_books", 429, 5*time.Millisecond)
}

func TestObserveBatchSize(t *testing.T) {
	ObserveBatchSize(3)
	ObserveBatchSize(100)
}

func TestSetActiveSessions(t *testing.T) {
	SetActiveSessions(7)
	SetActiveSessions(0)
}
