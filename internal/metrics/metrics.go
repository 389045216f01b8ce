// file: internal/metrics/metrics.go
// version: 1.0.0
// guid: 4ebee9fc-c5d2-42af-a069-2c017c86bdad

package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	lookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "book_cataloger",
		Name:      "lookups_total",
		Help:      "Total number of metadata lookups by source and outcome",
	}, []string{"source", "outcome"})
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "book_cataloger",
		Name:      "cache_hits_total",
		Help:      "Total number of resolutions served from the cache",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "book_cataloger",
		Name:      "cache_misses_total",
		Help:      "Total number of resolutions that had to query providers",
	})
	imagesStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "book_cataloger",
		Name:      "cover_images_total",
		Help:      "Total number of cover images stored by source",
	}, []string{"source"})
	providerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "book_cataloger",
		Name:      "provider_requests_total",
		Help:      "Total number of outbound provider HTTP requests by provider and status code",
	}, []string{"provider", "code"})
	providerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "book_cataloger",
		Name:      "provider_request_duration_seconds",
		Help:      "Histogram of provider HTTP request durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10), // ~50ms up to several seconds
	}, []string{"provider"})
	batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "book_cataloger",
		Name:      "batch_size",
		Help:      "Histogram of identifiers per resolution batch",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8), // 1 up to 128 identifiers
	})
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "book_cataloger",
		Name:      "active_sessions",
		Help:      "Current number of live result sessions held by the web front end",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(lookupsTotal, cacheHits, cacheMisses, imagesStored,
			providerRequests, providerDuration, batchSize, activeSessions)
	})
}

// Resolution helpers
func IncLookup(source, outcome string) { lookupsTotal.WithLabelValues(source, outcome).Inc() }
func IncCacheHit()                     { cacheHits.Inc() }
func IncCacheMiss()                    { cacheMisses.Inc() }
func IncImageStored(source string)     { imagesStored.WithLabelValues(source).Inc() }
func ObserveBatchSize(n int)           { batchSize.Observe(float64(n)) }

// ObserveProviderRequest records one outbound provider call: a counter by
// status code and a duration sample.
func ObserveProviderRequest(provider string, status int, d time.Duration) {
	providerRequests.WithLabelValues(provider, strconv.Itoa(status)).Inc()
	providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// Gauges
func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }
