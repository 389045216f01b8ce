// file: internal/server/middleware/ratelimit.go
// version: 1.0.0
// guid: 1bb90ce5-49ff-4732-afa1-2276f9d86361

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL drops buckets for IPs that have gone quiet.
const limiterIdleTTL = 15 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter is a per-IP token bucket. The burst is the window allowance
// (a client can submit that many requests back to back), refilled at
// requestsPerMin per minute.
type IPRateLimiter struct {
	mu             sync.Mutex
	clients        map[string]*clientBucket
	requestsPerMin int
	burst          int
}

func NewIPRateLimiter(requestsPerMinute, burst int) *IPRateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		clients:        make(map[string]*clientBucket),
		requestsPerMin: requestsPerMinute,
		burst:          burst,
	}
}

func (r *IPRateLimiter) bucketForIP(ip string) *rate.Limiter {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Lazy sweep of idle clients so the map stays bounded.
	for key, b := range r.clients {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(r.clients, key)
		}
	}

	b, ok := r.clients[ip]
	if !ok {
		perSecond := float64(r.requestsPerMin) / 60.0
		b = &clientBucket{
			limiter:  rate.NewLimiter(rate.Limit(perSecond), r.burst),
			lastSeen: now,
		}
		r.clients[ip] = b
		return b.limiter
	}

	b.lastSeen = now
	return b.limiter
}

// Middleware returns a Gin middleware that enforces the configured limit.
func (r *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !r.bucketForIP(ip).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Please wait a minute and try again.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
