// file: internal/server/server.go
// version: 1.0.0
// guid: aa9e5ae7-86e7-4ea4-8026-800f25974dba

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdfalk/book-cataloger/internal/cache"
	"github.com/jdfalk/book-cataloger/internal/config"
	"github.com/jdfalk/book-cataloger/internal/fetcher"
	"github.com/jdfalk/book-cataloger/internal/metrics"
	"github.com/jdfalk/book-cataloger/internal/server/middleware"
)

const (
	defaultMaxBodyBytes = 50_000
	defaultRateLimit    = 10 // catalog requests per IP per minute
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	fetcher    *fetcher.Fetcher
	cache      cache.Store
	sessions   *sessionStore
}

// Options wires the server's collaborators. Zero limits fall back to the
// production defaults.
type Options struct {
	Fetcher      *fetcher.Fetcher
	Cache        cache.Store
	SessionTTL   time.Duration
	MaxSessions  int
	MaxBodyBytes int64
	RateLimit    int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// GetDefaultServerConfig returns the default server configuration
func GetDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Host:         "localhost",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new server instance
func NewServer(opts Options) *Server {
	router := gin.Default()

	// Set up middleware
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())

	// Register metrics (idempotent)
	metrics.Register()

	server := &Server{
		router:   router,
		fetcher:  opts.Fetcher,
		cache:    opts.Cache,
		sessions: newSessionStore(opts.SessionTTL, opts.MaxSessions),
	}

	server.setupRoutes(opts)

	return server
}

// Start starts the HTTP server
func (s *Server) Start(cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes(opts Options) {
	// Prometheus metrics endpoint (standard path)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint (both paths for compatibility)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/api/v1/health", s.healthCheck)

	maxBody := opts.MaxBodyBytes
	if maxBody < 1 {
		maxBody = defaultMaxBodyBytes
	}
	perMinute := opts.RateLimit
	if perMinute < 1 {
		perMinute = defaultRateLimit
	}
	limiter := middleware.NewIPRateLimiter(perMinute, perMinute)

	// API routes
	api := s.router.Group("/api/v1")
	{
		// The catalog route does the provider work, so only it is rate
		// limited and body capped.
		api.POST("/catalog",
			limiter.Middleware(),
			middleware.MaxRequestBodySize(maxBody),
			s.createCatalog)

		// Session-scoped downloads
		api.GET("/download/:session/csv", s.downloadCSV)
		api.GET("/download/:session/images", s.downloadImages)
		api.GET("/download/:session/all", s.downloadBundle)

		// Cache introspection
		api.GET("/cache/stats", s.cacheStats)
		api.DELETE("/cache", s.cacheClear)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	// Gather basic metrics; tolerate errors (don't fail health entirely)
	entries := 0
	var cacheErr error
	if s.cache != nil {
		if n, err := s.cache.Count(); err == nil {
			entries = n
		} else {
			cacheErr = err
		}
	}

	resp := gin.H{
		"status":          "ok",
		"timestamp":       time.Now().Unix(),
		"version":         config.Version,
		"sessions_active": s.sessions.Len(),
		"cache_entries":   entries,
	}
	if cacheErr != nil {
		resp["partial_error"] = cacheErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) cacheStats(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "entries": 0})
		return
	}

	count, err := s.cache.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "entries": count})
}

func (s *Server) cacheClear(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusOK, gin.H{"removed": 0})
		return
	}

	removed, err := s.cache.Purge()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[INFO] Cache cleared via API: %d entries removed", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
