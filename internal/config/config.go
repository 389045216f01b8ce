// file: internal/config/config.go
// version: 1.0.0
// guid: 9d15db1d-4aea-4572-8fda-a6818690c3ec

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Version is reported by the version command and stamped into the
// outbound User-Agent.
const Version = "1.0.0"

// Config holds application configuration
type Config struct {
	CacheDir     string
	CacheBackend string // "pebble" (default) or "sqlite"
	CacheTTL     time.Duration
	ImageDir     string
	LogLevel     string
	Contact      string // appended to the User-Agent so providers can reach us
	APIKeys      struct {
		HardcoverToken string
		GoogleBooksKey string
	}
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	// Set defaults
	viper.SetDefault("cache_backend", "pebble")
	viper.SetDefault("cache_ttl", "168h")
	viper.SetDefault("log_level", "info")

	AppConfig = Config{
		CacheDir:     viper.GetString("cache_dir"),
		CacheBackend: viper.GetString("cache_backend"),
		CacheTTL:     viper.GetDuration("cache_ttl"),
		ImageDir:     viper.GetString("image_dir"),
		LogLevel:     viper.GetString("log_level"),
		Contact:      viper.GetString("contact"),
	}

	// API Keys
	AppConfig.APIKeys.HardcoverToken = viper.GetString("hardcover_api_token")
	AppConfig.APIKeys.GoogleBooksKey = viper.GetString("google_books_api_key")

	if AppConfig.CacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			AppConfig.CacheDir = filepath.Join(home, ".book-cataloger")
		} else {
			AppConfig.CacheDir = ".cache"
		}
	}
	if AppConfig.ImageDir == "" {
		AppConfig.ImageDir = filepath.Join(AppConfig.CacheDir, "images")
	}
	if AppConfig.CacheTTL <= 0 {
		AppConfig.CacheTTL = 7 * 24 * time.Hour
	}

	// Normalize cache backend
	if AppConfig.CacheBackend == "sqlite3" {
		AppConfig.CacheBackend = "sqlite"
	}
	if AppConfig.CacheBackend == "" {
		AppConfig.CacheBackend = "pebble"
	}
}

// CachePath returns the cache database path under CacheDir. Pebble treats
// it as a directory, SQLite as a file.
func CachePath() string {
	return filepath.Join(AppConfig.CacheDir, "cataloger.db")
}

// UserAgent identifies outbound provider requests. Open Library asks
// integrations to include contact details, so the configured contact is
// appended when present.
func UserAgent() string {
	ua := "book-cataloger/" + Version
	if AppConfig.Contact != "" {
		ua += " (" + AppConfig.Contact + ")"
	}
	return ua
}
