// file: internal/config/persistence.go
// version: 1.0.0
// guid: 5af15eb5-e792-4ecf-9b6b-61122aa7ed41

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFilePath returns the path to the YAML config file next to the cache
// database.
func ConfigFilePath() string {
	if AppConfig.CacheDir == "" {
		return ""
	}
	return filepath.Join(AppConfig.CacheDir, "config.yaml")
}

// LoadConfigFromFile loads settings from the YAML config file as a fallback.
// Called after flags and environment are applied, so file values only fill
// in gaps.
func LoadConfigFromFile() error {
	path := ConfigFilePath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig map[string]any
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		log.Printf("[WARN] Failed to parse config file %s: %v", path, err)
		return nil
	}

	applied := 0

	// Only fill in values that are currently empty.
	stringFallbacks := map[string]*string{
		"hardcover_api_token":  &AppConfig.APIKeys.HardcoverToken,
		"google_books_api_key": &AppConfig.APIKeys.GoogleBooksKey,
		"contact":              &AppConfig.Contact,
		"image_dir":            &AppConfig.ImageDir,
	}
	for key, ptr := range stringFallbacks {
		if *ptr == "" {
			if val, ok := fileConfig[key].(string); ok && val != "" {
				*ptr = val
				applied++
				log.Printf("[INFO] Loaded %s from config file", key)
			}
		}
	}

	if applied > 0 {
		log.Printf("Applied %d settings from config file %s", applied, path)
	}
	return nil
}

// SaveConfigToFile writes key settings to a YAML config file next to the
// cache database. Secrets are stored in plaintext here — file permissions
// restrict access.
func SaveConfigToFile() error {
	path := ConfigFilePath()
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}

	fileConfig := map[string]any{
		"cache_dir":     AppConfig.CacheDir,
		"cache_backend": AppConfig.CacheBackend,
		"cache_ttl":     AppConfig.CacheTTL.String(),
		"image_dir":     AppConfig.ImageDir,
		"log_level":     AppConfig.LogLevel,
	}

	// Only write secrets if they're set (plaintext in file, file permissions protect them)
	if AppConfig.Contact != "" {
		fileConfig["contact"] = AppConfig.Contact
	}
	if AppConfig.APIKeys.HardcoverToken != "" {
		fileConfig["hardcover_api_token"] = AppConfig.APIKeys.HardcoverToken
	}
	if AppConfig.APIKeys.GoogleBooksKey != "" {
		fileConfig["google_books_api_key"] = AppConfig.APIKeys.GoogleBooksKey
	}

	data, err := yaml.Marshal(fileConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	// Write with restrictive permissions since it may contain secrets
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("Configuration saved to file: %s", path)
	return nil
}
