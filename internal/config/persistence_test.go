// file: internal/config/persistence_test.go
// version: 1.0.0
// guid: f2a11b6c-14ee-497d-a336-07a894eda491

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func resetConfigTestState() {
	viper.Reset()
	AppConfig = Config{}
}

func TestConfigFilePath(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	if path := ConfigFilePath(); path != "" {
		t.Errorf("expected empty path without cache dir, got '%s'", path)
	}

	AppConfig.CacheDir = "/data/cataloger"
	expected := filepath.Join("/data/cataloger", "config.yaml")
	if path := ConfigFilePath(); path != expected {
		t.Errorf("expected '%s', got '%s'", expected, path)
	}
}

func TestSaveAndLoadConfigFile(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	dir := t.TempDir()
	AppConfig.CacheDir = dir
	AppConfig.CacheBackend = "pebble"
	AppConfig.ImageDir = filepath.Join(dir, "images")
	AppConfig.Contact = "ops@example.com"
	AppConfig.APIKeys.HardcoverToken = "hc-token"
	AppConfig.APIKeys.GoogleBooksKey = "gb-key"

	if err := SaveConfigToFile(); err != nil {
		t.Fatalf("SaveConfigToFile failed: %v", err)
	}

	info, err := os.Stat(ConfigFilePath())
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	// Simulate a fresh start where flags/env left the secrets empty.
	AppConfig = Config{CacheDir: dir}
	if err := LoadConfigFromFile(); err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}

	if AppConfig.APIKeys.HardcoverToken != "hc-token" {
		t.Errorf("expected hardcover token from file, got '%s'", AppConfig.APIKeys.HardcoverToken)
	}
	if AppConfig.APIKeys.GoogleBooksKey != "gb-key" {
		t.Errorf("expected google books key from file, got '%s'", AppConfig.APIKeys.GoogleBooksKey)
	}
	if AppConfig.Contact != "ops@example.com" {
		t.Errorf("expected contact from file, got '%s'", AppConfig.Contact)
	}
}

func TestLoadConfigFromFileFillsGapsOnly(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	dir := t.TempDir()
	AppConfig.CacheDir = dir
	AppConfig.APIKeys.HardcoverToken = "file-token"
	if err := SaveConfigToFile(); err != nil {
		t.Fatalf("SaveConfigToFile failed: %v", err)
	}

	// A value supplied by flags or env must not be overwritten by the file.
	AppConfig = Config{CacheDir: dir}
	AppConfig.APIKeys.HardcoverToken = "flag-token"
	if err := LoadConfigFromFile(); err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}

	if AppConfig.APIKeys.HardcoverToken != "flag-token" {
		t.Errorf("expected flag value to win, got '%s'", AppConfig.APIKeys.HardcoverToken)
	}
}

func TestLoadConfigFromFileMissingFile(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	AppConfig.CacheDir = t.TempDir()
	if err := LoadConfigFromFile(); err != nil {
		t.Errorf("expected nil error for missing file, got %v", err)
	}
}

func TestLoadConfigFromFileMalformedYAML(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)

	dir := t.TempDir()
	AppConfig.CacheDir = dir
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Malformed files are logged and skipped, never fatal.
	if err := LoadConfigFromFile(); err != nil {
		t.Errorf("expected nil error for malformed file, got %v", err)
	}
}
