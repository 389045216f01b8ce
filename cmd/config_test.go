// file: cmd/config_test.go
// version: 1.0.0
// guid: 274e7ec8-6922-43f7-b88a-56c72df8c258

package cmd

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jdfalk/book-cataloger/internal/config"
)

func TestConfigShowMasksSecrets(t *testing.T) {
	origConfig := config.AppConfig
	defer func() {
		config.AppConfig = origConfig
	}()

	config.AppConfig = config.Config{
		CacheDir:     "/tmp/cataloger",
		CacheBackend: "pebble",
		CacheTTL:     168 * time.Hour,
		LogLevel:     "info",
	}
	config.AppConfig.APIKeys.HardcoverToken = "super-secret-token"

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	origStdout := os.Stdout
	os.Stdout = w
	defer func() {
		os.Stdout = origStdout
	}()

	runConfigShow()
	_ = w.Close()

	output, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	got := string(output)
	if strings.Contains(got, "super-secret-token") {
		t.Fatal("expected token to be masked")
	}
	if !strings.Contains(got, "(set)") {
		t.Fatalf("expected set marker, got %q", got)
	}
	if !strings.Contains(got, "pebble") {
		t.Fatalf("expected backend in output, got %q", got)
	}
}

func TestConfigSaveCommand(t *testing.T) {
	origConfig := config.AppConfig
	defer func() {
		config.AppConfig = origConfig
	}()

	config.AppConfig = config.Config{
		CacheDir:     t.TempDir(),
		CacheBackend: "pebble",
		CacheTTL:     168 * time.Hour,
		LogLevel:     "info",
	}
	config.AppConfig.APIKeys.HardcoverToken = "tok-123"

	if err := configSaveCmd.RunE(configSaveCmd, nil); err != nil {
		t.Fatalf("config save failed: %v", err)
	}

	data, err := os.ReadFile(config.ConfigFilePath())
	if err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}
	if !strings.Contains(string(data), "hardcover_api_token: tok-123") {
		t.Fatalf("expected token persisted, got %q", string(data))
	}
}

func TestOrUnset(t *testing.T) {
	if got := orUnset(""); got != "(not set)" {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if got := orUnset("me@example.com"); got != "me@example.com" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
