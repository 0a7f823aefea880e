package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSourceConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestConfigCache_LoadAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeSourceConfig(t, dir, "newsline", `
url: https://news.example.com/rss
settings:
  enabled: true
`)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}

	if cache.GetConfigCount() != 1 {
		t.Fatalf("Expected 1 config, got %d", cache.GetConfigCount())
	}

	config, err := cache.GetConfig("newsline")
	if err != nil {
		t.Fatalf("Failed to get config: %v", err)
	}

	if config.URL != "https://news.example.com/rss" {
		t.Errorf("Unexpected URL: %s", config.URL)
	}
	if config.Settings.RefreshInterval != 3600 {
		t.Errorf("Expected default refresh interval 3600, got %d", config.Settings.RefreshInterval)
	}
	if config.Settings.MaxItems != 100 {
		t.Errorf("Expected default max items 100, got %d", config.Settings.MaxItems)
	}
	if config.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", config.Settings.Timeout)
	}
}

func TestConfigCache_EnabledFilter(t *testing.T) {
	dir := t.TempDir()
	writeSourceConfig(t, dir, "active", "url: https://a.example.com/rss\nsettings:\n  enabled: true\n")
	writeSourceConfig(t, dir, "dormant", "url: https://b.example.com/rss\nsettings:\n  enabled: false\n")

	cache := NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}

	enabled := cache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled config, got %d", len(enabled))
	}
	if _, ok := enabled["active"]; !ok {
		t.Error("Expected 'active' source to be enabled")
	}
}

func TestConfigCache_MissingURL(t *testing.T) {
	dir := t.TempDir()
	writeSourceConfig(t, dir, "broken", "settings:\n  enabled: true\n")

	cache := NewConfigCache(dir)
	if err := cache.Run(); err == nil {
		t.Error("Expected error for config without URL")
	}
}

func TestConfigCache_MissingDirectory(t *testing.T) {
	cache := NewConfigCache("/does/not/exist")
	if err := cache.Run(); err != nil {
		t.Errorf("Missing sources directory should not be an error, got: %v", err)
	}
}
