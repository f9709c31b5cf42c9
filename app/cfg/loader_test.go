package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TZ", "UTC")

	cfg, err := load([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Command != "serve" {
		t.Errorf("Expected command 'serve', got '%s'", cfg.Command)
	}
	if cfg.PageSize != 10 {
		t.Errorf("Expected page size 10, got %d", cfg.PageSize)
	}
	if cfg.FetchTimeout != 20*time.Second {
		t.Errorf("Expected fetch timeout 20s, got %s", cfg.FetchTimeout)
	}
	if cfg.SchedulerInterval != 15*time.Minute {
		t.Errorf("Expected scheduler interval 15m, got %s", cfg.SchedulerInterval)
	}
	if cfg.VideoPageSize != 10 || cfg.VideoMaxPages != 1 {
		t.Errorf("Expected video paging 10x1, got %dx%d", cfg.VideoPageSize, cfg.VideoMaxPages)
	}
	if cfg.RedisURL != "" {
		t.Errorf("Expected no Redis URL by default, got '%s'", cfg.RedisURL)
	}

	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFlags(t *testing.T) {
	t.Setenv("TZ", "UTC")

	cfg, err := load([]string{
		"--command", "ingest",
		"--db-path", ":memory:",
		"--page-size", "25",
		"--youtube-api-key", "key",
		"--extract-content",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Command != "ingest" {
		t.Errorf("Expected command 'ingest', got '%s'", cfg.Command)
	}
	if cfg.DBPath != ":memory:" {
		t.Errorf("Expected db path ':memory:', got '%s'", cfg.DBPath)
	}
	if cfg.PageSize != 25 {
		t.Errorf("Expected page size 25, got %d", cfg.PageSize)
	}
	if cfg.YouTubeAPIKey != "key" {
		t.Errorf("Expected API key 'key', got '%s'", cfg.YouTubeAPIKey)
	}
	if !cfg.ExtractContent {
		t.Error("Expected content extraction to be enabled")
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("PAGE_SIZE", "5")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := load([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.PageSize != 5 {
		t.Errorf("Expected page size 5, got %d", cfg.PageSize)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("Expected Redis URL from environment, got '%s'", cfg.RedisURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("TZ", "UTC")

	invalid := [][]string{
		{"--page-size", "0"},
		{"--video-page-size", "51"},
		{"--fetch-retries", "-1"},
		{"--command", "deploy"},
	}

	for _, args := range invalid {
		if _, err := load(args); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}
