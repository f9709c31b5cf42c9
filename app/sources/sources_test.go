package sources

import (
	"os"
	"path/filepath"
	"testing"
)

const validSources = `
articles:
  - https://morningshots.example.com/feed
  - https://thetriad.example.com/feed
  - https://morningshots.example.com/feed
podcasts:
  - https://feeds.example.fm/show
channels:
  - UCsT0YIqwnpJCM-mx7-gSA4Q
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(validSources))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(s.Articles) != 2 {
		t.Errorf("Expected 2 deduplicated article feeds, got %d", len(s.Articles))
	}
	if len(s.Podcasts) != 1 {
		t.Errorf("Expected 1 podcast feed, got %d", len(s.Podcasts))
	}
	if len(s.Channels) != 1 || s.Channels[0] != "UCsT0YIqwnpJCM-mx7-gSA4Q" {
		t.Errorf("Expected channel id, got %v", s.Channels)
	}
	if s.Count() != 4 {
		t.Errorf("Expected 4 sources, got %d", s.Count())
	}
}

func TestParseRejectsInvalidURL(t *testing.T) {
	_, err := Parse([]byte("articles:\n  - ftp://example.com/feed\n"))
	if err == nil {
		t.Error("Expected error for non-HTTP URL")
	}

	_, err = Parse([]byte("channels:\n  - \"\"\n"))
	if err == nil {
		t.Error("Expected error for empty channel id")
	}
}

func TestRegistryLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yml")
	if err := os.WriteFile(path, []byte(validSources), 0o644); err != nil {
		t.Fatalf("Failed to write sources file: %v", err)
	}

	registry := NewRegistry(path)
	if err := registry.Load(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	s := registry.Get()
	if s.Count() != 4 {
		t.Errorf("Expected 4 sources, got %d", s.Count())
	}

	s.Articles[0] = "mutated"
	if registry.Get().Articles[0] == "mutated" {
		t.Error("Expected Get to return a copy")
	}
}

func TestRegistryMissingFile(t *testing.T) {
	registry := NewRegistry(filepath.Join(t.TempDir(), "missing.yml"))
	if err := registry.Load(); err != nil {
		t.Fatalf("Expected no error for missing file, got: %v", err)
	}
	if registry.Get().Count() != 0 {
		t.Error("Expected no sources for missing file")
	}
}
