package sources

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Sources lists every upstream the ingestion run reads from.
type Sources struct {
	Articles []string `yaml:"articles"`
	Podcasts []string `yaml:"podcasts"`
	Channels []string `yaml:"channels"`
}

func (s Sources) Count() int {
	return len(s.Articles) + len(s.Podcasts) + len(s.Channels)
}

// Registry caches the sources file and reloads it on demand.
type Registry struct {
	path    string
	current Sources
	mu      sync.RWMutex
}

func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Load reads the sources file. A missing file yields an empty source list.
func (r *Registry) Load() error {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		slog.Warn("Sources file not found, nothing to ingest", "path", r.path)
		r.set(Sources{})
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read sources file: %w", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		return fmt.Errorf("invalid sources file %s: %w", r.path, err)
	}

	r.set(parsed)

	slog.Debug("Sources loaded", "path", r.path, "articles", len(parsed.Articles), "podcasts", len(parsed.Podcasts), "channels", len(parsed.Channels))
	return nil
}

func (r *Registry) Get() Sources {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Sources{
		Articles: slices.Clone(r.current.Articles),
		Podcasts: slices.Clone(r.current.Podcasts),
		Channels: slices.Clone(r.current.Channels),
	}
}

func (r *Registry) set(s Sources) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = s
}

// Parse decodes and validates a sources document. Duplicate entries are
// dropped in place.
func Parse(data []byte) (Sources, error) {
	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Sources{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for kind, urls := range map[string][]string{"articles": s.Articles, "podcasts": s.Podcasts} {
		for i, raw := range urls {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return Sources{}, fmt.Errorf("invalid %s URL at index %d: %q", kind, i, raw)
			}
		}
	}

	for i, channel := range s.Channels {
		if channel == "" {
			return Sources{}, fmt.Errorf("empty channel id at index %d", i)
		}
	}

	s.Articles = unique(s.Articles)
	s.Podcasts = unique(s.Podcasts)
	s.Channels = unique(s.Channels)

	return s, nil
}

func unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
