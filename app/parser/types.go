package parser

import (
	"context"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
)

// Fetcher retrieves a raw document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Collector gathers items of one content type from all of its sources.
type Collector interface {
	Kind() content.Type
	Collect(ctx context.Context, since *time.Time) Report
}

// Report is the outcome of one collector. A failed source contributes no
// items and one entry in Errors.
type Report struct {
	Kind      content.Type
	Items     []content.Item
	Attempted int
	Failed    int
	Errors    []error
}

// AllFailed reports whether sources were attempted and none succeeded.
func (r Report) AllFailed() bool {
	return r.Attempted > 0 && r.Failed == r.Attempted
}

// extractor returns one candidate value for a field, or "" when absent.
type extractor[T any] func(T) string

// firstNonEmpty walks the chain in order and returns the first value found.
func firstNonEmpty[T any](v T, chain ...extractor[T]) string {
	for _, extract := range chain {
		if value := extract(v); value != "" {
			return value
		}
	}
	return ""
}

// beforeCutoff reports whether an item published at t falls at or before since.
func beforeCutoff(t time.Time, since *time.Time) bool {
	return since != nil && !t.After(*since)
}
