package ingest

import (
	"log/slog"
	"slices"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
)

// Normalize merges collector output into one batch: dates re-validated and
// truncated to UTC seconds, tags deduplicated, sorted newest first with link
// as tie-break, and repeated links dropped (the first after sorting wins).
func Normalize(lists ...[]content.Item) []content.Item {
	total := 0
	for _, list := range lists {
		total += len(list)
	}

	merged := make([]content.Item, 0, total)
	for _, list := range lists {
		for _, item := range list {
			if item.Link == "" {
				slog.Warn("Dropping item without link", "title", item.Title, "type", string(item.Type))
				continue
			}
			if item.PublishedAt.IsZero() {
				slog.Warn("Dropping item without publication date", "title", item.Title, "link", item.Link)
				continue
			}

			item.PublishedAt = item.PublishedAt.UTC().Truncate(time.Second)
			item.Tags = content.DedupeTags(item.Tags)
			merged = append(merged, item)
		}
	}

	slices.SortStableFunc(merged, content.Compare)

	seen := make(map[string]bool, len(merged))
	result := merged[:0]
	for _, item := range merged {
		if seen[item.Link] {
			slog.Debug("Dropping duplicate link in batch", "link", item.Link, "type", string(item.Type))
			continue
		}
		seen[item.Link] = true
		result = append(result, item)
	}

	return result
}
