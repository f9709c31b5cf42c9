package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
)

type ItemSaver interface {
	SaveItem(ctx context.Context, item content.Item) (int64, error)
}

type Watermark interface {
	GetLastFetch(ctx context.Context) (*time.Time, error)
	SetLastFetch(ctx context.Context, t time.Time) error
}

type PersistResult struct {
	Processed int
	Failed    int
}

// Coordinator writes a normalized batch item by item. Each item is its own
// transaction; a failed item is logged and skipped.
type Coordinator struct {
	items     ItemSaver
	watermark Watermark
}

func NewCoordinator(items ItemSaver, watermark Watermark) *Coordinator {
	return &Coordinator{items: items, watermark: watermark}
}

// Persist saves the batch and then advances the watermark to runStart.
// Cancellation mid-batch aborts without touching the watermark.
func (c *Coordinator) Persist(ctx context.Context, items []content.Item, runStart time.Time) (PersistResult, error) {
	var result PersistResult

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, &content.FatalIngestionError{Reason: "cancelled while persisting", Err: err}
		}

		if _, err := c.items.SaveItem(ctx, item); err != nil {
			slog.Error("Failed to persist item", "title", item.Title, "link", item.Link, "type", string(item.Type), "error", err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	if err := c.watermark.SetLastFetch(ctx, runStart); err != nil {
		return result, &content.FatalIngestionError{Reason: "failed to advance watermark", Err: fmt.Errorf("failed to set last fetch: %w", err)}
	}

	return result, nil
}
