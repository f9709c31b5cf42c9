package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/lysyi3m/content-hub/app/database"
)

type ExtractContentTask struct {
	Task
	fetcher   PageFetcher
	extractor *ContentExtractor
	store     ArticleStore
	batchSize int
}

func NewExtractContentTask(trigger string, fetcher PageFetcher, extractor *ContentExtractor, store ArticleStore, batchSize int) *ExtractContentTask {
	return &ExtractContentTask{
		Task:      NewTask(TaskTypeExtractContent, trigger),
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		batchSize: batchSize,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, err := t.store.GetArticlesForExtraction(ctx, t.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get articles for content extraction: %w", err)
	}

	if len(items) == 0 {
		slog.Debug("No articles need content extraction")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.extractContentForItem(ctx, item); err != nil {
			slog.Error("Failed to extract content for article", "content_id", item.ContentID, "url", item.Link, "error", err)
			errorCount++

			if err := t.store.UpdateExtractionStatus(ctx, item.ContentID, content.ExtractionFailed, err.Error()); err != nil {
				slog.Error("Failed to update content extraction status", "content_id", item.ContentID, "error", err)
			}
			continue
		}
		successCount++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"trigger", t.Trigger,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extractContentForItem(ctx context.Context, item database.ItemForExtraction) error {
	if item.Link == "" {
		return fmt.Errorf("article has no link")
	}

	data, err := t.fetcher.Fetch(ctx, item.Link)
	if err != nil {
		return fmt.Errorf("failed to fetch article page: %w", err)
	}

	body, err := t.extractor.Run(data, item.Link)
	if err != nil {
		return err
	}

	if err := t.store.UpdateExtractedContent(ctx, item.ContentID, body); err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	slog.Debug("Content extracted successfully", "content_id", item.ContentID, "url", item.Link, "content_length", len(body))
	return nil
}
