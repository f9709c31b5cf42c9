package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/lysyi3m/content-hub/app/ingest"
)

type IngestTask struct {
	Task
	runner     IngestRunner
	lastFetch  LastFetchReader
	minRefresh time.Duration
}

func NewIngestTask(trigger string, runner IngestRunner, lastFetch LastFetchReader, minRefresh time.Duration) *IngestTask {
	return &IngestTask{
		Task:       NewTask(TaskTypeIngest, trigger),
		runner:     runner,
		lastFetch:  lastFetch,
		minRefresh: minRefresh,
	}
}

func (t *IngestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if fresh, err := t.recentlyFetched(ctx); err != nil {
		return err
	} else if fresh {
		return nil
	}

	result, err := t.runner.Run(ctx, ingest.Request{UpdateDB: true, TriggeredBy: t.Trigger})
	if errors.Is(err, content.ErrRunInProgress) {
		slog.Info("Ingestion already running, skipping", "task_id", t.ID, "trigger", t.Trigger)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run ingestion: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"trigger", t.Trigger,
		"duration", t.GetDuration(),
		"run_id", result.RunID,
		"processed", result.ItemsProcessed,
		"failed", result.ItemsFailed)

	return nil
}

// recentlyFetched debounces scheduled runs against the persisted watermark.
// Retries bypass the check, their watermark is by definition stale.
func (t *IngestTask) recentlyFetched(ctx context.Context) (bool, error) {
	if t.minRefresh <= 0 || t.RetryCount > 0 {
		return false, nil
	}

	last, err := t.lastFetch.GetLastFetch(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read last fetch: %w", err)
	}
	if last == nil {
		return false, nil
	}

	if age := time.Since(*last); age < t.minRefresh {
		slog.Debug("Content refreshed recently, skipping ingestion", "last_fetch", last.Format(time.RFC3339), "age", age.Round(time.Second))
		return true, nil
	}
	return false, nil
}
