package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/lysyi3m/content-hub/app/database"
	"github.com/lysyi3m/content-hub/app/ingest"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
//
//	scheduler := NewScheduler(runner, store, configStore, fetcher, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type IngestRunner interface {
	Run(ctx context.Context, req ingest.Request) (ingest.Result, error)
}

type LastFetchReader interface {
	GetLastFetch(ctx context.Context) (*time.Time, error)
}

type ArticleStore interface {
	GetArticlesForExtraction(ctx context.Context, limit int) ([]database.ItemForExtraction, error)
	UpdateExtractedContent(ctx context.Context, contentID int64, body string) error
	UpdateExtractionStatus(ctx context.Context, contentID int64, status content.ExtractionStatus, errMsg string) error
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
