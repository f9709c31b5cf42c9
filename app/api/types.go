package api

import (
	"context"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/lysyi3m/content-hub/app/database"
	"github.com/lysyi3m/content-hub/app/ingest"
	"github.com/lysyi3m/content-hub/app/query"
)

type IngestRunner interface {
	Run(ctx context.Context, req ingest.Request) (ingest.Result, error)
}

type ContentQuerier interface {
	FetchContent(ctx context.Context, page int, contentType, tag string) (query.Page, error)
	GetContent(ctx context.Context, contentID int64) (query.Entry, error)
	Latest(ctx context.Context, limit int) ([]query.Entry, error)
	PageSize() int
}

type StatsReader interface {
	CountByType(ctx context.Context) (map[content.Type]int, error)
	CountTags(ctx context.Context) (int, error)
	GetLastFetch(ctx context.Context) (*time.Time, error)
	ListRecentRuns(ctx context.Context, limit int) ([]database.Run, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthReporter interface {
	Health(ctx context.Context) map[string]any
}

var _ ContentQuerier = (*query.Service)(nil)

type FeedInfo struct {
	Title       string
	Description string
	BaseURL     string
}

type Handler struct {
	runner   IngestRunner
	queries  ContentQuerier
	stats    StatsReader
	db       Pinger
	lock     HealthReporter
	feedInfo FeedInfo
	version  string
}

type IngestRequest struct {
	UpdateDB bool       `json:"updateDb"`
	Since    *time.Time `json:"since"`
}

type IngestResponse struct {
	Success        bool   `json:"success"`
	RunID          string `json:"runId"`
	DryRun         bool   `json:"dryRun"`
	ItemsFetched   int    `json:"itemsFetched"`
	ItemsProcessed int    `json:"itemsProcessed"`
	ItemsFailed    int    `json:"itemsFailed"`
	SourcesFailed  int    `json:"sourcesFailed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
