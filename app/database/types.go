package database

import (
	"context"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
)

// ListFilter selects a window of items in canonical order. An empty Type
// means every type.
type ListFilter struct {
	Type   content.Type
	Limit  int
	Offset int
}

type ItemForExtraction struct {
	ContentID int64
	Link      string
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one ingestion run as recorded in ingestion_runs.
type Run struct {
	ID             string     `json:"id"`
	TriggeredBy    string     `json:"triggeredBy"`
	DryRun         bool       `json:"dryRun"`
	Since          *time.Time `json:"since,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
	Status         RunStatus  `json:"status"`
	ItemsFetched   int        `json:"itemsFetched"`
	ItemsProcessed int        `json:"itemsProcessed"`
	ItemsFailed    int        `json:"itemsFailed"`
	SourcesFailed  int        `json:"sourcesFailed"`
	Error          string     `json:"error,omitempty"`
}

type ContentRepository interface {
	SaveItem(ctx context.Context, item content.Item) (int64, error)

	ListItems(ctx context.Context, filter ListFilter) ([]content.Item, error)
	GetItem(ctx context.Context, contentID int64) (*content.Item, error)
	CountByType(ctx context.Context) (map[content.Type]int, error)
	CountTags(ctx context.Context) (int, error)

	GetArticlesForExtraction(ctx context.Context, limit int) ([]ItemForExtraction, error)
	UpdateExtractedContent(ctx context.Context, contentID int64, body string) error
	UpdateExtractionStatus(ctx context.Context, contentID int64, status content.ExtractionStatus, errMsg string) error
}

type ConfigRepository interface {
	GetLastFetch(ctx context.Context) (*time.Time, error)
	SetLastFetch(ctx context.Context, t time.Time) error
}

type RunRepository interface {
	CreateRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, run Run) error
	ListRecentRuns(ctx context.Context, limit int) ([]Run, error)
}
