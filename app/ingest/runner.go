package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/content-hub/app/content"
	"github.com/lysyi3m/content-hub/app/database"
	"github.com/lysyi3m/content-hub/app/lock"
	"github.com/lysyi3m/content-hub/app/parser"
	"golang.org/x/sync/errgroup"
)

type Request struct {
	// UpdateDB false runs fetch and normalization only.
	UpdateDB bool
	// Since overrides the persisted watermark when set.
	Since       *time.Time
	TriggeredBy string
}

type Result struct {
	RunID          string     `json:"runId"`
	DryRun         bool       `json:"dryRun"`
	Since          *time.Time `json:"since,omitempty"`
	ItemsFetched   int        `json:"itemsFetched"`
	ItemsProcessed int        `json:"itemsProcessed"`
	ItemsFailed    int        `json:"itemsFailed"`
	SourcesFailed  int        `json:"sourcesFailed"`
}

type RunRecorder interface {
	CreateRun(ctx context.Context, run database.Run) error
	FinishRun(ctx context.Context, run database.Run) error
}

// Runner executes one ingestion run end to end: lock, watermark, concurrent
// collection, normalization and persistence.
type Runner struct {
	collectors  []parser.Collector
	coordinator *Coordinator
	watermark   Watermark
	runs        RunRecorder
	locker      lock.Locker
	now         func() time.Time
}

func NewRunner(collectors []parser.Collector, coordinator *Coordinator, watermark Watermark, runs RunRecorder, locker lock.Locker) *Runner {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Runner{
		collectors:  collectors,
		coordinator: coordinator,
		watermark:   watermark,
		runs:        runs,
		locker:      locker,
		now:         time.Now,
	}
}

func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	release, err := r.locker.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	runStart := r.now().UTC().Truncate(time.Second)
	result := Result{RunID: uuid.NewString(), DryRun: !req.UpdateDB}

	since := req.Since
	if since == nil {
		since, err = r.watermark.GetLastFetch(ctx)
		if err != nil {
			return result, &content.FatalIngestionError{Reason: "failed to read watermark", Err: err}
		}
	}
	result.Since = since

	run := database.Run{
		ID:          result.RunID,
		TriggeredBy: req.TriggeredBy,
		DryRun:      result.DryRun,
		Since:       since,
		StartedAt:   runStart,
	}
	r.recordStart(ctx, run)

	slog.Info("Ingestion started", "run_id", result.RunID, "since", since, "dry_run", result.DryRun, "triggered_by", req.TriggeredBy)

	result, err = r.execute(ctx, req, runStart, result)
	r.recordFinish(run, result, err)

	if err != nil {
		slog.Error("Ingestion failed", "run_id", result.RunID, "duration", time.Since(runStart), "error", err)
		return result, err
	}

	slog.Info("Ingestion completed",
		"run_id", result.RunID,
		"duration", time.Since(runStart),
		"fetched", result.ItemsFetched,
		"processed", result.ItemsProcessed,
		"failed", result.ItemsFailed,
		"sources_failed", result.SourcesFailed)

	return result, nil
}

func (r *Runner) execute(ctx context.Context, req Request, runStart time.Time, result Result) (Result, error) {
	reports, err := r.collect(ctx, result.Since)
	if err != nil {
		return result, err
	}

	attempted := 0
	var sourceErrs []error
	lists := make([][]content.Item, 0, len(reports))
	for _, report := range reports {
		attempted += report.Attempted
		result.SourcesFailed += report.Failed
		sourceErrs = append(sourceErrs, report.Errors...)
		lists = append(lists, report.Items)
	}

	if attempted > 0 && result.SourcesFailed == attempted {
		return result, &content.FatalIngestionError{Reason: "every source failed", Err: errors.Join(sourceErrs...)}
	}

	items := Normalize(lists...)
	result.ItemsFetched = len(items)

	if !req.UpdateDB {
		result.ItemsProcessed = len(items)
		return result, nil
	}

	persisted, err := r.coordinator.Persist(ctx, items, runStart)
	result.ItemsProcessed = persisted.Processed
	result.ItemsFailed = persisted.Failed
	return result, err
}

// collect runs every collector concurrently. Collectors report their own
// source failures; only a panic or cancellation aborts the run.
func (r *Runner) collect(ctx context.Context, since *time.Time) ([]parser.Report, error) {
	reports := make([]parser.Report, len(r.collectors))

	var g errgroup.Group
	for i, collector := range r.collectors {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					slog.Error("Collector panicked", "type", string(collector.Kind()), "panic", p, "stack", string(debug.Stack()))
					err = &content.FatalIngestionError{Reason: fmt.Sprintf("%s collector panicked: %v", collector.Kind(), p)}
				}
			}()

			reports[i] = collector.Collect(ctx, since)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &content.FatalIngestionError{Reason: "cancelled while fetching", Err: err}
	}

	return reports, nil
}

func (r *Runner) recordStart(ctx context.Context, run database.Run) {
	if r.runs == nil || run.DryRun {
		return
	}
	if err := r.runs.CreateRun(ctx, run); err != nil {
		slog.Warn("Failed to record ingestion run", "run_id", run.ID, "error", err)
	}
}

func (r *Runner) recordFinish(run database.Run, result Result, runErr error) {
	if r.runs == nil || run.DryRun {
		return
	}

	finished := r.now().UTC()
	run.FinishedAt = &finished
	run.Status = database.RunSucceeded
	run.ItemsFetched = result.ItemsFetched
	run.ItemsProcessed = result.ItemsProcessed
	run.ItemsFailed = result.ItemsFailed
	run.SourcesFailed = result.SourcesFailed
	if runErr != nil {
		run.Status = database.RunFailed
		run.Error = runErr.Error()
	}

	// The run context may already be cancelled; the record is still written.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.runs.FinishRun(ctx, run); err != nil {
		slog.Warn("Failed to record ingestion result", "run_id", run.ID, "error", err)
	}
}
