package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Options struct {
	Interval           time.Duration
	WorkerCount        int
	MinRefreshInterval time.Duration
	ExtractContent     bool
	ExtractBatchSize   int
	TaskTimeout        time.Duration
}

type Scheduler struct {
	runner    IngestRunner
	lastFetch LastFetchReader
	articles  ArticleStore
	fetcher   PageFetcher
	extractor *ContentExtractor
	opts      Options
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
}

func NewScheduler(runner IngestRunner, lastFetch LastFetchReader, articles ArticleStore, fetcher PageFetcher, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	if opts.ExtractBatchSize < 1 {
		opts.ExtractBatchSize = 20
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Minute
	}

	return &Scheduler{
		runner:    runner,
		lastFetch: lastFetch,
		articles:  articles,
		fetcher:   fetcher,
		extractor: NewContentExtractor(),
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		s.enqueueTasks("startup")

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks("schedule")
			}
		}
	}()
}

// Stop cancels running tasks and waits for the workers. Queued tasks are
// dropped.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks(trigger string) {
	ingestTask := NewIngestTask(trigger, s.runner, s.lastFetch, s.opts.MinRefreshInterval)
	if err := s.EnqueueTask(ingestTask); err != nil {
		slog.Warn("Failed to enqueue IngestTask", "trigger", trigger, "error", err)
	}

	if !s.opts.ExtractContent {
		return
	}

	extractTask := NewExtractContentTask(trigger, s.fetcher, s.extractor, s.articles, s.opts.ExtractBatchSize)
	if err := s.EnqueueTask(extractTask); err != nil {
		slog.Warn("Failed to enqueue ExtractContentTask", "trigger", trigger, "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.opts.TaskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "trigger", task.GetTrigger(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(delay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
