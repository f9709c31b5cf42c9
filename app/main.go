package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/content-hub/app/api"
	"github.com/lysyi3m/content-hub/app/cfg"
	"github.com/lysyi3m/content-hub/app/database"
	"github.com/lysyi3m/content-hub/app/fetcher"
	"github.com/lysyi3m/content-hub/app/ingest"
	"github.com/lysyi3m/content-hub/app/lock"
	"github.com/lysyi3m/content-hub/app/parser"
	"github.com/lysyi3m/content-hub/app/query"
	"github.com/lysyi3m/content-hub/app/sources"
	"github.com/lysyi3m/content-hub/app/tasks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Content Hub failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := cfg.Load()
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Content Hub", "version", cfg.Version, "command", cfg.Command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", cfg.DBPath, "schema_version", version, "dirty", dirty)

	if cfg.Command == "migrate" {
		return nil
	}

	registry := sources.NewRegistry(cfg.SourcesFile)
	if err := registry.Load(); err != nil {
		return err
	}

	pageFetcher := fetcher.New(&http.Client{}, fetcher.Options{
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.FetchTimeout,
		MaxRetries: cfg.FetchRetries,
	})

	collectors, err := newCollectors(ctx, cfg, registry.Get(), pageFetcher)
	if err != nil {
		return err
	}

	locker, redisLock, err := newLocker(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisLock != nil {
		defer redisLock.Close()
	}

	store := database.NewStore(db)
	runner := ingest.NewRunner(collectors, ingest.NewCoordinator(store, store), store, store, locker)

	switch cfg.Command {
	case "ingest":
		return runOnce(ctx, runner)
	default:
		return serve(ctx, cfg, db, store, runner, pageFetcher, redisLock)
	}
}

func newCollectors(ctx context.Context, cfg *cfg.Cfg, src sources.Sources, f *fetcher.Fetcher) ([]parser.Collector, error) {
	videos, err := parser.NewVideoParser(ctx, cfg.YouTubeAPIKey, src.Channels, parser.VideoOptions{
		PageSize:    cfg.VideoPageSize,
		MaxPages:    cfg.VideoMaxPages,
		Concurrency: cfg.FeedConcurrency,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Sources loaded", "articles", len(src.Articles), "podcasts", len(src.Podcasts), "channels", len(src.Channels))

	return []parser.Collector{
		parser.NewArticleParser(f, src.Articles, cfg.FeedConcurrency),
		parser.NewPodcastParser(f, src.Podcasts, cfg.FeedConcurrency),
		videos,
	}, nil
}

func newLocker(ctx context.Context, redisURL string) (lock.Locker, *lock.Redis, error) {
	if redisURL == "" {
		slog.Debug("Using in-process ingestion lock")
		return lock.NewLocal(), nil, nil
	}

	redisLock, err := lock.NewRedis(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	return redisLock, redisLock, nil
}

func runOnce(ctx context.Context, runner *ingest.Runner) error {
	result, err := runner.Run(ctx, ingest.Request{UpdateDB: true, TriggeredBy: "cli"})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func serve(ctx context.Context, cfg *cfg.Cfg, db *database.DB, store *database.Store, runner *ingest.Runner, pageFetcher *fetcher.Fetcher, redisLock *lock.Redis) error {
	scheduler := tasks.NewScheduler(runner, store, store, pageFetcher, tasks.Options{
		Interval:           cfg.SchedulerInterval,
		WorkerCount:        cfg.WorkerCount,
		MinRefreshInterval: cfg.MinRefreshInterval,
		ExtractContent:     cfg.ExtractContent,
		ExtractBatchSize:   cfg.PageSize * 2,
	})
	slog.Info("Starting background scheduler", "workers", cfg.WorkerCount, "interval", cfg.SchedulerInterval.String())
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(runner, query.NewService(store, cfg.PageSize), store, db, api.FeedInfo{
		Title:       "Content Hub",
		Description: "Latest articles, podcasts and videos",
		BaseURL:     cfg.BaseUrl,
	}, cfg.Version)
	if redisLock != nil {
		handler.WithLockHealth(redisLock)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Content Hub shutdown complete")
	return nil
}
