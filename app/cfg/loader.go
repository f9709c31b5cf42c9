package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	Command string `long:"command" env:"COMMAND" default:"serve" choice:"serve" choice:"ingest" choice:"migrate" description:"What to run: HTTP server with scheduler, a single ingestion run, or migrations only"`

	// Storage
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./data/content.db" description:"SQLite database file (use :memory: for an ephemeral store)"`
	RedisURL string `long:"redis-url" env:"REDIS_URL" description:"Redis URL for the distributed ingestion lock (optional, in-process lock when empty)"`

	// Sources
	SourcesFile     string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file listing article feeds, podcast feeds and video channels"`
	YouTubeAPIKey   string `long:"youtube-api-key" env:"YOUTUBE_API_KEY" description:"YouTube Data API key (videos are skipped when empty)"`
	VideoPageSize   int    `long:"video-page-size" env:"VIDEO_PAGE_SIZE" default:"10" description:"Playlist items requested per page"`
	VideoMaxPages   int    `long:"video-max-pages" env:"VIDEO_MAX_PAGES" default:"1" description:"Maximum playlist pages walked per channel"`
	FetchTimeout    int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20" description:"Per-fetch timeout in seconds"`
	FetchRetries    int    `long:"fetch-retries" env:"FETCH_RETRIES" default:"2" description:"Retries for transient fetch failures"`
	FeedConcurrency int    `long:"feed-concurrency" env:"FEED_CONCURRENCY" default:"4" description:"Concurrent fetches per source kind"`

	// Application configuration
	Port               string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl            string `long:"base-url" env:"BASE_URL" default:"http://localhost:8080" description:"Public base URL used in the aggregated feed"`
	PageSize           int    `long:"page-size" env:"PAGE_SIZE" default:"10" description:"Items per page returned by the content API"`
	WorkerCount        int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	SchedulerInterval  int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"900" description:"Scheduler interval in seconds"`
	MinRefreshInterval int    `long:"min-refresh-interval" env:"MIN_REFRESH_INTERVAL" default:"300" description:"Skip scheduled runs when the last fetch is younger than this many seconds"`
	ExtractContent     bool   `long:"extract-content" env:"EXTRACT_CONTENT" description:"Fetch full article bodies for items that only carried a summary"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Content Hub/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	cfg := &Cfg{
		Command:            raw.Command,
		DBPath:             raw.DBPath,
		RedisURL:           raw.RedisURL,
		SourcesFile:        raw.SourcesFile,
		YouTubeAPIKey:      raw.YouTubeAPIKey,
		VideoPageSize:      raw.VideoPageSize,
		VideoMaxPages:      raw.VideoMaxPages,
		FetchTimeout:       time.Duration(raw.FetchTimeout) * time.Second,
		FetchRetries:       raw.FetchRetries,
		FeedConcurrency:    raw.FeedConcurrency,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		PageSize:           raw.PageSize,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  time.Duration(raw.SchedulerInterval) * time.Second,
		MinRefreshInterval: time.Duration(raw.MinRefreshInterval) * time.Second,
		ExtractContent:     raw.ExtractContent,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(raw *rawCfg) error {
	switch {
	case raw.PageSize < 1:
		return fmt.Errorf("page-size must be positive, got %d", raw.PageSize)
	case raw.VideoPageSize < 1 || raw.VideoPageSize > 50:
		return fmt.Errorf("video-page-size must be between 1 and 50, got %d", raw.VideoPageSize)
	case raw.VideoMaxPages < 1:
		return fmt.Errorf("video-max-pages must be positive, got %d", raw.VideoMaxPages)
	case raw.FetchTimeout < 1:
		return fmt.Errorf("fetch-timeout must be positive, got %d", raw.FetchTimeout)
	case raw.FetchRetries < 0:
		return fmt.Errorf("fetch-retries must not be negative, got %d", raw.FetchRetries)
	case raw.FeedConcurrency < 1:
		return fmt.Errorf("feed-concurrency must be positive, got %d", raw.FeedConcurrency)
	case raw.WorkerCount < 1:
		return fmt.Errorf("worker-count must be positive, got %d", raw.WorkerCount)
	case raw.SchedulerInterval < 1:
		return fmt.Errorf("scheduler-interval must be positive, got %d", raw.SchedulerInterval)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
