package cfg

import "time"

type Cfg struct {
	Command string

	// Storage
	DBPath   string
	RedisURL string

	// Sources
	SourcesFile     string
	YouTubeAPIKey   string
	VideoPageSize   int
	VideoMaxPages   int
	FetchTimeout    time.Duration
	FetchRetries    int
	FeedConcurrency int

	// Application configuration
	Port               string
	BaseUrl            string
	PageSize           int
	WorkerCount        int
	SchedulerInterval  time.Duration
	MinRefreshInterval time.Duration
	ExtractContent     bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
