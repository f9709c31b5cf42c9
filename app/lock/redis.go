package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/content-hub/app/content"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey = "content-hub:ingestion-lock"
	DefaultTTL = 15 * time.Minute
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ Locker = (*Redis)(nil)

// Redis is a lock shared by every instance pointed at the same server.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", opts.Addr)

	return &Redis{client: client, key: DefaultKey, ttl: DefaultTTL}, nil
}

func (r *Redis) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", r.key, err)
	}
	if !ok {
		return nil, content.ErrRunInProgress
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, r.client, []string{r.key}, token).Err(); err != nil {
			slog.Error("Failed to release lock", "key", r.key, "error", err)
		}
	}, nil
}

func (r *Redis) Health(ctx context.Context) map[string]any {
	health := map[string]any{
		"status": "healthy",
		"type":   "redis",
	}

	if err := r.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
	}

	return health
}

func (r *Redis) Close() error {
	return r.client.Close()
}
