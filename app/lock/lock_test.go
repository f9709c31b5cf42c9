package lock

import (
	"context"
	"errors"
	"testing"

	"github.com/lysyi3m/content-hub/app/content"
)

func TestLocalAcquire(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Expected lock to be acquired, got: %v", err)
	}

	if _, err := l.Acquire(ctx); !errors.Is(err, content.ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress while held, got: %v", err)
	}

	release()
	release()

	release, err = l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Expected lock to be acquired after release, got: %v", err)
	}
	release()
}

func TestLocalAcquireCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLocal().Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestNewRedisInvalidURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not-a-redis-url"); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	if _, err := NewRedis(context.Background(), "redis://127.0.0.1:1/0"); err == nil {
		t.Error("Expected error for unreachable server")
	}
}
