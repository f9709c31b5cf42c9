package lock

import (
	"context"
	"sync"

	"github.com/lysyi3m/content-hub/app/content"
)

// Locker guards the ingestion run. Acquire returns content.ErrRunInProgress
// when another run holds the lock; the returned func releases it.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

var _ Locker = (*Local)(nil)

// Local is an in-process lock for single-instance deployments.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.mu.TryLock() {
		return nil, content.ErrRunInProgress
	}

	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
