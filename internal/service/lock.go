package service

import (
	"context"
	"sync"
	"time"

	"github.com/voyagen/tvcatalog/internal/cache"
)

// Locker serializes work on one key. *cache.Redis implements it across
// processes; localLocker covers single-process deployments.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// JobQueue carries refresh jobs to the background worker.
type JobQueue interface {
	Enqueue(ctx context.Context, job cache.RefreshJob) error
	Dequeue(ctx context.Context, timeout time.Duration) (*cache.RefreshJob, error)
}

type localLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newLocalLocker() *localLocker {
	return &localLocker{held: make(map[string]struct{})}
}

// TryLock ignores ttl: a lock lives until unlock is called.
func (l *localLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, cache.ErrLocked
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
