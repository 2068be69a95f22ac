package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/bluegreen/pkg/ports"
)

// lockEntry holds the semaphore for a key and the number of holders and waiters.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// Locker implements ports.DistributedLocker inside a single process.
// It serializes runs sharing one server (e.g. concurrent POST /rotations);
// it does not coordinate separate processes.
// Entries are reference counted so unused keys are garbage collected.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewLocker creates an in-process locker.
func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]*lockEntry),
	}
}

func (l *Locker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, key)
	}
}

// Lock blocks until key is free or ctx is done.
// A positive ttl releases the lock automatically, like an expiring Redis key.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	entry := l.acquire(key)
	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			<-entry.sem
			l.release(key)
		})
	}

	var timer *time.Timer
	if ttl > 0 {
		timer = time.AfterFunc(ttl, unlock)
	}
	return func(context.Context) error {
		if timer != nil {
			timer.Stop()
		}
		unlock()
		return nil
	}, nil
}
