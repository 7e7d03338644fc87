package keyedlock

import (
	"context"
	"errors"

	"github.com/puzpuzpuz/xsync/v3"
)

// ErrTimeout is returned when a lock cannot be acquired before the context
// deadline. Callers treat it as retryable.
var ErrTimeout = errors.New("keyedlock: acquisition timed out")

// Locks serializes work per key without a global lock, so unrelated auctions
// never contend. Entries are one buffered channel each and live for the
// process lifetime; the population is bounded by the number of auctions.
type Locks struct {
	entries *xsync.MapOf[string, chan struct{}]
}

// New constructs an empty lock registry.
func New() *Locks {
	return &Locks{entries: xsync.NewMapOf[string, chan struct{}]()}
}

// Acquire blocks until the key's lock is held or ctx expires. On success the
// returned release function must be called exactly once.
func (l *Locks) Acquire(ctx context.Context, key string) (func(), error) {
	sem, _ := l.entries.LoadOrCompute(key, func() chan struct{} {
		return make(chan struct{}, 1)
	})

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// TryAcquire takes the lock only if it is immediately free.
func (l *Locks) TryAcquire(key string) (func(), bool) {
	sem, _ := l.entries.LoadOrCompute(key, func() chan struct{} {
		return make(chan struct{}, 1)
	})

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, true
	default:
		return nil, false
	}
}
