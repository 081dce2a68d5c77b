package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// Locker is a process-local domain.Locker backed by one channel per key
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocker creates a new Locker
func NewLocker() *Locker {
	return &Locker{slots: make(map[string]chan struct{})}
}

func (l *Locker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Obtain waits up to ttl for the key. The ttl only bounds the wait; a held
// key stays held until released.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (domain.Lock, error) {
	ch := l.slot(key)

	timer := time.NewTimer(ttl)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return &lock{ch: ch}, nil
	case <-timer.C:
		return nil, domain.ErrLockNotObtained
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type lock struct {
	once sync.Once
	ch   chan struct{}
}

func (l *lock) Release(context.Context) error {
	l.once.Do(func() { <-l.ch })
	return nil
}
