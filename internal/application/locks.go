package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/wms-platform/asrs-service/internal/domain"
	"github.com/wms-platform/asrs-service/pkg/logging"
)

// DefaultLockTTL bounds how long a bin or robot lock is held
const DefaultLockTTL = 10 * time.Second

// acquireLocks takes the keys in sorted order so that concurrent callers
// cannot deadlock. Locks are advisory: when the lock backend itself is down
// the caller proceeds and relies on conditional writes. Contention is
// reported as domain.ErrLockNotObtained.
func acquireLocks(ctx context.Context, locker domain.Locker, keys []string, ttl time.Duration, logger *logging.Logger) (func(), error) {
	if locker == nil || len(keys) == 0 {
		return func() {}, nil
	}

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]domain.Lock, 0, len(sorted))
	release := func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(releaseCtx); err != nil {
				logger.WithError(err).Warn("Failed to release lock")
			}
		}
	}

	for _, key := range sorted {
		lock, err := locker.Obtain(ctx, key, ttl)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotObtained) || ctx.Err() != nil {
				release()
				return nil, err
			}
			logger.WithError(err).Warn("Lock backend unavailable, continuing without lock", "key", key)
			continue
		}
		held = append(held, lock)
	}

	return release, nil
}
