// Package redislock implements domain.Locker with Redis so bin and robot
// locks hold across API replicas and workers.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/wms-platform/asrs-service/internal/domain"
)

// Config holds the Redis connection and retry settings
type Config struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PoolSize      int           `mapstructure:"poolSize"`
	RetryInterval time.Duration `mapstructure:"retryInterval"`
	WaitTimeout   time.Duration `mapstructure:"waitTimeout"`
}

// DefaultConfig returns local development settings
func DefaultConfig() Config {
	return Config{
		Addr:          "localhost:6379",
		PoolSize:      20,
		RetryInterval: 50 * time.Millisecond,
		WaitTimeout:   2 * time.Second,
	}
}

// Locker hands out Redis locks
type Locker struct {
	client *redis.Client
	locks  *redislock.Client
	config Config
}

// New connects a Locker. The connection is lazy; Ping checks it.
func New(config Config) *Locker {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})
	return NewWithClient(client, config)
}

// NewWithClient builds a Locker around an existing client
func NewWithClient(client *redis.Client, config Config) *Locker {
	defaults := DefaultConfig()
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.WaitTimeout < 0 {
		config.WaitTimeout = 0
	}
	return &Locker{
		client: client,
		locks:  redislock.New(client),
		config: config,
	}
}

// Obtain takes key for ttl, retrying on a linear backoff until WaitTimeout.
// Contention surfaces as domain.ErrLockNotObtained; any other error means
// Redis itself is unreachable.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (domain.Lock, error) {
	retries := int(l.config.WaitTimeout / l.config.RetryInterval)
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.config.RetryInterval), retries),
	}

	lock, err := l.locks.Obtain(ctx, key, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrLockNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &heldLock{lock: lock}, nil
}

// Ping checks the Redis connection
func (l *Locker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (l *Locker) Close() error {
	return l.client.Close()
}

type heldLock struct {
	lock *redislock.Lock
}

// Release frees the lock. A lock that already expired is not an error.
func (h *heldLock) Release(ctx context.Context) error {
	err := h.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
