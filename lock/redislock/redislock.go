// Package redislock implements lock.Locker on Redis with the RedLock
// algorithm, for deployments where several processes write to the same
// journal store.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/iou/lock"
)

const maxTries = 1000

var (
	ErrNilClient          = errors.New("redislock: redis client is nil")
	ErrExpiryInvalid      = errors.New("redislock: expiry must be greater than 0")
	ErrTriesInvalid       = errors.New("redislock: tries must be within 1..1000")
	ErrRetryDelayNegative = errors.New("redislock: retry delay cannot be negative")
	ErrDriftFactorInvalid = errors.New("redislock: drift factor must be within [0, 1)")
)

// Options configures lock acquisition.
type Options struct {
	// Expiry bounds how long a crashed holder can block others.
	Expiry time.Duration

	// Tries is the number of acquisition attempts.
	Tries int

	// RetryDelay is the wait between attempts.
	RetryDelay time.Duration

	// DriftFactor accounts for clock drift between Redis nodes.
	DriftFactor float64

	// Prefix is prepended to every key.
	Prefix string
}

// DefaultOptions suits ledger operations, which finish in milliseconds.
func DefaultOptions() Options {
	return Options{
		Expiry:      5 * time.Second,
		Tries:       32,
		RetryDelay:  50 * time.Millisecond,
		DriftFactor: 0.01,
		Prefix:      "lock:",
	}
}

// Validate checks o.
func (o Options) Validate() error {
	switch {
	case o.Expiry <= 0:
		return ErrExpiryInvalid
	case o.Tries < 1 || o.Tries > maxTries:
		return ErrTriesInvalid
	case o.RetryDelay < 0:
		return ErrRetryDelayNegative
	case o.DriftFactor < 0 || o.DriftFactor >= 1:
		return ErrDriftFactorInvalid
	}
	return nil
}

// Option adjusts Options.
type Option func(*Locker)

// WithOptions replaces the acquisition options.
func WithOptions(opts Options) Option {
	return func(l *Locker) { l.opts = opts }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locker) { l.logger = logger }
}

var _ lock.Locker = (*Locker)(nil)

// Locker is a Redis-backed lock.Locker. Safe for concurrent use.
type Locker struct {
	rs     *redsync.Redsync
	opts   Options
	logger *slog.Logger
}

// New builds a Locker over client.
func New(client redis.UniversalClient, opts ...Option) (*Locker, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	l := &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.opts.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// WithLock implements lock.Locker. The lock is released even if fn panics.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := lock.Validate(key, fn); err != nil {
		return err
	}

	name := l.opts.Prefix + key
	mutex := l.rs.NewMutex(
		name,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
		redsync.WithDriftFactor(l.opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		l.logger.Debug("lock not acquired", "key", name, "error", err)
		return fmt.Errorf("%w: %s: %w", lock.ErrNotAcquired, name, err)
	}

	defer func() {
		// Use a fresh context so a cancelled caller still releases the lock.
		ok, err := mutex.UnlockContext(context.WithoutCancel(ctx))
		if !ok || err != nil {
			l.logger.Warn("lock release failed", "key", name, "released", ok, "error", err)
		}
	}()

	return fn(ctx)
}
