package redislock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou/lock"
	"github.com/xraph/iou/lock/redislock"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestWithLockExecutes(t *testing.T) {
	mr, client := setupTestRedis(t)

	l, err := redislock.New(client)
	require.NoError(t, err)

	var sawKey bool
	err = l.WithLock(context.Background(), "iou:abc", func(context.Context) error {
		sawKey = mr.Exists("lock:iou:abc")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, sawKey, "lock key should exist while held")
	assert.False(t, mr.Exists("lock:iou:abc"), "lock key should be removed after release")
}

func TestWithLockPassesErrorThrough(t *testing.T) {
	_, client := setupTestRedis(t)

	l, err := redislock.New(client)
	require.NoError(t, err)

	want := errors.New("insufficient balance")
	err = l.WithLock(context.Background(), "iou:abc", func(context.Context) error { return want })
	assert.Same(t, want, err)
}

func TestWithLockContention(t *testing.T) {
	_, client := setupTestRedis(t)

	holder, err := redislock.New(client)
	require.NoError(t, err)

	opts := redislock.DefaultOptions()
	opts.Tries = 1
	contender, err := redislock.New(client, redislock.WithOptions(opts))
	require.NoError(t, err)

	err = holder.WithLock(context.Background(), "iou:abc", func(ctx context.Context) error {
		inner := contender.WithLock(ctx, "iou:abc", func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, lock.ErrNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestWithLockSerializes(t *testing.T) {
	_, client := setupTestRedis(t)

	l, err := redislock.New(client)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		counter int
		wg      sync.WaitGroup
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "iou:counter", func(context.Context) error {
				mu.Lock()
				v := counter
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				counter = v + 1
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, counter)
}

func TestNewValidates(t *testing.T) {
	_, err := redislock.New(nil)
	assert.ErrorIs(t, err, redislock.ErrNilClient)

	_, client := setupTestRedis(t)
	bad := redislock.DefaultOptions()
	bad.Tries = 0
	_, err = redislock.New(client, redislock.WithOptions(bad))
	assert.ErrorIs(t, err, redislock.ErrTriesInvalid)

	bad = redislock.DefaultOptions()
	bad.DriftFactor = 1
	_, err = redislock.New(client, redislock.WithOptions(bad))
	assert.ErrorIs(t, err, redislock.ErrDriftFactorInvalid)

	assert.ErrorIs(t, redislock.Options{}.Validate(), redislock.ErrExpiryInvalid)
}
