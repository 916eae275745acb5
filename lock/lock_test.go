package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou/lock"
)

func TestLocalRunsFunction(t *testing.T) {
	l := lock.NewLocal()
	executed := false

	err := l.WithLock(context.Background(), "iou:1", func(context.Context) error {
		executed = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, 0, l.Held(), "idle keys are released")
}

func TestLocalPassesErrorThrough(t *testing.T) {
	l := lock.NewLocal()
	want := errors.New("boom")

	err := l.WithLock(context.Background(), "iou:1", func(context.Context) error { return want })
	assert.Same(t, want, err)
}

func TestLocalRejectsBadArguments(t *testing.T) {
	l := lock.NewLocal()
	assert.ErrorIs(t, l.WithLock(context.Background(), " ", func(context.Context) error { return nil }), lock.ErrEmptyKey)
	assert.ErrorIs(t, l.WithLock(context.Background(), "k", nil), lock.ErrNilFunc)
}

func TestLocalMutualExclusion(t *testing.T) {
	l := lock.NewLocal()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.WithLock(context.Background(), "shared", func(context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestLocalHonoursContext(t *testing.T) {
	l := lock.NewLocal()
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), "k", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.WithLock(ctx, "k", func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestLocalKeysAreIndependent(t *testing.T) {
	l := lock.NewLocal()

	err := l.WithLock(context.Background(), "a", func(ctx context.Context) error {
		return l.WithLock(ctx, "b", func(context.Context) error { return nil })
	})
	assert.NoError(t, err)
}
