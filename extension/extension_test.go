package extension

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou"
	"github.com/xraph/iou/lock"
	"github.com/xraph/iou/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{PartialPaymentFloor: true})

	assert.True(t, cfg.PartialPaymentFloor)
	assert.Equal(t, 64, cfg.CheckpointEvery)
	assert.Equal(t, 5*time.Second, cfg.LockExpiry)

	disabled := mergeWithDefaults(Config{CheckpointEvery: -1})
	assert.Equal(t, -1, disabled.CheckpointEvery)
}

func TestMergeConfigurations(t *testing.T) {
	yamlCfg := Config{CheckpointEvery: 10, LockRedisAddr: "redis:6379"}
	progCfg := Config{
		DisableMigrate:  true,
		Metrics:         true,
		CheckpointEvery: 99,
		LockRedisAddr:   "localhost:6379",
		LockExpiry:      time.Second,
	}

	cfg := mergeConfigurations(yamlCfg, progCfg)

	assert.True(t, cfg.DisableMigrate)
	assert.True(t, cfg.Metrics)
	assert.False(t, cfg.PartialPaymentFloor)
	assert.Equal(t, 10, cfg.CheckpointEvery)
	assert.Equal(t, "redis:6379", cfg.LockRedisAddr)
	assert.Equal(t, time.Second, cfg.LockExpiry)
}

func TestBuildLockerPrefersProgrammaticLocker(t *testing.T) {
	local := lock.NewLocal()
	e := &Extension{config: Config{LockRedisAddr: "unused:1"}, locker: local}

	lk, err := e.buildLocker()
	require.NoError(t, err)
	assert.Same(t, local, lk)
	assert.Nil(t, e.redis)
}

func TestBuildLockerWithoutConfig(t *testing.T) {
	e := &Extension{}

	lk, err := e.buildLocker()
	require.NoError(t, err)
	assert.Nil(t, lk)
}

func TestLedgerWithRedisLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	e := &Extension{config: mergeWithDefaults(Config{LockRedisAddr: mr.Addr(), PartialPaymentFloor: true})}
	opts, err := e.buildLedgerOpts()
	require.NoError(t, err)
	require.NotNil(t, e.redis)
	t.Cleanup(func() { _ = e.redis.Close() })

	l := iou.New(memory.New(), opts...)
	require.NoError(t, l.Start(ctx))

	c, err := l.Issue(ctx, "alice", 100, "bob", 50)
	require.NoError(t, err)
	require.ErrorIs(t, c.PayDebt(ctx, "alice", 10), iou.ErrPaymentBelowThreshold)
	require.NoError(t, c.PayDebt(ctx, "alice", 50))
	assert.Equal(t, iou.Amount(50), c.Amount())
}
