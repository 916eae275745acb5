package balance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou/balance"
	"github.com/xraph/iou/types"
)

func TestBookDefaultsToZero(t *testing.T) {
	b := balance.NewBook()
	assert.Equal(t, types.Amount(0), b.Get("nobody"))
	assert.Equal(t, 0, b.Len())
}

func TestBookSetReplaces(t *testing.T) {
	b := balance.NewBook()
	b.Set("alice", 10)
	b.Set("alice", 25)
	b.Set("bob", 5)

	assert.Equal(t, types.Amount(25), b.Get("alice"))
	assert.Equal(t, 2, b.Len())

	total, err := b.Total()
	require.NoError(t, err)
	assert.Equal(t, types.Amount(30), total)

	b.Set("bob", 0)
	assert.Equal(t, 1, b.Len())
}

func TestOverlayIsolatesUntilCommit(t *testing.T) {
	b := balance.NewBook()
	b.Set("alice", 100)

	o := balance.NewOverlay(b)
	o.Set("alice", 60)
	o.Set("bob", 40)

	assert.Equal(t, types.Amount(60), o.Get("alice"))
	assert.Equal(t, types.Amount(100), b.Get("alice"), "base must not change before commit")
	assert.Equal(t, types.Amount(0), b.Get("bob"))

	o.Commit()
	assert.Equal(t, types.Amount(60), b.Get("alice"))
	assert.Equal(t, types.Amount(40), b.Get("bob"))
}

func TestOverlayDiscard(t *testing.T) {
	b := balance.NewBook()
	b.Set("alice", 100)

	o := balance.NewOverlay(b)
	o.Set("alice", 0)
	o.Discard()
	o.Commit()

	assert.Equal(t, types.Amount(100), b.Get("alice"))
}
