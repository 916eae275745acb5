package allowance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/iou/allowance"
	"github.com/xraph/iou/types"
)

func TestBookIsOrdered(t *testing.T) {
	b := allowance.NewBook()
	b.Set("alice", "bob", 10)

	assert.Equal(t, types.Amount(10), b.Get("alice", "bob"))
	assert.Equal(t, types.Amount(0), b.Get("bob", "alice"), "pairs are ordered")
}

func TestBookKeysSorted(t *testing.T) {
	b := allowance.NewBook()
	b.Set("carol", "alice", 1)
	b.Set("alice", "dave", 2)
	b.Set("alice", "bob", 3)
	b.Set("bob", "alice", 0)

	assert.Equal(t, []allowance.Key{
		{Owner: "alice", Spender: "bob"},
		{Owner: "alice", Spender: "dave"},
		{Owner: "carol", Spender: "alice"},
	}, b.Keys())
}

func TestOverlayLastWriteWins(t *testing.T) {
	b := allowance.NewBook()
	b.Set("alice", "bob", 50)

	o := allowance.NewOverlay(b)
	o.Set("alice", "bob", 20)
	o.Set("alice", "bob", 30)
	assert.Equal(t, types.Amount(50), b.Get("alice", "bob"))

	o.Commit()
	assert.Equal(t, types.Amount(30), b.Get("alice", "bob"))
	assert.Equal(t, 1, b.Len())
}

func TestOverlayDiscard(t *testing.T) {
	b := allowance.NewBook()
	o := allowance.NewOverlay(b)
	o.Set("alice", "bob", 20)
	o.Discard()
	o.Commit()

	assert.Equal(t, 0, b.Len())
}
