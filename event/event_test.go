package event_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/types"
)

func TestRecorderFiltersByContract(t *testing.T) {
	rec := event.NewRecorder()
	a, b := id.NewContractID(), id.NewContractID()
	ctx := context.Background()

	rec.Emit(ctx, a, event.Deposit{To: "alice", Value: 5})
	rec.Emit(ctx, b, event.Deposit{To: "bob", Value: 7})
	rec.Emit(ctx, a, event.Deposit{To: "alice", Value: 1})

	assert.Equal(t, 3, rec.Len())
	assert.Equal(t, []event.Event{
		event.Deposit{To: "alice", Value: 5},
		event.Deposit{To: "alice", Value: 1},
	}, rec.For(a))

	rec.Reset()
	assert.Equal(t, 0, rec.Len())
}

func TestFanout(t *testing.T) {
	r1, r2 := event.NewRecorder(), event.NewRecorder()
	sink := event.Fanout(r1, r2, event.Discard)

	sink.Emit(context.Background(), id.NewContractID(), event.Approval{Owner: "a", Spender: "b", Value: 3})

	assert.Equal(t, 1, r1.Len())
	assert.Equal(t, 1, r2.Len())
}

func TestEnvelopeRestoresMint(t *testing.T) {
	mint := event.Transfer{From: nil, To: types.AccountID("alice").Ref(), Value: 100}

	raw, err := json.Marshal(event.Wrap(mint))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"transfer","to":"alice","value":100}`, string(raw))

	var env event.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	got, err := env.Unwrap()
	require.NoError(t, err)

	tr, ok := got.(event.Transfer)
	require.True(t, ok)
	assert.Nil(t, tr.From)
	assert.Equal(t, types.AccountID("alice"), *tr.To)
	assert.True(t, env.Equal(event.Wrap(mint)))
}

func TestEnvelopeEqualComparesValues(t *testing.T) {
	x := event.Wrap(event.Transfer{From: types.AccountID("a").Ref(), To: types.AccountID("b").Ref(), Value: 1})
	y := event.Wrap(event.Transfer{From: types.AccountID("a").Ref(), To: types.AccountID("b").Ref(), Value: 1})
	z := event.Wrap(event.Transfer{From: nil, To: types.AccountID("b").Ref(), Value: 1})

	assert.True(t, x.Equal(y))
	assert.False(t, x.Equal(z))
}

func TestUnwrapUnknownKind(t *testing.T) {
	_, err := event.Envelope{Kind: "mystery"}.Unwrap()
	assert.ErrorIs(t, err, event.ErrUnknownKind)

	_, err = event.Envelope{Kind: event.KindDeposit}.Unwrap()
	assert.ErrorIs(t, err, event.ErrMalformedEnvelope)
}
