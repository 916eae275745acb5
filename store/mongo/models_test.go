package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/types"
)

func TestEntryModelKeepsMintSource(t *testing.T) {
	issuer := types.AccountID("alice")
	e := &journal.Entry{
		ID:         id.NewEntryID(),
		ContractID: id.NewContractID(),
		Seq:        1,
		Op:         journal.OpIssue,
		Caller:     issuer,
		Args:       journal.Args{Amount: 100, Recipient: "bob", Percentage: 10},
		Events: []event.Envelope{
			event.Wrap(event.Transfer{From: nil, To: issuer.Ref(), Value: 100}),
			event.Wrap(event.Issuance{Issuer: issuer, Recipient: "bob", AmountOwed: 100}),
		},
		RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	got, err := fromEntryModel(toEntryModel(e))
	require.NoError(t, err)
	assert.Equal(t, e, got)
	assert.Nil(t, got.Events[0].From)
}

func TestCheckpointModel(t *testing.T) {
	contractID := id.NewContractID()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := debt.New(contractID, "alice", "bob", 100, 0, at)
	require.NoError(t, err)

	cp := &journal.Checkpoint{
		ContractID: contractID,
		Seq:        8,
		Record:     rec,
		Balances:   map[types.AccountID]types.Amount{"alice": 60, "bob": 40},
		Allowances: []journal.AllowanceEntry{{Owner: "alice", Spender: "bob", Value: 40}},
		TakenAt:    at,
	}

	got, err := fromCheckpointModel(toCheckpointModel(cp))
	require.NoError(t, err)
	assert.Equal(t, cp, got)
}
