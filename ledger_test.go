package iou_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/iou"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/store/memory"
	"github.com/xraph/iou/types"
)

const (
	alice types.AccountID = "alice"
	bob   types.AccountID = "bob"
	carol types.AccountID = "carol"
	dave  types.AccountID = "dave"
)

var epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return epoch }
}

type harness struct {
	ledger *iou.Ledger
	store  *memory.Store
	events *event.Recorder
}

func newHarness(t *testing.T, opts ...iou.Option) *harness {
	t.Helper()
	return newHarnessOn(t, memory.New(), opts...)
}

func newHarnessOn(t *testing.T, s *memory.Store, opts ...iou.Option) *harness {
	t.Helper()

	rec := event.NewRecorder()
	opts = append([]iou.Option{iou.WithClock(fixedClock()), iou.WithSink(rec)}, opts...)
	l := iou.New(s, opts...)
	require.NoError(t, l.Start(context.Background()))

	return &harness{ledger: l, store: s, events: rec}
}

func (h *harness) issue(t *testing.T, issuer types.AccountID, owed types.Amount, recipient types.AccountID, pct uint32) *iou.Contract {
	t.Helper()
	c, err := h.ledger.Issue(context.Background(), issuer, owed, recipient, pct)
	require.NoError(t, err)
	h.events.Reset()
	return c
}

func TestIssue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	c, err := h.ledger.Issue(ctx, alice, 100, bob, 25)
	require.NoError(t, err)

	assert.Equal(t, id.PrefixContract, c.ID().Prefix())
	assert.Equal(t, types.Amount(100), c.Amount())
	assert.Equal(t, types.Amount(100), c.BalanceOf(alice))
	assert.Equal(t, types.Amount(0), c.BalanceOf(bob))
	assert.Equal(t, types.Amount(100), c.TotalSupply())
	assert.Equal(t, int64(1), c.Seq())

	rec := c.Record()
	assert.Equal(t, alice, rec.Issuer)
	assert.Equal(t, bob, rec.Recipient)
	assert.Equal(t, types.Amount(100), rec.FaceValue)
	assert.Equal(t, types.Amount(0), rec.AmountPaid)
	assert.False(t, rec.Paid)
	assert.Equal(t, uint32(25), rec.PartialPaymentPercentage)
	assert.Equal(t, epoch, rec.CreatedAt)

	assert.Equal(t, []event.Event{
		event.Transfer{From: nil, To: alice.Ref(), Value: 100},
		event.Issuance{Issuer: alice, Recipient: bob, AmountOwed: 100},
	}, h.events.For(c.ID()))
}

func TestIssueRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tests := []struct {
		name      string
		issuer    types.AccountID
		owed      types.Amount
		recipient types.AccountID
		pct       uint32
		want      error
	}{
		{"missing issuer", "", 10, bob, 0, iou.ErrInvalidInput},
		{"missing recipient", alice, 10, "", 0, iou.ErrInvalidInput},
		{"negative amount", alice, -1, bob, 0, iou.ErrNegativeAmount},
		{"percentage over 100", alice, 10, bob, 101, iou.ErrInvalidPercentage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ledger.Issue(ctx, tt.issuer, tt.owed, tt.recipient, tt.pct)
			require.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, h.events.Len())
	issued, err := h.ledger.Issuances(ctx, journal.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, issued)
}

func TestIssueZeroIsSettled(t *testing.T) {
	h := newHarness(t)
	c := h.issue(t, alice, 0, bob, 0)

	assert.True(t, c.Record().Paid)
	err := c.PayDebt(context.Background(), alice, 1)
	require.ErrorIs(t, err, iou.ErrInsufficientDebtAmount)
}

func TestRepaymentSequence(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 0)

	for i, amount := range []types.Amount{30, 30, 40} {
		require.NoError(t, c.PayDebt(ctx, alice, amount), "payment %d", i)
	}

	rec := c.Record()
	assert.Equal(t, types.Amount(0), c.Amount())
	assert.Equal(t, types.Amount(100), rec.AmountPaid)
	assert.True(t, rec.Paid)
	assert.Equal(t, types.Amount(0), c.BalanceOf(alice))
	assert.Equal(t, types.Amount(100), c.BalanceOf(bob))
	assert.Equal(t, types.Amount(100), c.TotalSupply())

	// Every core transfer leaves the last amount moved in allowance(from, to).
	assert.Equal(t, types.Amount(40), c.Allowance(alice, bob))

	assert.Equal(t, []event.Event{
		event.Transfer{From: alice.Ref(), To: bob.Ref(), Value: 30},
		event.Transfer{From: alice.Ref(), To: bob.Ref(), Value: 30},
		event.Transfer{From: alice.Ref(), To: bob.Ref(), Value: 40},
	}, h.events.For(c.ID()))

	err := c.PayDebt(ctx, alice, 1)
	require.ErrorIs(t, err, iou.ErrInsufficientDebtAmount)
}

func TestPayDebtRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		payer  types.AccountID
		amount types.Amount
		want   error
	}{
		{"over payment", alice, 101, iou.ErrInsufficientDebtAmount},
		{"zero payment", alice, 0, iou.ErrZeroPayment},
		{"negative payment", alice, -5, iou.ErrNegativeAmount},
		{"payer without balance", carol, 10, iou.ErrInsufficientBalance},
		{"missing payer", "", 10, iou.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.issue(t, alice, 100, bob, 0)
			before := c.State()

			err := c.PayDebt(ctx, tt.payer, tt.amount)
			require.ErrorIs(t, err, tt.want)

			assert.Equal(t, before, c.State())
			assert.Zero(t, h.events.Len())
		})
	}
}

func TestPayDebtRequiresDebtBeforeBalance(t *testing.T) {
	h := newHarness(t)
	c := h.issue(t, alice, 10, bob, 0)

	// carol has nothing and overpays: the debt check wins.
	err := c.PayDebt(context.Background(), carol, 11)
	require.ErrorIs(t, err, iou.ErrInsufficientDebtAmount)
	require.NotErrorIs(t, err, iou.ErrInsufficientBalance)
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 0)
	before := c.State()

	require.NoError(t, c.Deposit(ctx, carol, 50))

	assert.Equal(t, types.Amount(50), c.BalanceOf(carol))
	assert.Equal(t, before.Balances[alice], c.BalanceOf(alice))
	assert.Equal(t, before.Balances[bob], c.BalanceOf(bob))
	assert.Equal(t, types.Amount(150), c.TotalSupply())
	assert.Equal(t, before.Record, c.Record())

	assert.Equal(t, []event.Event{event.Deposit{To: carol, Value: 50}}, h.events.Events())
}

func TestDepositRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 0)
	before := c.State()

	require.ErrorIs(t, c.Deposit(ctx, carol, -1), iou.ErrNegativeAmount)
	require.ErrorIs(t, c.Deposit(ctx, "", 1), iou.ErrInvalidInput)
	require.ErrorIs(t, c.Deposit(ctx, carol, types.MaxAmount), iou.ErrAmountOverflow)

	assert.Equal(t, before, c.State())
	assert.Zero(t, h.events.Len())
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 0)

	require.NoError(t, c.Approve(ctx, alice, carol, 40))
	assert.Equal(t, types.Amount(40), c.Allowance(alice, carol))
	assert.Equal(t, types.Amount(0), c.Allowance(carol, alice))

	require.NoError(t, c.Approve(ctx, alice, carol, 0))
	assert.Equal(t, types.Amount(0), c.Allowance(alice, carol))

	require.ErrorIs(t, c.Approve(ctx, alice, carol, -1), iou.ErrNegativeAmount)

	assert.Equal(t, []event.Event{
		event.Approval{Owner: alice, Spender: carol, Value: 40},
		event.Approval{Owner: alice, Spender: carol, Value: 0},
	}, h.events.Events())
}

func TestTransferWithAllowance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 0)
	require.NoError(t, c.Approve(ctx, alice, carol, 40))
	h.events.Reset()

	require.NoError(t, c.TransferWithAllowance(ctx, carol, alice, dave, 25))

	assert.Equal(t, types.Amount(75), c.BalanceOf(alice))
	assert.Equal(t, types.Amount(25), c.BalanceOf(dave))
	assert.Equal(t, types.Amount(15), c.Allowance(alice, carol))
	assert.Equal(t, types.Amount(25), c.Allowance(alice, dave))
	assert.Equal(t, types.Amount(100), c.TotalSupply())

	assert.Equal(t, []event.Event{
		event.Transfer{From: alice.Ref(), To: dave.Ref(), Value: 25},
	}, h.events.Events())
}

func TestTransferWithAllowanceToSpender(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 0)
	require.NoError(t, c.Approve(ctx, alice, carol, 15))

	require.NoError(t, c.TransferWithAllowance(ctx, carol, alice, carol, 10))

	// The allowance decrement is applied after the transfer's overwrite.
	assert.Equal(t, types.Amount(5), c.Allowance(alice, carol))
	assert.Equal(t, types.Amount(10), c.BalanceOf(carol))
}

func TestTransferWithAllowanceRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient allowance", func(t *testing.T) {
		h := newHarness(t)
		c := h.issue(t, alice, 100, bob, 0)
		require.NoError(t, c.Approve(ctx, alice, carol, 10))
		h.events.Reset()
		before := c.State()

		err := c.TransferWithAllowance(ctx, carol, alice, dave, 11)
		require.ErrorIs(t, err, iou.ErrInsufficientAllowance)
		assert.True(t, iou.IsInsufficientFunds(err))
		assert.Equal(t, before, c.State())
		assert.Zero(t, h.events.Len())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		h := newHarness(t)
		c := h.issue(t, alice, 100, bob, 0)
		require.NoError(t, c.Approve(ctx, dave, carol, 50))
		h.events.Reset()
		before := c.State()

		err := c.TransferWithAllowance(ctx, carol, dave, alice, 20)
		require.ErrorIs(t, err, iou.ErrInsufficientBalance)
		assert.Equal(t, before, c.State())
		assert.Equal(t, types.Amount(50), c.Allowance(dave, carol))
		assert.Zero(t, h.events.Len())
	})

	t.Run("missing accounts", func(t *testing.T) {
		h := newHarness(t)
		c := h.issue(t, alice, 100, bob, 0)

		require.ErrorIs(t, c.TransferWithAllowance(ctx, "", alice, dave, 1), iou.ErrInvalidInput)
		require.ErrorIs(t, c.TransferWithAllowance(ctx, carol, "", dave, 1), iou.ErrInvalidInput)
		require.ErrorIs(t, c.TransferWithAllowance(ctx, carol, alice, "", 1), iou.ErrInvalidInput)
	})
}

func TestContractsAreIndependent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first := h.issue(t, alice, 100, bob, 0)
	second := h.issue(t, alice, 40, carol, 0)
	require.NotEqual(t, first.ID(), second.ID())

	require.NoError(t, first.PayDebt(ctx, alice, 60))
	require.NoError(t, second.Deposit(ctx, dave, 5))

	assert.Equal(t, types.Amount(40), first.Amount())
	assert.Equal(t, types.Amount(40), second.Amount())
	assert.Equal(t, types.Amount(40), first.BalanceOf(alice))
	assert.Equal(t, types.Amount(40), second.BalanceOf(alice))
	assert.Equal(t, types.Amount(0), first.BalanceOf(dave))
	assert.Equal(t, types.Amount(0), second.Allowance(alice, bob))

	assert.Len(t, h.events.For(first.ID()), 1)
	assert.Len(t, h.events.For(second.ID()), 1)
}

func TestPartialPaymentFloor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, iou.WithPartialPaymentFloor())
	c := h.issue(t, alice, 100, bob, 30)

	require.ErrorIs(t, c.PayDebt(ctx, alice, 29), iou.ErrPaymentBelowThreshold)
	require.NoError(t, c.PayDebt(ctx, alice, 30))
	require.NoError(t, c.PayDebt(ctx, alice, 60))

	// The last 10 settle the debt even though they are below the floor.
	require.NoError(t, c.PayDebt(ctx, alice, 10))
	assert.True(t, c.Record().Paid)
}

func TestPartialPaymentFloorIsOffByDefault(t *testing.T) {
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 30)

	require.NoError(t, c.PayDebt(context.Background(), alice, 1))
	assert.Equal(t, types.Amount(99), c.Amount())
}

func TestIssuances(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first := h.issue(t, alice, 100, bob, 10)
	second := h.issue(t, carol, 7, dave, 0)
	require.NoError(t, first.Deposit(ctx, carol, 1))

	all, err := h.ledger.Issuances(ctx, journal.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, iou.Issued{
		ContractID:               first.ID(),
		Issuer:                   alice,
		Recipient:                bob,
		FaceValue:                100,
		PartialPaymentPercentage: 10,
		IssuedAt:                 epoch,
	}, all[0])
	assert.Equal(t, second.ID(), all[1].ContractID)

	page, err := h.ledger.Issuances(ctx, journal.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID(), page[0].ContractID)
}

func TestOpenUnknownContract(t *testing.T) {
	h := newHarness(t)

	_, err := h.ledger.Open(context.Background(), id.NewContractID())
	require.ErrorIs(t, err, iou.ErrContractNotFound)
	assert.True(t, iou.IsNotFound(err))
}

func TestOpenReturnsLoadedContract(t *testing.T) {
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 0)

	opened, err := h.ledger.Open(context.Background(), c.ID())
	require.NoError(t, err)
	assert.Same(t, c, opened)
}

func TestStopClosesStore(t *testing.T) {
	h := newHarness(t)
	c := h.issue(t, alice, 100, bob, 0)

	require.NoError(t, h.ledger.Stop())
	require.ErrorIs(t, h.ledger.Ping(context.Background()), iou.ErrStoreClosed)

	err := c.Deposit(context.Background(), carol, 1)
	require.ErrorIs(t, err, iou.ErrJournalWrite)
	require.ErrorIs(t, err, iou.ErrStoreClosed)
	assert.Equal(t, types.Amount(0), c.BalanceOf(carol))
}
