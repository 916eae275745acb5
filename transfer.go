package iou

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/iou/allowance"
	"github.com/xraph/iou/balance"
	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/types"
)

// txn stages one operation's writes over the contract's books. Nothing is
// visible to readers until the contract commits it; a failed step is simply
// dropped.
type txn struct {
	balances   *balance.Overlay
	allowances *allowance.Overlay
	record     debt.Record
	supply     types.Amount
	events     []event.Event
	now        time.Time

	// repaid is the amount of debt settled by this operation.
	repaid types.Amount
}

// stage validates op and returns its staged effects. replaying skips the
// checks that depend on current configuration or plugins, since a journal
// entry was already accepted once.
func (c *Contract) stage(ctx context.Context, op journal.Op, caller types.AccountID, args journal.Args, replaying bool, now time.Time) (*txn, error) {
	tx := &txn{
		balances:   balance.NewOverlay(c.balances),
		allowances: allowance.NewOverlay(c.allowances),
		record:     c.record,
		supply:     c.supply,
		now:        now,
	}

	if op != journal.OpIssue && c.seq == 0 {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, c.id)
	}

	var err error
	switch op {
	case journal.OpIssue:
		if c.seq != 0 {
			return nil, fmt.Errorf("%w: %s is already issued", ErrAlreadyExists, c.id)
		}
		err = tx.issue(c, caller, args.Recipient, args.Amount, args.Percentage)
	case journal.OpDeposit:
		err = tx.mint(caller, args.Amount, event.Deposit{To: caller, Value: args.Amount})
	case journal.OpPayDebt:
		err = tx.payDebt(ctx, c.ledger, caller, args.Amount, replaying)
	case journal.OpApprove:
		err = tx.approve(caller, args.Spender, args.Amount)
	case journal.OpTransferWithAllowance:
		err = tx.transferWithAllowance(args.From, args.To, args.Amount, args.Spender)
	default:
		err = fmt.Errorf("%w: unknown operation %q", ErrInvalidInput, op)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (tx *txn) envelopes() []event.Envelope { return event.WrapAll(tx.events) }

func (tx *txn) issue(c *Contract, issuer, recipient types.AccountID, amountOwed types.Amount, pct uint32) error {
	if err := amountOwed.Validate(); err != nil {
		return err
	}
	rec, err := debt.New(c.id, issuer, recipient, amountOwed, pct, tx.now)
	if err != nil {
		return err
	}
	tx.record = rec

	if err := tx.mint(issuer, amountOwed, event.Transfer{From: nil, To: issuer.Ref(), Value: amountOwed}); err != nil {
		return err
	}
	tx.events = append(tx.events, event.Issuance{Issuer: issuer, Recipient: recipient, AmountOwed: amountOwed})
	return nil
}

// mint credits value with no matching debit and records e.
func (tx *txn) mint(to types.AccountID, value types.Amount, e event.Event) error {
	if err := value.Validate(); err != nil {
		return err
	}
	supply, err := tx.supply.Add(value)
	if err != nil {
		return err
	}
	if err := tx.credit(to, value); err != nil {
		return err
	}
	tx.supply = supply
	tx.events = append(tx.events, e)
	return nil
}

func (tx *txn) payDebt(ctx context.Context, l *Ledger, payer types.AccountID, amount types.Amount, replaying bool) error {
	floor := l.paymentFloor && !replaying
	if err := tx.record.CheckPayment(amount, floor); err != nil {
		return err
	}
	if !replaying {
		if err := l.plugins.ValidatePayment(ctx, tx.record, payer, amount); err != nil {
			return err
		}
	}

	if err := tx.transfer(payer, tx.record.Recipient, amount); err != nil {
		return err
	}
	if err := tx.record.Repay(amount, floor, tx.now); err != nil {
		return err
	}
	tx.repaid = amount
	return nil
}

func (tx *txn) approve(owner, spender types.AccountID, value types.Amount) error {
	if err := value.Validate(); err != nil {
		return err
	}
	tx.allowances.Set(owner, spender, value)
	tx.events = append(tx.events, event.Approval{Owner: owner, Spender: spender, Value: value})
	return nil
}

// transfer moves value from one account to another and overwrites
// allowance(from, to) with value, leaving the slot as a record of the last
// payment between the pair.
func (tx *txn) transfer(from, to types.AccountID, value types.Amount) error {
	if err := value.Validate(); err != nil {
		return err
	}
	if have := tx.balances.Get(from); have < value {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from, have, value)
	}

	if err := tx.debit(from, value); err != nil {
		return err
	}
	if err := tx.credit(to, value); err != nil {
		return err
	}
	tx.allowances.Set(from, to, value)
	tx.events = append(tx.events, event.Transfer{From: from.Ref(), To: to.Ref(), Value: value})
	return nil
}

// transferWithAllowance runs transfer on spender's behalf, then sets
// allowance(from, spender) to what it was before minus value. When spender
// is also the recipient this supersedes the overwrite done by transfer.
func (tx *txn) transferWithAllowance(from, to types.AccountID, value types.Amount, spender types.AccountID) error {
	if err := value.Validate(); err != nil {
		return err
	}
	prior := tx.allowances.Get(from, spender)
	if prior < value {
		return fmt.Errorf("%w: %s may spend %d of %s, needs %d", ErrInsufficientAllowance, spender, prior, from, value)
	}

	if err := tx.transfer(from, to, value); err != nil {
		return err
	}
	tx.allowances.Set(from, spender, prior-value)
	return nil
}

func (tx *txn) credit(account types.AccountID, amount types.Amount) error {
	next, err := tx.balances.Get(account).Add(amount)
	if err != nil {
		return err
	}
	tx.balances.Set(account, next)
	return nil
}

func (tx *txn) debit(account types.AccountID, amount types.Amount) error {
	next, err := tx.balances.Get(account).Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	}
	tx.balances.Set(account, next)
	return nil
}
