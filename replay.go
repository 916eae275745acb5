package iou

import (
	"context"
	"fmt"
	"slices"

	"github.com/xraph/iou/allowance"
	"github.com/xraph/iou/balance"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/journal"
)

// catchUp applies every journal entry after c.seq. The caller holds c.mu.
func (c *Contract) catchUp(ctx context.Context) error {
	entries, err := c.ledger.store.ListEntries(ctx, c.id, c.seq)
	if err != nil {
		return fmt.Errorf("iou: list journal %s: %w", c.id, err)
	}

	for _, e := range entries {
		if err := c.replay(ctx, e); err != nil {
			return err
		}
	}
	if len(entries) > 0 {
		c.ledger.logger.Debug("iou caught up",
			"contract", c.id.String(),
			"applied", len(entries),
			"seq", c.seq,
		)
	}
	return nil
}

// replay re-derives one entry and checks the outcome against what was
// recorded when it was first applied.
func (c *Contract) replay(ctx context.Context, e *journal.Entry) error {
	if e.Seq != c.seq+1 {
		return fmt.Errorf("%w: %s expected seq %d, got %d", ErrJournalCorrupt, c.id, c.seq+1, e.Seq)
	}

	tx, err := c.stage(ctx, e.Op, e.Caller, e.Args, true, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("%w: %s seq %d: %w", ErrJournalCorrupt, c.id, e.Seq, err)
	}

	derived := tx.envelopes()
	if !slices.EqualFunc(derived, e.Events, func(a, b event.Envelope) bool { return a.Equal(b) }) {
		return fmt.Errorf("%w: %s seq %d: events differ from the recorded ones", ErrJournalCorrupt, c.id, e.Seq)
	}

	c.commit(tx, e.Seq)
	return nil
}

// restore loads a checkpoint into an empty contract.
func (c *Contract) restore(cp *journal.Checkpoint) error {
	if cp.ContractID != c.id {
		return fmt.Errorf("%w: checkpoint for %s loaded into %s", ErrJournalCorrupt, cp.ContractID, c.id)
	}
	if err := cp.Record.Validate(); err != nil {
		return fmt.Errorf("%w: checkpoint %s: %w", ErrJournalCorrupt, c.id, err)
	}

	balances := balance.NewBook()
	for account, amount := range cp.Balances {
		if err := amount.Validate(); err != nil {
			return fmt.Errorf("%w: checkpoint %s balance of %s: %w", ErrJournalCorrupt, c.id, account, err)
		}
		balances.Set(account, amount)
	}
	supply, err := balances.Total()
	if err != nil {
		return fmt.Errorf("%w: checkpoint %s: %w", ErrJournalCorrupt, c.id, err)
	}

	allowances := allowance.NewBook()
	for _, a := range cp.Allowances {
		if err := a.Value.Validate(); err != nil {
			return fmt.Errorf("%w: checkpoint %s allowance: %w", ErrJournalCorrupt, c.id, err)
		}
		allowances.Set(a.Owner, a.Spender, a.Value)
	}

	c.balances = balances
	c.allowances = allowances
	c.record = cp.Record
	c.supply = supply
	c.seq = cp.Seq
	return nil
}

// checkpoint captures the committed state. The caller holds c.mu.
func (c *Contract) checkpoint() *journal.Checkpoint {
	keys := c.allowances.Keys()
	allowances := make([]journal.AllowanceEntry, 0, len(keys))
	for _, k := range keys {
		allowances = append(allowances, journal.AllowanceEntry{
			Owner:   k.Owner,
			Spender: k.Spender,
			Value:   c.allowances.Get(k.Owner, k.Spender),
		})
	}

	return &journal.Checkpoint{
		ContractID: c.id,
		Seq:        c.seq,
		Record:     c.record,
		Balances:   c.balances.Snapshot(),
		Allowances: allowances,
		TakenAt:    c.ledger.now(),
	}
}

// maybeCheckpoint saves a checkpoint when c.seq lands on the configured
// interval. A failed save only costs a longer replay later.
func (c *Contract) maybeCheckpoint(ctx context.Context) {
	every := c.ledger.checkpointEvery
	if every <= 0 || c.seq%every != 0 {
		return
	}

	if err := c.ledger.store.SaveCheckpoint(ctx, c.checkpoint()); err != nil {
		c.ledger.logger.Warn("iou: save checkpoint failed",
			"contract", c.id.String(),
			"seq", c.seq,
			"error", err,
		)
	}
}
