package iou

import (
	"context"
	"sync"

	"github.com/xraph/iou/allowance"
	"github.com/xraph/iou/balance"
	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/types"
)

// Contract is one IOU instance: its debt record plus the balance and
// allowance books it moves value through.
//
// Every mutating operation runs under the contract's mutex, is written to the
// journal, and only then becomes visible. A failed operation changes nothing
// and emits nothing. Reads never fail.
type Contract struct {
	ledger *Ledger
	id     id.ContractID

	mu         sync.RWMutex
	balances   *balance.Book
	allowances *allowance.Book
	record     debt.Record
	supply     types.Amount
	seq        int64

	// tickets numbers local commits under mu. Events go out in ticket
	// order; published is the last ticket delivered, guarded by pubMu.
	tickets   int64
	pubMu     sync.Mutex
	pubCond   *sync.Cond
	published int64
}

// State is a consistent copy of a contract.
type State struct {
	ContractID  id.ContractID
	Seq         int64
	Record      debt.Record
	Balances    map[types.AccountID]types.Amount
	Allowances  map[allowance.Key]types.Amount
	TotalSupply types.Amount
}

func newContract(l *Ledger, contractID id.ContractID) *Contract {
	c := &Contract{
		ledger:     l,
		id:         contractID,
		balances:   balance.NewBook(),
		allowances: allowance.NewBook(),
	}
	c.pubCond = sync.NewCond(&c.pubMu)
	return c
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// ID returns the contract ID.
func (c *Contract) ID() id.ContractID { return c.id }

// Amount returns the amount still owed.
func (c *Contract) Amount() types.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record.AmountOwed
}

// BalanceOf returns the balance of account, zero if it has none.
func (c *Contract) BalanceOf(account types.AccountID) types.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balances.Get(account)
}

// Allowance returns what spender may move out of owner's balance.
func (c *Contract) Allowance(owner, spender types.AccountID) types.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allowances.Get(owner, spender)
}

// Record returns a copy of the debt record.
func (c *Contract) Record() debt.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record
}

// TotalSupply returns everything minted by issuance and deposits. It always
// equals the sum of all balances.
func (c *Contract) TotalSupply() types.Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supply
}

// Seq returns the sequence number of the last applied journal entry.
func (c *Contract) Seq() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}

// State returns a consistent copy of the whole contract.
func (c *Contract) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return State{
		ContractID:  c.id,
		Seq:         c.seq,
		Record:      c.record,
		Balances:    c.balances.Snapshot(),
		Allowances:  c.allowances.Snapshot(),
		TotalSupply: c.supply,
	}
}

// ──────────────────────────────────────────────────
// Operations
// ──────────────────────────────────────────────────

// Deposit credits amount to account. It is a pure mint and increases the
// total supply.
func (c *Contract) Deposit(ctx context.Context, account types.AccountID, amount types.Amount) error {
	if err := requireAccount("account", account); err != nil {
		return err
	}
	return c.execute(ctx, journal.OpDeposit, account, journal.Args{Amount: amount})
}

// PayDebt repays amount of the outstanding debt. The caller is the debtor
// and amount moves from the caller to the record's recipient. The debt
// counters and the transfer are applied together or not at all.
func (c *Contract) PayDebt(ctx context.Context, caller types.AccountID, amount types.Amount) error {
	if err := requireAccount("caller", caller); err != nil {
		return err
	}
	return c.execute(ctx, journal.OpPayDebt, caller, journal.Args{Amount: amount})
}

// Approve sets spender's allowance over owner's balance to value.
func (c *Contract) Approve(ctx context.Context, owner, spender types.AccountID, value types.Amount) error {
	if err := requireAccount("owner", owner); err != nil {
		return err
	}
	if err := requireAccount("spender", spender); err != nil {
		return err
	}
	return c.execute(ctx, journal.OpApprove, owner, journal.Args{Spender: spender, Amount: value})
}

// TransferWithAllowance moves value from from to to on behalf of spender,
// consuming value of spender's allowance over from.
func (c *Contract) TransferWithAllowance(ctx context.Context, spender, from, to types.AccountID, value types.Amount) error {
	if err := requireAccount("spender", spender); err != nil {
		return err
	}
	if err := requireAccount("from", from); err != nil {
		return err
	}
	if err := requireAccount("to", to); err != nil {
		return err
	}
	args := journal.Args{From: from, To: to, Spender: spender, Amount: value}
	return c.execute(ctx, journal.OpTransferWithAllowance, spender, args)
}

// Sync applies journal entries written by other processes.
func (c *Contract) Sync(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catchUp(ctx)
}

// execute runs one operation end to end: stage, journal, commit, publish.
func (c *Contract) execute(ctx context.Context, op journal.Op, caller types.AccountID, args journal.Args) error {
	l := c.ledger

	c.mu.Lock()

	var tx *txn
	run := func(ctx context.Context) error {
		if l.locker != nil {
			if err := c.catchUp(ctx); err != nil {
				return err
			}
		}

		staged, err := c.stage(ctx, op, caller, args, false, l.now())
		if err != nil {
			return err
		}

		entry := &journal.Entry{
			ID:         id.NewEntryID(),
			ContractID: c.id,
			Seq:        c.seq + 1,
			Op:         op,
			Caller:     caller,
			Args:       args,
			Events:     staged.envelopes(),
			RecordedAt: staged.now,
		}
		if err := l.store.AppendEntry(ctx, entry); err != nil {
			err = conflictErr(c.id, entry.Seq, err)
			if IsConflict(err) {
				if syncErr := c.catchUp(ctx); syncErr != nil {
					l.logger.Warn("iou: catch up after conflict failed", "contract", c.id.String(), "error", syncErr)
				}
			}
			return err
		}

		c.commit(staged, entry.Seq)
		c.maybeCheckpoint(ctx)
		tx = staged
		return nil
	}

	var err error
	if l.locker != nil {
		err = l.locker.WithLock(ctx, "iou:"+c.id.String(), run)
	} else {
		err = run(ctx)
	}

	if err != nil {
		c.mu.Unlock()
		l.logger.Debug("iou operation rejected", "contract", c.id.String(), "op", op, "caller", caller, "error", err)
		l.plugins.EmitOperationRejected(ctx, c.id, op, err)
		return err
	}

	rec := c.record
	c.tickets++
	ticket := c.tickets
	c.mu.Unlock()

	c.publishInOrder(ctx, ticket, tx, rec)
	return nil
}

// publishInOrder delivers tx's events after those of every earlier commit.
// It runs without mu, so sinks may read the contract; a sink that writes to
// the same contract would wait on its own delivery.
func (c *Contract) publishInOrder(ctx context.Context, ticket int64, tx *txn, rec debt.Record) {
	c.pubMu.Lock()
	for c.published != ticket-1 {
		c.pubCond.Wait()
	}
	c.pubMu.Unlock()

	defer func() {
		c.pubMu.Lock()
		c.published = ticket
		c.pubMu.Unlock()
		c.pubCond.Broadcast()
	}()

	c.publish(ctx, tx, rec)
}

func (c *Contract) commit(tx *txn, seq int64) {
	tx.balances.Commit()
	tx.allowances.Commit()
	c.record = tx.record
	c.supply = tx.supply
	c.seq = seq
}

func (c *Contract) publish(ctx context.Context, tx *txn, rec debt.Record) {
	l := c.ledger
	for _, e := range tx.events {
		l.sink.Emit(ctx, c.id, e)
	}
	if tx.repaid > 0 {
		l.plugins.EmitDebtRepaid(ctx, rec, tx.repaid)
		if rec.Paid {
			l.plugins.EmitDebtSettled(ctx, rec)
		}
	}
}
