package iou

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/lock"
	"github.com/xraph/iou/plugin"
	"github.com/xraph/iou/store"
	"github.com/xraph/iou/types"
)

// Ledger owns the IOU contracts backed by one journal store.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	sinks   []event.Sink
	sink    event.Sink
	logger  *slog.Logger
	locker  lock.Locker
	clock   func() time.Time

	// Configuration
	paymentFloor    bool
	checkpointEvery int64

	mu        sync.Mutex
	contracts map[id.ContractID]*Contract
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     s,
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		clock:     time.Now,
		contracts: make(map[id.ContractID]*Contract),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.sink = event.Fanout(append([]event.Sink{l.plugins}, l.sinks...)...)
	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithSink adds an event sink. Sinks receive events after the plugin
// registry, in the order they were added.
func WithSink(s event.Sink) Option {
	return func(l *Ledger) {
		l.sinks = append(l.sinks, s)
	}
}

// WithLocker serializes each contract across processes sharing the store.
// Every operation then catches up from the journal before it runs.
func WithLocker(lk lock.Locker) Option {
	return func(l *Ledger) {
		l.locker = lk
	}
}

// WithClock overrides the time source used for journal timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithPartialPaymentFloor rejects a repayment that leaves debt outstanding
// when it is below the record's partial payment percentage of face value.
func WithPartialPaymentFloor() Option {
	return func(l *Ledger) {
		l.paymentFloor = true
	}
}

// WithCheckpointEvery saves a checkpoint after every n-th journal entry of a
// contract. Zero disables checkpoints.
func WithCheckpointEvery(n int) Option {
	return func(l *Ledger) {
		l.checkpointEvery = int64(max(n, 0))
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("iou ledger started",
		"plugins", l.plugins.Count(),
		"distributed_lock", l.locker != nil,
		"payment_floor", l.paymentFloor,
		"checkpoint_every", l.checkpointEvery,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Ping checks the store.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// ──────────────────────────────────────────────────
// Contract Management
// ──────────────────────────────────────────────────

// Issue creates a new IOU: issuer owes recipient amountOwed. The face value
// is minted into the issuer's balance. pct is the partial payment
// percentage, 0..100.
func (l *Ledger) Issue(ctx context.Context, issuer types.AccountID, amountOwed types.Amount, recipient types.AccountID, pct uint32) (*Contract, error) {
	if err := requireAccount("issuer", issuer); err != nil {
		return nil, err
	}
	if err := requireAccount("recipient", recipient); err != nil {
		return nil, err
	}

	c := newContract(l, id.NewContractID())
	args := journal.Args{Amount: amountOwed, Recipient: recipient, Percentage: pct}
	if err := c.execute(ctx, journal.OpIssue, issuer, args); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.contracts[c.id] = c
	l.mu.Unlock()

	l.logger.Info("iou issued",
		"contract", c.id.String(),
		"issuer", issuer,
		"recipient", recipient,
		"amount_owed", amountOwed,
	)
	return c, nil
}

// Open returns the contract with the given ID, rebuilding it from its latest
// checkpoint and journal if it is not loaded yet.
func (l *Ledger) Open(ctx context.Context, contractID id.ContractID) (*Contract, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.contracts[contractID]; ok {
		return c, nil
	}

	c := newContract(l, contractID)

	cp, err := l.store.GetCheckpoint(ctx, contractID)
	switch {
	case err == nil:
		if err := c.restore(cp); err != nil {
			return nil, err
		}
	case !IsNotFound(err):
		return nil, fmt.Errorf("iou: load checkpoint %s: %w", contractID, err)
	}

	if err := c.catchUp(ctx); err != nil {
		return nil, err
	}
	if c.seq == 0 {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, contractID)
	}

	l.contracts[contractID] = c
	l.logger.Debug("iou opened", "contract", contractID.String(), "seq", c.seq)
	return c, nil
}

// Issued summarizes an issuance for collaborators that index IOUs.
type Issued struct {
	ContractID               id.ContractID
	Issuer                   types.AccountID
	Recipient                types.AccountID
	FaceValue                types.Amount
	PartialPaymentPercentage uint32
	IssuedAt                 time.Time
}

// Issuances lists issued IOUs in issue order.
func (l *Ledger) Issuances(ctx context.Context, opts journal.ListOpts) ([]Issued, error) {
	entries, err := l.store.ListIssuances(ctx, opts)
	if err != nil {
		return nil, err
	}

	out := make([]Issued, 0, len(entries))
	for _, e := range entries {
		out = append(out, Issued{
			ContractID:               e.ContractID,
			Issuer:                   e.Caller,
			Recipient:                e.Args.Recipient,
			FaceValue:                e.Args.Amount,
			PartialPaymentPercentage: e.Args.Percentage,
			IssuedAt:                 e.RecordedAt,
		})
	}
	return out, nil
}

func requireAccount(field string, a types.AccountID) error {
	if a.IsZero() {
		return ValidationError{Field: field, Message: "account identifier is required"}
	}
	return nil
}

func (l *Ledger) now() time.Time { return l.clock().UTC() }

// conflictErr maps a taken journal slot to ErrConcurrentModification.
func conflictErr(contractID id.ContractID, seq int64, err error) error {
	if errors.Is(err, ErrAlreadyExists) {
		return fmt.Errorf("%w: %s at seq %d", ErrConcurrentModification, contractID, seq)
	}
	return fmt.Errorf("%w: %w", ErrJournalWrite, err)
}
