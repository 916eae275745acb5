// Package plugin provides the hook system IOU contracts report to.
// Plugins implement Plugin plus any of the hook interfaces below; the
// Registry discovers which at registration time.
package plugin

import (
	"context"

	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts. l is the *iou.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Event hooks
// ──────────────────────────────────────────────────

// OnIssuance is called for every IssuanceRecord event.
type OnIssuance interface {
	Plugin
	OnIssuance(ctx context.Context, contractID id.ContractID, e event.Issuance) error
}

// OnTransfer is called for every Transfer event, mints included.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, contractID id.ContractID, e event.Transfer) error
}

// OnDeposit is called for every Deposit event.
type OnDeposit interface {
	Plugin
	OnDeposit(ctx context.Context, contractID id.ContractID, e event.Deposit) error
}

// OnApproval is called for every Approval event.
type OnApproval interface {
	Plugin
	OnApproval(ctx context.Context, contractID id.ContractID, e event.Approval) error
}

// ──────────────────────────────────────────────────
// Debt hooks
// ──────────────────────────────────────────────────

// OnDebtRepaid is called after a repayment is committed. rec is the record
// after the payment.
type OnDebtRepaid interface {
	Plugin
	OnDebtRepaid(ctx context.Context, rec debt.Record, amount types.Amount) error
}

// OnDebtSettled is called once, when a record reaches Paid.
type OnDebtSettled interface {
	Plugin
	OnDebtSettled(ctx context.Context, rec debt.Record) error
}

// OnOperationRejected is called when an operation fails validation. The
// contract state is unchanged.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, contractID id.ContractID, op journal.Op, err error) error
}

// ──────────────────────────────────────────────────
// Payment validators
// ──────────────────────────────────────────────────

// PaymentValidator can veto a repayment before it is committed. A non-nil
// error rejects the payment and is returned to the caller.
type PaymentValidator interface {
	Plugin
	ValidatePayment(ctx context.Context, rec debt.Record, payer types.AccountID, amount types.Amount) error
}
